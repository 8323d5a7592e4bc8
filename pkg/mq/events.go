package mq

import "time"

// Routing keys for dispatch outcome events.
const (
	RoutingKeyNotificationDispatched = "notification.dispatched"
)

// PlatformCounts is the per-platform sent/failed breakdown inside an event.
type PlatformCounts struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}

// NotificationDispatchedEvent is published after a non-dry dispatch run, one
// event per run. Consumers (admin history view) treat it as a notification,
// not as the source of truth: delivery rows carry the authoritative outcome.
type NotificationDispatchedEvent struct {
	EventID        string                    `json:"event_id"`
	NotificationID string                    `json:"notification_id"`
	Status         string                    `json:"status"` // sent / failed
	Sent           int                       `json:"sent"`
	Failed         int                       `json:"failed"`
	Targets        int                       `json:"targets"`
	PerPlatform    map[string]PlatformCounts `json:"per_platform"`
	DurationMS     int64                     `json:"duration_ms"`
	DispatchedAt   time.Time                 `json:"dispatched_at"`
}
