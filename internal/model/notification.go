package model

import (
	"errors"
	"time"
)

var ErrNotificationNotFound = errors.New("notification not found")

type NotificationStatus string

const (
	StatusDraft     NotificationStatus = "draft"
	StatusScheduled NotificationStatus = "scheduled"
	StatusSent      NotificationStatus = "sent"
	StatusFailed    NotificationStatus = "failed"
)

// TargetAll selects every platform; any other target value is a Platform.
const TargetAll = "all"

type Platform string

const (
	PlatformAndroid Platform = "android"
	PlatformIOS     Platform = "ios"
	PlatformWeb     Platform = "web"
)

// ValidTarget reports whether s is a usable target selector.
func ValidTarget(s string) bool {
	switch s {
	case TargetAll, string(PlatformAndroid), string(PlatformIOS), string(PlatformWeb):
		return true
	}
	return false
}

// ExpandTarget maps a target selector to the concrete platform set.
// "all" expands to the union of every platform, never a subset.
func ExpandTarget(target string) []Platform {
	if target == TargetAll || target == "" {
		return []Platform{PlatformAndroid, PlatformIOS, PlatformWeb}
	}
	return []Platform{Platform(target)}
}

// Notification is one broadcast message, stored in the notifications table.
// This service only reads it and finalizes its status; creation and
// scheduling happen in the CMS.
type Notification struct {
	ID             string             `json:"id"`
	Title          string             `json:"title"`
	Body           string             `json:"body"`
	ImageURL       string             `json:"image_url,omitempty"`
	DeepLink       string             `json:"deep_link,omitempty"`
	TargetPlatform string             `json:"target_platform"` // all / android / ios / web
	Status         NotificationStatus `json:"status"`
	CreatedAt      time.Time          `json:"created_at"`
	SentAt         *time.Time         `json:"sent_at,omitempty"`
}
