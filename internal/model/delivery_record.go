package model

import "time"

// Delivery outcomes.
const (
	DeliverySent   = "sent"
	DeliveryFailed = "failed"
)

// DeliveryRecord is one append-only audit row for one send attempt against
// one token. Rows are never updated after insert.
type DeliveryRecord struct {
	ID             string    `json:"id"`
	NotificationID string    `json:"notification_id"`
	TokenID        string    `json:"token_id"`
	Platform       Platform  `json:"platform"`
	Status         string    `json:"status"` // sent / failed
	ProviderMsgID  string    `json:"provider_message_id,omitempty"`
	ErrorCode      string    `json:"error_code,omitempty"`
	ErrorMessage   string    `json:"error_message,omitempty"`
	Endpoint       string    `json:"endpoint,omitempty"`      // web only
	EndpointHost   string    `json:"endpoint_host,omitempty"` // web only
	Browser        string    `json:"browser,omitempty"`       // web only
	Stage          string    `json:"stage"`
	CreatedAt      time.Time `json:"created_at"`
}
