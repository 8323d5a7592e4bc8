package model

import "time"

// DeviceToken is one registered push endpoint, owned by the client
// registration flow. For android/ios the Token field holds an FCM
// registration token; for web it holds the serialized subscription JSON
// (endpoint + encryption keys). This service never creates tokens; it only
// reads them and flips Enabled off when a provider reports the endpoint gone.
type DeviceToken struct {
	ID        string    `json:"id"`
	Token     string    `json:"token"`
	Platform  Platform  `json:"platform"`
	DeviceID  string    `json:"device_id"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"created_at"`
}
