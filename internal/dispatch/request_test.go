package dispatch

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     Request
		wantErr string
	}{
		{"minimal", Request{NotificationID: "notif-0001"}, ""},
		{"all fields", Request{NotificationID: "notif-0001", Platform: "web", DeviceID: "device-12345", TokenID: "token-123456", DryRun: true}, ""},
		{"target all", Request{NotificationID: "notif-0001", Platform: "all"}, ""},
		{"missing id", Request{}, "notificationId is required"},
		{"blank id", Request{NotificationID: "   "}, "notificationId is required"},
		{"unknown platform", Request{NotificationID: "notif-0001", Platform: "windows"}, "platform must be one of"},
		{"short device id", Request{NotificationID: "notif-0001", DeviceID: "abc"}, "deviceId"},
		{"device id with spaces", Request{NotificationID: "notif-0001", DeviceID: "device id 12345"}, "deviceId"},
		{"token id with quotes", Request{NotificationID: "notif-0001", TokenID: `token';drop--`}, "tokenId"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrInvalidRequest)
			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}
