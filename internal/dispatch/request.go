package dispatch

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"pushdispatch/internal/model"
)

var ErrInvalidRequest = errors.New("invalid request")

// Scoping filters must look like identifiers; anything else is rejected
// before the datastore is touched.
var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{8,128}$`)

// Request describes one dispatch invocation.
type Request struct {
	NotificationID string
	Platform       string // optional override of the stored target
	DeviceID       string // optional, scope to one device
	TokenID        string // optional, scope to one token row
	DryRun         bool
}

func (r Request) Validate() error {
	if strings.TrimSpace(r.NotificationID) == "" {
		return fmt.Errorf("%w: notificationId is required", ErrInvalidRequest)
	}
	if r.Platform != "" && !model.ValidTarget(r.Platform) {
		return fmt.Errorf("%w: platform must be one of all, android, ios, web", ErrInvalidRequest)
	}
	if r.DeviceID != "" && !idPattern.MatchString(r.DeviceID) {
		return fmt.Errorf("%w: deviceId must be an 8-128 character identifier", ErrInvalidRequest)
	}
	if r.TokenID != "" && !idPattern.MatchString(r.TokenID) {
		return fmt.Errorf("%w: tokenId must be an 8-128 character identifier", ErrInvalidRequest)
	}
	return nil
}
