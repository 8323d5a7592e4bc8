// Package push holds the provider-independent send contract shared by the
// FCM and Web Push senders.
package push

import "fmt"

// Delivery stages, one per provider path. They tag both delivery audit rows
// and send errors.
const (
	StageFCMSend     = "fcm_send"
	StageWebPushSend = "webpush_send"
)

// Message is the provider-independent notification payload. DeepLink and
// ImageURL ride in the provider data block so the client can route on tap.
type Message struct {
	Title    string
	Body     string
	ImageURL string
	DeepLink string
}

// SendError is a classified provider failure. Status carries the provider's
// HTTP status code; 0 means the request never got a response. Reason marks
// non-HTTP failures (malformed subscription, library mismatch) that no retry
// can fix.
type SendError struct {
	Stage  string
	Status int
	Reason string
	Body   string
}

func (e *SendError) Error() string {
	switch {
	case e.Reason != "":
		return fmt.Sprintf("%s: %s", e.Reason, e.Body)
	case e.Status > 0:
		return fmt.Sprintf("%s_failed_%d", providerOf(e.Stage), e.Status)
	default:
		return fmt.Sprintf("%s_failed: %s", providerOf(e.Stage), e.Body)
	}
}

// Retryable reports whether another attempt can change the outcome.
// 429 and 5xx are provider backpressure; 401/403 allow a credential refresh
// inside the retry loop; a missing status means the request never completed.
func (e *SendError) Retryable() bool {
	if e.Reason != "" {
		return false
	}
	switch {
	case e.Status == 429, e.Status >= 500, e.Status == 401, e.Status == 403, e.Status == 0:
		return true
	default:
		return false
	}
}

// Gone reports a permanently dead endpoint per provider semantics.
func (e *SendError) Gone() bool {
	return e.Status == 404 || e.Status == 410
}

// AuthFailure reports a rejected credential; the dispatcher refreshes the FCM
// access token before the next attempt when it sees one.
func (e *SendError) AuthFailure() bool {
	return e.Status == 401 || e.Status == 403
}

// Code is the classification stored on the delivery record.
func (e *SendError) Code() string {
	if e.Reason != "" {
		return e.Reason
	}
	if e.Status > 0 {
		return fmt.Sprintf("http_%d", e.Status)
	}
	return "transport_error"
}

func providerOf(stage string) string {
	switch stage {
	case StageFCMSend:
		return "fcm"
	case StageWebPushSend:
		return "webpush"
	default:
		return stage
	}
}
