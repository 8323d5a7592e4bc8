package webpush

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pushdispatch/internal/config"
	"pushdispatch/internal/push"
)

const validSubscription = `{
	"endpoint": "https://fcm.googleapis.com/fcm/send/abc123",
	"keys": {"p256dh": "BNcR...", "auth": "tBHI..."}
}`

type fakeTransport struct {
	status  int
	err     error
	gotSub  *Subscription
	gotBody []byte
	gotOpt  Options
	calls   int
}

func (f *fakeTransport) Send(_ context.Context, sub *Subscription, payload []byte, opt Options) (int, error) {
	f.calls++
	f.gotSub = sub
	f.gotBody = payload
	f.gotOpt = opt
	return f.status, f.err
}

func vapidConfig() config.VAPIDConfig {
	return config.VAPIDConfig{
		PublicKey:  "pub+key/one==",
		PrivateKey: "priv+key/two=",
		Subject:    "mailto:ops@example.com",
	}
}

func TestNormalizeKey(t *testing.T) {
	require.Equal(t, "ab-cd_ef", NormalizeKey("ab+cd/ef=="))
	require.Equal(t, "already-url_safe", NormalizeKey("already-url_safe"))
	require.Equal(t, "trimmed", NormalizeKey("  trimmed \n"))
}

func TestParseSubscription(t *testing.T) {
	sub, err := ParseSubscription(validSubscription)
	require.NoError(t, err)
	require.Equal(t, "https://fcm.googleapis.com/fcm/send/abc123", sub.Endpoint)
	require.Equal(t, "BNcR...", sub.Keys.P256dh)

	_, err = ParseSubscription("{not json")
	require.Error(t, err)

	_, err = ParseSubscription(`{"endpoint":"https://x","keys":{"p256dh":"a"}}`)
	require.ErrorContains(t, err, "missing endpoint or keys")
}

func TestBrowserFromEndpoint(t *testing.T) {
	tests := []struct {
		endpoint string
		host     string
		browser  string
	}{
		{"https://fcm.googleapis.com/fcm/send/x", "fcm.googleapis.com", "chrome"},
		{"https://updates.push.services.mozilla.com/wpush/v2/x", "updates.push.services.mozilla.com", "firefox"},
		{"https://wns2-par02p.notify.windows.com/w/?token=x", "wns2-par02p.notify.windows.com", "edge"},
		{"https://web.push.apple.com/QG", "web.push.apple.com", "safari"},
		{"https://push.example.org/x", "push.example.org", "other"},
		{"::not a url::", "", ""},
	}
	for _, tt := range tests {
		host, browser := BrowserFromEndpoint(tt.endpoint)
		require.Equal(t, tt.host, host)
		require.Equal(t, tt.browser, browser)
	}
}

func TestNewSenderRequiresFullVAPIDIdentity(t *testing.T) {
	cfg := vapidConfig()
	cfg.Subject = ""
	_, err := NewSender(cfg, zap.NewNop())
	require.Error(t, err)
}

func TestSendDeliversPayloadWithNormalizedKeys(t *testing.T) {
	ft := &fakeTransport{status: 201}
	s, err := NewSenderWithTransport(vapidConfig(), ft, zap.NewNop())
	require.NoError(t, err)

	id, err := s.Send(context.Background(), validSubscription, push.Message{
		Title:    "Fajr",
		Body:     "It's time",
		DeepLink: "/prayer-times",
	})
	require.NoError(t, err)
	require.Equal(t, "201", id)
	require.Equal(t, 1, ft.calls)

	var p map[string]string
	require.NoError(t, json.Unmarshal(ft.gotBody, &p))
	require.Equal(t, "Fajr", p["title"])
	require.Equal(t, "It's time", p["body"])
	require.Equal(t, "/prayer-times", p["deep_link"])

	require.Equal(t, "pub-key_one", ft.gotOpt.VAPIDPublicKey)
	require.Equal(t, "priv-key_two", ft.gotOpt.VAPIDPrivateKey)
	require.Equal(t, "mailto:ops@example.com", ft.gotOpt.Subscriber)
}

func TestSendClassifiesDeadSubscription(t *testing.T) {
	ft := &fakeTransport{status: 410}
	s, err := NewSenderWithTransport(vapidConfig(), ft, zap.NewNop())
	require.NoError(t, err)

	_, err = s.Send(context.Background(), validSubscription, push.Message{Title: "t", Body: "b"})

	var se *push.SendError
	require.ErrorAs(t, err, &se)
	require.Equal(t, push.StageWebPushSend, se.Stage)
	require.Equal(t, 410, se.Status)
	require.True(t, se.Gone())
	require.Equal(t, "webpush_failed_410", se.Error())
}

func TestSendClassifiesTransportError(t *testing.T) {
	ft := &fakeTransport{err: errors.New("dial tcp: i/o timeout")}
	s, err := NewSenderWithTransport(vapidConfig(), ft, zap.NewNop())
	require.NoError(t, err)

	_, err = s.Send(context.Background(), validSubscription, push.Message{Title: "t", Body: "b"})

	var se *push.SendError
	require.ErrorAs(t, err, &se)
	require.Equal(t, 0, se.Status)
	require.True(t, se.Retryable())
}

func TestSendRejectsMalformedSubscriptionWithoutRetry(t *testing.T) {
	ft := &fakeTransport{status: 201}
	s, err := NewSenderWithTransport(vapidConfig(), ft, zap.NewNop())
	require.NoError(t, err)

	_, err = s.Send(context.Background(), "{broken", push.Message{Title: "t", Body: "b"})

	var se *push.SendError
	require.ErrorAs(t, err, &se)
	require.Equal(t, "invalid_subscription", se.Code())
	require.False(t, se.Retryable())
	require.Equal(t, 0, ft.calls, "transport must not be called for a malformed subscription")
}
