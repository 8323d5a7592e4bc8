package webpush

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"pushdispatch/internal/config"
	"pushdispatch/internal/push"
)

// Subscription is the browser-side push registration, stored serialized in
// the device token row.
type Subscription struct {
	Endpoint string `json:"endpoint"`
	Keys     struct {
		P256dh string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
}

// ParseSubscription decodes the serialized subscription JSON.
func ParseSubscription(raw string) (*Subscription, error) {
	var sub Subscription
	if err := json.Unmarshal([]byte(raw), &sub); err != nil {
		return nil, fmt.Errorf("invalid subscription json: %w", err)
	}
	if sub.Endpoint == "" || sub.Keys.P256dh == "" || sub.Keys.Auth == "" {
		return nil, errors.New("subscription is missing endpoint or keys")
	}
	return &sub, nil
}

// NormalizeKey rewrites a possibly padded / non-URL-safe base64 VAPID key to
// the raw URL-safe form the push library decodes.
func NormalizeKey(k string) string {
	k = strings.TrimSpace(k)
	k = strings.ReplaceAll(k, "+", "-")
	k = strings.ReplaceAll(k, "/", "_")
	return strings.TrimRight(k, "=")
}

// BrowserFromEndpoint guesses the browser vendor from the push endpoint
// host. Diagnostic only; stored on the delivery record.
func BrowserFromEndpoint(endpoint string) (host, browser string) {
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return "", ""
	}
	host = u.Host
	h := strings.ToLower(host)
	switch {
	case strings.Contains(h, "googleapis.com"):
		browser = "chrome"
	case strings.Contains(h, "mozilla.com"):
		browser = "firefox"
	case strings.Contains(h, "windows.com"), strings.Contains(h, "notify.microsoft"):
		browser = "edge"
	case strings.Contains(h, "push.apple.com"):
		browser = "safari"
	default:
		browser = "other"
	}
	return host, browser
}

// Sender delivers one message to one browser subscription with VAPID
// authentication.
type Sender struct {
	opt       Options
	transport Transport
	logger    *zap.Logger
}

// NewSender validates the VAPID configuration, normalizes the keys and picks
// the library adapter. All three VAPID values are required.
func NewSender(cfg config.VAPIDConfig, logger *zap.Logger) (*Sender, error) {
	return newSender(cfg, newLibTransport(), logger)
}

// NewSenderWithTransport is NewSender with an injected transport, for tests.
func NewSenderWithTransport(cfg config.VAPIDConfig, t Transport, logger *zap.Logger) (*Sender, error) {
	return newSender(cfg, t, logger)
}

func newSender(cfg config.VAPIDConfig, t Transport, logger *zap.Logger) (*Sender, error) {
	if cfg.PublicKey == "" || cfg.PrivateKey == "" || cfg.Subject == "" {
		return nil, errors.New("vapid public key, private key and subject must all be set")
	}

	l := logger.With(zap.String("component", "webpush_sender"))
	l.Info("Web push transport selected", zap.String("adapter", fmt.Sprintf("%T", t)))

	return &Sender{
		opt: Options{
			Subscriber:      cfg.Subject,
			VAPIDPublicKey:  NormalizeKey(cfg.PublicKey),
			VAPIDPrivateKey: NormalizeKey(cfg.PrivateKey),
			TTL:             60,
		},
		transport: t,
		logger:    l,
	}, nil
}

type payload struct {
	Title    string `json:"title"`
	Body     string `json:"body"`
	ImageURL string `json:"image_url,omitempty"`
	DeepLink string `json:"deep_link,omitempty"`
}

// Send performs exactly one Web Push attempt. The returned identifier is the
// push service's status code; browser push services issue no message ids.
func (s *Sender) Send(ctx context.Context, rawSubscription string, msg push.Message) (string, error) {
	sub, err := ParseSubscription(rawSubscription)
	if err != nil {
		return "", &push.SendError{
			Stage:  push.StageWebPushSend,
			Reason: "invalid_subscription",
			Body:   err.Error(),
		}
	}

	body, err := json.Marshal(payload{
		Title:    msg.Title,
		Body:     msg.Body,
		ImageURL: msg.ImageURL,
		DeepLink: msg.DeepLink,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal payload: %w", err)
	}

	status, err := s.transport.Send(ctx, sub, body, s.opt)
	if err != nil {
		// Transport error (DNS, timeout): no status to classify.
		return "", &push.SendError{Stage: push.StageWebPushSend, Body: err.Error()}
	}
	if status < 200 || status >= 300 {
		return "", &push.SendError{Stage: push.StageWebPushSend, Status: status}
	}
	return strconv.Itoa(status), nil
}
