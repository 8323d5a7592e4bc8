package webpush

import (
	"context"
	"net/http"
	"time"

	webpushgo "github.com/SherClockHolmes/webpush-go"
)

// Options is the VAPID identity handed to the transport on every send.
type Options struct {
	Subscriber      string
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	TTL             int
}

// Transport performs one Web Push protocol request and reports the push
// service's HTTP status. Keeping the library behind this seam pins the
// calling convention in one place and lets tests inject a fake.
type Transport interface {
	Send(ctx context.Context, sub *Subscription, payload []byte, opt Options) (int, error)
}

// libTransport adapts SherClockHolmes/webpush-go, the shape probed at
// construction time.
type libTransport struct {
	client *http.Client
}

func newLibTransport() *libTransport {
	return &libTransport{client: &http.Client{Timeout: 10 * time.Second}}
}

func (t *libTransport) Send(ctx context.Context, sub *Subscription, payload []byte, opt Options) (int, error) {
	resp, err := webpushgo.SendNotificationWithContext(ctx, payload, &webpushgo.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpushgo.Keys{
			P256dh: sub.Keys.P256dh,
			Auth:   sub.Keys.Auth,
		},
	}, &webpushgo.Options{
		Subscriber:      opt.Subscriber,
		VAPIDPublicKey:  opt.VAPIDPublicKey,
		VAPIDPrivateKey: opt.VAPIDPrivateKey,
		TTL:             opt.TTL,
		HTTPClient:      t.client,
	})
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	return resp.StatusCode, nil
}
