package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"pushdispatch/internal/model"
	"pushdispatch/internal/push"
	"pushdispatch/internal/push/webpush"
	"pushdispatch/pkg/logger"
	"pushdispatch/pkg/metrics"
	"pushdispatch/pkg/mq"
	"pushdispatch/pkg/retry"
)

var (
	ErrFCMNotConfigured     = errors.New("fcm service account is not configured")
	ErrWebPushNotConfigured = errors.New("web push vapid keys are not configured")
)

type NotificationStore interface {
	GetByID(ctx context.Context, id string) (*model.Notification, error)
	SetStatus(ctx context.Context, id string, status model.NotificationStatus, sentAt time.Time) error
}

type TokenStore interface {
	ListEnabled(ctx context.Context, platforms []model.Platform, deviceID, tokenID string) ([]model.DeviceToken, error)
	Disable(ctx context.Context, id string) error
}

type DeliveryLog interface {
	Insert(ctx context.Context, rec *model.DeliveryRecord) error
}

// CredentialSource mints FCM access tokens. One token is minted per run and
// shared across every FCM send in it.
type CredentialSource interface {
	AccessToken(ctx context.Context) (string, error)
}

type FCMSender interface {
	Send(ctx context.Context, accessToken, deviceToken string, msg push.Message) (string, error)
}

type WebPushSender interface {
	Send(ctx context.Context, subscription string, msg push.Message) (string, error)
}

type EventPublisher interface {
	Publish(routingKey string, payload any) error
}

type PlatformCounts struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}

type Totals struct {
	Sent    int `json:"sent"`
	Failed  int `json:"failed"`
	Targets int `json:"targets"`
}

type Result struct {
	NotificationID string
	Status         model.NotificationStatus
	DryRun         bool
	Totals         Totals
	PerPlatform    map[model.Platform]*PlatformCounts
}

// Orchestrator runs one dispatch: resolves the notification and its target
// tokens, fans out to the per-platform senders and finalizes status. creds,
// fcm, web and events may be nil when the matching integration is not
// configured.
type Orchestrator struct {
	notifications NotificationStore
	tokens        TokenStore
	deliveries    DeliveryLog
	creds         CredentialSource
	fcm           FCMSender
	web           WebPushSender
	events        EventPublisher
	retryCfg      retry.Config
	logger        *zap.Logger
}

func NewOrchestrator(
	notifications NotificationStore,
	tokens TokenStore,
	deliveries DeliveryLog,
	creds CredentialSource,
	fcm FCMSender,
	web WebPushSender,
	events EventPublisher,
	retryCfg retry.Config,
	log *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		notifications: notifications,
		tokens:        tokens,
		deliveries:    deliveries,
		creds:         creds,
		fcm:           fcm,
		web:           web,
		events:        events,
		retryCfg:      retryCfg,
		logger:        log,
	}
}

// Dispatch delivers the notification to every matching enabled token and
// reports aggregate plus per-platform counts. Per-token failures never abort
// the loop; only validation, lookup and credential acquisition errors do.
func (o *Orchestrator) Dispatch(ctx context.Context, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	log := logger.WithTrace(ctx, o.logger).With(zap.String("notification_id", req.NotificationID))

	n, err := o.notifications.GetByID(ctx, req.NotificationID)
	if err != nil {
		return nil, err
	}

	target := n.TargetPlatform
	if req.Platform != "" {
		target = req.Platform
	}
	platforms := model.ExpandTarget(target)

	tokens, err := o.tokens.ListEnabled(ctx, platforms, req.DeviceID, req.TokenID)
	if err != nil {
		return nil, fmt.Errorf("failed to load device tokens: %w", err)
	}

	res := &Result{
		NotificationID: n.ID,
		PerPlatform: map[model.Platform]*PlatformCounts{
			model.PlatformAndroid: {},
			model.PlatformIOS:     {},
			model.PlatformWeb:     {},
		},
	}
	res.Totals.Targets = len(tokens)

	if req.DryRun {
		res.DryRun = true
		metrics.RecordDispatchRun("dry_run")
		log.Info("Dry run complete", zap.Int("targets", res.Totals.Targets))
		return res, nil
	}

	start := time.Now()

	// Provider configuration is checked before the first send so a
	// misconfigured platform fails the run instead of silently skipping its
	// tokens. The FCM access token is minted once here and shared.
	var accessToken string
	if hasPlatform(tokens, model.PlatformAndroid) || hasPlatform(tokens, model.PlatformIOS) {
		if o.creds == nil || o.fcm == nil {
			return nil, ErrFCMNotConfigured
		}
		accessToken, err = o.creds.AccessToken(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to obtain fcm access token: %w", err)
		}
	}
	if hasPlatform(tokens, model.PlatformWeb) && o.web == nil {
		return nil, ErrWebPushNotConfigured
	}

	msg := push.Message{
		Title:    n.Title,
		Body:     n.Body,
		ImageURL: n.ImageURL,
		DeepLink: n.DeepLink,
	}

	// Sequential on purpose: bounds the burst rate against provider APIs and
	// keeps the counters and the delivery log in iteration order.
	for _, t := range tokens {
		sendStart := time.Now()

		var providerID string
		var sendErr error
		switch t.Platform {
		case model.PlatformAndroid, model.PlatformIOS:
			providerID, sendErr = o.sendFCM(ctx, &accessToken, t, msg)
		case model.PlatformWeb:
			providerID, sendErr = o.sendWebPush(ctx, t, msg)
		default:
			sendErr = fmt.Errorf("unsupported platform: %s", t.Platform)
		}

		counts := res.PerPlatform[t.Platform]
		if counts == nil {
			counts = &PlatformCounts{}
			res.PerPlatform[t.Platform] = counts
		}

		rec := &model.DeliveryRecord{
			NotificationID: n.ID,
			TokenID:        t.ID,
			Platform:       t.Platform,
			Stage:          stageFor(t.Platform),
		}
		if t.Platform == model.PlatformWeb {
			if sub, perr := webpush.ParseSubscription(t.Token); perr == nil {
				rec.Endpoint = sub.Endpoint
				rec.EndpointHost, rec.Browser = webpush.BrowserFromEndpoint(sub.Endpoint)
			}
		}

		if sendErr == nil {
			res.Totals.Sent++
			counts.Sent++
			rec.Status = model.DeliverySent
			rec.ProviderMsgID = providerID
			metrics.RecordPushSend(string(t.Platform), model.DeliverySent, time.Since(sendStart))
		} else {
			res.Totals.Failed++
			counts.Failed++
			rec.Status = model.DeliveryFailed
			rec.ErrorCode = errorCode(sendErr)
			rec.ErrorMessage = sendErr.Error()
			metrics.RecordPushSend(string(t.Platform), model.DeliveryFailed, time.Since(sendStart))
			log.Warn("Send failed",
				zap.String("token_id", t.ID),
				zap.String("platform", string(t.Platform)),
				zap.String("error_code", rec.ErrorCode),
				zap.Error(sendErr),
			)

			var se *push.SendError
			if errors.As(sendErr, &se) && se.Gone() {
				if derr := o.tokens.Disable(ctx, t.ID); derr != nil {
					log.Warn("Failed to disable dead token", zap.String("token_id", t.ID), zap.Error(derr))
				} else {
					metrics.RecordDeadToken(string(t.Platform))
				}
			}
		}

		// The audit row is written before moving to the next token; a
		// logging failure must not block delivery.
		if lerr := o.deliveries.Insert(ctx, rec); lerr != nil {
			log.Error("Failed to write delivery record",
				zap.String("token_id", t.ID),
				zap.Error(lerr),
			)
		}
	}

	// Partial success still counts as sent; only a run with failures and no
	// successes is failed. Totals carry the partial-failure detail.
	status := model.StatusSent
	if res.Totals.Sent == 0 && res.Totals.Failed > 0 {
		status = model.StatusFailed
	}
	res.Status = status

	sentAt := time.Now()
	if err := o.notifications.SetStatus(ctx, n.ID, status, sentAt); err != nil {
		return nil, fmt.Errorf("failed to finalize notification status: %w", err)
	}

	metrics.RecordDispatchRun(string(status))
	o.publishOutcome(res, time.Since(start), sentAt)

	log.Info("Dispatch complete",
		zap.String("status", string(status)),
		zap.Int("sent", res.Totals.Sent),
		zap.Int("failed", res.Totals.Failed),
		zap.Int("targets", res.Totals.Targets),
	)
	return res, nil
}

// sendFCM wraps one FCM delivery in the retry executor. A 401/403 seen on a
// previous attempt re-mints the shared access token before trying again;
// safe because the token loop is sequential.
func (o *Orchestrator) sendFCM(ctx context.Context, accessToken *string, t model.DeviceToken, msg push.Message) (string, error) {
	var providerID string
	var lastErr error
	err := retry.Do(ctx, o.retryCfg, func(ctx context.Context, attempt int) error {
		if attempt > 0 {
			var se *push.SendError
			if errors.As(lastErr, &se) && se.AuthFailure() {
				fresh, terr := o.creds.AccessToken(ctx)
				if terr != nil {
					o.logger.Warn("Failed to refresh fcm access token", zap.Error(terr))
				} else {
					*accessToken = fresh
				}
			}
		}
		var err error
		providerID, err = o.fcm.Send(ctx, *accessToken, t.Token, msg)
		lastErr = err
		return err
	})
	return providerID, err
}

func (o *Orchestrator) sendWebPush(ctx context.Context, t model.DeviceToken, msg push.Message) (string, error) {
	var providerID string
	err := retry.Do(ctx, o.retryCfg, func(ctx context.Context, _ int) error {
		var err error
		providerID, err = o.web.Send(ctx, t.Token, msg)
		return err
	})
	return providerID, err
}

// publishOutcome emits the dispatch event, best-effort.
func (o *Orchestrator) publishOutcome(res *Result, dur time.Duration, at time.Time) {
	if o.events == nil {
		return
	}

	per := make(map[string]mq.PlatformCounts, len(res.PerPlatform))
	for p, c := range res.PerPlatform {
		per[string(p)] = mq.PlatformCounts{Sent: c.Sent, Failed: c.Failed}
	}

	evt := mq.NotificationDispatchedEvent{
		EventID:        uuid.NewString(),
		NotificationID: res.NotificationID,
		Status:         string(res.Status),
		Sent:           res.Totals.Sent,
		Failed:         res.Totals.Failed,
		Targets:        res.Totals.Targets,
		PerPlatform:    per,
		DurationMS:     dur.Milliseconds(),
		DispatchedAt:   at,
	}
	if err := o.events.Publish(mq.RoutingKeyNotificationDispatched, evt); err != nil {
		o.logger.Warn("Failed to publish dispatch event",
			zap.String("notification_id", res.NotificationID),
			zap.Error(err),
		)
	}
}

func stageFor(p model.Platform) string {
	if p == model.PlatformWeb {
		return push.StageWebPushSend
	}
	return push.StageFCMSend
}

func errorCode(err error) string {
	var se *push.SendError
	if errors.As(err, &se) {
		return se.Code()
	}
	return "send_error"
}

func hasPlatform(tokens []model.DeviceToken, p model.Platform) bool {
	for _, t := range tokens {
		if t.Platform == p {
			return true
		}
	}
	return false
}
