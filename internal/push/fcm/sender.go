package fcm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"pushdispatch/internal/push"
)

const defaultBaseURL = "https://fcm.googleapis.com"

// Sender delivers one message to one android/ios registration token through
// the FCM HTTP v1 API. The access token is supplied per call because it is
// run-scoped state owned by the dispatcher.
type Sender struct {
	projectID string
	baseURL   string
	client    *http.Client
	logger    *zap.Logger
}

func NewSender(projectID string, logger *zap.Logger) *Sender {
	return &Sender{
		projectID: projectID,
		baseURL:   defaultBaseURL,
		client:    &http.Client{Timeout: 10 * time.Second},
		logger:    logger.With(zap.String("component", "fcm_sender")),
	}
}

// WithBaseURL points the sender at a different API host. Tests use it to
// target an httptest server.
func (s *Sender) WithBaseURL(baseURL string) *Sender {
	s.baseURL = baseURL
	return s
}

type v1Notification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Image string `json:"image,omitempty"`
}

type v1Message struct {
	Token        string            `json:"token"`
	Notification v1Notification    `json:"notification"`
	Data         map[string]string `json:"data,omitempty"`
}

// Send performs exactly one v1 messages:send attempt and returns the
// provider message name.
func (s *Sender) Send(ctx context.Context, accessToken, deviceToken string, msg push.Message) (string, error) {
	data := map[string]string{}
	if msg.DeepLink != "" {
		data["deep_link"] = msg.DeepLink
	}
	if msg.ImageURL != "" {
		data["image_url"] = msg.ImageURL
	}

	payload, err := json.Marshal(map[string]v1Message{
		"message": {
			Token: deviceToken,
			Notification: v1Notification{
				Title: msg.Title,
				Body:  msg.Body,
				Image: msg.ImageURL,
			},
			Data: data,
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal fcm message: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1/projects/%s/messages:send", s.baseURL, s.projectID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build fcm request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", &push.SendError{Stage: push.StageFCMSend, Body: err.Error()}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &push.SendError{Stage: push.StageFCMSend, Status: resp.StatusCode, Body: string(body)}
	}

	var out struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("failed to decode fcm response: %w", err)
	}
	return out.Name, nil
}
