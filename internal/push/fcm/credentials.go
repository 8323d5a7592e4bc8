package fcm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const (
	defaultTokenURI = "https://oauth2.googleapis.com/token"
	messagingScope  = "https://www.googleapis.com/auth/firebase.messaging"
	jwtBearerGrant  = "urn:ietf:params:oauth:grant-type:jwt-bearer"
)

// ServiceAccount is the subset of a Google service-account JSON blob needed
// for the messaging token exchange.
type ServiceAccount struct {
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
	TokenURI    string `json:"token_uri"`
	ProjectID   string `json:"project_id"`
}

// ParseServiceAccount parses and validates the raw JSON blob.
func ParseServiceAccount(raw string) (*ServiceAccount, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, errors.New("fcm service account is not configured")
	}

	var sa ServiceAccount
	if err := json.Unmarshal([]byte(raw), &sa); err != nil {
		return nil, fmt.Errorf("invalid service account json: %w", err)
	}
	if sa.ClientEmail == "" || sa.PrivateKey == "" {
		return nil, errors.New("service account json is missing client_email or private_key")
	}
	if sa.TokenURI == "" {
		sa.TokenURI = defaultTokenURI
	}
	return &sa, nil
}

// TokenSource exchanges the service-account key for short-lived access
// tokens. Tokens are not cached here: the dispatcher holds one per run and
// asks for a fresh one only on a 401/403 retry.
type TokenSource struct {
	sa     *ServiceAccount
	client *http.Client
	logger *zap.Logger
	now    func() time.Time
}

func NewTokenSource(sa *ServiceAccount, logger *zap.Logger) *TokenSource {
	return &TokenSource{
		sa:     sa,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger.With(zap.String("component", "fcm_token_source")),
		now:    time.Now,
	}
}

func (ts *TokenSource) ProjectID() string {
	return ts.sa.ProjectID
}

// AccessToken signs an RS256 JWT assertion and posts it as a JWT-bearer
// grant to the token endpoint.
func (ts *TokenSource) AccessToken(ctx context.Context) (string, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(ts.sa.PrivateKey))
	if err != nil {
		return "", fmt.Errorf("failed to parse service account private key: %w", err)
	}

	now := ts.now()
	claims := jwt.MapClaims{
		"iss":   ts.sa.ClientEmail,
		"scope": messagingScope,
		"aud":   ts.sa.TokenURI,
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
	}
	assertion, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	if err != nil {
		return "", fmt.Errorf("failed to sign token assertion: %w", err)
	}

	form := url.Values{}
	form.Set("grant_type", jwtBearerGrant)
	form.Set("assertion", assertion)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ts.sa.TokenURI, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := ts.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("token endpoint request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		ts.logger.Error("Token exchange rejected",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", body),
		)
		return "", fmt.Errorf("failed to obtain access token: status %d", resp.StatusCode)
	}

	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if out.AccessToken == "" {
		return "", errors.New("token response contained no access_token")
	}
	return out.AccessToken, nil
}
