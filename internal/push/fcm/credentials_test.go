package fcm

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testPrivateKeyPEM(t *testing.T) (*rsa.PrivateKey, string) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	block := &pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	}
	return key, string(pem.EncodeToMemory(block))
}

func serviceAccountJSON(t *testing.T, email, keyPEM, tokenURI string) string {
	t.Helper()
	raw, err := json.Marshal(map[string]string{
		"client_email": email,
		"private_key":  keyPEM,
		"token_uri":    tokenURI,
		"project_id":   "proj-1",
	})
	require.NoError(t, err)
	return string(raw)
}

func TestParseServiceAccount(t *testing.T) {
	_, keyPEM := testPrivateKeyPEM(t)

	t.Run("valid", func(t *testing.T) {
		sa, err := ParseServiceAccount(serviceAccountJSON(t, "svc@proj.iam.gserviceaccount.com", keyPEM, ""))
		require.NoError(t, err)
		require.Equal(t, "svc@proj.iam.gserviceaccount.com", sa.ClientEmail)
		require.Equal(t, "proj-1", sa.ProjectID)
		require.Equal(t, defaultTokenURI, sa.TokenURI, "empty token_uri falls back to the Google endpoint")
	})

	t.Run("empty blob", func(t *testing.T) {
		_, err := ParseServiceAccount("")
		require.Error(t, err)
	})

	t.Run("not json", func(t *testing.T) {
		_, err := ParseServiceAccount("{broken")
		require.Error(t, err)
	})

	t.Run("missing private key", func(t *testing.T) {
		raw, _ := json.Marshal(map[string]string{"client_email": "svc@proj"})
		_, err := ParseServiceAccount(string(raw))
		require.ErrorContains(t, err, "client_email or private_key")
	})
}

func TestAccessTokenExchangesSignedAssertion(t *testing.T) {
	key, keyPEM := testPrivateKeyPEM(t)

	var gotGrant, gotAssertion string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotGrant = r.Form.Get("grant_type")
		gotAssertion = r.Form.Get("assertion")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at-123","token_type":"Bearer","expires_in":3600}`))
	}))
	defer srv.Close()

	sa, err := ParseServiceAccount(serviceAccountJSON(t, "svc@proj.iam.gserviceaccount.com", keyPEM, srv.URL))
	require.NoError(t, err)

	ts := NewTokenSource(sa, zap.NewNop())
	token, err := ts.AccessToken(context.Background())
	require.NoError(t, err)
	require.Equal(t, "at-123", token)
	require.Equal(t, jwtBearerGrant, gotGrant)

	parsed, err := jwt.Parse(gotAssertion, func(tok *jwt.Token) (interface{}, error) {
		return &key.PublicKey, nil
	}, jwt.WithValidMethods([]string{"RS256"}))
	require.NoError(t, err)

	claims := parsed.Claims.(jwt.MapClaims)
	require.Equal(t, "svc@proj.iam.gserviceaccount.com", claims["iss"])
	require.Equal(t, messagingScope, claims["scope"])
	require.Equal(t, srv.URL, claims["aud"])
}

func TestAccessTokenPropagatesExchangeFailure(t *testing.T) {
	_, keyPEM := testPrivateKeyPEM(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	sa, err := ParseServiceAccount(serviceAccountJSON(t, "svc@proj", keyPEM, srv.URL))
	require.NoError(t, err)

	_, err = NewTokenSource(sa, zap.NewNop()).AccessToken(context.Background())
	require.ErrorContains(t, err, "failed to obtain access token")
}

func TestAccessTokenRejectsGarbageKey(t *testing.T) {
	sa, err := ParseServiceAccount(serviceAccountJSON(t, "svc@proj", "not a pem", ""))
	require.NoError(t, err)

	_, err = NewTokenSource(sa, zap.NewNop()).AccessToken(context.Background())
	require.ErrorContains(t, err, "private key")
}
