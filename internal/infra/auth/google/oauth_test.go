package google

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"authgate/config"
	"authgate/internal/domain/entity"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"google.golang.org/api/idtoken"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testGoogleConfig() *config.GoogleOAuthConfig {
	return &config.GoogleOAuthConfig{
		ClientID:     "test_client_id",
		ClientSecret: "test_client_secret",
		RedirectURL:  "http://localhost:8080/auth/oauth/callback",
	}
}

// newTokenServer answers the token endpoint with the given JSON body.
func newTokenServer(t *testing.T, body map[string]any) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			w.WriteHeader(http.StatusBadRequest)

			return
		}
		if r.PostForm.Get("code") != "good-code" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))

			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)

	return srv
}

func endpointFor(srv *httptest.Server) oauth2.Endpoint {
	return oauth2.Endpoint{
		AuthURL:   srv.URL + "/auth",
		TokenURL:  srv.URL + "/token",
		AuthStyle: oauth2.AuthStyleInParams,
	}
}

func acceptingValidator(claims map[string]any) validateFunc {
	return func(_ context.Context, idToken, audience string) (*idtoken.Payload, error) {
		if idToken != "raw-id-token" || audience != "test_client_id" {
			return nil, errors.New("unexpected token or audience")
		}

		return &idtoken.Payload{Subject: "google-sub-1", Audience: audience, Claims: claims}, nil
	}
}

func TestOAuthService_AuthCodeURL(t *testing.T) {
	svc := newOAuthService(testGoogleConfig(), oauth2.Endpoint{AuthURL: "https://accounts.example.com/auth"}, nil, discardLogger())

	raw := svc.AuthCodeURL("signed-state")
	parsed, err := url.Parse(raw)
	require.NoError(t, err)

	q := parsed.Query()
	assert.Equal(t, "test_client_id", q.Get("client_id"))
	assert.Equal(t, "signed-state", q.Get("state"))
	assert.Equal(t, "http://localhost:8080/auth/oauth/callback", q.Get("redirect_uri"))
	assert.Equal(t, "offline", q.Get("access_type"))
	assert.Equal(t, "openid email profile", q.Get("scope"))
	assert.Equal(t, entity.ProviderTypeGoogle, svc.GetProvider())
}

func TestOAuthService_Exchange(t *testing.T) {
	srv := newTokenServer(t, map[string]any{
		"access_token":  "access-1",
		"refresh_token": "refresh-1",
		"token_type":    "Bearer",
		"expires_in":    3600,
		"id_token":      "raw-id-token",
	})
	svc := newOAuthService(testGoogleConfig(), endpointFor(srv), acceptingValidator(map[string]any{
		"email":          "Bob@Example.com",
		"email_verified": true,
		"name":           "Bob",
	}), discardLogger())

	profile, err := svc.Exchange(context.Background(), "good-code")
	require.NoError(t, err)

	assert.Equal(t, entity.ProviderTypeGoogle, profile.Provider)
	assert.Equal(t, "google-sub-1", profile.ProviderUserID)
	assert.Equal(t, "Bob@Example.com", profile.Email)
	assert.True(t, profile.EmailVerified)
	assert.Equal(t, "Bob", profile.Name)
	assert.Equal(t, "access-1", profile.AccessToken)
	assert.Equal(t, "refresh-1", profile.RefreshToken)
	assert.False(t, profile.TokenExpiry.IsZero())
}

func TestOAuthService_Exchange_Failures(t *testing.T) {
	withIDToken := map[string]any{
		"access_token": "access-1",
		"token_type":   "Bearer",
		"id_token":     "raw-id-token",
	}

	t.Run("empty code", func(t *testing.T) {
		svc := newOAuthService(testGoogleConfig(), oauth2.Endpoint{}, nil, discardLogger())

		_, err := svc.Exchange(context.Background(), "")
		assert.Error(t, err)
	})

	t.Run("provider rejects code", func(t *testing.T) {
		srv := newTokenServer(t, withIDToken)
		svc := newOAuthService(testGoogleConfig(), endpointFor(srv), acceptingValidator(nil), discardLogger())

		_, err := svc.Exchange(context.Background(), "bad-code")
		assert.Error(t, err)
	})

	t.Run("missing id token", func(t *testing.T) {
		srv := newTokenServer(t, map[string]any{"access_token": "access-1", "token_type": "Bearer"})
		svc := newOAuthService(testGoogleConfig(), endpointFor(srv), acceptingValidator(nil), discardLogger())

		_, err := svc.Exchange(context.Background(), "good-code")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "id_token")
	})

	t.Run("id token fails validation", func(t *testing.T) {
		srv := newTokenServer(t, withIDToken)
		rejecting := func(context.Context, string, string) (*idtoken.Payload, error) {
			return nil, errors.New("bad signature")
		}
		svc := newOAuthService(testGoogleConfig(), endpointFor(srv), rejecting, discardLogger())

		_, err := svc.Exchange(context.Background(), "good-code")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "id token validation failed")
	})
}

func TestBoolClaim(t *testing.T) {
	claims := map[string]any{"a": true, "b": "true", "c": "false", "d": 1}

	assert.True(t, boolClaim(claims, "a"))
	assert.True(t, boolClaim(claims, "b"))
	assert.False(t, boolClaim(claims, "c"))
	assert.False(t, boolClaim(claims, "d"))
	assert.False(t, boolClaim(claims, "missing"))
}

func TestNewOAuthService_DisabledWithoutClientID(t *testing.T) {
	provider := NewOAuthService(OAuthParams{Config: &config.Config{}, Logger: discardLogger()})

	assert.Empty(t, provider.AuthCodeURL("state"))
	_, err := provider.Exchange(context.Background(), "code")
	assert.Error(t, err)
}
