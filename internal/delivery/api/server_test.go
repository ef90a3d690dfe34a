package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"authgate/config"
	"authgate/internal/delivery/api/flash"
	apimiddleware "authgate/internal/delivery/api/middleware"
	"authgate/internal/delivery/api/router"
	"authgate/internal/delivery/api/router/handler"
	"authgate/internal/domain/entity"
	"authgate/internal/domain/service"
	"authgate/internal/infra/auth"
	"authgate/internal/infra/metrics"
	"authgate/internal/infra/persistence/memory"
	"authgate/internal/infra/session"
	"authgate/internal/usecase/impl"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"
	"golang.org/x/crypto/bcrypt"
)

type stubProvider struct {
	profile *service.OAuthProfile
}

func (p *stubProvider) AuthCodeURL(state string) string {
	return "https://accounts.example.com/o/oauth2/auth?" + url.Values{"state": {state}}.Encode()
}

func (p *stubProvider) Exchange(_ context.Context, code string) (*service.OAuthProfile, error) {
	if code != "good-code" {
		return nil, assert.AnError
	}

	return p.profile, nil
}

func (p *stubProvider) GetProvider() entity.ProviderType {
	return entity.ProviderTypeGoogle
}

func newTestConfig() *config.Config {
	cfg := &config.Config{}
	cfg.HTTP.MaxRequestBodySize = "100KB"
	cfg.SecretKey.State = "server-test-secret"
	cfg.Session = &config.SessionConfig{
		Store:      config.SessionStoreMemory,
		CookieName: "authgate_session",
		Lifetime:   time.Hour,
	}
	cfg.RateLimit = &config.RateLimitConfig{
		RatePerMinute:   1,
		Burst:           5,
		CleanupInterval: time.Minute,
	}

	return cfg
}

// newTestServer wires the full HTTP stack over the memory store.
func newTestServer(t *testing.T) *echo.Echo {
	t.Helper()

	lc := fxtest.NewLifecycle(t)
	cfg := newTestConfig()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	sessions, err := session.NewManager(session.Params{Lifecycle: lc, Config: cfg, Logger: logger})
	require.NoError(t, err)
	scope := session.NewScope(sessions)

	hasher, err := auth.NewBcryptHasherWithCost(bcrypt.MinCost)
	require.NoError(t, err)
	states, err := auth.NewStateTokenService(auth.StateTokenParams{Config: cfg})
	require.NoError(t, err)

	registry := metrics.NewRegistry()
	collector := metrics.NewCollector(registry)
	userRepo := memory.NewUserRepository()
	provider := &stubProvider{profile: &service.OAuthProfile{
		Provider:       entity.ProviderTypeGoogle,
		ProviderUserID: "g-bob",
		Email:          "bob@example.com",
		EmailVerified:  true,
	}}

	local := impl.NewLocalStrategy(impl.LocalStrategyParams{UserRepo: userRepo, Hasher: hasher, Logger: logger})
	oauth := impl.NewOAuthStrategy(impl.OAuthStrategyParams{UserRepo: userRepo, Logger: logger})
	codec := impl.NewSessionCodec(impl.SessionCodecParams{Scope: scope, UserRepo: userRepo, Logger: logger})
	gate := impl.NewAuthGate(impl.AuthGateParams{
		Local:     local,
		OAuth:     oauth,
		Codec:     codec,
		UserRepo:  userRepo,
		Hasher:    hasher,
		Publisher: nil,
		Metrics:   metrics.NewAuthMetrics(collector),
		Logger:    logger,
	})
	flow := impl.NewOAuthFlow(impl.OAuthFlowParams{Provider: provider, States: states, Scope: scope, Logger: logger})
	profiles := impl.NewProfileService(impl.ProfileServiceParams{UserRepo: userRepo, Hasher: hasher, Logger: logger})
	flashes := flash.NewStore(sessions)

	srv, err := NewServer(ServerParams{
		Lc:        lc,
		Cfg:       cfg,
		Logger:    logger,
		Sessions:  sessions,
		Collector: collector,
		RouterParams: router.RouterParams{
			AuthHandler:    handler.NewAuthHandler(handler.AuthHandlerParams{Gate: gate, Flow: flow, Flashes: flashes, Logger: logger}),
			HomeHandler:    handler.NewHomeHandler(handler.HomeHandlerParams{Gate: gate, Flashes: flashes, Logger: logger}),
			ProfileHandler: handler.NewProfileHandler(handler.ProfileHandlerParams{Profiles: profiles, Flashes: flashes, Logger: logger}),
			RequireUser:    apimiddleware.NewRequireUserMiddleware(gate),
			RateLimiter:    apimiddleware.NewRateLimiter(apimiddleware.RateLimiterParams{Lc: lc, Config: cfg, Logger: logger}),
			Registry:       registry,
		},
	})
	require.NoError(t, err)

	lc.RequireStart()
	t.Cleanup(lc.RequireStop)

	return srv.(*apiServer).server
}

// browser keeps the session cookie between requests the way a browser does.
type browser struct {
	t       *testing.T
	e       *echo.Echo
	cookies map[string]*http.Cookie
	ip      string
}

func newBrowser(t *testing.T, e *echo.Echo) *browser {
	return &browser{t: t, e: e, cookies: make(map[string]*http.Cookie), ip: "192.0.2.10"}
}

func (b *browser) do(req *http.Request) *httptest.ResponseRecorder {
	b.t.Helper()

	req.RemoteAddr = b.ip + ":5555"
	for _, cookie := range b.cookies {
		req.AddCookie(cookie)
	}

	rec := httptest.NewRecorder()
	b.e.ServeHTTP(rec, req)

	for _, cookie := range rec.Result().Cookies() {
		if cookie.MaxAge < 0 || cookie.Value == "" {
			delete(b.cookies, cookie.Name)

			continue
		}
		b.cookies[cookie.Name] = cookie
	}

	return rec
}

func (b *browser) get(target string) *httptest.ResponseRecorder {
	return b.do(httptest.NewRequest(http.MethodGet, target, nil))
}

// postForm submits a form with the CSRF token the way a page served by the app would.
func (b *browser) postForm(target string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	req.Header.Set(apimiddleware.CSRFHeaderName, b.csrfToken())

	return b.do(req)
}

// postCrossSite submits a form without the CSRF token, as another site would.
func (b *browser) postCrossSite(target string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)

	return b.do(req)
}

func (b *browser) csrfToken() string {
	b.t.Helper()

	if cookie, ok := b.cookies[apimiddleware.CSRFCookieName]; ok {
		return cookie.Value
	}

	rec := b.get("/csrf-token")
	require.Equal(b.t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	require.NoError(b.t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotEmpty(b.t, body.Data.Token)
	require.Equal(b.t, body.Data.Token, b.cookies[apimiddleware.CSRFCookieName].Value)

	return body.Data.Token
}

func (b *browser) home() handler.HomeView {
	b.t.Helper()

	rec := b.get("/")
	require.Equal(b.t, http.StatusOK, rec.Code, rec.Body.String())

	var view handler.HomeView
	require.NoError(b.t, json.Unmarshal(rec.Body.Bytes(), &view))

	return view
}

func credentials(email, password string) url.Values {
	return url.Values{"email": {email}, "password": {password}}
}

func TestServer_RegisterLoginLogout(t *testing.T) {
	e := newTestServer(t)
	b := newBrowser(t, e)

	rec := b.postForm("/register", credentials("alice@example.com", "hunter2"))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get(echo.HeaderLocation))

	view := b.home()
	assert.Nil(t, view.User)
	assert.Equal(t, []string{"account successfully created"}, view.Info)

	rec = b.postForm("/login", credentials("alice@example.com", "hunter2"))
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	view = b.home()
	require.NotNil(t, view.User)
	assert.Equal(t, "alice@example.com", view.User.Email)
	assert.True(t, view.User.HasPassword)
	assert.Equal(t, []string{"logged in"}, view.Info)
	assert.Empty(t, view.Errors)

	// Flashes are shown once.
	assert.Empty(t, b.home().Info)

	rec = b.get("/logout")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Nil(t, b.home().User)
}

func TestServer_LoginFailureFlashes(t *testing.T) {
	e := newTestServer(t)
	b := newBrowser(t, e)
	b.postForm("/register", credentials("alice@example.com", "hunter2"))
	b.home()

	rec := b.postForm("/login", credentials("alice@example.com", "wrong"))
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	view := b.home()
	assert.Nil(t, view.User)
	assert.Equal(t, []string{"invalid email or password"}, view.Errors)
}

func TestServer_MeRequiresSession(t *testing.T) {
	e := newTestServer(t)
	b := newBrowser(t, e)

	rec := b.get("/api/me")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "UNAUTHENTICATED")

	b.postForm("/register", credentials("alice@example.com", "hunter2"))
	b.postForm("/login", credentials("alice@example.com", "hunter2"))

	rec = b.get("/api/me")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `"email":"alice@example.com"`)
	assert.NotContains(t, body, "hash")
	assert.NotContains(t, body, "$2a$")
}

func TestServer_OAuthRoundTrip(t *testing.T) {
	e := newTestServer(t)
	b := newBrowser(t, e)

	rec := b.get("/auth/oauth/start")
	require.Equal(t, http.StatusFound, rec.Code)
	consent, err := url.Parse(rec.Header().Get(echo.HeaderLocation))
	require.NoError(t, err)
	assert.Equal(t, "accounts.example.com", consent.Host)
	state := consent.Query().Get("state")
	require.NotEmpty(t, state)

	rec = b.get("/auth/oauth/callback?" + url.Values{"code": {"good-code"}, "state": {state}}.Encode())
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", rec.Header().Get(echo.HeaderLocation))

	view := b.home()
	require.NotNil(t, view.User)
	assert.Equal(t, "bob@example.com", view.User.Email)
	assert.Equal(t, "google", view.User.Provider)
	assert.False(t, view.User.HasPassword)

	// Replaying the callback fails and keeps bob signed in.
	b.get("/auth/oauth/callback?" + url.Values{"code": {"good-code"}, "state": {state}}.Encode())
	view = b.home()
	assert.Equal(t, []string{"sign-in with the identity provider failed"}, view.Errors)
	require.NotNil(t, view.User)
}

func TestServer_OAuthCallbackFromAnotherBrowser(t *testing.T) {
	e := newTestServer(t)
	victim := newBrowser(t, e)
	attacker := newBrowser(t, e)

	rec := attacker.get("/auth/oauth/start")
	consent, err := url.Parse(rec.Header().Get(echo.HeaderLocation))
	require.NoError(t, err)

	victim.get("/auth/oauth/callback?" + url.Values{"code": {"good-code"}, "state": {consent.Query().Get("state")}}.Encode())

	view := victim.home()
	assert.Nil(t, view.User)
	assert.Equal(t, []string{"sign-in with the identity provider failed"}, view.Errors)
}

func TestServer_UpdateProfile(t *testing.T) {
	e := newTestServer(t)
	b := newBrowser(t, e)

	rec := b.postForm("/profile", url.Values{"email": {"new@example.com"}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	b.postForm("/register", credentials("alice@example.com", "hunter2"))
	b.postForm("/login", credentials("alice@example.com", "hunter2"))
	b.home()

	rec = b.postForm("/profile", url.Values{"email": {"Alice.New@example.com"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	view := b.home()
	require.NotNil(t, view.User)
	assert.Equal(t, "alice.new@example.com", view.User.Email)
	assert.Equal(t, []string{"updated your profile"}, view.Info)

	b.postForm("/profile", url.Values{})
	assert.Equal(t, []string{"enter a new email or password to update your profile"}, b.home().Errors)
}

func TestServer_LoginIsRateLimited(t *testing.T) {
	e := newTestServer(t)
	b := newBrowser(t, e)

	for range 5 {
		rec := b.postForm("/login", credentials("alice@example.com", "wrong"))
		require.Equal(t, http.StatusSeeOther, rec.Code)
	}

	rec := b.postForm("/login", credentials("alice@example.com", "wrong"))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "RATE_LIMIT_EXCEEDED")

	// Another client is not affected.
	other := newBrowser(t, e)
	other.ip = "192.0.2.99"
	assert.Equal(t, http.StatusSeeOther, other.postForm("/login", credentials("alice@example.com", "wrong")).Code)
}

func TestServer_HealthAndMetrics(t *testing.T) {
	e := newTestServer(t)
	b := newBrowser(t, e)

	assert.Equal(t, http.StatusOK, b.get("/health").Code)

	b.postForm("/login", credentials("nobody@example.com", "pw"))

	rec := b.get("/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `authgate_auth_attempts_total{outcome="invalid_credentials",strategy="local"} 1`)
	assert.Contains(t, body, "authgate_http_request_duration_seconds")
}

func TestServer_RejectsPostsWithoutCSRFToken(t *testing.T) {
	e := newTestServer(t)
	b := newBrowser(t, e)

	require.Equal(t, http.StatusSeeOther, b.postForm("/register", credentials("alice@example.com", "hunter2")).Code)
	require.Equal(t, http.StatusSeeOther, b.postForm("/login", credentials("alice@example.com", "hunter2")).Code)
	require.NotNil(t, b.home().User)

	rec := b.postCrossSite("/profile", url.Values{"email": {"mallory@example.com"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	forged := url.Values{"email": {"mallory@example.com"}, apimiddleware.CSRFFormField: {"forged"}}
	rec = b.postCrossSite("/profile", forged)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/profile", strings.NewReader(url.Values{"email": {"mallory@example.com"}}.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	req.Header.Set(echo.HeaderSecFetchSite, "cross-site")
	assert.Equal(t, http.StatusForbidden, b.do(req).Code)

	view := b.home()
	require.NotNil(t, view.User)
	assert.Equal(t, "alice@example.com", view.User.Email)

	other := newBrowser(t, e)
	assert.Equal(t, http.StatusBadRequest, other.postCrossSite("/login", credentials("alice@example.com", "hunter2")).Code)
	assert.Nil(t, other.home().User)
}
