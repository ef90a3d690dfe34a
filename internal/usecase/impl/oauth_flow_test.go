package impl

import (
	"context"
	"net/url"
	"testing"

	"authgate/config"
	"authgate/internal/domain/entity"
	domainerrors "authgate/internal/domain/errors"
	"authgate/internal/domain/service"
	"authgate/internal/infra/auth"
	"authgate/internal/usecase"

	"github.com/alexedwards/scs/v2"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOAuthProvider struct {
	baseURL   string
	profile   *service.OAuthProfile
	err       error
	exchanged []string
}

func (p *fakeOAuthProvider) AuthCodeURL(state string) string {
	if p.baseURL == "" {
		return ""
	}

	return p.baseURL + "?" + url.Values{"state": {state}}.Encode()
}

func (p *fakeOAuthProvider) Exchange(_ context.Context, code string) (*service.OAuthProfile, error) {
	p.exchanged = append(p.exchanged, code)

	return p.profile, p.err
}

func (p *fakeOAuthProvider) GetProvider() entity.ProviderType {
	return entity.ProviderTypeGoogle
}

type flowFixture struct {
	provider *fakeOAuthProvider
	sessions *scs.SessionManager
	flow     usecase.OAuthFlow
}

func newFlowFixture(t *testing.T) flowFixture {
	t.Helper()

	cfg := &config.Config{}
	cfg.SecretKey.State = "flow-test-secret"
	states, err := auth.NewStateTokenService(auth.StateTokenParams{Config: cfg})
	require.NoError(t, err)

	provider := &fakeOAuthProvider{
		baseURL: "https://accounts.example.com/auth",
		profile: googleProfile("bob@example.com", "g-bob"),
	}
	sessions := newTestSessionManager()

	return flowFixture{
		provider: provider,
		sessions: sessions,
		flow: NewOAuthFlow(OAuthFlowParams{
			Provider: provider,
			States:   states,
			Scope:    sessions,
			Logger:   discardLogger(),
		}),
	}
}

// start begins a flow and returns the next request's context with the state the provider echoes back.
func (f flowFixture) start(t *testing.T) (context.Context, string) {
	t.Helper()

	ctx := newSessionContext(t, f.sessions)
	authURL, err := f.flow.Start(ctx)
	require.NoError(t, err)

	parsed, err := url.Parse(authURL)
	require.NoError(t, err)
	state := parsed.Query().Get("state")
	require.NotEmpty(t, state)

	return nextRequest(t, f.sessions, ctx), state
}

func TestOAuthFlow_StartThenComplete(t *testing.T) {
	f := newFlowFixture(t)
	ctx, state := f.start(t)

	profile, err := f.flow.Complete(ctx, "auth-code", state)

	require.NoError(t, err)
	assert.Equal(t, "g-bob", profile.ProviderUserID)
	assert.Equal(t, []string{"auth-code"}, f.provider.exchanged)
}

func TestOAuthFlow_StateCannotBeReplayed(t *testing.T) {
	f := newFlowFixture(t)
	ctx, state := f.start(t)

	_, err := f.flow.Complete(ctx, "auth-code", state)
	require.NoError(t, err)

	_, err = f.flow.Complete(nextRequest(t, f.sessions, ctx), "auth-code", state)
	assert.ErrorIs(t, err, domainerrors.ErrProviderError)
	assert.Len(t, f.provider.exchanged, 1)
}

func TestOAuthFlow_StateFromAnotherBrowser(t *testing.T) {
	f := newFlowFixture(t)
	_, state := f.start(t)

	// A different browser started its own flow; the first browser's state must not complete it.
	otherCtx, _ := f.start(t)
	_, err := f.flow.Complete(otherCtx, "auth-code", state)

	assert.ErrorIs(t, err, domainerrors.ErrProviderError)
	assert.Empty(t, f.provider.exchanged)
}

func TestOAuthFlow_CompleteRejections(t *testing.T) {
	tests := []struct {
		name  string
		code  string
		state func(valid string) string
	}{
		{name: "missing code", code: "", state: func(valid string) string { return valid }},
		{name: "missing state", code: "auth-code", state: func(string) string { return "" }},
		{name: "tampered state", code: "auth-code", state: func(valid string) string { return valid + "x" }},
		{name: "garbage state", code: "auth-code", state: func(string) string { return "not-a-jwt" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFlowFixture(t)
			ctx, state := f.start(t)

			profile, err := f.flow.Complete(ctx, tt.code, tt.state(state))

			assert.Nil(t, profile)
			assert.ErrorIs(t, err, domainerrors.ErrProviderError)
			assert.Empty(t, f.provider.exchanged)
		})
	}
}

func TestOAuthFlow_CompleteWithoutStart(t *testing.T) {
	f := newFlowFixture(t)
	_, state := f.start(t)

	_, err := f.flow.Complete(newSessionContext(t, f.sessions), "auth-code", state)

	assert.ErrorIs(t, err, domainerrors.ErrProviderError)
}

func TestOAuthFlow_ExchangeFailure(t *testing.T) {
	f := newFlowFixture(t)
	f.provider.err = errors.New("invalid_grant")
	ctx, state := f.start(t)

	_, err := f.flow.Complete(ctx, "auth-code", state)

	assert.ErrorIs(t, err, domainerrors.ErrProviderError)
	assert.NotContains(t, err.Error(), "invalid_grant")
}

func TestOAuthFlow_StartWithoutProvider(t *testing.T) {
	f := newFlowFixture(t)
	f.provider.baseURL = ""
	ctx := newSessionContext(t, f.sessions)

	_, err := f.flow.Start(ctx)

	assert.ErrorIs(t, err, domainerrors.ErrProviderError)
	assert.Empty(t, f.sessions.GetString(ctx, sessionNonceKey))
}
