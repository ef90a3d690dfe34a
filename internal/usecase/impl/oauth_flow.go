package impl

import (
	"context"
	"crypto/subtle"
	"log/slog"

	deliverycontext "authgate/internal/delivery/context"
	domainerrors "authgate/internal/domain/errors"
	"authgate/internal/domain/service"
	"authgate/internal/usecase"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// sessionNonceKey holds the nonce the signed state must echo back.
const sessionNonceKey = "oauth.nonce"

type oauthFlow struct {
	provider service.OAuthProvider
	states   service.StateTokenService
	scope    service.SessionScope
	logger   *slog.Logger
}

// OAuthFlowParams holds dependencies for OAuthFlow, injected by Fx.
type OAuthFlowParams struct {
	fx.In

	Provider service.OAuthProvider
	States   service.StateTokenService
	Scope    service.SessionScope
	Logger   *slog.Logger
}

// NewOAuthFlow is the constructor for oauthFlow.
func NewOAuthFlow(params OAuthFlowParams) usecase.OAuthFlow {
	return &oauthFlow{
		provider: params.Provider,
		states:   params.States,
		scope:    params.Scope,
		logger:   params.Logger,
	}
}

func (f *oauthFlow) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, f.logger)
}

// Start binds a fresh nonce to both the session and the signed state, so a
// callback is only accepted in the browser that began the flow.
func (f *oauthFlow) Start(ctx context.Context) (string, error) {
	nonce := uuid.NewString()

	state, err := f.states.Issue(nonce)
	if err != nil {
		return "", errors.Wrap(err, "failed to issue oauth state")
	}

	authURL := f.provider.AuthCodeURL(state)
	if authURL == "" {
		return "", domainerrors.ErrProviderError.WrapMessage("oauth provider is not configured")
	}

	f.scope.Put(ctx, sessionNonceKey, nonce)

	return authURL, nil
}

func (f *oauthFlow) Complete(ctx context.Context, code, state string) (*service.OAuthProfile, error) {
	// Pop first so a state can never be replayed, even when the checks below fail.
	expected := f.scope.PopString(ctx, sessionNonceKey)

	if code == "" || state == "" {
		return nil, domainerrors.ErrProviderError.WrapMessage("missing code or state")
	}

	claims, err := f.states.Verify(state)
	if err != nil {
		f.log(ctx).Warn("OAuth state rejected", slog.Any("error", err))

		return nil, domainerrors.ErrProviderError.WrapMessage("invalid oauth state")
	}

	if expected == "" || subtle.ConstantTimeCompare([]byte(expected), []byte(claims.Nonce)) != 1 {
		f.log(ctx).Warn("OAuth state does not belong to this session")

		return nil, domainerrors.ErrProviderError.WrapMessage("oauth state mismatch")
	}

	profile, err := f.provider.Exchange(ctx, code)
	if err != nil {
		f.log(ctx).Warn("OAuth code exchange failed", slog.Any("error", err))

		return nil, domainerrors.ErrProviderError.WrapMessage("oauth code exchange failed")
	}

	return profile, nil
}
