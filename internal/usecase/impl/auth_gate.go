package impl

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	deliverycontext "authgate/internal/delivery/context"
	"authgate/internal/domain/entity"
	domainerrors "authgate/internal/domain/errors"
	"authgate/internal/domain/lifecycle"
	"authgate/internal/domain/repository"
	"authgate/internal/domain/service"
	"authgate/internal/usecase"

	"github.com/pkg/errors"
	"go.uber.org/fx"
)

const (
	homeRedirect = "/"

	msgLoggedIn       = "logged in"
	msgAccountCreated = "account successfully created"
	msgProfileUpdated = "updated your profile"

	strategyLocal = "local"
	outcomeOK     = "success"
	outcomeError  = "error"
)

// authGate implements the AuthGate interface.
type authGate struct {
	local     usecase.LocalStrategy
	oauth     usecase.OAuthStrategy
	codec     usecase.SessionCodec
	userRepo  repository.UserRepository
	hasher    service.PasswordHasher
	publisher service.EventPublisher
	metrics   service.AuthMetrics
	logger    *slog.Logger
	now       func() time.Time
}

// AuthGateParams holds dependencies for AuthGate, injected by Fx.
type AuthGateParams struct {
	fx.In

	Local     usecase.LocalStrategy
	OAuth     usecase.OAuthStrategy
	Codec     usecase.SessionCodec
	UserRepo  repository.UserRepository
	Hasher    service.PasswordHasher
	Publisher service.EventPublisher
	Metrics   service.AuthMetrics
	Logger    *slog.Logger
}

// NewAuthGate is the constructor for authGate.
func NewAuthGate(params AuthGateParams) usecase.AuthGate {
	return &authGate{
		local:     params.Local,
		oauth:     params.OAuth,
		codec:     params.Codec,
		userRepo:  params.UserRepo,
		hasher:    params.Hasher,
		publisher: params.Publisher,
		metrics:   params.Metrics,
		logger:    params.Logger,
		now:       time.Now,
	}
}

func (g *authGate) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, g.logger)
}

func (g *authGate) HandleLogin(ctx context.Context, email, password string) (*usecase.GateResult, error) {
	outcome, err := g.local.Authenticate(ctx, email, password)
	if err != nil {
		g.metrics.RecordAttempt(strategyLocal, outcomeError)

		return nil, g.failure(ctx, err, "login failed")
	}

	if !outcome.IsAuthenticated() {
		g.metrics.RecordAttempt(strategyLocal, string(outcome.Reason))

		return errorResult(domainerrors.ErrInvalidCredentials.Message()), nil
	}

	if err := g.codec.Store(ctx, outcome.User); err != nil {
		g.metrics.RecordAttempt(strategyLocal, outcomeError)

		return nil, g.failure(ctx, err, "failed to store session")
	}

	g.metrics.RecordAttempt(strategyLocal, outcomeOK)
	g.publish(ctx, service.AccountEventLoggedIn, outcome.User, entity.ProviderTypeLocal)
	g.log(ctx).Info("User logged in", slog.Any("userID", outcome.User.ID))

	return &usecase.GateResult{
		Redirect: homeRedirect,
		Flash:    usecase.Flash{Kind: usecase.FlashInfo, Message: msgLoggedIn},
		User:     outcome.User,
	}, nil
}

// HandleRegister creates a local account. It does not sign the new user in.
func (g *authGate) HandleRegister(ctx context.Context, email, password string) (*usecase.GateResult, error) {
	email = entity.NormalizeEmail(email)
	if email == "" || password == "" {
		g.metrics.RecordRegistration(domainerrors.ErrValidationFailed.ErrorCode())

		return errorResult(domainerrors.ErrValidationFailed.Message()), nil
	}

	hash, err := g.hasher.Hash(password)
	if errors.Is(err, domainerrors.ErrPasswordTooLong) {
		g.metrics.RecordRegistration(domainerrors.ErrPasswordTooLong.ErrorCode())

		return errorResult(domainerrors.ErrPasswordTooLong.Message()), nil
	}
	if err != nil {
		g.metrics.RecordRegistration(outcomeError)

		return nil, g.failure(ctx, err, "failed to hash password")
	}

	user := &entity.User{Email: email, PasswordHash: hash}
	if err := g.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			g.metrics.RecordRegistration(domainerrors.ErrDuplicateEmail.ErrorCode())

			return errorResult(domainerrors.ErrDuplicateEmail.Message()), nil
		}
		g.metrics.RecordRegistration(outcomeError)

		return nil, g.failure(ctx, err, "failed to create user")
	}

	g.metrics.RecordRegistration(outcomeOK)
	g.publish(ctx, service.AccountEventRegistered, user, entity.ProviderTypeLocal)
	g.log(ctx).Info("User registered", slog.Any("userID", user.ID))

	return &usecase.GateResult{
		Redirect: homeRedirect,
		Flash:    usecase.Flash{Kind: usecase.FlashInfo, Message: msgAccountCreated},
	}, nil
}

// HandleOAuthCallback signs in through the provider, or links the provider when a user is already signed in.
func (g *authGate) HandleOAuthCallback(ctx context.Context, profile *service.OAuthProfile) (*usecase.GateResult, error) {
	strategy := "oauth"
	if profile != nil {
		strategy = string(profile.Provider)
	}

	current, err := g.codec.Resolve(ctx)
	if err != nil {
		g.metrics.RecordAttempt(strategy, outcomeError)

		return nil, g.failure(ctx, err, "failed to resolve session")
	}

	var outcome entity.AuthOutcome
	if current != nil {
		outcome, err = g.oauth.Link(ctx, current, profile)
	} else {
		outcome, err = g.oauth.Authenticate(ctx, profile)
	}
	if err != nil {
		g.metrics.RecordAttempt(strategy, outcomeError)

		return nil, g.failure(ctx, err, "oauth sign-in failed")
	}

	if !outcome.IsAuthenticated() {
		g.metrics.RecordAttempt(strategy, string(outcome.Reason))

		return errorResult(rejectMessage(outcome.Reason)), nil
	}

	if err := g.codec.Store(ctx, outcome.User); err != nil {
		g.metrics.RecordAttempt(strategy, outcomeError)

		return nil, g.failure(ctx, err, "failed to store session")
	}
	g.metrics.RecordAttempt(strategy, outcomeOK)

	message := msgLoggedIn
	eventType := service.AccountEventLoggedIn
	switch {
	case current != nil:
		message = fmt.Sprintf("linked your %s account", profile.Provider)
		eventType = service.AccountEventLinked
	case outcome.Provisioned:
		eventType = service.AccountEventProvisioned
	}
	g.publish(ctx, eventType, outcome.User, profile.Provider)
	g.log(ctx).Info("OAuth sign-in succeeded",
		slog.Any("userID", outcome.User.ID),
		slog.String("event", string(eventType)),
	)

	return &usecase.GateResult{
		Redirect: homeRedirect,
		Flash:    usecase.Flash{Kind: usecase.FlashInfo, Message: message},
		User:     outcome.User,
	}, nil
}

func (g *authGate) HandleLogout(ctx context.Context) error {
	user, err := g.codec.Resolve(ctx)
	if err != nil {
		g.log(ctx).Warn("Could not resolve user before logout", slog.Any("error", err))
	}

	if err := g.codec.Clear(ctx); err != nil {
		return g.failure(ctx, err, "failed to clear session")
	}

	if user != nil {
		g.publish(ctx, service.AccountEventLoggedOut, user, "")
	}

	return nil
}

func (g *authGate) RequireUser(ctx context.Context) (*entity.User, error) {
	user, err := g.codec.Resolve(ctx)
	switch {
	case err != nil:
		g.metrics.RecordSessionResolve(outcomeError)

		return nil, g.failure(ctx, err, "failed to resolve session")
	case user == nil:
		g.metrics.RecordSessionResolve("anonymous")
	default:
		g.metrics.RecordSessionResolve("user")
	}

	return user, nil
}

// failure logs the underlying error and returns a taxonomy error safe to show the client.
func (g *authGate) failure(ctx context.Context, err error, message string) error {
	g.log(ctx).Error(message, slog.Any("error", err))

	if errors.Is(err, domainerrors.ErrStoreUnavailable) {
		return domainerrors.ErrStoreUnavailable.WrapMessage(message)
	}

	return domainerrors.ErrInternalError.WrapMessage(message)
}

// publish emits an account event. Delivery problems are logged and never fail the request.
func (g *authGate) publish(ctx context.Context, eventType service.AccountEventType, user *entity.User, provider entity.ProviderType) {
	publishAccountEvent(ctx, g.publisher, g.log(ctx), &service.AccountEvent{
		RequestID:  deliverycontext.GetRequestIDFromContext(ctx),
		Type:       eventType,
		UserID:     user.ID.String(),
		Provider:   string(provider),
		OccurredAt: g.now().UTC(),
	})
}

func publishAccountEvent(ctx context.Context, publisher service.EventPublisher, logger *slog.Logger, event *service.AccountEvent) {
	if publisher == nil {
		return
	}

	publishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), lifecycle.DefaultTimeout)
	defer cancel()

	if err := publisher.PublishAccountEvent(publishCtx, event); err != nil {
		logger.Warn("Failed to publish account event",
			slog.String("type", string(event.Type)),
			slog.Any("error", err),
		)
	}
}

func rejectMessage(reason entity.RejectReason) string {
	switch reason {
	case entity.RejectInvalidCredentials:
		return domainerrors.ErrInvalidCredentials.Message()
	case entity.RejectAccountLinkRequired:
		return domainerrors.ErrAccountLinkRequired.Message()
	default:
		return domainerrors.ErrProviderError.Message()
	}
}

func errorResult(message string) *usecase.GateResult {
	return &usecase.GateResult{
		Redirect: homeRedirect,
		Flash:    usecase.Flash{Kind: usecase.FlashError, Message: message},
	}
}
