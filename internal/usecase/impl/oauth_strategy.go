package impl

import (
	"context"
	"log/slog"

	deliverycontext "authgate/internal/delivery/context"
	"authgate/internal/domain/entity"
	"authgate/internal/domain/repository"
	"authgate/internal/domain/service"
	"authgate/internal/usecase"

	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// oauthStrategy implements the OAuthStrategy interface.
//
// Linkage policy: an existing account is only signed in through a provider when
// it is already linked to that exact provider identity, whatever its current email. A password account that
// shares the email must link explicitly via Link while signed in.
type oauthStrategy struct {
	userRepo repository.UserRepository
	logger   *slog.Logger
}

// OAuthStrategyParams holds dependencies for OAuthStrategy, injected by Fx.
type OAuthStrategyParams struct {
	fx.In

	UserRepo repository.UserRepository
	Logger   *slog.Logger
}

// NewOAuthStrategy is the constructor for oauthStrategy.
func NewOAuthStrategy(params OAuthStrategyParams) usecase.OAuthStrategy {
	return &oauthStrategy{
		userRepo: params.UserRepo,
		logger:   params.Logger,
	}
}

func (s *oauthStrategy) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, s.logger)
}

func (s *oauthStrategy) Authenticate(ctx context.Context, profile *service.OAuthProfile) (entity.AuthOutcome, error) {
	if !isUsableProfile(profile) {
		s.log(ctx).Warn("Rejected unusable OAuth profile")

		return entity.Rejected(entity.RejectProviderError), nil
	}

	email := entity.NormalizeEmail(profile.Email)

	existing, err := s.findExisting(ctx, email, profile)
	switch {
	case err == nil:
		return s.signInExisting(ctx, existing, profile)
	case !errors.Is(err, repository.ErrUserNotFound):
		return entity.AuthOutcome{}, errors.WithStack(err)
	}

	outcome, created, err := s.provision(ctx, email, profile)
	if err != nil || created {
		return outcome, err
	}

	// Someone created a conflicting user between our lookup and insert. Re-read once.
	existing, err = s.findExisting(ctx, email, profile)
	if errors.Is(err, repository.ErrUserNotFound) {
		s.log(ctx).Warn("Conflicting user vanished before it could be re-read",
			slog.String("provider", string(profile.Provider)),
		)

		return entity.Rejected(entity.RejectProviderError), nil
	}
	if err != nil {
		return entity.AuthOutcome{}, errors.WithStack(err)
	}

	return s.signInExisting(ctx, existing, profile)
}

// findExisting looks the user up by provider identity first, then by email.
func (s *oauthStrategy) findExisting(ctx context.Context, email string, profile *service.OAuthProfile) (*entity.User, error) {
	user, err := s.userRepo.FindByIdentity(ctx, profile.Provider, profile.ProviderUserID)
	if !errors.Is(err, repository.ErrUserNotFound) {
		return user, err
	}

	return s.userRepo.FindByEmail(ctx, email)
}

// provision creates a passwordless user for a first-time provider login.
// created is false when a unique constraint fired and the caller must re-read.
func (s *oauthStrategy) provision(ctx context.Context, email string, profile *service.OAuthProfile) (entity.AuthOutcome, bool, error) {
	user := &entity.User{
		Email: email,
		OAuth: profile.Link(),
	}

	err := s.userRepo.Create(ctx, user)
	switch {
	case errors.Is(err, repository.ErrDuplicateEmail), errors.Is(err, repository.ErrIdentityTaken):
		s.log(ctx).Info("OAuth provisioning hit an existing user, re-reading")

		return entity.AuthOutcome{}, false, nil
	case err != nil:
		return entity.AuthOutcome{}, true, errors.WithStack(err)
	}

	hydrated, err := s.userRepo.FindByID(ctx, user.ID)
	if err != nil {
		return entity.AuthOutcome{}, true, errors.WithStack(err)
	}

	s.log(ctx).Info("Provisioned user from OAuth profile",
		slog.Any("userID", hydrated.ID),
		slog.String("provider", string(profile.Provider)),
	)

	return entity.Provisioned(hydrated), true, nil
}

func (s *oauthStrategy) signInExisting(ctx context.Context, user *entity.User, profile *service.OAuthProfile) (entity.AuthOutcome, error) {
	switch {
	case user.IsLinkedTo(profile.Provider, profile.ProviderUserID):
		return s.storeLink(ctx, user, profile)
	case user.HasPassword():
		s.log(ctx).Info("OAuth login needs an explicit link to a password account", slog.Any("userID", user.ID))

		return entity.Rejected(entity.RejectAccountLinkRequired), nil
	default:
		s.log(ctx).Warn("OAuth login for an account linked to a different identity", slog.Any("userID", user.ID))

		return entity.Rejected(entity.RejectProviderError), nil
	}
}

// Link binds the provider identity to the signed-in user. The password hash is kept.
func (s *oauthStrategy) Link(ctx context.Context, user *entity.User, profile *service.OAuthProfile) (entity.AuthOutcome, error) {
	if user == nil || !isUsableProfile(profile) {
		return entity.Rejected(entity.RejectProviderError), nil
	}
	if entity.NormalizeEmail(profile.Email) != user.Email {
		s.log(ctx).Warn("OAuth link rejected, email mismatch", slog.Any("userID", user.ID))

		return entity.Rejected(entity.RejectProviderError), nil
	}
	if user.OAuth != nil && !user.IsLinkedTo(profile.Provider, profile.ProviderUserID) {
		s.log(ctx).Warn("OAuth link rejected, account already linked elsewhere", slog.Any("userID", user.ID))

		return entity.Rejected(entity.RejectProviderError), nil
	}

	return s.storeLink(ctx, user, profile)
}

// storeLink writes the link and fresh tokens and returns the stored user.
func (s *oauthStrategy) storeLink(ctx context.Context, user *entity.User, profile *service.OAuthProfile) (entity.AuthOutcome, error) {
	updated, err := s.userRepo.Update(ctx, user.ID, entity.UserUpdate{OAuth: profile.Link()})
	switch {
	case errors.Is(err, repository.ErrIdentityTaken):
		return entity.Rejected(entity.RejectProviderError), nil
	case errors.Is(err, repository.ErrUserNotFound):
		return entity.Rejected(entity.RejectProviderError), nil
	case err != nil:
		return entity.AuthOutcome{}, errors.WithStack(err)
	}

	return entity.Authenticated(updated), nil
}

func isUsableProfile(profile *service.OAuthProfile) bool {
	return profile != nil &&
		profile.ProviderUserID != "" &&
		entity.NormalizeEmail(profile.Email) != "" &&
		profile.EmailVerified
}
