// Package impl contains the implementation of the application's business logic.
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

// localStrategy implements the LocalStrategy interface.
type localStrategy struct {
	userRepo repository.UserRepository
	hasher   service.PasswordHasher
	logger   *slog.Logger
}

// LocalStrategyParams holds dependencies for LocalStrategy, injected by Fx.
type LocalStrategyParams struct {
	fx.In

	UserRepo repository.UserRepository
	Hasher   service.PasswordHasher
	Logger   *slog.Logger
}

// NewLocalStrategy is the constructor for localStrategy.
func NewLocalStrategy(params LocalStrategyParams) usecase.LocalStrategy {
	return &localStrategy{
		userRepo: params.UserRepo,
		hasher:   params.Hasher,
		logger:   params.Logger,
	}
}

func (s *localStrategy) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, s.logger)
}

// Authenticate runs exactly one hash comparison whether or not the email exists,
// so the response time does not reveal registered addresses.
func (s *localStrategy) Authenticate(ctx context.Context, email, password string) (entity.AuthOutcome, error) {
	user, err := s.userRepo.FindByEmail(ctx, entity.NormalizeEmail(email))
	if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
		s.log(ctx).Error("Failed to look up user for login", slog.Any("error", err))

		return entity.AuthOutcome{}, errors.WithStack(err)
	}

	storedHash := ""
	if user != nil {
		storedHash = user.PasswordHash
	}

	// An empty hash is compared against the hasher's dummy hash and never matches.
	if !s.hasher.Check(password, storedHash) || user == nil {
		s.log(ctx).Debug("Local login rejected")

		return entity.Rejected(entity.RejectInvalidCredentials), nil
	}

	return entity.Authenticated(user), nil
}
