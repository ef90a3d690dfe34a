package impl

import (
	"context"
	"log/slog"

	deliverycontext "authgate/internal/delivery/context"
	"authgate/internal/domain/entity"
	"authgate/internal/domain/repository"
	"authgate/internal/domain/service"
	"authgate/internal/usecase"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// sessionUserIDKey is the only identity field kept in the session.
const sessionUserIDKey = "auth.user_id"

type sessionCodec struct {
	scope    service.SessionScope
	userRepo repository.UserRepository
	logger   *slog.Logger
}

// SessionCodecParams holds dependencies for SessionCodec, injected by Fx.
type SessionCodecParams struct {
	fx.In

	Scope    service.SessionScope
	UserRepo repository.UserRepository
	Logger   *slog.Logger
}

// NewSessionCodec is the constructor for sessionCodec.
func NewSessionCodec(params SessionCodecParams) usecase.SessionCodec {
	return &sessionCodec{
		scope:    params.Scope,
		userRepo: params.UserRepo,
		logger:   params.Logger,
	}
}

func (c *sessionCodec) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, c.logger)
}

// Store issues a new session token before writing the id so a pre-login token cannot be reused.
func (c *sessionCodec) Store(ctx context.Context, user *entity.User) error {
	if user == nil || user.ID == uuid.Nil {
		return errors.New("cannot store an empty user in the session")
	}

	if err := c.scope.RenewToken(ctx); err != nil {
		return errors.Wrap(err, "failed to renew session token")
	}
	c.scope.Put(ctx, sessionUserIDKey, user.ID.String())

	return nil
}

func (c *sessionCodec) Resolve(ctx context.Context) (*entity.User, error) {
	raw := c.scope.GetString(ctx, sessionUserIDKey)
	if raw == "" {
		return nil, nil
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		c.log(ctx).Warn("Session holds an unparsable user id, clearing")

		return nil, c.Clear(ctx)
	}

	user, err := c.userRepo.FindByID(ctx, id)
	if errors.Is(err, repository.ErrUserNotFound) {
		c.log(ctx).Info("Session user no longer exists, clearing", slog.Any("userID", id))

		return nil, c.Clear(ctx)
	}
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return user, nil
}

func (c *sessionCodec) Clear(ctx context.Context) error {
	if err := c.scope.Destroy(ctx); err != nil {
		return errors.Wrap(err, "failed to destroy session")
	}

	return nil
}
