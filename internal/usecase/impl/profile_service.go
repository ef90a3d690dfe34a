package impl

import (
	"context"
	"log/slog"
	"time"

	deliverycontext "authgate/internal/delivery/context"
	"authgate/internal/domain/entity"
	domainerrors "authgate/internal/domain/errors"
	"authgate/internal/domain/repository"
	"authgate/internal/domain/service"
	"authgate/internal/usecase"

	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// profileService implements the ProfileService interface.
type profileService struct {
	userRepo  repository.UserRepository
	hasher    service.PasswordHasher
	publisher service.EventPublisher
	logger    *slog.Logger
}

// ProfileServiceParams holds dependencies for ProfileService, injected by Fx.
type ProfileServiceParams struct {
	fx.In

	UserRepo  repository.UserRepository
	Hasher    service.PasswordHasher
	Publisher service.EventPublisher
	Logger    *slog.Logger
}

// NewProfileService is the constructor for profileService.
func NewProfileService(params ProfileServiceParams) usecase.ProfileService {
	return &profileService{
		userRepo:  params.UserRepo,
		hasher:    params.Hasher,
		publisher: params.Publisher,
		logger:    params.Logger,
	}
}

func (srv *profileService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// UpdateProfile changes the email, the password, or both. Setting a password on an
// OAuth-provisioned account makes local sign-in possible for it.
func (srv *profileService) UpdateProfile(ctx context.Context, user *entity.User, input usecase.UpdateProfileInput) (*usecase.GateResult, error) {
	if user == nil {
		return nil, domainerrors.ErrUnauthenticated
	}

	var update entity.UserUpdate

	if email := entity.NormalizeEmail(input.Email); email != "" && email != user.Email {
		update.Email = &email
	}

	if input.Password != "" {
		hash, err := srv.hasher.Hash(input.Password)
		if errors.Is(err, domainerrors.ErrPasswordTooLong) {
			return errorResult(domainerrors.ErrPasswordTooLong.Message()), nil
		}
		if err != nil {
			srv.log(ctx).Error("Failed to hash password for profile update", slog.Any("error", err))

			return nil, domainerrors.ErrInternalError.WrapMessage("failed to hash password")
		}
		update.PasswordHash = &hash
	}

	if update.IsEmpty() {
		return errorResult(domainerrors.ErrEmptyProfileUpdate.Message()), nil
	}

	updated, err := srv.userRepo.Update(ctx, user.ID, update)
	switch {
	case errors.Is(err, repository.ErrDuplicateEmail):
		return errorResult(domainerrors.ErrDuplicateEmail.Message()), nil
	case errors.Is(err, repository.ErrUserNotFound):
		return nil, domainerrors.ErrUnauthenticated
	case err != nil:
		srv.log(ctx).Error("Failed to update profile", slog.Any("userID", user.ID), slog.Any("error", err))

		return nil, domainerrors.ErrStoreUnavailable.WrapMessage("failed to update profile")
	}

	publishAccountEvent(ctx, srv.publisher, srv.log(ctx), &service.AccountEvent{
		RequestID:  deliverycontext.GetRequestIDFromContext(ctx),
		Type:       service.AccountEventProfileUpdated,
		UserID:     updated.ID.String(),
		Provider:   string(entity.ProviderTypeLocal),
		OccurredAt: time.Now().UTC(),
	})
	srv.log(ctx).Info("Profile updated", slog.Any("userID", updated.ID))

	return &usecase.GateResult{
		Redirect: homeRedirect,
		Flash:    usecase.Flash{Kind: usecase.FlashInfo, Message: msgProfileUpdated},
		User:     updated,
	}, nil
}
