// Package postgres contains the concrete implementation of the persistence layer using GORM and PostgreSQL.
package postgres

import (
	"context"
	"time"

	"authgate/internal/domain/entity"
	domainerrors "authgate/internal/domain/errors"
	"authgate/internal/domain/repository"
	"authgate/internal/infra/persistence/model"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Constraint names created by the migrations.
const (
	usersEmailKey         = "users_email_key"
	usersOAuthIdentityKey = "users_oauth_identity_key"
)

// userRepository implements the repository.UserRepository interface using GORM.
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository is the constructor for userRepository.
// It returns the repository as a repository.UserRepository interface, adhering to dependency inversion.
func NewUserRepository(db *gorm.DB) repository.UserRepository {
	return &userRepository{
		db: db,
	}
}

// FindByID retrieves a single user by their unique ID.
func (repo *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	var userM model.UserModel
	if err := repo.db.WithContext(ctx).Where("id = ?", id).First(&userM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrUserNotFound
		}

		return nil, domainerrors.NewDatabaseExecuteError(err, "failed to find user by id")
	}

	return toUserDomain(&userM), nil
}

// FindByEmail retrieves a single user by their email address.
func (repo *userRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	var userM model.UserModel
	if err := repo.db.WithContext(ctx).Where("email = ?", email).First(&userM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrUserNotFound
		}

		return nil, domainerrors.NewDatabaseExecuteError(err, "failed to find user by email")
	}

	return toUserDomain(&userM), nil
}

// FindByIdentity retrieves the user linked to a provider identity.
func (repo *userRepository) FindByIdentity(ctx context.Context, provider entity.ProviderType, providerUserID string) (*entity.User, error) {
	var userM model.UserModel
	if err := repo.db.WithContext(ctx).
		Where("oauth_provider = ? AND oauth_provider_user_id = ?", string(provider), providerUserID).
		First(&userM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrUserNotFound
		}

		return nil, domainerrors.NewDatabaseExecuteError(err, "failed to find user by identity")
	}

	return toUserDomain(&userM), nil
}

// Create persists a new user. The database assigns the ID.
func (repo *userRepository) Create(ctx context.Context, user *entity.User) error {
	userM := fromUserDomain(user)
	userM.ID = uuid.Nil

	if err := repo.db.WithContext(ctx).Create(userM).Error; err != nil {
		return translateWriteError(err, "failed to create user")
	}

	user.ID = userM.ID
	user.CreatedAt = userM.CreatedAt
	user.UpdatedAt = userM.UpdatedAt

	return nil
}

// Update applies a partial update under a row lock and returns the stored row.
func (repo *userRepository) Update(ctx context.Context, id uuid.UUID, update entity.UserUpdate) (*entity.User, error) {
	var updated model.UserModel

	err := repo.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}).
			Where("id = ?", id).
			First(&updated).Error; err != nil {
			return err
		}

		columns := toUpdateColumns(update)
		if len(columns) == 0 {
			return nil
		}

		if err := tx.Model(&updated).Updates(columns).Error; err != nil {
			return err
		}

		return tx.Where("id = ?", id).First(&updated).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrUserNotFound
		}

		return nil, translateWriteError(err, "failed to update user")
	}

	return toUserDomain(&updated), nil
}

// translateWriteError maps constraint violations onto repository sentinels.
func translateWriteError(err error, details string) error {
	switch {
	case isUniqueConstraintViolation(err, usersEmailKey):
		return repository.ErrDuplicateEmail
	case isUniqueConstraintViolation(err, usersOAuthIdentityKey):
		return repository.ErrIdentityTaken
	case isNotNullConstraintViolation(err):
		return domainerrors.ErrValidationFailed.WrapMessage(details)
	case isUniqueConstraintViolation(err, ""):
		// Older schemas without named constraints: email is the only other unique column.
		return repository.ErrDuplicateEmail
	default:
		return domainerrors.NewDatabaseExecuteError(err, details)
	}
}

// --- Mapper Functions ---
// These helpers convert between domain entities and persistence models.

// toUserDomain converts a GORM UserModel to a domain User entity.
func toUserDomain(data *model.UserModel) *entity.User {
	if data == nil {
		return nil
	}

	user := &entity.User{
		ID:           data.ID,
		Email:        data.Email,
		PasswordHash: derefString(data.PasswordHash),
		CreatedAt:    data.CreatedAt,
		UpdatedAt:    data.UpdatedAt,
	}

	if data.OAuthProvider != nil && data.OAuthProviderUserID != nil {
		user.OAuth = &entity.OAuthLink{
			Provider:       entity.ProviderType(*data.OAuthProvider),
			ProviderUserID: *data.OAuthProviderUserID,
			AccessToken:    derefString(data.OAuthAccessToken),
			RefreshToken:   derefString(data.OAuthRefreshToken),
		}
		if data.OAuthTokenExpiry != nil {
			user.OAuth.TokenExpiry = *data.OAuthTokenExpiry
		}
	}

	return user
}

// fromUserDomain converts a domain User entity to a GORM UserModel for persistence.
func fromUserDomain(data *entity.User) *model.UserModel {
	if data == nil {
		return nil
	}

	userM := &model.UserModel{
		ID:           data.ID,
		Email:        data.Email,
		PasswordHash: optionalString(data.PasswordHash),
	}

	if data.OAuth != nil {
		provider := string(data.OAuth.Provider)
		userM.OAuthProvider = &provider
		userM.OAuthProviderUserID = optionalString(data.OAuth.ProviderUserID)
		userM.OAuthAccessToken = optionalString(data.OAuth.AccessToken)
		userM.OAuthRefreshToken = optionalString(data.OAuth.RefreshToken)
		userM.OAuthTokenExpiry = optionalTime(data.OAuth.TokenExpiry)
	}

	return userM
}

// toUpdateColumns lists the columns touched by a partial update.
// A map is used so that clearing a value writes NULL instead of being skipped.
func toUpdateColumns(update entity.UserUpdate) map[string]any {
	columns := make(map[string]any)

	if update.Email != nil {
		columns["email"] = *update.Email
	}
	if update.PasswordHash != nil {
		columns["password_hash"] = optionalString(*update.PasswordHash)
	}
	if link := update.OAuth; link != nil {
		columns["oauth_provider"] = string(link.Provider)
		columns["oauth_provider_user_id"] = link.ProviderUserID
		columns["oauth_access_token"] = optionalString(link.AccessToken)
		columns["oauth_refresh_token"] = optionalString(link.RefreshToken)
		columns["oauth_token_expiry"] = optionalTime(link.TokenExpiry)
	}

	return columns
}

func derefString(value *string) string {
	if value == nil {
		return ""
	}

	return *value
}

func optionalString(value string) *string {
	if value == "" {
		return nil
	}

	return &value
}

func optionalTime(value time.Time) *time.Time {
	if value.IsZero() {
		return nil
	}

	return &value
}
