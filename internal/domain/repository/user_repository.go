// Package repository defines the interfaces for the persistence layer.
// These interfaces act as a contract between the domain/application layers and the infrastructure layer.
package repository

import (
	"context"
	"errors"

	"authgate/internal/domain/entity"

	"github.com/google/uuid"
)

var (
	// ErrUserNotFound is returned when no user matches the lookup.
	ErrUserNotFound = errors.New("user not found")

	// ErrDuplicateEmail is returned when another user already owns the email.
	ErrDuplicateEmail = errors.New("email already registered")

	// ErrIdentityTaken is returned when another user is already linked to the same provider identity.
	ErrIdentityTaken = errors.New("provider identity already linked")
)

// UserRepository is the user store. Emails passed in must already be normalized
// with entity.NormalizeEmail; implementations enforce uniqueness on them.
// Failures other than the sentinels above are returned as domainerrors.DatabaseExecuteError.
type UserRepository interface {
	// FindByID retrieves a single user by their unique ID.
	FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error)

	// FindByEmail retrieves a single user by their email address.
	FindByEmail(ctx context.Context, email string) (*entity.User, error)

	// FindByIdentity retrieves the user linked to the given provider identity.
	FindByIdentity(ctx context.Context, provider entity.ProviderType, providerUserID string) (*entity.User, error)

	// Create persists a new user and fills in its ID and timestamps.
	// It fails with ErrDuplicateEmail if the email is taken and ErrIdentityTaken if the OAuth link is.
	Create(ctx context.Context, user *entity.User) error

	// Update applies a partial update and returns the stored result.
	// It fails with ErrUserNotFound if the id is absent, ErrDuplicateEmail on an email collision
	// and ErrIdentityTaken when the new OAuth link belongs to someone else.
	Update(ctx context.Context, id uuid.UUID, update entity.UserUpdate) (*entity.User, error)
}
