// Package auth provides concrete implementations for authentication-related domain services.
package auth

import (
	"authgate/config"
	domainerrors "authgate/internal/domain/errors"
	"authgate/internal/domain/service"

	"github.com/pkg/errors"
	"go.uber.org/fx"
	"golang.org/x/crypto/bcrypt"
)

// dummyPassword feeds the hash compared against when there is no real hash,
// so a missing account costs the same bcrypt work as a wrong password.
const dummyPassword = "authgate-timing-equalizer"

// bcryptHasher is a concrete implementation of the PasswordHasher interface using bcrypt.
type bcryptHasher struct {
	cost      int
	dummyHash []byte
}

// HasherParams holds dependencies for the hasher, injected by Fx.
type HasherParams struct {
	fx.In

	Config *config.Config
}

// NewBcryptHasher builds the hasher with the configured cost.
func NewBcryptHasher(params HasherParams) (service.PasswordHasher, error) {
	cost := bcrypt.DefaultCost
	if params.Config != nil && params.Config.Auth != nil && params.Config.Auth.BcryptCost != 0 {
		cost = params.Config.Auth.BcryptCost
	}

	return NewBcryptHasherWithCost(cost)
}

// NewBcryptHasherWithCost builds the hasher with an explicit cost.
func NewBcryptHasherWithCost(cost int) (service.PasswordHasher, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, errors.Errorf("bcrypt cost %d out of range [%d, %d]", cost, bcrypt.MinCost, bcrypt.MaxCost)
	}

	dummyHash, err := bcrypt.GenerateFromPassword([]byte(dummyPassword), cost)
	if err != nil {
		return nil, errors.Wrap(err, "failed to prepare dummy hash")
	}

	return &bcryptHasher{cost: cost, dummyHash: dummyHash}, nil
}

// Hash generates a salted hash from a plaintext password using bcrypt.
// bcrypt automatically handles salt generation.
func (h *bcryptHasher) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", domainerrors.ErrPasswordTooLong
	}
	if err != nil {
		return "", errors.Wrap(domainerrors.ErrPasswordHashFailed, err.Error())
	}

	return string(hash), nil
}

// Check compares a plaintext password with a bcrypt hash.
// An empty hash never matches; it still costs one comparison.
func (h *bcryptHasher) Check(password, hash string) bool {
	if hash == "" {
		_ = bcrypt.CompareHashAndPassword(h.dummyHash, []byte(password))

		return false
	}

	// Any malformed hash surfaces as an error here and is treated as a mismatch.
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
