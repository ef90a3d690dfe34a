// Package usecase contains the application-specific business rules.
// It orchestrates the domain layer to perform tasks.
package usecase

import (
	"context"

	"authgate/internal/domain/entity"
	"authgate/internal/domain/service"
)

// FlashKind groups flash messages the way the index page renders them.
type FlashKind string

const (
	FlashInfo  FlashKind = "info"
	FlashError FlashKind = "error"
)

// Flash is a one-shot message shown on the next page view.
type Flash struct {
	Kind    FlashKind
	Message string
}

// GateResult tells the delivery layer where to send the client and what to tell them.
type GateResult struct {
	Redirect string
	Flash    Flash
	User     *entity.User // Set when the request ended with a signed-in user.
}

// UpdateProfileInput holds the POST /profile form. Empty fields are left unchanged.
type UpdateProfileInput struct {
	Email    string
	Password string
}

// LocalStrategy verifies email and password pairs.
type LocalStrategy interface {
	// Authenticate never distinguishes an unknown email from a wrong password.
	// A non-nil error means the store failed, not that the credentials were bad.
	Authenticate(ctx context.Context, email, password string) (entity.AuthOutcome, error)
}

// OAuthStrategy resolves or provisions a local user from a verified provider profile.
type OAuthStrategy interface {
	Authenticate(ctx context.Context, profile *service.OAuthProfile) (entity.AuthOutcome, error)

	// Link attaches the provider identity to a user who is already signed in.
	Link(ctx context.Context, user *entity.User, profile *service.OAuthProfile) (entity.AuthOutcome, error)
}

// SessionCodec is the only reader and writer of the identity kept in the session.
type SessionCodec interface {
	Store(ctx context.Context, user *entity.User) error

	// Resolve returns nil, nil for an anonymous session.
	Resolve(ctx context.Context) (*entity.User, error)

	Clear(ctx context.Context) error
}

// AuthGate is the entry point the HTTP handlers call.
// Rejections come back as results; the error return is reserved for infrastructure failures.
type AuthGate interface {
	HandleLogin(ctx context.Context, email, password string) (*GateResult, error)
	HandleRegister(ctx context.Context, email, password string) (*GateResult, error)
	HandleOAuthCallback(ctx context.Context, profile *service.OAuthProfile) (*GateResult, error)
	HandleLogout(ctx context.Context) error

	// RequireUser returns nil, nil for an anonymous session.
	RequireUser(ctx context.Context) (*entity.User, error)
}

// OAuthFlow runs the authorization-code round trip around OAuthStrategy.
type OAuthFlow interface {
	// Start returns the provider consent URL bound to a fresh state.
	Start(ctx context.Context) (string, error)

	// Complete checks the state against the session and exchanges the code for a profile.
	Complete(ctx context.Context, code, state string) (*service.OAuthProfile, error)
}

// ProfileService changes the signed-in user's email or password.
type ProfileService interface {
	UpdateProfile(ctx context.Context, user *entity.User, input UpdateProfileInput) (*GateResult, error)
}
