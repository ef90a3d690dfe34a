// Package entity contains the core business objects of the project,
// each representing a unique, identifiable concept within the domain.
package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// User is the account a person signs in to, either with a local password or through an OAuth provider.
type User struct {
	ID           uuid.UUID  // Opaque identifier assigned at creation; the only value kept in the session.
	Email        string     // Normalized (see NormalizeEmail) and unique across all users.
	PasswordHash string     // bcrypt hash; empty for accounts provisioned through OAuth.
	OAuth        *OAuthLink // Linked provider identity, nil for purely local accounts.
	CreatedAt    time.Time  // Timestamp of when this account was created.
	UpdatedAt    time.Time  // Timestamp of the last modification to this account.
}

// HasPassword reports whether the account can sign in with a local password.
func (u *User) HasPassword() bool {
	return u != nil && u.PasswordHash != ""
}

// IsLinkedTo reports whether the account is bound to the given provider identity.
func (u *User) IsLinkedTo(provider ProviderType, providerUserID string) bool {
	if u == nil || u.OAuth == nil {
		return false
	}

	return u.OAuth.Provider == provider && u.OAuth.ProviderUserID == providerUserID
}

// OAuthLink is the provider identity and token material attached to a user.
type OAuthLink struct {
	Provider       ProviderType // e.g. "google".
	ProviderUserID string       // The provider's subject identifier ('sub' claim for Google).
	AccessToken    string
	RefreshToken   string
	TokenExpiry    time.Time
}

// UserUpdate lists the fields to change on a user. Nil fields are left untouched.
type UserUpdate struct {
	Email        *string
	PasswordHash *string
	OAuth        *OAuthLink
}

// IsEmpty reports whether the update would change nothing.
func (u UserUpdate) IsEmpty() bool {
	return u.Email == nil && u.PasswordHash == nil && u.OAuth == nil
}

// NormalizeEmail is the single place where email addresses are canonicalized.
// Lookups, inserts and comparisons all go through it.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
