package service

import (
	"context"
	"time"

	"authgate/internal/domain/entity"
)

// OAuthProfile is the identity returned by a provider after a successful code exchange.
type OAuthProfile struct {
	Provider       entity.ProviderType // The OAuth provider (google)
	ProviderUserID string              // Provider-specific user ID (Google's 'sub' claim)
	Email          string              // Primary email as reported by the provider
	EmailVerified  bool                // Whether the provider verified the email
	Name           string              // Display name, informational only
	AccessToken    string
	RefreshToken   string
	TokenExpiry    time.Time
}

// Link converts the profile into the linkage data stored on a user.
func (p *OAuthProfile) Link() *entity.OAuthLink {
	return &entity.OAuthLink{
		Provider:       p.Provider,
		ProviderUserID: p.ProviderUserID,
		AccessToken:    p.AccessToken,
		RefreshToken:   p.RefreshToken,
		TokenExpiry:    p.TokenExpiry,
	}
}

// OAuthProvider speaks the OAuth2 authorization-code protocol with one provider.
type OAuthProvider interface {
	// AuthCodeURL builds the consent page URL carrying the given state.
	AuthCodeURL(state string) string

	// Exchange trades an authorization code for tokens and returns the verified profile.
	Exchange(ctx context.Context, code string) (*OAuthProfile, error)

	// GetProvider returns the OAuth provider type
	GetProvider() entity.ProviderType
}
