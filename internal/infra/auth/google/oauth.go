// Package google implements the OAuth2 authorization-code flow against Google.
package google

import (
	"context"
	"log/slog"

	"authgate/config"
	"authgate/internal/domain/entity"
	"authgate/internal/domain/service"

	"github.com/pkg/errors"
	"go.uber.org/fx"
	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
)

var defaultScopes = []string{"openid", "email", "profile"}

// OAuthService exchanges Google authorization codes for verified profiles.
type OAuthService struct {
	oauthConfig *oauth2.Config
	verifier    *idTokenVerifier
	logger      *slog.Logger
}

// OAuthParams holds dependencies for the Google provider, injected by Fx.
type OAuthParams struct {
	fx.In

	Config *config.Config
	Logger *slog.Logger
}

// NewOAuthService returns the Google provider, or a disabled provider when no client id is configured.
func NewOAuthService(params OAuthParams) service.OAuthProvider {
	cfg := params.Config.GoogleOAuth
	if cfg == nil || cfg.ClientID == "" {
		params.Logger.Info("Google OAuth not configured, OAuth sign-in disabled")

		return disabledProvider{}
	}

	return newOAuthService(cfg, googleoauth.Endpoint, idTokenValidate, params.Logger)
}

func newOAuthService(cfg *config.GoogleOAuthConfig, endpoint oauth2.Endpoint, validate validateFunc, logger *slog.Logger) *OAuthService {
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = defaultScopes
	}

	return &OAuthService{
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     endpoint,
			Scopes:       scopes,
		},
		verifier: &idTokenVerifier{audience: cfg.ClientID, validate: validate},
		logger:   logger,
	}
}

// AuthCodeURL builds the consent URL. Offline access makes Google return a refresh token.
func (s *OAuthService) AuthCodeURL(state string) string {
	return s.oauthConfig.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Exchange trades the code for tokens and validates the returned ID token.
func (s *OAuthService) Exchange(ctx context.Context, code string) (*service.OAuthProfile, error) {
	if code == "" {
		return nil, errors.New("authorization code is empty")
	}

	token, err := s.oauthConfig.Exchange(ctx, code)
	if err != nil {
		return nil, errors.Wrap(err, "code exchange failed")
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, errors.New("token response carries no id_token")
	}

	profile, err := s.verifier.verify(ctx, rawIDToken)
	if err != nil {
		return nil, err
	}

	profile.AccessToken = token.AccessToken
	profile.RefreshToken = token.RefreshToken
	profile.TokenExpiry = token.Expiry

	s.logger.DebugContext(ctx, "Google code exchange succeeded",
		slog.String("provider_user_id", profile.ProviderUserID),
		slog.Bool("email_verified", profile.EmailVerified),
	)

	return profile, nil
}

// GetProvider returns the OAuth provider type
func (s *OAuthService) GetProvider() entity.ProviderType {
	return entity.ProviderTypeGoogle
}

// disabledProvider stands in when Google credentials are absent.
// An empty AuthCodeURL tells callers the provider is unavailable.
type disabledProvider struct{}

func (disabledProvider) AuthCodeURL(string) string { return "" }

func (disabledProvider) Exchange(context.Context, string) (*service.OAuthProfile, error) {
	return nil, errors.New("google sign-in is not configured")
}

func (disabledProvider) GetProvider() entity.ProviderType { return entity.ProviderTypeGoogle }
