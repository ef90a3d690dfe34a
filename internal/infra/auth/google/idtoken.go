package google

import (
	"context"

	"authgate/internal/domain/entity"
	"authgate/internal/domain/service"

	"github.com/pkg/errors"
	"google.golang.org/api/idtoken"
)

type validateFunc func(ctx context.Context, idToken, audience string) (*idtoken.Payload, error)

// idTokenValidate checks the signature against Google's published keys, plus audience and expiry.
var idTokenValidate validateFunc = idtoken.Validate

// idTokenVerifier turns a validated Google ID token into a profile.
type idTokenVerifier struct {
	audience string
	validate validateFunc
}

func (v *idTokenVerifier) verify(ctx context.Context, rawIDToken string) (*service.OAuthProfile, error) {
	payload, err := v.validate(ctx, rawIDToken, v.audience)
	if err != nil {
		return nil, errors.Wrap(err, "id token validation failed")
	}

	if payload.Subject == "" {
		return nil, errors.New("id token has no subject")
	}

	return &service.OAuthProfile{
		Provider:       entity.ProviderTypeGoogle,
		ProviderUserID: payload.Subject,
		Email:          stringClaim(payload.Claims, "email"),
		EmailVerified:  boolClaim(payload.Claims, "email_verified"),
		Name:           stringClaim(payload.Claims, "name"),
	}, nil
}

func stringClaim(claims map[string]any, key string) string {
	v, _ := claims[key].(string)

	return v
}

// boolClaim accepts both JSON booleans and the string form some Google tokens carry.
func boolClaim(claims map[string]any, key string) bool {
	switch v := claims[key].(type) {
	case bool:
		return v
	case string:
		return v == "true"
	default:
		return false
	}
}
