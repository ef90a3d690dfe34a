package auth

import (
	"time"

	"authgate/config"
	"authgate/internal/domain/service"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

const stateIssuer = "authgate"

// stateTokenService signs the OAuth2 state parameter as a short-lived HS256 JWT.
type stateTokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// StateTokenParams holds dependencies for the state token service, injected by Fx.
type StateTokenParams struct {
	fx.In

	Config *config.Config
}

// NewStateTokenService is the constructor for stateTokenService.
func NewStateTokenService(params StateTokenParams) (service.StateTokenService, error) {
	if params.Config.SecretKey.State == "" {
		return nil, errors.New("state secret must be provided")
	}

	ttl := 10 * time.Minute
	if params.Config.Auth != nil && params.Config.Auth.StateTTL > 0 {
		ttl = params.Config.Auth.StateTTL
	}

	return &stateTokenService{
		secret: []byte(params.Config.SecretKey.State),
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// Issue signs a state bound to nonce.
func (s *stateTokenService) Issue(nonce string) (string, error) {
	if nonce == "" {
		return "", errors.New("nonce must not be empty")
	}

	now := s.now()
	claims := service.StateClaims{
		Nonce: nonce,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    stateIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign state")
	}

	return signed, nil
}

// Verify checks signature, issuer and expiry.
func (s *stateTokenService) Verify(state string) (*service.StateClaims, error) {
	claims := &service.StateClaims{}
	_, err := jwt.ParseWithClaims(state, claims, func(token *jwt.Token) (any, error) {
		// Ensure the signing method is what we expect.
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}

		return s.secret, nil
	},
		jwt.WithIssuer(stateIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, errors.Wrap(err, "invalid state")
	}
	if claims.Nonce == "" {
		return nil, errors.New("state carries no nonce")
	}

	return claims, nil
}

// TTL returns how long an issued state stays valid.
func (s *stateTokenService) TTL() time.Duration {
	return s.ttl
}
