package service

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// StateClaims are carried by the signed OAuth state parameter.
type StateClaims struct {
	Nonce string `json:"nonce"`
	jwt.RegisteredClaims
}

// StateTokenService issues and verifies the OAuth2 state parameter.
type StateTokenService interface {
	// Issue signs a state token bound to the given nonce.
	Issue(nonce string) (string, error)

	// Verify checks signature and expiry and returns the embedded claims.
	Verify(state string) (*StateClaims, error)

	// TTL returns how long an issued state stays valid.
	TTL() time.Duration
}
