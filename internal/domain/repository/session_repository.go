package repository

import (
	"context"
	"time"
)

// SessionRepository persists opaque, already-encoded session blobs keyed by token.
// It backs the HTTP session manager; nothing in the domain reads the blobs.
type SessionRepository interface {
	// Find returns the blob for a token. found is false for unknown or expired tokens.
	Find(ctx context.Context, token string) (data []byte, found bool, err error)

	// Commit inserts or replaces the blob for a token.
	Commit(ctx context.Context, token string, data []byte, expiry time.Time) error

	// Delete removes a token. Deleting an unknown token is not an error.
	Delete(ctx context.Context, token string) error

	// DeleteExpired removes every session whose expiry has passed and reports how many were removed.
	DeleteExpired(ctx context.Context) (int64, error)
}
