package service

import "context"

// SessionScope is the per-client key-value session loaded into a request context.
// *scs.SessionManager satisfies it.
type SessionScope interface {
	Put(ctx context.Context, key string, val any)
	GetString(ctx context.Context, key string) string
	PopString(ctx context.Context, key string) string
	Remove(ctx context.Context, key string)
	RenewToken(ctx context.Context) error
	Destroy(ctx context.Context) error
}
