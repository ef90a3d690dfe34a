package session

import (
	"context"
	"time"

	"authgate/internal/domain/repository"

	"github.com/alexedwards/scs/v2"
)

// repositoryStore adapts a SessionRepository to scs.CtxStore so that session
// reads and writes inherit the request context.
type repositoryStore struct {
	repo repository.SessionRepository
}

var _ scs.CtxStore = (*repositoryStore)(nil)

func newRepositoryStore(repo repository.SessionRepository) *repositoryStore {
	return &repositoryStore{repo: repo}
}

func (s *repositoryStore) FindCtx(ctx context.Context, token string) ([]byte, bool, error) {
	return s.repo.Find(ctx, token)
}

func (s *repositoryStore) CommitCtx(ctx context.Context, token string, b []byte, expiry time.Time) error {
	return s.repo.Commit(ctx, token, b, expiry)
}

func (s *repositoryStore) DeleteCtx(ctx context.Context, token string) error {
	return s.repo.Delete(ctx, token)
}

// scs only calls the context-free methods when the store is not a CtxStore.

func (s *repositoryStore) Find(token string) ([]byte, bool, error) {
	return s.FindCtx(context.Background(), token)
}

func (s *repositoryStore) Commit(token string, b []byte, expiry time.Time) error {
	return s.CommitCtx(context.Background(), token, b, expiry)
}

func (s *repositoryStore) Delete(token string) error {
	return s.DeleteCtx(context.Background(), token)
}
