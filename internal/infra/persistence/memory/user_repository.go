// Package memory keeps users in process memory. It is meant for local development and tests.
package memory

import (
	"context"
	"sync"
	"time"

	"authgate/internal/domain/entity"
	"authgate/internal/domain/repository"

	"github.com/google/uuid"
)

type identityKey struct {
	provider       entity.ProviderType
	providerUserID string
}

type userRepository struct {
	mu         sync.RWMutex
	byID       map[uuid.UUID]*entity.User
	byEmail    map[string]uuid.UUID
	byIdentity map[identityKey]uuid.UUID
	now        func() time.Time
}

// NewUserRepository returns an empty in-memory repository.UserRepository.
func NewUserRepository() repository.UserRepository {
	return newUserRepository()
}

func newUserRepository() *userRepository {
	return &userRepository{
		byID:       make(map[uuid.UUID]*entity.User),
		byEmail:    make(map[string]uuid.UUID),
		byIdentity: make(map[identityKey]uuid.UUID),
		now:        time.Now,
	}
}

func (repo *userRepository) FindByID(_ context.Context, id uuid.UUID) (*entity.User, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	user, ok := repo.byID[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}

	return cloneUser(user), nil
}

func (repo *userRepository) FindByEmail(_ context.Context, email string) (*entity.User, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	id, ok := repo.byEmail[email]
	if !ok {
		return nil, repository.ErrUserNotFound
	}

	return cloneUser(repo.byID[id]), nil
}

func (repo *userRepository) FindByIdentity(_ context.Context, provider entity.ProviderType, providerUserID string) (*entity.User, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	id, ok := repo.byIdentity[identityKey{provider: provider, providerUserID: providerUserID}]
	if !ok {
		return nil, repository.ErrUserNotFound
	}

	return cloneUser(repo.byID[id]), nil
}

func (repo *userRepository) Create(ctx context.Context, user *entity.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	repo.mu.Lock()
	defer repo.mu.Unlock()

	if _, taken := repo.byEmail[user.Email]; taken {
		return repository.ErrDuplicateEmail
	}
	if key, ok := identityOf(user.OAuth); ok {
		if _, taken := repo.byIdentity[key]; taken {
			return repository.ErrIdentityTaken
		}
	}

	now := repo.now().UTC()
	user.ID = uuid.New()
	user.CreatedAt = now
	user.UpdatedAt = now

	stored := cloneUser(user)
	repo.byID[stored.ID] = stored
	repo.byEmail[stored.Email] = stored.ID
	if key, ok := identityOf(stored.OAuth); ok {
		repo.byIdentity[key] = stored.ID
	}

	return nil
}

func (repo *userRepository) Update(ctx context.Context, id uuid.UUID, update entity.UserUpdate) (*entity.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	repo.mu.Lock()
	defer repo.mu.Unlock()

	current, ok := repo.byID[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}

	if update.Email != nil && *update.Email != current.Email {
		if _, taken := repo.byEmail[*update.Email]; taken {
			return nil, repository.ErrDuplicateEmail
		}
	}
	if key, ok := identityOf(update.OAuth); ok {
		if owner, taken := repo.byIdentity[key]; taken && owner != id {
			return nil, repository.ErrIdentityTaken
		}
	}

	// Every check passed; apply to a copy and swap the indexes.
	next := cloneUser(current)
	if update.Email != nil {
		next.Email = *update.Email
	}
	if update.PasswordHash != nil {
		next.PasswordHash = *update.PasswordHash
	}
	if update.OAuth != nil {
		link := *update.OAuth
		next.OAuth = &link
	}
	if !update.IsEmpty() {
		next.UpdatedAt = repo.now().UTC()
	}

	delete(repo.byEmail, current.Email)
	repo.byEmail[next.Email] = id
	if key, ok := identityOf(current.OAuth); ok {
		delete(repo.byIdentity, key)
	}
	if key, ok := identityOf(next.OAuth); ok {
		repo.byIdentity[key] = id
	}
	repo.byID[id] = next

	return cloneUser(next), nil
}

func identityOf(link *entity.OAuthLink) (identityKey, bool) {
	if link == nil || link.ProviderUserID == "" {
		return identityKey{}, false
	}

	return identityKey{provider: link.Provider, providerUserID: link.ProviderUserID}, true
}

// cloneUser copies a user so callers never share memory with the store.
func cloneUser(user *entity.User) *entity.User {
	if user == nil {
		return nil
	}

	clone := *user
	if user.OAuth != nil {
		link := *user.OAuth
		clone.OAuth = &link
	}

	return &clone
}
