package impl

import (
	"context"
	"testing"

	"authgate/internal/domain/entity"
	domainerrors "authgate/internal/domain/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionCodec_StoreThenResolveOnNextRequest(t *testing.T) {
	fx := newAuthFixtures(t)
	alice := fx.seedPasswordUser(t, "alice@example.com", "hunter2")

	ctx := newSessionContext(t, fx.sessions)
	require.NoError(t, fx.codec.Store(ctx, alice))

	next := nextRequest(t, fx.sessions, ctx)
	resolved, err := fx.codec.Resolve(next)

	require.NoError(t, err)
	require.NotNil(t, resolved)
	assert.Equal(t, alice.ID, resolved.ID)
	assert.Equal(t, "alice@example.com", resolved.Email)
}

func TestSessionCodec_StoreRenewsTheToken(t *testing.T) {
	fx := newAuthFixtures(t)
	alice := fx.seedPasswordUser(t, "alice@example.com", "hunter2")

	// An anonymous session that already exists in the store.
	anonymous := newSessionContext(t, fx.sessions)
	fx.sessions.Put(anonymous, "visited", true)
	before := commitToken(t, fx.sessions, anonymous)

	ctx, err := fx.sessions.Load(context.Background(), before)
	require.NoError(t, err)
	require.NoError(t, fx.codec.Store(ctx, alice))
	after := commitToken(t, fx.sessions, ctx)

	assert.NotEqual(t, before, after)

	stale, err := fx.sessions.Load(context.Background(), before)
	require.NoError(t, err)
	resolved, err := fx.codec.Resolve(stale)
	require.NoError(t, err)
	assert.Nil(t, resolved)
}

func TestSessionCodec_StoreRejectsEmptyUser(t *testing.T) {
	fx := newAuthFixtures(t)
	ctx := newSessionContext(t, fx.sessions)

	assert.Error(t, fx.codec.Store(ctx, nil))
	assert.Error(t, fx.codec.Store(ctx, &entity.User{Email: "x@example.com"}))
}

func TestSessionCodec_ResolveAnonymous(t *testing.T) {
	fx := newAuthFixtures(t)

	user, err := fx.codec.Resolve(newSessionContext(t, fx.sessions))

	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestSessionCodec_ClearEndsTheSession(t *testing.T) {
	fx := newAuthFixtures(t)
	alice := fx.seedPasswordUser(t, "alice@example.com", "hunter2")

	ctx := newSessionContext(t, fx.sessions)
	require.NoError(t, fx.codec.Store(ctx, alice))
	ctx = nextRequest(t, fx.sessions, ctx)

	require.NoError(t, fx.codec.Clear(ctx))
	user, err := fx.codec.Resolve(nextRequest(t, fx.sessions, ctx))

	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestSessionCodec_ResolveClearsStaleIdentity(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "user no longer exists", raw: uuid.NewString()},
		{name: "unparsable id", raw: "not-a-uuid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newAuthFixtures(t)
			ctx := newSessionContext(t, fx.sessions)
			fx.sessions.Put(ctx, sessionUserIDKey, tt.raw)
			fx.sessions.Put(ctx, "other", "value")
			ctx = nextRequest(t, fx.sessions, ctx)

			user, err := fx.codec.Resolve(ctx)
			require.NoError(t, err)
			assert.Nil(t, user)

			next := nextRequest(t, fx.sessions, ctx)
			assert.Empty(t, fx.sessions.GetString(next, sessionUserIDKey))
			assert.Empty(t, fx.sessions.GetString(next, "other"))
		})
	}
}

func TestSessionCodec_ResolveStoreFailure(t *testing.T) {
	sessions := newTestSessionManager()
	codec := NewSessionCodec(SessionCodecParams{
		Scope:    sessions,
		UserRepo: failingUserRepository{},
		Logger:   discardLogger(),
	})

	ctx := newSessionContext(t, sessions)
	sessions.Put(ctx, sessionUserIDKey, uuid.NewString())

	user, err := codec.Resolve(ctx)

	require.Error(t, err)
	assert.Nil(t, user)
	assert.ErrorIs(t, err, domainerrors.ErrStoreUnavailable)
	// The session is kept so the user is not signed out by an outage.
	assert.NotEmpty(t, sessions.GetString(ctx, sessionUserIDKey))
}
