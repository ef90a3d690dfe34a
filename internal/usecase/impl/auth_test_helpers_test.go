package impl

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"authgate/internal/domain/entity"
	domainerrors "authgate/internal/domain/errors"
	"authgate/internal/domain/repository"
	"authgate/internal/domain/service"
	"authgate/internal/infra/auth"
	"authgate/internal/infra/persistence/memory"
	"authgate/internal/usecase"

	"github.com/alexedwards/scs/v2"
	"github.com/alexedwards/scs/v2/memstore"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestHasher(t *testing.T) service.PasswordHasher {
	t.Helper()

	hasher, err := auth.NewBcryptHasherWithCost(bcrypt.MinCost)
	require.NoError(t, err)

	return hasher
}

// newTestSessionManager returns an scs manager over memstore with cleanup disabled.
func newTestSessionManager() *scs.SessionManager {
	manager := scs.New()
	manager.Store = memstore.NewWithCleanupInterval(0)

	return manager
}

// newSessionContext simulates the first request from a fresh browser.
func newSessionContext(t *testing.T, manager *scs.SessionManager) context.Context {
	t.Helper()

	ctx, err := manager.Load(context.Background(), "")
	require.NoError(t, err)

	return ctx
}

// nextRequest commits the session of ctx and loads it again the way the next request would.
func nextRequest(t *testing.T, manager *scs.SessionManager, ctx context.Context) context.Context {
	t.Helper()

	token := commitToken(t, manager, ctx)
	next, err := manager.Load(context.Background(), token)
	require.NoError(t, err)

	return next
}

func commitToken(t *testing.T, manager *scs.SessionManager, ctx context.Context) string {
	t.Helper()

	token, _, err := manager.Commit(ctx)
	require.NoError(t, err)

	return token
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []*service.AccountEvent
	err    error
}

func (p *recordingPublisher) PublishAccountEvent(_ context.Context, event *service.AccountEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.events = append(p.events, event)

	return p.err
}

func (p *recordingPublisher) Close() error {
	return nil
}

func (p *recordingPublisher) types() []service.AccountEventType {
	p.mu.Lock()
	defer p.mu.Unlock()

	types := make([]service.AccountEventType, 0, len(p.events))
	for _, event := range p.events {
		types = append(types, event.Type)
	}

	return types
}

type recordingMetrics struct {
	mu       sync.Mutex
	attempts []string
	resolves []string
}

func (m *recordingMetrics) RecordAttempt(strategy, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.attempts = append(m.attempts, strategy+":"+outcome)
}

func (m *recordingMetrics) RecordRegistration(string) {}

func (m *recordingMetrics) RecordSessionResolve(result string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.resolves = append(m.resolves, result)
}

// authFixtures wires the real strategies, codec and gate over the memory store.
type authFixtures struct {
	userRepo  repository.UserRepository
	hasher    service.PasswordHasher
	sessions  *scs.SessionManager
	local     usecase.LocalStrategy
	oauth     usecase.OAuthStrategy
	codec     usecase.SessionCodec
	gate      usecase.AuthGate
	profiles  usecase.ProfileService
	publisher *recordingPublisher
	metrics   *recordingMetrics
}

func newAuthFixtures(t *testing.T) authFixtures {
	t.Helper()

	fx := authFixtures{
		userRepo:  memory.NewUserRepository(),
		hasher:    newTestHasher(t),
		sessions:  newTestSessionManager(),
		publisher: &recordingPublisher{},
		metrics:   &recordingMetrics{},
	}
	logger := discardLogger()

	fx.local = NewLocalStrategy(LocalStrategyParams{UserRepo: fx.userRepo, Hasher: fx.hasher, Logger: logger})
	fx.oauth = NewOAuthStrategy(OAuthStrategyParams{UserRepo: fx.userRepo, Logger: logger})
	fx.codec = NewSessionCodec(SessionCodecParams{Scope: fx.sessions, UserRepo: fx.userRepo, Logger: logger})
	fx.gate = NewAuthGate(AuthGateParams{
		Local:     fx.local,
		OAuth:     fx.oauth,
		Codec:     fx.codec,
		UserRepo:  fx.userRepo,
		Hasher:    fx.hasher,
		Publisher: fx.publisher,
		Metrics:   fx.metrics,
		Logger:    logger,
	})
	fx.profiles = NewProfileService(ProfileServiceParams{
		UserRepo:  fx.userRepo,
		Hasher:    fx.hasher,
		Publisher: fx.publisher,
		Logger:    logger,
	})

	return fx
}

// seedPasswordUser stores a local account directly, bypassing the gate.
func (fx authFixtures) seedPasswordUser(t *testing.T, email, password string) *entity.User {
	t.Helper()

	hash, err := fx.hasher.Hash(password)
	require.NoError(t, err)

	user := &entity.User{Email: entity.NormalizeEmail(email), PasswordHash: hash}
	require.NoError(t, fx.userRepo.Create(context.Background(), user))

	return user
}

func googleProfile(email, sub string) *service.OAuthProfile {
	return &service.OAuthProfile{
		Provider:       entity.ProviderTypeGoogle,
		ProviderUserID: sub,
		Email:          email,
		EmailVerified:  true,
		Name:           "Test User",
		AccessToken:    "access-" + sub,
		RefreshToken:   "refresh-" + sub,
		TokenExpiry:    time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// failingUserRepository fails every call the way an unreachable database does.
type failingUserRepository struct{}

var errStoreDown = errors.New("connection refused")

func storeDown() error {
	return domainerrors.NewDatabaseExecuteError(errStoreDown, "test")
}

func (failingUserRepository) FindByID(context.Context, uuid.UUID) (*entity.User, error) {
	return nil, storeDown()
}

func (failingUserRepository) FindByEmail(context.Context, string) (*entity.User, error) {
	return nil, storeDown()
}

func (failingUserRepository) FindByIdentity(context.Context, entity.ProviderType, string) (*entity.User, error) {
	return nil, storeDown()
}

func (failingUserRepository) Create(context.Context, *entity.User) error {
	return storeDown()
}

func (failingUserRepository) Update(context.Context, uuid.UUID, entity.UserUpdate) (*entity.User, error) {
	return nil, storeDown()
}
