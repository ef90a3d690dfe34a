// Package session builds the cookie session manager shared by every request.
package session

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"authgate/config"
	"authgate/internal/domain/lifecycle"
	"authgate/internal/domain/repository"
	"authgate/internal/domain/service"
	"authgate/internal/errors"

	"github.com/alexedwards/scs/v2"
	"github.com/alexedwards/scs/v2/memstore"
	"go.uber.org/fx"
)

// Params defines the dependencies of NewManager.
type Params struct {
	fx.In
	fx.Lifecycle

	Config *config.Config
	Logger *slog.Logger

	// Repository is only provided when the postgres session store is selected.
	Repository repository.SessionRepository `optional:"true"`
}

// NewManager configures an scs.SessionManager from the session config block.
// The postgres store gets a background sweep of expired rows; memstore sweeps itself.
func NewManager(params Params) (*scs.SessionManager, error) {
	cfg := params.Config.Session
	if cfg == nil {
		return nil, errors.New("session configuration is missing")
	}

	manager := scs.New()
	manager.Lifetime = cfg.Lifetime
	if cfg.IdleTimeout > 0 {
		manager.IdleTimeout = cfg.IdleTimeout
	}
	manager.Cookie.Name = cfg.CookieName
	manager.Cookie.HttpOnly = true
	manager.Cookie.Path = "/"
	manager.Cookie.SameSite = http.SameSiteLaxMode
	manager.Cookie.Secure = cfg.Secure
	manager.ErrorFunc = func(w http.ResponseWriter, r *http.Request, err error) {
		params.Logger.ErrorContext(r.Context(), "Session store failure", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}

	switch cfg.Store {
	case config.SessionStoreMemory:
		store := memstore.NewWithCleanupInterval(cfg.CleanupInterval)
		manager.Store = store
		params.Append(fx.Hook{
			OnStop: func(context.Context) error {
				store.StopCleanup()

				return nil
			},
		})
	case config.SessionStorePostgres:
		if params.Repository == nil {
			return nil, errors.New("postgres session store selected without a session repository")
		}
		manager.Store = newRepositoryStore(params.Repository)
		registerCleanup(params.Lifecycle, params.Repository, cfg.CleanupInterval, params.Logger)
	default:
		return nil, errors.Errorf("unsupported session store %q", cfg.Store)
	}

	return manager, nil
}

// NewScope exposes the manager through the narrow interface the usecases depend on.
func NewScope(manager *scs.SessionManager) service.SessionScope {
	return manager
}

func registerCleanup(lc fx.Lifecycle, repo repository.SessionRepository, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				runCleanup(ctx, repo, interval, logger)
			}()

			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
			case <-stopCtx.Done():
			}

			return nil
		},
	})
}

func runCleanup(ctx context.Context, repo repository.SessionRepository, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweepCtx, cancel := context.WithTimeout(ctx, lifecycle.DefaultTimeout)
			removed, err := repo.DeleteExpired(sweepCtx)
			cancel()
			if err != nil {
				logger.WarnContext(ctx, "Failed to delete expired sessions", slog.Any("error", err))

				continue
			}
			if removed > 0 {
				logger.DebugContext(ctx, "Deleted expired sessions", slog.Int64("count", removed))
			}
		}
	}
}
