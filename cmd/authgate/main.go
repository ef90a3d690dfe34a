package main

import (
	"context"
	"log/slog"
	"os"

	"authgate/config"
	"authgate/internal/delivery"
	"authgate/internal/delivery/api"
	"authgate/internal/delivery/api/flash"
	"authgate/internal/delivery/api/middleware"
	"authgate/internal/delivery/api/router/handler"
	"authgate/internal/infra/auth"
	"authgate/internal/infra/auth/google"
	logs "authgate/internal/infra/log"
	"authgate/internal/infra/metrics"
	"authgate/internal/infra/persistence/memory"
	"authgate/internal/infra/persistence/postgres"
	"authgate/internal/infra/pubsub"
	"authgate/internal/infra/session"
	"authgate/internal/usecase/impl"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

type startServerParams struct {
	fx.In
	fx.Lifecycle

	Deliveries []delivery.Delivery `group:"deliveries"`
}

func main() {
	// The storage driver decides which constructors are provided, so config is read up front.
	cfg, err := config.New()
	if err != nil {
		slog.Error("Failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	fx.New(
		fx.Supply(cfg),
		injectInfra(),
		injectStorage(cfg),
		injectService(),
		injectUsecase(),
		injectDelivery(),
		injectMiddleware(),
		injectHandler(),
		fx.Invoke(
			startServer,
		),
	).Run()
}

func injectInfra() fx.Option {
	return fx.Options(
		fx.Provide(
			logs.New,
			context.Background,
			session.NewManager,
			session.NewScope,
			metrics.NewRegistry,
			fx.Annotate(
				metrics.NewCollector,
				fx.From(new(*prometheus.Registry)),
			),
			metrics.NewAuthMetrics,
		),
		pubsub.Module,
	)
}

// injectStorage provides the user store, and the session repository when sessions live in postgres.
func injectStorage(cfg *config.Config) fx.Option {
	if cfg.Storage.Driver == config.StorageDriverMemory {
		return fx.Provide(memory.NewUserRepository)
	}

	options := []fx.Option{
		fx.Provide(
			postgres.New,
			postgres.NewUserRepository,
		),
		fx.Invoke(postgres.RegisterMigrations),
	}
	if cfg.Session != nil && cfg.Session.Store == config.SessionStorePostgres {
		options = append(options, fx.Provide(postgres.NewSessionRepository))
	}

	return fx.Options(options...)
}

func injectService() fx.Option {
	return fx.Options(
		fx.Provide(
			auth.NewBcryptHasher,
			auth.NewStateTokenService,
			google.NewOAuthService,
		),
	)
}

func injectUsecase() fx.Option {
	return fx.Options(
		fx.Provide(
			impl.NewLocalStrategy,
			impl.NewOAuthStrategy,
			impl.NewSessionCodec,
			impl.NewAuthGate,
			impl.NewOAuthFlow,
			impl.NewProfileService,
		),
	)
}

func injectMiddleware() fx.Option {
	return fx.Options(
		fx.Provide(
			middleware.NewRequireUserMiddleware,
			middleware.NewRateLimiter,
		),
	)
}

func injectHandler() fx.Option {
	return fx.Options(
		fx.Provide(
			flash.NewStore,
			handler.NewAuthHandler,
			handler.NewHomeHandler,
			handler.NewProfileHandler,
		),
	)
}

func injectDelivery() fx.Option {
	return fx.Options(
		fx.Provide(
			fx.Annotate(
				api.NewServer,
				fx.ResultTags(`group:"deliveries"`),
			),
		),
	)
}

func startServer(ctx context.Context, params startServerParams) {
	for _, delivery := range params.Deliveries {
		go func() {
			if err := delivery.Serve(ctx); err != nil {
				slog.Error("Failed to start server", slog.Any("error", err))
				os.Exit(1)
			}
		}()
	}
}
