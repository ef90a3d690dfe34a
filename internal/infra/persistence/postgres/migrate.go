package postgres

import (
	"context"
	"database/sql"
	"embed"
	"log/slog"

	"authgate/config"
	"authgate/internal/errors"

	"github.com/golang-migrate/migrate/v4"
	migratepostgres "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
	"go.uber.org/fx"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MigrationParams defines the dependencies of RegisterMigrations.
type MigrationParams struct {
	fx.In
	fx.Lifecycle

	Config *config.Config
	Logger *slog.Logger
}

// RegisterMigrations applies pending schema migrations on start when migration.enabled is set.
func RegisterMigrations(params MigrationParams) {
	if !params.Config.Migration.Enabled {
		return
	}

	params.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return RunMigrations(ctx, params.Config.Migration.DatabaseURL, params.Logger)
		},
	})
}

// RunMigrations applies every pending migration. An up-to-date schema is not an error.
func RunMigrations(ctx context.Context, databaseURL string, logger *slog.Logger) error {
	m, closeFn, err := newMigrator(databaseURL)
	if err != nil {
		return err
	}
	defer closeFn()

	// migrate has no context support; GracefulStop lets an in-flight step finish.
	stop := context.AfterFunc(ctx, func() {
		m.GracefulStop <- true
	})
	defer stop()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return errors.Wrap(err, "failed to run migrations")
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return errors.Wrap(err, "failed to read migration version")
	}
	logger.Info("Database schema is up to date", slog.Uint64("version", uint64(version)), slog.Bool("dirty", dirty))

	return nil
}

func newMigrator(databaseURL string) (*migrate.Migrate, func(), error) {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to create migration source")
	}

	sqlDB, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to open migration connection")
	}

	driver, err := migratepostgres.WithInstance(sqlDB, &migratepostgres.Config{})
	if err != nil {
		_ = sqlDB.Close()

		return nil, nil, errors.Wrap(err, "failed to create migration driver")
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		_ = sqlDB.Close()

		return nil, nil, errors.Wrap(err, "failed to create migrator")
	}

	return m, func() {
		_, _ = m.Close()
	}, nil
}
