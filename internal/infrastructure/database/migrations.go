package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// Migrations ship inside the binary so the history schema can be applied
// anywhere the engine runs.
//
//go:embed migrations/*.sql
var migrationsFS embed.FS

// newMigrator builds a migrate instance over the embedded SQL sources.
func newMigrator(db *sql.DB) (*migrate.Migrate, error) {
	driver, err := postgres.WithInstance(db, &postgres.Config{})

	if err != nil {
		return nil, fmt.Errorf("failed to create migration driver: %w", err)
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")

	if err != nil {
		return nil, fmt.Errorf("failed to create source driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", driver)

	if err != nil {
		return nil, fmt.Errorf("failed to create migration instance: %w", err)
	}

	return m, nil
}

// RunMigrations applies all pending history schema migrations. A dirty
// version left by an interrupted run is forced clean before retrying.
func RunMigrations(db *sql.DB, logger *zap.Logger) error {
	m, err := newMigrator(db)

	if err != nil {
		return err
	}

	version, dirty, err := m.Version()

	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if dirty {
		logger.Warn("database migrations are dirty",
			zap.Uint("version", version))

		if err := m.Force(int(version)); err != nil {
			return fmt.Errorf("failed to force migration version: %w", err)
		}
	}

	logger.Info("running database migrations",
		zap.Uint("current_version", version))

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	newVersion, _, err := m.Version()

	if err != nil {
		return fmt.Errorf("failed to get new migration version: %w", err)
	}

	logger.Info("database migrations completed",
		zap.Uint("version", newVersion))

	return nil
}

// MigrateDown rolls back the last migration.
func MigrateDown(db *sql.DB, logger *zap.Logger) error {
	m, err := newMigrator(db)

	if err != nil {
		return err
	}

	version, _, err := m.Version()

	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	logger.Info("rolling back migration",
		zap.Uint("current_version", version))

	if err := m.Steps(-1); err != nil {
		return fmt.Errorf("failed to rollback migration: %w", err)
	}

	newVersion, _, err := m.Version()

	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to get new migration version: %w", err)
	}

	logger.Info("migration rolled back",
		zap.Uint("version", newVersion))

	return nil
}

// MigrateToVersion migrates the schema to a specific version, up or down.
func MigrateToVersion(db *sql.DB, targetVersion uint, logger *zap.Logger) error {
	m, err := newMigrator(db)

	if err != nil {
		return err
	}

	currentVersion, _, err := m.Version()

	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to get current version: %w", err)
	}

	logger.Info("migrating to version",
		zap.Uint("current_version", currentVersion),
		zap.Uint("target_version", targetVersion))

	if err := m.Migrate(targetVersion); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to migrate to version %d: %w", targetVersion, err)
	}

	logger.Info("migration completed",
		zap.Uint("version", targetVersion))

	return nil
}
