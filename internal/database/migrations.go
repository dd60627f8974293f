package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/sirupsen/logrus"
)

// DefaultMigrationsPath is used when database.migrations_path is unset.
const DefaultMigrationsPath = "migrations"

// Versions of the service schema shipped in migrations/.
const (
	// TrainingSamplesVersion creates training_samples, the postgres
	// training store.
	TrainingSamplesVersion uint = 1
	// InteractionsVersion creates the "Appointment" and "Interaction"
	// booking tables read by training pull.
	InteractionsVersion uint = 2
	// SchemaVersion is the version this build expects.
	SchemaVersion = InteractionsVersion
)

var (
	// ErrSchemaOutdated means pending migrations exist.
	ErrSchemaOutdated = errors.New("database schema is behind; run triagectl migrate up")
	// ErrSchemaDirty means a migration failed half way.
	ErrSchemaDirty = errors.New("database schema is dirty; fix the failed migration and force its version")
)

// MigrationRunner applies the training store and booking table migrations
// and reports whether the database matches SchemaVersion.
type MigrationRunner struct {
	migrate *migrate.Migrate
	log     *logrus.Logger
}

// NewMigrationRunner opens the migration source and target database.
func NewMigrationRunner(databaseURL, migrationsPath string, logger *logrus.Logger) (*MigrationRunner, error) {
	if migrationsPath == "" {
		migrationsPath = DefaultMigrationsPath
	}
	m, err := migrate.New("file://"+migrationsPath, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("creating migration instance: %w", err)
	}
	return &MigrationRunner{migrate: m, log: logger}, nil
}

// Up applies every pending migration up to SchemaVersion.
func (mr *MigrationRunner) Up(ctx context.Context) error {
	mr.log.WithField("target_version", SchemaVersion).Info("Applying schema migrations")

	err := mr.migrate.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		mr.log.Info("Schema already current")
		return nil
	}
	if err != nil {
		return fmt.Errorf("running migrations up: %w", err)
	}
	mr.logVersion("Schema migrated")
	return nil
}

// Down rolls back the latest migration.
func (mr *MigrationRunner) Down(ctx context.Context) error {
	err := mr.migrate.Steps(-1)
	if errors.Is(err, migrate.ErrNoChange) {
		mr.log.Info("No migrations to roll back")
		return nil
	}
	if err != nil {
		return fmt.Errorf("rolling back migration: %w", err)
	}
	mr.logVersion("Schema rolled back")
	return nil
}

// Version returns the applied migration version. A database that has never
// been migrated reports 0.
func (mr *MigrationRunner) Version() (uint, bool, error) {
	version, dirty, err := mr.migrate.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

// CheckCurrent returns ErrSchemaOutdated or ErrSchemaDirty unless the
// database sits cleanly at SchemaVersion.
func (mr *MigrationRunner) CheckCurrent() error {
	version, dirty, err := mr.Version()
	if err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}
	return checkSchema(version, dirty)
}

func checkSchema(version uint, dirty bool) error {
	switch {
	case dirty:
		return fmt.Errorf("%w (version %d)", ErrSchemaDirty, version)
	case version < SchemaVersion:
		return fmt.Errorf("%w (version %d, want %d)", ErrSchemaOutdated, version, SchemaVersion)
	case version > SchemaVersion:
		return fmt.Errorf("database schema version %d is newer than this build (%d)", version, SchemaVersion)
	}
	return nil
}

func (mr *MigrationRunner) logVersion(msg string) {
	version, dirty, err := mr.Version()
	if err != nil {
		mr.log.WithError(err).Warn("Could not read schema version")
		return
	}
	mr.log.WithFields(logrus.Fields{
		"version": version,
		"dirty":   dirty,
	}).Info(msg)
}

// Close releases the migration source and database handles.
func (mr *MigrationRunner) Close() error {
	sourceErr, dbErr := mr.migrate.Close()
	if sourceErr != nil {
		return fmt.Errorf("closing migration source: %w", sourceErr)
	}
	if dbErr != nil {
		return fmt.Errorf("closing migration database: %w", dbErr)
	}
	return nil
}
