package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/huangsam/fluentgate/schema"
)

//go:embed migrations
var migrationsFS embed.FS

// MigrationResult describes what one migration run did.
type MigrationResult struct {
	FromVersion uint
	ToVersion   uint
	Changed     bool
}

// String renders the result the way the CLI reports it.
func (r MigrationResult) String() string {
	if !r.Changed {
		return fmt.Sprintf("No migration needed. Database is already at version %d", r.ToVersion)
	}
	return fmt.Sprintf("Successfully migrated from version %d to version %d", r.FromVersion, r.ToVersion)
}

// Migrate runs the embedded migrations for the store's backend.
// - If targetVersion < 0, it migrates to the latest version.
// - If targetVersion == 0, it rolls back all migrations (to initial state).
// - If targetVersion > 0, it migrates to the specified version.
func (s *Store) Migrate(targetVersion int) (MigrationResult, error) {
	if s.disabled() {
		return MigrationResult{}, fmt.Errorf("migrations are not supported for %s backend", schema.NoneBackend)
	}

	// SQLite shares the single store connection: an in-memory database only exists on it.
	// The other backends migrate over a dedicated handle that the migrate driver may close.
	db := s.db
	if s.backend != schema.SQLiteBackend {
		dedicated, err := openDB(s.backend, s.connStr)
		if err != nil {
			return MigrationResult{}, err
		}
		defer func() { _ = dedicated.Close() }()
		db = dedicated
	}

	driver, err := newMigrateDriver(s.backend, db)
	if err != nil {
		return MigrationResult{}, err
	}

	// Get the backend's migrations subdirectory
	migrationFS, err := fs.Sub(migrationsFS, "migrations/"+migrationDir(s.backend))
	if err != nil {
		return MigrationResult{}, fmt.Errorf("failed to access migrations directory: %w", err)
	}

	// Create source driver from embedded FS
	sourceDriver, err := iofs.New(migrationFS, ".")
	if err != nil {
		return MigrationResult{}, fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "fluentgate", driver)
	if err != nil {
		return MigrationResult{}, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	if s.backend != schema.SQLiteBackend {
		defer func() { _, _ = m.Close() }()
	}

	currentVersion, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return MigrationResult{}, fmt.Errorf("failed to get current migration version: %w", err)
	}
	if dirty {
		return MigrationResult{}, fmt.Errorf("database is in a dirty state at version %d. Please fix manually or force version", currentVersion)
	}

	switch {
	case targetVersion < 0:
		err = m.Up()
		if err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return MigrationResult{}, fmt.Errorf("failed to migrate to latest version: %w", err)
		}
	case targetVersion == 0:
		err = m.Down()
		if err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return MigrationResult{}, fmt.Errorf("failed to roll back to version 0: %w", err)
		}
	default:
		err = m.Migrate(uint(targetVersion))
		if err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return MigrationResult{}, fmt.Errorf("failed to migrate to version %d: %w", targetVersion, err)
		}
	}

	result := MigrationResult{FromVersion: currentVersion, ToVersion: currentVersion}
	if errors.Is(err, migrate.ErrNoChange) {
		return result, nil
	}
	newVersion, _, verr := m.Version()
	if verr != nil && !errors.Is(verr, migrate.ErrNilVersion) {
		return MigrationResult{}, fmt.Errorf("failed to read migrated version: %w", verr)
	}
	result.ToVersion = newVersion
	result.Changed = true
	return result, nil
}

// newMigrateDriver wraps db in the golang-migrate driver for backend.
func newMigrateDriver(backend schema.DatabaseBackend, db *sql.DB) (database.Driver, error) {
	switch backend {
	case schema.SQLiteBackend:
		driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite migrate driver: %w", err)
		}
		return driver, nil

	case schema.MySQLBackend:
		conn, err := db.Conn(context.Background())
		if err != nil {
			return nil, fmt.Errorf("failed to acquire MySQL connection: %w", err)
		}
		driver, err := migratemysql.WithConnection(context.Background(), conn, &migratemysql.Config{})
		if err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("failed to create MySQL migrate driver: %w", err)
		}
		return driver, nil

	case schema.PostgreSQLBackend:
		driver, err := migratepgx.WithInstance(db, &migratepgx.Config{})
		if err != nil {
			return nil, fmt.Errorf("failed to create PostgreSQL migrate driver: %w", err)
		}
		return driver, nil
	}
	return nil, fmt.Errorf("unsupported backend: %s", backend)
}

// migrationDir maps a backend to its embedded migrations directory.
func migrationDir(backend schema.DatabaseBackend) string {
	switch backend {
	case schema.MySQLBackend:
		return "mysql"
	case schema.PostgreSQLBackend:
		return "postgres"
	default:
		return "sqlite"
	}
}

// SchemaVersion returns the applied migration version and dirty flag. Version 0 means no migrations.
func (s *Store) SchemaVersion(ctx context.Context) (uint, bool, error) {
	if s.disabled() {
		return 0, false, nil
	}
	var version int64
	var dirty bool
	err := s.queryRow(ctx, "SELECT version, dirty FROM schema_migrations LIMIT 1").Scan(&version, &dirty)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to read schema version: %w", err)
	}
	return uint(version), dirty, nil
}
