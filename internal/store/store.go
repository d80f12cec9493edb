// Package store is the typed command layer over the relational store
// (spec §3, §6.4): every mutation goes through one statement or one
// transaction (spec §5 "Shared state"), and every query here is the
// concrete realization of a command spec.md's §3 data-model table and
// §4 component descriptions name in prose.
package store

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/ocrch/engine/internal/logging"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps a sqlx connection pool. All command methods live in
// sibling files grouped by entity (orders.go, deposits.go, transfers.go,
// cursor.go, admin.go).
type Store struct {
	DB *sqlx.DB
}

// Open connects to dsn and applies any pending migrations before
// returning, per spec §6.4 "Migrations are applied before the pipeline
// starts."
func Open(dsn string) (*Store, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	if err := Migrate(db.DB); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying migrations: %w", err)
	}
	return &Store{DB: db}, nil
}

// Migrate applies every pending migration in internal/store/migrations
// against db. Exposed standalone so tests can migrate an ephemeral
// database without going through Open.
func Migrate(db *sql.DB) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("loading embedded migrations: %w", err)
	}
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("creating postgres migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("running migrations: %w", err)
	}
	logging.Info("database migrations applied")
	return nil
}

// Close releases the underlying connection pool. The top-level driver
// calls this only after every supervised task has returned (spec §5).
func (s *Store) Close() error {
	return s.DB.Close()
}
