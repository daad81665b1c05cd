// Package store is the append-only audit log: every model call and every
// graded attempt, kept in SQLite or Postgres for inspection from the CLI.
// Learner state itself never lives here.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"entgo.io/ent/dialect/sql/schema"

	// Postgres driver.
	_ "github.com/lib/pq"
	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Store holds the database handle and the shared sequence counter.
type Store struct {
	db      *sql.DB
	dialect string
	seq     *sequenceCounter
	now     func() time.Time
}

// Open connects to the database, applies driver settings and migrates the
// schema. driver is "sqlite" (dsn is a file path or modernc DSN) or
// "postgres" (dsn is a lib/pq connection string).
func Open(driver, dsn string) (*Store, error) {
	db, dialectName, err := connect(driver, dsn)
	if err != nil {
		return nil, err
	}

	s := newStore(db, dialectName)
	if err := s.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("auto-migrate: %w", err)
	}
	return s, nil
}

func connect(driver, dsn string) (*sql.DB, string, error) {
	switch driver {
	case DriverSQLite, "":
		db, err := sql.Open("sqlite", dsn)
		if err != nil {
			return nil, "", fmt.Errorf("open database: %w", err)
		}
		// Pragmas are per connection.
		db.SetMaxOpenConns(1)
		if err := applyPragmas(db); err != nil {
			db.Close()
			return nil, "", fmt.Errorf("apply pragmas: %w", err)
		}
		return db, dialect.SQLite, nil

	case DriverPostgres:
		db, err := sql.Open("postgres", dsn)
		if err != nil {
			return nil, "", fmt.Errorf("open database: %w", err)
		}
		if err := db.Ping(); err != nil {
			db.Close()
			return nil, "", fmt.Errorf("ping database: %w", err)
		}
		return db, dialect.Postgres, nil
	}
	return nil, "", fmt.Errorf("unsupported store driver %q", driver)
}

func newStore(db *sql.DB, dialectName string) *Store {
	return &Store{
		db:      db,
		dialect: dialectName,
		seq:     &sequenceCounter{db: db},
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Migrate creates or updates the audit tables and seeds the sequence row.
func (s *Store) Migrate(ctx context.Context) error {
	m, err := schema.NewMigrate(entsql.OpenDB(s.dialect, s.db))
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	if err := m.Create(ctx, tables...); err != nil {
		return err
	}
	return s.seq.seed(ctx)
}

// DB returns the underlying *sql.DB for raw queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// applyPragmas configures SQLite for a single-process service.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

// DefaultDBPath resolves the database file path in priority order:
// 1. ANUVAD_DB environment variable
// 2. $XDG_DATA_HOME/anuvad/anuvad.db
// 3. ~/.local/share/anuvad/anuvad.db
func DefaultDBPath() (string, error) {
	if p := os.Getenv("ANUVAD_DB"); p != "" {
		return p, EnsureDir(p)
	}

	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dataHome = filepath.Join(home, ".local", "share")
	}

	p := filepath.Join(dataHome, "anuvad", "anuvad.db")
	return p, EnsureDir(p)
}

// EnsureDir creates the parent directory of path if it doesn't exist.
func EnsureDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o755)
}
