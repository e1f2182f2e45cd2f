// Package sqlite implements the storage interfaces on a single SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/julianstephens/identityforge/internal/backup"
	"github.com/julianstephens/identityforge/internal/logger"
	"github.com/julianstephens/identityforge/internal/migration"
	"github.com/julianstephens/identityforge/internal/storage"
)

const memoryPath = ":memory:"

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store bundles the identity, habit and vote repositories over one handle.
type Store struct {
	db      *sql.DB
	path    string
	applied int

	identities *IdentityRepository
	habits     *HabitRepository
	votes      *VoteRepository
}

var _ storage.Provider = (*Store)(nil)

// Open creates or opens the store at path, applies pragmas and brings the
// schema up to date. A snapshot is taken first when an existing store has
// pending migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if path != memoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection: SQLite has a single writer, and CastVote relies on
	// transactions being serialized.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if path != memoryPath {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	runner := migration.NewRunner(db, migration.All)
	if path != memoryPath {
		if err := backupBeforeMigrate(ctx, runner, path); err != nil {
			db.Close()
			return nil, err
		}
	}

	applied, err := runner.Migrate(ctx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	s := New(db)
	s.path = path
	s.applied = applied
	return s, nil
}

// backupBeforeMigrate snapshots a store that already holds data and is about
// to be migrated. Fresh stores are skipped.
func backupBeforeMigrate(ctx context.Context, runner *migration.Runner, path string) error {
	current, err := runner.CurrentVersion(ctx)
	if err != nil {
		return err
	}
	if current == 0 {
		return nil
	}

	pending, err := runner.Pending(ctx)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		return nil
	}

	logger.Info("Backing up database before migration", "from_version", current, "pending", len(pending))
	if _, err := backup.NewManager(path).Create(); err != nil {
		return fmt.Errorf("failed to back up database before migration: %w", err)
	}
	return nil
}

// New wraps an already-migrated handle. The caller keeps ownership of
// schema management.
func New(db *sql.DB) *Store {
	return &Store{
		db:         db,
		identities: NewIdentityRepository(db),
		habits:     NewHabitRepository(db),
		votes:      NewVoteRepository(db),
	}
}

func (s *Store) Identities() storage.IdentityStore { return s.identities }
func (s *Store) Habits() storage.HabitStore         { return s.habits }
func (s *Store) Votes() storage.VoteStore           { return s.votes }

// DB returns the underlying handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Path returns the file the store was opened from, or "" for New.
func (s *Store) Path() string {
	return s.path
}

// Applied returns how many migrations Open ran.
func (s *Store) Applied() int {
	return s.applied
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// withTx runs fn inside a transaction, rolling back on error.
func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
