package migration

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/julianstephens/identityforge/internal/logger"
)

// Execer is the subset of *sql.DB and *sql.Tx a migration body needs.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Migration represents a single database migration
type Migration struct {
	Version int
	Name    string
	Up      func(ctx context.Context, tx Execer) error
}

// Runner manages database schema migrations
type Runner struct {
	db         *sql.DB
	migrations []Migration
	now        func() time.Time
}

// Option configures a Runner.
type Option func(*Runner)

// WithClock overrides the clock used for applied_at.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		r.now = now
	}
}

// NewRunner creates a new migration runner over the given migrations.
func NewRunner(db *sql.DB, migrations []Migration, opts ...Option) *Runner {
	r := &Runner{
		db:         db,
		migrations: migrations,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// EnsureLedger creates the schema_migrations table if it doesn't exist
func (r *Runner) EnsureLedger(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at INTEGER NOT NULL
		)
	`)
	return err
}

// Migrations returns the registered migrations sorted by version.
// Returns an error on duplicate or non-positive versions.
func (r *Runner) Migrations() ([]Migration, error) {
	sorted := make([]Migration, len(r.migrations))
	copy(sorted, r.migrations)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Version < sorted[j].Version
	})

	for i, m := range sorted {
		if m.Version < 1 {
			return nil, fmt.Errorf("invalid migration version %d (%s): version must be at least 1", m.Version, m.Name)
		}
		if m.Up == nil {
			return nil, fmt.Errorf("migration %d (%s) has no body", m.Version, m.Name)
		}
		if i > 0 && sorted[i-1].Version == m.Version {
			return nil, fmt.Errorf("duplicate migration version %d", m.Version)
		}
	}
	return sorted, nil
}

// LatestVersion returns the highest registered migration version
func (r *Runner) LatestVersion() (int, error) {
	migrations, err := r.Migrations()
	if err != nil {
		return 0, err
	}
	if len(migrations) == 0 {
		return 0, nil
	}
	return migrations[len(migrations)-1].Version, nil
}

// CurrentVersion returns the highest version recorded in the ledger.
// Returns 0 for a fresh database.
func (r *Runner) CurrentVersion(ctx context.Context) (int, error) {
	if err := r.EnsureLedger(ctx); err != nil {
		return 0, fmt.Errorf("failed to ensure schema_migrations table: %w", err)
	}

	var version int
	err := r.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to get current version: %w", err)
	}
	return version, nil
}

// Pending returns the registered migrations absent from the ledger, in order.
func (r *Runner) Pending(ctx context.Context) ([]Migration, error) {
	if err := r.EnsureLedger(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure schema_migrations table: %w", err)
	}

	migrations, err := r.Migrations()
	if err != nil {
		return nil, err
	}

	var pending []Migration
	for _, m := range migrations {
		applied, err := isApplied(ctx, r.db, m.Version)
		if err != nil {
			return nil, err
		}
		if !applied {
			pending = append(pending, m)
		}
	}
	return pending, nil
}

// ValidateVersion checks if the database version is compatible with the application
func (r *Runner) ValidateVersion(ctx context.Context) error {
	current, err := r.CurrentVersion(ctx)
	if err != nil {
		return err
	}

	latest, err := r.LatestVersion()
	if err != nil {
		return err
	}

	if current > latest {
		return fmt.Errorf("database schema version (%d) is newer than supported version (%d) - please upgrade the application", current, latest)
	}
	return nil
}

// Migrate applies every registered migration missing from the ledger, in
// ascending order, and returns how many ran. It is safe to call on every start.
func (r *Runner) Migrate(ctx context.Context) (int, error) {
	if err := r.ValidateVersion(ctx); err != nil {
		return 0, err
	}

	migrations, err := r.Migrations()
	if err != nil {
		return 0, fmt.Errorf("failed to read migrations: %w", err)
	}

	startTime := r.now()
	appliedCount := 0

	for _, m := range migrations {
		applied, err := isApplied(ctx, r.db, m.Version)
		if err != nil {
			return appliedCount, err
		}
		if applied {
			continue
		}

		logger.Info("Applying migration", "version", m.Version, "name", m.Name)
		if err := r.apply(ctx, m); err != nil {
			return appliedCount, err
		}
		appliedCount++
	}

	if appliedCount == 0 {
		logger.Debug("Database schema is up to date", "migrations", len(migrations))
		return 0, nil
	}

	logger.Info("Migrations applied", "count", appliedCount, "duration", r.now().Sub(startTime))
	return appliedCount, nil
}

func (r *Runner) apply(ctx context.Context, m Migration) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for migration %d: %w", m.Version, err)
	}

	if err := m.Up(ctx, tx); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to apply migration %d (%s): %w", m.Version, m.Name, err)
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)",
		m.Version, r.now().UnixMilli(),
	); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to record migration %d: %w", m.Version, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration %d: %w", m.Version, err)
	}
	return nil
}

func isApplied(ctx context.Context, q Execer, version int) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx, "SELECT 1 FROM schema_migrations WHERE version = ? LIMIT 1", version).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check migration %d: %w", version, err)
	}
	return true, nil
}

// TableExists reports whether table exists. The check is case-insensitive
// to match SQLite's behavior.
func TableExists(ctx context.Context, q Execer, table string) (bool, error) {
	var count int
	err := q.QueryRowContext(ctx,
		"SELECT count(*) FROM sqlite_master WHERE type='table' AND name COLLATE NOCASE = ?", table,
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ColumnExists reports whether table has column, using the schema metadata.
func ColumnExists(ctx context.Context, q Execer, table, column string) (bool, error) {
	var count int
	err := q.QueryRowContext(ctx,
		"SELECT count(*) FROM pragma_table_info(?) WHERE name = ?", table, column,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to inspect %s.%s: %w", table, column, err)
	}
	return count > 0, nil
}

// AddColumnIfMissing adds column to table unless it is already present.
// ADD COLUMN is not idempotent in SQLite, so the check comes first.
func AddColumnIfMissing(ctx context.Context, q Execer, table, column, definition string) error {
	exists, err := ColumnExists(ctx, q, table, column)
	if err != nil {
		return err
	}
	if exists {
		logger.Debug("Column already present", "table", table, "column", column)
		return nil
	}

	stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, definition)
	if _, err := q.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("failed to add %s.%s: %w", table, column, err)
	}
	return nil
}
