package migration

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	db.SetMaxOpenConns(1)

	t.Cleanup(func() {
		db.Close()
	})
	return db
}

func ledgerCount(t *testing.T, db *sql.DB) int {
	t.Helper()

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
		t.Fatalf("failed to count ledger rows: %v", err)
	}
	return count
}

func TestMigrateFromScratch(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	runner := NewRunner(db, All)

	count, err := runner.Migrate(ctx)
	if err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	if count != len(All) {
		t.Errorf("expected %d migrations applied, got %d", len(All), count)
	}

	version, err := runner.CurrentVersion(ctx)
	if err != nil {
		t.Fatalf("CurrentVersion failed: %v", err)
	}
	if version != All[len(All)-1].Version {
		t.Errorf("expected version %d, got %d", All[len(All)-1].Version, version)
	}

	for _, table := range []string{"identities", "habits", "votes", "schema_migrations"} {
		exists, err := TableExists(ctx, db, table)
		if err != nil {
			t.Fatalf("TableExists(%s) failed: %v", table, err)
		}
		if !exists {
			t.Errorf("table %s was not created", table)
		}
	}

	for _, column := range []string{"identity_id", "updated_at", "value", "deleted_at"} {
		exists, err := ColumnExists(ctx, db, "votes", column)
		if err != nil {
			t.Fatalf("ColumnExists(votes, %s) failed: %v", column, err)
		}
		if !exists {
			t.Errorf("votes.%s is missing", column)
		}
	}
}

func TestMigrateTwiceIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	runner := NewRunner(db, All)

	if _, err := runner.Migrate(ctx); err != nil {
		t.Fatalf("first Migrate failed: %v", err)
	}

	count, err := runner.Migrate(ctx)
	if err != nil {
		t.Fatalf("second Migrate failed: %v", err)
	}
	if count != 0 {
		t.Errorf("expected 0 migrations on re-run, got %d", count)
	}
	if got := ledgerCount(t, db); got != len(All) {
		t.Errorf("expected %d ledger rows, got %d", len(All), got)
	}
}

func TestMigrateUpgradesLegacyStore(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	// A store last opened by the first release.
	if _, err := NewRunner(db, All[:1]).Migrate(ctx); err != nil {
		t.Fatalf("legacy Migrate failed: %v", err)
	}

	stmts := []string{
		`INSERT INTO identities (id, name, created_at, updated_at) VALUES ('i-1', 'Runner', 10, 10)`,
		`INSERT INTO habits (id, identity_id, name, created_at, updated_at) VALUES ('h-1', 'i-1', 'Run', 20, 20)`,
		`INSERT INTO votes (id, habit_id, value, created_at) VALUES ('v-1', 'h-1', NULL, 30)`,
		`INSERT INTO votes (id, habit_id, value, created_at) VALUES ('v-2', 'h-1', 5, 40)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("failed to seed legacy data: %v", err)
		}
	}

	count, err := NewRunner(db, All).Migrate(ctx)
	if err != nil {
		t.Fatalf("upgrade Migrate failed: %v", err)
	}
	if count != len(All)-1 {
		t.Errorf("expected %d migrations applied, got %d", len(All)-1, count)
	}

	rows, err := db.Query("SELECT id, identity_id, created_at, updated_at FROM votes ORDER BY id")
	if err != nil {
		t.Fatalf("failed to query votes: %v", err)
	}
	defer rows.Close()

	seen := 0
	for rows.Next() {
		var id, identityID string
		var createdAt, updatedAt int64
		if err := rows.Scan(&id, &identityID, &createdAt, &updatedAt); err != nil {
			t.Fatalf("scan failed: %v", err)
		}
		if identityID != "i-1" {
			t.Errorf("vote %s: expected identity_id i-1, got %q", id, identityID)
		}
		if updatedAt != createdAt {
			t.Errorf("vote %s: expected updated_at %d, got %d", id, createdAt, updatedAt)
		}
		seen++
	}
	if seen != 2 {
		t.Errorf("expected 2 votes, got %d", seen)
	}
}

func TestMigrateSkipsColumnsThatAlreadyExist(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	// Tables created out of band with the full current shape but no ledger.
	_, err := db.Exec(`
		CREATE TABLE identities (id TEXT PRIMARY KEY, name TEXT NOT NULL, created_at INTEGER NOT NULL, updated_at INTEGER NOT NULL, deleted_at INTEGER NULL);
		CREATE TABLE habits (id TEXT PRIMARY KEY, identity_id TEXT NOT NULL, name TEXT NOT NULL, created_at INTEGER NOT NULL, updated_at INTEGER NOT NULL, deleted_at INTEGER NULL);
		CREATE TABLE votes (id TEXT PRIMARY KEY, identity_id TEXT NULL, habit_id TEXT NOT NULL, value INTEGER NULL, created_at INTEGER NOT NULL, updated_at INTEGER NULL, deleted_at INTEGER NULL);
	`)
	if err != nil {
		t.Fatalf("failed to pre-create tables: %v", err)
	}

	if _, err := NewRunner(db, All).Migrate(ctx); err != nil {
		t.Fatalf("Migrate failed on pre-existing columns: %v", err)
	}
	if got := ledgerCount(t, db); got != len(All) {
		t.Errorf("expected %d ledger rows, got %d", len(All), got)
	}
}

func TestMigrateRejectsNewerDatabase(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	runner := NewRunner(db, All)

	if err := runner.EnsureLedger(ctx); err != nil {
		t.Fatalf("EnsureLedger failed: %v", err)
	}
	if _, err := db.Exec("INSERT INTO schema_migrations (version, applied_at) VALUES (99, 0)"); err != nil {
		t.Fatalf("failed to seed ledger: %v", err)
	}

	_, err := runner.Migrate(ctx)
	if err == nil {
		t.Fatal("expected error for newer schema version")
	}
	if !strings.Contains(err.Error(), "newer than supported") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestMigrateFailureStopsAndIsNotRecorded(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	broken := []Migration{
		{Version: 1, Name: "ok", Up: func(ctx context.Context, tx Execer) error {
			_, err := tx.ExecContext(ctx, "CREATE TABLE t1 (id INTEGER)")
			return err
		}},
		{Version: 2, Name: "broken", Up: func(ctx context.Context, tx Execer) error {
			_, err := tx.ExecContext(ctx, "CREATE TABLE oops (")
			return err
		}},
		{Version: 3, Name: "never", Up: func(ctx context.Context, tx Execer) error {
			return fmt.Errorf("must not run")
		}},
	}

	count, err := NewRunner(db, broken).Migrate(ctx)
	if err == nil {
		t.Fatal("expected migration error")
	}
	if !strings.Contains(err.Error(), "migration 2") {
		t.Errorf("expected error to name migration 2, got %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 migration applied before failure, got %d", count)
	}
	if got := ledgerCount(t, db); got != 1 {
		t.Errorf("expected 1 ledger row, got %d", got)
	}
}

func TestMigrationsValidation(t *testing.T) {
	noop := func(ctx context.Context, tx Execer) error { return nil }

	tests := []struct {
		name       string
		migrations []Migration
		wantErr    string
	}{
		{
			name:       "duplicate versions",
			migrations: []Migration{{Version: 1, Name: "a", Up: noop}, {Version: 1, Name: "b", Up: noop}},
			wantErr:    "duplicate migration version 1",
		},
		{
			name:       "zero version",
			migrations: []Migration{{Version: 0, Name: "zero", Up: noop}},
			wantErr:    "must be at least 1",
		},
		{
			name:       "missing body",
			migrations: []Migration{{Version: 1, Name: "empty"}},
			wantErr:    "has no body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRunner(nil, tt.migrations).Migrations()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestMigrationsAreSorted(t *testing.T) {
	noop := func(ctx context.Context, tx Execer) error { return nil }
	runner := NewRunner(nil, []Migration{
		{Version: 3, Name: "c", Up: noop},
		{Version: 1, Name: "a", Up: noop},
		{Version: 2, Name: "b", Up: noop},
	})

	migrations, err := runner.Migrations()
	if err != nil {
		t.Fatalf("Migrations failed: %v", err)
	}
	for i, m := range migrations {
		if m.Version != i+1 {
			t.Errorf("position %d: expected version %d, got %d", i, i+1, m.Version)
		}
	}

	latest, err := runner.LatestVersion()
	if err != nil || latest != 3 {
		t.Errorf("expected latest version 3, got %d (%v)", latest, err)
	}
}

func TestAppliedAtUsesClock(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	fixed := time.UnixMilli(1_700_000_000_000)

	runner := NewRunner(db, All[:1], WithClock(func() time.Time { return fixed }))
	if _, err := runner.Migrate(ctx); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}

	var appliedAt int64
	if err := db.QueryRow("SELECT applied_at FROM schema_migrations WHERE version = 1").Scan(&appliedAt); err != nil {
		t.Fatalf("failed to read applied_at: %v", err)
	}
	if appliedAt != fixed.UnixMilli() {
		t.Errorf("expected applied_at %d, got %d", fixed.UnixMilli(), appliedAt)
	}
}

func TestPending(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if _, err := NewRunner(db, All[:2]).Migrate(ctx); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}

	pending, err := NewRunner(db, All).Pending(ctx)
	if err != nil {
		t.Fatalf("Pending failed: %v", err)
	}
	if len(pending) != len(All)-2 {
		t.Fatalf("expected %d pending, got %d", len(All)-2, len(pending))
	}
	if pending[0].Version != 3 {
		t.Errorf("expected first pending version 3, got %d", pending[0].Version)
	}
}

func TestVoteIdentityTrigger(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if _, err := NewRunner(db, All).Migrate(ctx); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}

	stmts := []string{
		`INSERT INTO identities (id, name, created_at, updated_at) VALUES ('i-1', 'A', 1, 1)`,
		`INSERT INTO identities (id, name, created_at, updated_at) VALUES ('i-2', 'B', 1, 1)`,
		`INSERT INTO habits (id, identity_id, name, created_at, updated_at) VALUES ('h-1', 'i-1', 'H', 1, 1)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("failed to seed: %v", err)
		}
	}

	_, err := db.Exec(`INSERT INTO votes (id, identity_id, habit_id, created_at, updated_at) VALUES ('v-ok', 'i-1', 'h-1', 2, 2)`)
	if err != nil {
		t.Fatalf("expected matching vote to insert, got %v", err)
	}

	_, err = db.Exec(`INSERT INTO votes (id, identity_id, habit_id, created_at, updated_at) VALUES ('v-bad', 'i-2', 'h-1', 2, 2)`)
	if err == nil {
		t.Fatal("expected trigger to reject mismatched identity_id")
	}
	if !strings.Contains(err.Error(), "does not match") {
		t.Errorf("unexpected error: %v", err)
	}
}
