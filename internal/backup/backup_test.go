package backup

import (
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/julianstephens/identityforge/internal/constants"
)

func setupTestDB(t *testing.T) string {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "identityforge.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	defer db.Close()

	stmts := []string{
		`CREATE TABLE identities (id TEXT PRIMARY KEY, name TEXT NOT NULL)`,
		`INSERT INTO identities (id, name) VALUES ('i-1', 'Present father')`,
		`INSERT INTO identities (id, name) VALUES ('i-2', 'Runner')`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("failed to seed test database: %v", err)
		}
	}

	return dbPath
}

func countIdentities(t *testing.T, path string) int {
	t.Helper()

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("failed to open %s: %v", path, err)
	}
	defer db.Close()

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM identities").Scan(&count); err != nil {
		t.Fatalf("failed to count identities: %v", err)
	}
	return count
}

// steppingClock returns a clock advancing one second per call.
func steppingClock(start time.Time) func() time.Time {
	current := start
	return func() time.Time {
		current = current.Add(time.Second)
		return current
	}
}

func TestCreate(t *testing.T) {
	dbPath := setupTestDB(t)
	mgr := NewManager(dbPath)

	backupPath, err := mgr.Create()
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if filepath.Dir(backupPath) != mgr.Dir() {
		t.Errorf("expected backup in %s, got %s", mgr.Dir(), backupPath)
	}
	if got := countIdentities(t, backupPath); got != 2 {
		t.Errorf("expected 2 identities in backup, got %d", got)
	}
}

func TestCreateMissingDatabase(t *testing.T) {
	mgr := NewManager(filepath.Join(t.TempDir(), "missing.db"))

	if _, err := mgr.Create(); err == nil {
		t.Error("expected error for missing database")
	}
}

func TestRotation(t *testing.T) {
	dbPath := setupTestDB(t)
	mgr := NewManager(dbPath)
	mgr.now = steppingClock(time.Date(2026, 1, 1, 9, 0, 0, 0, time.Local))

	for i := 0; i < constants.MaxBackups+5; i++ {
		if _, err := mgr.Create(); err != nil {
			t.Fatalf("Create %d failed: %v", i, err)
		}
	}

	backups, err := mgr.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(backups) != constants.MaxBackups {
		t.Errorf("expected %d backups after rotation, got %d", constants.MaxBackups, len(backups))
	}
}

func TestListNewestFirst(t *testing.T) {
	dbPath := setupTestDB(t)
	mgr := NewManager(dbPath)
	mgr.now = steppingClock(time.Date(2026, 1, 1, 9, 0, 0, 0, time.Local))

	for i := 0; i < 3; i++ {
		if _, err := mgr.Create(); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	// Unrelated files are ignored.
	if err := os.WriteFile(filepath.Join(mgr.Dir(), "notes.txt"), []byte("x"), 0600); err != nil {
		t.Fatalf("failed to write stray file: %v", err)
	}

	backups, err := mgr.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(backups) != 3 {
		t.Fatalf("expected 3 backups, got %d", len(backups))
	}
	for i := 1; i < len(backups); i++ {
		if backups[i].Timestamp.After(backups[i-1].Timestamp) {
			t.Errorf("backups not sorted newest first at %d", i)
		}
	}
}

func TestListWithoutBackupDir(t *testing.T) {
	mgr := NewManager(filepath.Join(t.TempDir(), "identityforge.db"))

	backups, err := mgr.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(backups) != 0 {
		t.Errorf("expected no backups, got %d", len(backups))
	}
}

func TestUniqueFilenames(t *testing.T) {
	dbPath := setupTestDB(t)
	mgr := NewManager(dbPath)
	fixed := time.Date(2026, 1, 1, 9, 0, 0, 0, time.Local)
	mgr.now = func() time.Time { return fixed }

	first, err := mgr.Create()
	if err != nil {
		t.Fatalf("first Create failed: %v", err)
	}
	second, err := mgr.Create()
	if err != nil {
		t.Fatalf("second Create failed: %v", err)
	}
	if first == second {
		t.Errorf("expected distinct backup paths, both were %s", first)
	}

	backups, err := mgr.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(backups) != 2 {
		t.Errorf("expected 2 backups, got %d", len(backups))
	}
}

func TestRestore(t *testing.T) {
	dbPath := setupTestDB(t)
	mgr := NewManager(dbPath)
	mgr.now = steppingClock(time.Date(2026, 1, 1, 9, 0, 0, 0, time.Local))

	backupPath, err := mgr.Create()
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if _, err := db.Exec("DELETE FROM identities"); err != nil {
		t.Fatalf("failed to delete rows: %v", err)
	}
	db.Close()

	if got := countIdentities(t, dbPath); got != 0 {
		t.Fatalf("expected 0 identities before restore, got %d", got)
	}

	if err := mgr.Restore(backupPath); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if got := countIdentities(t, dbPath); got != 2 {
		t.Errorf("expected 2 identities after restore, got %d", got)
	}

	// The pre-restore snapshot is kept alongside the original backup.
	backups, err := mgr.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(backups) != 2 {
		t.Errorf("expected 2 backups after restore, got %d", len(backups))
	}
}

func TestRestoreRejectsInvalidFile(t *testing.T) {
	dbPath := setupTestDB(t)
	mgr := NewManager(dbPath)

	bogus := filepath.Join(t.TempDir(), "bogus.db")
	if err := os.WriteFile(bogus, []byte(strings.Repeat("definitely not sqlite ", 64)), 0600); err != nil {
		t.Fatalf("failed to write bogus file: %v", err)
	}

	if err := mgr.Restore(bogus); err == nil {
		t.Error("expected error restoring an invalid file")
	}
	if err := mgr.Restore(filepath.Join(t.TempDir(), "missing.db")); err == nil {
		t.Error("expected error restoring a missing file")
	}
	if got := countIdentities(t, dbPath); got != 2 {
		t.Errorf("expected database untouched, got %d identities", got)
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		name string
		file string
		ok   bool
	}{
		{"plain", "identityforge-20260101-090000.db", true},
		{"with counter", "identityforge-20260101-090000-3.db", true},
		{"garbage", "identityforge-yesterday.db", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := parseTimestamp(tt.file)
			if ok != tt.ok {
				t.Errorf("parseTimestamp(%q) ok = %v, want %v", tt.file, ok, tt.ok)
			}
		})
	}
}
