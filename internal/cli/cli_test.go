package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianstephens/identityforge/internal/backup"
	"github.com/julianstephens/identityforge/internal/migration"
	"github.com/julianstephens/identityforge/internal/models"
	"github.com/julianstephens/identityforge/internal/storage"
	"github.com/julianstephens/identityforge/internal/storage/memory"
	"github.com/julianstephens/identityforge/internal/storage/sqlite"
)

var testNow = models.FromTime(time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC))

type testEnv struct {
	ctx     *Context
	out     *bytes.Buffer
	confirm bool
}

func newSQLiteEnv(t *testing.T) *testEnv {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "identityforge.db")
	store, err := sqlite.Open(context.Background(), dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	env := newEnv(store, dbPath)
	env.ctx.DB = store.DB()
	env.ctx.Applied = store.Applied()
	return env
}

func newMemoryEnv(t *testing.T) *testEnv {
	return newEnv(memory.New(), filepath.Join(t.TempDir(), "unused.db"))
}

func newEnv(store storage.Provider, dbPath string) *testEnv {
	env := &testEnv{out: &bytes.Buffer{}}
	now := testNow
	env.ctx = &Context{
		Ctx:    context.Background(),
		Store:  store,
		DBPath: dbPath,
		Now: func() models.Millis {
			now++
			return now
		},
		Out:     env.out,
		Confirm: func(string) (bool, error) { return env.confirm, nil },
	}
	return env
}

// run parses args with the real command tree and runs the selected command.
func (env *testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var app App
	parser, err := kong.New(&app, Options()...)
	require.NoError(t, err)

	kctx, err := parser.Parse(append([]string{"--db", env.ctx.DBPath}, args...))
	require.NoError(t, err)

	env.out.Reset()
	err = kctx.Run(env.ctx)
	return env.out.String(), err
}

func (env *testEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()

	out, err := env.run(t, args...)
	require.NoError(t, err, out)
	return out
}

func (env *testEnv) onlyIdentity(t *testing.T) models.Identity {
	t.Helper()

	identities, err := env.ctx.Store.Identities().ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, identities, 1)
	return identities[0]
}

func TestWorkflow(t *testing.T) {
	env := newSQLiteEnv(t)

	out := env.mustRun(t, "identity", "add", "Present father")
	assert.Contains(t, out, "Identity created: Present father")
	identity := env.onlyIdentity(t)

	out = env.mustRun(t, "identity", "list")
	assert.Contains(t, out, "Present father")
	assert.Contains(t, out, identity.ID.String())

	out = env.mustRun(t, "vote", "cast", identity.ID.String())
	assert.Contains(t, out, "Vote cast for Present father")

	out = env.mustRun(t, "habit", "list")
	assert.Contains(t, out, "Default Habit")
	assert.Contains(t, out, "Present father")

	habits, err := env.ctx.Store.Habits().ListActiveForIdentity(context.Background(), identity.ID)
	require.NoError(t, err)
	require.Len(t, habits, 1)
	habitID := habits[0].ID.String()

	out = env.mustRun(t, "vote", "add", habitID, "--value", "5")
	assert.Contains(t, out, "value 5")

	out = env.mustRun(t, "vote", "list", habitID)
	assert.Contains(t, out, "5")
	assert.Contains(t, out, "-")

	items, err := env.ctx.Store.Identities().GetIdentityDashboardItems(context.Background(), env.ctx.Now())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].VotesToday)
	assert.Equal(t, 2, items[0].TotalVotes)

	out = env.mustRun(t)
	assert.Contains(t, out, "Present father")
	assert.Contains(t, out, "Last 7 days")

	out = env.mustRun(t, "history", "--limit", "1")
	assert.Contains(t, out, "Present father")

	out = env.mustRun(t, "identity", "show", identity.ID.String())
	assert.Contains(t, out, "Default Habit")

	out = env.mustRun(t, "identity", "delete", "--yes", identity.ID.String())
	assert.Contains(t, out, "Identity deleted")

	out = env.mustRun(t, "dashboard")
	assert.Contains(t, out, "No identities yet")

	out = env.mustRun(t, "history")
	assert.Contains(t, out, "No votes yet")
}

func TestIdentityDeleteCancelled(t *testing.T) {
	env := newMemoryEnv(t)
	env.mustRun(t, "identity", "add", "Runner")
	identity := env.onlyIdentity(t)

	env.confirm = false
	out := env.mustRun(t, "identity", "delete", identity.ID.String())
	assert.Contains(t, out, "Delete cancelled")
	env.onlyIdentity(t)

	env.confirm = true
	env.mustRun(t, "identity", "delete", identity.ID.String())

	_, err := env.run(t, "identity", "delete", "--yes", identity.ID.String())
	assert.ErrorContains(t, err, "identity not found")
}

func TestInvalidNames(t *testing.T) {
	env := newMemoryEnv(t)

	_, err := env.run(t, "identity", "add", "   ")
	assert.ErrorContains(t, err, "identity name cannot be empty")

	env.mustRun(t, "identity", "add", "Reader")
	identity := env.onlyIdentity(t)

	_, err = env.run(t, "habit", "add", identity.ID.String(), "")
	assert.ErrorContains(t, err, "habit name cannot be empty")
}

func TestHabitCommands(t *testing.T) {
	env := newMemoryEnv(t)
	env.mustRun(t, "identity", "add", "Reader")
	identity := env.onlyIdentity(t)

	out := env.mustRun(t, "habit", "add", identity.ID.String(), "  Read 10 pages ")
	assert.Contains(t, out, "Habit created: Read 10 pages for Reader")

	habits, err := env.ctx.Store.Habits().ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, habits, 1)

	out = env.mustRun(t, "habit", "delete", habits[0].ID.String())
	assert.Contains(t, out, "Habit deleted")

	_, err = env.run(t, "habit", "delete", habits[0].ID.String())
	assert.ErrorContains(t, err, "habit not found")

	out = env.mustRun(t, "habit", "list")
	assert.Contains(t, out, "No habits yet")
}

func TestUnknownIDs(t *testing.T) {
	env := newMemoryEnv(t)
	missing := "7f1d3c1e-2b7a-4a53-9b39-0a4b8f9e6d21"

	_, err := env.run(t, "vote", "cast", missing)
	assert.ErrorContains(t, err, "identity not found")

	_, err = env.run(t, "vote", "add", missing)
	assert.ErrorContains(t, err, "habit not found")

	_, err = env.run(t, "habit", "add", missing, "Orphan")
	assert.ErrorContains(t, err, "identity not found")

	_, err = env.run(t, "identity", "show", missing)
	assert.ErrorContains(t, err, "identity not found")
}

func TestMigrateCmd(t *testing.T) {
	env := newSQLiteEnv(t)

	out := env.mustRun(t, "migrate")
	assert.Contains(t, out, "Applied 6 migration(s)")
	assert.Contains(t, out, "version 6")

	env.ctx.Applied = 0
	out = env.mustRun(t, "migrate")
	assert.Contains(t, out, "up to date (version 6)")

	runner := migration.NewRunner(env.ctx.DB, migration.All)
	pending, err := runner.Pending(context.Background())
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestMigrateRequiresSQLite(t *testing.T) {
	env := newMemoryEnv(t)

	_, err := env.run(t, "migrate")
	assert.Error(t, err)
}

func TestDoctor(t *testing.T) {
	env := newSQLiteEnv(t)
	env.mustRun(t, "identity", "add", "Runner")
	identity := env.onlyIdentity(t)
	env.mustRun(t, "vote", "cast", identity.ID.String())

	out := env.mustRun(t, "doctor")
	assert.Contains(t, out, "Database reachable: OK")
	assert.Contains(t, out, "Migrations complete: OK")
	assert.Contains(t, out, "Vote identities: OK")
	assert.Contains(t, out, "Backups present: WARNING")
	assert.Contains(t, out, "1 active, 1 total")
	assert.Contains(t, out, "All diagnostics passed!")
}

func TestDoctorFailsWithoutDatabase(t *testing.T) {
	env := newMemoryEnv(t)

	out, err := env.run(t, "doctor")
	assert.Error(t, err)
	assert.Contains(t, out, "Database reachable: FAIL")
}

func TestBackupCommands(t *testing.T) {
	env := newSQLiteEnv(t)
	env.mustRun(t, "identity", "add", "Snapshot me")

	out := env.mustRun(t, "backup", "list")
	assert.Contains(t, out, "No backups found")

	out = env.mustRun(t, "backup", "create")
	assert.Contains(t, out, "Backup created")

	backups, err := backup.NewManager(env.ctx.DBPath).List()
	require.NoError(t, err)
	require.Len(t, backups, 1)

	out = env.mustRun(t, "backup", "list")
	assert.Contains(t, out, filepath.Base(backups[0].Path))

	env.confirm = false
	out = env.mustRun(t, "backup", "restore", filepath.Base(backups[0].Path))
	assert.Contains(t, out, "Restore cancelled")

	_, err = env.run(t, "backup", "restore", "--yes", "does-not-exist.db")
	assert.ErrorContains(t, err, "backup file not found")
}

func TestInspect(t *testing.T) {
	env := newMemoryEnv(t)
	env.mustRun(t, "identity", "add", "Writer")
	identity := env.onlyIdentity(t)
	env.mustRun(t, "vote", "cast", identity.ID.String())

	out := env.mustRun(t, "inspect", "identity", identity.ID.String())

	var dump struct {
		Identity models.Identity         `json:"identity"`
		Habits   []models.HabitWithStats `json:"habits"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &dump))
	assert.Equal(t, identity.ID, dump.Identity.ID)
	require.Len(t, dump.Habits, 1)
	assert.Equal(t, 1, dump.Habits[0].VoteCount)
	require.NotNil(t, dump.Habits[0].LastVoteAt)

	out = env.mustRun(t, "inspect", "db-path")
	assert.Contains(t, out, env.ctx.DBPath)
}

func TestOpen(t *testing.T) {
	app := &App{DB: filepath.Join(t.TempDir(), "nested", "identityforge.db")}

	c, err := Open(context.Background(), app, "dashboard")
	require.NoError(t, err)
	require.NotNil(t, c.Store)
	assert.NotNil(t, c.DB)
	assert.Equal(t, len(migration.All), c.Applied)
	require.NoError(t, c.Close())

	c, err = Open(context.Background(), app, "backup create")
	require.NoError(t, err)
	assert.Nil(t, c.Store)
	assert.NoError(t, c.Close())
}

func TestParseValue(t *testing.T) {
	v, err := parseValue("")
	require.NoError(t, err)
	assert.Nil(t, v)

	v, err = parseValue(" 0 ")
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, int64(0), *v)

	v, err = parseValue("-12")
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, int64(-12), *v)

	_, err = parseValue("ten")
	assert.Error(t, err)
}
