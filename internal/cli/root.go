package cli

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/huh"

	"github.com/julianstephens/identityforge/internal/config"
	"github.com/julianstephens/identityforge/internal/constants"
	"github.com/julianstephens/identityforge/internal/errors"
	"github.com/julianstephens/identityforge/internal/models"
	"github.com/julianstephens/identityforge/internal/storage"
	"github.com/julianstephens/identityforge/internal/storage/sqlite"
)

// App is the kong command tree.
type App struct {
	Version kong.VersionFlag `help:"Print version and exit."`
	Config  kong.ConfigFlag  `help:"YAML config file." placeholder:"FILE"`
	DB      string           `name:"db" help:"Database path." type:"path" default:"${db_path}" env:"${env_db}"`
	Debug   bool             `help:"Log debug output to stderr." env:"${env_debug}"`

	Migrate   MigrateCmd   `cmd:"" help:"Apply pending schema migrations."`
	Doctor    DoctorCmd    `cmd:"" help:"Run health checks."`
	Identity  IdentityCmd  `cmd:"" help:"Manage identities."`
	Habit     HabitCmd     `cmd:"" help:"Manage habits."`
	Vote      VoteCmd      `cmd:"" help:"Cast and list votes."`
	Dashboard DashboardCmd `cmd:"" help:"Show vote totals per identity." default:"1"`
	History   HistoryCmd   `cmd:"" help:"Show recent votes across identities."`
	Backup    BackupCmd    `cmd:"" help:"Manage database backups."`
	Inspect   InspectCmd   `cmd:"" help:"Print raw store data as JSON."`
	Tui       TuiCmd       `cmd:"" help:"Open the interactive dashboard."`
}

// Vars are the interpolation variables App's tags expect.
func Vars() kong.Vars {
	return kong.Vars{
		"version":   constants.Version,
		"db_path":   constants.DefaultDBPath,
		"env_db":    constants.EnvDBPath,
		"env_debug": constants.EnvDebug,

		"history_limit": strconv.Itoa(constants.DefaultHistoryLimit),
	}
}

// Options returns the kong options App needs, loading YAML config from
// the first of configPaths that exists.
func Options(configPaths ...string) []kong.Option {
	return []kong.Option{
		Vars(),
		kong.Configuration(config.YAML, configPaths...),
	}
}

// Context is passed to every command's Run method.
type Context struct {
	Ctx    context.Context
	Store  storage.Provider
	DB     *sql.DB // nil unless Store is SQLite-backed
	DBPath string

	// Applied is the number of migrations run when the store was opened.
	Applied int

	Now     func() models.Millis
	Out     io.Writer
	Confirm func(title string) (bool, error)
}

// Open builds the context for command. Backup commands replace the store
// file, so they run without an open handle.
func Open(ctx context.Context, app *App, command string) (*Context, error) {
	c := &Context{
		Ctx:     ctx,
		DBPath:  app.DB,
		Now:     models.Now,
		Out:     os.Stdout,
		Confirm: confirm,
	}

	if strings.HasPrefix(command, "backup") {
		return c, nil
	}

	store, err := sqlite.Open(ctx, app.DB)
	if err != nil {
		return nil, errors.WithHint(
			fmt.Errorf("failed to open database %s: %w", app.DB, err),
			"restore a snapshot with 'identityforge backup list' and 'identityforge backup restore'",
		)
	}
	c.Store = store
	c.DB = store.DB()
	c.Applied = store.Applied()
	return c, nil
}

// Close releases the store, if one was opened.
func (c *Context) Close() error {
	if c.Store == nil {
		return nil
	}
	return c.Store.Close()
}

func (c *Context) printf(format string, args ...any) {
	fmt.Fprintf(c.Out, format, args...)
}

func (c *Context) println(args ...any) {
	fmt.Fprintln(c.Out, args...)
}

func confirm(title string) (bool, error) {
	var ok bool
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Affirmative("Yes").
				Negative("No").
				Value(&ok),
		),
	).Run()
	if err != nil {
		return false, err
	}
	return ok, nil
}

func formatTime(m models.Millis) string {
	return m.Time().Format("2006-01-02 15:04:05")
}

func formatOptionalTime(m *models.Millis) string {
	if m == nil {
		return "never"
	}
	return formatTime(*m)
}
