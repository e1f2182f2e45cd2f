package cli

import (
	"fmt"
	"time"

	"github.com/julianstephens/identityforge/internal/backup"
	"github.com/julianstephens/identityforge/internal/migration"
	"github.com/julianstephens/identityforge/internal/validation"
)

type DoctorCmd struct{}

func (cmd *DoctorCmd) Run(ctx *Context) error {
	ctx.println("Running diagnostics...")
	ctx.println()

	hasError := false
	check := func(name string, err error) {
		if err != nil {
			ctx.printf("❌ %s: FAIL\n", name)
			ctx.printf("   Error: %v\n", err)
			hasError = true
			return
		}
		ctx.printf("%s %s: OK\n", okStyle.Render("✓"), name)
	}
	warn := func(name string, err error) {
		if err != nil {
			ctx.printf("⚠ %s: WARNING\n", name)
			ctx.printf("   %v\n", err)
			return
		}
		ctx.printf("%s %s: OK\n", okStyle.Render("✓"), name)
	}

	reachErr := checkDBReachable(ctx)
	check("Database reachable", reachErr)

	if reachErr == nil {
		runner := migration.NewRunner(ctx.DB, migration.All)
		check("Schema version", runner.ValidateVersion(ctx.Ctx))
		check("Migrations complete", checkMigrationsComplete(ctx, runner))
		check("Vote identities", checkVoteIdentities(ctx))
		warn("Data validation", checkValidation(ctx))
		if err := printRowCounts(ctx); err != nil {
			check("Row counts", err)
		}
	} else {
		ctx.println("⊘ Schema and data checks: SKIPPED (database not reachable)")
	}

	warn("Backups present", checkBackupsPresent(ctx))
	check("Clock", checkClock())

	ctx.println()
	if hasError {
		ctx.println("Diagnostics completed with errors.")
		return fmt.Errorf("one or more health checks failed")
	}

	ctx.println("All diagnostics passed!")
	return nil
}

func checkDBReachable(ctx *Context) error {
	if ctx.DB == nil {
		return fmt.Errorf("no SQLite store is open")
	}
	var result int
	if err := ctx.DB.QueryRowContext(ctx.Ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("failed to query database: %w", err)
	}
	return nil
}

func checkMigrationsComplete(ctx *Context, runner *migration.Runner) error {
	pending, err := runner.Pending(ctx.Ctx)
	if err != nil {
		return err
	}
	if len(pending) > 0 {
		return fmt.Errorf("%d migration(s) pending, starting with %d (%s)", len(pending), pending[0].Version, pending[0].Name)
	}
	return nil
}

// checkVoteIdentities finds votes whose identity_id disagrees with their
// habit. The insert trigger prevents new ones; older files may carry them.
func checkVoteIdentities(ctx *Context) error {
	var count int
	err := ctx.DB.QueryRowContext(ctx.Ctx, `
		SELECT COUNT(1)
		FROM votes v
		LEFT JOIN habits h ON h.id = v.habit_id
		WHERE v.identity_id IS NOT h.identity_id`).Scan(&count)
	if err != nil {
		return fmt.Errorf("failed to check votes: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("%d vote(s) record a different identity than their habit", count)
	}
	return nil
}

func checkValidation(ctx *Context) error {
	identities, err := ctx.Store.Identities().ListActive(ctx.Ctx)
	if err != nil {
		return fmt.Errorf("failed to get identities: %w", err)
	}
	habits, err := ctx.Store.Habits().ListActive(ctx.Ctx)
	if err != nil {
		return fmt.Errorf("failed to get habits: %w", err)
	}

	result := validation.New().Validate(identities, habits)
	if result.HasConflicts() {
		return fmt.Errorf("%s", result.FormatReport())
	}
	return nil
}

func printRowCounts(ctx *Context) error {
	for _, table := range []string{"identities", "habits", "votes"} {
		var total, active int
		err := ctx.DB.QueryRowContext(ctx.Ctx,
			"SELECT COUNT(1), COUNT(1) - COUNT(deleted_at) FROM "+table,
		).Scan(&total, &active)
		if err != nil {
			return fmt.Errorf("failed to count %s: %w", table, err)
		}
		ctx.printf("   %-10s %d active, %d total\n", table, active, total)
	}
	return nil
}

func checkBackupsPresent(ctx *Context) error {
	mgr := backup.NewManager(ctx.DBPath)
	backups, err := mgr.List()
	if err != nil {
		return fmt.Errorf("failed to list backups: %w", err)
	}
	if len(backups) == 0 {
		return fmt.Errorf("no backups found - consider creating one with 'identityforge backup create'")
	}
	return nil
}

func checkClock() error {
	now := time.Now()
	if now.Year() < 2020 || now.Year() > 2100 {
		return fmt.Errorf("system time appears incorrect: %s", now.Format(time.RFC3339))
	}
	return nil
}
