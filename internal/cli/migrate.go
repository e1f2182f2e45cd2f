package cli

import (
	"fmt"

	"github.com/julianstephens/identityforge/internal/migration"
)

type MigrateCmd struct{}

func (c *MigrateCmd) Run(ctx *Context) error {
	if ctx.DB == nil {
		return fmt.Errorf("migrations require a SQLite store")
	}

	runner := migration.NewRunner(ctx.DB, migration.All)
	applied, err := runner.Migrate(ctx.Ctx)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	// Opening the store already migrates, so count those too.
	applied += ctx.Applied

	current, err := runner.CurrentVersion(ctx.Ctx)
	if err != nil {
		return err
	}

	if applied == 0 {
		ctx.printf("✓ Database schema is up to date (version %d)\n", current)
		return nil
	}
	ctx.printf("✓ Applied %d migration(s), schema is now at version %d\n", applied, current)
	return nil
}
