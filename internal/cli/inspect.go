package cli

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/julianstephens/identityforge/internal/models"
)

type InspectCmd struct {
	DBPath   InspectDBPathCmd   `cmd:"" name:"db-path" help:"Show database path."`
	Identity InspectIdentityCmd `cmd:"" help:"Dump an identity with its habits and stats."`
	Habit    InspectHabitCmd    `cmd:"" help:"Dump a habit with its recent votes."`
}

type InspectDBPathCmd struct{}

func (cmd *InspectDBPathCmd) Run(ctx *Context) error {
	return ctx.printJSON(map[string]string{"path": ctx.DBPath})
}

type InspectIdentityCmd struct {
	ID uuid.UUID `arg:"" help:"Identity ID."`
}

func (cmd *InspectIdentityCmd) Run(ctx *Context) error {
	identity, err := activeIdentity(ctx, cmd.ID)
	if err != nil {
		return err
	}

	habits, err := ctx.Store.Habits().ListActiveForIdentity(ctx.Ctx, identity.ID)
	if err != nil {
		return err
	}

	stats := make([]models.HabitWithStats, 0, len(habits))
	for _, h := range habits {
		s, err := habitStats(ctx, h, *identity)
		if err != nil {
			return err
		}
		stats = append(stats, s)
	}

	return ctx.printJSON(struct {
		Identity models.Identity         `json:"identity"`
		Habits   []models.HabitWithStats `json:"habits"`
	}{*identity, stats})
}

type InspectHabitCmd struct {
	ID    uuid.UUID `arg:"" help:"Habit ID."`
	Limit int       `help:"Maximum votes to include." default:"${history_limit}"`
}

func (cmd *InspectHabitCmd) Run(ctx *Context) error {
	habit, err := ctx.Store.Habits().GetActive(ctx.Ctx, cmd.ID)
	if err != nil {
		return err
	}
	if habit == nil {
		return fmt.Errorf("habit not found: %s", cmd.ID)
	}

	votes, err := ctx.Store.Votes().ListForHabit(ctx.Ctx, habit.ID, cmd.Limit)
	if err != nil {
		return err
	}

	return ctx.printJSON(struct {
		Habit models.Habit  `json:"habit"`
		Votes []models.Vote `json:"votes"`
	}{*habit, votes})
}

func (c *Context) printJSON(v any) error {
	jsonBytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	c.println(string(jsonBytes))
	return nil
}
