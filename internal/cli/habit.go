package cli

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"github.com/julianstephens/identityforge/internal/models"
	"github.com/julianstephens/identityforge/internal/validation"
)

type HabitCmd struct {
	Add    HabitAddCmd    `cmd:"" help:"Create a habit for an identity."`
	List   HabitListCmd   `cmd:"" help:"List active habits with vote totals."`
	Delete HabitDeleteCmd `cmd:"" help:"Soft delete a habit."`
}

type HabitAddCmd struct {
	IdentityID uuid.UUID `arg:"" name:"identity-id" help:"Owning identity ID."`
	Name       string    `arg:"" help:"Habit name."`
}

func (c *HabitAddCmd) Run(ctx *Context) error {
	name, err := validation.ValidateName("habit", c.Name)
	if err != nil {
		return err
	}

	identity, err := activeIdentity(ctx, c.IdentityID)
	if err != nil {
		return err
	}

	habit, err := ctx.Store.Habits().Create(ctx.Ctx, identity.ID, name, ctx.Now())
	if err != nil {
		return err
	}

	ctx.printf("✓ Habit created: %s for %s (%s)\n", habit.Name, identity.Name, habit.ID)
	return nil
}

type HabitListCmd struct{}

func (c *HabitListCmd) Run(ctx *Context) error {
	habits, err := ctx.Store.Habits().ListActive(ctx.Ctx)
	if err != nil {
		return err
	}

	rows := [][]string{}
	for _, h := range habits {
		// Habits of deleted identities stay in the store but are not listed.
		identity, err := ctx.Store.Identities().GetActive(ctx.Ctx, h.IdentityID)
		if err != nil {
			return err
		}
		if identity == nil {
			continue
		}

		stats, err := habitStats(ctx, h, *identity)
		if err != nil {
			return err
		}
		rows = append(rows, []string{
			h.ID.String(),
			stats.Habit.Name,
			stats.Identity.Name,
			strconv.Itoa(stats.VoteCount),
			formatOptionalTime(stats.LastVoteAt),
		})
	}

	if len(rows) == 0 {
		ctx.println("No habits yet. Add one with 'identityforge habit add IDENTITY_ID NAME'.")
		return nil
	}

	ctx.println(renderTable([]string{"ID", "Habit", "Identity", "Votes", "Last vote"}, rows))
	return nil
}

type HabitDeleteCmd struct {
	ID uuid.UUID `arg:"" help:"Habit ID."`
}

func (c *HabitDeleteCmd) Run(ctx *Context) error {
	deleted, err := ctx.Store.Habits().SoftDelete(ctx.Ctx, c.ID, ctx.Now())
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("habit not found: %s", c.ID)
	}

	ctx.printf("✓ Habit deleted: %s\n", c.ID)
	return nil
}

func habitStats(ctx *Context, h models.Habit, identity models.Identity) (models.HabitWithStats, error) {
	count, err := ctx.Store.Votes().CountForHabit(ctx.Ctx, h.ID)
	if err != nil {
		return models.HabitWithStats{}, err
	}

	last, err := ctx.Store.Votes().LastVoteAt(ctx.Ctx, h.ID)
	if err != nil {
		return models.HabitWithStats{}, err
	}

	return models.HabitWithStats{
		Habit:      h,
		Identity:   identity,
		VoteCount:  count,
		LastVoteAt: last,
	}, nil
}
