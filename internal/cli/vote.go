package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/julianstephens/identityforge/internal/storage"
)

type VoteCmd struct {
	Cast VoteCastCmd `cmd:"" help:"Vote for an identity on its oldest habit."`
	Add  VoteAddCmd  `cmd:"" help:"Vote on a specific habit."`
	List VoteListCmd `cmd:"" help:"List votes for a habit, newest first."`
}

type VoteCastCmd struct {
	IdentityID uuid.UUID `arg:"" name:"identity-id" help:"Identity ID."`
}

func (c *VoteCastCmd) Run(ctx *Context) error {
	identity, err := activeIdentity(ctx, c.IdentityID)
	if err != nil {
		return err
	}

	vote, err := ctx.Store.Identities().CastVote(ctx.Ctx, identity.ID, ctx.Now())
	if err != nil {
		return err
	}

	ctx.printf("✓ Vote cast for %s at %s\n", identity.Name, formatTime(vote.CreatedAt))
	return nil
}

type VoteAddCmd struct {
	HabitID uuid.UUID `arg:"" name:"habit-id" help:"Habit ID."`
	Value   string    `help:"Optional integer value, e.g. pages read. Omit to record no value."`
}

func (c *VoteAddCmd) Run(ctx *Context) error {
	value, err := parseValue(c.Value)
	if err != nil {
		return err
	}

	vote, err := ctx.Store.Votes().Cast(ctx.Ctx, c.HabitID, value, ctx.Now())
	if errors.Is(err, storage.ErrHabitNotFound) {
		return fmt.Errorf("habit not found: %s", c.HabitID)
	}
	if err != nil {
		return err
	}

	ctx.printf("✓ Vote recorded at %s (value %s)\n", formatTime(vote.CreatedAt), formatValue(vote.Value))
	return nil
}

type VoteListCmd struct {
	HabitID uuid.UUID `arg:"" name:"habit-id" help:"Habit ID."`
	Limit   int       `help:"Maximum votes to show." default:"${history_limit}"`
}

func (c *VoteListCmd) Run(ctx *Context) error {
	votes, err := ctx.Store.Votes().ListForHabit(ctx.Ctx, c.HabitID, c.Limit)
	if err != nil {
		return err
	}

	if len(votes) == 0 {
		ctx.println("No votes for this habit.")
		return nil
	}

	rows := make([][]string, 0, len(votes))
	for _, v := range votes {
		rows = append(rows, []string{v.ID.String(), formatTime(v.CreatedAt), formatValue(v.Value)})
	}
	ctx.println(renderTable([]string{"Vote ID", "Cast at", "Value"}, rows))
	return nil
}

// parseValue maps a blank string to no value.
func parseValue(raw string) (*int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid vote value %q: must be an integer", raw)
	}
	return &n, nil
}

func formatValue(v *int64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatInt(*v, 10)
}
