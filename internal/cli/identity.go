package cli

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"github.com/julianstephens/identityforge/internal/models"
	"github.com/julianstephens/identityforge/internal/validation"
)

type IdentityCmd struct {
	Add    IdentityAddCmd    `cmd:"" help:"Create an identity."`
	List   IdentityListCmd   `cmd:"" help:"List active identities."`
	Show   IdentityShowCmd   `cmd:"" help:"Show an identity and its habits."`
	Delete IdentityDeleteCmd `cmd:"" help:"Soft delete an identity."`
}

type IdentityAddCmd struct {
	Name string `arg:"" help:"Identity name, e.g. \"Present father\"."`
}

func (c *IdentityAddCmd) Run(ctx *Context) error {
	name, err := validation.ValidateName("identity", c.Name)
	if err != nil {
		return err
	}

	identity, err := ctx.Store.Identities().Create(ctx.Ctx, name, ctx.Now())
	if err != nil {
		return err
	}

	ctx.printf("✓ Identity created: %s (%s)\n", identity.Name, identity.ID)
	return nil
}

type IdentityListCmd struct{}

func (c *IdentityListCmd) Run(ctx *Context) error {
	identities, err := ctx.Store.Identities().ListActive(ctx.Ctx)
	if err != nil {
		return err
	}

	if len(identities) == 0 {
		ctx.println("No identities yet. Add one with 'identityforge identity add NAME'.")
		return nil
	}

	rows := make([][]string, 0, len(identities))
	for _, i := range identities {
		rows = append(rows, []string{i.ID.String(), i.Name, formatTime(i.CreatedAt)})
	}
	ctx.println(renderTable([]string{"ID", "Name", "Created"}, rows))
	return nil
}

type IdentityShowCmd struct {
	ID uuid.UUID `arg:"" help:"Identity ID."`
}

func (c *IdentityShowCmd) Run(ctx *Context) error {
	identity, err := activeIdentity(ctx, c.ID)
	if err != nil {
		return err
	}

	habits, err := ctx.Store.Habits().ListActiveForIdentity(ctx.Ctx, identity.ID)
	if err != nil {
		return err
	}

	ctx.printf("%s\n", headerStyle.Render(identity.Name))
	ctx.printf("ID:      %s\n", identity.ID)
	ctx.printf("Created: %s\n", formatTime(identity.CreatedAt))
	ctx.println()

	if len(habits) == 0 {
		ctx.println("No habits. Casting a vote creates a default habit.")
		return nil
	}

	rows := make([][]string, 0, len(habits))
	for _, h := range habits {
		stats, err := habitStats(ctx, h, *identity)
		if err != nil {
			return err
		}
		rows = append(rows, []string{
			h.ID.String(),
			h.Name,
			strconv.Itoa(stats.VoteCount),
			formatOptionalTime(stats.LastVoteAt),
		})
	}
	ctx.println(renderTable([]string{"Habit ID", "Habit", "Votes", "Last vote"}, rows))
	return nil
}

type IdentityDeleteCmd struct {
	ID  uuid.UUID `arg:"" help:"Identity ID."`
	Yes bool      `short:"y" help:"Skip the confirmation prompt."`
}

func (c *IdentityDeleteCmd) Run(ctx *Context) error {
	identity, err := activeIdentity(ctx, c.ID)
	if err != nil {
		return err
	}

	if !c.Yes {
		ok, err := ctx.Confirm(fmt.Sprintf("Delete identity %q? Its habits and votes are kept.", identity.Name))
		if err != nil {
			return err
		}
		if !ok {
			ctx.println("Delete cancelled.")
			return nil
		}
	}

	deleted, err := ctx.Store.Identities().SoftDelete(ctx.Ctx, identity.ID, ctx.Now())
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("identity %s is already deleted", identity.ID)
	}

	ctx.printf("✓ Identity deleted: %s\n", identity.Name)
	return nil
}

func activeIdentity(ctx *Context, id uuid.UUID) (*models.Identity, error) {
	identity, err := ctx.Store.Identities().GetActive(ctx.Ctx, id)
	if err != nil {
		return nil, err
	}
	if identity == nil {
		return nil, fmt.Errorf("identity not found: %s", id)
	}
	return identity, nil
}
