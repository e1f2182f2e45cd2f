package cli

import (
	"strconv"
)

type DashboardCmd struct{}

func (c *DashboardCmd) Run(ctx *Context) error {
	items, err := ctx.Store.Identities().GetIdentityDashboardItems(ctx.Ctx, ctx.Now())
	if err != nil {
		return err
	}

	if len(items) == 0 {
		ctx.println("No identities yet. Add one with 'identityforge identity add NAME'.")
		return nil
	}

	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			item.IdentityName,
			strconv.Itoa(item.VotesToday),
			strconv.Itoa(item.VotesLast7Days),
			strconv.Itoa(item.TotalVotes),
			item.IdentityID.String(),
		})
	}
	ctx.println(renderTable([]string{"Identity", "Today", "Last 7 days", "Total", "ID"}, rows))
	return nil
}

type HistoryCmd struct {
	Limit int `help:"Maximum votes to show." default:"${history_limit}"`
}

func (c *HistoryCmd) Run(ctx *Context) error {
	items, err := ctx.Store.Identities().ListVoteHistory(ctx.Ctx, c.Limit)
	if err != nil {
		return err
	}

	if len(items) == 0 {
		ctx.println("No votes yet.")
		return nil
	}

	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{formatTime(item.CreatedAt), item.IdentityName, item.VoteID.String()})
	}
	ctx.println(renderTable([]string{"Cast at", "Identity", "Vote ID"}, rows))
	return nil
}
