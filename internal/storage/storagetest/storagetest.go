// Package storagetest is a behavioral test suite run against every
// storage.Provider implementation.
package storagetest

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/julianstephens/identityforge/internal/constants"
	"github.com/julianstephens/identityforge/internal/models"
	"github.com/julianstephens/identityforge/internal/storage"
)

const day = models.Millis(constants.DayMillis)

// Factory returns a fresh, empty provider. Cleanup is registered on t.
type Factory func(t *testing.T) storage.Provider

// Run executes the suite against providers built by newProvider.
func Run(t *testing.T, newProvider Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, p storage.Provider)
	}{
		{"CreateThenGetActive", testCreateThenGetActive},
		{"GetActiveMissing", testGetActiveMissing},
		{"ListActiveNewestFirst", testListActiveNewestFirst},
		{"IdentitySoftDelete", testIdentitySoftDelete},
		{"SoftDeletedIdentityExcluded", testSoftDeletedIdentityExcluded},
		{"ListActiveTiesNewestInsertFirst", testListActiveTiesNewestInsertFirst},
		{"HabitLifecycle", testHabitLifecycle},
		{"HabitCreateUnknownIdentity", testHabitCreateUnknownIdentity},
		{"CastVoteUnknownIdentity", testCastVoteUnknownIdentity},
		{"CastVoteCreatesDefaultHabit", testCastVoteCreatesDefaultHabit},
		{"CastVoteUsesOldestActiveHabit", testCastVoteUsesOldestActiveHabit},
		{"CastVoteConcurrent", testCastVoteConcurrent},
		{"DashboardWindows", testDashboardWindows},
		{"DashboardZeroVotes", testDashboardZeroVotes},
		{"DashboardSnapshotDuringWrites", testDashboardSnapshotDuringWrites},
		{"VoteCountsAndOrdering", testVoteCountsAndOrdering},
		{"VoteValueNilVsZero", testVoteValueNilVsZero},
		{"VoteCastUnknownHabit", testVoteCastUnknownHabit},
		{"VoteCastOnDeletedHabit", testVoteCastOnDeletedHabit},
		{"VoteHistory", testVoteHistory},
		{"DefaultLimit", testDefaultLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, newProvider(t))
		})
	}
}

func testCreateThenGetActive(t *testing.T, p storage.Provider) {
	ctx := context.Background()

	for _, name := range []string{"Present father", "Runner", "Écrivain ✍"} {
		created, err := p.Identities().Create(ctx, name, 1234)
		require.NoError(t, err)

		got, err := p.Identities().GetActive(ctx, created.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, name, got.Name)
		assert.Equal(t, models.Millis(1234), got.CreatedAt)
		assert.Equal(t, got.CreatedAt, got.UpdatedAt)
		assert.Nil(t, got.DeletedAt)
	}

	identity, err := p.Identities().Create(ctx, "Owner", 1)
	require.NoError(t, err)
	habit, err := p.Habits().Create(ctx, identity.ID, "Read", 55)
	require.NoError(t, err)

	got, err := p.Habits().GetActive(ctx, habit.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Read", got.Name)
	assert.Equal(t, identity.ID, got.IdentityID)
	assert.Equal(t, models.Millis(55), got.CreatedAt)
	assert.Equal(t, models.Millis(55), got.UpdatedAt)
}

func testGetActiveMissing(t *testing.T, p storage.Provider) {
	ctx := context.Background()

	identity, err := p.Identities().GetActive(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, identity)

	habit, err := p.Habits().GetActive(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, habit)

	identities, err := p.Identities().ListActive(ctx)
	require.NoError(t, err)
	assert.Empty(t, identities)
}

func testListActiveNewestFirst(t *testing.T, p storage.Provider) {
	ctx := context.Background()

	a, err := p.Identities().Create(ctx, "a", 10)
	require.NoError(t, err)
	b, err := p.Identities().Create(ctx, "b", 30)
	require.NoError(t, err)
	c, err := p.Identities().Create(ctx, "c", 20)
	require.NoError(t, err)

	list, err := p.Identities().ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []uuid.UUID{b.ID, c.ID, a.ID}, []uuid.UUID{list[0].ID, list[1].ID, list[2].ID})

	h1, err := p.Habits().Create(ctx, a.ID, "first", 100)
	require.NoError(t, err)
	h2, err := p.Habits().Create(ctx, a.ID, "second", 200)
	require.NoError(t, err)

	habits, err := p.Habits().ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, habits, 2)
	assert.Equal(t, h2.ID, habits[0].ID)
	assert.Equal(t, h1.ID, habits[1].ID)

	forIdentity, err := p.Habits().ListActiveForIdentity(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, forIdentity, 2)
	assert.Equal(t, h1.ID, forIdentity[0].ID)
	assert.Equal(t, h2.ID, forIdentity[1].ID)
}

func testIdentitySoftDelete(t *testing.T, p storage.Provider) {
	ctx := context.Background()

	identity, err := p.Identities().Create(ctx, "Temp", 0)
	require.NoError(t, err)

	deleted, err := p.Identities().SoftDelete(ctx, identity.ID, 100)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = p.Identities().SoftDelete(ctx, identity.ID, 200)
	require.NoError(t, err)
	assert.False(t, deleted)

	deleted, err = p.Identities().SoftDelete(ctx, uuid.New(), 200)
	require.NoError(t, err)
	assert.False(t, deleted)

	items, err := p.Identities().GetIdentityDashboardItems(ctx, 300)
	require.NoError(t, err)
	assert.Empty(t, items)

	got, err := p.Identities().GetActive(ctx, identity.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func testSoftDeletedIdentityExcluded(t *testing.T, p storage.Provider) {
	ctx := context.Background()

	kept, err := p.Identities().Create(ctx, "Kept", 0)
	require.NoError(t, err)
	gone, err := p.Identities().Create(ctx, "Gone", 0)
	require.NoError(t, err)

	_, err = p.Identities().CastVote(ctx, kept.ID, 10)
	require.NoError(t, err)
	goneVote, err := p.Identities().CastVote(ctx, gone.ID, 20)
	require.NoError(t, err)

	deleted, err := p.Identities().SoftDelete(ctx, gone.ID, 30)
	require.NoError(t, err)
	require.True(t, deleted)

	list, err := p.Identities().ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, kept.ID, list[0].ID)

	items, err := p.Identities().GetIdentityDashboardItems(ctx, 40)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, kept.ID, items[0].IdentityID)

	history, err := p.Identities().ListVoteHistory(ctx, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "Kept", history[0].IdentityName)

	// No cascade: the deleted identity's habit and votes remain readable.
	habit, err := p.Habits().GetActive(ctx, goneVote.HabitID)
	require.NoError(t, err)
	require.NotNil(t, habit)

	count, err := p.Votes().CountForHabit(ctx, goneVote.HabitID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func testListActiveTiesNewestInsertFirst(t *testing.T, p storage.Provider) {
	ctx := context.Background()

	first, err := p.Identities().Create(ctx, "first", 50)
	require.NoError(t, err)
	second, err := p.Identities().Create(ctx, "second", 50)
	require.NoError(t, err)

	identities, err := p.Identities().ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, identities, 2)
	assert.Equal(t, []uuid.UUID{second.ID, first.ID}, []uuid.UUID{identities[0].ID, identities[1].ID})

	h1, err := p.Habits().Create(ctx, first.ID, "one", 70)
	require.NoError(t, err)
	h2, err := p.Habits().Create(ctx, first.ID, "two", 70)
	require.NoError(t, err)
	h3, err := p.Habits().Create(ctx, first.ID, "three", 70)
	require.NoError(t, err)

	habits, err := p.Habits().ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, habits, 3)
	assert.Equal(t, []uuid.UUID{h3.ID, h2.ID, h1.ID}, []uuid.UUID{habits[0].ID, habits[1].ID, habits[2].ID})
}

// Habit creation trusts the caller to have validated the identity.
func testHabitCreateUnknownIdentity(t *testing.T, p storage.Provider) {
	ctx := context.Background()
	owner := uuid.New()

	habit, err := p.Habits().Create(ctx, owner, "Unowned", 10)
	require.NoError(t, err)
	assert.Equal(t, owner, habit.IdentityID)

	got, err := p.Habits().GetActive(ctx, habit.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, owner, got.IdentityID)
	assert.Equal(t, "Unowned", got.Name)

	forOwner, err := p.Habits().ListActiveForIdentity(ctx, owner)
	require.NoError(t, err)
	require.Len(t, forOwner, 1)
	assert.Equal(t, habit.ID, forOwner[0].ID)
}

func testCastVoteUnknownIdentity(t *testing.T, p storage.Provider) {
	ctx := context.Background()
	owner := uuid.New()

	vote, err := p.Identities().CastVote(ctx, owner, 500)
	require.NoError(t, err)
	assert.Equal(t, owner, vote.IdentityID)

	habits, err := p.Habits().ListActiveForIdentity(ctx, owner)
	require.NoError(t, err)
	require.Len(t, habits, 1)
	assert.Equal(t, constants.DefaultHabitName, habits[0].Name)
	assert.Equal(t, habits[0].ID, vote.HabitID)

	// No active identity owns the vote, so the rollups leave it out.
	history, err := p.Identities().ListVoteHistory(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func testHabitLifecycle(t *testing.T, p storage.Provider) {
	ctx := context.Background()

	identity, err := p.Identities().Create(ctx, "Owner", 0)
	require.NoError(t, err)
	habit, err := p.Habits().Create(ctx, identity.ID, "Stretch", 10)
	require.NoError(t, err)

	deleted, err := p.Habits().SoftDelete(ctx, habit.ID, 20)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = p.Habits().SoftDelete(ctx, habit.ID, 30)
	require.NoError(t, err)
	assert.False(t, deleted)

	got, err := p.Habits().GetActive(ctx, habit.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	list, err := p.Habits().ListActiveForIdentity(ctx, identity.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func testCastVoteCreatesDefaultHabit(t *testing.T, p storage.Provider) {
	ctx := context.Background()

	identity, err := p.Identities().Create(ctx, "Present father", 1000)
	require.NoError(t, err)

	vote, err := p.Identities().CastVote(ctx, identity.ID, 2000)
	require.NoError(t, err)
	assert.Equal(t, identity.ID, vote.IdentityID)
	assert.Nil(t, vote.Value)
	assert.Equal(t, models.Millis(2000), vote.CreatedAt)
	assert.Equal(t, models.Millis(2000), vote.UpdatedAt)

	habits, err := p.Habits().ListActiveForIdentity(ctx, identity.ID)
	require.NoError(t, err)
	require.Len(t, habits, 1)
	assert.Equal(t, constants.DefaultHabitName, habits[0].Name)
	assert.Equal(t, habits[0].ID, vote.HabitID)
	assert.Equal(t, models.Millis(2000), habits[0].CreatedAt)

	items, err := p.Identities().GetIdentityDashboardItems(ctx, 2000)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, models.IdentityDashboardItem{
		IdentityID:     identity.ID,
		IdentityName:   "Present father",
		VotesToday:     1,
		TotalVotes:     1,
		VotesLast7Days: 1,
	}, items[0])

	// A second cast reuses the default habit.
	second, err := p.Identities().CastVote(ctx, identity.ID, 3000)
	require.NoError(t, err)
	assert.Equal(t, vote.HabitID, second.HabitID)

	habits, err = p.Habits().ListActiveForIdentity(ctx, identity.ID)
	require.NoError(t, err)
	assert.Len(t, habits, 1)
}

func testCastVoteUsesOldestActiveHabit(t *testing.T, p storage.Provider) {
	ctx := context.Background()

	identity, err := p.Identities().Create(ctx, "Writer", 0)
	require.NoError(t, err)
	oldest, err := p.Habits().Create(ctx, identity.ID, "Journal", 10)
	require.NoError(t, err)
	middle, err := p.Habits().Create(ctx, identity.ID, "Blog", 20)
	require.NoError(t, err)
	_, err = p.Habits().Create(ctx, identity.ID, "Novel", 30)
	require.NoError(t, err)

	vote, err := p.Identities().CastVote(ctx, identity.ID, 100)
	require.NoError(t, err)
	assert.Equal(t, oldest.ID, vote.HabitID)

	_, err = p.Habits().SoftDelete(ctx, oldest.ID, 110)
	require.NoError(t, err)

	vote, err = p.Identities().CastVote(ctx, identity.ID, 120)
	require.NoError(t, err)
	assert.Equal(t, middle.ID, vote.HabitID)
}

func testCastVoteConcurrent(t *testing.T, p storage.Provider) {
	ctx := context.Background()
	const casts = 16

	identity, err := p.Identities().Create(ctx, "Racer", 0)
	require.NoError(t, err)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < casts; i++ {
		now := models.Millis(100 + i)
		g.Go(func() error {
			_, err := p.Identities().CastVote(gctx, identity.ID, now)
			return err
		})
	}
	require.NoError(t, g.Wait())

	habits, err := p.Habits().ListActiveForIdentity(ctx, identity.ID)
	require.NoError(t, err)
	require.Len(t, habits, 1)

	count, err := p.Votes().CountForHabit(ctx, habits[0].ID)
	require.NoError(t, err)
	assert.Equal(t, casts, count)
}

func testDashboardWindows(t *testing.T, p storage.Provider) {
	ctx := context.Background()

	now := 10*day + 5_000
	startOfDay := models.StartOfDay(now)
	windowStart := models.DaysAgo(now, constants.DashboardWindowDays)

	identity, err := p.Identities().Create(ctx, "Athlete", 0)
	require.NoError(t, err)
	habit, err := p.Habits().Create(ctx, identity.ID, "Lift", 0)
	require.NoError(t, err)

	castAt := []models.Millis{
		1,               // outside the window
		windowStart - 1, // just outside
		windowStart,     // inclusive window edge
		startOfDay - 1,  // yesterday
		startOfDay,      // inclusive day edge
		now,
	}
	for _, at := range castAt {
		_, err := p.Votes().Cast(ctx, habit.ID, nil, at)
		require.NoError(t, err)
	}

	items, err := p.Identities().GetIdentityDashboardItems(ctx, now)
	require.NoError(t, err)
	require.Len(t, items, 1)
	item := items[0]

	assert.Equal(t, 6, item.TotalVotes)
	assert.Equal(t, 2, item.VotesToday)
	assert.Equal(t, 4, item.VotesLast7Days)

	before := 0
	for _, at := range castAt {
		if at < startOfDay {
			before++
		}
	}
	assert.Equal(t, item.TotalVotes, item.VotesToday+before)
	assert.GreaterOrEqual(t, item.VotesLast7Days, item.VotesToday)
}

// Each writer round deletes an identity and only then votes for it, so no
// single state holds an active identity with a vote. A rollup that mixes
// the identity list of one state with the votes of a later one would.
func testDashboardSnapshotDuringWrites(t *testing.T, p storage.Provider) {
	ctx := context.Background()
	const rounds = 100
	done := make(chan struct{})

	var g errgroup.Group
	g.Go(func() error {
		defer close(done)
		for n := 0; n < rounds; n++ {
			identity, err := p.Identities().Create(ctx, "Transient", models.Millis(n))
			if err != nil {
				return err
			}
			if _, err := p.Identities().SoftDelete(ctx, identity.ID, models.Millis(n)); err != nil {
				return err
			}
			if _, err := p.Identities().CastVote(ctx, identity.ID, models.Millis(n)); err != nil {
				return err
			}
		}
		return nil
	})
	g.Go(func() error {
		for {
			items, err := p.Identities().GetIdentityDashboardItems(ctx, rounds)
			if err != nil {
				return err
			}
			for _, item := range items {
				if item.TotalVotes != 0 {
					return fmt.Errorf("deleted identity %s counted with %d vote(s)", item.IdentityID, item.TotalVotes)
				}
			}
			select {
			case <-done:
				return nil
			default:
			}
		}
	})
	require.NoError(t, g.Wait())

	items, err := p.Identities().GetIdentityDashboardItems(ctx, rounds)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func testDashboardZeroVotes(t *testing.T, p storage.Provider) {
	ctx := context.Background()

	older, err := p.Identities().Create(ctx, "Older", 10)
	require.NoError(t, err)
	newer, err := p.Identities().Create(ctx, "Newer", 20)
	require.NoError(t, err)

	items, err := p.Identities().GetIdentityDashboardItems(ctx, 30)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, newer.ID, items[0].IdentityID)
	assert.Equal(t, older.ID, items[1].IdentityID)
	for _, item := range items {
		assert.Zero(t, item.VotesToday)
		assert.Zero(t, item.TotalVotes)
		assert.Zero(t, item.VotesLast7Days)
	}
}

func testVoteCountsAndOrdering(t *testing.T, p storage.Provider) {
	ctx := context.Background()

	identity, err := p.Identities().Create(ctx, "Reader", 0)
	require.NoError(t, err)
	habit, err := p.Habits().Create(ctx, identity.ID, "Pages", 0)
	require.NoError(t, err)

	last, err := p.Votes().LastVoteAt(ctx, habit.ID)
	require.NoError(t, err)
	assert.Nil(t, last)

	for _, at := range []models.Millis{10, 20, 30} {
		vote, err := p.Votes().Cast(ctx, habit.ID, nil, at)
		require.NoError(t, err)
		assert.Equal(t, identity.ID, vote.IdentityID)
	}

	count, err := p.Votes().CountForHabit(ctx, habit.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	last, err = p.Votes().LastVoteAt(ctx, habit.ID)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, models.Millis(30), *last)

	votes, err := p.Votes().ListForHabit(ctx, habit.ID, 2)
	require.NoError(t, err)
	require.Len(t, votes, 2)
	assert.Equal(t, models.Millis(30), votes[0].CreatedAt)
	assert.Equal(t, models.Millis(20), votes[1].CreatedAt)
}

func testVoteValueNilVsZero(t *testing.T, p storage.Provider) {
	ctx := context.Background()

	identity, err := p.Identities().Create(ctx, "Counter", 0)
	require.NoError(t, err)
	habit, err := p.Habits().Create(ctx, identity.ID, "Pushups", 0)
	require.NoError(t, err)

	zero := int64(0)
	forty := int64(40)
	_, err = p.Votes().Cast(ctx, habit.ID, nil, 10)
	require.NoError(t, err)
	_, err = p.Votes().Cast(ctx, habit.ID, &zero, 20)
	require.NoError(t, err)
	_, err = p.Votes().Cast(ctx, habit.ID, &forty, 30)
	require.NoError(t, err)

	votes, err := p.Votes().ListForHabit(ctx, habit.ID, 0)
	require.NoError(t, err)
	require.Len(t, votes, 3)

	require.NotNil(t, votes[0].Value)
	assert.Equal(t, int64(40), *votes[0].Value)
	require.NotNil(t, votes[1].Value)
	assert.Equal(t, int64(0), *votes[1].Value)
	assert.Nil(t, votes[2].Value)
}

func testVoteCastUnknownHabit(t *testing.T, p storage.Provider) {
	ctx := context.Background()

	_, err := p.Votes().Cast(ctx, uuid.New(), nil, 10)
	require.Error(t, err)
	assert.True(t, errors.Is(err, storage.ErrHabitNotFound))
}

func testVoteCastOnDeletedHabit(t *testing.T, p storage.Provider) {
	ctx := context.Background()

	identity, err := p.Identities().Create(ctx, "Owner", 0)
	require.NoError(t, err)
	habit, err := p.Habits().Create(ctx, identity.ID, "Retired", 0)
	require.NoError(t, err)
	_, err = p.Habits().SoftDelete(ctx, habit.ID, 5)
	require.NoError(t, err)

	vote, err := p.Votes().Cast(ctx, habit.ID, nil, 10)
	require.NoError(t, err)
	assert.Equal(t, identity.ID, vote.IdentityID)
}

func testVoteHistory(t *testing.T, p storage.Provider) {
	ctx := context.Background()

	a, err := p.Identities().Create(ctx, "A", 0)
	require.NoError(t, err)
	b, err := p.Identities().Create(ctx, "B", 0)
	require.NoError(t, err)

	v1, err := p.Identities().CastVote(ctx, a.ID, 10)
	require.NoError(t, err)
	v2, err := p.Identities().CastVote(ctx, b.ID, 20)
	require.NoError(t, err)
	v3, err := p.Identities().CastVote(ctx, a.ID, 30)
	require.NoError(t, err)

	history, err := p.Identities().ListVoteHistory(ctx, 0)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, models.VoteHistoryItem{VoteID: v3.ID, IdentityName: "A", CreatedAt: 30}, history[0])
	assert.Equal(t, models.VoteHistoryItem{VoteID: v2.ID, IdentityName: "B", CreatedAt: 20}, history[1])
	assert.Equal(t, models.VoteHistoryItem{VoteID: v1.ID, IdentityName: "A", CreatedAt: 10}, history[2])

	capped, err := p.Identities().ListVoteHistory(ctx, 2)
	require.NoError(t, err)
	require.Len(t, capped, 2)
	assert.Equal(t, v3.ID, capped[0].VoteID)
}

func testDefaultLimit(t *testing.T, p storage.Provider) {
	ctx := context.Background()

	identity, err := p.Identities().Create(ctx, "Prolific", 0)
	require.NoError(t, err)
	habit, err := p.Habits().Create(ctx, identity.ID, "Everything", 0)
	require.NoError(t, err)

	total := constants.DefaultHistoryLimit + 5
	for i := 0; i < total; i++ {
		_, err := p.Votes().Cast(ctx, habit.ID, nil, models.Millis(i+1))
		require.NoError(t, err)
	}

	for _, limit := range []int{0, -1} {
		votes, err := p.Votes().ListForHabit(ctx, habit.ID, limit)
		require.NoError(t, err)
		assert.Len(t, votes, constants.DefaultHistoryLimit)

		history, err := p.Identities().ListVoteHistory(ctx, limit)
		require.NoError(t, err)
		assert.Len(t, history, constants.DefaultHistoryLimit)
	}

	count, err := p.Votes().CountForHabit(ctx, habit.ID)
	require.NoError(t, err)
	assert.Equal(t, total, count)
}
