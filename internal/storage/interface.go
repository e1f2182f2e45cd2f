package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/julianstephens/identityforge/internal/models"
)

// ErrHabitNotFound is returned when a vote is cast against a habit id that
// has never existed. Such a vote has no owning identity to record.
var ErrHabitNotFound = errors.New("habit not found")

// IdentityStore persists identities and answers identity-level rollups.
//
// Read methods return nil (or an empty slice) for absent or soft-deleted
// rows rather than an error.
type IdentityStore interface {
	// ListActive returns active identities, newest first.
	ListActive(ctx context.Context) ([]models.Identity, error)
	GetActive(ctx context.Context, id uuid.UUID) (*models.Identity, error)
	Create(ctx context.Context, name string, now models.Millis) (models.Identity, error)
	// SoftDelete reports whether an active row was marked deleted.
	SoftDelete(ctx context.Context, id uuid.UUID, now models.Millis) (bool, error)

	// GetIdentityDashboardItems returns one row per active identity with
	// vote counts for the current day, the trailing seven days and all time.
	GetIdentityDashboardItems(ctx context.Context, now models.Millis) ([]models.IdentityDashboardItem, error)
	// CastVote records a value-less vote against the identity's oldest
	// active habit, creating a "Default Habit" first when it has none.
	CastVote(ctx context.Context, identityID uuid.UUID, now models.Millis) (models.Vote, error)
	// ListVoteHistory returns active votes of active identities, newest
	// first. limit <= 0 means constants.DefaultHistoryLimit.
	ListVoteHistory(ctx context.Context, limit int) ([]models.VoteHistoryItem, error)
}

// HabitStore persists habits. Create does not check that the identity
// exists; callers validate it.
type HabitStore interface {
	ListActive(ctx context.Context) ([]models.Habit, error)
	GetActive(ctx context.Context, id uuid.UUID) (*models.Habit, error)
	Create(ctx context.Context, identityID uuid.UUID, name string, now models.Millis) (models.Habit, error)
	SoftDelete(ctx context.Context, id uuid.UUID, now models.Millis) (bool, error)
	// ListActiveForIdentity returns the identity's active habits, oldest first.
	ListActiveForIdentity(ctx context.Context, identityID uuid.UUID) ([]models.Habit, error)
}

// VoteStore is the append-only vote log.
type VoteStore interface {
	// ListForHabit returns active votes for the habit, newest first.
	// limit <= 0 means constants.DefaultHistoryLimit.
	ListForHabit(ctx context.Context, habitID uuid.UUID, limit int) ([]models.Vote, error)
	// Cast records a vote, copying the habit's identity onto it. It fails
	// with ErrHabitNotFound when the habit does not exist.
	Cast(ctx context.Context, habitID uuid.UUID, value *int64, now models.Millis) (models.Vote, error)
	CountForHabit(ctx context.Context, habitID uuid.UUID) (int, error)
	// LastVoteAt returns the newest active vote's timestamp, or nil.
	LastVoteAt(ctx context.Context, habitID uuid.UUID) (*models.Millis, error)
}

// Provider bundles the three stores over one backing store.
type Provider interface {
	Identities() IdentityStore
	Habits() HabitStore
	Votes() VoteStore
	Close() error
}

// EffectiveLimit maps a non-positive limit to the default cap.
func EffectiveLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	return limit
}
