package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/julianstephens/identityforge/internal/constants"
	"github.com/julianstephens/identityforge/internal/models"
	"github.com/julianstephens/identityforge/internal/storage"
)

const voteColumns = `id, identity_id, habit_id, value, created_at, updated_at, deleted_at`

// VoteRepository implements storage.VoteStore with SQLite.
type VoteRepository struct {
	db *sql.DB
}

var _ storage.VoteStore = (*VoteRepository)(nil)

// NewVoteRepository creates a new SQLite vote repository.
func NewVoteRepository(db *sql.DB) *VoteRepository {
	return &VoteRepository{db: db}
}

func (r *VoteRepository) ListForHabit(ctx context.Context, habitID uuid.UUID, limit int) ([]models.Vote, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+voteColumns+`
		FROM votes
		WHERE habit_id = ? AND deleted_at IS NULL
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`,
		habitID, storage.EffectiveLimit(limit, constants.DefaultHistoryLimit))
	if err != nil {
		return nil, fmt.Errorf("failed to list votes: %w", err)
	}
	defer rows.Close()

	votes := []models.Vote{}
	for rows.Next() {
		v, err := scanVote(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan vote: %w", err)
		}
		votes = append(votes, v)
	}
	return votes, rows.Err()
}

// Cast copies the habit's identity onto the vote. The habit may be soft
// deleted; only an id that was never written is rejected.
func (r *VoteRepository) Cast(ctx context.Context, habitID uuid.UUID, value *int64, now models.Millis) (models.Vote, error) {
	var vote models.Vote
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		var identityID uuid.UUID
		err := tx.QueryRowContext(ctx,
			"SELECT identity_id FROM habits WHERE id = ? LIMIT 1", habitID,
		).Scan(&identityID)
		if err == sql.ErrNoRows {
			return fmt.Errorf("%w: %s", storage.ErrHabitNotFound, habitID)
		}
		if err != nil {
			return fmt.Errorf("failed to look up habit: %w", err)
		}

		vote, err = insertVote(ctx, tx, identityID, habitID, value, now)
		return err
	})
	if err != nil {
		return models.Vote{}, fmt.Errorf("failed to cast vote: %w", err)
	}
	return vote, nil
}

func (r *VoteRepository) CountForHabit(ctx context.Context, habitID uuid.UUID) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM votes WHERE habit_id = ? AND deleted_at IS NULL", habitID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count votes: %w", err)
	}
	return count, nil
}

func (r *VoteRepository) LastVoteAt(ctx context.Context, habitID uuid.UUID) (*models.Millis, error) {
	var createdAt int64
	err := r.db.QueryRowContext(ctx, `
		SELECT created_at
		FROM votes
		WHERE habit_id = ? AND deleted_at IS NULL
		ORDER BY created_at DESC
		LIMIT 1`, habitID,
	).Scan(&createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get last vote: %w", err)
	}
	return models.Millis(createdAt).Ptr(), nil
}

func insertVote(ctx context.Context, q querier, identityID, habitID uuid.UUID, value *int64, now models.Millis) (models.Vote, error) {
	v := models.Vote{
		ID:         uuid.New(),
		IdentityID: identityID,
		HabitID:    habitID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if value != nil {
		n := *value
		v.Value = &n
	}

	_, err := q.ExecContext(ctx, `
		INSERT INTO votes (id, identity_id, habit_id, value, created_at, updated_at, deleted_at)
		VALUES (?, ?, ?, ?, ?, ?, NULL)`,
		v.ID, v.IdentityID, v.HabitID, nullValue(value), int64(now), int64(now))
	if err != nil {
		return models.Vote{}, fmt.Errorf("failed to insert vote: %w", err)
	}
	return v, nil
}
