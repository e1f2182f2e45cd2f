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

const identityColumns = `id, name, created_at, updated_at, deleted_at`

// IdentityRepository implements storage.IdentityStore with SQLite.
type IdentityRepository struct {
	db *sql.DB
}

var _ storage.IdentityStore = (*IdentityRepository)(nil)

// NewIdentityRepository creates a new SQLite identity repository.
func NewIdentityRepository(db *sql.DB) *IdentityRepository {
	return &IdentityRepository{db: db}
}

func (r *IdentityRepository) ListActive(ctx context.Context) ([]models.Identity, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+identityColumns+`
		FROM identities
		WHERE deleted_at IS NULL
		ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list identities: %w", err)
	}
	defer rows.Close()

	identities := []models.Identity{}
	for rows.Next() {
		i, err := scanIdentity(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan identity: %w", err)
		}
		identities = append(identities, i)
	}
	return identities, rows.Err()
}

func (r *IdentityRepository) GetActive(ctx context.Context, id uuid.UUID) (*models.Identity, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+identityColumns+`
		FROM identities
		WHERE id = ? AND deleted_at IS NULL
		LIMIT 1`, id)

	i, err := scanIdentity(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get identity: %w", err)
	}
	return &i, nil
}

func (r *IdentityRepository) Create(ctx context.Context, name string, now models.Millis) (models.Identity, error) {
	i := models.Identity{
		ID:        uuid.New(),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO identities (id, name, created_at, updated_at, deleted_at)
		VALUES (?, ?, ?, ?, NULL)`,
		i.ID, i.Name, int64(now), int64(now))
	if err != nil {
		return models.Identity{}, fmt.Errorf("failed to create identity: %w", err)
	}
	return i, nil
}

func (r *IdentityRepository) SoftDelete(ctx context.Context, id uuid.UUID, now models.Millis) (bool, error) {
	return softDelete(ctx, r.db, "identities", id, now)
}

// GetIdentityDashboardItems joins each active identity to its active votes.
// Window boundaries are inclusive.
func (r *IdentityRepository) GetIdentityDashboardItems(ctx context.Context, now models.Millis) ([]models.IdentityDashboardItem, error) {
	startOfDay := models.StartOfDay(now)
	windowStart := models.DaysAgo(now, constants.DashboardWindowDays)

	rows, err := r.db.QueryContext(ctx, `
		SELECT
			i.id,
			i.name,
			COALESCE(SUM(CASE WHEN v.created_at >= ? THEN 1 ELSE 0 END), 0) AS votes_today,
			COUNT(v.id) AS total_votes,
			COALESCE(SUM(CASE WHEN v.created_at >= ? THEN 1 ELSE 0 END), 0) AS votes_last_7_days
		FROM identities i
		LEFT JOIN votes v
			ON v.identity_id = i.id
			AND v.deleted_at IS NULL
		WHERE i.deleted_at IS NULL
		GROUP BY i.id, i.name
		ORDER BY i.created_at DESC, i.rowid DESC`,
		int64(startOfDay), int64(windowStart))
	if err != nil {
		return nil, fmt.Errorf("failed to query dashboard: %w", err)
	}
	defer rows.Close()

	items := []models.IdentityDashboardItem{}
	for rows.Next() {
		var item models.IdentityDashboardItem
		if err := rows.Scan(&item.IdentityID, &item.IdentityName, &item.VotesToday, &item.TotalVotes, &item.VotesLast7Days); err != nil {
			return nil, fmt.Errorf("failed to scan dashboard row: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// CastVote records a vote for the identity against its oldest active habit.
// The lookup, the optional default habit insert and the vote insert share
// one transaction.
func (r *IdentityRepository) CastVote(ctx context.Context, identityID uuid.UUID, now models.Millis) (models.Vote, error) {
	var vote models.Vote
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		habitID, err := oldestActiveHabit(ctx, tx, identityID)
		if err != nil {
			return err
		}

		if habitID == uuid.Nil {
			h, err := insertHabit(ctx, tx, identityID, constants.DefaultHabitName, now)
			if err != nil {
				return err
			}
			habitID = h.ID
		}

		vote, err = insertVote(ctx, tx, identityID, habitID, nil, now)
		return err
	})
	if err != nil {
		return models.Vote{}, fmt.Errorf("failed to cast vote: %w", err)
	}
	return vote, nil
}

func (r *IdentityRepository) ListVoteHistory(ctx context.Context, limit int) ([]models.VoteHistoryItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT v.id, i.name, v.created_at
		FROM votes v
		JOIN identities i ON i.id = v.identity_id
		WHERE v.deleted_at IS NULL
			AND i.deleted_at IS NULL
		ORDER BY v.created_at DESC, v.rowid DESC
		LIMIT ?`,
		storage.EffectiveLimit(limit, constants.DefaultHistoryLimit))
	if err != nil {
		return nil, fmt.Errorf("failed to list vote history: %w", err)
	}
	defer rows.Close()

	items := []models.VoteHistoryItem{}
	for rows.Next() {
		var item models.VoteHistoryItem
		if err := rows.Scan(&item.VoteID, &item.IdentityName, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan vote history row: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// softDelete marks an active row of table deleted and reports whether a
// row changed. table is always a package constant.
func softDelete(ctx context.Context, q querier, table string, id uuid.UUID, now models.Millis) (bool, error) {
	res, err := q.ExecContext(ctx,
		"UPDATE "+table+" SET deleted_at = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL",
		int64(now), int64(now), id)
	if err != nil {
		return false, fmt.Errorf("failed to soft delete from %s: %w", table, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n > 0, nil
}
