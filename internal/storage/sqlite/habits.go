package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/julianstephens/identityforge/internal/models"
	"github.com/julianstephens/identityforge/internal/storage"
)

const habitColumns = `id, identity_id, name, created_at, updated_at, deleted_at`

// HabitRepository implements storage.HabitStore with SQLite.
type HabitRepository struct {
	db *sql.DB
}

var _ storage.HabitStore = (*HabitRepository)(nil)

// NewHabitRepository creates a new SQLite habit repository.
func NewHabitRepository(db *sql.DB) *HabitRepository {
	return &HabitRepository{db: db}
}

func (r *HabitRepository) ListActive(ctx context.Context) ([]models.Habit, error) {
	return queryHabits(ctx, r.db, `
		SELECT `+habitColumns+`
		FROM habits
		WHERE deleted_at IS NULL
		ORDER BY created_at DESC, rowid DESC`)
}

func (r *HabitRepository) ListActiveForIdentity(ctx context.Context, identityID uuid.UUID) ([]models.Habit, error) {
	return queryHabits(ctx, r.db, `
		SELECT `+habitColumns+`
		FROM habits
		WHERE identity_id = ? AND deleted_at IS NULL
		ORDER BY created_at ASC, rowid ASC`, identityID)
}

func (r *HabitRepository) GetActive(ctx context.Context, id uuid.UUID) (*models.Habit, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+habitColumns+`
		FROM habits
		WHERE id = ? AND deleted_at IS NULL
		LIMIT 1`, id)

	h, err := scanHabit(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get habit: %w", err)
	}
	return &h, nil
}

// Create inserts a habit without checking that the identity exists.
func (r *HabitRepository) Create(ctx context.Context, identityID uuid.UUID, name string, now models.Millis) (models.Habit, error) {
	return insertHabit(ctx, r.db, identityID, name, now)
}

func (r *HabitRepository) SoftDelete(ctx context.Context, id uuid.UUID, now models.Millis) (bool, error) {
	return softDelete(ctx, r.db, "habits", id, now)
}

func queryHabits(ctx context.Context, q querier, query string, args ...any) ([]models.Habit, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list habits: %w", err)
	}
	defer rows.Close()

	habits := []models.Habit{}
	for rows.Next() {
		h, err := scanHabit(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan habit: %w", err)
		}
		habits = append(habits, h)
	}
	return habits, rows.Err()
}

func insertHabit(ctx context.Context, q querier, identityID uuid.UUID, name string, now models.Millis) (models.Habit, error) {
	h := models.Habit{
		ID:         uuid.New(),
		IdentityID: identityID,
		Name:       name,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	_, err := q.ExecContext(ctx, `
		INSERT INTO habits (id, identity_id, name, created_at, updated_at, deleted_at)
		VALUES (?, ?, ?, ?, ?, NULL)`,
		h.ID, h.IdentityID, h.Name, int64(now), int64(now))
	if err != nil {
		return models.Habit{}, fmt.Errorf("failed to create habit: %w", err)
	}
	return h, nil
}

// oldestActiveHabit returns the identity's first active habit, or uuid.Nil.
func oldestActiveHabit(ctx context.Context, q querier, identityID uuid.UUID) (uuid.UUID, error) {
	var id uuid.UUID
	err := q.QueryRowContext(ctx, `
		SELECT id
		FROM habits
		WHERE identity_id = ? AND deleted_at IS NULL
		ORDER BY created_at ASC, rowid ASC
		LIMIT 1`, identityID).Scan(&id)
	if err == sql.ErrNoRows {
		return uuid.Nil, nil
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to find habit for identity: %w", err)
	}
	return id, nil
}
