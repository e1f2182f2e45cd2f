package sqlite

import (
	"database/sql"

	"github.com/google/uuid"

	"github.com/julianstephens/identityforge/internal/models"
)

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func nullMillis(n sql.NullInt64) *models.Millis {
	if !n.Valid {
		return nil
	}
	return models.Millis(n.Int64).Ptr()
}

func scanIdentity(row scanner) (models.Identity, error) {
	var (
		i         models.Identity
		deletedAt sql.NullInt64
	)
	if err := row.Scan(&i.ID, &i.Name, &i.CreatedAt, &i.UpdatedAt, &deletedAt); err != nil {
		return models.Identity{}, err
	}
	i.DeletedAt = nullMillis(deletedAt)
	return i, nil
}

func scanHabit(row scanner) (models.Habit, error) {
	var (
		h         models.Habit
		deletedAt sql.NullInt64
	)
	if err := row.Scan(&h.ID, &h.IdentityID, &h.Name, &h.CreatedAt, &h.UpdatedAt, &deletedAt); err != nil {
		return models.Habit{}, err
	}
	h.DeletedAt = nullMillis(deletedAt)
	return h, nil
}

// scanVote reads a vote row. Legacy rows may predate the identity_id and
// updated_at columns being backfilled, so both are read as nullable.
func scanVote(row scanner) (models.Vote, error) {
	var (
		v          models.Vote
		identityID uuid.NullUUID
		value      sql.NullInt64
		updatedAt  sql.NullInt64
		deletedAt  sql.NullInt64
	)
	if err := row.Scan(&v.ID, &identityID, &v.HabitID, &value, &v.CreatedAt, &updatedAt, &deletedAt); err != nil {
		return models.Vote{}, err
	}
	if identityID.Valid {
		v.IdentityID = identityID.UUID
	}
	if value.Valid {
		n := value.Int64
		v.Value = &n
	}
	v.UpdatedAt = v.CreatedAt
	if updatedAt.Valid {
		v.UpdatedAt = models.Millis(updatedAt.Int64)
	}
	v.DeletedAt = nullMillis(deletedAt)
	return v, nil
}

func nullValue(value *int64) sql.NullInt64 {
	if value == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *value, Valid: true}
}
