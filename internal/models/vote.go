package models

import "github.com/google/uuid"

// Vote records one occurrence of a habit. IdentityID duplicates the owning
// habit's IdentityID at write time so rollups need not join through habits.
type Vote struct {
	ID         uuid.UUID `json:"id"`
	IdentityID uuid.UUID `json:"identity_id"`
	HabitID    uuid.UUID `json:"habit_id"`
	// Value is optional; nil is distinct from zero.
	Value     *int64  `json:"value,omitempty"`
	CreatedAt Millis  `json:"created_at"`
	UpdatedAt Millis  `json:"updated_at"`
	DeletedAt *Millis `json:"deleted_at,omitempty"`
}

// Active reports whether the vote has not been soft deleted.
func (v Vote) Active() bool {
	return v.DeletedAt == nil
}
