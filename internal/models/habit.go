package models

import "github.com/google/uuid"

// Habit is a trackable behavior owned by exactly one identity.
type Habit struct {
	ID         uuid.UUID `json:"id"`
	IdentityID uuid.UUID `json:"identity_id"`
	Name       string    `json:"name"`
	CreatedAt  Millis    `json:"created_at"`
	UpdatedAt  Millis    `json:"updated_at"`
	DeletedAt  *Millis   `json:"deleted_at,omitempty"`
}

// Active reports whether the habit has not been soft deleted.
func (h Habit) Active() bool {
	return h.DeletedAt == nil
}

// HabitWithStats pairs a habit with its owning identity and vote totals.
type HabitWithStats struct {
	Habit      Habit    `json:"habit"`
	Identity   Identity `json:"identity"`
	VoteCount  int      `json:"vote_count"`
	LastVoteAt *Millis  `json:"last_vote_at,omitempty"`
}
