package models

import "github.com/google/uuid"

// Identity is an aspirational self-role that habits and votes roll up to.
type Identity struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt Millis    `json:"created_at"`
	UpdatedAt Millis    `json:"updated_at"`
	DeletedAt *Millis   `json:"deleted_at,omitempty"`
}

// Active reports whether the identity has not been soft deleted.
func (i Identity) Active() bool {
	return i.DeletedAt == nil
}

// IdentityDashboardItem is one row of the per-identity vote rollup.
type IdentityDashboardItem struct {
	IdentityID     uuid.UUID `json:"identity_id"`
	IdentityName   string    `json:"identity_name"`
	VotesToday     int       `json:"votes_today"`
	TotalVotes     int       `json:"total_votes"`
	VotesLast7Days int       `json:"votes_last_7_days"`
}

// VoteHistoryItem is one entry of the global vote history.
type VoteHistoryItem struct {
	VoteID       uuid.UUID `json:"vote_id"`
	IdentityName string    `json:"identity_name"`
	CreatedAt    Millis    `json:"created_at"`
}
