package migration

import (
	"context"
	"fmt"
)

// All is the schema history of the store, oldest first. Entries are never
// edited or removed once released; new schema changes get a new version.
var All = []Migration{
	{
		Version: 1,
		Name:    "create_core_tables",
		Up:      createCoreTables,
	},
	{
		Version: 2,
		Name:    "add_votes_identity_id",
		Up:      addVotesIdentityID,
	},
	{
		Version: 3,
		Name:    "add_votes_updated_at",
		Up:      addVotesUpdatedAt,
	},
	{
		Version: 4,
		Name:    "backfill_votes",
		Up:      backfillVotes,
	},
	{
		Version: 5,
		Name:    "add_votes_identity_index",
		Up:      addVotesIdentityIndex,
	},
	{
		Version: 6,
		Name:    "enforce_vote_identity_trigger",
		Up:      enforceVoteIdentityTrigger,
	},
}

// createCoreTables is the first released schema. Votes did not yet carry
// identity_id or updated_at; later versions add and backfill them.
func createCoreTables(ctx context.Context, tx Execer) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS identities (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			deleted_at INTEGER NULL
		)`,
		`CREATE TABLE IF NOT EXISTS habits (
			id TEXT PRIMARY KEY,
			identity_id TEXT NOT NULL,
			name TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			deleted_at INTEGER NULL,
			FOREIGN KEY (identity_id) REFERENCES identities(id)
		)`,
		`CREATE TABLE IF NOT EXISTS votes (
			id TEXT PRIMARY KEY,
			habit_id TEXT NOT NULL,
			value INTEGER NULL,
			created_at INTEGER NOT NULL,
			deleted_at INTEGER NULL,
			FOREIGN KEY (habit_id) REFERENCES habits(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_habits_identity_id ON habits(identity_id)`,
		`CREATE INDEX IF NOT EXISTS idx_votes_habit_id_created_at ON votes(habit_id, created_at DESC)`,
	}

	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create core schema: %w", err)
		}
	}
	return nil
}

func addVotesIdentityID(ctx context.Context, tx Execer) error {
	return AddColumnIfMissing(ctx, tx, "votes", "identity_id", "TEXT NULL REFERENCES identities(id)")
}

func addVotesUpdatedAt(ctx context.Context, tx Execer) error {
	return AddColumnIfMissing(ctx, tx, "votes", "updated_at", "INTEGER NULL")
}

// backfillVotes populates the columns added by versions 2 and 3 on rows
// written before they existed.
func backfillVotes(ctx context.Context, tx Execer) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE votes
		SET identity_id = (SELECT h.identity_id FROM habits h WHERE h.id = votes.habit_id)
		WHERE identity_id IS NULL
	`)
	if err != nil {
		return fmt.Errorf("failed to backfill votes.identity_id: %w", err)
	}

	_, err = tx.ExecContext(ctx, `UPDATE votes SET updated_at = created_at WHERE updated_at IS NULL`)
	if err != nil {
		return fmt.Errorf("failed to backfill votes.updated_at: %w", err)
	}
	return nil
}

func addVotesIdentityIndex(ctx context.Context, tx Execer) error {
	_, err := tx.ExecContext(ctx,
		`CREATE INDEX IF NOT EXISTS idx_votes_identity_id_created_at ON votes(identity_id, created_at)`)
	if err != nil {
		return fmt.Errorf("failed to create votes identity index: %w", err)
	}
	return nil
}

// enforceVoteIdentityTrigger rejects votes whose identity_id disagrees with
// the identity that owns the referenced habit.
func enforceVoteIdentityTrigger(ctx context.Context, tx Execer) error {
	_, err := tx.ExecContext(ctx, `
		CREATE TRIGGER IF NOT EXISTS trg_votes_identity_matches_habit
		BEFORE INSERT ON votes
		FOR EACH ROW
		WHEN NEW.identity_id IS NOT (SELECT h.identity_id FROM habits h WHERE h.id = NEW.habit_id)
		BEGIN
			SELECT RAISE(ABORT, 'vote identity_id does not match habit identity_id');
		END
	`)
	if err != nil {
		return fmt.Errorf("failed to create vote identity trigger: %w", err)
	}
	return nil
}
