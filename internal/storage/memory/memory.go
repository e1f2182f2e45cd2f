// Package memory is an in-process implementation of the storage interfaces
// for tests and dry runs. Nothing is persisted.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/julianstephens/identityforge/internal/constants"
	"github.com/julianstephens/identityforge/internal/models"
	"github.com/julianstephens/identityforge/internal/storage"
)

// Store holds all rows in maps guarded by one lock. seq records insertion
// order so ties on created_at sort the way SQLite's rowid does.
type Store struct {
	mu sync.RWMutex

	identities map[uuid.UUID]*row[models.Identity]
	habits     map[uuid.UUID]*row[models.Habit]
	votes      map[uuid.UUID]*row[models.Vote]
	seq        int64
}

type row[T any] struct {
	seq int64
	val T
}

var _ storage.Provider = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{
		identities: make(map[uuid.UUID]*row[models.Identity]),
		habits:     make(map[uuid.UUID]*row[models.Habit]),
		votes:      make(map[uuid.UUID]*row[models.Vote]),
	}
}

func (s *Store) Identities() storage.IdentityStore { return identityStore{s} }
func (s *Store) Habits() storage.HabitStore         { return habitStore{s} }
func (s *Store) Votes() storage.VoteStore           { return voteStore{s} }

func (s *Store) Close() error { return nil }

func (s *Store) next() int64 {
	s.seq++
	return s.seq
}

// sorted returns the values of rows ordered by created, then seq.
func sorted[T any](rows []*row[T], created func(T) models.Millis, desc bool) []T {
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		ca, cb := created(a.val), created(b.val)
		if ca != cb {
			if desc {
				return ca > cb
			}
			return ca < cb
		}
		if desc {
			return a.seq > b.seq
		}
		return a.seq < b.seq
	})

	out := make([]T, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.val)
	}
	return out
}

type identityStore struct{ s *Store }

func (st identityStore) ListActive(ctx context.Context) ([]models.Identity, error) {
	st.s.mu.RLock()
	defer st.s.mu.RUnlock()

	var rows []*row[models.Identity]
	for _, r := range st.s.identities {
		if r.val.Active() {
			rows = append(rows, r)
		}
	}
	return sorted(rows, func(i models.Identity) models.Millis { return i.CreatedAt }, true), nil
}

func (st identityStore) GetActive(ctx context.Context, id uuid.UUID) (*models.Identity, error) {
	st.s.mu.RLock()
	defer st.s.mu.RUnlock()

	r, ok := st.s.identities[id]
	if !ok || !r.val.Active() {
		return nil, nil
	}
	i := r.val
	return &i, nil
}

func (st identityStore) Create(ctx context.Context, name string, now models.Millis) (models.Identity, error) {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()

	i := models.Identity{ID: uuid.New(), Name: name, CreatedAt: now, UpdatedAt: now}
	st.s.identities[i.ID] = &row[models.Identity]{seq: st.s.next(), val: i}
	return i, nil
}

func (st identityStore) SoftDelete(ctx context.Context, id uuid.UUID, now models.Millis) (bool, error) {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()

	r, ok := st.s.identities[id]
	if !ok || !r.val.Active() {
		return false, nil
	}
	r.val.DeletedAt = now.Ptr()
	r.val.UpdatedAt = now
	return true, nil
}

func (st identityStore) GetIdentityDashboardItems(ctx context.Context, now models.Millis) ([]models.IdentityDashboardItem, error) {
	st.s.mu.RLock()
	defer st.s.mu.RUnlock()

	var rows []*row[models.Identity]
	for _, r := range st.s.identities {
		if r.val.Active() {
			rows = append(rows, r)
		}
	}
	identities := sorted(rows, func(i models.Identity) models.Millis { return i.CreatedAt }, true)

	startOfDay := models.StartOfDay(now)
	windowStart := models.DaysAgo(now, constants.DashboardWindowDays)

	index := make(map[uuid.UUID]int, len(identities))
	items := make([]models.IdentityDashboardItem, 0, len(identities))
	for n, i := range identities {
		index[i.ID] = n
		items = append(items, models.IdentityDashboardItem{IdentityID: i.ID, IdentityName: i.Name})
	}

	for _, r := range st.s.votes {
		v := r.val
		n, ok := index[v.IdentityID]
		if !ok || !v.Active() {
			continue
		}
		items[n].TotalVotes++
		if v.CreatedAt >= startOfDay {
			items[n].VotesToday++
		}
		if v.CreatedAt >= windowStart {
			items[n].VotesLast7Days++
		}
	}
	return items, nil
}

// CastVote holds the write lock across the habit lookup and both inserts,
// matching the transaction the SQLite binding uses.
func (st identityStore) CastVote(ctx context.Context, identityID uuid.UUID, now models.Millis) (models.Vote, error) {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()

	var oldest *row[models.Habit]
	for _, r := range st.s.habits {
		if r.val.IdentityID != identityID || !r.val.Active() {
			continue
		}
		if oldest == nil || r.val.CreatedAt < oldest.val.CreatedAt ||
			(r.val.CreatedAt == oldest.val.CreatedAt && r.seq < oldest.seq) {
			oldest = r
		}
	}

	var habitID uuid.UUID
	if oldest != nil {
		habitID = oldest.val.ID
	} else {
		habitID = st.s.insertHabit(identityID, constants.DefaultHabitName, now).ID
	}
	return st.s.insertVote(identityID, habitID, nil, now), nil
}

func (st identityStore) ListVoteHistory(ctx context.Context, limit int) ([]models.VoteHistoryItem, error) {
	st.s.mu.RLock()
	defer st.s.mu.RUnlock()

	var rows []*row[models.Vote]
	for _, r := range st.s.votes {
		if !r.val.Active() {
			continue
		}
		if i, ok := st.s.identities[r.val.IdentityID]; !ok || !i.val.Active() {
			continue
		}
		rows = append(rows, r)
	}
	votes := sorted(rows, func(v models.Vote) models.Millis { return v.CreatedAt }, true)

	limit = storage.EffectiveLimit(limit, constants.DefaultHistoryLimit)
	if len(votes) > limit {
		votes = votes[:limit]
	}

	items := make([]models.VoteHistoryItem, 0, len(votes))
	for _, v := range votes {
		items = append(items, models.VoteHistoryItem{
			VoteID:       v.ID,
			IdentityName: st.s.identities[v.IdentityID].val.Name,
			CreatedAt:    v.CreatedAt,
		})
	}
	return items, nil
}

type habitStore struct{ s *Store }

func (st habitStore) ListActive(ctx context.Context) ([]models.Habit, error) {
	return st.list(func(h models.Habit) bool { return true }, true), nil
}

func (st habitStore) ListActiveForIdentity(ctx context.Context, identityID uuid.UUID) ([]models.Habit, error) {
	return st.list(func(h models.Habit) bool { return h.IdentityID == identityID }, false), nil
}

func (st habitStore) list(keep func(models.Habit) bool, desc bool) []models.Habit {
	st.s.mu.RLock()
	defer st.s.mu.RUnlock()

	var rows []*row[models.Habit]
	for _, r := range st.s.habits {
		if r.val.Active() && keep(r.val) {
			rows = append(rows, r)
		}
	}
	return sorted(rows, func(h models.Habit) models.Millis { return h.CreatedAt }, desc)
}

func (st habitStore) GetActive(ctx context.Context, id uuid.UUID) (*models.Habit, error) {
	st.s.mu.RLock()
	defer st.s.mu.RUnlock()

	r, ok := st.s.habits[id]
	if !ok || !r.val.Active() {
		return nil, nil
	}
	h := r.val
	return &h, nil
}

func (st habitStore) Create(ctx context.Context, identityID uuid.UUID, name string, now models.Millis) (models.Habit, error) {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()

	return st.s.insertHabit(identityID, name, now), nil
}

func (st habitStore) SoftDelete(ctx context.Context, id uuid.UUID, now models.Millis) (bool, error) {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()

	r, ok := st.s.habits[id]
	if !ok || !r.val.Active() {
		return false, nil
	}
	r.val.DeletedAt = now.Ptr()
	r.val.UpdatedAt = now
	return true, nil
}

type voteStore struct{ s *Store }

func (st voteStore) ListForHabit(ctx context.Context, habitID uuid.UUID, limit int) ([]models.Vote, error) {
	st.s.mu.RLock()
	defer st.s.mu.RUnlock()

	var rows []*row[models.Vote]
	for _, r := range st.s.votes {
		if r.val.HabitID == habitID && r.val.Active() {
			rows = append(rows, r)
		}
	}
	votes := sorted(rows, func(v models.Vote) models.Millis { return v.CreatedAt }, true)

	limit = storage.EffectiveLimit(limit, constants.DefaultHistoryLimit)
	if len(votes) > limit {
		votes = votes[:limit]
	}
	return votes, nil
}

func (st voteStore) Cast(ctx context.Context, habitID uuid.UUID, value *int64, now models.Millis) (models.Vote, error) {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()

	h, ok := st.s.habits[habitID]
	if !ok {
		return models.Vote{}, fmt.Errorf("failed to cast vote: %w: %s", storage.ErrHabitNotFound, habitID)
	}
	return st.s.insertVote(h.val.IdentityID, habitID, value, now), nil
}

func (st voteStore) CountForHabit(ctx context.Context, habitID uuid.UUID) (int, error) {
	st.s.mu.RLock()
	defer st.s.mu.RUnlock()

	count := 0
	for _, r := range st.s.votes {
		if r.val.HabitID == habitID && r.val.Active() {
			count++
		}
	}
	return count, nil
}

func (st voteStore) LastVoteAt(ctx context.Context, habitID uuid.UUID) (*models.Millis, error) {
	st.s.mu.RLock()
	defer st.s.mu.RUnlock()

	var last *models.Millis
	for _, r := range st.s.votes {
		if r.val.HabitID != habitID || !r.val.Active() {
			continue
		}
		if last == nil || r.val.CreatedAt > *last {
			last = r.val.CreatedAt.Ptr()
		}
	}
	return last, nil
}

// insertHabit and insertVote expect the write lock to be held.
func (s *Store) insertHabit(identityID uuid.UUID, name string, now models.Millis) models.Habit {
	h := models.Habit{ID: uuid.New(), IdentityID: identityID, Name: name, CreatedAt: now, UpdatedAt: now}
	s.habits[h.ID] = &row[models.Habit]{seq: s.next(), val: h}
	return h
}

func (s *Store) insertVote(identityID, habitID uuid.UUID, value *int64, now models.Millis) models.Vote {
	v := models.Vote{ID: uuid.New(), IdentityID: identityID, HabitID: habitID, CreatedAt: now, UpdatedAt: now}
	if value != nil {
		n := *value
		v.Value = &n
	}
	s.votes[v.ID] = &row[models.Vote]{seq: s.next(), val: v}
	return v
}
