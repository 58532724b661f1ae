package catalog

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryStore keeps the catalog in process memory. A single RWMutex guards
// the maps and id counters, so it is safe for concurrent handlers.
type MemoryStore struct {
	mu sync.RWMutex

	users    map[int]User
	entries  map[int]Entry
	features map[int][]FeatureTag // entry id -> tags

	nextUserID    int
	nextEntryID   int
	nextFeatureID int

	now func() time.Time
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) { s.now = now }
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		users:         make(map[int]User),
		entries:       make(map[int]Entry),
		features:      make(map[int][]FeatureTag),
		nextUserID:    1,
		nextEntryID:   1,
		nextFeatureID: 1,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// User operations

func (s *MemoryStore) GetUser(_ context.Context, id int) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return User{}, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	return u, nil
}

func (s *MemoryStore) GetUserByUsername(_ context.Context, username string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Username == username {
			return u, nil
		}
	}
	return User{}, fmt.Errorf("user %q: %w", username, ErrNotFound)
}

func (s *MemoryStore) CreateUser(_ context.Context, username, password string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Username == username {
			return User{}, fmt.Errorf("user %q: %w", username, ErrUsernameTaken)
		}
	}
	u := User{ID: s.nextUserID, Username: username, Password: password}
	s.nextUserID++
	s.users[u.ID] = u
	return u, nil
}

// Entry reads

func (s *MemoryStore) Get(_ context.Context, id int) (EntryWithFeatures, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[id]
	if !ok {
		return EntryWithFeatures{}, fmt.Errorf("entry %d: %w", id, ErrNotFound)
	}
	return s.withFeatures(e), nil
}

func (s *MemoryStore) List(_ context.Context) ([]EntryWithFeatures, error) {
	return s.filter(func(Entry) bool { return true }), nil
}

func (s *MemoryStore) ListByCategory(_ context.Context, category Category) ([]EntryWithFeatures, error) {
	return s.filter(func(e Entry) bool { return e.Category == category }), nil
}

func (s *MemoryStore) Search(_ context.Context, query string) ([]EntryWithFeatures, error) {
	return s.filter(func(e Entry) bool { return MatchesQuery(e, query) }), nil
}

func (s *MemoryStore) ListFeatured(_ context.Context) ([]EntryWithFeatures, error) {
	return s.filter(func(e Entry) bool { return e.IsFeatured }), nil
}

func (s *MemoryStore) ListTrending(_ context.Context) ([]EntryWithFeatures, error) {
	return s.filter(func(e Entry) bool { return e.IsTrending }), nil
}

func (s *MemoryStore) ListLatest(_ context.Context, limit int) ([]EntryWithFeatures, error) {
	out := s.filter(func(Entry) bool { return true })
	SortLatest(out)
	if n := NormalizeLimit(limit); len(out) > n {
		out = out[:n]
	}
	return out, nil
}

// Entry writes

func (s *MemoryStore) Create(_ context.Context, in NewEntry, features []Feature) (EntryWithFeatures, error) {
	if _, err := ParseCategory(string(in.Category)); err != nil {
		return EntryWithFeatures{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e := Entry{
		Name:        in.Name,
		Description: in.Description,
		Version:     in.Version,
		Category:    in.Category,
		Size:        in.Size,
		FileName:    in.FileName,
		IconPath:    in.IconPath,
		Rating:      DefaultRating,
		Downloads:   0,
		UploadedAt:  s.now(),
		OwnerUserID: in.OwnerUserID,
		Checksum:    in.Checksum,
	}
	return s.insertLocked(e, features), nil
}

func (s *MemoryStore) Import(_ context.Context, e Entry, features []Feature) (EntryWithFeatures, error) {
	if _, err := ParseCategory(string(e.Category)); err != nil {
		return EntryWithFeatures{}, err
	}
	e.Rating = clampRating(e.Rating)
	if e.Downloads < 0 {
		e.Downloads = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if e.UploadedAt.IsZero() {
		e.UploadedAt = s.now()
	}
	return s.insertLocked(e, features), nil
}

func (s *MemoryStore) IncrementDownloads(_ context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return nil
	}
	e.Downloads++
	s.entries[id] = e
	return nil
}

// insertLocked assigns ids to e and its tags. Callers hold s.mu.
func (s *MemoryStore) insertLocked(e Entry, features []Feature) EntryWithFeatures {
	e.ID = s.nextEntryID
	s.nextEntryID++
	s.entries[e.ID] = e

	tags := make([]FeatureTag, 0, len(features))
	for _, f := range features {
		tags = append(tags, FeatureTag{ID: s.nextFeatureID, EntryID: e.ID, Feature: f})
		s.nextFeatureID++
	}
	s.features[e.ID] = tags
	return s.withFeatures(e)
}

// filter returns matching entries in insertion (id) order.
func (s *MemoryStore) filter(keep func(Entry) bool) []EntryWithFeatures {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]EntryWithFeatures, 0, len(s.entries))
	// Ids are dense and start at 1, so walking the counter range preserves
	// insertion order without a sort.
	for id := 1; id < s.nextEntryID; id++ {
		e, ok := s.entries[id]
		if !ok || !keep(e) {
			continue
		}
		out = append(out, s.withFeatures(e))
	}
	return out
}

func (s *MemoryStore) withFeatures(e Entry) EntryWithFeatures {
	tags := s.features[e.ID]
	fs := make([]Feature, 0, len(tags))
	for _, t := range tags {
		fs = append(fs, t.Feature)
	}
	return EntryWithFeatures{Entry: e, Features: fs}
}
