// Package catalog holds the catalog domain types and the Store contract,
// along with an in-memory Store implementation.
package catalog

import (
	"context"
	"regexp"
	"sort"
	"strings"
)

var whitespace = regexp.MustCompile(`\s+`)

// Store is the catalog's query and mutation surface. Every read returns
// entries joined with their feature tags.
type Store interface {
	GetUser(ctx context.Context, id int) (User, error)
	GetUserByUsername(ctx context.Context, username string) (User, error)
	CreateUser(ctx context.Context, username, password string) (User, error)

	Get(ctx context.Context, id int) (EntryWithFeatures, error)
	List(ctx context.Context) ([]EntryWithFeatures, error)
	ListByCategory(ctx context.Context, category Category) ([]EntryWithFeatures, error)
	Search(ctx context.Context, query string) ([]EntryWithFeatures, error)
	ListFeatured(ctx context.Context) ([]EntryWithFeatures, error)
	ListTrending(ctx context.Context) ([]EntryWithFeatures, error)
	ListLatest(ctx context.Context, limit int) ([]EntryWithFeatures, error)

	// Create stores a freshly uploaded entry: new id, uploadedAt=now,
	// downloads=0, rating=DefaultRating, flags false.
	Create(ctx context.Context, e NewEntry, features []Feature) (EntryWithFeatures, error)
	// Import stores a fully specified entry under a new id, keeping its
	// rating, downloads, flags and upload time.
	Import(ctx context.Context, e Entry, features []Feature) (EntryWithFeatures, error)
	// IncrementDownloads adds one to the entry's counter. Unknown ids are ignored.
	IncrementDownloads(ctx context.Context, id int) error
}

// MatchesQuery reports whether e's name or description contains query,
// ignoring case. An empty query matches everything.
func MatchesQuery(e Entry, query string) bool {
	q := strings.ToLower(query)
	return strings.Contains(strings.ToLower(e.Name), q) ||
		strings.Contains(strings.ToLower(e.Description), q)
}

// SortLatest orders entries by upload time, newest first. Ties go to the
// higher id.
func SortLatest(entries []EntryWithFeatures) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.UploadedAt.Equal(b.UploadedAt) {
			return a.UploadedAt.After(b.UploadedAt)
		}
		return a.ID > b.ID
	})
}

// NormalizeLimit maps a missing or non-positive limit to DefaultLatestLimit.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLatestLimit
	}
	return limit
}
