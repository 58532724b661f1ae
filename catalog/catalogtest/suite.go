// Package catalogtest runs the catalog.Store contract against any
// implementation.
package catalogtest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"apk-catalog/catalog"
)

// Factory returns a fresh, empty store for one subtest.
type Factory func(t *testing.T) catalog.Store

func newEntry(name, description string, category catalog.Category) catalog.NewEntry {
	return catalog.NewEntry{
		Name:        name,
		Description: description,
		Version:     "1.0",
		Category:    category,
		Size:        "10MB",
		FileName:    "apkFile-test.apk",
	}
}

// RunStoreSuite exercises every Store operation.
func RunStoreSuite(t *testing.T, newStore Factory) {
	ctx := context.Background()

	t.Run("create sets defaults", func(t *testing.T) {
		s := newStore(t)
		before := time.Now().Add(-time.Second)
		got, err := s.Create(ctx, newEntry("Test App", "A test application for validation", catalog.CategoryGames),
			[]catalog.Feature{catalog.FeatureNoAds, catalog.FeaturePremium})
		after := time.Now().Add(time.Second)
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if got.ID <= 0 {
			t.Errorf("expected positive id, got %d", got.ID)
		}
		if got.Rating != catalog.DefaultRating || got.Downloads != 0 {
			t.Errorf("rating/downloads = %d/%d, want %d/0", got.Rating, got.Downloads, catalog.DefaultRating)
		}
		if got.IsFeatured || got.IsTrending {
			t.Error("new entries must not be featured or trending")
		}
		if got.UploadedAt.Before(before) || got.UploadedAt.After(after) {
			t.Errorf("uploadedAt %v outside [%v, %v]", got.UploadedAt, before, after)
		}
		if len(got.Features) != 2 || got.Features[0] != catalog.FeatureNoAds {
			t.Errorf("features = %v", got.Features)
		}

		fetched, err := s.Get(ctx, got.ID)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if fetched.Name != "Test App" || fetched.Category != catalog.CategoryGames || len(fetched.Features) != 2 {
			t.Errorf("Get() = %+v", fetched)
		}
	})

	t.Run("create rejects unknown category", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Create(ctx, newEntry("Bad", "bad category entry", catalog.Category("weather")), nil)
		if !errors.Is(err, catalog.ErrInvalidCategory) {
			t.Errorf("expected ErrInvalidCategory, got %v", err)
		}
	})

	t.Run("get unknown id", func(t *testing.T) {
		s := newStore(t)
		if _, err := s.Get(ctx, 99999); !errors.Is(err, catalog.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("entries without tags have empty feature list", func(t *testing.T) {
		s := newStore(t)
		got, err := s.Create(ctx, newEntry("Plain", "no features at all", catalog.CategorySocial), nil)
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		all, _ := s.List(ctx)
		if got.Features == nil || len(all) != 1 || all[0].Features == nil || len(all[0].Features) != 0 {
			t.Errorf("expected non-nil empty features, got %v / %v", got.Features, all)
		}
	})

	t.Run("list preserves insertion order", func(t *testing.T) {
		s := newStore(t)
		names := []string{"Charlie", "Alpha", "Bravo"}
		for _, n := range names {
			if _, err := s.Create(ctx, newEntry(n, "ordering check entry", catalog.CategoryGames), nil); err != nil {
				t.Fatalf("Create() error = %v", err)
			}
		}
		all, err := s.List(ctx)
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(all) != len(names) {
			t.Fatalf("List() returned %d entries, want %d", len(all), len(names))
		}
		for i, n := range names {
			if all[i].Name != n {
				t.Errorf("List()[%d] = %s, want %s", i, all[i].Name, n)
			}
		}
	})

	t.Run("list by category", func(t *testing.T) {
		s := newStore(t)
		mustCreate(t, s, newEntry("Game One", "first game entry", catalog.CategoryGames))
		mustCreate(t, s, newEntry("Chat", "a social entry", catalog.CategorySocial))
		mustCreate(t, s, newEntry("Game Two", "second game entry", catalog.CategoryGames))

		games, err := s.ListByCategory(ctx, catalog.CategoryGames)
		if err != nil {
			t.Fatalf("ListByCategory() error = %v", err)
		}
		if len(games) != 2 || games[0].Name != "Game One" || games[1].Name != "Game Two" {
			t.Errorf("ListByCategory(games) = %v", names(games))
		}
		sec, _ := s.ListByCategory(ctx, catalog.CategorySecurity)
		if len(sec) != 0 {
			t.Errorf("expected no security entries, got %v", names(sec))
		}
	})

	t.Run("search", func(t *testing.T) {
		s := newStore(t)
		mustCreate(t, s, newEntry("Spotify Premium", "Unlimited skips and offline mode", catalog.CategoryMusicAudio))
		mustCreate(t, s, newEntry("Chess", "Classic board game with PREMIUM themes", catalog.CategoryGames))
		mustCreate(t, s, newEntry("50% Off", "discount_tracker utility", catalog.CategoryUtilities))
		mustCreate(t, s, newEntry("Über Navigator", "ÉCRAN tool for maps", catalog.CategoryUtilities))

		tests := []struct {
			query string
			want  []string
		}{
			{"premium", []string{"Spotify Premium", "Chess"}},
			{"SPOTIFY", []string{"Spotify Premium"}},
			{"board", []string{"Chess"}},
			{"%", []string{"50% Off"}},
			{"_", []string{"50% Off"}},
			{"über", []string{"Über Navigator"}},
			{"écran", []string{"Über Navigator"}},
			{"ÜBER NAV", []string{"Über Navigator"}},
			{"nothing-matches", nil},
			{"", []string{"Spotify Premium", "Chess", "50% Off", "Über Navigator"}},
		}
		for _, tt := range tests {
			t.Run(fmt.Sprintf("q=%q", tt.query), func(t *testing.T) {
				got, err := s.Search(ctx, tt.query)
				if err != nil {
					t.Fatalf("Search() error = %v", err)
				}
				if fmt.Sprint(names(got)) != fmt.Sprint(tt.want) {
					t.Errorf("Search(%q) = %v, want %v", tt.query, names(got), tt.want)
				}
			})
		}
	})

	t.Run("featured and trending come from imported flags", func(t *testing.T) {
		s := newStore(t)
		mustCreate(t, s, newEntry("Uploaded", "regular upload entry", catalog.CategoryGames))
		if _, err := s.Import(ctx, catalog.Entry{Name: "Hot", Description: "trending entry", Version: "1", Category: catalog.CategoryGames, Size: "1MB", FileName: "a.apk", IsTrending: true}, nil); err != nil {
			t.Fatalf("Import() error = %v", err)
		}
		if _, err := s.Import(ctx, catalog.Entry{Name: "Pick", Description: "featured entry", Version: "1", Category: catalog.CategorySocial, Size: "1MB", FileName: "b.apk", IsFeatured: true}, nil); err != nil {
			t.Fatalf("Import() error = %v", err)
		}

		featured, _ := s.ListFeatured(ctx)
		trending, _ := s.ListTrending(ctx)
		if fmt.Sprint(names(featured)) != "[Pick]" {
			t.Errorf("ListFeatured() = %v", names(featured))
		}
		if fmt.Sprint(names(trending)) != "[Hot]" {
			t.Errorf("ListTrending() = %v", names(trending))
		}
	})

	t.Run("import keeps metadata", func(t *testing.T) {
		s := newStore(t)
		at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
		got, err := s.Import(ctx, catalog.Entry{Name: "Old", Description: "imported entry", Version: "2", Category: catalog.CategoryEducation, Size: "3MB", FileName: "c.apk", Rating: 38, Downloads: 120, UploadedAt: at},
			[]catalog.Feature{catalog.FeatureHDSupport})
		if err != nil {
			t.Fatalf("Import() error = %v", err)
		}
		fetched, _ := s.Get(ctx, got.ID)
		if fetched.Rating != 38 || fetched.Downloads != 120 || !fetched.UploadedAt.Equal(at) {
			t.Errorf("Import() did not keep metadata: %+v", fetched)
		}
		if len(fetched.Features) != 1 || fetched.Features[0] != catalog.FeatureHDSupport {
			t.Errorf("features = %v", fetched.Features)
		}
	})

	t.Run("latest sorts newest first and truncates", func(t *testing.T) {
		s := newStore(t)
		base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		for i := 0; i < 10; i++ {
			e := catalog.Entry{Name: fmt.Sprintf("App %d", i), Description: "latest ordering", Version: "1", Category: catalog.CategoryGames, Size: "1MB", FileName: "x.apk",
				UploadedAt: base.Add(time.Duration((i*7)%10) * time.Hour)}
			if _, err := s.Import(ctx, e, nil); err != nil {
				t.Fatalf("Import() error = %v", err)
			}
		}

		def, err := s.ListLatest(ctx, 0)
		if err != nil {
			t.Fatalf("ListLatest() error = %v", err)
		}
		if len(def) != catalog.DefaultLatestLimit {
			t.Errorf("ListLatest(0) returned %d, want %d", len(def), catalog.DefaultLatestLimit)
		}
		for i := 1; i < len(def); i++ {
			if def[i].UploadedAt.After(def[i-1].UploadedAt) {
				t.Errorf("ListLatest not sorted at %d: %v after %v", i, def[i].UploadedAt, def[i-1].UploadedAt)
			}
		}

		three, _ := s.ListLatest(ctx, 3)
		if len(three) != 3 || !three[0].UploadedAt.Equal(base.Add(9*time.Hour)) {
			t.Errorf("ListLatest(3) = %v", names(three))
		}
		all, _ := s.ListLatest(ctx, 50)
		if len(all) != 10 {
			t.Errorf("ListLatest(50) returned %d, want 10", len(all))
		}
	})

	t.Run("increment downloads", func(t *testing.T) {
		s := newStore(t)
		e := mustCreate(t, s, newEntry("Counter", "download counter entry", catalog.CategoryGames))
		for i := 1; i <= 5; i++ {
			if err := s.IncrementDownloads(ctx, e.ID); err != nil {
				t.Fatalf("IncrementDownloads() error = %v", err)
			}
			got, _ := s.Get(ctx, e.ID)
			if got.Downloads != i {
				t.Fatalf("after %d increments downloads = %d", i, got.Downloads)
			}
		}
		if err := s.IncrementDownloads(ctx, 424242); err != nil {
			t.Errorf("IncrementDownloads(unknown) error = %v, want nil", err)
		}
	})

	t.Run("concurrent increments and creates", func(t *testing.T) {
		s := newStore(t)
		e := mustCreate(t, s, newEntry("Busy", "concurrency entry", catalog.CategoryGames))

		const workers = 8
		const perWorker = 25
		var wg sync.WaitGroup
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < perWorker; i++ {
					if err := s.IncrementDownloads(ctx, e.ID); err != nil {
						t.Errorf("IncrementDownloads() error = %v", err)
						return
					}
				}
				if _, err := s.Create(ctx, newEntry("Parallel", "created concurrently", catalog.CategorySocial), nil); err != nil {
					t.Errorf("Create() error = %v", err)
				}
			}()
		}
		wg.Wait()

		got, _ := s.Get(ctx, e.ID)
		if got.Downloads != workers*perWorker {
			t.Errorf("downloads = %d, want %d", got.Downloads, workers*perWorker)
		}
		all, _ := s.List(ctx)
		seen := map[int]bool{}
		for _, a := range all {
			if seen[a.ID] {
				t.Errorf("duplicate id %d", a.ID)
			}
			seen[a.ID] = true
		}
		if len(all) != workers+1 {
			t.Errorf("List() returned %d entries, want %d", len(all), workers+1)
		}
	})

	t.Run("users", func(t *testing.T) {
		s := newStore(t)
		u, err := s.CreateUser(ctx, "admin", "admin123")
		if err != nil {
			t.Fatalf("CreateUser() error = %v", err)
		}
		if _, err := s.CreateUser(ctx, "admin", "other"); !errors.Is(err, catalog.ErrUsernameTaken) {
			t.Errorf("expected ErrUsernameTaken, got %v", err)
		}
		byID, err := s.GetUser(ctx, u.ID)
		if err != nil || byID.Username != "admin" || byID.Password != "admin123" {
			t.Errorf("GetUser() = %+v, %v", byID, err)
		}
		if _, err := s.GetUserByUsername(ctx, "nobody"); !errors.Is(err, catalog.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
		if _, err := s.GetUser(ctx, 777); !errors.Is(err, catalog.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("seed", func(t *testing.T) {
		s := newStore(t)
		now := time.Now()
		n, err := catalog.Seed(ctx, s, now)
		if err != nil {
			t.Fatalf("Seed() error = %v", err)
		}
		if n != 8 {
			t.Errorf("Seed() = %d, want 8", n)
		}
		featured, _ := s.ListFeatured(ctx)
		trending, _ := s.ListTrending(ctx)
		if len(featured) != 3 || len(trending) != 4 {
			t.Errorf("featured/trending = %d/%d, want 3/4", len(featured), len(trending))
		}
		admin, err := s.GetUserByUsername(ctx, catalog.DemoUsername)
		if err != nil {
			t.Fatalf("demo user missing: %v", err)
		}
		all, _ := s.List(ctx)
		for _, e := range all {
			if e.OwnerUserID == nil || *e.OwnerUserID != admin.ID {
				t.Errorf("%s not owned by demo user", e.Name)
			}
			if e.UploadedAt.After(now) || e.UploadedAt.Before(now.Add(-72*time.Hour)) {
				t.Errorf("%s uploaded at %v, outside the last 72h", e.Name, e.UploadedAt)
			}
		}

		again, err := catalog.Seed(ctx, s, now)
		if err != nil || again != 0 {
			t.Errorf("second Seed() = %d, %v; want 0, nil", again, err)
		}
	})
}

func mustCreate(t *testing.T, s catalog.Store, e catalog.NewEntry) catalog.EntryWithFeatures {
	t.Helper()
	got, err := s.Create(context.Background(), e, nil)
	if err != nil {
		t.Fatalf("Create(%s) error = %v", e.Name, err)
	}
	return got
}

func names(entries []catalog.EntryWithFeatures) []string {
	var out []string
	for _, e := range entries {
		out = append(out, e.Name)
	}
	return out
}
