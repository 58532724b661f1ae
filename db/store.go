package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"apk-catalog/catalog"

	"gorm.io/gorm"
)

// SQLStore implements catalog.Store on top of GORM.
type SQLStore struct {
	db  *gorm.DB
	now func() time.Time
}

var _ catalog.Store = (*SQLStore)(nil)

// NewStore wraps an opened database.
func NewStore(gdb *gorm.DB) *SQLStore {
	return &SQLStore{db: gdb, now: time.Now}
}

func (s *SQLStore) GetUser(ctx context.Context, id int) (catalog.User, error) {
	var u User
	if err := s.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return catalog.User{}, notFound(err, fmt.Sprintf("user %d", id))
	}
	return u.toCatalog(), nil
}

func (s *SQLStore) GetUserByUsername(ctx context.Context, username string) (catalog.User, error) {
	var u User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&u).Error; err != nil {
		return catalog.User{}, notFound(err, fmt.Sprintf("user %q", username))
	}
	return u.toCatalog(), nil
}

func (s *SQLStore) CreateUser(ctx context.Context, username, password string) (catalog.User, error) {
	var created User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&User{}).Where("username = ?", username).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("user %q: %w", username, catalog.ErrUsernameTaken)
		}
		created = User{Username: username, Password: password}
		return tx.Create(&created).Error
	})
	if err != nil {
		return catalog.User{}, err
	}
	return created.toCatalog(), nil
}

func (s *SQLStore) Get(ctx context.Context, id int) (catalog.EntryWithFeatures, error) {
	var row ApkFile
	if err := s.entries(ctx).First(&row, id).Error; err != nil {
		return catalog.EntryWithFeatures{}, notFound(err, fmt.Sprintf("entry %d", id))
	}
	return row.toCatalog(), nil
}

func (s *SQLStore) List(ctx context.Context) ([]catalog.EntryWithFeatures, error) {
	return s.find(s.entries(ctx).Order("id ASC"))
}

func (s *SQLStore) ListByCategory(ctx context.Context, category catalog.Category) ([]catalog.EntryWithFeatures, error) {
	return s.find(s.entries(ctx).Where("category = ?", string(category)).Order("id ASC"))
}

// Search matches in Go with catalog.MatchesQuery. SQLite's LOWER and LIKE
// only fold ASCII letters.
func (s *SQLStore) Search(ctx context.Context, query string) ([]catalog.EntryWithFeatures, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]catalog.EntryWithFeatures, 0, len(all))
	for _, e := range all {
		if catalog.MatchesQuery(e.Entry, query) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *SQLStore) ListFeatured(ctx context.Context) ([]catalog.EntryWithFeatures, error) {
	return s.find(s.entries(ctx).Where("is_featured = ?", true).Order("id ASC"))
}

func (s *SQLStore) ListTrending(ctx context.Context) ([]catalog.EntryWithFeatures, error) {
	return s.find(s.entries(ctx).Where("is_trending = ?", true).Order("id ASC"))
}

func (s *SQLStore) ListLatest(ctx context.Context, limit int) ([]catalog.EntryWithFeatures, error) {
	return s.find(s.entries(ctx).
		Order("uploaded_at DESC").Order("id DESC").
		Limit(catalog.NormalizeLimit(limit)))
}

func (s *SQLStore) Create(ctx context.Context, in catalog.NewEntry, features []catalog.Feature) (catalog.EntryWithFeatures, error) {
	if _, err := catalog.ParseCategory(string(in.Category)); err != nil {
		return catalog.EntryWithFeatures{}, err
	}
	row := fromCatalog(catalog.Entry{
		Name:        in.Name,
		Description: in.Description,
		Version:     in.Version,
		Category:    in.Category,
		Size:        in.Size,
		FileName:    in.FileName,
		IconPath:    in.IconPath,
		Rating:      catalog.DefaultRating,
		UploadedAt:  s.now().UTC(),
		OwnerUserID: in.OwnerUserID,
		Checksum:    in.Checksum,
	}, features)
	return s.insert(ctx, row)
}

func (s *SQLStore) Import(ctx context.Context, e catalog.Entry, features []catalog.Feature) (catalog.EntryWithFeatures, error) {
	if _, err := catalog.ParseCategory(string(e.Category)); err != nil {
		return catalog.EntryWithFeatures{}, err
	}
	if e.Rating < 0 {
		e.Rating = 0
	} else if e.Rating > catalog.MaxRating {
		e.Rating = catalog.MaxRating
	}
	if e.Downloads < 0 {
		e.Downloads = 0
	}
	if e.UploadedAt.IsZero() {
		e.UploadedAt = s.now()
	}
	e.UploadedAt = e.UploadedAt.UTC()
	return s.insert(ctx, fromCatalog(e, features))
}

func (s *SQLStore) IncrementDownloads(ctx context.Context, id int) error {
	err := s.db.WithContext(ctx).Model(&ApkFile{}).
		Where("id = ?", id).
		UpdateColumn("downloads", gorm.Expr("downloads + ?", 1)).Error
	if err != nil {
		return fmt.Errorf("failed to increment downloads for entry %d: %w", id, err)
	}
	return nil
}

// insert writes the entry and its feature rows in one transaction.
func (s *SQLStore) insert(ctx context.Context, row ApkFile) (catalog.EntryWithFeatures, error) {
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return catalog.EntryWithFeatures{}, fmt.Errorf("failed to save entry %q: %w", row.Name, err)
	}
	return row.toCatalog(), nil
}

func (s *SQLStore) entries(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Model(&ApkFile{}).Preload("Features", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("id ASC")
	})
}

func (s *SQLStore) find(q *gorm.DB) ([]catalog.EntryWithFeatures, error) {
	var rows []ApkFile
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	out := make([]catalog.EntryWithFeatures, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toCatalog())
	}
	return out, nil
}

func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, catalog.ErrNotFound)
	}
	return fmt.Errorf("failed to load %s: %w", what, err)
}
