package db

import (
	"time"

	"apk-catalog/catalog"
)

// User is a catalog account row
type User struct {
	ID       int    `gorm:"primaryKey"`
	Username string `gorm:"uniqueIndex;not null"`
	Password string `gorm:"not null"` // stored as given
}

// ApkFile is one catalog entry row
type ApkFile struct {
	ID          int    `gorm:"primaryKey"`
	Name        string `gorm:"not null"`
	Description string `gorm:"not null"`
	Version     string `gorm:"not null"`
	Category    string `gorm:"size:32;index;not null"`
	Size        string `gorm:"not null"` // free text, e.g. "150MB"
	FileName    string `gorm:"not null"` // generated name inside the upload dir
	IconPath    *string
	Rating      int       `gorm:"not null;default:0"`
	Downloads   int       `gorm:"not null;default:0"`
	UploadedAt  time.Time `gorm:"index"`
	UserID      *int      `gorm:"index"`
	IsFeatured  bool      `gorm:"not null;default:false"`
	IsTrending  bool      `gorm:"not null;default:false"`
	Checksum    string    // sha256 of the package, empty for seeded rows

	Features []ApkFeature `gorm:"foreignKey:ApkID"`
}

// ApkFeature tags an ApkFile with one feature
type ApkFeature struct {
	ID      int    `gorm:"primaryKey"`
	ApkID   int    `gorm:"index;not null"`
	Feature string `gorm:"size:32;not null"`
}

func (u User) toCatalog() catalog.User {
	return catalog.User{ID: u.ID, Username: u.Username, Password: u.Password}
}

func (a ApkFile) toCatalog() catalog.EntryWithFeatures {
	features := make([]catalog.Feature, 0, len(a.Features))
	for _, f := range a.Features {
		features = append(features, catalog.Feature(f.Feature))
	}
	return catalog.EntryWithFeatures{
		Entry: catalog.Entry{
			ID:          a.ID,
			Name:        a.Name,
			Description: a.Description,
			Version:     a.Version,
			Category:    catalog.Category(a.Category),
			Size:        a.Size,
			FileName:    a.FileName,
			IconPath:    a.IconPath,
			Rating:      a.Rating,
			Downloads:   a.Downloads,
			UploadedAt:  a.UploadedAt,
			OwnerUserID: a.UserID,
			IsFeatured:  a.IsFeatured,
			IsTrending:  a.IsTrending,
			Checksum:    a.Checksum,
		},
		Features: features,
	}
}

func fromCatalog(e catalog.Entry, features []catalog.Feature) ApkFile {
	rows := make([]ApkFeature, 0, len(features))
	for _, f := range features {
		rows = append(rows, ApkFeature{Feature: string(f)})
	}
	return ApkFile{
		Name:        e.Name,
		Description: e.Description,
		Version:     e.Version,
		Category:    string(e.Category),
		Size:        e.Size,
		FileName:    e.FileName,
		IconPath:    e.IconPath,
		Rating:      e.Rating,
		Downloads:   e.Downloads,
		UploadedAt:  e.UploadedAt,
		UserID:      e.OwnerUserID,
		IsFeatured:  e.IsFeatured,
		IsTrending:  e.IsTrending,
		Checksum:    e.Checksum,
		Features:    rows,
	}
}
