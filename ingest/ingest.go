// Package ingest validates catalog submissions and persists their files.
package ingest

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"

	"apk-catalog/catalog"
	"apk-catalog/storage"

	"go.uber.org/zap"
)

const (
	FieldAPK  = "apkFile"
	FieldIcon = "iconImage"

	// DefaultMaxAPKSize is 1 GiB.
	DefaultMaxAPKSize int64 = 1 << 30
)

// File is one uploaded file part.
type File struct {
	Name        string // client-supplied file name
	ContentType string // declared content type
	Size        int64
	Open        func() (io.ReadCloser, error)
}

// FromHeader adapts a parsed multipart file.
func FromHeader(h *multipart.FileHeader) *File {
	if h == nil {
		return nil
	}
	return &File{
		Name:        h.Filename,
		ContentType: h.Header.Get("Content-Type"),
		Size:        h.Size,
		Open: func() (io.ReadCloser, error) {
			return h.Open()
		},
	}
}

// Submission is one upload request.
type Submission struct {
	Form        Form
	APK         *File
	Icon        *File
	OwnerUserID *int
}

// Ingestor turns submissions into catalog entries.
type Ingestor struct {
	store      catalog.Store
	disk       *storage.Disk
	maxAPKSize int64
	log        *zap.SugaredLogger
}

// NewIngestor wires an Ingestor. A non-positive maxAPKSize selects
// DefaultMaxAPKSize; a nil log discards output.
func NewIngestor(store catalog.Store, disk *storage.Disk, maxAPKSize int64, log *zap.SugaredLogger) *Ingestor {
	if maxAPKSize <= 0 {
		maxAPKSize = DefaultMaxAPKSize
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Ingestor{store: store, disk: disk, maxAPKSize: maxAPKSize, log: log}
}

// Ingest filters the files, writes them to disk, validates the form and
// creates the entry. Files written for a rejected submission are removed
// before Ingest returns.
func (in *Ingestor) Ingest(ctx context.Context, sub Submission) (catalog.EntryWithFeatures, error) {
	if ve := in.filterFiles(sub); ve != nil {
		return catalog.EntryWithFeatures{}, ve
	}

	var written []string
	cleanup := func() {
		for _, name := range written {
			if err := in.disk.Remove(name); err != nil {
				in.log.Warnw("Failed to remove rejected upload", zap.String("file", name), zap.Error(err))
			}
		}
	}

	apk, err := in.save(FieldAPK, sub.APK)
	if err != nil {
		return catalog.EntryWithFeatures{}, err
	}
	written = append(written, apk.Name)

	var iconPath *string
	if sub.Icon != nil {
		icon, err := in.save(FieldIcon, sub.Icon)
		if err != nil {
			cleanup()
			return catalog.EntryWithFeatures{}, err
		}
		written = append(written, icon.Name)
		iconPath = &icon.Name
	}

	md, ve := Validate(sub.Form)
	if ve != nil {
		cleanup()
		return catalog.EntryWithFeatures{}, ve
	}

	entry, err := in.store.Create(ctx, catalog.NewEntry{
		Name:        md.Name,
		Description: md.Description,
		Version:     md.Version,
		Category:    md.Category,
		Size:        md.Size,
		FileName:    apk.Name,
		IconPath:    iconPath,
		OwnerUserID: sub.OwnerUserID,
		Checksum:    apk.SHA256,
	}, md.Features)
	if err != nil {
		cleanup()
		return catalog.EntryWithFeatures{}, fmt.Errorf("failed to create entry: %w", err)
	}

	in.log.Infow("Stored upload",
		zap.Int("id", entry.ID),
		zap.String("name", entry.Name),
		zap.String("file", apk.Name),
		zap.Int64("bytes", apk.Size),
	)
	return entry, nil
}

// filterFiles applies the acceptance policy before anything touches disk.
func (in *Ingestor) filterFiles(sub Submission) *ValidationError {
	ve := &ValidationError{Message: "Invalid APK data"}
	if sub.APK == nil {
		ve.Message = "APK file is required"
		ve.Add(FieldAPK, "APK file is required")
		return ve
	}
	if filepath.Ext(sub.APK.Name) != ".apk" {
		ve.Message = "Only APK files are allowed!"
		ve.Add(FieldAPK, "Only APK files are allowed!")
	} else if sub.APK.Size > in.maxAPKSize {
		ve.Message = "APK file is too large"
		ve.Add(FieldAPK, fmt.Sprintf("APK file exceeds %d bytes", in.maxAPKSize))
	}
	if sub.Icon != nil && !strings.HasPrefix(sub.Icon.ContentType, "image/") {
		if len(ve.Fields) == 0 {
			ve.Message = "Only image files are allowed for icons!"
		}
		ve.Add(FieldIcon, "Only image files are allowed for icons!")
	}
	if len(ve.Fields) > 0 {
		return ve
	}
	return nil
}

func (in *Ingestor) save(field string, f *File) (storage.SavedFile, error) {
	src, err := f.Open()
	if err != nil {
		return storage.SavedFile{}, fmt.Errorf("failed to open %s: %w", field, err)
	}
	defer src.Close()

	saved, err := in.disk.Save(field, f.Name, src)
	if err != nil {
		return storage.SavedFile{}, fmt.Errorf("failed to store %s: %w", field, err)
	}
	return saved, nil
}
