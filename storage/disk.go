// Package storage keeps uploaded packages and icons in one flat directory.
package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrMissing is returned when a stored file is not on disk.
var ErrMissing = errors.New("file missing from storage")

// Disk stores files under generated names inside Dir.
type Disk struct {
	Dir string
	now func() time.Time
}

// SavedFile describes a file written by Save.
type SavedFile struct {
	Name   string // generated base name inside Dir
	Path   string
	Size   int64
	SHA256 string
}

// NewDisk creates dir if needed and returns a Disk rooted there.
func NewDisk(dir string) (*Disk, error) {
	if dir == "" {
		return nil, errors.New("storage directory is required")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory '%s': %w", dir, err)
	}
	return &Disk{Dir: dir, now: time.Now}, nil
}

// GenerateName builds "<field>-<unix millis>-<uuid><ext>". The extension is
// taken from the client's file name; nothing else of it is kept.
func (d *Disk) GenerateName(field, originalName string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(originalName)))
	if strings.ContainsAny(ext, `/\`) {
		ext = ""
	}
	return fmt.Sprintf("%s-%d-%s%s", field, d.now().UnixMilli(), uuid.NewString(), ext)
}

// Save copies src into a newly generated file. Partial files are removed
// when the copy fails.
func (d *Disk) Save(field, originalName string, src io.Reader) (SavedFile, error) {
	name := d.GenerateName(field, originalName)
	path := filepath.Join(d.Dir, name)

	// O_EXCL guards against ever overwriting an existing upload.
	out, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return SavedFile{}, fmt.Errorf("failed to create file '%s': %w", path, err)
	}

	hasher := sha256.New()
	n, err := io.Copy(io.MultiWriter(out, hasher), src)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return SavedFile{}, fmt.Errorf("failed to write '%s': %w", path, err)
	}

	return SavedFile{
		Name:   name,
		Path:   path,
		Size:   n,
		SHA256: hex.EncodeToString(hasher.Sum(nil)),
	}, nil
}

// Remove deletes a stored file. Missing files are not an error.
func (d *Disk) Remove(name string) error {
	path, err := d.Path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove '%s': %w", path, err)
	}
	return nil
}

// Path resolves a stored name to its location, refusing names that would
// escape Dir.
func (d *Disk) Path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return "", fmt.Errorf("invalid stored file name %q", name)
	}
	return filepath.Join(d.Dir, name), nil
}

// Open opens a stored file for reading. ErrMissing is returned when the
// file is not on disk.
func (d *Disk) Open(name string) (*os.File, os.FileInfo, error) {
	path, err := d.Path(name)
	if err != nil {
		return nil, nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("%s: %w", name, ErrMissing)
		}
		return nil, nil, fmt.Errorf("failed to open '%s': %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("failed to stat '%s': %w", path, err)
	}
	if info.IsDir() {
		f.Close()
		return nil, nil, fmt.Errorf("%s: %w", name, ErrMissing)
	}
	return f, info, nil
}
