package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"apk-catalog/catalog"
	"apk-catalog/config"
	"apk-catalog/server"
	"apk-catalog/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, seed bool) (*Client, *catalog.MemoryStore) {
	t.Helper()
	disk, err := storage.NewDisk(t.TempDir())
	require.NoError(t, err)
	store := catalog.NewMemoryStore()
	if seed {
		_, err := catalog.Seed(context.Background(), store, time.Now())
		require.NoError(t, err)
	}
	ts := httptest.NewServer(server.New(server.Options{Store: store, Disk: disk}).Handler())
	t.Cleanup(ts.Close)

	c, err := NewClient(config.Config{APIURL: ts.URL + "/", UserAgent: "apk-catalog/test"})
	require.NoError(t, err)
	return c, store
}

func TestNewClientRequiresSettings(t *testing.T) {
	_, err := NewClient(config.Config{UserAgent: "x"})
	assert.Error(t, err)
	_, err = NewClient(config.Config{APIURL: "http://localhost"})
	assert.Error(t, err)
}

func TestQueries(t *testing.T) {
	c, _ := newTestClient(t, true)
	ctx := context.Background()

	all, err := c.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 8)

	featured, err := c.Featured(ctx)
	require.NoError(t, err)
	assert.Len(t, featured, 3)

	trending, err := c.Trending(ctx)
	require.NoError(t, err)
	assert.Len(t, trending, 4)

	latest, err := c.Latest(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, latest, 2)

	found, err := c.Search(ctx, "spotify")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Spotify Premium", found[0].Name)

	games, err := c.ByCategory(ctx, catalog.CategoryGames)
	require.NoError(t, err)
	assert.Len(t, games, 3)

	one, err := c.Get(ctx, found[0].ID)
	require.NoError(t, err)
	assert.Equal(t, found[0].ID, one.ID)
	assert.NotEmpty(t, one.Features)
}

func TestGetUnknownReturnsAPIError(t *testing.T) {
	c, _ := newTestClient(t, false)
	_, err := c.Get(context.Background(), 99999)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr), "expected *APIError, got %v", err)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "APK not found", apiErr.Message)
}

func TestUploadAndDownload(t *testing.T) {
	c, store := newTestClient(t, false)
	ctx := context.Background()

	dir := t.TempDir()
	apkPath := filepath.Join(dir, "test.apk")
	require.NoError(t, os.WriteFile(apkPath, []byte("PK\x03\x04 payload"), 0644))
	iconPath := filepath.Join(dir, "icon.png")
	require.NoError(t, os.WriteFile(iconPath, []byte("\x89PNG"), 0644))

	entry, err := c.Upload(ctx, UploadRequest{
		Name:        "Test App",
		Description: "A test application for validation",
		Version:     "1.0",
		Category:    catalog.CategoryGames,
		Features:    []catalog.Feature{catalog.FeatureNoAds},
		APKPath:     apkPath,
		IconPath:    iconPath,
	})
	require.NoError(t, err)
	assert.Equal(t, "12B", entry.Size)
	assert.NotNil(t, entry.IconPath)
	assert.Equal(t, []catalog.Feature{catalog.FeatureNoAds}, entry.Features)

	out := filepath.Join(t.TempDir(), "downloads")
	path, err := c.Download(ctx, zap.NewNop().Sugar(), entry.ID, out)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(out, "Test_App_1.0.apk"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "PK\x03\x04 payload", string(data))

	stored, err := store.Get(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Downloads)
}

func TestDownloadKeepsQuotedName(t *testing.T) {
	c, _ := newTestClient(t, false)
	ctx := context.Background()
	apkPath := filepath.Join(t.TempDir(), "best.apk")
	require.NoError(t, os.WriteFile(apkPath, []byte("payload"), 0644))

	entry, err := c.Upload(ctx, UploadRequest{
		Name:        `My "Best" App`,
		Description: "An app whose name carries quotes",
		Version:     "1.0",
		Category:    catalog.CategoryUtilities,
		APKPath:     apkPath,
	})
	require.NoError(t, err)

	out := t.TempDir()
	path, err := c.Download(ctx, zap.NewNop().Sugar(), entry.ID, out)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(out, `My_"Best"_App_1.0.apk`), path)
}

func TestUploadValidationError(t *testing.T) {
	c, _ := newTestClient(t, false)
	apkPath := filepath.Join(t.TempDir(), "test.apk")
	require.NoError(t, os.WriteFile(apkPath, []byte("x"), 0644))

	_, err := c.Upload(context.Background(), UploadRequest{
		Name: "ab", Description: "too short", Version: "1", Category: "weather", APKPath: apkPath,
	})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr), "expected *APIError, got %v", err)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Contains(t, apiErr.Fields, "name")
	assert.Contains(t, apiErr.Fields, "category")
}

func TestDownloadUnknownLeavesNoFile(t *testing.T) {
	c, _ := newTestClient(t, false)
	out := t.TempDir()
	_, err := c.Download(context.Background(), zap.NewNop().Sugar(), 42, out)
	require.Error(t, err)

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestHumanSize(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "0B"},
		{1023, "1023B"},
		{2048, "2KB"},
		{85 << 20, "85MB"},
		{3 << 30, "3.0GB"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HumanSize(tt.n))
	}
}

func TestAttachmentName(t *testing.T) {
	assert.Equal(t, "Test_App_1.0.apk", attachmentName(`attachment; filename="Test_App_1.0.apk"`))
	assert.Equal(t, "passwd", attachmentName(`attachment; filename="../../etc/passwd"`))
	assert.Equal(t, `a"b.apk`, attachmentName(`attachment; filename="a\"b.apk"`))
	assert.Equal(t, "", attachmentName(""))
}
