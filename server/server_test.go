package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"apk-catalog/catalog"
	"apk-catalog/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	srv   *Server
	store *catalog.MemoryStore
	disk  *storage.Disk
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	disk, err := storage.NewDisk(t.TempDir())
	require.NoError(t, err)
	store := catalog.NewMemoryStore()
	return &testEnv{
		srv:   New(Options{Store: store, Disk: disk}),
		store: store,
		disk:  disk,
	}
}

func (e *testEnv) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	e.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) get(t *testing.T, path string) *httptest.ResponseRecorder {
	return e.do(t, httptest.NewRequest(http.MethodGet, path, nil))
}

type filePart struct {
	field, name, contentType, body string
}

func multipartRequest(t *testing.T, fields map[string]string, files ...filePart) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+f.field+`"; filename="`+f.name+`"`)
		h.Set("Content-Type", f.contentType)
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = io.WriteString(part, f.body)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/apks", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func testAppFields() map[string]string {
	return map[string]string{
		"name":        "Test App",
		"description": "A test application for validation",
		"version":     "1.0",
		"category":    "games",
		"size":        "10MB",
		"features":    "no-ads,premium",
	}
}

type entryJSON struct {
	ID         int       `json:"id"`
	Name       string    `json:"name"`
	Version    string    `json:"version"`
	Category   string    `json:"category"`
	FileName   string    `json:"fileName"`
	IconPath   *string   `json:"iconPath"`
	Rating     int       `json:"rating"`
	Downloads  int       `json:"downloads"`
	UploadedAt time.Time `json:"uploadedAt"`
	UserID     *int      `json:"userId"`
	IsFeatured bool      `json:"isFeatured"`
	IsTrending bool      `json:"isTrending"`
	Features   []string  `json:"features"`
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func countFiles(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	return len(entries)
}

func TestUploadThenDownloadThreeTimes(t *testing.T) {
	env := newTestEnv(t)
	apkBody := "PK\x03\x04 fake apk payload"

	rec := env.do(t, multipartRequest(t, testAppFields(),
		filePart{"apkFile", "test.apk", "application/vnd.android.package-archive", apkBody}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	created := decode[entryJSON](t, rec)
	assert.Equal(t, "Test App", created.Name)
	assert.Equal(t, 45, created.Rating)
	assert.Equal(t, 0, created.Downloads)
	assert.False(t, created.IsFeatured)
	assert.False(t, created.IsTrending)
	assert.Nil(t, created.IconPath)
	assert.Nil(t, created.UserID)
	assert.ElementsMatch(t, []string{"no-ads", "premium"}, created.Features)
	assert.NotEqual(t, "test.apk", created.FileName)

	for i := 0; i < 3; i++ {
		dl := env.get(t, "/api/apks/"+strconv.Itoa(created.ID)+"/download")
		require.Equal(t, http.StatusOK, dl.Code)
		assert.Equal(t, apkBody, dl.Body.String())
		assert.Equal(t, "application/vnd.android.package-archive", dl.Header().Get("Content-Type"))
		assert.Equal(t, `attachment; filename="Test_App_1.0.apk"`, dl.Header().Get("Content-Disposition"))
	}

	got := decode[entryJSON](t, env.get(t, "/api/apks/"+strconv.Itoa(created.ID)))
	assert.Equal(t, 3, got.Downloads)

	games := decode[[]entryJSON](t, env.get(t, "/api/apks/category/games"))
	require.Len(t, games, 1)
	assert.Equal(t, created.ID, games[0].ID)
}

func TestDownloadEscapesQuotedFileName(t *testing.T) {
	env := newTestEnv(t)
	fields := testAppFields()
	fields["name"] = `My "Best" App`

	rec := env.do(t, multipartRequest(t, fields,
		filePart{"apkFile", "best.apk", "application/vnd.android.package-archive", "payload"}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[entryJSON](t, rec)

	dl := env.get(t, "/api/apks/"+strconv.Itoa(created.ID)+"/download")
	require.Equal(t, http.StatusOK, dl.Code)
	header := dl.Header().Get("Content-Disposition")
	assert.Equal(t, `attachment; filename="My_\"Best\"_App_1.0.apk"`, header)

	disposition, params, err := mime.ParseMediaType(header)
	require.NoError(t, err)
	assert.Equal(t, "attachment", disposition)
	assert.Equal(t, `My_"Best"_App_1.0.apk`, params["filename"])
}

func TestAttachmentDisposition(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Test_App_1.0.apk", `attachment; filename="Test_App_1.0.apk"`},
		{`a"b.apk`, `attachment; filename="a\"b.apk"`},
		{`back\slash.apk`, `attachment; filename="back\\slash.apk"`},
		{"Über_1.0.apk", `attachment; filename="Über_1.0.apk"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := attachmentDisposition(tt.name)
			assert.Equal(t, tt.want, got)

			_, params, err := mime.ParseMediaType(got)
			require.NoError(t, err)
			assert.Equal(t, tt.name, params["filename"])
		})
	}
}

func TestGetEntryErrors(t *testing.T) {
	env := newTestEnv(t)

	rec := env.get(t, "/api/apks/99999")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"message":"APK not found"}`, rec.Body.String())

	rec = env.get(t, "/api/apks/abc")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"message":"Invalid APK ID"}`, rec.Body.String())

	rec = env.get(t, "/api/apks/abc/download")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.get(t, "/api/apks/42/download")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"message":"APK file not found"}`, rec.Body.String())
}

func TestUploadRejectsNonAPK(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, multipartRequest(t, testAppFields(),
		filePart{"apkFile", "test.zip", "application/zip", "zip bytes"}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, countFiles(t, env.disk.Dir))

	all := decode[[]entryJSON](t, env.get(t, "/api/apks"))
	assert.Empty(t, all)
}

func TestUploadValidation(t *testing.T) {
	env := newTestEnv(t)

	fields := testAppFields()
	fields["name"] = "ab"
	fields["category"] = "weather"
	rec := env.do(t, multipartRequest(t, fields,
		filePart{"apkFile", "test.apk", "application/octet-stream", "apk"},
		filePart{"iconImage", "icon.png", "image/png", "png"}))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	body := decode[struct {
		Message string              `json:"message"`
		Errors  map[string][]string `json:"errors"`
	}](t, rec)
	assert.Equal(t, "Invalid APK data", body.Message)
	assert.Contains(t, body.Errors, "name")
	assert.Contains(t, body.Errors, "category")
	assert.Equal(t, 0, countFiles(t, env.disk.Dir), "rejected upload must not leave files")
}

func TestUploadRequiresAPK(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, multipartRequest(t, testAppFields()))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "APK file is required")
}

func TestUploadRejectsNonImageIcon(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, multipartRequest(t, testAppFields(),
		filePart{"apkFile", "test.apk", "application/octet-stream", "apk"},
		filePart{"iconImage", "icon.txt", "text/plain", "not an image"}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, countFiles(t, env.disk.Dir))
}

func TestUploadWithIconServedStatically(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, multipartRequest(t, testAppFields(),
		filePart{"apkFile", "test.apk", "application/octet-stream", "apk"},
		filePart{"iconImage", "icon.png", "image/png", "png-bytes"}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	created := decode[entryJSON](t, rec)
	require.NotNil(t, created.IconPath)

	icon := env.get(t, "/api/uploads/"+*created.IconPath)
	assert.Equal(t, http.StatusOK, icon.Code)
	assert.Equal(t, "png-bytes", icon.Body.String())
}

func TestDownloadMissingFileStillCounts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	entry, err := env.store.Create(ctx, catalog.NewEntry{
		Name: "Ghost", Description: "file was deleted", Version: "2.0",
		Category: catalog.CategoryUtilities, Size: "1MB", FileName: "apkFile-1-gone.apk",
	}, nil)
	require.NoError(t, err)

	rec := env.get(t, "/api/apks/"+strconv.Itoa(entry.ID)+"/download")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"message":"APK file not found on server"}`, rec.Body.String())

	got, err := env.store.Get(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Downloads)
}

func TestQueryRoutes(t *testing.T) {
	env := newTestEnv(t)
	now := time.Now()
	n, err := catalog.Seed(context.Background(), env.store, now)
	require.NoError(t, err)
	require.Equal(t, 8, n)

	tests := []struct {
		path string
		want int
	}{
		{"/api/apks", 8},
		{"/api/apks/featured", 3},
		{"/api/apks/trending", 4},
		{"/api/apks/latest", 8},
		{"/api/apks/latest?limit=3", 3},
		{"/api/apks/latest?limit=0", 8},
		{"/api/apks/latest?limit=-2", 8},
		{"/api/apks/latest?limit=abc", 8},
		{"/api/apks/category/games", 3},
		{"/api/apks/category/weather", 0},
		{"/api/apks/search?q=", 8},
		{"/api/apks/search?q=NETFLIX", 1},
		{"/api/apks/search?q=zzzz", 0},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := env.get(t, tt.path)
			require.Equal(t, http.StatusOK, rec.Code)
			assert.True(t, strings.HasPrefix(rec.Body.String(), "["), "expected a JSON array, got %s", rec.Body.String())
			assert.Len(t, decode[[]entryJSON](t, rec), tt.want)
		})
	}

	latest := decode[[]entryJSON](t, env.get(t, "/api/apks/latest"))
	for i := 1; i < len(latest); i++ {
		assert.False(t, latest[i].UploadedAt.After(latest[i-1].UploadedAt), "latest must be newest first")
	}
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t)

	rec := env.get(t, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok":true`)

	env.get(t, "/api/apks")
	rec = env.get(t, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `apk_catalog_http_requests_total{method="GET",path="/api/apks",status="200"} 1`)
}

func TestStaticUploadsMissingFile(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, os.WriteFile(filepath.Join(env.disk.Dir, "present.png"), []byte("x"), 0644))

	assert.Equal(t, http.StatusOK, env.get(t, "/api/uploads/present.png").Code)
	assert.Equal(t, http.StatusNotFound, env.get(t, "/api/uploads/absent.png").Code)
}

func TestParseLimit(t *testing.T) {
	tests := map[string]int{"": 8, "5": 5, "0": 8, "-1": 8, "x": 8, "20": 20}
	for raw, want := range tests {
		assert.Equal(t, want, parseLimit(raw), "parseLimit(%q)", raw)
	}
}
