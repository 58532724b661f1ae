package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"apk-catalog/catalog"
	"apk-catalog/config"

	"go.uber.org/zap"
)

// Client talks to a running catalog server.
type Client struct {
	BaseURL    string
	UserAgent  string
	HTTPClient *http.Client
}

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Message string
	Fields  map[string][]string
}

func (e *APIError) Error() string {
	if len(e.Fields) > 0 {
		return fmt.Sprintf("api request failed: status %d: %s %v", e.Status, e.Message, e.Fields)
	}
	return fmt.Sprintf("api request failed: status %d: %s", e.Status, e.Message)
}

// NewClient creates a client for the server at cfg.APIURL.
func NewClient(cfg config.Config) (*Client, error) {
	if cfg.APIURL == "" {
		return nil, fmt.Errorf("API_URL is not configured")
	}
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("USERAGENT is not configured")
	}
	return &Client{
		BaseURL:   strings.TrimRight(cfg.APIURL, "/"),
		UserAgent: cfg.UserAgent,
		// No client timeout: callers bound each request with ctx.
		HTTPClient: &http.Client{},
	}, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if query != nil {
		req.URL.RawQuery = query.Encode()
	}
	req.Header.Set("User-Agent", c.UserAgent)
	return req, nil
}

// do executes req and decodes a JSON body into target. Non-2xx answers are
// returned as *APIError.
func (c *Client) do(req *http.Request, target interface{}) (*http.Response, error) {
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		apiErr := &APIError{Status: resp.StatusCode}
		var body struct {
			Message string              `json:"message"`
			Errors  map[string][]string `json:"errors"`
		}
		raw, _ := io.ReadAll(resp.Body)
		if json.Unmarshal(raw, &body) == nil && body.Message != "" {
			apiErr.Message = body.Message
			apiErr.Fields = body.Errors
		} else {
			apiErr.Message = strings.TrimSpace(string(raw))
		}
		return resp, apiErr
	}

	if target != nil {
		defer resp.Body.Close()
		if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
			return resp, fmt.Errorf("failed to decode json response: %w", err)
		}
	}
	return resp, nil
}

func (c *Client) list(ctx context.Context, path string, query url.Values) ([]catalog.EntryWithFeatures, error) {
	req, err := c.newRequest(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return nil, err
	}
	var entries []catalog.EntryWithFeatures
	if _, err := c.do(req, &entries); err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", path, err)
	}
	return entries, nil
}

// ListAll returns every entry.
func (c *Client) ListAll(ctx context.Context) ([]catalog.EntryWithFeatures, error) {
	return c.list(ctx, "/api/apks", nil)
}

// Featured returns featured entries.
func (c *Client) Featured(ctx context.Context) ([]catalog.EntryWithFeatures, error) {
	return c.list(ctx, "/api/apks/featured", nil)
}

// Trending returns trending entries.
func (c *Client) Trending(ctx context.Context) ([]catalog.EntryWithFeatures, error) {
	return c.list(ctx, "/api/apks/trending", nil)
}

// Latest returns the newest entries. A non-positive limit leaves the
// choice to the server.
func (c *Client) Latest(ctx context.Context, limit int) ([]catalog.EntryWithFeatures, error) {
	var q url.Values
	if limit > 0 {
		q = url.Values{"limit": {strconv.Itoa(limit)}}
	}
	return c.list(ctx, "/api/apks/latest", q)
}

// Search matches name and description, case-insensitively.
func (c *Client) Search(ctx context.Context, query string) ([]catalog.EntryWithFeatures, error) {
	return c.list(ctx, "/api/apks/search", url.Values{"q": {query}})
}

// ByCategory lists entries of one category.
func (c *Client) ByCategory(ctx context.Context, category catalog.Category) ([]catalog.EntryWithFeatures, error) {
	return c.list(ctx, "/api/apks/category/"+url.PathEscape(string(category)), nil)
}

// Get fetches one entry.
func (c *Client) Get(ctx context.Context, id int) (catalog.EntryWithFeatures, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/apks/"+strconv.Itoa(id), nil, nil)
	if err != nil {
		return catalog.EntryWithFeatures{}, err
	}
	var entry catalog.EntryWithFeatures
	if _, err := c.do(req, &entry); err != nil {
		return catalog.EntryWithFeatures{}, fmt.Errorf("failed to get entry %d: %w", id, err)
	}
	return entry, nil
}

// UploadRequest describes one APK to publish.
type UploadRequest struct {
	Name        string
	Description string
	Version     string
	Category    catalog.Category
	Size        string // human-readable; derived from the file when empty
	Features    []catalog.Feature
	APKPath     string
	IconPath    string // optional
}

// Upload streams the files as a multipart form and returns the created entry.
func (c *Client) Upload(ctx context.Context, up UploadRequest) (catalog.EntryWithFeatures, error) {
	if up.Size == "" {
		info, err := os.Stat(up.APKPath)
		if err != nil {
			return catalog.EntryWithFeatures{}, fmt.Errorf("failed to stat '%s': %w", up.APKPath, err)
		}
		up.Size = HumanSize(info.Size())
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeUploadForm(mw, up))
	}()

	req, err := c.newRequest(ctx, http.MethodPost, "/api/apks", nil, pr)
	if err != nil {
		pr.Close()
		return catalog.EntryWithFeatures{}, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var entry catalog.EntryWithFeatures
	_, err = c.do(req, &entry)
	pr.Close()
	if err != nil {
		return catalog.EntryWithFeatures{}, fmt.Errorf("failed to upload '%s': %w", filepath.Base(up.APKPath), err)
	}
	return entry, nil
}

func writeUploadForm(mw *multipart.Writer, up UploadRequest) error {
	features := make([]string, 0, len(up.Features))
	for _, f := range up.Features {
		features = append(features, string(f))
	}
	fields := [][2]string{
		{"name", up.Name},
		{"description", up.Description},
		{"version", up.Version},
		{"category", string(up.Category)},
		{"size", up.Size},
		{"features", strings.Join(features, ",")},
	}
	for _, kv := range fields {
		if err := mw.WriteField(kv[0], kv[1]); err != nil {
			return err
		}
	}

	if err := writeFilePart(mw, "apkFile", up.APKPath, "application/vnd.android.package-archive"); err != nil {
		return err
	}
	if up.IconPath != "" {
		contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(up.IconPath)))
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		if err := writeFilePart(mw, "iconImage", up.IconPath, contentType); err != nil {
			return err
		}
	}
	return mw.Close()
}

func writeFilePart(mw *multipart.Writer, field, path, contentType string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open '%s': %w", path, err)
	}
	defer f.Close()

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, field, filepath.Base(path)))
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("failed to send '%s': %w", path, err)
	}
	return nil
}

// Download saves entry id's APK into destDir under the server-suggested
// file name and returns the written path.
func (c *Client) Download(ctx context.Context, log *zap.SugaredLogger, id int, destDir string) (string, error) {
	if _, err := os.Stat(destDir); os.IsNotExist(err) {
		log.Warnw("Target directory for download does not exist, attempting to create", zap.String("directory", destDir))
		if err := os.MkdirAll(destDir, 0755); err != nil {
			return "", fmt.Errorf("failed to create target directory '%s': %w", destDir, err)
		}
	} else if err != nil {
		return "", fmt.Errorf("failed to check target directory '%s': %w", destDir, err)
	}

	req, err := c.newRequest(ctx, http.MethodGet, "/api/apks/"+strconv.Itoa(id)+"/download", nil, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/octet-stream")
	resp, err := c.do(req, nil)
	if err != nil {
		return "", fmt.Errorf("failed to start download for entry %d: %w", id, err)
	}
	defer resp.Body.Close()

	name := attachmentName(resp.Header.Get("Content-Disposition"))
	if name == "" {
		name = fmt.Sprintf("apk-%d.apk", id)
	}
	destinationPath := filepath.Join(destDir, name)

	outFile, err := os.Create(destinationPath)
	if err != nil {
		return "", fmt.Errorf("failed to create file '%s': %w", destinationPath, err)
	}
	_, err = io.Copy(outFile, resp.Body)
	if cerr := outFile.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(destinationPath)
		return "", fmt.Errorf("failed to write downloaded content to '%s': %w", destinationPath, err)
	}

	log.Infow("Downloaded APK", zap.Int("id", id), zap.String("path", destinationPath))
	return destinationPath, nil
}

// attachmentName extracts a safe base name from a Content-Disposition value.
func attachmentName(header string) string {
	_, params, err := mime.ParseMediaType(header)
	if err != nil {
		return ""
	}
	name := filepath.Base(params["filename"])
	if name == "." || name == "/" || name == ".." {
		return ""
	}
	return name
}

// HumanSize formats n bytes the way catalog sizes are written, e.g. "85MB".
func HumanSize(n int64) string {
	const unit = 1024
	switch {
	case n >= unit*unit*unit:
		return fmt.Sprintf("%.1fGB", float64(n)/(unit*unit*unit))
	case n >= unit*unit:
		return fmt.Sprintf("%dMB", (n+unit*unit/2)/(unit*unit))
	case n >= unit:
		return fmt.Sprintf("%dKB", (n+unit/2)/unit)
	default:
		return fmt.Sprintf("%dB", n)
	}
}
