package server

import (
	"errors"
	"net/http"
	"strings"

	"apk-catalog/catalog"
	"apk-catalog/storage"

	"github.com/gin-gonic/gin"
)

const apkContentType = "application/vnd.android.package-archive"

var quotedEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// attachmentDisposition builds a Content-Disposition value whose quoted
// filename survives quotes and backslashes in the entry name.
func attachmentDisposition(name string) string {
	return `attachment; filename="` + quotedEscaper.Replace(name) + `"`
}

// download counts the attempt before checking the file, so a missing file
// still increments the entry's counter.
func (s *Server) download(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	entry, err := s.store.Get(ctx, id)
	if errors.Is(err, catalog.ErrNotFound) {
		s.metrics.downloads.WithLabelValues("unknown_entry").Inc()
		c.JSON(http.StatusNotFound, gin.H{"message": "APK file not found"})
		return
	}
	if err != nil {
		s.internalError(c, "Failed to download APK file", err)
		return
	}

	if err := s.store.IncrementDownloads(ctx, id); err != nil {
		s.internalError(c, "Failed to download APK file", err)
		return
	}

	f, info, err := s.disk.Open(entry.FileName)
	if errors.Is(err, storage.ErrMissing) {
		s.metrics.downloads.WithLabelValues("missing_file").Inc()
		s.log.Warnw("Stored file missing", "id", id, "file", entry.FileName)
		c.JSON(http.StatusNotFound, gin.H{"message": "APK file not found on server"})
		return
	}
	if err != nil {
		s.internalError(c, "Failed to download APK file", err)
		return
	}
	defer f.Close()

	s.metrics.downloads.WithLabelValues("served").Inc()
	c.Header("Content-Disposition", attachmentDisposition(entry.SuggestedFileName()))
	c.Header("Content-Type", apkContentType)
	http.ServeContent(c.Writer, c.Request, "", info.ModTime(), f)
}
