package server

import (
	"errors"
	"net/http"
	"strings"

	"apk-catalog/ingest"

	"github.com/gin-gonic/gin"
)

func (s *Server) upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxAPKSize+uploadSlack)

	form, err := c.MultipartForm()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.metrics.uploads.WithLabelValues("rejected").Inc()
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"message": "Upload is too large"})
			return
		}
		s.metrics.uploads.WithLabelValues("rejected").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid multipart form"})
		return
	}
	defer form.RemoveAll()

	sub := ingest.Submission{
		Form: ingest.Form{
			Name:        firstValue(form.Value["name"]),
			Description: firstValue(form.Value["description"]),
			Version:     firstValue(form.Value["version"]),
			Category:    firstValue(form.Value["category"]),
			Size:        firstValue(form.Value["size"]),
			Features:    ingest.SplitFeatures(strings.Join(form.Value["features"], ",")),
		},
	}
	if files := form.File[ingest.FieldAPK]; len(files) > 0 {
		sub.APK = ingest.FromHeader(files[0])
	}
	if files := form.File[ingest.FieldIcon]; len(files) > 0 {
		sub.Icon = ingest.FromHeader(files[0])
	}

	entry, err := s.ingestor.Ingest(c.Request.Context(), sub)
	if err != nil {
		var ve *ingest.ValidationError
		if errors.As(err, &ve) {
			s.metrics.uploads.WithLabelValues("rejected").Inc()
			body := gin.H{"message": ve.Message}
			if len(ve.Fields) > 0 {
				body["errors"] = ve.Fields
			}
			c.JSON(http.StatusBadRequest, body)
			return
		}
		s.metrics.uploads.WithLabelValues("failed").Inc()
		s.internalError(c, "Failed to upload APK file", err)
		return
	}

	s.metrics.uploads.WithLabelValues("created").Inc()
	c.JSON(http.StatusCreated, entry)
}

func firstValue(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}
