package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"apk-catalog/catalog"

	"github.com/gin-gonic/gin"
)

func (s *Server) respondList(c *gin.Context, message string, fetch func(ctx context.Context) ([]catalog.EntryWithFeatures, error)) {
	entries, err := fetch(c.Request.Context())
	if err != nil {
		s.internalError(c, message, err)
		return
	}
	if entries == nil {
		entries = []catalog.EntryWithFeatures{}
	}
	c.JSON(http.StatusOK, entries)
}

func (s *Server) listAll(c *gin.Context) {
	s.respondList(c, "Failed to get APK files", s.store.List)
}

func (s *Server) listFeatured(c *gin.Context) {
	s.respondList(c, "Failed to get featured APK files", s.store.ListFeatured)
}

func (s *Server) listTrending(c *gin.Context) {
	s.respondList(c, "Failed to get trending APK files", s.store.ListTrending)
}

func (s *Server) listLatest(c *gin.Context) {
	limit := parseLimit(c.Query("limit"))
	s.respondList(c, "Failed to get latest APK files", func(ctx context.Context) ([]catalog.EntryWithFeatures, error) {
		return s.store.ListLatest(ctx, limit)
	})
}

func (s *Server) listByCategory(c *gin.Context) {
	category, err := catalog.ParseCategory(c.Param("category"))
	if err != nil {
		c.JSON(http.StatusOK, []catalog.EntryWithFeatures{})
		return
	}
	s.respondList(c, "Failed to get APK files for category", func(ctx context.Context) ([]catalog.EntryWithFeatures, error) {
		return s.store.ListByCategory(ctx, category)
	})
}

func (s *Server) search(c *gin.Context) {
	query := c.Query("q")
	s.respondList(c, "Failed to search APK files", func(ctx context.Context) ([]catalog.EntryWithFeatures, error) {
		return s.store.Search(ctx, query)
	})
}

func (s *Server) getEntry(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	entry, err := s.store.Get(c.Request.Context(), id)
	if errors.Is(err, catalog.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"message": "APK not found"})
		return
	}
	if err != nil {
		s.internalError(c, "Failed to get APK file", err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

// parseID writes the 400 response itself when the id is not an integer.
func parseID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid APK ID"})
		return 0, false
	}
	return id, true
}

// parseLimit falls back to the default for missing, malformed or
// non-positive values.
func parseLimit(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return catalog.DefaultLatestLimit
	}
	return catalog.NormalizeLimit(n)
}
