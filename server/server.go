// Package server exposes the catalog over HTTP with gin.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"apk-catalog/catalog"
	"apk-catalog/ingest"
	"apk-catalog/storage"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// uploadSlack is the allowance for the text fields and an icon on top of
// the largest accepted APK.
const uploadSlack int64 = 32 << 20

// Options configures a Server.
type Options struct {
	Store      catalog.Store
	Disk       *storage.Disk
	Ingestor   *ingest.Ingestor // built from Store and Disk when nil
	Log        *zap.SugaredLogger
	MaxAPKSize int64
}

// Server owns the gin engine and its dependencies.
type Server struct {
	store      catalog.Store
	disk       *storage.Disk
	ingestor   *ingest.Ingestor
	log        *zap.SugaredLogger
	metrics    *metrics
	maxAPKSize int64
	engine     *gin.Engine
}

func init() {
	gin.SetMode(gin.ReleaseMode)
}

// New builds a Server with all routes registered.
func New(opts Options) *Server {
	log := opts.Log
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	maxAPKSize := opts.MaxAPKSize
	if maxAPKSize <= 0 {
		maxAPKSize = ingest.DefaultMaxAPKSize
	}
	in := opts.Ingestor
	if in == nil {
		in = ingest.NewIngestor(opts.Store, opts.Disk, maxAPKSize, log)
	}

	s := &Server{
		store:      opts.Store,
		disk:       opts.Disk,
		ingestor:   in,
		log:        log,
		metrics:    newMetrics(),
		maxAPKSize: maxAPKSize,
	}
	s.engine = s.routes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Infow("Server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	s.log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}

func (s *Server) internalError(c *gin.Context, message string, err error) {
	s.log.Errorw(message, "path", c.Request.URL.Path, zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"message": message})
}
