package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.accessLog(), s.metrics.middleware())

	api := r.Group("/api")
	{
		apks := api.Group("/apks")
		apks.GET("", s.listAll)
		apks.GET("/featured", s.listFeatured)
		apks.GET("/trending", s.listTrending)
		apks.GET("/latest", s.listLatest)
		apks.GET("/category/:category", s.listByCategory)
		apks.GET("/search", s.search)
		apks.GET("/:id", s.getEntry)
		apks.GET("/:id/download", s.download)
		apks.POST("", s.upload)

		api.Static("/uploads", s.disk.Dir)
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true, "time": time.Now().UTC()})
	})
	r.GET("/metrics", gin.WrapH(s.metrics.handler()))

	return r
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Infow("HTTP request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"ip", c.ClientIP(),
		)
	}
}
