// Package server exposes the catalog feed over HTTP with gin.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/Sternrassler/catalog-feed/pkg/catalog"
	"github.com/Sternrassler/catalog-feed/pkg/metrics"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultPageSize is used when a request carries no pageSize.
const DefaultPageSize = 50

// PageTranslator serves catalog pages; *translator.Translator implements it.
type PageTranslator interface {
	Translate(ctx context.Context, page, pageSize int, tag string) (catalog.Page[catalog.Item], error)
	Ranges() *catalog.RangeIndex
}

// Config holds server settings.
type Config struct {
	// Env is reported by /health and selects the gin mode
	Env string

	// CORSOrigin is the allowed browser origin; "*" allows any
	CORSOrigin string

	// RequestTimeout bounds one /api/images request (default: 30s)
	RequestTimeout time.Duration
}

// Server wires the HTTP routes.
type Server struct {
	engine     *gin.Engine
	translator PageTranslator
	redis      *redis.Client
	config     Config
	logger     zerolog.Logger
}

// New builds the router. redisClient may be nil, in which case /ready does
// not check Redis.
func New(t PageTranslator, redisClient *redis.Client, cfg Config) *Server {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}

	switch cfg.Env {
	case "production":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	}

	s := &Server{
		engine:     gin.New(),
		translator: t,
		redis:      redisClient,
		config:     cfg,
		logger:     log.With().Str("component", "http").Logger(),
	}
	s.routes()
	return s
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() {
	s.engine.Use(
		recovery(s.logger),
		accessLog(s.logger),
		cors.New(corsConfig(s.config.CORSOrigin)),
		errorResponder(),
	)

	s.engine.GET("/health", s.health)
	s.engine.GET("/ready", s.ready)
	s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(metrics.Gatherer, promhttp.HandlerOpts{})))

	api := s.engine.Group("/api")
	{
		api.GET("/images", s.images)
	}

	s.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"message": "Not Found",
			"path":    c.Request.URL.Path,
		})
	})
}

func corsConfig(origin string) cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{http.MethodGet, http.MethodOptions},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
		MaxAge:       12 * time.Hour,
	}
	if origin == "" || origin == "*" {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = []string{origin}
	}
	return cfg
}
