package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Sternrassler/catalog-feed/pkg/translator"
	"github.com/gin-gonic/gin"
)

// imagesRequest is the query of GET /api/images. Absent parameters keep the
// values set before binding.
type imagesRequest struct {
	Page     int    `form:"page"`
	PageSize int    `form:"pageSize"`
	Search   string `form:"search"`
}

// pageQuery is a validated imagesRequest.
type pageQuery struct {
	Page     int
	PageSize int
	Tag      string
}

// parseImagesQuery binds and validates the query. page must be a positive
// integer; pageSize must be an integer and is clamped to the accepted range.
func (s *Server) parseImagesQuery(c *gin.Context) (pageQuery, error) {
	req := imagesRequest{Page: 1, PageSize: DefaultPageSize}
	if err := c.ShouldBindQuery(&req); err != nil {
		return pageQuery{}, fmt.Errorf("%w: page and pageSize must be integers", ErrInvalidQuery)
	}
	if req.Page < 1 {
		return pageQuery{}, fmt.Errorf("%w: page must be >= 1", ErrInvalidQuery)
	}

	q := pageQuery{
		Page:     req.Page,
		PageSize: min(max(req.PageSize, 1), translator.MaxPageSize),
		Tag:      req.Search,
	}
	// search is optional, but when present it must name a tag
	if _, present := c.GetQuery("search"); present {
		if _, ok := s.translator.Ranges().Lookup(q.Tag); !ok {
			return pageQuery{}, fmt.Errorf("%w %q", ErrUnknownFilter, q.Tag)
		}
	}
	return q, nil
}

// images serves GET /api/images.
func (s *Server) images(c *gin.Context) {
	q, err := s.parseImagesQuery(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.config.RequestTimeout)
	defer cancel()

	page, err := s.translator.Translate(ctx, q.Page, q.PageSize, q.Tag)
	if err != nil {
		s.logger.Error().
			Err(err).
			Int("page", q.Page).
			Int("page_size", q.PageSize).
			Str("tag", q.Tag).
			Msg("Failed to translate page")
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, page)
}

// health serves GET /health.
func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "env": s.config.Env})
}

// ready serves GET /ready. Without Redis the server is always ready.
func (s *Server) ready(c *gin.Context) {
	if s.redis == nil {
		c.JSON(http.StatusOK, gin.H{"ready": true, "redis": "disabled"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := s.redis.Ping(ctx).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("Readiness check failed: redis unreachable")
		c.JSON(http.StatusServiceUnavailable, gin.H{"ready": false, "message": "redis unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ready": true, "redis": "ok"})
}
