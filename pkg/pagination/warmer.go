package pagination

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/Sternrassler/catalog-feed/pkg/catalog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

var warmedPagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "catalog_warm_pages_total",
	Help: "Pages translated during cache warm-up by result",
}, []string{"result"})

// Config holds warm-up configuration.
type Config struct {
	// Pages is the number of leading pages warmed per feed
	Pages int

	// PageSize used for warm-up requests; match the browser's page size
	PageSize int

	// Concurrency is the maximum number of parallel translations
	Concurrency int

	// Timeout per page
	Timeout time.Duration
}

// DefaultConfig returns a conservative warm-up configuration.
func DefaultConfig() Config {
	return Config{
		Pages:       2,
		PageSize:    50,
		Concurrency: 4,
		Timeout:     15 * time.Second,
	}
}

// PageFetcher translates one page; *translator.Translator implements it.
type PageFetcher interface {
	Translate(ctx context.Context, page, pageSize int, tag string) (catalog.Page[catalog.Item], error)
}

// Result summarises a warm-up run.
type Result struct {
	Warmed   int
	Failed   int
	Skipped  int
	Duration time.Duration
}

// Warmer runs cache warm-up.
type Warmer struct {
	fetcher PageFetcher
	config  Config
}

// NewWarmer creates a warmer. Non-positive fields take DefaultConfig values.
func NewWarmer(fetcher PageFetcher, config Config) *Warmer {
	def := DefaultConfig()
	if config.Pages <= 0 {
		config.Pages = def.Pages
	}
	if config.PageSize <= 0 {
		config.PageSize = def.PageSize
	}
	if config.Concurrency <= 0 {
		config.Concurrency = def.Concurrency
	}
	if config.Timeout <= 0 {
		config.Timeout = def.Timeout
	}
	return &Warmer{fetcher: fetcher, config: config}
}

// Warm translates pages 1..Pages for every tag ("" is the unfiltered feed).
// Pages after a page reporting no continuation are skipped.
func (w *Warmer) Warm(ctx context.Context, tags []string) (Result, error) {
	start := time.Now()
	logger := log.With().Str("component", "cache-warmer").Logger()

	logger.Info().
		Int("feeds", len(tags)).
		Int("pages", w.config.Pages).
		Int("concurrency", w.config.Concurrency).
		Msg("Starting cache warm-up")

	var warmed, failed, skipped atomic.Int64

	// ended[i] is set once feed i reported no further pages.
	ended := make([]atomic.Int64, len(tags))
	for i := range ended {
		ended[i].Store(int64(w.config.Pages) + 1)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.config.Concurrency)

	for page := 1; page <= w.config.Pages; page++ {
		for i, tag := range tags {
			if gctx.Err() != nil {
				break
			}
			g.Go(func() error {
				if int64(page) > ended[i].Load() {
					skipped.Add(1)
					return nil
				}

				pageCtx, cancel := context.WithTimeout(gctx, w.config.Timeout)
				p, err := w.fetcher.Translate(pageCtx, page, w.config.PageSize, tag)
				cancel()

				if err != nil {
					if ctx.Err() != nil {
						return ctx.Err()
					}
					failed.Add(1)
					warmedPagesTotal.WithLabelValues("error").Inc()
					logger.Warn().
						Err(err).
						Str("tag", tag).
						Int("page", page).
						Msg("Warm-up page failed")
					return nil
				}

				warmed.Add(1)
				warmedPagesTotal.WithLabelValues("ok").Inc()
				if !p.HasNext {
					markEnded(&ended[i], int64(page))
				}
				return nil
			})
		}
	}

	err := g.Wait()
	result := Result{
		Warmed:   int(warmed.Load()),
		Failed:   int(failed.Load()),
		Skipped:  int(skipped.Load()),
		Duration: time.Since(start),
	}

	if err != nil {
		logger.Warn().
			Err(err).
			Int("warmed", result.Warmed).
			Msg("Cache warm-up cancelled")
		return result, fmt.Errorf("warm-up cancelled (%d pages warmed): %w", result.Warmed, err)
	}

	logger.Info().
		Int("warmed", result.Warmed).
		Int("failed", result.Failed).
		Int("skipped", result.Skipped).
		Dur("duration", result.Duration).
		Msg("Cache warm-up complete")

	return result, nil
}

// markEnded lowers the last page of a feed to page.
func markEnded(last *atomic.Int64, page int64) {
	for {
		cur := last.Load()
		if page >= cur || last.CompareAndSwap(cur, page) {
			return
		}
	}
}
