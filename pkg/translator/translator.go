// Package translator turns requests for (page, pageSize, tag) into windows
// of the upstream list and maps the results into catalog pages.
//
// The upstream has no native filter. A tag filter is implemented by
// reindexing the page into the tag's identifier range: the global offset is
// range.Start-1 + (page-1)*pageSize, and results outside the range are
// discarded.
package translator

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/Sternrassler/catalog-feed/pkg/catalog"
	"github.com/Sternrassler/catalog-feed/pkg/client"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// MaxPageSize is the largest accepted page size.
const MaxPageSize = 200

// ErrInvalidWindow is returned for page < 1, a page size outside
// [1, MaxPageSize], or an unfiltered page whose offset does not fit an int.
var ErrInvalidWindow = errors.New("invalid page window")

var (
	shortPagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_short_pages_total",
		Help: "Short upstream pages whose count arithmetic still promised more results",
	})

	droppedItemsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_dropped_items_total",
		Help: "Upstream results dropped during translation by reason",
	}, []string{"reason"})

	translationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_translations_total",
		Help: "Page translations by mode and result",
	}, []string{"mode", "result"})
)

// Lister fetches one window of the upstream list.
type Lister interface {
	List(ctx context.Context, limit, offset int) (*client.ListResponse, error)
}

// Config holds translator settings.
type Config struct {
	// Resource is the upstream collection; it anchors identifier extraction.
	Resource string

	// ImageBaseURL prefixes "<id>.png"; empty uses catalog.DefaultImageBaseURL.
	ImageBaseURL string

	// Ranges is the tag table; nil uses catalog.DefaultRangeIndex.
	Ranges *catalog.RangeIndex
}

// Translator maps page requests onto the upstream list.
type Translator struct {
	lister    Lister
	ranges    *catalog.RangeIndex
	ids       *catalog.IDExtractor
	imageBase string
	logger    zerolog.Logger
}

// New creates a translator reading from lister.
func New(lister Lister, cfg Config) *Translator {
	if cfg.Resource == "" {
		cfg.Resource = "pokemon"
	}
	if cfg.Ranges == nil {
		cfg.Ranges = catalog.DefaultRangeIndex()
	}
	return &Translator{
		lister:    lister,
		ranges:    cfg.Ranges,
		ids:       catalog.NewIDExtractor(cfg.Resource),
		imageBase: cfg.ImageBaseURL,
		logger:    log.With().Str("component", "translator").Logger(),
	}
}

// Ranges returns the tag table in use.
func (t *Translator) Ranges() *catalog.RangeIndex {
	return t.ranges
}

// Translate returns one page of the catalog. An empty tag means no filter;
// an unknown tag yields an empty page. Upstream failures are returned as
// *client.UpstreamError.
func (t *Translator) Translate(ctx context.Context, page, pageSize int, tag string) (catalog.Page[catalog.Item], error) {
	if page < 1 || pageSize < 1 || pageSize > MaxPageSize {
		return catalog.Page[catalog.Item]{}, fmt.Errorf("%w: page=%d pageSize=%d", ErrInvalidWindow, page, pageSize)
	}
	if tag == "" {
		if offsetOverflows(page, pageSize) {
			return catalog.Page[catalog.Item]{}, fmt.Errorf("%w: page=%d pageSize=%d offset out of range", ErrInvalidWindow, page, pageSize)
		}
		return t.translateAll(ctx, page, pageSize)
	}
	return t.translateTag(ctx, page, pageSize, tag)
}

// offsetOverflows reports whether page*pageSize exceeds math.MaxInt.
func offsetOverflows(page, pageSize int) bool {
	return page-1 > (math.MaxInt-pageSize)/pageSize
}

func (t *Translator) translateAll(ctx context.Context, page, pageSize int) (catalog.Page[catalog.Item], error) {
	offset := (page - 1) * pageSize

	list, err := t.lister.List(ctx, pageSize, offset)
	if err != nil {
		translationsTotal.WithLabelValues("all", "error").Inc()
		return catalog.Page[catalog.Item]{}, err
	}

	items := make([]catalog.Item, 0, len(list.Results))
	for _, entry := range list.Results {
		id, ok := t.ids.ID(entry.URL)
		if !ok {
			t.dropped("bad_id", entry)
			continue
		}
		items = append(items, catalog.NewItem(id, entry.Name, t.imageBase, t.ranges.TagFor(id)))
	}

	hasNext := offset+pageSize < list.Count
	hasNext = t.applyShortPage(hasNext, len(list.Results), pageSize, page, "")

	translationsTotal.WithLabelValues("all", "ok").Inc()
	return catalog.Page[catalog.Item]{
		Items:    items,
		Page:     page,
		PageSize: pageSize,
		Total:    list.Count,
		HasNext:  hasNext,
	}, nil
}

func (t *Translator) translateTag(ctx context.Context, page, pageSize int, tag string) (catalog.Page[catalog.Item], error) {
	r, ok := t.ranges.Lookup(tag)
	if !ok {
		t.logger.Debug().Str("tag", tag).Msg("Unknown tag - returning empty page")
		translationsTotal.WithLabelValues("tag", "unknown_tag").Inc()
		return catalog.EmptyPage[catalog.Item](page, pageSize), nil
	}

	totalInRange := r.Size()
	if offsetOverflows(page, pageSize) || (page-1)*pageSize >= totalInRange {
		// Past the end of the range; the upstream would only return
		// neighbouring tags' items.
		translationsTotal.WithLabelValues("tag", "ok").Inc()
		p := catalog.EmptyPage[catalog.Item](page, pageSize)
		p.Total = totalInRange
		return p, nil
	}
	globalOffset := r.Start - 1 + (page-1)*pageSize

	list, err := t.lister.List(ctx, pageSize, globalOffset)
	if err != nil {
		translationsTotal.WithLabelValues("tag", "error").Inc()
		return catalog.Page[catalog.Item]{}, err
	}

	items := make([]catalog.Item, 0, len(list.Results))
	for _, entry := range list.Results {
		id, ok := t.ids.ID(entry.URL)
		if !ok {
			t.dropped("bad_id", entry)
			continue
		}
		if !r.Contains(id) {
			droppedItemsTotal.WithLabelValues("out_of_range").Inc()
			continue
		}
		items = append(items, catalog.NewItem(id, entry.Name, t.imageBase, tag))
	}

	hasNext := page*pageSize < totalInRange
	hasNext = t.applyShortPage(hasNext, len(list.Results), pageSize, page, tag)

	translationsTotal.WithLabelValues("tag", "ok").Inc()
	return catalog.Page[catalog.Item]{
		Items:    items,
		Page:     page,
		PageSize: pageSize,
		Total:    totalInRange,
		HasNext:  hasNext,
	}, nil
}

// applyShortPage forces hasNext to false when the upstream returned fewer
// results than requested and flags the disagreement with the count.
func (t *Translator) applyShortPage(hasNext bool, returned, limit, page int, tag string) bool {
	if returned >= limit {
		return hasNext
	}
	if hasNext {
		shortPagesTotal.Inc()
		t.logger.Warn().
			Int("page", page).
			Int("limit", limit).
			Int("returned", returned).
			Str("tag", tag).
			Msg("Short upstream page while count promised more - ending feed")
	}
	return false
}

func (t *Translator) dropped(reason string, entry client.ListEntry) {
	droppedItemsTotal.WithLabelValues(reason).Inc()
	t.logger.Debug().
		Str("name", entry.Name).
		Str("url", entry.URL).
		Str("reason", reason).
		Msg("Dropping upstream result")
}
