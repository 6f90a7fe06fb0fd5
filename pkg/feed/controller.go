// Package feed keeps the client-side state of one infinite catalog feed.
//
// A Controller accumulates pages from a PageSource for the active tag
// filter. Each filter session is identified by a monotonic epoch: a result
// whose captured epoch no longer matches the live one is discarded, so a
// slow response for an old filter is never appended after a filter change.
package feed

import (
	"context"
	"errors"
	"sync"

	"github.com/Sternrassler/catalog-feed/pkg/catalog"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultPageSize is the page size requested by the feed.
const DefaultPageSize = 50

// DefaultErrorMessage is shown when a failure carries no readable message.
const DefaultErrorMessage = "Load error"

// PageSource loads one page of the feed.
type PageSource interface {
	FetchPage(ctx context.Context, page, pageSize int, tag string) (catalog.Page[catalog.Item], error)
}

// Outcome reports what a LoadNext call did.
type Outcome int

const (
	// OutcomeSkipped means a load was already in flight or the feed is exhausted.
	OutcomeSkipped Outcome = iota
	// OutcomeApplied means the page was appended.
	OutcomeApplied
	// OutcomeStale means the result belonged to a superseded session.
	OutcomeStale
	// OutcomeFailed means the page source failed; the error is in State.Err.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSkipped:
		return "skipped"
	case OutcomeApplied:
		return "applied"
	case OutcomeStale:
		return "stale"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// State is a snapshot of the feed.
type State struct {
	Items   []catalog.Item
	Cursor  int
	HasMore bool
	Err     string
	Epoch   uint64
	Loading bool
	Filter  string

	// Version increases on every transition. Listeners running on
	// different goroutines may observe notifications out of order and
	// should ignore versions lower than the last one seen.
	Version uint64
}

func (s State) clone() State {
	s.Items = append([]catalog.Item(nil), s.Items...)
	return s
}

// Controller owns the feed state.
type Controller struct {
	source   PageSource
	pageSize int
	logger   zerolog.Logger

	mu      sync.Mutex
	state   State
	cancel  context.CancelFunc
	subs    map[int]func(State)
	nextSub int
}

// NewController creates a controller with an empty, unfiltered session.
// pageSize <= 0 uses DefaultPageSize.
func NewController(source PageSource, pageSize int) *Controller {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Controller{
		source:   source,
		pageSize: pageSize,
		logger:   log.With().Str("component", "feed").Logger(),
		state: State{
			Items:   []catalog.Item{},
			Cursor:  1,
			HasMore: true,
		},
		subs: make(map[int]func(State)),
	}
}

// PageSize returns the page size requested from the source.
func (c *Controller) PageSize() int {
	return c.pageSize
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// Subscribe registers fn to receive a snapshot after every transition.
// fn runs on the goroutine that caused the transition, without locks held.
func (c *Controller) Subscribe(fn func(State)) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, id)
			c.mu.Unlock()
		})
	}
}

// Reset starts a new session with the current filter.
func (c *Controller) Reset() {
	c.mu.Lock()
	c.resetLocked(c.state.Filter)
	c.publishLocked()
}

// SetFilter starts a new session for tag ("" clears the filter).
func (c *Controller) SetFilter(tag string) {
	c.mu.Lock()
	c.resetLocked(tag)
	c.publishLocked()
}

func (c *Controller) resetLocked(tag string) {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.state = State{
		Items:   []catalog.Item{},
		Cursor:  1,
		HasMore: true,
		Epoch:   c.state.Epoch + 1,
		Filter:  tag,
		Version: c.state.Version,
	}
	c.logger.Debug().
		Str("filter", tag).
		Uint64("epoch", c.state.Epoch).
		Msg("Feed reset")
}

// LoadNext requests the page at the cursor and applies it if the session is
// still current. It blocks until the source answers.
func (c *Controller) LoadNext(ctx context.Context) Outcome {
	c.mu.Lock()
	if c.state.Loading || !c.state.HasMore {
		c.mu.Unlock()
		return OutcomeSkipped
	}

	c.state.Epoch++
	epoch := c.state.Epoch
	cursor := c.state.Cursor
	tag := c.state.Filter
	c.state.Loading = true
	c.state.Err = ""

	loadCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	c.cancel = cancel
	c.publishLocked()

	page, err := c.source.FetchPage(loadCtx, cursor, c.pageSize, tag)

	c.mu.Lock()
	if c.state.Epoch != epoch {
		c.mu.Unlock()
		c.logger.Debug().
			Uint64("epoch", epoch).
			Int("page", cursor).
			Msg("Discarding stale page")
		return OutcomeStale
	}

	c.state.Loading = false
	c.cancel = nil

	if err != nil {
		c.state.Err = errorMessage(err)
		c.logger.Warn().
			Err(err).
			Int("page", cursor).
			Str("filter", tag).
			Msg("Page load failed")
		c.publishLocked()
		return OutcomeFailed
	}

	c.state.Items = append(c.state.Items, page.Items...)
	c.state.Cursor = cursor + 1
	c.state.HasMore = page.HasNext
	if len(page.Items) == 0 {
		c.state.HasMore = false
	}
	c.logger.Debug().
		Int("page", cursor).
		Int("items", len(page.Items)).
		Bool("has_more", c.state.HasMore).
		Msg("Page applied")
	c.publishLocked()
	return OutcomeApplied
}

// publishLocked bumps the version, releases c.mu and notifies subscribers.
func (c *Controller) publishLocked() {
	c.state.Version++
	snapshot := c.state.clone()
	subs := make([]func(State), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.mu.Unlock()

	for _, fn := range subs {
		fn(snapshot)
	}
}

// errorMessage prefers the message carried by a *SourceError.
func errorMessage(err error) string {
	var se *SourceError
	if errors.As(err, &se) && se.Message != "" {
		return se.Message
	}
	return DefaultErrorMessage
}
