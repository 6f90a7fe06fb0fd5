// Package browser is a terminal client for the catalog feed: a tag toolbar
// above a virtualized card grid that loads more pages as the end of the grid
// scrolls into view.
package browser

import (
	"context"
	"errors"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/catalog-feed/pkg/catalog"
	"github.com/Sternrassler/catalog-feed/pkg/feed"
	"github.com/Sternrassler/catalog-feed/pkg/scroll"
	"github.com/Sternrassler/catalog-feed/pkg/virtual"
)

// Grid geometry in terminal cells.
const (
	cardWidth  = 22
	cardHeight = 5
	gapX       = 2
	gapY       = 1

	// DefaultRootMarginRows preloads about two rows of cards ahead of the
	// visible area.
	DefaultRootMarginRows = 12

	headerHeight = 2
	footerHeight = 2
)

// Config wires runtime options into the browser.
type Config struct {
	// Source serves pages, normally a *feed.HTTPSource
	Source feed.PageSource

	// PageSize requested per load
	PageSize int

	// Tags offered in the toolbar; nil uses the default range table
	Tags []string

	// RootMargin widens the viewport for sentinel detection (rows)
	RootMargin float64

	// Trigger overrides the scroll trigger timing
	Trigger scroll.Options
}

type feedChangedMsg struct{}

type loadDoneMsg struct {
	outcome feed.Outcome
}

// chipZone is the horizontal extent of a toolbar chip.
type chipZone struct {
	x0, x1 int
	tag    string
	clear  bool
}

// Model is the bubbletea model of the browser.
type Model struct {
	ctrl     *feed.Controller
	grid     *virtual.Grid
	viewport *scroll.Viewport
	trigger  *scroll.Trigger
	sentinel *scroll.Sentinel

	ctx    context.Context
	cancel context.CancelFunc

	changed     chan struct{}
	unsubscribe func()
	dispose     func()

	keys    keyMap
	help    help.Model
	spinner spinner.Model
	logger  zerolog.Logger

	tags      []string
	tagCursor int
	zones     []chipZone

	state   feed.State
	width   int
	height  int
	scrollY int
	sized   bool
}

// New builds the model and attaches the scroll trigger. Call Close when the
// program exits.
func New(cfg Config) *Model {
	if cfg.Tags == nil {
		cfg.Tags = catalog.DefaultRangeIndex().Tags()
	}
	if cfg.RootMargin <= 0 {
		cfg.RootMargin = DefaultRootMarginRows
	}
	opts := cfg.Trigger
	if opts.Cooldown == 0 && opts.AfterFunc == nil {
		opts.Cooldown = scroll.DefaultCooldown
	}
	// Enabled once the first page of a session has landed.
	opts.Enabled = false

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	ctx, cancel := context.WithCancel(context.Background())

	m := &Model{
		ctrl: feed.NewController(cfg.Source, cfg.PageSize),
		grid: virtual.NewGrid(virtual.Layout{
			ItemWidth:    cardWidth,
			ItemHeight:   cardHeight,
			GapX:         gapX,
			GapY:         gapY,
			OverscanRows: virtual.DefaultOverscanRows,
		}),
		viewport: scroll.NewViewport(cfg.RootMargin),
		sentinel: scroll.NewSentinel(scroll.Rect{Top: 0, Bottom: 1}),
		ctx:      ctx,
		cancel:   cancel,
		changed:  make(chan struct{}, 1),
		keys:     defaultKeyMap(),
		help:     help.New(),
		spinner:  spin,
		logger:   log.With().Str("component", "browser").Logger(),
		tags:     append([]string(nil), cfg.Tags...),
	}
	m.state = m.ctrl.Snapshot()

	m.unsubscribe = m.ctrl.Subscribe(func(feed.State) {
		select {
		case m.changed <- struct{}{}:
		default:
		}
	})

	m.trigger = scroll.NewTrigger(m.loadMore, m.viewport.Factory(), opts)
	m.dispose = m.trigger.Attach(m.sentinel)
	return m
}

// Close detaches the trigger and cancels running loads.
func (m *Model) Close() {
	m.dispose()
	m.unsubscribe()
	m.grid.Close()
	m.cancel()
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.waitForChange(), m.firstLoadCmd())
}

// loadMore is the scroll trigger's loader.
func (m *Model) loadMore(ctx context.Context) error {
	if m.ctrl.LoadNext(ctx) == feed.OutcomeFailed {
		return errors.New(m.ctrl.Snapshot().Err)
	}
	return nil
}

// firstLoadCmd requests page 1 of the current session.
func (m *Model) firstLoadCmd() tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return loadDoneMsg{outcome: m.ctrl.LoadNext(ctx)}
	}
}

// retryCmd loads the page that failed.
func (m *Model) retryCmd() tea.Cmd {
	return m.firstLoadCmd()
}

func (m *Model) waitForChange() tea.Cmd {
	changed := m.changed
	ctx := m.ctx
	return func() tea.Msg {
		select {
		case <-changed:
			return feedChangedMsg{}
		case <-ctx.Done():
			return nil
		}
	}
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case feedChangedMsg:
		m.applyState(m.ctrl.Snapshot())
		return m, m.waitForChange()

	case loadDoneMsg:
		if msg.outcome == feed.OutcomeFailed {
			m.logger.Debug().Msg("Load failed; waiting for retry")
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.MouseMsg:
		return m, m.handleMouse(msg)

	case tea.KeyMsg:
		return m, m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.quit):
		m.cancel()
		return tea.Quit
	case key.Matches(msg, m.keys.up):
		m.scrollTo(m.scrollY - 1)
	case key.Matches(msg, m.keys.down):
		m.scrollTo(m.scrollY + 1)
	case key.Matches(msg, m.keys.pageUp):
		m.scrollTo(m.scrollY - m.viewportHeight())
	case key.Matches(msg, m.keys.pageDown):
		m.scrollTo(m.scrollY + m.viewportHeight())
	case key.Matches(msg, m.keys.top):
		m.scrollTo(0)
	case key.Matches(msg, m.keys.bottom):
		m.scrollTo(m.maxScroll())
	case key.Matches(msg, m.keys.nextTag):
		m.tagCursor = (m.tagCursor + 1) % len(m.tags)
	case key.Matches(msg, m.keys.prevTag):
		m.tagCursor = (m.tagCursor - 1 + len(m.tags)) % len(m.tags)
	case key.Matches(msg, m.keys.toggleTag):
		return m.toggleTag(m.tags[m.tagCursor])
	case key.Matches(msg, m.keys.clear):
		if m.state.Filter != "" {
			return m.setFilter("")
		}
	case key.Matches(msg, m.keys.retry):
		if m.state.Err != "" && !m.state.Loading {
			return m.retryCmd()
		}
	}
	return nil
}

func (m *Model) handleMouse(msg tea.MouseMsg) tea.Cmd {
	switch msg.Button {
	case tea.MouseButtonWheelUp:
		m.scrollTo(m.scrollY - 3)
	case tea.MouseButtonWheelDown:
		m.scrollTo(m.scrollY + 3)
	case tea.MouseButtonLeft:
		if msg.Action != tea.MouseActionPress || msg.Y != 1 {
			return nil
		}
		for _, z := range m.zones {
			if msg.X < z.x0 || msg.X >= z.x1 {
				continue
			}
			if z.clear {
				return m.setFilter("")
			}
			return m.toggleTag(z.tag)
		}
	}
	return nil
}

// toggleTag selects tag, or clears the filter when tag is already active.
func (m *Model) toggleTag(tag string) tea.Cmd {
	if m.state.Filter == tag {
		return m.setFilter("")
	}
	return m.setFilter(tag)
}

// setFilter starts a new session and issues its first load.
func (m *Model) setFilter(tag string) tea.Cmd {
	m.logger.Debug().Str("filter", tag).Msg("Filter changed")
	for i, t := range m.tags {
		if t == tag {
			m.tagCursor = i
		}
	}
	m.ctrl.SetFilter(tag)
	m.applyState(m.ctrl.Snapshot())
	m.scrollTo(0)
	return m.firstLoadCmd()
}

// applyState syncs grid, sentinel and trigger with a feed snapshot.
func (m *Model) applyState(state feed.State) {
	if state.Version < m.state.Version {
		return
	}
	m.state = state

	m.grid.SetTotal(len(state.Items))
	sentinelTop := float64(m.gridHeight())
	m.sentinel.Move(scroll.Rect{Top: sentinelTop, Bottom: sentinelTop + 1})
	m.scrollTo(m.scrollY)

	enabled := m.sized && state.HasMore && !state.Loading && state.Err == "" && state.Cursor > 1
	m.trigger.SetEnabled(enabled)
	m.viewport.Refresh()
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height
	m.sized = true
	m.help.Width = width

	m.grid.OnResize(float64(m.viewportHeight()), virtual.ContainerMetrics{
		ClientWidth:  float64(width),
		PaddingLeft:  1,
		PaddingRight: 1,
		ColumnGap:    gapX,
	}, 0)
	m.applyState(m.state)
}

// scrollTo clamps y and moves grid and viewport to it.
func (m *Model) scrollTo(y int) {
	m.scrollY = max(0, min(y, m.maxScroll()))
	m.grid.OnScroll(float64(m.scrollY))
	m.viewport.Update(float64(m.scrollY), float64(m.scrollY+m.viewportHeight()))
}

func (m *Model) viewportHeight() int {
	return max(1, m.height-headerHeight-footerHeight)
}

func (m *Model) columns() int {
	return max(1, m.grid.Window().ColumnCount)
}

// gridHeight is the full unvirtualized grid height; the sentinel row sits
// right below it.
func (m *Model) gridHeight() int {
	rows := (len(m.state.Items) + m.columns() - 1) / m.columns()
	return rows * (cardHeight + gapY)
}

func (m *Model) maxScroll() int {
	return max(0, m.gridHeight()+1-m.viewportHeight())
}
