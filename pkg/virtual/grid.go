package virtual

import "sync"

// Grid recomputes the window on scroll, resize and item count changes and
// notifies subscribers when it changes.
type Grid struct {
	layout Layout

	mu             sync.Mutex
	metrics        ContainerMetrics
	containerTop   float64
	scrollY        float64
	viewportHeight float64
	total          int
	columns        int
	window         Window
	subs           map[int]func(Window)
	nextSub        int
	closed         bool
}

// NewGrid creates a grid with a single column and no items.
func NewGrid(layout Layout) *Grid {
	return &Grid{
		layout:  layout,
		columns: 1,
		window:  Window{ColumnCount: 1},
		subs:    make(map[int]func(Window)),
	}
}

// Layout returns the grid layout.
func (g *Grid) Layout() Layout {
	return g.layout
}

// Window returns the current window.
func (g *Grid) Window() Window {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.window
}

// Subscribe registers fn for window changes.
func (g *Grid) Subscribe(fn func(Window)) (unsubscribe func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return func() {}
	}
	id := g.nextSub
	g.nextSub++
	g.subs[id] = fn
	return func() {
		g.mu.Lock()
		delete(g.subs, id)
		g.mu.Unlock()
	}
}

// OnScroll handles a scroll to scrollY.
func (g *Grid) OnScroll(scrollY float64) {
	g.update(func() { g.scrollY = scrollY })
}

// OnResize handles a viewport or container resize.
func (g *Grid) OnResize(viewportHeight float64, metrics ContainerMetrics, containerTop float64) {
	g.update(func() {
		g.viewportHeight = viewportHeight
		g.metrics = metrics
		g.containerTop = containerTop
		g.columns = ColumnCount(metrics, g.layout.ItemWidth, g.layout.GapX)
	})
}

// SetTotal handles a change of the item count.
func (g *Grid) SetTotal(total int) {
	g.update(func() { g.total = total })
}

// Close detaches all subscribers. Later events are ignored.
func (g *Grid) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closed = true
	g.subs = make(map[int]func(Window))
}

func (g *Grid) update(apply func()) {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	apply()
	next := Compute(Params{
		TotalItems:     g.total,
		ColumnCount:    g.columns,
		ScrollY:        g.scrollY,
		ViewportHeight: g.viewportHeight,
		ContainerTop:   g.containerTop,
		Layout:         g.layout,
	})
	if next == g.window {
		g.mu.Unlock()
		return
	}
	g.window = next
	subs := make([]func(Window), 0, len(g.subs))
	for _, fn := range g.subs {
		subs = append(subs, fn)
	}
	g.mu.Unlock()

	for _, fn := range subs {
		fn(next)
	}
}
