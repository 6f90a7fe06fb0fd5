// Package scroll fires an asynchronous loader when a sentinel approaches the
// viewport.
//
// Visibility is reported by an Observer, an abstraction of an intersection
// observer. Viewport provides a geometry-based implementation that is fed
// scroll extents by the caller.
package scroll

import "sync"

// Rect is a vertical extent in page coordinates.
type Rect struct {
	Top    float64
	Bottom float64
}

// Target is an observable element. Implementations must be comparable
// (typically pointers).
type Target interface {
	Bounds() Rect
	Connected() bool
}

// Entry reports the visibility of one target.
type Entry struct {
	Target       Target
	Intersecting bool
}

// Observer watches targets and reports visibility changes to the callback it
// was created with.
type Observer interface {
	Observe(target Target)
	Unobserve(target Target)
	Disconnect()
}

// ObserverFactory creates an observer delivering entries to callback.
type ObserverFactory func(callback func([]Entry)) Observer

// Sentinel is a mutable Target.
type Sentinel struct {
	mu        sync.RWMutex
	bounds    Rect
	connected bool
}

// NewSentinel creates a connected sentinel at bounds.
func NewSentinel(bounds Rect) *Sentinel {
	return &Sentinel{bounds: bounds, connected: true}
}

// Bounds implements Target.
func (s *Sentinel) Bounds() Rect {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bounds
}

// Connected implements Target.
func (s *Sentinel) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

// Move sets new bounds.
func (s *Sentinel) Move(bounds Rect) {
	s.mu.Lock()
	s.bounds = bounds
	s.mu.Unlock()
}

// SetConnected marks the sentinel as mounted or removed.
func (s *Sentinel) SetConnected(connected bool) {
	s.mu.Lock()
	s.connected = connected
	s.mu.Unlock()
}

// Viewport tracks the visible extent and drives ViewportObservers created
// from it. RootMargin widens the extent on both sides.
type Viewport struct {
	margin float64

	mu        sync.Mutex
	extent    Rect
	observers map[*ViewportObserver]struct{}
}

// NewViewport creates a viewport with the given root margin.
func NewViewport(rootMargin float64) *Viewport {
	return &Viewport{
		margin:    rootMargin,
		observers: make(map[*ViewportObserver]struct{}),
	}
}

// Factory returns an ObserverFactory producing observers of v.
func (v *Viewport) Factory() ObserverFactory {
	return func(callback func([]Entry)) Observer {
		return v.NewObserver(callback)
	}
}

// NewObserver creates an observer of v.
func (v *Viewport) NewObserver(callback func([]Entry)) *ViewportObserver {
	o := &ViewportObserver{
		viewport: v,
		callback: callback,
		targets:  make(map[Target]bool),
	}
	v.mu.Lock()
	v.observers[o] = struct{}{}
	v.mu.Unlock()
	return o
}

// Update sets the visible extent and notifies observers of changes.
func (v *Viewport) Update(top, bottom float64) {
	v.mu.Lock()
	v.extent = Rect{Top: top, Bottom: bottom}
	v.mu.Unlock()
	v.Refresh()
}

// Refresh re-evaluates all targets, e.g. after layout moved them.
func (v *Viewport) Refresh() {
	v.mu.Lock()
	root := v.rootLocked()
	observers := make([]*ViewportObserver, 0, len(v.observers))
	for o := range v.observers {
		observers = append(observers, o)
	}
	v.mu.Unlock()

	for _, o := range observers {
		o.evaluate(root)
	}
}

func (v *Viewport) root() Rect {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.rootLocked()
}

func (v *Viewport) rootLocked() Rect {
	return Rect{Top: v.extent.Top - v.margin, Bottom: v.extent.Bottom + v.margin}
}

func (v *Viewport) remove(o *ViewportObserver) {
	v.mu.Lock()
	delete(v.observers, o)
	v.mu.Unlock()
}

// ViewportObserver reports intersection changes between its targets and the
// viewport's root extent. Like a browser intersection observer it reports
// the current state when a target is first observed.
type ViewportObserver struct {
	viewport *Viewport
	callback func([]Entry)

	mu           sync.Mutex
	targets      map[Target]bool
	disconnected bool
}

// Observe implements Observer.
func (o *ViewportObserver) Observe(target Target) {
	if target == nil {
		return
	}
	root := o.viewport.root()

	o.mu.Lock()
	if o.disconnected {
		o.mu.Unlock()
		return
	}
	if _, ok := o.targets[target]; ok {
		o.mu.Unlock()
		return
	}
	hit := intersects(target, root)
	o.targets[target] = hit
	o.mu.Unlock()

	o.callback([]Entry{{Target: target, Intersecting: hit}})
}

// Unobserve implements Observer.
func (o *ViewportObserver) Unobserve(target Target) {
	o.mu.Lock()
	delete(o.targets, target)
	o.mu.Unlock()
}

// Disconnect implements Observer.
func (o *ViewportObserver) Disconnect() {
	o.mu.Lock()
	o.disconnected = true
	o.targets = make(map[Target]bool)
	o.mu.Unlock()
	o.viewport.remove(o)
}

func (o *ViewportObserver) evaluate(root Rect) {
	o.mu.Lock()
	if o.disconnected {
		o.mu.Unlock()
		return
	}
	var changed []Entry
	for target, was := range o.targets {
		hit := intersects(target, root)
		if hit != was {
			o.targets[target] = hit
			changed = append(changed, Entry{Target: target, Intersecting: hit})
		}
	}
	o.mu.Unlock()

	if len(changed) > 0 {
		o.callback(changed)
	}
}

// intersects uses a zero threshold: touching edges count.
func intersects(target Target, root Rect) bool {
	if !target.Connected() {
		return false
	}
	b := target.Bounds()
	return b.Bottom >= root.Top && b.Top <= root.Bottom
}
