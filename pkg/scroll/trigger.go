package scroll

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Defaults for Options.
const (
	DefaultRootMargin = 600
	DefaultCooldown   = 150 * time.Millisecond
)

// Phase is the trigger state.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhaseCooling
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLoading:
		return "loading"
	case PhaseCooling:
		return "cooling"
	default:
		return "unknown"
	}
}

// Stopper cancels a pending timer.
type Stopper interface {
	Stop() bool
}

// AfterFunc schedules f after d.
type AfterFunc func(d time.Duration, f func()) Stopper

func realAfterFunc(d time.Duration, f func()) Stopper {
	return time.AfterFunc(d, f)
}

// Options configures a Trigger.
type Options struct {
	// Cooldown between a settled load and re-observing the sentinel
	Cooldown time.Duration

	// Enabled is the initial enabled flag
	Enabled bool

	// AfterFunc replaces time.AfterFunc (tests). It must not call f
	// synchronously.
	AfterFunc AfterFunc
}

// DefaultOptions returns an enabled trigger with the default cooldown.
func DefaultOptions() Options {
	return Options{
		Cooldown: DefaultCooldown,
		Enabled:  true,
	}
}

// Trigger calls a loader once each time the sentinel becomes visible:
//
//	Idle -(intersecting, enabled)-> Loading -(settled)-> Cooling -(cooldown)-> Idle
//
// Intersections during Loading and Cooling are ignored. The sentinel is
// unobserved while loading and observed again once the cooldown elapses,
// provided the trigger is still enabled and the sentinel still connected.
type Trigger struct {
	load      func(ctx context.Context) error
	factory   ObserverFactory
	cooldown  time.Duration
	afterFunc AfterFunc
	logger    zerolog.Logger

	mu       sync.Mutex
	phase    Phase
	enabled  bool
	target   Target
	observer Observer
	gen      uint64 // observer generation
	session  uint64 // bumped on Attach and dispose
	timer    Stopper
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewTrigger creates a trigger. Observers are created from factory whenever
// the trigger (re)arms.
func NewTrigger(load func(ctx context.Context) error, factory ObserverFactory, opts Options) *Trigger {
	if opts.Cooldown < 0 {
		opts.Cooldown = 0
	}
	if opts.AfterFunc == nil {
		opts.AfterFunc = realAfterFunc
	}
	t := &Trigger{
		load:      load,
		factory:   factory,
		cooldown:  opts.Cooldown,
		afterFunc: opts.AfterFunc,
		logger:    log.With().Str("component", "scroll-trigger").Logger(),
		enabled:   opts.Enabled,
	}
	t.resetSessionLocked()
	return t
}

// Phase returns the current phase.
func (t *Trigger) Phase() Phase {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.phase
}

// Enabled reports the enabled flag.
func (t *Trigger) Enabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.enabled
}

// Attach starts watching sentinel, replacing any previous one. The returned
// function detaches it, stops pending timers and cancels a running load.
func (t *Trigger) Attach(sentinel Target) (dispose func()) {
	t.mu.Lock()
	t.resetSessionLocked()
	t.target = sentinel
	t.mu.Unlock()

	t.rearm()

	var once sync.Once
	return func() {
		once.Do(func() { t.detach(sentinel) })
	}
}

// SetEnabled toggles observation. Disabling disconnects the observer;
// enabling creates a new one.
func (t *Trigger) SetEnabled(enabled bool) {
	t.mu.Lock()
	if t.enabled == enabled {
		t.mu.Unlock()
		return
	}
	t.enabled = enabled
	t.mu.Unlock()

	t.rearm()
}

// rearm replaces the observer and observes the target when idle.
func (t *Trigger) rearm() {
	t.mu.Lock()
	old := t.observer
	t.observer = nil
	t.gen++
	gen := t.gen

	var (
		obs    Observer
		target = t.target
	)
	if t.enabled && target != nil {
		obs = t.factory(func(entries []Entry) { t.handle(gen, entries) })
		t.observer = obs
	}
	observeNow := obs != nil && t.phase == PhaseIdle
	t.mu.Unlock()

	if old != nil {
		old.Disconnect()
	}
	if observeNow {
		obs.Observe(target)
	}
}

func (t *Trigger) detach(sentinel Target) {
	t.mu.Lock()
	if t.target != sentinel {
		t.mu.Unlock()
		return
	}
	old := t.observer
	t.observer = nil
	t.target = nil
	t.gen++
	t.resetSessionLocked()
	t.mu.Unlock()

	if old != nil {
		old.Disconnect()
	}
}

// resetSessionLocked abandons any load or cooldown in progress.
func (t *Trigger) resetSessionLocked() {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	if t.cancel != nil {
		t.cancel()
	}
	t.ctx, t.cancel = context.WithCancel(context.Background())
	t.session++
	t.phase = PhaseIdle
}

// handle receives observer entries for observer generation gen.
func (t *Trigger) handle(gen uint64, entries []Entry) {
	t.mu.Lock()
	if gen != t.gen || t.phase != PhaseIdle || !t.enabled || t.target == nil {
		t.mu.Unlock()
		return
	}
	hit := false
	for _, e := range entries {
		if e.Intersecting {
			hit = true
			break
		}
	}
	if !hit {
		t.mu.Unlock()
		return
	}

	t.phase = PhaseLoading
	obs := t.observer
	target := t.target
	ctx := t.ctx
	session := t.session
	t.mu.Unlock()

	if obs != nil {
		obs.Unobserve(target)
	}
	t.logger.Debug().Msg("Sentinel visible - loading")

	go t.run(ctx, session)
}

func (t *Trigger) run(ctx context.Context, session uint64) {
	defer t.settle(session)
	defer func() {
		if r := recover(); r != nil {
			t.logger.Warn().
				Str("panic", fmt.Sprint(r)).
				Msg("Scroll loader panicked")
		}
	}()

	if err := t.load(ctx); err != nil {
		t.logger.Warn().Err(err).Msg("Scroll loader failed")
	}
}

// settle enters Cooling and schedules the return to Idle.
func (t *Trigger) settle(session uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if session != t.session {
		return
	}
	t.phase = PhaseCooling
	t.timer = t.afterFunc(t.cooldown, func() { t.cooled(session) })
}

func (t *Trigger) cooled(session uint64) {
	t.mu.Lock()
	if session != t.session || t.phase != PhaseCooling {
		t.mu.Unlock()
		return
	}
	t.timer = nil
	t.phase = PhaseIdle
	obs := t.observer
	target := t.target
	reobserve := t.enabled && obs != nil && target != nil && target.Connected()
	t.mu.Unlock()

	if reobserve {
		obs.Observe(target)
	}
}
