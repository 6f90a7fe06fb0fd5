package pagination

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Sternrassler/catalog-feed/pkg/catalog"
)

type fakeFetcher struct {
	mu       sync.Mutex
	calls    map[string][]int
	lastPage map[string]int
	failTag  string
	delay    time.Duration

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		calls:    make(map[string][]int),
		lastPage: make(map[string]int),
	}
}

func (f *fakeFetcher) Translate(ctx context.Context, page, pageSize int, tag string) (catalog.Page[catalog.Item], error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		m := f.maxInFlight.Load()
		if n <= m || f.maxInFlight.CompareAndSwap(m, n) {
			break
		}
	}

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return catalog.Page[catalog.Item]{}, ctx.Err()
		}
	}

	f.mu.Lock()
	f.calls[tag] = append(f.calls[tag], page)
	last, ok := f.lastPage[tag]
	f.mu.Unlock()

	if tag == f.failTag {
		return catalog.Page[catalog.Item]{}, errors.New("upstream down")
	}
	hasNext := !ok || page < last
	return catalog.Page[catalog.Item]{Page: page, PageSize: pageSize, HasNext: hasNext}, nil
}

func TestNewWarmer_Defaults(t *testing.T) {
	w := NewWarmer(newFakeFetcher(), Config{})
	def := DefaultConfig()
	if w.config != def {
		t.Errorf("config = %+v, want %+v", w.config, def)
	}
}

func TestWarm_AllFeeds(t *testing.T) {
	f := newFakeFetcher()
	w := NewWarmer(f, Config{Pages: 3, PageSize: 50, Concurrency: 2})

	result, err := w.Warm(context.Background(), []string{"", "gen-i", "gen-ii"})
	if err != nil {
		t.Fatalf("Warm() error = %v", err)
	}
	if result.Warmed != 9 || result.Failed != 0 {
		t.Errorf("result = %+v, want 9 warmed", result)
	}
	for _, tag := range []string{"", "gen-i", "gen-ii"} {
		if len(f.calls[tag]) != 3 {
			t.Errorf("tag %q: %d calls, want 3", tag, len(f.calls[tag]))
		}
	}
}

func TestWarm_RespectsConcurrency(t *testing.T) {
	f := newFakeFetcher()
	f.delay = 10 * time.Millisecond
	w := NewWarmer(f, Config{Pages: 4, PageSize: 10, Concurrency: 3})

	if _, err := w.Warm(context.Background(), []string{"a", "b", "c", "d"}); err != nil {
		t.Fatalf("Warm() error = %v", err)
	}
	if got := f.maxInFlight.Load(); got > 3 {
		t.Errorf("max in flight = %d, want <= 3", got)
	}
}

func TestWarm_FailuresDoNotStopOthers(t *testing.T) {
	f := newFakeFetcher()
	f.failTag = "broken"
	w := NewWarmer(f, Config{Pages: 2, PageSize: 10, Concurrency: 4})

	result, err := w.Warm(context.Background(), []string{"", "broken"})
	if err != nil {
		t.Fatalf("Warm() error = %v", err)
	}
	if result.Warmed != 2 || result.Failed != 2 {
		t.Errorf("result = %+v, want 2 warmed and 2 failed", result)
	}
}

func TestWarm_SkipsPagesAfterEnd(t *testing.T) {
	f := newFakeFetcher()
	f.lastPage["short"] = 1
	// One worker makes the order deterministic: page 1 of every feed runs first.
	w := NewWarmer(f, Config{Pages: 3, PageSize: 10, Concurrency: 1})

	result, err := w.Warm(context.Background(), []string{"short"})
	if err != nil {
		t.Fatalf("Warm() error = %v", err)
	}
	if result.Warmed != 1 || result.Skipped != 2 {
		t.Errorf("result = %+v, want 1 warmed and 2 skipped", result)
	}
}

func TestWarm_Cancelled(t *testing.T) {
	f := newFakeFetcher()
	f.delay = time.Second
	w := NewWarmer(f, Config{Pages: 5, PageSize: 10, Concurrency: 2})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := w.Warm(ctx, []string{"", "gen-i"})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want context.DeadlineExceeded", err)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Error("Warm did not stop promptly after cancellation")
	}
}

func TestMarkEnded(t *testing.T) {
	var last atomic.Int64
	last.Store(10)

	markEnded(&last, 5)
	markEnded(&last, 7)
	if last.Load() != 5 {
		t.Errorf("last = %d, want 5", last.Load())
	}
}
