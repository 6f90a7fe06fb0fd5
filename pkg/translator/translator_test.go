package translator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"reflect"
	"sync"
	"testing"

	"github.com/Sternrassler/catalog-feed/pkg/catalog"
	"github.com/Sternrassler/catalog-feed/pkg/client"
)

// fakeLister serves a synthetic catalog of ids 1..count.
type fakeLister struct {
	mu sync.Mutex

	count   int
	stored  int // entries actually served; defaults to count
	err     error
	refFunc func(id int) string
	calls   [][2]int
}

func newFakeLister(count int) *fakeLister {
	return &fakeLister{count: count, stored: count}
}

func (f *fakeLister) List(_ context.Context, limit, offset int) (*client.ListResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, [2]int{limit, offset})
	if f.err != nil {
		return nil, f.err
	}
	results := []client.ListEntry{}
	for id := offset + 1; id <= offset+limit && id <= f.stored; id++ {
		ref := fmt.Sprintf("https://pokeapi.co/api/v2/pokemon/%d/", id)
		if f.refFunc != nil {
			ref = f.refFunc(id)
		}
		results = append(results, client.ListEntry{Name: fmt.Sprintf("p%d", id), URL: ref})
	}
	return &client.ListResponse{Count: f.count, Results: results}, nil
}

func (f *fakeLister) lastCall() [2]int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

func ids(items []catalog.Item) []int {
	out := make([]int, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func TestTranslate_UnfilteredLastPage(t *testing.T) {
	lister := newFakeLister(1025)
	tr := New(lister, Config{})

	page, err := tr.Translate(context.Background(), 21, 50, "")
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}

	if got := lister.lastCall(); got != [2]int{50, 1000} {
		t.Errorf("upstream window = %v, want limit=50 offset=1000", got)
	}
	if len(page.Items) != 25 {
		t.Errorf("len(Items) = %d, want 25", len(page.Items))
	}
	if page.HasNext {
		t.Error("HasNext = true, want false")
	}
	if page.Total != 1025 {
		t.Errorf("Total = %d, want 1025", page.Total)
	}
	if page.Items[0].ID != 1001 || page.Items[24].ID != 1025 {
		t.Errorf("ids = %d..%d, want 1001..1025", page.Items[0].ID, page.Items[24].ID)
	}
	if tags := page.Items[0].Tags; len(tags) != 1 || tags[0] != "gen-ix" {
		t.Errorf("Tags = %v, want [gen-ix]", tags)
	}
}

func TestTranslate_FilteredBoundaryPage(t *testing.T) {
	lister := newFakeLister(1025)
	tr := New(lister, Config{})

	page, err := tr.Translate(context.Background(), 4, 50, "gen-i")
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}

	if got := lister.lastCall(); got != [2]int{50, 150} {
		t.Errorf("upstream window = %v, want limit=50 offset=150", got)
	}
	if !reflect.DeepEqual(ids(page.Items), []int{151}) {
		t.Errorf("ids = %v, want [151]", ids(page.Items))
	}
	if page.HasNext {
		t.Error("HasNext = true, want false")
	}
	if page.Total != 151 {
		t.Errorf("Total = %d, want 151", page.Total)
	}
	if page.Items[0].Tags[0] != "gen-i" {
		t.Errorf("Tags = %v, want [gen-i]", page.Items[0].Tags)
	}
}

func TestTranslate_FilteredReindexesOffset(t *testing.T) {
	lister := newFakeLister(1025)
	tr := New(lister, Config{})

	page, err := tr.Translate(context.Background(), 2, 20, "gen-iii")
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	if got := lister.lastCall(); got != [2]int{20, 271} {
		t.Errorf("upstream window = %v, want limit=20 offset=271", got)
	}
	if page.Items[0].ID != 272 || len(page.Items) != 20 {
		t.Errorf("first id = %d len = %d, want 272 and 20", page.Items[0].ID, len(page.Items))
	}
	if !page.HasNext {
		t.Error("HasNext = false, want true")
	}
}

func TestTranslate_UnknownTag(t *testing.T) {
	lister := newFakeLister(1025)
	tr := New(lister, Config{})

	page, err := tr.Translate(context.Background(), 1, 50, "gen-xiii")
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	if len(page.Items) != 0 || page.Total != 0 || page.HasNext {
		t.Errorf("page = %+v, want empty", page)
	}
	if page.Items == nil {
		t.Error("Items should be an empty slice, not nil")
	}
	if len(lister.calls) != 0 {
		t.Errorf("upstream called %d times, want 0", len(lister.calls))
	}
}

func TestTranslate_TagPageBeyondRange(t *testing.T) {
	tests := []struct {
		name     string
		page     int
		pageSize int
	}{
		{"first page past the end", 10, 50},
		{"offset beyond int range", 1 << 62, MaxPageSize},
		{"largest page", math.MaxInt, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lister := newFakeLister(1025)
			tr := New(lister, Config{})

			page, err := tr.Translate(context.Background(), tt.page, tt.pageSize, "gen-ii")
			if err != nil {
				t.Fatalf("Translate() error = %v", err)
			}
			if len(page.Items) != 0 || page.HasNext || page.Total != 100 {
				t.Errorf("page = %+v, want empty with total 100", page)
			}
			if len(lister.calls) != 0 {
				t.Errorf("upstream called %d times, want 0", len(lister.calls))
			}
		})
	}
}

func TestTranslate_InvalidWindow(t *testing.T) {
	tests := []struct {
		name     string
		page     int
		pageSize int
	}{
		{"page zero", 0, 10},
		{"page size zero", 1, 0},
		{"page size too large", 1, MaxPageSize + 1},
		{"offset beyond int range", 1 << 62, MaxPageSize},
		{"offset just past int range", math.MaxInt/2 + 2, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lister := newFakeLister(1025)
			tr := New(lister, Config{})

			_, err := tr.Translate(context.Background(), tt.page, tt.pageSize, "")
			if !errors.Is(err, ErrInvalidWindow) {
				t.Errorf("err = %v, want ErrInvalidWindow", err)
			}
			if len(lister.calls) != 0 {
				t.Errorf("upstream called %d times, want 0", len(lister.calls))
			}
		})
	}
}

func TestTranslate_LargestRepresentablePage(t *testing.T) {
	lister := newFakeLister(1025)
	tr := New(lister, Config{})

	// offset+pageSize == math.MaxInt still fits
	page, err := tr.Translate(context.Background(), math.MaxInt, 1, "")
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	if page.HasNext || len(page.Items) != 0 || page.Total != 1025 {
		t.Errorf("page = %+v, want empty last page with total 1025", page)
	}
	if got := lister.lastCall(); got != [2]int{1, math.MaxInt - 1} {
		t.Errorf("List called with %v, want [1 %d]", got, math.MaxInt-1)
	}
}

func TestTranslate_UpstreamError(t *testing.T) {
	lister := newFakeLister(1025)
	lister.err = &client.UpstreamError{StatusCode: 503, Class: client.ErrorClassServer, Message: "unavailable"}
	tr := New(lister, Config{})

	for _, tag := range []string{"", "gen-v"} {
		_, err := tr.Translate(context.Background(), 1, 50, tag)
		var upErr *client.UpstreamError
		if !errors.As(err, &upErr) {
			t.Errorf("tag %q: err = %v, want *UpstreamError", tag, err)
		}
	}
}

func TestTranslate_DropsBadReferences(t *testing.T) {
	lister := newFakeLister(10)
	lister.refFunc = func(id int) string {
		switch id {
		case 3:
			return "https://pokeapi.co/api/v2/pokemon-species/3/"
		case 4:
			return "garbage"
		case 5:
			return "https://pokeapi.co/api/v2/pokemon/5"
		case 6:
			return "https://pokeapi.co/api/v2/pokemon/6///"
		}
		return fmt.Sprintf("https://pokeapi.co/api/v2/pokemon/%d/", id)
	}
	tr := New(lister, Config{})

	page, err := tr.Translate(context.Background(), 1, 10, "")
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	want := []int{1, 2, 5, 6, 7, 8, 9, 10}
	if !reflect.DeepEqual(ids(page.Items), want) {
		t.Errorf("ids = %v, want %v", ids(page.Items), want)
	}
}

func TestTranslate_UnknownLabelBeyondTable(t *testing.T) {
	lister := newFakeLister(1100)
	tr := New(lister, Config{})

	page, err := tr.Translate(context.Background(), 11, 100, "")
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	last := page.Items[len(page.Items)-1]
	if last.ID != 1100 || last.Tags[0] != catalog.UnknownTag {
		t.Errorf("last item = %+v, want id 1100 tagged %q", last, catalog.UnknownTag)
	}
}

func TestTranslate_ShortPageEndsFeed(t *testing.T) {
	// Upstream claims 200 entries but only serves 120.
	lister := newFakeLister(200)
	lister.stored = 120
	tr := New(lister, Config{})

	page, err := tr.Translate(context.Background(), 3, 50, "")
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	if len(page.Items) != 20 {
		t.Errorf("len(Items) = %d, want 20", len(page.Items))
	}
	if page.HasNext {
		t.Error("HasNext = true, want false after short page")
	}

	// Same inconsistency on the filtered path.
	lister = newFakeLister(1025)
	lister.stored = 100
	tr = New(lister, Config{})

	page, err = tr.Translate(context.Background(), 2, 50, "gen-i")
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	if len(page.Items) != 50 || !page.HasNext {
		t.Errorf("page 2: len = %d hasNext = %v, want 50 and true", len(page.Items), page.HasNext)
	}
	page, err = tr.Translate(context.Background(), 3, 50, "gen-i")
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	if len(page.Items) != 0 || page.HasNext {
		t.Errorf("page 3: len = %d hasNext = %v, want 0 and false", len(page.Items), page.HasNext)
	}
}

func TestTranslate_ImageURL(t *testing.T) {
	tr := New(newFakeLister(5), Config{ImageBaseURL: "https://img.example/sprites"})

	page, err := tr.Translate(context.Background(), 1, 1, "")
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	if page.Items[0].ImageURL != "https://img.example/sprites/1.png" {
		t.Errorf("ImageURL = %q", page.Items[0].ImageURL)
	}
}

func TestTranslate_UnfilteredArithmetic(t *testing.T) {
	const total = 1025
	tr := New(newFakeLister(total), Config{})

	for _, pageSize := range []int{1, 7, 50, 200} {
		for page := 1; (page-1)*pageSize <= total+pageSize; page++ {
			p, err := tr.Translate(context.Background(), page, pageSize, "")
			if err != nil {
				t.Fatalf("page=%d size=%d: %v", page, pageSize, err)
			}
			want := total - (page-1)*pageSize
			if want > pageSize {
				want = pageSize
			}
			if want < 0 {
				want = 0
			}
			if len(p.Items) != want {
				t.Errorf("page=%d size=%d: len = %d, want %d", page, pageSize, len(p.Items), want)
			}
			if p.HasNext != (page*pageSize < total) {
				t.Errorf("page=%d size=%d: HasNext = %v", page, pageSize, p.HasNext)
			}
		}
	}
}

func TestTranslate_FilteredStaysInRange(t *testing.T) {
	tr := New(newFakeLister(1025), Config{})

	for _, r := range catalog.Generations {
		for _, pageSize := range []int{13, 50} {
			seen := 0
			for page := 1; ; page++ {
				p, err := tr.Translate(context.Background(), page, pageSize, r.Tag)
				if err != nil {
					t.Fatalf("%s page=%d: %v", r.Tag, page, err)
				}
				if p.Total != r.Size() {
					t.Errorf("%s: Total = %d, want %d", r.Tag, p.Total, r.Size())
				}
				for _, it := range p.Items {
					if !r.Contains(it.ID) {
						t.Errorf("%s: id %d outside [%d,%d]", r.Tag, it.ID, r.Start, r.End)
					}
				}
				seen += len(p.Items)
				if !p.HasNext {
					break
				}
			}
			if seen != r.Size() {
				t.Errorf("%s size=%d: saw %d items, want %d", r.Tag, pageSize, seen, r.Size())
			}
		}
	}
}

func TestTranslate_Idempotent(t *testing.T) {
	tr := New(newFakeLister(1025), Config{})
	ctx := context.Background()

	for _, tag := range []string{"", "gen-iv"} {
		a, err := tr.Translate(ctx, 2, 30, tag)
		if err != nil {
			t.Fatal(err)
		}
		b, err := tr.Translate(ctx, 2, 30, tag)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(a, b) {
			t.Errorf("tag %q: pages differ between identical requests", tag)
		}
	}
}
