package virtual

import "testing"

func TestGrid_RecomputesOnEvents(t *testing.T) {
	g := NewGrid(cardLayout)
	defer g.Close()

	var windows []Window
	g.Subscribe(func(w Window) { windows = append(windows, w) })

	g.OnResize(900, ContainerMetrics{ClientWidth: 4*200 + 3*12}, 0)
	if len(windows) != 1 || windows[0].ColumnCount != 4 || windows[0].Len() != 0 {
		t.Fatalf("after OnResize: %+v", windows)
	}

	g.SetTotal(100)
	if len(windows) != 2 || windows[1].EndIndex != 24 {
		t.Fatalf("after SetTotal: %+v", windows)
	}

	g.OnScroll(3000)
	if len(windows) != 3 || windows[2].StartIndex != 32 {
		t.Fatalf("after OnScroll: %+v", windows)
	}
	if g.Window() != windows[2] {
		t.Error("Window() differs from last notification")
	}
}

func TestGrid_NotifiesOnlyOnChange(t *testing.T) {
	g := NewGrid(cardLayout)
	defer g.Close()
	g.OnResize(850, ContainerMetrics{ClientWidth: 1000}, 0)
	g.SetTotal(100)

	calls := 0
	g.Subscribe(func(Window) { calls++ })

	// Scrolling within the same row does not change the window.
	g.OnScroll(10)
	g.OnScroll(20)
	if calls != 0 {
		t.Errorf("calls = %d, want 0", calls)
	}
}

func TestGrid_UnsubscribeAndClose(t *testing.T) {
	g := NewGrid(cardLayout)
	g.OnResize(900, ContainerMetrics{ClientWidth: 1000}, 0)

	a, b := 0, 0
	unsubscribe := g.Subscribe(func(Window) { a++ })
	g.Subscribe(func(Window) { b++ })

	g.SetTotal(10)
	unsubscribe()
	g.SetTotal(20)
	if a != 1 || b != 2 {
		t.Errorf("a=%d b=%d, want 1 and 2", a, b)
	}

	g.Close()
	g.SetTotal(500)
	g.OnScroll(10000)
	if b != 2 {
		t.Errorf("notified after Close: b=%d", b)
	}

	late := 0
	g.Subscribe(func(Window) { late++ })
	g.SetTotal(1000)
	if late != 0 {
		t.Error("subscriber after Close was notified")
	}
}
