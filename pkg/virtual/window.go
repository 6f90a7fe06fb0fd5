// Package virtual computes which slice of a fixed-size card grid must be
// rendered for the current scroll position, and the spacer heights that keep
// the total scroll height equal to the unvirtualized grid.
package virtual

import "math"

// Defaults matching the card grid.
const (
	DefaultGap          = 12
	DefaultOverscanRows = 2
)

// Layout describes the card grid.
type Layout struct {
	ItemWidth  float64
	ItemHeight float64

	// GapX is the fallback column gap when the container reports none
	GapX float64
	GapY float64

	OverscanRows int
}

// RowStride is the height of one row including its gap.
func (l Layout) RowStride() float64 {
	return l.ItemHeight + l.GapY
}

// ContainerMetrics is a measurement of the grid container.
type ContainerMetrics struct {
	ClientWidth  float64
	PaddingLeft  float64
	PaddingRight float64

	// ColumnGap is the measured gap; <= 0 means not discoverable
	ColumnGap float64
}

// ColumnCount returns how many itemWidth tracks fit into the container's
// content width. It is never less than 1.
func ColumnCount(m ContainerMetrics, itemWidth, fallbackGap float64) int {
	contentWidth := m.ClientWidth - m.PaddingLeft - m.PaddingRight
	gap := m.ColumnGap
	if gap <= 0 {
		gap = fallbackGap
	}
	track := itemWidth + gap
	if track <= 0 {
		return 1
	}
	n := int(math.Floor((contentWidth + gap) / track))
	if n < 1 {
		return 1
	}
	return n
}

// Params are the inputs of Compute. ScrollY, ViewportHeight and
// ContainerTop are in page coordinates.
type Params struct {
	TotalItems     int
	ColumnCount    int
	ScrollY        float64
	ViewportHeight float64
	ContainerTop   float64
	Layout         Layout
}

// Window is the slice [StartIndex, EndIndex) to render, with spacers.
// RowsAbove + rendered rows + RowsBelow always equals the grid's row count;
// the spacers are those row counts times the row stride.
type Window struct {
	ColumnCount int
	StartIndex  int
	EndIndex    int
	PadTop      float64
	PadBottom   float64

	RowsAbove int
	RowsBelow int
}

// Len returns the number of items in the window.
func (w Window) Len() int {
	return w.EndIndex - w.StartIndex
}

// Compute returns the render window. Degenerate inputs (no items, no
// columns, non-positive row stride) yield an empty window.
func Compute(p Params) Window {
	columns := p.ColumnCount
	if columns < 1 {
		columns = 1
	}
	rowStride := p.Layout.RowStride()
	if p.TotalItems <= 0 || p.ColumnCount <= 0 || rowStride <= 0 {
		return Window{ColumnCount: columns}
	}

	overscan := p.Layout.OverscanRows
	if overscan < 0 {
		overscan = 0
	}

	totalRows := (p.TotalItems + columns - 1) / columns
	if totalRows < 1 {
		totalRows = 1
	}

	localTop := math.Max(0, p.ScrollY-p.ContainerTop)
	localBottom := math.Max(0, p.ScrollY+p.ViewportHeight-p.ContainerTop)

	firstRow := int(math.Floor(localTop/rowStride)) - overscan
	lastRow := int(math.Ceil(localBottom/rowStride)) + overscan
	if firstRow < 0 {
		firstRow = 0
	}
	if lastRow > totalRows-1 {
		lastRow = totalRows - 1
	}
	if firstRow > lastRow {
		// Scrolled past the end.
		firstRow = lastRow
	}

	start := firstRow * columns
	end := (lastRow + 1) * columns
	if end > p.TotalItems {
		end = p.TotalItems
	}

	rowsBelow := totalRows - lastRow - 1

	return Window{
		ColumnCount: columns,
		StartIndex:  start,
		EndIndex:    end,
		PadTop:      float64(firstRow) * rowStride,
		PadBottom:   float64(rowsBelow) * rowStride,
		RowsAbove:   firstRow,
		RowsBelow:   rowsBelow,
	}
}
