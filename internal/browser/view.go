package browser

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Sternrassler/catalog-feed/pkg/catalog"
	"github.com/Sternrassler/catalog-feed/pkg/virtual"
)

// View implements tea.Model.
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderToolbar())
	b.WriteString("\n")
	b.WriteString(m.renderGrid())
	b.WriteString("\n")
	b.WriteString(m.renderStatus())
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m *Model) renderHeader() string {
	title := titleStyle.Render("Catalog")
	filter := "all"
	if m.state.Filter != "" {
		filter = m.state.Filter
	}
	return title + statusStyle.Render(fmt.Sprintf("  %d items · filter: %s", len(m.state.Items), filter))
}

// renderToolbar draws the tag chips and records their click zones.
func (m *Model) renderToolbar() string {
	m.zones = m.zones[:0]

	var parts []string
	x := 0
	add := func(rendered string, zone chipZone) {
		w := lipgloss.Width(rendered)
		zone.x0, zone.x1 = x, x+w
		m.zones = append(m.zones, zone)
		parts = append(parts, rendered)
		x += w + 1
	}

	for i, tag := range m.tags {
		style := chipStyle
		switch {
		case tag == m.state.Filter:
			style = activeChipStyle
		case i == m.tagCursor:
			style = focusedChipStyle
		}
		add(style.Render(tag), chipZone{tag: tag})
	}
	if m.state.Filter != "" {
		add(clearChipStyle.Render("Clear filter"), chipZone{clear: true})
	}
	return strings.Join(parts, " ")
}

// renderGrid draws the visible rows. Only rows inside the virtual window are
// rendered; everything else in view is blank.
func (m *Model) renderGrid() string {
	win := m.grid.Window()
	columns := max(1, win.ColumnCount)
	stride := cardHeight + gapY
	gridHeight := m.gridHeight()
	vh := m.viewportHeight()

	rendered := make(map[int][]string)
	lines := make([]string, 0, vh)
	for y := m.scrollY; y < m.scrollY+vh; y++ {
		switch {
		case y < gridHeight:
			row := y / stride
			within := y % stride
			if within >= cardHeight || !rowInWindow(win, row, columns) {
				lines = append(lines, "")
				continue
			}
			rowLines, ok := rendered[row]
			if !ok {
				rowLines = m.renderRow(row, columns)
				rendered[row] = rowLines
			}
			if within < len(rowLines) {
				lines = append(lines, rowLines[within])
			} else {
				lines = append(lines, "")
			}
		case y == gridHeight:
			lines = append(lines, m.sentinelLine())
		default:
			lines = append(lines, "")
		}
	}
	return strings.Join(lines, "\n")
}

func rowInWindow(win virtual.Window, row, columns int) bool {
	if win.Len() == 0 {
		return false
	}
	first := win.StartIndex / columns
	last := (win.EndIndex - 1) / columns
	return row >= first && row <= last
}

func (m *Model) renderRow(row, columns int) []string {
	start := row * columns
	end := min(start+columns, len(m.state.Items))

	cards := make([]string, 0, 2*(end-start))
	for i := start; i < end; i++ {
		if i > start {
			cards = append(cards, strings.Repeat(" ", gapX))
		}
		cards = append(cards, renderCard(m.state.Items[i]))
	}
	joined := " " + lipgloss.JoinHorizontal(lipgloss.Top, cards...)
	return strings.Split(strings.ReplaceAll(joined, "\n", "\n "), "\n")
}

func renderCard(item catalog.Item) string {
	inner := cardWidth - 4
	tag := catalog.UnknownTag
	if len(item.Tags) > 0 {
		tag = item.Tags[0]
	}
	body := strings.Join([]string{
		cardIDStyle.Render(fmt.Sprintf("#%04d", item.ID)),
		truncate(item.Name, inner),
		cardTagStyle.Render(truncate(tag, inner)),
	}, "\n")
	return cardStyle.Width(cardWidth - 2).Render(body)
}

func (m *Model) sentinelLine() string {
	if m.state.HasMore {
		return statusStyle.Render(" · · ·")
	}
	return ""
}

// renderStatus shows exactly one of the feed statuses.
func (m *Model) renderStatus() string {
	s := m.state
	switch {
	case s.Loading:
		return m.spinner.View() + statusStyle.Render(" Loading…")
	case s.Err != "":
		return errorStyle.Render("⚠ "+s.Err) + statusStyle.Render("  press r to retry")
	case len(s.Items) == 0 && !s.HasMore:
		return statusStyle.Render("No results")
	case !s.HasMore:
		return endStyle.Render("End of feed")
	case s.Cursor == 1:
		return ""
	default:
		return statusStyle.Render(fmt.Sprintf("%d pages loaded · scroll for more", s.Cursor-1))
	}
}

func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	if width <= 1 {
		return string(r[:width])
	}
	return string(r[:width-1]) + "…"
}
