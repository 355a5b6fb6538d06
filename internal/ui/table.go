package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/uartconsole/internal/columns"
	"github.com/five82/uartconsole/internal/export"
	"github.com/five82/uartconsole/internal/table"
)

// tableState tracks which rows the table view shows. With follow set the
// newest rows stay in view; otherwise the window is pinned to the row
// whose sequence number is top.
type tableState struct {
	follow bool
	top    uint64
}

const (
	seqColumnWidth  = 6
	timeColumnWidth = 12
	minColumnWidth  = 3
)

// queryWindow fetches the rows the table view should show.
func queryWindow(c Console, ts tableState, limit int) table.Snapshot {
	head := c.Window(0, 1)
	if head.Total == 0 || limit <= 0 {
		return c.Window(0, 0)
	}
	last := max(head.Total-limit, 0)
	off := last
	if !ts.follow {
		oldest := head.Rows[0].Seq
		off = 0
		if ts.top > oldest {
			off = int(ts.top - oldest)
		}
		off = min(off, last)
	}
	return c.Window(off, limit)
}

// tableRowLimit is how many data rows fit under the column header.
func (m Model) tableRowLimit() int {
	if m.height == 0 {
		return 0
	}
	return max(m.contentHeight()-1, 1)
}

// firstSeq is the sequence number of the oldest retained row.
func (m Model) firstSeq() uint64 {
	if len(m.rows.Rows) == 0 {
		return 0
	}
	return m.rows.Rows[0].Seq - uint64(m.rows.Offset)
}

// scrollTable moves the pinned window by delta rows.
func (m *Model) scrollTable(delta int) {
	if m.rows.Total == 0 {
		return
	}
	limit := m.tableRowLimit()
	last := max(m.rows.Total-limit, 0)
	off := min(max(m.rows.Offset+delta, 0), last)
	m.tableState.follow = false
	m.tableState.top = m.firstSeq() + uint64(off)
	if off == last && delta > 0 && m.autoScroll {
		m.tableState.follow = true
	}
}

// handleTableKey processes keyboard input for the table view.
func (m Model) handleTableKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	page := m.tableRowLimit()
	switch {
	case key.Matches(msg, m.keys.Down):
		m.scrollTable(1)
	case key.Matches(msg, m.keys.Up):
		m.scrollTable(-1)
	case key.Matches(msg, m.keys.PageDown):
		m.scrollTable(page)
	case key.Matches(msg, m.keys.PageUp):
		m.scrollTable(-page)
	case key.Matches(msg, m.keys.HalfPageDown):
		m.scrollTable(page / 2)
	case key.Matches(msg, m.keys.HalfPageUp):
		m.scrollTable(-page / 2)
	case key.Matches(msg, m.keys.Top):
		m.tableState.follow = false
		m.tableState.top = m.firstSeq()
	case key.Matches(msg, m.keys.Bottom):
		if m.autoScroll {
			m.tableState.follow = true
		} else {
			m.scrollTable(m.rows.Total)
		}
	default:
		return m, nil
	}
	return m, m.fetchCmd()
}

// tableTitle is the box title for the table view.
func (m Model) tableTitle() string {
	title := "Table"
	if m.rows.Pattern != "" {
		title += " " + truncate(m.rows.Pattern, 48)
	}
	if m.rows.Total > 0 {
		end := m.rows.Offset + len(m.rows.Rows)
		title += fmt.Sprintf(" (%d-%d of %d)", m.rows.Offset+1, end, m.rows.Total)
	}
	if !m.tableState.follow {
		title += " [paused]"
	}
	return title
}

// tableColumn is one rendered column.
type tableColumn struct {
	title string
	width int
}

// layoutColumns sizes the columns for the visible rows. The last column
// takes whatever width is left.
func (m Model) layoutColumns(width int) []tableColumn {
	headers := m.rows.Headers
	if m.rows.NumGroups == 0 {
		headers = columns.HeaderSet{export.DataColumn}
	}

	cols := []tableColumn{{title: "#", width: seqColumnWidth}}
	if m.settings.ShowTimestamp {
		cols = append(cols, tableColumn{title: "Time", width: timeColumnWidth})
	}
	fixed := len(cols)
	for i, h := range headers {
		w := lipgloss.Width(h)
		for _, row := range m.rows.Rows {
			if !row.Matched {
				continue
			}
			cell := ""
			if m.rows.NumGroups == 0 {
				cell = row.Raw
			} else if i < len(row.Columns) {
				cell = row.Columns[i]
			}
			w = max(w, lipgloss.Width(sanitize(cell)))
		}
		cols = append(cols, tableColumn{title: h, width: min(max(w, minColumnWidth), MaxColumnWidth)})
	}

	used := 0
	for _, c := range cols {
		used += c.width + 1
	}
	if last := len(cols) - 1; last >= fixed {
		if spare := width - used; spare > 0 {
			cols[last].width += spare
		}
	}
	return cols
}

// renderTable renders the column header and the visible rows.
func (m Model) renderTable() string {
	width := m.contentWidth()
	bg := NewBgStyle(m.theme.FocusBg)
	styles := m.theme.Styles()

	if m.rows.Total == 0 {
		msg := "No data received"
		if m.status.Port != "" && m.console != nil && m.console.Connected() {
			msg = "Waiting for data on " + m.status.Port
		}
		return bg.FillLine(bg.Render(msg, styles.MutedText), width)
	}

	cols := m.layoutColumns(width)
	var b strings.Builder

	header := make([]string, len(cols))
	for i, c := range cols {
		header[i] = fit(c.title, c.width)
	}
	b.WriteString(styles.ColumnHeader.Width(width).MaxWidth(width).Render(strings.Join(header, " ")))

	for i, row := range m.rows.Rows {
		b.WriteString("\n")
		b.WriteString(m.renderRow(row, cols, i%2 == 1, width))
	}
	return b.String()
}

// renderRow renders one table row. Unmatched rows show the raw line
// across the data columns.
func (m Model) renderRow(row table.Row, cols []tableColumn, alt bool, width int) string {
	bgColor := m.theme.FocusBg
	if alt {
		bgColor = m.theme.SurfaceAlt
	}
	bg := NewBgStyle(bgColor)
	styles := m.theme.Styles()

	cells := []string{bg.Render(fit(fmt.Sprintf("%d", row.Seq), cols[0].width), styles.FaintText)}
	next := 1
	if m.settings.ShowTimestamp {
		cells = append(cells, bg.Render(fit(row.Time.Format(export.TimestampLayout), cols[1].width), styles.MutedText))
		next = 2
	}

	data := cols[next:]
	switch {
	case !row.Matched:
		span := len(data) - 1
		for _, c := range data {
			span += c.width
		}
		cells = append(cells, bg.Render(fit(sanitize(row.Raw), span), styles.WarningText.Italic(true)))
	case m.rows.NumGroups == 0:
		cells = append(cells, bg.Render(fit(sanitize(row.Raw), data[0].width), styles.Text))
	default:
		for i, c := range data {
			cell := ""
			if i < len(row.Columns) {
				cell = row.Columns[i]
			}
			cells = append(cells, bg.Render(fit(sanitize(cell), c.width), styles.Text))
		}
	}
	return bg.FillLine(strings.Join(cells, bg.Space()), width)
}
