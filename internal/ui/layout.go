package ui

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Terminal width thresholds for responsive layouts.
const (
	// LayoutCompactWidth is the threshold below which the header drops
	// secondary fields.
	LayoutCompactWidth = 100

	// LayoutStatsWidth is the minimum width to show byte and line counters.
	LayoutStatsWidth = 120
)

// Display limits.
const (
	// RawViewLimit is how many received lines the raw view keeps on screen.
	RawViewLimit = 2000

	// LogTailLines is how many application log lines the log view reads.
	LogTailLines = 1000

	// MaxColumnWidth caps a single table column.
	MaxColumnWidth = 40
)

// Timing constants.
const (
	// RefreshInterval is how often the view polls the console.
	RefreshInterval = 100 * time.Millisecond

	// LogRefreshInterval is how often the log view re-reads the log file.
	LogRefreshInterval = time.Second
)

// chromeHeight is the header, command bar and status line around a box.
const chromeHeight = 3

// renderBox draws a bordered pane of exactly width x height cells with
// title set into the top border.
func (m Model) renderBox(title, content string, width, height int, focused bool) string {
	border := m.theme.Border
	if focused {
		border = m.theme.BorderFocus
	}
	bg := m.theme.Surface
	if focused {
		bg = m.theme.FocusBg
	}
	innerW := max(width-2, 1)
	innerH := max(height-2, 1)

	borderStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(border)).Background(lipgloss.Color(bg))
	titleStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.Accent)).Background(lipgloss.Color(bg)).Bold(true)

	label := ""
	if title != "" {
		label = " " + truncate(title, innerW-2) + " "
	}
	fill := max(innerW-lipgloss.Width(label)-1, 0)
	top := borderStyle.Render("╭─") + titleStyle.Render(label) + borderStyle.Render(strings.Repeat("─", fill)+"╮")
	if label == "" {
		top = borderStyle.Render("╭" + strings.Repeat("─", innerW) + "╮")
	}
	bottom := borderStyle.Render("╰" + strings.Repeat("─", innerW) + "╯")

	body := lipgloss.NewStyle().
		Background(lipgloss.Color(bg)).
		Width(innerW).
		MaxWidth(innerW).
		Height(innerH).
		MaxHeight(innerH).
		Render(content)

	side := borderStyle.Render("│")
	lines := strings.Split(body, "\n")
	var b strings.Builder
	b.WriteString(top)
	for _, line := range lines {
		b.WriteString("\n")
		b.WriteString(side)
		b.WriteString(line)
		b.WriteString(side)
	}
	b.WriteString("\n")
	b.WriteString(bottom)
	return b.String()
}

// contentHeight is the number of rows available inside the main box.
func (m Model) contentHeight() int {
	return max(m.height-chromeHeight-2, 1)
}

// contentWidth is the number of columns available inside the main box.
func (m Model) contentWidth() int {
	return max(m.width-2, 1)
}

// scrollViewport applies a navigation key to vp. It reports whether the key
// was a navigation key and whether the view now rests on its last line,
// which is when it should keep following new output.
func scrollViewport(vp *viewport.Model, msg tea.KeyMsg, keys keyMap) (handled, atBottom bool) {
	switch {
	case key.Matches(msg, keys.Top):
		vp.GotoTop()
	case key.Matches(msg, keys.Bottom):
		vp.GotoBottom()
	case key.Matches(msg, keys.Down):
		vp.ScrollDown(1)
	case key.Matches(msg, keys.Up):
		vp.ScrollUp(1)
	case key.Matches(msg, keys.HalfPageDown):
		vp.HalfPageDown()
	case key.Matches(msg, keys.HalfPageUp):
		vp.HalfPageUp()
	case key.Matches(msg, keys.PageDown):
		vp.PageDown()
	case key.Matches(msg, keys.PageUp):
		vp.PageUp()
	default:
		return false, false
	}
	return true, vp.AtBottom()
}
