package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/uartconsole/internal/export"
)

// resizeViewports fits the raw and log viewports inside the main box.
func (m *Model) resizeViewports() {
	w, h := m.contentWidth(), m.contentHeight()
	if m.rawViewport.Width == 0 {
		m.rawViewport = viewport.New(w, h)
	}
	if m.logViewport.Width == 0 {
		m.logViewport = viewport.New(w, h)
	}
	m.rawViewport.Width, m.rawViewport.Height = w, h
	m.logViewport.Width, m.logViewport.Height = w, h
	m.logState.dirty = true
}

// updateRawViewport re-renders received lines into the raw viewport.
func (m *Model) updateRawViewport() {
	m.rawLines = m.rawLines[:0:0]
	for _, line := range m.raw {
		m.rawLines = append(m.rawLines, sanitize(line.Text))
	}
	m.rawSearch.rematch(m.rawLines)

	if m.rawViewport.Width == 0 {
		return
	}
	m.rawViewport.Style = lipgloss.NewStyle().Background(lipgloss.Color(m.theme.FocusBg))
	m.rawViewport.SetContent(m.renderRawContent())
	if m.rawFollow {
		m.rawViewport.GotoBottom()
	}
}

func (m *Model) renderRawContent() string {
	bg := NewBgStyle(m.theme.FocusBg)
	styles := m.theme.Styles()
	width := m.rawViewport.Width

	if len(m.raw) == 0 {
		return bg.FillLine(bg.Render("No data received", styles.MutedText), width)
	}

	matches := m.rawSearch.matchSet()
	selected := m.rawSearch.current()

	out := make([]string, len(m.raw))
	for i, line := range m.raw {
		content := ""
		if m.settings.ShowTimestamp {
			content = bg.Render(line.Time.Format(export.TimestampLayout), styles.FaintText) + bg.Spaces(2)
		}
		switch text := m.rawLines[i]; {
		case i == selected:
			content += m.selectedMatchStyle().Render(text)
		case matches[i]:
			content += bg.Render(text, styles.AccentText)
		default:
			content += bg.Render(text, styles.Text)
		}
		out[i] = bg.FillLine(content, width)
	}
	return strings.Join(out, "\n")
}

func (m Model) rawTitle() string {
	title := fmt.Sprintf("Raw (%d lines)", len(m.raw))
	if !m.rawFollow {
		title += " [paused]"
	}
	return title + m.rawSearch.label()
}

// handleRawKey processes keyboard input for the raw view.
func (m Model) handleRawKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if ok, cmd := m.handleSearchKeys(msg); ok {
		return m, cmd
	}
	if ok, follow := scrollViewport(&m.rawViewport, msg, m.keys); ok {
		m.rawFollow = follow
	}
	return m, nil
}
