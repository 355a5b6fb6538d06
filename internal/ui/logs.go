package ui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/uartconsole/internal/logtail"
)

// logState is the log view: the last LogTailLines entries of the
// application's own log file.
type logState struct {
	entries     []logtail.Entry
	lines       []string // Entry.Format of each entry, searched and highlighted
	follow      bool
	lastRefresh time.Time
	err         error
	dirty       bool // content must be re-rendered

	search lineSearch
}

type logLinesMsg struct {
	lines []string
	err   error
}

func (m *Model) initLogState() {
	m.logState = logState{follow: true, search: newLineSearch("Search log...")}
}

// refreshLogs re-reads the tail of the application log. Unless force is
// set, reads are limited to one per LogRefreshInterval.
func (m *Model) refreshLogs(force bool) tea.Cmd {
	if m.logPath == "" {
		return nil
	}
	now := m.clock()
	if !force && now.Sub(m.logState.lastRefresh) < LogRefreshInterval {
		return nil
	}
	m.logState.lastRefresh = now
	path := m.logPath
	return func() tea.Msg {
		lines, err := logtail.Read(path, LogTailLines)
		return logLinesMsg{lines: lines, err: err}
	}
}

// handleLogLines replaces the log buffer with a fresh read.
func (m *Model) handleLogLines(msg logLinesMsg) {
	ls := &m.logState
	ls.err = msg.err
	ls.dirty = true
	if msg.err == nil {
		ls.entries = make([]logtail.Entry, 0, len(msg.lines))
		ls.lines = make([]string, 0, len(msg.lines))
		for _, raw := range msg.lines {
			if strings.TrimSpace(raw) == "" {
				continue
			}
			e := logtail.Parse(raw)
			ls.entries = append(ls.entries, e)
			ls.lines = append(ls.lines, e.Format())
		}
		ls.search.rematch(ls.lines)
	}
	m.updateLogViewport()
}

// updateLogViewport re-renders the log if needed and keeps the tail in view
// while following.
func (m *Model) updateLogViewport() {
	if m.logViewport.Width == 0 {
		return
	}
	m.logViewport.Style = lipgloss.NewStyle().Background(lipgloss.Color(m.theme.FocusBg))
	if m.logState.dirty {
		m.logViewport.SetContent(m.renderLogContent())
		m.logState.dirty = false
	}
	if m.logState.follow {
		m.logViewport.GotoBottom()
	}
}

func (m Model) logTitle() string {
	title := fmt.Sprintf("Application log (%d lines, auto-tail %s)",
		len(m.logState.entries), ternary(m.logState.follow, "on", "off"))
	return title + m.logState.search.label()
}

func (m *Model) renderLogContent() string {
	bg := NewBgStyle(m.theme.FocusBg)
	styles := m.theme.Styles()
	width := m.logViewport.Width

	switch {
	case m.logPath == "":
		return bg.FillLine(bg.Render("Logging is disabled (log_file is empty)", styles.MutedText), width)
	case m.logState.err != nil:
		return bg.FillLine(bg.Render("Error reading log: "+m.logState.err.Error(), styles.DangerText), width)
	case len(m.logState.entries) == 0:
		return bg.FillLine(bg.Render("No log entries", styles.MutedText), width)
	}

	matches := m.logState.search.matchSet()
	selected := m.logState.search.current()

	out := make([]string, len(m.logState.entries))
	for i, e := range m.logState.entries {
		var line string
		switch {
		case i == selected:
			line = m.selectedMatchStyle().Render(m.logState.lines[i])
		case matches[i]:
			line = bg.Render(m.logState.lines[i], styles.AccentText)
		default:
			line = m.colorizeEntry(e, styles, bg)
		}
		out[i] = bg.FillLine(line, width)
	}
	return strings.Join(out, "\n")
}

// selectedMatchStyle marks the current search match in the raw and log views.
func (m Model) selectedMatchStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Background(lipgloss.Color(m.theme.Warning)).
		Foreground(lipgloss.Color(m.theme.Background))
}

// colorizeEntry renders one zap entry as time, level, logger, message and
// sorted fields.
func (m *Model) colorizeEntry(e logtail.Entry, styles Styles, bg BgStyle) string {
	if e.Level == "" {
		return bg.Render(e.Raw, styles.Text)
	}
	var parts []string
	if !e.Time.IsZero() {
		parts = append(parts, bg.Render(e.Time.Format("15:04:05"), styles.FaintText))
	}
	level := strings.ToUpper(e.Level)
	parts = append(parts, bg.Render(padRight(level, 5), levelStyle(level, styles).Bold(true)))
	if e.Logger != "" {
		parts = append(parts, bg.Render(e.Logger, styles.AccentText))
	}
	parts = append(parts, bg.Render(e.Message, styles.Text))
	if len(e.Fields) > 0 {
		names := make([]string, 0, len(e.Fields))
		for k := range e.Fields {
			names = append(names, k)
		}
		sort.Strings(names)
		for i, k := range names {
			names[i] = fmt.Sprintf("%s=%v", k, e.Fields[k])
		}
		parts = append(parts, bg.Render(strings.Join(names, " "), styles.MutedText))
	}
	return strings.Join(parts, bg.Space())
}

func levelStyle(level string, styles Styles) lipgloss.Style {
	switch level {
	case "DEBUG":
		return styles.InfoText
	case "INFO":
		return styles.SuccessText
	case "WARN":
		return styles.WarningText
	case "ERROR", "DPANIC", "PANIC", "FATAL":
		return styles.DangerText
	}
	return styles.Text
}

// handleLogsKey processes keyboard input for the log view.
func (m Model) handleLogsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.ToggleFollow) {
		m.logState.follow = !m.logState.follow
		m.updateLogViewport()
		if m.logState.follow {
			cmd := m.refreshLogs(true)
			return m, cmd
		}
		return m, nil
	}
	if ok, cmd := m.handleSearchKeys(msg); ok {
		return m, cmd
	}
	if ok, follow := scrollViewport(&m.logViewport, msg, m.keys); ok {
		m.logState.follow = follow
	}
	return m, nil
}
