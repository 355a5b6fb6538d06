package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/five82/uartconsole/internal/state"
)

// renderHeader renders the link status bar.
func (m Model) renderHeader() string {
	styles := m.theme.Styles()
	bg := NewBgStyle(m.theme.Surface)
	compact := m.width < LayoutCompactWidth

	st := m.status
	parts := []string{
		bg.Render("uartconsole", styles.Logo),
		styles.PhaseStyle(st.Phase).Render(strings.ToUpper(st.Phase.String())),
	}

	if port := m.settings.Port; port != "" {
		link := truncateMiddle(port, ternary(compact, 20, 40))
		if m.settings.BaudRate > 0 {
			link = fmt.Sprintf("%s @ %d", link, m.settings.BaudRate)
		}
		parts = append(parts, bg.Render(link, styles.Text))
	} else {
		parts = append(parts, bg.Render("no port selected", styles.MutedText))
	}

	if up := st.Uptime(m.now); up > 0 {
		parts = append(parts,
			bg.Render("Up:", styles.MutedText)+bg.Space()+
				bg.Render(formatUptime(up), styles.Text))
	}

	rowStyle := styles.Text
	if m.rows.Capacity > 0 && m.rows.Total >= m.rows.Capacity {
		rowStyle = styles.WarningText
	}
	parts = append(parts,
		bg.Render("Rows:", styles.MutedText)+bg.Space()+
			bg.Render(fmt.Sprintf("%d/%d", m.rows.Total, m.rows.Capacity), rowStyle))

	if m.rows.Evicted > 0 && !compact {
		parts = append(parts,
			bg.Render("Evicted:", styles.MutedText)+bg.Space()+
				bg.Render(humanize.Comma(int64(m.rows.Evicted)), styles.FaintText))
	}

	if m.width >= LayoutStatsWidth {
		parts = append(parts,
			bg.Render("RX:", styles.MutedText)+bg.Space()+
				bg.Render(humanize.Bytes(m.stats.BytesRead), styles.InfoText)+bg.Space()+
				bg.Render(humanize.Comma(int64(m.stats.LinesFramed))+" lines", styles.InfoText))
	}
	if m.stats.LinesDropped > 0 {
		parts = append(parts,
			bg.Render("Dropped:", styles.MutedText)+bg.Space()+
				bg.Render(humanize.Comma(int64(m.stats.LinesDropped)), styles.DangerText))
	}

	if st.IsOffline() {
		parts = append(parts, bg.Render(fmt.Sprintf("%d failures", st.ConsecutiveFailures), styles.DangerText))
	}

	return lipgloss.NewStyle().
		Background(lipgloss.Color(m.theme.Surface)).
		Foreground(lipgloss.Color(m.theme.Text)).
		Width(m.width).
		MaxWidth(m.width).
		Render(bg.Join(parts, "  "))
}

// renderCommandBar renders the shortcuts for the current view.
func (m Model) renderCommandBar() string {
	styles := m.theme.Styles()
	bg := NewBgStyle(m.theme.Surface)

	type cmd struct{ key, desc string }
	var commands []cmd

	connect := "Connect"
	if m.status.Phase != state.Disconnected {
		connect = "Disconnect"
	}

	switch m.currentView {
	case ViewLogs:
		commands = []cmd{
			{"Space", ternary(m.logState.follow, "Pause", "Follow")},
			{"/", "Search"},
			{"]/[", "Next/Prev"},
			{"t", "Table"},
			{"r", "Raw"},
			{"?", "More"},
		}
	default:
		commands = []cmd{
			{"c", connect},
			{"o", "Port"},
			{"i", "Send"},
			{"p", "Pattern"},
			{"n", "Names"},
			{"x", "Clear"},
			{"w", "Export"},
			{"a", "Scroll " + ternary(m.autoScroll, "on", "off")},
			{"tab", ternary(m.currentView == ViewRaw, "Log", "Raw")},
			{"?", "More"},
		}
	}

	colon := bg.Sep(":")
	segments := make([]string, 0, len(commands))
	for _, c := range commands {
		segments = append(segments,
			bg.Render(c.key, styles.AccentText)+colon+bg.Render(c.desc, styles.MutedText))
	}

	return lipgloss.NewStyle().
		Background(lipgloss.Color(m.theme.Surface)).
		Width(m.width).
		MaxWidth(m.width).
		Render(strings.Join(segments, bg.Spaces(2)))
}

// renderStatusLine renders the send bar, a transient notice or the
// session status message.
func (m Model) renderStatusLine() string {
	styles := m.theme.Styles()
	bg := NewBgStyle(m.theme.Surface)

	var content string
	switch f, ok := m.activeFlash(); {
	case m.sending:
		ending := m.settings.TxLineEnding.Label()
		content = m.sendInput.View() + bg.Spaces(2) + bg.Render("+"+ending, styles.FaintText)
	case ok:
		content = bg.Render(f.text, ternary(f.isError, styles.DangerText, styles.SuccessText))
	case m.status.Message != "":
		style := styles.MutedText
		if m.status.IsError {
			style = styles.DangerText
		}
		content = bg.Render(m.status.Message, style)
	}

	return bg.FillLine(content, m.width)
}

// formatUptime renders d as 45s, 12m03s or 3h04m.
func formatUptime(d time.Duration) string {
	d = d.Truncate(time.Second)
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%dh%02dm", int(d.Hours()), int(d.Minutes())%60)
	}
}
