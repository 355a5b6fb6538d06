package ui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/uartconsole/internal/columns"
)

// Modal is the interface for modal dialogs.
// The Update method returns the updated modal, a command, and a bool indicating if the modal should close.
type Modal interface {
	Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool)
	View(theme Theme, width, height int) string
}

// noticeMsg is shown as a transient status message.
type noticeMsg string

func noticeCmd(text string) tea.Cmd {
	return func() tea.Msg { return noticeMsg(text) }
}

const modalWidth = 72

// inputModal edits a single value. apply runs on enter; an error keeps
// the dialog open with the message shown under the input.
type inputModal struct {
	title   string
	hint    string
	input   textinput.Model
	apply   func(value string) (notice string, err error)
	preview func(value string) []string
	err     string
}

func newInputModal(title, hint, value string) *inputModal {
	ti := textinput.New()
	ti.CharLimit = 512
	ti.Width = modalWidth - 8
	ti.SetValue(value)
	ti.CursorEnd()
	ti.Focus()
	return &inputModal{title: title, hint: hint, input: ti}
}

// newPatternModal edits the extraction pattern with a live preview
// against sample, the most recent received line.
func newPatternModal(c Console, pattern, sample string) *inputModal {
	md := newInputModal("Extraction pattern", "Regular expression; each capture group becomes a column.", pattern)
	overrides := c.Settings().OverrideNames()
	md.apply = func(value string) (string, error) {
		headers, err := c.SetPattern(value)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Pattern applied: %d columns", len(headers)), nil
	}
	md.preview = func(value string) []string {
		var out []string
		if expr, err := columns.Compile(value); err == nil {
			out = append(out, "Columns: "+strings.Join(columns.Resolve(expr, overrides), " | "))
		}
		if sample == "" {
			return append(out, "Test: no data received yet")
		}
		return append(out,
			"Sample: "+truncate(sanitize(sample), modalWidth-14),
			"Test: "+columns.Test(value, sample),
		)
	}
	return md
}

// newColumnNamesModal edits the comma-separated header overrides.
func newColumnNamesModal(c Console, names string) *inputModal {
	md := newInputModal("Column names", "Comma-separated; empty entries keep the default name.", names)
	md.apply = func(value string) (string, error) {
		headers := c.SetColumnNames(value)
		return "Columns: " + strings.Join(headers, ", "), nil
	}
	return md
}

// newMaxRowsModal edits the table capacity.
func newMaxRowsModal(c Console, current int) *inputModal {
	md := newInputModal("Maximum rows", "Oldest rows are dropped once the table is full.", strconv.Itoa(current))
	md.input.CharLimit = 7
	md.apply = func(value string) (string, error) {
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return "", fmt.Errorf("not a number: %q", value)
		}
		if err := c.SetMaxRows(n); err != nil {
			return "", err
		}
		return fmt.Sprintf("Max rows set to %d", n), nil
	}
	return md
}

func (md *inputModal) Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool) {
	if km, ok := msg.(tea.KeyMsg); ok {
		md.err = ""
		switch {
		case key.Matches(km, keys.Escape):
			return md, nil, true
		case key.Matches(km, keys.Confirm):
			notice, err := md.apply(md.input.Value())
			if err != nil {
				md.err = err.Error()
				return md, nil, false
			}
			return md, noticeCmd(notice), true
		}
	}
	var cmd tea.Cmd
	md.input, cmd = md.input.Update(msg)
	return md, cmd, false
}

func (md *inputModal) View(theme Theme, width, height int) string {
	styles := theme.Styles()
	var b strings.Builder
	b.WriteString(styles.FaintText.Render(md.hint))
	b.WriteString("\n\n")
	b.WriteString(md.input.View())
	b.WriteString("\n")
	if md.preview != nil {
		b.WriteString("\n")
		for _, line := range md.preview(md.input.Value()) {
			b.WriteString(styles.MutedText.Render(line))
			b.WriteString("\n")
		}
	}
	if md.err != "" {
		b.WriteString("\n")
		b.WriteString(styles.DangerText.Render(truncate(md.err, modalWidth-6)))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(styles.FaintText.Render("enter apply  esc cancel"))
	return renderModal(theme, width, height, md.title, b.String())
}

// renderModal centers a bordered dialog on the screen.
func renderModal(theme Theme, width, height int, title, body string) string {
	styles := theme.Styles()
	content := styles.AccentText.Bold(true).Render(title) + "\n" +
		styles.FaintText.Render(strings.Repeat("─", modalWidth-6)) + "\n" +
		body

	modal := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(theme.Accent)).
		Padding(1, 2).
		Width(modalWidth)

	return lipgloss.Place(
		width,
		height,
		lipgloss.Center,
		lipgloss.Center,
		modal.Render(content),
		lipgloss.WithWhitespaceChars(" "),
		lipgloss.WithWhitespaceForeground(lipgloss.Color(theme.Background)),
	)
}
