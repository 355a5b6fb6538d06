package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// BgStyle paints text over a pane background. Each word and each gap is
// styled on its own, because the reset after a styled segment would
// otherwise drop the cells behind it back to the terminal default.
type BgStyle struct {
	fill lipgloss.Style // background only
}

// NewBgStyle returns a painter for the hex color bgColor.
func NewBgStyle(bgColor string) BgStyle {
	return BgStyle{fill: lipgloss.NewStyle().Background(lipgloss.Color(bgColor))}
}

// Render draws text in style on the background.
func (b BgStyle) Render(text string, style lipgloss.Style) string {
	if text == "" {
		return ""
	}
	style = style.Background(b.fill.GetBackground())
	var out strings.Builder
	for i, word := range strings.Split(text, " ") {
		if i > 0 {
			out.WriteString(b.Space())
		}
		if word != "" {
			out.WriteString(style.Render(word))
		}
	}
	return out.String()
}

// Sep draws a literal separator on the background.
func (b BgStyle) Sep(sep string) string { return b.fill.Render(sep) }

func (b BgStyle) Space() string { return b.Sep(" ") }

// Spaces draws n blank cells.
func (b BgStyle) Spaces(n int) string {
	if n <= 0 {
		return ""
	}
	return b.Sep(strings.Repeat(" ", n))
}

// Join joins parts with sep drawn on the background.
func (b BgStyle) Join(parts []string, sep string) string {
	return strings.Join(parts, b.Sep(sep))
}

// FillLine pads or clips rendered content to exactly width cells.
func (b BgStyle) FillLine(content string, width int) string {
	return b.fill.Width(width).MaxWidth(width).Render(content)
}
