package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/uartconsole/internal/state"
)

// Theme maps the console's screen roles to colors.
type Theme struct {
	Name string

	Background string // behind dialogs
	Surface    string // header, command bar, status line
	FocusBg    string // main pane
	SurfaceAlt string // every other table row

	HeaderBg   string // table column header
	HeaderText string

	Border      string
	BorderFocus string

	Text    string
	Muted   string
	Faint   string
	Accent  string
	Success string
	Warning string
	Danger  string
	Info    string

	// phase badge colors, indexed by state.Phase
	phase [4]string
}

// palette is the handful of colors a theme is derived from.
type palette struct {
	bg      [5]string // darkest to lightest
	sel     string
	fg      string
	comment string
	dim     string
	blue    string
	green   string
	yellow  string
	red     string
	cyan    string
}

func (p palette) theme(name string) Theme {
	return Theme{
		Name:        name,
		Background:  p.bg[0],
		Surface:     p.bg[1],
		FocusBg:     p.bg[3],
		SurfaceAlt:  p.bg[2],
		HeaderBg:    p.sel,
		HeaderText:  p.fg,
		Border:      p.bg[4],
		BorderFocus: p.blue,
		Text:        p.fg,
		Muted:       p.comment,
		Faint:       p.dim,
		Accent:      p.blue,
		Success:     p.green,
		Warning:     p.yellow,
		Danger:      p.red,
		Info:        p.cyan,
		phase: [4]string{
			state.Disconnected: p.dim,
			state.Connecting:   p.cyan,
			state.Connected:    p.green,
			state.Reconnecting: p.yellow,
		},
	}
}

// PhaseColor is the badge color for a link phase.
func (t Theme) PhaseColor(p state.Phase) string {
	if int(p) >= 0 && int(p) < len(t.phase) {
		return t.phase[p]
	}
	return t.Muted
}

// Styles holds the text styles built from a theme.
type Styles struct {
	Text        lipgloss.Style
	MutedText   lipgloss.Style
	FaintText   lipgloss.Style
	AccentText  lipgloss.Style
	SuccessText lipgloss.Style
	WarningText lipgloss.Style
	DangerText  lipgloss.Style
	InfoText    lipgloss.Style

	Logo         lipgloss.Style
	ColumnHeader lipgloss.Style

	theme Theme
}

func fg(color string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color))
}

// Styles returns the lipgloss styles for t.
func (t Theme) Styles() Styles {
	return Styles{
		Text:        fg(t.Text),
		MutedText:   fg(t.Muted),
		FaintText:   fg(t.Faint),
		AccentText:  fg(t.Accent),
		SuccessText: fg(t.Success).Bold(true),
		WarningText: fg(t.Warning),
		DangerText:  fg(t.Danger).Bold(true),
		InfoText:    fg(t.Info),

		Logo: fg(t.Warning).Bold(true),
		ColumnHeader: lipgloss.NewStyle().
			Background(lipgloss.Color(t.HeaderBg)).
			Foreground(lipgloss.Color(t.HeaderText)).
			Bold(true),

		theme: t,
	}
}

// PhaseStyle is the header badge for a link phase.
func (s Styles) PhaseStyle(p state.Phase) lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color(s.theme.Background)).
		Background(lipgloss.Color(s.theme.PhaseColor(p))).
		Bold(true).
		Padding(0, 1)
}

var (
	// https://github.com/EdenEast/nightfox.nvim
	nightfox = palette{
		bg:      [5]string{"#131a24", "#192330", "#212e3f", "#29394f", "#39506d"},
		sel:     "#2b3b51",
		fg:      "#cdcecf",
		comment: "#738091",
		dim:     "#71839b",
		blue:    "#719cd6",
		green:   "#81b29a",
		yellow:  "#dbc074",
		red:     "#c94f6d",
		cyan:    "#63cdcf",
	}

	// https://github.com/rebelot/kanagawa.nvim
	kanagawa = palette{
		bg:      [5]string{"#16161D", "#1F1F28", "#223249", "#2A2A37", "#54546D"},
		sel:     "#2D4F67",
		fg:      "#DCD7BA",
		comment: "#C8C093",
		dim:     "#727169",
		blue:    "#7E9CD8",
		green:   "#98BB6C",
		yellow:  "#E6C384",
		red:     "#E46876",
		cyan:    "#7FB4CA",
	}

	// Green phosphor terminal.
	phosphor = palette{
		bg:      [5]string{"#000000", "#031a09", "#06260f", "#04140a", "#0f4a1f"},
		sel:     "#0f4a1f",
		fg:      "#33ff66",
		comment: "#1fa845",
		dim:     "#147a31",
		blue:    "#66ffcc",
		green:   "#33ff66",
		yellow:  "#ffb000",
		red:     "#ff5555",
		cyan:    "#66ffcc",
	}
)

var themeOrder = []string{"Nightfox", "Kanagawa", "Phosphor"}

var themes = map[string]Theme{
	"Nightfox": nightfox.theme("Nightfox"),
	"Kanagawa": kanagawa.theme("Kanagawa"),
	"Phosphor": phosphor.theme("Phosphor"),
}

// GetTheme returns the named theme, or Nightfox when the name is unknown.
func GetTheme(name string) Theme {
	if t, ok := themes[name]; ok {
		return t
	}
	return themes[themeOrder[0]]
}

// NextTheme returns the theme after current in the cycle.
func NextTheme(current string) string {
	for i, name := range themeOrder {
		if name == current {
			return themeOrder[(i+1)%len(themeOrder)]
		}
	}
	return themeOrder[0]
}

// ThemeNames lists the themes in cycle order.
func ThemeNames() []string {
	return append([]string(nil), themeOrder...)
}
