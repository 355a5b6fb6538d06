package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap holds every binding the console reacts to. Help text lives on
// the bindings so the help overlay cannot drift from the handlers.
type keyMap struct {
	Quit       key.Binding
	Help       key.Binding
	CycleTheme key.Binding
	Tab        key.Binding
	ShiftTab   key.Binding
	Escape     key.Binding
	Confirm    key.Binding

	ViewTable key.Binding
	ViewRaw   key.Binding
	ViewLogs  key.Binding

	// Serial link
	ToggleConnect key.Binding
	SelectPort    key.Binding
	Send          key.Binding

	// Table
	EditPattern key.Binding
	EditColumns key.Binding
	EditMaxRows key.Binding
	Clear       key.Binding
	Export      key.Binding
	AutoScroll  key.Binding

	Up           key.Binding
	Down         key.Binding
	Top          key.Binding
	Bottom       key.Binding
	PageUp       key.Binding
	PageDown     key.Binding
	HalfPageUp   key.Binding
	HalfPageDown key.Binding

	// Raw and log views
	ToggleFollow key.Binding
	Search       key.Binding
	NextMatch    key.Binding
	PrevMatch    key.Binding
}

// bind builds a binding whose help shows label, or the first key when
// label is empty.
func bind(label, desc string, keys ...string) key.Binding {
	if label == "" {
		label = keys[0]
	}
	return key.NewBinding(key.WithKeys(keys...), key.WithHelp(label, desc))
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() keyMap {
	return keyMap{
		Quit:       bind("q/ctrl+c", "Quit", "q", "ctrl+c"),
		Help:       bind("h/?", "Toggle help", "h", "?"),
		CycleTheme: bind("", "Cycle theme", "T"),
		Tab:        bind("", "Next view", "tab"),
		ShiftTab:   bind("", "Previous view", "shift+tab"),
		Escape:     bind("", "Close / clear search", "esc"),
		Confirm:    bind("", "Apply", "enter"),

		ViewTable: bind("", "Table", "t"),
		ViewRaw:   bind("", "Raw lines", "r"),
		ViewLogs:  bind("", "Application log", "l"),

		ToggleConnect: bind("", "Connect / disconnect", "c"),
		SelectPort:    bind("", "Port and baud rate", "o"),
		Send:          bind("i/enter", "Send text (esc leaves)", "i", "enter"),

		EditPattern: bind("", "Edit pattern", "p"),
		EditColumns: bind("", "Column names", "n"),
		EditMaxRows: bind("", "Maximum rows", "m"),
		Clear:       bind("", "Clear table", "x"),
		Export:      bind("", "Export CSV", "w"),
		AutoScroll:  bind("", "Toggle auto-scroll", "a"),

		Up:           bind("k/↑", "Scroll up", "k", "up"),
		Down:         bind("j/↓", "Scroll down", "j", "down"),
		Top:          bind("g/home", "Oldest", "g", "home"),
		Bottom:       bind("G/end", "Newest", "G", "end"),
		PageUp:       bind("", "Page up", "pgup"),
		PageDown:     bind("", "Page down", "pgdown"),
		HalfPageUp:   bind("", "Half page up", "ctrl+u"),
		HalfPageDown: bind("", "Half page down", "ctrl+d"),

		ToggleFollow: bind("space", "Follow log tail", " "),
		Search:       bind("", "Search (regex, any case)", "/"),
		NextMatch:    bind("", "Next match", "]"),
		PrevMatch:    bind("", "Previous match", "["),
	}
}

// helpSection is one titled group in the help overlay.
type helpSection struct {
	title    string
	bindings []key.Binding
}

// sections groups the bindings for the help overlay.
func (k keyMap) sections() []helpSection {
	return []helpSection{
		{"Views", []key.Binding{k.Tab, k.ShiftTab, k.ViewTable, k.ViewRaw, k.ViewLogs}},
		{"Navigation", []key.Binding{k.Up, k.Down, k.Top, k.Bottom, k.HalfPageDown, k.HalfPageUp}},
		{"Serial link", []key.Binding{k.ToggleConnect, k.SelectPort, k.Send}},
		{"Table", []key.Binding{k.EditPattern, k.EditColumns, k.EditMaxRows, k.Clear, k.Export, k.AutoScroll}},
		{"Raw and log", []key.Binding{k.Search, k.NextMatch, k.PrevMatch, k.Escape, k.ToggleFollow}},
		{"General", []key.Binding{k.CycleTheme, k.Help, k.Quit}},
	}
}
