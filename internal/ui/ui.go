package ui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/uartconsole/internal/columns"
	"github.com/five82/uartconsole/internal/config"
	"github.com/five82/uartconsole/internal/framer"
	"github.com/five82/uartconsole/internal/pipeline"
	"github.com/five82/uartconsole/internal/prefs"
	"github.com/five82/uartconsole/internal/serialport"
	"github.com/five82/uartconsole/internal/state"
	"github.com/five82/uartconsole/internal/table"
)

// Console is the live session the UI drives.
type Console interface {
	Connect() error
	Disconnect()
	Connected() bool
	Send(text string) error

	SetPattern(pattern string) (columns.HeaderSet, error)
	SetColumnNames(names string) columns.HeaderSet
	SetMaxRows(n int) error
	SetPort(port string, baud int)
	Clear()
	Export() (string, error)

	Window(offset, limit int) table.Snapshot
	Raw(limit int) []framer.RawLine
	Status() state.Snapshot
	Stats() pipeline.Stats
	Settings() config.Settings
}

// View represents the current active view.
type View int

const (
	ViewTable View = iota
	ViewRaw
	ViewLogs
)

func (v View) String() string {
	switch v {
	case ViewRaw:
		return "Raw"
	case ViewLogs:
		return "Log"
	default:
		return "Table"
	}
}

// Options configures the UI.
type Options struct {
	Context   context.Context
	Console   Console
	Prefs     prefs.Prefs
	PrefsPath string
	LogPath   string // application log shown in the log view; empty hides it

	// ListPorts feeds the port picker; nil uses serialport.ListPorts.
	ListPorts func() ([]serialport.PortInfo, error)
	Refresh   time.Duration
	Clock     func() time.Time
}

// flash is a UI-local message that overrides the status line briefly.
type flash struct {
	text    string
	isError bool
	at      time.Time
}

const flashTTL = 5 * time.Second

// Model is the root application state for Bubble Tea.
type Model struct {
	// Configuration
	ctx       context.Context
	console   Console
	keys      keyMap
	prefsPath string
	logPath   string
	listPorts func() ([]serialport.PortInfo, error)
	refresh   time.Duration
	clock     func() time.Time

	// UI state
	theme       Theme
	currentView View
	width       int
	height      int
	ready       bool
	showHelp    bool
	autoScroll  bool
	modal       Modal
	flash       flash

	// Data, replaced on every refresh
	status   state.Snapshot
	stats    pipeline.Stats
	settings config.Settings
	rows     table.Snapshot
	raw      []framer.RawLine
	now      time.Time

	// Table state
	tableState tableState

	// Raw view state
	rawViewport viewport.Model
	rawFollow   bool
	rawLines    []string // sanitized text of raw, for search
	rawSearch   lineSearch

	// Log state
	logViewport viewport.Model
	logState    logState

	// Send bar
	sending   bool
	sendInput textinput.Model
	history   []string
	histIdx   int
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	refresh := opts.Refresh
	if refresh <= 0 {
		refresh = RefreshInterval
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	listPorts := opts.ListPorts
	if listPorts == nil {
		listPorts = serialport.ListPorts
	}
	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	view := ViewTable
	if opts.Prefs.RawView {
		view = ViewRaw
	}

	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "text to send"
	ti.CharLimit = 1024

	m := Model{
		ctx:         ctx,
		console:     opts.Console,
		keys:        DefaultKeyMap(),
		prefsPath:   prefsPath,
		logPath:     opts.LogPath,
		listPorts:   listPorts,
		refresh:     refresh,
		clock:       clock,
		theme:       GetTheme(opts.Prefs.Theme),
		currentView: view,
		autoScroll:  opts.Prefs.AutoScroll,
		rawFollow:   opts.Prefs.AutoScroll,
		rawSearch:   newLineSearch("Search received lines..."),
		tableState:  tableState{follow: opts.Prefs.AutoScroll},
		sendInput:   ti,
	}
	m.initLogState()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		tea.EnterAltScreen,
		tickCmd(m.refresh),
		m.fetchCmd(),
	)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.resizeViewports()
		m.updateRawViewport()
		m.updateLogViewport()
		return m, m.fetchCmd()

	case tickMsg:
		return m.handleTick()

	case consoleMsg:
		m.applyConsole(msg)
		return m, nil

	case actionMsg:
		if msg.err != nil && msg.report {
			m.setFlash(msg.err.Error(), true)
		}
		return m, m.fetchCmd()

	case noticeMsg:
		m.setFlash(string(msg), false)
		return m, nil

	case portsMsg:
		if msg.err != nil {
			m.setFlash("List ports: "+msg.err.Error(), true)
			return m, nil
		}
		m.modal = newPortModal(m.console, msg.ports, m.settings.Port, m.settings.BaudRate)
		return m, nil

	case logLinesMsg:
		m.handleLogLines(msg)
		return m, nil
	}

	return m.forwardInput(msg)
}

// forwardInput hands other messages, such as cursor blinks, to whichever
// text input has focus.
func (m Model) forwardInput(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch {
	case m.modal != nil:
		m.modal, cmd, _ = m.modal.Update(msg, m.keys)
	case m.sending:
		m.sendInput, cmd = m.sendInput.Update(msg)
	case m.editingSearch():
		s, _ := m.searchTarget()
		s.input, cmd = s.input.Update(msg)
	}
	return m, cmd
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}
	if m.modal != nil {
		return m.modal.View(m.theme, m.width, m.height)
	}
	return m.renderMain()
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	if m.showHelp {
		// Any key closes help
		m.showHelp = false
		return m, nil
	}

	if m.modal != nil {
		next, cmd, done := m.modal.Update(msg, m.keys)
		if done {
			m.modal = nil
			return m, tea.Batch(cmd, m.fetchCmd())
		}
		m.modal = next
		return m, cmd
	}

	if m.sending {
		return m.handleSendKey(msg)
	}

	if m.editingSearch() {
		return m.handleSearchInput(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.savePrefs()
		m.updateRawViewport()
		m.logState.dirty = true
		m.updateLogViewport()
		return m, nil

	case key.Matches(msg, m.keys.Tab):
		return m.switchView((m.currentView + 1) % 3)

	case key.Matches(msg, m.keys.ShiftTab):
		return m.switchView((m.currentView + 2) % 3)

	case key.Matches(msg, m.keys.ViewTable):
		return m.switchView(ViewTable)

	case key.Matches(msg, m.keys.ViewRaw):
		return m.switchView(ViewRaw)

	case key.Matches(msg, m.keys.ViewLogs):
		return m.switchView(ViewLogs)

	case key.Matches(msg, m.keys.ToggleConnect):
		if m.console.Connected() {
			return m, disconnectCmd(m.console)
		}
		return m, connectCmd(m.console)

	case key.Matches(msg, m.keys.SelectPort):
		return m, listPortsCmd(m.listPorts)

	case key.Matches(msg, m.keys.EditPattern):
		m.modal = newPatternModal(m.console, m.settings.Pattern, m.sampleLine())
		return m, textinput.Blink

	case key.Matches(msg, m.keys.EditColumns):
		m.modal = newColumnNamesModal(m.console, m.settings.ColumnNames)
		return m, textinput.Blink

	case key.Matches(msg, m.keys.EditMaxRows):
		m.modal = newMaxRowsModal(m.console, m.settings.MaxRows)
		return m, textinput.Blink

	case key.Matches(msg, m.keys.Clear):
		m.console.Clear()
		m.tableState = tableState{follow: m.autoScroll}
		m.setFlash("Table cleared", false)
		return m, m.fetchCmd()

	case key.Matches(msg, m.keys.Export):
		return m, exportCmd(m.console)

	case key.Matches(msg, m.keys.AutoScroll):
		m.autoScroll = !m.autoScroll
		m.tableState.follow = m.autoScroll
		m.rawFollow = m.autoScroll
		m.savePrefs()
		m.setFlash("Auto-scroll "+ternary(m.autoScroll, "on", "off"), false)
		return m, m.fetchCmd()

	case key.Matches(msg, m.keys.Send) && m.currentView != ViewLogs:
		m.sending = true
		m.sendInput.Focus()
		return m, textinput.Blink
	}

	switch m.currentView {
	case ViewTable:
		return m.handleTableKey(msg)
	case ViewRaw:
		return m.handleRawKey(msg)
	case ViewLogs:
		return m.handleLogsKey(msg)
	}
	return m, nil
}

// switchView activates v and persists the table/raw choice.
func (m Model) switchView(v View) (tea.Model, tea.Cmd) {
	prev := m.currentView
	m.currentView = v
	if v != ViewLogs && prev != v {
		m.savePrefs()
	}
	if v == ViewLogs {
		cmd := m.refreshLogs(true)
		return m, cmd
	}
	return m, m.fetchCmd()
}

// handleSendKey edits and submits the send bar.
func (m Model) handleSendKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.sending = false
		m.sendInput.Blur()
		return m, nil

	case tea.KeyEnter:
		text := m.sendInput.Value()
		if text == "" {
			return m, nil
		}
		if err := m.console.Send(text); err != nil {
			m.setFlash("Send failed: "+err.Error(), true)
			return m, nil
		}
		if len(m.history) == 0 || m.history[len(m.history)-1] != text {
			m.history = append(m.history, text)
		}
		m.histIdx = len(m.history)
		m.sendInput.SetValue("")
		return m, m.fetchCmd()

	case tea.KeyUp:
		if m.histIdx > 0 {
			m.histIdx--
			m.sendInput.SetValue(m.history[m.histIdx])
			m.sendInput.CursorEnd()
		}
		return m, nil

	case tea.KeyDown:
		if m.histIdx < len(m.history)-1 {
			m.histIdx++
			m.sendInput.SetValue(m.history[m.histIdx])
			m.sendInput.CursorEnd()
		} else {
			m.histIdx = len(m.history)
			m.sendInput.SetValue("")
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.sendInput, cmd = m.sendInput.Update(msg)
	return m, cmd
}

// handleTick schedules the next refresh.
func (m Model) handleTick() (tea.Model, tea.Cmd) {
	if m.ctx.Err() != nil {
		return m, tea.Quit
	}
	cmds := []tea.Cmd{m.fetchCmd(), tickCmd(m.refresh)}
	if m.currentView == ViewLogs && m.logState.follow {
		if cmd := m.refreshLogs(false); cmd != nil {
			cmds = append(cmds, cmd)
		}
	}
	return m, tea.Batch(cmds...)
}

// applyConsole stores a refresh result.
func (m *Model) applyConsole(msg consoleMsg) {
	m.status = msg.status
	m.stats = msg.stats
	m.settings = msg.settings
	m.rows = msg.rows
	m.raw = msg.raw
	m.now = msg.at
	if len(m.rows.Rows) > 0 {
		m.tableState.top = m.rows.Rows[0].Seq
	}
	m.updateRawViewport()
}

// sampleLine is the newest received line, used to preview patterns.
func (m Model) sampleLine() string {
	if n := len(m.raw); n > 0 {
		return m.raw[n-1].Text
	}
	if n := len(m.rows.Rows); n > 0 {
		return m.rows.Rows[n-1].Raw
	}
	return ""
}

func (m *Model) setFlash(text string, isError bool) {
	m.flash = flash{text: text, isError: isError, at: m.clock()}
}

func (m Model) activeFlash() (flash, bool) {
	if m.flash.text == "" || m.clock().Sub(m.flash.at) > flashTTL {
		return flash{}, false
	}
	return m.flash, true
}

func (m Model) savePrefs() {
	if m.prefsPath == "" {
		return
	}
	_ = prefs.Save(m.prefsPath, prefs.Prefs{
		Theme:      m.theme.Name,
		RawView:    m.currentView == ViewRaw,
		AutoScroll: m.autoScroll,
	})
}

// renderMain renders the full screen.
func (m Model) renderMain() string {
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n")

	b.WriteString(m.renderCommandBar())
	b.WriteString("\n")

	b.WriteString(m.renderContent())
	b.WriteString("\n")

	b.WriteString(m.renderStatusLine())
	return b.String()
}

// renderContent renders the main content area based on current view.
func (m Model) renderContent() string {
	height := m.height - chromeHeight
	switch m.currentView {
	case ViewRaw:
		return m.renderBox(m.rawTitle(), m.rawViewport.View(), m.width, height, true)
	case ViewLogs:
		return m.renderBox(m.logTitle(), m.logViewport.View(), m.width, height, true)
	default:
		return m.renderBox(m.tableTitle(), m.renderTable(), m.width, height, true)
	}
}

// Messages

type tickMsg time.Time

type consoleMsg struct {
	status   state.Snapshot
	stats    pipeline.Stats
	settings config.Settings
	rows     table.Snapshot
	raw      []framer.RawLine
	at       time.Time
}

// actionMsg reports the end of a console action run off the update loop.
type actionMsg struct {
	err    error
	report bool // show err as a flash; false when the status line already has it
}

type portsMsg struct {
	ports []serialport.PortInfo
	err   error
}

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// fetchCmd reads everything the current view shows.
func (m Model) fetchCmd() tea.Cmd {
	c := m.console
	if c == nil {
		return nil
	}
	ts := m.tableState
	limit := m.tableRowLimit()
	clock := m.clock
	return func() tea.Msg {
		return consoleMsg{
			status:   c.Status(),
			stats:    c.Stats(),
			settings: c.Settings(),
			rows:     queryWindow(c, ts, limit),
			raw:      c.Raw(RawViewLimit),
			at:       clock(),
		}
	}
}

func connectCmd(c Console) tea.Cmd {
	return func() tea.Msg {
		// Failures are already on the status line.
		return actionMsg{err: c.Connect()}
	}
}

func disconnectCmd(c Console) tea.Cmd {
	return func() tea.Msg {
		c.Disconnect()
		return actionMsg{}
	}
}

func exportCmd(c Console) tea.Cmd {
	return func() tea.Msg {
		_, err := c.Export()
		return actionMsg{err: err}
	}
}

func listPortsCmd(list func() ([]serialport.PortInfo, error)) tea.Cmd {
	return func() tea.Msg {
		ports, err := list()
		return portsMsg{ports: ports, err: err}
	}
}

// Run starts the Bubble Tea program and blocks until the user quits or
// the context is cancelled.
func Run(opts Options) error {
	m := New(opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(m.ctx))
	_, err := p.Run()
	if err != nil && m.ctx.Err() != nil {
		return nil
	}
	return err
}
