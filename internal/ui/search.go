package ui

import (
	"fmt"
	"regexp"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// lineSearch is a case-insensitive regex search over the lines of a
// viewport. The raw and log views each own one.
type lineSearch struct {
	editing bool // query input is open
	input   textinput.Model

	query   string
	re      *regexp.Regexp
	matches []int // indices of matching lines
	cur     int
}

func newLineSearch(placeholder string) lineSearch {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = 100
	return lineSearch{input: ti}
}

// begin opens the query input.
func (s *lineSearch) begin() {
	s.editing = true
	s.input.SetValue("")
	s.input.Focus()
}

// cancel closes the query input and keeps the previous search.
func (s *lineSearch) cancel() {
	s.editing = false
	s.input.Blur()
}

// commit compiles the typed query. An empty query leaves the search as it
// was; an invalid one is returned and changes nothing.
func (s *lineSearch) commit(lines []string) error {
	query := s.input.Value()
	s.cancel()
	if query == "" {
		return nil
	}
	re, err := regexp.Compile("(?i)" + query)
	if err != nil {
		return err
	}
	s.query, s.re, s.cur = query, re, 0
	s.rematch(lines)
	return nil
}

// clear drops the active search.
func (s *lineSearch) clear() {
	s.query, s.re, s.matches, s.cur = "", nil, nil, 0
}

func (s *lineSearch) active() bool { return s.re != nil }

// rematch recomputes matches after the lines changed.
func (s *lineSearch) rematch(lines []string) {
	s.matches = nil
	if s.re == nil {
		return
	}
	for i, line := range lines {
		if s.re.MatchString(line) {
			s.matches = append(s.matches, i)
		}
	}
	if s.cur >= len(s.matches) {
		s.cur = 0
	}
}

// step moves delta matches, wrapping around. It reports false when there
// is nothing to move to.
func (s *lineSearch) step(delta int) bool {
	n := len(s.matches)
	if n == 0 {
		return false
	}
	s.cur = ((s.cur+delta)%n + n) % n
	return true
}

// current is the line index of the selected match, or -1.
func (s *lineSearch) current() int {
	if len(s.matches) == 0 {
		return -1
	}
	return s.matches[s.cur]
}

// matchSet indexes matches for rendering.
func (s *lineSearch) matchSet() map[int]bool {
	set := make(map[int]bool, len(s.matches))
	for _, i := range s.matches {
		set[i] = true
	}
	return set
}

// label is appended to the view title.
func (s *lineSearch) label() string {
	switch {
	case s.editing:
		return " search: " + s.input.Value()
	case s.re != nil && len(s.matches) > 0:
		return fmt.Sprintf(" /%s %d/%d", s.query, s.cur+1, len(s.matches))
	case s.re != nil:
		return " pattern not found: " + s.query
	}
	return ""
}

// searchTarget returns the search of the current view and the plain text
// lines it runs over, or nil for views without search.
func (m *Model) searchTarget() (*lineSearch, []string) {
	switch m.currentView {
	case ViewRaw:
		return &m.rawSearch, m.rawLines
	case ViewLogs:
		return &m.logState.search, m.logState.lines
	}
	return nil, nil
}

// editingSearch reports whether the current view's query input is open.
func (m *Model) editingSearch() bool {
	s, _ := m.searchTarget()
	return s != nil && s.editing
}

// handleSearchInput edits the query while the input is open.
func (m Model) handleSearchInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	s, lines := m.searchTarget()
	switch {
	case key.Matches(msg, m.keys.Confirm):
		if err := s.commit(lines); err != nil {
			m.setFlash("Invalid search: "+err.Error(), true)
			return m, nil
		}
		m.showSearchMatch()
		return m, nil

	case key.Matches(msg, m.keys.Escape):
		s.cancel()
		return m, nil
	}

	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)
	return m, cmd
}

// handleSearchKeys handles the search bindings of the raw and log views.
func (m *Model) handleSearchKeys(msg tea.KeyMsg) (bool, tea.Cmd) {
	s, _ := m.searchTarget()
	if s == nil {
		return false, nil
	}
	switch {
	case key.Matches(msg, m.keys.Search):
		s.begin()
		return true, textinput.Blink
	case key.Matches(msg, m.keys.NextMatch):
		if s.step(1) {
			m.showSearchMatch()
		}
	case key.Matches(msg, m.keys.PrevMatch):
		if s.step(-1) {
			m.showSearchMatch()
		}
	case key.Matches(msg, m.keys.Escape) && s.active():
		s.clear()
		m.showSearchMatch()
	default:
		return false, nil
	}
	return true, nil
}

// showSearchMatch re-renders the current view and brings the selected
// match into the middle of it. Jumping to a match stops following.
func (m *Model) showSearchMatch() {
	s, _ := m.searchTarget()
	line := s.current()
	switch m.currentView {
	case ViewRaw:
		if line >= 0 {
			m.rawFollow = false
		}
		m.updateRawViewport()
		centerLine(&m.rawViewport, line)
	case ViewLogs:
		if line >= 0 {
			m.logState.follow = false
		}
		m.logState.dirty = true
		m.updateLogViewport()
		centerLine(&m.logViewport, line)
	}
}

func centerLine(vp *viewport.Model, line int) {
	if line < 0 {
		return
	}
	vp.SetYOffset(max(line-vp.Height/2, 0))
}
