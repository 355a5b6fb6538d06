package table

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/five82/uartconsole/internal/columns"
	"github.com/five82/uartconsole/internal/framer"
)

// DefaultMaxRows is the capacity used when none is configured.
const DefaultMaxRows = 2000

// ErrInvalidCapacity is returned for a capacity below one row.
var ErrInvalidCapacity = errors.New("table capacity must be at least 1")

// Row is one received line and the columns extracted from it. Rows are
// never modified once stored; a re-parse replaces them.
type Row struct {
	Seq     uint64
	Time    time.Time
	Raw     string
	Columns []string
	Matched bool
}

// Recorder receives table activity. A nil Recorder records nothing.
type Recorder interface {
	RowAppended(matched bool)
	RowsEvicted(n int)
	Reparsed(rows int, took time.Duration)
	Rows(n int)
}

// Config sets up a Table.
type Config struct {
	Pattern   string
	Overrides []string
	MaxRows   int
	Clock     func() time.Time
	Recorder  Recorder
}

// Table is a bounded, ordered collection of rows. When full, appending
// evicts the oldest row. All methods are safe for concurrent use.
type Table struct {
	mu sync.RWMutex

	expr      *columns.Expression
	overrides []string
	headers   columns.HeaderSet

	// rows is a ring: rows[head] is the oldest entry. head is only
	// non-zero while the ring is full.
	rows     []Row
	head     int
	capacity int

	nextSeq  uint64
	appended uint64
	evicted  uint64

	now func() time.Time
	rec Recorder
}

// New builds an empty table. It fails with a *columns.PatternError when
// the pattern does not compile.
func New(cfg Config) (*Table, error) {
	if cfg.MaxRows == 0 {
		cfg.MaxRows = DefaultMaxRows
	}
	if cfg.MaxRows < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidCapacity, cfg.MaxRows)
	}
	expr, err := columns.Compile(cfg.Pattern)
	if err != nil {
		return nil, err
	}
	now := cfg.Clock
	if now == nil {
		now = time.Now
	}
	overrides := cloneStrings(cfg.Overrides)
	return &Table{
		expr:      expr,
		overrides: overrides,
		headers:   columns.Resolve(expr, overrides),
		capacity:  cfg.MaxRows,
		now:       now,
		rec:       cfg.Recorder,
	}, nil
}

// Append parses line with the active expression and stores it, evicting
// the oldest row when the table is at capacity.
func (t *Table) Append(line framer.RawLine) Row {
	at := line.Time
	if at.IsZero() {
		at = t.now()
	}

	t.mu.Lock()
	t.nextSeq++
	row := parse(t.expr, t.nextSeq, at, line.Text)
	evicted := t.push(row)
	t.appended++
	size := len(t.rows)
	t.mu.Unlock()

	if t.rec != nil {
		t.rec.RowAppended(row.Matched)
		t.rec.RowsEvicted(evicted)
		t.rec.Rows(size)
	}
	return row
}

// push stores row and reports how many rows were evicted. Callers hold mu.
func (t *Table) push(row Row) int {
	if len(t.rows) < t.capacity {
		t.rows = append(t.rows, row)
		return 0
	}
	t.rows[t.head] = row
	t.head = (t.head + 1) % len(t.rows)
	t.evicted++
	return 1
}

// SetExpression compiles pattern and, if it is valid, re-parses every
// retained row with it. On error the table is left exactly as it was.
// The re-parse happens under the write lock so no reader sees a mix of
// old and new columns.
func (t *Table) SetExpression(pattern string, overrides []string) (columns.HeaderSet, error) {
	expr, err := columns.Compile(pattern)
	if err != nil {
		return nil, err
	}
	overrides = cloneStrings(overrides)
	headers := columns.Resolve(expr, overrides)

	t.mu.Lock()
	start := time.Now()
	ordered := t.ordered()
	for i, row := range ordered {
		ordered[i] = parse(expr, row.Seq, row.Time, row.Raw)
	}
	t.rows = ordered
	t.head = 0
	t.expr = expr
	t.overrides = overrides
	t.headers = headers
	took := time.Since(start)
	size := len(t.rows)
	t.mu.Unlock()

	if t.rec != nil {
		t.rec.Reparsed(size, took)
	}
	return headers.Clone(), nil
}

// SetOverrides replaces the user-supplied column names. Column values do
// not depend on names, so rows are not re-parsed.
func (t *Table) SetOverrides(overrides []string) columns.HeaderSet {
	overrides = cloneStrings(overrides)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.overrides = overrides
	t.headers = columns.Resolve(t.expr, overrides)
	return t.headers.Clone()
}

// SetCapacity changes the row bound, evicting the oldest rows if the table
// holds more than max.
func (t *Table) SetCapacity(max int) error {
	if max < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidCapacity, max)
	}

	t.mu.Lock()
	ordered := t.ordered()
	dropped := 0
	if len(ordered) > max {
		dropped = len(ordered) - max
		kept := make([]Row, max)
		copy(kept, ordered[dropped:])
		ordered = kept
	}
	t.rows = ordered
	t.head = 0
	t.capacity = max
	t.evicted += uint64(dropped)
	size := len(t.rows)
	t.mu.Unlock()

	if t.rec != nil {
		t.rec.RowsEvicted(dropped)
		t.rec.Rows(size)
	}
	return nil
}

// Clear drops every row and restarts sequence numbering.
func (t *Table) Clear() {
	t.mu.Lock()
	t.rows = nil
	t.head = 0
	t.nextSeq = 0
	t.appended = 0
	t.evicted = 0
	t.mu.Unlock()

	if t.rec != nil {
		t.rec.Rows(0)
	}
}

// Len reports the number of retained rows.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rows)
}

// Capacity reports the current row bound.
func (t *Table) Capacity() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.capacity
}

// Pattern reports the source of the active expression.
func (t *Table) Pattern() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.expr.Pattern()
}

// Headers returns the current column names.
func (t *Table) Headers() columns.HeaderSet {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.headers.Clone()
}

// ordered returns the rows oldest first in a new slice. Callers hold mu.
func (t *Table) ordered() []Row {
	out := make([]Row, len(t.rows))
	n := copy(out, t.rows[t.head:])
	copy(out[n:], t.rows[:t.head])
	return out
}

func parse(expr *columns.Expression, seq uint64, at time.Time, raw string) Row {
	matched, cols := expr.Apply(raw)
	return Row{
		Seq:     seq,
		Time:    at,
		Raw:     raw,
		Columns: cols,
		Matched: matched,
	}
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
