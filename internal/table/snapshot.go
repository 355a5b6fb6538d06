package table

import "github.com/five82/uartconsole/internal/columns"

// Snapshot is a consistent, read-only copy of the table. Row column slices
// are shared with the table and must not be modified.
type Snapshot struct {
	Pattern   string
	Headers   columns.HeaderSet
	NumGroups int
	Rows      []Row

	// Offset is the index of Rows[0] among all retained rows; Total is how
	// many rows the table held when the snapshot was taken.
	Offset int
	Total  int

	Capacity int
	Appended uint64
	Evicted  uint64
}

// Snapshot copies every retained row, oldest first.
func (t *Table) Snapshot() Snapshot {
	return t.Window(0, -1)
}

// Window copies up to limit rows starting offset rows after the oldest.
// A negative limit means all remaining rows. Out-of-range offsets are
// clamped, so the result is always a valid (possibly empty) view.
func (t *Table) Window(offset, limit int) Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.window(offset, limit)
}

// Tail copies the newest limit rows, oldest first. A negative limit means
// every row.
func (t *Table) Tail(limit int) Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if limit < 0 {
		return t.window(0, -1)
	}
	return t.window(len(t.rows)-limit, limit)
}

func (t *Table) window(offset, limit int) Snapshot {
	total := len(t.rows)
	if offset < 0 {
		offset = 0
	}
	if offset > total {
		offset = total
	}
	n := total - offset
	if limit >= 0 && limit < n {
		n = limit
	}

	rows := make([]Row, n)
	for i := range rows {
		rows[i] = t.rows[(t.head+offset+i)%total]
	}

	return Snapshot{
		Pattern:   t.expr.Pattern(),
		Headers:   t.headers.Clone(),
		NumGroups: t.expr.NumGroups(),
		Rows:      rows,
		Offset:    offset,
		Total:     total,
		Capacity:  t.capacity,
		Appended:  t.appended,
		Evicted:   t.evicted,
	}
}

// Unmatched counts rows in the snapshot that did not match the pattern.
func (s Snapshot) Unmatched() int {
	n := 0
	for _, r := range s.Rows {
		if !r.Matched {
			n++
		}
	}
	return n
}
