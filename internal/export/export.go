// Package export writes table snapshots as CSV.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/five82/uartconsole/internal/table"
)

const (
	// TimestampLayout formats row times in exports and the table view.
	TimestampLayout = "15:04:05.000"

	// DataColumn heads the single column of a pattern without groups.
	DataColumn = "Data"

	timestampHeader = "Timestamp"
	rawHeader       = DataColumn
	fileNameLayout  = "uart_export_20060102_150405.csv"
)

// Header returns the CSV header row for snap. An expression without
// groups exports the raw line as a single Data column.
func Header(snap table.Snapshot, showTimestamp bool) []string {
	var out []string
	if showTimestamp {
		out = append(out, timestampHeader)
	}
	if snap.NumGroups == 0 {
		return append(out, rawHeader)
	}
	return append(out, snap.Headers...)
}

// Record returns the CSV cells for one row. Unmatched rows are padded
// with empty cells so every record has the header's width.
func Record(row table.Row, numGroups int, showTimestamp bool) []string {
	width := numGroups
	if width == 0 {
		width = 1
	}
	out := make([]string, 0, width+1)
	if showTimestamp {
		out = append(out, row.Time.Format(TimestampLayout))
	}
	switch {
	case numGroups == 0 && row.Matched:
		out = append(out, row.Raw)
	case numGroups == 0:
		out = append(out, "")
	default:
		for i := 0; i < numGroups; i++ {
			cell := ""
			if i < len(row.Columns) {
				cell = row.Columns[i]
			}
			out = append(out, cell)
		}
	}
	return out
}

// WriteCSV writes the header and every row of snap, oldest first.
func WriteCSV(w io.Writer, snap table.Snapshot, showTimestamp bool) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header(snap, showTimestamp)); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range snap.Rows {
		if err := cw.Write(Record(row, snap.NumGroups, showTimestamp)); err != nil {
			return fmt.Errorf("write csv row %d: %w", row.Seq, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// FileName returns the export file name for the given time.
func FileName(now time.Time) string {
	return now.Format(fileNameLayout)
}

// ToFile exports snap into dir under a timestamped name and returns the
// path written.
func ToFile(dir string, snap table.Snapshot, showTimestamp bool, now time.Time) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	path := filepath.Join(dir, FileName(now))

	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create export file: %w", err)
	}
	if err := WriteCSV(file, snap, showTimestamp); err != nil {
		_ = file.Close()
		return "", err
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("close export file: %w", err)
	}
	return path, nil
}
