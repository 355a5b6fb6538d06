package export

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/uartconsole/internal/framer"
	"github.com/five82/uartconsole/internal/table"
)

var base = time.Date(2024, 5, 6, 7, 8, 9, 123_000_000, time.UTC)

func build(t *testing.T, pattern string, lines ...string) table.Snapshot {
	t.Helper()
	tb, err := table.New(table.Config{Pattern: pattern, MaxRows: 100})
	require.NoError(t, err)
	for i, l := range lines {
		tb.Append(framer.RawLine{Text: l, Time: base.Add(time.Duration(i) * time.Second)})
	}
	return tb.Snapshot()
}

func TestWriteCSV_Columns(t *testing.T) {
	snap := build(t, `T=([-\d.]+),H=([-\d.]+)`, "T=25.3,H=60.2", "garbage", "T=25.4,H=60.1")

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, snap, true))

	want := "Timestamp,Col 1,Col 2\n" +
		"07:08:09.123,25.3,60.2\n" +
		"07:08:10.123,,\n" +
		"07:08:11.123,25.4,60.1\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteCSV_NoTimestamp(t *testing.T) {
	snap := build(t, `(?P<temp>\d+)`, "t 21", "t 22")

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, snap, false))
	assert.Equal(t, "temp\n21\n22\n", buf.String())
}

func TestWriteCSV_ZeroGroupsExportsRawData(t *testing.T) {
	snap := build(t, "", "hello, world", `say "hi"`)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, snap, false))
	assert.Equal(t, "Data\n\"hello, world\"\n\"say \"\"hi\"\"\"\n", buf.String())
}

func TestRecord_PadsUnmatched(t *testing.T) {
	row := table.Row{Raw: "junk", Time: base}
	assert.Equal(t, []string{"", "", ""}, Record(row, 3, false))
	assert.Equal(t, []string{"07:08:09.123", ""}, Record(row, 0, true))
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "uart_export_20240506_070809.csv", FileName(base))
}

func TestToFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")
	snap := build(t, `(\d+)`, "1", "2")

	path, err := ToFile(dir, snap, false, base)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "uart_export_20240506_070809.csv"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Col 1\n1\n2\n", string(data))
}
