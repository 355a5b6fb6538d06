package app

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/five82/uartconsole/internal/config"
	"github.com/five82/uartconsole/internal/framer"
	"github.com/five82/uartconsole/internal/metrics"
	"github.com/five82/uartconsole/internal/serialport"
	"github.com/five82/uartconsole/internal/state"
)

// fakePort delivers chunks pushed with feed and records writes.
type fakePort struct {
	data   chan []byte
	closed chan struct{}
	once   sync.Once

	mu      sync.Mutex
	written bytes.Buffer
	pending []byte
}

func newFakePort() *fakePort {
	return &fakePort{data: make(chan []byte, 64), closed: make(chan struct{})}
}

func (p *fakePort) feed(s string) { p.data <- []byte(s) }

// hangUp makes the next Read fail as if the device vanished.
func (p *fakePort) hangUp() { p.data <- nil }

func (p *fakePort) Read(b []byte) (int, error) {
	if len(p.pending) > 0 {
		n := copy(b, p.pending)
		p.pending = p.pending[n:]
		return n, nil
	}
	select {
	case chunk := <-p.data:
		if chunk == nil {
			return 0, io.ErrUnexpectedEOF
		}
		n := copy(b, chunk)
		p.pending = chunk[n:]
		return n, nil
	case <-p.closed:
		return 0, os.ErrClosed
	}
}

func (p *fakePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.written.Write(b)
}

func (p *fakePort) Close() error {
	p.once.Do(func() { close(p.closed) })
	return nil
}

func (p *fakePort) sent() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.written.String()
}

// opener hands out queued ports, or errors once they run out.
type opener struct {
	mu    sync.Mutex
	ports []*fakePort
	calls int
	fail  error
}

func (o *opener) open(cfg serialport.Config) (io.ReadWriteCloser, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls++
	if len(o.ports) == 0 {
		if o.fail != nil {
			return nil, o.fail
		}
		return nil, errors.New("no such device")
	}
	p := o.ports[0]
	o.ports = o.ports[1:]
	return p, nil
}

func (o *opener) callCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.calls
}

func testSettings() config.Settings {
	s := config.Default()
	s.Port = "/dev/ttyTEST"
	s.Pattern = `T=([-\d.]+),H=([-\d.]+)`
	s.MaxRows = 100
	s.LogFile = ""
	return s
}

func newTestSession(t *testing.T, s config.Settings, o *opener) *Session {
	t.Helper()
	sess, err := NewSession(context.Background(), SessionOptions{
		Settings:      s,
		Opener:        o.open,
		RetryInterval: 10 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	t.Cleanup(sess.Close)
	return sess
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestSession_IngestsAndSends(t *testing.T) {
	port := newFakePort()
	sess := newTestSession(t, testSettings(), &opener{ports: []*fakePort{port}})

	if err := sess.Connect(); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if st := sess.Status(); st.Phase != state.Connected || st.Message != "Connected to /dev/ttyTEST @ 115200 baud" {
		t.Fatalf("status = %+v", st)
	}

	port.feed("T=25.3,H=60.2\ngarb")
	port.feed("age\n\nT=25.4,H=60.1\n")
	waitFor(t, "three rows", func() bool { return sess.Snapshot().Total == 3 })

	snap := sess.Snapshot()
	if snap.Rows[1].Raw != "garbage" || snap.Rows[1].Matched {
		t.Fatalf("row 2 = %+v", snap.Rows[1])
	}
	if got := len(sess.Raw(-1)); got != 3 {
		t.Fatalf("raw lines = %d, want 3 (empty line skipped)", got)
	}

	if err := sess.Send("AT"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if err := sess.Send(""); err != nil {
		t.Fatalf("Send empty: %v", err)
	}
	if got := port.sent(); got != "AT\r\n" {
		t.Fatalf("sent %q, want AT\\r\\n", got)
	}

	sess.Disconnect()
	if st := sess.Status(); st.Phase != state.Disconnected || st.IsError {
		t.Fatalf("status after disconnect = %+v", st)
	}
	if sess.Snapshot().Total != 3 {
		t.Fatalf("rows should survive disconnect")
	}
	if err := sess.Send("AT"); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("Send after disconnect = %v, want ErrNotConnected", err)
	}
	if st := sess.Stats(); st.LinesAppended != 3 || st.BytesRead == 0 {
		t.Fatalf("stats = %+v", st)
	}
}

func TestSession_ConnectFailure(t *testing.T) {
	o := &opener{fail: errors.New("permission denied")}
	sess := newTestSession(t, testSettings(), o)

	err := sess.Connect()
	if err == nil || !strings.Contains(err.Error(), "permission denied") {
		t.Fatalf("Connect error = %v", err)
	}
	st := sess.Status()
	if !st.IsError || st.ConsecutiveFailures != 1 || sess.Connected() {
		t.Fatalf("status = %+v", st)
	}
}

func TestSession_StreamLossWithoutAutoReconnect(t *testing.T) {
	port := newFakePort()
	sess := newTestSession(t, testSettings(), &opener{ports: []*fakePort{port}})
	if err := sess.Connect(); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	port.feed("T=1,H=2\nT=3,H=")
	port.hangUp()

	waitFor(t, "disconnect", func() bool { return !sess.Connected() })
	st := sess.Status()
	if st.Phase != state.Disconnected || !st.IsError {
		t.Fatalf("status = %+v", st)
	}
	// The residual partial line is delivered before the stream ends.
	snap := sess.Snapshot()
	if snap.Total != 2 || snap.Rows[1].Raw != "T=3,H=" {
		t.Fatalf("rows = %+v", snap.Rows)
	}
}

func TestSession_AutoReconnect(t *testing.T) {
	first, second := newFakePort(), newFakePort()
	o := &opener{ports: []*fakePort{first, second}}
	s := testSettings()
	s.AutoReconnect = true
	s.RetainOnReconnect = false
	sess := newTestSession(t, s, o)

	if err := sess.Connect(); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	first.feed("T=1,H=1\n")
	waitFor(t, "first row", func() bool { return sess.Snapshot().Total == 1 })

	first.hangUp()
	waitFor(t, "reconnect", func() bool { return o.callCount() == 2 && sess.Status().Phase == state.Connected })

	second.feed("T=2,H=2\n")
	waitFor(t, "row after reconnect", func() bool {
		snap := sess.Snapshot()
		return snap.Total == 1 && snap.Rows[0].Raw == "T=2,H=2"
	})
	if !sess.Connected() {
		t.Fatalf("session should still be connected")
	}
}

func TestSession_SetPatternKeepsPreviousOnError(t *testing.T) {
	port := newFakePort()
	sess := newTestSession(t, testSettings(), &opener{ports: []*fakePort{port}})
	if err := sess.Connect(); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	port.feed("T=25.3,H=60.2\n")
	waitFor(t, "row", func() bool { return sess.Snapshot().Total == 1 })

	if _, err := sess.SetPattern(`T=(`); err == nil {
		t.Fatalf("SetPattern accepted an invalid pattern")
	}
	if got := sess.Settings().Pattern; got != testSettings().Pattern {
		t.Fatalf("pattern = %q, want previous", got)
	}

	headers, err := sess.SetPattern(`T=(?P<temp>[\d.]+)`)
	if err != nil {
		t.Fatalf("SetPattern: %v", err)
	}
	if len(headers) != 1 || headers[0] != "temp" {
		t.Fatalf("headers = %v", headers)
	}
	if cols := sess.Snapshot().Rows[0].Columns; len(cols) != 1 || cols[0] != "25.3" {
		t.Fatalf("columns after re-parse = %v", cols)
	}

	names := sess.SetColumnNames("ignored")
	if names[0] != "temp" {
		t.Fatalf("named group should win over override, got %v", names)
	}
}

func TestSession_SetMaxRowsBounds(t *testing.T) {
	sess := newTestSession(t, testSettings(), &opener{})
	if err := sess.SetMaxRows(10); err == nil {
		t.Fatalf("SetMaxRows(10) should be rejected")
	}
	if err := sess.SetMaxRows(500); err != nil {
		t.Fatalf("SetMaxRows(500): %v", err)
	}
	if sess.Snapshot().Capacity != 500 || sess.Settings().MaxRows != 500 {
		t.Fatalf("capacity not applied")
	}
}

func TestSession_Export(t *testing.T) {
	dir := t.TempDir()
	s := testSettings()
	s.ExportDir = dir
	s.ShowTimestamp = false
	port := newFakePort()

	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.Local)
	sess, err := NewSession(context.Background(), SessionOptions{
		Settings: s,
		Opener:   (&opener{ports: []*fakePort{port}}).open,
		Clock:    func() time.Time { return at },
	})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	defer sess.Close()
	if err := sess.Connect(); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	port.feed("T=1,H=2\n")
	waitFor(t, "row", func() bool { return sess.Snapshot().Total == 1 })

	path, err := sess.Export()
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if want := filepath.Join(dir, "uart_export_20240102_030405.csv"); path != want {
		t.Fatalf("path = %q, want %q", path, want)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "Col 1,Col 2\n1,2\n" {
		t.Fatalf("export = %q", data)
	}
	if msg := sess.Status().Message; msg != "Exported to "+path {
		t.Fatalf("status message = %q", msg)
	}
}

func TestSession_ApplySettings(t *testing.T) {
	first, second := newFakePort(), newFakePort()
	o := &opener{ports: []*fakePort{first, second}}
	sess := newTestSession(t, testSettings(), o)
	if err := sess.Connect(); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	first.feed("T=1,H=2\n")
	waitFor(t, "row", func() bool { return sess.Snapshot().Total == 1 })

	next := sess.Settings()
	next.ColumnNames = "temp, hum"
	next.MaxRows = 300
	if err := sess.ApplySettings(next); err != nil {
		t.Fatalf("ApplySettings: %v", err)
	}
	if o.callCount() != 1 {
		t.Fatalf("display-only changes must not reconnect")
	}
	if h := sess.Snapshot().Headers; h[0] != "temp" || h[1] != "hum" {
		t.Fatalf("headers = %v", h)
	}

	next.BaudRate = 9600
	next.Pattern = `broken(`
	err := sess.ApplySettings(next)
	if err == nil {
		t.Fatalf("ApplySettings should report the bad pattern")
	}
	if o.callCount() != 2 || sess.Status().BaudRate != 9600 {
		t.Fatalf("baud change should reconnect: calls=%d status=%+v", o.callCount(), sess.Status())
	}
	if got := sess.Settings().Pattern; got != testSettings().Pattern {
		t.Fatalf("pattern = %q, want previous pattern kept", got)
	}
}

func TestReplay(t *testing.T) {
	capture := "T=25.3,H=60.2\r\nnoise\r\nT=25.4,H=60.1\r\npartial"
	var out bytes.Buffer

	res, err := Replay(context.Background(), io.NopCloser(strings.NewReader(capture)), &out, ReplayOptions{
		Table:      testSettings().TableConfig(),
		LineEnding: framer.CRLF,
	})
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if res.Rows != 4 || res.Unmatched != 2 {
		t.Fatalf("result = %+v", res)
	}
	want := "Col 1,Col 2\n25.3,60.2\n,\n25.4,60.1\n,\n"
	if out.String() != want {
		t.Fatalf("csv = %q, want %q", out.String(), want)
	}
}

func TestSession_RawReadsRetainedRows(t *testing.T) {
	sess := newTestSession(t, testSettings(), &opener{})
	at := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	for _, text := range []string{"T=1,H=2", "noise", "T=3,H=4"} {
		sess.table.Append(framer.RawLine{Text: text, Time: at})
	}

	texts := func(lines []framer.RawLine) string {
		var out []string
		for _, l := range lines {
			out = append(out, l.Text)
		}
		return strings.Join(out, "|")
	}
	if got := texts(sess.Raw(-1)); got != "T=1,H=2|noise|T=3,H=4" {
		t.Fatalf("Raw(-1) = %q", got)
	}
	if got := sess.Raw(2); texts(got) != "noise|T=3,H=4" || !got[0].Time.Equal(at) {
		t.Fatalf("Raw(2) = %+v", got)
	}

	for i := 0; i < 150; i++ {
		sess.table.Append(framer.RawLine{Text: "x"})
	}
	if err := sess.SetMaxRows(100); err != nil {
		t.Fatalf("SetMaxRows: %v", err)
	}
	if got := len(sess.Raw(-1)); got != 100 {
		t.Fatalf("raw lines = %d, want the table capacity", got)
	}
	sess.Clear()
	if len(sess.Raw(-1)) != 0 {
		t.Fatalf("Clear left raw lines behind")
	}
}

func TestSession_ApplySettingsBadPatternStillRenames(t *testing.T) {
	s := testSettings()
	s.Pattern = `a=(\d+)`
	s.ColumnNames = "old"
	sess := newTestSession(t, s, &opener{})
	sess.table.Append(framer.RawLine{Text: "a=1"})

	next := sess.Settings()
	next.Pattern = `a=(\d+`
	next.ColumnNames = "new"
	if err := sess.ApplySettings(next); err == nil {
		t.Fatalf("ApplySettings should report the bad pattern")
	}

	got := sess.Settings()
	if got.Pattern != `a=(\d+)` {
		t.Fatalf("pattern = %q, want previous pattern kept", got.Pattern)
	}
	headers := sess.Snapshot().Headers
	if got.ColumnNames != "new" || len(headers) != 1 || headers[0] != "new" {
		t.Fatalf("settings names %q, table headers %v; want both new", got.ColumnNames, headers)
	}
}

func TestSession_ApplySettingsNamesOnlyDoesNotReparse(t *testing.T) {
	reg, err := metrics.NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	sess, err := NewSession(context.Background(), SessionOptions{
		Settings: testSettings(),
		Opener:   (&opener{}).open,
		Metrics:  reg,
	})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	defer sess.Close()
	sess.table.Append(framer.RawLine{Text: "T=1,H=2"})

	next := sess.Settings()
	next.ColumnNames = "temp,hum"
	if err := sess.ApplySettings(next); err != nil {
		t.Fatalf("ApplySettings: %v", err)
	}
	if h := sess.Snapshot().Headers; h[0] != "temp" || h[1] != "hum" {
		t.Fatalf("headers = %v", h)
	}
	if n := reparseCount(t, reg); n != 0 {
		t.Fatalf("renaming columns re-parsed the table %d times", n)
	}

	next.Pattern = `T=([-\d.]+)`
	if err := sess.ApplySettings(next); err != nil {
		t.Fatalf("ApplySettings: %v", err)
	}
	if n := reparseCount(t, reg); n != 1 {
		t.Fatalf("pattern change re-parsed %d times, want 1", n)
	}
}

func reparseCount(t *testing.T, reg *metrics.Registry) uint64 {
	t.Helper()
	families, err := reg.Gatherer().Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	for _, mf := range families {
		if strings.HasSuffix(mf.GetName(), "table_reparse_duration_seconds") {
			return mf.GetMetric()[0].GetHistogram().GetSampleCount()
		}
	}
	return 0
}
