package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/five82/uartconsole/internal/columns"
	"github.com/five82/uartconsole/internal/framer"
	"github.com/five82/uartconsole/internal/pipeline"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestLoad_MissingConfigFallsBackToDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	s, err := Load(filepath.Join(home, "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !reflect.DeepEqual(s, Default()) {
		t.Fatalf("Load = %+v, want defaults %+v", s, Default())
	}
	if s.MaxRows != 2000 || s.BaudRate != 115200 || s.RxLineEnding != framer.LF || s.TxLineEnding != framer.CRLF {
		t.Fatalf("unexpected defaults: %+v", s)
	}
	if !s.ShowTimestamp || !s.SkipEmptyLines {
		t.Fatalf("timestamps and empty-line skipping should default on")
	}
}

func TestLoad_ParsesAndTrimsConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, `
port = "  /dev/ttyACM0  "
baud_rate = 9600
parity = " Even "
pattern = 'T=(?P<temp>[-\d.]+),H=([-\d.]+)'
column_names = "ignored, humidity"
max_rows = 500
rx_line_ending = "crlf"
tx_line_ending = "none"
overflow = "drop-oldest"
`)

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if s.Port != "/dev/ttyACM0" {
		t.Fatalf("Port = %q, want trimmed", s.Port)
	}
	if s.Parity != "even" {
		t.Fatalf("Parity = %q, want even", s.Parity)
	}
	if s.RxLineEnding != framer.CRLF || s.TxLineEnding != framer.None {
		t.Fatalf("line endings = %v/%v", s.RxLineEnding, s.TxLineEnding)
	}
	if s.Overflow != pipeline.DropOldest {
		t.Fatalf("Overflow = %v, want drop-oldest", s.Overflow)
	}
	if s.DataBits != 8 || s.StopBits != 1 || !s.ShowTimestamp {
		t.Fatalf("missing keys should keep defaults: %+v", s)
	}

	cfg := s.TableConfig()
	if cfg.MaxRows != 500 || cfg.Pattern != s.Pattern {
		t.Fatalf("TableConfig = %+v", cfg)
	}
	if got := s.OverrideNames(); !reflect.DeepEqual(got, []string{"ignored", "humidity"}) {
		t.Fatalf("OverrideNames = %q", got)
	}
}

func TestLoad_InvalidTOMLFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, `port = [`)

	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "parse config") {
		t.Fatalf("Load error = %v, want parse config error", err)
	}
}

func TestLoad_UnknownLineEndingFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, `rx_line_ending = "lfcr"`)

	if _, err := Load(path); err == nil {
		t.Fatalf("Load returned nil error for unknown line ending")
	}
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	s := Default()
	s.BaudRate = 0
	s.DataBits = 9
	s.StopBits = 3
	s.Parity = "mark"
	s.FlowControl = "xon"
	s.MaxRows = 50
	s.Pattern = `T=(\d+`
	s.QueueSize = 0
	s.LogLevel = "chatty"
	s.MetricsAddr = "no-port"

	err := s.Validate()
	if err == nil {
		t.Fatalf("Validate returned nil error")
	}
	for _, want := range []string{
		"baud_rate", "data_bits", "stop_bits", "parity", "flow_control",
		"max_rows", "pattern", "queue_size", "log_level", "metrics_addr",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Validate error missing %q: %v", want, err)
		}
	}
	if !errors.Is(err, columns.ErrInvalidPattern) {
		t.Fatalf("Validate error should wrap the pattern error")
	}
}

func TestValidate_MaxRowsBounds(t *testing.T) {
	tests := []struct {
		rows int
		ok   bool
	}{
		{MinRows - 1, false},
		{MinRows, true},
		{MaxRows, true},
		{MaxRows + 1, false},
	}
	for _, tt := range tests {
		s := Default()
		s.MaxRows = tt.rows
		if err := s.Validate(); (err == nil) != tt.ok {
			t.Errorf("max_rows=%d: Validate error = %v, want ok=%v", tt.rows, err, tt.ok)
		}
	}
}

func TestSave_RoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	s := Default()
	s.Port = "COM4"
	s.Pattern = `V=(\d+)`
	s.RxLineEnding = framer.CR
	s.Overflow = pipeline.DropNewest

	if err := Save(path, s); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(data), "rx_line_ending = 'cr'") && !strings.Contains(string(data), `rx_line_ending = "cr"`) {
		t.Fatalf("saved file should carry the line ending name:\n%s", data)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !reflect.DeepEqual(loaded, s) {
		t.Fatalf("Load = %+v, want %+v", loaded, s)
	}
}

func TestSameLink(t *testing.T) {
	a := Default()
	a.Port = "/dev/ttyUSB0"
	b := a
	b.Pattern = "changed"
	if !a.SameLink(b) {
		t.Fatalf("pattern changes should keep the link")
	}
	b.BaudRate = 9600
	if a.SameLink(b) {
		t.Fatalf("baud changes should require a reconnect")
	}
}

func TestLogPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	s := Default()
	if got := s.LogPath(); !strings.HasPrefix(got, home) || !strings.HasSuffix(got, "uartconsole.log") {
		t.Fatalf("LogPath = %q, want it under HOME", got)
	}
	s.LogFile = ""
	if got := s.LogPath(); got != "" {
		t.Fatalf("LogPath = %q, want empty", got)
	}
}

func TestExpandPath_ExpandsTildeAndReturnsAbs(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got, err := expandPath("~/a/b")
	if err != nil {
		t.Fatalf("expandPath returned error: %v", err)
	}
	if want := filepath.Join(home, "a/b"); got != want {
		t.Fatalf("expandPath = %q, want %q", got, want)
	}
}

func TestExpandPath_EmptyErrors(t *testing.T) {
	if _, err := expandPath("   "); err == nil {
		t.Fatalf("expandPath returned nil error, want error")
	}
}

func TestWatch_DeliversValidChanges(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	writeFile(t, path, `max_rows = 200`)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan Settings, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, nil, func(s Settings) { got <- s })
	}()

	// Give the watcher time to register before editing.
	time.Sleep(100 * time.Millisecond)
	writeFile(t, path, `max_rows = 10`)
	time.Sleep(2 * reloadDelay)
	writeFile(t, path, `max_rows = 300`)

	select {
	case s := <-got:
		if s.MaxRows != 300 {
			t.Fatalf("MaxRows = %d, want 300 (invalid edit must be skipped)", s.MaxRows)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("no reload delivered")
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Watch returned error: %v", err)
	}
}

func TestWatch_IgnoresFileMovedAway(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	writeFile(t, path, `max_rows = 200`)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan Settings, 4)
	go func() { _ = Watch(ctx, path, nil, func(s Settings) { got <- s }) }()
	time.Sleep(100 * time.Millisecond)

	if err := os.Rename(path, filepath.Join(dir, "config.toml.bak")); err != nil {
		t.Fatalf("Rename: %v", err)
	}
	select {
	case s := <-got:
		t.Fatalf("moving the file away delivered %+v", s)
	case <-time.After(4 * reloadDelay):
	}

	writeFile(t, path, `max_rows = 400`)
	select {
	case s := <-got:
		if s.MaxRows != 400 {
			t.Fatalf("MaxRows = %d, want 400", s.MaxRows)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("watcher stopped after the file was moved")
	}
}
