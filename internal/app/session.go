package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/five82/uartconsole/internal/columns"
	"github.com/five82/uartconsole/internal/config"
	"github.com/five82/uartconsole/internal/export"
	"github.com/five82/uartconsole/internal/framer"
	"github.com/five82/uartconsole/internal/metrics"
	"github.com/five82/uartconsole/internal/pipeline"
	"github.com/five82/uartconsole/internal/serialport"
	"github.com/five82/uartconsole/internal/state"
	"github.com/five82/uartconsole/internal/table"
)

// ErrNotConnected is returned by Send while no link is open.
var ErrNotConnected = errors.New("not connected")

// Opener opens the serial link described by cfg.
type Opener func(cfg serialport.Config) (io.ReadWriteCloser, error)

// OpenSerial is the Opener backed by real serial devices.
func OpenSerial(cfg serialport.Config) (io.ReadWriteCloser, error) {
	return serialport.Open(cfg)
}

// SessionOptions configure a Session.
type SessionOptions struct {
	Settings config.Settings
	Opener   Opener // nil uses OpenSerial
	Logger   *zap.Logger
	Metrics  *metrics.Registry // nil disables metrics
	Clock    func() time.Time

	// RetryInterval is the first auto-reconnect delay; zero uses one second.
	RetryInterval time.Duration
}

// Session owns the row table and the serial link, and is the single entry
// point the UI and the settings watcher use to change either.
type Session struct {
	ctx   context.Context
	open  Opener
	log   *zap.Logger
	pm    *metrics.Pipeline
	now   func() time.Time
	table *table.Table
	store *state.Store

	retryBase time.Duration

	mu       sync.Mutex
	settings config.Settings
	link     *link
	totals   pipeline.Stats
}

// link is one connect request. It survives stream restarts made by
// auto-reconnect.
type link struct {
	cancel context.CancelFunc
	done   chan struct{}
	cfg    serialport.Config

	tx *pipeline.Transmitter
	pl *pipeline.Pipeline
}

// NewSession builds the table from the settings. ctx bounds every link
// the session opens.
func NewSession(ctx context.Context, opts SessionOptions) (*Session, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	open := opts.Opener
	if open == nil {
		open = OpenSerial
	}
	retry := opts.RetryInterval
	if retry <= 0 {
		retry = defaultRetryInterval
	}

	tcfg := opts.Settings.TableConfig()
	tcfg.Clock = now
	var pm *metrics.Pipeline
	if opts.Metrics != nil {
		tcfg.Recorder = opts.Metrics.Table
		pm = opts.Metrics.Pipeline
	}
	tb, err := table.New(tcfg)
	if err != nil {
		return nil, fmt.Errorf("create table: %w", err)
	}

	return &Session{
		ctx:       ctx,
		open:      open,
		log:       logger.Named("session"),
		pm:        pm,
		now:       now,
		table:     tb,
		store:     state.NewStore(),
		retryBase: retry,
		settings:  opts.Settings,
	}, nil
}

// Connect opens the configured port and starts ingesting. It is a no-op
// while a link is already open.
func (s *Session) Connect() error {
	s.mu.Lock()
	if s.link != nil {
		s.mu.Unlock()
		return nil
	}
	settings := s.settings
	s.mu.Unlock()

	cfg := settings.Serial()
	s.store.Connecting(cfg.Port, cfg.BaudRate, false)
	port, err := s.open(cfg)
	if err != nil {
		err = fmt.Errorf("connect %s: %w", cfg.Port, err)
		s.log.Warn("connect failed", zap.String("port", cfg.Port), zap.Error(err))
		s.store.Disconnected(err)
		return err
	}

	ctx, cancel := context.WithCancel(s.ctx)
	l := &link{cancel: cancel, done: make(chan struct{}), cfg: cfg}

	s.mu.Lock()
	if s.link != nil {
		// Lost a race with another Connect.
		s.mu.Unlock()
		cancel()
		_ = port.Close()
		return nil
	}
	s.link = l
	s.mu.Unlock()

	s.begin(l, port)
	go s.supervise(ctx, l, port)
	return nil
}

// begin marks a freshly opened port as the live connection.
func (s *Session) begin(l *link, port io.ReadWriteCloser) {
	s.mu.Lock()
	settings := s.settings
	s.mu.Unlock()

	if !settings.RetainOnReconnect {
		s.Clear()
	}
	tx := pipeline.NewTransmitter(port, settings.TxLineEnding)
	s.mu.Lock()
	l.tx = tx
	s.mu.Unlock()

	id := s.store.Connected(l.cfg.Port, l.cfg.BaudRate)
	s.log.Info("connected",
		zap.String("session", id.String()),
		zap.String("port", l.cfg.Port),
		zap.Int("baud", l.cfg.BaudRate),
		zap.Stringer("rx", settings.RxLineEnding))
}

// Disconnect closes the link and waits for the reader to stop. Rows are
// kept.
func (s *Session) Disconnect() {
	s.mu.Lock()
	l := s.link
	s.link = nil
	s.mu.Unlock()
	if l == nil {
		return
	}
	l.cancel()
	<-l.done
}

// Close disconnects. The session must not be used afterwards.
func (s *Session) Close() {
	s.Disconnect()
}

// supervise runs streams on l until it is cancelled, reopening the port
// when auto-reconnect is on.
func (s *Session) supervise(ctx context.Context, l *link, port io.ReadWriteCloser) {
	defer close(l.done)
	defer func() {
		s.mu.Lock()
		if s.link == l {
			s.link = nil
		}
		s.mu.Unlock()
	}()

	for {
		err := s.stream(ctx, l, port)
		if ctx.Err() != nil {
			s.store.Disconnected(nil)
			return
		}
		s.store.Disconnected(err)

		s.mu.Lock()
		retry := s.settings.AutoReconnect
		s.mu.Unlock()
		if !retry {
			return
		}
		if port = s.redial(ctx, l.cfg); port == nil {
			s.store.Disconnected(nil)
			return
		}
		s.begin(l, port)
	}
}

// stream pumps one open port into the table until it ends.
func (s *Session) stream(ctx context.Context, l *link, port io.ReadWriteCloser) error {
	s.mu.Lock()
	settings := s.settings
	s.mu.Unlock()

	logger := s.log.With(
		zap.String("session", s.store.Snapshot().Session.String()),
		zap.String("port", l.cfg.Port))

	fr := framer.New(settings.RxLineEnding,
		framer.WithClock(s.now),
		framer.WithSkipEmpty(settings.SkipEmptyLines))
	pl := pipeline.New(port, fr, s.table, pipeline.Options{
		QueueSize: settings.QueueSize,
		Overflow:  settings.Overflow,
		Logger:    logger,
		Metrics:   s.pm,
	})

	s.mu.Lock()
	l.pl = pl
	s.mu.Unlock()

	err := pl.Run(ctx)

	s.mu.Lock()
	l.pl, l.tx = nil, nil
	st := pl.Stats()
	s.totals.BytesRead += st.BytesRead
	s.totals.LinesFramed += st.LinesFramed
	s.totals.LinesDropped += st.LinesDropped
	s.totals.LinesAppended += st.LinesAppended
	s.mu.Unlock()

	if anomalies := fr.Anomalies(); anomalies > 0 {
		logger.Warn("replaced invalid UTF-8", zap.Uint64("sequences", anomalies))
	}
	return err
}

// Send transmits text followed by the configured TX line ending. Empty
// text is ignored.
func (s *Session) Send(text string) error {
	if text == "" {
		return nil
	}
	s.mu.Lock()
	var tx *pipeline.Transmitter
	if s.link != nil {
		tx = s.link.tx
	}
	s.mu.Unlock()
	if tx == nil {
		return ErrNotConnected
	}
	if err := tx.Send(text); err != nil {
		s.store.Notify("Error: "+err.Error(), true)
		return err
	}
	return nil
}

// SetPattern replaces the extraction pattern and re-parses retained rows.
// On error nothing changes and the previous pattern stays active.
func (s *Session) SetPattern(pattern string) (columns.HeaderSet, error) {
	s.mu.Lock()
	overrides := s.settings.OverrideNames()
	s.mu.Unlock()

	headers, err := s.table.SetExpression(pattern, overrides)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.settings.Pattern = pattern
	s.mu.Unlock()
	s.log.Info("pattern changed", zap.String("pattern", pattern), zap.Int("columns", len(headers)))
	return headers, nil
}

// SetColumnNames applies a comma-separated list of column names.
func (s *Session) SetColumnNames(names string) columns.HeaderSet {
	s.mu.Lock()
	s.settings.ColumnNames = names
	overrides := s.settings.OverrideNames()
	s.mu.Unlock()
	return s.table.SetOverrides(overrides)
}

// SetMaxRows changes the table capacity within the configured bounds.
func (s *Session) SetMaxRows(n int) error {
	if n < config.MinRows || n > config.MaxRows {
		return fmt.Errorf("max rows must be %d-%d, got %d", config.MinRows, config.MaxRows, n)
	}
	if err := s.table.SetCapacity(n); err != nil {
		return err
	}
	s.mu.Lock()
	s.settings.MaxRows = n
	s.mu.Unlock()
	return nil
}

// Clear drops all rows.
func (s *Session) Clear() {
	s.table.Clear()
}

// Export writes the table to a timestamped CSV file in the export
// directory and reports the path on the status line.
func (s *Session) Export() (string, error) {
	s.mu.Lock()
	settings := s.settings
	s.mu.Unlock()

	path, err := export.ToFile(settings.ExportPath(), s.table.Snapshot(), settings.ShowTimestamp, s.now())
	if err != nil {
		s.log.Warn("export failed", zap.Error(err))
		s.store.Notify("Export failed: "+err.Error(), true)
		return "", err
	}
	s.log.Info("exported", zap.String("path", path), zap.Int("rows", s.table.Len()))
	s.store.Notify("Exported to "+path, false)
	return path, nil
}

// ApplySettings adopts a reloaded settings record. Pattern, names and
// capacity are applied in place; a changed link or RX line ending
// reopens an active connection.
func (s *Session) ApplySettings(next config.Settings) error {
	s.mu.Lock()
	prev := s.settings
	connected := s.link != nil
	var tx *pipeline.Transmitter
	if s.link != nil {
		tx = s.link.tx
	}
	s.mu.Unlock()

	var errs []error
	switch {
	case next.Pattern != prev.Pattern:
		if _, err := s.table.SetExpression(next.Pattern, next.OverrideNames()); err != nil {
			// The old pattern stays; the new names still apply to it.
			errs = append(errs, err)
			next.Pattern = prev.Pattern
			s.table.SetOverrides(next.OverrideNames())
		}
	case next.ColumnNames != prev.ColumnNames:
		s.table.SetOverrides(next.OverrideNames())
	}
	if next.MaxRows != prev.MaxRows {
		if err := s.table.SetCapacity(next.MaxRows); err != nil {
			errs = append(errs, err)
			next.MaxRows = prev.MaxRows
		}
	}
	if tx != nil && next.TxLineEnding != prev.TxLineEnding {
		tx.SetEnding(next.TxLineEnding)
	}

	s.mu.Lock()
	s.settings = next
	s.mu.Unlock()

	relink := !prev.SameLink(next) ||
		prev.RxLineEnding != next.RxLineEnding ||
		prev.SkipEmptyLines != next.SkipEmptyLines
	if connected && relink {
		s.log.Info("link settings changed, reconnecting", zap.String("port", next.Port), zap.Int("baud", next.BaudRate))
		s.Disconnect()
		if err := s.Connect(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Connected reports whether a link is open or being re-established.
func (s *Session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.link != nil
}

// Window returns part of the table, see table.Table.Window.
func (s *Session) Window(offset, limit int) table.Snapshot {
	return s.table.Window(offset, limit)
}

// Snapshot returns the whole table.
func (s *Session) Snapshot() table.Snapshot {
	return s.table.Snapshot()
}

// Raw returns up to limit of the most recent received lines, read from
// the retained rows.
func (s *Session) Raw(limit int) []framer.RawLine {
	rows := s.table.Tail(limit).Rows
	lines := make([]framer.RawLine, len(rows))
	for i, r := range rows {
		lines[i] = framer.RawLine{Text: r.Raw, Time: r.Time}
	}
	return lines
}

// Status returns the link status.
func (s *Session) Status() state.Snapshot {
	return s.store.Snapshot()
}

// Stats sums the counters of every stream this session has run.
func (s *Session) Stats() pipeline.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := s.totals
	if s.link != nil && s.link.pl != nil {
		cur := s.link.pl.Stats()
		total.BytesRead += cur.BytesRead
		total.LinesFramed += cur.LinesFramed
		total.LinesDropped += cur.LinesDropped
		total.LinesAppended += cur.LinesAppended
	}
	return total
}

// Settings returns a copy of the active settings.
func (s *Session) Settings() config.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// SetPort changes the port and baud rate used by the next Connect.
func (s *Session) SetPort(port string, baud int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p := strings.TrimSpace(port); p != "" {
		s.settings.Port = p
	}
	if baud > 0 {
		s.settings.BaudRate = baud
	}
}
