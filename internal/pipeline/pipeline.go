package pipeline

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/five82/uartconsole/internal/framer"
	"github.com/five82/uartconsole/internal/metrics"
	"github.com/five82/uartconsole/internal/table"
)

const (
	// DefaultQueueSize bounds the hand-off between reader and appender.
	DefaultQueueSize = 256
	// DefaultReadSize is the buffer handed to each Read call.
	DefaultReadSize = 256
)

// Source is the byte stream being consumed. A Read that returns (0, nil)
// or a timeout error means no data arrived yet. Close must unblock a
// pending Read.
type Source = io.ReadCloser

// Sink receives framed lines one at a time.
type Sink interface {
	Append(line framer.RawLine) table.Row
}

// Options tune a Pipeline. Zero values select the defaults.
type Options struct {
	QueueSize int
	ReadSize  int
	Overflow  Overflow
	Logger    *zap.Logger
	Metrics   *metrics.Pipeline
}

// Stats counts pipeline activity since New.
type Stats struct {
	BytesRead     uint64
	LinesFramed   uint64
	LinesDropped  uint64
	LinesAppended uint64
}

// Pipeline moves bytes from a Source through a Framer into a Sink. The
// reader goroutine owns the source and the framer; the appender goroutine
// is the only caller of Sink.Append.
type Pipeline struct {
	src  Source
	fr   *framer.Framer
	sink Sink
	opts Options
	log  *zap.Logger

	closeOnce sync.Once
	closeErr  error

	bytesRead     atomic.Uint64
	linesFramed   atomic.Uint64
	linesDropped  atomic.Uint64
	linesAppended atomic.Uint64
}

// New wires a pipeline. Run starts it.
func New(src Source, fr *framer.Framer, sink Sink, opts Options) *Pipeline {
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	if opts.ReadSize <= 0 {
		opts.ReadSize = DefaultReadSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		src:  src,
		fr:   fr,
		sink: sink,
		opts: opts,
		log:  logger.Named("pipeline"),
	}
}

// Run reads until the source ends or ctx is cancelled and blocks until
// every queued line has reached the sink.
//
// When the source ends, the residual partial line is delivered and Run
// returns a *StreamTerminated. When ctx is cancelled the source is closed
// and Run returns ctx.Err().
func (p *Pipeline) Run(ctx context.Context) error {
	queue := make(chan framer.RawLine, p.opts.QueueSize)

	g, gctx := errgroup.WithContext(ctx)
	stop := context.AfterFunc(gctx, func() { _ = p.closeSource() })
	defer stop()

	p.opts.Metrics.Connected(true)
	defer p.opts.Metrics.Connected(false)

	g.Go(func() error {
		defer close(queue)
		return p.read(gctx, queue)
	})
	g.Go(func() error {
		p.drain(queue)
		return nil
	})

	err := g.Wait()
	_ = p.closeSource()

	stats := p.Stats()
	fields := []zap.Field{
		zap.Uint64("bytes", stats.BytesRead),
		zap.Uint64("lines", stats.LinesFramed),
		zap.Uint64("dropped", stats.LinesDropped),
	}
	var term *StreamTerminated
	switch {
	case errors.As(err, &term) && errors.Is(term.Cause, io.EOF):
		p.log.Info("stream closed", fields...)
	case errors.As(err, &term):
		p.log.Warn("stream failed", append(fields, zap.Error(term.Cause))...)
	default:
		p.log.Info("stream stopped", append(fields, zap.Error(err))...)
	}
	return err
}

// Stats returns a copy of the counters.
func (p *Pipeline) Stats() Stats {
	return Stats{
		BytesRead:     p.bytesRead.Load(),
		LinesFramed:   p.linesFramed.Load(),
		LinesDropped:  p.linesDropped.Load(),
		LinesAppended: p.linesAppended.Load(),
	}
}

func (p *Pipeline) read(ctx context.Context, queue chan framer.RawLine) error {
	buf := make([]byte, p.opts.ReadSize)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := p.src.Read(buf)
		if n > 0 {
			p.bytesRead.Add(uint64(n))
			p.opts.Metrics.BytesRead(n)
			for line := range p.fr.Feed(buf[:n]) {
				if !p.send(ctx, queue, line) {
					return ctx.Err()
				}
			}
		}

		if err == nil || isTimeout(err) {
			continue
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if !errors.Is(err, io.EOF) {
			p.opts.Metrics.ReadError()
		}
		if rest, ok := p.fr.Flush(); ok {
			if !p.send(ctx, queue, rest) {
				return ctx.Err()
			}
		}
		return &StreamTerminated{Cause: err}
	}
}

// send hands line to the appender according to the overflow policy. It
// reports false only when ctx ended while waiting.
func (p *Pipeline) send(ctx context.Context, queue chan framer.RawLine, line framer.RawLine) bool {
	p.linesFramed.Add(1)
	p.opts.Metrics.LineFramed()

	switch p.opts.Overflow {
	case DropNewest:
		select {
		case queue <- line:
		default:
			p.dropped()
		}
		return true

	case DropOldest:
		for {
			select {
			case queue <- line:
				return true
			default:
			}
			select {
			case <-queue:
				p.dropped()
			default:
			}
		}

	default:
		select {
		case queue <- line:
			return true
		case <-ctx.Done():
			return false
		}
	}
}

func (p *Pipeline) dropped() {
	p.linesDropped.Add(1)
	p.opts.Metrics.LineDropped()
}

func (p *Pipeline) drain(queue <-chan framer.RawLine) {
	for line := range queue {
		p.opts.Metrics.QueueDepth(len(queue))
		p.sink.Append(line)
		p.linesAppended.Add(1)
	}
	p.opts.Metrics.QueueDepth(0)
}

func (p *Pipeline) closeSource() error {
	p.closeOnce.Do(func() {
		p.closeErr = p.src.Close()
	})
	return p.closeErr
}

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}
