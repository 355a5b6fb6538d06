package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/five82/uartconsole/internal/export"
	"github.com/five82/uartconsole/internal/framer"
	"github.com/five82/uartconsole/internal/pipeline"
	"github.com/five82/uartconsole/internal/table"
)

// ReplayOptions configure a headless run over a capture.
type ReplayOptions struct {
	Table         table.Config
	LineEnding    framer.LineEnding
	SkipEmpty     bool
	ShowTimestamp bool
	Logger        *zap.Logger
}

// ReplayResult summarises a replay.
type ReplayResult struct {
	Stats     pipeline.Stats
	Rows      int
	Unmatched int
	Evicted   uint64
}

// Replay feeds a recorded byte stream through the same framer, pipeline
// and table the live console uses, then writes the table as CSV to out.
func Replay(ctx context.Context, src io.ReadCloser, out io.Writer, opts ReplayOptions) (ReplayResult, error) {
	tb, err := table.New(opts.Table)
	if err != nil {
		return ReplayResult{}, fmt.Errorf("create table: %w", err)
	}
	fr := framer.New(opts.LineEnding, framer.WithSkipEmpty(opts.SkipEmpty))
	pl := pipeline.New(src, fr, tb, pipeline.Options{
		ReadSize: 32 * 1024,
		Logger:   opts.Logger,
	})

	// The whole capture is wanted, so EOF is the normal outcome.
	err = pl.Run(ctx)
	var term *pipeline.StreamTerminated
	if !errors.As(err, &term) || !errors.Is(term.Cause, io.EOF) {
		return ReplayResult{}, fmt.Errorf("replay: %w", err)
	}

	snap := tb.Snapshot()
	if err := export.WriteCSV(out, snap, opts.ShowTimestamp); err != nil {
		return ReplayResult{}, err
	}
	return ReplayResult{
		Stats:     pl.Stats(),
		Rows:      len(snap.Rows),
		Unmatched: snap.Unmatched(),
		Evicted:   snap.Evicted,
	}, nil
}
