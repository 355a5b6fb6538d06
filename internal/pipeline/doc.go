// Package pipeline connects a serial byte stream to the row table.
//
// A reader goroutine owns the source and the line framer and pushes
// framed lines into a bounded queue; an appender goroutine drains the
// queue into the sink. What happens when the queue is full is chosen by
// Options.Overflow.
//
// Run returns exactly once: with a *StreamTerminated when the source ends
// or fails, or with the context error when cancelled. In both cases every
// line already queued has been appended first.
package pipeline
