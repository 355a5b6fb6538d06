package framer

import (
	"bytes"
	"iter"
	"strings"
	"time"
	"unicode/utf8"
)

// replacementText stands in for bytes that are not valid UTF-8.
const replacementText = "�"

// RawLine is one completed line of received text.
type RawLine struct {
	Text string
	Time time.Time
}

// Framer cuts a byte stream into lines. It keeps the unterminated tail
// between calls, so a delimiter split across two reads is still found.
// A Framer is not safe for concurrent use; the pipeline reader owns it.
type Framer struct {
	ending    LineEnding
	buf       []byte
	now       func() time.Time
	skipEmpty bool
	anomalies uint64
}

// Option configures a Framer.
type Option func(*Framer)

// WithClock overrides the clock used to stamp completed lines.
func WithClock(now func() time.Time) Option {
	return func(f *Framer) {
		if now != nil {
			f.now = now
		}
	}
}

// WithSkipEmpty drops lines that are empty once the delimiter is removed.
func WithSkipEmpty(skip bool) Option {
	return func(f *Framer) { f.skipEmpty = skip }
}

// New returns a Framer for the given line ending.
func New(ending LineEnding, opts ...Option) *Framer {
	f := &Framer{
		ending: ending,
		buf:    make([]byte, 0, 4096),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Ending reports the configured line ending.
func (f *Framer) Ending() LineEnding { return f.ending }

// Pending reports how many bytes are buffered without a terminator.
func (f *Framer) Pending() int { return len(f.buf) }

// Anomalies counts lines that needed invalid UTF-8 replaced.
func (f *Framer) Anomalies() uint64 { return f.anomalies }

// Feed buffers p and returns the lines it completes. Lines are cut as the
// sequence is ranged over; any the caller does not consume stay buffered
// and come out of the next Feed or Flush.
//
// With the None ending every Feed that receives bytes yields everything
// buffered as one line, except a trailing partial UTF-8 sequence which is
// held until the rest of the character arrives.
func (f *Framer) Feed(p []byte) iter.Seq[RawLine] {
	f.buf = append(f.buf, p...)
	fed := len(p) > 0

	return func(yield func(RawLine) bool) {
		if f.ending == None {
			if !fed {
				return
			}
			n := completePrefix(f.buf)
			if n == 0 {
				return
			}
			yield(f.take(n, n))
			return
		}
		for {
			line, ok := f.next()
			if !ok {
				return
			}
			if f.skipEmpty && line.Text == "" {
				continue
			}
			if !yield(line) {
				return
			}
		}
	}
}

// Flush returns whatever is buffered as a final line, for use when the
// stream closes. It reports false when nothing was pending.
func (f *Framer) Flush() (RawLine, bool) {
	if len(f.buf) == 0 {
		return RawLine{}, false
	}
	n := len(f.buf)
	if f.ending == CRLF && f.buf[n-1] == '\r' {
		n--
	}
	line := f.take(n, len(f.buf))
	if f.skipEmpty && line.Text == "" {
		return RawLine{}, false
	}
	return line, true
}

// Reset discards any buffered partial line.
func (f *Framer) Reset() {
	f.buf = f.buf[:0]
}

// next cuts one delimited line off the front of the buffer.
func (f *Framer) next() (RawLine, bool) {
	switch f.ending {
	case CR:
		idx := bytes.IndexByte(f.buf, '\r')
		if idx < 0 {
			return RawLine{}, false
		}
		return f.take(idx, idx+1), true
	case LF:
		idx := bytes.IndexByte(f.buf, '\n')
		if idx < 0 {
			return RawLine{}, false
		}
		return f.take(idx, idx+1), true
	case CRLF:
		// A bare LF still ends the line; misbehaving devices mix endings.
		idx := bytes.IndexByte(f.buf, '\n')
		if idx < 0 {
			return RawLine{}, false
		}
		end := idx
		if end > 0 && f.buf[end-1] == '\r' {
			end--
		}
		return f.take(end, idx+1), true
	}
	return RawLine{}, false
}

// take builds a line from buf[:textEnd] and drops buf[:consumed].
func (f *Framer) take(textEnd, consumed int) RawLine {
	text := f.decode(f.buf[:textEnd])
	rest := copy(f.buf, f.buf[consumed:])
	f.buf = f.buf[:rest]
	return RawLine{Text: text, Time: f.now()}
}

func (f *Framer) decode(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	f.anomalies++
	return strings.ToValidUTF8(string(b), replacementText)
}

// completePrefix returns the length of b without a trailing, still
// incomplete UTF-8 sequence.
func completePrefix(b []byte) int {
	for i := len(b) - 1; i >= 0 && i >= len(b)-utf8.UTFMax+1; i-- {
		if !utf8.RuneStart(b[i]) {
			continue
		}
		if !utf8.FullRune(b[i:]) {
			return i
		}
		break
	}
	return len(b)
}
