package pipeline

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrStreamTerminated matches every *StreamTerminated.
var ErrStreamTerminated = errors.New("stream terminated")

// StreamTerminated is returned once by Run when the source stops producing
// data. Cause is io.EOF for an orderly close.
type StreamTerminated struct {
	Cause error
}

func (e *StreamTerminated) Error() string {
	if e.Cause == nil || errors.Is(e.Cause, io.EOF) {
		return "stream terminated: end of stream"
	}
	return fmt.Sprintf("stream terminated: %v", e.Cause)
}

func (e *StreamTerminated) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrStreamTerminated}
	}
	return []error{ErrStreamTerminated, e.Cause}
}

// Overflow selects what the reader does when the hand-off queue is full.
type Overflow int

const (
	// Block waits for room. Nothing is lost, but a slow sink stalls reads.
	Block Overflow = iota
	// DropNewest discards the line that did not fit.
	DropNewest
	// DropOldest discards the oldest queued line to make room.
	DropOldest
)

var overflowNames = []string{"block", "drop-newest", "drop-oldest"}

func (o Overflow) String() string {
	if o < 0 || int(o) >= len(overflowNames) {
		return fmt.Sprintf("Overflow(%d)", int(o))
	}
	return overflowNames[o]
}

// ParseOverflow accepts the names printed by String. Empty means Block.
func ParseOverflow(s string) (Overflow, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return Block, nil
	}
	for i, name := range overflowNames {
		if s == name {
			return Overflow(i), nil
		}
	}
	return Block, fmt.Errorf("unknown overflow policy %q (want block, drop-newest or drop-oldest)", s)
}

func (o Overflow) MarshalText() ([]byte, error) {
	if o < 0 || int(o) >= len(overflowNames) {
		return nil, fmt.Errorf("invalid overflow policy %d", int(o))
	}
	return []byte(o.String()), nil
}

func (o *Overflow) UnmarshalText(text []byte) error {
	v, err := ParseOverflow(string(text))
	if err != nil {
		return err
	}
	*o = v
	return nil
}
