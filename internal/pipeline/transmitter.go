package pipeline

import (
	"fmt"
	"io"
	"sync"

	"github.com/five82/uartconsole/internal/framer"
)

// Transmitter writes outbound lines to the serial link.
type Transmitter struct {
	mu     sync.Mutex
	w      io.Writer
	ending framer.LineEnding
	sent   uint64
}

// NewTransmitter terminates every sent line with ending.
func NewTransmitter(w io.Writer, ending framer.LineEnding) *Transmitter {
	return &Transmitter{w: w, ending: ending}
}

// Send writes text followed by the line ending in a single Write.
func (t *Transmitter) Send(text string) error {
	payload := t.ending.Append(text)

	t.mu.Lock()
	defer t.mu.Unlock()
	n, err := t.w.Write(payload)
	t.sent += uint64(n)
	if err != nil {
		return fmt.Errorf("send %d bytes: %w", len(payload), err)
	}
	if n < len(payload) {
		return fmt.Errorf("send %d bytes: %w", len(payload), io.ErrShortWrite)
	}
	return nil
}

// SetEnding changes the terminator for later sends.
func (t *Transmitter) SetEnding(ending framer.LineEnding) {
	t.mu.Lock()
	t.ending = ending
	t.mu.Unlock()
}

// Sent reports the total bytes written.
func (t *Transmitter) Sent() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sent
}
