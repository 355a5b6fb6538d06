package pipeline

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/uartconsole/internal/framer"
)

type shortWriter struct{}

func (shortWriter) Write(p []byte) (int, error) { return len(p) - 1, nil }

type failWriter struct{}

func (failWriter) Write([]byte) (int, error) { return 0, errors.New("port closed") }

func TestTransmitter_Send(t *testing.T) {
	var buf bytes.Buffer
	tx := NewTransmitter(&buf, framer.CRLF)

	require.NoError(t, tx.Send("AT"))
	tx.SetEnding(framer.None)
	require.NoError(t, tx.Send("+RST"))

	assert.Equal(t, "AT\r\n+RST", buf.String())
	assert.Equal(t, uint64(8), tx.Sent())
}

func TestTransmitter_Errors(t *testing.T) {
	err := NewTransmitter(shortWriter{}, framer.LF).Send("abc")
	assert.ErrorIs(t, err, io.ErrShortWrite)

	err = NewTransmitter(failWriter{}, framer.LF).Send("abc")
	assert.ErrorContains(t, err, "port closed")
}
