package framer

import (
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func texts(f *Framer, chunks ...string) []string {
	var out []string
	for _, c := range chunks {
		for line := range f.Feed([]byte(c)) {
			out = append(out, line.Text)
		}
	}
	return out
}

func TestFeed_LF(t *testing.T) {
	f := New(LF)

	assert.Equal(t, []string{"T=25.3", "H=60"}, texts(f, "T=25.3\nH=60\nP="))
	assert.Equal(t, 2, f.Pending())
	assert.Equal(t, []string{"P=1013"}, texts(f, "1013\n"))
	assert.Zero(t, f.Pending())
}

func TestFeed_CR(t *testing.T) {
	f := New(CR)
	assert.Equal(t, []string{"a", "b\n"}, texts(f, "a\rb\n\rc"))
	line, ok := f.Flush()
	require.True(t, ok)
	assert.Equal(t, "c", line.Text)
}

func TestFeed_CRLFSplitAcrossCalls(t *testing.T) {
	f := New(CRLF)
	assert.Empty(t, texts(f, "hello\r"))
	assert.Equal(t, []string{"hello", "world"}, texts(f, "\nworld\r\n"))
}

func TestFeed_CRLFAcceptsBareLF(t *testing.T) {
	f := New(CRLF)
	assert.Equal(t, []string{"one", "two", "thr\ree"}, texts(f, "one\ntwo\r\nthr\ree\r\n"))
}

func TestFeed_NoneFlushesEveryFeed(t *testing.T) {
	f := New(None)
	assert.Equal(t, []string{"abc", "de\nf"}, texts(f, "abc", "", "de\nf"))
	assert.Zero(t, f.Pending())
}

func TestFeed_NoneHoldsPartialRune(t *testing.T) {
	f := New(None)
	deg := []byte("°C") // 0xC2 0xB0 'C'

	var got []string
	for line := range f.Feed(append([]byte("25"), deg[0])) {
		got = append(got, line.Text)
	}
	for line := range f.Feed(deg[1:]) {
		got = append(got, line.Text)
	}
	assert.Equal(t, []string{"25", "°C"}, got)
}

func TestFeed_InvalidUTF8IsReplaced(t *testing.T) {
	f := New(LF)
	var got []string
	for line := range f.Feed([]byte{'o', 'k', 0xff, 'x', '\n', 'n', 'e', 'x', 't', '\n'}) {
		got = append(got, line.Text)
	}
	assert.Equal(t, []string{"ok" + replacementText + "x", "next"}, got)
	assert.Equal(t, uint64(1), f.Anomalies())
}

func TestFeed_EmptyLines(t *testing.T) {
	assert.Equal(t, []string{"a", "", "b"}, texts(New(LF), "a\n\nb\n"))
	assert.Equal(t, []string{"a", "b"}, texts(New(LF, WithSkipEmpty(true)), "a\n\nb\n"))
	assert.Equal(t, []string{"a", "b"}, texts(New(CRLF, WithSkipEmpty(true)), "a\r\n\r\nb\r\n"))
}

func TestFeed_StoppingEarlyKeepsLines(t *testing.T) {
	f := New(LF)
	for line := range f.Feed([]byte("1\n2\n3\n")) {
		assert.Equal(t, "1", line.Text)
		break
	}
	assert.Equal(t, []string{"2", "3", "4"}, texts(f, "4\n"))
}

func TestFeed_StampsCompletionTime(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	f := New(LF, WithClock(func() time.Time { return at }))
	for line := range f.Feed([]byte("x\n")) {
		assert.Equal(t, at, line.Time)
	}
}

func TestFlush(t *testing.T) {
	f := New(CRLF)
	_, ok := f.Flush()
	assert.False(t, ok)

	assert.Empty(t, texts(f, "partial\r"))
	line, ok := f.Flush()
	require.True(t, ok)
	assert.Equal(t, "partial", line.Text)
	assert.Zero(t, f.Pending())
}

func TestReset(t *testing.T) {
	f := New(LF)
	texts(f, "dangling")
	f.Reset()
	assert.Equal(t, []string{"fresh"}, texts(f, "fresh\n"))
}

// Chunk boundaries must never change the framed output.
func TestFeed_ChunkBoundaryInvariant(t *testing.T) {
	tests := []struct {
		ending LineEnding
		input  string
	}{
		{LF, "T=25.3,H=60.2\nT=25.4,H=60.1\n\nécrit\nrésidu"},
		{CR, "a\rbb\rccc\r\xfe\xffd\rtail"},
		{CRLF, "one\r\ntwo\r\n\r\nthree°\r\nrest\r"},
	}

	rng := rand.New(rand.NewPCG(1, 2))
	for _, tt := range tests {
		t.Run(tt.ending.String(), func(t *testing.T) {
			whole := New(tt.ending)
			want := texts(whole, tt.input)
			wantRest, _ := whole.Flush()

			for round := 0; round < 200; round++ {
				f := New(tt.ending)
				var got []string
				in := []byte(tt.input)
				for len(in) > 0 {
					n := 1 + rng.IntN(len(in))
					got = append(got, texts(f, string(in[:n]))...)
					in = in[n:]
				}
				rest, _ := f.Flush()
				require.Equal(t, want, got, "round %d", round)
				require.Equal(t, wantRest.Text, rest.Text, "round %d", round)
			}
		})
	}
}

// Re-inserting the delimiter after every line reproduces the input up to
// the undelimited residual.
func TestFeed_Reassembles(t *testing.T) {
	input := "alpha\r\nbeta\r\n\r\ngamma\r\ndelta"
	f := New(CRLF)
	var b strings.Builder
	for _, line := range texts(f, input[:7], input[7:19], input[19:]) {
		b.WriteString(line)
		b.WriteString("\r\n")
	}
	assert.Equal(t, input[:strings.LastIndex(input, "\r\n")+2], b.String())
}

func TestCompletePrefix(t *testing.T) {
	euro := []byte("€") // 3 bytes
	assert.Equal(t, 0, completePrefix(euro[:1]))
	assert.Equal(t, 0, completePrefix(euro[:2]))
	assert.Equal(t, 3, completePrefix(euro))
	assert.Equal(t, 2, completePrefix(append([]byte("ab"), euro[:2]...)))
	assert.Equal(t, 3, completePrefix([]byte{'a', 'b', 0xff}))
}
