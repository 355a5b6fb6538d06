package framer

import (
	"fmt"
	"strings"
)

// LineEnding selects how the byte stream is cut into lines, and which
// terminator is appended to outbound text.
type LineEnding int

const (
	None LineEnding = iota
	CR
	LF
	CRLF
)

var endingNames = map[LineEnding]string{
	None: "none",
	CR:   "cr",
	LF:   "lf",
	CRLF: "crlf",
}

// Endings returns every supported line ending in display order.
func Endings() []LineEnding {
	return []LineEnding{None, CR, LF, CRLF}
}

// ParseLineEnding accepts the names written by String, case-insensitively.
func ParseLineEnding(s string) (LineEnding, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "":
		return None, nil
	case "cr", `\r`:
		return CR, nil
	case "lf", `\n`:
		return LF, nil
	case "crlf", `\r\n`:
		return CRLF, nil
	}
	return None, fmt.Errorf("unknown line ending %q", s)
}

func (e LineEnding) String() string {
	if name, ok := endingNames[e]; ok {
		return name
	}
	return fmt.Sprintf("LineEnding(%d)", int(e))
}

// Label is the human-readable form shown in the UI.
func (e LineEnding) Label() string {
	switch e {
	case CR:
		return `CR (\r)`
	case LF:
		return `LF (\n)`
	case CRLF:
		return `CRLF (\r\n)`
	default:
		return "None"
	}
}

// Bytes returns the terminator sequence for the ending; None has none.
func (e LineEnding) Bytes() []byte {
	switch e {
	case CR:
		return []byte{'\r'}
	case LF:
		return []byte{'\n'}
	case CRLF:
		return []byte{'\r', '\n'}
	default:
		return nil
	}
}

// Append formats text for transmission by adding the terminator.
func (e LineEnding) Append(text string) []byte {
	out := make([]byte, 0, len(text)+2)
	out = append(out, text...)
	return append(out, e.Bytes()...)
}

// MarshalText implements encoding.TextMarshaler so settings files carry
// the short name.
func (e LineEnding) MarshalText() ([]byte, error) {
	name, ok := endingNames[e]
	if !ok {
		return nil, fmt.Errorf("unknown line ending %d", int(e))
	}
	return []byte(name), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (e *LineEnding) UnmarshalText(text []byte) error {
	parsed, err := ParseLineEnding(string(text))
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}
