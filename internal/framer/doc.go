// Package framer turns the raw byte stream of a serial link into lines.
//
// # Line endings
//
// Four conventions are supported:
//
//	None  every read is flushed as one line, no delimiter is awaited
//	CR    lines end at '\r'
//	LF    lines end at '\n'
//	CRLF  lines end at "\r\n"; a bare '\n' also ends a line
//
// The delimiter is stripped from the emitted text. Bytes after the last
// delimiter are kept across calls to Feed until the rest of the line
// arrives, or until Flush is called when the stream closes.
//
// # Text decoding
//
// Lines are decoded as UTF-8. Invalid sequences are replaced with U+FFFD
// rather than failing, so one corrupt byte never costs the rest of a line.
//
// # Usage
//
//	f := framer.New(framer.LF, framer.WithSkipEmpty(true))
//	for line := range f.Feed(buf[:n]) {
//	    table.Append(line)
//	}
//	if rest, ok := f.Flush(); ok {
//	    table.Append(rest)
//	}
//
// The same LineEnding values format outbound text:
//
//	port.Write(framer.CRLF.Append("AT+RST"))
package framer
