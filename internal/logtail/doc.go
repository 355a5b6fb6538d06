// Package logtail reads the end of the console's own log file for the
// Logs view.
//
// # Reading
//
// Read returns the last N lines of a file. It seeks backwards from the end
// in fixed-size chunks, so the cost depends on N rather than on the size
// of the file:
//
//	lines, err := logtail.Read(settings.LogPath(), 400)
//
// A file that does not exist yet yields no lines and no error; the
// logger creates it on first write.
//
// # Decoding
//
// The logger writes one JSON object per line. Parse turns a line into an
// Entry with its level, logger name, message and remaining fields, and
// Entry.Format renders it for a terminal:
//
//	14:32:15 INFO  session  connected baud=115200 port=/dev/ttyUSB0
//
// Lines that are not JSON are passed through unchanged with an empty
// level, so a hand-edited or foreign file still displays.
package logtail
