// Package ui provides the terminal user interface of the serial console.
//
// # Architecture Overview
//
// The UI is a Bubble Tea program. A single Model polls a Console (the live
// session in package app) every RefreshInterval and renders one of three
// views. All mutations go through the Console; the UI keeps no copy of the
// table beyond the window it is showing.
//
// # Package Structure
//
//   - ui.go: Model, Update loop, messages and the Run function
//   - table.go: parsed table view with a follow/pinned scroll window
//   - raw.go: received lines as they arrived
//   - logs.go: the application's own zap log, tailed from disk
//   - search.go: regex search over raw and log lines
//   - modal.go: pattern, column name and max rows editors
//   - ports.go: serial port and baud rate picker
//   - header.go: link status bar, command bar and status line
//   - theme.go: color themes
//
// # Views
//
//   - Table: one row per received line, columns from the extraction
//     pattern. Lines the pattern does not match are shown in full in the
//     warning color.
//   - Raw: the received text, optionally timestamped.
//   - Log: the application log with level coloring.
//
// The raw and log views share a regex search (search.go) that keeps its
// matches current as new lines arrive.
//
// # Event Flow
//
//  1. Run() creates the Model and starts the program
//  2. tickMsg fires every RefreshInterval and schedules fetchCmd
//  3. fetchCmd reads status, counters, settings, the table window and the
//     raw tail from the Console and returns a consoleMsg
//  4. Blocking Console calls (Connect, Disconnect, Export) run as commands
//     and report back with actionMsg
//  5. Context cancellation quits the program
//
// # Pattern Editing
//
// The pattern editor previews the pattern against the most recent line as
// it is typed. Applying an invalid pattern keeps the dialog open with the
// error; the previous pattern stays in effect.
//
// # Key Bindings
//
//   - t/r/l or Tab: Table, Raw and Log views
//   - c: Connect or disconnect
//   - o: Select port and baud rate
//   - i or Enter: Send text, Esc to leave the send bar
//   - p / n / m: Edit pattern, column names, maximum rows
//   - x: Clear table
//   - w: Export CSV
//   - a: Toggle auto-scroll
//   - T: Cycle theme
//   - q or Ctrl+C: Quit
package ui
