// Package table holds the bounded row table behind the console view.
//
// Every framed line becomes a Row: the raw text, its arrival time, a
// sequence number and the columns the active expression extracted from
// it. The table keeps at most Capacity rows and drops the oldest first.
//
// Changing the expression re-parses every retained row from its raw text
// while holding the write lock, so a Snapshot always reflects exactly one
// expression. A pattern that fails to compile leaves the table untouched.
package table
