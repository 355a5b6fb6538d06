// Package state tracks the serial link status shown in the status bar.
//
// Store is written by the session goroutines and read by the UI on every
// tick; Snapshot returns a copy so readers never hold the lock.
package state
