// Package app is the composition root of the console.
//
// # Overview
//
// Run loads the settings, builds the logger and optional metrics server,
// creates a Session and hands it to the terminal UI. It blocks until the
// UI exits or the context is cancelled.
//
// # Components
//
//   - app.go: Run, startup wiring and the settings watcher hookup
//   - session.go: Session, which owns the row table and the serial link
//   - reconnect.go: capped exponential backoff for auto-reconnect
//   - replay.go: headless processing of a captured byte stream
//
// # Data Flow
//
//	┌──────────────┐
//	│   Run()      │
//	└──────┬───────┘
//	       ├─────> config.Load()      read settings
//	       ├─────> logging.New()      file logger
//	       ├─────> metrics.Serve()    when metrics_addr is set
//	       ├─────> NewSession()       table + link state
//	       ├─────> config.Watch()     live reload into ApplySettings
//	       └─────> ui.Run()           TUI (blocks)
//
//	Per connection:
//	┌─────────────────────────────────────────┐
//	│ supervise() goroutine                   │
//	│  ├─> pipeline.Run()   reader + appender │
//	│  ├─> store.Disconnected() on stream end │
//	│  └─> redial() with backoff if enabled   │
//	└─────────────────────────────────────────┘
//
// # Reconnection
//
// When a stream ends on its own (device unplugged, read error) and
// auto_reconnect is set, the session reopens the same port, waiting
// 1s, 2s, 4s ... up to 30s between attempts. A user Disconnect stops the
// cycle. With retain_on_reconnect off, the table is cleared each time a
// new connection opens.
//
// # Error Handling
//
// Run returns errors only for startup failures: unreadable settings, a
// log file that cannot be created, or a pattern that does not compile.
// Everything after startup is reported on the status line and in the log.
package app
