package state

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Phase is the lifecycle stage of the serial link.
type Phase int

const (
	Disconnected Phase = iota
	Connecting
	Connected
	Reconnecting
)

func (p Phase) String() string {
	switch p {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Reconnecting:
		return "reconnecting"
	default:
		return "disconnected"
	}
}

// Snapshot represents the latest link status available to the UI.
type Snapshot struct {
	Phase       Phase
	Port        string
	BaudRate    int
	Session     uuid.UUID // zero until the first successful connect
	ConnectedAt time.Time
	LastUpdated time.Time

	// Message is the status line text; IsError marks it as a failure.
	Message string
	IsError bool

	LastError           error
	ConsecutiveFailures int // connect attempts or streams that failed in a row
}

// IsOffline returns true when the link has failed repeatedly.
func (s Snapshot) IsOffline() bool {
	return s.ConsecutiveFailures >= 2
}

// Uptime reports how long the current connection has been open.
func (s Snapshot) Uptime(now time.Time) time.Duration {
	if s.Phase != Connected || s.ConnectedAt.IsZero() {
		return 0
	}
	return now.Sub(s.ConnectedAt)
}

// Store coordinates concurrent updates to the snapshot.
type Store struct {
	mu       sync.RWMutex
	snapshot Snapshot
}

// NewStore returns a store in the disconnected state.
func NewStore() *Store {
	return &Store{snapshot: Snapshot{Message: "Disconnected", LastUpdated: time.Now()}}
}

// Connecting records an attempt to open port.
func (s *Store) Connecting(port string, baud int, retry bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot.Phase = Connecting
	msg := "Connecting..."
	if retry {
		s.snapshot.Phase = Reconnecting
		msg = fmt.Sprintf("Reconnecting to %s...", port)
	}
	s.snapshot.Port = port
	s.snapshot.BaudRate = baud
	s.setMessage(msg, false)
}

// Connected starts a new session and returns its id.
func (s *Store) Connected(port string, baud int) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.New()
	now := time.Now()
	s.snapshot.Phase = Connected
	s.snapshot.Port = port
	s.snapshot.BaudRate = baud
	s.snapshot.Session = id
	s.snapshot.ConnectedAt = now
	s.snapshot.LastError = nil
	s.snapshot.ConsecutiveFailures = 0
	s.setMessage(fmt.Sprintf("Connected to %s @ %d baud", port, baud), false)
	return id
}

// Disconnected records the end of a connection or a failed attempt. When
// err is nil the disconnect was requested and nothing is counted as a
// failure.
func (s *Store) Disconnected(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot.Phase = Disconnected
	s.snapshot.ConnectedAt = time.Time{}
	if err != nil {
		s.snapshot.LastError = err
		s.snapshot.ConsecutiveFailures++
		s.setMessage("Error: "+err.Error(), true)
		return
	}
	s.setMessage("Disconnected", false)
}

// Notify replaces the status message without changing the phase.
func (s *Store) Notify(msg string, isError bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setMessage(msg, isError)
}

func (s *Store) setMessage(msg string, isError bool) {
	s.snapshot.Message = msg
	s.snapshot.IsError = isError
	s.snapshot.LastUpdated = time.Now()
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	if s.snapshot.LastError != nil {
		snap.LastError = fmt.Errorf("%w", s.snapshot.LastError)
	}
	return snap
}
