package app

import (
	"context"
	"testing"
	"time"

	"github.com/five82/uartconsole/internal/state"
)

func TestCalculateBackoff_Schedule(t *testing.T) {
	var got []time.Duration
	for failures := -1; failures <= 6; failures++ {
		got = append(got, calculateBackoff(failures, defaultRetryInterval))
	}
	want := []time.Duration{
		time.Second, time.Second, // no failures yet
		2 * time.Second, 4 * time.Second, 8 * time.Second, 16 * time.Second,
		maxBackoff, maxBackoff,
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("backoff schedule = %v, want %v", got, want)
		}
	}
}

func TestCalculateBackoff_NeverExceedsCap(t *testing.T) {
	for _, base := range []time.Duration{time.Millisecond, 3 * time.Second, 29 * time.Second} {
		for failures := 0; failures <= 64; failures++ {
			if got := calculateBackoff(failures, base); got > maxBackoff {
				t.Fatalf("calculateBackoff(%d, %v) = %v, over cap", failures, base, got)
			}
		}
	}
}

func TestRedial_RetriesUntilPortReturns(t *testing.T) {
	port := newFakePort()
	o := &opener{}
	sess := newTestSession(t, testSettings(), o)
	sess.retryBase = time.Millisecond

	// Two failed opens, then the device is back.
	go func() {
		for o.callCount() < 2 {
			time.Sleep(time.Millisecond)
		}
		o.mu.Lock()
		o.ports = append(o.ports, port)
		o.mu.Unlock()
	}()

	done := make(chan struct{})
	go func() {
		defer close(done)
		if got := sess.redial(context.Background(), testSettings().Serial()); got != port {
			t.Errorf("redial returned %v, want the reopened port", got)
		}
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("redial did not return")
	}
	if snap := sess.Status(); snap.ConsecutiveFailures < 2 {
		t.Fatalf("ConsecutiveFailures = %d, want at least 2", snap.ConsecutiveFailures)
	}
}

func TestRedial_StopsOnCancel(t *testing.T) {
	o := &opener{}
	sess := newTestSession(t, testSettings(), o)
	sess.retryBase = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan bool, 1)
	go func() { result <- sess.redial(ctx, testSettings().Serial()) == nil }()

	cancel()
	select {
	case isNil := <-result:
		if !isNil {
			t.Fatal("redial returned a port after cancel")
		}
	case <-time.After(time.Second):
		t.Fatal("redial ignored cancellation")
	}
	if o.callCount() != 0 {
		t.Fatalf("opened %d times while waiting", o.callCount())
	}
	if sess.Status().Phase == state.Connected {
		t.Fatal("phase should not be connected")
	}
}
