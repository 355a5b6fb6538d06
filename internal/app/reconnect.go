package app

import (
	"context"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/five82/uartconsole/internal/serialport"
)

const (
	defaultRetryInterval = time.Second
	maxBackoff           = 30 * time.Second
)

// calculateBackoff doubles the base interval per consecutive failure, capped
// at maxBackoff.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 {
		return base
	}
	backoff := base
	for i := 0; i < failures; i++ {
		backoff *= 2
		if backoff >= maxBackoff {
			return maxBackoff
		}
	}
	return backoff
}

// redial reopens the link until it succeeds or ctx ends. It returns nil
// only when ctx is done.
func (s *Session) redial(ctx context.Context, cfg serialport.Config) io.ReadWriteCloser {
	for attempt := 0; ; attempt++ {
		wait := calculateBackoff(s.store.Snapshot().ConsecutiveFailures-1, s.retryBase)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}

		s.store.Connecting(cfg.Port, cfg.BaudRate, true)
		port, err := s.open(cfg)
		if err == nil {
			s.log.Info("reconnected", zap.String("port", cfg.Port), zap.Int("attempt", attempt+1))
			return port
		}
		if ctx.Err() != nil {
			return nil
		}
		s.log.Warn("reconnect failed",
			zap.String("port", cfg.Port),
			zap.Int("attempt", attempt+1),
			zap.Duration("waited", wait),
			zap.Error(err))
		s.store.Disconnected(err)
	}
}
