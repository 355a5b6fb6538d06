package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// reloadDelay coalesces the burst of events editors produce on save.
const reloadDelay = 150 * time.Millisecond

// Watch calls fn with the reloaded settings each time the file at path
// changes and still validates. It watches the parent directory so saves
// that replace the file are seen. Watch blocks until ctx is done.
func Watch(ctx context.Context, path string, logger *zap.Logger, fn func(Settings)) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	resolved, err := resolvePath(path)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create config watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(resolved)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch config dir %s: %w", dir, err)
	}

	timer := time.NewTimer(reloadDelay)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case evt, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(evt.Name) != resolved {
				continue
			}
			if evt.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			timer.Reset(reloadDelay)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("config watcher error", zap.String("path", resolved), zap.Error(err))
		case <-timer.C:
			// Moved or deleted: keep the live settings rather than
			// falling back to defaults.
			if _, err := os.Stat(resolved); errors.Is(err, os.ErrNotExist) {
				logger.Info("config file gone, keeping current settings", zap.String("path", resolved))
				continue
			}
			s, err := Load(resolved)
			if err != nil {
				logger.Warn("ignoring invalid config change", zap.String("path", resolved), zap.Error(err))
				continue
			}
			logger.Info("config reloaded", zap.String("path", resolved))
			fn(s)
		}
	}
}
