package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/five82/uartconsole/internal/config"
	"github.com/five82/uartconsole/internal/logging"
	"github.com/five82/uartconsole/internal/metrics"
	"github.com/five82/uartconsole/internal/prefs"
	"github.com/five82/uartconsole/internal/ui"
)

// Options configure the console application.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses default ~/.config/uartconsole/prefs.toml
	Port       string // overrides the configured port when set
	BaudRate   int    // overrides the configured baud rate when positive
	Connect    bool   // open the port before the UI starts
	Version    string
}

// Run boots the console TUI until the user quits or ctx is cancelled.
func Run(ctx context.Context, opts Options) error {
	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	if opts.Port != "" {
		settings.Port = opts.Port
	}
	if opts.BaudRate > 0 {
		settings.BaudRate = opts.BaudRate
	}

	logger, err := logging.New(logging.Options{Path: settings.LogPath(), Level: settings.LogLevel})
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting", zap.String("version", opts.Version), zap.String("port", settings.Port))

	userPrefs, err := prefs.Load(opts.PrefsPath)
	if err != nil {
		logger.Warn("using default preferences", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var reg *metrics.Registry
	if settings.MetricsAddr != "" {
		reg, err = metrics.NewRegistry()
		if err != nil {
			return fmt.Errorf("init metrics: %w", err)
		}
		go func() {
			if err := reg.Serve(ctx, settings.MetricsAddr); err != nil {
				logger.Warn("metrics server stopped", zap.String("addr", settings.MetricsAddr), zap.Error(err))
			}
		}()
	}

	session, err := NewSession(ctx, SessionOptions{
		Settings: settings,
		Logger:   logger,
		Metrics:  reg,
	})
	if err != nil {
		return err
	}
	defer session.Close()

	go func() {
		err := config.Watch(ctx, opts.ConfigPath, logger.Named("config"), func(next config.Settings) {
			// Command line overrides win over the file.
			if opts.Port != "" {
				next.Port = opts.Port
			}
			if opts.BaudRate > 0 {
				next.BaudRate = opts.BaudRate
			}
			if err := session.ApplySettings(next); err != nil {
				session.store.Notify("Settings reload: "+err.Error(), true)
				return
			}
			session.store.Notify("Settings reloaded", false)
		})
		if err != nil {
			logger.Warn("config watch disabled", zap.Error(err))
		}
	}()

	if opts.Connect {
		// Failures land on the status line; the UI still starts.
		_ = session.Connect()
	}

	return ui.Run(ui.Options{
		Context:   ctx,
		Console:   session,
		Prefs:     userPrefs,
		PrefsPath: opts.PrefsPath,
		LogPath:   settings.LogPath(),
	})
}
