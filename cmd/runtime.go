package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/smazurov/framebridge/internal/api"
	"github.com/smazurov/framebridge/internal/config"
	"github.com/smazurov/framebridge/internal/logging"
)

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// watchConfig re-applies logging levels whenever the config file changes.
// Levels given as flags are not re-applied.
func watchConfig(ctx context.Context, path string, logger *slog.Logger) {
	if path == "" {
		return
	}
	w := config.NewWatcher(path, func(p string) (logging.Config, error) {
		return config.LoadLoggingConfig(p), nil
	}, logging.GetLogger("config"))
	w.OnReload(func(cfg logging.Config) {
		logging.SetLevels(cfg)
		logger.Info("Reloaded logging levels", "config", path, "level", cfg.Level)
	})
	if err := w.Start(ctx); err != nil {
		logger.Warn("Failed to watch config file", "config", path, "error", err)
		return
	}
	go func() {
		<-ctx.Done()
		_ = w.Stop()
	}()
}

// startStatus serves the status API in the background when an address is set.
// The returned function stops it.
func startStatus(opts *Options, apiOpts api.Options, logger *slog.Logger) func() {
	if opts.StatusAddr == "" {
		return func() {}
	}
	apiOpts.DevicePattern = opts.DevicePattern
	apiOpts.AuthUsername = opts.StatusUsername
	apiOpts.AuthPassword = opts.StatusPassword

	server := api.NewServer(apiOpts)
	go func() {
		if err := server.Start(opts.StatusAddr); err != nil {
			logger.Error("Status API failed", "addr", opts.StatusAddr, "error", err)
		}
	}()
	return func() {
		if err := server.Stop(); err != nil {
			logger.Warn("Error stopping status API", "error", err)
		}
	}
}
