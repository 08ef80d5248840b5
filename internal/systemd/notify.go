// Package systemd reports service state to the service manager. Every call is
// a no-op when the process was not started by systemd.
package systemd

import (
	"context"
	"log/slog"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
)

// notify is swapped by tests.
var notify = daemon.SdNotify

// Ready tells systemd the service finished starting (Type=notify units).
func Ready(logger *slog.Logger) {
	send(logger, daemon.SdNotifyReady)
}

// Stopping tells systemd the service is shutting down.
func Stopping(logger *slog.Logger) {
	send(logger, daemon.SdNotifyStopping)
}

// Status sets the free-form status line shown by systemctl status.
func Status(logger *slog.Logger, status string) {
	send(logger, "STATUS="+status)
}

// Watchdog pings the service manager at half the configured WatchdogSec until
// ctx is done. It returns at once when the watchdog is disabled.
func Watchdog(ctx context.Context, logger *slog.Logger) {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil {
		logger.Warn("Failed to read watchdog settings", "error", err)
		return
	}
	if interval <= 0 {
		return
	}
	keepalive(ctx, logger, interval/2)
}

func keepalive(ctx context.Context, logger *slog.Logger, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			send(logger, daemon.SdNotifyWatchdog)
		}
	}
}

func send(logger *slog.Logger, state string) {
	sent, err := notify(false, state)
	if err != nil {
		logger.Warn("Failed to notify systemd", "state", state, "error", err)
		return
	}
	if sent {
		logger.Debug("Notified systemd", "state", state)
	}
}
