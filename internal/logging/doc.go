// Package logging provides structured logging with per-module log levels.
//
// Every logger writes to stdout (text or JSON), to the systemd journal when
// journald is reachable, and to an in-memory ring buffer served by the status API.
//
// Initialize once at startup, then fetch a logger per module:
//
//	logging.Initialize(logging.Config{
//		Level:   "info",
//		Format:  "text",
//		Modules: map[string]string{"framechannel": "debug"},
//	})
//
//	logger := logging.GetLogger("producer")
//	logger.Info("Publishing frames", "channel", name)
//
// Module levels override the global level for that module only. SetLevels
// changes levels of existing loggers in place, which is how a config reload
// takes effect without a restart.
//
// Journal entries carry SYSLOG_IDENTIFIER=framebridge and one upper-case field
// per attribute:
//
//	journalctl -t framebridge MODULE=producer -f
package logging
