package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Identifier tags every journal entry and is the default SYSLOG_IDENTIFIER.
const Identifier = "framebridge"

const defaultBufferSize = 500

// Config selects the output format and the global and per-module levels.
type Config struct {
	Level   string            `toml:"level"`
	Format  string            `toml:"format"`
	Modules map[string]string `toml:"modules"`
}

var (
	mutex       sync.RWMutex
	config      Config
	initialized bool
	loggers     = make(map[string]*slog.Logger)
	levels      = make(map[string]*slog.LevelVar)
	globalLevel = &slog.LevelVar{}
	buffer      = NewRingBuffer(defaultBufferSize)

	// stdout is swapped by tests.
	stdout io.Writer = os.Stdout
)

// Initialize installs the handler chain and levels. Loggers handed out earlier
// are rebuilt so they pick up the configured format and outputs.
func Initialize(cfg Config) {
	mutex.Lock()
	defer mutex.Unlock()

	config = cfg
	initialized = true
	globalLevel.Set(levelOr(cfg.Level, slog.LevelInfo))

	for module, lv := range levels {
		lv.Set(moduleLevel(cfg, module))
		loggers[module] = slog.New(newHandler(cfg.Format, lv)).With("module", module)
	}
	slog.SetDefault(slog.New(newHandler(cfg.Format, globalLevel)))
}

// SetLevels applies new levels to every existing logger without touching the
// output format. Used when the config file is reloaded.
func SetLevels(cfg Config) {
	mutex.Lock()
	defer mutex.Unlock()

	config.Level = cfg.Level
	config.Modules = cfg.Modules
	globalLevel.Set(levelOr(cfg.Level, slog.LevelInfo))
	for module, lv := range levels {
		lv.Set(moduleLevel(config, module))
	}
}

// GetLogger returns the logger for module, creating it on first use.
func GetLogger(module string) *slog.Logger {
	mutex.RLock()
	logger, ok := loggers[module]
	mutex.RUnlock()
	if ok {
		return logger
	}

	mutex.Lock()
	defer mutex.Unlock()
	if logger, ok := loggers[module]; ok {
		return logger
	}

	lv := &slog.LevelVar{}
	format := "text"
	if initialized {
		lv.Set(moduleLevel(config, module))
		format = config.Format
	}

	logger = slog.New(newHandler(format, lv)).With("module", module)
	loggers[module] = logger
	levels[module] = lv
	return logger
}

// Buffer returns the ring of recent log entries.
func Buffer() *RingBuffer {
	return buffer
}

// newHandler routes to stdout, the journal when it is reachable, and the ring buffer.
func newHandler(format string, level slog.Leveler) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}

	var console slog.Handler
	if format == "json" {
		console = slog.NewJSONHandler(stdout, opts)
	} else {
		console = slog.NewTextHandler(stdout, opts)
	}

	handlers := []slog.Handler{NewBufferHandler(buffer, level)}
	if stdout != os.Stdout || isStdoutAvailable() {
		handlers = append(handlers, console)
	}
	if IsJournalAvailable() {
		handlers = append(handlers, NewJournalHandler(level))
	}

	if len(handlers) == 1 {
		return handlers[0]
	}
	return NewMultiHandler(handlers...)
}

// isStdoutAvailable reports false when stdout is /dev/null or closed.
func isStdoutAvailable() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	mode := fi.Mode()
	return mode&(os.ModeCharDevice|os.ModeNamedPipe|os.ModeSocket) != 0 || mode.IsRegular()
}

func moduleLevel(cfg Config, module string) slog.Level {
	level := levelOr(cfg.Level, slog.LevelInfo)
	if s, ok := cfg.Modules[module]; ok {
		level = levelOr(s, level)
	}
	return level
}

// ParseLevel converts a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return 0, false
	}
}

func levelOr(s string, fallback slog.Level) slog.Level {
	if level, ok := ParseLevel(s); ok {
		return level
	}
	return fallback
}
