// Package cmd holds the framebridge subcommands.
package cmd

import (
	"time"

	"github.com/smazurov/framebridge/internal/logging"
	"github.com/smazurov/framebridge/internal/video"
)

// Options for the CLI - flat structure with toml mapping. Registered as
// persistent flags on the root command, so every subcommand accepts them.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"framebridge.toml"`

	// Device settings
	Device        string `help:"Capture device (default: first match of --device-pattern)" short:"d" toml:"device.path" env:"DEVICE_PATH"`
	DevicePattern string `help:"Glob used to discover capture devices" default:"/dev/c920-*" toml:"device.pattern" env:"DEVICE_PATTERN"`
	DeviceWidth   int    `help:"Capture width in pixels" default:"640" toml:"device.width" env:"DEVICE_WIDTH"`
	DeviceHeight  int    `help:"Capture height in pixels" default:"480" toml:"device.height" env:"DEVICE_HEIGHT"`

	// Frame channel settings
	ChannelName          string `help:"Shared memory region name" default:"frame" toml:"channel.name" env:"CHANNEL_NAME"`
	ChannelDir           string `help:"Directory holding shared memory regions" default:"/dev/shm" toml:"channel.dir" env:"CHANNEL_DIR"`
	ChannelRetryInterval string `help:"Delay between attempts to attach to the channel" default:"1s" toml:"channel.retry_interval" env:"CHANNEL_RETRY_INTERVAL"`

	// Status API settings
	StatusAddr     string `help:"Status API listen address, empty to disable" toml:"status.addr" env:"STATUS_ADDR"`
	StatusUsername string `help:"Status API basic auth username" toml:"status.username" env:"STATUS_USERNAME"`
	StatusPassword string `help:"Status API basic auth password" toml:"status.password" env:"STATUS_PASSWORD"`

	// Logging settings
	LogLevel         string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LogFormat        string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingProducer  string `help:"Producer logging level" toml:"logging.producer" env:"LOGGING_PRODUCER"`
	LoggingVideo     string `help:"Video backend logging level" toml:"logging.video" env:"LOGGING_VIDEO"`
	LoggingTracking  string `help:"Tracking logging level" toml:"logging.tracking" env:"LOGGING_TRACKING"`
	LoggingRecording string `help:"Recording logging level" toml:"logging.recording" env:"LOGGING_RECORDING"`
	LoggingAPI       string `help:"API logging level" toml:"logging.api" env:"LOGGING_API"`
}

// App carries the parsed root options to subcommands. Options is set before
// any subcommand runs. Backend opens camera and file sources; main supplies
// the OpenCV one.
type App struct {
	Options *Options
	Backend video.Backend
}

// LoggingConfig builds the logging configuration. Module levels left empty
// follow the global level.
func (o *Options) LoggingConfig() logging.Config {
	modules := make(map[string]string)
	for module, level := range map[string]string{
		"producer":  o.LoggingProducer,
		"video":     o.LoggingVideo,
		"tracking":  o.LoggingTracking,
		"recording": o.LoggingRecording,
		"api":       o.LoggingAPI,
		"http":      o.LoggingAPI,
	} {
		if level != "" {
			modules[module] = level
		}
	}
	return logging.Config{
		Level:   o.LogLevel,
		Format:  o.LogFormat,
		Modules: modules,
	}
}

// retryInterval parses ChannelRetryInterval, falling back to one second for
// malformed or non-positive values.
func (o *Options) retryInterval() time.Duration {
	d, err := time.ParseDuration(o.ChannelRetryInterval)
	if err != nil || d <= 0 {
		return time.Second
	}
	return d
}
