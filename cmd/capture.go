package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/smazurov/framebridge/internal/api"
	"github.com/smazurov/framebridge/internal/devices"
	"github.com/smazurov/framebridge/internal/events"
	"github.com/smazurov/framebridge/internal/framechannel"
	"github.com/smazurov/framebridge/internal/logging"
	"github.com/smazurov/framebridge/internal/producer"
	"github.com/smazurov/framebridge/internal/systemd"
	"github.com/smazurov/framebridge/internal/video"
)

const noCameraMessage = "Cannot find a C920 camera, please use -d/--device"

// CreateCaptureCmd creates the capture command, the frame producer.
func CreateCaptureCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "capture",
		Short: "Publish camera frames into shared memory",
		Long: `Opens the capture device and publishes every frame into the shared memory ` +
			`frame channel until interrupted. The channel is removed on exit.`,
		Args: cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			if err := runCapture(app.Options, app.Backend); err != nil {
				os.Exit(1)
			}
		},
	}
}

// resolveDevice returns --device, or the first device matching the pattern.
func resolveDevice(opts *Options) (string, bool) {
	if opts.Device != "" {
		return opts.Device, true
	}
	return devices.FindDefault(opts.DevicePattern)
}

// checkCaptureSize rejects sizes the frame channel cannot hold or the device
// does not offer, before the device is opened.
func checkCaptureSize(device string, width, height int) error {
	if err := framechannel.ValidateDimensions(width, height); err != nil {
		return fmt.Errorf("capture size %dx%d: %w", width, height, err)
	}
	if err := devices.CheckResolution(device, width, height); err != nil {
		return fmt.Errorf("%s: %w", device, err)
	}
	return nil
}

func runCapture(opts *Options, backend video.Backend) error {
	logger := logging.GetLogger("capture")

	device, ok := resolveDevice(opts)
	if !ok {
		fmt.Fprintln(os.Stderr, noCameraMessage)
		return fmt.Errorf("no capture device matches %s", opts.DevicePattern)
	}
	if err := checkCaptureSize(device, opts.DeviceWidth, opts.DeviceHeight); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	bus := events.New()

	src, err := video.New(ctx, video.Config{
		Source:     video.SourceCamera,
		Backend:    backend,
		DevicePath: device,
		Width:      opts.DeviceWidth,
		Height:     opts.DeviceHeight,
		Logger:     logging.GetLogger("video"),
	})
	if err != nil {
		logger.Error("Failed to open video device", "path", device, "error", err)
		return err
	}
	defer src.Close()

	bus.Publish(events.DeviceOpenedEvent{
		Source:    string(video.SourceCamera),
		Path:      device,
		Width:     opts.DeviceWidth,
		Height:    opts.DeviceHeight,
		Timestamp: time.Now(),
	})

	stopStatus := startStatus(opts, api.Options{Bus: bus}, logger)
	defer stopStatus()
	watchConfig(ctx, opts.Config, logger)

	p := producer.New(src, producer.Config{
		ChannelName: opts.ChannelName,
		ChannelDir:  opts.ChannelDir,
		Width:       opts.DeviceWidth,
		Height:      opts.DeviceHeight,
		Bus:         bus,
		Logger:      logging.GetLogger("producer"),
		OnReady: func() {
			systemd.Ready(logger)
			systemd.Status(logger, fmt.Sprintf("Publishing %dx%d frames from %s", opts.DeviceWidth, opts.DeviceHeight, device))
			go systemd.Watchdog(ctx, logger)
		},
	})

	err = p.Run(ctx)
	systemd.Stopping(logger)
	if err != nil {
		logger.Error("Capture stopped", "error", err)
		return err
	}
	logger.Info("Capture finished", "published", p.Stats().Published)
	return nil
}
