package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/smazurov/framebridge/internal/api"
	"github.com/smazurov/framebridge/internal/config"
	"github.com/smazurov/framebridge/internal/events"
	"github.com/smazurov/framebridge/internal/logging"
	"github.com/smazurov/framebridge/internal/recording"
	"github.com/smazurov/framebridge/internal/tracking"
	"github.com/smazurov/framebridge/internal/video"
)

// TrackOptions are the flags of the track command. Fields with toml/env tags
// may also come from the config file or environment.
type TrackOptions struct {
	Config string

	Video              string  `toml:"video.source" env:"VIDEO_SOURCE"`
	File               string  `toml:"video.file" env:"VIDEO_FILE"`
	ZDistance          float64 `toml:"tracking.z_distance" env:"TRACKING_Z_DISTANCE"`
	GenObjectTemplates bool
	Record             string  `toml:"recording.dir" env:"RECORDING_DIR"`
	Diameter           float64 `toml:"recording.diameter" env:"RECORDING_DIAMETER"`
}

// errUsage marks failures already reported to the user on stderr.
var errUsage = errors.New("usage")

// CreateTrackCmd creates the track command, the frame consumer.
func CreateTrackCmd(app *App) *cobra.Command {
	var o TrackOptions

	cmd := &cobra.Command{
		Use:   "track OBJECT",
		Short: "Track an object in frames from the camera, shared memory or a file",
		Long: `Reads frames from the selected video source and estimates the pose of OBJECT, ` +
			`an object model file. SIGUSR1 pauses or resumes a file source; SIGUSR2 starts ` +
			`or stops recording when --record is set.`,
		// Argument errors exit 1 with a message rather than cobra usage output.
		Args: cobra.ArbitraryArgs,
		Run: func(cmd *cobra.Command, args []string) {
			o.Config = app.Options.Config
			if err := config.LoadConfig(&o, cmd); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			if err := runTrack(app.Options, app.Backend, &o, args); err != nil {
				os.Exit(1)
			}
		},
	}

	bindTrackFlags(cmd.Flags(), &o)
	return cmd
}

func bindTrackFlags(flags *pflag.FlagSet, o *TrackOptions) {
	flags.StringVarP(&o.Video, "video", "v", string(video.SourceCamera), "Video source: camera, shm or file")
	flags.StringVarP(&o.File, "file", "f", "", "Recorded video for the file source")
	flags.Float64VarP(&o.ZDistance, "z-distance", "z", 1000, "Initial distance of the object in millimetres")
	flags.BoolVarP(&o.GenObjectTemplates, "gen-object-templates", "g", false, "Generate object templates before tracking")
	flags.StringVar(&o.Record, "record", "", "Directory for recorded frames, masks and poses")
	flags.Float64Var(&o.Diameter, "diameter", 100, "Object diameter in millimetres, written to the recording")
}

func runTrack(opts *Options, backend video.Backend, o *TrackOptions, args []string) error {
	logger := logging.GetLogger("tracking")

	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "An object file is required")
		return errUsage
	}
	object := args[0]
	if _, err := os.Stat(object); err != nil {
		fmt.Fprintf(os.Stderr, "Cannot read object file: %v\n", err)
		return errUsage
	}

	kind, err := video.ParseSourceKind(o.Video)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%q is not a video source, choose camera, shm or file\n", o.Video)
		return errUsage
	}

	cfg := video.Config{
		Source:        kind,
		Backend:       backend,
		FilePath:      o.File,
		Width:         opts.DeviceWidth,
		Height:        opts.DeviceHeight,
		ChannelName:   opts.ChannelName,
		ChannelDir:    opts.ChannelDir,
		RetryInterval: opts.retryInterval(),
		Logger:        logging.GetLogger("video"),
	}
	switch kind {
	case video.SourceCamera:
		device, ok := resolveDevice(opts)
		if !ok {
			fmt.Fprintln(os.Stderr, noCameraMessage)
			return errUsage
		}
		if err := checkCaptureSize(device, opts.DeviceWidth, opts.DeviceHeight); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return errUsage
		}
		cfg.DevicePath = device
	case video.SourceFile:
		if o.File == "" {
			fmt.Fprintln(os.Stderr, "The file source needs -f/--file")
			return errUsage
		}
	}

	ctx, stop := signalContext()
	defer stop()

	bus := events.New()

	src, err := video.New(ctx, cfg)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		logger.Error("Failed to open video source", "source", kind, "error", err)
		return err
	}
	defer src.Close()
	publishOpened(bus, kind, cfg, src)

	if o.GenObjectTemplates {
		logger.Warn("Template generation needs a pose engine; none is linked", "object", object)
	}

	var rec tracking.Recorder
	if o.Record != "" {
		r, err := recording.New(o.Record, recording.Options{
			DiameterMM: o.Diameter,
			ModelPath:  object,
			Logger:     logging.GetLogger("recording"),
		})
		if err != nil {
			logger.Error("Failed to prepare recording", "dir", o.Record, "error", err)
			return err
		}
		rec = r
	}

	session, err := tracking.NewSession(tracking.Config{
		Video:    src,
		Engine:   tracking.NewNopEngine(tracking.InitialPose(o.ZDistance)),
		Recorder: rec,
		Bus:      bus,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	stopStatus := startStatus(opts, api.Options{Bus: bus, Tracking: session.Status}, logger)
	defer stopStatus()
	watchConfig(ctx, opts.Config, logger)
	go handleToggles(ctx, session)

	logger.Info("Tracking started", "object", object, "source", kind, "z_distance", o.ZDistance)
	if err := session.Run(ctx); err != nil {
		logger.Error("Tracking stopped", "error", err)
		return err
	}
	st := session.Status()
	logger.Info("Tracking finished", "frames", st.Frames, "recorded", st.Recorded)
	return nil
}

func publishOpened(bus *events.Bus, kind video.SourceKind, cfg video.Config, src video.Video) {
	now := time.Now()
	switch kind {
	case video.SourceSharedMemory:
		if sm, ok := src.(*video.SharedMemory); ok {
			ch := sm.Channel()
			bus.Publish(events.ChannelAttachedEvent{Name: ch.Name(), Width: ch.Width(), Height: ch.Height(), Timestamp: now})
		}
	case video.SourceFile:
		bus.Publish(events.DeviceOpenedEvent{Source: string(kind), Path: cfg.FilePath, Width: cfg.Width, Height: cfg.Height, Timestamp: now})
	default:
		bus.Publish(events.DeviceOpenedEvent{Source: string(kind), Path: cfg.DevicePath, Width: cfg.Width, Height: cfg.Height, Timestamp: now})
	}
}

// handleToggles maps SIGUSR1 to pause and SIGUSR2 to recording until ctx is done.
func handleToggles(ctx context.Context, session *tracking.Session) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGUSR1, syscall.SIGUSR2)
	defer signal.Stop(sigs)

	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-sigs:
			switch sig {
			case syscall.SIGUSR1:
				session.TogglePause()
			case syscall.SIGUSR2:
				session.ToggleRecording()
			}
		}
	}
}
