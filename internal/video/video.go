// Package video provides the frame sources used by the tracking application.
//
// Every source implements Video: ReadFrameInto blocks until the destination holds a
// complete frame, TogglePause freezes recorded sources on their current frame.
// Exactly one backend is chosen per run by New.
package video

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/smazurov/framebridge/internal/framechannel"
)

// Video is a source of frames.
type Video interface {
	// ReadFrameInto blocks until dst holds a valid, non-empty frame.
	ReadFrameInto(ctx context.Context, dst *Frame) error
	// TogglePause flips the pause flag. Sources that cannot pause ignore it.
	TogglePause()
	// Close releases the underlying device, file or mapping.
	Close() error
}

// SourceKind selects a Video backend.
type SourceKind string

// Source kinds.
const (
	SourceCamera       SourceKind = "camera"
	SourceFile         SourceKind = "file"
	SourceSharedMemory SourceKind = "shm"
)

// ParseSourceKind parses a source name. "cv" is accepted as an alias for camera.
func ParseSourceKind(s string) (SourceKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "camera", "cv":
		return SourceCamera, nil
	case "file":
		return SourceFile, nil
	case "shm":
		return SourceSharedMemory, nil
	default:
		return "", fmt.Errorf("%w: %q is not a video source, choose camera, shm or file", ErrUnknownSource, s)
	}
}

// Backend opens camera devices and recordings. The OpenCV implementation
// lives in package cv so that only binaries that capture need OpenCV.
type Backend struct {
	// OpenDevice opens a capture device at exactly width x height.
	OpenDevice func(path string, width, height int) (Grabber, error)
	// OpenFile opens a recording.
	OpenFile func(path string) (Decoder, error)
}

// Config selects and configures one backend.
type Config struct {
	Source SourceKind

	// Backend is required for SourceCamera and SourceFile.
	Backend Backend

	// DevicePath is the capture device for SourceCamera.
	DevicePath string
	// FilePath is the recording for SourceFile.
	FilePath string
	// Width and Height are the output size of camera and file sources.
	Width  int
	Height int

	// ChannelName and ChannelDir locate the frame channel for SourceSharedMemory.
	ChannelName string
	ChannelDir  string
	// RetryInterval is the attach backoff while the channel does not exist.
	RetryInterval time.Duration

	Logger *slog.Logger
}

// New opens the backend selected by cfg.Source.
// For the shared memory source New blocks until the producer has created the channel.
func New(ctx context.Context, cfg Config) (Video, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Source {
	case SourceCamera:
		if err := framechannel.ValidateDimensions(cfg.Width, cfg.Height); err != nil {
			return nil, fmt.Errorf("camera output %dx%d: %w", cfg.Width, cfg.Height, err)
		}
		if cfg.Backend.OpenDevice == nil {
			return nil, fmt.Errorf("%w: %s: no capture backend", ErrDeviceOpen, cfg.DevicePath)
		}
		grabber, err := cfg.Backend.OpenDevice(cfg.DevicePath, cfg.Width, cfg.Height)
		if err != nil {
			return nil, err
		}
		logger.Info("Opened video device", "path", cfg.DevicePath, "width", cfg.Width, "height", cfg.Height)
		return NewLiveDevice(grabber, logger), nil

	case SourceFile:
		if err := framechannel.ValidateDimensions(cfg.Width, cfg.Height); err != nil {
			return nil, fmt.Errorf("file output %dx%d: %w", cfg.Width, cfg.Height, err)
		}
		if cfg.Backend.OpenFile == nil {
			return nil, fmt.Errorf("%w: %s: no capture backend", ErrDeviceOpen, cfg.FilePath)
		}
		decoder, err := cfg.Backend.OpenFile(cfg.FilePath)
		if err != nil {
			return nil, err
		}
		logger.Info("Opened video file", "path", cfg.FilePath, "width", cfg.Width, "height", cfg.Height)
		return NewRecordedFile(decoder, cfg.Width, cfg.Height, BilinearScaler), nil

	case SourceSharedMemory:
		return NewSharedMemory(ctx, SharedMemoryConfig{
			Name:          cfg.ChannelName,
			Dir:           cfg.ChannelDir,
			RetryInterval: cfg.RetryInterval,
			Logger:        logger,
		})

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, cfg.Source)
	}
}
