package video

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/smazurov/framebridge/internal/metrics"
)

// Grabber captures frames from a live device.
// Grab returns ErrEmptyFrame when the device produced no pixels and an error
// wrapping ErrDeviceOpen once the device is gone.
type Grabber interface {
	Grab(dst *Frame) error
	Close() error
}

// After emptyBurst consecutive empty frames LiveDevice sleeps emptyBackoff
// between grabs.
var (
	emptyBurst   = 30
	emptyBackoff = 10 * time.Millisecond
)

// LiveDevice reads from a capture device. Devices occasionally deliver empty
// frames while warming up; those are retried, never surfaced. A device that
// reports ErrDeviceOpen ends the read.
type LiveDevice struct {
	grabber Grabber
	logger  *slog.Logger
}

// NewLiveDevice wraps an opened grabber.
func NewLiveDevice(grabber Grabber, logger *slog.Logger) *LiveDevice {
	if logger == nil {
		logger = slog.Default()
	}
	return &LiveDevice{grabber: grabber, logger: logger}
}

// ReadFrameInto implements Video.
func (v *LiveDevice) ReadFrameInto(ctx context.Context, dst *Frame) error {
	for empty := 0; ; empty++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if empty >= emptyBurst {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(emptyBackoff):
			}
		}

		err := v.grabber.Grab(dst)
		if err == nil && !dst.Empty() {
			return nil
		}
		if err != nil && !errors.Is(err, ErrEmptyFrame) {
			return err
		}

		metrics.IncEmptyFrames()
		v.logger.Debug("Discarding empty frame")
	}
}

// TogglePause implements Video. Live devices cannot pause.
func (v *LiveDevice) TogglePause() {}

// Close implements Video.
func (v *LiveDevice) Close() error {
	return v.grabber.Close()
}
