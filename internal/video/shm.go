package video

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/smazurov/framebridge/internal/framechannel"
	"github.com/smazurov/framebridge/internal/metrics"
)

// DefaultRetryInterval is the attach backoff while the producer has not started.
const DefaultRetryInterval = time.Second

// SharedMemoryConfig locates the frame channel.
type SharedMemoryConfig struct {
	Name          string
	Dir           string
	RetryInterval time.Duration
	Logger        *slog.Logger
}

// SharedMemory consumes frames published by a producer process.
type SharedMemory struct {
	ch     *framechannel.Channel
	logger *slog.Logger
}

// NewSharedMemory attaches to the frame channel, retrying at a fixed interval
// until the producer has created it or ctx is done.
func NewSharedMemory(ctx context.Context, cfg SharedMemoryConfig) (*SharedMemory, error) {
	if cfg.Name == "" {
		cfg.Name = framechannel.DefaultName
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = DefaultRetryInterval
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ch, err := Attach(ctx, cfg.Name, cfg.RetryInterval, logger, framechannel.WithDir(cfg.Dir))
	if err != nil {
		return nil, err
	}

	logger.Info("Attached to frame channel",
		"path", ch.Path(),
		"width", ch.Width(),
		"height", ch.Height())
	return &SharedMemory{ch: ch, logger: logger}, nil
}

// Attach opens the named channel, sleeping interval between attempts while it
// does not exist. Other errors are returned at once.
func Attach(ctx context.Context, name string, interval time.Duration, logger *slog.Logger, opts ...framechannel.Option) (*framechannel.Channel, error) {
	for attempt := 1; ; attempt++ {
		ch, err := framechannel.Open(name, opts...)
		if err == nil {
			return ch, nil
		}
		if !errors.Is(err, framechannel.ErrNotExist) {
			return nil, err
		}

		metrics.IncAttachRetries()
		if attempt == 1 {
			logger.Info("Waiting for producer to create frame channel", "name", name, "retry_interval", interval)
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// ReadFrameInto implements Video. It blocks until the producer flags a frame.
func (v *SharedMemory) ReadFrameInto(ctx context.Context, dst *Frame) error {
	start := time.Now()
	data, hdr, err := v.ch.ReadInto(ctx, dst.Data)
	if err != nil {
		return err
	}
	metrics.ObserveConsumerRead(time.Since(start))

	dst.Data = data
	dst.Width = hdr.Width
	dst.Height = hdr.Height
	return nil
}

// TogglePause implements Video. The producer decides what is live.
func (v *SharedMemory) TogglePause() {}

// Channel exposes the attached channel.
func (v *SharedMemory) Channel() *framechannel.Channel {
	return v.ch
}

// Close implements Video. The region itself belongs to the producer.
func (v *SharedMemory) Close() error {
	return v.ch.Close()
}
