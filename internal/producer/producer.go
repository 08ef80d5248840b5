//go:build linux

// Package producer captures frames from a video source and publishes them
// into the frame channel.
package producer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/smazurov/framebridge/internal/events"
	"github.com/smazurov/framebridge/internal/framechannel"
	"github.com/smazurov/framebridge/internal/metrics"
	"github.com/smazurov/framebridge/internal/video"
)

// DefaultProgressEvery is how many frames pass between progress logs.
const DefaultProgressEvery = 300

// Config configures a Producer.
type Config struct {
	// ChannelName defaults to framechannel.DefaultName.
	ChannelName string
	ChannelDir  string
	Width       int
	Height      int

	ProgressEvery int
	Bus           *events.Bus
	Logger        *slog.Logger

	// OnReady is called once the channel exists, before the first capture.
	OnReady func()
}

// Stats summarizes a run.
type Stats struct {
	Published   uint64
	Overwritten uint64
}

// Producer owns the frame channel for the lifetime of Run.
type Producer struct {
	cfg    Config
	src    video.Video
	logger *slog.Logger
	stats  Stats
}

// New creates a producer reading from src. src stays owned by the caller.
func New(src video.Video, cfg Config) *Producer {
	if cfg.ChannelName == "" {
		cfg.ChannelName = framechannel.DefaultName
	}
	if cfg.ProgressEvery <= 0 {
		cfg.ProgressEvery = DefaultProgressEvery
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Producer{cfg: cfg, src: src, logger: logger}
}

// Run creates the channel, then captures and publishes until ctx is cancelled
// or the source fails. The channel is destroyed on return. A clean shutdown
// returns nil.
func (p *Producer) Run(ctx context.Context) (err error) {
	ch, err := framechannel.Create(p.cfg.ChannelName, p.cfg.Width, p.cfg.Height, framechannel.WithDir(p.cfg.ChannelDir))
	if err != nil {
		return fmt.Errorf("create frame channel: %w", err)
	}
	defer func() {
		if closeErr := ch.Close(); closeErr != nil {
			p.logger.Warn("Failed to unmap frame channel", "error", closeErr)
		}
		if destroyErr := framechannel.Destroy(p.cfg.ChannelName, framechannel.WithDir(p.cfg.ChannelDir)); destroyErr != nil {
			p.logger.Warn("Failed to remove frame channel", "path", ch.Path(), "error", destroyErr)
			err = errors.Join(err, destroyErr)
		}
		p.cfg.Bus.Publish(events.ChannelDestroyedEvent{
			Name:      ch.Name(),
			Published: p.stats.Published,
			Timestamp: time.Now(),
		})
		p.logger.Info("Frame channel removed",
			"path", ch.Path(),
			"published", p.stats.Published,
			"overwritten", p.stats.Overwritten)
	}()

	p.logger.Info("Frame channel created", "path", ch.Path(), "width", ch.Width(), "height", ch.Height())
	p.cfg.Bus.Publish(events.ChannelCreatedEvent{
		Name:      ch.Name(),
		Path:      ch.Path(),
		Width:     ch.Width(),
		Height:    ch.Height(),
		Timestamp: time.Now(),
	})
	if p.cfg.OnReady != nil {
		p.cfg.OnReady()
	}

	frame := video.NewFrame(p.cfg.Width, p.cfg.Height)
	for {
		if err := p.src.ReadFrameInto(ctx, frame); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("capture frame: %w", err)
		}

		overwrote, err := ch.Publish(frame.Data)
		if err != nil {
			return fmt.Errorf("publish %dx%d frame: %w", frame.Width, frame.Height, err)
		}
		p.stats.Published++
		metrics.IncPublished()
		if overwrote {
			p.stats.Overwritten++
			metrics.IncOverwritten()
		}

		if p.stats.Published%uint64(p.cfg.ProgressEvery) == 0 {
			p.logger.Debug("Publishing frames",
				"published", p.stats.Published,
				"overwritten", p.stats.Overwritten)
		}
	}
}

// Stats returns the counters of the current or last run. Not safe to call
// concurrently with Run.
func (p *Producer) Stats() Stats {
	return p.stats
}
