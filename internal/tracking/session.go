// Package tracking runs the frame loop of the tracking application: frames
// from a Video go through a pose Engine and, while enabled, into a Recorder.
package tracking

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/smazurov/framebridge/internal/events"
	"github.com/smazurov/framebridge/internal/metrics"
	"github.com/smazurov/framebridge/internal/video"
)

// Recorder persists frames with their pose.
type Recorder interface {
	Update(frame *video.Frame, depth []float32, pose Matrix4) error
	Toggle() bool
	Recording() bool
	Frames() int
	Dir() string
}

// pauser is implemented by sources that can report their pause state.
type pauser interface {
	Paused() bool
}

// Config wires a Session.
type Config struct {
	Video    video.Video
	Engine   Engine
	Recorder Recorder // optional
	Bus      *events.Bus
	Logger   *slog.Logger
}

// Status is a snapshot of a running session.
type Status struct {
	Frames    uint64 `json:"frames" doc:"Frames processed"`
	Paused    bool   `json:"paused" doc:"Whether the video source is paused"`
	Recording bool   `json:"recording" doc:"Whether frames are being recorded"`
	Recorded  int    `json:"recorded" doc:"Frames written to the recording"`
	Lost      bool   `json:"lost" doc:"Whether the engine lost the object"`
	Pose      Pose   `json:"pose" doc:"Last estimated pose"`
}

// Session drives one tracking run. TogglePause, ToggleRecording and Status
// are safe to call while Run is active.
type Session struct {
	cfg    Config
	logger *slog.Logger

	frames atomic.Uint64
	paused atomic.Bool
	lost   atomic.Bool
	pose   atomic.Pointer[Pose]
}

// NewSession validates cfg.
func NewSession(cfg Config) (*Session, error) {
	if cfg.Video == nil {
		return nil, fmt.Errorf("tracking: no video source")
	}
	if cfg.Engine == nil {
		return nil, fmt.Errorf("tracking: no engine")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{cfg: cfg, logger: logger}, nil
}

// Run processes frames until ctx is done or a step fails. Cancellation is a
// clean stop and returns nil.
func (s *Session) Run(ctx context.Context) error {
	var frame video.Frame
	for {
		if err := s.cfg.Video.ReadFrameInto(ctx, &frame); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read frame: %w", err)
		}

		res, err := s.cfg.Engine.Estimate(ctx, &frame)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("estimate pose: %w", err)
		}
		s.pose.Store(&res.Pose)
		if was := s.lost.Swap(res.Lost); was != res.Lost {
			s.logger.Info("Tracking state changed", "lost", res.Lost)
		}

		if s.cfg.Recorder != nil {
			if err := s.cfg.Recorder.Update(&frame, res.Depth, res.Transform); err != nil {
				return fmt.Errorf("record frame: %w", err)
			}
		}

		n := s.frames.Add(1)
		metrics.IncTrackingFrames()
		if n%300 == 0 {
			s.logger.Debug("Tracking", "frames", n, "lost", res.Lost)
		}
	}
}

// TogglePause pauses or resumes the video source.
func (s *Session) TogglePause() {
	s.cfg.Video.TogglePause()

	var paused bool
	if p, ok := s.cfg.Video.(pauser); ok {
		paused = p.Paused()
	} else {
		paused = !s.paused.Load()
	}
	s.paused.Store(paused)

	s.logger.Info("Video pause toggled", "paused", paused)
	s.cfg.Bus.Publish(events.PauseToggledEvent{Paused: paused, Timestamp: time.Now()})
}

// ToggleRecording starts or stops recording. Without a recorder it does nothing.
func (s *Session) ToggleRecording() {
	if s.cfg.Recorder == nil {
		s.logger.Warn("Recording requested but no recording directory is configured")
		return
	}
	on := s.cfg.Recorder.Toggle()
	s.logger.Info("Recording toggled", "recording", on, "frames", s.cfg.Recorder.Frames(), "dir", s.cfg.Recorder.Dir())
	s.cfg.Bus.Publish(events.RecordingToggledEvent{
		Recording: on,
		Dir:       s.cfg.Recorder.Dir(),
		Frames:    s.cfg.Recorder.Frames(),
		Timestamp: time.Now(),
	})
}

// Status returns the current counters and state.
func (s *Session) Status() Status {
	st := Status{
		Frames: s.frames.Load(),
		Paused: s.paused.Load(),
		Lost:   s.lost.Load(),
	}
	if p := s.pose.Load(); p != nil {
		st.Pose = *p
	}
	if s.cfg.Recorder != nil {
		st.Recording = s.cfg.Recorder.Recording()
		st.Recorded = s.cfg.Recorder.Frames()
	}
	return st
}
