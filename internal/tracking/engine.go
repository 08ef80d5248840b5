package tracking

import (
	"context"

	"github.com/smazurov/framebridge/internal/video"
)

// Result is the outcome of one pose estimation step.
type Result struct {
	Pose      Pose
	Transform Matrix4
	// Depth holds one value per pixel, row-major, zero where the object is absent.
	Depth []float32
	Lost  bool
}

// Engine estimates the pose of the tracked object in a frame. Implementations
// live outside this module; NopEngine stands in when none is linked.
type Engine interface {
	Estimate(ctx context.Context, frame *video.Frame) (Result, error)
}

// NopEngine reports a fixed pose and never sees the object.
type NopEngine struct {
	Pose  Pose
	depth []float32
}

// NewNopEngine returns an engine holding pose.
func NewNopEngine(pose Pose) *NopEngine {
	return &NopEngine{Pose: pose}
}

// Estimate implements Engine.
func (e *NopEngine) Estimate(_ context.Context, frame *video.Frame) (Result, error) {
	n := frame.Width * frame.Height
	if cap(e.depth) < n {
		e.depth = make([]float32, n)
	}
	e.depth = e.depth[:n]
	clear(e.depth)
	return Result{
		Pose:      e.Pose,
		Transform: e.Pose.Matrix(),
		Depth:     e.depth,
		Lost:      true,
	}, nil
}
