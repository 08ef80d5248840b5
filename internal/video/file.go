package video

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
)

// Decoder reads frames from a recording.
// Decode returns ErrEndOfStream after the last frame; Rewind seeks to the first.
type Decoder interface {
	Decode(dst *Frame) error
	Rewind() error
	Close() error
}

// RecordedFile plays a recording in an endless loop, scaled to a fixed size.
// While paused it keeps returning the last decoded frame.
type RecordedFile struct {
	decoder Decoder
	scaler  Scaler
	width   int
	height  int
	paused  atomic.Bool
	last    Frame
	decoded bool
}

// NewRecordedFile wraps an opened decoder. Frames are scaled to width x height.
func NewRecordedFile(decoder Decoder, width, height int, scaler Scaler) *RecordedFile {
	if scaler == nil {
		scaler = BilinearScaler
	}
	return &RecordedFile{
		decoder: decoder,
		scaler:  scaler,
		width:   width,
		height:  height,
	}
}

// ReadFrameInto implements Video.
func (v *RecordedFile) ReadFrameInto(ctx context.Context, dst *Frame) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if !v.paused.Load() || !v.decoded {
		if err := v.next(); err != nil {
			return err
		}
	}

	v.scaler.Scale(dst, &v.last, v.width, v.height)
	return nil
}

func (v *RecordedFile) next() error {
	err := v.decoder.Decode(&v.last)
	if errors.Is(err, ErrEndOfStream) {
		if rewindErr := v.decoder.Rewind(); rewindErr != nil {
			return fmt.Errorf("rewind recording: %w", rewindErr)
		}
		err = v.decoder.Decode(&v.last)
		if errors.Is(err, ErrEndOfStream) {
			return ErrNoFrames
		}
	}
	if err != nil {
		return err
	}
	if v.last.Empty() {
		return ErrNoFrames
	}
	v.decoded = true
	return nil
}

// TogglePause implements Video.
func (v *RecordedFile) TogglePause() {
	for {
		old := v.paused.Load()
		if v.paused.CompareAndSwap(old, !old) {
			return
		}
	}
}

// Paused reports whether playback is frozen.
func (v *RecordedFile) Paused() bool {
	return v.paused.Load()
}

// Close implements Video.
func (v *RecordedFile) Close() error {
	return v.decoder.Close()
}
