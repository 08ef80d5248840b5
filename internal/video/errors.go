package video

import "errors"

var (
	// ErrDeviceOpen is returned when a device or file cannot be opened, or a
	// required capture parameter cannot be applied. It is fatal for the caller.
	ErrDeviceOpen = errors.New("unable to open video source")

	// ErrEmptyFrame is returned by a Grabber that produced no pixels.
	// The live backend retries on it.
	ErrEmptyFrame = errors.New("empty frame")

	// ErrEndOfStream is returned by a Decoder at the end of a recording.
	ErrEndOfStream = errors.New("end of stream")

	// ErrNoFrames is returned when a recording yields nothing even after rewinding.
	ErrNoFrames = errors.New("recording contains no frames")

	// ErrUnknownSource is returned for an unrecognized source kind.
	ErrUnknownSource = errors.New("unknown video source")
)
