package framechannel

import "errors"

var (
	// ErrNotExist is returned by Open while the producer has not created the region yet.
	// Callers are expected to retry.
	ErrNotExist = errors.New("frame channel does not exist yet")

	// ErrResource is returned when the region cannot be created or mapped.
	ErrResource = errors.New("frame channel resource error")

	// ErrLayoutMismatch is returned when an existing region has a foreign size or magic.
	ErrLayoutMismatch = errors.New("frame channel layout mismatch")

	// ErrInvalidDimensions is returned for non-positive width or height.
	ErrInvalidDimensions = errors.New("invalid frame dimensions")

	// ErrFrameTooLarge is returned when a frame exceeds the payload capacity.
	ErrFrameTooLarge = errors.New("frame exceeds channel capacity")

	// ErrFrameSize is returned when a published frame does not match the channel dimensions.
	ErrFrameSize = errors.New("frame size does not match channel dimensions")

	// ErrClosed is returned by operations on a closed channel.
	ErrClosed = errors.New("frame channel closed")
)
