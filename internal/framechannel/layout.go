package framechannel

// Capacity of the payload. Every participant must be built with the same values.
const (
	MaxWidth    = 1920
	MaxHeight   = 1080
	MaxChannels = 3
)

// Channels is the only supported channel count (interleaved 8-bit BGR).
const Channels = 3

// DefaultName is the well-known region name shared by producers and consumers.
const DefaultName = "frame"

// DefaultDir is where POSIX shared memory objects live on Linux.
const DefaultDir = "/dev/shm"

// Magic marks a fully initialized region ("FDS1").
const Magic uint32 = 0x46445331

const (
	offLock     = 0
	offCond     = 4
	offReady    = 8
	offWidth    = 12
	offHeight   = 16
	offChannels = 20
	offMagic    = 24
	offSequence = 32

	// HeaderSize is the size of the control block preceding the payload.
	HeaderSize = 64

	// PayloadSize is the fixed payload capacity in bytes.
	PayloadSize = MaxWidth * MaxHeight * MaxChannels

	// RegionSize is the total size of the shared region.
	RegionSize = HeaderSize + PayloadSize
)

// FrameSize returns the payload byte count of a width x height frame.
func FrameSize(width, height int) int {
	return width * height * Channels
}

// ValidateDimensions reports whether a width x height frame fits the payload.
func ValidateDimensions(width, height int) error {
	if width <= 0 || height <= 0 {
		return ErrInvalidDimensions
	}
	if width > MaxWidth || height > MaxHeight || FrameSize(width, height) > PayloadSize {
		return ErrFrameTooLarge
	}
	return nil
}
