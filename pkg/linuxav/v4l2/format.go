//go:build linux

package v4l2

import (
	"errors"
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Enumeration ioctls, identical on 32- and 64-bit since the structs hold no pointers.
const (
	vidiocEnumFmt        = 0xc0405602
	vidiocEnumFramesizes = 0xc02c564a
)

const (
	bufTypeVideoCapture = 1
	fmtFlagEmulated     = 0x0002
)

// Frame size types.
const (
	frmsizeTypeDiscrete   = 1
	frmsizeTypeContinuous = 2
	frmsizeTypeStepwise   = 3
)

// v4l2Fmtdesc has size 64 bytes.
type v4l2Fmtdesc struct {
	index       uint32    // offset 0
	typ         uint32    // offset 4
	flags       uint32    // offset 8
	description [32]byte  // offset 12
	pixelformat uint32    // offset 44
	mbusCode    uint32    // offset 48
	reserved    [3]uint32 // offset 52
}

type v4l2FrmsizeDiscrete struct {
	width  uint32
	height uint32
}

type v4l2FrmsizeStepwise struct {
	minWidth   uint32
	maxWidth   uint32
	stepWidth  uint32
	minHeight  uint32
	maxHeight  uint32
	stepHeight uint32
}

// v4l2Frmsizeenum has size 44 bytes. discrete overlays the stepwise union member.
type v4l2Frmsizeenum struct {
	index       uint32              // offset 0
	pixelFormat uint32              // offset 4
	typ         uint32              // offset 8
	discrete    v4l2FrmsizeDiscrete // offset 12
	_           [16]byte            // rest of the stepwise member
	reserved    [2]uint32           // offset 36
}

var (
	_ [64]byte = [unsafe.Sizeof(v4l2Fmtdesc{})]byte{}
	_ [24]byte = [unsafe.Sizeof(v4l2FrmsizeStepwise{})]byte{}
	_ [44]byte = [unsafe.Sizeof(v4l2Frmsizeenum{})]byte{}
)

// FormatInfo is one pixel format a capture node offers.
type FormatInfo struct {
	PixelFormat uint32
	FormatName  string
	Emulated    bool
}

// Resolution is a frame size in pixels.
type Resolution struct {
	Width  uint32
	Height uint32
}

func (r Resolution) String() string {
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}

// GetFormats returns the capture pixel formats of the node at path.
func GetFormats(path string) ([]FormatInfo, error) {
	fd, err := openNode(path)
	if err != nil {
		return nil, err
	}
	defer unix.Close(fd)

	var formats []FormatInfo
	for i := uint32(0); ; i++ {
		desc := v4l2Fmtdesc{index: i, typ: bufTypeVideoCapture}
		if err := ioctl(fd, vidiocEnumFmt, unsafe.Pointer(&desc)); err != nil {
			if errors.Is(err, unix.EINVAL) {
				return formats, nil
			}
			if errors.Is(err, unix.ENOTTY) {
				return nil, fmt.Errorf("%s: %w", path, ErrNotV4L2)
			}
			return nil, fmt.Errorf("enumerate format %d of %s: %w", i, path, err)
		}
		formats = append(formats, FormatInfo{
			PixelFormat: desc.pixelformat,
			FormatName:  cstr(desc.description[:]),
			Emulated:    desc.flags&fmtFlagEmulated != 0,
		})
	}
}

// GetResolutions returns the frame sizes offered for pixelFormat. Stepwise and
// continuous ranges are reported as the common sizes inside the range. A node
// that cannot enumerate sizes yields none and no error.
func GetResolutions(path string, pixelFormat uint32) ([]Resolution, error) {
	fd, err := openNode(path)
	if err != nil {
		return nil, err
	}
	defer unix.Close(fd)

	var resolutions []Resolution
	for i := uint32(0); ; i++ {
		size := v4l2Frmsizeenum{index: i, pixelFormat: pixelFormat}
		if err := ioctl(fd, vidiocEnumFramesizes, unsafe.Pointer(&size)); err != nil {
			if errors.Is(err, unix.EINVAL) {
				return resolutions, nil
			}
			if errors.Is(err, unix.ENOTTY) {
				return nil, nil
			}
			return nil, fmt.Errorf("enumerate frame size %d of %s: %w", i, path, err)
		}

		switch size.typ {
		case frmsizeTypeDiscrete:
			resolutions = append(resolutions, Resolution{Width: size.discrete.width, Height: size.discrete.height})
		case frmsizeTypeContinuous, frmsizeTypeStepwise:
			// The driver reports a single range entry.
			return append(resolutions, size.stepwise().Resolutions()...), nil
		}
	}
}

func (s *v4l2Frmsizeenum) stepwise() Stepwise {
	raw := (*v4l2FrmsizeStepwise)(unsafe.Pointer(&s.discrete))
	return Stepwise{
		MinWidth: raw.minWidth, MaxWidth: raw.maxWidth, StepWidth: raw.stepWidth,
		MinHeight: raw.minHeight, MaxHeight: raw.maxHeight, StepHeight: raw.stepHeight,
	}
}

// Stepwise is a frame size range. Zero steps mean any size in the range.
type Stepwise struct {
	MinWidth, MaxWidth, StepWidth    uint32
	MinHeight, MaxHeight, StepHeight uint32
}

var commonResolutions = []Resolution{
	{320, 240},
	{640, 480},
	{800, 600},
	{1024, 768},
	{1280, 720},
	{1280, 960},
	{1280, 1024},
	{1920, 1080},
	{1920, 1200},
	{2560, 1440},
	{3840, 2160},
	{4096, 2160},
}

// Contains reports whether width x height lies in the range and on its steps.
func (s Stepwise) Contains(width, height uint32) bool {
	return onStep(width, s.MinWidth, s.MaxWidth, s.StepWidth) &&
		onStep(height, s.MinHeight, s.MaxHeight, s.StepHeight)
}

// Resolutions returns the common sizes the range contains.
func (s Stepwise) Resolutions() []Resolution {
	var out []Resolution
	for _, r := range commonResolutions {
		if s.Contains(r.Width, r.Height) {
			out = append(out, r)
		}
	}
	return out
}

func onStep(v, lo, hi, step uint32) bool {
	if v < lo || v > hi {
		return false
	}
	return step <= 1 || (v-lo)%step == 0
}

// FormatFourCC converts a pixel format code to its four characters.
func FormatFourCC(format uint32) string {
	return string([]byte{
		byte(format),
		byte(format >> 8),
		byte(format >> 16),
		byte(format >> 24),
	})
}

// FourCC packs four characters into a pixel format code. Shorter strings are
// padded with spaces.
func FourCC(s string) uint32 {
	b := [4]byte{' ', ' ', ' ', ' '}
	copy(b[:], s)
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func openNode(path string) (int, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return -1, &os.PathError{Op: "open", Path: path, Err: err}
	}
	return fd, nil
}
