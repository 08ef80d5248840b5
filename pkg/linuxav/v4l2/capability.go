//go:build linux

// Package v4l2 queries Video4Linux2 capture devices.
package v4l2

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// VIDIOC_QUERYCAP, _IOR('V', 0, struct v4l2_capability).
const vidiocQuerycap = 0x80685600

// Capability flags.
const (
	CapVideoCapture = 0x00000001
	CapStreaming    = 0x04000000
	capDeviceCaps   = 0x80000000
)

// ErrNotV4L2 is returned for files that do not answer VIDIOC_QUERYCAP.
var ErrNotV4L2 = errors.New("not a V4L2 device")

// v4l2Capability has size 104 bytes on every architecture.
type v4l2Capability struct {
	driver       [16]byte  // offset 0
	card         [32]byte  // offset 16
	busInfo      [32]byte  // offset 48
	version      uint32    // offset 80
	capabilities uint32    // offset 84
	deviceCaps   uint32    // offset 88
	reserved     [3]uint32 // offset 92
}

var _ [104]byte = [unsafe.Sizeof(v4l2Capability{})]byte{}

// Capability describes a device node.
type Capability struct {
	Driver  string
	Card    string
	BusInfo string
	Version uint32
	// Caps holds the capabilities of this node, not of the whole physical device.
	Caps uint32
}

// IsCapture reports whether the node can capture video.
func (c Capability) IsCapture() bool {
	return c.Caps&CapVideoCapture != 0
}

// QueryCapability opens path read-only and issues VIDIOC_QUERYCAP.
func QueryCapability(path string) (Capability, error) {
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return Capability{}, &os.PathError{Op: "open", Path: path, Err: err}
	}
	defer unix.Close(fd)

	var raw v4l2Capability
	if err := ioctl(fd, vidiocQuerycap, unsafe.Pointer(&raw)); err != nil {
		if errors.Is(err, unix.ENOTTY) || errors.Is(err, unix.EINVAL) {
			return Capability{}, fmt.Errorf("%s: %w", path, ErrNotV4L2)
		}
		return Capability{}, fmt.Errorf("VIDIOC_QUERYCAP %s: %w", path, err)
	}
	return raw.decode(), nil
}

func (raw *v4l2Capability) decode() Capability {
	caps := raw.capabilities
	if caps&capDeviceCaps != 0 {
		caps = raw.deviceCaps
	}
	return Capability{
		Driver:  cstr(raw.driver[:]),
		Card:    cstr(raw.card[:]),
		BusInfo: cstr(raw.busInfo[:]),
		Version: raw.version,
		Caps:    caps,
	}
}

// ioctl retries on EINTR.
func ioctl(fd int, req uintptr, arg unsafe.Pointer) error {
	for {
		_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), req, uintptr(arg))
		switch errno {
		case 0:
			return nil
		case unix.EINTR:
			continue
		default:
			return errno
		}
	}
}

// cstr converts a null-terminated byte slice to a Go string.
func cstr(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		return string(b[:i])
	}
	return string(b)
}
