//go:build linux

// Package devices resolves capture device paths.
package devices

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultPattern matches the udev symlinks created for Logitech C920 cameras.
const DefaultPattern = "/dev/c920-*"

// FindDefault returns the lexicographically first path matching pattern, or
// false when nothing matches. An empty pattern means DefaultPattern. The
// filesystem is read on every call.
func FindDefault(pattern string) (string, bool) {
	matches := glob(pattern)
	if len(matches) == 0 {
		return "", false
	}
	return matches[0], true
}

// Device is one discovered capture device node.
type Device struct {
	Path string `json:"path" example:"/dev/c920-0" doc:"Device node or symlink"`
	// Target is the resolved node, e.g. /dev/video2, or Path when not a symlink.
	Target string `json:"target" example:"/dev/video2" doc:"Resolved device node"`
	Card   string `json:"card,omitempty" example:"HD Pro Webcam C920" doc:"V4L2 card name"`
	Driver string `json:"driver,omitempty" example:"uvcvideo" doc:"V4L2 driver"`
	// Capture is false when the node could not be queried or is not a capture node.
	Capture bool     `json:"capture" doc:"Whether the node supports video capture"`
	Formats []Format `json:"formats,omitempty" doc:"Pixel formats and frame sizes offered"`
	Error   string   `json:"error,omitempty" doc:"Why the node could not be queried"`
}

// Format is one pixel format with the frame sizes offered for it.
type Format struct {
	FourCC      string       `json:"fourcc" example:"MJPG" doc:"Pixel format code"`
	Name        string       `json:"name" example:"Motion-JPEG" doc:"Driver description"`
	Emulated    bool         `json:"emulated,omitempty" doc:"Converted in software by libv4l"`
	Resolutions []Resolution `json:"resolutions,omitempty" doc:"Frame sizes"`
}

// Resolution is a frame size in pixels.
type Resolution struct {
	Width  int `json:"width" example:"640"`
	Height int `json:"height" example:"480"`
}

func (r Resolution) String() string {
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}

// ErrUnsupportedResolution is returned when a device does not offer the requested frame size.
var ErrUnsupportedResolution = errors.New("resolution not offered by device")

// Sizes returns the distinct frame sizes over all formats, in first-seen order.
func (d Device) Sizes() []Resolution {
	return sizes(d.Formats)
}

func sizes(formats []Format) []Resolution {
	seen := make(map[Resolution]bool)
	var out []Resolution
	for _, f := range formats {
		for _, r := range f.Resolutions {
			if !seen[r] {
				seen[r] = true
				out = append(out, r)
			}
		}
	}
	return out
}

func checkResolution(formats []Format, width, height int) error {
	offered := sizes(formats)
	if len(offered) == 0 {
		return nil
	}
	want := Resolution{Width: width, Height: height}
	names := make([]string, 0, len(offered))
	for _, r := range offered {
		if r == want {
			return nil
		}
		names = append(names, r.String())
	}
	return fmt.Errorf("%w: %s, choose one of %s", ErrUnsupportedResolution, want, strings.Join(names, ", "))
}

// List returns every node matching pattern, sorted, with its V4L2 details.
func List(pattern string) []Device {
	matches := glob(pattern)
	devices := make([]Device, 0, len(matches))
	for _, path := range matches {
		d := Device{Path: path, Target: path}
		if target, err := filepath.EvalSymlinks(path); err == nil {
			d.Target = target
		}
		if err := describe(&d); err != nil {
			d.Error = err.Error()
		}
		devices = append(devices, d)
	}
	return devices
}

func glob(pattern string) []string {
	if pattern == "" {
		pattern = DefaultPattern
	}
	// Only ErrBadPattern is possible; a malformed pattern matches nothing.
	matches, _ := filepath.Glob(pattern)
	sort.Strings(matches)
	return matches
}
