// Package cv captures frames through OpenCV. It is the only package that
// links gocv; importing it requires OpenCV at build time.
package cv

import (
	"fmt"

	"gocv.io/x/gocv"

	"github.com/smazurov/framebridge/internal/video"
)

// Backend opens devices and recordings through OpenCV.
var Backend = video.Backend{
	OpenDevice: func(path string, width, height int) (video.Grabber, error) {
		return OpenDevice(path, width, height)
	},
	OpenFile: func(path string) (video.Decoder, error) {
		return OpenFile(path)
	},
}

// Capture wraps an OpenCV VideoCapture as both video.Grabber and video.Decoder.
type Capture struct {
	vc  *gocv.VideoCapture
	mat gocv.Mat
	bgr gocv.Mat
}

// OpenDevice opens a V4L2 device and applies the output size.
// The device must accept the exact size.
func OpenDevice(path string, width, height int) (*Capture, error) {
	vc, err := gocv.OpenVideoCaptureWithAPI(path, gocv.VideoCaptureV4L2)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", video.ErrDeviceOpen, path, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("%w: %s", video.ErrDeviceOpen, path)
	}

	vc.Set(gocv.VideoCaptureFrameWidth, float64(width))
	if got := int(vc.Get(gocv.VideoCaptureFrameWidth)); got != width {
		vc.Close()
		return nil, fmt.Errorf("%w: unable to set capture frame width to %d (device reports %d)", video.ErrDeviceOpen, width, got)
	}
	vc.Set(gocv.VideoCaptureFrameHeight, float64(height))
	if got := int(vc.Get(gocv.VideoCaptureFrameHeight)); got != height {
		vc.Close()
		return nil, fmt.Errorf("%w: unable to set capture frame height to %d (device reports %d)", video.ErrDeviceOpen, height, got)
	}

	return newCapture(vc), nil
}

// OpenFile opens a recording.
func OpenFile(path string) (*Capture, error) {
	vc, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", video.ErrDeviceOpen, path, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("%w: %s", video.ErrDeviceOpen, path)
	}
	return newCapture(vc), nil
}

func newCapture(vc *gocv.VideoCapture) *Capture {
	return &Capture{vc: vc, mat: gocv.NewMat(), bgr: gocv.NewMat()}
}

// Grab implements video.Grabber. A device that OpenCV no longer reports as
// opened yields video.ErrDeviceOpen so the reader stops retrying.
func (c *Capture) Grab(dst *video.Frame) error {
	if !c.vc.IsOpened() {
		return fmt.Errorf("%w: device closed", video.ErrDeviceOpen)
	}
	if !c.vc.Read(&c.mat) || c.mat.Empty() {
		return video.ErrEmptyFrame
	}
	return c.toFrame(dst, video.ErrEmptyFrame)
}

// Decode implements video.Decoder.
func (c *Capture) Decode(dst *video.Frame) error {
	if !c.vc.Read(&c.mat) || c.mat.Empty() {
		return video.ErrEndOfStream
	}
	return c.toFrame(dst, video.ErrEndOfStream)
}

// Rewind implements video.Decoder.
func (c *Capture) Rewind() error {
	c.vc.Set(gocv.VideoCapturePosFrames, 0)
	return nil
}

// Close releases the capture and its buffers.
func (c *Capture) Close() error {
	c.mat.Close()
	c.bgr.Close()
	return c.vc.Close()
}

// toFrame copies the current mat into dst as BGR. A mat whose buffer is
// shorter than its header claims is reported as short.
func (c *Capture) toFrame(dst *video.Frame, short error) error {
	src := c.mat
	switch c.mat.Channels() {
	case 3:
	case 1:
		gocv.CvtColor(c.mat, &c.bgr, gocv.ColorGrayToBGR)
		src = c.bgr
	case 4:
		gocv.CvtColor(c.mat, &c.bgr, gocv.ColorBGRAToBGR)
		src = c.bgr
	default:
		return fmt.Errorf("unsupported channel count %d", c.mat.Channels())
	}

	data, err := src.DataPtrUint8()
	if err != nil {
		return fmt.Errorf("read frame data: %w", err)
	}
	return fill(dst, src.Cols(), src.Rows(), data, short)
}

// fill copies a width x height BGR buffer into dst, or returns short when
// data does not cover the frame.
func fill(dst *video.Frame, width, height int, data []byte, short error) error {
	if width <= 0 || height <= 0 || len(data) < width*height*video.Channels {
		dst.Resize(0, 0)
		return short
	}
	dst.Resize(width, height)
	copy(dst.Data, data)
	return nil
}
