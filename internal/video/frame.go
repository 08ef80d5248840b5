package video

import (
	"image"
	"image/color"
)

// Channels is the number of interleaved 8-bit channels in a Frame.
const Channels = 3

// Frame is a dense row-major BGR image, Width*Height*Channels bytes.
// Frame implements image.Image and draw.Image so it can be scaled and encoded
// with the standard image packages.
type Frame struct {
	Width  int
	Height int
	Data   []byte
}

// NewFrame allocates a zeroed width x height frame.
func NewFrame(width, height int) *Frame {
	f := &Frame{}
	f.Resize(width, height)
	return f
}

// Resize sets the dimensions, reusing Data when it is large enough.
// Pixel contents are unspecified afterwards.
func (f *Frame) Resize(width, height int) {
	size := width * height * Channels
	if cap(f.Data) < size {
		f.Data = make([]byte, size)
	}
	f.Data = f.Data[:size]
	f.Width, f.Height = width, height
}

// Empty reports whether the frame holds no pixels.
func (f *Frame) Empty() bool {
	return f == nil || f.Width <= 0 || f.Height <= 0 || len(f.Data) < f.Width*f.Height*Channels
}

// CopyFrom makes f an independent copy of src. An empty src leaves f empty
// instead of a zero-padded frame of the header size.
func (f *Frame) CopyFrom(src *Frame) {
	if src.Empty() {
		f.Resize(0, 0)
		return
	}
	f.Resize(src.Width, src.Height)
	copy(f.Data, src.Data)
}

// Fill sets every pixel to the given BGR value.
func (f *Frame) Fill(b, g, r byte) {
	for i := 0; i+2 < len(f.Data); i += Channels {
		f.Data[i], f.Data[i+1], f.Data[i+2] = b, g, r
	}
}

// ColorModel implements image.Image.
func (f *Frame) ColorModel() color.Model { return color.RGBAModel }

// Bounds implements image.Image.
func (f *Frame) Bounds() image.Rectangle { return image.Rect(0, 0, f.Width, f.Height) }

// At implements image.Image.
func (f *Frame) At(x, y int) color.Color {
	if x < 0 || y < 0 || x >= f.Width || y >= f.Height {
		return color.RGBA{}
	}
	i := (y*f.Width + x) * Channels
	return color.RGBA{R: f.Data[i+2], G: f.Data[i+1], B: f.Data[i], A: 0xff}
}

// Set implements draw.Image.
func (f *Frame) Set(x, y int, c color.Color) {
	if x < 0 || y < 0 || x >= f.Width || y >= f.Height {
		return
	}
	rgba := color.RGBAModel.Convert(c).(color.RGBA)
	i := (y*f.Width + x) * Channels
	f.Data[i], f.Data[i+1], f.Data[i+2] = rgba.B, rgba.G, rgba.R
}
