package video

import (
	"golang.org/x/image/draw"
)

// Scaler resizes src into dst at width x height.
type Scaler interface {
	Scale(dst, src *Frame, width, height int)
}

// ScalerFunc adapts a function to Scaler.
type ScalerFunc func(dst, src *Frame, width, height int)

// Scale implements Scaler.
func (fn ScalerFunc) Scale(dst, src *Frame, width, height int) { fn(dst, src, width, height) }

// BilinearScaler scales with golang.org/x/image/draw.ApproxBiLinear.
// A src already at the target size is copied as is.
var BilinearScaler Scaler = ScalerFunc(func(dst, src *Frame, width, height int) {
	if src.Width == width && src.Height == height {
		dst.CopyFrom(src)
		return
	}
	dst.Resize(width, height)
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
})
