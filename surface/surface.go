// Package surface provides the read-only color sampling surfaces that steer particles.
package surface

import (
	"image/color"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Surface is a color sampling plane. Implementations clamp out-of-range queries.
type Surface interface {
	// Size returns the plane dimensions in pixels.
	Size() (w, h int)
	// Pixel returns the color at p.
	Pixel(p r2.Vec) color.RGBA
	// AreaAverage returns the mean color inside b.
	AreaAverage(b r2.Box) color.RGBA
}

// Dimensions returns the size of s as a vector. A nil surface has zero size.
func Dimensions(s Surface) r2.Vec {
	if s == nil {
		return r2.Vec{}
	}
	w, h := s.Size()
	return r2.Vec{X: float64(w), Y: float64(h)}
}

// Luminance returns the Rec. 601 luma of c in [0, 1].
func Luminance(c color.RGBA) float64 {
	return (0.299*float64(c.R) + 0.587*float64(c.G) + 0.114*float64(c.B)) / 255
}

// Distance returns the Euclidean RGB distance between a and b, normalized to [0, 1].
func Distance(a, b color.RGBA) float64 {
	dr := float64(a.R) - float64(b.R)
	dg := float64(a.G) - float64(b.G)
	db := float64(a.B) - float64(b.B)
	return math.Sqrt(dr*dr+dg*dg+db*db) / (255 * math.Sqrt(3))
}
