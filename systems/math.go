package systems

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

const degToRad = math.Pi / 180

// SafeUnit returns the unit vector of v, or fallback when v has no direction.
// r2.Unit yields NaN for the zero vector.
func SafeUnit(v, fallback r2.Vec) r2.Vec {
	n := r2.Norm(v)
	if n == 0 || math.IsNaN(n) || math.IsInf(n, 0) {
		return fallback
	}
	return r2.Scale(1/n, v)
}

// Rotate turns v counter-clockwise by angle radians around the origin.
func Rotate(v r2.Vec, angle float64) r2.Vec {
	return r2.Rotate(v, angle, r2.Vec{})
}

// wrap maps v into [0, size). Degenerate sizes leave v unchanged.
func wrap(v, size float64) float64 {
	if !(size > 0) {
		return v
	}
	v = math.Mod(v, size)
	if v < 0 {
		v += size
	}
	// -tiny + size can round up to size
	if v >= size {
		v = 0
	}
	return v
}

// WrapPosition maps p into [0, size.X) x [0, size.Y).
func WrapPosition(p, size r2.Vec) r2.Vec {
	return r2.Vec{X: wrap(p.X, size.X), Y: wrap(p.Y, size.Y)}
}

// finite reports whether both components are finite numbers.
func finite(v r2.Vec) bool {
	return !math.IsNaN(v.X) && !math.IsNaN(v.Y) && !math.IsInf(v.X, 0) && !math.IsInf(v.Y, 0)
}

// clamp01 clamps a value to the [0, 1] range.
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
