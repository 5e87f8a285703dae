package systems

import (
	"image/color"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/flockdraw/components"
	"github.com/pthm-cable/flockdraw/config"
	"github.com/pthm-cable/flockdraw/surface"
)

// Steer turns the velocity toward the probe that sees the larger color change.
// Two probes sit ProbeDistance ahead of the particle, rotated by ±ConeAngle.
// Returns the applied rotation in radians (positive is counter-clockwise).
func Steer(k *components.Kinematics, surf surface.Surface, dt float64, cfg *config.SteeringConfig) float64 {
	probe := r2.Scale(cfg.ProbeDistance, k.Dir)
	cone := cfg.ConeAngle * degToRad

	here := surf.Pixel(k.Pos)
	left := surf.Pixel(r2.Add(k.Pos, Rotate(probe, cone)))
	right := surf.Pixel(r2.Add(k.Pos, Rotate(probe, -cone)))

	dl := contrast(here, left, cfg.Metric)
	dr := contrast(here, right, cfg.Metric)

	step := cfg.SteerRate * cfg.ColorRedirection * dt * degToRad
	var angle float64
	switch {
	case dl > dr:
		angle = step
	case dr > dl:
		angle = -step
	default:
		return 0
	}

	k.Vel = Rotate(k.Vel, angle)
	k.Dir = SafeUnit(k.Vel, k.Dir)
	return angle
}

// contrast measures how different b is from a under the given metric.
func contrast(a, b color.RGBA, metric string) float64 {
	if metric == config.MetricColor {
		return surface.Distance(a, b)
	}
	d := surface.Luminance(a) - surface.Luminance(b)
	if d < 0 {
		return -d
	}
	return d
}
