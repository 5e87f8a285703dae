package systems

import (
	"math"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/flockdraw/components"
	"github.com/pthm-cable/flockdraw/config"
	"github.com/pthm-cable/flockdraw/surface"
)

// KinematicsSystem advances every particle in the world by one tick.
// It does not touch the spatial grid.
type KinematicsSystem struct {
	filter ecs.Filter3[components.Kinematics, components.Lifetime, components.Appearance]
}

// NewKinematicsSystem creates a new kinematics system.
func NewKinematicsSystem(w *ecs.World) *KinematicsSystem {
	return &KinematicsSystem{
		filter: *ecs.NewFilter3[components.Kinematics, components.Lifetime, components.Appearance](w),
	}
}

// Update integrates all particles and returns how many were advanced.
// surf may be nil.
func (s *KinematicsSystem) Update(now, dt float64, surf surface.Surface, cfg *config.Config) int {
	n := 0
	query := s.filter.Query()
	for query.Next() {
		k, life, look := query.Get()
		UpdateParticle(k, life, look, now, dt, surf, cfg)
		n++
	}
	return n
}

// UpdateParticle advances a single particle: integration, speed clamp, position
// advance and wrap, image-guided steering, fade and color sampling.
func UpdateParticle(k *components.Kinematics, life *components.Lifetime, look *components.Appearance, now, dt float64, surf surface.Surface, cfg *config.Config) {
	pc := &cfg.Particle

	if !finite(k.Acc) {
		k.Acc = r2.Vec{}
	}

	k.Vel = r2.Add(k.Vel, k.Acc)
	k.Dir = SafeUnit(k.Vel, k.Dir)
	k.Acc = r2.Scale(pc.Dampness, k.Acc)

	ClampSpeed(k, pc.SpeedClamp)

	next := r2.Add(k.Pos, r2.Scale(dt*pc.SpeedRatio, k.Vel))
	if finite(next) {
		k.Pos = next
	}

	if surf != nil {
		k.Pos = WrapPosition(k.Pos, surface.Dimensions(surf))
		if cfg.Steering.Enabled {
			Steer(k, surf, dt, &cfg.Steering)
		}
	}

	life.Fade = Fade(life, now)

	if surf != nil {
		SampleColor(k, look, surf, pc.MinRadius)
	}
}

// ClampSpeed keeps |Vel|² within [MinSpeedSq, MaxSpeedSq] along Dir.
// In squared mode the new magnitude is the bound itself.
func ClampSpeed(k *components.Kinematics, mode string) {
	speedSq := r2.Norm2(k.Vel)
	magnitude := func(bound float64) float64 {
		if mode == config.ClampSquared {
			return bound
		}
		return math.Sqrt(bound)
	}

	switch {
	case k.MaxSpeedSq > 0 && speedSq > k.MaxSpeedSq:
		k.Vel = r2.Scale(magnitude(k.MaxSpeedSq), k.Dir)
	case speedSq < k.MinSpeedSq:
		k.Vel = r2.Scale(magnitude(k.MinSpeedSq), k.Dir)
	}
}

// Fade returns the opacity factor at now.
// It ramps in over [Spawn, FadeIn] and out over [FadeOut, Death] for mortal particles.
func Fade(l *components.Lifetime, now float64) float64 {
	f := 1.0
	if l.FadeIn > l.Spawn && now < l.FadeIn {
		f = (now - l.Spawn) / (l.FadeIn - l.Spawn)
	}
	if l.Mortal() && l.Death > l.FadeOut && now > l.FadeOut {
		f = min(f, (l.Death-now)/(l.Death-l.FadeOut))
	}
	return clamp01(f)
}

// SampleColor averages the surface under the particle's footprint and scales
// the radius by the sample's luminance.
func SampleColor(k *components.Kinematics, look *components.Appearance, surf surface.Surface, minRadius float64) {
	r := r2.Vec{X: look.MaxRadius, Y: look.MaxRadius}
	look.Color = surf.AreaAverage(r2.Box{Min: r2.Sub(k.Pos, r), Max: r2.Add(k.Pos, r)})
	look.Radius = max(minRadius, look.MaxRadius*surface.Luminance(look.Color))
}
