package emitter

import (
	"image/color"
	"math"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/flockdraw/components"
	"github.com/pthm-cable/flockdraw/surface"
	"github.com/pthm-cable/flockdraw/systems"
)

// AddParticles spawns count particles in group and returns their handles.
//
// With a surface bound, particles appear inside an emission area of
// Emitter.EmissionArea times the surface size, placed at random; otherwise
// they all start at Position. Headings share one random base angle per call
// so a burst moves coherently.
func (e *Emitter) AddParticles(count, group int) []ecs.Entity {
	if count <= 0 {
		return nil
	}

	ec := &e.cfg.Emitter
	pc := &e.cfg.Particle

	origin, area := e.Position, r2.Vec{}
	if e.surf != nil {
		size := surface.Dimensions(e.surf)
		area = r2.Scale(ec.EmissionArea, size)
		origin = r2.Vec{
			X: e.rng.Float64() * math.Max(size.X-area.X, 0),
			Y: e.rng.Float64() * math.Max(size.Y-area.Y, 0),
		}
	}

	base := e.rng.Float64() * 2 * math.Pi
	mortal := ec.MinLifeTime < ec.MaxLifeTime

	entities := make([]ecs.Entity, 0, count)
	for range count {
		angle := base + (e.rng.Float64()*2-1)*ec.HeadingSpread
		dir := r2.Vec{X: math.Sin(angle), Y: math.Cos(angle)}

		k := components.Kinematics{
			Pos: r2.Vec{
				X: origin.X + e.rng.Float64()*area.X,
				Y: origin.Y + e.rng.Float64()*area.Y,
			},
			Dir:        dir,
			Acc:        r2.Scale(pc.Kick, dir),
			MinSpeedSq: uniform(e.rng.Float64(), pc.MinSpeedSqLo, pc.MinSpeedSqHi),
			MaxSpeedSq: uniform(e.rng.Float64(), pc.MaxSpeedSqLo, pc.MaxSpeedSqHi),
		}
		k.Stable = k.Pos

		life := components.Lifetime{
			Spawn:  e.now,
			Death:  components.Immortal,
			FadeIn: e.now,
			Fade:   1,
		}
		if mortal {
			life.Death = e.now + uniform(e.rng.Float64(), ec.MinLifeTime, ec.MaxLifeTime)
			life.FadeIn = e.now + ec.FadeInTime
			life.FadeOut = math.Max(life.Death-ec.FadeOutTime, e.now)
			life.Fade = systems.Fade(&life, e.now)
		}

		look := components.Appearance{
			Color:     color.RGBA{R: 255, G: 255, B: 255, A: 255},
			Radius:    pc.Radius,
			MaxRadius: pc.Radius,
		}
		if e.surf != nil {
			systems.SampleColor(&k, &look, e.surf, pc.MinRadius)
		}

		e.nextID++
		fl := components.Flock{ID: e.nextID, Group: group}

		entity := e.mapper.NewEntity(&k, &life, &look, &fl)
		entities = append(entities, entity)
	}

	if e.grid != nil && !e.gridDirty {
		for _, entity := range entities {
			e.grid.Insert(entity)
		}
	}

	e.spawned += count
	if e.collector != nil {
		e.collector.RecordSpawn(count)
	}
	return entities
}

// uniform maps u in [0,1) onto [lo, hi).
func uniform(u, lo, hi float64) float64 {
	return lo + u*(hi-lo)
}
