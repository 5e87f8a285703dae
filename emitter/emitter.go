// Package emitter owns the particle collection and runs the flocking tick:
// emission, retirement, neighbor interaction and integration.
package emitter

import (
	"errors"
	"fmt"
	"image/color"
	"iter"
	"log/slog"
	"math/rand"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/flockdraw/components"
	"github.com/pthm-cable/flockdraw/config"
	"github.com/pthm-cable/flockdraw/surface"
	"github.com/pthm-cable/flockdraw/systems"
	"github.com/pthm-cable/flockdraw/telemetry"
)

// ErrNilConfig is returned by New without a configuration.
var ErrNilConfig = errors.New("emitter: nil config")

// View is a read-only render record of one live particle.
type View struct {
	Entity ecs.Entity
	ID     uint32
	Group  int
	Pos    r2.Vec // simulation position plus the emitter offset
	Dir    r2.Vec
	Radius float64    // scaled by Particle.SizeRatio
	Color  color.RGBA // alpha carries the fade factor
}

// Option configures an Emitter.
type Option func(*Emitter)

// WithSurface binds the color sampling surface.
func WithSurface(s surface.Surface) Option {
	return func(e *Emitter) { e.surf = s }
}

// WithSeed seeds the emitter's random source.
func WithSeed(seed int64) Option {
	return func(e *Emitter) { e.rng = rand.New(rand.NewSource(seed)) }
}

// WithRand uses r as the random source.
func WithRand(r *rand.Rand) Option {
	return func(e *Emitter) { e.rng = r }
}

// WithCollector reports spawn, retire and interaction counts to c.
func WithCollector(c *telemetry.Collector) Option {
	return func(e *Emitter) { e.collector = c }
}

// WithPerf times tick phases with p. The host brackets each Update with
// StartTick and EndTick so its own work can be timed in the same sample.
func WithPerf(p *telemetry.PerfCollector) Option {
	return func(e *Emitter) { e.perf = p }
}

// WithOffset sets the draw offset applied by Particles.
func WithOffset(o r2.Vec) Option {
	return func(e *Emitter) { e.Offset = o }
}

// Emitter spawns, steers, advances and retires particles.
// It is not safe for concurrent use; the host drives it from one goroutine.
type Emitter struct {
	// Position is the emission point used when no surface is bound.
	Position r2.Vec
	// Offset is added to particle positions in Particles (e.g. image placement on screen).
	Offset r2.Vec

	cfg  *config.Config
	surf surface.Surface
	rng  *rand.Rand

	// ECS storage
	world      *ecs.World
	mapper     *ecs.Map4[components.Kinematics, components.Lifetime, components.Appearance, components.Flock]
	filter     *ecs.Filter4[components.Kinematics, components.Lifetime, components.Appearance, components.Flock]
	pairFilter *ecs.Filter2[components.Kinematics, components.Flock]
	lifeFilter *ecs.Filter1[components.Lifetime]
	kinMap     *ecs.Map1[components.Kinematics]
	lifeMap    *ecs.Map1[components.Lifetime]
	kinematics *systems.KinematicsSystem

	// Neighbor search
	strategy  NeighborStrategy
	grid      *systems.SpatialGrid[ecs.Entity]
	gridDirty bool
	pool      *workerPool

	// Per-tick scratch, valid only inside Update
	slots  []slot
	slotOf map[ecs.Entity]int
	dead   []ecs.Entity

	now        float64
	tick       int32
	leftover   float64 // fractional emission carried to the next tick
	flockClock float64 // time since the last neighbor pass
	nextID     uint32
	spawned    int
	retired    int
	lastBands  telemetry.BandCounts

	collector *telemetry.Collector
	perf      *telemetry.PerfCollector
}

// New creates an emitter. cfg is held by pointer so live edits (GUI sliders)
// take effect on the next tick.
func New(cfg *config.Config, opts ...Option) (*Emitter, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("emitter config: %w", err)
	}
	cfg.Refresh()

	world := ecs.NewWorld()
	e := &Emitter{
		cfg:        cfg,
		world:      world,
		mapper:     ecs.NewMap4[components.Kinematics, components.Lifetime, components.Appearance, components.Flock](world),
		filter:     ecs.NewFilter4[components.Kinematics, components.Lifetime, components.Appearance, components.Flock](world),
		pairFilter: ecs.NewFilter2[components.Kinematics, components.Flock](world),
		lifeFilter: ecs.NewFilter1[components.Lifetime](world),
		kinMap:     ecs.NewMap1[components.Kinematics](world),
		lifeMap:    ecs.NewMap1[components.Lifetime](world),
		kinematics: systems.NewKinematicsSystem(world),
		slotOf:     make(map[ecs.Entity]int),
		gridDirty:  true,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rng == nil {
		e.rng = rand.New(rand.NewSource(1))
	}

	if err := e.SetNeighborStrategy(cfg.Flocking.Strategy); err != nil {
		return nil, err
	}
	if err := e.ensureGrid(); err != nil {
		return nil, err
	}
	if cfg.Parallel.Enabled {
		e.pool = newWorkerPool(cfg.Parallel.Workers)
	}

	slog.Debug("emitter created",
		"strategy", e.strategy.Name(),
		"parallel", e.pool != nil,
		"surface", e.surf != nil,
	)
	return e, nil
}

// Config returns the live configuration.
func (e *Emitter) Config() *config.Config { return e.cfg }

// Surface returns the bound surface, or nil.
func (e *Emitter) Surface() surface.Surface { return e.surf }

// SetSurface binds a new surface, or unbinds with nil.
// The spatial grid is rebuilt for the new plane on the next tick.
func (e *Emitter) SetSurface(s surface.Surface) {
	e.surf = s
	e.gridDirty = true
}

// Len returns the number of live particles.
func (e *Emitter) Len() int {
	n := 0
	query := e.lifeFilter.Query()
	for query.Next() {
		n++
	}
	return n
}

// Now returns the time of the last Update.
func (e *Emitter) Now() float64 { return e.now }

// Tick returns the number of Update calls so far.
func (e *Emitter) Tick() int32 { return e.tick }

// Spawned returns the total number of particles created.
func (e *Emitter) Spawned() int { return e.spawned }

// Retired returns the total number of particles removed.
func (e *Emitter) Retired() int { return e.retired }

// LastBands returns the interaction counts of the most recent neighbor pass.
func (e *Emitter) LastBands() telemetry.BandCounts { return e.lastBands }

// Grid returns the spatial index, or nil when the pairwise strategy is active.
func (e *Emitter) Grid() *systems.SpatialGrid[ecs.Entity] { return e.grid }

// Particles yields every live particle for rendering.
// The world must not be modified while iterating.
func (e *Emitter) Particles() iter.Seq[View] {
	return func(yield func(View) bool) {
		size := e.cfg.Particle.SizeRatio
		query := e.filter.Query()
		for query.Next() {
			k, life, look, fl := query.Get()
			c := look.Color
			c.A = uint8(clampUnit(life.Fade) * 255)
			v := View{
				Entity: query.Entity(),
				ID:     fl.ID,
				Group:  fl.Group,
				Pos:    r2.Add(k.Pos, e.Offset),
				Dir:    k.Dir,
				Radius: look.Radius * size,
				Color:  c,
			}
			if !yield(v) {
				query.Close()
				return
			}
		}
	}
}

// Speeds appends the speed of every live particle to dst.
func (e *Emitter) Speeds(dst []float64) []float64 {
	query := e.pairFilter.Query()
	for query.Next() {
		k, _ := query.Get()
		dst = append(dst, r2.Norm(k.Vel))
	}
	return dst
}

// Groups returns the number of distinct groups among live particles.
func (e *Emitter) Groups() int {
	seen := make(map[int]struct{})
	query := e.pairFilter.Query()
	for query.Next() {
		_, fl := query.Get()
		seen[fl.Group] = struct{}{}
	}
	return len(seen)
}

// Snapshot captures the state of every live particle.
func (e *Emitter) Snapshot(seed int64, label string) *telemetry.Snapshot {
	s := &telemetry.Snapshot{
		Version: telemetry.SnapshotVersion,
		Seed:    seed,
		Tick:    e.tick,
		SimTime: e.now,
		Label:   label,
	}
	if e.surf != nil {
		s.SurfaceWidth, s.SurfaceHeight = e.surf.Size()
	}

	query := e.filter.Query()
	for query.Next() {
		k, life, look, fl := query.Get()
		s.Particles = append(s.Particles, telemetry.ParticleState{
			ID:     fl.ID,
			Group:  fl.Group,
			X:      k.Pos.X,
			Y:      k.Pos.Y,
			VelX:   k.Vel.X,
			VelY:   k.Vel.Y,
			Spawn:  life.Spawn,
			Death:  life.Death,
			Radius: look.Radius,
			Color:  [3]uint8{look.Color.R, look.Color.G, look.Color.B},
		})
	}
	return s
}

// Close stops the worker pool and releases every particle.
func (e *Emitter) Close() {
	if e.pool != nil {
		e.pool.stop()
		e.pool = nil
	}
	e.Clear()
}

func clampUnit(v float64) float64 {
	return min(max(v, 0), 1)
}
