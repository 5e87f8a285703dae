package emitter

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/flockdraw/components"
	"github.com/pthm-cable/flockdraw/config"
	"github.com/pthm-cable/flockdraw/surface"
	"github.com/pthm-cable/flockdraw/telemetry"
)

func init() {
	config.MustInit("")
}

func newEmitter(t *testing.T, cfg *config.Config, opts ...Option) *Emitter {
	t.Helper()
	e, err := New(cfg, append([]Option{WithSeed(7)}, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(e.Close)
	return e
}

func noiseSurface(t *testing.T, w, h int) *surface.Buffer {
	t.Helper()
	s, err := surface.Noise(w, h, 16, 11)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	if _, err := New(nil); !errors.Is(err, ErrNilConfig) {
		t.Errorf("expected ErrNilConfig, got %v", err)
	}

	cfg := config.Default()
	cfg.Flocking.LowThresh = 0.7
	if _, err := New(cfg); !errors.Is(err, config.ErrThresholds) {
		t.Errorf("expected ErrThresholds, got %v", err)
	}

	cfg = config.Default()
	cfg.Flocking.Strategy = "octree"
	if _, err := New(cfg); !errors.Is(err, config.ErrStrategy) {
		t.Errorf("expected ErrStrategy, got %v", err)
	}
}

func TestAddParticlesWithoutSurface(t *testing.T) {
	cfg := config.Default()
	e := newEmitter(t, cfg)
	e.Position = r2.Vec{X: 40, Y: 30}

	entities := e.AddParticles(50, 2)
	if len(entities) != 50 || e.Len() != 50 || e.Spawned() != 50 {
		t.Fatalf("expected 50 particles, got %d handles, %d live, %d spawned", len(entities), e.Len(), e.Spawned())
	}

	seen := make(map[uint32]bool)
	for v := range e.Particles() {
		if v.Pos != e.Position {
			t.Errorf("expected emission at %v without surface, got %v", e.Position, v.Pos)
		}
		if v.Group != 2 {
			t.Errorf("expected group 2, got %d", v.Group)
		}
		if seen[v.ID] {
			t.Errorf("duplicate id %d", v.ID)
		}
		seen[v.ID] = true
	}

	for _, entity := range entities {
		k := e.kinMap.Get(entity)
		life := e.lifeMap.Get(entity)
		if math.Abs(r2.Norm(k.Dir)-1) > 1e-9 {
			t.Errorf("expected unit heading, got %v", k.Dir)
		}
		if k.MinSpeedSq < cfg.Particle.MinSpeedSqLo || k.MinSpeedSq > cfg.Particle.MinSpeedSqHi {
			t.Errorf("min speed² %v outside configured range", k.MinSpeedSq)
		}
		if k.MaxSpeedSq < cfg.Particle.MaxSpeedSqLo || k.MaxSpeedSq > cfg.Particle.MaxSpeedSqHi {
			t.Errorf("max speed² %v outside configured range", k.MaxSpeedSq)
		}
		if math.Abs(r2.Norm(k.Acc)-cfg.Particle.Kick) > 1e-9 {
			t.Errorf("expected initial kick %v, got %v", cfg.Particle.Kick, r2.Norm(k.Acc))
		}
		if life.Mortal() {
			t.Errorf("expected immortal particle with default lifetimes, got death %v", life.Death)
		}
	}
}

func TestAddParticlesBurstHeading(t *testing.T) {
	cfg := config.Default()
	cfg.Emitter.HeadingSpread = 0.2
	e := newEmitter(t, cfg)

	entities := e.AddParticles(100, components.Ungrouped)
	var mean r2.Vec
	for _, entity := range entities {
		mean = r2.Add(mean, e.kinMap.Get(entity).Dir)
	}
	mean = r2.Scale(1.0/float64(len(entities)), mean)

	// headings within ±0.2 rad of a shared base are nearly parallel
	if r2.Norm(mean) < math.Cos(0.2) {
		t.Errorf("expected coherent burst, mean heading length %v", r2.Norm(mean))
	}
}

func TestAddParticlesInsideEmissionArea(t *testing.T) {
	cfg := config.Default()
	cfg.Emitter.EmissionArea = 0.1
	e := newEmitter(t, cfg, WithSurface(noiseSurface(t, 200, 100)))

	entities := e.AddParticles(200, 0)
	lo := r2.Vec{X: math.Inf(1), Y: math.Inf(1)}
	hi := r2.Vec{X: math.Inf(-1), Y: math.Inf(-1)}
	for _, entity := range entities {
		p := e.kinMap.Get(entity).Pos
		if p.X < 0 || p.X >= 200 || p.Y < 0 || p.Y >= 100 {
			t.Fatalf("particle spawned outside surface at %v", p)
		}
		lo = r2.Vec{X: math.Min(lo.X, p.X), Y: math.Min(lo.Y, p.Y)}
		hi = r2.Vec{X: math.Max(hi.X, p.X), Y: math.Max(hi.Y, p.Y)}
	}
	if hi.X-lo.X > 20 || hi.Y-lo.Y > 10 {
		t.Errorf("spawn spread %v exceeds 10%% emission area", r2.Sub(hi, lo))
	}
	if e.Grid() == nil || e.Grid().Len() != 200 {
		t.Errorf("expected particles inserted into the grid")
	}
}

func TestMortalLifetimes(t *testing.T) {
	cfg := config.Default()
	cfg.Emitter.MinLifeTime = 2
	cfg.Emitter.MaxLifeTime = 4
	e := newEmitter(t, cfg)
	e.Update(10, 0)

	for _, entity := range e.AddParticles(30, 0) {
		life := e.lifeMap.Get(entity)
		if life.Spawn != 10 {
			t.Errorf("expected spawn at 10, got %v", life.Spawn)
		}
		if life.Death < 12 || life.Death > 14 {
			t.Errorf("death %v outside [12, 14]", life.Death)
		}
		if life.FadeIn != 10+cfg.Emitter.FadeInTime {
			t.Errorf("unexpected fade-in marker %v", life.FadeIn)
		}
		if life.FadeOut < life.Spawn || life.FadeOut > life.Death {
			t.Errorf("fade-out marker %v outside lifetime", life.FadeOut)
		}
	}

	e.Update(14.001, 0.001)
	if e.Len() != 0 || e.Retired() != 30 {
		t.Errorf("expected all particles retired, %d live, %d retired", e.Len(), e.Retired())
	}
}

func TestEmissionRateConservation(t *testing.T) {
	cfg := config.Default()
	cfg.Emitter.ParticlesPerSecond = 37.3
	e := newEmitter(t, cfg)

	rng := rand.New(rand.NewSource(3))
	now := 0.0
	for i := range 200 {
		dt := rng.Float64() * 0.05
		now += dt
		e.Update(now, dt)

		want := math.Floor(cfg.Emitter.ParticlesPerSecond * now)
		if diff := math.Abs(float64(e.Spawned()) - want); diff > 1 {
			t.Fatalf("tick %d: spawned %d, want %v ±1", i, e.Spawned(), want)
		}
	}
}

func TestKillAllGraceful(t *testing.T) {
	const eps = 1e-6
	cfg := config.Default()
	e := newEmitter(t, cfg, WithSurface(noiseSurface(t, 100, 100)))
	e.AddParticles(40, 0)

	now := 5.0
	e.Update(now, 0.01)
	e.KillAllGraceful(now)

	query := e.lifeFilter.Query()
	for query.Next() {
		if d := query.Get().Death; d != now+cfg.Emitter.GracePeriod {
			t.Errorf("expected death %v, got %v", now+cfg.Emitter.GracePeriod, d)
		}
	}

	e.Update(now+cfg.Emitter.GracePeriod-eps, 0.01)
	if e.Len() != 40 {
		t.Fatalf("expected no removals before grace ends, %d live", e.Len())
	}

	// fading out during the grace period
	for v := range e.Particles() {
		if v.Color.A > 1 {
			t.Errorf("expected nearly transparent particle at end of grace, alpha %d", v.Color.A)
			break
		}
	}

	e.Update(now+cfg.Emitter.GracePeriod+eps, 0.01)
	if e.Len() != 0 {
		t.Errorf("expected all removed after grace, %d live", e.Len())
	}
}

func TestKillAllImmediateAndClear(t *testing.T) {
	e := newEmitter(t, config.Default())
	e.Update(1, 0.01)
	e.AddParticles(10, 0)

	e.KillAllImmediate()
	if e.Len() != 10 {
		t.Fatalf("immediate kill removes on the next tick, %d live", e.Len())
	}
	e.Update(1.01, 0.01)
	if e.Len() != 0 {
		t.Errorf("expected removal on next tick, %d live", e.Len())
	}

	e.AddParticles(5, 0)
	e.Clear()
	if e.Len() != 0 || e.Retired() != 15 {
		t.Errorf("expected Clear to remove everything, %d live, %d retired", e.Len(), e.Retired())
	}
	if e.Grid() != nil && e.Grid().Len() != 0 {
		t.Errorf("expected empty grid after Clear, got %d", e.Grid().Len())
	}
}

// place sets up particles at fixed positions with no initial forces.
func place(e *Emitter, positions []r2.Vec, groups []int) []ecs.Entity {
	entities := make([]ecs.Entity, 0, len(positions))
	for i, p := range positions {
		entity := e.AddParticles(1, groups[i])[0]
		k := e.kinMap.Get(entity)
		k.Pos = p
		k.Acc = r2.Vec{}
		entities = append(entities, entity)
	}
	if e.grid != nil {
		for _, entity := range entities {
			e.grid.Update(entity)
		}
	}
	return entities
}

func TestTwoParticleSeparation(t *testing.T) {
	e := newEmitter(t, config.Default())

	entities := place(e, []r2.Vec{{X: 100, Y: 100}, {X: 120, Y: 100}}, []int{0, 0})
	e.takeSnapshot()
	counts := e.neighborPass()

	if counts.Separation != 1 {
		t.Fatalf("expected one separation, got %+v", counts)
	}
	a, b := e.kinMap.Get(entities[0]), e.kinMap.Get(entities[1])
	want := (0.125/(400.0/5625.0) - 1) * 0.04
	if math.Abs(a.Acc.X+want) > 1e-9 || math.Abs(b.Acc.X-want) > 1e-9 {
		t.Errorf("expected ±%.4f along x, got a=%v b=%v", want, a.Acc, b.Acc)
	}
}

func randomCloud(e *Emitter, n int, seed int64) {
	rng := rand.New(rand.NewSource(seed))
	positions := make([]r2.Vec, n)
	groups := make([]int, n)
	for i := range positions {
		positions[i] = r2.Vec{X: rng.Float64() * 400, Y: rng.Float64() * 300}
		groups[i] = rng.Intn(4) - 1
	}
	place(e, positions, groups)
}

func accelerations(e *Emitter) map[uint32]r2.Vec {
	out := make(map[uint32]r2.Vec)
	query := e.filter.Query()
	for query.Next() {
		k, _, _, fl := query.Get()
		out[fl.ID] = k.Acc
	}
	return out
}

func assertSameForces(t *testing.T, want, got map[uint32]r2.Vec) {
	t.Helper()
	if len(want) != len(got) {
		t.Fatalf("particle count mismatch: %d vs %d", len(want), len(got))
	}
	for id, a := range want {
		if r2.Norm(r2.Sub(a, got[id])) > 1e-9 {
			t.Errorf("particle %d: force %v vs %v", id, a, got[id])
		}
	}
}

func TestGridMatchesPairwise(t *testing.T) {
	for _, wrap := range []bool{false, true} {
		pairCfg := config.Default()
		pairCfg.Flocking.Strategy = config.StrategyPairwise
		gridCfg := config.Default()
		gridCfg.Grid.Wrap = wrap

		pairwise := newEmitter(t, pairCfg)
		grid := newEmitter(t, gridCfg)
		randomCloud(pairwise, 300, 5)
		randomCloud(grid, 300, 5)

		pairwise.takeSnapshot()
		grid.takeSnapshot()
		pc := pairwise.neighborPass()
		gc := grid.neighborPass()

		if pc != gc {
			t.Errorf("wrap=%v: band counts differ: pairwise %+v grid %+v", wrap, pc, gc)
		}
		assertSameForces(t, accelerations(pairwise), accelerations(grid))
	}
}

func TestParallelMatchesSerial(t *testing.T) {
	serialCfg := config.Default()
	parallelCfg := config.Default()
	parallelCfg.Parallel.Enabled = true
	parallelCfg.Parallel.Workers = 3

	serial := newEmitter(t, serialCfg)
	parallel := newEmitter(t, parallelCfg)
	randomCloud(serial, 300, 9)
	randomCloud(parallel, 300, 9)

	serial.takeSnapshot()
	parallel.takeSnapshot()
	sc := serial.neighborPass()
	pc := parallel.neighborPass()

	if sc != pc {
		t.Errorf("band counts differ: serial %+v parallel %+v", sc, pc)
	}
	assertSameForces(t, accelerations(serial), accelerations(parallel))
}

func TestUpdateKeepsInvariants(t *testing.T) {
	cfg := config.Default()
	surf := noiseSurface(t, 160, 120)
	e := newEmitter(t, cfg, WithSurface(surf))
	for g := 0; g < 3; g++ {
		e.AddParticles(60, g)
	}

	now := 0.0
	for tick := 0; tick < 120; tick++ {
		now += 1.0 / 60
		e.Update(now, 1.0/60)

		for _, p := range liveKinematics(e) {
			k := p.kin
			if k.Pos.X < 0 || k.Pos.X >= 160 || k.Pos.Y < 0 || k.Pos.Y >= 120 {
				t.Fatalf("tick %d: position %v outside surface", tick, k.Pos)
			}
			speedSq := r2.Norm2(k.Vel)
			if speedSq < k.MinSpeedSq-1e-9 || speedSq > k.MaxSpeedSq+1e-9 {
				t.Fatalf("tick %d: |v|² %v outside [%v, %v]", tick, speedSq, k.MinSpeedSq, k.MaxSpeedSq)
			}
			if math.IsNaN(k.Acc.X) || math.IsNaN(k.Acc.Y) {
				t.Fatalf("tick %d: NaN acceleration", tick)
			}
			if !e.grid.CellAt(k.Pos).Contains(p.entity) {
				t.Fatalf("tick %d: grid not refreshed for %v", tick, p.entity)
			}
		}
	}
}

type kinematicsCopy struct {
	entity ecs.Entity
	kin    components.Kinematics
}

// liveKinematics copies particle state so assertions run with the world unlocked.
func liveKinematics(e *Emitter) []kinematicsCopy {
	var out []kinematicsCopy
	query := e.pairFilter.Query()
	for query.Next() {
		k, _ := query.Get()
		out = append(out, kinematicsCopy{entity: query.Entity(), kin: *k})
	}
	return out
}

func TestSurfaceSwapAndUnbind(t *testing.T) {
	e := newEmitter(t, config.Default(), WithSurface(noiseSurface(t, 300, 300)))
	e.AddParticles(100, 0)
	e.Update(0.1, 0.1)

	// shrink: particles outside the new plane are wrapped on the next tick
	e.SetSurface(noiseSurface(t, 50, 40))
	e.Update(0.2, 0.1)
	for v := range e.Particles() {
		if v.Pos.X < 0 || v.Pos.X >= 50 || v.Pos.Y < 0 || v.Pos.Y >= 40 {
			t.Fatalf("particle %d at %v outside swapped surface", v.ID, v.Pos)
		}
	}
	if w, h := e.Grid().Bounds(); w != 50 || h != 40 {
		t.Errorf("expected grid rebuilt for 50x40, got %vx%v", w, h)
	}
	if e.Grid().Len() != 100 {
		t.Errorf("expected rebuilt grid to hold all particles, got %d", e.Grid().Len())
	}

	// unbind: no wrapping, no steering, no crash
	e.SetSurface(nil)
	for i := 0; i < 10; i++ {
		e.Update(0.3+float64(i)*0.1, 0.1)
	}
	if e.Len() != 100 {
		t.Errorf("expected particles to survive surface removal, got %d", e.Len())
	}
}

func TestSwitchStrategyLive(t *testing.T) {
	e := newEmitter(t, config.Default())
	e.AddParticles(20, 0)

	if err := e.SetNeighborStrategy(config.StrategyPairwise); err != nil {
		t.Fatal(err)
	}
	e.Update(0.1, 0.1)
	if e.Grid() != nil {
		t.Error("expected no grid with pairwise strategy")
	}

	if err := e.SetNeighborStrategy(config.StrategyGrid); err != nil {
		t.Fatal(err)
	}
	e.Update(0.2, 0.1)
	if e.Grid() == nil || e.Grid().Len() != 20 {
		t.Error("expected grid rebuilt with all particles")
	}

	if err := e.SetNeighborStrategy("quadtree"); !errors.Is(err, config.ErrStrategy) {
		t.Errorf("expected ErrStrategy, got %v", err)
	}
}

func TestZoneRadiusGrowthRebuildsGrid(t *testing.T) {
	cfg := config.Default()
	e := newEmitter(t, cfg)
	e.AddParticles(10, 0)
	e.Update(0.1, 0.1)

	cfg.Flocking.ZoneRadiusSq = 150 * 150
	e.Update(0.2, 0.1)
	if cw, _ := e.Grid().CellSize(); cw != 150 {
		t.Errorf("expected cells to grow with zone radius, got %v", cw)
	}
}

func TestFlockInterval(t *testing.T) {
	cfg := config.Default()
	cfg.Emitter.FlockInterval = 0.5
	collector := telemetry.NewCollector(100, 0.125)
	e := newEmitter(t, cfg, WithCollector(collector))
	randomCloud(e, 50, 1)

	for i := 1; i <= 8; i++ {
		e.Update(float64(i)*0.125, 0.125)
	}
	stats := collector.Flush(8, e.Len(), e.Groups(), e.Speeds(nil))
	if stats.NeighborPass != 2 {
		t.Errorf("expected 2 neighbor passes in 1s at 0.5s interval, got %d", stats.NeighborPass)
	}
	if stats.Spawned != 50 {
		t.Errorf("expected 50 spawns recorded, got %d", stats.Spawned)
	}
}

func TestSnapshotAndOffset(t *testing.T) {
	e := newEmitter(t, config.Default(), WithOffset(r2.Vec{X: 10, Y: 20}))
	e.Position = r2.Vec{X: 1, Y: 2}
	e.AddParticles(3, 1)

	for v := range e.Particles() {
		if v.Pos != (r2.Vec{X: 11, Y: 22}) {
			t.Errorf("expected offset applied, got %v", v.Pos)
		}
	}

	s := e.Snapshot(7, "test")
	if len(s.Particles) != 3 || s.Seed != 7 || s.Version != telemetry.SnapshotVersion {
		t.Errorf("unexpected snapshot %+v", s)
	}
	if s.Particles[0].X != 1 || s.Particles[0].Group != 1 {
		t.Errorf("snapshot should hold simulation coordinates, got %+v", s.Particles[0])
	}
}

func TestParticlesEarlyBreak(t *testing.T) {
	e := newEmitter(t, config.Default())
	e.AddParticles(10, 0)

	for range e.Particles() {
		break
	}
	// world must be unlocked again
	e.AddParticles(1, 0)
	if e.Len() != 11 {
		t.Errorf("expected 11 particles, got %d", e.Len())
	}
}
