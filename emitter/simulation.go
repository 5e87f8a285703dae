package emitter

import (
	"log/slog"
	"math"

	"github.com/pthm-cable/flockdraw/telemetry"
)

// Update runs one tick: emission, retirement, the neighbor pass and integration.
// now must be non-decreasing across calls; negative dt is treated as zero.
func (e *Emitter) Update(now, dt float64) {
	if !(dt > 0) {
		dt = 0
	}
	e.now = now
	e.tick++
	e.cfg.Refresh()

	e.startPhase(telemetry.PhaseEmission)
	e.emit(dt)

	e.startPhase(telemetry.PhaseRetire)
	e.retire(now)

	e.startPhase(telemetry.PhaseSpatialGrid)
	gridReady := true
	if err := e.ensureGrid(); err != nil {
		// Fall back to a full scan for this tick
		slog.Warn("spatial grid unavailable", "error", err)
		gridReady = false
	}

	e.startPhase(telemetry.PhaseNeighbors)
	e.takeSnapshot()
	if e.flockDue(dt) {
		strategy := e.strategy
		if !gridReady {
			e.strategy = Pairwise{}
		}
		e.lastBands = e.neighborPass()
		e.strategy = strategy
		if e.collector != nil {
			e.collector.RecordNeighborPass(e.lastBands)
		}
	}

	e.startPhase(telemetry.PhaseIntegrate)
	e.kinematics.Update(now, dt, e.surf, e.cfg)

	e.startPhase(telemetry.PhaseSpatialGrid)
	if e.grid != nil && gridReady {
		for i := range e.slots {
			e.grid.Update(e.slots[i].entity)
		}
	}
}

func (e *Emitter) startPhase(p telemetry.Phase) {
	if e.perf != nil {
		e.perf.StartPhase(p)
	}
}

// emit spawns rate-driven particles, carrying the fractional remainder.
func (e *Emitter) emit(dt float64) {
	rate := e.cfg.Emitter.ParticlesPerSecond
	if !(rate > 0) {
		e.leftover = 0
		return
	}

	toEmit := dt*rate + e.leftover
	n := math.Floor(toEmit)
	e.leftover = toEmit - n
	if n >= 1 {
		e.AddParticles(int(n), e.cfg.Emitter.Group)
	}
}

// flockDue reports whether the neighbor pass runs this tick.
// With FlockInterval > 0 forces are recomputed at most once per interval
// while integration still runs every tick.
func (e *Emitter) flockDue(dt float64) bool {
	interval := e.cfg.Emitter.FlockInterval
	if !(interval > 0) {
		return true
	}
	e.flockClock += dt
	if e.flockClock < interval {
		return false
	}
	e.flockClock = math.Mod(e.flockClock, interval)
	return true
}
