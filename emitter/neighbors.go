package emitter

import (
	"fmt"
	"iter"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/flockdraw/components"
	"github.com/pthm-cable/flockdraw/config"
	"github.com/pthm-cable/flockdraw/systems"
	"github.com/pthm-cable/flockdraw/telemetry"
)

// slot is one particle in the per-tick snapshot.
// Component pointers stay valid because the world is not modified during the pass.
type slot struct {
	entity ecs.Entity
	kin    *components.Kinematics
	group  int
}

// NeighborStrategy produces candidate partners for a particle.
// Strategies differ in cost only: both must yield every partner within the zone radius.
type NeighborStrategy interface {
	Name() string
	// UsesGrid reports whether the emitter must maintain the spatial grid.
	UsesGrid() bool
	// Candidates yields snapshot indices j > i that may interact with slot i.
	Candidates(e *Emitter, i int) iter.Seq[int]
}

// Pairwise scans every later particle.
type Pairwise struct{}

func (Pairwise) Name() string   { return config.StrategyPairwise }
func (Pairwise) UsesGrid() bool { return false }

func (Pairwise) Candidates(e *Emitter, i int) iter.Seq[int] {
	return func(yield func(int) bool) {
		for j := i + 1; j < len(e.slots); j++ {
			if !yield(j) {
				return
			}
		}
	}
}

// GridScan enumerates the 3x3 cell neighborhood from the spatial grid.
type GridScan struct{}

func (GridScan) Name() string   { return config.StrategyGrid }
func (GridScan) UsesGrid() bool { return true }

func (GridScan) Candidates(e *Emitter, i int) iter.Seq[int] {
	return func(yield func(int) bool) {
		for other := range e.grid.Neighbors(e.slots[i].kin.Stable) {
			j, ok := e.slotOf[other]
			if !ok || j <= i {
				continue
			}
			if !yield(j) {
				return
			}
		}
	}
}

// SetNeighborStrategy switches between "pairwise" and "grid".
func (e *Emitter) SetNeighborStrategy(name string) error {
	switch name {
	case config.StrategyPairwise:
		e.strategy = Pairwise{}
		e.grid = nil
	case config.StrategyGrid:
		e.strategy = GridScan{}
		e.gridDirty = true
	default:
		return fmt.Errorf("%w: %q", config.ErrStrategy, name)
	}
	e.cfg.Flocking.Strategy = name
	return nil
}

// Strategy returns the active neighbor strategy.
func (e *Emitter) Strategy() NeighborStrategy { return e.strategy }

// ensureGrid rebuilds the spatial grid when it is missing or stale: a new
// surface, a resized world or a zone radius that outgrew the cells.
func (e *Emitter) ensureGrid() error {
	if !e.strategy.UsesGrid() {
		e.grid = nil
		return nil
	}

	w, h := e.planeSize()
	cell := e.cfg.Derived.CellSize
	if e.grid != nil && !e.gridDirty {
		gw, gh := e.grid.Bounds()
		cw, _ := e.grid.CellSize()
		if gw == w && gh == h && cw == cell && e.grid.Wraps() == e.cfg.Grid.Wrap {
			return nil
		}
	}

	grid, err := systems.NewSpatialGrid[ecs.Entity](w, h, cell, cell, e.cfg.Grid.Wrap, locator{e.kinMap})
	if err != nil {
		return fmt.Errorf("building spatial grid: %w", err)
	}
	live := e.dead[:0]
	query := e.lifeFilter.Query()
	for query.Next() {
		live = append(live, query.Entity())
	}
	for _, entity := range live {
		grid.Insert(entity)
	}
	e.dead = live[:0]

	e.grid = grid
	e.gridDirty = false
	return nil
}

// planeSize is the bound surface's size, or the configured world.
func (e *Emitter) planeSize() (w, h float64) {
	if e.surf != nil {
		sw, sh := e.surf.Size()
		if sw > 0 && sh > 0 {
			return float64(sw), float64(sh)
		}
	}
	return e.cfg.Derived.WorldW, e.cfg.Derived.WorldH
}

// locator exposes particle positions to the grid.
type locator struct {
	kin *ecs.Map1[components.Kinematics]
}

func (l locator) Position(e ecs.Entity) r2.Vec       { return l.kin.Get(e).Pos }
func (l locator) StablePosition(e ecs.Entity) r2.Vec { return l.kin.Get(e).Stable }
func (l locator) SetStablePosition(e ecs.Entity, p r2.Vec) {
	l.kin.Get(e).Stable = p
}

// takeSnapshot indexes every live particle for the neighbor pass.
func (e *Emitter) takeSnapshot() {
	e.slots = e.slots[:0]
	clear(e.slotOf)
	query := e.pairFilter.Query()
	for query.Next() {
		k, fl := query.Get()
		entity := query.Entity()
		e.slotOf[entity] = len(e.slots)
		e.slots = append(e.slots, slot{entity: entity, kin: k, group: fl.Group})
	}
}

// neighborPass accumulates pair forces for every slot.
func (e *Emitter) neighborPass() telemetry.BandCounts {
	if e.pool != nil && len(e.slots) >= parallelThreshold {
		return e.neighborPassParallel()
	}

	var counts telemetry.BandCounts
	fc := &e.cfg.Flocking
	for i := range e.slots {
		a := &e.slots[i]
		for j := range e.strategy.Candidates(e, i) {
			b := &e.slots[j]
			tally(&counts, systems.Interact(a.kin, b.kin, a.group, b.group, fc))
		}
	}
	return counts
}

func tally(c *telemetry.BandCounts, band systems.Band) {
	switch band {
	case systems.BandSeparation:
		c.Separation++
	case systems.BandAlignment:
		c.Alignment++
	case systems.BandCohesion:
		c.Cohesion++
	case systems.BandGroupRepel:
		c.GroupRepel++
	}
}
