package emitter

import (
	"log/slog"

	"github.com/mlange-42/ark/ecs"
)

// retire removes particles whose time of death has passed.
// Expired entities are collected first; the world is only modified after the query closes.
func (e *Emitter) retire(now float64) int {
	e.dead = e.dead[:0]
	query := e.lifeFilter.Query()
	for query.Next() {
		if query.Get().Expired(now) {
			e.dead = append(e.dead, query.Entity())
		}
	}

	for _, entity := range e.dead {
		e.remove(entity)
	}

	n := len(e.dead)
	e.retired += n
	if n > 0 && e.collector != nil {
		e.collector.RecordRetire(n)
	}
	return n
}

// remove deletes entity from the grid and the world.
func (e *Emitter) remove(entity ecs.Entity) {
	if e.grid != nil && !e.gridDirty {
		e.grid.Erase(entity)
	}
	e.mapper.Remove(entity)
}

// KillAllGraceful schedules every live particle to die at now + GracePeriod
// and starts its fade-out immediately.
func (e *Emitter) KillAllGraceful(now float64) {
	death := now + e.cfg.Emitter.GracePeriod
	n := e.setDeath(death, now)
	slog.Debug("kill all", "mode", "graceful", "particles", n, "death", death)
}

// KillAllImmediate marks every live particle dead as of the last update.
// They are removed on the next tick.
func (e *Emitter) KillAllImmediate() {
	n := e.setDeath(e.now, e.now)
	slog.Debug("kill all", "mode", "immediate", "particles", n)
}

func (e *Emitter) setDeath(death, fadeOut float64) int {
	n := 0
	query := e.lifeFilter.Query()
	for query.Next() {
		life := query.Get()
		// Keep Death >= Spawn for particles spawned after the given time
		life.Death = max(death, life.Spawn)
		life.FadeOut = min(max(fadeOut, life.Spawn), life.Death)
		n++
	}
	return n
}

// Clear removes every particle at once.
func (e *Emitter) Clear() {
	e.dead = e.dead[:0]
	query := e.lifeFilter.Query()
	for query.Next() {
		e.dead = append(e.dead, query.Entity())
	}
	for _, entity := range e.dead {
		e.mapper.Remove(entity)
	}
	if e.grid != nil {
		e.grid.Clear()
	}

	n := len(e.dead)
	e.retired += n
	if n > 0 && e.collector != nil {
		e.collector.RecordRetire(n)
	}
	e.leftover = 0
}
