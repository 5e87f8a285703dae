package game

import (
	"log/slog"

	rl "github.com/gen2brain/raylib-go/raylib"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/flockdraw/playlist"
	"github.com/pthm-cable/flockdraw/renderer"
	"github.com/pthm-cable/flockdraw/surface"
	"github.com/pthm-cable/flockdraw/telemetry"
)

// Update handles input and advances the simulation by the frame time.
func (g *Game) Update() {
	g.handleInput()
	g.perf.RecordFrame()

	if g.paused {
		return
	}
	g.step(min(float64(rl.GetFrameTime()), maxFrameDT))
}

// UpdateHeadless advances the simulation by the fixed headless step.
func (g *Game) UpdateHeadless() {
	g.step(g.cfg.Telemetry.HeadlessDT)
}

// step runs one tick: playlist switching, the emitter update and telemetry.
func (g *Game) step(dt float64) {
	g.playlist.SetPeriod(g.cfg.Playlist.CycleSeconds)
	if path, ok := g.playlist.Advance(dt); ok {
		g.switchImage(path)
	}

	// Nothing to draw on until the first image arrives
	if g.image == "" {
		return
	}

	g.now += dt
	g.perf.StartTick()
	g.emitter.Update(g.now, dt)

	g.perf.StartPhase(telemetry.PhaseTelemetry)
	g.flushTelemetry()
	g.perf.EndTick()
}

// switchImage loads path as the new reference surface.
// Unloadable images are skipped; the current surface stays bound.
func (g *Game) switchImage(path string) {
	var (
		surf *surface.Buffer
		err  error
	)
	if g.headless {
		surf, err = playlist.Load(path)
	} else {
		var pic *renderer.Picture
		pic, err = renderer.LoadPicture(path)
		if err == nil {
			surf = pic.Surface
			g.backdrop.Set(pic)
		}
	}
	if err != nil {
		slog.Warn("skipping image", "path", path, "error", err)
		if g.image == "" && g.headless {
			if err := g.useNoiseSurface(); err != nil {
				slog.Error("noise fallback failed", "error", err)
			}
		}
		return
	}

	w, h := surf.Size()
	event := telemetry.PlaylistEvent{
		Tick:      g.emitter.Tick(),
		SimTime:   g.now,
		Image:     path,
		Width:     w,
		Height:    h,
		Particles: g.emitter.Len(),
	}
	if err := g.outputManager.WritePlaylistEvent(event); err != nil {
		slog.Error("failed to write playlist event", "error", err)
	}

	g.image = playlist.Label(path)
	g.applySurface(surf, g.centerOffset(surf))
	slog.Info("image switched", "image", g.image, "width", w, "height", h, "tick", event.Tick)
}

// applySurface binds surf, retires the current particles gracefully and
// emits one burst per group.
func (g *Game) applySurface(surf surface.Surface, offset r2.Vec) {
	g.emitter.SetSurface(surf)
	g.emitter.Offset = offset
	g.emitter.KillAllGraceful(g.now)
	g.spawnBursts()
}

// spawnBursts emits Playlist.Bursts bursts, each its own group.
func (g *Game) spawnBursts() {
	pc := g.cfg.Playlist
	for group := range pc.Bursts {
		g.emitter.AddParticles(pc.BurstSize, group)
	}
}

// centerOffset places surf in the middle of the window.
func (g *Game) centerOffset(surf surface.Surface) r2.Vec {
	if g.headless || surf == nil {
		return r2.Vec{}
	}
	size := surface.Dimensions(surf)
	return r2.Vec{
		X: float64(int((float64(g.screenWidth) - size.X) / 2)),
		Y: float64(int((float64(g.screenHeight) - size.Y) / 2)),
	}
}
