package game

import (
	"log/slog"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/flockdraw/config"
	"github.com/pthm-cable/flockdraw/ui"
)

const controlsLegend = "Click/N: next image | Tab: tuning | G: strategy | T: tint | B: backdrop | K/X: kill | C: clear | S: save | P: snapshot | Space: pause"

// handleInput processes keyboard, mouse and file drop input.
func (g *Game) handleInput() {
	// Window resize propagation
	g.handleResize()

	// Fullscreen toggle
	if rl.IsKeyPressed(rl.KeyF11) {
		rl.ToggleFullscreen()
	}

	if rl.IsKeyPressed(rl.KeySpace) {
		g.paused = !g.paused
	}

	if rl.IsFileDropped() {
		files := rl.LoadDroppedFiles()
		rl.UnloadDroppedFiles()
		if len(files) > 0 {
			g.playlist.Replace(files)
			slog.Info("playlist replaced", "images", len(files))
		}
	}

	// Clicks on the tuning panel belong to raygui
	if rl.IsMouseButtonPressed(rl.MouseButtonLeft) && !g.controls.Contains(rl.GetMousePosition()) {
		g.applyAction(ui.ActionNextImage)
	}

	keys := []struct {
		key    int32
		action ui.Action
	}{
		{rl.KeyN, ui.ActionNextImage},
		{rl.KeyG, ui.ActionToggleStrategy},
		{rl.KeyT, ui.ActionToggleTint},
		{rl.KeyK, ui.ActionKillAll},
		{rl.KeyS, ui.ActionSave},
		{rl.KeyP, ui.ActionSnapshot},
	}
	for _, k := range keys {
		if rl.IsKeyPressed(k.key) {
			g.applyAction(k.action)
		}
	}

	if rl.IsKeyPressed(rl.KeyX) {
		g.emitter.KillAllImmediate()
	}
	if rl.IsKeyPressed(rl.KeyC) {
		g.particles.Clear()
	}
	if rl.IsKeyPressed(rl.KeyB) {
		g.backdrop.Visible = !g.backdrop.Visible
	}
	if rl.IsKeyPressed(rl.KeyH) {
		g.hud.Visible = !g.hud.Visible
	}
	if rl.IsKeyPressed(rl.KeyTab) {
		g.controls.Toggle()
	}
}

// applyAction runs a command from the keyboard or the tuning panel.
func (g *Game) applyAction(a ui.Action) {
	switch a {
	case ui.ActionNextImage:
		g.playlist.Skip()
	case ui.ActionToggleStrategy:
		next := config.StrategyGrid
		if g.emitter.Strategy().Name() == config.StrategyGrid {
			next = config.StrategyPairwise
		}
		if err := g.emitter.SetNeighborStrategy(next); err != nil {
			slog.Error("failed to switch strategy", "error", err)
			return
		}
		slog.Info("neighbor strategy", "strategy", next)
	case ui.ActionToggleTint:
		g.particles.TintGroups = !g.particles.TintGroups
	case ui.ActionKillAll:
		g.emitter.KillAllGraceful(g.now)
	case ui.ActionSave:
		g.saveConfig()
	case ui.ActionSnapshot:
		g.saveSnapshot(nil)
	}
}

// handleResize checks for window resize and propagates new dimensions.
func (g *Game) handleResize() {
	if !rl.IsWindowResized() {
		return
	}
	w := int32(rl.GetScreenWidth())
	h := int32(rl.GetScreenHeight())
	if w == g.screenWidth && h == g.screenHeight {
		return
	}
	g.screenWidth = w
	g.screenHeight = h

	g.particles.Resize(w, h)
	g.emitter.Offset = g.centerOffset(g.emitter.Surface())
}
