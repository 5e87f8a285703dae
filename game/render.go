package game

import (
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/flockdraw/ui"
)

// Draw renders the trails, overlays and GUI.
func (g *Game) Draw() {
	rl.BeginDrawing()
	rl.ClearBackground(rl.Black)

	if g.image == "" {
		msg := "Drop images here or pass them on the command line"
		w := rl.MeasureText(msg, 20)
		rl.DrawText(msg, (g.screenWidth-w)/2, g.screenHeight/2-10, 20, rl.Gray)
	} else {
		if !g.paused {
			g.particles.Paint(g.emitter.Particles(), g.cfg.Screen.TrailFade)
		}
		g.particles.Draw()
		g.backdrop.Draw(g.emitter.Offset)
	}

	perfStats := g.perf.Stats()
	g.hud.Draw(ui.HUDData{
		Image:     g.image,
		Particles: g.emitter.Len(),
		Groups:    g.emitter.Groups(),
		Tick:      g.emitter.Tick(),
		FPS:       rl.GetFPS(),
		Paused:    g.paused,
		Strategy:  g.emitter.Strategy().Name(),
		TickTime:  perfStats.AvgTickDuration,
	}, g.screenWidth)
	g.hud.DrawControls(g.screenHeight, controlsLegend)

	if a := g.controls.Draw(g.cfg); a != ui.ActionNone {
		g.applyAction(a)
	}

	rl.EndDrawing()
}
