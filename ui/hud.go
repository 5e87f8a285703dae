package ui

import (
	"fmt"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// HUDData holds all the data needed to render the main HUD.
type HUDData struct {
	Image     string
	Particles int
	Groups    int
	Tick      int32
	FPS       int32
	Paused    bool
	Strategy  string
	TickTime  time.Duration
}

// HUD renders the main heads-up display.
type HUD struct {
	renderer *Renderer
	Visible  bool
}

// NewHUD creates a new HUD renderer.
func NewHUD() *HUD {
	return &HUD{
		renderer: NewRenderer(),
		Visible:  true,
	}
}

// Draw renders the HUD in the top right corner.
func (h *HUD) Draw(data HUDData, screenWidth int32) {
	if !h.Visible {
		return
	}

	lines := []string{
		data.Image,
		fmt.Sprintf("Particles: %d | Groups: %d", data.Particles, data.Groups),
		fmt.Sprintf("Tick: %d | FPS: %d | %s %s", data.Tick, data.FPS, data.Strategy, data.TickTime.Round(time.Microsecond)),
	}
	if data.Paused {
		lines = append(lines, "PAUSED")
	}

	y := int32(10)
	for i, line := range lines {
		if line == "" {
			continue
		}
		size := int32(14)
		if i == 0 {
			size = 18
		}
		w := rl.MeasureText(line, size)
		rl.DrawText(line, screenWidth-w-10, y, size, rl.LightGray)
		y += size + 6
	}
}

// DrawControls renders the control legend at the bottom of the screen.
func (h *HUD) DrawControls(screenHeight int32, controls string) {
	if !h.Visible {
		return
	}
	rl.DrawText(controls, 10, screenHeight-25, 14, rl.Gray)
}
