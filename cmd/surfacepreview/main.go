// Surface preview tool - shows the color surface and the steering probes
// under the cursor, with sliders for the noise and steering parameters.
//
// Usage: go run ./cmd/surfacepreview [-image photo.jpg]
package main

import (
	"flag"
	"fmt"
	"image/color"
	"log"
	"math"
	"strings"

	rl "github.com/gen2brain/raylib-go/raylib"
	gui "github.com/gen2brain/raylib-go/raygui"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/flockdraw/components"
	"github.com/pthm-cable/flockdraw/config"
	"github.com/pthm-cable/flockdraw/playlist"
	"github.com/pthm-cable/flockdraw/surface"
	"github.com/pthm-cable/flockdraw/systems"
)

const (
	windowWidth  = 1000
	windowHeight = 720
	previewSize  = 512
	panelWidth   = windowWidth - previewSize - 30
)

// NoiseParams holds the headless noise surface parameters.
type NoiseParams struct {
	Scale float32
	Seed  int64
}

// preview owns the sampled surface and its GPU copy.
type preview struct {
	surf    *surface.Buffer
	texture rl.Texture2D
	loaded  bool
}

func (p *preview) set(surf *surface.Buffer) {
	if p.loaded {
		rl.UnloadTexture(p.texture)
	}
	w, h := surf.Size()
	img := rl.GenImageColor(w, h, rl.Black)
	p.texture = rl.LoadTextureFromImage(img)
	rl.UnloadImage(img)

	pix := make([]color.RGBA, 0, w*h)
	for y := range h {
		for x := range w {
			pix = append(pix, surf.At(x, y))
		}
	}
	rl.UpdateTexture(p.texture, pix)
	p.surf = surf
	p.loaded = true
}

func (p *preview) unload() {
	if p.loaded {
		rl.UnloadTexture(p.texture)
		p.loaded = false
	}
}

// scale returns the display pixels per surface pixel.
func (p *preview) scale() float64 {
	w, h := p.surf.Size()
	return previewSize / float64(max(w, h))
}

func main() {
	imagePath := flag.String("image", "", "Preview an image instead of generated noise")
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	flag.Parse()

	if err := config.Init(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	steering := config.Cfg().Steering

	rl.InitWindow(windowWidth, windowHeight, "Surface Preview")
	defer rl.CloseWindow()
	rl.SetTargetFPS(30)

	defaults := NoiseParams{Scale: float32(config.Cfg().Telemetry.NoiseScale), Seed: 12345}
	params := defaults

	var p preview
	defer p.unload()

	fromImage := false
	if *imagePath != "" {
		surf, err := playlist.Load(*imagePath)
		if err != nil {
			log.Fatalf("failed to load image: %v", err)
		}
		p.set(surf)
		fromImage = true
	}

	needsRegen := !fromImage
	heading := 0.0 // radians

	for !rl.WindowShouldClose() {
		if needsRegen {
			surf, err := surface.Noise(previewSize, previewSize, float64(params.Scale), params.Seed)
			if err != nil {
				log.Fatalf("failed to generate noise: %v", err)
			}
			p.set(surf)
			needsRegen = false
		}

		// Scroll rotates the probe heading
		heading += float64(rl.GetMouseWheelMove()) * 0.2

		rl.BeginDrawing()
		rl.ClearBackground(rl.RayWhite)

		w, h := p.surf.Size()
		s := p.scale()
		rl.DrawTexturePro(
			p.texture,
			rl.Rectangle{X: 0, Y: 0, Width: float32(w), Height: float32(h)},
			rl.Rectangle{X: 10, Y: 10, Width: float32(float64(w) * s), Height: float32(float64(h) * s)},
			rl.Vector2{X: 0, Y: 0},
			0,
			rl.White,
		)
		rl.DrawRectangleLines(10, 10, previewSize, previewSize, rl.DarkGray)

		statsY := int32(previewSize + 25)
		mouse := rl.GetMousePosition()
		area := rl.Rectangle{X: 10, Y: 10, Width: float32(float64(w) * s), Height: float32(float64(h) * s)}
		if rl.CheckCollisionPointRec(mouse, area) {
			pos := r2.Vec{X: float64(mouse.X-10) / s, Y: float64(mouse.Y-10) / s}
			turn := drawProbes(p.surf, pos, heading, s, &steering)

			c := p.surf.Pixel(pos)
			rl.DrawText(fmt.Sprintf("Pixel (%.0f, %.0f)  RGB %d %d %d  Luma %.3f", pos.X, pos.Y, c.R, c.G, c.B, surface.Luminance(c)),
				15, statsY, 16, rl.DarkGray)
			rl.DrawText(fmt.Sprintf("Turn: %+.2f deg/s", turn), 15, statsY+20, 16, rl.DarkGray)
		} else {
			rl.DrawText("Hover the surface to probe it, scroll to rotate", 15, statsY, 16, rl.Gray)
		}
		rl.DrawText(fmt.Sprintf("Surface: %dx%d  Heading: %.0f deg", w, h, math.Mod(heading*180/math.Pi, 360)), 15, statsY+40, 16, rl.DarkGray)

		// Control panel
		panelX := float32(previewSize + 20)
		panelY := float32(10)

		rl.DrawText("Surface & Steering", int32(panelX), int32(panelY), 20, rl.DarkGray)
		panelY += 35

		if !fromImage {
			rl.DrawText("Noise scale (feature size in px)", int32(panelX), int32(panelY), 14, rl.Gray)
			panelY += 18
			newScale := gui.SliderBar(
				rl.Rectangle{X: panelX, Y: panelY, Width: float32(panelWidth - 80), Height: 20},
				"8", "400",
				params.Scale, 8, 400,
			)
			rl.DrawText(fmt.Sprintf("%.0f", params.Scale), int32(panelX+float32(panelWidth-70)), int32(panelY+2), 16, rl.DarkGray)
			if newScale != params.Scale {
				params.Scale = newScale
				needsRegen = true
			}
			panelY += 35

			rl.DrawText("Seed", int32(panelX), int32(panelY), 14, rl.Gray)
			panelY += 18
			newSeed := gui.SliderBar(
				rl.Rectangle{X: panelX, Y: panelY, Width: float32(panelWidth - 80), Height: 20},
				"0", "99999",
				float32(params.Seed), 0, 99999,
			)
			rl.DrawText(fmt.Sprintf("%d", params.Seed), int32(panelX+float32(panelWidth-70)), int32(panelY+2), 16, rl.DarkGray)
			if int64(newSeed) != params.Seed {
				params.Seed = int64(newSeed)
				needsRegen = true
			}
			panelY += 35

			rl.DrawLine(int32(panelX), int32(panelY), int32(panelX)+int32(panelWidth)-20, int32(panelY), rl.LightGray)
			panelY += 15
		}

		rl.DrawText("Probe distance (px ahead)", int32(panelX), int32(panelY), 14, rl.Gray)
		panelY += 18
		steering.ProbeDistance = float64(gui.SliderBar(
			rl.Rectangle{X: panelX, Y: panelY, Width: float32(panelWidth - 80), Height: 20},
			"1", "60",
			float32(steering.ProbeDistance), 1, 60,
		))
		rl.DrawText(fmt.Sprintf("%.1f", steering.ProbeDistance), int32(panelX+float32(panelWidth-70)), int32(panelY+2), 16, rl.DarkGray)
		panelY += 35

		rl.DrawText("Cone angle (degrees)", int32(panelX), int32(panelY), 14, rl.Gray)
		panelY += 18
		steering.ConeAngle = float64(gui.SliderBar(
			rl.Rectangle{X: panelX, Y: panelY, Width: float32(panelWidth - 80), Height: 20},
			"0", "90",
			float32(steering.ConeAngle), 0, 90,
		))
		rl.DrawText(fmt.Sprintf("%.1f", steering.ConeAngle), int32(panelX+float32(panelWidth-70)), int32(panelY+2), 16, rl.DarkGray)
		panelY += 35

		rl.DrawText("Color redirection", int32(panelX), int32(panelY), 14, rl.Gray)
		panelY += 18
		steering.ColorRedirection = float64(gui.SliderBar(
			rl.Rectangle{X: panelX, Y: panelY, Width: float32(panelWidth - 80), Height: 20},
			"0", "5",
			float32(steering.ColorRedirection), 0, 5,
		))
		rl.DrawText(fmt.Sprintf("%.2f", steering.ColorRedirection), int32(panelX+float32(panelWidth-70)), int32(panelY+2), 16, rl.DarkGray)
		panelY += 45

		if gui.Button(rl.Rectangle{X: panelX, Y: panelY, Width: 120, Height: 30}, toggleText(steering.Metric == config.MetricColor, "Metric: color", "Metric: luma")) {
			if steering.Metric == config.MetricColor {
				steering.Metric = config.MetricLuminance
			} else {
				steering.Metric = config.MetricColor
			}
		}

		if !fromImage {
			if gui.Button(rl.Rectangle{X: panelX + 130, Y: panelY, Width: 120, Height: 30}, "Random Seed") {
				params.Seed = int64(rl.GetRandomValue(0, 99999))
				needsRegen = true
			}
		}
		panelY += 45

		if gui.Button(rl.Rectangle{X: panelX, Y: panelY, Width: 120, Height: 30}, "Reset All") {
			steering = config.Cfg().Steering
			if !fromImage {
				params = defaults
				needsRegen = true
			}
		}
		panelY += 55

		// Output YAML
		rl.DrawText("YAML Config:", int32(panelX), int32(panelY), 16, rl.DarkGray)
		panelY += 25
		yaml := yamlSnippet(params, steering)
		for _, line := range strings.Split(yaml, "\n") {
			rl.DrawText(line, int32(panelX), int32(panelY), 14, rl.Gray)
			panelY += 16
		}

		rl.DrawText("Press C to copy YAML to clipboard", int32(panelX), int32(windowHeight-30), 12, rl.LightGray)

		if rl.IsKeyPressed(rl.KeyC) {
			rl.SetClipboardText(yaml)
		}

		rl.EndDrawing()
	}
}

// drawProbes draws a particle at pos with its two probes and the turn it would
// take over one second. Returns the turn in degrees.
func drawProbes(surf surface.Surface, pos r2.Vec, heading, scale float64, cfg *config.SteeringConfig) float64 {
	dir := r2.Vec{X: math.Cos(heading), Y: math.Sin(heading)}
	k := components.Kinematics{Pos: pos, Dir: dir, Vel: dir}
	turn := systems.Steer(&k, surf, 1, cfg)

	toScreen := func(v r2.Vec) rl.Vector2 {
		return rl.Vector2{X: float32(10 + v.X*scale), Y: float32(10 + v.Y*scale)}
	}

	probe := r2.Scale(cfg.ProbeDistance, dir)
	cone := cfg.ConeAngle * math.Pi / 180
	left := r2.Add(pos, systems.Rotate(probe, cone))
	right := r2.Add(pos, systems.Rotate(probe, -cone))

	center := toScreen(pos)
	rl.DrawLineV(center, toScreen(left), rl.Green)
	rl.DrawLineV(center, toScreen(right), rl.Red)
	rl.DrawCircleLinesV(toScreen(left), 4, rl.Green)
	rl.DrawCircleLinesV(toScreen(right), 4, rl.Red)

	// Heading after steering
	rl.DrawLineV(center, toScreen(r2.Add(pos, r2.Scale(cfg.ProbeDistance*0.6, k.Dir))), rl.Yellow)
	rl.DrawCircleV(center, 3, rl.White)

	return turn * 180 / math.Pi
}

func yamlSnippet(params NoiseParams, s config.SteeringConfig) string {
	return fmt.Sprintf(`steering:
  probe_distance: %.1f
  cone_angle: %.1f
  color_redirection: %.2f
  metric: %s
telemetry:
  noise_scale: %.0f`,
		s.ProbeDistance, s.ConeAngle, s.ColorRedirection, s.Metric, params.Scale)
}

func toggleText(cond bool, ifTrue, ifFalse string) string {
	if cond {
		return ifTrue
	}
	return ifFalse
}
