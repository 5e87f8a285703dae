package renderer

import (
	"image/color"
	"iter"
	"math"

	"github.com/crazy3lf/colorconv"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/flockdraw/components"
	"github.com/pthm-cable/flockdraw/emitter"
)

// ParticleRenderer paints particles into a persistent canvas so they leave trails.
// Each frame a translucent black overlay fades the previous strokes before the
// particles are drawn on top.
type ParticleRenderer struct {
	canvas        rl.RenderTexture2D
	width, height int32
	initialized   bool

	// TintGroups draws particles in a per-group hue instead of their sampled color
	TintGroups bool
	palette    map[int]color.RGBA
}

// NewParticleRenderer creates a renderer for a w*h canvas.
// The canvas is allocated lazily once the window exists.
func NewParticleRenderer(w, h int32) *ParticleRenderer {
	return &ParticleRenderer{
		width:   w,
		height:  h,
		palette: make(map[int]color.RGBA),
	}
}

func (r *ParticleRenderer) init() {
	if r.initialized {
		return
	}
	r.canvas = rl.LoadRenderTexture(r.width, r.height)
	rl.BeginTextureMode(r.canvas)
	rl.ClearBackground(rl.Black)
	rl.EndTextureMode()
	r.initialized = true
}

// Resize reallocates the canvas, dropping existing trails.
func (r *ParticleRenderer) Resize(w, h int32) {
	if w == r.width && h == r.height {
		return
	}
	r.Unload()
	r.width, r.height = w, h
}

// Clear wipes the trails.
func (r *ParticleRenderer) Clear() {
	if !r.initialized {
		return
	}
	rl.BeginTextureMode(r.canvas)
	rl.ClearBackground(rl.Black)
	rl.EndTextureMode()
}

// Paint fades the canvas by trailFade (0-1) and draws every particle into it.
func (r *ParticleRenderer) Paint(particles iter.Seq[emitter.View], trailFade float64) {
	r.init()

	rl.BeginTextureMode(r.canvas)
	fade := uint8(math.Round(min(max(trailFade, 0), 1) * 255))
	if fade > 0 {
		rl.DrawRectangle(0, 0, r.width, r.height, rl.Color{A: fade})
	}

	for v := range particles {
		c := v.Color
		if r.TintGroups {
			tint := r.groupColor(v.Group)
			tint.A = c.A
			c = tint
		}
		if c.A == 0 {
			continue
		}
		rl.DrawCircleV(
			rl.Vector2{X: float32(v.Pos.X), Y: float32(v.Pos.Y)},
			float32(max(v.Radius, 0.5)),
			c,
		)
	}
	rl.EndTextureMode()
}

// Draw blits the canvas to the screen.
func (r *ParticleRenderer) Draw() {
	if !r.initialized {
		return
	}
	// Render textures are stored upside down
	src := rl.Rectangle{X: 0, Y: 0, Width: float32(r.width), Height: -float32(r.height)}
	rl.DrawTextureRec(r.canvas.Texture, src, rl.Vector2{}, rl.White)
}

// Unload frees the canvas.
func (r *ParticleRenderer) Unload() {
	if r.initialized {
		rl.UnloadRenderTexture(r.canvas)
		r.initialized = false
	}
}

func (r *ParticleRenderer) groupColor(group int) color.RGBA {
	if c, ok := r.palette[group]; ok {
		return c
	}
	c := GroupColor(group)
	r.palette[group] = c
	return c
}

// GroupColor returns a stable, well separated hue for group.
// Ungrouped particles are white.
func GroupColor(group int) color.RGBA {
	if group == components.Ungrouped {
		return color.RGBA{R: 255, G: 255, B: 255, A: 255}
	}
	// Golden angle steps keep neighboring ids far apart on the wheel
	hue := math.Mod(float64(group)*137.508, 360)
	if hue < 0 {
		hue += 360
	}
	red, green, blue, err := colorconv.HSVToRGB(hue, 0.75, 1)
	if err != nil {
		return color.RGBA{R: 255, G: 255, B: 255, A: 255}
	}
	return color.RGBA{R: red, G: green, B: blue, A: 255}
}
