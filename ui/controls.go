package ui

import (
	"fmt"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/flockdraw/config"
)

// Action is a button press reported by the tuning panel.
type Action int

const (
	ActionNone Action = iota
	ActionToggleStrategy
	ActionToggleTint
	ActionNextImage
	ActionKillAll
	ActionSave
	ActionSnapshot
)

// ControlsPanel renders raygui sliders bound to live configuration fields.
type ControlsPanel struct {
	renderer *Renderer
	sections []SectionDescriptor
	x, y     int32
	width    int32
	visible  bool
}

// NewControlsPanel creates a new controls panel.
func NewControlsPanel(x, y, width int32) *ControlsPanel {
	return &ControlsPanel{
		renderer: NewRenderer(),
		sections: TuningSections(),
		x:        x,
		y:        y,
		width:    width,
	}
}

// IsVisible returns whether the panel is shown.
func (c *ControlsPanel) IsVisible() bool {
	return c.visible
}

// Toggle switches panel visibility.
func (c *ControlsPanel) Toggle() bool {
	c.visible = !c.visible
	return c.visible
}

// Contains reports whether a screen point lies on the panel, so clicks on it
// are not treated as clicks on the canvas.
func (c *ControlsPanel) Contains(p rl.Vector2) bool {
	if !c.visible {
		return false
	}
	return rl.CheckCollisionPointRec(p, rl.Rectangle{
		X: float32(c.x), Y: float32(c.y), Width: float32(c.width), Height: float32(c.height()),
	})
}

func (c *ControlsPanel) height() int32 {
	th := c.renderer.Theme
	rows := int32(0)
	for _, s := range c.sections {
		rows += int32(len(s.Sliders)) + 1
	}
	// Title, strategy line and three button rows
	return th.Padding*2 + (rows+5)*th.LineHeight
}

// Draw renders the panel and applies slider edits to cfg.
// Edits that would make cfg invalid are discarded.
func (c *ControlsPanel) Draw(cfg *config.Config) Action {
	if !c.visible {
		return ActionNone
	}

	r := c.renderer
	th := r.Theme
	r.DrawPanel(c.x, c.y, c.width, c.height())

	x := c.x + th.Padding
	y := c.y + th.Padding
	rl.DrawText("Tuning", x, y, 16, rl.White)
	y += th.LineHeight

	sliderX := float32(x + th.LabelWidth)
	sliderW := float32(c.width - th.LabelWidth - th.Padding*2 - 50)

	for _, section := range c.sections {
		y = r.DrawSectionHeader(x, y, section.Title)
		for _, s := range section.Sliders {
			field := s.Field(cfg)
			r.DrawLabel(x, y+1, s.Label)

			next := gui.SliderBar(
				rl.Rectangle{X: sliderX, Y: float32(y), Width: sliderW, Height: float32(th.SliderHeight)},
				"", "",
				float32(*field), s.Min, s.Max,
			)
			if next != float32(*field) {
				prev := *field
				*field = float64(next)
				if err := cfg.Validate(); err != nil {
					*field = prev
				}
			}
			r.DrawValue(int32(sliderX+sliderW)+6, y+1, fmt.Sprintf(s.Format, *field))
			y += th.LineHeight
		}
	}

	y = r.DrawLabelValue(x, y, "Strategy", cfg.Flocking.Strategy)

	action := ActionNone
	half := float32(c.width-th.Padding*3) / 2
	row := func(left, right string, la, ra Action) {
		if gui.Button(rl.Rectangle{X: float32(x), Y: float32(y), Width: half, Height: float32(th.LineHeight - 4)}, left) {
			action = la
		}
		if gui.Button(rl.Rectangle{X: float32(x) + half + float32(th.Padding), Y: float32(y), Width: half, Height: float32(th.LineHeight - 4)}, right) {
			action = ra
		}
		y += th.LineHeight
	}
	row("Strategy", "Group tint", ActionToggleStrategy, ActionToggleTint)
	row("Next image", "Kill all", ActionNextImage, ActionKillAll)
	row("Save config", "Snapshot", ActionSave, ActionSnapshot)

	return action
}
