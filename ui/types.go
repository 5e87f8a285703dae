// Package ui provides a descriptor-driven tuning panel and HUD.
// Sliders are declared as data bound to configuration fields, so adding a
// tunable only needs a new descriptor.
package ui

import (
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/flockdraw/config"
)

// SliderDescriptor binds one GUI slider to a float field.
type SliderDescriptor struct {
	ID     string
	Label  string
	Min    float32
	Max    float32
	Format string // Printf format for the value readout
	Field  func(c *config.Config) *float64
}

// SectionDescriptor groups sliders under a header.
type SectionDescriptor struct {
	Title   string
	Sliders []SliderDescriptor
}

// TuningSections returns the live tunables shown in the panel.
func TuningSections() []SectionDescriptor {
	return []SectionDescriptor{
		{
			Title: "Flocking",
			Sliders: []SliderDescriptor{
				{ID: "zone", Label: "Zone radius²", Min: 100, Max: 20000, Format: "%.0f",
					Field: func(c *config.Config) *float64 { return &c.Flocking.ZoneRadiusSq }},
				{ID: "repel", Label: "Repel", Min: 0, Max: 0.2, Format: "%.3f",
					Field: func(c *config.Config) *float64 { return &c.Flocking.RepelStrength }},
				{ID: "align", Label: "Align", Min: 0, Max: 0.2, Format: "%.3f",
					Field: func(c *config.Config) *float64 { return &c.Flocking.AlignStrength }},
				{ID: "attract", Label: "Attract", Min: 0, Max: 0.2, Format: "%.3f",
					Field: func(c *config.Config) *float64 { return &c.Flocking.AttractStrength }},
				{ID: "group_repel", Label: "Group repel", Min: 0, Max: 0.2, Format: "%.3f",
					Field: func(c *config.Config) *float64 { return &c.Flocking.GroupRepelStrength }},
				{ID: "low", Label: "Low thresh", Min: 0, Max: 1, Format: "%.2f",
					Field: func(c *config.Config) *float64 { return &c.Flocking.LowThresh }},
				{ID: "high", Label: "High thresh", Min: 0, Max: 1, Format: "%.2f",
					Field: func(c *config.Config) *float64 { return &c.Flocking.HighThresh }},
			},
		},
		{
			Title: "Particles",
			Sliders: []SliderDescriptor{
				{ID: "dampness", Label: "Dampness", Min: 0, Max: 1, Format: "%.2f",
					Field: func(c *config.Config) *float64 { return &c.Particle.Dampness }},
				{ID: "size", Label: "Size ratio", Min: 0.1, Max: 4, Format: "%.2f",
					Field: func(c *config.Config) *float64 { return &c.Particle.SizeRatio }},
				{ID: "speed", Label: "Speed ratio", Min: 1, Max: 120, Format: "%.0f",
					Field: func(c *config.Config) *float64 { return &c.Particle.SpeedRatio }},
				{ID: "rate", Label: "Per second", Min: 0, Max: 500, Format: "%.0f",
					Field: func(c *config.Config) *float64 { return &c.Emitter.ParticlesPerSecond }},
			},
		},
		{
			Title: "Steering",
			Sliders: []SliderDescriptor{
				{ID: "probe", Label: "Probe dist", Min: 0.5, Max: 20, Format: "%.1f",
					Field: func(c *config.Config) *float64 { return &c.Steering.ProbeDistance }},
				{ID: "cone", Label: "Cone angle", Min: 0, Max: 90, Format: "%.0f",
					Field: func(c *config.Config) *float64 { return &c.Steering.ConeAngle }},
				{ID: "redirect", Label: "Redirection", Min: 0, Max: 5, Format: "%.2f",
					Field: func(c *config.Config) *float64 { return &c.Steering.ColorRedirection }},
			},
		},
		{
			Title: "Trails",
			Sliders: []SliderDescriptor{
				{ID: "trail", Label: "Trail fade", Min: 0, Max: 0.2, Format: "%.3f",
					Field: func(c *config.Config) *float64 { return &c.Screen.TrailFade }},
			},
		},
	}
}

// Theme holds UI styling constants.
type Theme struct {
	PanelBg        rl.Color
	PanelBorder    rl.Color
	SectionHeader  rl.Color
	LabelColor     rl.Color
	ValueColor     rl.Color
	Padding        int32
	LineHeight     int32
	LabelWidth     int32
	SliderHeight   int32
	FontSize       int32
	HeaderFontSize int32
}

// DefaultTheme returns the default UI theme.
func DefaultTheme() Theme {
	return Theme{
		PanelBg:        rl.Color{R: 20, G: 25, B: 30, A: 220},
		PanelBorder:    rl.Color{R: 60, G: 70, B: 80, A: 255},
		SectionHeader:  rl.Yellow,
		LabelColor:     rl.LightGray,
		ValueColor:     rl.RayWhite,
		Padding:        10,
		LineHeight:     22,
		LabelWidth:     90,
		SliderHeight:   14,
		FontSize:       12,
		HeaderFontSize: 14,
	}
}
