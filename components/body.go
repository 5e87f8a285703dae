package components

import "image/color"

// Appearance holds the per-frame color sample and the derived draw radius.
type Appearance struct {
	Color     color.RGBA // area-averaged surface color, alpha 255
	Radius    float64    // current radius, scaled by sample luminance
	MaxRadius float64
}
