package surface

import (
	"image/color"

	"github.com/ojrac/opensimplex-go"
)

// Noise rasterizes three decorrelated OpenSimplex fields into a w*h buffer.
// It stands in for a photograph when running headless.
// scale is the feature size in pixels.
func Noise(w, h int, scale float64, seed int64) (*Buffer, error) {
	if scale <= 0 {
		scale = 1
	}

	red := opensimplex.NewNormalized(seed)
	green := opensimplex.NewNormalized(seed + 1)
	blue := opensimplex.NewNormalized(seed + 2)

	pix := make([]color.RGBA, max(w, 0)*max(h, 0))
	for y := 0; y < h; y++ {
		fy := float64(y) / scale
		for x := 0; x < w; x++ {
			fx := float64(x) / scale
			pix[y*w+x] = color.RGBA{
				R: channel(red.Eval2(fx, fy)),
				G: channel(green.Eval2(fx, fy)),
				B: channel(blue.Eval2(fx, fy)),
				A: 255,
			}
		}
	}

	return NewBuffer(w, h, pix)
}

func channel(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v * 255)
}
