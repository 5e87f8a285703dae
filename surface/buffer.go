package surface

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// ErrBufferSize is returned when pixel data does not match the requested dimensions.
var ErrBufferSize = errors.New("surface: pixel count does not match dimensions")

// Buffer is an in-memory RGBA raster with a summed-area table for O(1) area averages.
type Buffer struct {
	w, h int
	pix  []color.RGBA

	// Integral image, (w+1)*(h+1) entries per channel
	sumR, sumG, sumB []uint32
}

// NewBuffer wraps pix (row-major, w*h entries). The slice is retained, not copied.
func NewBuffer(w, h int, pix []color.RGBA) (*Buffer, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrBufferSize, w, h)
	}
	if len(pix) != w*h {
		return nil, fmt.Errorf("%w: got %d pixels for %dx%d", ErrBufferSize, len(pix), w, h)
	}
	b := &Buffer{w: w, h: h, pix: pix}
	b.buildIntegral()
	return b, nil
}

// FromImage copies img into a new Buffer.
func FromImage(img image.Image) (*Buffer, error) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	pix := make([]color.RGBA, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.RGBAModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.RGBA)
			pix[y*w+x] = c
		}
	}
	return NewBuffer(w, h, pix)
}

// Fill returns a w*h buffer of a single color.
func Fill(w, h int, c color.RGBA) (*Buffer, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrBufferSize, w, h)
	}
	pix := make([]color.RGBA, w*h)
	for i := range pix {
		pix[i] = c
	}
	return NewBuffer(w, h, pix)
}

func (b *Buffer) buildIntegral() {
	stride := b.w + 1
	n := stride * (b.h + 1)
	b.sumR = make([]uint32, n)
	b.sumG = make([]uint32, n)
	b.sumB = make([]uint32, n)

	for y := 0; y < b.h; y++ {
		var rowR, rowG, rowB uint32
		for x := 0; x < b.w; x++ {
			c := b.pix[y*b.w+x]
			rowR += uint32(c.R)
			rowG += uint32(c.G)
			rowB += uint32(c.B)

			i := (y+1)*stride + x + 1
			up := y*stride + x + 1
			b.sumR[i] = b.sumR[up] + rowR
			b.sumG[i] = b.sumG[up] + rowG
			b.sumB[i] = b.sumB[up] + rowB
		}
	}
}

// Size returns the raster dimensions.
func (b *Buffer) Size() (w, h int) {
	return b.w, b.h
}

// Pixel returns the color under p, clamped to the raster.
func (b *Buffer) Pixel(p r2.Vec) color.RGBA {
	x := clampIndex(p.X, b.w)
	y := clampIndex(p.Y, b.h)
	return b.pix[y*b.w+x]
}

// At returns the pixel at integer coordinates, clamped to the raster.
func (b *Buffer) At(x, y int) color.RGBA {
	x = min(max(x, 0), b.w-1)
	y = min(max(y, 0), b.h-1)
	return b.pix[y*b.w+x]
}

// AreaAverage returns the mean color of the pixels covered by box.
// The box is clamped to the raster; a box that covers no pixel samples its center.
func (b *Buffer) AreaAverage(box r2.Box) color.RGBA {
	x0 := clampEdge(math.Floor(box.Min.X), b.w)
	y0 := clampEdge(math.Floor(box.Min.Y), b.h)
	x1 := clampEdge(math.Ceil(box.Max.X), b.w)
	y1 := clampEdge(math.Ceil(box.Max.Y), b.h)

	if x1 <= x0 || y1 <= y0 {
		return b.Pixel(r2.Scale(0.5, r2.Add(box.Min, box.Max)))
	}

	stride := b.w + 1
	area := func(sum []uint32) uint32 {
		return sum[y1*stride+x1] - sum[y0*stride+x1] - sum[y1*stride+x0] + sum[y0*stride+x0]
	}
	count := uint32((x1 - x0) * (y1 - y0))

	return color.RGBA{
		R: uint8(area(b.sumR) / count),
		G: uint8(area(b.sumG) / count),
		B: uint8(area(b.sumB) / count),
		A: 255,
	}
}

// clampIndex maps a coordinate to a pixel index in [0, n).
func clampIndex(v float64, n int) int {
	if !(v >= 0) { // also catches NaN
		return 0
	}
	if v >= float64(n) {
		return n - 1
	}
	return int(v)
}

// clampEdge maps a coordinate to a pixel edge in [0, n].
func clampEdge(v float64, n int) int {
	if !(v >= 0) {
		return 0
	}
	if v >= float64(n) {
		return n
	}
	return int(v)
}
