package renderer

import (
	"errors"
	"fmt"
	"slices"

	rl "github.com/gen2brain/raylib-go/raylib"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/flockdraw/surface"
)

// ErrImageLoad is returned when raylib cannot decode an image.
var ErrImageLoad = errors.New("renderer: image could not be loaded")

// Picture is a decoded reference image: a CPU sampling surface plus its
// pixels kept for uploading as a backdrop texture.
type Picture struct {
	Surface *surface.Buffer
	image   *rl.Image
}

// LoadPicture decodes the image at path with raylib.
// The caller passes the result to Backdrop.Set, which releases the pixels.
func LoadPicture(path string) (*Picture, error) {
	img := rl.LoadImage(path)
	if img == nil || !rl.IsImageValid(img) {
		return nil, fmt.Errorf("%w: %s", ErrImageLoad, path)
	}
	rl.ImageFormat(img, rl.UncompressedR8g8b8a8)

	colors := rl.LoadImageColors(img)
	// Colors live in C memory until unloaded
	pix := slices.Clone(colors)
	rl.UnloadImageColors(colors)

	buf, err := surface.NewBuffer(int(img.Width), int(img.Height), pix)
	if err != nil {
		rl.UnloadImage(img)
		return nil, fmt.Errorf("building surface for %s: %w", path, err)
	}
	return &Picture{Surface: buf, image: img}, nil
}

// Backdrop draws the current reference image faintly behind the trails.
type Backdrop struct {
	texture rl.Texture2D
	loaded  bool

	Visible bool
	Alpha   uint8
}

// NewBackdrop creates a hidden backdrop.
func NewBackdrop() *Backdrop {
	return &Backdrop{Alpha: 40}
}

// Set uploads pic as the backdrop texture and frees its CPU pixels.
func (b *Backdrop) Set(pic *Picture) {
	b.Unload()
	if pic == nil || pic.image == nil {
		return
	}
	b.texture = rl.LoadTextureFromImage(pic.image)
	rl.UnloadImage(pic.image)
	pic.image = nil
	b.loaded = true
}

// Draw renders the backdrop at offset when visible.
func (b *Backdrop) Draw(offset r2.Vec) {
	if !b.Visible || !b.loaded {
		return
	}
	rl.DrawTexture(b.texture, int32(offset.X), int32(offset.Y), rl.Color{R: 255, G: 255, B: 255, A: b.Alpha})
}

// Unload frees the texture.
func (b *Backdrop) Unload() {
	if b.loaded {
		rl.UnloadTexture(b.texture)
		b.loaded = false
	}
}
