// Package playlist cycles reference images on a fixed period.
package playlist

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/pthm-cable/flockdraw/surface"
)

// ErrEmpty is returned when a playlist has nothing to load.
var ErrEmpty = errors.New("playlist: no images")

// Playlist hands out image paths in order, wrapping around.
// A new playlist is due immediately so the first Advance switches.
type Playlist struct {
	paths   []string
	next    int
	period  float64
	elapsed float64
}

// New creates a playlist switching every period seconds.
func New(paths []string, period float64) *Playlist {
	p := &Playlist{period: period}
	p.Replace(paths)
	return p
}

// Replace swaps in a new list of paths and makes a switch due.
func (p *Playlist) Replace(paths []string) {
	p.paths = append(p.paths[:0], paths...)
	p.next = 0
	p.Skip()
}

// Skip makes the next Advance switch regardless of elapsed time.
func (p *Playlist) Skip() {
	p.elapsed = p.period
}

// SetPeriod changes the cycle period without resetting the clock.
func (p *Playlist) SetPeriod(period float64) {
	p.period = period
}

// Advance moves the clock by dt and returns the path to switch to, if due.
// An empty playlist never switches.
func (p *Playlist) Advance(dt float64) (string, bool) {
	if len(p.paths) == 0 {
		return "", false
	}

	p.elapsed += max(dt, 0)
	if p.elapsed < p.period {
		return "", false
	}
	if p.period > 0 {
		p.elapsed -= p.period
		// Long stalls switch once, not once per missed period
		if p.elapsed >= p.period {
			p.elapsed = 0
		}
	} else {
		p.elapsed = 0
	}

	path := p.paths[p.next]
	p.next = (p.next + 1) % len(p.paths)
	return path, true
}

// Len returns the number of paths.
func (p *Playlist) Len() int { return len(p.paths) }

// Paths returns a copy of the paths in playback order.
func (p *Playlist) Paths() []string {
	return append([]string(nil), p.paths...)
}

// Load decodes the image at path into a sampling surface.
func Load(path string) (*surface.Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening image: %w", err)
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", filepath.Base(path), err)
	}

	buf, err := surface.FromImage(img)
	if err != nil {
		return nil, fmt.Errorf("converting %s image: %w", format, err)
	}
	return buf, nil
}

// Label returns a short display name for path.
func Label(path string) string {
	base := filepath.Base(path)
	return base[:len(base)-len(filepath.Ext(base))]
}
