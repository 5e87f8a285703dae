package systems

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/flockdraw/components"
	"github.com/pthm-cable/flockdraw/config"
)

// Band is the interaction regime a neighbor pair falls into.
type Band uint8

const (
	BandNone Band = iota // out of zone or coincident
	BandSeparation
	BandAlignment
	BandCohesion
	BandGroupRepel
)

func (b Band) String() string {
	switch b {
	case BandSeparation:
		return "separation"
	case BandAlignment:
		return "alignment"
	case BandCohesion:
		return "cohesion"
	case BandGroupRepel:
		return "group_repel"
	default:
		return "none"
	}
}

// Classify returns the same-group band for a normalized squared distance.
// low is inclusive for alignment and high is inclusive for cohesion.
func Classify(percent, low, high float64) Band {
	switch {
	case percent < low:
		return BandSeparation
	case percent < high:
		return BandAlignment
	default:
		return BandCohesion
	}
}

// Ease weights a force by position t in [0,1] within its band.
// It is 1 at both band edges and 0 mid-band.
func Ease(t float64) float64 {
	return 1 - (math.Cos(t*2*math.Pi)*-0.5 + 0.5)
}

// Interact accumulates the pair force between a and b into both accelerations.
// Pairs outside the zone radius and exactly coincident pairs are skipped.
func Interact(a, b *components.Kinematics, groupA, groupB int, cfg *config.FlockingConfig) Band {
	delta := r2.Sub(a.Pos, b.Pos)
	distSq := r2.Norm2(delta)
	if distSq >= cfg.ZoneRadiusSq || distSq == 0 {
		return BandNone
	}

	percent := distSq / cfg.ZoneRadiusSq
	dir := r2.Scale(1/math.Sqrt(distSq), delta) // points from b to a

	if groupA != groupB {
		// Soft repulsion regardless of band; beyond high it turns into a weak pull
		push(a, b, dir, (cfg.HighThresh/percent-1)*cfg.GroupRepelStrength)
		return BandGroupRepel
	}

	low, high := cfg.LowThresh, cfg.HighThresh
	band := Classify(percent, low, high)
	switch band {
	case BandSeparation:
		push(a, b, dir, (low/percent-1)*cfg.RepelStrength)

	case BandAlignment:
		f := Ease((percent-low)/(high-low)) * cfg.AlignStrength
		a.Acc = r2.Add(a.Acc, r2.Scale(f, b.Dir))
		b.Acc = r2.Add(b.Acc, r2.Scale(f, a.Dir))

	case BandCohesion:
		t := 0.0
		if high < 1 {
			t = (percent - high) / (1 - high)
		}
		push(a, b, dir, -Ease(t)*cfg.AttractStrength)
	}
	return band
}

// push moves a along dir and b against it by f. Negative f pulls them together.
func push(a, b *components.Kinematics, dir r2.Vec, f float64) {
	force := r2.Scale(f, dir)
	a.Acc = r2.Add(a.Acc, force)
	b.Acc = r2.Sub(b.Acc, force)
}
