package systems

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/flockdraw/components"
	"github.com/pthm-cable/flockdraw/config"
)

func flockingConfig() *config.FlockingConfig {
	return &config.FlockingConfig{
		ZoneRadiusSq:       5625,
		RepelStrength:      0.04,
		AlignStrength:      0.04,
		AttractStrength:    0.02,
		GroupRepelStrength: 0.02,
		LowThresh:          0.125,
		HighThresh:         0.65,
	}
}

// pairAt places two particles dist apart along the x axis.
func pairAt(dist float64) (*components.Kinematics, *components.Kinematics) {
	a := &components.Kinematics{Pos: r2.Vec{X: 100, Y: 100}, Dir: r2.Vec{X: 0, Y: 1}}
	b := &components.Kinematics{Pos: r2.Vec{X: 100 + dist, Y: 100}, Dir: r2.Vec{X: 1, Y: 0}}
	return a, b
}

func TestClassifyBoundaries(t *testing.T) {
	const low, high = 0.125, 0.65

	tests := []struct {
		percent float64
		want    Band
	}{
		{0, BandSeparation},
		{math.Nextafter(low, 0), BandSeparation},
		{low, BandAlignment},
		{math.Nextafter(high, 0), BandAlignment},
		{high, BandCohesion},
		{math.Nextafter(1, 0), BandCohesion},
	}
	for _, tt := range tests {
		if got := Classify(tt.percent, low, high); got != tt.want {
			t.Errorf("Classify(%v) = %v, want %v", tt.percent, got, tt.want)
		}
	}
}

func TestEase(t *testing.T) {
	tests := []struct {
		t, want float64
	}{
		{0, 1},
		{0.25, 0.5},
		{0.5, 0},
		{1, 1},
	}
	for _, tt := range tests {
		if got := Ease(tt.t); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("Ease(%v) = %v, want %v", tt.t, got, tt.want)
		}
	}
}

func TestSeparationScenario(t *testing.T) {
	cfg := flockingConfig()
	a, b := pairAt(20)

	if band := Interact(a, b, components.Ungrouped, components.Ungrouped, cfg); band != BandSeparation {
		t.Fatalf("expected separation, got %v", band)
	}

	percent := 400.0 / 5625.0
	want := (0.125/percent - 1) * 0.04
	if math.Abs(want-0.0303) > 0.001 {
		t.Fatalf("scenario arithmetic drifted: %v", want)
	}

	// a sits left of b, so it is pushed toward -x and b toward +x
	if math.Abs(a.Acc.X+want) > 1e-12 || math.Abs(b.Acc.X-want) > 1e-12 {
		t.Errorf("expected ±%v along x, got a=%v b=%v", want, a.Acc, b.Acc)
	}
	if a.Acc.Y != 0 || b.Acc.Y != 0 {
		t.Errorf("expected force along the connecting line, got a=%v b=%v", a.Acc, b.Acc)
	}
}

func TestAlignmentBlendsDirections(t *testing.T) {
	cfg := flockingConfig()
	// percent = 1600/5625 ≈ 0.284, inside the alignment band
	a, b := pairAt(40)

	if band := Interact(a, b, 3, 3, cfg); band != BandAlignment {
		t.Fatalf("expected alignment, got %v", band)
	}
	if a.Acc.X <= 0 || a.Acc.Y != 0 {
		t.Errorf("expected a to gain b's heading (+x), got %v", a.Acc)
	}
	if b.Acc.Y <= 0 || b.Acc.X != 0 {
		t.Errorf("expected b to gain a's heading (+y), got %v", b.Acc)
	}
}

func TestCohesionPullsTogether(t *testing.T) {
	cfg := flockingConfig()
	// percent = 4900/5625 ≈ 0.871, inside the cohesion band
	a, b := pairAt(70)

	if band := Interact(a, b, 0, 0, cfg); band != BandCohesion {
		t.Fatalf("expected cohesion, got %v", band)
	}
	if a.Acc.X <= 0 || b.Acc.X >= 0 {
		t.Errorf("expected a pulled toward +x and b toward -x, got a=%v b=%v", a.Acc, b.Acc)
	}
}

func TestGroupRepel(t *testing.T) {
	cfg := flockingConfig()
	a, b := pairAt(40)

	if band := Interact(a, b, 0, 1, cfg); band != BandGroupRepel {
		t.Fatalf("expected group repel, got %v", band)
	}
	if a.Acc.X >= 0 || b.Acc.X <= 0 {
		t.Errorf("expected groups pushed apart, got a=%v b=%v", a.Acc, b.Acc)
	}
}

func TestInteractSkipsDegeneratePairs(t *testing.T) {
	cfg := flockingConfig()

	tests := []struct {
		name string
		dist float64
	}{
		{"coincident", 0},
		{"on zone edge", 75},
		{"outside zone", 200},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, b := pairAt(tt.dist)
			if band := Interact(a, b, 0, 0, cfg); band != BandNone {
				t.Errorf("expected no interaction, got %v", band)
			}
			if a.Acc != (r2.Vec{}) || b.Acc != (r2.Vec{}) {
				t.Errorf("expected untouched accelerations, got a=%v b=%v", a.Acc, b.Acc)
			}
		})
	}
}

func TestForcesSuperpose(t *testing.T) {
	cfg := flockingConfig()
	a := &components.Kinematics{Pos: r2.Vec{X: 50, Y: 50}}
	left := &components.Kinematics{Pos: r2.Vec{X: 30, Y: 50}}
	right := &components.Kinematics{Pos: r2.Vec{X: 70, Y: 50}}

	Interact(a, left, 0, 0, cfg)
	Interact(a, right, 0, 0, cfg)

	// symmetric neighbors cancel
	if math.Abs(a.Acc.X) > 1e-12 {
		t.Errorf("expected symmetric forces to cancel, got %v", a.Acc)
	}
}
