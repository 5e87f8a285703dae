// Package telemetry collects windowed simulation statistics and tick timing.
package telemetry

// Collector accumulates events within time windows and produces WindowStats.
type Collector struct {
	windowDurationTicks int32
	dt                  float64

	windowStartTick int32

	spawned     int
	retired     int
	separations int
	alignments  int
	cohesions   int
	groupRepels int
	passes      int
}

// NewCollector creates a stats collector.
// windowDurationSec is the window length in simulation seconds, dt the seconds per tick.
func NewCollector(windowDurationSec, dt float64) *Collector {
	ticks := int32(1)
	if dt > 0 {
		ticks = max(int32(windowDurationSec/dt), 1)
	}
	return &Collector{
		windowDurationTicks: ticks,
		dt:                  dt,
	}
}

// RecordSpawn records n emitted particles.
func (c *Collector) RecordSpawn(n int) {
	c.spawned += n
}

// RecordRetire records n removed particles.
func (c *Collector) RecordRetire(n int) {
	c.retired += n
}

// BandCounts tallies pair interactions of one neighbor pass.
type BandCounts struct {
	Separation int
	Alignment  int
	Cohesion   int
	GroupRepel int
}

// Add merges o into b.
func (b *BandCounts) Add(o BandCounts) {
	b.Separation += o.Separation
	b.Alignment += o.Alignment
	b.Cohesion += o.Cohesion
	b.GroupRepel += o.GroupRepel
}

// RecordNeighborPass records the interactions of one neighbor pass.
func (c *Collector) RecordNeighborPass(b BandCounts) {
	c.separations += b.Separation
	c.alignments += b.Alignment
	c.cohesions += b.Cohesion
	c.groupRepels += b.GroupRepel
	c.passes++
}

// ShouldFlush returns true if enough ticks have passed to flush the window.
func (c *Collector) ShouldFlush(currentTick int32) bool {
	return currentTick-c.windowStartTick >= c.windowDurationTicks
}

// Flush produces a WindowStats and resets counters for the next window.
// speeds are the particle speeds sampled at window end.
func (c *Collector) Flush(currentTick int32, particles, groups int, speeds []float64) WindowStats {
	mean, std, p10, p50, p90 := ComputeSpeedStats(speeds)

	stats := WindowStats{
		WindowStartTick: c.windowStartTick,
		WindowEndTick:   currentTick,
		SimTimeSec:      float64(currentTick) * c.dt,

		Particles: particles,
		Groups:    groups,

		Spawned:      c.spawned,
		Retired:      c.retired,
		Separations:  c.separations,
		Alignments:   c.alignments,
		Cohesions:    c.cohesions,
		GroupRepels:  c.groupRepels,
		NeighborPass: c.passes,

		SpeedMean: mean,
		SpeedStd:  std,
		SpeedP10:  p10,
		SpeedP50:  p50,
		SpeedP90:  p90,
	}

	c.windowStartTick = currentTick
	c.spawned = 0
	c.retired = 0
	c.separations = 0
	c.alignments = 0
	c.cohesions = 0
	c.groupRepels = 0
	c.passes = 0

	return stats
}

// WindowDurationTicks returns the number of ticks per window.
func (c *Collector) WindowDurationTicks() int32 {
	return c.windowDurationTicks
}
