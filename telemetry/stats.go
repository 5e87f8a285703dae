package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// WindowStats holds aggregated statistics for a time window.
type WindowStats struct {
	WindowStartTick int32   `csv:"-"`
	WindowEndTick   int32   `csv:"window_end"`
	SimTimeSec      float64 `csv:"sim_time"`

	// Population at window end
	Particles int `csv:"particles"`
	Groups    int `csv:"groups"`

	// Events during window
	Spawned int `csv:"spawned"`
	Retired int `csv:"retired"`

	// Pair interactions during window, by band
	Separations  int `csv:"separations"`
	Alignments   int `csv:"alignments"`
	Cohesions    int `csv:"cohesions"`
	GroupRepels  int `csv:"group_repels"`
	NeighborPass int `csv:"neighbor_passes"`

	// Speed distribution (sampled at window end)
	SpeedMean float64 `csv:"speed_mean"`
	SpeedStd  float64 `csv:"speed_std"`
	SpeedP10  float64 `csv:"speed_p10"`
	SpeedP50  float64 `csv:"speed_p50"`
	SpeedP90  float64 `csv:"speed_p90"`
}

// Percentile returns the empirical p-quantile of a sorted slice.
// Returns 0 for an empty slice.
func Percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	p = min(max(p, 0), 1)
	return stat.Quantile(p, stat.Empirical, sorted, nil)
}

// ComputeSpeedStats returns mean, standard deviation and percentiles of values.
func ComputeSpeedStats(values []float64) (mean, std, p10, p50, p90 float64) {
	switch len(values) {
	case 0:
		return 0, 0, 0, 0, 0
	case 1:
		v := values[0]
		return v, 0, v, v, v
	}

	mean, std = stat.MeanStdDev(values, nil)

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	return mean, std, Percentile(sorted, 0.10), Percentile(sorted, 0.50), Percentile(sorted, 0.90)
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("window_start", int(s.WindowStartTick)),
		slog.Int("window_end", int(s.WindowEndTick)),
		slog.Float64("sim_time", s.SimTimeSec),
		slog.Int("particles", s.Particles),
		slog.Int("groups", s.Groups),
		slog.Int("spawned", s.Spawned),
		slog.Int("retired", s.Retired),
		slog.Int("separations", s.Separations),
		slog.Int("alignments", s.Alignments),
		slog.Int("cohesions", s.Cohesions),
		slog.Int("group_repels", s.GroupRepels),
		slog.Int("neighbor_passes", s.NeighborPass),
		slog.Float64("speed_mean", s.SpeedMean),
		slog.Float64("speed_std", s.SpeedStd),
		slog.Float64("speed_p10", s.SpeedP10),
		slog.Float64("speed_p50", s.SpeedP50),
		slog.Float64("speed_p90", s.SpeedP90),
	)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	slog.Info("stats",
		"window_end", s.WindowEndTick,
		"sim_time", s.SimTimeSec,
		"particles", s.Particles,
		"groups", s.Groups,
		"spawned", s.Spawned,
		"retired", s.Retired,
		"separations", s.Separations,
		"alignments", s.Alignments,
		"cohesions", s.Cohesions,
		"group_repels", s.GroupRepels,
		"speed_mean", s.SpeedMean,
		"speed_p50", s.SpeedP50,
	)
}
