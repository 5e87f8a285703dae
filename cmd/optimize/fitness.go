package main

import (
	"log/slog"
	"math"
	"sync"

	"github.com/pthm-cable/flockdraw/config"
	"github.com/pthm-cable/flockdraw/emitter"
	"github.com/pthm-cable/flockdraw/surface"
	"github.com/pthm-cable/flockdraw/telemetry"
)

// invalidFitness is returned for parameter sets the config rejects
// (e.g. low_thresh above high_thresh).
const invalidFitness = 10.0

// Mix is the share of same-group interactions falling in each band.
type Mix struct {
	Separation float64
	Alignment  float64
	Cohesion   float64
}

// MixOf normalizes band counts into a Mix. Returns ok=false without interactions.
func MixOf(b telemetry.BandCounts) (Mix, bool) {
	total := float64(b.Separation + b.Alignment + b.Cohesion)
	if total == 0 {
		return Mix{}, false
	}
	return Mix{
		Separation: float64(b.Separation) / total,
		Alignment:  float64(b.Alignment) / total,
		Cohesion:   float64(b.Cohesion) / total,
	}, true
}

// Distance is the squared error between two mixes.
func (m Mix) Distance(o Mix) float64 {
	ds := m.Separation - o.Separation
	da := m.Alignment - o.Alignment
	dc := m.Cohesion - o.Cohesion
	return ds*ds + da*da + dc*dc
}

// FitnessEvaluator runs headless emitters and scores how close the resulting
// interaction mix lands to a target.
type FitnessEvaluator struct {
	params     *ParamVector
	ticks      int
	seeds      []int64
	baseConfig *config.Config
	target     Mix

	mu      sync.Mutex
	lastMix Mix // from the most recent Evaluate call
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, ticks int, seeds []int64, baseCfg *config.Config, target Mix) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:     params,
		ticks:      ticks,
		seeds:      seeds,
		baseConfig: baseCfg,
		target:     target,
	}
}

// LastMix returns the averaged mix from the most recent evaluation.
func (fe *FitnessEvaluator) LastMix() Mix {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastMix
}

// Evaluate computes fitness for a parameter vector (lower = better).
// Seeds run concurrently, each on its own emitter and noise surface.
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	cfg := fe.baseConfig.Clone()
	fe.params.ApplyToConfig(cfg, x)
	if err := cfg.Validate(); err != nil {
		return invalidFitness
	}

	mixes := make([]Mix, len(fe.seeds))
	valid := make([]bool, len(fe.seeds))
	var wg sync.WaitGroup
	for i, seed := range fe.seeds {
		wg.Add(1)
		go func() {
			defer wg.Done()
			mixes[i], valid[i] = fe.run(cfg.Clone(), seed)
		}()
	}
	wg.Wait()

	var avg Mix
	n := 0
	for i, m := range mixes {
		if !valid[i] {
			continue
		}
		avg.Separation += m.Separation
		avg.Alignment += m.Alignment
		avg.Cohesion += m.Cohesion
		n++
	}
	if n == 0 {
		return invalidFitness
	}
	avg.Separation /= float64(n)
	avg.Alignment /= float64(n)
	avg.Cohesion /= float64(n)

	fe.mu.Lock()
	fe.lastMix = avg
	fe.mu.Unlock()

	// Seeds that never interacted count as a full miss
	return avg.Distance(fe.target) + float64(len(fe.seeds)-n)
}

// run simulates one seed and returns its interaction mix.
func (fe *FitnessEvaluator) run(cfg *config.Config, seed int64) (Mix, bool) {
	surf, err := surface.Noise(int(cfg.Derived.WorldW), int(cfg.Derived.WorldH), cfg.Telemetry.NoiseScale, seed)
	if err != nil {
		slog.Error("noise surface", "error", err)
		return Mix{}, false
	}
	e, err := emitter.New(cfg, emitter.WithSurface(surf), emitter.WithSeed(seed))
	if err != nil {
		slog.Error("emitter", "error", err)
		return Mix{}, false
	}
	defer e.Close()

	for group := range cfg.Playlist.Bursts {
		e.AddParticles(cfg.Playlist.BurstSize, group)
	}

	var total telemetry.BandCounts
	dt := cfg.Telemetry.HeadlessDT
	for t := 1; t <= fe.ticks; t++ {
		e.Update(float64(t)*dt, dt)
		total.Add(e.LastBands())
	}
	return MixOf(total)
}

// normalizeTarget rescales a target mix to sum to one.
func normalizeTarget(m Mix) Mix {
	sum := m.Separation + m.Alignment + m.Cohesion
	if !(sum > 0) || math.IsInf(sum, 0) {
		return Mix{Separation: 1.0 / 3, Alignment: 1.0 / 3, Cohesion: 1.0 / 3}
	}
	return Mix{Separation: m.Separation / sum, Alignment: m.Alignment / sum, Cohesion: m.Cohesion / sum}
}
