package main

import (
	"fmt"
	"os"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/flockdraw/config"
)

// EvalRecord is one row of optimize_log.csv.
type EvalRecord struct {
	Eval       int     `csv:"eval"`
	Fitness    float64 `csv:"fitness"`
	Separation float64 `csv:"separation"`
	Alignment  float64 `csv:"alignment"`
	Cohesion   float64 `csv:"cohesion"`

	RepelStrength      float64 `csv:"repel_strength"`
	AlignStrength      float64 `csv:"align_strength"`
	AttractStrength    float64 `csv:"attract_strength"`
	GroupRepelStrength float64 `csv:"group_repel_strength"`
	LowThresh          float64 `csv:"low_thresh"`
	HighThresh         float64 `csv:"high_thresh"`
	Dampness           float64 `csv:"dampness"`
}

func newEvalRecord(eval int, fitness float64, mix Mix, cfg *config.Config) EvalRecord {
	return EvalRecord{
		Eval:               eval,
		Fitness:            fitness,
		Separation:         mix.Separation,
		Alignment:          mix.Alignment,
		Cohesion:           mix.Cohesion,
		RepelStrength:      cfg.Flocking.RepelStrength,
		AlignStrength:      cfg.Flocking.AlignStrength,
		AttractStrength:    cfg.Flocking.AttractStrength,
		GroupRepelStrength: cfg.Flocking.GroupRepelStrength,
		LowThresh:          cfg.Flocking.LowThresh,
		HighThresh:         cfg.Flocking.HighThresh,
		Dampness:           cfg.Particle.Dampness,
	}
}

// tuner wraps the evaluator with progress reporting and best-so-far tracking.
type tuner struct {
	params    *ParamVector
	evaluator *FitnessEvaluator
	baseCfg   *config.Config
	maxEvals  int

	log           *os.File
	headerWritten bool

	evals       int
	bestFitness float64
	bestParams  []float64
	start       time.Time
}

func newTuner(params *ParamVector, evaluator *FitnessEvaluator, baseCfg *config.Config, maxEvals int, log *os.File) *tuner {
	return &tuner{
		params:      params,
		evaluator:   evaluator,
		baseCfg:     baseCfg,
		maxEvals:    maxEvals,
		log:         log,
		bestFitness: invalidFitness * 2,
		start:       time.Now(),
	}
}

// objective is the CMA-ES cost function over normalized parameters.
func (t *tuner) objective(x []float64) float64 {
	// Clamped values are the ones actually simulated
	raw := t.params.Clamp(t.params.Denormalize(x))
	fitness := t.evaluator.Evaluate(raw)
	t.evals++

	if fitness < t.bestFitness {
		t.bestFitness = fitness
		t.bestParams = raw
	}

	mix := t.evaluator.LastMix()
	if err := t.record(newEvalRecord(t.evals, fitness, mix, t.configFor(raw))); err != nil {
		fmt.Fprintf(os.Stderr, "log write failed: %v\n", err)
	}

	elapsed := time.Since(t.start)
	remaining := time.Duration(t.maxEvals-t.evals) * (elapsed / time.Duration(t.evals))
	fmt.Printf("Eval %d/%d: error=%.5f mix=%.2f/%.2f/%.2f (best=%.5f) | elapsed: %s, ETA: %s\n",
		t.evals, t.maxEvals, fitness, mix.Separation, mix.Alignment, mix.Cohesion, t.bestFitness,
		formatDuration(elapsed), formatDuration(remaining))

	return fitness
}

func (t *tuner) record(r EvalRecord) error {
	marshal := gocsv.MarshalWithoutHeaders
	if !t.headerWritten {
		marshal = gocsv.Marshal
	}
	if err := marshal([]EvalRecord{r}, t.log); err != nil {
		return err
	}
	t.headerWritten = true
	return nil
}

// configFor returns a copy of the base config with raw applied.
func (t *tuner) configFor(raw []float64) *config.Config {
	cfg := t.baseCfg.Clone()
	t.params.ApplyToConfig(cfg, raw)
	return cfg
}

// formatDuration formats a duration as 1h02m03s, or 2m03s below an hour.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	return fmt.Sprintf("%dm%02ds", m, s)
}
