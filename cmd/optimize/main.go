// Package main tunes the flocking strengths with CMA-ES so that headless runs
// land on a target mix of separation, alignment and cohesion.
//
// Usage: go run ./cmd/optimize -output runs/tune -target-alignment 0.5
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"gonum.org/v1/gonum/optimize"

	"github.com/pthm-cable/flockdraw/config"
)

func main() {
	configPath := flag.String("config", "", "Base config YAML file (empty = use defaults)")
	ticks := flag.Int("ticks", 600, "Simulation ticks per run")
	seeds := flag.Int("seeds", 3, "Number of seeds per evaluation")
	maxEvals := flag.Int("max-evals", 200, "Maximum number of evaluations")
	population := flag.Int("population", 0, "CMA-ES population size (0 = auto)")
	targetSep := flag.Float64("target-separation", 0.2, "Target share of separation interactions")
	targetAlign := flag.Float64("target-alignment", 0.4, "Target share of alignment interactions")
	targetCoh := flag.Float64("target-cohesion", 0.4, "Target share of cohesion interactions")
	outputDir := flag.String("output", "", "Output directory for results")
	flag.Parse()

	if *outputDir == "" {
		log.Fatal("--output is required")
	}
	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		log.Fatalf("failed to create output directory: %v", err)
	}
	if err := config.Init(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	baseCfg := config.Cfg()

	evalSeeds := make([]int64, *seeds)
	for i := range evalSeeds {
		evalSeeds[i] = int64(i*1000 + 42)
	}

	params := NewParamVector()
	target := normalizeTarget(Mix{Separation: *targetSep, Alignment: *targetAlign, Cohesion: *targetCoh})
	evaluator := NewFitnessEvaluator(params, *ticks, evalSeeds, baseCfg, target)

	logFile, err := os.Create(filepath.Join(*outputDir, "optimize_log.csv"))
	if err != nil {
		log.Fatalf("failed to create log file: %v", err)
	}
	defer logFile.Close()

	t := newTuner(params, evaluator, baseCfg, *maxEvals, logFile)

	popSize := *population
	if popSize == 0 {
		popSize = 4 + 3*params.Dim()/2
	}

	fmt.Printf("CMA-ES over %d parameters, population=%d, max_evals=%d\n", params.Dim(), popSize, *maxEvals)
	fmt.Printf("%d seeds x %d ticks per evaluation, target mix %.2f/%.2f/%.2f\n",
		*seeds, *ticks, target.Separation, target.Alignment, target.Cohesion)

	result, err := optimize.Minimize(
		optimize.Problem{Func: t.objective},
		params.Normalize(params.ExtractFromConfig(baseCfg)),
		&optimize.Settings{FuncEvaluations: *maxEvals},
		&optimize.CmaEsChol{InitStepSize: 0.3, Population: popSize},
	)
	if err != nil {
		log.Printf("optimization ended: %v", err)
	}

	best := t.bestParams
	if best == nil && result != nil {
		best = params.Clamp(params.Denormalize(result.X))
	}

	fmt.Printf("\nDone after %d evaluations in %s, best error %.5f\n",
		t.evals, formatDuration(time.Since(t.start)), t.bestFitness)
	if best == nil {
		return
	}

	for i, spec := range params.Specs {
		fmt.Printf("  %s: %.6f\n", spec.Path, best[i])
	}

	out := filepath.Join(*outputDir, "best_config.yaml")
	if err := t.configFor(best).WriteYAML(out); err != nil {
		log.Printf("failed to write best config: %v", err)
		return
	}
	fmt.Printf("Best config saved to: %s\n", out)
}
