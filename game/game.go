// Package game hosts the emitter: it cycles reference images, drives the
// simulation clock, paints trails and routes telemetry.
package game

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/flockdraw/config"
	"github.com/pthm-cable/flockdraw/emitter"
	"github.com/pthm-cable/flockdraw/playlist"
	"github.com/pthm-cable/flockdraw/renderer"
	"github.com/pthm-cable/flockdraw/surface"
	"github.com/pthm-cable/flockdraw/telemetry"
	"github.com/pthm-cable/flockdraw/ui"
)

// maxFrameDT caps the simulated step after a stall (window drag, breakpoint).
const maxFrameDT = 0.1

// Options configures a Game.
type Options struct {
	Seed           int64
	Images         []string
	LogStats       bool
	StatsWindowSec float64
	OutputDir      string
	Headless       bool
}

// Game holds the complete application state.
type Game struct {
	cfg     *config.Config
	seed    int64
	emitter *emitter.Emitter

	// Image cycling
	playlist *playlist.Playlist
	image    string // label of the current image, "" before the first switch

	// Rendering (nil when headless)
	particles *renderer.ParticleRenderer
	backdrop  *renderer.Backdrop
	controls  *ui.ControlsPanel
	hud       *ui.HUD

	// Telemetry
	collector        *telemetry.Collector
	perf             *telemetry.PerfCollector
	bookmarkDetector *telemetry.BookmarkDetector
	outputManager    *telemetry.OutputManager
	logStats         bool
	speeds           []float64 // scratch for speed percentiles

	// State
	headless     bool
	paused       bool
	now          float64
	screenWidth  int32
	screenHeight int32
	configPath   string // where S saves the tuned config
}

// NewGameWithOptions creates a game from the global configuration.
// In graphical mode the raylib window must already be open.
func NewGameWithOptions(opts Options) (*Game, error) {
	cfg := config.Cfg()

	statsWindow := opts.StatsWindowSec
	if statsWindow <= 0 {
		statsWindow = cfg.Telemetry.StatsWindow
	}
	dt := cfg.Telemetry.HeadlessDT
	if !opts.Headless && cfg.Screen.TargetFPS > 0 {
		dt = 1 / float64(cfg.Screen.TargetFPS)
	}

	g := &Game{
		cfg:              cfg,
		seed:             opts.Seed,
		playlist:         playlist.New(opts.Images, cfg.Playlist.CycleSeconds),
		collector:        telemetry.NewCollector(statsWindow, dt),
		perf:             telemetry.NewPerfCollector(cfg.Telemetry.PerfCollectorWindow),
		bookmarkDetector: telemetry.NewBookmarkDetector(cfg.Telemetry.BookmarkHistory),
		logStats:         opts.LogStats,
		headless:         opts.Headless,
		screenWidth:      int32(cfg.Screen.Width),
		screenHeight:     int32(cfg.Screen.Height),
		configPath:       "flockdraw.yaml",
	}

	om, err := telemetry.NewOutputManager(opts.OutputDir)
	if err != nil {
		return nil, err
	}
	g.outputManager = om
	if err := om.WriteConfig(cfg); err != nil {
		slog.Error("failed to write config", "error", err)
	}
	if dir := om.Dir(); dir != "" {
		g.configPath = filepath.Join(dir, "config.tuned.yaml")
	}

	e, err := emitter.New(cfg,
		emitter.WithSeed(opts.Seed),
		emitter.WithCollector(g.collector),
		emitter.WithPerf(g.perf),
	)
	if err != nil {
		om.Close()
		return nil, fmt.Errorf("creating emitter: %w", err)
	}
	g.emitter = e

	if !g.headless {
		g.particles = renderer.NewParticleRenderer(g.screenWidth, g.screenHeight)
		g.backdrop = renderer.NewBackdrop()
		g.controls = ui.NewControlsPanel(10, 10, 300)
		g.hud = ui.NewHUD()
	}

	// Headless runs without images draw on procedural noise
	if g.headless && g.playlist.Len() == 0 {
		if err := g.useNoiseSurface(); err != nil {
			g.Unload()
			return nil, err
		}
	}

	slog.Info("game created",
		"seed", opts.Seed,
		"images", g.playlist.Len(),
		"headless", g.headless,
		"strategy", e.Strategy().Name(),
	)
	return g, nil
}

// useNoiseSurface binds a procedural surface the size of the world and emits the bursts.
func (g *Game) useNoiseSurface() error {
	w, h := int(g.cfg.Derived.WorldW), int(g.cfg.Derived.WorldH)
	noise, err := surface.Noise(w, h, g.cfg.Telemetry.NoiseScale, g.seed)
	if err != nil {
		return fmt.Errorf("building noise surface: %w", err)
	}
	g.image = "noise"
	g.applySurface(noise, r2.Vec{})
	return nil
}

// Emitter returns the simulation.
func (g *Game) Emitter() *emitter.Emitter {
	return g.emitter
}

// Tick returns the current simulation tick.
func (g *Game) Tick() int32 {
	return g.emitter.Tick()
}

// Unload releases the emitter, GPU resources and output files.
func (g *Game) Unload() {
	g.emitter.Close()
	if g.particles != nil {
		g.particles.Unload()
	}
	if g.backdrop != nil {
		g.backdrop.Unload()
	}
	if err := g.outputManager.Close(); err != nil {
		slog.Error("failed to close output", "error", err)
	}
}
