// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Configuration errors returned by Validate.
var (
	ErrThresholds  = errors.New("flocking thresholds must satisfy 0 <= low_thresh < high_thresh <= 1")
	ErrZoneRadius  = errors.New("flocking zone_radius_sq must be positive")
	ErrGrid        = errors.New("grid cell size must be positive")
	ErrWorld       = errors.New("world dimensions must be positive")
	ErrSpeedBounds = errors.New("particle speed bounds must satisfy 0 <= min <= max")
	ErrStrategy    = errors.New("unknown neighbor strategy")
	ErrSpeedClamp  = errors.New("unknown speed clamp mode")
	ErrSteerMetric = errors.New("unknown steer metric")
	ErrLifetime    = errors.New("emitter lifetimes and fade times must be non-negative")
)

// Neighbor strategies.
const (
	StrategyPairwise = "pairwise"
	StrategyGrid     = "grid"
)

// Speed clamp modes.
const (
	// ClampLinear rescales velocity to sqrt(bound) so |v|² lands on the bound.
	ClampLinear = "linear"
	// ClampSquared rescales velocity to the squared bound itself.
	ClampSquared = "squared"
)

// Steer metrics.
const (
	MetricLuminance = "luminance"
	MetricColor     = "color"
)

// Config holds all simulation configuration parameters.
type Config struct {
	Screen    ScreenConfig    `yaml:"screen"`
	World     WorldConfig     `yaml:"world"`
	Emitter   EmitterConfig   `yaml:"emitter"`
	Flocking  FlockingConfig  `yaml:"flocking"`
	Particle  ParticleConfig  `yaml:"particle"`
	Steering  SteeringConfig  `yaml:"steering"`
	Grid      GridConfig      `yaml:"grid"`
	Parallel  ParallelConfig  `yaml:"parallel"`
	Playlist  PlaylistConfig  `yaml:"playlist"`
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// ScreenConfig holds display settings.
type ScreenConfig struct {
	Width     int     `yaml:"width"`
	Height    int     `yaml:"height"`
	TargetFPS int     `yaml:"target_fps"`
	TrailFade float64 `yaml:"trail_fade"` // Alpha of the black overlay drawn each frame (0-1)
}

// WorldConfig holds the simulation plane used when no surface is bound.
type WorldConfig struct {
	Width  float64 `yaml:"width"`  // 0 = screen width
	Height float64 `yaml:"height"` // 0 = screen height
}

// EmitterConfig holds spawning parameters.
type EmitterConfig struct {
	ParticlesPerSecond float64 `yaml:"particles_per_second"`
	Group              int     `yaml:"group"`         // Group assigned to rate-emitted particles
	MinLifeTime        float64 `yaml:"min_life_time"` // Lifetimes are only assigned when min < max
	MaxLifeTime        float64 `yaml:"max_life_time"`
	FadeInTime         float64 `yaml:"fade_in_time"`
	FadeOutTime        float64 `yaml:"fade_out_time"`
	EmissionArea       float64 `yaml:"emission_area"`  // Fraction of surface size used as spawn area
	HeadingSpread      float64 `yaml:"heading_spread"` // Radians around the per-burst base heading
	GracePeriod        float64 `yaml:"grace_period"`   // Seconds granted by a graceful kill-all
	FlockInterval      float64 `yaml:"flock_interval"` // Seconds between neighbor passes (0 = every tick)
}

// FlockingConfig holds the pairwise interaction tunables.
type FlockingConfig struct {
	ZoneRadiusSq       float64 `yaml:"zone_radius_sq"`
	RepelStrength      float64 `yaml:"repel_strength"`
	AlignStrength      float64 `yaml:"align_strength"`
	AttractStrength    float64 `yaml:"attract_strength"`
	GroupRepelStrength float64 `yaml:"group_repel_strength"`
	LowThresh          float64 `yaml:"low_thresh"`
	HighThresh         float64 `yaml:"high_thresh"`
	Strategy           string  `yaml:"strategy"` // pairwise | grid
}

// ParticleConfig holds per-particle kinematic parameters.
type ParticleConfig struct {
	SizeRatio     float64 `yaml:"size_ratio"`
	SpeedRatio    float64 `yaml:"speed_ratio"`
	Dampness      float64 `yaml:"dampness"` // Acceleration decay per tick
	MinSpeedSqLo  float64 `yaml:"min_speed_sq_lo"`
	MinSpeedSqHi  float64 `yaml:"min_speed_sq_hi"`
	MaxSpeedSqLo  float64 `yaml:"max_speed_sq_lo"`
	MaxSpeedSqHi  float64 `yaml:"max_speed_sq_hi"`
	Kick          float64 `yaml:"kick"` // Initial acceleration magnitude
	Radius        float64 `yaml:"radius"`
	MinRadius     float64 `yaml:"min_radius"`
	SpeedClamp    string  `yaml:"speed_clamp"` // linear | squared
}

// SteeringConfig holds image-guided steering parameters.
type SteeringConfig struct {
	Enabled          bool    `yaml:"enabled"`
	ProbeDistance    float64 `yaml:"probe_distance"`
	ConeAngle        float64 `yaml:"cone_angle"` // Degrees
	SteerRate        float64 `yaml:"steer_rate"` // Degrees per second
	ColorRedirection float64 `yaml:"color_redirection"`
	Metric           string  `yaml:"metric"` // luminance | color
}

// GridConfig holds spatial index parameters.
type GridConfig struct {
	CellSize float64 `yaml:"cell_size"` // 0 = derive from zone radius
	Wrap     bool    `yaml:"wrap"`
}

// ParallelConfig holds worker pool parameters for the neighbor pass.
type ParallelConfig struct {
	Enabled bool `yaml:"enabled"`
	Workers int  `yaml:"workers"` // 0 = GOMAXPROCS
}

// PlaylistConfig holds image cycling parameters.
type PlaylistConfig struct {
	CycleSeconds float64 `yaml:"cycle_seconds"`
	Bursts       int     `yaml:"bursts"`
	BurstSize    int     `yaml:"burst_size"`
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow         float64 `yaml:"stats_window"`
	PerfCollectorWindow int     `yaml:"perf_collector_window"`
	HeadlessDT          float64 `yaml:"headless_dt"`
	NoiseScale          float64 `yaml:"noise_scale"`      // Feature size of the headless noise surface
	BookmarkHistory     int     `yaml:"bookmark_history"` // Windows of rolling history for bookmark detection
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	WorldW     float64 // Effective world width
	WorldH     float64 // Effective world height
	ZoneRadius float64 // sqrt(ZoneRadiusSq)
	CellSize   float64 // Effective grid cell size
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Default returns a fresh copy of the embedded defaults.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults invalid: %v", err))
	}
	return cfg
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	// Start with embedded defaults
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	// Load user config if provided
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cfg.computeDerived()

	return cfg, nil
}

// Validate reports configuration errors. Invalid values are rejected, never clamped.
func (c *Config) Validate() error {
	f := c.Flocking
	if !(f.LowThresh >= 0 && f.LowThresh < f.HighThresh && f.HighThresh <= 1) {
		return fmt.Errorf("%w (low=%v high=%v)", ErrThresholds, f.LowThresh, f.HighThresh)
	}
	if !(f.ZoneRadiusSq > 0) || math.IsInf(f.ZoneRadiusSq, 0) {
		return fmt.Errorf("%w (got %v)", ErrZoneRadius, f.ZoneRadiusSq)
	}
	switch f.Strategy {
	case StrategyPairwise, StrategyGrid:
	default:
		return fmt.Errorf("%w: %q", ErrStrategy, f.Strategy)
	}

	if c.Grid.CellSize < 0 {
		return fmt.Errorf("%w (got %v)", ErrGrid, c.Grid.CellSize)
	}
	if c.World.Width < 0 || c.World.Height < 0 {
		return fmt.Errorf("%w (got %vx%v)", ErrWorld, c.World.Width, c.World.Height)
	}
	if c.World.Width == 0 && c.Screen.Width <= 0 || c.World.Height == 0 && c.Screen.Height <= 0 {
		return fmt.Errorf("%w: no world or screen size", ErrWorld)
	}

	e := c.Emitter
	if e.MinLifeTime < 0 || e.MaxLifeTime < 0 || e.FadeInTime < 0 || e.FadeOutTime < 0 || e.GracePeriod < 0 {
		return fmt.Errorf("%w (life=[%v,%v] fade=[%v,%v] grace=%v)", ErrLifetime,
			e.MinLifeTime, e.MaxLifeTime, e.FadeInTime, e.FadeOutTime, e.GracePeriod)
	}

	p := c.Particle
	if p.MinSpeedSqLo < 0 || p.MinSpeedSqLo > p.MinSpeedSqHi || p.MaxSpeedSqLo > p.MaxSpeedSqHi || p.MinSpeedSqHi > p.MaxSpeedSqLo {
		return fmt.Errorf("%w (min=[%v,%v] max=[%v,%v])", ErrSpeedBounds,
			p.MinSpeedSqLo, p.MinSpeedSqHi, p.MaxSpeedSqLo, p.MaxSpeedSqHi)
	}
	switch p.SpeedClamp {
	case ClampLinear, ClampSquared:
	default:
		return fmt.Errorf("%w: %q", ErrSpeedClamp, p.SpeedClamp)
	}

	switch c.Steering.Metric {
	case MetricLuminance, MetricColor:
	default:
		return fmt.Errorf("%w: %q", ErrSteerMetric, c.Steering.Metric)
	}

	return nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	// World dimensions default to screen size if not specified
	c.Derived.WorldW = c.World.Width
	if c.Derived.WorldW == 0 {
		c.Derived.WorldW = float64(c.Screen.Width)
	}
	c.Derived.WorldH = c.World.Height
	if c.Derived.WorldH == 0 {
		c.Derived.WorldH = float64(c.Screen.Height)
	}

	c.Refresh()
}

// Refresh recomputes the values that depend on live-tunable fields.
// Call after mutating Flocking.ZoneRadiusSq or Grid.CellSize.
func (c *Config) Refresh() {
	c.Derived.ZoneRadius = math.Sqrt(c.Flocking.ZoneRadiusSq)

	// Cells narrower than the zone radius would hide neighbors from the 3x3 query
	c.Derived.CellSize = c.Grid.CellSize
	if c.Derived.CellSize < c.Derived.ZoneRadius {
		c.Derived.CellSize = c.Derived.ZoneRadius
	}
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	cp := *c
	return &cp
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
