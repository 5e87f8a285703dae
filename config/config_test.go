package config

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("loading defaults: %v", err)
	}

	if cfg.Flocking.ZoneRadiusSq != 5625 {
		t.Errorf("expected zone_radius_sq 5625, got %v", cfg.Flocking.ZoneRadiusSq)
	}
	if cfg.Flocking.LowThresh != 0.125 || cfg.Flocking.HighThresh != 0.65 {
		t.Errorf("unexpected thresholds %v/%v", cfg.Flocking.LowThresh, cfg.Flocking.HighThresh)
	}
	if cfg.Derived.WorldW != float64(cfg.Screen.Width) || cfg.Derived.WorldH != float64(cfg.Screen.Height) {
		t.Errorf("expected world to default to screen size, got %vx%v", cfg.Derived.WorldW, cfg.Derived.WorldH)
	}
	if math.Abs(cfg.Derived.ZoneRadius-75) > 1e-9 {
		t.Errorf("expected zone radius 75, got %v", cfg.Derived.ZoneRadius)
	}
	if cfg.Derived.CellSize < cfg.Derived.ZoneRadius {
		t.Errorf("cell size %v must not be smaller than zone radius %v", cfg.Derived.CellSize, cfg.Derived.ZoneRadius)
	}
}

func TestLoadOverridesOnlyPresentKeys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "override.yaml")
	data := []byte("flocking:\n  repel_strength: 0.5\n  strategy: pairwise\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("loading override: %v", err)
	}
	if cfg.Flocking.RepelStrength != 0.5 {
		t.Errorf("expected repel_strength 0.5, got %v", cfg.Flocking.RepelStrength)
	}
	if cfg.Flocking.Strategy != StrategyPairwise {
		t.Errorf("expected pairwise strategy, got %q", cfg.Flocking.Strategy)
	}
	// Untouched keys keep their defaults
	if cfg.Flocking.AlignStrength != 0.04 {
		t.Errorf("expected align_strength default 0.04, got %v", cfg.Flocking.AlignStrength)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		want   error
	}{
		{"defaults", func(c *Config) {}, nil},
		{"low equals high", func(c *Config) { c.Flocking.LowThresh = 0.65 }, ErrThresholds},
		{"low above high", func(c *Config) { c.Flocking.LowThresh = 0.9 }, ErrThresholds},
		{"high above one", func(c *Config) { c.Flocking.HighThresh = 1.5 }, ErrThresholds},
		{"negative low", func(c *Config) { c.Flocking.LowThresh = -0.1 }, ErrThresholds},
		{"zero zone", func(c *Config) { c.Flocking.ZoneRadiusSq = 0 }, ErrZoneRadius},
		{"nan zone", func(c *Config) { c.Flocking.ZoneRadiusSq = math.NaN() }, ErrZoneRadius},
		{"bad strategy", func(c *Config) { c.Flocking.Strategy = "octree" }, ErrStrategy},
		{"negative cell", func(c *Config) { c.Grid.CellSize = -1 }, ErrGrid},
		{"negative world", func(c *Config) { c.World.Width = -10 }, ErrWorld},
		{"inverted speed range", func(c *Config) { c.Particle.MaxSpeedSqLo = 60 }, ErrSpeedBounds},
		{"bad clamp", func(c *Config) { c.Particle.SpeedClamp = "cubic" }, ErrSpeedClamp},
		{"bad metric", func(c *Config) { c.Steering.Metric = "hue" }, ErrSteerMetric},
		{"negative lifetime", func(c *Config) { c.Emitter.MinLifeTime = -1 }, ErrLifetime},
		{"negative grace", func(c *Config) { c.Emitter.GracePeriod = -0.5 }, ErrLifetime},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.want == nil {
				if err != nil {
					t.Errorf("expected valid config, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestRefreshTracksZoneRadius(t *testing.T) {
	cfg := Default()
	cfg.Grid.CellSize = 50
	cfg.Flocking.ZoneRadiusSq = 100 * 100
	cfg.Refresh()

	if cfg.Derived.CellSize != 100 {
		t.Errorf("expected cell size to grow to zone radius 100, got %v", cfg.Derived.CellSize)
	}

	cfg.Flocking.ZoneRadiusSq = 10 * 10
	cfg.Refresh()
	if cfg.Derived.CellSize != 50 {
		t.Errorf("expected configured cell size 50, got %v", cfg.Derived.CellSize)
	}
}

func TestWriteYAMLRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Flocking.RepelStrength = 0.123

	path := filepath.Join(t.TempDir(), "saved.yaml")
	if err := cfg.WriteYAML(path); err != nil {
		t.Fatalf("writing yaml: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("loading saved yaml: %v", err)
	}
	if loaded.Flocking.RepelStrength != 0.123 {
		t.Errorf("expected persisted repel_strength 0.123, got %v", loaded.Flocking.RepelStrength)
	}
}
