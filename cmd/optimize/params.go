package main

import (
	"github.com/pthm-cable/flockdraw/config"
)

// ParamSpec defines a single optimizable parameter.
type ParamSpec struct {
	Name    string  // Human-readable name
	Path    string  // Config path for logging
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Default float64 // Default value
	Field   func(c *config.Config) *float64
}

// ParamVector holds the set of all optimizable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates the standard set of flocking parameters.
func NewParamVector() *ParamVector {
	return &ParamVector{
		Specs: []ParamSpec{
			{Name: "repel_strength", Path: "flocking.repel_strength", Min: 0.005, Max: 0.15, Default: 0.04,
				Field: func(c *config.Config) *float64 { return &c.Flocking.RepelStrength }},
			{Name: "align_strength", Path: "flocking.align_strength", Min: 0.005, Max: 0.15, Default: 0.04,
				Field: func(c *config.Config) *float64 { return &c.Flocking.AlignStrength }},
			{Name: "attract_strength", Path: "flocking.attract_strength", Min: 0.005, Max: 0.15, Default: 0.02,
				Field: func(c *config.Config) *float64 { return &c.Flocking.AttractStrength }},
			{Name: "group_repel_strength", Path: "flocking.group_repel_strength", Min: 0, Max: 0.1, Default: 0.02,
				Field: func(c *config.Config) *float64 { return &c.Flocking.GroupRepelStrength }},
			{Name: "low_thresh", Path: "flocking.low_thresh", Min: 0.02, Max: 0.4, Default: 0.125,
				Field: func(c *config.Config) *float64 { return &c.Flocking.LowThresh }},
			{Name: "high_thresh", Path: "flocking.high_thresh", Min: 0.45, Max: 0.95, Default: 0.65,
				Field: func(c *config.Config) *float64 { return &c.Flocking.HighThresh }},
			{Name: "dampness", Path: "particle.dampness", Min: 0.1, Max: 0.95, Default: 0.5,
				Field: func(c *config.Config) *float64 { return &c.Particle.Dampness }},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default parameter values as a slice.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		clamped[i] = min(max(v[i], spec.Min), spec.Max)
	}
	return clamped
}

// ApplyToConfig writes clamped parameter values into cfg.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	for i, v := range pv.Clamp(values) {
		*pv.Specs[i].Field(cfg) = v
	}
}

// ExtractFromConfig extracts current parameter values from a Config struct.
func (pv *ParamVector) ExtractFromConfig(cfg *config.Config) []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = *spec.Field(cfg)
	}
	return v
}
