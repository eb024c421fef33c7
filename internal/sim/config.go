package sim

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/halcyard/chronicle/internal/temporal"
)

// Config holds all simulation parameters for one run. It is read-only to
// the engine once construction is done.
type Config struct {
	// Seed drives every stochastic element of the run: initial factor
	// sampling and, if enabled, environmental drift. Two runs with the
	// same seed, bounds, and event set produce identical snapshots.
	Seed int64 `yaml:"seed"`

	// ChunkSizeDays is the checkpoint interval. Default: one century.
	ChunkSizeDays int64 `yaml:"chunk_size_days"`

	// GrowthRates maps species id to intrinsic annual growth rate r.
	// This doubles as the species registry: populations of a species
	// without a rate are carried but never grow, and loading one raises
	// a warning.
	GrowthRates map[string]float64 `yaml:"growth_rates"`

	// BaseCarryingCapacity is K_base per entity kind.
	BaseCarryingCapacity map[EntityKind]float64 `yaml:"base_carrying_capacity"`

	// EnvironmentalFactorRange and LocationFactorRange bound the uniform
	// sampling of initial factors when a run starts without snapshot data.
	EnvironmentalFactorRange [2]float64 `yaml:"environmental_factor_range"`
	LocationFactorRange      [2]float64 `yaml:"location_factor_range"`

	// InfrastructureFactorInitial is the starting infrastructure factor.
	InfrastructureFactorInitial float64 `yaml:"infrastructure_factor_initial"`

	// Bounds clamps event-driven factor mutations.
	Bounds EffectBounds `yaml:"bounds"`

	// DriftAmplitude enables seeded environmental drift when positive:
	// each lore year the environmental factor is nudged by a noise sample
	// in [-amplitude, +amplitude]. Zero disables drift.
	DriftAmplitude float64 `yaml:"drift_amplitude"`

	// OvershootRatio is the soft validation bound: population above
	// OvershootRatio × K_base raises a warning, never an error.
	OvershootRatio float64 `yaml:"overshoot_ratio"`
}

// DefaultConfig mirrors the authored settings defaults.
func DefaultConfig() Config {
	return Config{
		ChunkSizeDays: temporal.DaysCentury,
		GrowthRates: map[string]float64{
			"huum": 0.004,
			"sint": 0.006,
		},
		BaseCarryingCapacity: map[EntityKind]float64{
			KindRegion:   50000,
			KindProvince: 20000,
		},
		EnvironmentalFactorRange:    [2]float64{0.8, 1.2},
		LocationFactorRange:         [2]float64{0.9, 1.1},
		InfrastructureFactorInitial: 1.0,
		Bounds:                      DefaultEffectBounds(),
		OvershootRatio:              1.5,
	}
}

// LoadConfig reads a YAML settings file over the defaults. Missing file
// fields keep their default values.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects configurations the engine cannot run with.
func (c Config) Validate() error {
	if c.ChunkSizeDays <= 0 {
		return &InvalidParameterError{Name: "chunk_size_days", Value: float64(c.ChunkSizeDays)}
	}
	for kind, k := range c.BaseCarryingCapacity {
		if k <= 0 {
			return &InvalidParameterError{Name: "base_carrying_capacity." + string(kind), Value: k}
		}
	}
	if c.EnvironmentalFactorRange[0] > c.EnvironmentalFactorRange[1] {
		return &InvalidParameterError{Name: "environmental_factor_range", Value: c.EnvironmentalFactorRange[0]}
	}
	if c.LocationFactorRange[0] > c.LocationFactorRange[1] {
		return &InvalidParameterError{Name: "location_factor_range", Value: c.LocationFactorRange[0]}
	}
	if c.InfrastructureFactorInitial < 0 {
		return &InvalidParameterError{Name: "infrastructure_factor_initial", Value: c.InfrastructureFactorInitial}
	}
	if c.DriftAmplitude < 0 {
		return &InvalidParameterError{Name: "drift_amplitude", Value: c.DriftAmplitude}
	}
	if c.OvershootRatio <= 0 {
		return &InvalidParameterError{Name: "overshoot_ratio", Value: c.OvershootRatio}
	}
	return nil
}

// KBaseFor returns the base carrying capacity for an entity kind, falling
// back to the region default when the kind is not configured.
func (c Config) KBaseFor(kind EntityKind) float64 {
	if k, ok := c.BaseCarryingCapacity[kind]; ok {
		return k
	}
	return c.BaseCarryingCapacity[KindRegion]
}
