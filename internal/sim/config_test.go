package sim

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfigValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestConfigValidate_Rejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero chunk size", func(c *Config) { c.ChunkSizeDays = 0 }},
		{"negative base capacity", func(c *Config) { c.BaseCarryingCapacity[KindRegion] = -1 }},
		{"inverted environmental range", func(c *Config) { c.EnvironmentalFactorRange = [2]float64{1.5, 0.5} }},
		{"negative initial infrastructure", func(c *Config) { c.InfrastructureFactorInitial = -1 }},
		{"negative drift amplitude", func(c *Config) { c.DriftAmplitude = -0.1 }},
		{"zero overshoot ratio", func(c *Config) { c.OvershootRatio = 0 }},
	}
	for _, c := range cases {
		cfg := DefaultConfig()
		c.mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: config accepted", c.name)
		}
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	data := []byte("seed: 42\ngrowth_rates:\n  huum: 0.01\ndrift_amplitude: 0.05\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Seed != 42 {
		t.Fatalf("seed = %d, want 42", cfg.Seed)
	}
	if cfg.GrowthRates["huum"] != 0.01 {
		t.Fatalf("growth rate = %g, want 0.01", cfg.GrowthRates["huum"])
	}
	if cfg.DriftAmplitude != 0.05 {
		t.Fatalf("drift amplitude = %g, want 0.05", cfg.DriftAmplitude)
	}
	// Fields absent from the file keep their defaults.
	if cfg.ChunkSizeDays != DefaultConfig().ChunkSizeDays {
		t.Fatalf("chunk size should keep default, got %d", cfg.ChunkSizeDays)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("missing file should error")
	}
}

func TestKBaseFor(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.KBaseFor(KindProvince) != 20000 {
		t.Fatalf("province K = %g, want 20000", cfg.KBaseFor(KindProvince))
	}
	delete(cfg.BaseCarryingCapacity, KindProvince)
	if cfg.KBaseFor(KindProvince) != cfg.BaseCarryingCapacity[KindRegion] {
		t.Fatal("unconfigured kind should fall back to the region default")
	}
}
