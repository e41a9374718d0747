package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel: got %s", cfg.LogLevel)
	}
	if cfg.Extraction.MinConfidence != 0.3 {
		t.Errorf("MinConfidence: got %f, want 0.3", cfg.Extraction.MinConfidence)
	}
	if cfg.Extraction.MaxPasses != 2 {
		t.Errorf("MaxPasses: got %d, want 2", cfg.Extraction.MaxPasses)
	}
	if cfg.Extraction.ChunkSize != 600 {
		t.Errorf("ChunkSize: got %d, want 600", cfg.Extraction.ChunkSize)
	}
	if cfg.Extraction.WorkerCount != 4 {
		t.Errorf("WorkerCount: got %d, want 4", cfg.Extraction.WorkerCount)
	}
	if cfg.Extraction.OverlapStrategy != OverlapHighestConfidence {
		t.Errorf("OverlapStrategy: got %s", cfg.Extraction.OverlapStrategy)
	}
	if !cfg.Extraction.MergeEntities || !cfg.Extraction.EnableValidation || !cfg.Extraction.ResolveOverlaps {
		t.Error("stage toggles should default to enabled")
	}
	if cfg.Redaction.PlaceholderFormat != "#{id}_{label}_REDACTED" {
		t.Errorf("PlaceholderFormat: got %s", cfg.Redaction.PlaceholderFormat)
	}
	if !cfg.Redaction.Numbered || !cfg.Redaction.ConsistentIDs {
		t.Error("redaction numbering should default to enabled")
	}
	if !cfg.Replacement.EnsureConsistency {
		t.Error("EnsureConsistency should default to true")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("CLOAK_LABELER_ENDPOINT", "http://localhost:9009")
	t.Setenv("CLOAK_MIN_CONFIDENCE", "0.55")
	t.Setenv("CLOAK_WORKERS", "8")
	t.Setenv("CLOAK_OVERLAP_STRATEGY", "longest")

	cfg := Defaults()
	loadEnv(cfg)

	if cfg.Labeler.Endpoint != "http://localhost:9009" {
		t.Errorf("Endpoint: got %s", cfg.Labeler.Endpoint)
	}
	if cfg.Extraction.MinConfidence != 0.55 {
		t.Errorf("MinConfidence: got %f", cfg.Extraction.MinConfidence)
	}
	if cfg.Extraction.WorkerCount != 8 {
		t.Errorf("WorkerCount: got %d", cfg.Extraction.WorkerCount)
	}
	if cfg.Extraction.OverlapStrategy != OverlapLongest {
		t.Errorf("OverlapStrategy: got %s", cfg.Extraction.OverlapStrategy)
	}
}

func TestLoadEnvIgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("CLOAK_WORKERS", "not-a-number")
	cfg := Defaults()
	loadEnv(cfg)
	if cfg.Extraction.WorkerCount != 4 {
		t.Errorf("WorkerCount: got %d, want default 4", cfg.Extraction.WorkerCount)
	}
}

func TestLoadTOMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cloak.toml")
	content := `
log_level = "debug"

[labeler]
endpoint = "http://gliner:8000"
model = "gliner-small"

[extraction]
chunk_size = 250
overlap_strategy = "first"

[replacement]
locale = "en-GB"

[replacement.strategies]
location = "synthetic"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel: got %s", cfg.LogLevel)
	}
	if cfg.Labeler.Endpoint != "http://gliner:8000" {
		t.Errorf("Endpoint: got %s", cfg.Labeler.Endpoint)
	}
	if cfg.Extraction.ChunkSize != 250 {
		t.Errorf("ChunkSize: got %d", cfg.Extraction.ChunkSize)
	}
	if cfg.Extraction.OverlapStrategy != OverlapFirst {
		t.Errorf("OverlapStrategy: got %s", cfg.Extraction.OverlapStrategy)
	}
	// Untouched settings keep defaults.
	if cfg.Extraction.MaxPasses != 2 {
		t.Errorf("MaxPasses: got %d, want 2", cfg.Extraction.MaxPasses)
	}
	if got := cfg.Replacement.Strategies["location"]; got != "synthetic" {
		t.Errorf("strategy override: got %q", got)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Extraction.ChunkSize != 600 {
		t.Errorf("ChunkSize: got %d, want default", cfg.Extraction.ChunkSize)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"confidence above one", func(c *Config) { c.Extraction.MinConfidence = 1.5 }},
		{"zero passes", func(c *Config) { c.Extraction.MaxPasses = 0 }},
		{"zero chunk size", func(c *Config) { c.Extraction.ChunkSize = 0 }},
		{"zero workers", func(c *Config) { c.Extraction.WorkerCount = 0 }},
		{"unknown overlap strategy", func(c *Config) { c.Extraction.OverlapStrategy = "newest" }},
		{"blank placeholder", func(c *Config) { c.Redaction.PlaceholderFormat = "  " }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Defaults()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}
