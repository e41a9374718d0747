// Package config loads and holds all pipeline configuration.
// Settings come from defaults, overridden by an optional cloak.toml file,
// overridden in turn by CLOAK_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Overlap resolution strategy names accepted by the validator.
const (
	OverlapHighestConfidence = "highest_confidence"
	OverlapLongest           = "longest"
	OverlapFirst             = "first"
)

// Config holds the full pipeline configuration.
type Config struct {
	LogLevel string `toml:"log_level"`

	Labeler     Labeler     `toml:"labeler"`
	Extraction  Extraction  `toml:"extraction"`
	Redaction   Redaction   `toml:"redaction"`
	Replacement Replacement `toml:"replacement"`
}

// Labeler configures the external span-labeling inference service.
type Labeler struct {
	Endpoint       string `toml:"endpoint"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Extraction tunes chunking, dispatch and validation behavior.
type Extraction struct {
	MinConfidence    float64 `toml:"min_confidence"`
	MaxPasses        int     `toml:"max_passes"`
	ChunkSize        int     `toml:"chunk_size"`
	WorkerCount      int     `toml:"worker_count"`
	MergeEntities    bool    `toml:"merge_entities"`
	EnableValidation bool    `toml:"enable_validation"`
	ResolveOverlaps  bool    `toml:"resolve_overlaps"`
	OverlapStrategy  string  `toml:"overlap_strategy"`
	CacheSize        int     `toml:"cache_size"`
}

// Redaction controls placeholder formatting and numbering.
type Redaction struct {
	PlaceholderFormat string `toml:"placeholder_format"`
	Numbered          bool   `toml:"numbered"`
	ConsistentIDs     bool   `toml:"consistent_ids"`
}

// Replacement controls synthetic-value substitution.
type Replacement struct {
	Locale            string            `toml:"locale"`
	EnsureConsistency bool              `toml:"ensure_consistency"`
	// Strategies forces a specific strategy for a label, e.g. {"location": "synthetic"}.
	Strategies map[string]string `toml:"strategies"`
}

// Load returns defaults overridden by the TOML file at path (if it exists)
// and then by environment variables. An unreadable or malformed file is an
// error; a missing one is not.
func Load(path string) (*Config, error) {
	cfg := Defaults()
	if path != "" {
		if err := loadFile(cfg, path); err != nil {
			return nil, err
		}
	}
	loadEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	return &Config{
		LogLevel: "info",
		Labeler: Labeler{
			Endpoint:       "",
			Model:          "gliner-multi",
			TimeoutSeconds: 30,
		},
		Extraction: Extraction{
			MinConfidence:    0.3,
			MaxPasses:        2,
			ChunkSize:        600,
			WorkerCount:      4,
			MergeEntities:    true,
			EnableValidation: true,
			ResolveOverlaps:  true,
			OverlapStrategy:  OverlapHighestConfidence,
			CacheSize:        128,
		},
		Redaction: Redaction{
			PlaceholderFormat: "#{id}_{label}_REDACTED",
			Numbered:          true,
			ConsistentIDs:     true,
		},
		Replacement: Replacement{
			Locale:            "en-US",
			EnsureConsistency: true,
		},
	}
}

func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path) // #nosec G304 -- path from caller/CLI flag
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// loadEnv applies CLOAK_* environment overrides on top of cfg.
func loadEnv(cfg *Config) {
	setStr := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setStr("CLOAK_LOG_LEVEL", &cfg.LogLevel)
	setStr("CLOAK_LABELER_ENDPOINT", &cfg.Labeler.Endpoint)
	setStr("CLOAK_LABELER_MODEL", &cfg.Labeler.Model)
	setStr("CLOAK_OVERLAP_STRATEGY", &cfg.Extraction.OverlapStrategy)
	setStr("CLOAK_PLACEHOLDER_FORMAT", &cfg.Redaction.PlaceholderFormat)
	setStr("CLOAK_LOCALE", &cfg.Replacement.Locale)

	if v := os.Getenv("CLOAK_MIN_CONFIDENCE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Extraction.MinConfidence = f
		}
	}
	setInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	setInt("CLOAK_LABELER_TIMEOUT", &cfg.Labeler.TimeoutSeconds)
	setInt("CLOAK_MAX_PASSES", &cfg.Extraction.MaxPasses)
	setInt("CLOAK_CHUNK_SIZE", &cfg.Extraction.ChunkSize)
	setInt("CLOAK_WORKERS", &cfg.Extraction.WorkerCount)
	setInt("CLOAK_CACHE_SIZE", &cfg.Extraction.CacheSize)
}

// Validate reports the first malformed setting found.
func (c *Config) Validate() error {
	if c.Extraction.MinConfidence < 0 || c.Extraction.MinConfidence > 1 {
		return fmt.Errorf("extraction.min_confidence: %v not in [0,1]", c.Extraction.MinConfidence)
	}
	if c.Extraction.MaxPasses < 1 {
		return fmt.Errorf("extraction.max_passes: %d must be >= 1", c.Extraction.MaxPasses)
	}
	if c.Extraction.ChunkSize < 1 {
		return fmt.Errorf("extraction.chunk_size: %d must be >= 1", c.Extraction.ChunkSize)
	}
	if c.Extraction.WorkerCount < 1 {
		return fmt.Errorf("extraction.worker_count: %d must be >= 1", c.Extraction.WorkerCount)
	}
	if c.Extraction.CacheSize < 0 {
		return fmt.Errorf("extraction.cache_size: %d must be >= 0", c.Extraction.CacheSize)
	}
	switch c.Extraction.OverlapStrategy {
	case OverlapHighestConfidence, OverlapLongest, OverlapFirst:
	default:
		return fmt.Errorf("extraction.overlap_strategy: unknown value %q", c.Extraction.OverlapStrategy)
	}
	if strings.TrimSpace(c.Redaction.PlaceholderFormat) == "" {
		return fmt.Errorf("redaction.placeholder_format: must not be empty")
	}
	if c.Labeler.TimeoutSeconds < 1 {
		return fmt.Errorf("labeler.timeout_seconds: %d must be >= 1", c.Labeler.TimeoutSeconds)
	}
	return nil
}
