package main

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"entity-cloak/internal/config"
	"entity-cloak/internal/logger"
	"entity-cloak/internal/pipeline"
)

// defaultConfigFile is consulted when --config is not given.
const defaultConfigFile = "cloak.toml"

// inputFlags are the text-source and tuning flags shared by every
// anonymization command.
type inputFlags struct {
	text          string
	textFile      string
	labels        []string
	minConfidence float64
	chunkSize     int
	workers       int
	jsonOutput    bool
}

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	pipeOnce sync.Once
	pipe     *pipeline.Pipeline
	pipeErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		path := defaultConfigFile
		if c.configFlag != nil && strings.TrimSpace(*c.configFlag) != "" {
			path = strings.TrimSpace(*c.configFlag)
		}
		c.config, c.configErr = config.Load(path)
	})
	return c.config, c.configErr
}

// ensurePipeline builds the pipeline once, applying the command-line tuning
// overrides on top of the loaded configuration.
func (c *commandContext) ensurePipeline(in *inputFlags) (*pipeline.Pipeline, error) {
	c.pipeOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.pipeErr = err
			return
		}
		if in.minConfidence >= 0 {
			cfg.Extraction.MinConfidence = in.minConfidence
		}
		if in.chunkSize > 0 {
			cfg.Extraction.ChunkSize = in.chunkSize
		}
		if in.workers > 0 {
			cfg.Extraction.WorkerCount = in.workers
		}
		c.pipe, c.pipeErr = pipeline.New(cfg, logger.New("cloak", cfg.LogLevel))
	})
	return c.pipe, c.pipeErr
}

// resolveText returns the input text from --text or --text-file.
func resolveText(in *inputFlags) (string, error) {
	if strings.TrimSpace(in.text) != "" {
		return in.text, nil
	}
	if strings.TrimSpace(in.textFile) != "" {
		data, err := os.ReadFile(in.textFile) // #nosec G304 -- path from CLI flag
		if err != nil {
			return "", fmt.Errorf("read %s: %w", in.textFile, err)
		}
		return string(data), nil
	}
	return "", fmt.Errorf("%w: provide --text or --text-file", pipeline.ErrEmptyInput)
}

// registerInputFlags attaches the shared flags to a command's flag set.
func registerInputFlags(in *inputFlags, cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVarP(&in.text, "text", "t", "", "Text to process")
	f.StringVar(&in.textFile, "text-file", "", "Read the text from a file")
	f.StringSliceVarP(&in.labels, "labels", "l", nil, "Entity labels to detect (default person,date,location,organization)")
	f.Float64Var(&in.minConfidence, "min-confidence", -1, "Minimum confidence score (overrides config)")
	f.IntVar(&in.chunkSize, "chunk-size", 0, "Chunk size in words for long texts (overrides config)")
	f.IntVar(&in.workers, "workers", 0, "Concurrent labeling workers (overrides config)")
	f.BoolVar(&in.jsonOutput, "json", false, "Emit JSON instead of a table")
}
