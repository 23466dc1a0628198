// Package config loads and validates the run configuration from a yaml or
// json file with optional environment overrides.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/gridplan/core/metrics"
)

type Config struct {
	// Input is the model directory holding the CSV input files.
	Input InputConfig `json:"input"`
	// Output is where result files are written.
	Output  OutputConfig     `json:"output"`
	Run     RunConfig        `json:"run"`
	Carbon  CarbonConfig     `json:"carbon"`
	Metrics metrics.Config   `json:"metrics"`
	Monitor MonitoringConfig `json:"monitoring"`
	Logging LoggingConfig    `json:"logging"`
}

type InputConfig struct {
	Dir string `json:"dir"`
}

func (c InputConfig) Validate() error {
	if c.Dir == "" {
		return fmt.Errorf("input dir is required")
	}
	return nil
}

type OutputConfig struct {
	Dir string `json:"dir"`
}

// SetDefaults applies sane defaults.
func (c *OutputConfig) SetDefaults() {
	if c.Dir == "" {
		c.Dir = "results"
	}
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("K_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.Run.SetDefaults()
	cfg.Output.SetDefaults()
	cfg.Logging.SetDefaults()
	if err := cfg.Input.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Run.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Carbon.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Logging.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
