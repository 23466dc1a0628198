package config

import (
	"fmt"

	"github.com/rs/zerolog"
)

// LoggingConfig defines the global log settings.
type LoggingConfig struct {
	// Level is a zerolog level name: trace, debug, info, warn, error.
	Level string `json:"level"`
}

// SetDefaults applies sane defaults.
func (c *LoggingConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
}

// Validate checks mandatory fields.
func (c LoggingConfig) Validate() error {
	if _, err := zerolog.ParseLevel(c.Level); err != nil {
		return fmt.Errorf("unknown log level %q", c.Level)
	}
	return nil
}

// ZerologLevel returns the parsed level. Validate must have passed.
func (c LoggingConfig) ZerologLevel() zerolog.Level {
	level, _ := zerolog.ParseLevel(c.Level)
	return level
}
