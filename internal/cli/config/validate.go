package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/leapstack-labs/rdrkit/internal/cli/output"
	"github.com/leapstack-labs/rdrkit/internal/logging"
)

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if !slices.Contains(output.Modes, c.OutputFormat) {
		return fmt.Errorf("output must be one of %s, got %q", strings.Join(output.Modes, ", "), c.OutputFormat)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("log_format must be text or json, got %q", c.LogFormat)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if len(strings.Fields(c.Engine.Command)) == 0 {
		return fmt.Errorf("engine.command is required")
	}
	return nil
}
