package config

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalid is returned for configuration that cannot be used.
var ErrInvalid = errors.New("invalid configuration")

var outputModes = []string{"auto", "text", "markdown", "json"}

// Validate checks if the configuration is usable.
func (c *Config) Validate() error {
	mode := strings.ToLower(strings.TrimSpace(c.OutputFormat))
	valid := mode == ""
	for _, m := range outputModes {
		if mode == m {
			valid = true
		}
	}
	if !valid {
		return fmt.Errorf("%w: output must be one of %s, got %q", ErrInvalid, strings.Join(outputModes, ", "), c.OutputFormat)
	}
	if c.HTTP.Timeout <= 0 {
		return fmt.Errorf("%w: http.timeout must be positive, got %s", ErrInvalid, c.HTTP.Timeout)
	}
	if strings.TrimSpace(c.ToolsDir) == "" {
		return fmt.Errorf("%w: tools_dir is required", ErrInvalid)
	}
	return nil
}
