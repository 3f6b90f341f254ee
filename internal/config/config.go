// Package config handles rmftool configuration loading and management.
package config

import "fmt"

// Output formats understood by rmftool.
const (
	FormatText = "text"
	FormatYAML = "yaml"
)

// Config holds all rmftool settings.
type Config struct {
	Logging LoggingConfig `yaml:"logging"`
	Output  OutputConfig  `yaml:"output"`
	Filter  FilterConfig  `yaml:"filter"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// OutputConfig controls how commands print results.
type OutputConfig struct {
	Format    string `yaml:"format"`    // text or yaml
	Precision int    `yaml:"precision"` // decimals printed for floats
}

// FilterConfig holds the default selection applied by the tree command.
type FilterConfig struct {
	Select string `yaml:"select"` // boolean expression over permutations
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level: "warn",
		},
		Output: OutputConfig{
			Format:    FormatText,
			Precision: 4,
		},
	}
}

// Validate checks values that cannot be corrected silently.
func (c *Config) Validate() error {
	switch c.Output.Format {
	case FormatText, FormatYAML:
	default:
		return fmt.Errorf("unknown output format %q (want %s or %s)", c.Output.Format, FormatText, FormatYAML)
	}
	if c.Output.Precision < 0 || c.Output.Precision > 9 {
		return fmt.Errorf("output precision %d out of range 0..9", c.Output.Precision)
	}
	return nil
}
