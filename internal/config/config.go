// Package config loads and validates tablescope configuration from file,
// environment, and defaults.
package config

import "errors"

// Config is the top-level configuration struct for tablescope.
// Field tags use mapstructure for viper unmarshalling.
type Config struct {
	Discovery   DiscoveryConfig   `mapstructure:"discovery"`
	Output      OutputConfig      `mapstructure:"output"`
	Diagnostics DiagnosticsConfig `mapstructure:"diagnostics"`
}

// DiscoveryConfig holds the similarity-search knobs.
type DiscoveryConfig struct {
	Threshold    float64 `mapstructure:"threshold"`
	Permutations int     `mapstructure:"permutations"`
	FPWeight     float64 `mapstructure:"fp_weight"`
	FNWeight     float64 `mapstructure:"fn_weight"`
	Bands        int     `mapstructure:"bands"`
	Rows         int     `mapstructure:"rows"`
	Progress     bool    `mapstructure:"progress"`
}

// OutputConfig holds result rendering settings.
type OutputConfig struct {
	Format  string `mapstructure:"format"`
	Path    string `mapstructure:"path"`
	NoColor bool   `mapstructure:"no_color"`
}

// DiagnosticsConfig holds the metrics endpoint settings.
type DiagnosticsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// Default configuration values.
const (
	DefaultThreshold    = 0.7
	DefaultPermutations = 128
	DefaultFPWeight     = 0.5
	DefaultFNWeight     = 0.5
	DefaultFormat       = "table"
	DefaultDiagAddr     = "localhost:9090"
)

// Output formats accepted by the CLI.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
	FormatPlot  = "plot"
)

// Sentinel errors for configuration validation.
var (
	// ErrInvalidThreshold indicates the threshold is outside [0,1].
	ErrInvalidThreshold = errors.New("config: discovery.threshold must be in [0,1]")

	// ErrInvalidPermutations indicates a non-positive permutation count.
	ErrInvalidPermutations = errors.New("config: discovery.permutations must be positive")

	// ErrInvalidWeights indicates a negative optimizer weight.
	ErrInvalidWeights = errors.New("config: discovery weights must be non-negative")

	// ErrPartialBandSplit indicates only one of bands/rows was set.
	ErrPartialBandSplit = errors.New("config: discovery.bands and discovery.rows must be set together")

	// ErrInvalidFormat indicates an unknown output format.
	ErrInvalidFormat = errors.New("config: output.format must be table, json, yaml, or plot")
)

// Validate checks the configuration for internally consistent values.
func (c *Config) Validate() error {
	if c.Discovery.Threshold < 0 || c.Discovery.Threshold > 1 {
		return ErrInvalidThreshold
	}

	if c.Discovery.Permutations <= 0 {
		return ErrInvalidPermutations
	}

	if c.Discovery.FPWeight < 0 || c.Discovery.FNWeight < 0 {
		return ErrInvalidWeights
	}

	if (c.Discovery.Bands > 0) != (c.Discovery.Rows > 0) {
		return ErrPartialBandSplit
	}

	switch c.Output.Format {
	case FormatTable, FormatJSON, FormatYAML, FormatPlot:
	default:
		return ErrInvalidFormat
	}

	return nil
}
