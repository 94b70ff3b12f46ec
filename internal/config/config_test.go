package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validConfig returns a configuration that passes validation.
func validConfig() Config {
	return Config{
		Discovery: DiscoveryConfig{
			Threshold:    DefaultThreshold,
			Permutations: DefaultPermutations,
			FPWeight:     DefaultFPWeight,
			FNWeight:     DefaultFNWeight,
		},
		Output: OutputConfig{Format: DefaultFormat},
	}
}

// --- Validate Tests ---.

func TestValidate_Defaults(t *testing.T) {
	t.Parallel()

	cfg := validConfig()

	require.NoError(t, cfg.Validate())
}

func TestValidate_ThresholdOutOfRange(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.Discovery.Threshold = 1.5

	require.ErrorIs(t, cfg.Validate(), ErrInvalidThreshold)
}

func TestValidate_ZeroPermutations(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.Discovery.Permutations = 0

	require.ErrorIs(t, cfg.Validate(), ErrInvalidPermutations)
}

func TestValidate_NegativeWeight(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.Discovery.FNWeight = -0.1

	require.ErrorIs(t, cfg.Validate(), ErrInvalidWeights)
}

func TestValidate_PartialBandSplit(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.Discovery.Bands = 16

	require.ErrorIs(t, cfg.Validate(), ErrPartialBandSplit)

	cfg.Discovery.Rows = 8

	require.NoError(t, cfg.Validate())
}

func TestValidate_UnknownFormat(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.Output.Format = "xml"

	require.ErrorIs(t, cfg.Validate(), ErrInvalidFormat)
}

// --- Load Tests ---.

func TestLoad_Defaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))

	// An explicit but missing config file is an error; defaults only apply
	// when no path is given.
	require.Error(t, err)

	cfg, err = Load("")

	require.NoError(t, err)
	assert.InDelta(t, DefaultThreshold, cfg.Discovery.Threshold, 1e-12)
	assert.Equal(t, DefaultPermutations, cfg.Discovery.Permutations)
	assert.Equal(t, DefaultFormat, cfg.Output.Format)
	assert.True(t, cfg.Discovery.Progress)
	assert.False(t, cfg.Diagnostics.Enabled)
}

func TestLoad_FromFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "conf.yaml")
	content := "discovery:\n  threshold: 0.55\n  permutations: 256\noutput:\n  format: json\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.InDelta(t, 0.55, cfg.Discovery.Threshold, 1e-12)
	assert.Equal(t, 256, cfg.Discovery.Permutations)
	assert.Equal(t, FormatJSON, cfg.Output.Format)
}

func TestLoad_InvalidFileValues(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "conf.yaml")
	require.NoError(t, os.WriteFile(path, []byte("discovery:\n  permutations: -1\n"), 0o600))

	_, err := Load(path)

	require.ErrorIs(t, err, ErrInvalidPermutations)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("TABLESCOPE_DISCOVERY_THRESHOLD", "0.35")

	cfg, err := Load("")

	require.NoError(t, err)
	assert.InDelta(t, 0.35, cfg.Discovery.Threshold, 1e-12)
}
