package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// configName is the config file name without extension.
const configName = ".tablescope"

// configType is the config file format.
const configType = "yaml"

// envPrefix is the environment variable prefix for tablescope settings.
const envPrefix = "TABLESCOPE"

// envKeySeparator is the nested key separator in environment variable names.
const envKeySeparator = "_"

// Load loads configuration from file, env vars, and defaults.
// If configPath is non-empty, it is used as the explicit config file path.
// Otherwise, the config file is searched in CWD and $HOME, and finding none
// there is not an error; defaults are used. An explicit path that cannot be
// read is an error.
func Load(configPath string) (*Config, error) {
	viperCfg := viper.New()

	applyDefaults(viperCfg)

	viperCfg.SetConfigType(configType)
	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", envKeySeparator))
	viperCfg.AutomaticEnv()

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viperCfg.AddConfigPath(home)
		}
	}

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFound) {
			return nil, fmt.Errorf("read config: %w", readErr)
		}
	}

	var cfg Config

	unmarshalErr := viperCfg.Unmarshal(&cfg)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal config: %w", unmarshalErr)
	}

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("validate config: %w", validateErr)
	}

	return &cfg, nil
}

func applyDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("discovery.threshold", DefaultThreshold)
	viperCfg.SetDefault("discovery.permutations", DefaultPermutations)
	viperCfg.SetDefault("discovery.fp_weight", DefaultFPWeight)
	viperCfg.SetDefault("discovery.fn_weight", DefaultFNWeight)
	viperCfg.SetDefault("discovery.bands", 0)
	viperCfg.SetDefault("discovery.rows", 0)
	viperCfg.SetDefault("discovery.progress", true)

	viperCfg.SetDefault("output.format", DefaultFormat)
	viperCfg.SetDefault("output.path", "")
	viperCfg.SetDefault("output.no_color", false)

	viperCfg.SetDefault("diagnostics.enabled", false)
	viperCfg.SetDefault("diagnostics.addr", DefaultDiagAddr)
}
