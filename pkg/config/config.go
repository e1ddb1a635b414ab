// Package config loads program settings from `scenforge.yaml` and the
// environment, and scenario-group definitions from YAML setup files.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/spf13/viper"

	errUtils "github.com/scenforge/scenforge/errors"
	"github.com/scenforge/scenforge/pkg/schema"
)

const (
	configName = "scenforge"
	configType = "yaml"
	envPrefix  = "SCENFORGE"

	// DefaultTimestep is the model period length in years.
	DefaultTimestep = 5
)

// LoadSettings reads settings from the given config file (or, when empty,
// from `scenforge.yaml` in the current directory), applying environment
// overrides with the SCENFORGE_ prefix.
func LoadSettings(configFile string) (schema.Settings, error) {
	v := viper.New()
	v.SetConfigType(configType)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("timestep", DefaultTimestep)
	v.SetDefault("logs.level", "info")

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(configName)
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		// A missing default config file is not an error; explicit files are.
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !asConfigFileNotFound(err, &notFound) {
			return schema.Settings{}, fmt.Errorf("reading config: %w", err)
		}
	}

	var settings schema.Settings
	if err := v.Unmarshal(&settings); err != nil {
		return schema.Settings{}, fmt.Errorf("parsing config: %w", err)
	}

	if settings.Timestep <= 0 {
		settings.Timestep = DefaultTimestep
	}

	return settings, nil
}

func asConfigFileNotFound(err error, target *viper.ConfigFileNotFoundError) bool {
	if e, ok := err.(viper.ConfigFileNotFoundError); ok {
		*target = e
		return true
	}
	return false
}

// LoadScenarioGroups parses a scenarios.yaml definition file.
func LoadScenarioGroups(path string) (schema.ScenarioGroupFile, error) {
	var defs schema.ScenarioGroupFile

	data, err := os.ReadFile(path)
	if err != nil {
		return defs, errUtils.Build(errUtils.ErrFileNotFound).
			WithCause(err).
			WithContext("path", path).
			Err()
	}

	if err := yaml.Unmarshal(data, &defs); err != nil {
		return defs, fmt.Errorf("parsing scenario definitions %s: %w", path, err)
	}

	for _, group := range defs.Groups {
		if group.Name == "" {
			return defs, fmt.Errorf("%w: scenario group with empty name in %s", errUtils.ErrBadArgument, path)
		}
		for _, scen := range group.Scenarios {
			if scen.Name == "" {
				return defs, fmt.Errorf("%w: scenario with empty name in group %s", errUtils.ErrBadArgument, group.Name)
			}
		}
	}

	return defs, nil
}
