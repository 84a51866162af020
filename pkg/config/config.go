// Package config provides YAML-based configuration loading with environment
// variable expansion and an environment overlay.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Validator is an interface for configuration validation.
type Validator interface {
	Validate() error
}

// Load reads a YAML file into target with ${VAR} expansion, applies fields
// tagged `env:"..."` from the environment, then validates.
func Load[T any](filename string, target *T) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", filename, err)
	}

	expandedData := os.ExpandEnv(string(data))

	if err := yaml.Unmarshal([]byte(expandedData), target); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", filename, err)
	}

	return finish(target)
}

// LoadOptional is Load, except that a missing file leaves target at its
// current values before the environment overlay and validation.
func LoadOptional[T any](filename string, target *T) error {
	if _, err := os.Stat(filename); errors.Is(err, os.ErrNotExist) {
		return finish(target)
	}
	return Load(filename, target)
}

func finish[T any](target *T) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("failed to apply environment: %w", err)
	}

	if validator, ok := any(target).(Validator); ok {
		if err := validator.Validate(); err != nil {
			return fmt.Errorf("config validation failed: %w", err)
		}
	}

	return nil
}
