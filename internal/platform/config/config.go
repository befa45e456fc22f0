// Package config loads process configuration from environment variables.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config carries the settings shared by placementcore binaries. Storage and
// blob driver specifics keep their own PLACEMENTCORE_* variables, read by
// the persistence and blob factories; this struct holds what the CLI needs
// on top of those.
type Config struct {
	ProjectID     string `env:"PLACEMENTCORE_PROJECT_ID"`
	StorageDriver string `env:"PLACEMENTCORE_STORAGE_DRIVER" envDefault:"sqlite"`
	BlobDriver    string `env:"PLACEMENTCORE_BLOB_DRIVER" envDefault:"fs"`
	LogLevel      string `env:"PLACEMENTCORE_LOG_LEVEL" envDefault:"info"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load reads the shared Config from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
