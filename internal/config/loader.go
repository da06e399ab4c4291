package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"scoreboard/pkg/logging"
)

const (
	userConfigDir  = ".config/scoreboard"
	configFileName = "config.yaml"

	// EnvPrefix prefixes every environment override, e.g. SCOREBOARD_CLIENT_ID.
	EnvPrefix = "SCOREBOARD_"
)

// GetDefaultConfigPathOrPanic returns ~/.config/scoreboard.
func GetDefaultConfigPathOrPanic() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		panic(fmt.Errorf("could not determine user config directory: %w", err))
	}

	return filepath.Join(homeDir, userConfigDir)
}

// LoadConfig reads config.yaml from configPath over the defaults, then
// applies SCOREBOARD_* environment overrides. A missing file is not an
// error. The result is not validated.
func LoadConfig(configPath string) (Config, error) {
	return loadConfig(configPath, env.Options{Prefix: EnvPrefix})
}

func loadConfig(configPath string, opts env.Options) (Config, error) {
	configFilePath := filepath.Join(configPath, configFileName)
	config := GetDefaultConfig(configPath)

	data, err := os.ReadFile(configFilePath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		logging.Debug("ConfigLoader", "No config.yaml found at %s, using defaults", configFilePath)
	case err != nil:
		return Config{}, fmt.Errorf("error reading config from %s: %w", configFilePath, err)
	default:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return Config{}, fmt.Errorf("error loading config from %s: %w", configFilePath, err)
		}
		logging.Debug("ConfigLoader", "Loaded configuration from %s", configFilePath)
	}

	if err := env.ParseWithOptions(&config, opts); err != nil {
		return Config{}, fmt.Errorf("error applying environment overrides: %w", err)
	}
	return config, nil
}

// Save writes config to configPath/config.yaml, creating the directory.
// The file may hold the client secret, so it is private to the user.
func Save(configPath string, config Config) error {
	if err := os.MkdirAll(configPath, 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(&config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	path := filepath.Join(configPath, configFileName)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config to %s: %w", path, err)
	}
	return nil
}
