package app

import (
	"scoreboard/internal/config"
)

// Config holds the application configuration
type Config struct {
	// Debug forces debug logging regardless of logging.level.
	Debug bool

	// Silent discards log output, for commands whose stdout is the result.
	Silent bool

	// Custom configuration directory (optional). Defaults to
	// ~/.config/scoreboard.
	ConfigPath string

	// Scoreboard is the loaded configuration. When set before
	// NewApplication, loading is skipped.
	Scoreboard *config.Config
}

// NewConfig creates a new application configuration
func NewConfig(debug, silent bool, configPath string) *Config {
	return &Config{
		Debug:      debug,
		Silent:     silent,
		ConfigPath: configPath,
	}
}
