package app

import (
	"fmt"
	"io"
	"os"

	"scoreboard/internal/config"
	"scoreboard/pkg/logging"
)

// Application bootstraps scoreboard: configuration, logging and services.
//
// The Application follows a two-phase initialization pattern:
//  1. Bootstrap phase: load configuration, initialize logging, build services
//  2. Execution phase: a CLI command uses Services, or Serve runs the
//     dashboard server
//
// Example usage:
//
//	cfg := app.NewConfig(false, false, "")
//	application, err := app.NewApplication(cfg)
//	if err != nil {
//	    return fmt.Errorf("failed to create application: %w", err)
//	}
//	defer application.Close()
//	return application.Serve(ctx)
type Application struct {
	config   *Config
	services *Services
}

// NewApplication loads and validates the configuration, reconfigures
// logging from it and initializes all services.
func NewApplication(cfg *Config) (*Application, error) {
	var logOutput io.Writer = os.Stderr
	if cfg.Silent {
		logOutput = io.Discard
	}
	appLogLevel := logging.LevelInfo
	if cfg.Debug {
		appLogLevel = logging.LevelDebug
	}
	logging.InitForCLI(appLogLevel, logOutput)

	if cfg.Scoreboard == nil {
		configPath := cfg.ConfigPath
		if configPath == "" {
			configPath = config.GetDefaultConfigPathOrPanic()
		}
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			logging.Error("Bootstrap", err, "Failed to load configuration from %s", configPath)
			return nil, fmt.Errorf("failed to load configuration: %w", err)
		}
		cfg.Scoreboard = &loaded
	}

	if err := cfg.Scoreboard.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if !cfg.Debug {
		level, _ := logging.ParseLevel(cfg.Scoreboard.Logging.Level)
		logging.Init(level, logging.Format(cfg.Scoreboard.Logging.Format), logOutput)
	}

	services, err := InitializeServices(*cfg.Scoreboard)
	if err != nil {
		logging.Error("Bootstrap", err, "Failed to initialize services")
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	return &Application{
		config:   cfg,
		services: services,
	}, nil
}

// Services returns the initialized services.
func (a *Application) Services() *Services {
	return a.services
}

// Close releases resources held by the services.
func (a *Application) Close() error {
	return a.services.Close()
}
