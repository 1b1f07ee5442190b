// Package bootstrap wires the categorizer service together from configuration.
package bootstrap

import (
	"errors"
	"fmt"
	"io/fs"

	infraconfig "github.com/jonesrussell/north-cloud/categorizer/infrastructure/config"
	infralogger "github.com/jonesrussell/north-cloud/categorizer/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/categorizer/internal/config"
)

const defaultConfigPath = "config.yml"

// ConfigPath returns path, or $CONFIG_PATH, or config.yml.
func ConfigPath(path string) string {
	if path != "" {
		return path
	}
	return infraconfig.GetConfigPath(defaultConfigPath)
}

// LoadConfig loads and validates the service configuration. A missing file
// falls back to defaults and environment overrides.
func LoadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		cfg = config.Default()
	case err != nil:
		return nil, fmt.Errorf("load config: %w", err)
	}

	if err = cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// CreateLogger creates a logger instance from configuration.
func CreateLogger(cfg *config.Config) (infralogger.Logger, error) {
	logger, err := infralogger.New(infralogger.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Development: cfg.Service.Debug,
	})
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	return logger.With(infralogger.String("service", cfg.Service.Name)), nil
}
