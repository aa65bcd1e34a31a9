package bootstrap

import (
	"fmt"

	"github.com/jonesrussell/toot-warehouse/internal/config"
	"github.com/jonesrussell/toot-warehouse/internal/logger"
)

// LoadConfig loads and validates the service configuration.
func LoadConfig() (*config.Config, error) {
	configPath := config.GetConfigPath("config.yml")

	cfg, loadErr := config.Load(configPath)
	if loadErr != nil {
		return nil, fmt.Errorf("load config: %w", loadErr)
	}

	return cfg, nil
}

// CreateLogger creates a structured logger for the service.
func CreateLogger(cfg *config.Config) (logger.Logger, error) {
	log, logErr := logger.New(logger.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Service.Debug,
	})
	if logErr != nil {
		return nil, fmt.Errorf("create logger: %w", logErr)
	}

	return log.With(logger.String("service", cfg.Service.Name)), nil
}
