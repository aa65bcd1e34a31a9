// Package bootstrap handles application initialization and lifecycle
// management for the warehouse service.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/jonesrussell/toot-warehouse/internal/logger"
)

// Start initializes and runs the warehouse service. The warehouse models
// are applied on every start so a fresh database is usable immediately.
func Start() error {
	cfg, configErr := LoadConfig()
	if configErr != nil {
		return fmt.Errorf("config: %w", configErr)
	}

	log, logErr := CreateLogger(cfg)
	if logErr != nil {
		return fmt.Errorf("logger: %w", logErr)
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting Warehouse Service",
		logger.String("name", cfg.Service.Name),
		logger.String("version", cfg.Service.Version),
		logger.Int("port", cfg.Service.Port),
	)

	db, dbErr := SetupDatabase(cfg)
	if dbErr != nil {
		return fmt.Errorf("database: %w", dbErr)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			log.Error("Failed to close database", logger.Error(closeErr))
		}
	}()
	log.Info("Database connection established")

	warehouseSvc, registry, svcErr := SetupWarehouse(cfg, db, log)
	if svcErr != nil {
		return fmt.Errorf("warehouse: %w", svcErr)
	}

	server := SetupHTTPServer(cfg, db, warehouseSvc, registry, log)

	if runErr := server.RunWithGracefulShutdown(context.Background()); runErr != nil {
		log.Error("Server error", logger.Error(runErr))
		return fmt.Errorf("server: %w", runErr)
	}

	log.Info("Warehouse Service stopped")
	return nil
}
