package bootstrap

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/jonesrussell/toot-warehouse/internal/api"
	"github.com/jonesrussell/toot-warehouse/internal/config"
	"github.com/jonesrussell/toot-warehouse/internal/database"
	"github.com/jonesrussell/toot-warehouse/internal/logger"
	"github.com/jonesrussell/toot-warehouse/internal/metrics"
	"github.com/jonesrussell/toot-warehouse/internal/schema"
	"github.com/jonesrussell/toot-warehouse/internal/service"
)

// SetupWarehouse wires the repositories into the warehouse service and
// applies the warehouse models before anything else touches the database.
// The returned registry carries all pipeline collectors for /metrics.
func SetupWarehouse(
	cfg *config.Config,
	db *sqlx.DB,
	log logger.Logger,
) (*service.WarehouseService, *prometheus.Registry, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	schemaManager := schema.NewManager(db, cfg.Warehouse, log)
	bronzeRepo := database.NewBronzeRepository(db, cfg.Warehouse.BronzeSchema, log)
	silverRepo := database.NewSilverRepository(db, cfg.Warehouse.BronzeSchema, cfg.Warehouse.SilverSchema, log)
	goldRepo := database.NewGoldRepository(db, cfg.Warehouse.GoldSchema, log)

	warehouseSvc := service.NewWarehouseService(
		schemaManager, bronzeRepo, silverRepo, goldRepo,
		metrics.New(registry), log,
	)

	if applyErr := warehouseSvc.ApplyModels(context.Background()); applyErr != nil {
		return nil, nil, fmt.Errorf("apply warehouse models: %w", applyErr)
	}
	log.Info("Warehouse models applied")

	return warehouseSvc, registry, nil
}

// SetupHTTPServer creates the HTTP server with all handlers wired.
func SetupHTTPServer(
	cfg *config.Config,
	db *sqlx.DB,
	warehouseSvc *service.WarehouseService,
	registry *prometheus.Registry,
	log logger.Logger,
) *api.Server {
	warehouseHandler := api.NewWarehouseHandler(warehouseSvc)
	healthHandler := api.NewHealthHandler(cfg.Service.Name, cfg.Service.Version, db)

	return api.NewServer(cfg.Service.Port, cfg.Service.Debug, log, func(router *gin.Engine) {
		api.SetupRoutes(router, warehouseHandler, healthHandler, registry)
	})
}
