package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRoutes configures all API routes. Every endpoint is internal
// service-to-service within the pipeline network.
func SetupRoutes(
	router *gin.Engine,
	warehouseHandler *WarehouseHandler,
	healthHandler *HealthHandler,
	registry *prometheus.Registry,
) {
	router.GET("/health", healthHandler.Health)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	v1 := router.Group("/api/v1")
	{
		// Full pipeline pass (write path)
		v1.POST("/batches", warehouseHandler.RunPipeline)

		// Per-stage operations
		v1.POST("/bronze/batches", warehouseHandler.LoadBronze)
		v1.POST("/silver/etl", warehouseHandler.RunSilver)
		v1.POST("/gold/refresh", warehouseHandler.RefreshGold)

		// Inspection
		v1.GET("/schemas/verify", warehouseHandler.VerifySchemas)
		v1.GET("/stats", warehouseHandler.GetStats)
	}
}
