// Package api provides the HTTP surface of the warehouse service.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/toot-warehouse/internal/domain"
)

// Warehouse defines the pipeline operations the handlers expose.
type Warehouse interface {
	VerifySchemas(ctx context.Context) (*domain.SchemaReport, error)
	LoadBronze(ctx context.Context, req *domain.BatchLoadRequest) (*domain.BronzeStats, error)
	RunSilver(ctx context.Context) (*domain.SilverStats, error)
	RefreshGold(ctx context.Context) (*domain.GoldStats, error)
	Run(ctx context.Context, req *domain.BatchLoadRequest) (*domain.RunSummary, error)
	Stats(ctx context.Context) (*domain.WarehouseStats, error)
}

// WarehouseHandler handles pipeline HTTP requests.
type WarehouseHandler struct {
	svc Warehouse
}

// NewWarehouseHandler creates a new warehouse handler.
func NewWarehouseHandler(svc Warehouse) *WarehouseHandler {
	return &WarehouseHandler{svc: svc}
}

// RunPipeline handles POST /api/v1/batches. It lands the batch in Bronze
// and carries it through Silver and Gold in one pass.
func (h *WarehouseHandler) RunPipeline(c *gin.Context) {
	var req domain.BatchLoadRequest
	if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindErr.Error()})
		return
	}

	summary, runErr := h.svc.Run(c.Request.Context(), &req)
	if runErr != nil {
		c.JSON(statusFor(runErr), gin.H{"error": runErr.Error()})
		return
	}

	c.JSON(http.StatusCreated, summary)
}

// LoadBronze handles POST /api/v1/bronze/batches.
func (h *WarehouseHandler) LoadBronze(c *gin.Context) {
	var req domain.BatchLoadRequest
	if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindErr.Error()})
		return
	}

	stats, loadErr := h.svc.LoadBronze(c.Request.Context(), &req)
	if loadErr != nil {
		c.JSON(statusFor(loadErr), gin.H{"error": loadErr.Error()})
		return
	}

	c.JSON(http.StatusCreated, stats)
}

// RunSilver handles POST /api/v1/silver/etl.
func (h *WarehouseHandler) RunSilver(c *gin.Context) {
	stats, etlErr := h.svc.RunSilver(c.Request.Context())
	if etlErr != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": etlErr.Error()})
		return
	}

	c.JSON(http.StatusOK, stats)
}

// RefreshGold handles POST /api/v1/gold/refresh. Per-view failures are
// reported in the body, not as an HTTP error.
func (h *WarehouseHandler) RefreshGold(c *gin.Context) {
	stats, refreshErr := h.svc.RefreshGold(c.Request.Context())
	if refreshErr != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": refreshErr.Error()})
		return
	}

	c.JSON(http.StatusOK, stats)
}

// VerifySchemas handles GET /api/v1/schemas/verify.
func (h *WarehouseHandler) VerifySchemas(c *gin.Context) {
	report, verifyErr := h.svc.VerifySchemas(c.Request.Context())
	if verifyErr != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": verifyErr.Error()})
		return
	}

	status := http.StatusOK
	if !report.Healthy {
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, report)
}

// GetStats handles GET /api/v1/stats.
func (h *WarehouseHandler) GetStats(c *gin.Context) {
	stats, statsErr := h.svc.Stats(c.Request.Context())
	if statsErr != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": statsErr.Error()})
		return
	}

	c.JSON(http.StatusOK, stats)
}

func statusFor(err error) int {
	if errors.Is(err, domain.ErrEmptyBatch) {
		return http.StatusBadRequest
	}

	return http.StatusInternalServerError
}
