// Package service orchestrates the warehouse pipeline stages: schema
// management, Bronze loading, Silver transformation and Gold refresh.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jonesrussell/toot-warehouse/internal/domain"
	"github.com/jonesrussell/toot-warehouse/internal/logger"
	"github.com/jonesrussell/toot-warehouse/internal/metrics"
)

// SchemaManager applies and verifies warehouse DDL.
type SchemaManager interface {
	Apply(ctx context.Context) error
	Verify(ctx context.Context) (*domain.SchemaReport, error)
}

// BronzeStore persists raw enriched statuses.
type BronzeStore interface {
	InsertBatch(ctx context.Context, records []domain.EnrichedStatus, runID string, ingestedAt time.Time) (inserted, duplicates int64, err error)
	Stats(ctx context.Context) (*domain.BronzeLayerStats, error)
}

// SilverStore rebuilds the dimensional model from Bronze.
type SilverStore interface {
	RunETL(ctx context.Context) (*domain.SilverStats, error)
	Stats(ctx context.Context) (*domain.SilverLayerStats, error)
}

// GoldStore refreshes and inspects the analytics views.
type GoldStore interface {
	Views() []string
	Refresh(ctx context.Context, view string) error
	RowCount(ctx context.Context, view string) (int64, error)
	Stats(ctx context.Context) (*domain.GoldLayerStats, error)
}

// WarehouseService drives the medallion pipeline end to end.
type WarehouseService struct {
	schemas SchemaManager
	bronze  BronzeStore
	silver  SilverStore
	gold    GoldStore
	metrics *metrics.Metrics
	log     logger.Logger
	now     func() time.Time
}

// NewWarehouseService creates a warehouse service.
func NewWarehouseService(
	schemas SchemaManager,
	bronze BronzeStore,
	silver SilverStore,
	gold GoldStore,
	m *metrics.Metrics,
	log logger.Logger,
) *WarehouseService {
	return &WarehouseService{
		schemas: schemas,
		bronze:  bronze,
		silver:  silver,
		gold:    gold,
		metrics: m,
		log:     log,
		now:     time.Now,
	}
}

// NewRunID generates a sortable pipeline run identifier.
func NewRunID(now time.Time) string {
	return fmt.Sprintf("run_%s_%s", now.UTC().Format("20060102_150405"), uuid.NewString()[:8])
}

// ApplyModels creates every warehouse object that does not yet exist,
// Bronze through Gold. Safe to call on every startup.
func (s *WarehouseService) ApplyModels(ctx context.Context) error {
	defer s.observeStage("schema_apply", s.now())

	return s.schemas.Apply(ctx)
}

// VerifySchemas reports whether every layer carries its expected objects.
func (s *WarehouseService) VerifySchemas(ctx context.Context) (*domain.SchemaReport, error) {
	return s.schemas.Verify(ctx)
}

// LoadBronze deduplicates a batch by natural key and lands it in the
// Bronze layer stamped with the run's lineage. When the request carries
// no run ID a new one is generated.
func (s *WarehouseService) LoadBronze(ctx context.Context, req *domain.BatchLoadRequest) (*domain.BronzeStats, error) {
	if req == nil || len(req.Statuses) == 0 {
		return nil, domain.ErrEmptyBatch
	}

	runID := req.RunID
	if runID == "" {
		runID = NewRunID(s.now())
	}

	defer s.observeStage("bronze_load", s.now())

	deduplicated := domain.DeduplicateBatch(req.Statuses)

	inserted, duplicates, loadErr := s.bronze.InsertBatch(ctx, deduplicated, runID, s.now().UTC())
	if loadErr != nil {
		return nil, loadErr
	}

	s.metrics.BronzeRowsInserted.Add(float64(inserted))
	s.metrics.BronzeDuplicates.Add(float64(duplicates))

	stats := &domain.BronzeStats{
		RunID:        runID,
		Received:     int64(len(req.Statuses)),
		Deduplicated: int64(len(req.Statuses) - len(deduplicated)),
		Inserted:     inserted,
		Duplicates:   duplicates,
	}

	s.log.Info("bronze batch loaded",
		logger.String("run_id", runID),
		logger.Int64("received", stats.Received),
		logger.Int64("deduplicated", stats.Deduplicated),
		logger.Int64("inserted", stats.Inserted),
		logger.Int64("duplicates", stats.Duplicates))

	return stats, nil
}

// RunSilver rebuilds the star schema from everything landed in Bronze.
func (s *WarehouseService) RunSilver(ctx context.Context) (*domain.SilverStats, error) {
	defer s.observeStage("silver_etl", s.now())

	stats, etlErr := s.silver.RunETL(ctx)
	if etlErr != nil {
		return nil, etlErr
	}

	s.metrics.SilverFactRows.Add(float64(stats.FactRows))
	s.metrics.UnresolvedSentiment.Add(float64(stats.UnresolvedSentiment))

	s.log.Info("silver etl complete",
		logger.Int64("date_rows", stats.DateRows),
		logger.Int64("account_versions", stats.AccountVersions),
		logger.Int64("content_rows", stats.ContentRows),
		logger.Int64("fact_rows", stats.FactRows),
		logger.Int64("unresolved_sentiment", stats.UnresolvedSentiment))

	return stats, nil
}

// RefreshGold rebuilds every analytics view. A failing view is recorded
// and the remaining views are still attempted, so one broken view never
// blocks the rest of the layer. When every view fails the problem is the
// connection, not a view, and the refresh is reported as an error.
func (s *WarehouseService) RefreshGold(ctx context.Context) (*domain.GoldStats, error) {
	defer s.observeStage("gold_refresh", s.now())

	stats := &domain.GoldStats{}

	for _, view := range s.gold.Views() {
		refreshErr := s.gold.Refresh(ctx, view)
		if refreshErr != nil {
			stats.Failed++
			stats.Views = append(stats.Views, domain.ViewRefresh{View: view, Error: refreshErr.Error()})
			s.metrics.ViewRefreshFailures.WithLabelValues(view).Inc()
			s.log.Error("gold view refresh failed",
				logger.String("view", view),
				logger.Error(refreshErr))

			continue
		}

		rows, countErr := s.gold.RowCount(ctx, view)
		if countErr != nil {
			s.log.Warn("gold view refreshed but row count failed",
				logger.String("view", view),
				logger.Error(countErr))
		}

		stats.Refreshed++
		stats.Views = append(stats.Views, domain.ViewRefresh{View: view, Rows: rows})
	}

	if stats.Failed > 0 && stats.Refreshed == 0 {
		return stats, fmt.Errorf("gold refresh: all %d view refreshes failed", stats.Failed)
	}

	s.log.Info("gold refresh complete",
		logger.Int("refreshed", stats.Refreshed),
		logger.Int("failed", stats.Failed))

	return stats, nil
}

// Run executes a full pipeline pass: land the batch in Bronze, rebuild
// Silver, refresh Gold. A Bronze load failure degrades the run but still
// lets Silver and Gold work from previously landed data; any failed view
// also marks the run degraded.
func (s *WarehouseService) Run(ctx context.Context, req *domain.BatchLoadRequest) (*domain.RunSummary, error) {
	if req == nil || len(req.Statuses) == 0 {
		return nil, domain.ErrEmptyBatch
	}

	if req.RunID == "" {
		req.RunID = NewRunID(s.now())
	}

	summary := &domain.RunSummary{RunID: req.RunID, StartedAt: s.now().UTC()}

	bronzeStats, bronzeErr := s.LoadBronze(ctx, req)
	switch {
	case bronzeErr == nil:
		summary.Bronze = *bronzeStats
	case isDegradable(bronzeErr):
		summary.Degraded = true
		summary.Bronze = domain.BronzeStats{RunID: req.RunID, Received: int64(len(req.Statuses))}
		s.log.Error("bronze load failed, continuing with previously landed data",
			logger.String("run_id", req.RunID),
			logger.Error(bronzeErr))
	default:
		return nil, bronzeErr
	}

	silverStats, silverErr := s.RunSilver(ctx)
	if silverErr != nil {
		summary.Degraded = true
		s.log.Error("silver etl failed",
			logger.String("run_id", req.RunID),
			logger.Error(silverErr))
	} else {
		summary.Silver = *silverStats
	}

	goldStats, goldErr := s.RefreshGold(ctx)
	if goldErr != nil {
		return nil, goldErr
	}

	summary.Gold = *goldStats
	if goldStats.Failed > 0 {
		summary.Degraded = true
	}

	summary.FinishedAt = s.now().UTC()

	s.log.Info("pipeline run finished",
		logger.String("run_id", summary.RunID),
		logger.Bool("degraded", summary.Degraded),
		logger.Duration("elapsed", summary.FinishedAt.Sub(summary.StartedAt)))

	return summary, nil
}

// Stats reports the current state of all three layers.
func (s *WarehouseService) Stats(ctx context.Context) (*domain.WarehouseStats, error) {
	bronzeStats, bronzeErr := s.bronze.Stats(ctx)
	if bronzeErr != nil {
		return nil, fmt.Errorf("bronze stats: %w", bronzeErr)
	}

	silverStats, silverErr := s.silver.Stats(ctx)
	if silverErr != nil {
		return nil, fmt.Errorf("silver stats: %w", silverErr)
	}

	goldStats, goldErr := s.gold.Stats(ctx)
	if goldErr != nil {
		return nil, fmt.Errorf("gold stats: %w", goldErr)
	}

	return &domain.WarehouseStats{
		Bronze:      *bronzeStats,
		Silver:      *silverStats,
		Gold:        *goldStats,
		GeneratedAt: s.now().UTC(),
	}, nil
}

// isDegradable reports whether a Bronze failure should degrade the run
// rather than abort it.
func isDegradable(err error) bool {
	var loadErr *domain.LoadError
	return errors.As(err, &loadErr)
}

func (s *WarehouseService) observeStage(stage string, start time.Time) {
	s.metrics.StageDuration.WithLabelValues(stage).Observe(s.now().Sub(start).Seconds())
}
