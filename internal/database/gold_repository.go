package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/toot-warehouse/internal/domain"
	"github.com/jonesrussell/toot-warehouse/internal/logger"
)

// goldViews lists every materialized view in the Gold layer, in refresh
// order. The views are independent of each other, so the order only
// affects reporting.
var goldViews = []string{
	"mv_daily_engagement_summary",
	"mv_top_performing_content",
	"mv_account_influence_analysis",
	"mv_hashtag_performance",
	"mv_hourly_posting_patterns",
	"mv_sentiment_trends",
	"mv_viral_content_indicators",
}

// GoldRepository refreshes and inspects the analytics materialized views.
type GoldRepository struct {
	db     *sqlx.DB
	schema string
	log    logger.Logger
}

// NewGoldRepository creates a Gold repository for the given schema.
func NewGoldRepository(db *sqlx.DB, schema string, log logger.Logger) *GoldRepository {
	return &GoldRepository{db: db, schema: schema, log: log}
}

// Views returns the managed view names in refresh order.
func (r *GoldRepository) Views() []string {
	views := make([]string, len(goldViews))
	copy(views, goldViews)

	return views
}

// Refresh fully rebuilds one materialized view.
func (r *GoldRepository) Refresh(ctx context.Context, view string) error {
	query := fmt.Sprintf(`REFRESH MATERIALIZED VIEW %s.%s`, r.schema, view)

	if _, execErr := r.db.ExecContext(ctx, query); execErr != nil {
		return &domain.RefreshError{View: view, Err: execErr}
	}

	return nil
}

// RowCount returns the number of rows a view currently materializes.
func (r *GoldRepository) RowCount(ctx context.Context, view string) (int64, error) {
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s.%s`, r.schema, view)

	var count int64
	if scanErr := r.db.QueryRowContext(ctx, query).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("failed to count %s: %w", view, scanErr)
	}

	return count, nil
}

// Stats reports row counts for every managed view.
func (r *GoldRepository) Stats(ctx context.Context) (*domain.GoldLayerStats, error) {
	stats := &domain.GoldLayerStats{ViewCounts: make(map[string]int64)}

	for _, view := range goldViews {
		count, countErr := r.RowCount(ctx, view)
		if countErr != nil {
			return nil, countErr
		}

		stats.ViewCounts[view] = count
	}

	return stats, nil
}
