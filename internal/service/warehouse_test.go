package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/toot-warehouse/internal/domain"
	"github.com/jonesrussell/toot-warehouse/internal/logger"
	"github.com/jonesrussell/toot-warehouse/internal/metrics"
)

type fakeSchemaManager struct {
	applyErr  error
	verifyErr error
	report    *domain.SchemaReport
	applied   int
}

func (f *fakeSchemaManager) Apply(context.Context) error { f.applied++; return f.applyErr }

func (f *fakeSchemaManager) Verify(context.Context) (*domain.SchemaReport, error) {
	return f.report, f.verifyErr
}

type fakeBronzeStore struct {
	inserted   int64
	duplicates int64
	insertErr  error
	statsErr   error
	gotRecords []domain.EnrichedStatus
	gotRunID   string
}

func (f *fakeBronzeStore) InsertBatch(
	_ context.Context,
	records []domain.EnrichedStatus,
	runID string,
	_ time.Time,
) (int64, int64, error) {
	f.gotRecords = records
	f.gotRunID = runID

	return f.inserted, f.duplicates, f.insertErr
}

func (f *fakeBronzeStore) Stats(context.Context) (*domain.BronzeLayerStats, error) {
	return &domain.BronzeLayerStats{RowCount: 42}, f.statsErr
}

type fakeSilverStore struct {
	stats  *domain.SilverStats
	etlErr error
}

func (f *fakeSilverStore) RunETL(context.Context) (*domain.SilverStats, error) {
	return f.stats, f.etlErr
}

func (f *fakeSilverStore) Stats(context.Context) (*domain.SilverLayerStats, error) {
	return &domain.SilverLayerStats{CurrentAccounts: 7}, nil
}

type fakeGoldStore struct {
	views      []string
	failViews  map[string]error
	rowCounts  map[string]int64
	refreshed  []string
}

func (f *fakeGoldStore) Views() []string { return f.views }

func (f *fakeGoldStore) Refresh(_ context.Context, view string) error {
	if refreshErr, ok := f.failViews[view]; ok {
		return refreshErr
	}

	f.refreshed = append(f.refreshed, view)

	return nil
}

func (f *fakeGoldStore) RowCount(_ context.Context, view string) (int64, error) {
	return f.rowCounts[view], nil
}

func (f *fakeGoldStore) Stats(context.Context) (*domain.GoldLayerStats, error) {
	return &domain.GoldLayerStats{ViewCounts: map[string]int64{"mv_sentiment_trends": 3}}, nil
}

func newTestService(
	schemas *fakeSchemaManager,
	bronze *fakeBronzeStore,
	silver *fakeSilverStore,
	gold *fakeGoldStore,
) *WarehouseService {
	svc := NewWarehouseService(
		schemas, bronze, silver, gold,
		metrics.New(prometheus.NewRegistry()),
		logger.NewNop(),
	)
	svc.now = func() time.Time {
		return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	}

	return svc
}

func defaultFakes() (*fakeSchemaManager, *fakeBronzeStore, *fakeSilverStore, *fakeGoldStore) {
	return &fakeSchemaManager{report: &domain.SchemaReport{Healthy: true}},
		&fakeBronzeStore{inserted: 2},
		&fakeSilverStore{stats: &domain.SilverStats{FactRows: 2}},
		&fakeGoldStore{
			views:     []string{"mv_daily_engagement_summary", "mv_sentiment_trends"},
			rowCounts: map[string]int64{"mv_daily_engagement_summary": 10},
		}
}

func batchOf(ids ...string) *domain.BatchLoadRequest {
	req := &domain.BatchLoadRequest{}
	for _, id := range ids {
		req.Statuses = append(req.Statuses, domain.EnrichedStatus{
			ID:        id,
			CreatedAt: time.Date(2025, 5, 30, 8, 0, 0, 0, time.UTC),
			AccountID: "acct-1",
		})
	}

	return req
}

func TestNewRunIDFormat(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 34, 56, 0, time.UTC)

	runID := NewRunID(now)

	assert.True(t, strings.HasPrefix(runID, "run_20250601_123456_"))
	assert.Len(t, runID, len("run_20250601_123456_")+8)
}

func TestLoadBronzeGeneratesRunID(t *testing.T) {
	schemas, bronze, silver, gold := defaultFakes()
	svc := newTestService(schemas, bronze, silver, gold)

	stats, loadErr := svc.LoadBronze(context.Background(), batchOf("a", "b"))

	require.NoError(t, loadErr)
	assert.True(t, strings.HasPrefix(stats.RunID, "run_20250601_120000_"))
	assert.Equal(t, stats.RunID, bronze.gotRunID)
	assert.Equal(t, int64(2), stats.Received)
	assert.Equal(t, int64(2), stats.Inserted)
}

func TestLoadBronzeKeepsCallerRunID(t *testing.T) {
	schemas, bronze, silver, gold := defaultFakes()
	svc := newTestService(schemas, bronze, silver, gold)

	req := batchOf("a")
	req.RunID = "run_20250531_000000_deadbeef"

	stats, loadErr := svc.LoadBronze(context.Background(), req)

	require.NoError(t, loadErr)
	assert.Equal(t, "run_20250531_000000_deadbeef", stats.RunID)
}

func TestLoadBronzeDeduplicatesBeforeInsert(t *testing.T) {
	schemas, bronze, silver, gold := defaultFakes()
	bronze.inserted = 1
	svc := newTestService(schemas, bronze, silver, gold)

	stats, loadErr := svc.LoadBronze(context.Background(), batchOf("a", "a"))

	require.NoError(t, loadErr)
	assert.Len(t, bronze.gotRecords, 1)
	assert.Equal(t, int64(2), stats.Received)
	assert.Equal(t, int64(1), stats.Deduplicated)
}

func TestLoadBronzeRejectsEmptyBatch(t *testing.T) {
	schemas, bronze, silver, gold := defaultFakes()
	svc := newTestService(schemas, bronze, silver, gold)

	_, loadErr := svc.LoadBronze(context.Background(), &domain.BatchLoadRequest{})

	assert.ErrorIs(t, loadErr, domain.ErrEmptyBatch)
}

func TestRefreshGoldContinuesPastFailures(t *testing.T) {
	schemas, bronze, silver, gold := defaultFakes()
	gold.failViews = map[string]error{
		"mv_daily_engagement_summary": &domain.RefreshError{
			View: "mv_daily_engagement_summary",
			Err:  errors.New("disk full"),
		},
	}
	svc := newTestService(schemas, bronze, silver, gold)

	stats, refreshErr := svc.RefreshGold(context.Background())

	require.NoError(t, refreshErr)
	assert.Equal(t, 1, stats.Refreshed)
	assert.Equal(t, 1, stats.Failed)
	require.Len(t, stats.Views, 2)
	assert.Contains(t, stats.Views[0].Error, "disk full")
	assert.Empty(t, stats.Views[1].Error)
	assert.Equal(t, []string{"mv_sentiment_trends"}, gold.refreshed)
}

func TestRefreshGoldFailsWhenNoViewRefreshes(t *testing.T) {
	schemas, bronze, silver, gold := defaultFakes()
	gold.failViews = map[string]error{
		"mv_daily_engagement_summary": errors.New("connection refused"),
		"mv_sentiment_trends":         errors.New("connection refused"),
	}
	svc := newTestService(schemas, bronze, silver, gold)

	stats, refreshErr := svc.RefreshGold(context.Background())

	require.Error(t, refreshErr)
	assert.Contains(t, refreshErr.Error(), "all 2 view refreshes failed")
	require.NotNil(t, stats)
	assert.Equal(t, 0, stats.Refreshed)
	assert.Equal(t, 2, stats.Failed)
}

func TestRunFullPipeline(t *testing.T) {
	schemas, bronze, silver, gold := defaultFakes()
	svc := newTestService(schemas, bronze, silver, gold)

	summary, runErr := svc.Run(context.Background(), batchOf("a", "b"))

	require.NoError(t, runErr)
	assert.False(t, summary.Degraded)
	assert.Equal(t, int64(2), summary.Bronze.Inserted)
	assert.Equal(t, int64(2), summary.Silver.FactRows)
	assert.Equal(t, 2, summary.Gold.Refreshed)
}

func TestRunDegradesOnBronzeLoadError(t *testing.T) {
	schemas, bronze, silver, gold := defaultFakes()
	bronze.insertErr = &domain.LoadError{Table: "transformed_toots_with_sentiment_data", Err: errors.New("disk full")}
	svc := newTestService(schemas, bronze, silver, gold)

	summary, runErr := svc.Run(context.Background(), batchOf("a"))

	require.NoError(t, runErr)
	assert.True(t, summary.Degraded)
	assert.Equal(t, int64(1), summary.Bronze.Received)
	assert.Equal(t, int64(0), summary.Bronze.Inserted)
	// Downstream stages still ran against previously landed data
	assert.Equal(t, int64(2), summary.Silver.FactRows)
	assert.Equal(t, 2, summary.Gold.Refreshed)
}

func TestRunDegradesOnFailedView(t *testing.T) {
	schemas, bronze, silver, gold := defaultFakes()
	gold.failViews = map[string]error{
		"mv_sentiment_trends": errors.New("lock timeout"),
	}
	svc := newTestService(schemas, bronze, silver, gold)

	summary, runErr := svc.Run(context.Background(), batchOf("a"))

	require.NoError(t, runErr)
	assert.True(t, summary.Degraded)
	assert.Equal(t, 1, summary.Gold.Failed)
}

func TestRunAbortsWhenGoldRefreshFailsEntirely(t *testing.T) {
	schemas, bronze, silver, gold := defaultFakes()
	gold.failViews = map[string]error{
		"mv_daily_engagement_summary": errors.New("connection refused"),
		"mv_sentiment_trends":         errors.New("connection refused"),
	}
	svc := newTestService(schemas, bronze, silver, gold)

	summary, runErr := svc.Run(context.Background(), batchOf("a"))

	require.Error(t, runErr)
	assert.Nil(t, summary)
	assert.Contains(t, runErr.Error(), "gold refresh")
}

func TestRunDegradesOnSilverFailure(t *testing.T) {
	schemas, bronze, silver, gold := defaultFakes()
	silver.stats = nil
	silver.etlErr = errors.New("deadlock detected")
	svc := newTestService(schemas, bronze, silver, gold)

	summary, runErr := svc.Run(context.Background(), batchOf("a"))

	require.NoError(t, runErr)
	assert.True(t, summary.Degraded)
	assert.Zero(t, summary.Silver.FactRows)
	assert.Equal(t, 2, summary.Gold.Refreshed)
}

func TestApplyModelsDelegates(t *testing.T) {
	schemas, bronze, silver, gold := defaultFakes()
	svc := newTestService(schemas, bronze, silver, gold)

	require.NoError(t, svc.ApplyModels(context.Background()))
	assert.Equal(t, 1, schemas.applied)
}

func TestApplyModelsPropagatesSchemaError(t *testing.T) {
	schemas, bronze, silver, gold := defaultFakes()
	schemas.applyErr = &domain.SchemaError{Op: "apply", Err: errors.New("permission denied")}
	svc := newTestService(schemas, bronze, silver, gold)

	applyErr := svc.ApplyModels(context.Background())

	var schemaErr *domain.SchemaError
	require.ErrorAs(t, applyErr, &schemaErr)
}

func TestStatsCombinesLayers(t *testing.T) {
	schemas, bronze, silver, gold := defaultFakes()
	svc := newTestService(schemas, bronze, silver, gold)

	stats, statsErr := svc.Stats(context.Background())

	require.NoError(t, statsErr)
	assert.Equal(t, int64(42), stats.Bronze.RowCount)
	assert.Equal(t, int64(7), stats.Silver.CurrentAccounts)
	assert.Equal(t, int64(3), stats.Gold.ViewCounts["mv_sentiment_trends"])
}
