// Package metrics exposes Prometheus instrumentation for the warehouse
// pipeline stages.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "toot_warehouse"

// Metrics holds the pipeline's Prometheus collectors.
type Metrics struct {
	BronzeRowsInserted  prometheus.Counter
	BronzeDuplicates    prometheus.Counter
	SilverFactRows      prometheus.Counter
	UnresolvedSentiment prometheus.Counter
	ViewRefreshFailures *prometheus.CounterVec
	StageDuration       *prometheus.HistogramVec
}

// New registers all pipeline collectors with the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		BronzeRowsInserted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bronze_rows_inserted_total",
			Help:      "Rows durably written to the Bronze landing table.",
		}),
		BronzeDuplicates: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bronze_duplicate_rows_total",
			Help:      "Incoming rows skipped because their natural key already landed.",
		}),
		SilverFactRows: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "silver_fact_rows_total",
			Help:      "Fact rows written or updated by Silver ETL runs.",
		}),
		UnresolvedSentiment: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "silver_unresolved_sentiment_total",
			Help:      "Scored facts that bound to no sentiment bucket.",
		}),
		ViewRefreshFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gold_view_refresh_failures_total",
			Help:      "Materialized view refreshes that failed, per view.",
		}, []string{"view"}),
		StageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall time per pipeline stage.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),
	}
}
