package domain

import "time"

// BronzeStats reports the outcome of a Bronze batch load.
type BronzeStats struct {
	RunID        string `json:"run_id"`
	Received     int64  `json:"received"`
	Deduplicated int64  `json:"deduplicated"`
	Inserted     int64  `json:"inserted"`
	Duplicates   int64  `json:"duplicates"`
}

// SilverStats reports per-table outcomes of a Silver ETL run.
type SilverStats struct {
	DateRows            int64 `json:"date_rows"`
	AccountVersions     int64 `json:"account_versions"`
	ContentRows         int64 `json:"content_rows"`
	SentimentRows       int64 `json:"sentiment_rows"`
	FactRows            int64 `json:"fact_rows"`
	UnresolvedSentiment int64 `json:"unresolved_sentiment"`
}

// ViewRefresh is the per-view outcome of a Gold refresh.
type ViewRefresh struct {
	View  string `json:"view"`
	Rows  int64  `json:"rows"`
	Error string `json:"error,omitempty"`
}

// GoldStats reports the outcome of a Gold layer refresh.
type GoldStats struct {
	Refreshed int           `json:"refreshed"`
	Failed    int           `json:"failed"`
	Views     []ViewRefresh `json:"views"`
}

// RunSummary aggregates per-stage statistics for one full pipeline run.
type RunSummary struct {
	RunID      string      `json:"run_id"`
	StartedAt  time.Time   `json:"started_at"`
	FinishedAt time.Time   `json:"finished_at"`
	Bronze     BronzeStats `json:"bronze"`
	Silver     SilverStats `json:"silver"`
	Gold       GoldStats   `json:"gold"`
	Degraded   bool        `json:"degraded"`
}

// SchemaStatus describes one expected warehouse schema.
type SchemaStatus struct {
	Schema            string `json:"schema"`
	Exists            bool   `json:"exists"`
	Tables            int    `json:"tables"`
	MaterializedViews int    `json:"materialized_views,omitempty"`
}

// SchemaReport is the result of verifying all expected schemas.
type SchemaReport struct {
	Schemas []SchemaStatus `json:"schemas"`
	Healthy bool           `json:"healthy"`
}

// BronzeLayerStats describes the current state of the Bronze layer.
type BronzeLayerStats struct {
	RowCount        int64      `json:"row_count"`
	PipelineRuns    int64      `json:"pipeline_runs"`
	LatestIngestion *time.Time `json:"latest_ingestion,omitempty"`
}

// SilverLayerStats describes the current state of the Silver layer.
type SilverLayerStats struct {
	TableCounts     map[string]int64 `json:"table_counts"`
	CurrentAccounts int64            `json:"current_accounts"`
}

// GoldLayerStats describes the current state of the Gold layer.
type GoldLayerStats struct {
	ViewCounts map[string]int64 `json:"view_counts"`
}

// WarehouseStats is the combined per-layer state report.
type WarehouseStats struct {
	Bronze      BronzeLayerStats `json:"bronze"`
	Silver      SilverLayerStats `json:"silver"`
	Gold        GoldLayerStats   `json:"gold"`
	GeneratedAt time.Time        `json:"generated_at"`
}
