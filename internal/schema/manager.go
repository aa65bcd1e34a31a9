// Package schema owns warehouse DDL. All objects are created through
// embedded migrations so a fresh database and a long-lived one converge
// on the same structure.
package schema

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/toot-warehouse/internal/config"
	"github.com/jonesrussell/toot-warehouse/internal/domain"
	"github.com/jonesrussell/toot-warehouse/internal/logger"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Minimum object counts a healthy warehouse must expose per layer.
const (
	minBronzeTables = 1
	minSilverTables = 5
	minGoldViews    = 7
)

// Manager applies and verifies the warehouse models.
type Manager struct {
	db        *sqlx.DB
	warehouse config.WarehouseConfig
	log       logger.Logger
}

// NewManager creates a schema manager bound to the given database.
func NewManager(db *sqlx.DB, warehouse config.WarehouseConfig, log logger.Logger) *Manager {
	return &Manager{db: db, warehouse: warehouse, log: log}
}

// Apply runs every pending migration, Bronze through Gold. A warehouse
// that is already up to date is not an error.
func (m *Manager) Apply(ctx context.Context) error {
	source, sourceErr := iofs.New(migrationFiles, "migrations")
	if sourceErr != nil {
		return &domain.SchemaError{Op: "apply", Err: fmt.Errorf("opening migration source: %w", sourceErr)}
	}

	driver, driverErr := postgres.WithInstance(m.db.DB, &postgres.Config{})
	if driverErr != nil {
		return &domain.SchemaError{Op: "apply", Err: fmt.Errorf("creating migration driver: %w", driverErr)}
	}

	migrator, newErr := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if newErr != nil {
		return &domain.SchemaError{Op: "apply", Err: fmt.Errorf("creating migrator: %w", newErr)}
	}

	upErr := migrator.Up()
	switch {
	case errors.Is(upErr, migrate.ErrNoChange):
		m.log.Info("warehouse models already up to date")
	case upErr != nil:
		return &domain.SchemaError{Op: "apply", Err: upErr}
	default:
		m.log.Info("warehouse models applied",
			logger.String("bronze_schema", m.warehouse.BronzeSchema),
			logger.String("silver_schema", m.warehouse.SilverSchema),
			logger.String("gold_schema", m.warehouse.GoldSchema))
	}

	return nil
}

// Verify checks that every layer's schema exists and carries the objects
// the loaders depend on. It never mutates the database.
func (m *Manager) Verify(ctx context.Context) (*domain.SchemaReport, error) {
	report := &domain.SchemaReport{Healthy: true}

	layers := []struct {
		schema   string
		minTable int
		minViews int
	}{
		{schema: m.warehouse.BronzeSchema, minTable: minBronzeTables},
		{schema: m.warehouse.SilverSchema, minTable: minSilverTables},
		{schema: m.warehouse.GoldSchema, minViews: minGoldViews},
	}

	for _, layer := range layers {
		status, statusErr := m.inspectSchema(ctx, layer.schema)
		if statusErr != nil {
			return nil, &domain.SchemaError{Op: "verify", Err: statusErr}
		}

		if !status.Exists || status.Tables < layer.minTable || status.MaterializedViews < layer.minViews {
			report.Healthy = false
		}

		report.Schemas = append(report.Schemas, *status)
	}

	return report, nil
}

func (m *Manager) inspectSchema(ctx context.Context, schema string) (*domain.SchemaStatus, error) {
	status := &domain.SchemaStatus{Schema: schema}

	existsErr := m.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM information_schema.schemata WHERE schema_name = $1)`,
		schema,
	).Scan(&status.Exists)
	if existsErr != nil {
		return nil, fmt.Errorf("checking schema %s: %w", schema, existsErr)
	}

	if !status.Exists {
		return status, nil
	}

	tablesErr := m.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM information_schema.tables
		 WHERE table_schema = $1 AND table_type = 'BASE TABLE'`,
		schema,
	).Scan(&status.Tables)
	if tablesErr != nil {
		return nil, fmt.Errorf("counting tables in %s: %w", schema, tablesErr)
	}

	viewsErr := m.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pg_matviews WHERE schemaname = $1`,
		schema,
	).Scan(&status.MaterializedViews)
	if viewsErr != nil {
		return nil, fmt.Errorf("counting materialized views in %s: %w", schema, viewsErr)
	}

	return status, nil
}
