package schema

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/toot-warehouse/internal/config"
	"github.com/jonesrussell/toot-warehouse/internal/domain"
	"github.com/jonesrussell/toot-warehouse/internal/logger"
)

func newTestManager(t *testing.T) (*Manager, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, mockErr := sqlmock.New()
	require.NoError(t, mockErr)
	t.Cleanup(func() { db.Close() })

	warehouse := config.WarehouseConfig{
		BronzeSchema: "bronze",
		SilverSchema: "dim_facts",
		GoldSchema:   "analytics",
	}

	return NewManager(sqlx.NewDb(db, "postgres"), warehouse, logger.NewNop()), mock
}

func expectSchemaInspection(mock sqlmock.Sqlmock, schema string, tables, views int) {
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(schema).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(`information_schema\.tables`).
		WithArgs(schema).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(tables))
	mock.ExpectQuery(`pg_matviews`).
		WithArgs(schema).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(views))
}

func TestVerifyHealthyWarehouse(t *testing.T) {
	manager, mock := newTestManager(t)

	expectSchemaInspection(mock, "bronze", 1, 0)
	expectSchemaInspection(mock, "dim_facts", 5, 0)
	expectSchemaInspection(mock, "analytics", 0, 7)

	report, verifyErr := manager.Verify(context.Background())

	require.NoError(t, verifyErr)
	assert.True(t, report.Healthy)
	require.Len(t, report.Schemas, 3)
	assert.Equal(t, "bronze", report.Schemas[0].Schema)
	assert.Equal(t, 7, report.Schemas[2].MaterializedViews)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyMissingSchema(t *testing.T) {
	manager, mock := newTestManager(t)

	expectSchemaInspection(mock, "bronze", 1, 0)
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("dim_facts").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	expectSchemaInspection(mock, "analytics", 0, 7)

	report, verifyErr := manager.Verify(context.Background())

	require.NoError(t, verifyErr)
	assert.False(t, report.Healthy)
	assert.False(t, report.Schemas[1].Exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyMissingViewsIsUnhealthy(t *testing.T) {
	manager, mock := newTestManager(t)

	expectSchemaInspection(mock, "bronze", 1, 0)
	expectSchemaInspection(mock, "dim_facts", 5, 0)
	expectSchemaInspection(mock, "analytics", 0, 3)

	report, verifyErr := manager.Verify(context.Background())

	require.NoError(t, verifyErr)
	assert.False(t, report.Healthy)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyQueryFailureIsSchemaError(t *testing.T) {
	manager, mock := newTestManager(t)

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("bronze").
		WillReturnError(errors.New("connection reset"))

	report, verifyErr := manager.Verify(context.Background())

	require.Error(t, verifyErr)
	assert.Nil(t, report)

	var schemaErr *domain.SchemaError
	require.ErrorAs(t, verifyErr, &schemaErr)
	assert.Equal(t, "verify", schemaErr.Op)
	assert.NoError(t, mock.ExpectationsWereMet())
}
