package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, loadErr := Load(filepath.Join(t.TempDir(), "missing.yml"))

	require.NoError(t, loadErr)
	assert.Equal(t, "toot-warehouse", cfg.Service.Name)
	assert.Equal(t, 8090, cfg.Service.Port)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, "bronze", cfg.Warehouse.BronzeSchema)
	assert.Equal(t, "dim_facts", cfg.Warehouse.SilverSchema)
	assert.Equal(t, "analytics", cfg.Warehouse.GoldSchema)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, time.Hour, cfg.Database.ConnectionMaxLifetime)
}

func TestLoadReadsYAML(t *testing.T) {
	path := writeConfigFile(t, `
service:
  port: 9100
  debug: true
database:
  host: warehouse-db
  database: toots
logging:
  level: debug
`)

	cfg, loadErr := Load(path)

	require.NoError(t, loadErr)
	assert.Equal(t, 9100, cfg.Service.Port)
	assert.True(t, cfg.Service.Debug)
	assert.Equal(t, "warehouse-db", cfg.Database.Host)
	assert.Equal(t, "toots", cfg.Database.Database)
	assert.Equal(t, "debug", cfg.Logging.Level)
	// Unset fields still fall back to defaults
	assert.Equal(t, "dim_facts", cfg.Warehouse.SilverSchema)
}

func TestLoadRejectsRenamedWarehouseSchema(t *testing.T) {
	path := writeConfigFile(t, `
warehouse:
  gold_schema: gold
`)

	_, loadErr := Load(path)

	require.Error(t, loadErr)
	assert.Contains(t, loadErr.Error(), "warehouse.gold_schema")
	assert.Contains(t, loadErr.Error(), "analytics")
}

func TestLoadEnvOverridesWinOverFile(t *testing.T) {
	path := writeConfigFile(t, `
database:
  host: from-file
`)

	t.Setenv("POSTGRES_WAREHOUSE_HOST", "from-env")
	t.Setenv("POSTGRES_WAREHOUSE_PORT", "5433")
	t.Setenv("WAREHOUSE_PORT", "9200")
	t.Setenv("APP_DEBUG", "yes")

	cfg, loadErr := Load(path)

	require.NoError(t, loadErr)
	assert.Equal(t, "from-env", cfg.Database.Host)
	assert.Equal(t, 5433, cfg.Database.Port)
	assert.Equal(t, 9200, cfg.Service.Port)
	assert.True(t, cfg.Service.Debug)
}

func TestLoadRejectsInvalidPort(t *testing.T) {
	path := writeConfigFile(t, `
service:
  port: 70000
`)

	_, loadErr := Load(path)

	require.Error(t, loadErr)
	assert.Contains(t, loadErr.Error(), "service.port")
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := writeConfigFile(t, "service: [not a map")

	_, loadErr := Load(path)

	assert.Error(t, loadErr)
}

func TestGetConfigPath(t *testing.T) {
	assert.Equal(t, "config.yml", GetConfigPath("config.yml"))

	t.Setenv("CONFIG_PATH", "/etc/warehouse/config.yml")
	assert.Equal(t, "/etc/warehouse/config.yml", GetConfigPath("config.yml"))
}
