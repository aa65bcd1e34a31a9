// Package config loads the warehouse service configuration from YAML with
// environment variable overrides.
package config

import (
	"fmt"
	"time"
)

// Default service configuration values.
const (
	defaultServiceName    = "toot-warehouse"
	defaultServiceVersion = "1.0.0"
	defaultServicePort    = 8090
	defaultLogLevel       = "info"
)

// Default database configuration values.
const (
	defaultDBHost          = "localhost"
	defaultDBPort          = 5432
	defaultDBUser          = "postgres"
	defaultDBName          = "mastodon"
	defaultDBSSLMode       = "disable"
	defaultDBMaxConns      = 25
	defaultDBMaxIdleConns  = 5
	defaultDBConnLifetimeH = 1
)

// Default warehouse layer schema names.
const (
	defaultBronzeSchema = "bronze"
	defaultSilverSchema = "dim_facts"
	defaultGoldSchema   = "analytics"
)

// Config holds the application configuration.
type Config struct {
	Service   ServiceConfig   `yaml:"service"`
	Database  DatabaseConfig  `yaml:"database"`
	Warehouse WarehouseConfig `yaml:"warehouse"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServiceConfig holds service identity and runtime settings.
type ServiceConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	Port    int    `env:"WAREHOUSE_PORT" yaml:"port"`
	Debug   bool   `env:"APP_DEBUG"      yaml:"debug"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host                  string        `env:"POSTGRES_WAREHOUSE_HOST"     yaml:"host"`
	Port                  int           `env:"POSTGRES_WAREHOUSE_PORT"     yaml:"port"`
	User                  string        `env:"POSTGRES_WAREHOUSE_USER"     yaml:"user"`
	Password              string        `env:"POSTGRES_WAREHOUSE_PASSWORD" yaml:"password"`
	Database              string        `env:"POSTGRES_WAREHOUSE_DB"       yaml:"database"`
	SSLMode               string        `yaml:"sslmode"`
	MaxConnections        int           `yaml:"max_connections"`
	MaxIdleConns          int           `yaml:"max_idle_connections"`
	ConnectionMaxLifetime time.Duration `yaml:"connection_max_lifetime"`
}

// WarehouseConfig holds the medallion layer schema names. The names are
// fixed by the embedded DDL, which cannot interpolate them; Validate
// rejects any other value so queries and DDL never point at different
// schemas.
type WarehouseConfig struct {
	BronzeSchema string `yaml:"bronze_schema"`
	SilverSchema string `yaml:"silver_schema"`
	GoldSchema   string `yaml:"gold_schema"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `env:"LOG_LEVEL" yaml:"level"`
}

// ValidationError describes an invalid configuration field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config %s %s", e.Field, e.Message)
}

// Load loads configuration from a YAML file, applies defaults, then env overrides.
func Load(path string) (*Config, error) {
	var cfg Config
	if loadErr := load(path, &cfg); loadErr != nil {
		return nil, fmt.Errorf("load config: %w", loadErr)
	}

	setDefaults(&cfg)

	// Re-apply env overrides after defaults (env always wins)
	applyEnvOverrides(&cfg)

	if validateErr := cfg.Validate(); validateErr != nil {
		return nil, fmt.Errorf("validate config: %w", validateErr)
	}

	return &cfg, nil
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Service.Port <= 0 || c.Service.Port > 65535 {
		return &ValidationError{Field: "service.port", Message: "must be between 1 and 65535"}
	}

	if c.Database.Host == "" {
		return &ValidationError{Field: "database.host", Message: "is required"}
	}

	if c.Database.Database == "" {
		return &ValidationError{Field: "database.database", Message: "is required"}
	}

	if c.Warehouse.BronzeSchema != defaultBronzeSchema {
		return &ValidationError{Field: "warehouse.bronze_schema", Message: fmt.Sprintf("must be %q, schema names are fixed by the warehouse DDL", defaultBronzeSchema)}
	}

	if c.Warehouse.SilverSchema != defaultSilverSchema {
		return &ValidationError{Field: "warehouse.silver_schema", Message: fmt.Sprintf("must be %q, schema names are fixed by the warehouse DDL", defaultSilverSchema)}
	}

	if c.Warehouse.GoldSchema != defaultGoldSchema {
		return &ValidationError{Field: "warehouse.gold_schema", Message: fmt.Sprintf("must be %q, schema names are fixed by the warehouse DDL", defaultGoldSchema)}
	}

	return nil
}

func setDefaults(cfg *Config) {
	setServiceDefaults(&cfg.Service)
	setDatabaseDefaults(&cfg.Database)
	setWarehouseDefaults(&cfg.Warehouse)
	setLoggingDefaults(&cfg.Logging)
}

func setServiceDefaults(s *ServiceConfig) {
	if s.Name == "" {
		s.Name = defaultServiceName
	}

	if s.Version == "" {
		s.Version = defaultServiceVersion
	}

	if s.Port == 0 {
		s.Port = defaultServicePort
	}
}

func setDatabaseDefaults(d *DatabaseConfig) {
	if d.Host == "" {
		d.Host = defaultDBHost
	}

	if d.Port == 0 {
		d.Port = defaultDBPort
	}

	if d.User == "" {
		d.User = defaultDBUser
	}

	if d.Database == "" {
		d.Database = defaultDBName
	}

	if d.SSLMode == "" {
		d.SSLMode = defaultDBSSLMode
	}

	if d.MaxConnections == 0 {
		d.MaxConnections = defaultDBMaxConns
	}

	if d.MaxIdleConns == 0 {
		d.MaxIdleConns = defaultDBMaxIdleConns
	}

	if d.ConnectionMaxLifetime == 0 {
		d.ConnectionMaxLifetime = defaultDBConnLifetimeH * time.Hour
	}
}

func setWarehouseDefaults(w *WarehouseConfig) {
	if w.BronzeSchema == "" {
		w.BronzeSchema = defaultBronzeSchema
	}

	if w.SilverSchema == "" {
		w.SilverSchema = defaultSilverSchema
	}

	if w.GoldSchema == "" {
		w.GoldSchema = defaultGoldSchema
	}
}

func setLoggingDefaults(l *LoggingConfig) {
	if l.Level == "" {
		l.Level = defaultLogLevel
	}
}
