// Package database implements the warehouse persistence layer: the
// PostgreSQL connection pool and the per-layer repositories.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/jonesrussell/toot-warehouse/internal/config"
)

// DefaultPingTimeout bounds the startup connectivity check.
const DefaultPingTimeout = 5 * time.Second

// NewConnection creates a pooled PostgreSQL connection and verifies it
// with a ping before returning.
func NewConnection(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	db, connectErr := sqlx.Connect("postgres", dsn)
	if connectErr != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", connectErr)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnectionMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), DefaultPingTimeout)
	defer cancel()

	if pingErr := db.PingContext(ctx); pingErr != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", pingErr)
	}

	return db, nil
}

// Close closes the database connection.
func Close(db *sqlx.DB) error {
	if db != nil {
		return db.Close()
	}

	return nil
}
