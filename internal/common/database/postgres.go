// internal/common/database/postgres.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"wizkid-search/internal/common/config"

	_ "github.com/lib/pq"
)

// feedbackSchema creates the answer feedback log.
const feedbackSchema = `
CREATE TABLE IF NOT EXISTS answer_feedback (
	id          BIGSERIAL PRIMARY KEY,
	query       TEXT        NOT NULL,
	helpful     BOOLEAN     NOT NULL,
	reason      TEXT,
	entity      TEXT,
	verdict     TEXT,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PostgresClient wraps the SQL database connection
type PostgresClient struct {
	DB *sql.DB
}

// NewPostgres creates a new PostgreSQL client
func NewPostgres(cfg config.PostgresConfig) (*PostgresClient, error) {
	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdle)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return &PostgresClient{DB: db}, nil
}

// Ping tests the database connection
func (c *PostgresClient) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

// EnsureSchema creates the tables owned by this service.
func (c *PostgresClient) EnsureSchema(ctx context.Context) error {
	if _, err := c.DB.ExecContext(ctx, feedbackSchema); err != nil {
		return fmt.Errorf("failed to create feedback table: %w", err)
	}
	return nil
}

// Close closes the database connection
func (c *PostgresClient) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
