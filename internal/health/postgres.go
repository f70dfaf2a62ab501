package health

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// PostgresChecker probes PostgreSQL over its own database/sql handle,
// outside the application pool.
type PostgresChecker struct {
	db *sql.DB
}

// NewPostgresChecker opens a single-connection handle for probing
func NewPostgresChecker(dsn string) (*PostgresChecker, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &PostgresChecker{db: db}, nil
}

// Name returns "postgres"
func (p *PostgresChecker) Name() string {
	return "postgres"
}

// Check runs a trivial query against the server
func (p *PostgresChecker) Check(ctx context.Context) error {
	var one int
	if err := p.db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("postgres query failed: %w", err)
	}
	return nil
}

// Close releases the probe connection
func (p *PostgresChecker) Close() error {
	return p.db.Close()
}
