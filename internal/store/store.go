package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS discount_codes (
		id BIGSERIAL PRIMARY KEY,
		code VARCHAR(64) UNIQUE NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		discount_type VARCHAR(20) NOT NULL CHECK (discount_type IN ('percentage', 'fixed')),
		discount_value NUMERIC(12,2) NOT NULL,
		min_order_amount NUMERIC(12,2) NOT NULL DEFAULT 0,
		max_discount NUMERIC(12,2),
		max_uses INTEGER,
		current_uses INTEGER NOT NULL DEFAULT 0,
		start_date TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
		end_date TIMESTAMP WITH TIME ZONE,
		is_active BOOLEAN NOT NULL DEFAULT true,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_discount_codes_active ON discount_codes(is_active);`,
	`CREATE TABLE IF NOT EXISTS processed_events (
		event_id VARCHAR(64) PRIMARY KEY,
		event_type VARCHAR(64) NOT NULL,
		processed_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
	);`,
}

// Migrate creates the tables the service relies on
func (s *Store) Migrate(ctx context.Context) error {
	for i, stmt := range migrations {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d failed: %w", i, err)
		}
	}
	return nil
}
