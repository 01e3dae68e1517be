package store

import (
	"context"
	"fmt"
)

// schema is written in the subset of SQL shared by postgres and sqlite
var schema = []string{
	`CREATE TABLE IF NOT EXISTS products (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		category TEXT NOT NULL,
		subcategory TEXT,
		room_type TEXT,
		style TEXT,
		price DOUBLE PRECISION NOT NULL CHECK (price > 0),
		currency TEXT NOT NULL DEFAULT 'EUR',
		width_cm DOUBLE PRECISION,
		height_cm DOUBLE PRECISION,
		depth_cm DOUBLE PRECISION,
		dimensions_confidence TEXT NOT NULL DEFAULT 'absent',
		proportion_w_h DOUBLE PRECISION,
		proportion_w_d DOUBLE PRECISION,
		visual_description TEXT,
		luxury_score DOUBLE PRECISION,
		rating DOUBLE PRECISION,
		in_stock BOOLEAN NOT NULL DEFAULT TRUE,
		source_domain TEXT NOT NULL,
		product_url TEXT NOT NULL,
		image_key TEXT,
		image_usable BOOLEAN NOT NULL DEFAULT FALSE,
		color TEXT,
		primary_material TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_products_category ON products (category)`,
	`CREATE INDEX IF NOT EXISTS idx_products_price ON products (price)`,
	`CREATE INDEX IF NOT EXISTS idx_products_source ON products (source_domain)`,
	`CREATE TABLE IF NOT EXISTS designs (
		id TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		tier TEXT NOT NULL,
		style TEXT NOT NULL DEFAULT '',
		budget_total DOUBLE PRECISION NOT NULL,
		request TEXT NOT NULL,
		result TEXT NOT NULL DEFAULT '',
		error TEXT NOT NULL DEFAULT '',
		idempotency_key TEXT UNIQUE,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS processed_events (
		event_id TEXT PRIMARY KEY,
		event_type TEXT NOT NULL,
		processed_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
}

// EnsureSchema creates the catalog and design tables if they are missing
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
