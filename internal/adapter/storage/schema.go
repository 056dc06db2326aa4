package storage

import (
	"context"
	"database/sql"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS stock_items (
		id VARCHAR(64) PRIMARY KEY,
		name VARCHAR(255) NOT NULL DEFAULT '',
		set_name VARCHAR(128) NOT NULL DEFAULT '',
		cond VARCHAR(32) NOT NULL DEFAULT '',
		foil BOOLEAN NOT NULL DEFAULT FALSE,
		price_cents BIGINT NOT NULL DEFAULT 0,
		total_quantity INT NOT NULL DEFAULT 0,
		version INT NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS stock_locations (
		item_id VARCHAR(64) NOT NULL,
		bin_id VARCHAR(64) NOT NULL,
		row_num INT NOT NULL,
		quantity INT NOT NULL,
		PRIMARY KEY (item_id, bin_id, row_num)
	)`,
	`CREATE TABLE IF NOT EXISTS bins (
		id VARCHAR(64) PRIMARY KEY,
		name VARCHAR(128) NOT NULL UNIQUE,
		row_count INT NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS allocations (
		id VARCHAR(64) PRIMARY KEY,
		order_id VARCHAR(64) NOT NULL,
		stock_item_id VARCHAR(64) NOT NULL,
		requested INT NOT NULL,
		fulfilled INT NOT NULL,
		unfilled INT NOT NULL,
		picked BOOLEAN NOT NULL DEFAULT FALSE,
		picked_at DATETIME NULL,
		picked_by VARCHAR(128) NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_order_line (order_id, stock_item_id),
		KEY idx_order (order_id)
	)`,
	`CREATE TABLE IF NOT EXISTS allocation_locations (
		allocation_id VARCHAR(64) NOT NULL,
		bin_id VARCHAR(64) NOT NULL,
		row_num INT NOT NULL,
		quantity INT NOT NULL,
		PRIMARY KEY (allocation_id, bin_id, row_num)
	)`,
}

// EnsureSchema creates the tables if they do not exist yet.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
