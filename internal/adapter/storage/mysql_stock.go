package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/evade6ix/ctfinal-sub000/internal/core/domain"
)

// MySQLStockRepository is the durable stock ledger backed by the stock_items,
// stock_locations and bins tables. Quantity mutations run in a single
// transaction with conditional updates, so an operation either applies fully
// or leaves the ledger untouched.
type MySQLStockRepository struct {
	db *sql.DB
}

func NewMySQLStockRepository(db *sql.DB) *MySQLStockRepository {
	return &MySQLStockRepository{db: db}
}

func (m *MySQLStockRepository) GetItem(ctx context.Context, itemID string) (*domain.StockItem, error) {
	var item domain.StockItem
	err := m.db.QueryRowContext(ctx, `
		SELECT id, name, set_name, cond, foil, price_cents, total_quantity, version, created_at, updated_at
		FROM stock_items WHERE id = ?`, itemID,
	).Scan(&item.ID, &item.Name, &item.SetName, &item.Condition, &item.Foil,
		&item.PriceCents, &item.TotalQuantity, &item.Version, &item.CreatedAt, &item.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query stock item: %w", err)
	}

	item.Locations, err = m.loadLocations(ctx, itemID)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (m *MySQLStockRepository) loadLocations(ctx context.Context, itemID string) ([]domain.BinLocation, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT bin_id, row_num, quantity FROM stock_locations
		WHERE item_id = ? ORDER BY bin_id, row_num`, itemID)
	if err != nil {
		return nil, fmt.Errorf("query locations: %w", err)
	}
	defer rows.Close()

	var locations []domain.BinLocation
	for rows.Next() {
		var loc domain.BinLocation
		if err := rows.Scan(&loc.BinID, &loc.Row, &loc.Quantity); err != nil {
			return nil, fmt.Errorf("scan location: %w", err)
		}
		locations = append(locations, loc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate locations: %w", err)
	}
	return locations, nil
}

func (m *MySQLStockRepository) UpsertItem(ctx context.Context, item domain.StockItem) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO stock_items (id, name, set_name, cond, foil, price_cents)
		VALUES (?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			name = VALUES(name), set_name = VALUES(set_name), cond = VALUES(cond),
			foil = VALUES(foil), price_cents = VALUES(price_cents)`,
		item.ID, item.Name, item.SetName, item.Condition, item.Foil, item.PriceCents,
	)
	if err != nil {
		return fmt.Errorf("upsert stock item: %w", err)
	}
	return nil
}

func (m *MySQLStockRepository) ListItems(ctx context.Context) ([]domain.StockItem, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, name, set_name, cond, foil, price_cents, total_quantity, version, created_at, updated_at
		FROM stock_items ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query stock items: %w", err)
	}
	defer rows.Close()

	var items []domain.StockItem
	for rows.Next() {
		var item domain.StockItem
		if err := rows.Scan(&item.ID, &item.Name, &item.SetName, &item.Condition, &item.Foil,
			&item.PriceCents, &item.TotalQuantity, &item.Version, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan stock item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stock items: %w", err)
	}

	for i := range items {
		items[i].Locations, err = m.loadLocations(ctx, items[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return items, nil
}

func (m *MySQLStockRepository) AddStock(ctx context.Context, itemID, binID string, row, quantity int) error {
	if quantity <= 0 {
		return domain.ErrInvalidQuantity
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO stock_locations (item_id, bin_id, row_num, quantity)
		VALUES (?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE quantity = quantity + VALUES(quantity)`,
		itemID, binID, row, quantity,
	)
	if err != nil {
		return fmt.Errorf("upsert location: %w", err)
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE stock_items
		SET total_quantity = total_quantity + ?, version = version + 1
		WHERE id = ?`,
		quantity, itemID,
	)
	if err != nil {
		return fmt.Errorf("update total: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("stock item %s: %w", itemID, domain.ErrNotFound)
	}

	return tx.Commit()
}

func (m *MySQLStockRepository) RemoveLocation(ctx context.Context, itemID, binID string, row int) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		DELETE FROM stock_locations WHERE item_id = ? AND bin_id = ? AND row_num = ?`,
		itemID, binID, row,
	)
	if err != nil {
		return fmt.Errorf("delete location: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("location %s/%s/%d: %w", itemID, binID, row, domain.ErrNotFound)
	}

	if err := recomputeTotalTx(ctx, tx, itemID); err != nil {
		return err
	}
	return tx.Commit()
}

func (m *MySQLStockRepository) Reserve(ctx context.Context, itemID string, version int, deltas []domain.BinLocation) error {
	total := 0
	for _, d := range deltas {
		if d.Quantity <= 0 {
			return domain.ErrInvalidQuantity
		}
		total += d.Quantity
	}
	if total == 0 {
		return nil
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, d := range deltas {
		result, err := tx.ExecContext(ctx, `
			UPDATE stock_locations
			SET quantity = quantity - ?
			WHERE item_id = ? AND bin_id = ? AND row_num = ? AND quantity >= ?`,
			d.Quantity, itemID, d.BinID, d.Row, d.Quantity,
		)
		if err != nil {
			return fmt.Errorf("reserve location: %w", err)
		}
		if rows, _ := result.RowsAffected(); rows == 0 {
			return fmt.Errorf("reserve %s from %s/%d: %w", itemID, d.BinID, d.Row, domain.ErrConflict)
		}
	}

	// Drained locations are pruned rather than kept at zero.
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM stock_locations WHERE item_id = ? AND quantity = 0`, itemID); err != nil {
		return fmt.Errorf("prune locations: %w", err)
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE stock_items
		SET total_quantity = total_quantity - ?, version = version + 1
		WHERE id = ? AND version = ? AND total_quantity >= ?`,
		total, itemID, version, total,
	)
	if err != nil {
		return fmt.Errorf("reserve total: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("reserve %s total: %w", itemID, domain.ErrConflict)
	}

	return tx.Commit()
}

func (m *MySQLStockRepository) Restore(ctx context.Context, itemID string, deltas []domain.BinLocation) error {
	total := 0
	for _, d := range deltas {
		if d.Quantity <= 0 {
			return domain.ErrInvalidQuantity
		}
		total += d.Quantity
	}
	if total == 0 {
		return nil
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, d := range deltas {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO stock_locations (item_id, bin_id, row_num, quantity)
			VALUES (?, ?, ?, ?)
			ON DUPLICATE KEY UPDATE quantity = quantity + VALUES(quantity)`,
			itemID, d.BinID, d.Row, d.Quantity,
		)
		if err != nil {
			return fmt.Errorf("restore location: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO stock_items (id, total_quantity, version)
		VALUES (?, ?, 1)
		ON DUPLICATE KEY UPDATE
			total_quantity = total_quantity + VALUES(total_quantity), version = version + 1`,
		itemID, total,
	)
	if err != nil {
		return fmt.Errorf("restore total: %w", err)
	}

	return tx.Commit()
}

func (m *MySQLStockRepository) RecomputeTotal(ctx context.Context, itemID string) (int, error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := recomputeTotalTx(ctx, tx, itemID); err != nil {
		return 0, err
	}

	var total int
	if err := tx.QueryRowContext(ctx, `
		SELECT total_quantity FROM stock_items WHERE id = ?`, itemID).Scan(&total); err != nil {
		return 0, fmt.Errorf("query total: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return total, nil
}

func recomputeTotalTx(ctx context.Context, tx *sql.Tx, itemID string) error {
	result, err := tx.ExecContext(ctx, `
		UPDATE stock_items
		SET total_quantity = (
			SELECT COALESCE(SUM(quantity), 0) FROM stock_locations WHERE item_id = ?
		), version = version + 1
		WHERE id = ?`,
		itemID, itemID,
	)
	if err != nil {
		return fmt.Errorf("recompute total: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("stock item %s: %w", itemID, domain.ErrNotFound)
	}
	return nil
}

func (m *MySQLStockRepository) CreateBin(ctx context.Context, bin domain.Bin) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO bins (id, name, row_count) VALUES (?, ?, ?)`,
		bin.ID, bin.Name, bin.RowCount,
	)
	if err != nil {
		return fmt.Errorf("insert bin: %w", err)
	}
	return nil
}

func (m *MySQLStockRepository) ListBins(ctx context.Context) ([]domain.Bin, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, name, row_count, created_at FROM bins ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query bins: %w", err)
	}
	defer rows.Close()

	var bins []domain.Bin
	for rows.Next() {
		var bin domain.Bin
		if err := rows.Scan(&bin.ID, &bin.Name, &bin.RowCount, &bin.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan bin: %w", err)
		}
		bins = append(bins, bin)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bins: %w", err)
	}
	return bins, nil
}
