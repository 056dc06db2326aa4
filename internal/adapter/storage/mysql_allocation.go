package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/evade6ix/ctfinal-sub000/internal/core/domain"
)

// MySQLAllocationRepository persists allocation records. The unique key on
// (order_id, stock_item_id) is what makes concurrent first-time allocation of
// the same line safe: the insert is expressed as insert-if-absent and losers
// see zero rows affected.
type MySQLAllocationRepository struct {
	db *sql.DB
}

func NewMySQLAllocationRepository(db *sql.DB) *MySQLAllocationRepository {
	return &MySQLAllocationRepository{db: db}
}

func (m *MySQLAllocationRepository) Get(ctx context.Context, orderID, stockItemID string) (*domain.AllocationRecord, error) {
	rec, err := m.scanOne(ctx, `
		SELECT id, order_id, stock_item_id, requested, fulfilled, unfilled, picked, picked_at, picked_by, created_at
		FROM allocations WHERE order_id = ? AND stock_item_id = ?`, orderID, stockItemID)
	if err != nil || rec == nil {
		return rec, err
	}

	rec.PickedLocations, err = m.loadPickedLocations(ctx, rec.ID)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (m *MySQLAllocationRepository) scanOne(ctx context.Context, query string, args ...any) (*domain.AllocationRecord, error) {
	var rec domain.AllocationRecord
	var pickedAt sql.NullTime
	err := m.db.QueryRowContext(ctx, query, args...).Scan(
		&rec.ID, &rec.OrderID, &rec.StockItemID, &rec.Requested, &rec.Fulfilled,
		&rec.Unfilled, &rec.Picked, &pickedAt, &rec.PickedBy, &rec.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query allocation: %w", err)
	}
	if pickedAt.Valid {
		rec.PickedAt = &pickedAt.Time
	}
	return &rec, nil
}

func (m *MySQLAllocationRepository) loadPickedLocations(ctx context.Context, allocationID string) ([]domain.BinLocation, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT bin_id, row_num, quantity FROM allocation_locations
		WHERE allocation_id = ? ORDER BY bin_id, row_num`, allocationID)
	if err != nil {
		return nil, fmt.Errorf("query picked locations: %w", err)
	}
	defer rows.Close()

	var locations []domain.BinLocation
	for rows.Next() {
		var loc domain.BinLocation
		if err := rows.Scan(&loc.BinID, &loc.Row, &loc.Quantity); err != nil {
			return nil, fmt.Errorf("scan picked location: %w", err)
		}
		locations = append(locations, loc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate picked locations: %w", err)
	}
	return locations, nil
}

func (m *MySQLAllocationRepository) ListByOrder(ctx context.Context, orderID string) ([]domain.AllocationRecord, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, order_id, stock_item_id, requested, fulfilled, unfilled, picked, picked_at, picked_by, created_at
		FROM allocations WHERE order_id = ? ORDER BY stock_item_id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("query allocations: %w", err)
	}
	defer rows.Close()

	var recs []domain.AllocationRecord
	for rows.Next() {
		var rec domain.AllocationRecord
		var pickedAt sql.NullTime
		if err := rows.Scan(&rec.ID, &rec.OrderID, &rec.StockItemID, &rec.Requested, &rec.Fulfilled,
			&rec.Unfilled, &rec.Picked, &pickedAt, &rec.PickedBy, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan allocation: %w", err)
		}
		if pickedAt.Valid {
			rec.PickedAt = &pickedAt.Time
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate allocations: %w", err)
	}

	for i := range recs {
		recs[i].PickedLocations, err = m.loadPickedLocations(ctx, recs[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return recs, nil
}

func (m *MySQLAllocationRepository) ListOrderIDs(ctx context.Context) ([]string, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT DISTINCT order_id FROM allocations`)
	if err != nil {
		return nil, fmt.Errorf("query order ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan order id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order ids: %w", err)
	}
	return ids, nil
}

func (m *MySQLAllocationRepository) HasOrder(ctx context.Context, orderID string) (bool, error) {
	var exists bool
	err := m.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM allocations WHERE order_id = ?)`, orderID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("query order existence: %w", err)
	}
	return exists, nil
}

func (m *MySQLAllocationRepository) CreateIfAbsent(ctx context.Context, rec domain.AllocationRecord) (bool, error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	// id = id is a no-op when the pair already exists, so RowsAffected is 0
	// for the loser of a concurrent insert race.
	result, err := tx.ExecContext(ctx, `
		INSERT INTO allocations (id, order_id, stock_item_id, requested, fulfilled, unfilled, picked, picked_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE id = id`,
		rec.ID, rec.OrderID, rec.StockItemID, rec.Requested, rec.Fulfilled,
		rec.Unfilled, rec.Picked, rec.PickedBy, rec.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert allocation: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return false, nil
	}

	for _, loc := range rec.PickedLocations {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO allocation_locations (allocation_id, bin_id, row_num, quantity)
			VALUES (?, ?, ?, ?)`,
			rec.ID, loc.BinID, loc.Row, loc.Quantity,
		)
		if err != nil {
			return false, fmt.Errorf("insert picked location: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

func (m *MySQLAllocationRepository) SetPicked(ctx context.Context, orderID, stockItemID, pickedBy string, at time.Time) error {
	result, err := m.db.ExecContext(ctx, `
		UPDATE allocations SET picked = TRUE, picked_at = ?, picked_by = ?
		WHERE order_id = ? AND stock_item_id = ?`,
		at, pickedBy, orderID, stockItemID,
	)
	if err != nil {
		return fmt.Errorf("set picked: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		// The driver reports changed rows, so re-picking with identical values
		// (picked_at is second-precision) also lands here; only a truly
		// missing record is an error.
		var exists bool
		if err := m.db.QueryRowContext(ctx, `
			SELECT EXISTS(SELECT 1 FROM allocations WHERE order_id = ? AND stock_item_id = ?)`,
			orderID, stockItemID).Scan(&exists); err != nil {
			return fmt.Errorf("set picked: %w", err)
		}
		if !exists {
			return fmt.Errorf("allocation %s/%s: %w", orderID, stockItemID, domain.ErrNotFound)
		}
	}
	return nil
}

func (m *MySQLAllocationRepository) ClearPicked(ctx context.Context, orderID, stockItemID string) error {
	result, err := m.db.ExecContext(ctx, `
		UPDATE allocations SET picked = FALSE, picked_at = NULL, picked_by = ''
		WHERE order_id = ? AND stock_item_id = ?`,
		orderID, stockItemID,
	)
	if err != nil {
		return fmt.Errorf("clear picked: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		// The driver reports changed rows, so clearing an already-unpicked
		// record also lands here; only a truly missing record is an error.
		var exists bool
		if err := m.db.QueryRowContext(ctx, `
			SELECT EXISTS(SELECT 1 FROM allocations WHERE order_id = ? AND stock_item_id = ?)`,
			orderID, stockItemID).Scan(&exists); err != nil {
			return fmt.Errorf("clear picked: %w", err)
		}
		if !exists {
			return fmt.Errorf("allocation %s/%s: %w", orderID, stockItemID, domain.ErrNotFound)
		}
	}
	return nil
}

func (m *MySQLAllocationRepository) Delete(ctx context.Context, orderID, stockItemID string) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		DELETE al FROM allocation_locations al
		JOIN allocations a ON a.id = al.allocation_id
		WHERE a.order_id = ? AND a.stock_item_id = ?`,
		orderID, stockItemID,
	)
	if err != nil {
		return fmt.Errorf("delete picked locations: %w", err)
	}

	result, err := tx.ExecContext(ctx, `
		DELETE FROM allocations WHERE order_id = ? AND stock_item_id = ?`,
		orderID, stockItemID,
	)
	if err != nil {
		return fmt.Errorf("delete allocation: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("allocation %s/%s: %w", orderID, stockItemID, domain.ErrNotFound)
	}

	return tx.Commit()
}
