package port

import (
	"context"
	"time"

	"github.com/evade6ix/ctfinal-sub000/internal/core/domain"
)

// AllocationRepository persists allocation records, one per
// (orderID, stockItemID) pair, enforced by a unique constraint.
type AllocationRepository interface {
	// Get returns the record for the pair, or nil if absent.
	Get(ctx context.Context, orderID, stockItemID string) (*domain.AllocationRecord, error)

	// ListByOrder returns all records for an order.
	ListByOrder(ctx context.Context, orderID string) ([]domain.AllocationRecord, error)

	// ListOrderIDs returns the distinct order IDs present in the ledger.
	ListOrderIDs(ctx context.Context) ([]string, error)

	// HasOrder reports whether any record exists for the order. Existence
	// probe only, no row load.
	HasOrder(ctx context.Context, orderID string) (bool, error)

	// CreateIfAbsent inserts the record unless one already exists for its
	// (orderID, stockItemID) pair. Returns false, with no write, when the
	// pair was already present.
	CreateIfAbsent(ctx context.Context, rec domain.AllocationRecord) (bool, error)

	// SetPicked marks the record as physically picked. Pick state only;
	// stock quantities were already deducted at allocation time.
	SetPicked(ctx context.Context, orderID, stockItemID, pickedBy string, at time.Time) error

	// ClearPicked reverts the record to unpicked.
	ClearPicked(ctx context.Context, orderID, stockItemID string) error

	// Delete removes one record, returning domain.ErrNotFound if absent.
	Delete(ctx context.Context, orderID, stockItemID string) error
}
