package port

import (
	"context"

	"github.com/evade6ix/ctfinal-sub000/internal/core/domain"
)

// StockRepository is the durable stock ledger: one record per catalog entry
// with its physical bin locations. All quantity mutations are atomic per
// item; an operation either applies fully or returns an error.
type StockRepository interface {
	// GetItem returns the item with its locations, or nil if absent.
	GetItem(ctx context.Context, itemID string) (*domain.StockItem, error)

	// UpsertItem creates the item row or refreshes its display metadata.
	// Quantities and version are never touched here.
	UpsertItem(ctx context.Context, item domain.StockItem) error

	// ListItems returns all items with their locations.
	ListItems(ctx context.Context) ([]domain.StockItem, error)

	// AddStock increases a (bin, row) location and the item total.
	AddStock(ctx context.Context, itemID, binID string, row, quantity int) error

	// RemoveLocation deletes a location and recomputes the item total from
	// the remaining locations. Manual correction, not allocation.
	RemoveLocation(ctx context.Context, itemID, binID string, row int) error

	// Reserve atomically decrements the named locations and the item total.
	// version is the item version observed by the caller; a stale version or
	// a decrement that would go negative returns domain.ErrConflict with
	// nothing applied.
	Reserve(ctx context.Context, itemID string, version int, deltas []domain.BinLocation) error

	// Restore is the inverse of Reserve: increments the named locations
	// (creating them if absent) and the item total.
	Restore(ctx context.Context, itemID string, deltas []domain.BinLocation) error

	// RecomputeTotal sets the item total to the sum of its locations and
	// returns the new total.
	RecomputeTotal(ctx context.Context, itemID string) (int, error)

	// CreateBin registers a physical bin.
	CreateBin(ctx context.Context, bin domain.Bin) error

	// ListBins returns all bins ordered by name.
	ListBins(ctx context.Context) ([]domain.Bin, error)
}
