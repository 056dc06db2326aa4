package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/evade6ix/ctfinal-sub000/internal/port"
)

// ReversalService puts reserved stock back. Each record is restored and then
// deleted individually, so a failure mid-order leaves the untouched records
// in place for a rerun instead of restoring anything twice.
type ReversalService struct {
	stock  port.StockRepository
	allocs port.AllocationRepository
	cache  port.CacheRepository
	logger *zap.Logger
}

func NewReversalService(
	stock port.StockRepository,
	allocs port.AllocationRepository,
	cache port.CacheRepository,
	logger *zap.Logger,
) *ReversalService {
	return &ReversalService{stock: stock, allocs: allocs, cache: cache, logger: logger}
}

// RevertOrder restores every allocation of the order back into the stock
// ledger and deletes the records. Returns the number of records reverted;
// an order with no allocations is a no-op, not an error.
func (s *ReversalService) RevertOrder(ctx context.Context, orderID string) (int, error) {
	token, ok, err := s.cache.AcquireOrderLock(ctx, orderID)
	if err != nil {
		return 0, fmt.Errorf("lock order %s: %w", orderID, err)
	}
	if !ok {
		return 0, ErrOrderLocked
	}
	defer func() {
		if err := s.cache.ReleaseOrderLock(ctx, orderID, token); err != nil {
			s.logger.Warn("failed to release order lock", zap.String("order_id", orderID), zap.Error(err))
		}
	}()

	recs, err := s.allocs.ListByOrder(ctx, orderID)
	if err != nil {
		return 0, err
	}

	reverted := 0
	for _, rec := range recs {
		if len(rec.PickedLocations) > 0 {
			if err := s.stock.Restore(ctx, rec.StockItemID, rec.PickedLocations); err != nil {
				return reverted, fmt.Errorf("restore stock for %s: %w", rec.StockItemID, err)
			}
		}
		if err := s.allocs.Delete(ctx, orderID, rec.StockItemID); err != nil {
			return reverted, fmt.Errorf("delete allocation for %s: %w", rec.StockItemID, err)
		}
		reverted++
	}

	if reverted > 0 {
		ordersRevertedTotal.Inc()
		s.logger.Info("reverted order allocations",
			zap.String("order_id", orderID),
			zap.Int("records", reverted))
	}
	return reverted, nil
}

// RecomputeItemTotal sets one item's total to the sum of its bin locations.
// Idempotent maintenance for a total that drifted.
func (s *ReversalService) RecomputeItemTotal(ctx context.Context, itemID string) (int, error) {
	total, err := s.stock.RecomputeTotal(ctx, itemID)
	if err != nil {
		return 0, err
	}
	s.logger.Info("recomputed item total", zap.String("item_id", itemID), zap.Int("total", total))
	return total, nil
}

// ReconcileTotals scans every item and repairs any whose total drifted from
// the sum of its locations. Returns how many items were repaired.
func (s *ReversalService) ReconcileTotals(ctx context.Context) (int, error) {
	items, err := s.stock.ListItems(ctx)
	if err != nil {
		return 0, err
	}

	fixed := 0
	for _, item := range items {
		sum := 0
		for _, loc := range item.Locations {
			sum += loc.Quantity
		}
		if sum == item.TotalQuantity {
			continue
		}
		s.logger.Warn("stock total drifted from bin locations",
			zap.String("item_id", item.ID),
			zap.Int("total", item.TotalQuantity),
			zap.Int("location_sum", sum))
		if _, err := s.stock.RecomputeTotal(ctx, item.ID); err != nil {
			return fixed, fmt.Errorf("recompute %s: %w", item.ID, err)
		}
		fixed++
	}
	return fixed, nil
}
