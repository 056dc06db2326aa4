package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/evade6ix/ctfinal-sub000/internal/core/domain"
	"github.com/evade6ix/ctfinal-sub000/internal/port"
)

// How often a reserve is replanned after losing a stock race before giving up.
const maxReserveRetries = 3

// LineAllocation is the per-line view returned to the picking UI: where the
// reserved units physically sit, plus the pick workflow state.
type LineAllocation struct {
	StockItemID  string               `json:"stock_item_id"`
	Name         string               `json:"name"`
	Requested    int                  `json:"requested"`
	Fulfilled    int                  `json:"fulfilled"`
	Unfilled     int                  `json:"unfilled"`
	BinLocations []domain.BinLocation `json:"bin_locations"`
	Picked       bool                 `json:"picked"`
	PickedAt     *time.Time           `json:"picked_at,omitempty"`
	PickedBy     string               `json:"picked_by,omitempty"`
}

// AllocationService turns the allocation engine's decisions into durable,
// idempotent reservations. A line is allocated at most once: the first
// trigger to land wins, every later one gets the stored record back
// untouched.
type AllocationService struct {
	stock  port.StockRepository
	allocs port.AllocationRepository
	market port.MarketplaceClient
	cache  port.CacheRepository
	logger *zap.Logger
}

func NewAllocationService(
	stock port.StockRepository,
	allocs port.AllocationRepository,
	market port.MarketplaceClient,
	cache port.CacheRepository,
	logger *zap.Logger,
) *AllocationService {
	return &AllocationService{stock: stock, allocs: allocs, market: market, cache: cache, logger: logger}
}

// AllocationsForOrder fetches the order's lines from the marketplace,
// allocates any line not yet allocated, and returns the bin locations and
// pick state for all of them.
func (s *AllocationService) AllocationsForOrder(ctx context.Context, orderID string) ([]LineAllocation, error) {
	token, ok, err := s.cache.AcquireOrderLock(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("lock order %s: %w", orderID, err)
	}
	if !ok {
		return nil, ErrOrderLocked
	}
	defer func() {
		if err := s.cache.ReleaseOrderLock(ctx, orderID, token); err != nil {
			s.logger.Warn("failed to release order lock", zap.String("order_id", orderID), zap.Error(err))
		}
	}()

	lines, err := s.market.FetchOrderLines(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("fetch order lines: %w", err)
	}

	out := make([]LineAllocation, 0, len(lines))
	for _, line := range lines {
		rec, err := s.allocateLine(ctx, orderID, line.ProductID, line.Quantity)
		if err != nil {
			return nil, err
		}
		out = append(out, LineAllocation{
			StockItemID:  rec.StockItemID,
			Name:         line.Name,
			Requested:    rec.Requested,
			Fulfilled:    rec.Fulfilled,
			Unfilled:     rec.Unfilled,
			BinLocations: rec.PickedLocations,
			Picked:       rec.Picked,
			PickedAt:     rec.PickedAt,
			PickedBy:     rec.PickedBy,
		})
	}
	return out, nil
}

// AllocateOrder allocates every line of the order. Used by the scheduler,
// which does not need the view. Lines fail independently; the first error is
// returned after all lines have been attempted.
func (s *AllocationService) AllocateOrder(ctx context.Context, orderID string) error {
	token, ok, err := s.cache.AcquireOrderLock(ctx, orderID)
	if err != nil {
		return fmt.Errorf("lock order %s: %w", orderID, err)
	}
	if !ok {
		return ErrOrderLocked
	}
	defer func() {
		if err := s.cache.ReleaseOrderLock(ctx, orderID, token); err != nil {
			s.logger.Warn("failed to release order lock", zap.String("order_id", orderID), zap.Error(err))
		}
	}()

	lines, err := s.market.FetchOrderLines(ctx, orderID)
	if err != nil {
		return fmt.Errorf("fetch order lines: %w", err)
	}

	var firstErr error
	for _, line := range lines {
		if _, err := s.allocateLine(ctx, orderID, line.ProductID, line.Quantity); err != nil {
			s.logger.Warn("order line allocation failed",
				zap.String("order_id", orderID),
				zap.String("item_id", line.ProductID),
				zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// AllocateOrderLine allocates a single line under the order lock.
func (s *AllocationService) AllocateOrderLine(ctx context.Context, orderID, stockItemID string, requested int) (*domain.AllocationRecord, error) {
	token, ok, err := s.cache.AcquireOrderLock(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("lock order %s: %w", orderID, err)
	}
	if !ok {
		return nil, ErrOrderLocked
	}
	defer func() {
		if err := s.cache.ReleaseOrderLock(ctx, orderID, token); err != nil {
			s.logger.Warn("failed to release order lock", zap.String("order_id", orderID), zap.Error(err))
		}
	}()

	return s.allocateLine(ctx, orderID, stockItemID, requested)
}

func (s *AllocationService) allocateLine(ctx context.Context, orderID, stockItemID string, requested int) (*domain.AllocationRecord, error) {
	if requested <= 0 {
		return nil, domain.ErrInvalidQuantity
	}

	// Already allocated: return the record unchanged, no inventory mutation.
	existing, err := s.allocs.Get(ctx, orderID, stockItemID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	res, err := s.reserveForLine(ctx, orderID, stockItemID, requested)
	if err != nil {
		return nil, err
	}

	rec := domain.AllocationRecord{
		ID:              uuid.NewString(),
		OrderID:         orderID,
		StockItemID:     stockItemID,
		Requested:       requested,
		Fulfilled:       requested - res.Unfilled,
		Unfilled:        res.Unfilled,
		PickedLocations: res.Picked,
		Picked:          false,
		CreatedAt:       time.Now().UTC(),
	}

	created, err := s.allocs.CreateIfAbsent(ctx, rec)
	if err != nil {
		s.rollbackReservation(ctx, stockItemID, res.Picked)
		return nil, fmt.Errorf("persist allocation: %w", err)
	}
	if !created {
		// A concurrent trigger won the insert race. Our reservation must not
		// stand on top of theirs.
		s.rollbackReservation(ctx, stockItemID, res.Picked)
		winner, err := s.allocs.Get(ctx, orderID, stockItemID)
		if err != nil {
			return nil, err
		}
		if winner == nil {
			return nil, fmt.Errorf("allocation %s/%s vanished after insert conflict", orderID, stockItemID)
		}
		return winner, nil
	}

	allocationsCreatedTotal.Inc()
	if rec.Unfilled > 0 {
		allocationShortagesTotal.Inc()
	}
	s.logger.Info("allocated order line",
		zap.String("order_id", orderID),
		zap.String("item_id", stockItemID),
		zap.Int("requested", rec.Requested),
		zap.Int("fulfilled", rec.Fulfilled),
		zap.Int("unfilled", rec.Unfilled))
	return &rec, nil
}

// reserveForLine plans against current locations and reserves the plan,
// replanning when a concurrent allocation of the same item moved stock
// between the read and the reserve.
func (s *AllocationService) reserveForLine(ctx context.Context, orderID, stockItemID string, requested int) (domain.AllocationResult, error) {
	for attempt := 0; ; attempt++ {
		item, err := s.stock.GetItem(ctx, stockItemID)
		if err != nil {
			return domain.AllocationResult{}, err
		}
		if item == nil {
			s.logger.Warn("no stock item for order line",
				zap.String("order_id", orderID),
				zap.String("item_id", stockItemID),
				zap.Int("requested", requested))
			return domain.AllocationResult{Unfilled: requested}, nil
		}

		res := domain.Allocate(item.Locations, requested)
		if len(res.Picked) == 0 {
			return res, nil
		}

		err = s.stock.Reserve(ctx, stockItemID, item.Version, res.Picked)
		if err == nil {
			return res, nil
		}
		if !errors.Is(err, domain.ErrConflict) || attempt >= maxReserveRetries {
			return domain.AllocationResult{}, fmt.Errorf("reserve stock: %w", err)
		}
	}
}

func (s *AllocationService) rollbackReservation(ctx context.Context, stockItemID string, picked []domain.BinLocation) {
	if len(picked) == 0 {
		return
	}
	if err := s.stock.Restore(ctx, stockItemID, picked); err != nil {
		s.logger.Error("failed to roll back reservation; stock needs manual reconciliation",
			zap.String("item_id", stockItemID),
			zap.Error(err))
	}
}

// SetPicked marks an allocated line as physically retrieved. Pick state is a
// workflow flag; stock was already deducted at allocation time.
func (s *AllocationService) SetPicked(ctx context.Context, orderID, stockItemID, pickedBy string) error {
	return s.allocs.SetPicked(ctx, orderID, stockItemID, pickedBy, time.Now().UTC())
}

// ClearPicked reverts a line to unpicked.
func (s *AllocationService) ClearPicked(ctx context.Context, orderID, stockItemID string) error {
	return s.allocs.ClearPicked(ctx, orderID, stockItemID)
}

// MarkPickedThrough applies SetPicked over the given lines in order. Not
// atomic across lines; returns how many were marked before any failure.
func (s *AllocationService) MarkPickedThrough(ctx context.Context, orderID string, stockItemIDs []string, pickedBy string) (int, error) {
	for i, itemID := range stockItemIDs {
		if err := s.SetPicked(ctx, orderID, itemID, pickedBy); err != nil {
			return i, err
		}
	}
	return len(stockItemIDs), nil
}
