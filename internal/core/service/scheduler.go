package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/evade6ix/ctfinal-sub000/internal/core/domain"
	"github.com/evade6ix/ctfinal-sub000/internal/port"
)

// SweepSummary counts one sweep's worth of orders by outcome.
type SweepSummary struct {
	Eligible  int `json:"eligible"`
	Triggered int `json:"triggered"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// Scheduler periodically pulls eligible marketplace orders and allocates any
// not yet present in the ledger. Orders fail individually; a bad order never
// aborts the sweep and stays eligible for the next one.
type Scheduler struct {
	market   port.MarketplaceClient
	cache    port.CacheRepository
	allocs   port.AllocationRepository
	alloc    *AllocationService
	reversal *ReversalService
	states   []string
	interval time.Duration
	workers  int
	logger   *zap.Logger
}

func NewScheduler(
	market port.MarketplaceClient,
	cache port.CacheRepository,
	allocs port.AllocationRepository,
	alloc *AllocationService,
	reversal *ReversalService,
	states []string,
	interval time.Duration,
	workers int,
	logger *zap.Logger,
) *Scheduler {
	if workers <= 0 {
		workers = 1
	}
	return &Scheduler{
		market:   market,
		cache:    cache,
		allocs:   allocs,
		alloc:    alloc,
		reversal: reversal,
		states:   states,
		interval: interval,
		workers:  workers,
		logger:   logger,
	}
}

// Run sweeps once immediately, then on every tick until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	if _, err := s.Sweep(ctx); err != nil {
		s.logger.Error("allocation sweep failed", zap.Error(err))
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				s.logger.Error("allocation sweep failed", zap.Error(err))
			}
		}
	}
}

// Sweep allocates every eligible order that has no ledger entry yet.
func (s *Scheduler) Sweep(ctx context.Context) (SweepSummary, error) {
	orders, err := s.eligibleOrders(ctx)
	if err != nil {
		return SweepSummary{}, err
	}

	var triggered, skipped, failed atomic.Int32
	jobs := make(chan domain.Order)
	var wg sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for order := range jobs {
				has, err := s.allocs.HasOrder(ctx, order.ID)
				if err != nil {
					failed.Add(1)
					s.logger.Warn("ledger existence check failed", zap.String("order_id", order.ID), zap.Error(err))
					continue
				}
				if has {
					skipped.Add(1)
					continue
				}
				if err := s.alloc.AllocateOrder(ctx, order.ID); err != nil {
					failed.Add(1)
					s.logger.Warn("order allocation failed", zap.String("order_id", order.ID), zap.Error(err))
					continue
				}
				triggered.Add(1)
			}
		}()
	}

	for _, order := range orders {
		jobs <- order
	}
	close(jobs)
	wg.Wait()

	summary := SweepSummary{
		Eligible:  len(orders),
		Triggered: int(triggered.Load()),
		Skipped:   int(skipped.Load()),
		Failed:    int(failed.Load()),
	}

	sweepOrdersTotal.WithLabelValues("eligible").Add(float64(summary.Eligible))
	sweepOrdersTotal.WithLabelValues("triggered").Add(float64(summary.Triggered))
	sweepOrdersTotal.WithLabelValues("skipped").Add(float64(summary.Skipped))
	sweepOrdersTotal.WithLabelValues("failed").Add(float64(summary.Failed))

	s.logger.Info("allocation sweep complete",
		zap.Int("eligible", summary.Eligible),
		zap.Int("triggered", summary.Triggered),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed))
	return summary, nil
}

// CleanupStale reverts ledger orders that are no longer in an eligible
// marketplace state (cancelled or gone). The cached listing is dropped first:
// reverting against stale data could undo live orders.
func (s *Scheduler) CleanupStale(ctx context.Context) (int, error) {
	if err := s.cache.InvalidateOrders(ctx, s.cacheKey()); err != nil {
		s.logger.Warn("failed to invalidate order cache", zap.Error(err))
	}
	orders, err := s.eligibleOrders(ctx)
	if err != nil {
		return 0, err
	}

	live := make(map[string]struct{}, len(orders))
	for _, order := range orders {
		live[order.ID] = struct{}{}
	}

	ledgerIDs, err := s.allocs.ListOrderIDs(ctx)
	if err != nil {
		return 0, err
	}

	reverted := 0
	for _, orderID := range ledgerIDs {
		if _, ok := live[orderID]; ok {
			continue
		}
		n, err := s.reversal.RevertOrder(ctx, orderID)
		if err != nil {
			s.logger.Warn("stale order reversal failed", zap.String("order_id", orderID), zap.Error(err))
			continue
		}
		if n > 0 {
			reverted++
		}
	}
	if reverted > 0 {
		s.logger.Info("cleaned up stale allocations", zap.Int("orders", reverted))
	}
	return reverted, nil
}

func (s *Scheduler) cacheKey() string {
	return strings.Join(s.states, ",")
}

func (s *Scheduler) eligibleOrders(ctx context.Context) ([]domain.Order, error) {
	key := s.cacheKey()
	if orders, ok, err := s.cache.GetOrders(ctx, key); err != nil {
		s.logger.Warn("order cache read failed", zap.Error(err))
	} else if ok {
		return orders, nil
	}

	orders, err := s.market.FetchEligibleOrders(ctx, s.states)
	if err != nil {
		return nil, fmt.Errorf("fetch eligible orders: %w", err)
	}
	if err := s.cache.SetOrders(ctx, key, orders); err != nil {
		s.logger.Warn("order cache write failed", zap.Error(err))
	}
	return orders, nil
}
