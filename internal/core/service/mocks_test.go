package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/evade6ix/ctfinal-sub000/internal/core/domain"
)

// Mock StockRepository

type mockStockRepo struct {
	mu           sync.Mutex
	items        map[string]*domain.StockItem
	bins         map[string]domain.Bin
	reserveCalls int
	restoreCalls int
}

func newMockStockRepo() *mockStockRepo {
	return &mockStockRepo{
		items: make(map[string]*domain.StockItem),
		bins:  make(map[string]domain.Bin),
	}
}

func (m *mockStockRepo) seed(item domain.StockItem) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := copyStockItem(&item)
	m.items[item.ID] = copied
}

func copyStockItem(item *domain.StockItem) *domain.StockItem {
	copied := *item
	copied.Locations = append([]domain.BinLocation(nil), item.Locations...)
	return &copied
}

func (m *mockStockRepo) GetItem(ctx context.Context, itemID string) (*domain.StockItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[itemID]
	if !ok {
		return nil, nil
	}
	return copyStockItem(item), nil
}

func (m *mockStockRepo) UpsertItem(ctx context.Context, item domain.StockItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.items[item.ID]
	if !ok {
		m.items[item.ID] = copyStockItem(&item)
		return nil
	}
	existing.Name = item.Name
	existing.SetName = item.SetName
	existing.Condition = item.Condition
	existing.Foil = item.Foil
	existing.PriceCents = item.PriceCents
	return nil
}

func (m *mockStockRepo) ListItems(ctx context.Context) ([]domain.StockItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var items []domain.StockItem
	for _, item := range m.items {
		items = append(items, *copyStockItem(item))
	}
	return items, nil
}

func (m *mockStockRepo) AddStock(ctx context.Context, itemID, binID string, row, quantity int) error {
	if quantity <= 0 {
		return domain.ErrInvalidQuantity
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[itemID]
	if !ok {
		return fmt.Errorf("stock item %s: %w", itemID, domain.ErrNotFound)
	}
	for i := range item.Locations {
		if item.Locations[i].BinID == binID && item.Locations[i].Row == row {
			item.Locations[i].Quantity += quantity
			item.TotalQuantity += quantity
			item.Version++
			return nil
		}
	}
	item.Locations = append(item.Locations, domain.BinLocation{BinID: binID, Row: row, Quantity: quantity})
	item.TotalQuantity += quantity
	item.Version++
	return nil
}

func (m *mockStockRepo) RemoveLocation(ctx context.Context, itemID, binID string, row int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[itemID]
	if !ok {
		return fmt.Errorf("stock item %s: %w", itemID, domain.ErrNotFound)
	}
	for i := range item.Locations {
		if item.Locations[i].BinID == binID && item.Locations[i].Row == row {
			item.Locations = append(item.Locations[:i], item.Locations[i+1:]...)
			total := 0
			for _, loc := range item.Locations {
				total += loc.Quantity
			}
			item.TotalQuantity = total
			item.Version++
			return nil
		}
	}
	return fmt.Errorf("location %s/%s/%d: %w", itemID, binID, row, domain.ErrNotFound)
}

func (m *mockStockRepo) Reserve(ctx context.Context, itemID string, version int, deltas []domain.BinLocation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reserveCalls++

	item, ok := m.items[itemID]
	if !ok {
		return fmt.Errorf("stock item %s: %w", itemID, domain.ErrNotFound)
	}
	if item.Version != version {
		return fmt.Errorf("reserve %s: %w", itemID, domain.ErrConflict)
	}

	total := 0
	next := append([]domain.BinLocation(nil), item.Locations...)
	for _, d := range deltas {
		found := false
		for i := range next {
			if next[i].BinID == d.BinID && next[i].Row == d.Row {
				if next[i].Quantity < d.Quantity {
					return fmt.Errorf("reserve %s from %s/%d: %w", itemID, d.BinID, d.Row, domain.ErrConflict)
				}
				next[i].Quantity -= d.Quantity
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("reserve %s from %s/%d: %w", itemID, d.BinID, d.Row, domain.ErrConflict)
		}
		total += d.Quantity
	}
	if item.TotalQuantity < total {
		return fmt.Errorf("reserve %s total: %w", itemID, domain.ErrConflict)
	}

	pruned := next[:0]
	for _, loc := range next {
		if loc.Quantity > 0 {
			pruned = append(pruned, loc)
		}
	}
	item.Locations = pruned
	item.TotalQuantity -= total
	item.Version++
	return nil
}

func (m *mockStockRepo) Restore(ctx context.Context, itemID string, deltas []domain.BinLocation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.restoreCalls++

	item, ok := m.items[itemID]
	if !ok {
		item = &domain.StockItem{ID: itemID}
		m.items[itemID] = item
	}
	for _, d := range deltas {
		found := false
		for i := range item.Locations {
			if item.Locations[i].BinID == d.BinID && item.Locations[i].Row == d.Row {
				item.Locations[i].Quantity += d.Quantity
				found = true
				break
			}
		}
		if !found {
			item.Locations = append(item.Locations, domain.BinLocation{BinID: d.BinID, Row: d.Row, Quantity: d.Quantity})
		}
		item.TotalQuantity += d.Quantity
	}
	item.Version++
	return nil
}

func (m *mockStockRepo) RecomputeTotal(ctx context.Context, itemID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[itemID]
	if !ok {
		return 0, fmt.Errorf("stock item %s: %w", itemID, domain.ErrNotFound)
	}
	total := 0
	for _, loc := range item.Locations {
		total += loc.Quantity
	}
	item.TotalQuantity = total
	item.Version++
	return total, nil
}

func (m *mockStockRepo) CreateBin(ctx context.Context, bin domain.Bin) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bins[bin.ID] = bin
	return nil
}

func (m *mockStockRepo) ListBins(ctx context.Context) ([]domain.Bin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var bins []domain.Bin
	for _, bin := range m.bins {
		bins = append(bins, bin)
	}
	return bins, nil
}

// Mock AllocationRepository

type mockAllocRepo struct {
	mu       sync.Mutex
	recs     map[string]*domain.AllocationRecord
	onCreate func() // invoked before CreateIfAbsent takes effect
}

func newMockAllocRepo() *mockAllocRepo {
	return &mockAllocRepo{recs: make(map[string]*domain.AllocationRecord)}
}

func allocKey(orderID, stockItemID string) string {
	return orderID + "|" + stockItemID
}

func copyAllocation(rec *domain.AllocationRecord) *domain.AllocationRecord {
	copied := *rec
	copied.PickedLocations = append([]domain.BinLocation(nil), rec.PickedLocations...)
	if rec.PickedAt != nil {
		at := *rec.PickedAt
		copied.PickedAt = &at
	}
	return &copied
}

func (m *mockAllocRepo) Get(ctx context.Context, orderID, stockItemID string) (*domain.AllocationRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.recs[allocKey(orderID, stockItemID)]
	if !ok {
		return nil, nil
	}
	return copyAllocation(rec), nil
}

func (m *mockAllocRepo) ListByOrder(ctx context.Context, orderID string) ([]domain.AllocationRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var recs []domain.AllocationRecord
	for _, rec := range m.recs {
		if rec.OrderID == orderID {
			recs = append(recs, *copyAllocation(rec))
		}
	}
	return recs, nil
}

func (m *mockAllocRepo) ListOrderIDs(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := make(map[string]struct{})
	var ids []string
	for _, rec := range m.recs {
		if _, ok := seen[rec.OrderID]; !ok {
			seen[rec.OrderID] = struct{}{}
			ids = append(ids, rec.OrderID)
		}
	}
	return ids, nil
}

func (m *mockAllocRepo) HasOrder(ctx context.Context, orderID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range m.recs {
		if rec.OrderID == orderID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockAllocRepo) CreateIfAbsent(ctx context.Context, rec domain.AllocationRecord) (bool, error) {
	if m.onCreate != nil {
		m.onCreate()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := allocKey(rec.OrderID, rec.StockItemID)
	if _, ok := m.recs[key]; ok {
		return false, nil
	}
	m.recs[key] = copyAllocation(&rec)
	return true, nil
}

func (m *mockAllocRepo) SetPicked(ctx context.Context, orderID, stockItemID, pickedBy string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.recs[allocKey(orderID, stockItemID)]
	if !ok {
		return fmt.Errorf("allocation %s/%s: %w", orderID, stockItemID, domain.ErrNotFound)
	}
	rec.Picked = true
	rec.PickedAt = &at
	rec.PickedBy = pickedBy
	return nil
}

func (m *mockAllocRepo) ClearPicked(ctx context.Context, orderID, stockItemID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.recs[allocKey(orderID, stockItemID)]
	if !ok {
		return fmt.Errorf("allocation %s/%s: %w", orderID, stockItemID, domain.ErrNotFound)
	}
	rec.Picked = false
	rec.PickedAt = nil
	rec.PickedBy = ""
	return nil
}

func (m *mockAllocRepo) Delete(ctx context.Context, orderID, stockItemID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := allocKey(orderID, stockItemID)
	if _, ok := m.recs[key]; !ok {
		return fmt.Errorf("allocation %s/%s: %w", orderID, stockItemID, domain.ErrNotFound)
	}
	delete(m.recs, key)
	return nil
}

// Mock CacheRepository

type mockCache struct {
	mu    sync.Mutex
	locks map[string]string
	lists map[string][]domain.Order
	seq   int
}

func newMockCache() *mockCache {
	return &mockCache{
		locks: make(map[string]string),
		lists: make(map[string][]domain.Order),
	}
}

func (m *mockCache) AcquireOrderLock(ctx context.Context, orderID string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, held := m.locks[orderID]; held {
		return "", false, nil
	}
	m.seq++
	token := fmt.Sprintf("token-%d", m.seq)
	m.locks[orderID] = token
	return token, true, nil
}

func (m *mockCache) ReleaseOrderLock(ctx context.Context, orderID, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locks[orderID] == token {
		delete(m.locks, orderID)
	}
	return nil
}

func (m *mockCache) GetOrders(ctx context.Context, key string) ([]domain.Order, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	orders, ok := m.lists[key]
	if !ok {
		return nil, false, nil
	}
	return append([]domain.Order(nil), orders...), true, nil
}

func (m *mockCache) SetOrders(ctx context.Context, key string, orders []domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lists[key] = append([]domain.Order(nil), orders...)
	return nil
}

func (m *mockCache) InvalidateOrders(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.lists, key)
	return nil
}

// Mock MarketplaceClient

type mockMarketplace struct {
	mu          sync.Mutex
	orders      []domain.Order
	lines       map[string][]domain.OrderLine
	lineErrs    map[string]error
	fetchOrders int
	fetchLines  int
}

func newMockMarketplace() *mockMarketplace {
	return &mockMarketplace{
		lines:    make(map[string][]domain.OrderLine),
		lineErrs: make(map[string]error),
	}
}

func (m *mockMarketplace) FetchEligibleOrders(ctx context.Context, states []string) ([]domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetchOrders++
	return append([]domain.Order(nil), m.orders...), nil
}

func (m *mockMarketplace) FetchOrderLines(ctx context.Context, orderID string) ([]domain.OrderLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetchLines++
	if err, ok := m.lineErrs[orderID]; ok {
		return nil, err
	}
	return append([]domain.OrderLine(nil), m.lines[orderID]...), nil
}
