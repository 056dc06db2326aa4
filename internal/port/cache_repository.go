package port

import (
	"context"

	"github.com/evade6ix/ctfinal-sub000/internal/core/domain"
)

// CacheRepository covers the two cache concerns of the core: a TTL-bounded
// cache of marketplace order listings, and short-lived per-order locks that
// serialize allocation against reversal of the same order.
type CacheRepository interface {
	// AcquireOrderLock takes the lock for an order, returning a release
	// token and false if someone else holds it. Locks expire on their own
	// if the holder dies.
	AcquireOrderLock(ctx context.Context, orderID string) (string, bool, error)

	// ReleaseOrderLock releases the lock if token still owns it.
	ReleaseOrderLock(ctx context.Context, orderID, token string) error

	// GetOrders returns the cached order listing for key, with false when
	// the entry is absent or expired.
	GetOrders(ctx context.Context, key string) ([]domain.Order, bool, error)

	// SetOrders caches an order listing under key for the adapter's TTL.
	SetOrders(ctx context.Context, key string, orders []domain.Order) error

	// InvalidateOrders drops the cached listing for key.
	InvalidateOrders(ctx context.Context, key string) error
}
