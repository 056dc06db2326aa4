package port

import (
	"context"

	"github.com/evade6ix/ctfinal-sub000/internal/core/domain"
)

// MarketplaceClient is the read-side contract with the external marketplace
// API. Thin I/O wrapper, no invariants of its own.
type MarketplaceClient interface {
	// FetchEligibleOrders returns orders currently in any of the given states.
	FetchEligibleOrders(ctx context.Context, states []string) ([]domain.Order, error)

	// FetchOrderLines returns the requested line items of one order.
	FetchOrderLines(ctx context.Context, orderID string) ([]domain.OrderLine, error)
}
