package domain

import "time"

// AllocationRecord is the durable reservation of stock against one order
// line. Exactly one record exists per (OrderID, StockItemID) pair.
// Fulfilled + Unfilled = Requested, and Fulfilled equals the sum of the
// PickedLocations quantities.
type AllocationRecord struct {
	ID              string
	OrderID         string
	StockItemID     string
	Requested       int
	Fulfilled       int
	Unfilled        int
	PickedLocations []BinLocation
	Picked          bool
	PickedAt        *time.Time
	PickedBy        string
	CreatedAt       time.Time
}
