package domain

import "sort"

// AllocationResult is the outcome of running the allocation engine over a set
// of bin locations. Picked holds what was reserved, Remaining holds what is
// left in stock, and Unfilled is the shortfall (> 0 means insufficient stock).
type AllocationResult struct {
	Picked    []BinLocation
	Remaining []BinLocation
	Unfilled  int
}

// Allocate decides which locations to drain to satisfy requested units. It
// consumes the fullest locations first; ties break on (BinID, Row) ascending
// so the result is deterministic for a given input. A location is split when
// it holds more than is still needed.
//
// Invariants: sum(Picked) + Unfilled == requested, and
// sum(Picked) + sum(Remaining) == sum(locations). Performs no I/O.
func Allocate(locations []BinLocation, requested int) AllocationResult {
	sorted := make([]BinLocation, len(locations))
	copy(sorted, locations)
	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Quantity != b.Quantity {
			return a.Quantity > b.Quantity
		}
		if a.BinID != b.BinID {
			return a.BinID < b.BinID
		}
		return a.Row < b.Row
	})

	res := AllocationResult{}
	remaining := requested
	for _, loc := range sorted {
		switch {
		case remaining <= 0:
			res.Remaining = append(res.Remaining, loc)
		case loc.Quantity <= remaining:
			res.Picked = append(res.Picked, loc)
			remaining -= loc.Quantity
		default:
			res.Picked = append(res.Picked, BinLocation{BinID: loc.BinID, Row: loc.Row, Quantity: remaining})
			res.Remaining = append(res.Remaining, BinLocation{BinID: loc.BinID, Row: loc.Row, Quantity: loc.Quantity - remaining})
			remaining = 0
		}
	}
	res.Unfilled = remaining
	return res
}
