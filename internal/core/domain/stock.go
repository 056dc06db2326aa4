package domain

import "time"

// BinLocation says how many units of a stock item sit in one physical slot.
type BinLocation struct {
	BinID    string `json:"bin_id"`
	Row      int    `json:"row"`
	Quantity int    `json:"quantity"`
}

// StockItem is the inventory record for one sellable catalog entry, keyed by
// the marketplace product identifier. TotalQuantity is the authoritative
// count; Locations should sum to it, with transient drift repaired by the
// reconciliation maintenance pass.
type StockItem struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	SetName       string        `json:"set_name"`
	Condition     string        `json:"condition"`
	Foil          bool          `json:"foil"`
	PriceCents    int64         `json:"price_cents"`
	TotalQuantity int           `json:"total_quantity"`
	Version       int           `json:"-"` // optimistic locking, not part of the API
	Locations     []BinLocation `json:"locations"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// Bin is a named physical container with a fixed number of rows. RowCount is
// a capacity dimension, not a quantity cap.
type Bin struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	RowCount  int       `json:"row_count"`
	CreatedAt time.Time `json:"created_at"`
}
