package domain

// Order is a marketplace order as reported by the external API. State is the
// marketplace's own status string; which states are eligible for allocation
// is configuration, not domain knowledge.
type Order struct {
	ID    string `json:"id"`
	State string `json:"state"`
	Buyer string `json:"buyer"`
}

// OrderLine is one requested line of a marketplace order.
type OrderLine struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
}
