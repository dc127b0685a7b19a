package types

import "github.com/shopspring/decimal"

// PriceResponse is the structured result of a price lookup.
type PriceResponse struct {
	Pair  string          `json:"pair"`
	Price decimal.Decimal `json:"price"`
}

// EngineStats summarizes the order registry for the stats command.
type EngineStats struct {
	TotalOrders     int `json:"total_orders"`
	PendingOrders   int `json:"pending_orders"`
	FilledOrders    int `json:"filled_orders"`
	CancelledOrders int `json:"cancelled_orders"`
	TrackedPairs    int `json:"tracked_pairs"`
}

// SweepResult reports one limit-order sweep pass.
type SweepResult struct {
	Filled  int `json:"filled"`
	Skipped int `json:"skipped"`
	Pending int `json:"pending"`
}
