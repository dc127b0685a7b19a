package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// All monetary amounts are fixed-point integers scaled by 10^18, carried as
// integer-valued decimals. Divisions truncate (QuoRem with zero precision).
const Decimals = 18

// Scale is the fixed-point unit: 1.0 == 10^18.
var Scale = decimal.New(1, Decimals)

// Units returns n whole currency units in fixed-point form.
func Units(n int64) decimal.Decimal {
	return decimal.New(n, Decimals)
}

type OrderSide string

const (
	SideBuy  OrderSide = "BUY"
	SideSell OrderSide = "SELL"
)

type OrderKind string

const (
	KindMarket OrderKind = "MARKET"
	KindLimit  OrderKind = "LIMIT"
)

type OrderStatus string

const (
	StatusPending   OrderStatus = "PENDING"
	StatusFilled    OrderStatus = "FILLED"
	StatusCancelled OrderStatus = "CANCELLED"
	// StatusPartial is declared for exhaustive matching but is never produced:
	// fills are all-or-nothing in the current fill path.
	StatusPartial OrderStatus = "PARTIAL"
)

// Valid reports whether s is a known side token.
func (s OrderSide) Valid() bool {
	return s == SideBuy || s == SideSell
}

// Terminal reports whether no further transition is allowed out of st.
func (st OrderStatus) Terminal() bool {
	return st == StatusFilled || st == StatusCancelled
}

// Order is a single trade intent. AmountQuote is the requested notional in
// quote units; AmountBase is derived at placement from the sizing price
// (live quote for market orders, the limit price for limit orders).
type Order struct {
	OrderID      string          `json:"order_id"`
	UserID       string          `json:"user_id"`
	ChatID       string          `json:"chat_id"`
	Pair         string          `json:"pair"`
	Side         OrderSide       `json:"side"`
	Kind         OrderKind       `json:"kind"`
	AmountQuote  decimal.Decimal `json:"amount_quote"`
	AmountBase   decimal.Decimal `json:"amount_base"`
	PriceLimit   decimal.Decimal `json:"price_limit"` // zero unless Kind == LIMIT
	Status       OrderStatus     `json:"status"`
	FilledAmount decimal.Decimal `json:"filled_amount"`
	FillPrice    decimal.Decimal `json:"fill_price"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Balance holds one user's simulated funds. First touch seeds the fixed
// endowment (1000 quote units, 0 base).
type Balance struct {
	UserID string          `json:"user_id"`
	Quote  decimal.Decimal `json:"quote"`
	Base   decimal.Decimal `json:"base"`
}

// Position is aggregated exposure per (user, pair, side). Size only grows:
// there is no closing or offsetting logic. EntryPrice is the volume-weighted
// average of contributing fill prices.
type Position struct {
	UserID     string          `json:"user_id"`
	Pair       string          `json:"pair"`
	Side       OrderSide       `json:"side"`
	Size       decimal.Decimal `json:"size"`
	EntryPrice decimal.Decimal `json:"entry_price"`
}
