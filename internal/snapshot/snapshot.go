package snapshot

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/Daddada866/TrenchBot/internal/engine"
	"github.com/Daddada866/TrenchBot/internal/types"
)

// Document is the persistence contract: a plain structured snapshot of the
// engine and ledger. The export is deliberately lossy: chat ids, limit
// prices, and fill figures are dropped, and reimported orders come back as
// market-kind. It is a best-effort state transfer, not a transaction log.
type Document struct {
	Orders         []OrderRecord               `json:"orders"`
	Balances       map[string]BalanceRecord    `json:"balances"`
	Positions      map[string][]PositionRecord `json:"positions"`
	OrderIDCounter uint64                      `json:"orderIdCounter"`
}

type OrderRecord struct {
	OrderID     string          `json:"order_id"`
	UserID      string          `json:"user_id"`
	Pair        string          `json:"pair"`
	Side        string          `json:"side"`
	Status      string          `json:"status"`
	AmountQuote decimal.Decimal `json:"amount_quote"`
	AmountBase  decimal.Decimal `json:"amount_base"`
	CreatedAt   time.Time       `json:"created_at"`
}

type BalanceRecord struct {
	Quote decimal.Decimal `json:"quote"`
	Base  decimal.Decimal `json:"base"`
}

type PositionRecord struct {
	Pair       string          `json:"pair"`
	Side       string          `json:"side"`
	Size       decimal.Decimal `json:"size"`
	EntryPrice decimal.Decimal `json:"entry_price"`
}

// Codec serializes and restores engine+ledger state.
type Codec struct {
	engine *engine.Engine
}

func NewCodec(e *engine.Engine) *Codec {
	return &Codec{engine: e}
}

// Export captures all orders, balances, positions (zero-size included), and
// the id counter.
func (c *Codec) Export() *Document {
	doc := &Document{
		Balances:       make(map[string]BalanceRecord),
		Positions:      make(map[string][]PositionRecord),
		OrderIDCounter: c.engine.Counter(),
	}

	for _, order := range c.engine.AllOrders() {
		doc.Orders = append(doc.Orders, OrderRecord{
			OrderID:     order.OrderID,
			UserID:      order.UserID,
			Pair:        order.Pair,
			Side:        string(order.Side),
			Status:      string(order.Status),
			AmountQuote: order.AmountQuote,
			AmountBase:  order.AmountBase,
			CreatedAt:   order.CreatedAt,
		})
	}

	for userID, balance := range c.engine.Ledger().AllBalances() {
		doc.Balances[userID] = BalanceRecord{Quote: balance.Quote, Base: balance.Base}
	}

	for userID, positions := range c.engine.Ledger().AllPositions() {
		records := make([]PositionRecord, 0, len(positions))
		for _, pos := range positions {
			records = append(records, PositionRecord{
				Pair:       pos.Pair,
				Side:       string(pos.Side),
				Size:       pos.Size,
				EntryPrice: pos.EntryPrice,
			})
		}
		doc.Positions[userID] = records
	}

	log.Info().
		Int("orders", len(doc.Orders)).
		Int("balances", len(doc.Balances)).
		Uint64("counter", doc.OrderIDCounter).
		Msg("state exported")

	return doc
}

// Import validates the whole document first, then replaces engine and ledger
// state in one critical section, so a concurrent sweep or placement observes
// either the old state or the new, never a mix. A validation failure leaves
// prior state untouched. Reconstructed
// orders are market-kind with no price limit (the export dropped both); any
// Pending order re-enters the pending-limit working set.
func (c *Codec) Import(doc *Document) error {
	orders := make([]types.Order, 0, len(doc.Orders))
	for i, record := range doc.Orders {
		order, err := record.toOrder()
		if err != nil {
			return fmt.Errorf("order %d: %w", i, err)
		}
		orders = append(orders, order)
	}

	balances := make(map[string]types.Balance, len(doc.Balances))
	for userID, record := range doc.Balances {
		if userID == "" {
			return fmt.Errorf("balance with empty user id: %w", types.ErrBadArgument)
		}
		balances[userID] = types.Balance{UserID: userID, Quote: record.Quote, Base: record.Base}
	}

	positions := make(map[string][]types.Position, len(doc.Positions))
	for userID, records := range doc.Positions {
		list := make([]types.Position, 0, len(records))
		for i, record := range records {
			side := types.OrderSide(record.Side)
			if !side.Valid() {
				return fmt.Errorf("position %d for %s: invalid side %q: %w", i, userID, record.Side, types.ErrBadArgument)
			}
			list = append(list, types.Position{
				UserID:     userID,
				Pair:       record.Pair,
				Side:       side,
				Size:       record.Size,
				EntryPrice: record.EntryPrice,
			})
		}
		positions[userID] = list
	}

	c.engine.RestoreAll(orders, doc.OrderIDCounter, balances, positions)

	log.Info().
		Int("orders", len(orders)).
		Int("balances", len(balances)).
		Uint64("counter", doc.OrderIDCounter).
		Msg("state imported")

	return nil
}

func (r OrderRecord) toOrder() (types.Order, error) {
	if r.OrderID == "" {
		return types.Order{}, fmt.Errorf("empty order id: %w", types.ErrBadArgument)
	}
	side := types.OrderSide(r.Side)
	if !side.Valid() {
		return types.Order{}, fmt.Errorf("invalid side %q: %w", r.Side, types.ErrBadArgument)
	}
	status := types.OrderStatus(r.Status)
	switch status {
	case types.StatusPending, types.StatusFilled, types.StatusCancelled, types.StatusPartial:
	default:
		return types.Order{}, fmt.Errorf("invalid status %q: %w", r.Status, types.ErrBadArgument)
	}

	return types.Order{
		OrderID:     r.OrderID,
		UserID:      r.UserID,
		Pair:        r.Pair,
		Side:        side,
		Kind:        types.KindMarket,
		AmountQuote: r.AmountQuote,
		AmountBase:  r.AmountBase,
		Status:      status,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.CreatedAt,
	}, nil
}

// MarshalDocument encodes doc as the on-disk JSON body.
func MarshalDocument(doc *Document) ([]byte, error) {
	return json.Marshal(doc)
}

// UnmarshalDocument decodes an on-disk JSON body.
func UnmarshalDocument(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("malformed snapshot document: %w", err)
	}
	return &doc, nil
}
