package engine

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/Daddada866/TrenchBot/internal/ledger"
	"github.com/Daddada866/TrenchBot/internal/metrics"
	"github.com/Daddada866/TrenchBot/internal/pricing"
	"github.com/Daddada866/TrenchBot/internal/ratelimit"
	"github.com/Daddada866/TrenchBot/internal/types"
)

// Config carries the engine's tunables.
type Config struct {
	DefaultPair      string
	MaxOrdersPerUser int
	MaxSlippageBps   int64
}

// DefaultConfig returns the standard production settings.
func DefaultConfig() Config {
	return Config{
		DefaultPair:      "TRCH/ETH",
		MaxOrdersPerUser: 50,
		MaxSlippageBps:   500,
	}
}

// Engine owns the order registry and the pending-limit working set. One lock
// guards both plus the id counter; fills run under it so the Pending-status
// guard and the ledger update cannot interleave with a concurrent cancel or
// sweep.
type Engine struct {
	mu      sync.RWMutex
	orders  map[string]*types.Order
	ordered []*types.Order // insertion order, for stable listings
	pending map[string]*types.Order
	counter uint64

	prices *pricing.Source
	ledger *ledger.Ledger
	gate   ratelimit.Gate
	cfg    Config
}

// New creates an engine over the given collaborators. The rate gate is
// consulted before every mutating command; pass ratelimit.Unlimited to
// disable gating (the transport may gate upstream instead).
func New(prices *pricing.Source, ldg *ledger.Ledger, gate ratelimit.Gate, cfg Config) *Engine {
	if cfg.MaxOrdersPerUser <= 0 {
		cfg.MaxOrdersPerUser = 50
	}
	return &Engine{
		orders:  make(map[string]*types.Order),
		pending: make(map[string]*types.Order),
		prices:  prices,
		ledger:  ldg,
		gate:    gate,
		cfg:     cfg,
	}
}

// Prices exposes the quote table for read-only collaborators.
func (e *Engine) Prices() *pricing.Source { return e.prices }

// Ledger exposes the bookkeeping store for read-only collaborators.
func (e *Engine) Ledger() *ledger.Ledger { return e.ledger }

// Place validates and registers a new order. Preconditions are checked in a
// fixed sequence, first failure wins, and nothing mutates until all pass:
// rate gate, pair existence, pending-order cap, positive amounts, then funds
// (market orders only; limit orders are funded at trigger time). Market
// orders fill synchronously before returning.
func (e *Engine) Place(userID, chatID, pair string, side types.OrderSide, kind types.OrderKind, amountQuote, priceLimit decimal.Decimal) (types.Order, error) {
	if !e.gate.Allow(userID) {
		return types.Order{}, types.ErrRateLimitExceeded
	}

	if !e.prices.Has(pair) {
		return types.Order{}, types.ErrInvalidPair
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.pendingCountLocked(userID) >= e.cfg.MaxOrdersPerUser {
		return types.Order{}, types.ErrMaxOrdersExceeded
	}

	if !amountQuote.IsPositive() {
		return types.Order{}, types.ErrZeroAmount
	}
	if kind == types.KindLimit && !priceLimit.IsPositive() {
		return types.Order{}, types.ErrZeroAmount
	}

	// Sizing price: live quote for market orders, the trigger price for
	// limit orders.
	sizingPrice := priceLimit
	if kind == types.KindMarket {
		quote, err := e.prices.Get(pair)
		if err != nil {
			return types.Order{}, err
		}
		sizingPrice = quote
	}
	amountBase, _ := amountQuote.Mul(types.Scale).QuoRem(sizingPrice, 0)

	if kind == types.KindMarket {
		if err := e.ledger.CheckFunds(userID, side, amountQuote, amountBase); err != nil {
			return types.Order{}, err
		}
	}

	e.counter++
	now := time.Now()
	order := &types.Order{
		OrderID:     fmt.Sprintf("TRCH-%d", e.counter),
		UserID:      userID,
		ChatID:      chatID,
		Pair:        pair,
		Side:        side,
		Kind:        kind,
		AmountQuote: amountQuote,
		AmountBase:  amountBase,
		Status:      types.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if kind == types.KindLimit {
		order.PriceLimit = priceLimit
	}

	e.orders[order.OrderID] = order
	e.ordered = append(e.ordered, order)
	metrics.OrdersPlaced.WithLabelValues(string(side), string(kind)).Inc()

	logger := log.With().
		Str("order_id", order.OrderID).
		Str("user_id", userID).
		Str("pair", pair).
		Str("side", string(side)).
		Str("kind", string(kind)).
		Str("amount_quote", amountQuote.String()).
		Logger()
	logger.Info().Msg("order placed")

	switch kind {
	case types.KindMarket:
		if err := e.fillLocked(order); err != nil {
			// Validation already passed; a fill failure here means the quote
			// table lost the pair between checks, which Set never does.
			logger.Error().Err(err).Msg("synchronous fill failed")
			return *order, err
		}
	case types.KindLimit:
		e.pending[order.OrderID] = order
	}

	return *order, nil
}

// Cancel transitions a Pending order to Cancelled. Terminal states reject
// with their own error kinds so callers can tell a lost race from a bad id.
func (e *Engine) Cancel(userID, orderID string) (types.Order, error) {
	if !e.gate.Allow(userID) {
		return types.Order{}, types.ErrRateLimitExceeded
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	order, ok := e.orders[orderID]
	if !ok {
		return types.Order{}, types.ErrOrderNotFound
	}
	if order.UserID != userID {
		return types.Order{}, types.ErrNotAuthorized
	}
	switch order.Status {
	case types.StatusFilled:
		return types.Order{}, types.ErrOrderAlreadyFilled
	case types.StatusCancelled:
		return types.Order{}, types.ErrOrderAlreadyCancelled
	}

	order.Status = types.StatusCancelled
	order.UpdatedAt = time.Now()
	delete(e.pending, orderID)
	metrics.OrdersCancelled.Inc()

	log.Info().
		Str("order_id", orderID).
		Str("user_id", userID).
		Msg("order cancelled")

	return *order, nil
}

// Orders lists a user's orders newest first; ties keep insertion order. An
// empty statusFilter returns everything.
func (e *Engine) Orders(userID string, statusFilter types.OrderStatus) []types.Order {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var out []types.Order
	for _, order := range e.ordered {
		if order.UserID != userID {
			continue
		}
		if statusFilter != "" && order.Status != statusFilter {
			continue
		}
		out = append(out, *order)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Order returns one order by id, scoped to its owner.
func (e *Engine) Order(userID, orderID string) (types.Order, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	order, ok := e.orders[orderID]
	if !ok {
		return types.Order{}, types.ErrOrderNotFound
	}
	if order.UserID != userID {
		return types.Order{}, types.ErrNotAuthorized
	}
	return *order, nil
}

// Stats counts the registry by status.
func (e *Engine) Stats() types.EngineStats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	stats := types.EngineStats{
		TotalOrders:  len(e.ordered),
		TrackedPairs: len(e.prices.Pairs()),
	}
	for _, order := range e.ordered {
		switch order.Status {
		case types.StatusPending:
			stats.PendingOrders++
		case types.StatusFilled:
			stats.FilledOrders++
		case types.StatusCancelled:
			stats.CancelledOrders++
		}
	}
	return stats
}

// SweepLimitOrders runs one pass over the pending-limit working set. The
// trigger check quotes the configured default pair for every order, and a
// triggered order fills at its pair's current market quote rather than at
// priceLimit. Fills are skipped (and the order stays Pending) when funds ran
// out or the execution price drifted beyond the slippage tolerance.
func (e *Engine) SweepLimitOrders() types.SweepResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	var result types.SweepResult

	marketPrice, err := e.prices.Get(e.cfg.DefaultPair)
	if err != nil {
		log.Error().Err(err).Str("pair", e.cfg.DefaultPair).Msg("sweep: default pair has no quote")
		result.Pending = len(e.pending)
		return result
	}

	for id, order := range e.pending {
		if order.Status != types.StatusPending {
			// Defensive: terminal orders must never sit in the working set.
			delete(e.pending, id)
			continue
		}

		// Orders reconstructed from a snapshot carry PriceLimit zero (the
		// export drops it): such a sell triggers on any market price and a
		// buy never triggers, with the slippage guard inert for both.
		triggered := false
		switch order.Side {
		case types.SideBuy:
			triggered = marketPrice.LessThanOrEqual(order.PriceLimit)
		case types.SideSell:
			triggered = marketPrice.GreaterThanOrEqual(order.PriceLimit)
		}
		if !triggered {
			continue
		}

		fillPrice, err := e.prices.Get(order.Pair)
		if err != nil {
			result.Skipped++
			continue
		}

		if exceedsSlippage(fillPrice, order.PriceLimit, e.cfg.MaxSlippageBps) {
			log.Warn().
				Str("order_id", id).
				Str("fill_price", fillPrice.String()).
				Str("price_limit", order.PriceLimit.String()).
				Msg("sweep: fill price beyond slippage tolerance, order stays pending")
			result.Skipped++
			continue
		}

		if err := e.ledger.CheckFunds(order.UserID, order.Side, order.AmountQuote, order.AmountBase); err != nil {
			log.Warn().
				Str("order_id", id).
				Str("user_id", order.UserID).
				Msg("sweep: insufficient funds, order stays pending")
			result.Skipped++
			continue
		}

		if err := e.fillLocked(order); err != nil {
			result.Skipped++
			continue
		}
		delete(e.pending, id)
		result.Filled++
	}

	result.Pending = len(e.pending)
	metrics.SweepRuns.Inc()
	metrics.SweepFills.Add(float64(result.Filled))

	if result.Filled > 0 || result.Skipped > 0 {
		log.Info().
			Int("filled", result.Filled).
			Int("skipped", result.Skipped).
			Int("still_pending", result.Pending).
			Msg("limit order sweep completed")
	}
	return result
}

// fillLocked executes the order at its pair's current quote. No-op for
// non-Pending orders: a fill must never double-apply, and this guard runs
// under the same lock as every status transition. Caller holds e.mu.
func (e *Engine) fillLocked(order *types.Order) error {
	if order.Status != types.StatusPending {
		return nil
	}

	price, err := e.prices.Get(order.Pair)
	if err != nil {
		return err
	}

	order.Status = types.StatusFilled
	order.FilledAmount = order.AmountBase
	order.FillPrice = price
	order.UpdatedAt = time.Now()

	e.ledger.ApplyFill(order, price)
	metrics.OrdersFilled.WithLabelValues(string(order.Side)).Inc()

	log.Info().
		Str("order_id", order.OrderID).
		Str("user_id", order.UserID).
		Str("pair", order.Pair).
		Str("fill_price", price.String()).
		Str("filled_amount", order.FilledAmount.String()).
		Msg("order filled")

	return nil
}

// exceedsSlippage reports whether price deviates from reference by more than
// maxBps basis points. Integer arithmetic only: |price-ref| * 10000 > ref * maxBps.
func exceedsSlippage(price, reference decimal.Decimal, maxBps int64) bool {
	if maxBps <= 0 || !reference.IsPositive() {
		return false
	}
	diff := price.Sub(reference).Abs()
	return diff.Mul(decimal.NewFromInt(10000)).GreaterThan(reference.Mul(decimal.NewFromInt(maxBps)))
}

func (e *Engine) pendingCountLocked(userID string) int {
	count := 0
	for _, order := range e.ordered {
		if order.UserID == userID && order.Status == types.StatusPending {
			count++
		}
	}
	return count
}

// AllOrders copies the registry in insertion order, for snapshot export.
func (e *Engine) AllOrders() []types.Order {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]types.Order, 0, len(e.ordered))
	for _, order := range e.ordered {
		out = append(out, *order)
	}
	return out
}

// Counter returns the current id-counter value, for snapshot export.
func (e *Engine) Counter() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.counter
}

// RestoreAll replaces the registry, working set, counter, and ledger state in
// one critical section. Orders arrive in insertion order; any Pending order
// re-enters the pending-limit working set. The ledger swap happens under the
// engine lock (the same engine-then-ledger order fills take), so a concurrent
// sweep or place can never fill against the old ledger after the new registry
// is visible. Used by snapshot import after the document has fully decoded.
func (e *Engine) RestoreAll(orders []types.Order, counter uint64, balances map[string]types.Balance, positions map[string][]types.Position) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.orders = make(map[string]*types.Order, len(orders))
	e.ordered = make([]*types.Order, 0, len(orders))
	e.pending = make(map[string]*types.Order)
	for i := range orders {
		order := orders[i]
		e.orders[order.OrderID] = &order
		e.ordered = append(e.ordered, &order)
		if order.Status == types.StatusPending {
			e.pending[order.OrderID] = &order
		}
	}
	e.counter = counter

	e.ledger.Restore(balances, positions)
}
