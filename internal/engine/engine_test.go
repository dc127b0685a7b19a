package engine

import (
	"fmt"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Daddada866/TrenchBot/internal/ledger"
	"github.com/Daddada866/TrenchBot/internal/pricing"
	"github.com/Daddada866/TrenchBot/internal/ratelimit"
	"github.com/Daddada866/TrenchBot/internal/types"
)

// deniedGate rejects everything, for precondition-order tests.
type deniedGate struct{}

func (deniedGate) Allow(string) bool { return false }

func newTestEngine(t *testing.T) *Engine {
	t.Helper()

	prices := pricing.NewSource()
	prices.Set("A/B", decimal.New(2, 18))

	return New(prices, ledger.New(), ratelimit.Unlimited{}, Config{
		DefaultPair:      "A/B",
		MaxOrdersPerUser: 50,
		MaxSlippageBps:   500,
	})
}

func TestMarketBuyScenario(t *testing.T) {
	e := newTestEngine(t)

	order, err := e.Place("u1", "chat1", "A/B", types.SideBuy, types.KindMarket, types.Units(10), decimal.Zero)
	require.NoError(t, err)

	assert.Equal(t, types.StatusFilled, order.Status)
	assert.True(t, order.AmountBase.Equal(types.Units(5)), "amount_base=%s", order.AmountBase)
	assert.True(t, order.FilledAmount.Equal(types.Units(5)))
	assert.True(t, order.FillPrice.Equal(decimal.New(2, 18)))

	balance := e.Ledger().GetOrCreateBalance("u1")
	assert.True(t, balance.Quote.Equal(types.Units(990)), "quote=%s", balance.Quote)
	assert.True(t, balance.Base.Equal(types.Units(5)), "base=%s", balance.Base)

	positions := e.Ledger().Positions("u1")
	require.Len(t, positions, 1)
	assert.True(t, positions[0].Size.Equal(types.Units(5)))
	assert.True(t, positions[0].EntryPrice.Equal(decimal.New(2, 18)))
}

func TestLimitSweepScenario(t *testing.T) {
	e := newTestEngine(t)

	// Acquire base currency first so the sell is funded at trigger time.
	_, err := e.Place("u1", "chat1", "A/B", types.SideBuy, types.KindMarket, types.Units(10), decimal.Zero)
	require.NoError(t, err)

	order, err := e.Place("u1", "chat1", "A/B", types.SideSell, types.KindLimit, types.Units(6), decimal.New(3, 18))
	require.NoError(t, err)
	assert.Equal(t, types.StatusPending, order.Status)
	// Limit orders size by the trigger price: 6 / 3.0 = 2 base.
	assert.True(t, order.AmountBase.Equal(types.Units(2)))

	// Market below the limit: nothing triggers.
	result := e.SweepLimitOrders()
	assert.Equal(t, 0, result.Filled)
	assert.Equal(t, 1, result.Pending)

	// Market reaches the limit: the order fills at the current quote.
	e.Prices().Set("A/B", decimal.New(3, 18))
	result = e.SweepLimitOrders()
	assert.Equal(t, 1, result.Filled)
	assert.Equal(t, 0, result.Pending)

	filled, err := e.Order("u1", order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusFilled, filled.Status)
	assert.True(t, filled.FillPrice.Equal(decimal.New(3, 18)))
}

func TestPreconditionOrder(t *testing.T) {
	prices := pricing.NewSource()
	gated := New(prices, ledger.New(), deniedGate{}, DefaultConfig())

	// Rate gate fires before anything else, even for garbage input.
	_, err := gated.Place("u1", "", "NOPE/X", types.SideBuy, types.KindMarket, decimal.Zero, decimal.Zero)
	assert.ErrorIs(t, err, types.ErrRateLimitExceeded)

	e := newTestEngine(t)

	// Unknown pair beats zero amount.
	_, err = e.Place("u1", "", "NOPE/X", types.SideBuy, types.KindMarket, decimal.Zero, decimal.Zero)
	assert.ErrorIs(t, err, types.ErrInvalidPair)

	// Pending-order cap beats zero amount.
	for i := 0; i < 50; i++ {
		_, err := e.Place("u1", "", "A/B", types.SideBuy, types.KindLimit, types.Units(1), decimal.New(1, 18))
		require.NoError(t, err)
	}
	_, err = e.Place("u1", "", "A/B", types.SideBuy, types.KindMarket, decimal.Zero, decimal.Zero)
	assert.ErrorIs(t, err, types.ErrMaxOrdersExceeded)
}

func TestZeroAmountRejected(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.Place("u1", "", "A/B", types.SideBuy, types.KindMarket, decimal.Zero, decimal.Zero)
	assert.ErrorIs(t, err, types.ErrZeroAmount)

	// Limit orders additionally need a positive trigger price.
	_, err = e.Place("u1", "", "A/B", types.SideBuy, types.KindLimit, types.Units(1), decimal.Zero)
	assert.ErrorIs(t, err, types.ErrZeroAmount)
}

func TestMaxOrdersGate(t *testing.T) {
	e := newTestEngine(t)

	var last types.Order
	for i := 0; i < 50; i++ {
		order, err := e.Place("u1", "", "A/B", types.SideBuy, types.KindLimit, types.Units(1), decimal.New(1, 18))
		require.NoError(t, err)
		last = order
	}

	_, err := e.Place("u1", "", "A/B", types.SideBuy, types.KindLimit, types.Units(1), decimal.New(1, 18))
	assert.ErrorIs(t, err, types.ErrMaxOrdersExceeded)

	// Cancelling one frees a slot.
	_, err = e.Cancel("u1", last.OrderID)
	require.NoError(t, err)
	_, err = e.Place("u1", "", "A/B", types.SideBuy, types.KindLimit, types.Units(1), decimal.New(1, 18))
	assert.NoError(t, err)

	// The cap is per user.
	_, err = e.Place("u2", "", "A/B", types.SideBuy, types.KindLimit, types.Units(1), decimal.New(1, 18))
	assert.NoError(t, err)
}

func TestCancelFillMutualExclusion(t *testing.T) {
	e := newTestEngine(t)

	// Filled orders cannot be cancelled.
	filled, err := e.Place("u1", "", "A/B", types.SideBuy, types.KindMarket, types.Units(10), decimal.Zero)
	require.NoError(t, err)
	_, err = e.Cancel("u1", filled.OrderID)
	assert.ErrorIs(t, err, types.ErrOrderAlreadyFilled)

	// Cancelled orders cannot fill, even when the trigger condition holds.
	limit, err := e.Place("u1", "", "A/B", types.SideSell, types.KindLimit, types.Units(2), decimal.New(1, 18))
	require.NoError(t, err)
	_, err = e.Cancel("u1", limit.OrderID)
	require.NoError(t, err)

	result := e.SweepLimitOrders()
	assert.Equal(t, 0, result.Filled)

	got, err := e.Order("u1", limit.OrderID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusCancelled, got.Status)

	_, err = e.Cancel("u1", limit.OrderID)
	assert.ErrorIs(t, err, types.ErrOrderAlreadyCancelled)
}

func TestCancelAuthorization(t *testing.T) {
	e := newTestEngine(t)

	order, err := e.Place("u1", "", "A/B", types.SideBuy, types.KindLimit, types.Units(1), decimal.New(1, 18))
	require.NoError(t, err)

	_, err = e.Cancel("u1", "TRCH-999")
	assert.ErrorIs(t, err, types.ErrOrderNotFound)

	_, err = e.Cancel("u2", order.OrderID)
	assert.ErrorIs(t, err, types.ErrNotAuthorized)
}

func TestFillIsIdempotent(t *testing.T) {
	e := newTestEngine(t)

	order, err := e.Place("u1", "", "A/B", types.SideBuy, types.KindMarket, types.Units(10), decimal.Zero)
	require.NoError(t, err)

	// A second fill attempt must be a no-op: same terminal fields, no double
	// balance application.
	e.mu.Lock()
	err = e.fillLocked(e.orders[order.OrderID])
	e.mu.Unlock()
	require.NoError(t, err)

	got, err := e.Order("u1", order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusFilled, got.Status)
	assert.True(t, got.FilledAmount.Equal(types.Units(5)))

	balance := e.Ledger().GetOrCreateBalance("u1")
	assert.True(t, balance.Quote.Equal(types.Units(990)))
}

func TestOrdersNewestFirst(t *testing.T) {
	e := newTestEngine(t)

	for i := 0; i < 3; i++ {
		_, err := e.Place("u1", "", "A/B", types.SideBuy, types.KindLimit, types.Units(1), decimal.New(1, 18))
		require.NoError(t, err)
	}

	orders := e.Orders("u1", "")
	require.Len(t, orders, 3)
	for i := 0; i < len(orders)-1; i++ {
		assert.False(t, orders[i].CreatedAt.Before(orders[i+1].CreatedAt))
	}

	pending := e.Orders("u1", types.StatusPending)
	assert.Len(t, pending, 3)
	filled := e.Orders("u1", types.StatusFilled)
	assert.Empty(t, filled)
}

func TestMarketOrderInsufficientFunds(t *testing.T) {
	e := newTestEngine(t)

	// Endowment is 1000 quote; a 2000 buy must be rejected before any state
	// changes.
	_, err := e.Place("u1", "", "A/B", types.SideBuy, types.KindMarket, types.Units(2000), decimal.Zero)
	assert.ErrorIs(t, err, types.ErrInsufficientBalance)
	assert.Equal(t, 0, e.Stats().TotalOrders)

	// Selling with no base holdings is equally rejected.
	_, err = e.Place("u1", "", "A/B", types.SideSell, types.KindMarket, types.Units(10), decimal.Zero)
	assert.ErrorIs(t, err, types.ErrInsufficientBalance)
}

func TestSweepSkipsUnfundedOrder(t *testing.T) {
	e := newTestEngine(t)

	// Limit sell with no base holdings: triggers but stays Pending.
	order, err := e.Place("u1", "", "A/B", types.SideSell, types.KindLimit, types.Units(2), decimal.New(2, 18))
	require.NoError(t, err)

	result := e.SweepLimitOrders()
	assert.Equal(t, 0, result.Filled)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 1, result.Pending)

	got, err := e.Order("u1", order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusPending, got.Status)
}

func TestSweepSkipsExcessiveSlippage(t *testing.T) {
	e := newTestEngine(t)

	// Buy limit at 3.0 with the market at 2.0: triggered (market <= limit),
	// but filling at 2.0 would deviate ~3333 bps from the trigger price.
	order, err := e.Place("u1", "", "A/B", types.SideBuy, types.KindLimit, types.Units(6), decimal.New(3, 18))
	require.NoError(t, err)

	result := e.SweepLimitOrders()
	assert.Equal(t, 0, result.Filled)
	assert.Equal(t, 1, result.Skipped)

	// Within tolerance the order fills: 2.99 vs 3.0 is ~33 bps.
	e.Prices().Set("A/B", decimal.New(299, 16))
	result = e.SweepLimitOrders()
	assert.Equal(t, 1, result.Filled)

	got, err := e.Order("u1", order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusFilled, got.Status)
	assert.True(t, got.FillPrice.Equal(decimal.New(299, 16)))
}

func TestStats(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.Place("u1", "", "A/B", types.SideBuy, types.KindMarket, types.Units(10), decimal.Zero)
	require.NoError(t, err)
	limit, err := e.Place("u1", "", "A/B", types.SideBuy, types.KindLimit, types.Units(1), decimal.New(1, 18))
	require.NoError(t, err)
	_, err = e.Cancel("u1", limit.OrderID)
	require.NoError(t, err)
	_, err = e.Place("u1", "", "A/B", types.SideBuy, types.KindLimit, types.Units(1), decimal.New(1, 18))
	require.NoError(t, err)

	stats := e.Stats()
	assert.Equal(t, 3, stats.TotalOrders)
	assert.Equal(t, 1, stats.PendingOrders)
	assert.Equal(t, 1, stats.FilledOrders)
	assert.Equal(t, 1, stats.CancelledOrders)
	assert.Equal(t, 4, stats.TrackedPairs) // three seeded pairs plus A/B
}

func TestConcurrentPlaceAndSweep(t *testing.T) {
	e := newTestEngine(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			user := fmt.Sprintf("u%d", n)
			for j := 0; j < 20; j++ {
				_, _ = e.Place(user, "", "A/B", types.SideBuy, types.KindLimit, types.Units(1), decimal.New(2, 18))
				e.SweepLimitOrders()
			}
		}(i)
	}
	wg.Wait()

	// Every triggered order fills exactly once: quote spent must equal one
	// unit per filled order per user.
	stats := e.Stats()
	assert.Equal(t, 160, stats.TotalOrders)
	assert.Equal(t, stats.TotalOrders, stats.PendingOrders+stats.FilledOrders+stats.CancelledOrders)
}
