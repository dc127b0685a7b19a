package command

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Daddada866/TrenchBot/internal/engine"
	"github.com/Daddada866/TrenchBot/internal/ledger"
	"github.com/Daddada866/TrenchBot/internal/pricing"
	"github.com/Daddada866/TrenchBot/internal/ratelimit"
	"github.com/Daddada866/TrenchBot/internal/types"
)

func newTestDispatcher(t *testing.T) *Dispatcher {
	t.Helper()

	prices := pricing.NewSource()
	e := engine.New(prices, ledger.New(), ratelimit.Unlimited{}, engine.DefaultConfig())
	return NewDispatcher(e, "TRCH/ETH", "0x6c0e4a8b2d5f7a9c1e3b5d7f9a1c3e5b7d9f1a3")
}

func dispatch(t *testing.T, d *Dispatcher, name string, args ...string) interface{} {
	t.Helper()
	result, err := d.Dispatch(Request{UserID: "u1", ChatID: "c1", Name: name, Args: args})
	require.NoError(t, err)
	return result
}

func TestPriceDefaultsToConfiguredPair(t *testing.T) {
	d := newTestDispatcher(t)

	result := dispatch(t, d, "price").(types.PriceResponse)
	assert.Equal(t, "TRCH/ETH", result.Pair)
	assert.True(t, result.Price.Equal(decimal.New(2, 18)))

	result = dispatch(t, d, "price", "ETH/USDC").(types.PriceResponse)
	assert.Equal(t, "ETH/USDC", result.Pair)
}

func TestOrderCommandPlacesMarketBuy(t *testing.T) {
	d := newTestDispatcher(t)

	result := dispatch(t, d, "order", "buy", "market", "TRCH/ETH", "10").(types.Order)
	assert.Equal(t, types.StatusFilled, result.Status)
	assert.True(t, result.AmountQuote.Equal(types.Units(10)))
	assert.True(t, result.AmountBase.Equal(types.Units(5)))
}

func TestOrderCommandPlacesLimit(t *testing.T) {
	d := newTestDispatcher(t)

	result := dispatch(t, d, "order", "buy", "limit", "TRCH/ETH", "6", "1.5").(types.Order)
	assert.Equal(t, types.StatusPending, result.Status)
	assert.True(t, result.PriceLimit.Equal(decimal.New(15, 17)))
	assert.True(t, result.AmountBase.Equal(types.Units(4)))

	// Limit orders require the trigger price argument.
	_, err := d.Dispatch(Request{UserID: "u1", Name: "order", Args: []string{"buy", "limit", "TRCH/ETH", "6"}})
	assert.ErrorIs(t, err, types.ErrBadArgument)
}

func TestCancelAndHistory(t *testing.T) {
	d := newTestDispatcher(t)

	placed := dispatch(t, d, "order", "sell", "limit", "TRCH/ETH", "6", "3").(types.Order)
	cancelled := dispatch(t, d, "cancel", placed.OrderID).(types.Order)
	assert.Equal(t, types.StatusCancelled, cancelled.Status)

	history := dispatch(t, d, "history").([]types.Order)
	assert.Len(t, history, 1)

	filtered := dispatch(t, d, "history", "pending").([]types.Order)
	assert.Empty(t, filtered)
}

func TestBalancePositionsPairsStats(t *testing.T) {
	d := newTestDispatcher(t)

	balance := dispatch(t, d, "balance").(types.Balance)
	assert.True(t, balance.Quote.Equal(types.Units(1000)))

	dispatch(t, d, "order", "buy", "market", "TRCH/ETH", "10")

	positions := dispatch(t, d, "positions").([]types.Position)
	assert.Len(t, positions, 1)

	pairs := dispatch(t, d, "pairs").([]string)
	assert.GreaterOrEqual(t, len(pairs), 3)

	stats := dispatch(t, d, "stats").(types.EngineStats)
	assert.Equal(t, 1, stats.FilledOrders)
}

func TestTrenchersCommand(t *testing.T) {
	d := newTestDispatcher(t)

	result := dispatch(t, d, "trenchers").(TrenchersResult)
	assert.Equal(t, "0x6c0e4a8b2d5f7a9c1e3b5d7f9a1c3e5b7d9f1a3", result.Collection)
}

func TestHelpAndUnknown(t *testing.T) {
	d := newTestDispatcher(t)

	help := dispatch(t, d, "help").(HelpResult)
	assert.Contains(t, help.Commands, "order")
	assert.Contains(t, help.Commands, "trenchers")

	_, err := d.Dispatch(Request{UserID: "u1", Name: "moonshot"})
	assert.ErrorIs(t, err, types.ErrUnknownCommand)

	_, err = d.Dispatch(Request{UserID: "u1", Name: "order", Args: []string{"buy", "market", "TRCH/ETH", "not-a-number"}})
	assert.ErrorIs(t, err, types.ErrBadArgument)
}
