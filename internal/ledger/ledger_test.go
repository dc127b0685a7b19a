package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Daddada866/TrenchBot/internal/types"
)

func fillOrder(userID string, side types.OrderSide, amountQuote, amountBase decimal.Decimal) *types.Order {
	return &types.Order{
		OrderID:     "TRCH-1",
		UserID:      userID,
		Pair:        "TRCH/ETH",
		Side:        side,
		Kind:        types.KindMarket,
		AmountQuote: amountQuote,
		AmountBase:  amountBase,
		Status:      types.StatusFilled,
	}
}

func TestBalanceSeededOnce(t *testing.T) {
	l := New()

	b := l.GetOrCreateBalance("u1")
	assert.True(t, b.Quote.Equal(types.Units(1000)))
	assert.True(t, b.Base.IsZero())

	// Second touch must not reseed.
	again := l.GetOrCreateBalance("u1")
	assert.True(t, again.Quote.Equal(b.Quote))
}

func TestApplyFillConservation(t *testing.T) {
	l := New()
	amountQuote := types.Units(10)
	amountBase := types.Units(5) // priced at 2.0

	l.ApplyFill(fillOrder("u1", types.SideBuy, amountQuote, amountBase), decimal.New(2, 18))

	b := l.GetOrCreateBalance("u1")
	assert.True(t, b.Quote.Equal(types.Units(990)), "quote=%s", b.Quote)
	assert.True(t, b.Base.Equal(types.Units(5)), "base=%s", b.Base)

	l.ApplyFill(fillOrder("u1", types.SideSell, amountQuote, amountBase), decimal.New(2, 18))

	b = l.GetOrCreateBalance("u1")
	assert.True(t, b.Quote.Equal(types.Units(1000)))
	assert.True(t, b.Base.IsZero())
}

func TestWeightedAverageEntryPrice(t *testing.T) {
	l := New()

	// 5 base at 2.0, then 3 base at 4.0: entry = (2*5 + 4*3)/8 = 2.75.
	l.ApplyFill(fillOrder("u1", types.SideBuy, types.Units(10), types.Units(5)), decimal.New(2, 18))
	l.ApplyFill(fillOrder("u1", types.SideBuy, types.Units(12), types.Units(3)), decimal.New(4, 18))

	positions := l.Positions("u1")
	require.Len(t, positions, 1)
	assert.True(t, positions[0].Size.Equal(types.Units(8)))
	assert.True(t, positions[0].EntryPrice.Equal(decimal.New(275, 16)), "entry=%s", positions[0].EntryPrice)
}

func TestWeightedAverageTruncates(t *testing.T) {
	l := New()

	// (1*1 + 2*2)/3 base units: 5/3 scaled, truncated toward zero.
	one := types.Units(1)
	two := types.Units(2)
	l.ApplyFill(fillOrder("u1", types.SideBuy, one, one), decimal.New(1, 18))
	l.ApplyFill(fillOrder("u1", types.SideBuy, types.Units(4), two), decimal.New(2, 18))

	positions := l.Positions("u1")
	require.Len(t, positions, 1)

	notional := decimal.New(1, 18).Mul(one).Add(decimal.New(2, 18).Mul(two))
	want, _ := notional.QuoRem(types.Units(3), 0)
	assert.True(t, positions[0].EntryPrice.Equal(want), "entry=%s want=%s", positions[0].EntryPrice, want)
}

func TestCheckFunds(t *testing.T) {
	l := New()

	// Fresh user holds 1000 quote, 0 base.
	assert.NoError(t, l.CheckFunds("u1", types.SideBuy, types.Units(1000), types.Units(1)))
	assert.ErrorIs(t, l.CheckFunds("u1", types.SideBuy, types.Units(1001), types.Units(1)), types.ErrInsufficientBalance)
	assert.ErrorIs(t, l.CheckFunds("u1", types.SideSell, types.Units(1), types.Units(1)), types.ErrInsufficientBalance)
}

func TestPositionsHideZeroSize(t *testing.T) {
	l := New()

	l.Restore(
		map[string]types.Balance{"u1": {Quote: types.Units(1000), Base: decimal.Zero}},
		map[string][]types.Position{"u1": {
			{Pair: "TRCH/ETH", Side: types.SideBuy, Size: decimal.Zero, EntryPrice: decimal.New(2, 18)},
			{Pair: "ETH/USDC", Side: types.SideBuy, Size: types.Units(1), EntryPrice: decimal.New(2500, 18)},
		}},
	)

	// Listing hides the zero-size entry.
	positions := l.Positions("u1")
	require.Len(t, positions, 1)
	assert.Equal(t, "ETH/USDC", positions[0].Pair)

	// The snapshot view keeps it.
	all := l.AllPositions()
	assert.Len(t, all["u1"], 2)
}

func TestSidesTrackedSeparately(t *testing.T) {
	l := New()

	l.ApplyFill(fillOrder("u1", types.SideBuy, types.Units(10), types.Units(5)), decimal.New(2, 18))
	l.ApplyFill(fillOrder("u1", types.SideSell, types.Units(10), types.Units(5)), decimal.New(2, 18))

	positions := l.Positions("u1")
	assert.Len(t, positions, 2)
}
