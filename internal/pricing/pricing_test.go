package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Daddada866/TrenchBot/internal/types"
)

func TestGetSeededPair(t *testing.T) {
	s := NewSource()

	price, err := s.Get("TRCH/ETH")
	require.NoError(t, err)
	assert.True(t, price.Equal(decimal.New(2, 18)))
}

func TestGetUnknownPair(t *testing.T) {
	s := NewSource()

	_, err := s.Get("NOPE/USD")
	assert.ErrorIs(t, err, types.ErrInvalidPair)
}

func TestSetOverridesAndInserts(t *testing.T) {
	s := NewSource()

	s.Set("TRCH/ETH", decimal.New(3, 18))
	price, err := s.Get("TRCH/ETH")
	require.NoError(t, err)
	assert.True(t, price.Equal(decimal.New(3, 18)))

	s.Set("A/B", decimal.New(1, 18))
	assert.True(t, s.Has("A/B"))
	assert.Equal(t, "A/B", s.Pairs()[len(s.Pairs())-1])
}

func TestPairsInsertionOrder(t *testing.T) {
	s := NewSource()

	pairs := s.Pairs()
	require.GreaterOrEqual(t, len(pairs), 3)
	assert.Equal(t, []string{"TRCH/ETH", "TRCH/USDC", "ETH/USDC"}, pairs[:3])
}
