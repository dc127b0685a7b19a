package pricing

import (
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/Daddada866/TrenchBot/internal/types"
)

// Source is the in-memory quote table. All trading is simulated against it;
// there is no live feed. Prices are fixed-point integers scaled by 10^18.
type Source struct {
	mu     sync.RWMutex
	prices map[string]decimal.Decimal
	pairs  []string // insertion order, for stable listing
}

// seedPairs mirrors the default deployment: TRCH/ETH at 2.0, TRCH/USDC at
// 0.005, ETH/USDC at 2500.
var seedPairs = []struct {
	pair  string
	price decimal.Decimal
}{
	{"TRCH/ETH", decimal.New(2, 18)},
	{"TRCH/USDC", decimal.New(5, 15)},
	{"ETH/USDC", decimal.New(2500, 18)},
}

// NewSource creates a quote table seeded with the default pairs.
func NewSource() *Source {
	s := &Source{prices: make(map[string]decimal.Decimal)}
	for _, p := range seedPairs {
		s.prices[p.pair] = p.price
		s.pairs = append(s.pairs, p.pair)
	}
	return s
}

// Get returns the current quote for pair, or ErrInvalidPair when unknown.
func (s *Source) Get(pair string) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	price, ok := s.prices[pair]
	if !ok {
		return decimal.Decimal{}, types.ErrInvalidPair
	}
	return price, nil
}

// Has reports whether pair is known to the table.
func (s *Source) Has(pair string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.prices[pair]
	return ok
}

// Set inserts or overwrites a quote. No positivity check is applied: the
// table is a simulation input, not validated market data.
func (s *Source) Set(pair string, price decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.prices[pair]; !ok {
		s.pairs = append(s.pairs, pair)
	}
	s.prices[pair] = price

	log.Debug().
		Str("pair", pair).
		Str("price", price.String()).
		Msg("quote updated")
}

// Pairs lists the known pair symbols in insertion order.
func (s *Source) Pairs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, len(s.pairs))
	copy(out, s.pairs)
	return out
}
