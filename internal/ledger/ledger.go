package ledger

import (
	"sort"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/Daddada866/TrenchBot/internal/types"
)

// startingQuote is the simulated endowment seeded on first touch: 1000 quote
// units and no base.
var startingQuote = types.Units(1000)

// Ledger owns every balance and position record. Balances are keyed by user
// id; positions by user id and then (pair, side). Mutations go through
// ApplyFill under the ledger lock, so a fill's position and balance updates
// are one critical section.
type Ledger struct {
	mu        sync.RWMutex
	balances  map[string]*types.Balance
	positions map[string]map[string]*types.Position
}

func New() *Ledger {
	return &Ledger{
		balances:  make(map[string]*types.Balance),
		positions: make(map[string]map[string]*types.Position),
	}
}

// positionKey identifies a position slot within one user's book.
func positionKey(pair string, side types.OrderSide) string {
	return pair + "|" + string(side)
}

// GetOrCreateBalance returns a copy of the user's balance, seeding the
// endowment on first touch. Idempotent.
func (l *Ledger) GetOrCreateBalance(userID string) types.Balance {
	l.mu.Lock()
	defer l.mu.Unlock()

	return *l.getOrCreateLocked(userID)
}

func (l *Ledger) getOrCreateLocked(userID string) *types.Balance {
	b, ok := l.balances[userID]
	if !ok {
		b = &types.Balance{
			UserID: userID,
			Quote:  startingQuote,
			Base:   decimal.Zero,
		}
		l.balances[userID] = b

		log.Debug().
			Str("user_id", userID).
			Str("quote", b.Quote.String()).
			Msg("seeded starting balance")
	}
	return b
}

// CheckFunds verifies the paying side can cover the fill: a buy spends
// amountQuote of quote currency, a sell spends amountBase of base currency.
// Returns ErrInsufficientBalance when the balance would go negative.
func (l *Ledger) CheckFunds(userID string, side types.OrderSide, amountQuote, amountBase decimal.Decimal) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.getOrCreateLocked(userID)
	switch side {
	case types.SideBuy:
		if b.Quote.LessThan(amountQuote) {
			return types.ErrInsufficientBalance
		}
	case types.SideSell:
		if b.Base.LessThan(amountBase) {
			return types.ErrInsufficientBalance
		}
	}
	return nil
}

// ApplyFill books a fill: the position for (user, pair, side) grows by the
// order's base amount with a volume-weighted entry price, and the balance
// moves amountQuote against amountBase per the conservation rule. The order
// must already carry its final fill figures.
func (l *Ledger) ApplyFill(order *types.Order, fillPrice decimal.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()

	logger := log.With().
		Str("order_id", order.OrderID).
		Str("user_id", order.UserID).
		Str("pair", order.Pair).
		Str("side", string(order.Side)).
		Logger()

	book, ok := l.positions[order.UserID]
	if !ok {
		book = make(map[string]*types.Position)
		l.positions[order.UserID] = book
	}

	key := positionKey(order.Pair, order.Side)
	pos, ok := book[key]
	if !ok {
		pos = &types.Position{
			UserID:     order.UserID,
			Pair:       order.Pair,
			Side:       order.Side,
			Size:       decimal.Zero,
			EntryPrice: decimal.Zero,
		}
		book[key] = pos
	}

	// entry_new = (entry_old*size_old + fillPrice*fillAmount) / (size_old+fillAmount),
	// truncating integer division.
	fillAmount := order.AmountBase
	newSize := pos.Size.Add(fillAmount)
	if newSize.IsPositive() {
		notional := pos.EntryPrice.Mul(pos.Size).Add(fillPrice.Mul(fillAmount))
		entry, _ := notional.QuoRem(newSize, 0)
		pos.EntryPrice = entry
	}
	pos.Size = newSize

	b := l.getOrCreateLocked(order.UserID)
	switch order.Side {
	case types.SideBuy:
		b.Quote = b.Quote.Sub(order.AmountQuote)
		b.Base = b.Base.Add(order.AmountBase)
	case types.SideSell:
		b.Quote = b.Quote.Add(order.AmountQuote)
		b.Base = b.Base.Sub(order.AmountBase)
	}

	logger.Info().
		Str("fill_price", fillPrice.String()).
		Str("position_size", pos.Size.String()).
		Str("entry_price", pos.EntryPrice.String()).
		Str("quote_balance", b.Quote.String()).
		Str("base_balance", b.Base.String()).
		Msg("fill applied")
}

// Positions lists the user's open positions, hiding zero-size entries.
// Zero-size positions stay in storage and round-trip through snapshots.
func (l *Ledger) Positions(userID string) []types.Position {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []types.Position
	for _, pos := range l.positions[userID] {
		if !pos.Size.IsZero() {
			out = append(out, *pos)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Pair != out[j].Pair {
			return out[i].Pair < out[j].Pair
		}
		return out[i].Side < out[j].Side
	})
	return out
}

// AllBalances copies every balance record, for snapshot export.
func (l *Ledger) AllBalances() map[string]types.Balance {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make(map[string]types.Balance, len(l.balances))
	for id, b := range l.balances {
		out[id] = *b
	}
	return out
}

// AllPositions copies every position record including zero-size ones, for
// snapshot export.
func (l *Ledger) AllPositions() map[string][]types.Position {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make(map[string][]types.Position, len(l.positions))
	for id, book := range l.positions {
		keys := make([]string, 0, len(book))
		for k := range book {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		list := make([]types.Position, 0, len(book))
		for _, k := range keys {
			list = append(list, *book[k])
		}
		out[id] = list
	}
	return out
}

// Restore replaces all ledger state with the given records. Used by snapshot
// import after the document has fully decoded.
func (l *Ledger) Restore(balances map[string]types.Balance, positions map[string][]types.Position) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.balances = make(map[string]*types.Balance, len(balances))
	for id, b := range balances {
		cp := b
		cp.UserID = id
		l.balances[id] = &cp
	}

	l.positions = make(map[string]map[string]*types.Position, len(positions))
	for id, list := range positions {
		book := make(map[string]*types.Position, len(list))
		for _, pos := range list {
			cp := pos
			cp.UserID = id
			book[positionKey(cp.Pair, cp.Side)] = &cp
		}
		l.positions[id] = book
	}
}
