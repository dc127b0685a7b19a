package command

import (
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/Daddada866/TrenchBot/internal/engine"
	"github.com/Daddada866/TrenchBot/internal/types"
)

// Command names as the chat transport delivers them.
const (
	CmdStart     = "start"
	CmdHelp      = "help"
	CmdPrice     = "price"
	CmdOrder     = "order"
	CmdBalance   = "balance"
	CmdPositions = "positions"
	CmdCancel    = "cancel"
	CmdHistory   = "history"
	CmdPairs     = "pairs"
	CmdStats     = "stats"
	CmdTrenchers = "trenchers"
)

// Request is one inbound command unit from the chat transport. The transport
// has already split the free text into a command name and arguments;
// formatting the result back into chat text is equally its problem.
type Request struct {
	UserID string
	ChatID string
	Name   string
	Args   []string
}

// Dispatcher routes command units onto the engine.
type Dispatcher struct {
	engine       *engine.Engine
	defaultPair  string
	trenchersNFT string
}

func NewDispatcher(e *engine.Engine, defaultPair, trenchersNFT string) *Dispatcher {
	return &Dispatcher{
		engine:       e,
		defaultPair:  defaultPair,
		trenchersNFT: trenchersNFT,
	}
}

// HelpResult is the structured payload for start/help.
type HelpResult struct {
	Commands []string `json:"commands"`
}

// TrenchersResult is the static payload for the trenchers command: the NFT
// collection address the community perks hang off. The core only carries the
// address; holder lookups live with the transport.
type TrenchersResult struct {
	Collection string `json:"collection"`
}

// Dispatch executes one command unit and returns its structured result or a
// tagged error.
func (d *Dispatcher) Dispatch(req Request) (interface{}, error) {
	log.Debug().
		Str("user_id", req.UserID).
		Str("command", req.Name).
		Strs("args", req.Args).
		Msg("dispatching command")

	switch strings.ToLower(req.Name) {
	case CmdStart, CmdHelp:
		return HelpResult{Commands: []string{
			CmdPrice, CmdOrder, CmdCancel, CmdHistory,
			CmdPositions, CmdBalance, CmdPairs, CmdStats, CmdTrenchers,
		}}, nil

	case CmdPrice:
		pair := d.defaultPair
		if len(req.Args) > 0 {
			pair = req.Args[0]
		}
		price, err := d.engine.Prices().Get(pair)
		if err != nil {
			return nil, err
		}
		return types.PriceResponse{Pair: pair, Price: price}, nil

	case CmdOrder:
		return d.placeOrder(req)

	case CmdCancel:
		if len(req.Args) < 1 {
			return nil, types.ErrBadArgument
		}
		return d.engine.Cancel(req.UserID, req.Args[0])

	case CmdHistory:
		var status types.OrderStatus
		if len(req.Args) > 0 {
			status = types.OrderStatus(strings.ToUpper(req.Args[0]))
		}
		return d.engine.Orders(req.UserID, status), nil

	case CmdPositions:
		return d.engine.Ledger().Positions(req.UserID), nil

	case CmdBalance:
		return d.engine.Ledger().GetOrCreateBalance(req.UserID), nil

	case CmdPairs:
		return d.engine.Prices().Pairs(), nil

	case CmdStats:
		return d.engine.Stats(), nil

	case CmdTrenchers:
		return TrenchersResult{Collection: d.trenchersNFT}, nil
	}

	return nil, types.ErrUnknownCommand
}

// placeOrder parses `order <side> <market|limit> <pair> <amount> [limitPrice]`.
func (d *Dispatcher) placeOrder(req Request) (interface{}, error) {
	if len(req.Args) < 4 {
		return nil, types.ErrBadArgument
	}

	side := types.OrderSide(strings.ToUpper(req.Args[0]))
	if !side.Valid() {
		return nil, types.ErrBadArgument
	}

	var kind types.OrderKind
	switch strings.ToUpper(req.Args[1]) {
	case string(types.KindMarket):
		kind = types.KindMarket
	case string(types.KindLimit):
		kind = types.KindLimit
	default:
		return nil, types.ErrBadArgument
	}

	pair := req.Args[2]

	amountQuote, err := parseAmount(req.Args[3])
	if err != nil {
		return nil, err
	}

	priceLimit := decimal.Zero
	if kind == types.KindLimit {
		if len(req.Args) < 5 {
			return nil, types.ErrBadArgument
		}
		priceLimit, err = parseAmount(req.Args[4])
		if err != nil {
			return nil, err
		}
	}

	return d.engine.Place(req.UserID, req.ChatID, pair, side, kind, amountQuote, priceLimit)
}

// parseAmount converts a human-unit argument ("10", "0.5") into fixed-point
// form, truncating anything below one wei.
func parseAmount(arg string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(arg)
	if err != nil {
		return decimal.Decimal{}, types.ErrBadArgument
	}
	return d.Mul(types.Scale).Truncate(0), nil
}
