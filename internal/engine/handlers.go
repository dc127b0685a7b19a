package engine

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/Daddada866/TrenchBot/internal/types"
	"github.com/Daddada866/TrenchBot/pkg/response"
)

// GinHandlers contains HTTP handlers for the trading endpoints
type GinHandlers struct {
	engine *Engine
}

// NewGinHandlers creates a new set of HTTP handlers for the trading endpoints
func NewGinHandlers(engine *Engine) *GinHandlers {
	return &GinHandlers{
		engine: engine,
	}
}

// placeOrderRequest is the body for POST /orders.
type placeOrderRequest struct {
	Pair        string          `json:"pair" binding:"required"`
	Side        types.OrderSide `json:"side" binding:"required"`
	Kind        types.OrderKind `json:"kind" binding:"required"`
	AmountQuote decimal.Decimal `json:"amount_quote"`
	PriceLimit  decimal.Decimal `json:"price_limit"`
	ChatID      string          `json:"chat_id"`
}

// userID pulls the authenticated user from the request context.
func userID(c *gin.Context) (string, bool) {
	id := c.GetString("userID")
	if id == "" {
		response.Unauthorized(c, "Missing user identity")
		return "", false
	}
	return id, true
}

// GetPriceHandler handles GET requests for a pair's current quote
// URL parameter: pair (slashes URL-escaped or passed as wildcard)
func (h *GinHandlers) GetPriceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Wildcard params keep their leading slash ("/TRCH/ETH").
		pair := strings.TrimPrefix(c.Param("pair"), "/")
		if pair == "" {
			pair = c.Query("pair")
		}

		price, err := h.engine.Prices().Get(pair)
		if err != nil {
			response.Handle(c, nil, err)
			return
		}

		response.Success(c, types.PriceResponse{Pair: pair, Price: price})
	}
}

// ListPairsHandler handles GET requests for the tradable pair list
func (h *GinHandlers) ListPairsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		response.Success(c, h.engine.Prices().Pairs())
	}
}

// PlaceOrderHandler handles POST requests to place market and limit orders
// Requires a valid JWT token; the order is placed for the token's user
func (h *GinHandlers) PlaceOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, ok := userID(c)
		if !ok {
			return
		}

		var req placeOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
		if !req.Side.Valid() {
			response.BadRequest(c, "side must be BUY or SELL")
			return
		}
		if req.Kind != types.KindMarket && req.Kind != types.KindLimit {
			response.BadRequest(c, "kind must be MARKET or LIMIT")
			return
		}

		order, err := h.engine.Place(uid, req.ChatID, req.Pair, req.Side, req.Kind, req.AmountQuote, req.PriceLimit)
		response.Handle(c, order, err)
	}
}

// CancelOrderHandler handles DELETE requests to cancel a pending order
// URL parameter: order_id
func (h *GinHandlers) CancelOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, ok := userID(c)
		if !ok {
			return
		}

		order, err := h.engine.Cancel(uid, c.Param("order_id"))
		response.Handle(c, order, err)
	}
}

// ListOrdersHandler handles GET requests for a user's order history
// Optional query parameter: status
func (h *GinHandlers) ListOrdersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, ok := userID(c)
		if !ok {
			return
		}

		orders := h.engine.Orders(uid, types.OrderStatus(c.Query("status")))
		response.Success(c, orders)
	}
}

// PositionsHandler handles GET requests for a user's open positions
func (h *GinHandlers) PositionsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, ok := userID(c)
		if !ok {
			return
		}

		response.Success(c, h.engine.Ledger().Positions(uid))
	}
}

// BalanceHandler handles GET requests for a user's balance
func (h *GinHandlers) BalanceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, ok := userID(c)
		if !ok {
			return
		}

		response.Success(c, h.engine.Ledger().GetOrCreateBalance(uid))
	}
}

// StatsHandler handles GET requests for engine statistics
// Requires internal authentication
func (h *GinHandlers) StatsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		response.Success(c, h.engine.Stats())
	}
}

// SweepHandler handles POST requests to run a manual limit-order sweep
// Requires internal authentication
func (h *GinHandlers) SweepHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		response.Success(c, h.engine.SweepLimitOrders())
	}
}

// setPriceRequest is the body for the internal quote override route.
type setPriceRequest struct {
	Pair  string          `json:"pair" binding:"required"`
	Price decimal.Decimal `json:"price"`
}

// SetPriceHandler handles POST requests to override a quote, simulating
// market movement. Requires internal authentication
func (h *GinHandlers) SetPriceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req setPriceRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		h.engine.Prices().Set(req.Pair, req.Price)
		response.Success(c, types.PriceResponse{Pair: req.Pair, Price: req.Price})
	}
}
