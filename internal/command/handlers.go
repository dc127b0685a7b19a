package command

import (
	"github.com/gin-gonic/gin"

	"github.com/Daddada866/TrenchBot/pkg/response"
)

// GinHandlers contains HTTP handlers for the raw command surface
type GinHandlers struct {
	dispatcher *Dispatcher
}

// NewGinHandlers creates a new set of HTTP handlers for command dispatch
func NewGinHandlers(dispatcher *Dispatcher) *GinHandlers {
	return &GinHandlers{
		dispatcher: dispatcher,
	}
}

// commandRequest is the body for POST /command: one inbound chat unit.
type commandRequest struct {
	Name   string   `json:"name" binding:"required"`
	Args   []string `json:"args"`
	ChatID string   `json:"chat_id"`
}

// DispatchHandler handles POST requests carrying a structured command unit,
// the same shape the chat transport submits
func (h *GinHandlers) DispatchHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := c.GetString("userID")
		if uid == "" {
			response.Unauthorized(c, "Missing user identity")
			return
		}

		var req commandRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		result, err := h.dispatcher.Dispatch(Request{
			UserID: uid,
			ChatID: req.ChatID,
			Name:   req.Name,
			Args:   req.Args,
		})
		response.Handle(c, result, err)
	}
}
