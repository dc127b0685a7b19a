package snapshot

import (
	"github.com/gin-gonic/gin"

	"github.com/Daddada866/TrenchBot/pkg/response"
)

// GinHandlers contains HTTP handlers for the snapshot admin endpoints
type GinHandlers struct {
	codec *Codec
	store *Store
}

// NewGinHandlers creates a new set of HTTP handlers for snapshot transfer
func NewGinHandlers(codec *Codec, store *Store) *GinHandlers {
	return &GinHandlers{
		codec: codec,
		store: store,
	}
}

// ExportHandler handles POST requests to export current state and persist it
// Requires internal authentication
func (h *GinHandlers) ExportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		record, err := h.store.Save(h.codec.Export())
		response.Handle(c, record, err)
	}
}

// RestoreHandler handles POST requests to replace state from the most recent
// persisted snapshot. Requires internal authentication
func (h *GinHandlers) RestoreHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		doc, err := h.store.LoadLatest()
		if err != nil {
			response.Handle(c, nil, err)
			return
		}
		if doc == nil {
			response.NotFound(c, "No snapshot available")
			return
		}

		if err := h.codec.Import(doc); err != nil {
			response.Handle(c, nil, err)
			return
		}
		response.Success(c, gin.H{"orders": len(doc.Orders), "counter": doc.OrderIDCounter})
	}
}
