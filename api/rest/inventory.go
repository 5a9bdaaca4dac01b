package rest

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/survivalcamp/cache"
	"github.com/kasuganosora/survivalcamp/catalog"
	"github.com/kasuganosora/survivalcamp/game/item"
)

// InventoryHandler serves the inventory and storage collections.
type InventoryHandler struct {
	items *item.Service
	views *cache.Store
}

// NewInventoryHandler creates an InventoryHandler.
func NewInventoryHandler(items *item.Service, views *cache.Store) *InventoryHandler {
	return &InventoryHandler{items: items, views: views}
}

// Inventory handles GET /api/players/:id/inventory.
func (h *InventoryHandler) Inventory(c *gin.Context) {
	id := playerParam(c)
	view, err := cache.LoadPlayer(c.Request.Context(), h.views, cache.ScopeInventory, id,
		func(ctx context.Context) (*item.InventoryView, error) {
			return h.items.Inventory(ctx, id)
		})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Storage handles GET /api/players/:id/storage.
func (h *InventoryHandler) Storage(c *gin.Context) {
	id := playerParam(c)
	entries, err := cache.LoadPlayer(c.Request.Context(), h.views, cache.ScopeStorage, id,
		func(ctx context.Context) ([]item.Entry, error) {
			return h.items.Storage(ctx, id)
		})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": entries})
}

type moveRequest struct {
	ItemType string `json:"item_type"`
	ItemID   int    `json:"item_id" binding:"required"`
	Quantity int    `json:"quantity" binding:"required"`
	To       string `json:"to" binding:"required"`
}

// Move handles POST /api/players/:id/inventory/move.
func (h *InventoryHandler) Move(c *gin.Context) {
	var req moveRequest
	if !bind(c, &req) {
		return
	}
	if req.ItemType == "" {
		req.ItemType = catalog.ItemTypeResource
	}
	id := playerParam(c)
	if err := h.items.Move(c.Request.Context(), id, req.ItemType, req.ItemID, req.Quantity, req.To); err != nil {
		respondError(c, err)
		return
	}
	h.views.InvalidatePlayer(c.Request.Context(), id, cache.ScopePlayer, cache.ScopeInventory, cache.ScopeStorage)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
