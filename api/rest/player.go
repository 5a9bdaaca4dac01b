package rest

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/survivalcamp/cache"
	"github.com/kasuganosora/survivalcamp/catalog"
	"github.com/kasuganosora/survivalcamp/game/item"
	"github.com/kasuganosora/survivalcamp/game/player"
	"github.com/kasuganosora/survivalcamp/model"
)

// PlayerHandler serves the player ledger: state, settings, eating and
// equipment.
type PlayerHandler struct {
	players *player.Service
	items   *item.Service
	views   *cache.Store
}

// NewPlayerHandler creates a PlayerHandler.
func NewPlayerHandler(players *player.Service, items *item.Service, views *cache.Store) *PlayerHandler {
	return &PlayerHandler{players: players, items: items, views: views}
}

// Get handles GET /api/players/:id.
func (h *PlayerHandler) Get(c *gin.Context) {
	id := playerParam(c)
	p, err := cache.LoadPlayer(c.Request.Context(), h.views, cache.ScopePlayer, id,
		func(ctx context.Context) (*model.Player, error) {
			return h.players.Get(ctx, id)
		})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// UpdateSettings handles PUT /api/players/:id/settings.
func (h *PlayerHandler) UpdateSettings(c *gin.Context) {
	var req player.Settings
	if !bind(c, &req) {
		return
	}
	id := playerParam(c)
	p, err := h.players.UpdateSettings(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	h.views.InvalidatePlayer(c.Request.Context(), id, cache.ScopePlayer)
	c.JSON(http.StatusOK, p)
}

type consumeRequest struct {
	ItemID   int `json:"item_id" binding:"required"`
	Quantity int `json:"quantity"`
}

// Consume handles POST /api/players/:id/consume.
func (h *PlayerHandler) Consume(c *gin.Context) {
	var req consumeRequest
	if !bind(c, &req) {
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	id := playerParam(c)
	p, err := h.players.Consume(c.Request.Context(), id, req.ItemID, req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}
	h.views.InvalidatePlayer(c.Request.Context(), id, cache.ScopePlayer, cache.ScopeInventory)
	c.JSON(http.StatusOK, p)
}

type equipRequest struct {
	EquipmentID int `json:"equipment_id" binding:"required"`
}

// Equip handles POST /api/players/:id/equip.
func (h *PlayerHandler) Equip(c *gin.Context) {
	var req equipRequest
	if !bind(c, &req) {
		return
	}
	id := playerParam(c)
	p, err := h.items.Equip(c.Request.Context(), id, req.EquipmentID)
	if err != nil {
		respondError(c, err)
		return
	}
	h.views.InvalidatePlayer(c.Request.Context(), id, cache.ScopePlayer, cache.ScopeInventory, cache.ScopeStorage)
	c.JSON(http.StatusOK, p)
}

type unequipRequest struct {
	Slot string `json:"slot" binding:"required"`
}

// Unequip handles POST /api/players/:id/unequip.
func (h *PlayerHandler) Unequip(c *gin.Context) {
	var req unequipRequest
	if !bind(c, &req) {
		return
	}
	id := playerParam(c)
	p, err := h.items.Unequip(c.Request.Context(), id, catalog.Slot(req.Slot))
	if err != nil {
		respondError(c, err)
		return
	}
	h.views.InvalidatePlayer(c.Request.Context(), id, cache.ScopePlayer, cache.ScopeInventory, cache.ScopeStorage)
	c.JSON(http.StatusOK, p)
}
