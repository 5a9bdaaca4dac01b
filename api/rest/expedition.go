package rest

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/survivalcamp/cache"
	"github.com/kasuganosora/survivalcamp/game/expedition"
	"github.com/kasuganosora/survivalcamp/gameerr"
	mw "github.com/kasuganosora/survivalcamp/middleware"
	"github.com/kasuganosora/survivalcamp/model"
)

// ExpeditionHandler drives the expedition engine.
type ExpeditionHandler struct {
	engine *expedition.Engine
	views  *cache.Store
}

// NewExpeditionHandler creates an ExpeditionHandler.
func NewExpeditionHandler(engine *expedition.Engine, views *cache.Store) *ExpeditionHandler {
	return &ExpeditionHandler{engine: engine, views: views}
}

type startExpeditionRequest struct {
	BiomeID   int   `json:"biome_id" binding:"required"`
	Resources []int `json:"resources"`
}

// Start handles POST /api/players/:id/expeditions.
func (h *ExpeditionHandler) Start(c *gin.Context) {
	var req startExpeditionRequest
	if !bind(c, &req) {
		return
	}
	id := playerParam(c)
	exp, err := h.engine.Start(c.Request.Context(), id, req.BiomeID, req.Resources)
	if err != nil {
		respondError(c, err)
		return
	}
	h.views.InvalidatePlayer(c.Request.Context(), id, cache.ScopeActiveExpedition)
	c.JSON(http.StatusCreated, exp)
}

// Active handles GET /api/players/:id/expeditions/active.
func (h *ExpeditionHandler) Active(c *gin.Context) {
	id := playerParam(c)
	exp, err := cache.LoadPlayer(c.Request.Context(), h.views, cache.ScopeActiveExpedition, id,
		func(ctx context.Context) (*model.Expedition, error) {
			return h.engine.Active(ctx, id)
		})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, exp)
}

// owned loads :eid and checks it belongs to the caller. Someone else's
// expedition is reported as missing.
func (h *ExpeditionHandler) owned(c *gin.Context) (*model.Expedition, bool) {
	eid := c.Param("eid")
	exp, err := h.engine.Get(c.Request.Context(), eid)
	if err == nil && exp.PlayerID != mw.GetPlayerID(c) {
		err = gameerr.NotFound("expedition %s not found", eid)
	}
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return exp, true
}

// Get handles GET /api/expeditions/:eid.
func (h *ExpeditionHandler) Get(c *gin.Context) {
	exp, ok := h.owned(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, exp)
}

// Tick handles POST /api/expeditions/:eid/tick.
func (h *ExpeditionHandler) Tick(c *gin.Context) {
	exp, ok := h.owned(c)
	if !ok {
		return
	}
	res, err := h.engine.Tick(c.Request.Context(), exp.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	h.views.InvalidatePlayer(c.Request.Context(), exp.PlayerID, cache.ScopePlayer, cache.ScopeInventory, cache.ScopeActiveExpedition)
	c.JSON(http.StatusOK, res)
}

// Complete handles POST /api/expeditions/:eid/complete. Rewards and quest
// progress may touch every view of the player.
func (h *ExpeditionHandler) Complete(c *gin.Context) {
	exp, ok := h.owned(c)
	if !ok {
		return
	}
	done, err := h.engine.Complete(c.Request.Context(), exp.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	h.views.InvalidatePlayer(c.Request.Context(), exp.PlayerID)
	c.JSON(http.StatusOK, done)
}

// Cancel handles POST /api/expeditions/:eid/cancel.
func (h *ExpeditionHandler) Cancel(c *gin.Context) {
	exp, ok := h.owned(c)
	if !ok {
		return
	}
	done, err := h.engine.Cancel(c.Request.Context(), exp.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	h.views.InvalidatePlayer(c.Request.Context(), exp.PlayerID, cache.ScopePlayer, cache.ScopeInventory, cache.ScopeActiveExpedition)
	c.JSON(http.StatusOK, done)
}
