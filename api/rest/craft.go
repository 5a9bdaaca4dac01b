package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/survivalcamp/cache"
	"github.com/kasuganosora/survivalcamp/game/craft"
)

// CraftHandler serves the workshop.
type CraftHandler struct {
	crafter *craft.Service
	views   *cache.Store
}

// NewCraftHandler creates a CraftHandler.
func NewCraftHandler(crafter *craft.Service, views *cache.Store) *CraftHandler {
	return &CraftHandler{crafter: crafter, views: views}
}

type craftRequest struct {
	RecipeID int `json:"recipe_id" binding:"required"`
	Times    int `json:"times"`
}

// Craft handles POST /api/players/:id/craft. Times defaults to 1.
func (h *CraftHandler) Craft(c *gin.Context) {
	var req craftRequest
	if !bind(c, &req) {
		return
	}
	if req.Times == 0 {
		req.Times = 1
	}
	id := playerParam(c)
	res, err := h.crafter.Craft(c.Request.Context(), id, req.RecipeID, req.Times)
	if err != nil {
		respondError(c, err)
		return
	}
	h.views.InvalidatePlayer(c.Request.Context(), id)
	c.JSON(http.StatusOK, res)
}
