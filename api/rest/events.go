package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/survivalcamp/game/event"
)

// EventsHandler serves a player's recent activity feed.
type EventsHandler struct {
	fwd *event.Forwarder
}

// NewEventsHandler creates an EventsHandler.
func NewEventsHandler(fwd *event.Forwarder) *EventsHandler {
	return &EventsHandler{fwd: fwd}
}

// Recent handles GET /api/players/:id/events?limit=N, newest first.
func (h *EventsHandler) Recent(c *gin.Context) {
	events, err := h.fwd.Recent(c.Request.Context(), playerParam(c), queryLimit(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}
