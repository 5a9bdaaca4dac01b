package rest

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/survivalcamp/cache"
	"github.com/kasuganosora/survivalcamp/game/quest"
)

// QuestHandler serves the quest tracker.
type QuestHandler struct {
	quests *quest.Service
	views  *cache.Store
}

// NewQuestHandler creates a QuestHandler.
func NewQuestHandler(quests *quest.Service, views *cache.Store) *QuestHandler {
	return &QuestHandler{quests: quests, views: views}
}

// List handles GET /api/players/:id/quests[?status=active].
func (h *QuestHandler) List(c *gin.Context) {
	id := playerParam(c)
	all, err := cache.LoadPlayer(c.Request.Context(), h.views, cache.ScopeQuests, id,
		func(ctx context.Context) ([]*quest.Status, error) {
			return h.quests.List(ctx, id)
		})
	if err != nil {
		respondError(c, err)
		return
	}
	if want := c.Query("status"); want != "" {
		filtered := make([]*quest.Status, 0, len(all))
		for _, st := range all {
			if st.Status == want {
				filtered = append(filtered, st)
			}
		}
		all = filtered
	}
	c.JSON(http.StatusOK, gin.H{"quests": all})
}

// Start handles POST /api/players/:id/quests/:qid/start.
func (h *QuestHandler) Start(c *gin.Context) {
	id := playerParam(c)
	qid, ok := intParam(c, "qid")
	if !ok {
		return
	}
	pq, err := h.quests.Start(c.Request.Context(), id, qid)
	if err != nil {
		respondError(c, err)
		return
	}
	h.views.InvalidatePlayer(c.Request.Context(), id, cache.ScopeQuests)
	c.JSON(http.StatusOK, pq)
}

// Check handles POST /api/players/:id/quests/:qid/check. With
// auto_complete_quests set a finished quest pays out here.
func (h *QuestHandler) Check(c *gin.Context) {
	id := playerParam(c)
	qid, ok := intParam(c, "qid")
	if !ok {
		return
	}
	res, err := h.quests.CheckObjectives(c.Request.Context(), id, qid)
	if err != nil {
		respondError(c, err)
		return
	}
	if res.AutoCompleted {
		h.views.InvalidatePlayer(c.Request.Context(), id)
	}
	c.JSON(http.StatusOK, res)
}

// Complete handles POST /api/players/:id/quests/:qid/complete.
func (h *QuestHandler) Complete(c *gin.Context) {
	id := playerParam(c)
	qid, ok := intParam(c, "qid")
	if !ok {
		return
	}
	done, err := h.quests.Complete(c.Request.Context(), id, qid)
	if err != nil {
		respondError(c, err)
		return
	}
	h.views.InvalidatePlayer(c.Request.Context(), id)
	c.JSON(http.StatusOK, done)
}

// Cancel handles POST /api/players/:id/quests/:qid/cancel.
func (h *QuestHandler) Cancel(c *gin.Context) {
	id := playerParam(c)
	qid, ok := intParam(c, "qid")
	if !ok {
		return
	}
	pq, err := h.quests.Cancel(c.Request.Context(), id, qid)
	if err != nil {
		respondError(c, err)
		return
	}
	h.views.InvalidatePlayer(c.Request.Context(), id, cache.ScopeQuests)
	c.JSON(http.StatusOK, pq)
}
