package rest

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/survivalcamp/cache"
	"github.com/kasuganosora/survivalcamp/game/event"
	"github.com/kasuganosora/survivalcamp/game/player"
	"github.com/kasuganosora/survivalcamp/game/quest"
	"github.com/kasuganosora/survivalcamp/game/ranking"
	"github.com/kasuganosora/survivalcamp/model"
	"github.com/kasuganosora/survivalcamp/scheduler"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AdminHandler handles the testing and operator endpoints.
// Routes should be protected by AdminAuth middleware.
type AdminHandler struct {
	db      *gorm.DB
	players *player.Service
	quests  *quest.Service
	board   *ranking.Board
	fwd     *event.Forwarder
	views   *cache.Store
	sched   *scheduler.Scheduler
	logger  *zap.Logger
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(
	db *gorm.DB,
	players *player.Service,
	quests *quest.Service,
	board *ranking.Board,
	fwd *event.Forwarder,
	views *cache.Store,
	sched *scheduler.Scheduler,
	logger *zap.Logger,
) *AdminHandler {
	return &AdminHandler{
		db: db, players: players, quests: quests, board: board,
		fwd: fwd, views: views, sched: sched, logger: logger,
	}
}

func adminPlayerID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid id")
		return 0, false
	}
	return id, true
}

// ResetPlayer restores a player to starting values.
// POST /api/debug/players/:id/reset
func (h *AdminHandler) ResetPlayer(c *gin.Context) {
	id, ok := adminPlayerID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	p, err := h.players.Reset(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := h.board.Update(ctx, id); err != nil {
		h.logger.Warn("reset: ranking update failed", zap.Int64("player_id", id), zap.Error(err))
	}
	if err := h.fwd.Clear(ctx, id); err != nil {
		h.logger.Warn("reset: event feed clear failed", zap.Int64("player_id", id), zap.Error(err))
	}
	h.views.InvalidatePlayer(ctx, id)
	h.logger.Info("admin reset player", zap.Int64("player_id", id))
	c.JSON(http.StatusOK, p)
}

// ResetQuest puts one quest of a player back to active with fresh progress.
// POST /api/debug/players/:id/quests/:qid/reset
func (h *AdminHandler) ResetQuest(c *gin.Context) {
	id, ok := adminPlayerID(c)
	if !ok {
		return
	}
	qid, ok := intParam(c, "qid")
	if !ok {
		return
	}
	pq, err := h.quests.Reset(c.Request.Context(), id, qid)
	if err != nil {
		respondError(c, err)
		return
	}
	h.views.InvalidatePlayer(c.Request.Context(), id, cache.ScopeQuests)
	c.JSON(http.StatusOK, pq)
}

// BanPlayer bans or unbans a player. Banned players cannot log in.
// POST /api/debug/players/:id/ban
func (h *AdminHandler) BanPlayer(c *gin.Context) {
	id, ok := adminPlayerID(c)
	if !ok {
		return
	}
	var req struct {
		Ban bool `json:"ban"`
	}
	_ = c.ShouldBindJSON(&req)

	status := 1
	if req.Ban {
		status = 0
	}
	result := h.db.WithContext(c.Request.Context()).Model(&model.Player{}).Where("id = ?", id).Update("status", status)
	if result.Error != nil {
		respondError(c, result.Error)
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "player not found", "code": "not_found"})
		return
	}
	h.views.InvalidatePlayer(c.Request.Context(), id, cache.ScopePlayer)
	c.JSON(http.StatusOK, gin.H{"ok": true, "status": status})
}

// RebuildRanking refills the leaderboard from the database.
// POST /api/debug/ranking/rebuild
func (h *AdminHandler) RebuildRanking(c *gin.Context) {
	n, err := h.board.Rebuild(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "players": n})
}

// ListSchedulerTasks returns the registered tickers and pending delays.
// GET /api/debug/scheduler
func (h *AdminHandler) ListSchedulerTasks(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"tasks":          h.sched.ListTickers(),
		"pending_delays": h.sched.PendingDelays(),
	})
}

// AdminAuth returns a middleware that checks the X-Admin-Key header.
// An empty adminKey disables every admin endpoint (503).
func AdminAuth(adminKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if adminKey == "" {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable,
				gin.H{"error": "admin endpoints disabled: set server.admin_key in config", "code": "forbidden"})
			return
		}
		if c.GetHeader("X-Admin-Key") != adminKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "code": "unauthorized"})
			return
		}
		c.Next()
	}
}
