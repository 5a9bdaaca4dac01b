package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/survivalcamp/game/ranking"
)

// RankingHandler serves the experience leaderboard.
type RankingHandler struct {
	board *ranking.Board
}

// NewRankingHandler creates a RankingHandler.
func NewRankingHandler(board *ranking.Board) *RankingHandler {
	return &RankingHandler{board: board}
}

// Top handles GET /api/leaderboard?limit=N.
func (h *RankingHandler) Top(c *gin.Context) {
	entries, err := h.board.Top(c.Request.Context(), queryLimit(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}
