package ws

import (
	"context"
	"encoding/json"
	"time"

	"github.com/kasuganosora/survivalcamp/cache"
	"github.com/kasuganosora/survivalcamp/gameerr"
)

func (h *Handler) registerCommands() {
	h.router.On("ping", h.handlePing)
	h.router.On("expedition_active", h.handleActive)
	h.router.On("expedition_tick", h.handleTick)
}

func (h *Handler) handlePing(_ context.Context, s *Session, payload json.RawMessage) error {
	var req struct {
		ClientTS int64 `json:"client_ts"`
	}
	if len(payload) > 0 {
		_ = json.Unmarshal(payload, &req)
	}
	s.Send("pong", map[string]int64{
		"client_ts": req.ClientTS,
		"server_ts": time.Now().UnixMilli(),
	})
	return nil
}

func (h *Handler) handleActive(ctx context.Context, s *Session, _ json.RawMessage) error {
	exp, err := h.engine.Active(ctx, s.PlayerID)
	if err != nil {
		return err
	}
	s.Send("expedition_active", exp)
	return nil
}

// handleTick advances the player's expedition by one step. The client
// schedules the next tick after the returned time_cost.
func (h *Handler) handleTick(ctx context.Context, s *Session, payload json.RawMessage) error {
	var req struct {
		ExpeditionID string `json:"expedition_id"`
	}
	if err := json.Unmarshal(payload, &req); err != nil || req.ExpeditionID == "" {
		return gameerr.Validation("expedition_id is required")
	}
	exp, err := h.engine.Get(ctx, req.ExpeditionID)
	if err == nil && exp.PlayerID != s.PlayerID {
		err = gameerr.NotFound("expedition %s not found", req.ExpeditionID)
	}
	if err != nil {
		return err
	}
	res, err := h.engine.Tick(ctx, exp.ID)
	if err != nil {
		return err
	}
	h.views.InvalidatePlayer(ctx, s.PlayerID, cache.ScopePlayer, cache.ScopeInventory, cache.ScopeActiveExpedition)
	s.Send("expedition_tick", res)
	return nil
}
