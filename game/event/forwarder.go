package event

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kasuganosora/survivalcamp/cache"
	"go.uber.org/zap"
)

// recentLimit caps the per-player activity feed.
const recentLimit = 50

// Channel is the pub/sub channel carrying one player's events.
func Channel(playerID int64) string {
	return fmt.Sprintf("player:%d:events", playerID)
}

func recentKey(playerID int64) string {
	return fmt.Sprintf("events:recent:%d", playerID)
}

// Forwarder copies every event onto the player's pub/sub channel and into a
// bounded recent-activity list.
type Forwarder struct {
	ps     cache.PubSub
	c      cache.Cache
	logger *zap.Logger
}

// NewForwarder creates a Forwarder.
func NewForwarder(ps cache.PubSub, c cache.Cache, logger *zap.Logger) *Forwarder {
	return &Forwarder{ps: ps, c: c, logger: logger}
}

// Attach registers the forwarder on bus after every other handler.
func (f *Forwarder) Attach(bus *Bus) {
	bus.Register(All, 1000, "forwarder", f.handle)
}

func (f *Forwarder) handle(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	payload := string(data)
	key := recentKey(ev.PlayerID)
	if err := f.c.LPush(ctx, key, payload); err != nil {
		f.logger.Warn("event: recent push failed", zap.Int64("player_id", ev.PlayerID), zap.Error(err))
	} else if err := f.c.LTrim(ctx, key, 0, recentLimit-1); err != nil {
		f.logger.Warn("event: recent trim failed", zap.Int64("player_id", ev.PlayerID), zap.Error(err))
	}
	return f.ps.Publish(ctx, Channel(ev.PlayerID), payload)
}

// Recent returns up to limit of the player's latest events, newest first.
func (f *Forwarder) Recent(ctx context.Context, playerID int64, limit int) ([]Event, error) {
	if limit <= 0 || limit > recentLimit {
		limit = recentLimit
	}
	raw, err := f.c.LRange(ctx, recentKey(playerID), 0, int64(limit-1))
	if err != nil {
		return nil, err
	}
	out := make([]Event, 0, len(raw))
	for _, r := range raw {
		var ev Event
		if err := json.Unmarshal([]byte(r), &ev); err != nil {
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}

// Clear drops the player's recent-activity list.
func (f *Forwarder) Clear(ctx context.Context, playerID int64) error {
	return f.c.Del(ctx, recentKey(playerID))
}
