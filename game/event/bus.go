// Package event carries domain events from the game services to their
// consumers: the quest tracker, the leaderboard and the player event stream.
package event

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Type names a domain event.
type Type string

const (
	ExpeditionCompleted Type = "expedition_completed" // TargetID = biome
	ResourceCollected   Type = "resource_collected"   // TargetID = resource
	ItemCrafted         Type = "item_crafted"         // TargetID = recipe result item
	CreatureKilled      Type = "creature_killed"      // TargetID = species resource
	QuestCompleted      Type = "quest_completed"      // TargetID = quest
	LevelUp             Type = "level_up"             // Quantity = new level
)

// All matches every event type in Register.
const All Type = "*"

// ErrStop stops delivery of the current event to lower-priority handlers.
var ErrStop = errors.New("event: stop propagation")

// Event is one domain event about a player.
type Event struct {
	Type     Type      `json:"type"`
	PlayerID int64     `json:"player_id"`
	TargetID int       `json:"target_id"`
	Quantity int       `json:"quantity"`
	At       time.Time `json:"at"`
}

// Handler consumes an event.
type Handler func(ctx context.Context, ev Event) error

type entry struct {
	priority int
	name     string
	fn       Handler
}

// Bus dispatches events to handlers synchronously in priority order (lower
// runs first). Handler errors are logged and do not reach the publisher.
type Bus struct {
	mu       sync.RWMutex
	handlers map[Type][]*entry
	logger   *zap.Logger
	now      func() time.Time
}

// NewBus creates an empty Bus.
func NewBus(logger *zap.Logger) *Bus {
	return &Bus{handlers: make(map[Type][]*entry), logger: logger, now: time.Now}
}

// Register adds fn for t. Use All to receive every event. name is used for
// Unregister.
func (b *Bus) Register(t Type, priority int, name string, fn Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	entries := append(b.handlers[t], &entry{priority: priority, name: name, fn: fn})
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].priority < entries[j].priority
	})
	b.handlers[t] = entries
}

// Unregister removes every handler called name from t.
func (b *Bus) Unregister(t Type, name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[t] = without(b.handlers[t], name)
}

// UnregisterAll removes every handler called name.
func (b *Bus) UnregisterAll(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for t, entries := range b.handlers {
		b.handlers[t] = without(entries, name)
	}
}

func without(entries []*entry, name string) []*entry {
	n := 0
	for _, e := range entries {
		if e.name != name {
			entries[n] = e
			n++
		}
	}
	return entries[:n]
}

func (b *Bus) snapshot(t Type) []*entry {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]*entry, 0, len(b.handlers[t])+len(b.handlers[All]))
	out = append(out, b.handlers[t]...)
	out = append(out, b.handlers[All]...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].priority < out[j].priority
	})
	return out
}

// Publish delivers each event in order. Must not be called while holding the
// publishing player's lock: handlers take it themselves.
func (b *Bus) Publish(ctx context.Context, events ...Event) {
	for _, ev := range events {
		if ev.At.IsZero() {
			ev.At = b.now()
		}
		for _, e := range b.snapshot(ev.Type) {
			err := e.fn(ctx, ev)
			if errors.Is(err, ErrStop) {
				break
			}
			if err != nil {
				b.logger.Warn("event handler failed",
					zap.String("handler", e.name),
					zap.String("type", string(ev.Type)),
					zap.Int64("player_id", ev.PlayerID),
					zap.Error(err))
			}
		}
	}
}
