package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Scope names one cached view of a player's state.
type Scope string

const (
	ScopePlayer           Scope = "player"
	ScopeInventory        Scope = "inventory"
	ScopeStorage          Scope = "storage"
	ScopeActiveExpedition Scope = "expedition"
	ScopeQuests           Scope = "quests"
)

// PlayerScopes lists every player-scoped view.
var PlayerScopes = []Scope{ScopePlayer, ScopeInventory, ScopeStorage, ScopeActiveExpedition, ScopeQuests}

// Store is a cache-aside layer over Cache. Cache faults never fail a read:
// they are logged and the loader result is returned.
type Store struct {
	c          Cache
	playerTTL  time.Duration
	catalogTTL time.Duration
	logger     *zap.Logger
}

// NewStore creates a Store. Zero TTLs fall back to 30s for player views and
// 15m for catalog views.
func NewStore(c Cache, playerTTL, catalogTTL time.Duration, logger *zap.Logger) *Store {
	if playerTTL <= 0 {
		playerTTL = 30 * time.Second
	}
	if catalogTTL <= 0 {
		catalogTTL = 15 * time.Minute
	}
	return &Store{c: c, playerTTL: playerTTL, catalogTTL: catalogTTL, logger: logger}
}

// PlayerKey is the cache key of one player view.
func PlayerKey(scope Scope, playerID int64) string {
	return fmt.Sprintf("view:%s:%d", scope, playerID)
}

// CatalogKey is the cache key of one catalog listing.
func CatalogKey(name string) string {
	return "view:catalog:" + name
}

// LoadPlayer returns the cached view of scope for playerID, calling load on a miss.
func LoadPlayer[T any](ctx context.Context, s *Store, scope Scope, playerID int64, load func(context.Context) (T, error)) (T, error) {
	return loadThrough(ctx, s, PlayerKey(scope, playerID), s.playerTTL, load)
}

// LoadCatalog returns the cached catalog listing, calling load on a miss.
func LoadCatalog[T any](ctx context.Context, s *Store, name string, load func(context.Context) (T, error)) (T, error) {
	return loadThrough(ctx, s, CatalogKey(name), s.catalogTTL, load)
}

func loadThrough[T any](ctx context.Context, s *Store, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	raw, err := s.c.Get(ctx, key)
	if err == nil {
		var v T
		if err := json.Unmarshal([]byte(raw), &v); err == nil {
			return v, nil
		}
		s.logger.Warn("cache: discarding undecodable entry", zap.String("key", key))
	} else if !IsMiss(err) {
		s.logger.Warn("cache: get failed", zap.String("key", key), zap.Error(err))
	}

	v, err := load(ctx)
	if err != nil {
		return v, err
	}
	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Warn("cache: encode failed", zap.String("key", key), zap.Error(err))
		return v, nil
	}
	if err := s.c.Set(ctx, key, string(data), ttl); err != nil {
		s.logger.Warn("cache: set failed", zap.String("key", key), zap.Error(err))
	}
	return v, nil
}

// InvalidatePlayer drops the given views of playerID, or all of them when no
// scope is named. Failures are logged, never returned.
func (s *Store) InvalidatePlayer(ctx context.Context, playerID int64, scopes ...Scope) {
	if len(scopes) == 0 {
		scopes = PlayerScopes
	}
	keys := make([]string, len(scopes))
	for i, sc := range scopes {
		keys[i] = PlayerKey(sc, playerID)
	}
	if err := s.c.Del(ctx, keys...); err != nil {
		s.logger.Warn("cache: invalidate failed",
			zap.Int64("player_id", playerID), zap.Strings("keys", keys), zap.Error(err))
	}
}
