package expedition

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kasuganosora/survivalcamp/cache"
	"github.com/kasuganosora/survivalcamp/gameerr"
	"github.com/kasuganosora/survivalcamp/model"
)

const finishedKey = "expeditions:finished"

func expeditionKey(id string) string       { return "expedition:" + id }
func activeKey(playerID int64) string      { return fmt.Sprintf("expedition:active:%d", playerID) }
func playerIndexKey(playerID int64) string { return fmt.Sprintf("expeditions:player:%d", playerID) }

// CacheStore keeps expeditions in the cache backend (Redis in production).
// The active-expedition key is claimed with SETNX, which keeps the
// one-active-per-player rule across processes. Finished expeditions are
// indexed in a sorted set scored by completion time for the sweeper.
type CacheStore struct {
	c cache.Cache
}

// NewCacheStore creates a CacheStore.
func NewCacheStore(c cache.Cache) *CacheStore {
	return &CacheStore{c: c}
}

func (s *CacheStore) Create(ctx context.Context, e *model.Expedition) error {
	ok, err := s.c.SetNX(ctx, activeKey(e.PlayerID), e.ID, 0)
	if err != nil {
		return err
	}
	if !ok {
		return errActive(e.PlayerID)
	}
	if err := s.put(ctx, e); err != nil {
		_ = s.c.Del(ctx, activeKey(e.PlayerID))
		return err
	}
	return s.c.SAdd(ctx, playerIndexKey(e.PlayerID), e.ID)
}

func (s *CacheStore) put(ctx context.Context, e *model.Expedition) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return s.c.Set(ctx, expeditionKey(e.ID), string(data), 0)
}

func (s *CacheStore) Get(ctx context.Context, id string) (*model.Expedition, error) {
	raw, err := s.c.Get(ctx, expeditionKey(id))
	if cache.IsMiss(err) {
		return nil, errNotFound(id)
	}
	if err != nil {
		return nil, err
	}
	var e model.Expedition
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		return nil, fmt.Errorf("decode expedition %s: %w", id, err)
	}
	return &e, nil
}

func (s *CacheStore) ActiveFor(ctx context.Context, playerID int64) (*model.Expedition, error) {
	id, err := s.c.Get(ctx, activeKey(playerID))
	if cache.IsMiss(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	e, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.Status != model.ExpeditionActive {
		return nil, nil
	}
	return e, nil
}

// Save updates the active claim and the finished index before the record
// itself, so a failure part way leaves the stored status unchanged. Saving
// an active record claims the active key again, which restores an
// expedition whose completion was undone.
func (s *CacheStore) Save(ctx context.Context, e *model.Expedition) error {
	if e.Status == model.ExpeditionActive {
		if err := s.c.Set(ctx, activeKey(e.PlayerID), e.ID, 0); err != nil {
			return err
		}
		if err := s.c.ZRem(ctx, finishedKey, e.ID); err != nil {
			return err
		}
		return s.put(ctx, e)
	}
	if err := s.releaseActive(ctx, e); err != nil {
		return err
	}
	ended := time.Now()
	if e.CompletedAt != nil {
		ended = *e.CompletedAt
	}
	if err := s.c.ZAdd(ctx, finishedKey, float64(ended.UnixMilli()), e.ID); err != nil {
		return err
	}
	return s.put(ctx, e)
}

// releaseActive drops the active claim if it still points at e.
func (s *CacheStore) releaseActive(ctx context.Context, e *model.Expedition) error {
	id, err := s.c.Get(ctx, activeKey(e.PlayerID))
	if cache.IsMiss(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if id != e.ID {
		return nil
	}
	return s.c.Del(ctx, activeKey(e.PlayerID))
}

func (s *CacheStore) Delete(ctx context.Context, id string) error {
	e, err := s.Get(ctx, id)
	if err != nil {
		if errors.Is(err, gameerr.ErrNotFound) {
			return s.c.ZRem(ctx, finishedKey, id)
		}
		return err
	}
	if err := s.releaseActive(ctx, e); err != nil {
		return err
	}
	if err := s.c.SRem(ctx, playerIndexKey(e.PlayerID), id); err != nil {
		return err
	}
	if err := s.c.ZRem(ctx, finishedKey, id); err != nil {
		return err
	}
	return s.c.Del(ctx, expeditionKey(id))
}

func (s *CacheStore) DeletePlayer(ctx context.Context, playerID int64) error {
	ids, err := s.c.SMembers(ctx, playerIndexKey(playerID))
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := s.Delete(ctx, id); err != nil {
			return err
		}
	}
	return s.c.Del(ctx, activeKey(playerID), playerIndexKey(playerID))
}

func (s *CacheStore) FinishedBefore(ctx context.Context, cutoff time.Time) ([]string, error) {
	entries, err := s.c.ZRevRangeWithScores(ctx, finishedKey, 0, -1)
	if err != nil {
		return nil, err
	}
	limit := float64(cutoff.UnixMilli())
	var ids []string
	// oldest first
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].Score < limit {
			ids = append(ids, entries[i].Member)
		}
	}
	return ids, nil
}
