// Package ranking keeps the experience leaderboard in a cache sorted set,
// falling back to the players table when the set is empty or unreachable.
package ranking

import (
	"context"
	"strconv"

	"github.com/kasuganosora/survivalcamp/cache"
	"github.com/kasuganosora/survivalcamp/game/event"
	"github.com/kasuganosora/survivalcamp/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	zkey = "ranking:experience"
	// Top is the largest board size served and rebuilt.
	Top = 100
)

// Entry is one row of the leaderboard.
type Entry struct {
	Rank       int    `json:"rank"`
	PlayerID   int64  `json:"player_id"`
	Username   string `json:"username"`
	Level      int    `json:"level"`
	Experience int64  `json:"experience"`
}

// Board serves and maintains the leaderboard.
type Board struct {
	db     *gorm.DB
	cache  cache.Cache
	logger *zap.Logger
}

// NewBoard creates a Board.
func NewBoard(db *gorm.DB, c cache.Cache, logger *zap.Logger) *Board {
	return &Board{db: db, cache: c, logger: logger}
}

// Attach refreshes a player's score whenever their experience may change.
func (b *Board) Attach(bus *event.Bus) {
	for _, t := range []event.Type{event.ExpeditionCompleted, event.QuestCompleted, event.LevelUp} {
		bus.Register(t, 200, "ranking", func(ctx context.Context, ev event.Event) error {
			return b.Update(ctx, ev.PlayerID)
		})
	}
}

// Update writes the player's current experience into the sorted set.
func (b *Board) Update(ctx context.Context, playerID int64) error {
	var p model.Player
	if err := b.db.WithContext(ctx).Select("id", "experience").First(&p, playerID).Error; err != nil {
		return err
	}
	return b.cache.ZAdd(ctx, zkey, float64(p.Experience), strconv.FormatInt(p.ID, 10))
}

// Top returns the best limit players by experience.
func (b *Board) Top(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 || limit > Top {
		limit = 20
	}
	members, err := b.cache.ZRevRangeWithScores(ctx, zkey, 0, int64(limit-1))
	if err != nil {
		b.logger.Warn("ranking cache read failed", zap.Error(err))
	}
	if err != nil || len(members) == 0 {
		return b.fromDB(ctx, limit)
	}

	entries := make([]Entry, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m.Member, 10, 64)
		if err != nil {
			continue
		}
		entries = append(entries, Entry{Rank: len(entries) + 1, PlayerID: id, Experience: int64(m.Score)})
	}
	return entries, b.enrich(ctx, entries)
}

func (b *Board) fromDB(ctx context.Context, limit int) ([]Entry, error) {
	var players []model.Player
	if err := b.db.WithContext(ctx).Select("id", "username", "level", "experience").
		Order("experience DESC, id").Limit(limit).Find(&players).Error; err != nil {
		return nil, err
	}
	entries := make([]Entry, len(players))
	for i, p := range players {
		entries[i] = Entry{Rank: i + 1, PlayerID: p.ID, Username: p.Username, Level: p.Level, Experience: p.Experience}
		if err := b.cache.ZAdd(ctx, zkey, float64(p.Experience), strconv.FormatInt(p.ID, 10)); err != nil {
			b.logger.Warn("ranking cache refill failed", zap.Error(err))
			break
		}
	}
	return entries, nil
}

func (b *Board) enrich(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	ids := make([]int64, len(entries))
	for i, e := range entries {
		ids[i] = e.PlayerID
	}
	var players []model.Player
	if err := b.db.WithContext(ctx).Select("id", "username", "level").
		Where("id IN ?", ids).Find(&players).Error; err != nil {
		return err
	}
	byID := make(map[int64]model.Player, len(players))
	for _, p := range players {
		byID[p.ID] = p
	}
	for i := range entries {
		if p, ok := byID[entries[i].PlayerID]; ok {
			entries[i].Username = p.Username
			entries[i].Level = p.Level
		}
	}
	return nil
}

// Rebuild replaces the sorted set with the current top players. It runs
// on a scheduler ticker.
func (b *Board) Rebuild(ctx context.Context) (int, error) {
	var players []model.Player
	if err := b.db.WithContext(ctx).Select("id", "experience").
		Order("experience DESC, id").Limit(Top).Find(&players).Error; err != nil {
		return 0, err
	}
	if err := b.cache.Del(ctx, zkey); err != nil {
		return 0, err
	}
	for _, p := range players {
		if err := b.cache.ZAdd(ctx, zkey, float64(p.Experience), strconv.FormatInt(p.ID, 10)); err != nil {
			return 0, err
		}
	}
	return len(players), nil
}
