package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/kasuganosora/survivalcamp/cache"
	"github.com/kasuganosora/survivalcamp/config"
	dbadapter "github.com/kasuganosora/survivalcamp/db"
	"github.com/kasuganosora/survivalcamp/model"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// SetupTestDB creates an isolated in-memory SQLite DB and runs AutoMigrate.
// It requires no external services and is safe to use in parallel tests.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := dbadapter.Open(config.DatabaseConfig{
		Mode: dbadapter.ModeMemory,
	})
	require.NoError(t, err, "SetupTestDB: Open")
	require.NoError(t, model.AutoMigrate(db), "SetupTestDB: AutoMigrate")
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// SetupTestCache creates LocalCache and LocalPubSub (no Redis required).
func SetupTestCache(t *testing.T) (cache.Cache, cache.PubSub) {
	t.Helper()
	cfg := config.CacheConfig{} // empty RedisAddr → LocalCache
	c, err := cache.NewCache(cfg)
	require.NoError(t, err, "SetupTestCache: NewCache")
	t.Cleanup(func() { _ = c.Close() })
	ps, err := cache.NewPubSub(cfg)
	require.NoError(t, err, "SetupTestCache: NewPubSub")
	return c, ps
}

var seq atomic.Int64

// SeedPlayer inserts a fresh player with default game values. Each mutator
// runs before the insert.
func SeedPlayer(t *testing.T, db *gorm.DB, mutators ...func(*model.Player)) *model.Player {
	t.Helper()
	g := config.DefaultGame()
	p := &model.Player{
		Username:                fmt.Sprintf("player_%d", seq.Add(1)),
		PasswordHash:            "x",
		Status:                  1,
		Level:                   1,
		Coins:                   g.StartCoins,
		Hunger:                  g.StartHunger,
		Thirst:                  g.StartThirst,
		MaxHunger:               g.StartHunger,
		MaxThirst:               g.StartThirst,
		MaxInventoryWeight:      g.MaxInventoryWeight,
		CraftedItemsDestination: model.DestinationInventory,
	}
	for _, m := range mutators {
		m(p)
	}
	require.NoError(t, db.Create(p).Error, "SeedPlayer")
	return p
}

// GiveInventory adds a resource stack straight into a player's inventory
// and keeps inventory_weight in step.
func GiveInventory(t *testing.T, db *gorm.DB, playerID int64, itemType string, itemID, qty int, unitWeight float64) {
	t.Helper()
	require.NoError(t, db.Create(&model.InventoryItem{
		PlayerID: playerID, ItemID: itemID, ItemType: itemType, Quantity: qty,
	}).Error)
	require.NoError(t, db.Model(&model.Player{}).Where("id = ?", playerID).
		Update("inventory_weight", gorm.Expr("inventory_weight + ?", unitWeight*float64(qty))).Error)
}

// GiveStorage adds a stack straight into a player's storage.
func GiveStorage(t *testing.T, db *gorm.DB, playerID int64, itemType string, itemID, qty int) {
	t.Helper()
	require.NoError(t, db.Create(&model.StorageItem{
		PlayerID: playerID, ItemID: itemID, ItemType: itemType, Quantity: qty,
	}).Error)
}
