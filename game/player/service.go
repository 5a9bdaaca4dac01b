// Package player is the player ledger: vitals, progression, coins and
// settings, read and updated atomically under the per-player lock.
package player

import (
	"context"
	"errors"
	"time"

	"github.com/kasuganosora/survivalcamp/catalog"
	"github.com/kasuganosora/survivalcamp/config"
	"github.com/kasuganosora/survivalcamp/game/event"
	"github.com/kasuganosora/survivalcamp/game/item"
	"github.com/kasuganosora/survivalcamp/game/playerlock"
	"github.com/kasuganosora/survivalcamp/gameerr"
	"github.com/kasuganosora/survivalcamp/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ResetHook clears state another package owns for a player being reset.
// It runs inside the reset transaction.
type ResetHook func(ctx context.Context, tx *gorm.DB, playerID int64) error

// Settings is a partial settings update; nil fields are left unchanged.
type Settings struct {
	AutoStorage             *bool   `json:"auto_storage"`
	AutoCompleteQuests      *bool   `json:"auto_complete_quests"`
	CraftedItemsDestination *string `json:"crafted_items_destination"`
}

// Service owns player rows.
type Service struct {
	db     *gorm.DB
	cat    *catalog.Catalog
	items  *item.Store
	locks  *playerlock.Locker
	game   config.GameConfig
	logger *zap.Logger
	hooks  []ResetHook
}

// NewService creates a Service.
func NewService(db *gorm.DB, cat *catalog.Catalog, items *item.Store, locks *playerlock.Locker,
	game config.GameConfig, logger *zap.Logger) *Service {
	return &Service{db: db, cat: cat, items: items, locks: locks, game: game, logger: logger}
}

// OnReset registers a hook run by Reset.
func (svc *Service) OnReset(h ResetHook) {
	svc.hooks = append(svc.hooks, h)
}

// Register creates a player with starting values.
func (svc *Service) Register(ctx context.Context, username, passwordHash string) (*model.Player, error) {
	p := &model.Player{
		Username:     username,
		PasswordHash: passwordHash,
		Status:       1,
	}
	svc.applyDefaults(p)
	if err := svc.db.WithContext(ctx).Create(p).Error; err != nil {
		return nil, err
	}
	svc.logger.Info("player registered", zap.Int64("player_id", p.ID), zap.String("username", username))
	return p, nil
}

func (svc *Service) applyDefaults(p *model.Player) {
	p.Level = 1
	p.Experience = 0
	p.Coins = svc.game.StartCoins
	p.Hunger = svc.game.StartHunger
	p.Thirst = svc.game.StartThirst
	p.MaxHunger = svc.game.StartHunger
	p.MaxThirst = svc.game.StartThirst
	p.InventoryWeight = 0
	p.MaxInventoryWeight = svc.game.MaxInventoryWeight
	p.HelmetID, p.ChestplateID, p.LeggingsID = nil, nil, nil
	p.BootsID, p.WeaponID, p.ToolID = nil, nil, nil
	p.AutoStorage = false
	p.AutoCompleteQuests = false
	p.CraftedItemsDestination = model.DestinationInventory
}

// Get returns the player or a NotFound error.
func (svc *Service) Get(ctx context.Context, playerID int64) (*model.Player, error) {
	var p model.Player
	if err := Load(svc.db.WithContext(ctx), playerID, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetByUsername returns the player with the given username, or nil if absent.
func (svc *Service) GetByUsername(ctx context.Context, username string) (*model.Player, error) {
	var p model.Player
	err := svc.db.WithContext(ctx).Where("username = ?", username).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// TouchLogin stamps the last login time. Best effort.
func (svc *Service) TouchLogin(ctx context.Context, playerID int64) {
	if err := svc.db.WithContext(ctx).Model(&model.Player{}).Where("id = ?", playerID).
		Update("last_login_at", time.Now()).Error; err != nil {
		svc.logger.Warn("touch login failed", zap.Int64("player_id", playerID), zap.Error(err))
	}
}

// Consume eats or drinks qty units of a carried resource.
func (svc *Service) Consume(ctx context.Context, playerID int64, resourceID, qty int) (*model.Player, error) {
	if qty <= 0 {
		return nil, gameerr.Validation("quantity must be positive, got %d", qty)
	}
	r, ok := svc.cat.Resource(resourceID)
	if !ok {
		return nil, gameerr.NotFound("resource %d not found", resourceID)
	}
	if !r.Consumable() {
		return nil, gameerr.Validation("%s is not consumable", r.Name)
	}

	unlock := svc.locks.Lock(playerID)
	defer unlock()

	var p model.Player
	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := Load(tx, playerID, &p); err != nil {
			return err
		}
		if err := svc.items.RemoveInventory(tx, playerID, catalog.ItemTypeResource, resourceID, qty); err != nil {
			return err
		}
		p.Hunger += r.HungerRestore * float64(qty)
		p.Thirst += r.ThirstRestore * float64(qty)
		p.ClampVitals()
		p.InventoryWeight -= r.Weight * float64(qty)
		return SaveVitals(tx, &p)
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateSettings applies a partial settings update.
func (svc *Service) UpdateSettings(ctx context.Context, playerID int64, s Settings) (*model.Player, error) {
	if d := s.CraftedItemsDestination; d != nil && *d != model.DestinationInventory && *d != model.DestinationStorage {
		return nil, gameerr.Validation("crafted_items_destination must be %q or %q",
			model.DestinationInventory, model.DestinationStorage)
	}

	unlock := svc.locks.Lock(playerID)
	defer unlock()

	var p model.Player
	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := Load(tx, playerID, &p); err != nil {
			return err
		}
		if s.AutoStorage != nil {
			p.AutoStorage = *s.AutoStorage
		}
		if s.AutoCompleteQuests != nil {
			p.AutoCompleteQuests = *s.AutoCompleteQuests
		}
		if s.CraftedItemsDestination != nil {
			p.CraftedItemsDestination = *s.CraftedItemsDestination
		}
		return tx.Model(&model.Player{}).Where("id = ?", playerID).Updates(map[string]any{
			"auto_storage":              p.AutoStorage,
			"auto_complete_quests":      p.AutoCompleteQuests,
			"crafted_items_destination": p.CraftedItemsDestination,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Reset restores a player to starting values and clears every item,
// expedition and quest it owns. Testing only.
func (svc *Service) Reset(ctx context.Context, playerID int64) (*model.Player, error) {
	unlock := svc.locks.Lock(playerID)
	defer unlock()

	var p model.Player
	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := Load(tx, playerID, &p); err != nil {
			return err
		}
		if err := svc.items.ClearAll(tx, playerID); err != nil {
			return err
		}
		if err := tx.Where("player_id = ?", playerID).Delete(&model.PlayerQuest{}).Error; err != nil {
			return err
		}
		for _, h := range svc.hooks {
			if err := h(ctx, tx, playerID); err != nil {
				return err
			}
		}
		svc.applyDefaults(&p)
		return tx.Model(&model.Player{}).Where("id = ?", playerID).Updates(map[string]any{
			"level":                     p.Level,
			"experience":                p.Experience,
			"coins":                     p.Coins,
			"hunger":                    p.Hunger,
			"thirst":                    p.Thirst,
			"max_hunger":                p.MaxHunger,
			"max_thirst":                p.MaxThirst,
			"inventory_weight":          p.InventoryWeight,
			"max_inventory_weight":      p.MaxInventoryWeight,
			"helmet_id":                 nil,
			"chestplate_id":             nil,
			"leggings_id":               nil,
			"boots_id":                  nil,
			"weapon_id":                 nil,
			"tool_id":                   nil,
			"auto_storage":              p.AutoStorage,
			"auto_complete_quests":      p.AutoCompleteQuests,
			"crafted_items_destination": p.CraftedItemsDestination,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	svc.logger.Info("player reset", zap.Int64("player_id", playerID))
	return &p, nil
}

// Load reads a player row on db, mapping a missing row to NotFound.
func Load(db *gorm.DB, playerID int64, p *model.Player) error {
	if err := db.First(p, playerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return gameerr.NotFound("player %d not found", playerID)
		}
		return err
	}
	return nil
}

// SaveVitals writes hunger and thirst.
func SaveVitals(tx *gorm.DB, p *model.Player) error {
	return tx.Model(&model.Player{}).Where("id = ?", p.ID).Updates(map[string]any{
		"hunger": p.Hunger,
		"thirst": p.Thirst,
	}).Error
}

// SaveProgress writes level, experience and coins.
func SaveProgress(tx *gorm.DB, p *model.Player) error {
	return tx.Model(&model.Player{}).Where("id = ?", p.ID).Updates(map[string]any{
		"level":      p.Level,
		"experience": p.Experience,
		"coins":      p.Coins,
	}).Error
}

// LevelUpEvent builds the event announcing p reached its current level.
func LevelUpEvent(p *model.Player) event.Event {
	return event.Event{Type: event.LevelUp, PlayerID: p.ID, Quantity: p.Level}
}
