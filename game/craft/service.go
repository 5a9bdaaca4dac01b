// Package craft turns recipe ingredients into items in a single step.
package craft

import (
	"context"

	"github.com/kasuganosora/survivalcamp/catalog"
	"github.com/kasuganosora/survivalcamp/game/event"
	"github.com/kasuganosora/survivalcamp/game/item"
	"github.com/kasuganosora/survivalcamp/game/player"
	"github.com/kasuganosora/survivalcamp/game/playerlock"
	"github.com/kasuganosora/survivalcamp/gameerr"
	"github.com/kasuganosora/survivalcamp/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MaxTimes caps how many batches one request may craft.
const MaxTimes = 100

// Service crafts recipes.
type Service struct {
	db     *gorm.DB
	cat    *catalog.Catalog
	items  *item.Store
	locks  *playerlock.Locker
	bus    *event.Bus
	logger *zap.Logger
}

// NewService creates a crafting Service.
func NewService(db *gorm.DB, cat *catalog.Catalog, items *item.Store, locks *playerlock.Locker,
	bus *event.Bus, logger *zap.Logger) *Service {
	return &Service{db: db, cat: cat, items: items, locks: locks, bus: bus, logger: logger}
}

// Result describes one craft.
type Result struct {
	RecipeID    int          `json:"recipe_id"`
	Item        item.Stack   `json:"item"`
	InInventory int          `json:"in_inventory"`
	InStorage   int          `json:"in_storage"`
	Consumed    []item.Stack `json:"consumed"`
}

// Craft runs recipeID times times. Ingredients come out of the inventory
// first and storage second; the product goes where the player's
// crafted_items_destination says, with inventory overflow spilling into
// storage.
func (svc *Service) Craft(ctx context.Context, playerID int64, recipeID, times int) (*Result, error) {
	if times <= 0 || times > MaxTimes {
		return nil, gameerr.Validation("times must be between 1 and %d, got %d", MaxTimes, times)
	}
	recipe, ok := svc.cat.Recipe(recipeID)
	if !ok {
		return nil, gameerr.NotFound("recipe %d not found", recipeID)
	}

	unlock := svc.locks.Lock(playerID)
	res := &Result{
		RecipeID: recipeID,
		Item: item.Stack{
			ItemType: recipe.ResultType,
			ItemID:   recipe.ResultID,
			Quantity: recipe.ResultQuantity * times,
		},
	}
	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p model.Player
		if err := player.Load(tx, playerID, &p); err != nil {
			return err
		}
		if p.Level < recipe.RequiredLevel {
			return gameerr.InvalidOperation("%s requires level %d, player is level %d",
				recipe.Name, recipe.RequiredLevel, p.Level)
		}
		for _, ing := range recipe.Ingredients {
			if err := svc.consume(tx, playerID, ing.ResourceID, ing.Quantity*times); err != nil {
				return err
			}
			res.Consumed = append(res.Consumed, item.Stack{
				ItemType: catalog.ItemTypeResource, ItemID: ing.ResourceID, Quantity: ing.Quantity * times,
			})
		}
		w, err := svc.items.RecalculateWeight(tx, playerID)
		if err != nil {
			return err
		}
		p.InventoryWeight = w

		if p.CraftedItemsDestination == model.DestinationStorage {
			res.InStorage = res.Item.Quantity
			return svc.items.AddStorage(tx, playerID, res.Item.ItemType, res.Item.ItemID, res.Item.Quantity)
		}
		res.InInventory, res.InStorage, err = svc.items.Deposit(tx, &p, res.Item.ItemType, res.Item.ItemID, res.Item.Quantity)
		return err
	})
	unlock()
	if err != nil {
		return nil, err
	}

	svc.logger.Info("item crafted",
		zap.Int64("player_id", playerID),
		zap.Int("recipe_id", recipeID),
		zap.Int("quantity", res.Item.Quantity))
	svc.bus.Publish(ctx, event.Event{
		Type: event.ItemCrafted, PlayerID: playerID, TargetID: res.Item.ItemID, Quantity: res.Item.Quantity,
	})
	return res, nil
}

// consume removes need units of a resource, inventory first.
func (svc *Service) consume(tx *gorm.DB, playerID int64, resourceID, need int) error {
	inInv, err := svc.items.InventoryQuantity(tx, playerID, catalog.ItemTypeResource, resourceID)
	if err != nil {
		return err
	}
	inSto, err := svc.items.StorageQuantity(tx, playerID, catalog.ItemTypeResource, resourceID)
	if err != nil {
		return err
	}
	if inInv+inSto < need {
		name := "resource"
		if r, ok := svc.cat.Resource(resourceID); ok {
			name = r.Name
		}
		return gameerr.InsufficientResources("need %d %s, have %d", need, name, inInv+inSto).
			WithMeta("resource_id", resourceID)
	}
	fromInv := min(inInv, need)
	if fromInv > 0 {
		if err := svc.items.RemoveInventory(tx, playerID, catalog.ItemTypeResource, resourceID, fromInv); err != nil {
			return err
		}
	}
	if rest := need - fromInv; rest > 0 {
		return svc.items.RemoveStorage(tx, playerID, catalog.ItemTypeResource, resourceID, rest)
	}
	return nil
}
