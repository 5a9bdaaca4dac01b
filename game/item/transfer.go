package item

import (
	"context"

	"github.com/kasuganosora/survivalcamp/catalog"
	"github.com/kasuganosora/survivalcamp/gameerr"
	"github.com/kasuganosora/survivalcamp/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Directions accepted by Move.
const (
	ToStorage   = "storage"
	ToInventory = "inventory"
)

// Entry is one listed stack with its catalog name and total weight.
type Entry struct {
	ItemType string  `json:"item_type"`
	ItemID   int     `json:"item_id"`
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Weight   float64 `json:"weight"`
}

// InventoryView is the carried inventory with its capacity.
type InventoryView struct {
	Items     []Entry `json:"items"`
	Weight    float64 `json:"weight"`
	MaxWeight float64 `json:"max_weight"`
}

// Move transfers qty of an item between the inventory and storage. Moving
// into the inventory is capacity checked.
func (svc *Service) Move(ctx context.Context, playerID int64, itemType string, itemID, qty int, to string) error {
	if to != ToStorage && to != ToInventory {
		return gameerr.Validation("destination must be %q or %q", ToStorage, ToInventory)
	}

	unlock := svc.locks.Lock(playerID)
	defer unlock()

	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p model.Player
		if err := loadPlayer(tx, playerID, &p); err != nil {
			return err
		}
		if to == ToStorage {
			return svc.store.MoveToStorage(tx, playerID, itemType, itemID, qty)
		}
		return svc.store.MoveToInventory(tx, playerID, itemType, itemID, qty)
	})
	if err != nil {
		return err
	}
	svc.logger.Debug("items moved",
		zap.Int64("player_id", playerID),
		zap.String("item_type", itemType),
		zap.Int("item_id", itemID),
		zap.Int("quantity", qty),
		zap.String("to", to))
	return nil
}

// Inventory lists what the player carries.
func (svc *Service) Inventory(ctx context.Context, playerID int64) (*InventoryView, error) {
	db := svc.db.WithContext(ctx)
	var p model.Player
	if err := loadPlayer(db, playerID, &p); err != nil {
		return nil, err
	}
	rows, err := svc.store.ListInventory(db, playerID)
	if err != nil {
		return nil, err
	}
	view := &InventoryView{Items: make([]Entry, 0, len(rows)), MaxWeight: p.MaxInventoryWeight}
	for _, r := range rows {
		view.Items = append(view.Items, svc.entry(r.ItemType, r.ItemID, r.Quantity))
	}
	view.Weight = svc.store.Weight(rows)
	return view, nil
}

// Storage lists what the player keeps at camp.
func (svc *Service) Storage(ctx context.Context, playerID int64) ([]Entry, error) {
	db := svc.db.WithContext(ctx)
	var p model.Player
	if err := loadPlayer(db, playerID, &p); err != nil {
		return nil, err
	}
	rows, err := svc.store.ListStorage(db, playerID)
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(rows))
	for _, r := range rows {
		out = append(out, svc.entry(r.ItemType, r.ItemID, r.Quantity))
	}
	return out, nil
}

func (svc *Service) entry(itemType string, itemID, qty int) Entry {
	e := Entry{
		ItemType: itemType,
		ItemID:   itemID,
		Quantity: qty,
		Weight:   svc.cat.ItemWeight(itemType, itemID) * float64(qty),
	}
	switch itemType {
	case catalog.ItemTypeEquipment:
		if eq, ok := svc.cat.EquipmentByID(itemID); ok {
			e.Name = eq.Name
		}
	default:
		if r, ok := svc.cat.Resource(itemID); ok {
			e.Name = r.Name
		}
	}
	return e
}
