package item

import (
	"context"
	"errors"

	"github.com/kasuganosora/survivalcamp/catalog"
	"github.com/kasuganosora/survivalcamp/game/playerlock"
	"github.com/kasuganosora/survivalcamp/gameerr"
	"github.com/kasuganosora/survivalcamp/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service runs the locked, transactional item operations: equipping and
// moving stacks between the inventory and storage.
// Equipped items are not inventory rows and do not count toward carry weight.
type Service struct {
	db     *gorm.DB
	cat    *catalog.Catalog
	store  *Store
	locks  *playerlock.Locker
	logger *zap.Logger
}

// NewService creates a new Service.
func NewService(db *gorm.DB, cat *catalog.Catalog, store *Store, locks *playerlock.Locker, logger *zap.Logger) *Service {
	return &Service{db: db, cat: cat, store: store, locks: locks, logger: logger}
}

// Equip takes one equipmentID out of the inventory and puts it in its slot.
// Whatever occupied the slot goes back to the inventory, or storage if it
// no longer fits.
func (svc *Service) Equip(ctx context.Context, playerID int64, equipmentID int) (*model.Player, error) {
	eq, ok := svc.cat.EquipmentByID(equipmentID)
	if !ok {
		return nil, gameerr.NotFound("equipment %d not found", equipmentID)
	}

	unlock := svc.locks.Lock(playerID)
	defer unlock()

	var p model.Player
	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := loadPlayer(tx, playerID, &p); err != nil {
			return err
		}
		if err := svc.store.RemoveInventory(tx, playerID, catalog.ItemTypeEquipment, equipmentID, 1); err != nil {
			return err
		}
		p.InventoryWeight -= eq.Weight
		slot := p.Equipped(string(eq.Slot))
		if slot == nil {
			return gameerr.Validation("equipment %d has unknown slot %q", equipmentID, eq.Slot)
		}
		if prev := *slot; prev != nil {
			if _, _, err := svc.store.Deposit(tx, &p, catalog.ItemTypeEquipment, *prev, 1); err != nil {
				return err
			}
		}
		id := equipmentID
		*slot = &id
		return tx.Model(&model.Player{}).Where("id = ?", playerID).
			Update(model.SlotColumn(string(eq.Slot)), id).Error
	})
	if err != nil {
		return nil, err
	}
	svc.logger.Info("equipped",
		zap.Int64("player_id", playerID),
		zap.Int("equipment_id", equipmentID),
		zap.String("slot", string(eq.Slot)))
	return &p, nil
}

// Unequip empties slot, returning its item to the inventory (or storage if
// it does not fit).
func (svc *Service) Unequip(ctx context.Context, playerID int64, slot catalog.Slot) (*model.Player, error) {
	unlock := svc.locks.Lock(playerID)
	defer unlock()

	var p model.Player
	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := loadPlayer(tx, playerID, &p); err != nil {
			return err
		}
		field := p.Equipped(string(slot))
		if field == nil {
			return gameerr.Validation("unknown slot %q", slot)
		}
		if *field == nil {
			return gameerr.InvalidOperation("slot %s is empty", slot)
		}
		if _, _, err := svc.store.Deposit(tx, &p, catalog.ItemTypeEquipment, **field, 1); err != nil {
			return err
		}
		*field = nil
		return tx.Model(&model.Player{}).Where("id = ?", playerID).
			Update(model.SlotColumn(string(slot)), nil).Error
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// EquippedTools returns the tool types provided by the tool and weapon slots.
func EquippedTools(cat *catalog.Catalog, p *model.Player) map[catalog.ToolType]bool {
	tools := make(map[catalog.ToolType]bool, 2)
	for _, id := range []*int{p.ToolID, p.WeaponID} {
		if id == nil {
			continue
		}
		if eq, ok := cat.EquipmentByID(*id); ok && eq.ToolType != catalog.ToolNone {
			tools[eq.ToolType] = true
		}
	}
	return tools
}

func loadPlayer(tx *gorm.DB, playerID int64, p *model.Player) error {
	if err := tx.First(p, playerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return gameerr.NotFound("player %d not found", playerID)
		}
		return err
	}
	return nil
}
