// Package item owns the two per-player item collections: the weight-capped
// inventory and the unbounded camp storage.
package item

import (
	"errors"
	"math"

	"github.com/kasuganosora/survivalcamp/catalog"
	"github.com/kasuganosora/survivalcamp/gameerr"
	"github.com/kasuganosora/survivalcamp/model"
	"gorm.io/gorm"
)

// Store mutates inventory and storage rows. Every method runs on the
// caller's transaction; the caller holds the player lock.
type Store struct {
	cat *catalog.Catalog
}

// NewStore creates a Store.
func NewStore(cat *catalog.Catalog) *Store {
	return &Store{cat: cat}
}

// Stack identifies an item and an amount of it.
type Stack struct {
	ItemType string `json:"item_type"`
	ItemID   int    `json:"item_id"`
	Quantity int    `json:"quantity"`
}

func (s *Store) checkItem(itemType string, itemID, qty int) error {
	if qty <= 0 {
		return gameerr.Validation("quantity must be positive, got %d", qty)
	}
	if !s.cat.ItemExists(itemType, itemID) {
		return gameerr.NotFound("%s %d not found", itemType, itemID)
	}
	return nil
}

// AddInventory merges qty of the item into the player's inventory and
// recomputes the carried weight. Capacity is the caller's concern.
func (s *Store) AddInventory(tx *gorm.DB, playerID int64, itemType string, itemID, qty int) error {
	if err := s.checkItem(itemType, itemID, qty); err != nil {
		return err
	}
	if err := addRow(tx, &model.InventoryItem{PlayerID: playerID, ItemType: itemType, ItemID: itemID, Quantity: qty}); err != nil {
		return err
	}
	_, err := s.RecalculateWeight(tx, playerID)
	return err
}

// RemoveInventory takes qty of the item out of the inventory.
func (s *Store) RemoveInventory(tx *gorm.DB, playerID int64, itemType string, itemID, qty int) error {
	if qty <= 0 {
		return gameerr.Validation("quantity must be positive, got %d", qty)
	}
	if err := removeRow[model.InventoryItem](tx, playerID, itemType, itemID, qty); err != nil {
		return err
	}
	_, err := s.RecalculateWeight(tx, playerID)
	return err
}

// AddStorage merges qty of the item into the player's storage.
func (s *Store) AddStorage(tx *gorm.DB, playerID int64, itemType string, itemID, qty int) error {
	if err := s.checkItem(itemType, itemID, qty); err != nil {
		return err
	}
	return addRow(tx, &model.StorageItem{PlayerID: playerID, ItemType: itemType, ItemID: itemID, Quantity: qty})
}

// RemoveStorage takes qty of the item out of storage.
func (s *Store) RemoveStorage(tx *gorm.DB, playerID int64, itemType string, itemID, qty int) error {
	if qty <= 0 {
		return gameerr.Validation("quantity must be positive, got %d", qty)
	}
	return removeRow[model.StorageItem](tx, playerID, itemType, itemID, qty)
}

// MoveToStorage moves qty of an inventory stack to storage.
func (s *Store) MoveToStorage(tx *gorm.DB, playerID int64, itemType string, itemID, qty int) error {
	if err := s.RemoveInventory(tx, playerID, itemType, itemID, qty); err != nil {
		return err
	}
	return s.AddStorage(tx, playerID, itemType, itemID, qty)
}

// MoveToInventory moves qty of a storage stack into the inventory if it fits.
func (s *Store) MoveToInventory(tx *gorm.DB, playerID int64, itemType string, itemID, qty int) error {
	if err := s.checkItem(itemType, itemID, qty); err != nil {
		return err
	}
	var p model.Player
	if err := tx.Select("id", "inventory_weight", "max_inventory_weight").First(&p, playerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return gameerr.NotFound("player %d not found", playerID)
		}
		return err
	}
	need := s.cat.ItemWeight(itemType, itemID) * float64(qty)
	if !Fits(&p, need) {
		return gameerr.InvalidOperation("not enough carry capacity: %.1f of %.1f used, %.1f needed",
			p.InventoryWeight, p.MaxInventoryWeight, need)
	}
	if err := s.RemoveStorage(tx, playerID, itemType, itemID, qty); err != nil {
		return err
	}
	return s.AddInventory(tx, playerID, itemType, itemID, qty)
}

// Deposit puts qty into the inventory, spilling whatever does not fit into
// storage. It returns how many units landed in each.
func (s *Store) Deposit(tx *gorm.DB, p *model.Player, itemType string, itemID, qty int) (inInventory, inStorage int, err error) {
	if err := s.checkItem(itemType, itemID, qty); err != nil {
		return 0, 0, err
	}
	unit := s.cat.ItemWeight(itemType, itemID)
	inInventory = qty
	if unit > 0 {
		free := p.MaxInventoryWeight - p.InventoryWeight
		fit := int(math.Floor(free/unit + 1e-9))
		if fit < 0 {
			fit = 0
		}
		if fit < inInventory {
			inInventory = fit
		}
	}
	inStorage = qty - inInventory
	if inInventory > 0 {
		if err := s.AddInventory(tx, p.ID, itemType, itemID, inInventory); err != nil {
			return 0, 0, err
		}
		p.InventoryWeight += unit * float64(inInventory)
	}
	if inStorage > 0 {
		if err := s.AddStorage(tx, p.ID, itemType, itemID, inStorage); err != nil {
			return 0, 0, err
		}
	}
	return inInventory, inStorage, nil
}

// InventoryQuantity returns how many units of the item the player carries.
func (s *Store) InventoryQuantity(tx *gorm.DB, playerID int64, itemType string, itemID int) (int, error) {
	return quantity[model.InventoryItem](tx, playerID, itemType, itemID)
}

// StorageQuantity returns how many units of the item the player has stored.
func (s *Store) StorageQuantity(tx *gorm.DB, playerID int64, itemType string, itemID int) (int, error) {
	return quantity[model.StorageItem](tx, playerID, itemType, itemID)
}

// ListInventory returns the player's inventory rows ordered by item.
func (s *Store) ListInventory(tx *gorm.DB, playerID int64) ([]model.InventoryItem, error) {
	var items []model.InventoryItem
	err := tx.Where("player_id = ?", playerID).Order("item_type, item_id").Find(&items).Error
	return items, err
}

// ListStorage returns the player's storage rows ordered by item.
func (s *Store) ListStorage(tx *gorm.DB, playerID int64) ([]model.StorageItem, error) {
	var items []model.StorageItem
	err := tx.Where("player_id = ?", playerID).Order("item_type, item_id").Find(&items).Error
	return items, err
}

// Weight sums weight × quantity over inventory rows.
func (s *Store) Weight(items []model.InventoryItem) float64 {
	var total float64
	for _, it := range items {
		total += s.cat.ItemWeight(it.ItemType, it.ItemID) * float64(it.Quantity)
	}
	return math.Round(total*1000) / 1000
}

// RecalculateWeight recomputes inventory_weight from the inventory rows and
// stores it on the player.
func (s *Store) RecalculateWeight(tx *gorm.DB, playerID int64) (float64, error) {
	items, err := s.ListInventory(tx, playerID)
	if err != nil {
		return 0, err
	}
	w := s.Weight(items)
	err = tx.Model(&model.Player{}).Where("id = ?", playerID).Update("inventory_weight", w).Error
	return w, err
}

// ClearAll deletes every inventory and storage row of the player.
func (s *Store) ClearAll(tx *gorm.DB, playerID int64) error {
	if err := tx.Where("player_id = ?", playerID).Delete(&model.InventoryItem{}).Error; err != nil {
		return err
	}
	if err := tx.Where("player_id = ?", playerID).Delete(&model.StorageItem{}).Error; err != nil {
		return err
	}
	_, err := s.RecalculateWeight(tx, playerID)
	return err
}

// Fits reports whether extra weight fits in the player's remaining capacity.
func Fits(p *model.Player, extra float64) bool {
	return p.InventoryWeight+extra <= p.MaxInventoryWeight+1e-9
}

type row interface {
	model.InventoryItem | model.StorageItem
}

func addRow[T row](tx *gorm.DB, fresh *T) error {
	var (
		playerID int64
		itemType string
		itemID   int
		qty      int
	)
	switch r := any(fresh).(type) {
	case *model.InventoryItem:
		playerID, itemType, itemID, qty = r.PlayerID, r.ItemType, r.ItemID, r.Quantity
	case *model.StorageItem:
		playerID, itemType, itemID, qty = r.PlayerID, r.ItemType, r.ItemID, r.Quantity
	}
	res := tx.Model(new(T)).
		Where("player_id = ? AND item_type = ? AND item_id = ?", playerID, itemType, itemID).
		Update("quantity", gorm.Expr("quantity + ?", qty))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}
	return tx.Create(fresh).Error
}

func removeRow[T row](tx *gorm.DB, playerID int64, itemType string, itemID, qty int) error {
	have, err := quantity[T](tx, playerID, itemType, itemID)
	if err != nil {
		return err
	}
	if have < qty {
		return gameerr.InsufficientResources("need %d of %s %d, have %d", qty, itemType, itemID, have)
	}
	where := tx.Where("player_id = ? AND item_type = ? AND item_id = ?", playerID, itemType, itemID)
	if have == qty {
		return where.Delete(new(T)).Error
	}
	return where.Model(new(T)).Update("quantity", gorm.Expr("quantity - ?", qty)).Error
}

func quantity[T row](tx *gorm.DB, playerID int64, itemType string, itemID int) (int, error) {
	var total int64
	err := tx.Model(new(T)).
		Where("player_id = ? AND item_type = ? AND item_id = ?", playerID, itemType, itemID).
		Select("COALESCE(SUM(quantity), 0)").Scan(&total).Error
	return int(total), err
}
