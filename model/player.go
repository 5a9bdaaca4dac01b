package model

import "time"

// Where crafted items are delivered.
const (
	DestinationInventory = "inventory"
	DestinationStorage   = "storage"
)

// Player is the mutable state of one player: vitals, progression, carry
// capacity, equipped items and settings.
type Player struct {
	ID                 int64   `gorm:"primaryKey;autoIncrement" json:"id"`
	Username           string  `gorm:"uniqueIndex;size:32;not null" json:"username"`
	PasswordHash       string  `gorm:"size:64;not null" json:"-"`
	Status             int     `gorm:"default:1" json:"status"` // 0=banned 1=normal
	Level              int     `gorm:"default:1" json:"level"`
	Experience         int64   `gorm:"default:0" json:"experience"`
	Coins              int64   `gorm:"default:0" json:"coins"`
	Hunger             float64 `gorm:"not null" json:"hunger"`
	Thirst             float64 `gorm:"not null" json:"thirst"`
	MaxHunger          float64 `gorm:"not null" json:"max_hunger"`
	MaxThirst          float64 `gorm:"not null" json:"max_thirst"`
	InventoryWeight    float64 `gorm:"default:0" json:"inventory_weight"`
	MaxInventoryWeight float64 `gorm:"not null" json:"max_inventory_weight"`

	HelmetID     *int `json:"helmet_id"`
	ChestplateID *int `json:"chestplate_id"`
	LeggingsID   *int `json:"leggings_id"`
	BootsID      *int `json:"boots_id"`
	WeaponID     *int `json:"weapon_id"`
	ToolID       *int `json:"tool_id"`

	AutoStorage             bool   `gorm:"default:false" json:"auto_storage"`
	AutoCompleteQuests      bool   `gorm:"default:false" json:"auto_complete_quests"`
	CraftedItemsDestination string `gorm:"size:16;default:inventory" json:"crafted_items_destination"`

	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	LastLoginAt *time.Time `json:"last_login_at"`
}

// ClampVitals keeps hunger and thirst inside [0, max].
func (p *Player) ClampVitals() {
	p.Hunger = clamp(p.Hunger, 0, p.MaxHunger)
	p.Thirst = clamp(p.Thirst, 0, p.MaxThirst)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// SlotColumn returns the players column holding the given equipment slot.
func SlotColumn(slot string) string {
	return slot + "_id"
}

// Equipped returns the pointer field backing slot, or nil for an unknown slot.
func (p *Player) Equipped(slot string) **int {
	switch slot {
	case "helmet":
		return &p.HelmetID
	case "chestplate":
		return &p.ChestplateID
	case "leggings":
		return &p.LeggingsID
	case "boots":
		return &p.BootsID
	case "weapon":
		return &p.WeaponID
	case "tool":
		return &p.ToolID
	}
	return nil
}
