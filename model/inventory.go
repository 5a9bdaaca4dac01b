package model

import "time"

// InventoryItem is one item stack carried by a player. Carried weight is
// capped by Player.MaxInventoryWeight. Quantity is always positive; empty
// stacks are deleted.
type InventoryItem struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	PlayerID  int64     `gorm:"index:idx_player_inventory;not null" json:"player_id"`
	ItemID    int       `gorm:"not null" json:"item_id"`
	ItemType  string    `gorm:"size:16;not null" json:"item_type"`
	Quantity  int       `gorm:"not null" json:"quantity"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// StorageItem is one item stack kept at camp. Storage is unbounded.
type StorageItem struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	PlayerID  int64     `gorm:"index:idx_player_storage;not null" json:"player_id"`
	ItemID    int       `gorm:"not null" json:"item_id"`
	ItemType  string    `gorm:"size:16;not null" json:"item_type"`
	Quantity  int       `gorm:"not null" json:"quantity"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
