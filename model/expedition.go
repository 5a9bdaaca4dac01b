package model

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// ExpeditionStatus is the lifecycle state of an expedition.
type ExpeditionStatus = string

const (
	ExpeditionActive    ExpeditionStatus = "active"
	ExpeditionCompleted ExpeditionStatus = "completed"
	ExpeditionCancelled ExpeditionStatus = "cancelled"
)

// Why an expedition turned back on its own.
const (
	ReturnInventoryFull = "inventory_full"
	ReturnHungerLow     = "hunger_low"
	ReturnThirstLow     = "thirst_low"
)

// Expedition is a timed resource-gathering session in one biome.
type Expedition struct {
	ID                 string         `gorm:"primaryKey;size:36" json:"id"`
	PlayerID           int64          `gorm:"index:idx_player_expedition;not null" json:"player_id"`
	BiomeID            int            `gorm:"not null" json:"biome_id"`
	SelectedResources  datatypes.JSON `json:"selected_resources"`  // [1, 10]
	CollectedResources datatypes.JSON `json:"collected_resources"` // {"10": 3}
	Status             string         `gorm:"size:16;index:idx_expedition_status;not null" json:"status"`
	CurrentDistance    float64        `gorm:"default:0" json:"current_distance"`
	Returning          bool           `gorm:"default:false" json:"returning"`
	ReturnReason       string         `gorm:"size:32" json:"return_reason,omitempty"`
	Ticks              int            `gorm:"default:0" json:"ticks"`
	ExperienceGained   int64          `gorm:"default:0" json:"experience_gained"`
	CoinsGained        int64          `gorm:"default:0" json:"coins_gained"`
	StartedAt          time.Time      `json:"started_at"`
	CompletedAt        *time.Time     `json:"completed_at"`
	// ActiveSlot holds PlayerID while the expedition is active and NULL
	// otherwise; its unique index allows one active expedition per player.
	ActiveSlot *int64 `gorm:"uniqueIndex:idx_expedition_active_slot" json:"-"`
}

// ClaimSlot sets ActiveSlot from Status.
func (e *Expedition) ClaimSlot() {
	if e.Status == ExpeditionActive {
		id := e.PlayerID
		e.ActiveSlot = &id
		return
	}
	e.ActiveSlot = nil
}

// Selected decodes SelectedResources.
func (e *Expedition) Selected() []int {
	var ids []int
	_ = json.Unmarshal(e.SelectedResources, &ids)
	return ids
}

// SetSelected encodes ids into SelectedResources.
func (e *Expedition) SetSelected(ids []int) {
	if ids == nil {
		ids = []int{}
	}
	data, _ := json.Marshal(ids)
	e.SelectedResources = datatypes.JSON(data)
}

// Collected decodes CollectedResources. The result is never nil.
func (e *Expedition) Collected() map[int]int {
	out := make(map[int]int)
	_ = json.Unmarshal(e.CollectedResources, &out)
	return out
}

// SetCollected encodes m into CollectedResources.
func (e *Expedition) SetCollected(m map[int]int) {
	if m == nil {
		m = map[int]int{}
	}
	data, _ := json.Marshal(m)
	e.CollectedResources = datatypes.JSON(data)
}
