// Package catalog holds the immutable game content: resources, equipment,
// biomes, recipes, quests and the animal yield table. It is loaded once at
// startup and only read afterwards.
package catalog

import (
	"fmt"
	"math"
	"sort"
)

// ItemType distinguishes the two kinds of stackable items.
type ItemType = string

const (
	ItemTypeResource  ItemType = "resource"
	ItemTypeEquipment ItemType = "equipment"
)

// Category is the explicit classification of a resource.
type Category string

const (
	CategoryMaterial Category = "material"
	CategoryMineral  Category = "mineral"
	CategoryPlant    Category = "plant"
	CategoryFood     Category = "food"
	CategoryDrink    Category = "drink"
	CategoryAnimal   Category = "animal"
)

// ToolType is the tool class a resource may require and an equipment may provide.
type ToolType string

const (
	ToolNone       ToolType = ""
	ToolAxe        ToolType = "axe"
	ToolPickaxe    ToolType = "pickaxe"
	ToolKnife      ToolType = "knife"
	ToolFishingRod ToolType = "fishing_rod"
	ToolShovel     ToolType = "shovel"
)

// Slot is an equipment slot on the player.
type Slot string

const (
	SlotHelmet     Slot = "helmet"
	SlotChestplate Slot = "chestplate"
	SlotLeggings   Slot = "leggings"
	SlotBoots      Slot = "boots"
	SlotWeapon     Slot = "weapon"
	SlotTool       Slot = "tool"
)

// Slots lists every equipment slot.
var Slots = []Slot{SlotHelmet, SlotChestplate, SlotLeggings, SlotBoots, SlotWeapon, SlotTool}

type Resource struct {
	ID               int      `json:"id"`
	Name             string   `json:"name"`
	Category         Category `json:"category"`
	Weight           float64  `json:"weight"`
	Value            int      `json:"value"`
	ExperienceValue  int      `json:"experience_value"`
	Rarity           string   `json:"rarity"`
	DistanceFromCamp float64  `json:"distance_from_camp"`
	CollectSeconds   int      `json:"collect_seconds"`
	RequiredTool     ToolType `json:"required_tool,omitempty"`
	HungerRestore    float64  `json:"hunger_restore,omitempty"`
	ThirstRestore    float64  `json:"thirst_restore,omitempty"`
}

// Experience is the experience granted per unit. Resources authored without
// an experience value fall back to half their coin value.
func (r *Resource) Experience() int {
	if r.ExperienceValue > 0 {
		return r.ExperienceValue
	}
	return int(math.Floor(float64(r.Value) / 2))
}

// Consumable reports whether eating/drinking the resource restores a vital.
func (r *Resource) Consumable() bool {
	return r.HungerRestore > 0 || r.ThirstRestore > 0
}

// IsAnimal reports whether the resource is processed into parts on return.
func (r *Resource) IsAnimal() bool {
	return r.Category == CategoryAnimal
}

type Equipment struct {
	ID       int      `json:"id"`
	Name     string   `json:"name"`
	Slot     Slot     `json:"slot"`
	ToolType ToolType `json:"tool_type,omitempty"`
	Weight   float64  `json:"weight"`
	Value    int      `json:"value"`
}

type Biome struct {
	ID            int     `json:"id"`
	Name          string  `json:"name"`
	RequiredLevel int     `json:"required_level"`
	MaxDistance   float64 `json:"max_distance"`
	Resources     []int   `json:"resources"`
}

// HasResource reports whether resourceID spawns in the biome.
func (b *Biome) HasResource(resourceID int) bool {
	for _, id := range b.Resources {
		if id == resourceID {
			return true
		}
	}
	return false
}

type Ingredient struct {
	ResourceID int `json:"resource_id"`
	Quantity   int `json:"quantity"`
}

type Recipe struct {
	ID             int          `json:"id"`
	Name           string       `json:"name"`
	ResultType     ItemType     `json:"result_type"`
	ResultID       int          `json:"result_id"`
	ResultQuantity int          `json:"result_quantity"`
	Ingredients    []Ingredient `json:"ingredients"`
	RequiredLevel  int          `json:"required_level"`
}

// ObjectiveType categorizes a quest objective.
type ObjectiveType string

const (
	ObjectiveCollect    ObjectiveType = "collect"
	ObjectiveCraft      ObjectiveType = "craft"
	ObjectiveKill       ObjectiveType = "kill"
	ObjectiveLevel      ObjectiveType = "level"
	ObjectiveExpedition ObjectiveType = "expedition"
)

// Objective is one requirement of a quest. TargetID is a resource, item,
// creature or biome id depending on Type; for level objectives Quantity is
// the level to reach.
type Objective struct {
	Type     ObjectiveType `json:"type"`
	TargetID int           `json:"target_id"`
	Quantity int           `json:"quantity"`
	Label    string        `json:"label,omitempty"`
}

type RewardItem struct {
	ItemType ItemType `json:"item_type"`
	ItemID   int      `json:"item_id"`
	Quantity int      `json:"quantity"`
}

type Rewards struct {
	Experience int64        `json:"experience"`
	Coins      int64        `json:"coins"`
	Items      []RewardItem `json:"items,omitempty"`
}

type Quest struct {
	ID            int         `json:"id"`
	Name          string      `json:"name"`
	Description   string      `json:"description"`
	RequiredLevel int         `json:"required_level"`
	Objectives    []Objective `json:"objectives"`
	Rewards       Rewards     `json:"rewards"`
}

// Yield is one component produced by processing an animal.
type Yield struct {
	ResourceID int `json:"resource_id"`
	Quantity   int `json:"quantity"`
}

// AnimalYield is the fixed part table of one species.
type AnimalYield struct {
	SpeciesID int     `json:"species_id"`
	Parts     []Yield `json:"parts"`
}

// Catalog is the full, read-only content set.
type Catalog struct {
	Resources    map[int]*Resource
	Equipment    map[int]*Equipment
	Biomes       map[int]*Biome
	Recipes      map[int]*Recipe
	Quests       map[int]*Quest
	AnimalYields map[int][]Yield
}

func (c *Catalog) Resource(id int) (*Resource, bool) {
	r, ok := c.Resources[id]
	return r, ok
}

func (c *Catalog) EquipmentByID(id int) (*Equipment, bool) {
	e, ok := c.Equipment[id]
	return e, ok
}

func (c *Catalog) Biome(id int) (*Biome, bool) {
	b, ok := c.Biomes[id]
	return b, ok
}

func (c *Catalog) Recipe(id int) (*Recipe, bool) {
	r, ok := c.Recipes[id]
	return r, ok
}

func (c *Catalog) Quest(id int) (*Quest, bool) {
	q, ok := c.Quests[id]
	return q, ok
}

// ItemWeight returns the unit weight of an item of the given type.
// Unknown items weigh nothing.
func (c *Catalog) ItemWeight(itemType ItemType, id int) float64 {
	switch itemType {
	case ItemTypeEquipment:
		if e, ok := c.Equipment[id]; ok {
			return e.Weight
		}
	default:
		if r, ok := c.Resources[id]; ok {
			return r.Weight
		}
	}
	return 0
}

// ItemExists reports whether the catalog defines the item.
func (c *Catalog) ItemExists(itemType ItemType, id int) bool {
	switch itemType {
	case ItemTypeEquipment:
		_, ok := c.Equipment[id]
		return ok
	case ItemTypeResource:
		_, ok := c.Resources[id]
		return ok
	}
	return false
}

func (c *Catalog) ResourceList() []*Resource   { return sortedValues(c.Resources) }
func (c *Catalog) EquipmentList() []*Equipment { return sortedValues(c.Equipment) }
func (c *Catalog) BiomeList() []*Biome         { return sortedValues(c.Biomes) }
func (c *Catalog) RecipeList() []*Recipe       { return sortedValues(c.Recipes) }
func (c *Catalog) QuestList() []*Quest         { return sortedValues(c.Quests) }

func sortedValues[T any](m map[int]*T) []*T {
	ids := make([]int, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]*T, 0, len(ids))
	for _, id := range ids {
		out = append(out, m[id])
	}
	return out
}

// Validate checks that every cross reference resolves.
func (c *Catalog) Validate() error {
	for _, b := range c.Biomes {
		for _, rid := range b.Resources {
			if _, ok := c.Resources[rid]; !ok {
				return fmt.Errorf("catalog: biome %d references unknown resource %d", b.ID, rid)
			}
		}
	}
	for _, r := range c.Recipes {
		if !c.ItemExists(r.ResultType, r.ResultID) {
			return fmt.Errorf("catalog: recipe %d produces unknown %s %d", r.ID, r.ResultType, r.ResultID)
		}
		if r.ResultQuantity <= 0 {
			return fmt.Errorf("catalog: recipe %d has non-positive result quantity", r.ID)
		}
		for _, ing := range r.Ingredients {
			if _, ok := c.Resources[ing.ResourceID]; !ok {
				return fmt.Errorf("catalog: recipe %d uses unknown resource %d", r.ID, ing.ResourceID)
			}
		}
	}
	for species, parts := range c.AnimalYields {
		r, ok := c.Resources[species]
		if !ok || !r.IsAnimal() {
			return fmt.Errorf("catalog: yield table entry %d is not an animal resource", species)
		}
		for _, p := range parts {
			if _, ok := c.Resources[p.ResourceID]; !ok {
				return fmt.Errorf("catalog: species %d yields unknown resource %d", species, p.ResourceID)
			}
		}
	}
	for _, q := range c.Quests {
		for _, it := range q.Rewards.Items {
			if !c.ItemExists(it.ItemType, it.ItemID) {
				return fmt.Errorf("catalog: quest %d rewards unknown %s %d", q.ID, it.ItemType, it.ItemID)
			}
		}
	}
	for id := range c.Resources {
		if _, clash := c.Equipment[id]; clash {
			return fmt.Errorf("catalog: item id %d used by both a resource and an equipment", id)
		}
	}
	return nil
}
