package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Load reads a catalog from JSON files in dir:
// resources.json, equipment.json, biomes.json, recipes.json, quests.json and
// animal_yields.json. Every file holds a JSON array. Missing files are treated
// as empty, and the result is validated before it is returned.
func Load(dir string) (*Catalog, error) {
	var (
		resources []*Resource
		equipment []*Equipment
		biomes    []*Biome
		recipes   []*Recipe
		quests    []*Quest
		yields    []AnimalYield
	)
	files := []struct {
		name string
		dst  interface{}
	}{
		{"resources.json", &resources},
		{"equipment.json", &equipment},
		{"biomes.json", &biomes},
		{"recipes.json", &recipes},
		{"quests.json", &quests},
		{"animal_yields.json", &yields},
	}
	for _, f := range files {
		if err := loadJSON(filepath.Join(dir, f.name), f.dst); err != nil {
			return nil, err
		}
	}

	c := &Catalog{
		Resources:    make(map[int]*Resource, len(resources)),
		Equipment:    make(map[int]*Equipment, len(equipment)),
		Biomes:       make(map[int]*Biome, len(biomes)),
		Recipes:      make(map[int]*Recipe, len(recipes)),
		Quests:       make(map[int]*Quest, len(quests)),
		AnimalYields: make(map[int][]Yield, len(yields)),
	}
	for _, r := range resources {
		c.Resources[r.ID] = r
	}
	for _, e := range equipment {
		c.Equipment[e.ID] = e
	}
	for _, b := range biomes {
		c.Biomes[b.ID] = b
	}
	for _, r := range recipes {
		c.Recipes[r.ID] = r
	}
	for _, q := range quests {
		c.Quests[q.ID] = q
	}
	for _, y := range yields {
		c.AnimalYields[y.SpeciesID] = y.Parts
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func loadJSON(path string, dst interface{}) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("catalog: read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("catalog: parse %s: %w", path, err)
	}
	return nil
}
