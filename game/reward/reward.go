// Package reward settles what a finished expedition is worth: animal
// carcasses become parts, and the final haul is priced in experience and
// coins.
package reward

import (
	"math"
	"sort"

	"github.com/kasuganosora/survivalcamp/catalog"
)

// ProcessAnimals replaces every animal that has a yield table with its
// parts. Other resources pass through. hunted counts the processed animals
// by species.
func ProcessAnimals(cat *catalog.Catalog, collected map[int]int) (processed, hunted map[int]int) {
	processed = make(map[int]int, len(collected))
	hunted = make(map[int]int)
	for id, qty := range collected {
		if qty <= 0 {
			continue
		}
		r, ok := cat.Resource(id)
		parts, hasYield := cat.AnimalYields[id]
		if !ok || !r.IsAnimal() || !hasYield {
			processed[id] += qty
			continue
		}
		hunted[id] += qty
		for _, part := range parts {
			processed[part.ResourceID] += part.Quantity * qty
		}
	}
	return processed, hunted
}

// Delta returns processed minus raw for every resource where they differ.
// Positive entries are new parts to grant; negative entries are carcasses
// consumed by processing.
func Delta(raw, processed map[int]int) map[int]int {
	out := make(map[int]int)
	for id, qty := range processed {
		if d := qty - raw[id]; d != 0 {
			out[id] = d
		}
	}
	for id, qty := range raw {
		if _, ok := processed[id]; !ok && qty != 0 {
			out[id] = -qty
		}
	}
	return out
}

// Experience sums the per-unit experience of every resource in m.
func Experience(cat *catalog.Catalog, m map[int]int) int64 {
	var total int64
	for id, qty := range m {
		if r, ok := cat.Resource(id); ok {
			total += int64(r.Experience()) * int64(qty)
		}
	}
	return total
}

// Coins is floor(ratio × Σ value × quantity).
func Coins(cat *catalog.Catalog, m map[int]int, ratio float64) int64 {
	var value int64
	for id, qty := range m {
		if r, ok := cat.Resource(id); ok {
			value += int64(r.Value) * int64(qty)
		}
	}
	return int64(math.Floor(float64(value)*ratio + 1e-9))
}

// SortedIDs returns the keys of m in ascending order.
func SortedIDs(m map[int]int) []int {
	ids := make([]int, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
