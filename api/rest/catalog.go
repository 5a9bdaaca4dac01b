package rest

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/survivalcamp/cache"
	"github.com/kasuganosora/survivalcamp/catalog"
)

// CatalogHandler serves the read-only game content.
type CatalogHandler struct {
	cat   *catalog.Catalog
	views *cache.Store
}

// NewCatalogHandler creates a CatalogHandler.
func NewCatalogHandler(cat *catalog.Catalog, views *cache.Store) *CatalogHandler {
	return &CatalogHandler{cat: cat, views: views}
}

func (h *CatalogHandler) serve(name string, list func() interface{}) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := cache.LoadCatalog(c.Request.Context(), h.views, name,
			func(context.Context) (json.RawMessage, error) {
				return json.Marshal(list())
			})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{name: raw})
	}
}

// Resources handles GET /api/catalog/resources.
func (h *CatalogHandler) Resources() gin.HandlerFunc {
	return h.serve("resources", func() interface{} { return h.cat.ResourceList() })
}

// Biomes handles GET /api/catalog/biomes.
func (h *CatalogHandler) Biomes() gin.HandlerFunc {
	return h.serve("biomes", func() interface{} { return h.cat.BiomeList() })
}

// Equipment handles GET /api/catalog/equipment.
func (h *CatalogHandler) Equipment() gin.HandlerFunc {
	return h.serve("equipment", func() interface{} { return h.cat.EquipmentList() })
}

// Recipes handles GET /api/catalog/recipes.
func (h *CatalogHandler) Recipes() gin.HandlerFunc {
	return h.serve("recipes", func() interface{} { return h.cat.RecipeList() })
}

// Quests handles GET /api/catalog/quests.
func (h *CatalogHandler) Quests() gin.HandlerFunc {
	return h.serve("quests", func() interface{} { return h.cat.QuestList() })
}
