package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/survivalcamp/audit"
	"github.com/kasuganosora/survivalcamp/cache"
	"github.com/kasuganosora/survivalcamp/catalog"
	"github.com/kasuganosora/survivalcamp/config"
	"github.com/kasuganosora/survivalcamp/game/craft"
	"github.com/kasuganosora/survivalcamp/game/event"
	"github.com/kasuganosora/survivalcamp/game/expedition"
	"github.com/kasuganosora/survivalcamp/game/item"
	"github.com/kasuganosora/survivalcamp/game/player"
	"github.com/kasuganosora/survivalcamp/game/quest"
	"github.com/kasuganosora/survivalcamp/game/ranking"
	mw "github.com/kasuganosora/survivalcamp/middleware"
	"github.com/kasuganosora/survivalcamp/scheduler"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

// Deps is everything the REST routes need.
type Deps struct {
	Config    *config.Config
	DB        *gorm.DB
	Cache     cache.Cache
	Views     *cache.Store
	Catalog   *catalog.Catalog
	Players   *player.Service
	Items     *item.Service
	Engine    *expedition.Engine
	Quests    *quest.Service
	Crafter   *craft.Service
	Board     *ranking.Board
	Forwarder *event.Forwarder
	Scheduler *scheduler.Scheduler
	Audit     *audit.Service
	Logger    *zap.Logger
}

// Register mounts /health and every /api route on r.
func Register(r *gin.Engine, d Deps) {
	sec := d.Config.Security

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":         "ok",
			"tickers":        d.Scheduler.ListTickers(),
			"pending_delays": d.Scheduler.PendingDelays(),
		})
	})

	authH := NewAuthHandler(d.Players, d.Cache, sec, d.Logger)
	playerH := NewPlayerHandler(d.Players, d.Items, d.Views)
	invH := NewInventoryHandler(d.Items, d.Views)
	expH := NewExpeditionHandler(d.Engine, d.Views)
	questH := NewQuestHandler(d.Quests, d.Views)
	craftH := NewCraftHandler(d.Crafter, d.Views)
	catH := NewCatalogHandler(d.Catalog, d.Views)
	rankH := NewRankingHandler(d.Board)
	eventsH := NewEventsHandler(d.Forwarder)
	adminH := NewAdminHandler(d.DB, d.Players, d.Quests, d.Board, d.Forwarder, d.Views, d.Scheduler, d.Logger)

	auth := mw.Auth(sec, d.Cache)
	protected := []gin.HandlerFunc{auth}
	if sec.RateLimitRPS > 0 {
		protected = append(protected, mw.RateLimit(rate.Limit(sec.RateLimitRPS), sec.RateLimitBurst, mw.ByPlayer))
	}
	if d.Audit != nil {
		protected = append(protected, mw.Audit(d.Audit))
	}

	api := r.Group("/api")
	{
		authG := api.Group("/auth")
		authG.POST("/login", authH.Login)
		authG.POST("/logout", auth, authH.Logout)
		authG.POST("/refresh", auth, authH.Refresh)

		playersG := api.Group("/players/:id")
		playersG.Use(protected...)
		playersG.Use(mw.SelfOnly())
		playersG.GET("", playerH.Get)
		playersG.PUT("/settings", playerH.UpdateSettings)
		playersG.POST("/consume", playerH.Consume)
		playersG.POST("/equip", playerH.Equip)
		playersG.POST("/unequip", playerH.Unequip)
		playersG.GET("/inventory", invH.Inventory)
		playersG.GET("/storage", invH.Storage)
		playersG.POST("/inventory/move", invH.Move)
		playersG.POST("/expeditions", expH.Start)
		playersG.GET("/expeditions/active", expH.Active)
		playersG.GET("/quests", questH.List)
		playersG.POST("/quests/:qid/start", questH.Start)
		playersG.POST("/quests/:qid/check", questH.Check)
		playersG.POST("/quests/:qid/complete", questH.Complete)
		playersG.POST("/quests/:qid/cancel", questH.Cancel)
		playersG.POST("/craft", craftH.Craft)
		playersG.GET("/events", eventsH.Recent)

		expG := api.Group("/expeditions/:eid")
		expG.Use(protected...)
		expG.GET("", expH.Get)
		expG.POST("/tick", expH.Tick)
		expG.POST("/complete", expH.Complete)
		expG.POST("/cancel", expH.Cancel)

		catG := api.Group("/catalog")
		catG.GET("/resources", catH.Resources())
		catG.GET("/biomes", catH.Biomes())
		catG.GET("/equipment", catH.Equipment())
		catG.GET("/recipes", catH.Recipes())
		catG.GET("/quests", catH.Quests())

		api.GET("/leaderboard", rankH.Top)

		debugG := api.Group("/debug")
		debugG.Use(mw.IPWhitelist(d.Config.Server.DebugAllowedIPs), AdminAuth(d.Config.Server.AdminKey))
		debugG.POST("/players/:id/reset", adminH.ResetPlayer)
		debugG.POST("/players/:id/quests/:qid/reset", adminH.ResetQuest)
		debugG.POST("/players/:id/ban", adminH.BanPlayer)
		debugG.POST("/ranking/rebuild", adminH.RebuildRanking)
		debugG.GET("/scheduler", adminH.ListSchedulerTasks)
	}
}
