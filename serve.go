package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/survivalcamp/api/rest"
	"github.com/kasuganosora/survivalcamp/api/sse"
	"github.com/kasuganosora/survivalcamp/api/ws"
	"github.com/kasuganosora/survivalcamp/audit"
	"github.com/kasuganosora/survivalcamp/cache"
	"github.com/kasuganosora/survivalcamp/catalog"
	"github.com/kasuganosora/survivalcamp/config"
	dbadapter "github.com/kasuganosora/survivalcamp/db"
	"github.com/kasuganosora/survivalcamp/game/craft"
	"github.com/kasuganosora/survivalcamp/game/event"
	"github.com/kasuganosora/survivalcamp/game/expedition"
	"github.com/kasuganosora/survivalcamp/game/item"
	"github.com/kasuganosora/survivalcamp/game/player"
	"github.com/kasuganosora/survivalcamp/game/playerlock"
	"github.com/kasuganosora/survivalcamp/game/quest"
	"github.com/kasuganosora/survivalcamp/game/ranking"
	mw "github.com/kasuganosora/survivalcamp/middleware"
	"github.com/kasuganosora/survivalcamp/model"
	"github.com/kasuganosora/survivalcamp/scheduler"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var port int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP game server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (overrides server.port)")
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func loadCatalog(cfg config.CatalogConfig) (*catalog.Catalog, error) {
	if cfg.DataPath == "" {
		return catalog.Default(), nil
	}
	return catalog.Load(cfg.DataPath)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if port != 0 {
		cfg.Server.Port = port
	}

	logger, err := newLogger(cfg.Server.Debug)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer logger.Sync()

	if cfg.Server.AdminKey == "" {
		logger.Warn("server.admin_key is not set; debug endpoints are disabled")
	}

	// ---- Database ----
	db, err := dbadapter.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("db: %w", err)
	}
	if err := model.AutoMigrate(db); err != nil {
		return fmt.Errorf("db migrate: %w", err)
	}
	logger.Info("DB initialized", zap.String("mode", cfg.Database.Mode))

	// ---- Cache / PubSub ----
	c, err := cache.NewCache(cfg.Cache)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	pubsub, err := cache.NewPubSub(cfg.Cache)
	if err != nil {
		return fmt.Errorf("pubsub: %w", err)
	}
	views := cache.NewStore(c, cfg.Cache.PlayerTTL, cfg.Cache.CatalogTTL, logger)
	logger.Info("Cache initialized", zap.Bool("redis", cfg.Cache.RedisAddr != ""))

	// ---- Catalog ----
	cat, err := loadCatalog(cfg.Catalog)
	if err != nil {
		return fmt.Errorf("catalog: %w", err)
	}
	logger.Info("Catalog loaded",
		zap.Int("resources", len(cat.Resources)),
		zap.Int("biomes", len(cat.Biomes)),
		zap.Int("recipes", len(cat.Recipes)),
		zap.Int("quests", len(cat.Quests)))

	// ---- Scheduler / Audit ----
	sched := scheduler.New(logger)
	defer sched.Stop()
	auditSvc := audit.New(db, logger)
	defer auditSvc.Stop(context.Background())

	// ---- Game services ----
	locks := playerlock.New()
	items := item.NewStore(cat)
	bus := event.NewBus(logger)

	var expStore expedition.Store = expedition.NewGormStore(db)
	if cfg.Game.ExpeditionStore == "redis" {
		expStore = expedition.NewCacheStore(c)
	}

	players := player.NewService(db, cat, items, locks, cfg.Game, logger)
	engine := expedition.NewEngine(db, cat, items, expStore, locks, bus, cfg.Game, logger,
		expedition.WithDelayer(sched))
	players.OnReset(engine.ResetPlayer)

	quests := quest.NewService(db, cat, items, locks, bus, cfg.Game, logger)
	quests.Attach(bus)
	board := ranking.NewBoard(db, c, logger)
	board.Attach(bus)
	fwd := event.NewForwarder(pubsub, c, logger)
	fwd.Attach(bus)
	crafter := craft.NewService(db, cat, items, locks, bus, logger)

	// ---- Periodic tasks ----
	if cfg.Game.ExpeditionSweep > 0 {
		sched.AddTicker("expedition_sweep", cfg.Game.ExpeditionSweep, func(ctx context.Context) {
			n, err := engine.Sweep(ctx)
			if err != nil {
				logger.Warn("expedition sweep failed", zap.Error(err))
				return
			}
			if n > 0 {
				logger.Info("expired expeditions removed", zap.Int("count", n))
			}
		})
	}
	sched.AddTicker("ranking_rebuild", 10*time.Minute, func(ctx context.Context) {
		if _, err := board.Rebuild(ctx); err != nil {
			logger.Warn("ranking rebuild failed", zap.Error(err))
		}
	})
	if _, err := board.Rebuild(context.Background()); err != nil {
		logger.Warn("initial ranking rebuild failed", zap.Error(err))
	}

	// ---- HTTP ----
	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(mw.TraceID(), mw.Logger(logger), mw.Recovery(logger))
	if cfg.Security.RateLimitRPS > 0 {
		r.Use(mw.RateLimit(rate.Limit(cfg.Security.RateLimitRPS), cfg.Security.RateLimitBurst, mw.ByIP))
	}

	rest.Register(r, rest.Deps{
		Config:    cfg,
		DB:        db,
		Cache:     c,
		Views:     views,
		Catalog:   cat,
		Players:   players,
		Items:     item.NewService(db, cat, items, locks, logger),
		Engine:    engine,
		Quests:    quests,
		Crafter:   crafter,
		Board:     board,
		Forwarder: fwd,
		Scheduler: sched,
		Audit:     auditSvc,
		Logger:    logger,
	})
	sseH := sse.NewHandler(pubsub, c, cfg.Security, logger)
	r.GET("/sse", sseH.ServeSSE)
	wsH := ws.NewHandler(c, pubsub, cfg.Security, engine, views, logger)
	r.GET("/ws", wsH.ServeWS)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
	case err := <-errChan:
		return fmt.Errorf("server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
		return err
	}
	logger.Info("Server stopped")
	return nil
}
