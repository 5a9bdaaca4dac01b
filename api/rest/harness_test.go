package rest_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/survivalcamp/api/rest"
	"github.com/kasuganosora/survivalcamp/audit"
	"github.com/kasuganosora/survivalcamp/cache"
	"github.com/kasuganosora/survivalcamp/catalog"
	"github.com/kasuganosora/survivalcamp/config"
	"github.com/kasuganosora/survivalcamp/game/craft"
	"github.com/kasuganosora/survivalcamp/game/event"
	"github.com/kasuganosora/survivalcamp/game/expedition"
	"github.com/kasuganosora/survivalcamp/game/item"
	"github.com/kasuganosora/survivalcamp/game/player"
	"github.com/kasuganosora/survivalcamp/game/playerlock"
	"github.com/kasuganosora/survivalcamp/game/quest"
	"github.com/kasuganosora/survivalcamp/game/ranking"
	mw "github.com/kasuganosora/survivalcamp/middleware"
	"github.com/kasuganosora/survivalcamp/scheduler"
	"github.com/kasuganosora/survivalcamp/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const adminKey = "test-admin"

// luckyRand always succeeds and always picks the first candidate.
type luckyRand struct{}

func (luckyRand) Float64() float64 { return 0 }
func (luckyRand) IntN(int) int     { return 0 }

type server struct {
	r     *gin.Engine
	db    *gorm.DB
	cache cache.Cache
	audit *audit.Service
	cfg   *config.Config
}

func testConfig() *config.Config {
	return &config.Config{
		Server:   config.ServerConfig{AdminKey: adminKey},
		Game:     config.DefaultGame(),
		Security: config.SecurityConfig{JWTSecret: "test-secret", JWTTTLH: 72 * time.Hour},
	}
}

func newServer(t *testing.T) *server {
	return newServerWithConfig(t, testConfig())
}

func newServerWithConfig(t *testing.T, cfg *config.Config) *server {
	t.Helper()
	db := testutil.SetupTestDB(t)
	c, ps := testutil.SetupTestCache(t)
	logger := zap.NewNop()

	cat := catalog.Default()
	locks := playerlock.New()
	store := item.NewStore(cat)
	bus := event.NewBus(logger)
	sched := scheduler.New(logger)
	t.Cleanup(sched.Stop)
	auditSvc := audit.New(db, logger)
	t.Cleanup(func() { auditSvc.Stop(context.Background()) })

	players := player.NewService(db, cat, store, locks, cfg.Game, logger)
	engine := expedition.NewEngine(db, cat, store, expedition.NewGormStore(db), locks, bus, cfg.Game, logger,
		expedition.WithRand(luckyRand{}), expedition.WithDelayer(sched))
	players.OnReset(engine.ResetPlayer)
	quests := quest.NewService(db, cat, store, locks, bus, cfg.Game, logger)
	quests.Attach(bus)
	board := ranking.NewBoard(db, c, logger)
	board.Attach(bus)
	fwd := event.NewForwarder(ps, c, logger)
	fwd.Attach(bus)

	r := gin.New()
	r.Use(mw.TraceID())
	rest.Register(r, rest.Deps{
		Config:    cfg,
		DB:        db,
		Cache:     c,
		Views:     cache.NewStore(c, time.Minute, time.Minute, logger),
		Catalog:   cat,
		Players:   players,
		Items:     item.NewService(db, cat, store, locks, logger),
		Engine:    engine,
		Quests:    quests,
		Crafter:   craft.NewService(db, cat, store, locks, bus, logger),
		Board:     board,
		Forwarder: fwd,
		Scheduler: sched,
		Audit:     auditSvc,
		Logger:    logger,
	})
	return &server{r: r, db: db, cache: c, audit: auditSvc, cfg: cfg}
}

// do sends a JSON request. headers are name/value pairs.
func (s *server) do(method, path, token string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	s.r.ServeHTTP(w, req)
	return w
}

// login registers (or logs in) username and returns its token and id.
func (s *server) login(t *testing.T, username string) (string, int64) {
	t.Helper()
	w := s.do(http.MethodPost, "/api/auth/login", "", map[string]string{"username": username, "password": "pass1234"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		Token    string `json:"token"`
		PlayerID int64  `json:"player_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Token, resp.PlayerID
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func playerPath(id int64, suffix string) string {
	return fmt.Sprintf("/api/players/%d%s", id, suffix)
}
