package rest_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/kasuganosora/survivalcamp/catalog"
	"github.com/kasuganosora/survivalcamp/model"
	"github.com/kasuganosora/survivalcamp/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDebug_RequiresAdminKey(t *testing.T) {
	s := newServer(t)
	_, id := s.login(t, "guarded")
	path := fmt.Sprintf("/api/debug/players/%d/reset", id)

	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodPost, path, "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodPost, path, "", nil, "X-Admin-Key", "wrong").Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodPost, path, "", nil, "X-Admin-Key", adminKey).Code)
}

func TestDebug_ResetPlayer(t *testing.T) {
	s := newServer(t)
	token, id := s.login(t, "veteran")
	testutil.GiveInventory(t, s.db, id, catalog.ItemTypeResource, catalog.ResourceStone, 4, 1)
	testutil.GiveStorage(t, s.db, id, catalog.ItemTypeResource, catalog.ResourceLeather, 2)
	require.NoError(t, s.db.Model(&model.Player{}).Where("id = ?", id).Updates(map[string]interface{}{
		"level": 4, "experience": 500, "hunger": 20,
	}).Error)
	require.Equal(t, http.StatusOK, s.do(http.MethodPost, playerPath(id, "/quests/1/start"), token, nil).Code)
	w := s.do(http.MethodPost, playerPath(id, "/expeditions"), token, map[string]int{"biome_id": catalog.BiomeForest})
	assert.Equal(t, http.StatusBadRequest, w.Code, "too hungry")
	require.NoError(t, s.db.Model(&model.Player{}).Where("id = ?", id).Update("hunger", 80).Error)
	require.Equal(t, http.StatusCreated,
		s.do(http.MethodPost, playerPath(id, "/expeditions"), token, map[string]int{"biome_id": catalog.BiomeForest}).Code)

	w = s.do(http.MethodPost, fmt.Sprintf("/api/debug/players/%d/reset", id), "", nil, "X-Admin-Key", adminKey)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	p := decode(t, w)
	assert.Equal(t, float64(1), p["level"])
	assert.Equal(t, float64(0), p["experience"])
	assert.Equal(t, float64(100), p["hunger"])

	assert.Empty(t, decode(t, s.do(http.MethodGet, playerPath(id, "/inventory"), token, nil))["items"])
	assert.Empty(t, decode(t, s.do(http.MethodGet, playerPath(id, "/storage"), token, nil))["items"])
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, playerPath(id, "/expeditions/active"), token, nil).Code)
	assert.Empty(t, decode(t, s.do(http.MethodGet, playerPath(id, "/quests?status=active"), token, nil))["quests"])
	assert.Empty(t, decode(t, s.do(http.MethodGet, playerPath(id, "/events"), token, nil))["events"])

	w = s.do(http.MethodPost, "/api/debug/players/9999/reset", "", nil, "X-Admin-Key", adminKey)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDebug_ResetQuest(t *testing.T) {
	s := newServer(t)
	token, id := s.login(t, "redo")
	require.Equal(t, http.StatusOK, s.do(http.MethodPost, playerPath(id, "/quests/1/start"), token, nil).Code)
	require.Equal(t, http.StatusOK, s.do(http.MethodPost, playerPath(id, "/quests/1/cancel"), token, nil).Code)

	w := s.do(http.MethodPost, fmt.Sprintf("/api/debug/players/%d/quests/1/reset", id), "", nil, "X-Admin-Key", adminKey)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "active", decode(t, w)["status"])

	w = s.do(http.MethodPost, fmt.Sprintf("/api/debug/players/%d/quests/2/reset", id), "", nil, "X-Admin-Key", adminKey)
	assert.Equal(t, http.StatusNotFound, w.Code, "never started")
}

func TestDebug_DisabledWithoutKey(t *testing.T) {
	cfg := testConfig()
	cfg.Server.AdminKey = ""
	s := newServerWithConfig(t, cfg)

	w := s.do(http.MethodGet, "/api/debug/scheduler", "", nil, "X-Admin-Key", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestDebug_IPWhitelist(t *testing.T) {
	cfg := testConfig()
	cfg.Server.DebugAllowedIPs = []string{"10.0.0.0/8"}
	s := newServerWithConfig(t, cfg)

	w := s.do(http.MethodGet, "/api/debug/scheduler", "", nil, "X-Admin-Key", adminKey)
	assert.Equal(t, http.StatusForbidden, w.Code, "httptest requests come from 192.0.2.1")
}

func TestHealthAndScheduler(t *testing.T) {
	s := newServer(t)

	w := s.do(http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode(t, w)["status"])

	w = s.do(http.MethodGet, "/api/debug/scheduler", "", nil, "X-Admin-Key", adminKey)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, decode(t, w), "pending_delays")
}

func TestCatalogRoutes(t *testing.T) {
	s := newServer(t)
	cat := catalog.Default()
	for name, want := range map[string]int{
		"resources": len(cat.Resources),
		"biomes":    len(cat.Biomes),
		"equipment": len(cat.Equipment),
		"recipes":   len(cat.Recipes),
		"quests":    len(cat.Quests),
	} {
		for i := 0; i < 2; i++ {
			w := s.do(http.MethodGet, "/api/catalog/"+name, "", nil)
			require.Equal(t, http.StatusOK, w.Code, name)
			assert.Len(t, decode(t, w)[name], want, name)
		}
	}
}

func TestAudit_RecordsPlayerMutations(t *testing.T) {
	s := newServer(t)
	token, id := s.login(t, "audited")
	s.do(http.MethodPut, playerPath(id, "/settings"), token, map[string]bool{"auto_storage": true})
	s.audit.Stop(t.Context())

	var logs []model.AuditLog
	require.NoError(t, s.db.Find(&logs).Error)
	require.Len(t, logs, 1, "login is not audited")
	assert.Equal(t, "PUT /api/players/:id/settings", logs[0].Action)
	require.NotNil(t, logs[0].PlayerID)
	assert.Equal(t, id, *logs[0].PlayerID)
}
