package ranking

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	cacheredis "github.com/kasuganosora/survivalcamp/cache/redis"
	"github.com/kasuganosora/survivalcamp/game/event"
	"github.com/kasuganosora/survivalcamp/model"
	"github.com/kasuganosora/survivalcamp/testutil"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func seed(t *testing.T, b *Board, xp ...int64) []*model.Player {
	out := make([]*model.Player, len(xp))
	for i, x := range xp {
		out[i] = testutil.SeedPlayer(t, b.db, func(p *model.Player) { p.Experience = x })
	}
	return out
}

func TestTop_FallsBackToDBAndRefills(t *testing.T) {
	db := testutil.SetupTestDB(t)
	c, _ := testutil.SetupTestCache(t)
	b := NewBoard(db, c, zap.NewNop())
	players := seed(t, b, 10, 300, 50)
	ctx := context.Background()

	top, err := b.Top(ctx, 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, players[1].ID, top[0].PlayerID)
	assert.Equal(t, players[1].Username, top[0].Username)
	assert.Equal(t, 2, top[1].Rank)

	cached, err := c.ZRevRangeWithScores(ctx, zkey, 0, -1)
	require.NoError(t, err)
	assert.Len(t, cached, 2)
}

func TestUpdate_ThroughBus(t *testing.T) {
	db := testutil.SetupTestDB(t)
	c, _ := testutil.SetupTestCache(t)
	b := NewBoard(db, c, zap.NewNop())
	bus := event.NewBus(zap.NewNop())
	b.Attach(bus)
	players := seed(t, b, 100, 200)
	ctx := context.Background()

	_, err := b.Rebuild(ctx)
	require.NoError(t, err)
	require.NoError(t, db.Model(&model.Player{}).Where("id = ?", players[0].ID).Update("experience", 500).Error)
	bus.Publish(ctx, event.Event{Type: event.QuestCompleted, PlayerID: players[0].ID, TargetID: 1})

	top, err := b.Top(ctx, 10)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, players[0].ID, top[0].PlayerID)
	assert.EqualValues(t, 500, top[0].Experience)
	assert.Equal(t, 1, top[0].Level)
}

func TestRebuild_DropsStaleMembers(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	db := testutil.SetupTestDB(t)
	c := cacheredis.NewCacheFromClient(client)
	b := NewBoard(db, c, zap.NewNop())
	seed(t, b, 5, 15)
	ctx := context.Background()

	require.NoError(t, c.ZAdd(ctx, zkey, 9999, "4242"))
	n, err := b.Rebuild(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	top, err := b.Top(ctx, 0)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.EqualValues(t, 15, top[0].Experience)
}

func TestTop_RedisDownUsesDB(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	db := testutil.SetupTestDB(t)
	b := NewBoard(db, cacheredis.NewCacheFromClient(client), zap.NewNop())
	seed(t, b, 7)
	mr.Close()

	top, err := b.Top(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.EqualValues(t, 7, top[0].Experience)
}
