package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/kasuganosora/survivalcamp/cache/local"
	cacheredis "github.com/kasuganosora/survivalcamp/cache/redis"
	"github.com/kasuganosora/survivalcamp/config"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type view struct {
	ID    int64  `json:"id"`
	Label string `json:"label"`
}

func newLocalStore(t *testing.T) (*Store, Cache) {
	c, err := local.NewCache(local.Config{GCInterval: time.Minute})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return NewStore(c, 0, 0, zap.NewNop()), c
}

func TestLoadPlayer_CachesUntilInvalidated(t *testing.T) {
	s, _ := newLocalStore(t)
	ctx := context.Background()

	calls := 0
	load := func(context.Context) (view, error) {
		calls++
		return view{ID: 1, Label: "v"}, nil
	}

	v, err := LoadPlayer(ctx, s, ScopePlayer, 1, load)
	require.NoError(t, err)
	assert.Equal(t, view{ID: 1, Label: "v"}, v)

	_, err = LoadPlayer(ctx, s, ScopePlayer, 1, load)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	s.InvalidatePlayer(ctx, 1, ScopePlayer)
	_, err = LoadPlayer(ctx, s, ScopePlayer, 1, load)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestInvalidatePlayer_AllScopes(t *testing.T) {
	s, c := newLocalStore(t)
	ctx := context.Background()

	for _, sc := range PlayerScopes {
		require.NoError(t, c.Set(ctx, PlayerKey(sc, 9), "{}", 0))
	}
	require.NoError(t, c.Set(ctx, PlayerKey(ScopePlayer, 10), "{}", 0))

	s.InvalidatePlayer(ctx, 9)
	for _, sc := range PlayerScopes {
		ok, _ := c.Exists(ctx, PlayerKey(sc, 9))
		assert.False(t, ok, sc)
	}
	ok, _ := c.Exists(ctx, PlayerKey(ScopePlayer, 10))
	assert.True(t, ok, "other players untouched")
}

func TestLoadPlayer_LoaderErrorNotCached(t *testing.T) {
	s, c := newLocalStore(t)
	ctx := context.Background()

	boom := errors.New("boom")
	_, err := LoadPlayer(ctx, s, ScopeInventory, 2, func(context.Context) ([]view, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)

	ok, _ := c.Exists(ctx, PlayerKey(ScopeInventory, 2))
	assert.False(t, ok)
}

func TestLoadCatalog_DiscardsCorruptEntry(t *testing.T) {
	s, c := newLocalStore(t)
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, CatalogKey("biomes"), "not json", 0))

	v, err := LoadCatalog(ctx, s, "biomes", func(context.Context) ([]view, error) {
		return []view{{ID: 1}}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []view{{ID: 1}}, v)

	raw, err := c.Get(ctx, CatalogKey("biomes"))
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":1,"label":""}]`, raw)
}

func TestStore_RedisBackendExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	s := NewStore(cacheredis.NewCacheFromClient(client), 30*time.Second, 15*time.Minute, zap.NewNop())
	ctx := context.Background()

	calls := 0
	load := func(context.Context) (view, error) {
		calls++
		return view{ID: 3}, nil
	}
	_, err := LoadPlayer(ctx, s, ScopeStorage, 3, load)
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, mr.TTL(PlayerKey(ScopeStorage, 3)))

	mr.FastForward(31 * time.Second)
	_, err = LoadPlayer(ctx, s, ScopeStorage, 3, load)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestStore_RedisDownFallsBackToLoader(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	s := NewStore(cacheredis.NewCacheFromClient(client), 0, 0, zap.NewNop())
	mr.Close()

	v, err := LoadPlayer(context.Background(), s, ScopePlayer, 4, func(context.Context) (view, error) {
		return view{ID: 4}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(4), v.ID)

	s.InvalidatePlayer(context.Background(), 4)
}

func TestNewCache_LocalWhenNoRedis(t *testing.T) {
	c, err := NewCache(configWithoutRedis())
	require.NoError(t, err)
	defer c.Close()
	_, ok := c.(*local.LocalCache)
	assert.True(t, ok)
}

func TestLocalPubSubAdapter(t *testing.T) {
	ps := NewLocalPubSub(8)
	ctx := context.Background()
	ch, cancel, err := ps.Subscribe(ctx, "c")
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, ps.Publish(ctx, "c", "payload"))
	select {
	case msg := <-ch:
		assert.Equal(t, &Message{Channel: "c", Payload: "payload"}, msg)
	case <-time.After(time.Second):
		t.Fatal("timeout")
	}
}

func configWithoutRedis() config.CacheConfig {
	return config.CacheConfig{LocalGCInterval: time.Minute}
}
