package expedition

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/kasuganosora/survivalcamp/cache/local"
	cacheredis "github.com/kasuganosora/survivalcamp/cache/redis"
	"github.com/kasuganosora/survivalcamp/catalog"
	"github.com/kasuganosora/survivalcamp/config"
	"github.com/kasuganosora/survivalcamp/game/event"
	"github.com/kasuganosora/survivalcamp/game/item"
	"github.com/kasuganosora/survivalcamp/game/playerlock"
	"github.com/kasuganosora/survivalcamp/gameerr"
	"github.com/kasuganosora/survivalcamp/model"
	"github.com/kasuganosora/survivalcamp/scheduler"
	"github.com/kasuganosora/survivalcamp/testutil"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const resource = catalog.ItemTypeResource

// scriptedRand replays fixed draws, repeating the last one when exhausted.
type scriptedRand struct {
	floats []float64
	ints   []int
}

func (r *scriptedRand) Float64() float64 {
	if len(r.floats) == 0 {
		return 0
	}
	v := r.floats[0]
	if len(r.floats) > 1 {
		r.floats = r.floats[1:]
	}
	return v
}

func (r *scriptedRand) IntN(n int) int {
	if len(r.ints) == 0 {
		return 0
	}
	v := r.ints[0]
	if len(r.ints) > 1 {
		r.ints = r.ints[1:]
	}
	return v % n
}

type fakeDelayer struct {
	mu    sync.Mutex
	names []string
	fns   []scheduler.TaskFn
}

func (d *fakeDelayer) AddDelay(name string, _ time.Duration, fn scheduler.TaskFn) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.names = append(d.names, name)
	d.fns = append(d.fns, fn)
}

type fixture struct {
	db     *gorm.DB
	engine *Engine
	items  *item.Store
	store  Store
	events *[]event.Event
	rng    *scriptedRand
	clock  *time.Time
}

// storeBackends runs fn once per Store implementation.
func storeBackends(t *testing.T, fn func(t *testing.T, newStore func(db *gorm.DB) Store)) {
	t.Run("gorm", func(t *testing.T) {
		fn(t, func(db *gorm.DB) Store { return NewGormStore(db) })
	})
	t.Run("local", func(t *testing.T) {
		fn(t, func(*gorm.DB) Store {
			c, err := local.NewCache(local.Config{GCInterval: time.Minute})
			require.NoError(t, err)
			t.Cleanup(func() { _ = c.Close() })
			return NewCacheStore(c)
		})
	})
	t.Run("redis", func(t *testing.T) {
		fn(t, func(*gorm.DB) Store {
			mr := miniredis.RunT(t)
			client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
			t.Cleanup(func() { _ = client.Close() })
			return NewCacheStore(cacheredis.NewCacheFromClient(client))
		})
	})
}

func newFixture(t *testing.T, newStore func(db *gorm.DB) Store, opts ...Option) *fixture {
	t.Helper()
	db := testutil.SetupTestDB(t)
	cat := catalog.Default()
	items := item.NewStore(cat)
	bus := event.NewBus(zap.NewNop())
	var events []event.Event
	bus.Register(event.All, 0, "recorder", func(_ context.Context, ev event.Event) error {
		events = append(events, ev)
		return nil
	})
	rng := &scriptedRand{}
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f := &fixture{db: db, items: items, store: newStore(db), events: &events, rng: rng, clock: &clock}
	opts = append([]Option{WithRand(rng), WithClock(func() time.Time { return *f.clock })}, opts...)
	f.engine = NewEngine(db, cat, items, f.store, playerlock.New(), bus, config.DefaultGame(), zap.NewNop(), opts...)
	return f
}

func (f *fixture) player(t *testing.T) *model.Player {
	var p model.Player
	require.NoError(t, f.db.First(&p, "id = ?", f.mustPlayerID(t)).Error)
	return &p
}

func (f *fixture) mustPlayerID(t *testing.T) int64 {
	var p model.Player
	require.NoError(t, f.db.Order("id").First(&p).Error)
	return p.ID
}

func (f *fixture) qty(t *testing.T, inStorage bool, id int) int {
	var (
		n   int
		err error
	)
	if inStorage {
		n, err = f.items.StorageQuantity(f.db, f.mustPlayerID(t), resource, id)
	} else {
		n, err = f.items.InventoryQuantity(f.db, f.mustPlayerID(t), resource, id)
	}
	require.NoError(t, err)
	return n
}

func TestStart_OneActivePerPlayer(t *testing.T) {
	storeBackends(t, func(t *testing.T, newStore func(*gorm.DB) Store) {
		f := newFixture(t, newStore)
		ctx := context.Background()
		p := testutil.SeedPlayer(t, f.db)

		first, err := f.engine.Start(ctx, p.ID, catalog.BiomeForest, nil)
		require.NoError(t, err)
		assert.Equal(t, model.ExpeditionActive, first.Status)

		_, err = f.engine.Start(ctx, p.ID, catalog.BiomeForest, nil)
		assert.ErrorIs(t, err, gameerr.ErrInvalidOperation)

		active, err := f.engine.Active(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, first.ID, active.ID)

		_, err = f.engine.Complete(ctx, first.ID)
		require.NoError(t, err)
		second, err := f.engine.Start(ctx, p.ID, catalog.BiomeForest, nil)
		require.NoError(t, err)
		assert.NotEqual(t, first.ID, second.ID)
	})
}

func TestStart_ConcurrentStartsYieldOneActive(t *testing.T) {
	storeBackends(t, func(t *testing.T, newStore func(*gorm.DB) Store) {
		f := newFixture(t, newStore)
		p := testutil.SeedPlayer(t, f.db)

		var (
			wg sync.WaitGroup
			mu sync.Mutex
			ok int
		)
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := f.engine.Start(context.Background(), p.ID, catalog.BiomeForest, nil); err == nil {
					mu.Lock()
					ok++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, ok)
	})
}

func TestStart_Validation(t *testing.T) {
	f := newFixture(t, func(db *gorm.DB) Store { return NewGormStore(db) })
	ctx := context.Background()

	hungry := testutil.SeedPlayer(t, f.db, func(p *model.Player) { p.Hunger = 29 })
	_, err := f.engine.Start(ctx, hungry.ID, catalog.BiomeForest, nil)
	assert.ErrorIs(t, err, gameerr.ErrInvalidOperation)

	p := testutil.SeedPlayer(t, f.db)
	_, err = f.engine.Start(ctx, p.ID, 99, nil)
	assert.ErrorIs(t, err, gameerr.ErrNotFound)

	_, err = f.engine.Start(ctx, p.ID, catalog.BiomeMountains, nil)
	assert.ErrorIs(t, err, gameerr.ErrInvalidOperation, "mountains need level 5")

	_, err = f.engine.Start(ctx, p.ID, catalog.BiomeForest, []int{catalog.ResourceFish})
	assert.ErrorIs(t, err, gameerr.ErrValidation)

	_, err = f.engine.Start(ctx, 404, catalog.BiomeForest, nil)
	assert.ErrorIs(t, err, gameerr.ErrNotFound)

	_, err = f.engine.Active(ctx, p.ID)
	assert.ErrorIs(t, err, gameerr.ErrNotFound)
}

func TestStart_EmptySelectionMeansWholeBiome(t *testing.T) {
	f := newFixture(t, func(db *gorm.DB) Store { return NewGormStore(db) })
	p := testutil.SeedPlayer(t, f.db)

	_, err := f.engine.Start(context.Background(), p.ID, catalog.BiomeRiver, nil)
	require.Error(t, err, "river needs level 2")

	require.NoError(t, f.db.Model(&model.Player{}).Where("id = ?", p.ID).Update("level", 2).Error)
	exp, err := f.engine.Start(context.Background(), p.ID, catalog.BiomeRiver, nil)
	require.NoError(t, err)
	river, _ := catalog.Default().Biome(catalog.BiomeRiver)
	assert.Equal(t, river.Resources, exp.Selected())
	assert.Empty(t, exp.Collected())
}

func TestTick_HungerLowReturns(t *testing.T) {
	storeBackends(t, func(t *testing.T, newStore func(*gorm.DB) Store) {
		f := newFixture(t, newStore)
		ctx := context.Background()
		p := testutil.SeedPlayer(t, f.db)
		exp, err := f.engine.Start(ctx, p.ID, catalog.BiomeForest, nil)
		require.NoError(t, err)
		require.NoError(t, f.db.Model(&model.Player{}).Where("id = ?", p.ID).Update("hunger", 9).Error)

		res, err := f.engine.Tick(ctx, exp.ID)
		require.NoError(t, err)
		assert.True(t, res.ShouldReturn)
		assert.Equal(t, model.ReturnHungerLow, res.ReturnReason)
		assert.Nil(t, res.Resource)
		assert.Equal(t, 9.0, res.Hunger)

		again, err := f.engine.Tick(ctx, exp.ID)
		require.NoError(t, err)
		assert.True(t, again.ShouldReturn)
		assert.Equal(t, model.ReturnHungerLow, again.ReturnReason)

		stored, err := f.engine.Get(ctx, exp.ID)
		require.NoError(t, err)
		assert.True(t, stored.Returning)
		assert.Equal(t, model.ExpeditionActive, stored.Status)
	})
}

func TestTick_ReturnReasonOrder(t *testing.T) {
	f := newFixture(t, func(db *gorm.DB) Store { return NewGormStore(db) })
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(*model.Player)
		want   string
	}{
		{"thirst", func(p *model.Player) { p.Thirst = 10 }, model.ReturnThirstLow},
		{"weight", func(p *model.Player) { p.InventoryWeight = 45 }, model.ReturnInventoryFull},
		{"hunger first", func(p *model.Player) { p.Hunger, p.InventoryWeight = 10, 45 }, model.ReturnHungerLow},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := testutil.SeedPlayer(t, f.db)
			exp, err := f.engine.Start(ctx, p.ID, catalog.BiomeForest, nil)
			require.NoError(t, err)
			tc.mutate(p)
			require.NoError(t, f.db.Model(&model.Player{}).Where("id = ?", p.ID).Updates(map[string]any{
				"hunger": p.Hunger, "thirst": p.Thirst, "inventory_weight": p.InventoryWeight,
			}).Error)

			res, err := f.engine.Tick(ctx, exp.ID)
			require.NoError(t, err)
			assert.Equal(t, tc.want, res.ReturnReason)
		})
	}
}

func TestTick_CollectsResource(t *testing.T) {
	storeBackends(t, func(t *testing.T, newStore func(*gorm.DB) Store) {
		f := newFixture(t, newStore)
		ctx := context.Background()
		p := testutil.SeedPlayer(t, f.db)
		exp, err := f.engine.Start(ctx, p.ID, catalog.BiomeForest, []int{catalog.ResourceStick})
		require.NoError(t, err)

		res, err := f.engine.Tick(ctx, exp.ID)
		require.NoError(t, err)
		require.NotNil(t, res.Resource)
		assert.Equal(t, catalog.ResourceStick, res.Resource.ID)
		assert.False(t, res.ShouldReturn)
		assert.Equal(t, 5+3, res.TimeCost)
		assert.Equal(t, 50.0, res.Distance)
		assert.Equal(t, 99.5, res.Hunger)
		assert.Equal(t, 99.5, res.Thirst)
		assert.Equal(t, 0.5, res.InventoryWeight)

		assert.Equal(t, 1, f.qty(t, false, catalog.ResourceStick))
		stored, err := f.engine.Get(ctx, exp.ID)
		require.NoError(t, err)
		assert.Equal(t, map[int]int{catalog.ResourceStick: 1}, stored.Collected())
		assert.Equal(t, 1, stored.Ticks)
		assert.Equal(t, 0.5, f.player(t).InventoryWeight)
	})
}

func TestTick_FailedRollCollectsNothing(t *testing.T) {
	f := newFixture(t, func(db *gorm.DB) Store { return NewGormStore(db) })
	ctx := context.Background()
	p := testutil.SeedPlayer(t, f.db)
	exp, err := f.engine.Start(ctx, p.ID, catalog.BiomeForest, []int{catalog.ResourceStone})
	require.NoError(t, err)
	f.rng.floats = []float64{0.9}

	res, err := f.engine.Tick(ctx, exp.ID)
	require.NoError(t, err)
	assert.Nil(t, res.Resource)
	assert.Equal(t, 5+3, res.TimeCost)
	assert.Equal(t, 100.0, res.Hunger)
	assert.Zero(t, f.qty(t, false, catalog.ResourceStone))
}

func TestTick_RequiresTool(t *testing.T) {
	f := newFixture(t, func(db *gorm.DB) Store { return NewGormStore(db) })
	ctx := context.Background()
	p := testutil.SeedPlayer(t, f.db)
	exp, err := f.engine.Start(ctx, p.ID, catalog.BiomeForest, []int{catalog.ResourceWood})
	require.NoError(t, err)

	res, err := f.engine.Tick(ctx, exp.ID)
	require.NoError(t, err)
	assert.Nil(t, res.Resource, "wood needs an axe")
	assert.Equal(t, 5, res.TimeCost)

	axe := catalog.EquipmentStoneAxe
	require.NoError(t, f.db.Model(&model.Player{}).Where("id = ?", p.ID).Update("tool_id", axe).Error)
	res, err = f.engine.Tick(ctx, exp.ID)
	require.NoError(t, err)
	require.NotNil(t, res.Resource)
	assert.Equal(t, catalog.ResourceWood, res.Resource.ID)
}

func TestTick_DistanceGatesAndCaps(t *testing.T) {
	f := newFixture(t, func(db *gorm.DB) Store { return NewGormStore(db) })
	ctx := context.Background()
	p := testutil.SeedPlayer(t, f.db)
	exp, err := f.engine.Start(ctx, p.ID, catalog.BiomeForest, []int{catalog.ResourceMushroom})
	require.NoError(t, err)

	res, err := f.engine.Tick(ctx, exp.ID)
	require.NoError(t, err)
	assert.Nil(t, res.Resource, "mushrooms grow 100 away")

	res, err = f.engine.Tick(ctx, exp.ID)
	require.NoError(t, err)
	require.NotNil(t, res.Resource)
	assert.Equal(t, 100.0, res.Distance)

	for i := 0; i < 20; i++ {
		res, err = f.engine.Tick(ctx, exp.ID)
		require.NoError(t, err)
	}
	assert.Equal(t, 400.0, res.Distance)
}

func TestTick_OverweightCandidateTurnsBack(t *testing.T) {
	f := newFixture(t, func(db *gorm.DB) Store { return NewGormStore(db) })
	ctx := context.Background()
	p := testutil.SeedPlayer(t, f.db, func(p *model.Player) { p.MaxInventoryWeight = 40 })
	exp, err := f.engine.Start(ctx, p.ID, catalog.BiomeForest, []int{catalog.ResourceDeer})
	require.NoError(t, err)
	require.NoError(t, f.db.Model(&model.Player{}).Where("id = ?", p.ID).Update("inventory_weight", 35.5).Error)

	res, err := f.engine.Tick(ctx, exp.ID)
	require.NoError(t, err)
	assert.Nil(t, res.Resource)
	assert.True(t, res.ShouldReturn)
	assert.Equal(t, model.ReturnInventoryFull, res.ReturnReason)
	assert.Zero(t, f.qty(t, false, catalog.ResourceDeer))
}

func TestTick_FinishedExpedition(t *testing.T) {
	f := newFixture(t, func(db *gorm.DB) Store { return NewGormStore(db) })
	ctx := context.Background()
	p := testutil.SeedPlayer(t, f.db)
	exp, err := f.engine.Start(ctx, p.ID, catalog.BiomeForest, nil)
	require.NoError(t, err)
	_, err = f.engine.Complete(ctx, exp.ID)
	require.NoError(t, err)

	_, err = f.engine.Tick(ctx, exp.ID)
	assert.ErrorIs(t, err, gameerr.ErrInvalidOperation)
	_, err = f.engine.Tick(ctx, "missing")
	assert.ErrorIs(t, err, gameerr.ErrNotFound)
}

// huntDeer runs an expedition that bags n deer.
func huntDeer(t *testing.T, f *fixture, playerID int64, n int) *model.Expedition {
	t.Helper()
	ctx := context.Background()
	exp, err := f.engine.Start(ctx, playerID, catalog.BiomeForest, []int{catalog.ResourceDeer})
	require.NoError(t, err)
	for i := 0; i < n; i++ {
		res, err := f.engine.Tick(ctx, exp.ID)
		require.NoError(t, err)
		require.NotNil(t, res.Resource)
		assert.Equal(t, 5+20, res.TimeCost)
	}
	return exp
}

func TestComplete_ProcessesAnimals(t *testing.T) {
	storeBackends(t, func(t *testing.T, newStore func(*gorm.DB) Store) {
		f := newFixture(t, newStore)
		ctx := context.Background()
		p := testutil.SeedPlayer(t, f.db)
		exp := huntDeer(t, f, p.ID, 3)
		assert.Equal(t, 3, f.qty(t, false, catalog.ResourceDeer))

		done, err := f.engine.Complete(ctx, exp.ID)
		require.NoError(t, err)
		assert.Equal(t, model.ExpeditionCompleted, done.Status)
		assert.Equal(t, map[int]int{
			catalog.ResourceMeat:    9,
			catalog.ResourceLeather: 6,
			catalog.ResourceBones:   12,
			catalog.ResourceFur:     3,
		}, done.Collected())
		assert.EqualValues(t, 60, done.ExperienceGained)
		assert.EqualValues(t, 12, done.CoinsGained)
		require.NotNil(t, done.CompletedAt)

		assert.Zero(t, f.qty(t, false, catalog.ResourceDeer))
		assert.Equal(t, 9, f.qty(t, false, catalog.ResourceMeat))
		assert.Equal(t, 12, f.qty(t, false, catalog.ResourceBones))
		pl := f.player(t)
		assert.EqualValues(t, 60, pl.Experience)
		assert.EqualValues(t, 12, pl.Coins)
		assert.Equal(t, 1, pl.Level)
		assert.Equal(t, 22.5, pl.InventoryWeight)

		types := make([]event.Type, 0, len(*f.events))
		for _, ev := range *f.events {
			types = append(types, ev.Type)
		}
		assert.Equal(t, []event.Type{
			event.ExpeditionCompleted,
			event.ResourceCollected, event.ResourceCollected, event.ResourceCollected, event.ResourceCollected,
			event.CreatureKilled,
		}, types)
		kill := (*f.events)[5]
		assert.Equal(t, catalog.ResourceDeer, kill.TargetID)
		assert.Equal(t, 3, kill.Quantity)
	})
}

func TestComplete_Idempotent(t *testing.T) {
	storeBackends(t, func(t *testing.T, newStore func(*gorm.DB) Store) {
		f := newFixture(t, newStore)
		ctx := context.Background()
		p := testutil.SeedPlayer(t, f.db)
		exp := huntDeer(t, f, p.ID, 2)

		first, err := f.engine.Complete(ctx, exp.ID)
		require.NoError(t, err)
		published := len(*f.events)
		second, err := f.engine.Complete(ctx, exp.ID)
		require.NoError(t, err)

		assert.Equal(t, first.Collected(), second.Collected())
		assert.Equal(t, first.ExperienceGained, second.ExperienceGained)
		assert.Equal(t, first.CoinsGained, second.CoinsGained)
		assert.Len(t, *f.events, published)
		pl := f.player(t)
		assert.Equal(t, first.CoinsGained, pl.Coins)
		assert.Equal(t, 6, f.qty(t, false, catalog.ResourceMeat))
	})
}

func TestComplete_AutoStorage(t *testing.T) {
	f := newFixture(t, func(db *gorm.DB) Store { return NewGormStore(db) })
	ctx := context.Background()
	p := testutil.SeedPlayer(t, f.db, func(p *model.Player) { p.AutoStorage = true })
	exp := huntDeer(t, f, p.ID, 1)

	_, err := f.engine.Complete(ctx, exp.ID)
	require.NoError(t, err)
	assert.Zero(t, f.qty(t, false, catalog.ResourceDeer))
	assert.Zero(t, f.qty(t, false, catalog.ResourceMeat))
	assert.Equal(t, 3, f.qty(t, true, catalog.ResourceMeat))
	assert.Equal(t, 4, f.qty(t, true, catalog.ResourceBones))
	assert.Zero(t, f.player(t).InventoryWeight)
}

func TestComplete_CarcassAlreadyStored(t *testing.T) {
	f := newFixture(t, func(db *gorm.DB) Store { return NewGormStore(db) })
	ctx := context.Background()
	p := testutil.SeedPlayer(t, f.db)
	exp := huntDeer(t, f, p.ID, 1)
	require.NoError(t, f.items.MoveToStorage(f.db, p.ID, resource, catalog.ResourceDeer, 1))

	_, err := f.engine.Complete(ctx, exp.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, f.qty(t, true, catalog.ResourceDeer))
	assert.Equal(t, 3, f.qty(t, false, catalog.ResourceMeat))
}

func TestComplete_OverflowSpillsToStorage(t *testing.T) {
	f := newFixture(t, func(db *gorm.DB) Store { return NewGormStore(db) })
	ctx := context.Background()
	p := testutil.SeedPlayer(t, f.db, func(p *model.Player) { p.MaxInventoryWeight = 6 })
	exp := huntDeer(t, f, p.ID, 1)

	_, err := f.engine.Complete(ctx, exp.ID)
	require.NoError(t, err)
	pl := f.player(t)
	assert.LessOrEqual(t, pl.InventoryWeight, pl.MaxInventoryWeight)
	total := f.qty(t, false, catalog.ResourceBones) + f.qty(t, true, catalog.ResourceBones)
	assert.Equal(t, 4, total)
}

func TestComplete_LevelUpEvent(t *testing.T) {
	f := newFixture(t, func(db *gorm.DB) Store { return NewGormStore(db) })
	ctx := context.Background()
	p := testutil.SeedPlayer(t, f.db, func(p *model.Player) { p.Experience = 90 })
	exp := huntDeer(t, f, p.ID, 1)

	_, err := f.engine.Complete(ctx, exp.ID)
	require.NoError(t, err)
	last := (*f.events)[len(*f.events)-1]
	assert.Equal(t, event.LevelUp, last.Type)
	assert.Equal(t, 2, last.Quantity)
	assert.Equal(t, 2, f.player(t).Level)
}

func TestCancel(t *testing.T) {
	storeBackends(t, func(t *testing.T, newStore func(*gorm.DB) Store) {
		f := newFixture(t, newStore)
		ctx := context.Background()
		p := testutil.SeedPlayer(t, f.db)
		exp := huntDeer(t, f, p.ID, 1)

		cancelled, err := f.engine.Cancel(ctx, exp.ID)
		require.NoError(t, err)
		assert.Equal(t, model.ExpeditionCancelled, cancelled.Status)
		assert.Equal(t, 1, f.qty(t, false, catalog.ResourceDeer), "collected items are kept")
		assert.Zero(t, f.player(t).Experience)

		_, err = f.engine.Cancel(ctx, exp.ID)
		assert.NoError(t, err)
		_, err = f.engine.Complete(ctx, exp.ID)
		assert.ErrorIs(t, err, gameerr.ErrInvalidOperation)

		next, err := f.engine.Start(ctx, p.ID, catalog.BiomeForest, nil)
		require.NoError(t, err)
		_, err = f.engine.Complete(ctx, next.ID)
		require.NoError(t, err)
		_, err = f.engine.Cancel(ctx, next.ID)
		assert.ErrorIs(t, err, gameerr.ErrInvalidOperation)
	})
}

func TestSweep_DeletesAfterRetention(t *testing.T) {
	storeBackends(t, func(t *testing.T, newStore func(*gorm.DB) Store) {
		f := newFixture(t, newStore)
		ctx := context.Background()
		p := testutil.SeedPlayer(t, f.db)
		other := testutil.SeedPlayer(t, f.db)

		done, err := f.engine.Start(ctx, p.ID, catalog.BiomeForest, nil)
		require.NoError(t, err)
		_, err = f.engine.Complete(ctx, done.ID)
		require.NoError(t, err)
		active, err := f.engine.Start(ctx, other.ID, catalog.BiomeForest, nil)
		require.NoError(t, err)

		n, err := f.engine.Sweep(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)

		*f.clock = f.clock.Add(config.DefaultGame().ExpeditionRetention + time.Second)
		n, err = f.engine.Sweep(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		_, err = f.engine.Get(ctx, done.ID)
		assert.ErrorIs(t, err, gameerr.ErrNotFound)
		_, err = f.engine.Get(ctx, active.ID)
		assert.NoError(t, err)
	})
}

func TestComplete_SchedulesRetentionDelete(t *testing.T) {
	d := &fakeDelayer{}
	f := newFixture(t, func(db *gorm.DB) Store { return NewGormStore(db) }, WithDelayer(d))
	ctx := context.Background()
	p := testutil.SeedPlayer(t, f.db)
	exp, err := f.engine.Start(ctx, p.ID, catalog.BiomeForest, nil)
	require.NoError(t, err)

	_, err = f.engine.Complete(ctx, exp.ID)
	require.NoError(t, err)
	_, err = f.engine.Complete(ctx, exp.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"expedition:" + exp.ID}, d.names)

	d.fns[0](ctx)
	_, err = f.engine.Get(ctx, exp.ID)
	assert.ErrorIs(t, err, gameerr.ErrNotFound)
}

func TestResetPlayer_DropsExpeditions(t *testing.T) {
	storeBackends(t, func(t *testing.T, newStore func(*gorm.DB) Store) {
		f := newFixture(t, newStore)
		ctx := context.Background()
		p := testutil.SeedPlayer(t, f.db)
		exp, err := f.engine.Start(ctx, p.ID, catalog.BiomeForest, nil)
		require.NoError(t, err)

		require.NoError(t, f.db.Transaction(func(tx *gorm.DB) error {
			return f.engine.ResetPlayer(ctx, tx, p.ID)
		}))
		_, err = f.engine.Get(ctx, exp.ID)
		assert.ErrorIs(t, err, gameerr.ErrNotFound)
		_, err = f.engine.Start(ctx, p.ID, catalog.BiomeForest, nil)
		assert.NoError(t, err)
	})
}
