// Package expedition runs timed resource-gathering trips: starting them,
// simulating each tick of collection, auto-returning the player before
// their state becomes unrecoverable, and settling rewards on completion.
package expedition

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kasuganosora/survivalcamp/catalog"
	"github.com/kasuganosora/survivalcamp/config"
	dbpkg "github.com/kasuganosora/survivalcamp/db"
	"github.com/kasuganosora/survivalcamp/game/event"
	"github.com/kasuganosora/survivalcamp/game/item"
	"github.com/kasuganosora/survivalcamp/game/player"
	"github.com/kasuganosora/survivalcamp/game/playerlock"
	"github.com/kasuganosora/survivalcamp/game/reward"
	"github.com/kasuganosora/survivalcamp/gameerr"
	"github.com/kasuganosora/survivalcamp/model"
	"github.com/kasuganosora/survivalcamp/scheduler"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Rand is the randomness the simulation draws from. *rand.Rand satisfies it.
type Rand interface {
	Float64() float64
	IntN(n int) int
}

// Delayer schedules one-shot work. *scheduler.Scheduler satisfies it.
type Delayer interface {
	AddDelay(name string, delay time.Duration, fn scheduler.TaskFn)
}

// Engine drives the expedition lifecycle. Every mutation holds the
// player's lock and runs in one DB transaction; events go out after both
// are released.
type Engine struct {
	db     *gorm.DB
	cat    *catalog.Catalog
	items  *item.Store
	store  Store
	locks  *playerlock.Locker
	bus    *event.Bus
	game   config.GameConfig
	logger *zap.Logger

	delayer Delayer
	rngMu   sync.Mutex
	rng     Rand
	now     func() time.Time
}

// Option customizes an Engine.
type Option func(*Engine)

// WithRand replaces the random source.
func WithRand(r Rand) Option { return func(e *Engine) { e.rng = r } }

// WithDelayer schedules retention deletes on d.
func WithDelayer(d Delayer) Option { return func(e *Engine) { e.delayer = d } }

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

// NewEngine creates an Engine.
func NewEngine(db *gorm.DB, cat *catalog.Catalog, items *item.Store, store Store, locks *playerlock.Locker,
	bus *event.Bus, game config.GameConfig, logger *zap.Logger, opts ...Option) *Engine {
	e := &Engine{
		db:     db,
		cat:    cat,
		items:  items,
		store:  store,
		locks:  locks,
		bus:    bus,
		game:   game,
		logger: logger,
		rng:    rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x5eed)),
		now:    time.Now,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// TickResult describes one simulation step.
type TickResult struct {
	ExpeditionID string            `json:"expedition_id"`
	Resource     *catalog.Resource `json:"resource"`
	ShouldReturn bool              `json:"should_return"`
	ReturnReason string            `json:"return_reason,omitempty"`
	// TimeCost is the simulated seconds this tick took; the caller waits
	// this long before the next tick.
	TimeCost        int     `json:"time_cost"`
	Distance        float64 `json:"distance"`
	Hunger          float64 `json:"hunger"`
	Thirst          float64 `json:"thirst"`
	InventoryWeight float64 `json:"inventory_weight"`
}

func (e *Engine) float64() float64 {
	e.rngMu.Lock()
	defer e.rngMu.Unlock()
	return e.rng.Float64()
}

func (e *Engine) intN(n int) int {
	e.rngMu.Lock()
	defer e.rngMu.Unlock()
	return e.rng.IntN(n)
}

// inTx runs fn in a transaction whose context makes the store join it. fn
// reaches the store through st; when the transaction fails, the writes st
// recorded are undone so a store outside the database does not keep them.
func (e *Engine) inTx(ctx context.Context, fn func(ctx context.Context, tx *gorm.DB, st Store) error) error {
	j := newJournal(e.store)
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(dbpkg.WithTx(ctx, tx), tx, j)
	})
	if err != nil {
		j.undo(context.WithoutCancel(ctx), e.logger)
	}
	return err
}

// Start opens an expedition into biomeID. An empty selection means every
// resource of the biome.
func (e *Engine) Start(ctx context.Context, playerID int64, biomeID int, selected []int) (*model.Expedition, error) {
	unlock := e.locks.Lock(playerID)
	defer unlock()

	var exp *model.Expedition
	err := e.inTx(ctx, func(ctx context.Context, tx *gorm.DB, st Store) error {
		var p model.Player
		if err := player.Load(tx, playerID, &p); err != nil {
			return err
		}
		if p.Hunger < e.game.MinVitalsToStart || p.Thirst < e.game.MinVitalsToStart {
			return gameerr.InvalidOperation("too hungry or thirsty to leave camp: hunger %.0f, thirst %.0f, need %.0f",
				p.Hunger, p.Thirst, e.game.MinVitalsToStart)
		}
		biome, ok := e.cat.Biome(biomeID)
		if !ok {
			return gameerr.NotFound("biome %d not found", biomeID)
		}
		if p.Level < biome.RequiredLevel {
			return gameerr.InvalidOperation("%s requires level %d, player is level %d",
				biome.Name, biome.RequiredLevel, p.Level)
		}
		selection, err := resolveSelection(biome, selected)
		if err != nil {
			return err
		}

		exp = &model.Expedition{
			ID:        uuid.NewString(),
			PlayerID:  playerID,
			BiomeID:   biomeID,
			Status:    model.ExpeditionActive,
			StartedAt: e.now(),
		}
		exp.SetSelected(selection)
		exp.SetCollected(nil)
		return st.Create(ctx, exp)
	})
	if err != nil {
		return nil, err
	}
	e.logger.Info("expedition started",
		zap.String("expedition_id", exp.ID),
		zap.Int64("player_id", playerID),
		zap.Int("biome_id", biomeID))
	return exp, nil
}

func resolveSelection(biome *catalog.Biome, selected []int) ([]int, error) {
	if len(selected) == 0 {
		return append([]int(nil), biome.Resources...), nil
	}
	seen := make(map[int]bool, len(selected))
	out := make([]int, 0, len(selected))
	for _, id := range selected {
		if !biome.HasResource(id) {
			return nil, gameerr.Validation("resource %d is not found in %s", id, biome.Name)
		}
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out, nil
}

// Get returns an expedition by id.
func (e *Engine) Get(ctx context.Context, id string) (*model.Expedition, error) {
	return e.store.Get(ctx, id)
}

// Active returns the player's active expedition or NotFound.
func (e *Engine) Active(ctx context.Context, playerID int64) (*model.Expedition, error) {
	exp, err := e.store.ActiveFor(ctx, playerID)
	if err != nil {
		return nil, err
	}
	if exp == nil {
		return nil, gameerr.NotFound("player %d has no active expedition", playerID)
	}
	return exp, nil
}

// lockExpedition resolves the owner of id and takes their lock.
func (e *Engine) lockExpedition(ctx context.Context, id string) (func(), error) {
	exp, err := e.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return e.locks.Lock(exp.PlayerID), nil
}

// returnReason applies the auto-return predicate. Vitals are checked before
// carried weight.
func (e *Engine) returnReason(p *model.Player) string {
	switch {
	case p.Hunger <= p.MaxHunger*e.game.AutoReturnVitalRatio:
		return model.ReturnHungerLow
	case p.Thirst <= p.MaxThirst*e.game.AutoReturnVitalRatio:
		return model.ReturnThirstLow
	case p.InventoryWeight >= p.MaxInventoryWeight*e.game.AutoReturnWeightRatio:
		return model.ReturnInventoryFull
	}
	return ""
}

// Tick advances an active expedition by one step: auto-return check, then
// at most one collection attempt. A failed tick leaves the expedition as
// it was.
func (e *Engine) Tick(ctx context.Context, id string) (*TickResult, error) {
	unlock, err := e.lockExpedition(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var result *TickResult
	err = e.inTx(ctx, func(ctx context.Context, tx *gorm.DB, st Store) error {
		exp, err := st.Get(ctx, id)
		if err != nil {
			return err
		}
		if exp.Status != model.ExpeditionActive {
			return gameerr.InvalidOperation("expedition %s is %s", id, exp.Status)
		}
		var p model.Player
		if err := player.Load(tx, exp.PlayerID, &p); err != nil {
			return err
		}
		result = &TickResult{ExpeditionID: id, Distance: exp.CurrentDistance}
		defer func() {
			result.Hunger, result.Thirst, result.InventoryWeight = p.Hunger, p.Thirst, p.InventoryWeight
		}()

		if exp.Returning {
			result.ShouldReturn, result.ReturnReason = true, exp.ReturnReason
			return nil
		}
		if reason := e.returnReason(&p); reason != "" {
			return e.turnBack(ctx, st, exp, result, reason)
		}

		biome, ok := e.cat.Biome(exp.BiomeID)
		if !ok {
			return gameerr.NotFound("biome %d not found", exp.BiomeID)
		}
		exp.CurrentDistance += e.game.DistanceStep
		if biome.MaxDistance > 0 && exp.CurrentDistance > biome.MaxDistance {
			exp.CurrentDistance = biome.MaxDistance
		}
		exp.Ticks++
		result.Distance = exp.CurrentDistance
		result.TimeCost = e.game.TravelSeconds

		candidates := e.candidates(biome, exp, &p)
		if len(candidates) == 0 {
			return st.Save(ctx, exp)
		}
		r := candidates[e.intN(len(candidates))]
		result.TimeCost += r.CollectSeconds
		if e.float64() >= e.game.CollectionSuccessRate {
			return st.Save(ctx, exp)
		}
		if !item.Fits(&p, r.Weight) {
			return e.turnBack(ctx, st, exp, result, model.ReturnInventoryFull)
		}

		if err := e.items.AddInventory(tx, p.ID, catalog.ItemTypeResource, r.ID, 1); err != nil {
			return err
		}
		p.InventoryWeight += r.Weight
		p.Hunger -= e.game.VitalDecayPerCollect
		p.Thirst -= e.game.VitalDecayPerCollect
		p.ClampVitals()
		if err := player.SaveVitals(tx, &p); err != nil {
			return err
		}
		collected := exp.Collected()
		collected[r.ID]++
		exp.SetCollected(collected)
		result.Resource = r
		return st.Save(ctx, exp)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (e *Engine) turnBack(ctx context.Context, st Store, exp *model.Expedition, result *TickResult, reason string) error {
	exp.Returning = true
	exp.ReturnReason = reason
	result.ShouldReturn = true
	result.ReturnReason = reason
	return st.Save(ctx, exp)
}

// candidates lists the resources that can be attempted this tick, in biome
// order: spawnable here, within reach, selected, and not gated by a
// missing tool.
func (e *Engine) candidates(biome *catalog.Biome, exp *model.Expedition, p *model.Player) []*catalog.Resource {
	selected := make(map[int]bool)
	for _, id := range exp.Selected() {
		selected[id] = true
	}
	tools := item.EquippedTools(e.cat, p)
	var out []*catalog.Resource
	for _, id := range biome.Resources {
		r, ok := e.cat.Resource(id)
		if !ok || !selected[id] || r.DistanceFromCamp > exp.CurrentDistance {
			continue
		}
		if r.RequiredTool != catalog.ToolNone && !tools[r.RequiredTool] {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Complete settles an expedition. Completing an already completed
// expedition returns the stored result and pays nothing.
func (e *Engine) Complete(ctx context.Context, id string) (*model.Expedition, error) {
	unlock, err := e.lockExpedition(ctx, id)
	if err != nil {
		return nil, err
	}

	var (
		exp      *model.Expedition
		events   []event.Event
		settled  bool
		leveledP *model.Player
	)
	err = e.inTx(ctx, func(ctx context.Context, tx *gorm.DB, st Store) error {
		exp, err = st.Get(ctx, id)
		if err != nil {
			return err
		}
		switch exp.Status {
		case model.ExpeditionCompleted:
			return nil
		case model.ExpeditionCancelled:
			return gameerr.InvalidOperation("expedition %s was cancelled", id)
		}

		var p model.Player
		if err := player.Load(tx, exp.PlayerID, &p); err != nil {
			return err
		}
		raw := exp.Collected()
		processed, hunted := reward.ProcessAnimals(e.cat, raw)
		if err := e.distribute(tx, &p, reward.Delta(raw, processed)); err != nil {
			return err
		}

		xp := reward.Experience(e.cat, processed)
		coins := reward.Coins(e.cat, processed, e.game.CoinRewardRatio)
		if player.AddExperience(&p, xp) {
			leveledP = &p
		}
		p.Coins += coins
		if err := player.SaveProgress(tx, &p); err != nil {
			return err
		}

		now := e.now()
		exp.Status = model.ExpeditionCompleted
		exp.CompletedAt = &now
		exp.SetCollected(processed)
		exp.ExperienceGained = xp
		exp.CoinsGained = coins
		if err := st.Save(ctx, exp); err != nil {
			return err
		}
		settled = true
		events = completionEvents(exp, processed, hunted)
		return nil
	})
	unlock()
	if err != nil {
		return nil, err
	}
	if !settled {
		return exp, nil
	}

	e.scheduleDelete(exp.ID)
	if leveledP != nil {
		events = append(events, player.LevelUpEvent(leveledP))
	}
	e.logger.Info("expedition completed",
		zap.String("expedition_id", exp.ID),
		zap.Int64("player_id", exp.PlayerID),
		zap.Int64("experience", exp.ExperienceGained),
		zap.Int64("coins", exp.CoinsGained))
	e.bus.Publish(ctx, events...)
	return exp, nil
}

// distribute applies the signed difference between the processed haul and
// what the simulation already deposited. Carcasses still carried are taken
// out; new parts go to storage with autoStorage, otherwise to the
// inventory with overflow spilling into storage.
func (e *Engine) distribute(tx *gorm.DB, p *model.Player, delta map[int]int) error {
	for _, id := range reward.SortedIDs(delta) {
		d := delta[id]
		if d >= 0 {
			continue
		}
		have, err := e.items.InventoryQuantity(tx, p.ID, catalog.ItemTypeResource, id)
		if err != nil {
			return err
		}
		if n := min(have, -d); n > 0 {
			if err := e.items.RemoveInventory(tx, p.ID, catalog.ItemTypeResource, id, n); err != nil {
				return err
			}
		}
	}
	w, err := e.items.RecalculateWeight(tx, p.ID)
	if err != nil {
		return err
	}
	p.InventoryWeight = w

	for _, id := range reward.SortedIDs(delta) {
		d := delta[id]
		if d <= 0 {
			continue
		}
		if p.AutoStorage {
			err = e.items.AddStorage(tx, p.ID, catalog.ItemTypeResource, id, d)
		} else {
			_, _, err = e.items.Deposit(tx, p, catalog.ItemTypeResource, id, d)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func completionEvents(exp *model.Expedition, processed, hunted map[int]int) []event.Event {
	events := []event.Event{{
		Type: event.ExpeditionCompleted, PlayerID: exp.PlayerID, TargetID: exp.BiomeID, Quantity: 1,
	}}
	for _, id := range reward.SortedIDs(processed) {
		events = append(events, event.Event{
			Type: event.ResourceCollected, PlayerID: exp.PlayerID, TargetID: id, Quantity: processed[id],
		})
	}
	for _, id := range reward.SortedIDs(hunted) {
		events = append(events, event.Event{
			Type: event.CreatureKilled, PlayerID: exp.PlayerID, TargetID: id, Quantity: hunted[id],
		})
	}
	return events
}

// Cancel ends an expedition without rewards. Anything already deposited
// during the simulation is kept.
func (e *Engine) Cancel(ctx context.Context, id string) (*model.Expedition, error) {
	unlock, err := e.lockExpedition(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var (
		exp       *model.Expedition
		cancelled bool
	)
	err = e.inTx(ctx, func(ctx context.Context, tx *gorm.DB, st Store) error {
		exp, err = st.Get(ctx, id)
		if err != nil {
			return err
		}
		switch exp.Status {
		case model.ExpeditionCancelled:
			return nil
		case model.ExpeditionCompleted:
			return gameerr.InvalidOperation("expedition %s is already completed", id)
		}
		now := e.now()
		exp.Status = model.ExpeditionCancelled
		exp.CompletedAt = &now
		cancelled = true
		return st.Save(ctx, exp)
	})
	if err != nil {
		return nil, err
	}
	if cancelled {
		e.scheduleDelete(exp.ID)
		e.logger.Info("expedition cancelled",
			zap.String("expedition_id", exp.ID), zap.Int64("player_id", exp.PlayerID))
	}
	return exp, nil
}

func (e *Engine) scheduleDelete(id string) {
	if e.delayer == nil {
		return
	}
	e.delayer.AddDelay("expedition:"+id, e.game.ExpeditionRetention, func(ctx context.Context) {
		if err := e.store.Delete(ctx, id); err != nil {
			e.logger.Warn("expedition retention delete failed", zap.String("expedition_id", id), zap.Error(err))
		}
	})
}

// Sweep deletes finished expeditions older than the retention window. It
// covers deletes lost to a restart.
func (e *Engine) Sweep(ctx context.Context) (int, error) {
	ids, err := e.store.FinishedBefore(ctx, e.now().Add(-e.game.ExpeditionRetention))
	if err != nil {
		return 0, err
	}
	deleted := 0
	for _, id := range ids {
		if err := e.store.Delete(ctx, id); err != nil {
			e.logger.Warn("expedition sweep delete failed", zap.String("expedition_id", id), zap.Error(err))
			continue
		}
		deleted++
	}
	if deleted > 0 {
		e.logger.Info("expedition sweep", zap.Int("deleted", deleted))
	}
	return deleted, nil
}

// ResetPlayer drops every expedition of the player. It is registered as a
// player reset hook and joins the reset transaction.
func (e *Engine) ResetPlayer(ctx context.Context, tx *gorm.DB, playerID int64) error {
	return e.store.DeletePlayer(dbpkg.WithTx(ctx, tx), playerID)
}
