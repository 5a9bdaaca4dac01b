// Package quest tracks per-player quest progress. Progress accumulates from
// domain events and is never recounted from inventory or history.
package quest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kasuganosora/survivalcamp/catalog"
	"github.com/kasuganosora/survivalcamp/config"
	"github.com/kasuganosora/survivalcamp/game/event"
	"github.com/kasuganosora/survivalcamp/game/item"
	"github.com/kasuganosora/survivalcamp/game/player"
	"github.com/kasuganosora/survivalcamp/game/playerlock"
	"github.com/kasuganosora/survivalcamp/gameerr"
	"github.com/kasuganosora/survivalcamp/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// objectiveFor maps the event types quests listen to onto objective types.
var objectiveFor = map[event.Type]catalog.ObjectiveType{
	event.ResourceCollected:   catalog.ObjectiveCollect,
	event.ItemCrafted:         catalog.ObjectiveCraft,
	event.ExpeditionCompleted: catalog.ObjectiveExpedition,
	event.CreatureKilled:      catalog.ObjectiveKill,
}

// Service handles all quest operations.
type Service struct {
	db     *gorm.DB
	cat    *catalog.Catalog
	items  *item.Store
	locks  *playerlock.Locker
	bus    *event.Bus
	game   config.GameConfig
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates a quest Service.
func NewService(db *gorm.DB, cat *catalog.Catalog, items *item.Store, locks *playerlock.Locker,
	bus *event.Bus, game config.GameConfig, logger *zap.Logger) *Service {
	return &Service{db: db, cat: cat, items: items, locks: locks, bus: bus, game: game, logger: logger, now: time.Now}
}

// Attach subscribes the tracker to the events that move objectives.
func (svc *Service) Attach(bus *event.Bus) {
	for t := range objectiveFor {
		bus.Register(t, 100, "quest", svc.handle)
	}
	bus.Register(event.LevelUp, 100, "quest", svc.handle)
}

func (svc *Service) handle(ctx context.Context, ev event.Event) error {
	_, err := svc.UpdateProgress(ctx, ev.PlayerID, ev)
	return err
}

// Status is the derived view of one quest for a player.
type Status struct {
	Quest       *catalog.Quest                      `json:"quest"`
	Status      string                              `json:"status"`
	Locked      bool                                `json:"locked"`
	Progress    map[string]*model.ObjectiveProgress `json:"progress"`
	StartedAt   *time.Time                          `json:"started_at,omitempty"`
	CompletedAt *time.Time                          `json:"completed_at,omitempty"`
}

// CheckResult is the outcome of CheckObjectives.
type CheckResult struct {
	QuestID       int                                 `json:"quest_id"`
	Status        string                              `json:"status"`
	Completed     bool                                `json:"completed"`
	CanComplete   bool                                `json:"can_complete"`
	AutoCompleted bool                                `json:"auto_completed"`
	Progress      map[string]*model.ObjectiveProgress `json:"progress"`
}

// Completion summarizes a paid-out quest.
type Completion struct {
	Quest   *model.PlayerQuest `json:"quest"`
	Rewards catalog.Rewards    `json:"rewards"`
	Level   int                `json:"level"`
	Leveled bool               `json:"leveled_up"`
}

func progressKey(obj catalog.Objective, idx int) string {
	return fmt.Sprintf("%s_%d_%d", obj.Type, obj.TargetID, idx)
}

// freshProgress builds the starting progress map. Level objectives start at
// the player's current level.
func freshProgress(q *catalog.Quest, level int) map[string]*model.ObjectiveProgress {
	progress := make(map[string]*model.ObjectiveProgress, len(q.Objectives))
	for i, obj := range q.Objectives {
		op := &model.ObjectiveProgress{Required: obj.Quantity}
		if obj.Type == catalog.ObjectiveLevel {
			op.Current = min(level, obj.Quantity)
		}
		op.Completed = op.Current >= op.Required
		progress[progressKey(obj, i)] = op
	}
	return progress
}

// refreshLevels re-reads level objectives from the player's current level.
// It reports whether anything changed.
func refreshLevels(q *catalog.Quest, progress map[string]*model.ObjectiveProgress, level int) bool {
	changed := false
	for i, obj := range q.Objectives {
		if obj.Type != catalog.ObjectiveLevel {
			continue
		}
		key := progressKey(obj, i)
		op := progress[key]
		if op == nil {
			op = &model.ObjectiveProgress{Required: obj.Quantity}
			progress[key] = op
		}
		if cur := min(level, obj.Quantity); cur > op.Current {
			op.Current = cur
			op.Completed = cur >= op.Required
			changed = true
		}
	}
	return changed
}

func allComplete(q *catalog.Quest, progress map[string]*model.ObjectiveProgress) bool {
	for i, obj := range q.Objectives {
		op := progress[progressKey(obj, i)]
		if op == nil || !op.Completed {
			return false
		}
	}
	return true
}

func (svc *Service) quest(questID int) (*catalog.Quest, error) {
	q, ok := svc.cat.Quest(questID)
	if !ok {
		return nil, gameerr.NotFound("quest %d not found", questID)
	}
	return q, nil
}

func errNotStarted(questID int) error {
	return gameerr.InvalidOperation("quest %d is not active: it has not been started", questID)
}

func findRow(tx *gorm.DB, playerID int64, questID int) (*model.PlayerQuest, error) {
	var pq model.PlayerQuest
	err := tx.Where("player_id = ? AND quest_id = ?", playerID, questID).First(&pq).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &pq, nil
}

func activeRow(tx *gorm.DB, playerID int64, questID int) (*model.PlayerQuest, error) {
	pq, err := findRow(tx, playerID, questID)
	if err != nil {
		return nil, err
	}
	if pq == nil {
		return nil, errNotStarted(questID)
	}
	if pq.Status != model.QuestActive {
		return nil, gameerr.InvalidOperation("quest %d is %s", questID, pq.Status)
	}
	return pq, nil
}

func (svc *Service) countActive(tx *gorm.DB, playerID int64) (int64, error) {
	var n int64
	err := tx.Model(&model.PlayerQuest{}).
		Where("player_id = ? AND status = ?", playerID, model.QuestActive).Count(&n).Error
	return n, err
}

// Start accepts a quest. A cancelled quest may be started again with fresh
// progress; a completed one may not.
func (svc *Service) Start(ctx context.Context, playerID int64, questID int) (*model.PlayerQuest, error) {
	q, err := svc.quest(questID)
	if err != nil {
		return nil, err
	}
	unlock := svc.locks.Lock(playerID)
	defer unlock()

	var pq *model.PlayerQuest
	err = svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p model.Player
		if err := player.Load(tx, playerID, &p); err != nil {
			return err
		}
		if p.Level < q.RequiredLevel {
			return gameerr.InvalidOperation("%s requires level %d, player is level %d", q.Name, q.RequiredLevel, p.Level)
		}
		existing, err := findRow(tx, playerID, questID)
		if err != nil {
			return err
		}
		if existing != nil {
			switch existing.Status {
			case model.QuestActive:
				return gameerr.InvalidOperation("quest %s is already active", q.Name)
			case model.QuestCompleted:
				return gameerr.InvalidOperation("quest %s is already completed", q.Name)
			}
		}
		n, err := svc.countActive(tx, playerID)
		if err != nil {
			return err
		}
		if int(n) >= svc.game.MaxActiveQuests {
			return gameerr.InvalidOperation("at most %d quests can be active at once", svc.game.MaxActiveQuests)
		}

		pq = existing
		if pq == nil {
			pq = &model.PlayerQuest{PlayerID: playerID, QuestID: questID}
		}
		pq.Status = model.QuestActive
		pq.StartedAt = svc.now()
		pq.CompletedAt = nil
		pq.SetProgress(freshProgress(q, p.Level))
		return tx.Save(pq).Error
	})
	if err != nil {
		return nil, err
	}
	svc.logger.Info("quest started", zap.Int64("player_id", playerID), zap.Int("quest_id", questID))
	return pq, nil
}

// Cancel abandons an active quest without rewards.
func (svc *Service) Cancel(ctx context.Context, playerID int64, questID int) (*model.PlayerQuest, error) {
	if _, err := svc.quest(questID); err != nil {
		return nil, err
	}
	unlock := svc.locks.Lock(playerID)
	defer unlock()

	var pq *model.PlayerQuest
	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if pq, err = activeRow(tx, playerID, questID); err != nil {
			return err
		}
		now := svc.now()
		pq.Status = model.QuestCancelled
		pq.CompletedAt = &now
		return tx.Save(pq).Error
	})
	if err != nil {
		return nil, err
	}
	svc.logger.Info("quest cancelled", zap.Int64("player_id", playerID), zap.Int("quest_id", questID))
	return pq, nil
}

// UpdateProgress applies one domain event to every active quest of the
// player. Matching objectives advance by the event quantity, clamped to
// what they require. It returns the ids of quests completed automatically.
func (svc *Service) UpdateProgress(ctx context.Context, playerID int64, ev event.Event) ([]int, error) {
	objType, tracked := objectiveFor[ev.Type]
	if !tracked && ev.Type != event.LevelUp {
		return nil, nil
	}
	qty := ev.Quantity
	if qty <= 0 {
		qty = 1
	}

	unlock := svc.locks.Lock(playerID)
	var (
		auto   []int
		events []event.Event
	)
	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rows []model.PlayerQuest
		if err := tx.Where("player_id = ? AND status = ?", playerID, model.QuestActive).
			Order("quest_id").Find(&rows).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		var p model.Player
		if err := player.Load(tx, playerID, &p); err != nil {
			return err
		}
		for i := range rows {
			pq := &rows[i]
			q, ok := svc.cat.Quest(pq.QuestID)
			if !ok {
				continue
			}
			progress := pq.ProgressMap()
			changed := refreshLevels(q, progress, p.Level)
			if tracked {
				for j, obj := range q.Objectives {
					if obj.Type != objType || obj.TargetID != ev.TargetID {
						continue
					}
					key := progressKey(obj, j)
					op := progress[key]
					if op == nil {
						op = &model.ObjectiveProgress{Required: obj.Quantity}
						progress[key] = op
					}
					if op.Current >= op.Required {
						continue
					}
					op.Current = min(op.Current+qty, op.Required)
					op.Completed = op.Current >= op.Required
					changed = true
				}
			}
			if !changed {
				continue
			}
			pq.SetProgress(progress)
			if err := tx.Model(pq).Update("progress", pq.Progress).Error; err != nil {
				return err
			}
			if p.AutoCompleteQuests && allComplete(q, progress) {
				evs, err := svc.complete(tx, &p, pq, q)
				if err != nil {
					return err
				}
				auto = append(auto, q.ID)
				events = append(events, evs...)
			}
		}
		return nil
	})
	unlock()
	if err != nil {
		return nil, err
	}
	svc.publish(ctx, events)
	return auto, nil
}

// CheckObjectives re-evaluates a quest, persists the snapshot and, when
// the player has auto-completion on, completes it.
func (svc *Service) CheckObjectives(ctx context.Context, playerID int64, questID int) (*CheckResult, error) {
	q, err := svc.quest(questID)
	if err != nil {
		return nil, err
	}
	unlock := svc.locks.Lock(playerID)
	var (
		res    *CheckResult
		events []event.Event
	)
	err = svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		pq, err := findRow(tx, playerID, questID)
		if err != nil {
			return err
		}
		if pq == nil {
			return errNotStarted(questID)
		}
		progress := pq.ProgressMap()
		res = &CheckResult{QuestID: questID, Status: pq.Status, Progress: progress}
		if pq.Status != model.QuestActive {
			res.Completed = pq.Status == model.QuestCompleted
			return nil
		}

		var p model.Player
		if err := player.Load(tx, playerID, &p); err != nil {
			return err
		}
		refreshLevels(q, progress, p.Level)
		pq.SetProgress(progress)
		if err := tx.Model(pq).Update("progress", pq.Progress).Error; err != nil {
			return err
		}
		res.CanComplete = allComplete(q, progress)
		if res.CanComplete && p.AutoCompleteQuests {
			if events, err = svc.complete(tx, &p, pq, q); err != nil {
				return err
			}
			res.Status = model.QuestCompleted
			res.Completed = true
			res.CanComplete = false
			res.AutoCompleted = true
		}
		return nil
	})
	unlock()
	if err != nil {
		return nil, err
	}
	svc.publish(ctx, events)
	return res, nil
}

// Complete pays out an active quest whose objectives are all met.
func (svc *Service) Complete(ctx context.Context, playerID int64, questID int) (*Completion, error) {
	q, err := svc.quest(questID)
	if err != nil {
		return nil, err
	}
	unlock := svc.locks.Lock(playerID)
	var (
		out    *Completion
		events []event.Event
	)
	err = svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		pq, err := activeRow(tx, playerID, questID)
		if err != nil {
			return err
		}
		var p model.Player
		if err := player.Load(tx, playerID, &p); err != nil {
			return err
		}
		progress := pq.ProgressMap()
		refreshLevels(q, progress, p.Level)
		if !allComplete(q, progress) {
			return gameerr.InvalidOperation("quest %s has unfinished objectives", q.Name)
		}
		pq.SetProgress(progress)
		before := p.Level
		if events, err = svc.complete(tx, &p, pq, q); err != nil {
			return err
		}
		out = &Completion{Quest: pq, Rewards: q.Rewards, Level: p.Level, Leveled: p.Level > before}
		return nil
	})
	unlock()
	if err != nil {
		return nil, err
	}
	svc.publish(ctx, events)
	return out, nil
}

// complete marks pq completed and pays the rewards inside tx. Item rewards
// always go to storage. It returns the events to publish after commit.
func (svc *Service) complete(tx *gorm.DB, p *model.Player, pq *model.PlayerQuest, q *catalog.Quest) ([]event.Event, error) {
	now := svc.now()
	pq.Status = model.QuestCompleted
	pq.CompletedAt = &now
	if err := tx.Save(pq).Error; err != nil {
		return nil, err
	}

	leveled := player.AddExperience(p, q.Rewards.Experience)
	p.Coins += q.Rewards.Coins
	if err := player.SaveProgress(tx, p); err != nil {
		return nil, err
	}
	for _, it := range q.Rewards.Items {
		if err := svc.items.AddStorage(tx, p.ID, it.ItemType, it.ItemID, it.Quantity); err != nil {
			return nil, err
		}
	}

	svc.logger.Info("quest completed",
		zap.Int64("player_id", p.ID),
		zap.Int("quest_id", q.ID),
		zap.Int64("experience", q.Rewards.Experience),
		zap.Int64("coins", q.Rewards.Coins))
	events := []event.Event{{Type: event.QuestCompleted, PlayerID: p.ID, TargetID: q.ID, Quantity: 1}}
	if leveled {
		events = append(events, player.LevelUpEvent(p))
	}
	return events, nil
}

func (svc *Service) publish(ctx context.Context, events []event.Event) {
	if svc.bus != nil && len(events) > 0 {
		svc.bus.Publish(ctx, events...)
	}
}

// Reset puts a started quest back to active with fresh progress. Testing only.
func (svc *Service) Reset(ctx context.Context, playerID int64, questID int) (*model.PlayerQuest, error) {
	q, err := svc.quest(questID)
	if err != nil {
		return nil, err
	}
	unlock := svc.locks.Lock(playerID)
	defer unlock()

	var pq *model.PlayerQuest
	err = svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if pq, err = findRow(tx, playerID, questID); err != nil {
			return err
		}
		if pq == nil {
			return errNotStarted(questID)
		}
		var p model.Player
		if err := player.Load(tx, playerID, &p); err != nil {
			return err
		}
		if pq.Status != model.QuestActive {
			n, err := svc.countActive(tx, playerID)
			if err != nil {
				return err
			}
			if int(n) >= svc.game.MaxActiveQuests {
				return gameerr.InvalidOperation("at most %d quests can be active at once", svc.game.MaxActiveQuests)
			}
		}
		pq.Status = model.QuestActive
		pq.StartedAt = svc.now()
		pq.CompletedAt = nil
		pq.SetProgress(freshProgress(q, p.Level))
		return tx.Save(pq).Error
	})
	if err != nil {
		return nil, err
	}
	svc.logger.Info("quest reset", zap.Int64("player_id", playerID), zap.Int("quest_id", questID))
	return pq, nil
}

// List returns every catalog quest with the player's status on it.
func (svc *Service) List(ctx context.Context, playerID int64) ([]*Status, error) {
	var p model.Player
	if err := player.Load(svc.db.WithContext(ctx), playerID, &p); err != nil {
		return nil, err
	}
	var rows []model.PlayerQuest
	if err := svc.db.WithContext(ctx).Where("player_id = ?", playerID).Find(&rows).Error; err != nil {
		return nil, err
	}
	byQuest := make(map[int]*model.PlayerQuest, len(rows))
	for i := range rows {
		byQuest[rows[i].QuestID] = &rows[i]
	}

	quests := svc.cat.QuestList()
	out := make([]*Status, 0, len(quests))
	for _, q := range quests {
		st := &Status{Quest: q, Status: model.QuestAvailable, Locked: p.Level < q.RequiredLevel}
		if pq, ok := byQuest[q.ID]; ok {
			st.Status = pq.Status
			st.Progress = pq.ProgressMap()
			started := pq.StartedAt
			st.StartedAt = &started
			st.CompletedAt = pq.CompletedAt
			if pq.Status == model.QuestActive {
				refreshLevels(q, st.Progress, p.Level)
			}
		} else {
			st.Progress = freshProgress(q, p.Level)
		}
		out = append(out, st)
	}
	return out, nil
}
