package expedition

import (
	"context"

	"github.com/kasuganosora/survivalcamp/model"
	"go.uber.org/zap"
)

// journal wraps the Store for one engine transaction. It remembers the
// first state read for every expedition and which ones were created or
// saved, so undo can put them back after a rollback.
type journal struct {
	Store
	read    map[string]model.Expedition
	created []*model.Expedition
	saved   []string
}

func newJournal(s Store) *journal {
	return &journal{Store: s, read: make(map[string]model.Expedition)}
}

func (j *journal) Get(ctx context.Context, id string) (*model.Expedition, error) {
	e, err := j.Store.Get(ctx, id)
	if err == nil {
		if _, seen := j.read[id]; !seen {
			j.read[id] = *e
		}
	}
	return e, err
}

func (j *journal) Create(ctx context.Context, e *model.Expedition) error {
	err := j.Store.Create(ctx, e)
	if err == nil {
		j.created = append(j.created, e)
	}
	return err
}

func (j *journal) Save(ctx context.Context, e *model.Expedition) error {
	j.saved = append(j.saved, e.ID)
	return j.Store.Save(ctx, e)
}

// undo deletes what was created and restores what was saved. ctx must not
// carry the finished transaction. For GormStore the rollback already did
// this and undo rewrites the same rows.
func (j *journal) undo(ctx context.Context, logger *zap.Logger) {
	for _, e := range j.created {
		if err := j.Store.Delete(ctx, e.ID); err != nil {
			logger.Error("expedition undo failed",
				zap.String("expedition_id", e.ID), zap.String("op", "create"), zap.Error(err))
		}
	}
	restored := make(map[string]bool, len(j.saved))
	for _, id := range j.saved {
		prev, ok := j.read[id]
		if !ok || restored[id] {
			continue
		}
		restored[id] = true
		if err := j.Store.Save(ctx, &prev); err != nil {
			logger.Error("expedition undo failed",
				zap.String("expedition_id", id), zap.String("op", "save"), zap.Error(err))
		}
	}
}
