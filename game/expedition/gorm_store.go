package expedition

import (
	"context"
	"errors"
	"time"

	dbpkg "github.com/kasuganosora/survivalcamp/db"
	"github.com/kasuganosora/survivalcamp/gameerr"
	"github.com/kasuganosora/survivalcamp/model"
	"gorm.io/gorm"
)

// GormStore keeps expeditions in the expeditions table. Calls made with a
// context from db.WithTx join that transaction.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a GormStore.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) conn(ctx context.Context) *gorm.DB {
	return dbpkg.Conn(ctx, s.db)
}

func (s *GormStore) Create(ctx context.Context, e *model.Expedition) error {
	var n int64
	if err := s.conn(ctx).Model(&model.Expedition{}).
		Where("player_id = ? AND status = ?", e.PlayerID, model.ExpeditionActive).
		Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return errActive(e.PlayerID)
	}
	e.ClaimSlot()
	if err := s.conn(ctx).Create(e).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return errActive(e.PlayerID)
		}
		return err
	}
	return nil
}

func (s *GormStore) Get(ctx context.Context, id string) (*model.Expedition, error) {
	var e model.Expedition
	if err := s.conn(ctx).First(&e, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errNotFound(id)
		}
		return nil, err
	}
	return &e, nil
}

func (s *GormStore) ActiveFor(ctx context.Context, playerID int64) (*model.Expedition, error) {
	var e model.Expedition
	err := s.conn(ctx).Where("player_id = ? AND status = ?", playerID, model.ExpeditionActive).
		First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *GormStore) Save(ctx context.Context, e *model.Expedition) error {
	e.ClaimSlot()
	if err := s.conn(ctx).Save(e).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return errActive(e.PlayerID)
		}
		return err
	}
	return nil
}

func (s *GormStore) Delete(ctx context.Context, id string) error {
	return s.conn(ctx).Delete(&model.Expedition{}, "id = ?", id).Error
}

func (s *GormStore) DeletePlayer(ctx context.Context, playerID int64) error {
	return s.conn(ctx).Where("player_id = ?", playerID).Delete(&model.Expedition{}).Error
}

func (s *GormStore) FinishedBefore(ctx context.Context, cutoff time.Time) ([]string, error) {
	var ids []string
	err := s.conn(ctx).Model(&model.Expedition{}).
		Where("status <> ? AND completed_at IS NOT NULL AND completed_at < ?", model.ExpeditionActive, cutoff).
		Order("completed_at").
		Pluck("id", &ids).Error
	return ids, err
}

func errActive(playerID int64) error {
	return gameerr.InvalidOperation("player %d already has an active expedition", playerID)
}

func errNotFound(id string) error {
	return gameerr.NotFound("expedition %s not found", id)
}
