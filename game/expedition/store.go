package expedition

import (
	"context"
	"time"

	"github.com/kasuganosora/survivalcamp/model"
)

// Store persists expeditions. Create must refuse a second active
// expedition for the same player with an InvalidOperation error.
type Store interface {
	Create(ctx context.Context, e *model.Expedition) error
	Get(ctx context.Context, id string) (*model.Expedition, error)
	// ActiveFor returns nil without error when the player has no active expedition.
	ActiveFor(ctx context.Context, playerID int64) (*model.Expedition, error)
	Save(ctx context.Context, e *model.Expedition) error
	Delete(ctx context.Context, id string) error
	DeletePlayer(ctx context.Context, playerID int64) error
	// FinishedBefore lists completed or cancelled expeditions that ended before cutoff.
	FinishedBefore(ctx context.Context, cutoff time.Time) ([]string, error)
}
