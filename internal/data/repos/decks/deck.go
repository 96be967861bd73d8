package decks

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/mycelium-backend/internal/domain"
	"github.com/yungbote/mycelium-backend/internal/platform/dbctx"
	"github.com/yungbote/mycelium-backend/internal/platform/logger"
)

type DeckRepo interface {
	Create(dbc dbctx.Context, rows []*types.Deck) ([]*types.Deck, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Deck, error)
	// GetOwned filters on both id and owner so non-owners see the same result as a missing deck.
	GetOwned(dbc dbctx.Context, id uuid.UUID, userID uuid.UUID) (*types.Deck, error)
	ListByUserID(dbc dbctx.Context, userID uuid.UUID) ([]*types.Deck, error)
	ListIDsAfter(dbc dbctx.Context, after uuid.UUID, limit int) ([]uuid.UUID, error)
	FullDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error
}

type deckRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDeckRepo(db *gorm.DB, baseLog *logger.Logger) DeckRepo {
	return &deckRepo{db: db, log: baseLog.With("repo", "DeckRepo")}
}

func (r *deckRepo) Create(dbc dbctx.Context, rows []*types.Deck) ([]*types.Deck, error) {
	if len(rows) == 0 {
		return []*types.Deck{}, nil
	}
	if err := dbc.DB(r.db).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *deckRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Deck, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var row types.Deck
	if err := dbc.DB(r.db).Where("id = ?", id).Limit(1).Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *deckRepo) GetOwned(dbc dbctx.Context, id uuid.UUID, userID uuid.UUID) (*types.Deck, error) {
	if id == uuid.Nil || userID == uuid.Nil {
		return nil, nil
	}
	var row types.Deck
	if err := dbc.DB(r.db).
		Where("id = ? AND user_id = ?", id, userID).
		Limit(1).
		Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *deckRepo) ListByUserID(dbc dbctx.Context, userID uuid.UUID) ([]*types.Deck, error) {
	var out []*types.Deck
	if userID == uuid.Nil {
		return out, nil
	}
	if err := dbc.DB(r.db).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ListIDsAfter pages through every deck id in ascending order.
func (r *deckRepo) ListIDsAfter(dbc dbctx.Context, after uuid.UUID, limit int) ([]uuid.UUID, error) {
	if limit <= 0 {
		limit = 500
	}
	var out []uuid.UUID
	q := dbc.DB(r.db).Model(&types.Deck{})
	if after != uuid.Nil {
		q = q.Where("id > ?", after)
	}
	if err := q.Order("id ASC").Limit(limit).Pluck("id", &out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *deckRepo) FullDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return dbc.DB(r.db).Where("id IN ?", ids).Delete(&types.Deck{}).Error
}
