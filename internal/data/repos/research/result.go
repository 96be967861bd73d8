package research

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/mycelium-backend/internal/domain"
	"github.com/yungbote/mycelium-backend/internal/platform/dbctx"
	"github.com/yungbote/mycelium-backend/internal/platform/logger"
)

type ResultRepo interface {
	Create(dbc dbctx.Context, rows []*types.ResearchResult) ([]*types.ResearchResult, error)
	ListByDeckID(dbc dbctx.Context, deckID uuid.UUID) ([]*types.ResearchResult, error)
	GetByDeckSlot(dbc dbctx.Context, deckID uuid.UUID, slot int) (*types.ResearchResult, error)
	LockByDeckSlot(dbc dbctx.Context, deckID uuid.UUID, slot int) (*types.ResearchResult, error)
	// UpdateFields returns the number of rows changed.
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) (int64, error)
	FullDeleteByDeckIDs(dbc dbctx.Context, deckIDs []uuid.UUID) error
}

type resultRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewResultRepo(db *gorm.DB, baseLog *logger.Logger) ResultRepo {
	return &resultRepo{db: db, log: baseLog.With("repo", "ResearchResultRepo")}
}

func (r *resultRepo) Create(dbc dbctx.Context, rows []*types.ResearchResult) ([]*types.ResearchResult, error) {
	if len(rows) == 0 {
		return []*types.ResearchResult{}, nil
	}
	if err := dbc.DB(r.db).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *resultRepo) ListByDeckID(dbc dbctx.Context, deckID uuid.UUID) ([]*types.ResearchResult, error) {
	var out []*types.ResearchResult
	if deckID == uuid.Nil {
		return out, nil
	}
	if err := dbc.DB(r.db).
		Where("deck_id = ?", deckID).
		Order("card_slot ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *resultRepo) GetByDeckSlot(dbc dbctx.Context, deckID uuid.UUID, slot int) (*types.ResearchResult, error) {
	return r.findByDeckSlot(dbc.DB(r.db), deckID, slot)
}

func (r *resultRepo) LockByDeckSlot(dbc dbctx.Context, deckID uuid.UUID, slot int) (*types.ResearchResult, error) {
	return r.findByDeckSlot(dbc.DB(r.db).Clauses(clause.Locking{Strength: "UPDATE"}), deckID, slot)
}

func (r *resultRepo) findByDeckSlot(q *gorm.DB, deckID uuid.UUID, slot int) (*types.ResearchResult, error) {
	if deckID == uuid.Nil {
		return nil, nil
	}
	var row types.ResearchResult
	if err := q.
		Where("deck_id = ? AND card_slot = ?", deckID, slot).
		Limit(1).
		Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *resultRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) (int64, error) {
	if id == uuid.Nil {
		return 0, nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	res := dbc.DB(r.db).
		Model(&types.ResearchResult{}).
		Where("id = ?", id).
		Updates(updates)
	return res.RowsAffected, res.Error
}

func (r *resultRepo) FullDeleteByDeckIDs(dbc dbctx.Context, deckIDs []uuid.UUID) error {
	if len(deckIDs) == 0 {
		return nil
	}
	return dbc.DB(r.db).Where("deck_id IN ?", deckIDs).Delete(&types.ResearchResult{}).Error
}
