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

type SessionRepo interface {
	Create(dbc dbctx.Context, row *types.ResearchSession) (*types.ResearchSession, error)
	// CreateIfAbsent inserts row unless the deck already has a session. It reports whether a row was written.
	CreateIfAbsent(dbc dbctx.Context, row *types.ResearchSession) (bool, error)
	GetByDeckID(dbc dbctx.Context, deckID uuid.UUID) (*types.ResearchSession, error)
	LockByDeckID(dbc dbctx.Context, deckID uuid.UUID) (*types.ResearchSession, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	FullDeleteByDeckIDs(dbc dbctx.Context, deckIDs []uuid.UUID) error
}

type sessionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSessionRepo(db *gorm.DB, baseLog *logger.Logger) SessionRepo {
	return &sessionRepo{db: db, log: baseLog.With("repo", "ResearchSessionRepo")}
}

func (r *sessionRepo) Create(dbc dbctx.Context, row *types.ResearchSession) (*types.ResearchSession, error) {
	if row == nil {
		return nil, nil
	}
	if err := dbc.DB(r.db).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

func (r *sessionRepo) CreateIfAbsent(dbc dbctx.Context, row *types.ResearchSession) (bool, error) {
	if row == nil || row.DeckID == uuid.Nil {
		return false, nil
	}
	res := dbc.DB(r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "deck_id"}},
			DoNothing: true,
		}).
		Create(row)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *sessionRepo) GetByDeckID(dbc dbctx.Context, deckID uuid.UUID) (*types.ResearchSession, error) {
	return r.findByDeckID(dbc.DB(r.db), deckID)
}

func (r *sessionRepo) LockByDeckID(dbc dbctx.Context, deckID uuid.UUID) (*types.ResearchSession, error) {
	return r.findByDeckID(dbc.DB(r.db).Clauses(clause.Locking{Strength: "UPDATE"}), deckID)
}

func (r *sessionRepo) findByDeckID(q *gorm.DB, deckID uuid.UUID) (*types.ResearchSession, error) {
	if deckID == uuid.Nil {
		return nil, nil
	}
	var row types.ResearchSession
	if err := q.Where("deck_id = ?", deckID).Limit(1).Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *sessionRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil {
		return nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return dbc.DB(r.db).
		Model(&types.ResearchSession{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *sessionRepo) FullDeleteByDeckIDs(dbc dbctx.Context, deckIDs []uuid.UUID) error {
	if len(deckIDs) == 0 {
		return nil
	}
	return dbc.DB(r.db).Where("deck_id IN ?", deckIDs).Delete(&types.ResearchSession{}).Error
}
