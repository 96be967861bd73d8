package decks

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/mycelium-backend/internal/domain"
	"github.com/yungbote/mycelium-backend/internal/platform/dbctx"
	"github.com/yungbote/mycelium-backend/internal/platform/logger"
)

type DeckCardRepo interface {
	// Upsert writes the card keyed on (deck_id, card_slot).
	Upsert(dbc dbctx.Context, row *types.DeckCard) error
	GetByDeckSlot(dbc dbctx.Context, deckID uuid.UUID, slot int) (*types.DeckCard, error)
	ListByDeckID(dbc dbctx.Context, deckID uuid.UUID) ([]*types.DeckCard, error)
	ListByDeckSlots(dbc dbctx.Context, deckID uuid.UUID, slots []int) ([]*types.DeckCard, error)
	FullDeleteByDeckIDs(dbc dbctx.Context, deckIDs []uuid.UUID) error
}

type deckCardRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDeckCardRepo(db *gorm.DB, baseLog *logger.Logger) DeckCardRepo {
	return &deckCardRepo{db: db, log: baseLog.With("repo", "DeckCardRepo")}
}

func (r *deckCardRepo) Upsert(dbc dbctx.Context, row *types.DeckCard) error {
	if row == nil || row.DeckID == uuid.Nil {
		return nil
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	row.UpdatedAt = time.Now().UTC()

	return dbc.DB(r.db).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "deck_id"}, {Name: "card_slot"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"card_type",
				"card_data",
				"evaluation",
				"updated_at",
			}),
		}).
		Create(row).Error
}

func (r *deckCardRepo) GetByDeckSlot(dbc dbctx.Context, deckID uuid.UUID, slot int) (*types.DeckCard, error) {
	rows, err := r.ListByDeckSlots(dbc, deckID, []int{slot})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *deckCardRepo) ListByDeckID(dbc dbctx.Context, deckID uuid.UUID) ([]*types.DeckCard, error) {
	var out []*types.DeckCard
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

func (r *deckCardRepo) ListByDeckSlots(dbc dbctx.Context, deckID uuid.UUID, slots []int) ([]*types.DeckCard, error) {
	var out []*types.DeckCard
	if deckID == uuid.Nil || len(slots) == 0 {
		return out, nil
	}
	if err := dbc.DB(r.db).
		Where("deck_id = ? AND card_slot IN ?", deckID, slots).
		Order("card_slot ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *deckCardRepo) FullDeleteByDeckIDs(dbc dbctx.Context, deckIDs []uuid.UUID) error {
	if len(deckIDs) == 0 {
		return nil
	}
	return dbc.DB(r.db).Where("deck_id IN ?", deckIDs).Delete(&types.DeckCard{}).Error
}
