package deck

import (
	"bytes"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DeckCard is one slot of a deck. Rows are unique per (deck_id, card_slot) and written by upsert.
type DeckCard struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	DeckID     uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_deck_cards_deck_slot,priority:1" json:"deck_id"`
	CardSlot   int            `gorm:"not null;uniqueIndex:idx_deck_cards_deck_slot,priority:2;column:card_slot" json:"card_slot"`
	CardType   string         `gorm:"not null;column:card_type" json:"card_type"`
	CardData   datatypes.JSON `gorm:"type:jsonb;column:card_data" json:"card_data"`
	Evaluation datatypes.JSON `gorm:"type:jsonb;column:evaluation" json:"evaluation,omitempty"`
	CreatedAt  time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (DeckCard) TableName() string { return "deck_cards" }

func (c *DeckCard) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// HasContent reports whether card_data carries anything beyond an empty JSON value.
func (c *DeckCard) HasContent() bool {
	if c == nil {
		return false
	}
	raw := bytes.TrimSpace(c.CardData)
	switch string(raw) {
	case "", "null", "{}", "[]", `""`:
		return false
	}
	return true
}
