package research

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Result holds the findings for one research slot of a deck.
type Result struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	DeckID       uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_research_results_deck_slot,priority:1" json:"deck_id"`
	CardSlot     int            `gorm:"not null;uniqueIndex:idx_research_results_deck_slot,priority:2;column:card_slot" json:"card_slot"`
	Findings     datatypes.JSON `gorm:"type:jsonb;column:findings" json:"findings,omitempty"`
	RarityScores datatypes.JSON `gorm:"type:jsonb;column:rarity_scores" json:"rarity_scores,omitempty"`
	FinalRarity  string         `gorm:"column:final_rarity" json:"final_rarity,omitempty"`
	Status       Status         `gorm:"not null;default:'locked';column:status;index" json:"status"`
	ResearchedAt *time.Time     `gorm:"column:researched_at" json:"researched_at,omitempty"`
	AcceptedAt   *time.Time     `gorm:"column:accepted_at" json:"accepted_at,omitempty"`
	CreatedAt    time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (Result) TableName() string { return "research_results" }

func (r *Result) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.Status == "" {
		r.Status = StatusLocked
	}
	return nil
}

func (r *Result) Scores() (Scores, bool) {
	var s Scores
	if r == nil || len(r.RarityScores) == 0 {
		return s, false
	}
	if err := json.Unmarshal(r.RarityScores, &s); err != nil {
		return s, false
	}
	return s, true
}
