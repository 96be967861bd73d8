package research

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SessionStatus string

const (
	SessionLocked     SessionStatus = "locked"
	SessionInProgress SessionStatus = "in_progress"
	SessionCompleted  SessionStatus = "completed"
)

// Session tracks a deck's position in the research chain. One row per deck.
type Session struct {
	ID              uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	DeckID          uuid.UUID     `gorm:"type:uuid;not null;uniqueIndex" json:"deck_id"`
	CurrentCardSlot int           `gorm:"not null;column:current_card_slot" json:"current_card_slot"`
	Status          SessionStatus `gorm:"not null;column:status" json:"status"`
	StartedAt       time.Time     `gorm:"not null;column:started_at" json:"started_at"`
	CompletedAt     *time.Time    `gorm:"column:completed_at" json:"completed_at,omitempty"`
	UpdatedAt       time.Time     `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (Session) TableName() string { return "research_sessions" }

func (s *Session) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.StartedAt.IsZero() {
		s.StartedAt = time.Now().UTC()
	}
	return nil
}
