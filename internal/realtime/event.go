package realtime

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventResearchStarted   EventType = "research.started"
	EventResearchReady     EventType = "research.ready"
	EventResearchAccepted  EventType = "research.accepted"
	EventResearchCompleted EventType = "research.completed"
)

// Event is a research progression notification published after a write commits.
type Event struct {
	ID                  uuid.UUID `json:"id"`
	Type                EventType `json:"type"`
	UserID              uuid.UUID `json:"user_id"`
	DeckID              uuid.UUID `json:"deck_id"`
	CardSlot            int       `json:"card_slot,omitempty"`
	Status              string    `json:"status,omitempty"`
	FinalRarity         string    `json:"final_rarity,omitempty"`
	CurrentUnlockedSlot int       `json:"current_unlocked_slot,omitempty"`
	OccurredAt          time.Time `json:"occurred_at"`
}

func NewEvent(t EventType, userID, deckID uuid.UUID) Event {
	return Event{
		ID:         uuid.New(),
		Type:       t,
		UserID:     userID,
		DeckID:     deckID,
		OccurredAt: time.Now().UTC(),
	}
}
