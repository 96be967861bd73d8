package domain

import (
	"github.com/yungbote/mycelium-backend/internal/domain/deck"
	"github.com/yungbote/mycelium-backend/internal/domain/research"
)

type (
	Deck     = deck.Deck
	DeckCard = deck.DeckCard

	ResearchResult  = research.Result
	ResearchSession = research.Session
)

// Models lists every persisted type, in migration order.
func Models() []any {
	return []any{
		&Deck{},
		&DeckCard{},
		&ResearchSession{},
		&ResearchResult{},
	}
}
