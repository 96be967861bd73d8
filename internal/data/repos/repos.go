package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/mycelium-backend/internal/data/repos/decks"
	"github.com/yungbote/mycelium-backend/internal/data/repos/research"
	"github.com/yungbote/mycelium-backend/internal/platform/logger"
)

type DeckRepo = decks.DeckRepo
type DeckCardRepo = decks.DeckCardRepo

type ResearchResultRepo = research.ResultRepo
type ResearchSessionRepo = research.SessionRepo

func NewDeckRepo(db *gorm.DB, baseLog *logger.Logger) DeckRepo { return decks.NewDeckRepo(db, baseLog) }
func NewDeckCardRepo(db *gorm.DB, baseLog *logger.Logger) DeckCardRepo {
	return decks.NewDeckCardRepo(db, baseLog)
}

func NewResearchResultRepo(db *gorm.DB, baseLog *logger.Logger) ResearchResultRepo {
	return research.NewResultRepo(db, baseLog)
}
func NewResearchSessionRepo(db *gorm.DB, baseLog *logger.Logger) ResearchSessionRepo {
	return research.NewSessionRepo(db, baseLog)
}
