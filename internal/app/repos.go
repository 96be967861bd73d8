package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/mycelium-backend/internal/data/repos"
	"github.com/yungbote/mycelium-backend/internal/platform/logger"
)

type Repos struct {
	Deck            repos.DeckRepo
	DeckCard        repos.DeckCardRepo
	ResearchResult  repos.ResearchResultRepo
	ResearchSession repos.ResearchSessionRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Deck:            repos.NewDeckRepo(db, log),
		DeckCard:        repos.NewDeckCardRepo(db, log),
		ResearchResult:  repos.NewResearchResultRepo(db, log),
		ResearchSession: repos.NewResearchSessionRepo(db, log),
	}
}
