package db

import (
	"fmt"

	"gorm.io/gorm"

	types "github.com/yungbote/mycelium-backend/internal/domain"
)

func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(types.Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return EnsureResearchIndexes(db)
}

// EnsureResearchIndexes adds the lookup indexes AutoMigrate does not derive from struct tags.
func EnsureResearchIndexes(db *gorm.DB) error {
	stmts := []struct {
		name string
		sql  string
	}{
		{"idx_decks_user_created", `CREATE INDEX IF NOT EXISTS idx_decks_user_created ON decks(user_id, created_at);`},
		{"idx_research_results_deck_status", `CREATE INDEX IF NOT EXISTS idx_research_results_deck_status ON research_results(deck_id, status);`},
	}
	for _, s := range stmts {
		if err := db.Exec(s.sql).Error; err != nil {
			return fmt.Errorf("create %s: %w", s.name, err)
		}
	}
	return nil
}
