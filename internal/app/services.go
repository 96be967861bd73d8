package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/mycelium-backend/internal/data/aggregates"
	domainagg "github.com/yungbote/mycelium-backend/internal/domain/aggregates"
	"github.com/yungbote/mycelium-backend/internal/observability"
	"github.com/yungbote/mycelium-backend/internal/platform/logger"
	"github.com/yungbote/mycelium-backend/internal/services"
)

type Services struct {
	Auth      services.AuthService
	Deck      services.DeckService
	Research  services.ResearchService
	Reconcile services.ReconcileRunner

	ResearchAggregate domainagg.ResearchAggregate
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, reposet Repos, clients Clients, metrics *observability.Metrics) Services {
	log.Info("Wiring services...")

	agg := aggregates.NewResearchAggregate(aggregates.ResearchAggregateDeps{
		BaseDeps: aggregates.BaseDeps{
			DB:    db,
			Log:   log,
			Hooks: aggregates.NewObservabilityHooks(metrics),
		},
		Cards:    reposet.DeckCard,
		Results:  reposet.ResearchResult,
		Sessions: reposet.ResearchSession,
	})

	return Services{
		Auth:              services.NewAuthService(log, cfg.JWTSecretKey, cfg.JWTAudience),
		Deck:              services.NewDeckService(db, log, reposet.Deck, reposet.DeckCard, reposet.ResearchResult, reposet.ResearchSession),
		Research:          services.NewResearchService(log, agg, reposet.Deck, reposet.ResearchResult, reposet.ResearchSession, clients.EventBus, metrics),
		Reconcile:         services.NewReconcileRunner(log, agg, reposet.Deck, metrics),
		ResearchAggregate: agg,
	}
}
