package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/yungbote/mycelium-backend/internal/data/aggregates"
	"github.com/yungbote/mycelium-backend/internal/data/repos"
	"github.com/yungbote/mycelium-backend/internal/data/repos/testutil"
	domainagg "github.com/yungbote/mycelium-backend/internal/domain/aggregates"
	"github.com/yungbote/mycelium-backend/internal/platform/ctxutil"
	"github.com/yungbote/mycelium-backend/internal/platform/logger"
	"github.com/yungbote/mycelium-backend/internal/realtime/bus"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	return testutil.Logger(t)
}

func asUser(userID uuid.UUID) context.Context {
	return ctxutil.WithRequestData(context.Background(), &ctxutil.RequestData{UserID: userID})
}

type env struct {
	db       *gorm.DB
	decks    repos.DeckRepo
	cards    repos.DeckCardRepo
	results  repos.ResearchResultRepo
	sessions repos.ResearchSessionRepo
	agg      domainagg.ResearchAggregate
	bus      *bus.Recorder

	deckSvc     DeckService
	researchSvc ResearchService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := testutil.DB(t)
	log := testLogger(t)
	e := &env{
		db:       db,
		decks:    repos.NewDeckRepo(db, log),
		cards:    repos.NewDeckCardRepo(db, log),
		results:  repos.NewResearchResultRepo(db, log),
		sessions: repos.NewResearchSessionRepo(db, log),
		bus:      &bus.Recorder{},
	}
	e.agg = aggregates.NewResearchAggregate(aggregates.ResearchAggregateDeps{
		BaseDeps: aggregates.BaseDeps{DB: db, Log: log},
		Cards:    e.cards,
		Results:  e.results,
		Sessions: e.sessions,
	})
	e.deckSvc = NewDeckService(db, log, e.decks, e.cards, e.results, e.sessions)
	e.researchSvc = NewResearchService(log, e.agg, e.decks, e.results, e.sessions, e.bus, nil)
	return e
}

// readyDeck creates a deck for owner with the vision phase filled in.
func (e *env) readyDeck(t *testing.T, owner uuid.UUID) uuid.UUID {
	t.Helper()
	d := testutil.SeedDeck(t, context.Background(), e.db, owner)
	testutil.SeedVisionCards(t, context.Background(), e.db, d.ID)
	return d.ID
}

func requireCode(t *testing.T, err error, code domainagg.ErrorCode) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, code, domainagg.CodeOf(err), "error: %v", err)
}
