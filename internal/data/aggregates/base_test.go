package aggregates

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/mycelium-backend/internal/data/repos"
	"github.com/yungbote/mycelium-backend/internal/data/repos/testutil"
	domainagg "github.com/yungbote/mycelium-backend/internal/domain/aggregates"
	"github.com/yungbote/mycelium-backend/internal/domain/research"
	"github.com/yungbote/mycelium-backend/internal/platform/dbctx"
)

type hookedDeck struct {
	db     *gorm.DB
	hooks  *spyHooks
	agg    *researchAggregate
	deckID uuid.UUID
}

func newHookedDeck(t *testing.T, wrapResults func(repos.ResearchResultRepo) repos.ResearchResultRepo) *hookedDeck {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	results := repos.NewResearchResultRepo(db, log)
	if wrapResults != nil {
		results = wrapResults(results)
	}
	hooks := &spyHooks{}
	agg := NewResearchAggregate(ResearchAggregateDeps{
		BaseDeps: BaseDeps{DB: db, Log: log, Hooks: hooks},
		Cards:    repos.NewDeckCardRepo(db, log),
		Results:  results,
		Sessions: repos.NewResearchSessionRepo(db, log),
	}).(*researchAggregate)
	ctx := context.Background()
	deckID := testutil.SeedDeck(t, ctx, db, uuid.New()).ID
	testutil.SeedVisionCards(t, ctx, db, deckID)
	return &hookedDeck{db: db, hooks: hooks, agg: agg, deckID: deckID}
}

func TestExecuteWriteObservesSuccessStatus(t *testing.T) {
	h := newHookedDeck(t, nil)

	if _, err := h.agg.StartResearch(context.Background(), domainagg.StartResearchInput{DeckID: h.deckID, CardSlot: 6}); err != nil {
		t.Fatalf("StartResearch: %v", err)
	}
	if len(h.hooks.Operations) != 1 {
		t.Fatalf("operations count: want=1 got=%d", len(h.hooks.Operations))
	}
	if got := h.hooks.Operations[0]; got.Name != "research.start" || got.Status != "success" {
		t.Fatalf("operation: want=research.start/success got=%s/%s", got.Name, got.Status)
	}
}

func TestExecuteWriteObservesInvariantViolationStatus(t *testing.T) {
	h := newHookedDeck(t, nil)

	_, err := h.agg.StartResearch(context.Background(), domainagg.StartResearchInput{DeckID: h.deckID, CardSlot: 7})
	if !domainagg.IsCode(err, domainagg.CodeInvariantViolation) {
		t.Fatalf("expected invariant violation code, got=%v", err)
	}
	if len(h.hooks.Operations) != 1 {
		t.Fatalf("operations count: want=1 got=%d", len(h.hooks.Operations))
	}
	if h.hooks.Operations[0].Status != string(domainagg.CodeInvariantViolation) {
		t.Fatalf("operation status: want=%s got=%s", domainagg.CodeInvariantViolation, h.hooks.Operations[0].Status)
	}
	if len(h.hooks.Conflicts) != 0 || len(h.hooks.Retries) != 0 {
		t.Fatalf("no counters expected: conflicts=%v retries=%v", h.hooks.Conflicts, h.hooks.Retries)
	}
}

// racingResults flips the row to accepted after it is read, as a second accept
// committing first would.
type racingResults struct {
	repos.ResearchResultRepo
}

func (r racingResults) LockByDeckSlot(dbc dbctx.Context, deckID uuid.UUID, slot int) (*research.Result, error) {
	row, err := r.ResearchResultRepo.LockByDeckSlot(dbc, deckID, slot)
	if err != nil || row == nil {
		return row, err
	}
	if err := dbc.Tx.Model(&research.Result{}).Where("id = ?", row.ID).
		Update("status", research.StatusAccepted).Error; err != nil {
		return nil, err
	}
	return row, nil
}

func TestExecuteWriteTracksConflictAndRetryCounters(t *testing.T) {
	t.Run("conflict", func(t *testing.T) {
		h := newHookedDeck(t, func(r repos.ResearchResultRepo) repos.ResearchResultRepo { return racingResults{r} })
		testutil.SeedResult(t, context.Background(), h.db, h.deckID, 6, research.StatusReady)

		_, err := h.agg.AcceptResearch(context.Background(), domainagg.AcceptResearchInput{DeckID: h.deckID, CardSlot: 6})
		if !domainagg.IsCode(err, domainagg.CodeConflict) {
			t.Fatalf("expected conflict code, got=%v", err)
		}
		if len(h.hooks.Conflicts) != 1 || h.hooks.Conflicts[0] != "research.accept" {
			t.Fatalf("conflict hooks: %+v", h.hooks.Conflicts)
		}
		if len(h.hooks.Retries) != 0 {
			t.Fatalf("retry hooks should be empty, got=%+v", h.hooks.Retries)
		}
		if len(h.hooks.Operations) != 1 || h.hooks.Operations[0].Status != string(domainagg.CodeConflict) {
			t.Fatalf("unexpected op status: %+v", h.hooks.Operations)
		}
	})

	t.Run("retryable", func(t *testing.T) {
		h := newHookedDeck(t, nil)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := h.agg.AcceptResearch(ctx, domainagg.AcceptResearchInput{DeckID: h.deckID, CardSlot: 6})
		if !domainagg.IsCode(err, domainagg.CodeRetryable) {
			t.Fatalf("expected retryable code, got=%v", err)
		}
		if len(h.hooks.Retries) != 1 || h.hooks.Retries[0] != "research.accept" {
			t.Fatalf("retry hooks: %+v", h.hooks.Retries)
		}
		if len(h.hooks.Conflicts) != 0 {
			t.Fatalf("conflict hooks should be empty, got=%+v", h.hooks.Conflicts)
		}
		if len(h.hooks.Operations) != 1 || h.hooks.Operations[0].Status != string(domainagg.CodeRetryable) {
			t.Fatalf("unexpected op status: %+v", h.hooks.Operations)
		}
	})
}

func TestAggregateErrorStatus(t *testing.T) {
	if got := aggregateErrorStatus(nil); got != "success" {
		t.Fatalf("nil status: want=success got=%s", got)
	}
	_, transitionErr := research.Transition(research.StatusAccepted, research.EventStart)
	if got := aggregateErrorStatus(transitionErr); got != string(domainagg.CodeInvariantViolation) {
		t.Fatalf("transition status: got=%s", got)
	}
	if got := aggregateErrorStatus(RequireCASSuccess(false, "stale")); got != string(domainagg.CodeConflict) {
		t.Fatalf("conflict status: got=%s", got)
	}
	if got := aggregateErrorStatus(context.DeadlineExceeded); got != string(domainagg.CodeRetryable) {
		t.Fatalf("deadline status: got=%s", got)
	}
}

type spyHooks struct {
	Operations []spyOperation
	Conflicts  []string
	Retries    []string
}

type spyOperation struct {
	Name   string
	Status string
}

func (h *spyHooks) ObserveOperation(name, status string, _ time.Duration) {
	h.Operations = append(h.Operations, spyOperation{Name: name, Status: status})
}

func (h *spyHooks) IncConflict(name string) {
	h.Conflicts = append(h.Conflicts, name)
}

func (h *spyHooks) IncRetry(name string) {
	h.Retries = append(h.Retries, name)
}
