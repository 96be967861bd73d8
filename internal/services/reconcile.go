package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/mycelium-backend/internal/data/repos"
	domainagg "github.com/yungbote/mycelium-backend/internal/domain/aggregates"
	"github.com/yungbote/mycelium-backend/internal/observability"
	"github.com/yungbote/mycelium-backend/internal/platform/dbctx"
	"github.com/yungbote/mycelium-backend/internal/platform/logger"
)

const (
	defaultReconcileConcurrency = 4
	reconcilePageSize           = 200
)

type ReconcileOptions struct {
	// DeckID limits the pass to one deck. uuid.Nil visits every deck.
	DeckID      uuid.UUID
	Concurrency int
}

type ReconcileSummary struct {
	Visited   int
	Repaired  int
	Unchanged int
	Failed    int
}

// ReconcileRunner is the operator-side sweep. It skips ownership checks and is not exposed over HTTP.
type ReconcileRunner interface {
	Run(ctx context.Context, opts ReconcileOptions) (ReconcileSummary, error)
}

type reconcileRunner struct {
	log     *logger.Logger
	agg     domainagg.ResearchAggregate
	decks   repos.DeckRepo
	metrics *observability.Metrics
}

func NewReconcileRunner(log *logger.Logger, agg domainagg.ResearchAggregate, decks repos.DeckRepo, metrics *observability.Metrics) ReconcileRunner {
	return &reconcileRunner{
		log:     log.With("service", "ReconcileRunner"),
		agg:     agg,
		decks:   decks,
		metrics: metrics,
	}
}

// Run reconciles decks with at most opts.Concurrency in flight. A failing deck is
// counted and logged; the sweep continues and the failures are joined into the returned error.
func (r *reconcileRunner) Run(ctx context.Context, opts ReconcileOptions) (ReconcileSummary, error) {
	limit := opts.Concurrency
	if limit <= 0 {
		limit = defaultReconcileConcurrency
	}

	var (
		mu      sync.Mutex
		summary ReconcileSummary
		errs    []error
	)
	record := func(deckID uuid.UUID, res domainagg.ReconcileResult, err error) {
		mu.Lock()
		defer mu.Unlock()
		summary.Visited++
		switch {
		case err != nil:
			summary.Failed++
			errs = append(errs, fmt.Errorf("deck %s: %w", deckID, err))
			r.metrics.IncReconcileDeck("failed")
			r.log.Warn("Reconcile failed", "deck_id", deckID, "error", err)
		case res.Changed():
			summary.Repaired++
			r.metrics.IncReconcileDeck("repaired")
			r.log.Info("Reconcile repaired deck",
				"deck_id", deckID,
				"session_created", res.SessionCreated,
				"session_activated", res.SessionActivated,
				"pointer_moved", res.PointerMoved,
				"completed_stamp", res.CompletedStamp,
				"cards_rewritten", res.CardsRewritten,
			)
		default:
			summary.Unchanged++
			r.metrics.IncReconcileDeck("unchanged")
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	visit := func(deckID uuid.UUID) {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := r.agg.Reconcile(gctx, deckID)
			record(deckID, res, err)
			return nil
		})
	}

	if opts.DeckID != uuid.Nil {
		visit(opts.DeckID)
	} else {
		after := uuid.Nil
		for {
			if err := ctx.Err(); err != nil {
				break
			}
			ids, err := r.decks.ListIDsAfter(dbctx.Context{Ctx: ctx}, after, reconcilePageSize)
			if err != nil {
				_ = g.Wait()
				return summary, fmt.Errorf("list decks: %w", err)
			}
			for _, id := range ids {
				visit(id)
			}
			if len(ids) < reconcilePageSize {
				break
			}
			after = ids[len(ids)-1]
		}
	}

	if err := g.Wait(); err != nil {
		return summary, err
	}
	if err := ctx.Err(); err != nil {
		return summary, err
	}
	r.log.Info("Reconcile finished",
		"visited", summary.Visited,
		"repaired", summary.Repaired,
		"unchanged", summary.Unchanged,
		"failed", summary.Failed,
	)
	return summary, errors.Join(errs...)
}
