package services

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/mycelium-backend/internal/data/aggregates"
	"github.com/yungbote/mycelium-backend/internal/data/repos"
	types "github.com/yungbote/mycelium-backend/internal/domain"
	domainagg "github.com/yungbote/mycelium-backend/internal/domain/aggregates"
	"github.com/yungbote/mycelium-backend/internal/domain/deck"
	"github.com/yungbote/mycelium-backend/internal/domain/research"
	"github.com/yungbote/mycelium-backend/internal/observability"
	"github.com/yungbote/mycelium-backend/internal/platform/dbctx"
	"github.com/yungbote/mycelium-backend/internal/platform/logger"
	"github.com/yungbote/mycelium-backend/internal/realtime"
	"github.com/yungbote/mycelium-backend/internal/realtime/bus"
)

type ReadinessView struct {
	IsReady bool                    `json:"isReady"`
	Session *types.ResearchSession  `json:"session"`
	Results []*types.ResearchResult `json:"results"`
}

type StatusView struct {
	Session             *types.ResearchSession  `json:"session"`
	Results             []*types.ResearchResult `json:"results"`
	CurrentUnlockedSlot int                     `json:"currentUnlockedSlot"`
}

type CanResearchView struct {
	CanResearch bool `json:"canResearch"`
}

type AcceptView struct {
	Success             bool                   `json:"success"`
	Result              *types.ResearchResult  `json:"result"`
	Session             *types.ResearchSession `json:"session"`
	CurrentUnlockedSlot int                    `json:"currentUnlockedSlot"`
}

type ReconcileView struct {
	Changed          bool  `json:"changed"`
	SessionCreated   bool  `json:"sessionCreated"`
	SessionActivated bool  `json:"sessionActivated"`
	PointerMoved     bool  `json:"pointerMoved"`
	CompletedStamp   bool  `json:"completedStamp"`
	CardsRewritten   []int `json:"cardsRewritten"`
	CurrentSlot      int   `json:"currentSlot"`
}

type CompleteResearchInput struct {
	Findings json.RawMessage
	Scores   research.Scores
}

// ResearchService is the research orchestrator. Every call is scoped to a deck owned by the caller.
type ResearchService interface {
	CheckReadiness(ctx context.Context, deckID uuid.UUID) (ReadinessView, error)
	GetStatus(ctx context.Context, deckID uuid.UUID) (StatusView, error)
	CanResearch(ctx context.Context, deckID uuid.UUID, slot int) (CanResearchView, error)
	AcceptResearch(ctx context.Context, deckID uuid.UUID, slot int) (AcceptView, error)
	Reconcile(ctx context.Context, deckID uuid.UUID) (ReconcileView, error)

	StartResearch(ctx context.Context, deckID uuid.UUID, slot int) (*types.ResearchResult, error)
	CompleteResearch(ctx context.Context, deckID uuid.UUID, slot int, in CompleteResearchInput) (*types.ResearchResult, error)
}

type researchService struct {
	log      *logger.Logger
	agg      domainagg.ResearchAggregate
	decks    repos.DeckRepo
	results  repos.ResearchResultRepo
	sessions repos.ResearchSessionRepo
	bus      bus.Bus
	metrics  *observability.Metrics
	tracer   trace.Tracer
}

func NewResearchService(
	log *logger.Logger,
	agg domainagg.ResearchAggregate,
	decks repos.DeckRepo,
	results repos.ResearchResultRepo,
	sessions repos.ResearchSessionRepo,
	eventBus bus.Bus,
	metrics *observability.Metrics,
) ResearchService {
	if eventBus == nil {
		eventBus = bus.NewNoopBus()
	}
	return &researchService{
		log:      log.With("service", "ResearchService"),
		agg:      agg,
		decks:    decks,
		results:  results,
		sessions: sessions,
		bus:      eventBus,
		metrics:  metrics,
		tracer:   observability.Tracer(),
	}
}

func (s *researchService) startSpan(ctx context.Context, name string, deckID uuid.UUID, slot int) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{attribute.String("deck.id", deckID.String())}
	if slot != 0 {
		attrs = append(attrs, attribute.Int("research.slot", slot))
	}
	return s.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (s *researchService) CheckReadiness(ctx context.Context, deckID uuid.UUID) (out ReadinessView, err error) {
	const op = "research.check_readiness"
	ctx, span := s.startSpan(ctx, op, deckID, 0)
	defer func() { endSpan(span, err) }()

	d, err := requireOwnedDeck(ctx, s.decks, op, deckID)
	if err != nil {
		return ReadinessView{}, err
	}
	res, err := s.agg.EnsureSession(ctx, domainagg.EnsureSessionInput{DeckID: d.ID})
	if err != nil {
		return ReadinessView{}, err
	}
	results, err := s.results.ListByDeckID(dbctx.Context{Ctx: ctx}, d.ID)
	if err != nil {
		return ReadinessView{}, aggregates.MapError(op, err)
	}
	if res.Created {
		s.log.Info("Research session opened", "deck_id", d.ID)
	}
	return ReadinessView{IsReady: res.IsReady, Session: res.Session, Results: nonNilResults(results)}, nil
}

func (s *researchService) GetStatus(ctx context.Context, deckID uuid.UUID) (out StatusView, err error) {
	const op = "research.get_status"
	ctx, span := s.startSpan(ctx, op, deckID, 0)
	defer func() { endSpan(span, err) }()

	d, err := requireOwnedDeck(ctx, s.decks, op, deckID)
	if err != nil {
		return StatusView{}, err
	}
	dbc := dbctx.Context{Ctx: ctx}
	session, err := s.sessions.GetByDeckID(dbc, d.ID)
	if err != nil {
		return StatusView{}, aggregates.MapError(op, err)
	}
	results, err := s.results.ListByDeckID(dbc, d.ID)
	if err != nil {
		return StatusView{}, aggregates.MapError(op, err)
	}
	return StatusView{
		Session:             session,
		Results:             nonNilResults(results),
		CurrentUnlockedSlot: research.UnlockedSlot(results),
	}, nil
}

func (s *researchService) CanResearch(ctx context.Context, deckID uuid.UUID, slot int) (out CanResearchView, err error) {
	const op = "research.can_research"
	ctx, span := s.startSpan(ctx, op, deckID, slot)
	defer func() { endSpan(span, err) }()

	if !deck.IsResearchSlot(slot) {
		return CanResearchView{}, invalidInput(op, domainagg.ReasonInvalidSlot, "cardSlot must be between 6 and 10")
	}
	d, err := requireOwnedDeck(ctx, s.decks, op, deckID)
	if err != nil {
		return CanResearchView{}, err
	}
	results, err := s.results.ListByDeckID(dbctx.Context{Ctx: ctx}, d.ID)
	if err != nil {
		return CanResearchView{}, aggregates.MapError(op, err)
	}
	return CanResearchView{CanResearch: research.CanResearch(results, slot)}, nil
}

func (s *researchService) AcceptResearch(ctx context.Context, deckID uuid.UUID, slot int) (out AcceptView, err error) {
	const op = "research.accept_research"
	ctx, span := s.startSpan(ctx, op, deckID, slot)
	defer func() { endSpan(span, err) }()

	d, err := requireOwnedDeck(ctx, s.decks, op, deckID)
	if err != nil {
		return AcceptView{}, err
	}
	res, err := s.agg.AcceptResearch(ctx, domainagg.AcceptResearchInput{DeckID: d.ID, CardSlot: slot})
	if err != nil {
		return AcceptView{}, err
	}

	rarity := ""
	var finalScore float64
	if res.Result != nil {
		rarity = res.Result.FinalRarity
		if sc, ok := res.Result.Scores(); ok {
			finalScore = sc.FinalScore
		}
	}
	s.metrics.IncResearchTransition(string(research.EventAccept), string(research.StatusAccepted))
	s.metrics.ObserveResearchAccepted(strconv.Itoa(slot), rarity, finalScore)
	s.log.Info("Research accepted", "deck_id", d.ID, "slot", slot, "rarity", rarity, "unlocked", res.CurrentUnlockedSlot)

	ev := realtime.NewEvent(realtime.EventResearchAccepted, d.UserID, d.ID)
	ev.CardSlot = slot
	ev.Status = string(research.StatusAccepted)
	ev.FinalRarity = rarity
	ev.CurrentUnlockedSlot = res.CurrentUnlockedSlot
	s.publish(ctx, ev)
	if res.Completed && slot == deck.LastResearchSlot {
		s.metrics.IncChainCompleted()
		done := realtime.NewEvent(realtime.EventResearchCompleted, d.UserID, d.ID)
		done.CurrentUnlockedSlot = res.CurrentUnlockedSlot
		s.publish(ctx, done)
	}

	return AcceptView{
		Success:             true,
		Result:              res.Result,
		Session:             res.Session,
		CurrentUnlockedSlot: res.CurrentUnlockedSlot,
	}, nil
}

func (s *researchService) Reconcile(ctx context.Context, deckID uuid.UUID) (out ReconcileView, err error) {
	const op = "research.reconcile"
	ctx, span := s.startSpan(ctx, op, deckID, 0)
	defer func() { endSpan(span, err) }()

	d, err := requireOwnedDeck(ctx, s.decks, op, deckID)
	if err != nil {
		return ReconcileView{}, err
	}
	res, err := s.agg.Reconcile(ctx, d.ID)
	if err != nil {
		s.metrics.IncReconcileDeck("failed")
		return ReconcileView{}, err
	}
	s.metrics.IncReconcileDeck(reconcileOutcome(res))
	return reconcileView(res), nil
}

func (s *researchService) StartResearch(ctx context.Context, deckID uuid.UUID, slot int) (out *types.ResearchResult, err error) {
	const op = "research.start"
	ctx, span := s.startSpan(ctx, op, deckID, slot)
	defer func() { endSpan(span, err) }()

	d, err := requireOwnedDeck(ctx, s.decks, op, deckID)
	if err != nil {
		return nil, err
	}
	row, err := s.agg.StartResearch(ctx, domainagg.StartResearchInput{DeckID: d.ID, CardSlot: slot})
	if err != nil {
		return nil, err
	}
	s.metrics.IncResearchTransition(string(research.EventStart), string(row.Status))

	ev := realtime.NewEvent(realtime.EventResearchStarted, d.UserID, d.ID)
	ev.CardSlot = slot
	ev.Status = string(row.Status)
	s.publish(ctx, ev)
	return row, nil
}

func (s *researchService) CompleteResearch(ctx context.Context, deckID uuid.UUID, slot int, in CompleteResearchInput) (out *types.ResearchResult, err error) {
	const op = "research.complete"
	ctx, span := s.startSpan(ctx, op, deckID, slot)
	defer func() { endSpan(span, err) }()

	d, err := requireOwnedDeck(ctx, s.decks, op, deckID)
	if err != nil {
		return nil, err
	}
	row, err := s.agg.CompleteResearch(ctx, domainagg.CompleteResearchInput{
		DeckID:   d.ID,
		CardSlot: slot,
		Findings: in.Findings,
		Scores:   in.Scores,
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncResearchTransition(string(research.EventComplete), string(row.Status))

	ev := realtime.NewEvent(realtime.EventResearchReady, d.UserID, d.ID)
	ev.CardSlot = slot
	ev.Status = string(row.Status)
	ev.FinalRarity = row.FinalRarity
	s.publish(ctx, ev)
	return row, nil
}

// publish runs after commit. Failures are logged and never reach the caller.
func (s *researchService) publish(ctx context.Context, ev realtime.Event) {
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := s.bus.Publish(pubCtx, ev); err != nil {
		s.metrics.IncBusPublished(string(ev.Type), "error")
		s.log.Warn("Failed to publish progression event", "event", ev.Type, "deck_id", ev.DeckID, "error", err)
		return
	}
	s.metrics.IncBusPublished(string(ev.Type), "ok")
}

func reconcileOutcome(res domainagg.ReconcileResult) string {
	if res.Changed() {
		return "repaired"
	}
	return "unchanged"
}

func reconcileView(res domainagg.ReconcileResult) ReconcileView {
	rewritten := res.CardsRewritten
	if rewritten == nil {
		rewritten = []int{}
	}
	return ReconcileView{
		Changed:          res.Changed(),
		SessionCreated:   res.SessionCreated,
		SessionActivated: res.SessionActivated,
		PointerMoved:     res.PointerMoved,
		CompletedStamp:   res.CompletedStamp,
		CardsRewritten:   rewritten,
		CurrentSlot:      res.CurrentSlot,
	}
}

func nonNilResults(in []*types.ResearchResult) []*types.ResearchResult {
	if in == nil {
		return []*types.ResearchResult{}
	}
	return in
}
