package aggregates

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/mycelium-backend/internal/data/repos"
	domainagg "github.com/yungbote/mycelium-backend/internal/domain/aggregates"
	"github.com/yungbote/mycelium-backend/internal/domain/deck"
	"github.com/yungbote/mycelium-backend/internal/domain/research"
	"github.com/yungbote/mycelium-backend/internal/platform/dbctx"
)

const researchResultsTable = "research_results"

type ResearchAggregateDeps struct {
	BaseDeps
	Cards    repos.DeckCardRepo
	Results  repos.ResearchResultRepo
	Sessions repos.ResearchSessionRepo
	Layout   *deck.Layout
}

type researchAggregate struct {
	deps ResearchAggregateDeps
}

func NewResearchAggregate(deps ResearchAggregateDeps) domainagg.ResearchAggregate {
	deps.BaseDeps = deps.BaseDeps.withDefaults()
	if deps.Layout == nil {
		deps.Layout = deck.DefaultLayout()
	}
	if deps.Log != nil {
		deps.Log = deps.Log.With("aggregate", "ResearchAggregate")
	}
	return &researchAggregate{deps: deps}
}

func (a *researchAggregate) Contract() domainagg.Contract {
	return domainagg.ResearchAggregateContract
}

func (a *researchAggregate) now(t time.Time) time.Time {
	if t.IsZero() {
		return a.deps.Clock()
	}
	return t.UTC()
}

// EnsureSession checks the Vision phase and lazily creates the session. Nothing is written
// when the deck is not ready.
func (a *researchAggregate) EnsureSession(ctx context.Context, in domainagg.EnsureSessionInput) (domainagg.EnsureSessionResult, error) {
	const op = "research.ensure_session"
	out := domainagg.EnsureSessionResult{}
	if in.DeckID == uuid.Nil {
		return out, invalid(op, domainagg.ReasonDeckNotFound, "deck id is required")
	}
	now := a.now(in.Now)

	err := executeWrite(ctx, a.deps.BaseDeps, op, func(dbc dbctx.Context) error {
		ready, err := a.visionReady(dbc, in.DeckID)
		if err != nil {
			return err
		}
		out.IsReady = ready
		if ready {
			created, err := a.deps.Sessions.CreateIfAbsent(dbc, &research.Session{
				DeckID:          in.DeckID,
				CurrentCardSlot: deck.FirstResearchSlot,
				Status:          research.SessionLocked,
				StartedAt:       now,
			})
			if err != nil {
				return err
			}
			out.Created = created
		}
		out.Session, err = a.deps.Sessions.GetByDeckID(dbc, in.DeckID)
		return err
	})
	if err != nil {
		return domainagg.EnsureSessionResult{}, err
	}
	return out, nil
}

func (a *researchAggregate) StartResearch(ctx context.Context, in domainagg.StartResearchInput) (*research.Result, error) {
	const op = "research.start"
	if !deck.IsResearchSlot(in.CardSlot) {
		return nil, invalid(op, domainagg.ReasonInvalidSlot, fmt.Sprintf("card slot %d is not a research slot", in.CardSlot))
	}

	var out *research.Result
	err := executeWrite(ctx, a.deps.BaseDeps, op, func(dbc dbctx.Context) error {
		ready, err := a.visionReady(dbc, in.DeckID)
		if err != nil {
			return err
		}
		if !ready {
			return invariant(op, domainagg.ReasonResearchLocked, "vision phase is incomplete")
		}
		results, err := a.deps.Results.ListByDeckID(dbc, in.DeckID)
		if err != nil {
			return err
		}
		if !research.CanResearch(results, in.CardSlot) {
			return invariant(op, domainagg.ReasonResearchLocked, fmt.Sprintf("card slot %d is locked", in.CardSlot))
		}

		row, err := a.deps.Results.LockByDeckSlot(dbc, in.DeckID, in.CardSlot)
		if err != nil {
			return err
		}
		current := research.StatusLocked
		if row != nil {
			current = row.Status
		}
		next, err := research.Transition(current, research.EventStart)
		if err != nil {
			return err
		}

		if row == nil {
			created, err := a.deps.Results.Create(dbc, []*research.Result{{
				DeckID:   in.DeckID,
				CardSlot: in.CardSlot,
				Status:   next,
			}})
			if err != nil {
				return err
			}
			out = created[0]
		} else {
			ok, err := a.deps.CASGuard.UpdateByStatus(dbc, researchResultsTable, row.ID,
				[]string{string(current)},
				map[string]any{"status": next},
			)
			if err != nil {
				return err
			}
			if err := RequireCASSuccess(ok, "research result changed concurrently"); err != nil {
				return err
			}
			row.Status = next
			out = row
		}

		return a.markSessionInProgress(dbc, in.DeckID)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (a *researchAggregate) CompleteResearch(ctx context.Context, in domainagg.CompleteResearchInput) (*research.Result, error) {
	const op = "research.complete"
	if !deck.IsResearchSlot(in.CardSlot) {
		return nil, invalid(op, domainagg.ReasonInvalidSlot, fmt.Sprintf("card slot %d is not a research slot", in.CardSlot))
	}
	if err := in.Scores.Validate(); err != nil {
		return nil, domainagg.NewReasonError(domainagg.CodeValidation, domainagg.ReasonInvalidScores, op, err.Error(), err)
	}
	findings, err := findingsObject(in.Findings)
	if err != nil {
		return nil, invalid(op, domainagg.ReasonInvalidFindings, err.Error())
	}
	scores := in.Scores.WithFinal()
	rawScores, err := json.Marshal(scores)
	if err != nil {
		return nil, MapError(op, err)
	}
	now := a.now(in.Now)

	var out *research.Result
	err = executeWrite(ctx, a.deps.BaseDeps, op, func(dbc dbctx.Context) error {
		row, err := a.deps.Results.LockByDeckSlot(dbc, in.DeckID, in.CardSlot)
		if err != nil {
			return err
		}
		if row == nil {
			return notFound(op, domainagg.ReasonResearchNotFound, fmt.Sprintf("no research for card slot %d", in.CardSlot))
		}
		next, err := research.Transition(row.Status, research.EventComplete)
		if err != nil {
			return err
		}

		rarity := research.RarityFor(scores.FinalScore)
		updates := map[string]any{
			"status":        next,
			"findings":      datatypes.JSON(findings),
			"rarity_scores": datatypes.JSON(rawScores),
			"final_rarity":  string(rarity),
		}
		if row.ResearchedAt == nil {
			updates["researched_at"] = now
			row.ResearchedAt = &now
		}
		ok, err := a.deps.CASGuard.UpdateByStatus(dbc, researchResultsTable, row.ID,
			[]string{string(row.Status)}, updates)
		if err != nil {
			return err
		}
		if err := RequireCASSuccess(ok, "research result changed concurrently"); err != nil {
			return err
		}

		row.Status = next
		row.Findings = datatypes.JSON(findings)
		row.RarityScores = datatypes.JSON(rawScores)
		row.FinalRarity = string(rarity)
		out = row
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// AcceptResearch applies the status change, the session pointer and the deck card
// mirror in one transaction.
func (a *researchAggregate) AcceptResearch(ctx context.Context, in domainagg.AcceptResearchInput) (domainagg.AcceptResearchResult, error) {
	const op = "research.accept"
	out := domainagg.AcceptResearchResult{}
	if !deck.IsResearchSlot(in.CardSlot) {
		return out, invalid(op, domainagg.ReasonInvalidSlot, fmt.Sprintf("card slot %d is not a research slot", in.CardSlot))
	}
	now := a.now(in.Now)

	err := executeWrite(ctx, a.deps.BaseDeps, op, func(dbc dbctx.Context) error {
		row, err := a.deps.Results.LockByDeckSlot(dbc, in.DeckID, in.CardSlot)
		if err != nil {
			return err
		}
		if row == nil {
			return notFound(op, domainagg.ReasonResearchNotFound, fmt.Sprintf("no research for card slot %d", in.CardSlot))
		}
		next, err := research.Transition(row.Status, research.EventAccept)
		if err != nil {
			return err
		}

		results, err := a.deps.Results.ListByDeckID(dbc, in.DeckID)
		if err != nil {
			return err
		}
		if !research.CanResearch(results, in.CardSlot) {
			return invariant(op, domainagg.ReasonResearchLocked,
				fmt.Sprintf("card slot %d cannot be accepted before card slot %d", in.CardSlot, in.CardSlot-1))
		}

		ok, err := a.deps.CASGuard.UpdateByStatus(dbc, researchResultsTable, row.ID,
			[]string{string(row.Status)},
			map[string]any{"status": next, "accepted_at": now},
		)
		if err != nil {
			return err
		}
		if err := RequireCASSuccess(ok, "research result changed concurrently"); err != nil {
			return err
		}
		row.Status = next
		row.AcceptedAt = &now
		for i, r := range results {
			if r.ID == row.ID {
				results[i] = row
			}
		}

		ss, err := a.syncSession(dbc, in.DeckID, results, now)
		if err != nil {
			return err
		}
		card, err := a.mirrorCard(dbc, row)
		if err != nil {
			return err
		}

		out.Result = row
		out.Session = ss.session
		out.Card = card
		out.CurrentUnlockedSlot = research.UnlockedSlot(results)
		out.Completed = research.ChainComplete(results)
		return nil
	})
	if err != nil {
		return domainagg.AcceptResearchResult{}, err
	}
	return out, nil
}

// Reconcile is idempotent: a second pass over a converged deck writes nothing.
func (a *researchAggregate) Reconcile(ctx context.Context, deckID uuid.UUID) (domainagg.ReconcileResult, error) {
	const op = "research.reconcile"
	out := domainagg.ReconcileResult{DeckID: deckID}
	if deckID == uuid.Nil {
		return out, invalid(op, domainagg.ReasonDeckNotFound, "deck id is required")
	}
	now := a.deps.Clock()

	err := executeWrite(ctx, a.deps.BaseDeps, op, func(dbc dbctx.Context) error {
		results, err := a.deps.Results.ListByDeckID(dbc, deckID)
		if err != nil {
			return err
		}
		accepted := research.AcceptedSlots(results)
		if len(accepted) == 0 {
			s, err := a.deps.Sessions.GetByDeckID(dbc, deckID)
			if err != nil {
				return err
			}
			if s != nil {
				out.CurrentSlot = s.CurrentCardSlot
			}
			return nil
		}

		ss, err := a.syncSession(dbc, deckID, results, now)
		if err != nil {
			return err
		}
		out.SessionCreated = ss.created
		out.PointerMoved = ss.moved
		out.CompletedStamp = ss.stamped
		out.SessionActivated = ss.activated
		out.CurrentSlot = ss.session.CurrentCardSlot

		slots := make([]int, 0, len(accepted))
		for _, r := range results {
			if r.Status == research.StatusAccepted {
				slots = append(slots, r.CardSlot)
			}
		}
		cards, err := a.deps.Cards.ListByDeckSlots(dbc, deckID, slots)
		if err != nil {
			return err
		}
		bySlot := make(map[int]*deck.DeckCard, len(cards))
		for _, c := range cards {
			bySlot[c.CardSlot] = c
		}
		for _, r := range results {
			if r.Status != research.StatusAccepted {
				continue
			}
			if c := bySlot[r.CardSlot]; c != nil && c.CardType == a.deps.Layout.TypeFor(r.CardSlot) {
				continue
			}
			if _, err := a.mirrorCard(dbc, r); err != nil {
				return err
			}
			out.CardsRewritten = append(out.CardsRewritten, r.CardSlot)
		}
		return nil
	})
	if err != nil {
		return domainagg.ReconcileResult{DeckID: deckID}, err
	}
	return out, nil
}

// findingsObject requires a JSON object with at least one field.
func findingsObject(raw json.RawMessage) ([]byte, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, errors.New("findings must be a JSON object")
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return nil, errors.New("findings must be a JSON object")
	}
	if len(fields) == 0 {
		return nil, errors.New("findings must not be empty")
	}
	return trimmed, nil
}

func (a *researchAggregate) visionReady(dbc dbctx.Context, deckID uuid.UUID) (bool, error) {
	var slots []int
	for _, def := range a.deps.Layout.Slots() {
		if deck.IsVisionSlot(def.Slot) {
			slots = append(slots, def.Slot)
		}
	}
	cards, err := a.deps.Cards.ListByDeckSlots(dbc, deckID, slots)
	if err != nil {
		return false, err
	}
	filled := 0
	for _, c := range cards {
		if c.HasContent() {
			filled++
		}
	}
	return filled >= len(slots), nil
}

func (a *researchAggregate) markSessionInProgress(dbc dbctx.Context, deckID uuid.UUID) error {
	s, err := a.deps.Sessions.LockByDeckID(dbc, deckID)
	if err != nil || s == nil || s.Status != research.SessionLocked {
		return err
	}
	return a.deps.Sessions.UpdateFields(dbc, s.ID, map[string]interface{}{"status": research.SessionInProgress})
}

type sessionSync struct {
	session *research.Session
	created   bool
	moved     bool
	stamped   bool
	activated bool
}

// syncSession derives the pointer from accepted rows. The stored pointer only moves forward.
func (a *researchAggregate) syncSession(dbc dbctx.Context, deckID uuid.UUID, results []*research.Result, now time.Time) (sessionSync, error) {
	out := sessionSync{}
	target := research.UnlockedSlot(results)
	complete := research.ChainComplete(results)

	s, err := a.deps.Sessions.LockByDeckID(dbc, deckID)
	if err != nil {
		return out, err
	}
	if s == nil {
		s = &research.Session{
			DeckID:          deckID,
			CurrentCardSlot: target,
			Status:          research.SessionInProgress,
			StartedAt:       now,
		}
		if complete {
			s.Status = research.SessionCompleted
			s.CompletedAt = &now
		}
		if _, err := a.deps.Sessions.Create(dbc, s); err != nil {
			return out, err
		}
		out.session = s
		out.created = true
		return out, nil
	}

	updates := map[string]interface{}{}
	if target > s.CurrentCardSlot {
		updates["current_card_slot"] = target
		s.CurrentCardSlot = target
		out.moved = true
	}
	switch {
	case complete && s.CompletedAt == nil:
		updates["completed_at"] = now
		updates["status"] = research.SessionCompleted
		s.CompletedAt = &now
		s.Status = research.SessionCompleted
		out.stamped = true
	case complete && s.Status != research.SessionCompleted:
		updates["status"] = research.SessionCompleted
		s.Status = research.SessionCompleted
		out.stamped = true
	case !complete && s.Status == research.SessionLocked:
		updates["status"] = research.SessionInProgress
		s.Status = research.SessionInProgress
		out.activated = true
	}
	if len(updates) > 0 {
		if err := a.deps.Sessions.UpdateFields(dbc, s.ID, updates); err != nil {
			return out, err
		}
	}
	out.session = s
	return out, nil
}

type cardEvaluation struct {
	FinalScore   float64         `json:"final_score"`
	FinalRarity  string          `json:"final_rarity"`
	RarityScores json.RawMessage `json:"rarity_scores,omitempty"`
}

// mirrorCard writes an accepted result into the deck card store under its slot.
func (a *researchAggregate) mirrorCard(dbc dbctx.Context, r *research.Result) (*deck.DeckCard, error) {
	scores, _ := r.Scores()
	eval, err := json.Marshal(cardEvaluation{
		FinalScore:   scores.FinalScore,
		FinalRarity:  r.FinalRarity,
		RarityScores: json.RawMessage(r.RarityScores),
	})
	if err != nil {
		return nil, err
	}
	data := datatypes.JSON(r.Findings)
	if len(bytes.TrimSpace(data)) == 0 {
		data = datatypes.JSON([]byte("{}"))
	}
	card := &deck.DeckCard{
		DeckID:     r.DeckID,
		CardSlot:   r.CardSlot,
		CardType:   a.deps.Layout.TypeFor(r.CardSlot),
		CardData:   data,
		Evaluation: datatypes.JSON(eval),
	}
	if err := a.deps.Cards.Upsert(dbc, card); err != nil {
		return nil, err
	}
	if a.deps.Log != nil {
		a.deps.Log.Debug("research mirrored into deck", "deck_id", r.DeckID, "slot", r.CardSlot)
	}
	return a.deps.Cards.GetByDeckSlot(dbc, r.DeckID, r.CardSlot)
}
