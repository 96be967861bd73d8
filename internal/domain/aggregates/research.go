package aggregates

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/mycelium-backend/internal/domain/deck"
	"github.com/yungbote/mycelium-backend/internal/domain/research"
)

var ResearchAggregateContract = Contract{
	Name:             "Research.ProgressionAggregate",
	WriteTxOwnership: WriteTxOwnedByAggregate,
	ReadPolicy:       ReadPolicyInvariantScoped,
	Notes:            "Owns research result status transitions, the session pointer and the deck card bridge for accepted slots.",
}

// Client-facing reasons carried on aggregate errors.
const (
	ReasonDeckNotFound      = "deck_not_found"
	ReasonResearchNotFound  = "research_not_found"
	ReasonResearchLocked    = "research_locked"
	ReasonInvalidTransition = "invalid_transition"
	ReasonInvalidSlot       = "invalid_slot"
	ReasonInvalidScores     = "invalid_scores"
	ReasonInvalidFindings   = "invalid_findings"
)

// ResearchAggregate owns every write to research results and sessions.
//
// Write method failures return *aggregates.Error with codes:
// CodeValidation, CodeNotFound, CodeInvariantViolation, CodeConflict, CodeRetryable, CodeInternal.
type ResearchAggregate interface {
	Aggregate

	// EnsureSession creates the deck's session when the Vision phase is complete.
	EnsureSession(ctx context.Context, in EnsureSessionInput) (EnsureSessionResult, error)

	// StartResearch moves a slot locked -> researching, creating the row if needed.
	StartResearch(ctx context.Context, in StartResearchInput) (*research.Result, error)

	// CompleteResearch moves a slot researching -> ready and records findings and scores.
	CompleteResearch(ctx context.Context, in CompleteResearchInput) (*research.Result, error)

	// AcceptResearch moves a slot ready -> accepted, advances the session and mirrors
	// findings into the deck card store, all in one transaction.
	AcceptResearch(ctx context.Context, in AcceptResearchInput) (AcceptResearchResult, error)

	// Reconcile converges session and deck card state with the accepted result rows.
	Reconcile(ctx context.Context, deckID uuid.UUID) (ReconcileResult, error)
}

type EnsureSessionInput struct {
	DeckID uuid.UUID
	Now    time.Time
}

type EnsureSessionResult struct {
	IsReady bool
	Created bool
	Session *research.Session
}

type StartResearchInput struct {
	DeckID   uuid.UUID
	CardSlot int
}

type CompleteResearchInput struct {
	DeckID   uuid.UUID
	CardSlot int
	Findings json.RawMessage
	Scores   research.Scores
	Now      time.Time
}

type AcceptResearchInput struct {
	DeckID   uuid.UUID
	CardSlot int
	Now      time.Time
}

type AcceptResearchResult struct {
	Result              *research.Result
	Session             *research.Session
	Card                *deck.DeckCard
	CurrentUnlockedSlot int
	Completed           bool
}

type ReconcileResult struct {
	DeckID           uuid.UUID
	SessionCreated   bool
	PointerMoved     bool
	CompletedStamp   bool
	// SessionActivated is set when a locked session was moved to in_progress.
	SessionActivated bool
	CardsRewritten   []int
	CurrentSlot      int
}

// Changed reports whether the reconcile pass wrote anything.
func (r ReconcileResult) Changed() bool {
	return r.SessionCreated || r.PointerMoved || r.CompletedStamp || r.SessionActivated || len(r.CardsRewritten) > 0
}
