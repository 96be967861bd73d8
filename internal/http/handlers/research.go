package handlers

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/mycelium-backend/internal/domain/research"
	"github.com/yungbote/mycelium-backend/internal/http/response"
	"github.com/yungbote/mycelium-backend/internal/platform/logger"
	"github.com/yungbote/mycelium-backend/internal/services"
)

const (
	ActionCheckReadiness = "check_readiness"
	ActionGetStatus      = "get_status"
	ActionCanResearch    = "can_research"
	ActionAcceptResearch = "accept_research"
	ActionReconcile      = "reconcile"
)

var errCardSlotRequired = errors.New("cardSlot is required")

type ResearchHandler struct {
	log      *logger.Logger
	research services.ResearchService
}

func NewResearchHandler(log *logger.Logger, research services.ResearchService) *ResearchHandler {
	return &ResearchHandler{
		log:      log.With("handler", "ResearchHandler"),
		research: research,
	}
}

type orchestratorRequest struct {
	Action   string `json:"action" binding:"required"`
	DeckID   string `json:"deckId" binding:"required,uuid"`
	CardSlot *int   `json:"cardSlot"`
}

// POST /api/research-orchestrator
// body: { "action": "...", "deckId": "...", "cardSlot": 6 }
func (h *ResearchHandler) Orchestrate(c *gin.Context) {
	var req orchestratorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}
	deckID, err := uuid.Parse(req.DeckID)
	if err != nil {
		response.BadRequest(c, fmt.Errorf("deckId must be a uuid"))
		return
	}
	ctx := c.Request.Context()

	var out any
	switch req.Action {
	case ActionCheckReadiness:
		out, err = h.research.CheckReadiness(ctx, deckID)
	case ActionGetStatus:
		out, err = h.research.GetStatus(ctx, deckID)
	case ActionCanResearch:
		if req.CardSlot == nil {
			response.BadRequest(c, errCardSlotRequired)
			return
		}
		out, err = h.research.CanResearch(ctx, deckID, *req.CardSlot)
	case ActionAcceptResearch:
		if req.CardSlot == nil {
			response.BadRequest(c, errCardSlotRequired)
			return
		}
		out, err = h.research.AcceptResearch(ctx, deckID, *req.CardSlot)
	case ActionReconcile:
		out, err = h.research.Reconcile(ctx, deckID)
	default:
		response.BadRequest(c, fmt.Errorf("unknown action %q", req.Action))
		return
	}
	if err != nil {
		h.log.Debug("Orchestrator action failed", "action", req.Action, "deck_id", deckID, "error", err)
		response.FromError(c, err)
		return
	}
	response.RespondOK(c, out)
}

// POST /api/decks/:id/research/:slot/start
func (h *ResearchHandler) Start(c *gin.Context) {
	deckID, err := deckIDParam(c)
	if err != nil {
		response.BadRequest(c, err)
		return
	}
	slot, err := slotParam(c)
	if err != nil {
		response.BadRequest(c, err)
		return
	}
	row, err := h.research.StartResearch(c.Request.Context(), deckID, slot)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"result": row})
}

type completeRequest struct {
	Findings json.RawMessage `json:"findings" binding:"required"`
	Scores   struct {
		Depth         *float64 `json:"depth" binding:"required"`
		Actionability *float64 `json:"actionability" binding:"required"`
		Uniqueness    *float64 `json:"uniqueness" binding:"required"`
		SourceQuality *float64 `json:"source_quality" binding:"required"`
	} `json:"scores"`
}

// POST /api/decks/:id/research/:slot/complete
// body: { "findings": {...}, "scores": { "depth": 0-100, "actionability": ..., "uniqueness": ..., "source_quality": ... } }
func (h *ResearchHandler) Complete(c *gin.Context) {
	deckID, err := deckIDParam(c)
	if err != nil {
		response.BadRequest(c, err)
		return
	}
	slot, err := slotParam(c)
	if err != nil {
		response.BadRequest(c, err)
		return
	}
	var req completeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}
	row, err := h.research.CompleteResearch(c.Request.Context(), deckID, slot, services.CompleteResearchInput{
		Findings: req.Findings,
		Scores: research.Scores{
			Depth:         *req.Scores.Depth,
			Actionability: *req.Scores.Actionability,
			Uniqueness:    *req.Scores.Uniqueness,
			SourceQuality: *req.Scores.SourceQuality,
		},
	})
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"result": row})
}
