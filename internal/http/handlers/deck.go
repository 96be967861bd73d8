package handlers

import (
	"encoding/json"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/mycelium-backend/internal/http/response"
	"github.com/yungbote/mycelium-backend/internal/services"
)

type DeckHandler struct {
	decks services.DeckService
}

func NewDeckHandler(decks services.DeckService) *DeckHandler {
	return &DeckHandler{decks: decks}
}

// POST /api/decks
// body: { "title": "..." }
func (h *DeckHandler) CreateDeck(c *gin.Context) {
	var req struct {
		Title string `json:"title" binding:"max=200"`
	}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err)
			return
		}
	}
	d, err := h.decks.CreateDeck(c.Request.Context(), req.Title)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"deck": d})
}

// GET /api/decks
func (h *DeckHandler) ListDecks(c *gin.Context) {
	decks, err := h.decks.ListDecks(c.Request.Context())
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"decks": decks})
}

// GET /api/decks/:id
func (h *DeckHandler) GetDeck(c *gin.Context) {
	deckID, err := deckIDParam(c)
	if err != nil {
		response.BadRequest(c, err)
		return
	}
	d, cards, err := h.decks.GetDeck(c.Request.Context(), deckID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"deck": d, "cards": cards})
}

// DELETE /api/decks/:id
func (h *DeckHandler) DeleteDeck(c *gin.Context) {
	deckID, err := deckIDParam(c)
	if err != nil {
		response.BadRequest(c, err)
		return
	}
	if err := h.decks.DeleteDeck(c.Request.Context(), deckID); err != nil {
		response.FromError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

// PUT /api/decks/:id/cards/:slot
// body: { "cardData": {...} }
func (h *DeckHandler) UpsertCard(c *gin.Context) {
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
	var req struct {
		CardData json.RawMessage `json:"cardData" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}
	card, err := h.decks.UpsertCard(c.Request.Context(), deckID, slot, req.CardData)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"card": card})
}

// GET /api/decks/:id/cards
func (h *DeckHandler) ListCards(c *gin.Context) {
	deckID, err := deckIDParam(c)
	if err != nil {
		response.BadRequest(c, err)
		return
	}
	cards, err := h.decks.ListCards(c.Request.Context(), deckID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"cards": cards})
}
