package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/mycelium-backend/internal/data/aggregates"
	"github.com/yungbote/mycelium-backend/internal/data/repos"
	types "github.com/yungbote/mycelium-backend/internal/domain"
	"github.com/yungbote/mycelium-backend/internal/domain/deck"
	"github.com/yungbote/mycelium-backend/internal/platform/dbctx"
	"github.com/yungbote/mycelium-backend/internal/platform/logger"
)

const maxDeckTitleLen = 200

type DeckService interface {
	CreateDeck(ctx context.Context, title string) (*types.Deck, error)
	ListDecks(ctx context.Context) ([]*types.Deck, error)
	GetDeck(ctx context.Context, deckID uuid.UUID) (*types.Deck, []*types.DeckCard, error)
	DeleteDeck(ctx context.Context, deckID uuid.UUID) error
	// UpsertCard writes a non-research card. Research slots are only written by accepting research.
	UpsertCard(ctx context.Context, deckID uuid.UUID, slot int, cardData json.RawMessage) (*types.DeckCard, error)
	ListCards(ctx context.Context, deckID uuid.UUID) ([]*types.DeckCard, error)
}

type deckService struct {
	db       *gorm.DB
	log      *logger.Logger
	layout   *deck.Layout
	decks    repos.DeckRepo
	cards    repos.DeckCardRepo
	results  repos.ResearchResultRepo
	sessions repos.ResearchSessionRepo
}

func NewDeckService(
	db *gorm.DB,
	log *logger.Logger,
	decks repos.DeckRepo,
	cards repos.DeckCardRepo,
	results repos.ResearchResultRepo,
	sessions repos.ResearchSessionRepo,
) DeckService {
	return &deckService{
		db:       db,
		log:      log.With("service", "DeckService"),
		layout:   deck.DefaultLayout(),
		decks:    decks,
		cards:    cards,
		results:  results,
		sessions: sessions,
	}
}

func (s *deckService) CreateDeck(ctx context.Context, title string) (*types.Deck, error) {
	const op = "deck.create"
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = "Untitled deck"
	}
	if len(title) > maxDeckTitleLen {
		return nil, invalidInput(op, "invalid_title", fmt.Sprintf("title must be at most %d characters", maxDeckTitleLen))
	}
	created, err := s.decks.Create(dbctx.Context{Ctx: ctx}, []*types.Deck{{UserID: userID, Title: title}})
	if err != nil {
		return nil, aggregates.MapError(op, err)
	}
	s.log.Info("Deck created", "deck_id", created[0].ID, "user_id", userID)
	return created[0], nil
}

func (s *deckService) ListDecks(ctx context.Context) ([]*types.Deck, error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	out, err := s.decks.ListByUserID(dbctx.Context{Ctx: ctx}, userID)
	if err != nil {
		return nil, aggregates.MapError("deck.list", err)
	}
	return out, nil
}

func (s *deckService) GetDeck(ctx context.Context, deckID uuid.UUID) (*types.Deck, []*types.DeckCard, error) {
	d, err := s.ownedDeck(ctx, "deck.get", deckID)
	if err != nil {
		return nil, nil, err
	}
	cards, err := s.cards.ListByDeckID(dbctx.Context{Ctx: ctx}, d.ID)
	if err != nil {
		return nil, nil, aggregates.MapError("deck.get", err)
	}
	return d, cards, nil
}

// DeleteDeck removes the deck with its cards, research results and session in one transaction.
func (s *deckService) DeleteDeck(ctx context.Context, deckID uuid.UUID) error {
	const op = "deck.delete"
	d, err := s.ownedDeck(ctx, op, deckID)
	if err != nil {
		return err
	}
	ids := []uuid.UUID{d.ID}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		if err := s.cards.FullDeleteByDeckIDs(dbc, ids); err != nil {
			return err
		}
		if err := s.results.FullDeleteByDeckIDs(dbc, ids); err != nil {
			return err
		}
		if err := s.sessions.FullDeleteByDeckIDs(dbc, ids); err != nil {
			return err
		}
		return s.decks.FullDeleteByIDs(dbc, ids)
	})
	if err != nil {
		return aggregates.MapError(op, err)
	}
	s.log.Info("Deck deleted", "deck_id", d.ID)
	return nil
}

func (s *deckService) UpsertCard(ctx context.Context, deckID uuid.UUID, slot int, cardData json.RawMessage) (*types.DeckCard, error) {
	const op = "deck.upsert_card"
	def, ok := s.layout.Slot(slot)
	if !ok {
		return nil, invalidInput(op, "invalid_slot", fmt.Sprintf("card slot %d is outside 1..%d", slot, deck.LastSlot))
	}
	if deck.IsResearchSlot(slot) {
		return nil, invalidInput(op, "research_slot", fmt.Sprintf("card slot %d is written by accepting research", slot))
	}
	raw := bytes.TrimSpace(cardData)
	if len(raw) == 0 || !json.Valid(raw) {
		return nil, invalidInput(op, "invalid_card_data", "cardData must be a JSON document")
	}
	d, err := s.ownedDeck(ctx, op, deckID)
	if err != nil {
		return nil, err
	}

	dbc := dbctx.Context{Ctx: ctx}
	if err := s.cards.Upsert(dbc, &types.DeckCard{
		DeckID:   d.ID,
		CardSlot: slot,
		CardType: def.Type,
		CardData: datatypes.JSON(raw),
	}); err != nil {
		return nil, aggregates.MapError(op, err)
	}
	card, err := s.cards.GetByDeckSlot(dbc, d.ID, slot)
	if err != nil {
		return nil, aggregates.MapError(op, err)
	}
	return card, nil
}

func (s *deckService) ListCards(ctx context.Context, deckID uuid.UUID) ([]*types.DeckCard, error) {
	d, err := s.ownedDeck(ctx, "deck.list_cards", deckID)
	if err != nil {
		return nil, err
	}
	out, err := s.cards.ListByDeckID(dbctx.Context{Ctx: ctx}, d.ID)
	if err != nil {
		return nil, aggregates.MapError("deck.list_cards", err)
	}
	return out, nil
}

func (s *deckService) ownedDeck(ctx context.Context, op string, deckID uuid.UUID) (*types.Deck, error) {
	return requireOwnedDeck(ctx, s.decks, op, deckID)
}

// requireOwnedDeck is the single ownership lookup; a deck owned by someone else reads as missing.
func requireOwnedDeck(ctx context.Context, decks repos.DeckRepo, op string, deckID uuid.UUID) (*types.Deck, error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	if deckID == uuid.Nil {
		return nil, deckNotFound(op, deckID)
	}
	d, err := decks.GetOwned(dbctx.Context{Ctx: ctx}, deckID, userID)
	if err != nil {
		return nil, aggregates.MapError(op, err)
	}
	if d == nil {
		return nil, deckNotFound(op, deckID)
	}
	return d, nil
}
