package testutil

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/yungbote/mycelium-backend/internal/domain"
	"github.com/yungbote/mycelium-backend/internal/domain/deck"
	"github.com/yungbote/mycelium-backend/internal/domain/research"
)

func PtrUUID(v uuid.UUID) *uuid.UUID { return &v }

func PtrTime(v time.Time) *time.Time { return &v }

func SeedDeck(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID) *types.Deck {
	tb.Helper()
	d := &types.Deck{
		ID:     uuid.New(),
		UserID: userID,
		Title:  "deck",
	}
	if err := tx.WithContext(ctx).Create(d).Error; err != nil {
		tb.Fatalf("seed deck: %v", err)
	}
	return d
}

// SeedVisionCards fills slots 1..5 with non-empty card data.
func SeedVisionCards(tb testing.TB, ctx context.Context, tx *gorm.DB, deckID uuid.UUID) []*types.DeckCard {
	tb.Helper()
	layout := deck.DefaultLayout()
	out := make([]*types.DeckCard, 0, deck.LastVisionSlot)
	for slot := deck.FirstVisionSlot; slot <= deck.LastVisionSlot; slot++ {
		out = append(out, SeedCard(tb, ctx, tx, deckID, slot, layout.TypeFor(slot), `{"text":"filled"}`))
	}
	return out
}

func SeedCard(tb testing.TB, ctx context.Context, tx *gorm.DB, deckID uuid.UUID, slot int, cardType string, data string) *types.DeckCard {
	tb.Helper()
	c := &types.DeckCard{
		ID:       uuid.New(),
		DeckID:   deckID,
		CardSlot: slot,
		CardType: cardType,
		CardData: datatypes.JSON([]byte(data)),
	}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed card: %v", err)
	}
	return c
}

func SeedSession(tb testing.TB, ctx context.Context, tx *gorm.DB, deckID uuid.UUID, current int, status research.SessionStatus) *types.ResearchSession {
	tb.Helper()
	s := &types.ResearchSession{
		ID:              uuid.New(),
		DeckID:          deckID,
		CurrentCardSlot: current,
		Status:          status,
		StartedAt:       time.Now().UTC(),
	}
	if err := tx.WithContext(ctx).Create(s).Error; err != nil {
		tb.Fatalf("seed session: %v", err)
	}
	return s
}

// SeedResult inserts a research row for slot. Ready and accepted rows carry findings and scores.
func SeedResult(tb testing.TB, ctx context.Context, tx *gorm.DB, deckID uuid.UUID, slot int, status research.Status) *types.ResearchResult {
	tb.Helper()
	now := time.Now().UTC()
	r := &types.ResearchResult{
		ID:       uuid.New(),
		DeckID:   deckID,
		CardSlot: slot,
		Status:   status,
	}
	if status == research.StatusReady || status == research.StatusAccepted {
		scores := research.Scores{Depth: 80, Actionability: 70, Uniqueness: 90, SourceQuality: 60}.WithFinal()
		raw, err := json.Marshal(scores)
		if err != nil {
			tb.Fatalf("marshal scores: %v", err)
		}
		r.Findings = datatypes.JSON([]byte(`{"summary":"seeded findings"}`))
		r.RarityScores = datatypes.JSON(raw)
		r.FinalRarity = string(research.RarityFor(scores.FinalScore))
		r.ResearchedAt = PtrTime(now)
	}
	if status == research.StatusAccepted {
		r.AcceptedAt = PtrTime(now)
	}
	if err := tx.WithContext(ctx).Create(r).Error; err != nil {
		tb.Fatalf("seed research result: %v", err)
	}
	return r
}
