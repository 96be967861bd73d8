package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/mycelium-backend/internal/data/repos/testutil"
	domainagg "github.com/yungbote/mycelium-backend/internal/domain/aggregates"
	"github.com/yungbote/mycelium-backend/internal/domain/research"
	"github.com/yungbote/mycelium-backend/internal/platform/dbctx"
	"github.com/yungbote/mycelium-backend/internal/realtime"
)

var goodScores = research.Scores{Depth: 80, Actionability: 70, Uniqueness: 90, SourceQuality: 60}

func runSlot(t *testing.T, e *env, ctx context.Context, deckID uuid.UUID, slot int) AcceptView {
	t.Helper()
	_, err := e.researchSvc.StartResearch(ctx, deckID, slot)
	require.NoError(t, err)
	_, err = e.researchSvc.CompleteResearch(ctx, deckID, slot, CompleteResearchInput{
		Findings: json.RawMessage(`{"summary":"ok"}`),
		Scores:   goodScores,
	})
	require.NoError(t, err)
	out, err := e.researchSvc.AcceptResearch(ctx, deckID, slot)
	require.NoError(t, err)
	return out
}

func TestCheckReadiness(t *testing.T) {
	e := newEnv(t)
	owner := uuid.New()
	ctx := asUser(owner)

	empty := testutil.SeedDeck(t, context.Background(), e.db, owner)
	out, err := e.researchSvc.CheckReadiness(ctx, empty.ID)
	require.NoError(t, err)
	assert.False(t, out.IsReady)
	assert.Nil(t, out.Session)
	assert.NotNil(t, out.Results)

	deckID := e.readyDeck(t, owner)
	out, err = e.researchSvc.CheckReadiness(ctx, deckID)
	require.NoError(t, err)
	assert.True(t, out.IsReady)
	require.NotNil(t, out.Session)
	assert.Equal(t, 6, out.Session.CurrentCardSlot)
	assert.Equal(t, research.SessionLocked, out.Session.Status)

	again, err := e.researchSvc.CheckReadiness(ctx, deckID)
	require.NoError(t, err)
	assert.Equal(t, out.Session.ID, again.Session.ID)
}

func TestResearchServiceOwnership(t *testing.T) {
	e := newEnv(t)
	deckID := e.readyDeck(t, uuid.New())
	stranger := asUser(uuid.New())

	_, err := e.researchSvc.CheckReadiness(stranger, deckID)
	requireCode(t, err, domainagg.CodeNotFound)
	_, err = e.researchSvc.GetStatus(stranger, deckID)
	requireCode(t, err, domainagg.CodeNotFound)
	_, err = e.researchSvc.AcceptResearch(stranger, deckID, 6)
	requireCode(t, err, domainagg.CodeNotFound)
	_, err = e.researchSvc.Reconcile(stranger, uuid.New())
	requireCode(t, err, domainagg.CodeNotFound)

	_, err = e.researchSvc.GetStatus(context.Background(), deckID)
	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.Empty(t, e.bus.Events())
}

func TestGetStatusDerivesPointerFromAcceptedRows(t *testing.T) {
	cases := []struct {
		name     string
		stored   int
		accepted []int
		want     int
	}{
		{"stored pointer behind", 6, []int{6, 7}, 8},
		{"stored pointer ahead", 9, []int{6}, 7},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := newEnv(t)
			owner := uuid.New()
			deckID := e.readyDeck(t, owner)
			bg := context.Background()
			testutil.SeedSession(t, bg, e.db, deckID, tc.stored, research.SessionInProgress)
			for _, slot := range tc.accepted {
				testutil.SeedResult(t, bg, e.db, deckID, slot, research.StatusAccepted)
			}

			out, err := e.researchSvc.GetStatus(asUser(owner), deckID)
			require.NoError(t, err)
			assert.Equal(t, tc.want, out.CurrentUnlockedSlot)
			require.NotNil(t, out.Session)
			assert.Equal(t, tc.stored, out.Session.CurrentCardSlot)
			assert.Len(t, out.Results, len(tc.accepted))

			stored, err := e.sessions.GetByDeckID(dbctx.Context{Ctx: bg}, deckID)
			require.NoError(t, err)
			assert.Equal(t, tc.stored, stored.CurrentCardSlot, "get_status must not write the session")
			assert.Equal(t, research.SessionInProgress, stored.Status)
			assert.Empty(t, e.bus.Events())
		})
	}
}

func TestCanResearch(t *testing.T) {
	e := newEnv(t)
	owner := uuid.New()
	ctx := asUser(owner)
	deckID := e.readyDeck(t, owner)

	_, err := e.researchSvc.CanResearch(ctx, deckID, 5)
	requireCode(t, err, domainagg.CodeValidation)
	_, err = e.researchSvc.CanResearch(ctx, deckID, 11)
	requireCode(t, err, domainagg.CodeValidation)

	out, err := e.researchSvc.CanResearch(ctx, deckID, 6)
	require.NoError(t, err)
	assert.True(t, out.CanResearch)
	out, err = e.researchSvc.CanResearch(ctx, deckID, 7)
	require.NoError(t, err)
	assert.False(t, out.CanResearch)

	runSlot(t, e, ctx, deckID, 6)
	out, err = e.researchSvc.CanResearch(ctx, deckID, 7)
	require.NoError(t, err)
	assert.True(t, out.CanResearch)
}

func TestResearchFlowPublishesEvents(t *testing.T) {
	e := newEnv(t)
	owner := uuid.New()
	ctx := asUser(owner)
	deckID := e.readyDeck(t, owner)

	started, err := e.researchSvc.StartResearch(ctx, deckID, 6)
	require.NoError(t, err)
	assert.Equal(t, research.StatusResearching, started.Status)

	ready, err := e.researchSvc.CompleteResearch(ctx, deckID, 6, CompleteResearchInput{
		Findings: json.RawMessage(`{"summary":"ok"}`),
		Scores:   goodScores,
	})
	require.NoError(t, err)
	assert.Equal(t, research.StatusReady, ready.Status)
	assert.Equal(t, string(research.RarityEpic), ready.FinalRarity)

	out, err := e.researchSvc.AcceptResearch(ctx, deckID, 6)
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.Equal(t, 7, out.CurrentUnlockedSlot)
	require.NotNil(t, out.Session)
	assert.Equal(t, 7, out.Session.CurrentCardSlot)
	assert.Equal(t, research.SessionInProgress, out.Session.Status)

	assert.Equal(t, []realtime.EventType{
		realtime.EventResearchStarted,
		realtime.EventResearchReady,
		realtime.EventResearchAccepted,
	}, e.bus.Types())
	accepted := e.bus.Events()[2]
	assert.Equal(t, owner, accepted.UserID)
	assert.Equal(t, deckID, accepted.DeckID)
	assert.Equal(t, 6, accepted.CardSlot)
	assert.Equal(t, 7, accepted.CurrentUnlockedSlot)
	assert.Equal(t, string(research.RarityEpic), accepted.FinalRarity)

	status, err := e.researchSvc.GetStatus(ctx, deckID)
	require.NoError(t, err)
	assert.Equal(t, 7, status.CurrentUnlockedSlot)
	assert.Len(t, status.Results, 1)
}

func TestAcceptResearchOutOfOrder(t *testing.T) {
	e := newEnv(t)
	owner := uuid.New()
	ctx := asUser(owner)
	deckID := e.readyDeck(t, owner)
	testutil.SeedResult(t, context.Background(), e.db, deckID, 7, research.StatusReady)

	_, err := e.researchSvc.AcceptResearch(ctx, deckID, 7)
	require.Error(t, err)
	assert.Equal(t, domainagg.ReasonResearchLocked, domainagg.ReasonOf(err))
	assert.Empty(t, e.bus.Events())
}

func TestChainCompletionPublishesCompleted(t *testing.T) {
	e := newEnv(t)
	owner := uuid.New()
	ctx := asUser(owner)
	deckID := e.readyDeck(t, owner)

	var last AcceptView
	for slot := 6; slot <= 10; slot++ {
		last = runSlot(t, e, ctx, deckID, slot)
	}
	assert.Equal(t, 10, last.CurrentUnlockedSlot)
	require.NotNil(t, last.Session)
	assert.Equal(t, research.SessionCompleted, last.Session.Status)
	assert.NotNil(t, last.Session.CompletedAt)

	seen := e.bus.Types()
	assert.Equal(t, realtime.EventResearchCompleted, seen[len(seen)-1])
	completed := 0
	for _, tp := range seen {
		if tp == realtime.EventResearchCompleted {
			completed++
		}
	}
	assert.Equal(t, 1, completed)
}

func TestPublishFailureDoesNotFailAccept(t *testing.T) {
	e := newEnv(t)
	owner := uuid.New()
	ctx := asUser(owner)
	deckID := e.readyDeck(t, owner)
	e.bus.Err = errors.New("redis down")

	out := runSlot(t, e, ctx, deckID, 6)
	assert.True(t, out.Success)
	assert.Empty(t, e.bus.Events())
}

func TestReconcileRepairsDeck(t *testing.T) {
	e := newEnv(t)
	owner := uuid.New()
	ctx := asUser(owner)
	deckID := e.readyDeck(t, owner)
	testutil.SeedResult(t, context.Background(), e.db, deckID, 6, research.StatusAccepted)

	out, err := e.researchSvc.Reconcile(ctx, deckID)
	require.NoError(t, err)
	assert.True(t, out.Changed)
	assert.True(t, out.SessionCreated)
	assert.Equal(t, []int{6}, out.CardsRewritten)
	assert.Equal(t, 7, out.CurrentSlot)

	out, err = e.researchSvc.Reconcile(ctx, deckID)
	require.NoError(t, err)
	assert.False(t, out.Changed)
	assert.NotNil(t, out.CardsRewritten)
}
