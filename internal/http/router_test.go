package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/mycelium-backend/internal/data/aggregates"
	"github.com/yungbote/mycelium-backend/internal/data/repos"
	"github.com/yungbote/mycelium-backend/internal/data/repos/testutil"
	httpH "github.com/yungbote/mycelium-backend/internal/http/handlers"
	httpMW "github.com/yungbote/mycelium-backend/internal/http/middleware"
	"github.com/yungbote/mycelium-backend/internal/http/response"
	"github.com/yungbote/mycelium-backend/internal/observability"
	"github.com/yungbote/mycelium-backend/internal/realtime/bus"
	"github.com/yungbote/mycelium-backend/internal/services"
)

const testSecret = "router-test-secret"

type apiHarness struct {
	t      *testing.T
	engine *gin.Engine
	auth   services.AuthService
	bus    *bus.Recorder
}

func newHarness(t *testing.T) *apiHarness {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := testutil.DB(t)
	log := testutil.Logger(t)

	decks := repos.NewDeckRepo(db, log)
	cards := repos.NewDeckCardRepo(db, log)
	results := repos.NewResearchResultRepo(db, log)
	sessions := repos.NewResearchSessionRepo(db, log)
	agg := aggregates.NewResearchAggregate(aggregates.ResearchAggregateDeps{
		BaseDeps: aggregates.BaseDeps{DB: db, Log: log},
		Cards:    cards,
		Results:  results,
		Sessions: sessions,
	})
	rec := &bus.Recorder{}
	auth := services.NewAuthService(log, testSecret, "")
	metrics := observability.NewMetrics()

	engine := NewRouter(RouterConfig{
		Log:             log,
		Metrics:         metrics,
		AuthMiddleware:  httpMW.NewAuthMiddleware(log, auth),
		DeckHandler:     httpH.NewDeckHandler(services.NewDeckService(db, log, decks, cards, results, sessions)),
		ResearchHandler: httpH.NewResearchHandler(log, services.NewResearchService(log, agg, decks, results, sessions, rec, metrics)),
		HealthHandler:   httpH.NewHealthHandler(),
	})
	return &apiHarness{t: t, engine: engine, auth: auth, bus: rec}
}

func (h *apiHarness) token(userID uuid.UUID) string {
	h.t.Helper()
	tok, err := h.auth.IssueAccessToken(userID, time.Hour)
	require.NoError(h.t, err)
	return tok
}

func (h *apiHarness) do(method, path, token string, body any) *httptest.ResponseRecorder {
	h.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(h.t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.engine.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func requireAPIError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	require.Equal(t, status, rec.Code, rec.Body.String())
	env := decode[response.ErrorEnvelope](t, rec)
	assert.Equal(t, code, env.Error.Code)
	assert.NotEmpty(t, env.Error.Message)
}

// createReadyDeck creates a deck through the API and fills every vision card.
func (h *apiHarness) createReadyDeck(token string) string {
	h.t.Helper()
	rec := h.do(http.MethodPost, "/api/decks", token, map[string]any{"title": "Spore Co"})
	require.Equal(h.t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[struct {
		Deck struct {
			ID string `json:"id"`
		} `json:"deck"`
	}](h.t, rec)
	for slot := 1; slot <= 5; slot++ {
		rec = h.do(http.MethodPut, fmt.Sprintf("/api/decks/%s/cards/%d", created.Deck.ID, slot), token,
			map[string]any{"cardData": map[string]any{"text": fmt.Sprintf("vision %d", slot)}})
		require.Equal(h.t, http.StatusOK, rec.Code, rec.Body.String())
	}
	return created.Deck.ID
}

func (h *apiHarness) orchestrate(token, action, deckID string, slot int) *httptest.ResponseRecorder {
	body := map[string]any{"action": action, "deckId": deckID}
	if slot != 0 {
		body["cardSlot"] = slot
	}
	return h.do(http.MethodPost, "/api/research-orchestrator", token, body)
}

var scoresBody = map[string]any{
	"findings": map[string]any{"summary": "three competitors"},
	"scores":   map[string]any{"depth": 80, "actionability": 70, "uniqueness": 90, "source_quality": 60},
}

func TestHealthAndMetrics(t *testing.T) {
	h := newHarness(t)
	rec := h.do(http.MethodGet, "/healthcheck", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	rec = h.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestOrchestratorRequiresBearer(t *testing.T) {
	h := newHarness(t)
	rec := h.orchestrate("", "get_status", uuid.NewString(), 0)
	requireAPIError(t, rec, http.StatusUnauthorized, "unauthorized")

	rec = h.orchestrate("not-a-token", "get_status", uuid.NewString(), 0)
	requireAPIError(t, rec, http.StatusUnauthorized, "unauthorized")
}

func TestOrchestratorBadRequests(t *testing.T) {
	h := newHarness(t)
	tok := h.token(uuid.New())
	deckID := h.createReadyDeck(tok)

	rec := h.do(http.MethodPost, "/api/research-orchestrator", tok, "{not json")
	requireAPIError(t, rec, http.StatusBadRequest, "invalid_request")

	rec = h.do(http.MethodPost, "/api/research-orchestrator", tok, map[string]any{"action": "get_status"})
	requireAPIError(t, rec, http.StatusBadRequest, "invalid_request")
	assert.Contains(t, rec.Body.String(), "DeckID is required")

	rec = h.orchestrate(tok, "delete_everything", deckID, 0)
	requireAPIError(t, rec, http.StatusBadRequest, "invalid_request")
	assert.Contains(t, rec.Body.String(), "unknown action")

	rec = h.orchestrate(tok, "can_research", deckID, 0)
	requireAPIError(t, rec, http.StatusBadRequest, "invalid_request")

	rec = h.orchestrate(tok, "can_research", deckID, 4)
	requireAPIError(t, rec, http.StatusBadRequest, "invalid_slot")
}

func TestOrchestratorHidesOtherUsersDecks(t *testing.T) {
	h := newHarness(t)
	deckID := h.createReadyDeck(h.token(uuid.New()))
	stranger := h.token(uuid.New())

	for _, action := range []string{"check_readiness", "get_status", "reconcile"} {
		rec := h.orchestrate(stranger, action, deckID, 0)
		requireAPIError(t, rec, http.StatusNotFound, "deck_not_found")
	}
	rec := h.orchestrate(stranger, "accept_research", deckID, 6)
	requireAPIError(t, rec, http.StatusNotFound, "deck_not_found")
	rec = h.do(http.MethodGet, "/api/decks/"+deckID, stranger, nil)
	requireAPIError(t, rec, http.StatusNotFound, "deck_not_found")
}

func TestResearchLifecycleOverHTTP(t *testing.T) {
	h := newHarness(t)
	tok := h.token(uuid.New())
	deckID := h.createReadyDeck(tok)

	rec := h.orchestrate(tok, "check_readiness", deckID, 0)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	ready := decode[services.ReadinessView](t, rec)
	assert.True(t, ready.IsReady)
	require.NotNil(t, ready.Session)
	assert.Equal(t, 6, ready.Session.CurrentCardSlot)

	rec = h.orchestrate(tok, "accept_research", deckID, 6)
	requireAPIError(t, rec, http.StatusNotFound, "research_not_found")

	rec = h.orchestrate(tok, "can_research", deckID, 7)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[services.CanResearchView](t, rec).CanResearch)

	base := fmt.Sprintf("/api/decks/%s/research/6", deckID)
	rec = h.do(http.MethodPost, base+"/start", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = h.orchestrate(tok, "accept_research", deckID, 6)
	requireAPIError(t, rec, http.StatusBadRequest, "invalid_transition")

	rec = h.do(http.MethodPost, base+"/complete", tok, map[string]any{"findings": map[string]any{"a": 1}})
	requireAPIError(t, rec, http.StatusBadRequest, "invalid_request")

	rec = h.do(http.MethodPost, base+"/complete", tok, map[string]any{
		"findings": map[string]any{},
		"scores":   scoresBody["scores"],
	})
	requireAPIError(t, rec, http.StatusBadRequest, "invalid_findings")

	rec = h.do(http.MethodPost, base+"/complete", tok, scoresBody)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"final_rarity":"epic"`)

	rec = h.orchestrate(tok, "accept_research", deckID, 6)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	accepted := decode[services.AcceptView](t, rec)
	assert.True(t, accepted.Success)
	assert.Equal(t, 7, accepted.CurrentUnlockedSlot)

	rec = h.orchestrate(tok, "get_status", deckID, 0)
	require.Equal(t, http.StatusOK, rec.Code)
	status := decode[services.StatusView](t, rec)
	assert.Equal(t, 7, status.CurrentUnlockedSlot)
	require.Len(t, status.Results, 1)

	rec = h.do(http.MethodGet, fmt.Sprintf("/api/decks/%s/cards", deckID), tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"card_slot":6`)

	rec = h.orchestrate(tok, "reconcile", deckID, 0)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[services.ReconcileView](t, rec).Changed)

	assert.Len(t, h.bus.Events(), 3)
}

func TestDeckRoutes(t *testing.T) {
	h := newHarness(t)
	tok := h.token(uuid.New())
	deckID := h.createReadyDeck(tok)

	rec := h.do(http.MethodPut, fmt.Sprintf("/api/decks/%s/cards/7", deckID), tok, map[string]any{"cardData": map[string]any{"x": 1}})
	requireAPIError(t, rec, http.StatusBadRequest, "research_slot")

	rec = h.do(http.MethodPut, fmt.Sprintf("/api/decks/%s/cards/abc", deckID), tok, map[string]any{"cardData": map[string]any{}})
	requireAPIError(t, rec, http.StatusBadRequest, "invalid_request")

	rec = h.do(http.MethodGet, "/api/decks/not-a-uuid", tok, nil)
	requireAPIError(t, rec, http.StatusBadRequest, "invalid_request")

	rec = h.do(http.MethodPost, "/api/decks", tok, map[string]any{"title": strings.Repeat("x", 201)})
	requireAPIError(t, rec, http.StatusBadRequest, "invalid_request")

	rec = h.do(http.MethodGet, "/api/decks", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), deckID)

	rec = h.do(http.MethodDelete, "/api/decks/"+deckID, tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = h.do(http.MethodGet, "/api/decks/"+deckID, tok, nil)
	requireAPIError(t, rec, http.StatusNotFound, "deck_not_found")
}
