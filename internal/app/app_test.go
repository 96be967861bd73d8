package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/mycelium-backend/internal/platform/logger"
)

func TestNewWiresSQLiteApp(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", filepath.Join(t.TempDir(), "app.db"))
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("OTEL_ENABLED", "false")
	log, err := logger.New("test")
	require.NoError(t, err)

	ctx := context.Background()
	a, err := New(ctx, log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close(ctx) })
	require.NoError(t, a.Migrate())

	rec := httptest.NewRecorder()
	a.Server.Engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthcheck", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	a.Server.Engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/decks", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
