package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/mycelium-backend/internal/http/handlers"
	httpMW "github.com/yungbote/mycelium-backend/internal/http/middleware"
	"github.com/yungbote/mycelium-backend/internal/observability"
	"github.com/yungbote/mycelium-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	Metrics     *observability.Metrics
	ServiceName string
	CORSOrigins []string

	AuthMiddleware *httpMW.AuthMiddleware

	DeckHandler     *httpH.DeckHandler
	ResearchHandler *httpH.ResearchHandler
	HealthHandler   *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(httpMW.Recovery(cfg.Log))
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	api := r.Group("/api")
	protected := api.Group("/")
	{
		// Middleware
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}

		// Decks
		if cfg.DeckHandler != nil {
			protected.POST("/decks", cfg.DeckHandler.CreateDeck)
			protected.GET("/decks", cfg.DeckHandler.ListDecks)
			protected.GET("/decks/:id", cfg.DeckHandler.GetDeck)
			protected.DELETE("/decks/:id", cfg.DeckHandler.DeleteDeck)
			protected.GET("/decks/:id/cards", cfg.DeckHandler.ListCards)
			protected.PUT("/decks/:id/cards/:slot", cfg.DeckHandler.UpsertCard)
		}

		// Research
		if cfg.ResearchHandler != nil {
			protected.POST("/research-orchestrator", cfg.ResearchHandler.Orchestrate)
			protected.POST("/decks/:id/research/:slot/start", cfg.ResearchHandler.Start)
			protected.POST("/decks/:id/research/:slot/complete", cfg.ResearchHandler.Complete)
		}
	}

	return r
}
