package app

import (
	httpapi "github.com/yungbote/mycelium-backend/internal/http"
	httpH "github.com/yungbote/mycelium-backend/internal/http/handlers"
	httpMW "github.com/yungbote/mycelium-backend/internal/http/middleware"
	"github.com/yungbote/mycelium-backend/internal/observability"
	"github.com/yungbote/mycelium-backend/internal/platform/logger"
)

type Middleware struct {
	Auth *httpMW.AuthMiddleware
}

type Handlers struct {
	Health   *httpH.HealthHandler
	Deck     *httpH.DeckHandler
	Research *httpH.ResearchHandler
}

func wireMiddleware(log *logger.Logger, services Services) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth: httpMW.NewAuthMiddleware(log, services.Auth),
	}
}

func wireHandlers(log *logger.Logger, services Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:   httpH.NewHealthHandler(),
		Deck:     httpH.NewDeckHandler(services.Deck),
		Research: httpH.NewResearchHandler(log, services.Research),
	}
}

func wireServer(log *logger.Logger, cfg Config, metrics *observability.Metrics, handlers Handlers, middleware Middleware) *httpapi.Server {
	serviceName := ""
	if cfg.OTel.Enabled {
		serviceName = cfg.OTel.ServiceName
	}
	return httpapi.NewServer(log, httpapi.RouterConfig{
		Log:             log,
		Metrics:         metrics,
		ServiceName:     serviceName,
		CORSOrigins:     cfg.CORSOrigins,
		AuthMiddleware:  middleware.Auth,
		DeckHandler:     handlers.Deck,
		ResearchHandler: handlers.Research,
		HealthHandler:   handlers.Health,
	})
}
