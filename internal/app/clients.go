package app

import (
	"fmt"

	"github.com/yungbote/mycelium-backend/internal/platform/logger"
	"github.com/yungbote/mycelium-backend/internal/realtime/bus"
)

type Clients struct {
	EventBus bus.Bus
}

func wireClients(log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")

	// Redis
	eventBus, err := bus.New(cfg.Redis, log)
	if err != nil {
		return Clients{}, fmt.Errorf("init redis event bus: %w", err)
	}
	return Clients{EventBus: eventBus}, nil
}

func (c Clients) Close() error {
	if c.EventBus == nil {
		return nil
	}
	return c.EventBus.Close()
}
