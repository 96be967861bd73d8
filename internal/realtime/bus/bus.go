package bus

import (
	"context"

	"github.com/yungbote/mycelium-backend/internal/realtime"
)

type Bus interface {
	Publish(ctx context.Context, ev realtime.Event) error
	// StartForwarder delivers every event published on the bus to onEvent until ctx is done.
	StartForwarder(ctx context.Context, onEvent func(ev realtime.Event)) error
	Close() error
}

type noopBus struct{}

// NewNoopBus drops every event. It is used when no broker is configured.
func NewNoopBus() Bus { return noopBus{} }

func (noopBus) Publish(context.Context, realtime.Event) error { return nil }

func (noopBus) StartForwarder(ctx context.Context, _ func(realtime.Event)) error { return nil }

func (noopBus) Close() error { return nil }
