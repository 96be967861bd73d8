package bus

import (
	"context"
	"sync"

	"github.com/yungbote/mycelium-backend/internal/realtime"
)

// Recorder is an in-process Bus that keeps every published event and fans
// them out to forwarders. Tests use it in place of redis.
type Recorder struct {
	mu       sync.Mutex
	events   []realtime.Event
	handlers []func(realtime.Event)
	// Err, when set, is returned from Publish and the event is not kept.
	Err error
}

var _ Bus = (*Recorder)(nil)

func (r *Recorder) Publish(_ context.Context, ev realtime.Event) error {
	r.mu.Lock()
	if r.Err != nil {
		err := r.Err
		r.mu.Unlock()
		return err
	}
	r.events = append(r.events, ev)
	handlers := append([]func(realtime.Event){}, r.handlers...)
	r.mu.Unlock()

	for _, h := range handlers {
		h(ev)
	}
	return nil
}

func (r *Recorder) StartForwarder(_ context.Context, onEvent func(realtime.Event)) error {
	if onEvent == nil {
		return nil
	}
	r.mu.Lock()
	r.handlers = append(r.handlers, onEvent)
	r.mu.Unlock()
	return nil
}

func (r *Recorder) Close() error { return nil }

func (r *Recorder) Events() []realtime.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]realtime.Event(nil), r.events...)
}

func (r *Recorder) Types() []realtime.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]realtime.EventType, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}
