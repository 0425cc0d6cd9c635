// Package event delivers domain events to the handlers registered for them.
package event

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"

	"github.com/sharecode/sharecode-backend/internal/domain"
	"github.com/sharecode/sharecode-backend/internal/metrics"
)

// Handler reacts to one domain event.
type Handler interface {
	Handle(ctx context.Context, e domain.Event) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, e domain.Event) error

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, e domain.Event) error {
	return f(ctx, e)
}

// Publisher accepts drained aggregate events.
type Publisher interface {
	Publish(ctx context.Context, events ...domain.Event)
}

// Dispatcher is an explicit event-name to handlers registry.
// Each handler runs in its own goroutine; Publish never blocks on handlers
// and handler order is not guaranteed.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string][]Handler

	wg      conc.WaitGroup
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

// NewDispatcher creates an empty dispatcher. m may be nil.
func NewDispatcher(m *metrics.Metrics, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		handlers: make(map[string][]Handler),
		metrics:  m,
		logger:   logger.With().Str("component", "event_dispatcher").Logger(),
	}
}

// Register adds h for events named eventName.
func (d *Dispatcher) Register(eventName string, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[eventName] = append(d.handlers[eventName], h)
}

// HandlerCount returns the number of handlers registered for eventName.
func (d *Dispatcher) HandlerCount(eventName string) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.handlers[eventName])
}

// Publish schedules every handler of every event. Handlers get a context
// detached from ctx's cancellation so they outlive the request.
func (d *Dispatcher) Publish(ctx context.Context, events ...domain.Event) {
	if len(events) == 0 {
		return
	}
	hctx := context.WithoutCancel(ctx)

	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, e := range events {
		handlers := d.handlers[e.EventName()]
		if len(handlers) == 0 {
			d.logger.Debug().Str("event", e.EventName()).Msg("no handlers registered")
			continue
		}
		for _, h := range handlers {
			d.wg.Go(func() { d.run(hctx, h, e) })
		}
	}
}

func (d *Dispatcher) run(ctx context.Context, h Handler, e domain.Event) {
	log := d.logger.With().
		Str("event", e.EventName()).
		Str("aggregate_id", e.AggregateID().String()).
		Logger()

	var err error
	if recovered := panics.Try(func() { err = h.Handle(ctx, e) }); recovered != nil {
		d.metrics.EventDispatched(e.EventName(), metrics.OutcomePanic)
		log.Error().Str("panic", recovered.String()).Msg("event handler panicked")
		return
	}
	if err != nil {
		d.metrics.EventDispatched(e.EventName(), metrics.OutcomeError)
		log.Error().Err(err).Msg("event handler failed")
		return
	}

	d.metrics.EventDispatched(e.EventName(), metrics.OutcomeOK)
	log.Debug().Msg("event handled")
}

// Wait blocks until every scheduled handler has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
