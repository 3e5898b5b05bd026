package usecase

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/deskcore/backend/domain"
	appLogger "github.com/deskcore/backend/pkg/logger"
)

// EventHandler consumes one domain event after the owning transaction has
// committed. Handlers needing persistence must use their own handle, never
// the originating request's transaction.
type EventHandler struct {
	Name string
	Fn   func(ctx context.Context, event domain.Event) error
}

// EventDispatcher maps event types to ordered handler lists. The registry is
// populated once at process start and treated as read-only afterwards, so
// concurrent dispatch from in-flight requests is safe.
type EventDispatcher struct {
	mu       sync.RWMutex
	handlers map[domain.EventType][]EventHandler
	logger   *zap.Logger
}

func NewEventDispatcher(logger *zap.Logger) *EventDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventDispatcher{
		handlers: make(map[domain.EventType][]EventHandler),
		logger:   logger,
	}
}

// Register appends a handler for the given event type. Handlers run in
// registration order.
func (d *EventDispatcher) Register(eventType domain.EventType, handler EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[eventType] = append(d.handlers[eventType], handler)
}

// Dispatch delivers each event to every handler registered for its exact
// type. A handler failure is logged and does not prevent delivery to
// subsequent handlers or abort dispatch of remaining events; this is a
// best-effort, fire-after-commit mechanism with no retry.
func (d *EventDispatcher) Dispatch(ctx context.Context, events []domain.Event) {
	log := appLogger.WithRequestID(ctx, d.logger)
	for _, event := range events {
		d.mu.RLock()
		handlers := d.handlers[event.EventType()]
		d.mu.RUnlock()

		for _, handler := range handlers {
			if err := handler.Fn(ctx, event); err != nil {
				log.Error("event handler failed",
					zap.String("event_type", string(event.EventType())),
					zap.String("event_id", event.EventID()),
					zap.String("handler", handler.Name),
					zap.Error(err))
			}
		}
	}
}
