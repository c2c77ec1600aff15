package localbus

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"referral-backend/application/ports"
	"referral-backend/domain/events"
)

// Bus is an in-process EventBus used when no EventBridge client is
// configured. Handlers run synchronously in subscription order.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]ports.EventHandler
	logger   *zap.Logger
}

// NewBus creates a local event bus
func NewBus(logger *zap.Logger) ports.EventBus {
	return &Bus{
		handlers: make(map[string][]ports.EventHandler),
		logger:   logger,
	}
}

// Publish sends a single event
func (b *Bus) Publish(ctx context.Context, event events.DomainEvent) error {
	b.mu.RLock()
	handlers := b.handlers[event.GetEventType()]
	b.mu.RUnlock()

	for _, handler := range handlers {
		if !handler.CanHandle(event.GetEventType()) {
			continue
		}
		if err := handler.Handle(ctx, event); err != nil {
			b.logger.Warn("Event handler failed",
				zap.String("eventType", event.GetEventType()),
				zap.Error(err),
			)
		}
	}
	return nil
}

// PublishBatch sends multiple events
func (b *Bus) PublishBatch(ctx context.Context, domainEvents []events.DomainEvent) error {
	for _, event := range domainEvents {
		if err := b.Publish(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

// Subscribe registers a handler for an event type
func (b *Bus) Subscribe(eventType string, handler ports.EventHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
	return nil
}

// Unsubscribe removes a handler
func (b *Bus) Unsubscribe(eventType string, handler ports.EventHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	handlers := b.handlers[eventType]
	for i, h := range handlers {
		if h == handler {
			b.handlers[eventType] = append(handlers[:i], handlers[i+1:]...)
			break
		}
	}
	return nil
}
