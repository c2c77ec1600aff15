package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"referral-backend/application/ports"
	"referral-backend/domain/events"
)

// EventStore keeps the event trail in process memory. It backs development
// and tests, where losing the trail on restart is acceptable.
type EventStore struct {
	mu     sync.RWMutex
	stored map[string][]events.StoredEvent
}

// NewEventStore creates an in-memory event store
func NewEventStore() ports.EventStore {
	return &EventStore{
		stored: make(map[string][]events.StoredEvent),
	}
}

// SaveEvents persists domain events in arrival order
func (es *EventStore) SaveEvents(ctx context.Context, domainEvents []events.DomainEvent) error {
	if len(domainEvents) == 0 {
		return nil
	}

	es.mu.Lock()
	defer es.mu.Unlock()

	for _, event := range domainEvents {
		payload, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("failed to marshal event: %w", err)
		}

		es.stored[event.GetAggregateID()] = append(es.stored[event.GetAggregateID()], events.StoredEvent{
			AggregateID: event.GetAggregateID(),
			EventType:   event.GetEventType(),
			Timestamp:   event.GetTimestamp(),
			Version:     event.GetVersion(),
			Payload:     payload,
		})
	}

	return nil
}

// GetEvents retrieves events for an aggregate in the order they were saved
func (es *EventStore) GetEvents(ctx context.Context, aggregateID string) ([]events.StoredEvent, error) {
	es.mu.RLock()
	defer es.mu.RUnlock()

	trail := es.stored[aggregateID]
	out := make([]events.StoredEvent, len(trail))
	copy(out, trail)
	return out, nil
}
