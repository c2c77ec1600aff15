package ports

import (
	"context"
	"time"

	"referral-backend/domain/core/aggregates"
	"referral-backend/domain/events"
	"referral-backend/domain/services"
)

// RuleTableSource defines the interface for loading the raw rule table
// This is a port in hexagonal architecture - the domain doesn't know about the implementation
type RuleTableSource interface {
	// LoadQuestions reads every question row of the table
	LoadQuestions(ctx context.Context) ([]services.QuestionRow, error)

	// LoadRules reads every rule row of the table
	LoadRules(ctx context.Context) ([]services.RuleRow, error)
}

// RuleTableProvider exposes the currently compiled rule table. Compilation
// is memoized, so repeated calls are cheap until the underlying table
// changes.
type RuleTableProvider interface {
	// Table returns the compiled table, compiling it on first use
	Table(ctx context.Context) (*services.CompiledTable, error)

	// Refresh forces a reload of the underlying table
	Refresh(ctx context.Context) (*services.CompiledTable, error)
}

// SessionRepository defines the interface for session persistence
type SessionRepository interface {
	// Save persists a session (create or update)
	Save(ctx context.Context, session *aggregates.Session) error

	// GetByID retrieves a session by its ID
	GetByID(ctx context.Context, id aggregates.SessionID) (*aggregates.Session, error)

	// GetByUserID retrieves all sessions for a user
	GetByUserID(ctx context.Context, userID string) ([]*aggregates.Session, error)

	// Delete removes a session
	Delete(ctx context.Context, id aggregates.SessionID) error
}

// EventStore defines the interface for event persistence
type EventStore interface {
	// SaveEvents persists domain events
	SaveEvents(ctx context.Context, events []events.DomainEvent) error

	// GetEvents retrieves events for an aggregate
	GetEvents(ctx context.Context, aggregateID string) ([]events.StoredEvent, error)
}

// EventPublisher defines the interface for publishing domain events
type EventPublisher interface {
	// Publish sends a single event
	Publish(ctx context.Context, event events.DomainEvent) error

	// PublishBatch sends multiple events
	PublishBatch(ctx context.Context, events []events.DomainEvent) error
}

// EventBus defines the interface for publishing domain events
type EventBus interface {
	EventPublisher

	// Subscribe registers a handler for an event type
	Subscribe(eventType string, handler EventHandler) error

	// Unsubscribe removes a handler
	Unsubscribe(eventType string, handler EventHandler) error
}

// EventHandler defines the interface for handling domain events
type EventHandler interface {
	// Handle processes an event
	Handle(ctx context.Context, event events.DomainEvent) error

	// CanHandle checks if this handler can process the event
	CanHandle(eventType string) bool
}

// Locker serializes work on a named resource across process instances.
// Acquire fails when another owner already holds the resource.
type Locker interface {
	// Acquire takes the lock for the given resource, expiring after ttl
	Acquire(ctx context.Context, resource, owner string, ttl time.Duration) (Lease, error)
}

// Lease is a held lock that must be released when the work is done
type Lease interface {
	// Release gives the lock back
	Release(ctx context.Context) error
}

// Cache defines the interface for caching
type Cache interface {
	// Get retrieves a value from cache
	Get(ctx context.Context, key string) (interface{}, bool)

	// Set stores a value in cache with TTL in seconds
	Set(ctx context.Context, key string, value interface{}, ttl int) error

	// Delete removes a value from cache
	Delete(ctx context.Context, key string) error

	// Clear removes all values from cache
	Clear(ctx context.Context) error
}
