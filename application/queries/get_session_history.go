package queries

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"referral-backend/application/ports"
)

// GetSessionHistoryQuery retrieves the event trail of a session
type GetSessionHistoryQuery struct {
	SessionID string `json:"session_id"`
}

// Validate validates the query
func (q GetSessionHistoryQuery) Validate() error {
	if q.SessionID == "" {
		return errors.New("session ID is required")
	}
	return nil
}

// HistoryEventDTO is one recorded event, with its payload decoded for the
// caller
type HistoryEventDTO struct {
	EventType string          `json:"event_type"`
	Timestamp string          `json:"timestamp"`
	Version   int             `json:"version"`
	Payload   json.RawMessage `json:"payload"`
}

// SessionHistoryResult represents the query result
type SessionHistoryResult struct {
	SessionID string            `json:"session_id"`
	Events    []HistoryEventDTO `json:"events"`
}

// GetSessionHistoryHandler handles the GetSessionHistoryQuery
type GetSessionHistoryHandler struct {
	eventStore ports.EventStore
}

// NewGetSessionHistoryHandler creates a new handler instance
func NewGetSessionHistoryHandler(eventStore ports.EventStore) *GetSessionHistoryHandler {
	return &GetSessionHistoryHandler{eventStore: eventStore}
}

// Handle executes the get session history query
func (h *GetSessionHistoryHandler) Handle(ctx context.Context, query GetSessionHistoryQuery) (*SessionHistoryResult, error) {
	stored, err := h.eventStore.GetEvents(ctx, query.SessionID)
	if err != nil {
		return nil, err
	}

	result := &SessionHistoryResult{
		SessionID: query.SessionID,
		Events:    make([]HistoryEventDTO, 0, len(stored)),
	}
	for _, event := range stored {
		result.Events = append(result.Events, HistoryEventDTO{
			EventType: event.EventType,
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Version:   event.Version,
			Payload:   json.RawMessage(event.Payload),
		})
	}

	return result, nil
}
