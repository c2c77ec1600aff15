package queries

import (
	"context"
	"errors"
	"time"

	"referral-backend/application/ports"
	"referral-backend/domain/core/aggregates"
)

// GetSessionQuery represents a query to retrieve a session's state
type GetSessionQuery struct {
	SessionID string `json:"session_id"`
}

// Validate validates the query
func (q GetSessionQuery) Validate() error {
	if q.SessionID == "" {
		return errors.New("session ID is required")
	}
	return nil
}

// AnswerDTO is a data transfer object for one stored answer
type AnswerDTO struct {
	Domain   string   `json:"domain"`
	FieldRef string   `json:"field_ref"`
	Values   []string `json:"values"`
}

// SessionResult represents the query result
type SessionResult struct {
	SessionID     string      `json:"session_id"`
	UserID        string      `json:"user_id"`
	Answers       []AnswerDTO `json:"answers"`
	AnsweredCount int         `json:"answered_count"`
	CreatedAt     string      `json:"created_at"`
	UpdatedAt     string      `json:"updated_at"`
}

// GetSessionHandler handles the GetSessionQuery
type GetSessionHandler struct {
	sessionRepo ports.SessionRepository
}

// NewGetSessionHandler creates a new handler instance
func NewGetSessionHandler(sessionRepo ports.SessionRepository) *GetSessionHandler {
	return &GetSessionHandler{sessionRepo: sessionRepo}
}

// Handle executes the get session query
func (h *GetSessionHandler) Handle(ctx context.Context, query GetSessionQuery) (*SessionResult, error) {
	session, err := h.sessionRepo.GetByID(ctx, aggregates.SessionID(query.SessionID))
	if err != nil {
		return nil, err
	}

	result := &SessionResult{
		SessionID:     session.ID().String(),
		UserID:        session.UserID(),
		Answers:       make([]AnswerDTO, 0),
		AnsweredCount: session.AnsweredCount(),
		CreatedAt:     session.CreatedAt().Format(time.RFC3339),
		UpdatedAt:     session.UpdatedAt().Format(time.RFC3339),
	}
	for _, stored := range session.StoredAnswers() {
		if len(stored.Current) == 0 {
			continue
		}
		result.Answers = append(result.Answers, AnswerDTO{
			Domain:   stored.Domain,
			FieldRef: stored.FieldRef,
			Values:   stored.Current,
		})
	}

	return result, nil
}
