package queries

import (
	"context"
	"errors"
	"sort"
	"time"

	"referral-backend/application/ports"
	"referral-backend/pkg/common"
)

// ListSessionsQuery represents a query for a user's sessions
type ListSessionsQuery struct {
	UserID   string `json:"user_id"`
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
}

// Validate validates the query
func (q ListSessionsQuery) Validate() error {
	if q.UserID == "" {
		return errors.New("user ID is required")
	}
	if q.Page < 0 || q.PageSize < 0 {
		return errors.New("page and page size cannot be negative")
	}
	return nil
}

// SessionSummaryDTO is one row in the session list
type SessionSummaryDTO struct {
	SessionID     string `json:"session_id"`
	AnsweredCount int    `json:"answered_count"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}

// ListSessionsHandler handles the ListSessionsQuery
type ListSessionsHandler struct {
	sessionRepo ports.SessionRepository
}

// NewListSessionsHandler creates a new handler instance
func NewListSessionsHandler(sessionRepo ports.SessionRepository) *ListSessionsHandler {
	return &ListSessionsHandler{sessionRepo: sessionRepo}
}

// Handle executes the list sessions query, most recently updated first
func (h *ListSessionsHandler) Handle(ctx context.Context, query ListSessionsQuery) (*common.PaginatedResult, error) {
	sessions, err := h.sessionRepo.GetByUserID(ctx, query.UserID)
	if err != nil {
		return nil, err
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].UpdatedAt().After(sessions[j].UpdatedAt())
	})

	page := query.Page
	if page < 1 {
		page = 1
	}
	pageSize := query.PageSize
	if pageSize < 1 {
		pageSize = common.DefaultPaginationParams().PageSize
	}

	offset := (page - 1) * pageSize
	items := make([]SessionSummaryDTO, 0, pageSize)
	for i := offset; i < len(sessions) && i < offset+pageSize; i++ {
		session := sessions[i]
		items = append(items, SessionSummaryDTO{
			SessionID:     session.ID().String(),
			AnsweredCount: session.AnsweredCount(),
			CreatedAt:     session.CreatedAt().Format(time.RFC3339),
			UpdatedAt:     session.UpdatedAt().Format(time.RFC3339),
		})
	}

	return common.NewPaginatedResult(items, page, pageSize, len(sessions)), nil
}
