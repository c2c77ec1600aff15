package queries

import (
	"context"
	"errors"

	"referral-backend/application/ports"
	"referral-backend/domain/core/aggregates"
	"referral-backend/domain/core/valueobjects"
	"referral-backend/domain/services"
	appErrors "referral-backend/pkg/errors"
)

// GetVisibleQuestionsQuery represents a query for the questions a session
// should currently render for one domain
type GetVisibleQuestionsQuery struct {
	SessionID string `json:"session_id"`
	Domain    string `json:"domain"`
}

// Validate validates the query
func (q GetVisibleQuestionsQuery) Validate() error {
	if q.SessionID == "" {
		return errors.New("session ID is required")
	}
	if q.Domain == "" {
		return errors.New("domain is required")
	}
	return nil
}

// QuestionDTO is a data transfer object for questions
type QuestionDTO struct {
	FieldRef   string   `json:"field_ref"`
	Text       string   `json:"text"`
	AnswerType string   `json:"answer_type"`
	Options    []string `json:"options,omitempty"`
	Answer     []string `json:"answer,omitempty"`
}

// VisibleQuestionsResult represents the query result in display order
type VisibleQuestionsResult struct {
	SessionID string        `json:"session_id"`
	Domain    string        `json:"domain"`
	Questions []QuestionDTO `json:"questions"`
}

// GetVisibleQuestionsHandler handles the GetVisibleQuestionsQuery
type GetVisibleQuestionsHandler struct {
	sessionRepo ports.SessionRepository
	tables      ports.RuleTableProvider
	visibility  *services.VisibilityEvaluator
}

// NewGetVisibleQuestionsHandler creates a new handler instance
func NewGetVisibleQuestionsHandler(
	sessionRepo ports.SessionRepository,
	tables ports.RuleTableProvider,
	visibility *services.VisibilityEvaluator,
) *GetVisibleQuestionsHandler {
	return &GetVisibleQuestionsHandler{
		sessionRepo: sessionRepo,
		tables:      tables,
		visibility:  visibility,
	}
}

// Handle executes the get visible questions query
func (h *GetVisibleQuestionsHandler) Handle(ctx context.Context, query GetVisibleQuestionsQuery) (*VisibleQuestionsResult, error) {
	domain, err := valueobjects.NewDomainCode(query.Domain)
	if err != nil {
		return nil, appErrors.NewValidationError(err.Error())
	}

	table, err := h.tables.Table(ctx)
	if err != nil {
		return nil, err
	}

	rs, ok := table.Get(domain)
	if !ok {
		if compileErr := table.Failure(domain.String()); compileErr != nil {
			return nil, compileErr
		}
		return nil, appErrors.NewNotFoundError("domain " + domain.String())
	}

	session, err := h.sessionRepo.GetByID(ctx, aggregates.SessionID(query.SessionID))
	if err != nil {
		return nil, err
	}

	visible := h.visibility.VisibleQuestions(rs, session)

	result := &VisibleQuestionsResult{
		SessionID: query.SessionID,
		Domain:    domain.String(),
		Questions: make([]QuestionDTO, 0, len(visible)),
	}
	for _, ref := range visible {
		question, ok := rs.Question(ref)
		if !ok {
			continue
		}
		dto := QuestionDTO{
			FieldRef:   ref.String(),
			Text:       question.Text(),
			AnswerType: string(question.AnswerType()),
			Options:    question.Options(),
		}
		if answer := session.Get(domain, ref); !answer.IsZero() {
			dto.Answer = answer.Values()
		}
		result.Questions = append(result.Questions, dto)
	}

	return result, nil
}
