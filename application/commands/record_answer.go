package commands

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"referral-backend/application/ports"
	"referral-backend/domain/core/aggregates"
	"referral-backend/domain/core/entities"
	"referral-backend/domain/core/valueobjects"
	"referral-backend/domain/services"
	appErrors "referral-backend/pkg/errors"
	"referral-backend/pkg/observability"
	"referral-backend/pkg/utils"
)

// RecordAnswerCommand represents the command to store an answer in a session.
// Values carries one element for single-valued questions and several for
// multi-select ones.
type RecordAnswerCommand struct {
	SessionID string   `json:"session_id" validate:"required"`
	Domain    string   `json:"domain" validate:"required"`
	FieldRef  string   `json:"field_ref" validate:"required"`
	Values    []string `json:"values"`
}

// Validate checks the command fields
func (c RecordAnswerCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// RecordAnswerResult reports what one answer change did to the session
type RecordAnswerResult struct {
	Session *aggregates.Session
	Cleared []string
	Opened  []string
	Visible []string
}

// RecordAnswerHandler handles the RecordAnswerCommand. Each invocation runs
// the full answer flow: store the value, cascade-clear descendants if the
// value changed, then report the visibility delta.
type RecordAnswerHandler struct {
	sessionRepo ports.SessionRepository
	tables      ports.RuleTableProvider
	visibility  *services.VisibilityEvaluator
	cascade     *services.CascadeInvalidator
	eventBus    ports.EventBus
	eventStore  ports.EventStore
	metrics     *observability.Metrics
	logger      *zap.Logger
}

// NewRecordAnswerHandler creates a new handler instance
func NewRecordAnswerHandler(
	sessionRepo ports.SessionRepository,
	tables ports.RuleTableProvider,
	visibility *services.VisibilityEvaluator,
	cascade *services.CascadeInvalidator,
	eventBus ports.EventBus,
	eventStore ports.EventStore,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *RecordAnswerHandler {
	return &RecordAnswerHandler{
		sessionRepo: sessionRepo,
		tables:      tables,
		visibility:  visibility,
		cascade:     cascade,
		eventBus:    eventBus,
		eventStore:  eventStore,
		metrics:     metrics,
		logger:      logger,
	}
}

// Handle executes the record answer command
func (h *RecordAnswerHandler) Handle(ctx context.Context, cmd RecordAnswerCommand) (*RecordAnswerResult, error) {
	start := time.Now()

	domain, err := valueobjects.NewDomainCode(cmd.Domain)
	if err != nil {
		return nil, appErrors.NewValidationError(err.Error())
	}
	field, err := valueobjects.NewFieldRef(cmd.FieldRef)
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

	question, ok := rs.Question(field)
	if !ok {
		return nil, appErrors.NewNotFoundError("question " + field.String())
	}
	if err := validateOptions(question, cmd.Values); err != nil {
		return nil, err
	}

	session, err := h.sessionRepo.GetByID(ctx, aggregates.SessionID(cmd.SessionID))
	if err != nil {
		return nil, err
	}

	visibleBefore := h.visibility.VisibleQuestions(rs, session)

	value := valueobjects.NewMultiAnswerValue(cmd.Values)
	if err := session.Set(domain, field, value); err != nil {
		return nil, appErrors.NewValidationError(err.Error())
	}

	cleared := h.cascade.OnAnswerChanged(rs, session, field)

	visibleAfter := h.visibility.VisibleQuestions(rs, session)
	opened := services.VisibleDelta(visibleBefore, visibleAfter)

	if err := h.sessionRepo.Save(ctx, session); err != nil {
		return nil, err
	}

	if h.eventStore != nil {
		if err := h.eventStore.SaveEvents(ctx, session.GetUncommittedEvents()); err != nil {
			h.logger.Warn("Failed to store session events",
				zap.String("session_id", cmd.SessionID),
				zap.Error(err),
			)
		}
	}

	if err := h.eventBus.PublishBatch(ctx, session.GetUncommittedEvents()); err != nil {
		h.logger.Warn("Failed to publish session events",
			zap.String("session_id", cmd.SessionID),
			zap.Error(err),
		)
	}
	session.MarkEventsAsCommitted()

	if h.metrics != nil {
		h.metrics.RecordCascade(ctx, domain.String(), len(cleared))
		h.metrics.RecordCommandExecution(ctx, "RecordAnswer", time.Since(start), nil)
	}

	h.logger.Debug("Answer recorded",
		zap.String("session_id", cmd.SessionID),
		zap.String("domain", domain.String()),
		zap.String("field_ref", field.String()),
		zap.Int("cleared", len(cleared)),
		zap.Int("opened", len(opened)),
	)

	return &RecordAnswerResult{
		Session: session,
		Cleared: refStrings(cleared),
		Opened:  refStrings(opened),
		Visible: refStrings(visibleAfter),
	}, nil
}

// validateOptions rejects values outside a choice question's option list.
// Free-form answer types accept anything.
func validateOptions(question *entities.Question, values []string) error {
	if !question.AnswerType().IsChoice() || len(question.Options()) == 0 {
		return nil
	}
	allowed := make(map[string]bool, len(question.Options()))
	for _, opt := range question.Options() {
		allowed[opt] = true
	}
	for _, v := range values {
		// Stored answers are trimmed, so validate the trimmed form.
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if !allowed[v] {
			return appErrors.NewValidationError("value not among question options: " + v)
		}
	}
	return nil
}

func refStrings(refs []valueobjects.FieldRef) []string {
	out := make([]string, 0, len(refs))
	for _, ref := range refs {
		out = append(out, ref.String())
	}
	return out
}
