package commands

import (
	"context"

	"go.uber.org/zap"

	"referral-backend/application/ports"
	"referral-backend/domain/core/aggregates"
	"referral-backend/pkg/utils"
)

// StartSessionCommand represents the command to open a new form session.
// SessionID may be pre-generated by the caller so the identifier is known
// before the command is dispatched.
type StartSessionCommand struct {
	SessionID string `json:"session_id" validate:"omitempty,uuid"`
	UserID    string `json:"user_id" validate:"required"`
}

// Validate checks the command fields
func (c StartSessionCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// StartSessionHandler handles the StartSessionCommand
type StartSessionHandler struct {
	sessionRepo ports.SessionRepository
	eventBus    ports.EventBus
	logger      *zap.Logger
}

// NewStartSessionHandler creates a new handler instance
func NewStartSessionHandler(
	sessionRepo ports.SessionRepository,
	eventBus ports.EventBus,
	logger *zap.Logger,
) *StartSessionHandler {
	return &StartSessionHandler{
		sessionRepo: sessionRepo,
		eventBus:    eventBus,
		logger:      logger,
	}
}

// Handle executes the start session command
func (h *StartSessionHandler) Handle(ctx context.Context, cmd StartSessionCommand) (*aggregates.Session, error) {
	session, err := aggregates.NewSessionWithID(aggregates.SessionID(cmd.SessionID), cmd.UserID)
	if err != nil {
		return nil, err
	}

	if err := h.sessionRepo.Save(ctx, session); err != nil {
		return nil, err
	}

	if err := h.eventBus.PublishBatch(ctx, session.GetUncommittedEvents()); err != nil {
		h.logger.Warn("Failed to publish session events",
			zap.String("session_id", session.ID().String()),
			zap.Error(err),
		)
	}
	session.MarkEventsAsCommitted()

	h.logger.Info("Session started",
		zap.String("session_id", session.ID().String()),
		zap.String("user_id", cmd.UserID),
	)

	return session, nil
}
