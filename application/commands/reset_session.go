package commands

import (
	"context"

	"go.uber.org/zap"

	"referral-backend/application/ports"
	"referral-backend/domain/core/aggregates"
	"referral-backend/domain/core/valueobjects"
	appErrors "referral-backend/pkg/errors"
	"referral-backend/pkg/utils"
)

// ResetSessionCommand represents the command to wipe a session's answers.
// An empty Domain resets every domain.
type ResetSessionCommand struct {
	SessionID string `json:"session_id" validate:"required"`
	Domain    string `json:"domain,omitempty"`
}

// Validate checks the command fields
func (c ResetSessionCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// ResetSessionHandler handles the ResetSessionCommand
type ResetSessionHandler struct {
	sessionRepo ports.SessionRepository
	eventBus    ports.EventBus
	logger      *zap.Logger
}

// NewResetSessionHandler creates a new handler instance
func NewResetSessionHandler(
	sessionRepo ports.SessionRepository,
	eventBus ports.EventBus,
	logger *zap.Logger,
) *ResetSessionHandler {
	return &ResetSessionHandler{
		sessionRepo: sessionRepo,
		eventBus:    eventBus,
		logger:      logger,
	}
}

// Handle executes the reset session command
func (h *ResetSessionHandler) Handle(ctx context.Context, cmd ResetSessionCommand) (*aggregates.Session, error) {
	session, err := h.sessionRepo.GetByID(ctx, aggregates.SessionID(cmd.SessionID))
	if err != nil {
		return nil, err
	}

	if cmd.Domain == "" {
		session.ResetAll()
	} else {
		domain, err := valueobjects.NewDomainCode(cmd.Domain)
		if err != nil {
			return nil, appErrors.NewValidationError(err.Error())
		}
		session.ResetDomain(domain)
	}

	if err := h.sessionRepo.Save(ctx, session); err != nil {
		return nil, err
	}

	if err := h.eventBus.PublishBatch(ctx, session.GetUncommittedEvents()); err != nil {
		h.logger.Warn("Failed to publish session events",
			zap.String("session_id", cmd.SessionID),
			zap.Error(err),
		)
	}
	session.MarkEventsAsCommitted()

	h.logger.Info("Session reset",
		zap.String("session_id", cmd.SessionID),
		zap.String("domain", cmd.Domain),
	)

	return session, nil
}
