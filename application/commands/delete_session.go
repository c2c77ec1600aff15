package commands

import (
	"context"

	"go.uber.org/zap"

	"referral-backend/application/ports"
	"referral-backend/domain/core/aggregates"
	appErrors "referral-backend/pkg/errors"
	"referral-backend/pkg/utils"
)

// DeleteSessionCommand represents the command to remove a session entirely.
// The stored event trail is kept; only the session state goes away.
type DeleteSessionCommand struct {
	SessionID string `json:"session_id" validate:"required"`
	UserID    string `json:"user_id" validate:"required"`
}

// Validate checks the command fields
func (c DeleteSessionCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// DeleteSessionHandler handles the DeleteSessionCommand
type DeleteSessionHandler struct {
	sessionRepo ports.SessionRepository
	cache       ports.Cache
	logger      *zap.Logger
}

// NewDeleteSessionHandler creates a new handler instance
func NewDeleteSessionHandler(
	sessionRepo ports.SessionRepository,
	cache ports.Cache,
	logger *zap.Logger,
) *DeleteSessionHandler {
	return &DeleteSessionHandler{
		sessionRepo: sessionRepo,
		cache:       cache,
		logger:      logger,
	}
}

// Handle executes the delete session command. Only the owning user may
// delete a session.
func (h *DeleteSessionHandler) Handle(ctx context.Context, cmd DeleteSessionCommand) error {
	session, err := h.sessionRepo.GetByID(ctx, aggregates.SessionID(cmd.SessionID))
	if err != nil {
		return err
	}

	if session.UserID() != cmd.UserID {
		return appErrors.NewForbiddenError("session belongs to another user")
	}

	if err := h.sessionRepo.Delete(ctx, session.ID()); err != nil {
		return err
	}

	if h.cache != nil {
		if err := h.cache.Delete(ctx, "session:"+cmd.SessionID); err != nil {
			h.logger.Warn("Failed to drop session cache entry",
				zap.String("session_id", cmd.SessionID),
				zap.Error(err),
			)
		}
	}

	h.logger.Info("Session deleted",
		zap.String("session_id", cmd.SessionID),
		zap.String("user_id", cmd.UserID),
	)

	return nil
}
