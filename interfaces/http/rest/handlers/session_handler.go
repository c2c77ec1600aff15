package handlers

import (
	"encoding/json"
	"net/http"

	"referral-backend/application/commands"
	"referral-backend/application/commands/bus"
	"referral-backend/application/queries"
	querybus "referral-backend/application/queries/bus"
	"referral-backend/pkg/common"
	appErrors "referral-backend/pkg/errors"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SessionHandler handles the form session endpoints
type SessionHandler struct {
	commandBus   *bus.CommandBus
	queryBus     *querybus.QueryBus
	errorHandler *appErrors.ErrorHandler
	logger       *zap.Logger
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	errorHandler *appErrors.ErrorHandler,
	logger *zap.Logger,
) *SessionHandler {
	return &SessionHandler{
		commandBus:   commandBus,
		queryBus:     queryBus,
		errorHandler: errorHandler,
		logger:       logger,
	}
}

// StartSessionResponse is returned when a session is created
type StartSessionResponse struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// RecordAnswerRequest is the body for recording one answer
type RecordAnswerRequest struct {
	Domain   string   `json:"domain"`
	FieldRef string   `json:"field_ref"`
	Values   []string `json:"values"`
}

// ResetSessionRequest is the body for a session reset. An empty domain
// resets everything.
type ResetSessionRequest struct {
	Domain string `json:"domain,omitempty"`
}

// StartSession handles POST /sessions
func (h *SessionHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.GetUserID(r.Context())
	if !ok {
		h.errorHandler.HandleStatus(w, r, http.StatusUnauthorized, "Unauthorized")
		return
	}

	sessionID := uuid.New().String()

	cmd := commands.StartSessionCommand{
		SessionID: sessionID,
		UserID:    userID,
	}

	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusCreated, StartSessionResponse{
		SessionID: sessionID,
		Message:   "Session started",
	})
}

// ListSessions handles GET /sessions
func (h *SessionHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.GetUserID(r.Context())
	if !ok {
		h.errorHandler.HandleStatus(w, r, http.StatusUnauthorized, "Unauthorized")
		return
	}

	params := common.ExtractPaginationParams(r)

	result, err := h.queryBus.Ask(r.Context(), queries.ListSessionsQuery{
		UserID:   userID,
		Page:     params.Page,
		PageSize: params.PageSize,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, result)
}

// DeleteSession handles DELETE /sessions/{sessionID}
func (h *SessionHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.GetUserID(r.Context())
	if !ok {
		h.errorHandler.HandleStatus(w, r, http.StatusUnauthorized, "Unauthorized")
		return
	}

	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		h.errorHandler.HandleStatus(w, r, http.StatusBadRequest, "Session ID is required")
		return
	}

	cmd := commands.DeleteSessionCommand{
		SessionID: sessionID,
		UserID:    userID,
	}

	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetSession handles GET /sessions/{sessionID}
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		h.errorHandler.HandleStatus(w, r, http.StatusBadRequest, "Session ID is required")
		return
	}

	result, err := h.queryBus.Ask(r.Context(), queries.GetSessionQuery{SessionID: sessionID})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, result)
}

// RecordAnswer handles POST /sessions/{sessionID}/answers. The response
// carries the questions now visible for the answered domain, so a client
// can re-render without a second round trip.
func (h *SessionHandler) RecordAnswer(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		h.errorHandler.HandleStatus(w, r, http.StatusBadRequest, "Session ID is required")
		return
	}

	var req RecordAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errorHandler.HandleStatus(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}

	cmd := commands.RecordAnswerCommand{
		SessionID: sessionID,
		Domain:    req.Domain,
		FieldRef:  req.FieldRef,
		Values:    req.Values,
	}

	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	result, err := h.queryBus.Ask(r.Context(), queries.GetVisibleQuestionsQuery{
		SessionID: sessionID,
		Domain:    req.Domain,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, result)
}

// ResetSession handles POST /sessions/{sessionID}/reset
func (h *SessionHandler) ResetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		h.errorHandler.HandleStatus(w, r, http.StatusBadRequest, "Session ID is required")
		return
	}

	var req ResetSessionRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.errorHandler.HandleStatus(w, r, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	cmd := commands.ResetSessionCommand{
		SessionID: sessionID,
		Domain:    req.Domain,
	}

	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	result, err := h.queryBus.Ask(r.Context(), queries.GetSessionQuery{SessionID: sessionID})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, result)
}

// GetVisibleQuestions handles GET /sessions/{sessionID}/questions?domain=...
func (h *SessionHandler) GetVisibleQuestions(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		h.errorHandler.HandleStatus(w, r, http.StatusBadRequest, "Session ID is required")
		return
	}

	domain := r.URL.Query().Get("domain")
	if domain == "" {
		h.errorHandler.HandleStatus(w, r, http.StatusBadRequest, "Domain query parameter is required")
		return
	}

	result, err := h.queryBus.Ask(r.Context(), queries.GetVisibleQuestionsQuery{
		SessionID: sessionID,
		Domain:    domain,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, result)
}

// GetSessionHistory handles GET /sessions/{sessionID}/history
func (h *SessionHandler) GetSessionHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		h.errorHandler.HandleStatus(w, r, http.StatusBadRequest, "Session ID is required")
		return
	}

	result, err := h.queryBus.Ask(r.Context(), queries.GetSessionHistoryQuery{SessionID: sessionID})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, result)
}
