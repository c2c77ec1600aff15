package handlers

import (
	"net/http"

	"referral-backend/application/commands"
	"referral-backend/application/commands/bus"
	"referral-backend/application/queries"
	querybus "referral-backend/application/queries/bus"
	"referral-backend/pkg/common"
	appErrors "referral-backend/pkg/errors"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// AuditHandler handles rule table auditing and refresh endpoints
type AuditHandler struct {
	commandBus   *bus.CommandBus
	queryBus     *querybus.QueryBus
	errorHandler *appErrors.ErrorHandler
	logger       *zap.Logger
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	errorHandler *appErrors.ErrorHandler,
	logger *zap.Logger,
) *AuditHandler {
	return &AuditHandler{
		commandBus:   commandBus,
		queryBus:     queryBus,
		errorHandler: errorHandler,
		logger:       logger,
	}
}

// GetAuditReport handles GET /audit and GET /audit/{domain}
func (h *AuditHandler) GetAuditReport(w http.ResponseWriter, r *http.Request) {
	query := queries.GetAuditReportQuery{
		Domain: chi.URLParam(r, "domain"),
	}

	result, err := h.queryBus.Ask(r.Context(), query)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, result)
}

// RefreshRuleTable handles POST /ruletable/refresh. The rule table is
// reloaded from its source and recompiled; active sessions keep whatever
// answers they already hold.
func (h *AuditHandler) RefreshRuleTable(w http.ResponseWriter, r *http.Request) {
	if err := h.commandBus.Send(r.Context(), commands.RefreshRuleTableCommand{}); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	result, err := h.queryBus.Ask(r.Context(), queries.ListDomainsQuery{})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, result)
}
