package handlers

import (
	"net/http"
	"strconv"

	"referral-backend/application/queries"
	querybus "referral-backend/application/queries/bus"
	"referral-backend/pkg/common"
	appErrors "referral-backend/pkg/errors"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// DomainHandler handles the rule table domain endpoints
type DomainHandler struct {
	queryBus     *querybus.QueryBus
	errorHandler *appErrors.ErrorHandler
	logger       *zap.Logger
}

// NewDomainHandler creates a new domain handler
func NewDomainHandler(
	queryBus *querybus.QueryBus,
	errorHandler *appErrors.ErrorHandler,
	logger *zap.Logger,
) *DomainHandler {
	return &DomainHandler{
		queryBus:     queryBus,
		errorHandler: errorHandler,
		logger:       logger,
	}
}

// ListDomains handles GET /domains
func (h *DomainHandler) ListDomains(w http.ResponseWriter, r *http.Request) {
	result, err := h.queryBus.Ask(r.Context(), queries.ListDomainsQuery{})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, result)
}

// GetRuleMap handles GET /domains/{domain}/rulemap
func (h *DomainHandler) GetRuleMap(w http.ResponseWriter, r *http.Request) {
	domain := chi.URLParam(r, "domain")
	if domain == "" {
		h.errorHandler.HandleStatus(w, r, http.StatusBadRequest, "Domain is required")
		return
	}

	maxDepth := 0
	if raw := r.URL.Query().Get("max_depth"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			h.errorHandler.HandleStatus(w, r, http.StatusBadRequest, "Invalid max_depth parameter")
			return
		}
		maxDepth = parsed
	}

	result, err := h.queryBus.Ask(r.Context(), queries.GetRuleMapQuery{
		Domain:   domain,
		MaxDepth: maxDepth,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, result)
}
