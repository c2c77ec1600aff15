package queries

import (
	"context"
	"errors"

	"referral-backend/application/ports"
	"referral-backend/domain/core/valueobjects"
	"referral-backend/domain/services"
	appErrors "referral-backend/pkg/errors"
)

// GetRuleMapQuery represents a query for the indented text rendering of a
// domain's rule graph
type GetRuleMapQuery struct {
	Domain   string `json:"domain"`
	MaxDepth int    `json:"max_depth,omitempty"`
}

// Validate validates the query
func (q GetRuleMapQuery) Validate() error {
	if q.Domain == "" {
		return errors.New("domain is required")
	}
	if q.MaxDepth < 0 {
		return errors.New("max depth cannot be negative")
	}
	return nil
}

// RuleMapResult represents the query result
type RuleMapResult struct {
	Domain  string `json:"domain"`
	RuleMap string `json:"rule_map"`
}

// GetRuleMapHandler handles the GetRuleMapQuery
type GetRuleMapHandler struct {
	tables ports.RuleTableProvider
}

// NewGetRuleMapHandler creates a new handler instance
func NewGetRuleMapHandler(tables ports.RuleTableProvider) *GetRuleMapHandler {
	return &GetRuleMapHandler{tables: tables}
}

// Handle executes the get rule map query
func (h *GetRuleMapHandler) Handle(ctx context.Context, query GetRuleMapQuery) (*RuleMapResult, error) {
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

	renderer := services.NewRuleMapRenderer(query.MaxDepth)

	return &RuleMapResult{
		Domain:  domain.String(),
		RuleMap: renderer.Render(rs),
	}, nil
}
