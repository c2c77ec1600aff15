package queries

import (
	"context"

	"referral-backend/application/ports"
	"referral-backend/domain/core/valueobjects"
	"referral-backend/domain/services"
	appErrors "referral-backend/pkg/errors"
)

// GetAuditReportQuery represents a query for the static analysis of one
// domain's rule graph, or of every domain when Domain is empty
type GetAuditReportQuery struct {
	Domain string `json:"domain,omitempty"`
}

// Validate validates the query
func (q GetAuditReportQuery) Validate() error {
	return nil
}

// AuditResult represents the query result
type AuditResult struct {
	Reports   []*services.AuditReport `json:"reports"`
	Failed    []FailedDomainDTO       `json:"failed,omitempty"`
	TableHash string                  `json:"table_hash"`
}

// Clean reports whether every audited domain came back without findings
func (r *AuditResult) Clean() bool {
	if len(r.Failed) > 0 {
		return false
	}
	for _, report := range r.Reports {
		if !report.Clean() {
			return false
		}
	}
	return true
}

// GetAuditReportHandler handles the GetAuditReportQuery
type GetAuditReportHandler struct {
	tables  ports.RuleTableProvider
	auditor *services.RuleAuditor
	cache   ports.Cache
}

// NewGetAuditReportHandler creates a new handler instance
func NewGetAuditReportHandler(
	tables ports.RuleTableProvider,
	auditor *services.RuleAuditor,
	cache ports.Cache,
) *GetAuditReportHandler {
	return &GetAuditReportHandler{
		tables:  tables,
		auditor: auditor,
		cache:   cache,
	}
}

// Handle executes the get audit report query
func (h *GetAuditReportHandler) Handle(ctx context.Context, query GetAuditReportQuery) (*AuditResult, error) {
	table, err := h.tables.Table(ctx)
	if err != nil {
		return nil, err
	}

	cacheKey := "audit:" + table.Hash() + ":" + query.Domain
	if cached, found := h.cache.Get(ctx, cacheKey); found {
		if result, ok := cached.(*AuditResult); ok {
			return result, nil
		}
	}

	result := &AuditResult{TableHash: table.Hash()}

	if query.Domain != "" {
		domain, err := valueobjects.NewDomainCode(query.Domain)
		if err != nil {
			return nil, appErrors.NewValidationError(err.Error())
		}
		rs, ok := table.Get(domain)
		if !ok {
			if compileErr := table.Failure(domain.String()); compileErr != nil {
				result.Failed = append(result.Failed, FailedDomainDTO{
					Code:  domain.String(),
					Error: compileErr.Error(),
				})
				return result, nil
			}
			return nil, appErrors.NewNotFoundError("domain " + domain.String())
		}
		result.Reports = append(result.Reports, h.auditor.Audit(rs))
	} else {
		for _, code := range table.Domains() {
			if rs, ok := table.Get(code); ok {
				result.Reports = append(result.Reports, h.auditor.Audit(rs))
			}
		}
		for code, failure := range table.Failures() {
			result.Failed = append(result.Failed, FailedDomainDTO{
				Code:  code,
				Error: failure.Error(),
			})
		}
	}

	h.cache.Set(ctx, cacheKey, result, 3600)

	return result, nil
}
