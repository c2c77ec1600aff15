package queries

import (
	"context"

	"referral-backend/application/ports"
)

// ListDomainsQuery represents a query for every domain the compiled table
// knows about, including the ones that failed to compile
type ListDomainsQuery struct{}

// Validate validates the query
func (q ListDomainsQuery) Validate() error {
	return nil
}

// DomainDTO is a data transfer object for one domain
type DomainDTO struct {
	Code          string `json:"code"`
	Label         string `json:"label"`
	QuestionCount int    `json:"question_count"`
	RuleCount     int    `json:"rule_count"`
	EntryPoints   int    `json:"entry_points"`
}

// FailedDomainDTO reports a domain whose table slice did not compile
type FailedDomainDTO struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

// DomainsResult represents the query result
type DomainsResult struct {
	Domains   []DomainDTO       `json:"domains"`
	Failed    []FailedDomainDTO `json:"failed,omitempty"`
	TableHash string            `json:"table_hash"`
}

// ListDomainsHandler handles the ListDomainsQuery
type ListDomainsHandler struct {
	tables ports.RuleTableProvider
	cache  ports.Cache
}

// NewListDomainsHandler creates a new handler instance
func NewListDomainsHandler(tables ports.RuleTableProvider, cache ports.Cache) *ListDomainsHandler {
	return &ListDomainsHandler{tables: tables, cache: cache}
}

// Handle executes the list domains query
func (h *ListDomainsHandler) Handle(ctx context.Context, query ListDomainsQuery) (*DomainsResult, error) {
	table, err := h.tables.Table(ctx)
	if err != nil {
		return nil, err
	}

	cacheKey := "domains:" + table.Hash()
	if cached, found := h.cache.Get(ctx, cacheKey); found {
		if result, ok := cached.(*DomainsResult); ok {
			return result, nil
		}
	}

	result := &DomainsResult{
		Domains:   make([]DomainDTO, 0),
		TableHash: table.Hash(),
	}
	for _, code := range table.Domains() {
		rs, ok := table.Get(code)
		if !ok {
			continue
		}
		result.Domains = append(result.Domains, DomainDTO{
			Code:          code.String(),
			Label:         code.Label(),
			QuestionCount: rs.QuestionCount(),
			RuleCount:     rs.RuleCount(),
			EntryPoints:   len(rs.EntryPoints()),
		})
	}
	for code, failure := range table.Failures() {
		result.Failed = append(result.Failed, FailedDomainDTO{
			Code:  code,
			Error: failure.Error(),
		})
	}

	// Compiled tables are immutable, keyed by content hash, so a long TTL
	// is safe.
	h.cache.Set(ctx, cacheKey, result, 3600)

	return result, nil
}
