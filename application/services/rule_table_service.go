package services

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"referral-backend/application/ports"
	domainservices "referral-backend/domain/services"
)

// RuleTableService loads the raw rule table through a RuleTableSource and
// hands it to the compiler. It keeps the last compiled table so request
// paths never re-read the source; the compiler's own memoization makes a
// re-read of an unchanged table a hash lookup.
type RuleTableService struct {
	source   ports.RuleTableSource
	compiler *domainservices.Compiler
	logger   *zap.Logger

	mu    sync.RWMutex
	table *domainservices.CompiledTable
}

// NewRuleTableService creates a rule table service
func NewRuleTableService(
	source ports.RuleTableSource,
	compiler *domainservices.Compiler,
	logger *zap.Logger,
) *RuleTableService {
	return &RuleTableService{
		source:   source,
		compiler: compiler,
		logger:   logger,
	}
}

// Table returns the compiled table, compiling it on first use
func (s *RuleTableService) Table(ctx context.Context) (*domainservices.CompiledTable, error) {
	s.mu.RLock()
	table := s.table
	s.mu.RUnlock()
	if table != nil {
		return table, nil
	}
	return s.Refresh(ctx)
}

// Refresh forces a reload of the underlying table
func (s *RuleTableService) Refresh(ctx context.Context) (*domainservices.CompiledTable, error) {
	questions, err := s.source.LoadQuestions(ctx)
	if err != nil {
		return nil, err
	}
	rules, err := s.source.LoadRules(ctx)
	if err != nil {
		return nil, err
	}

	table := s.compiler.Compile(questions, rules)

	s.mu.Lock()
	s.table = table
	s.mu.Unlock()

	s.logger.Info("Rule table loaded",
		zap.Int("question_rows", len(questions)),
		zap.Int("rule_rows", len(rules)),
		zap.Int("domains", len(table.Domains())),
		zap.Int("failed_domains", len(table.Failures())),
	)

	return table, nil
}
