// Package services provides the domain services of the referral form engine:
// rule-table compilation, visibility evaluation, cascade invalidation and
// rule auditing. All of them are pure domain logic with no infrastructure
// dependencies beyond logging.
package services

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"referral-backend/domain/core/aggregates"
	"referral-backend/domain/core/entities"
	"referral-backend/domain/core/valueobjects"
	"referral-backend/pkg/errors"
)

// QuestionRow is one raw question record as delivered by a rule-table
// loader. Cells are untyped strings; the compiler validates and converts
// them into domain entities.
type QuestionRow struct {
	Domain     string `json:"domain" validate:"required"`
	FieldRef   string `json:"field_ref" validate:"required"`
	Text       string `json:"text"`
	AnswerType string `json:"answer_type" validate:"required"`
	Options    string `json:"options"`
}

// RuleRow is one raw rule record: (SourceFieldRef, AnswerValue) leads to
// TargetFieldRef. TargetFieldRef may be empty for terminal answers.
type RuleRow struct {
	Domain         string `json:"domain" validate:"required"`
	SourceFieldRef string `json:"source_field_ref" validate:"required"`
	AnswerValue    string `json:"answer_value" validate:"required"`
	TargetFieldRef string `json:"target_field_ref"`
}

// CompiledTable is the result of compiling a whole rule table: one RuleSet
// per domain that compiled cleanly, plus the compile failure of every domain
// that did not. Failures are isolated per domain so a malformed section never
// takes down the rest of the form.
type CompiledTable struct {
	rulesets map[valueobjects.DomainCode]*aggregates.RuleSet
	failures map[string]error
	hash     string
}

// Get returns the compiled graph of a domain
func (t *CompiledTable) Get(domain valueobjects.DomainCode) (*aggregates.RuleSet, bool) {
	rs, ok := t.rulesets[domain]
	return rs, ok
}

// Domains returns the codes of every successfully compiled domain, sorted
func (t *CompiledTable) Domains() []valueobjects.DomainCode {
	out := make([]valueobjects.DomainCode, 0, len(t.rulesets))
	for code := range t.rulesets {
		out = append(out, code)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// Failure returns the compile error of a domain, or nil
func (t *CompiledTable) Failure(domain string) error {
	return t.failures[domain]
}

// Failures returns every per-domain compile failure keyed by domain code
func (t *CompiledTable) Failures() map[string]error {
	out := make(map[string]error, len(t.failures))
	for k, v := range t.failures {
		out[k] = v
	}
	return out
}

// Hash returns the content hash of the source rows
func (t *CompiledTable) Hash() string {
	return t.hash
}

// QuestionCount returns the total number of questions across domains
func (t *CompiledTable) QuestionCount() int {
	n := 0
	for _, rs := range t.rulesets {
		n += rs.QuestionCount()
	}
	return n
}

// RuleCount returns the total number of rules across domains
func (t *CompiledTable) RuleCount() int {
	n := 0
	for _, rs := range t.rulesets {
		n += rs.RuleCount()
	}
	return n
}

// Compiler turns raw rule-table rows into per-domain RuleSets. Compilation
// is a pure function of its input, so results are memoized by a content hash
// of the rows; reloading an unchanged table reuses the previous graphs.
type Compiler struct {
	logger *zap.Logger

	mu   sync.Mutex
	memo map[string]*CompiledTable
}

// NewCompiler creates a compiler
func NewCompiler(logger *zap.Logger) *Compiler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Compiler{
		logger: logger,
		memo:   make(map[string]*CompiledTable),
	}
}

// Compile partitions the rows by normalized domain and builds one RuleSet
// per domain. A question row missing its field ref or answer type fails its
// whole domain with a malformed-rule error; rules pointing at undefined
// questions compile fine and are the auditor's concern.
func (c *Compiler) Compile(questions []QuestionRow, rules []RuleRow) *CompiledTable {
	hash := contentHash(questions, rules)

	c.mu.Lock()
	if cached, ok := c.memo[hash]; ok {
		c.mu.Unlock()
		return cached
	}
	c.mu.Unlock()

	questionsByDomain := make(map[valueobjects.DomainCode][]QuestionRow)
	rulesByDomain := make(map[valueobjects.DomainCode][]RuleRow)
	failures := make(map[string]error)

	for _, row := range questions {
		domain, err := valueobjects.NewDomainCode(row.Domain)
		if err != nil {
			failures[row.Domain] = errors.NewMalformedRuleError(row.Domain, row.FieldRef, "question row has no domain")
			continue
		}
		questionsByDomain[domain] = append(questionsByDomain[domain], row)
	}
	for _, row := range rules {
		domain, err := valueobjects.NewDomainCode(row.Domain)
		if err != nil {
			failures[row.Domain] = errors.NewMalformedRuleError(row.Domain, row.SourceFieldRef, "rule row has no domain")
			continue
		}
		rulesByDomain[domain] = append(rulesByDomain[domain], row)
	}

	// Domains that only appear in rule rows still get a (question-less)
	// graph: every rule in them is dangling, which the auditor reports.
	for domain := range rulesByDomain {
		if _, ok := questionsByDomain[domain]; !ok {
			questionsByDomain[domain] = nil
		}
	}

	rulesets := make(map[valueobjects.DomainCode]*aggregates.RuleSet, len(questionsByDomain))
	for domain, rows := range questionsByDomain {
		rs, err := c.compileDomain(domain, rows, rulesByDomain[domain])
		if err != nil {
			c.logger.Warn("Domain failed to compile",
				zap.String("domain", domain.String()),
				zap.Error(err),
			)
			failures[domain.String()] = err
			continue
		}
		rulesets[domain] = rs
	}

	table := &CompiledTable{
		rulesets: rulesets,
		failures: failures,
		hash:     hash,
	}

	c.logger.Info("Rule table compiled",
		zap.Int("domains", len(rulesets)),
		zap.Int("failedDomains", len(failures)),
		zap.Int("questions", table.QuestionCount()),
		zap.Int("rules", table.RuleCount()),
		zap.String("hash", hash[:12]),
	)

	c.mu.Lock()
	c.memo[hash] = table
	c.mu.Unlock()

	return table
}

// compileDomain builds one domain's graph, converting rows to entities
func (c *Compiler) compileDomain(
	domain valueobjects.DomainCode,
	questionRows []QuestionRow,
	ruleRows []RuleRow,
) (*aggregates.RuleSet, error) {
	questions := make([]*entities.Question, 0, len(questionRows))
	for _, row := range questionRows {
		fieldRef, err := valueobjects.NewFieldRef(row.FieldRef)
		if err != nil {
			return nil, errors.NewMalformedRuleError(domain.String(), row.FieldRef, "question row is missing field_ref")
		}
		answerType, err := valueobjects.ParseAnswerType(row.AnswerType)
		if err != nil {
			return nil, errors.NewMalformedRuleError(domain.String(), row.FieldRef, err.Error())
		}
		question, err := entities.NewQuestion(domain, fieldRef, row.Text, answerType, row.Options)
		if err != nil {
			return nil, errors.NewMalformedRuleError(domain.String(), row.FieldRef, err.Error())
		}
		questions = append(questions, question)
	}

	rules := make([]*entities.Rule, 0, len(ruleRows))
	for _, row := range ruleRows {
		source, err := valueobjects.NewFieldRef(row.SourceFieldRef)
		if err != nil {
			return nil, errors.NewMalformedRuleError(domain.String(), row.SourceFieldRef, "rule row is missing source_field_ref")
		}
		rule, err := entities.NewRule(domain, source, row.AnswerValue, row.TargetFieldRef)
		if err != nil {
			return nil, errors.NewMalformedRuleError(domain.String(), row.SourceFieldRef, err.Error())
		}
		rules = append(rules, rule)
	}

	rs, err := aggregates.NewRuleSet(domain, questions, rules)
	if err != nil {
		return nil, errors.NewMalformedRuleError(domain.String(), "", err.Error())
	}
	return rs, nil
}

// contentHash fingerprints the source rows so recompiles of an unchanged
// table hit the memo
func contentHash(questions []QuestionRow, rules []RuleRow) string {
	h := sha256.New()
	for _, q := range questions {
		fmt.Fprintf(h, "q|%s|%s|%s|%s|%s\n", q.Domain, q.FieldRef, q.Text, q.AnswerType, q.Options)
	}
	for _, r := range rules {
		fmt.Fprintf(h, "r|%s|%s|%s|%s\n", r.Domain, r.SourceFieldRef, r.AnswerValue, r.TargetFieldRef)
	}
	return hex.EncodeToString(h.Sum(nil))
}
