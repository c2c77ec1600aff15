package services

import (
	"sort"

	"referral-backend/domain/core/aggregates"
	"referral-backend/domain/core/valueobjects"
)

// AmbiguousRule names a (question, answer) pair with more than one distinct
// target across the rule table
type AmbiguousRule struct {
	FieldRef    string   `json:"field_ref"`
	AnswerValue string   `json:"answer_value"`
	Targets     []string `json:"targets"`
}

// AuditReport is the static analysis of one compiled domain
type AuditReport struct {
	Domain          string          `json:"domain"`
	QuestionCount   int             `json:"question_count"`
	RuleCount       int             `json:"rule_count"`
	EntryPoints     []string        `json:"entry_points"`
	DanglingTargets []string        `json:"dangling_targets"`
	AmbiguousRules  []AmbiguousRule `json:"ambiguous_rules"`
}

// Clean reports whether the audit found no referential or branching issues
func (r *AuditReport) Clean() bool {
	return len(r.DanglingTargets) == 0 && len(r.AmbiguousRules) == 0
}

// RuleAuditor runs read-only structural checks over a compiled domain
// graph. The three checks are independent, set-valued and each a single
// pass over the domain's questions or rules.
type RuleAuditor struct{}

// NewRuleAuditor creates a rule auditor
func NewRuleAuditor() *RuleAuditor {
	return &RuleAuditor{}
}

// EntryPoints returns the questions never appearing as a rule target: the
// graph's roots, shown without any answer precondition
func (a *RuleAuditor) EntryPoints(rs *aggregates.RuleSet) []valueobjects.FieldRef {
	return rs.EntryPoints()
}

// DanglingTargets returns rule targets that match no defined question.
// A dangling target degrades the form but does not break it.
func (a *RuleAuditor) DanglingTargets(rs *aggregates.RuleSet) []valueobjects.FieldRef {
	seen := make(map[valueobjects.FieldRef]bool)
	var dangling []valueobjects.FieldRef
	for _, rule := range rs.Rules() {
		target := rule.Target()
		if target.IsZero() || rs.HasQuestion(target) || seen[target] {
			continue
		}
		seen[target] = true
		dangling = append(dangling, target)
	}
	sort.Slice(dangling, func(i, j int) bool {
		return dangling[i].String() < dangling[j].String()
	})
	return dangling
}

// AmbiguousRules returns every (source, answer) pair mapped to more than
// one distinct target
func (a *RuleAuditor) AmbiguousRules(rs *aggregates.RuleSet) []AmbiguousRule {
	type pair struct {
		source valueobjects.FieldRef
		answer string
	}

	targets := make(map[pair]map[string]bool)
	for _, rule := range rs.Rules() {
		if rule.IsTerminal() {
			continue
		}
		key := pair{source: rule.Source(), answer: rule.AnswerValue()}
		if targets[key] == nil {
			targets[key] = make(map[string]bool)
		}
		targets[key][rule.Target().String()] = true
	}

	var ambiguous []AmbiguousRule
	for key, distinct := range targets {
		if len(distinct) < 2 {
			continue
		}
		entry := AmbiguousRule{
			FieldRef:    key.source.String(),
			AnswerValue: key.answer,
		}
		for target := range distinct {
			entry.Targets = append(entry.Targets, target)
		}
		sort.Strings(entry.Targets)
		ambiguous = append(ambiguous, entry)
	}
	sort.Slice(ambiguous, func(i, j int) bool {
		if ambiguous[i].FieldRef != ambiguous[j].FieldRef {
			return ambiguous[i].FieldRef < ambiguous[j].FieldRef
		}
		return ambiguous[i].AnswerValue < ambiguous[j].AnswerValue
	})
	return ambiguous
}

// Audit combines the three checks into one report
func (a *RuleAuditor) Audit(rs *aggregates.RuleSet) *AuditReport {
	report := &AuditReport{
		Domain:         rs.Domain().String(),
		QuestionCount:  rs.QuestionCount(),
		RuleCount:      rs.RuleCount(),
		AmbiguousRules: a.AmbiguousRules(rs),
	}
	for _, ref := range a.EntryPoints(rs) {
		report.EntryPoints = append(report.EntryPoints, ref.String())
	}
	for _, ref := range a.DanglingTargets(rs) {
		report.DanglingTargets = append(report.DanglingTargets, ref.String())
	}
	return report
}
