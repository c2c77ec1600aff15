package aggregates

import (
	"errors"
	"sort"

	"referral-backend/domain/core/entities"
	"referral-backend/domain/core/valueobjects"
)

// ChildEdge is one outgoing branch of a question: giving AnswerValue opens
// Target. Target is the zero FieldRef for terminal answers.
type ChildEdge struct {
	AnswerValue string
	Target      valueobjects.FieldRef
}

// ParentEdge is one incoming branch of a question: it becomes reachable when
// Parent holds RequiredAnswer.
type ParentEdge struct {
	Parent         valueobjects.FieldRef
	RequiredAnswer string
}

// RuleSet is the compiled graph for a single domain. It is built once from
// the domain's slice of the rule table and shared read-only across every
// active session; all accessors return copies so the indexes can never be
// mutated after compilation.
type RuleSet struct {
	domain      valueobjects.DomainCode
	questions   map[valueobjects.FieldRef]*entities.Question
	order       []valueobjects.FieldRef
	rules       []*entities.Rule
	childIndex  map[valueobjects.FieldRef][]ChildEdge
	parentIndex map[valueobjects.FieldRef][]ParentEdge
	entryPoints []valueobjects.FieldRef
}

// NewRuleSet compiles one domain's questions and rules into the three
// derived indexes in a single pass over each relation. Duplicate field refs
// within the domain are rejected; rules whose target has no matching
// question are accepted here and surfaced by the auditor instead, so a
// still-valid subset of the form stays usable.
func NewRuleSet(
	domain valueobjects.DomainCode,
	questions []*entities.Question,
	rules []*entities.Rule,
) (*RuleSet, error) {
	if domain.IsZero() {
		return nil, errors.New("ruleset domain is required")
	}

	rs := &RuleSet{
		domain:      domain,
		questions:   make(map[valueobjects.FieldRef]*entities.Question, len(questions)),
		order:       make([]valueobjects.FieldRef, 0, len(questions)),
		rules:       make([]*entities.Rule, 0, len(rules)),
		childIndex:  make(map[valueobjects.FieldRef][]ChildEdge),
		parentIndex: make(map[valueobjects.FieldRef][]ParentEdge),
	}

	for _, q := range questions {
		if q == nil {
			return nil, errors.New("question cannot be nil")
		}
		if !q.Domain().Equals(domain) {
			return nil, errors.New("question belongs to another domain: " + q.Domain().String())
		}
		if _, exists := rs.questions[q.FieldRef()]; exists {
			return nil, errors.New("duplicate field ref in domain: " + q.FieldRef().String())
		}
		rs.questions[q.FieldRef()] = q
		rs.order = append(rs.order, q.FieldRef())
	}

	targeted := make(map[valueobjects.FieldRef]bool)
	for _, r := range rules {
		if r == nil {
			return nil, errors.New("rule cannot be nil")
		}
		if !r.Domain().Equals(domain) {
			return nil, errors.New("rule belongs to another domain: " + r.Domain().String())
		}
		rs.rules = append(rs.rules, r)
		rs.childIndex[r.Source()] = append(rs.childIndex[r.Source()], ChildEdge{
			AnswerValue: r.AnswerValue(),
			Target:      r.Target(),
		})
		if !r.IsTerminal() {
			targeted[r.Target()] = true
			rs.parentIndex[r.Target()] = append(rs.parentIndex[r.Target()], ParentEdge{
				Parent:         r.Source(),
				RequiredAnswer: r.AnswerValue(),
			})
		}
	}

	// Entry points: defined questions that no rule targets.
	for _, ref := range rs.order {
		if !targeted[ref] {
			rs.entryPoints = append(rs.entryPoints, ref)
		}
	}
	sort.Slice(rs.entryPoints, func(i, j int) bool {
		return rs.entryPoints[i].String() < rs.entryPoints[j].String()
	})

	return rs, nil
}

// Domain returns the domain this graph belongs to
func (rs *RuleSet) Domain() valueobjects.DomainCode {
	return rs.domain
}

// Question retrieves a question by field ref
func (rs *RuleSet) Question(ref valueobjects.FieldRef) (*entities.Question, bool) {
	q, ok := rs.questions[ref]
	return q, ok
}

// HasQuestion checks if a field ref is defined in this domain
func (rs *RuleSet) HasQuestion(ref valueobjects.FieldRef) bool {
	_, ok := rs.questions[ref]
	return ok
}

// Questions returns all questions in table order
func (rs *RuleSet) Questions() []*entities.Question {
	out := make([]*entities.Question, 0, len(rs.order))
	for _, ref := range rs.order {
		out = append(out, rs.questions[ref])
	}
	return out
}

// Rules returns all rules of the domain in table order
func (rs *RuleSet) Rules() []*entities.Rule {
	out := make([]*entities.Rule, len(rs.rules))
	copy(out, rs.rules)
	return out
}

// Children returns every outgoing branch of a question
func (rs *RuleSet) Children(ref valueobjects.FieldRef) []ChildEdge {
	edges := rs.childIndex[ref]
	if len(edges) == 0 {
		return nil
	}
	out := make([]ChildEdge, len(edges))
	copy(out, edges)
	return out
}

// Parents returns every incoming branch of a question. An empty result
// marks the question as a root.
func (rs *RuleSet) Parents(ref valueobjects.FieldRef) []ParentEdge {
	edges := rs.parentIndex[ref]
	if len(edges) == 0 {
		return nil
	}
	out := make([]ParentEdge, len(edges))
	copy(out, edges)
	return out
}

// NextFields returns the follow-up questions opened by answering ref with
// the given value. Ambiguous rules fan out to every matching target;
// terminal branches contribute nothing.
func (rs *RuleSet) NextFields(ref valueobjects.FieldRef, answer valueobjects.AnswerValue) []valueobjects.FieldRef {
	if answer.IsZero() {
		return nil
	}
	var next []valueobjects.FieldRef
	for _, edge := range rs.childIndex[ref] {
		if edge.Target.IsZero() {
			continue
		}
		if answer.Matches(edge.AnswerValue) {
			next = append(next, edge.Target)
		}
	}
	return next
}

// Descendants returns the targets of all outgoing branches of ref,
// regardless of answer value. Used by the cascade walk: once an ancestor
// changes, every downstream answer is suspect, not only the branch the
// session is currently on.
func (rs *RuleSet) Descendants(ref valueobjects.FieldRef) []valueobjects.FieldRef {
	var out []valueobjects.FieldRef
	for _, edge := range rs.childIndex[ref] {
		if !edge.Target.IsZero() {
			out = append(out, edge.Target)
		}
	}
	return out
}

// Options returns the option list of a question, or nil when the field is
// unknown or carries none
func (rs *RuleSet) Options(ref valueobjects.FieldRef) []string {
	q, ok := rs.questions[ref]
	if !ok {
		return nil
	}
	return q.Options()
}

// EntryPoints returns the domain's root questions, sorted by field ref
func (rs *RuleSet) EntryPoints() []valueobjects.FieldRef {
	out := make([]valueobjects.FieldRef, len(rs.entryPoints))
	copy(out, rs.entryPoints)
	return out
}

// RootQuestions returns the root questions in table order, for rendering
func (rs *RuleSet) RootQuestions() []valueobjects.FieldRef {
	roots := make(map[valueobjects.FieldRef]bool, len(rs.entryPoints))
	for _, ref := range rs.entryPoints {
		roots[ref] = true
	}
	var out []valueobjects.FieldRef
	for _, ref := range rs.order {
		if roots[ref] {
			out = append(out, ref)
		}
	}
	return out
}

// QuestionCount returns the number of defined questions
func (rs *RuleSet) QuestionCount() int {
	return len(rs.questions)
}

// RuleCount returns the number of rules
func (rs *RuleSet) RuleCount() int {
	return len(rs.rules)
}
