package services

import (
	"go.uber.org/zap"

	"referral-backend/domain/core/aggregates"
	"referral-backend/domain/core/valueobjects"
)

// VisibilityEvaluator decides which questions of a domain are currently
// reachable given a session's answers. It only ever reads the session;
// mutation stays with the record-answer flow.
type VisibilityEvaluator struct {
	logger *zap.Logger
}

// NewVisibilityEvaluator creates a visibility evaluator
func NewVisibilityEvaluator(logger *zap.Logger) *VisibilityEvaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VisibilityEvaluator{logger: logger}
}

// IsVisible reports whether a single question is currently visible.
// Parentless questions are roots and always visible. A question with
// parents is visible when at least one parent edge is satisfied: reachable
// through several branches means any one of them suffices.
func (e *VisibilityEvaluator) IsVisible(
	rs *aggregates.RuleSet,
	session *aggregates.Session,
	field valueobjects.FieldRef,
) bool {
	if !rs.HasQuestion(field) {
		return false
	}
	parents := rs.Parents(field)
	if len(parents) == 0 {
		return true
	}
	for _, edge := range parents {
		if session.Get(rs.Domain(), edge.Parent).Matches(edge.RequiredAnswer) {
			return true
		}
	}
	return false
}

// VisibleQuestions walks the reachable subtree from the domain's root
// questions and returns the visible field refs in display order. The walk
// follows only branches matched by the session's current answers, fans out
// across ambiguous targets, skips dangling targets, and is bounded by a
// visited set so malformed cyclic tables cannot loop.
func (e *VisibilityEvaluator) VisibleQuestions(
	rs *aggregates.RuleSet,
	session *aggregates.Session,
) []valueobjects.FieldRef {
	domain := rs.Domain()
	visited := make(map[valueobjects.FieldRef]bool)
	var visible []valueobjects.FieldRef

	// Explicit work-list, depth first: children are prepended so follow-up
	// questions render directly beneath their parent, as the form does.
	var walk func(ref valueobjects.FieldRef)
	walk = func(ref valueobjects.FieldRef) {
		stack := []valueobjects.FieldRef{ref}
		for len(stack) > 0 {
			current := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			if visited[current] {
				e.logger.Debug("Visibility walk revisited a question",
					zap.String("domain", domain.String()),
					zap.String("fieldRef", current.String()),
				)
				continue
			}
			visited[current] = true

			if !rs.HasQuestion(current) {
				// Dangling rule target: nothing to show. The auditor
				// reports it; the walk just moves on.
				e.logger.Debug("Rule points to missing question",
					zap.String("domain", domain.String()),
					zap.String("fieldRef", current.String()),
				)
				continue
			}

			visible = append(visible, current)

			next := rs.NextFields(current, session.Get(domain, current))
			for i := len(next) - 1; i >= 0; i-- {
				if !visited[next[i]] {
					stack = append(stack, next[i])
				}
			}
		}
	}

	for _, root := range rs.RootQuestions() {
		walk(root)
	}

	return visible
}

// VisibleDelta returns the fields present in after but not in before. The
// record-answer flow uses it to report which questions an answer change
// opened, instead of re-sending the whole visible set.
func VisibleDelta(before, after []valueobjects.FieldRef) []valueobjects.FieldRef {
	seen := make(map[valueobjects.FieldRef]bool, len(before))
	for _, ref := range before {
		seen[ref] = true
	}
	var delta []valueobjects.FieldRef
	for _, ref := range after {
		if !seen[ref] {
			delta = append(delta, ref)
		}
	}
	return delta
}
