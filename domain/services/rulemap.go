package services

import (
	"fmt"
	"strings"

	"referral-backend/domain/core/aggregates"
	"referral-backend/domain/core/valueobjects"
)

// DefaultRuleMapDepth bounds how deep the linear rule map renders before
// eliding the rest of a branch
const DefaultRuleMapDepth = 6

// RuleMapRenderer renders a domain's rule graph as an indented, top-down
// text map for table authors: deterministic, one node shown once, repeated
// paths referenced instead of re-expanded.
type RuleMapRenderer struct {
	maxDepth int
}

// NewRuleMapRenderer creates a renderer. maxDepth <= 0 uses the default.
func NewRuleMapRenderer(maxDepth int) *RuleMapRenderer {
	if maxDepth <= 0 {
		maxDepth = DefaultRuleMapDepth
	}
	return &RuleMapRenderer{maxDepth: maxDepth}
}

// Render produces the linear rule map for one domain, one section per
// entry point
func (r *RuleMapRenderer) Render(rs *aggregates.RuleSet) string {
	seen := make(map[valueobjects.FieldRef]bool)
	var lines []string

	var walk func(ref valueobjects.FieldRef, depth int)
	walk = func(ref valueobjects.FieldRef, depth int) {
		indent := strings.Repeat("  ", depth)

		if depth > r.maxDepth {
			lines = append(lines, indent+"… (depth limit)")
			return
		}
		if seen[ref] {
			lines = append(lines, fmt.Sprintf("%s↪ %s (already shown)", indent, ref.String()))
			return
		}
		seen[ref] = true

		label := ""
		if q, ok := rs.Question(ref); ok {
			label = q.Text()
		}
		lines = append(lines, fmt.Sprintf("%s■ %s: %s", indent, ref.String(), label))

		childIndent := strings.Repeat("  ", depth+1)
		for _, edge := range rs.Children(ref) {
			if edge.Target.IsZero() {
				lines = append(lines, fmt.Sprintf("%s─ [%s] → END", childIndent, edge.AnswerValue))
				continue
			}
			lines = append(lines, fmt.Sprintf("%s─ [%s] →", childIndent, edge.AnswerValue))
			walk(edge.Target, depth+2)
		}
	}

	for _, root := range rs.EntryPoints() {
		lines = append(lines, fmt.Sprintf("=== %s ===", root.String()))
		walk(root, 1)
		lines = append(lines, "")
	}

	return strings.Join(lines, "\n")
}
