package services_test

import (
	"strings"
	"testing"

	"referral-backend/domain/core/entities"
	"referral-backend/domain/services"

	"github.com/stretchr/testify/assert"
)

func TestRuleMap_RendersBranches(t *testing.T) {
	rs := chainRuleSet(t)
	renderer := services.NewRuleMapRenderer(0)

	out := renderer.Render(rs)

	assert.Contains(t, out, "=== A ===")
	assert.Contains(t, out, "=== D ===")
	assert.Contains(t, out, "A: Is an injury present?")
	assert.Contains(t, out, "[Yes] →")
	assert.Contains(t, out, "[No] → END")
	assert.Contains(t, out, "B: How severe?")
}

func TestRuleMap_SharedNodeShownOnce(t *testing.T) {
	rs := chainRuleSet(t)
	renderer := services.NewRuleMapRenderer(0)

	out := renderer.Render(rs)

	// C is reachable from both B and D; the second occurrence is a
	// back-reference instead of a re-expansion.
	assert.Equal(t, 1, strings.Count(out, "C: Describe the wound"))
	assert.Contains(t, out, "↪ C (already shown)")
}

func TestRuleMap_DepthLimit(t *testing.T) {
	domain := mustDomain(t, "deep")
	questions := []*entities.Question{
		question(t, domain, "q0", "level 0", "Yes;No"),
		question(t, domain, "q1", "level 1", "Yes;No"),
		question(t, domain, "q2", "level 2", "Yes;No"),
		question(t, domain, "q3", "level 3", "Yes;No"),
	}
	rules := []*entities.Rule{
		rule(t, domain, "q0", "Yes", "q1"),
		rule(t, domain, "q1", "Yes", "q2"),
		rule(t, domain, "q2", "Yes", "q3"),
	}
	rs := buildRuleSet(t, "deep", questions, rules)

	out := services.NewRuleMapRenderer(3).Render(rs)

	assert.Contains(t, out, "q1: level 1")
	assert.Contains(t, out, "(depth limit)")
	assert.NotContains(t, out, "q3: level 3")
}

func TestRuleMap_DeterministicOutput(t *testing.T) {
	rs := chainRuleSet(t)
	renderer := services.NewRuleMapRenderer(0)

	assert.Equal(t, renderer.Render(rs), renderer.Render(rs))
}
