package services_test

import (
	"testing"

	"referral-backend/domain/core/aggregates"
	"referral-backend/domain/core/entities"
	"referral-backend/domain/core/valueobjects"
	"referral-backend/domain/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chainRuleSet builds the fixture used by the visibility and cascade suites:
//
//	A --Yes--> B --Deep--> C
//	A --No--> (terminal)
//	D (second root) --Yes--> C
func chainRuleSet(t *testing.T) *aggregates.RuleSet {
	t.Helper()
	domain := mustDomain(t, "safeguarding")
	return buildRuleSet(t, "safeguarding",
		[]*entities.Question{
			question(t, domain, "A", "Is an injury present?", "Yes;No"),
			question(t, domain, "B", "How severe?", "Deep;Shallow"),
			question(t, domain, "C", "Describe the wound", ""),
			question(t, domain, "D", "Any other concern?", "Yes;No"),
		},
		[]*entities.Rule{
			rule(t, domain, "A", "Yes", "B"),
			rule(t, domain, "A", "No", ""),
			rule(t, domain, "B", "Deep", "C"),
			rule(t, domain, "D", "Yes", "C"),
		},
	)
}

func newSession(t *testing.T) *aggregates.Session {
	t.Helper()
	session, err := aggregates.NewSession("user-123")
	require.NoError(t, err)
	return session
}

func answer(t *testing.T, session *aggregates.Session, rs *aggregates.RuleSet, ref, value string) {
	t.Helper()
	require.NoError(t, session.Set(rs.Domain(), mustFieldRef(t, ref), valueobjects.NewAnswerValue(value)))
}

func refStrings(refs []valueobjects.FieldRef) []string {
	out := make([]string, 0, len(refs))
	for _, r := range refs {
		out = append(out, r.String())
	}
	return out
}

func TestVisibility_RootsAlwaysVisible(t *testing.T) {
	rs := chainRuleSet(t)
	session := newSession(t)
	evaluator := services.NewVisibilityEvaluator(nil)

	visible := evaluator.VisibleQuestions(rs, session)

	assert.Equal(t, []string{"A", "D"}, refStrings(visible))
}

func TestVisibility_FollowsMatchedBranch(t *testing.T) {
	rs := chainRuleSet(t)
	session := newSession(t)
	evaluator := services.NewVisibilityEvaluator(nil)

	answer(t, session, rs, "A", "Yes")

	visible := evaluator.VisibleQuestions(rs, session)

	// B renders directly beneath its parent A.
	assert.Equal(t, []string{"A", "B", "D"}, refStrings(visible))
}

func TestVisibility_TerminalBranchOpensNothing(t *testing.T) {
	rs := chainRuleSet(t)
	session := newSession(t)
	evaluator := services.NewVisibilityEvaluator(nil)

	answer(t, session, rs, "A", "No")

	visible := evaluator.VisibleQuestions(rs, session)

	assert.Equal(t, []string{"A", "D"}, refStrings(visible))
}

func TestVisibility_DeepChain(t *testing.T) {
	rs := chainRuleSet(t)
	session := newSession(t)
	evaluator := services.NewVisibilityEvaluator(nil)

	answer(t, session, rs, "A", "Yes")
	answer(t, session, rs, "B", "Deep")

	visible := evaluator.VisibleQuestions(rs, session)

	assert.Equal(t, []string{"A", "B", "C", "D"}, refStrings(visible))
}

func TestVisibility_OrSemanticsAcrossParents(t *testing.T) {
	rs := chainRuleSet(t)
	session := newSession(t)
	evaluator := services.NewVisibilityEvaluator(nil)
	c := mustFieldRef(t, "C")

	// C has two parents: B=Deep and D=Yes. Either one suffices.
	assert.False(t, evaluator.IsVisible(rs, session, c))

	answer(t, session, rs, "D", "Yes")
	assert.True(t, evaluator.IsVisible(rs, session, c))

	// Satisfying the second parent as well keeps it visible, shown once.
	answer(t, session, rs, "A", "Yes")
	answer(t, session, rs, "B", "Deep")
	assert.True(t, evaluator.IsVisible(rs, session, c))

	visible := evaluator.VisibleQuestions(rs, session)
	assert.Equal(t, []string{"A", "B", "C", "D"}, refStrings(visible))
}

func TestVisibility_UnknownFieldNotVisible(t *testing.T) {
	rs := chainRuleSet(t)
	session := newSession(t)
	evaluator := services.NewVisibilityEvaluator(nil)

	assert.False(t, evaluator.IsVisible(rs, session, mustFieldRef(t, "Missing")))
}

func TestVisibility_SkipsDanglingTargets(t *testing.T) {
	domain := mustDomain(t, "fire")
	rs := buildRuleSet(t, "fire",
		[]*entities.Question{question(t, domain, "F1", "root", "Yes;No")},
		[]*entities.Rule{rule(t, domain, "F1", "Yes", "Missing")},
	)
	session := newSession(t)
	evaluator := services.NewVisibilityEvaluator(nil)

	answer(t, session, rs, "F1", "Yes")

	visible := evaluator.VisibleQuestions(rs, session)
	assert.Equal(t, []string{"F1"}, refStrings(visible))
}

func TestVisibility_CyclicTableTerminates(t *testing.T) {
	domain := mustDomain(t, "loop")
	rs := buildRuleSet(t, "loop",
		[]*entities.Question{
			question(t, domain, "R", "root", "Yes;No"),
			question(t, domain, "A", "first", "Yes;No"),
			question(t, domain, "B", "second", "Yes;No"),
		},
		[]*entities.Rule{
			rule(t, domain, "R", "Yes", "A"),
			rule(t, domain, "A", "Yes", "B"),
			rule(t, domain, "B", "Yes", "A"),
		},
	)
	session := newSession(t)
	evaluator := services.NewVisibilityEvaluator(nil)

	answer(t, session, rs, "R", "Yes")
	answer(t, session, rs, "A", "Yes")
	answer(t, session, rs, "B", "Yes")

	visible := evaluator.VisibleQuestions(rs, session)
	assert.Equal(t, []string{"R", "A", "B"}, refStrings(visible))
}

func TestVisibility_MultiSelectOpensEveryMatchedBranch(t *testing.T) {
	domain := mustDomain(t, "safeguarding")
	q, err := entities.NewQuestion(domain, mustFieldRef(t, "signs"), "Observed signs", valueobjects.AnswerTypeMultiSelect, "Bruising;Burns;Neglect")
	require.NoError(t, err)
	rs := buildRuleSet(t, "safeguarding",
		[]*entities.Question{
			q,
			question(t, domain, "bruising_detail", "Describe the bruising", ""),
			question(t, domain, "burns_detail", "Describe the burns", ""),
			question(t, domain, "neglect_detail", "Describe the neglect", ""),
		},
		[]*entities.Rule{
			rule(t, domain, "signs", "Bruising", "bruising_detail"),
			rule(t, domain, "signs", "Burns", "burns_detail"),
			rule(t, domain, "signs", "Neglect", "neglect_detail"),
		},
	)
	session := newSession(t)
	evaluator := services.NewVisibilityEvaluator(nil)

	require.NoError(t, session.Set(domain, mustFieldRef(t, "signs"),
		valueobjects.NewMultiAnswerValue([]string{"Bruising", "Neglect"})))

	visible := evaluator.VisibleQuestions(rs, session)
	assert.Equal(t, []string{"signs", "bruising_detail", "neglect_detail"}, refStrings(visible))
}

func TestVisibleDelta(t *testing.T) {
	before := []valueobjects.FieldRef{mustFieldRef(t, "A"), mustFieldRef(t, "D")}
	after := []valueobjects.FieldRef{mustFieldRef(t, "A"), mustFieldRef(t, "B"), mustFieldRef(t, "D")}

	delta := services.VisibleDelta(before, after)

	assert.Equal(t, []string{"B"}, refStrings(delta))
	assert.Empty(t, services.VisibleDelta(after, before))
}
