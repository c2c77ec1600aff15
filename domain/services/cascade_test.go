package services_test

import (
	"testing"

	"referral-backend/domain/core/entities"
	"referral-backend/domain/core/valueobjects"
	"referral-backend/domain/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestCascade_ClearsDescendantsOnChange(t *testing.T) {
	rs := chainRuleSet(t)
	session := newSession(t)
	invalidator := services.NewCascadeInvalidator(nil)

	// Build up a chain of answers and settle it.
	answer(t, session, rs, "A", "Yes")
	invalidator.OnAnswerChanged(rs, session, mustFieldRef(t, "A"))
	answer(t, session, rs, "B", "Deep")
	invalidator.OnAnswerChanged(rs, session, mustFieldRef(t, "B"))
	answer(t, session, rs, "C", "deep laceration")
	invalidator.OnAnswerChanged(rs, session, mustFieldRef(t, "C"))

	// Act: change the ancestor.
	answer(t, session, rs, "A", "No")
	cleared := invalidator.OnAnswerChanged(rs, session, mustFieldRef(t, "A"))

	// Assert: every descendant was cleared, the trigger kept its new value.
	assert.Equal(t, []string{"B", "C"}, refStrings(cleared))
	assert.Equal(t, "No", session.Get(rs.Domain(), mustFieldRef(t, "A")).String())
	assert.True(t, session.Get(rs.Domain(), mustFieldRef(t, "B")).IsZero())
	assert.True(t, session.Get(rs.Domain(), mustFieldRef(t, "C")).IsZero())
}

func TestCascade_ClearsAllBranchesNotJustTheActiveOne(t *testing.T) {
	domain := mustDomain(t, "safeguarding")
	rs := buildRuleSet(t, "safeguarding",
		[]*entities.Question{
			question(t, domain, "A", "root", "Left;Right"),
			question(t, domain, "L", "left branch", ""),
			question(t, domain, "R", "right branch", ""),
		},
		[]*entities.Rule{
			rule(t, domain, "A", "Left", "L"),
			rule(t, domain, "A", "Right", "R"),
		},
	)
	session := newSession(t)
	invalidator := services.NewCascadeInvalidator(nil)

	answer(t, session, rs, "A", "Left")
	invalidator.OnAnswerChanged(rs, session, mustFieldRef(t, "A"))
	answer(t, session, rs, "L", "stale left answer")
	invalidator.OnAnswerChanged(rs, session, mustFieldRef(t, "L"))
	answer(t, session, rs, "R", "stale right answer")
	invalidator.OnAnswerChanged(rs, session, mustFieldRef(t, "R"))

	// Switching the root clears both branches, including the one the new
	// answer does not select.
	answer(t, session, rs, "A", "Right")
	cleared := invalidator.OnAnswerChanged(rs, session, mustFieldRef(t, "A"))

	assert.ElementsMatch(t, []string{"L", "R"}, refStrings(cleared))
	assert.True(t, session.Get(domain, mustFieldRef(t, "L")).IsZero())
	assert.True(t, session.Get(domain, mustFieldRef(t, "R")).IsZero())
}

func TestCascade_NoOpWhenValueUnchanged(t *testing.T) {
	rs := chainRuleSet(t)
	session := newSession(t)
	invalidator := services.NewCascadeInvalidator(nil)

	answer(t, session, rs, "A", "Yes")
	first := invalidator.OnAnswerChanged(rs, session, mustFieldRef(t, "A"))
	answer(t, session, rs, "B", "Deep")
	invalidator.OnAnswerChanged(rs, session, mustFieldRef(t, "B"))

	// Re-setting the same value cascades nothing and keeps B intact.
	answer(t, session, rs, "A", "Yes")
	second := invalidator.OnAnswerChanged(rs, session, mustFieldRef(t, "A"))

	assert.Empty(t, first)
	assert.Empty(t, second)
	assert.Equal(t, "Deep", session.Get(rs.Domain(), mustFieldRef(t, "B")).String())
}

func TestCascade_UnansweredFieldIsNoOp(t *testing.T) {
	rs := chainRuleSet(t)
	session := newSession(t)
	invalidator := services.NewCascadeInvalidator(nil)

	cleared := invalidator.OnAnswerChanged(rs, session, mustFieldRef(t, "A"))

	assert.Empty(t, cleared)
}

func TestCascade_DiamondClearedOnce(t *testing.T) {
	domain := mustDomain(t, "safeguarding")
	rs := buildRuleSet(t, "safeguarding",
		[]*entities.Question{
			question(t, domain, "A", "root", "Yes;No"),
			question(t, domain, "B", "left", "Yes;No"),
			question(t, domain, "C", "right", "Yes;No"),
			question(t, domain, "D", "join", ""),
		},
		[]*entities.Rule{
			rule(t, domain, "A", "Yes", "B"),
			rule(t, domain, "A", "No", "C"),
			rule(t, domain, "B", "Yes", "D"),
			rule(t, domain, "C", "Yes", "D"),
		},
	)
	session := newSession(t)
	invalidator := services.NewCascadeInvalidator(nil)

	answer(t, session, rs, "A", "Yes")
	invalidator.OnAnswerChanged(rs, session, mustFieldRef(t, "A"))
	answer(t, session, rs, "B", "Yes")
	invalidator.OnAnswerChanged(rs, session, mustFieldRef(t, "B"))
	answer(t, session, rs, "D", "joined")
	invalidator.OnAnswerChanged(rs, session, mustFieldRef(t, "D"))

	answer(t, session, rs, "A", "No")
	cleared := invalidator.OnAnswerChanged(rs, session, mustFieldRef(t, "A"))

	// D is reachable through both B and C but appears exactly once, and
	// the never-answered C is walked through without being reported.
	assert.Equal(t, []string{"B", "D"}, refStrings(cleared))
}

func TestCascade_CycleTerminatesAndSparesTrigger(t *testing.T) {
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
	invalidator := services.NewCascadeInvalidator(nil)

	answer(t, session, rs, "A", "Yes")
	invalidator.OnAnswerChanged(rs, session, mustFieldRef(t, "A"))
	answer(t, session, rs, "B", "Yes")
	invalidator.OnAnswerChanged(rs, session, mustFieldRef(t, "B"))

	// The cycle leads back to A, but the trigger's fresh value survives.
	answer(t, session, rs, "A", "No")
	cleared := invalidator.OnAnswerChanged(rs, session, mustFieldRef(t, "A"))

	assert.Equal(t, []string{"B"}, refStrings(cleared))
	assert.Equal(t, "No", session.Get(domain, mustFieldRef(t, "A")).String())
}

func TestCascade_RaisesCascadeEvent(t *testing.T) {
	rs := chainRuleSet(t)
	session := newSession(t)
	invalidator := services.NewCascadeInvalidator(nil)

	answer(t, session, rs, "A", "Yes")
	invalidator.OnAnswerChanged(rs, session, mustFieldRef(t, "A"))
	answer(t, session, rs, "B", "Deep")
	invalidator.OnAnswerChanged(rs, session, mustFieldRef(t, "B"))
	session.MarkEventsAsCommitted()

	answer(t, session, rs, "A", "No")
	invalidator.OnAnswerChanged(rs, session, mustFieldRef(t, "A"))

	var sawCascade bool
	for _, event := range session.GetUncommittedEvents() {
		if event.GetEventType() == "session.answers_cascaded" {
			sawCascade = true
		}
	}
	assert.True(t, sawCascade)
}

func TestCascade_DiamondRevisitDoesNotWarn(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	domain := mustDomain(t, "safeguarding")
	rs := buildRuleSet(t, "safeguarding",
		[]*entities.Question{
			question(t, domain, "A", "root", "Yes;No"),
			question(t, domain, "B", "left", "Yes;No"),
			question(t, domain, "C", "right", "Yes;No"),
			question(t, domain, "D", "join", ""),
		},
		[]*entities.Rule{
			rule(t, domain, "A", "Yes", "B"),
			rule(t, domain, "A", "No", "C"),
			rule(t, domain, "B", "Yes", "D"),
			rule(t, domain, "C", "Yes", "D"),
		},
	)
	session := newSession(t)
	invalidator := services.NewCascadeInvalidator(zap.New(core))

	answer(t, session, rs, "A", "Yes")
	invalidator.OnAnswerChanged(rs, session, mustFieldRef(t, "A"))
	answer(t, session, rs, "B", "Yes")
	invalidator.OnAnswerChanged(rs, session, mustFieldRef(t, "B"))
	answer(t, session, rs, "A", "No")
	invalidator.OnAnswerChanged(rs, session, mustFieldRef(t, "A"))

	// A diamond is a legal table shape, so the revisit of D is not noise
	// worth a warning.
	assert.Zero(t, logs.Len())
}

func TestCascade_CycleBackToTriggerWarns(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	domain := mustDomain(t, "loop")
	rs := buildRuleSet(t, "loop",
		[]*entities.Question{
			question(t, domain, "A", "first", "Yes;No"),
			question(t, domain, "B", "second", "Yes;No"),
		},
		[]*entities.Rule{
			rule(t, domain, "A", "Yes", "B"),
			rule(t, domain, "B", "Yes", "A"),
		},
	)
	session := newSession(t)
	invalidator := services.NewCascadeInvalidator(zap.New(core))

	answer(t, session, rs, "A", "Yes")
	invalidator.OnAnswerChanged(rs, session, mustFieldRef(t, "A"))
	logs.TakeAll()

	answer(t, session, rs, "A", "No")
	invalidator.OnAnswerChanged(rs, session, mustFieldRef(t, "A"))

	require.Equal(t, 1, logs.Len())
	assert.Contains(t, logs.All()[0].Message, "cycles back")
}

func mustAnswerValue(values ...string) valueobjects.AnswerValue {
	return valueobjects.NewMultiAnswerValue(values)
}

func TestCascade_MultiSelectShrinkStillCascades(t *testing.T) {
	domain := mustDomain(t, "safeguarding")
	q, err := entities.NewQuestion(domain, mustFieldRef(t, "signs"), "Observed signs", valueobjects.AnswerTypeMultiSelect, "Bruising;Burns")
	require.NoError(t, err)
	rs := buildRuleSet(t, "safeguarding",
		[]*entities.Question{
			q,
			question(t, domain, "bruising_detail", "Describe the bruising", ""),
			question(t, domain, "burns_detail", "Describe the burns", ""),
		},
		[]*entities.Rule{
			rule(t, domain, "signs", "Bruising", "bruising_detail"),
			rule(t, domain, "signs", "Burns", "burns_detail"),
		},
	)
	session := newSession(t)
	invalidator := services.NewCascadeInvalidator(nil)
	signs := mustFieldRef(t, "signs")

	require.NoError(t, session.Set(domain, signs, mustAnswerValue("Bruising", "Burns")))
	invalidator.OnAnswerChanged(rs, session, signs)
	answer(t, session, rs, "bruising_detail", "upper arm")
	invalidator.OnAnswerChanged(rs, session, mustFieldRef(t, "bruising_detail"))

	// Deselecting one option changes the set, which clears every child
	// branch. The still-selected branch gets re-asked.
	require.NoError(t, session.Set(domain, signs, mustAnswerValue("Bruising")))
	cleared := invalidator.OnAnswerChanged(rs, session, signs)

	assert.Equal(t, []string{"bruising_detail"}, refStrings(cleared))
	assert.True(t, session.Get(domain, mustFieldRef(t, "bruising_detail")).IsZero())
	assert.True(t, session.Get(domain, mustFieldRef(t, "burns_detail")).IsZero())
}
