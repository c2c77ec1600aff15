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

func mustDomain(t *testing.T, raw string) valueobjects.DomainCode {
	t.Helper()
	d, err := valueobjects.NewDomainCode(raw)
	require.NoError(t, err)
	return d
}

func mustFieldRef(t *testing.T, raw string) valueobjects.FieldRef {
	t.Helper()
	f, err := valueobjects.NewFieldRef(raw)
	require.NoError(t, err)
	return f
}

func question(t *testing.T, domain valueobjects.DomainCode, ref, text, options string) *entities.Question {
	t.Helper()
	q, err := entities.NewQuestion(domain, mustFieldRef(t, ref), text, valueobjects.AnswerTypeRadio, options)
	require.NoError(t, err)
	return q
}

func rule(t *testing.T, domain valueobjects.DomainCode, source, answer, target string) *entities.Rule {
	t.Helper()
	r, err := entities.NewRule(domain, mustFieldRef(t, source), answer, target)
	require.NoError(t, err)
	return r
}

func buildRuleSet(t *testing.T, domainCode string, questions []*entities.Question, rules []*entities.Rule) *aggregates.RuleSet {
	t.Helper()
	rs, err := aggregates.NewRuleSet(mustDomain(t, domainCode), questions, rules)
	require.NoError(t, err)
	return rs
}

func sampleQuestionRows() []services.QuestionRow {
	return []services.QuestionRow{
		{Domain: "Safeguarding", FieldRef: "A", Text: "Is an injury present?", AnswerType: "radio", Options: "Yes;No"},
		{Domain: "safeguarding", FieldRef: "B", Text: "How severe?", AnswerType: "select", Options: "Deep;Shallow"},
		{Domain: "fire", FieldRef: "F1", Text: "Is anything burning?", AnswerType: "radio", Options: "Yes;No"},
	}
}

func sampleRuleRows() []services.RuleRow {
	return []services.RuleRow{
		{Domain: "SAFEGUARDING", SourceFieldRef: "A", AnswerValue: "Yes", TargetFieldRef: "B"},
		{Domain: "safeguarding", SourceFieldRef: "A", AnswerValue: "No", TargetFieldRef: ""},
		{Domain: "fire", SourceFieldRef: "F1", AnswerValue: "Yes", TargetFieldRef: ""},
	}
}

func TestCompiler_PartitionsByNormalizedDomain(t *testing.T) {
	compiler := services.NewCompiler(nil)

	table := compiler.Compile(sampleQuestionRows(), sampleRuleRows())

	require.Empty(t, table.Failures())
	domains := table.Domains()
	require.Len(t, domains, 2)
	assert.Equal(t, "fire", domains[0].String())
	assert.Equal(t, "safeguarding", domains[1].String())

	// Differently cased spellings of "safeguarding" merged into one graph.
	rs, ok := table.Get(mustDomain(t, "safeguarding"))
	require.True(t, ok)
	assert.Equal(t, 2, rs.QuestionCount())
	assert.Equal(t, 2, rs.RuleCount())

	assert.Equal(t, 3, table.QuestionCount())
	assert.Equal(t, 3, table.RuleCount())
}

func TestCompiler_FailureIsolatedPerDomain(t *testing.T) {
	compiler := services.NewCompiler(nil)
	questions := append(sampleQuestionRows(), services.QuestionRow{
		Domain: "police", FieldRef: "P1", Text: "broken row", AnswerType: "checkbox",
	})

	table := compiler.Compile(questions, sampleRuleRows())

	// The malformed domain failed; the others still compiled.
	assert.Error(t, table.Failure("police"))
	_, ok := table.Get(mustDomain(t, "police"))
	assert.False(t, ok)

	_, ok = table.Get(mustDomain(t, "safeguarding"))
	assert.True(t, ok)
	_, ok = table.Get(mustDomain(t, "fire"))
	assert.True(t, ok)
}

func TestCompiler_DuplicateFieldRefFailsDomain(t *testing.T) {
	compiler := services.NewCompiler(nil)
	questions := []services.QuestionRow{
		{Domain: "safeguarding", FieldRef: "A", Text: "first", AnswerType: "radio"},
		{Domain: "safeguarding", FieldRef: "A", Text: "second", AnswerType: "radio"},
	}

	table := compiler.Compile(questions, nil)

	assert.Error(t, table.Failure("safeguarding"))
	assert.Empty(t, table.Domains())
}

func TestCompiler_RuleOnlyDomainCompilesEmpty(t *testing.T) {
	compiler := services.NewCompiler(nil)
	rules := []services.RuleRow{
		{Domain: "orphan", SourceFieldRef: "X", AnswerValue: "Yes", TargetFieldRef: "Y"},
	}

	table := compiler.Compile(nil, rules)

	rs, ok := table.Get(mustDomain(t, "orphan"))
	require.True(t, ok)
	assert.Zero(t, rs.QuestionCount())
	assert.Equal(t, 1, rs.RuleCount())
}

func TestCompiler_MemoizesByContentHash(t *testing.T) {
	compiler := services.NewCompiler(nil)

	first := compiler.Compile(sampleQuestionRows(), sampleRuleRows())
	second := compiler.Compile(sampleQuestionRows(), sampleRuleRows())

	// Identical rows return the identical table instance.
	assert.Same(t, first, second)
	assert.Equal(t, first.Hash(), second.Hash())

	changed := sampleRuleRows()
	changed[0].TargetFieldRef = "F1"
	third := compiler.Compile(sampleQuestionRows(), changed)
	assert.NotSame(t, first, third)
	assert.NotEqual(t, first.Hash(), third.Hash())
}

func TestCompiler_EmptyTable(t *testing.T) {
	compiler := services.NewCompiler(nil)

	table := compiler.Compile(nil, nil)

	assert.Empty(t, table.Domains())
	assert.Empty(t, table.Failures())
	assert.Zero(t, table.QuestionCount())
}
