package csvfile_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"referral-backend/infrastructure/persistence/csvfile"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoader_LoadQuestions(t *testing.T) {
	dir := t.TempDir()
	questions := writeFile(t, dir, "questions.csv",
		"domain,field_ref,questions_text,answer_type,answer_options\n"+
			"safeguarding,A,Is an injury present?,radio,Yes;No\n"+
			"safeguarding,B,How severe?,select,Deep;Shallow\n"+
			"fire,F1,Is anything burning?,radio,Yes;No\n")
	loader := csvfile.NewLoader(questions, filepath.Join(dir, "rules.csv"), nil)

	rows, err := loader.LoadQuestions(context.Background())

	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "safeguarding", rows[0].Domain)
	assert.Equal(t, "A", rows[0].FieldRef)
	assert.Equal(t, "Is an injury present?", rows[0].Text)
	assert.Equal(t, "radio", rows[0].AnswerType)
	assert.Equal(t, "Yes;No", rows[0].Options)
}

func TestLoader_LoadRules(t *testing.T) {
	dir := t.TempDir()
	rules := writeFile(t, dir, "rules.csv",
		"domain,field_ref,answer_value,next_field_ref\n"+
			"safeguarding,A,Yes,B\n"+
			"safeguarding,A,No,\n")
	loader := csvfile.NewLoader(filepath.Join(dir, "questions.csv"), rules, nil)

	rows, err := loader.LoadRules(context.Background())

	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "A", rows[0].SourceFieldRef)
	assert.Equal(t, "Yes", rows[0].AnswerValue)
	assert.Equal(t, "B", rows[0].TargetFieldRef)
	assert.Empty(t, rows[1].TargetFieldRef)
}

func TestLoader_HeaderOrderDoesNotMatter(t *testing.T) {
	dir := t.TempDir()
	questions := writeFile(t, dir, "questions.csv",
		"answer_type,Domain,answer_options,FIELD_REF,questions_text\n"+
			"radio,safeguarding,Yes;No,A,Is an injury present?\n")
	loader := csvfile.NewLoader(questions, filepath.Join(dir, "rules.csv"), nil)

	rows, err := loader.LoadQuestions(context.Background())

	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "safeguarding", rows[0].Domain)
	assert.Equal(t, "A", rows[0].FieldRef)
	assert.Equal(t, "radio", rows[0].AnswerType)
}

func TestLoader_SkipsBlankRows(t *testing.T) {
	dir := t.TempDir()
	questions := writeFile(t, dir, "questions.csv",
		"domain,field_ref,questions_text,answer_type,answer_options\n"+
			"safeguarding,A,root,radio,Yes;No\n"+
			",,,,\n"+
			"\n")
	loader := csvfile.NewLoader(questions, filepath.Join(dir, "rules.csv"), nil)

	rows, err := loader.LoadQuestions(context.Background())

	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestLoader_MissingColumnsYieldEmptyCells(t *testing.T) {
	dir := t.TempDir()
	rules := writeFile(t, dir, "rules.csv",
		"domain,field_ref,answer_value\n"+
			"safeguarding,A,Yes\n")
	loader := csvfile.NewLoader(filepath.Join(dir, "questions.csv"), rules, nil)

	rows, err := loader.LoadRules(context.Background())

	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Empty(t, rows[0].TargetFieldRef)
}

func TestLoader_MissingFile(t *testing.T) {
	dir := t.TempDir()
	loader := csvfile.NewLoader(filepath.Join(dir, "nope.csv"), filepath.Join(dir, "nope.csv"), nil)

	_, err := loader.LoadQuestions(context.Background())
	assert.Error(t, err)

	_, err = loader.LoadRules(context.Background())
	assert.Error(t, err)
}

func TestLoader_EmptyFile(t *testing.T) {
	dir := t.TempDir()
	questions := writeFile(t, dir, "questions.csv", "")
	loader := csvfile.NewLoader(questions, "", nil)

	_, err := loader.LoadQuestions(context.Background())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "file is empty")
}

func TestLoader_CancelledContext(t *testing.T) {
	dir := t.TempDir()
	questions := writeFile(t, dir, "questions.csv",
		"domain,field_ref,questions_text,answer_type,answer_options\n"+
			"safeguarding,A,root,radio,Yes;No\n")
	loader := csvfile.NewLoader(questions, "", nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := loader.LoadQuestions(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
