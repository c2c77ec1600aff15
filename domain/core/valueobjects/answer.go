package valueobjects

import (
	"errors"
	"strings"
)

// AnswerType determines which value shapes are legal for a question.
// It never changes how the rule engine traverses the graph.
type AnswerType string

const (
	AnswerTypeRadio       AnswerType = "radio"
	AnswerTypeSelect      AnswerType = "select"
	AnswerTypeMultiSelect AnswerType = "multi_select"
	AnswerTypeFreeText    AnswerType = "free_text"
	AnswerTypeNumeric     AnswerType = "numeric"
	AnswerTypeDate        AnswerType = "date"
)

// ParseAnswerType validates a raw answer_type cell
func ParseAnswerType(raw string) (AnswerType, error) {
	t := AnswerType(strings.ToLower(strings.TrimSpace(raw)))
	switch t {
	case AnswerTypeRadio, AnswerTypeSelect, AnswerTypeMultiSelect,
		AnswerTypeFreeText, AnswerTypeNumeric, AnswerTypeDate:
		return t, nil
	case "":
		return "", errors.New("answer type cannot be empty")
	default:
		return "", errors.New("unknown answer type: " + string(t))
	}
}

// IsChoice reports whether the type carries a fixed option list
func (t AnswerType) IsChoice() bool {
	return t == AnswerTypeRadio || t == AnswerTypeSelect || t == AnswerTypeMultiSelect
}

// AnswerValue holds a recorded answer. All rule comparisons are
// string-normalized regardless of the question's answer type; multi-select
// answers carry one element per selected option and a rule edge matches if
// any element equals its required value.
type AnswerValue struct {
	values []string
}

// NewAnswerValue creates a single-valued answer
func NewAnswerValue(raw string) AnswerValue {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return AnswerValue{}
	}
	return AnswerValue{values: []string{trimmed}}
}

// NewMultiAnswerValue creates a multi-valued answer, dropping empty elements
func NewMultiAnswerValue(raw []string) AnswerValue {
	values := make([]string, 0, len(raw))
	for _, v := range raw {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			values = append(values, trimmed)
		}
	}
	return AnswerValue{values: values}
}

// Values returns a copy of the selected values
func (a AnswerValue) Values() []string {
	out := make([]string, len(a.values))
	copy(out, a.values)
	return out
}

// String returns the first value, or "" for an empty answer
func (a AnswerValue) String() string {
	if len(a.values) == 0 {
		return ""
	}
	return strings.Join(a.values, ";")
}

// Matches reports whether any element of the answer equals the rule's
// required value after trimming
func (a AnswerValue) Matches(required string) bool {
	required = strings.TrimSpace(required)
	for _, v := range a.values {
		if v == required {
			return true
		}
	}
	return false
}

// Equals checks if two answers hold the same values in the same order
func (a AnswerValue) Equals(other AnswerValue) bool {
	if len(a.values) != len(other.values) {
		return false
	}
	for i := range a.values {
		if a.values[i] != other.values[i] {
			return false
		}
	}
	return true
}

// IsZero checks if no value has been recorded
func (a AnswerValue) IsZero() bool {
	return len(a.values) == 0
}
