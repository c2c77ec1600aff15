package entities

import (
	"errors"
	"strings"

	"referral-backend/domain/core/valueobjects"
)

// Question is a single prompt in a domain's questionnaire. The prompt text
// is opaque to the rule engine; only the field ref, answer type and options
// participate in evaluation.
type Question struct {
	domain     valueobjects.DomainCode
	fieldRef   valueobjects.FieldRef
	text       string
	answerType valueobjects.AnswerType
	options    []string
}

// optionDelimiter separates options inside a single rule-table cell.
const optionDelimiter = ";"

// NewQuestion creates a question from validated row values. rawOptions is
// the delimited cell from the rule table; it is split and trimmed here so
// every caller sees the same option list.
func NewQuestion(
	domain valueobjects.DomainCode,
	fieldRef valueobjects.FieldRef,
	text string,
	answerType valueobjects.AnswerType,
	rawOptions string,
) (*Question, error) {
	if domain.IsZero() {
		return nil, errors.New("question domain is required")
	}
	if fieldRef.IsZero() {
		return nil, errors.New("question field ref is required")
	}
	if answerType == "" {
		return nil, errors.New("question answer type is required")
	}

	return &Question{
		domain:     domain,
		fieldRef:   fieldRef,
		text:       strings.TrimSpace(text),
		answerType: answerType,
		options:    SplitOptions(rawOptions),
	}, nil
}

// SplitOptions splits a delimited option cell, trimming each token and
// dropping empties
func SplitOptions(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, optionDelimiter)
	options := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			options = append(options, trimmed)
		}
	}
	if len(options) == 0 {
		return nil
	}
	return options
}

// Domain returns the owning domain
func (q *Question) Domain() valueobjects.DomainCode {
	return q.domain
}

// FieldRef returns the question's identifier within its domain
func (q *Question) FieldRef() valueobjects.FieldRef {
	return q.fieldRef
}

// Text returns the display prompt
func (q *Question) Text() string {
	return q.text
}

// AnswerType returns the question's answer type
func (q *Question) AnswerType() valueobjects.AnswerType {
	return q.answerType
}

// Options returns a copy of the ordered option list
func (q *Question) Options() []string {
	if len(q.options) == 0 {
		return nil
	}
	out := make([]string, len(q.options))
	copy(out, q.options)
	return out
}

// HasOptions reports whether the question carries a fixed option list
func (q *Question) HasOptions() bool {
	return len(q.options) > 0
}
