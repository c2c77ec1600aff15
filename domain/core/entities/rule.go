package entities

import (
	"errors"
	"strings"

	"referral-backend/domain/core/valueobjects"
)

// Rule is one row of the rule table: answering Source with AnswerValue leads
// to Target. A zero Target means the answer is terminal and opens no further
// question. Several rules may share a source (branching); several may share
// (source, answer) with different targets, which the auditor reports as
// ambiguous while the evaluator fans out to all of them.
type Rule struct {
	domain      valueobjects.DomainCode
	source      valueobjects.FieldRef
	answerValue string
	target      valueobjects.FieldRef
}

// NewRule creates a rule from validated row values. rawTarget may be empty.
func NewRule(
	domain valueobjects.DomainCode,
	source valueobjects.FieldRef,
	answerValue string,
	rawTarget string,
) (*Rule, error) {
	if domain.IsZero() {
		return nil, errors.New("rule domain is required")
	}
	if source.IsZero() {
		return nil, errors.New("rule source field ref is required")
	}
	answerValue = strings.TrimSpace(answerValue)
	if answerValue == "" {
		return nil, errors.New("rule answer value is required")
	}

	rule := &Rule{
		domain:      domain,
		source:      source,
		answerValue: answerValue,
	}
	if trimmed := strings.TrimSpace(rawTarget); trimmed != "" {
		target, err := valueobjects.NewFieldRef(trimmed)
		if err != nil {
			return nil, err
		}
		rule.target = target
	}
	return rule, nil
}

// Domain returns the owning domain
func (r *Rule) Domain() valueobjects.DomainCode {
	return r.domain
}

// Source returns the question being answered
func (r *Rule) Source() valueobjects.FieldRef {
	return r.source
}

// AnswerValue returns the answer that activates this rule
func (r *Rule) AnswerValue() string {
	return r.answerValue
}

// Target returns the follow-up question, or the zero FieldRef for a
// terminal answer
func (r *Rule) Target() valueobjects.FieldRef {
	return r.target
}

// IsTerminal reports whether the rule leads to no further question
func (r *Rule) IsTerminal() bool {
	return r.target.IsZero()
}
