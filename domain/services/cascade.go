package services

import (
	"go.uber.org/zap"

	"referral-backend/domain/core/aggregates"
	"referral-backend/domain/core/valueobjects"
)

// CascadeInvalidator clears descendant answers after an upstream answer
// changes. Any previously entered downstream answer is no longer guaranteed
// relevant once an ancestor moved, even along a branch the user is not
// currently on, so clearing follows every outgoing edge of a question, not
// just the branch matched by the new value.
type CascadeInvalidator struct {
	logger *zap.Logger
}

// NewCascadeInvalidator creates a cascade invalidator
func NewCascadeInvalidator(logger *zap.Logger) *CascadeInvalidator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CascadeInvalidator{logger: logger}
}

// OnAnswerChanged runs one cascade pass for a question whose current value
// may differ from its committed value. When they differ, every descendant's
// stored answer is cleared and the trigger is committed; when they are
// equal the call is a no-op, which makes repeated cascades idempotent.
// Returns the cleared field refs.
//
// The walk is an explicit work-list bounded by a visited set: diamonds are
// cleared once, and a cyclic rule table terminates instead of recursing
// forever. The trigger itself is seeded into the visited set so a cycle
// leading back to it cannot wipe the answer that was just recorded.
func (c *CascadeInvalidator) OnAnswerChanged(
	rs *aggregates.RuleSet,
	session *aggregates.Session,
	field valueobjects.FieldRef,
) []valueobjects.FieldRef {
	domain := rs.Domain()

	if !session.HasChanged(domain, field) {
		return nil
	}

	visited := map[valueobjects.FieldRef]bool{field: true}
	queue := rs.Descendants(field)
	var cleared []valueobjects.FieldRef

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if visited[current] {
			// Reaching the trigger again means the table cycles back to it,
			// which is a data-quality problem. Any other revisit is usually
			// just a diamond, so it stays quiet.
			if current == field {
				c.logger.Warn("Rule table cycles back to the changed question",
					zap.String("domain", domain.String()),
					zap.String("trigger", field.String()),
				)
			} else {
				c.logger.Debug("Cascade revisited a question",
					zap.String("domain", domain.String()),
					zap.String("trigger", field.String()),
					zap.String("fieldRef", current.String()),
				)
			}
			continue
		}
		visited[current] = true

		// Only fields that actually held a value count as cleared; walking
		// through an unanswered question still continues to its children.
		had := !session.Get(domain, current).IsZero() || !session.Committed(domain, current).IsZero()
		session.Clear(domain, current)
		if had {
			cleared = append(cleared, current)
		}

		queue = append(queue, rs.Descendants(current)...)
	}

	session.Commit(domain, field)
	if len(cleared) > 0 {
		session.MarkCascaded(domain, field, cleared)
		c.logger.Debug("Cascade cleared descendant answers",
			zap.String("domain", domain.String()),
			zap.String("trigger", field.String()),
			zap.Int("cleared", len(cleared)),
		)
	}

	return cleared
}
