package events

import (
	"time"
)

// SourceBackend identifies this service as the event source on the bus
const SourceBackend = "referral.backend"

// DomainEvent is the base interface for all domain events
// Events represent something that has happened in the past
type DomainEvent interface {
	GetAggregateID() string
	GetEventType() string
	GetTimestamp() time.Time
	GetVersion() int
}

// BaseEvent provides common event fields
type BaseEvent struct {
	AggregateID string    `json:"aggregate_id"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
	Version     int       `json:"version"`
}

func (e BaseEvent) GetAggregateID() string  { return e.AggregateID }
func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }
func (e BaseEvent) GetVersion() int         { return e.Version }

// StoredEvent is a persisted event as read back from the event store. The
// payload stays raw JSON because the store does not know every concrete
// event type.
type StoredEvent struct {
	AggregateID string    `json:"aggregate_id"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
	Version     int       `json:"version"`
	Payload     []byte    `json:"payload"`
}

// Session events

// SessionStarted is raised when a new form session is opened
type SessionStarted struct {
	BaseEvent
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
}

// NewSessionStarted creates a SessionStarted event
func NewSessionStarted(sessionID, userID string, timestamp time.Time) SessionStarted {
	return SessionStarted{
		BaseEvent: BaseEvent{
			AggregateID: sessionID,
			EventType:   "session.started",
			Timestamp:   timestamp,
			Version:     1,
		},
		SessionID: sessionID,
		UserID:    userID,
	}
}

// AnswerRecorded is raised when a session stores a new answer value
type AnswerRecorded struct {
	BaseEvent
	SessionID string `json:"session_id"`
	Domain    string `json:"domain"`
	FieldRef  string `json:"field_ref"`
	Value     string `json:"value"`
}

// NewAnswerRecorded creates an AnswerRecorded event
func NewAnswerRecorded(sessionID, domain, fieldRef, value string, timestamp time.Time) AnswerRecorded {
	return AnswerRecorded{
		BaseEvent: BaseEvent{
			AggregateID: sessionID,
			EventType:   "session.answer_recorded",
			Timestamp:   timestamp,
			Version:     1,
		},
		SessionID: sessionID,
		Domain:    domain,
		FieldRef:  fieldRef,
		Value:     value,
	}
}

// AnswersCascaded is raised after a changed answer invalidated its
// descendant answers
type AnswersCascaded struct {
	BaseEvent
	SessionID string   `json:"session_id"`
	Domain    string   `json:"domain"`
	Trigger   string   `json:"trigger"`
	Cleared   []string `json:"cleared"`
}

// NewAnswersCascaded creates an AnswersCascaded event
func NewAnswersCascaded(sessionID, domain, trigger string, cleared []string, timestamp time.Time) AnswersCascaded {
	return AnswersCascaded{
		BaseEvent: BaseEvent{
			AggregateID: sessionID,
			EventType:   "session.answers_cascaded",
			Timestamp:   timestamp,
			Version:     1,
		},
		SessionID: sessionID,
		Domain:    domain,
		Trigger:   trigger,
		Cleared:   cleared,
	}
}

// SessionReset is raised when a session's answers are wiped. Domain is empty
// when every domain was reset.
type SessionReset struct {
	BaseEvent
	SessionID string `json:"session_id"`
	Domain    string `json:"domain,omitempty"`
}

// NewSessionReset creates a SessionReset event
func NewSessionReset(sessionID, domain string, timestamp time.Time) SessionReset {
	return SessionReset{
		BaseEvent: BaseEvent{
			AggregateID: sessionID,
			EventType:   "session.reset",
			Timestamp:   timestamp,
			Version:     1,
		},
		SessionID: sessionID,
		Domain:    domain,
	}
}

// Rule table events

// RuleTableCompiled is raised when a rule table has been compiled into
// domain graphs
type RuleTableCompiled struct {
	BaseEvent
	Domains       []string `json:"domains"`
	QuestionCount int      `json:"question_count"`
	RuleCount     int      `json:"rule_count"`
}

// NewRuleTableCompiled creates a RuleTableCompiled event
func NewRuleTableCompiled(domains []string, questionCount, ruleCount int, timestamp time.Time) RuleTableCompiled {
	return RuleTableCompiled{
		BaseEvent: BaseEvent{
			AggregateID: "rule-table",
			EventType:   "ruletable.compiled",
			Timestamp:   timestamp,
			Version:     1,
		},
		Domains:       domains,
		QuestionCount: questionCount,
		RuleCount:     ruleCount,
	}
}
