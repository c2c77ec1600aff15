package aggregates

import (
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"

	"referral-backend/domain/core/valueobjects"
	"referral-backend/domain/events"
)

// SessionID represents a unique form session identifier
type SessionID string

// NewSessionID creates a new random SessionID
func NewSessionID() SessionID {
	return SessionID(uuid.New().String())
}

// String returns the string representation
func (id SessionID) String() string {
	return string(id)
}

// AnswerRecord holds one question's state within a session: the value the
// user currently has entered and the value as of the last cascade pass.
// The two diverging is what triggers descendant invalidation.
type AnswerRecord struct {
	Current   valueobjects.AnswerValue
	Committed valueobjects.AnswerValue
}

// answerKey addresses a record by domain and field
type answerKey struct {
	domain valueobjects.DomainCode
	field  valueobjects.FieldRef
}

// Session is the aggregate root for one user's pass through the form. It
// exclusively owns its answer records; the compiled RuleSets are shared and
// read-only, so sessions never share mutable state.
type Session struct {
	id        SessionID
	userID    string
	answers   map[answerKey]*AnswerRecord
	createdAt time.Time
	updatedAt time.Time
	version   int
	events    []events.DomainEvent
}

// NewSession creates a new session aggregate
func NewSession(userID string) (*Session, error) {
	return NewSessionWithID(NewSessionID(), userID)
}

// NewSessionWithID creates a session under a caller-supplied identifier
func NewSessionWithID(id SessionID, userID string) (*Session, error) {
	if userID == "" {
		return nil, errors.New("userID required")
	}
	if id == "" {
		id = NewSessionID()
	}

	now := time.Now()
	session := &Session{
		id:        id,
		userID:    userID,
		answers:   make(map[answerKey]*AnswerRecord),
		createdAt: now,
		updatedAt: now,
		version:   1,
		events:    []events.DomainEvent{},
	}

	session.addEvent(events.NewSessionStarted(session.id.String(), userID, now))

	return session, nil
}

// StoredAnswer is the persistence shape of one answer record
type StoredAnswer struct {
	Domain    string
	FieldRef  string
	Current   []string
	Committed []string
}

// ReconstructSession recreates a session from stored data without raising
// events
func ReconstructSession(id, userID string, answers []StoredAnswer, createdAt, updatedAt time.Time) (*Session, error) {
	if id == "" || userID == "" {
		return nil, errors.New("required fields missing for session reconstruction")
	}

	session := &Session{
		id:        SessionID(id),
		userID:    userID,
		answers:   make(map[answerKey]*AnswerRecord, len(answers)),
		createdAt: createdAt,
		updatedAt: updatedAt,
		version:   1,
		events:    []events.DomainEvent{},
	}

	for _, stored := range answers {
		domain, err := valueobjects.NewDomainCode(stored.Domain)
		if err != nil {
			return nil, err
		}
		field, err := valueobjects.NewFieldRef(stored.FieldRef)
		if err != nil {
			return nil, err
		}
		session.answers[answerKey{domain: domain, field: field}] = &AnswerRecord{
			Current:   valueobjects.NewMultiAnswerValue(stored.Current),
			Committed: valueobjects.NewMultiAnswerValue(stored.Committed),
		}
	}

	return session, nil
}

// ID returns the session's unique identifier
func (s *Session) ID() SessionID {
	return s.id
}

// UserID returns the owner's ID
func (s *Session) UserID() string {
	return s.userID
}

// CreatedAt returns when the session was opened
func (s *Session) CreatedAt() time.Time {
	return s.createdAt
}

// UpdatedAt returns when the session last changed
func (s *Session) UpdatedAt() time.Time {
	return s.updatedAt
}

// Get returns the current answer for a question, or the zero AnswerValue
// when nothing is stored
func (s *Session) Get(domain valueobjects.DomainCode, field valueobjects.FieldRef) valueobjects.AnswerValue {
	if rec, ok := s.answers[answerKey{domain: domain, field: field}]; ok {
		return rec.Current
	}
	return valueobjects.AnswerValue{}
}

// Committed returns the answer as of the last cascade pass
func (s *Session) Committed(domain valueobjects.DomainCode, field valueobjects.FieldRef) valueobjects.AnswerValue {
	if rec, ok := s.answers[answerKey{domain: domain, field: field}]; ok {
		return rec.Committed
	}
	return valueobjects.AnswerValue{}
}

// HasChanged reports whether a question's current value differs from its
// committed value
func (s *Session) HasChanged(domain valueobjects.DomainCode, field valueobjects.FieldRef) bool {
	rec, ok := s.answers[answerKey{domain: domain, field: field}]
	if !ok {
		return false
	}
	return !rec.Current.Equals(rec.Committed)
}

// Set stores a question's current value. It is the only mutator of answer
// state and never cascades by itself; the record-answer flow invokes the
// cascade after every user-driven Set, while cascade-internal clearing goes
// through Clear.
func (s *Session) Set(domain valueobjects.DomainCode, field valueobjects.FieldRef, value valueobjects.AnswerValue) error {
	if domain.IsZero() {
		return errors.New("domain required")
	}
	if field.IsZero() {
		return errors.New("field ref required")
	}

	key := answerKey{domain: domain, field: field}
	rec, ok := s.answers[key]
	if !ok {
		rec = &AnswerRecord{}
		s.answers[key] = rec
	}
	rec.Current = value
	s.touch()

	s.addEvent(events.NewAnswerRecorded(
		s.id.String(), domain.String(), field.String(), value.String(), s.updatedAt))

	return nil
}

// Clear wipes both the current and committed value of a question
func (s *Session) Clear(domain valueobjects.DomainCode, field valueobjects.FieldRef) {
	key := answerKey{domain: domain, field: field}
	if rec, ok := s.answers[key]; ok {
		rec.Current = valueobjects.AnswerValue{}
		rec.Committed = valueobjects.AnswerValue{}
		s.touch()
	}
}

// Commit records that the current value has been cascaded, closing the
// change-detection cycle for the next pass
func (s *Session) Commit(domain valueobjects.DomainCode, field valueobjects.FieldRef) {
	key := answerKey{domain: domain, field: field}
	rec, ok := s.answers[key]
	if !ok {
		return
	}
	rec.Committed = rec.Current
	s.touch()
}

// MarkCascaded raises the cascade event after descendant clearing
func (s *Session) MarkCascaded(domain valueobjects.DomainCode, trigger valueobjects.FieldRef, cleared []valueobjects.FieldRef) {
	refs := make([]string, 0, len(cleared))
	for _, c := range cleared {
		refs = append(refs, c.String())
	}
	s.addEvent(events.NewAnswersCascaded(
		s.id.String(), domain.String(), trigger.String(), refs, time.Now()))
}

// ResetDomain clears every answer of one domain
func (s *Session) ResetDomain(domain valueobjects.DomainCode) {
	for key, rec := range s.answers {
		if key.domain.Equals(domain) {
			rec.Current = valueobjects.AnswerValue{}
			rec.Committed = valueobjects.AnswerValue{}
		}
	}
	s.touch()
	s.addEvent(events.NewSessionReset(s.id.String(), domain.String(), s.updatedAt))
}

// ResetAll clears every answer of every domain
func (s *Session) ResetAll() {
	for _, rec := range s.answers {
		rec.Current = valueobjects.AnswerValue{}
		rec.Committed = valueobjects.AnswerValue{}
	}
	s.touch()
	s.addEvent(events.NewSessionReset(s.id.String(), "", s.updatedAt))
}

// StoredAnswers returns the persistence snapshot of all non-empty records,
// ordered deterministically
func (s *Session) StoredAnswers() []StoredAnswer {
	out := make([]StoredAnswer, 0, len(s.answers))
	for key, rec := range s.answers {
		if rec.Current.IsZero() && rec.Committed.IsZero() {
			continue
		}
		out = append(out, StoredAnswer{
			Domain:    key.domain.String(),
			FieldRef:  key.field.String(),
			Current:   rec.Current.Values(),
			Committed: rec.Committed.Values(),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Domain != out[j].Domain {
			return out[i].Domain < out[j].Domain
		}
		return out[i].FieldRef < out[j].FieldRef
	})
	return out
}

// AnsweredCount returns the number of questions holding a current value
func (s *Session) AnsweredCount() int {
	count := 0
	for _, rec := range s.answers {
		if !rec.Current.IsZero() {
			count++
		}
	}
	return count
}

// GetUncommittedEvents returns all uncommitted domain events
func (s *Session) GetUncommittedEvents() []events.DomainEvent {
	out := make([]events.DomainEvent, len(s.events))
	copy(out, s.events)
	return out
}

// MarkEventsAsCommitted clears all uncommitted events
func (s *Session) MarkEventsAsCommitted() {
	s.events = []events.DomainEvent{}
}

// Private helper methods

func (s *Session) addEvent(event events.DomainEvent) {
	s.events = append(s.events, event)
}

func (s *Session) touch() {
	s.updatedAt = time.Now()
	s.version++
}
