package aggregates_test

import (
	"testing"
	"time"

	"referral-backend/domain/core/aggregates"
	"referral-backend/domain/core/valueobjects"
	"referral-backend/domain/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_Creation(t *testing.T) {
	// Act
	session, err := aggregates.NewSession("user-123")

	// Assert
	require.NoError(t, err)
	assert.NotEmpty(t, session.ID().String())
	assert.Equal(t, "user-123", session.UserID())
	assert.Zero(t, session.AnsweredCount())

	uncommitted := session.GetUncommittedEvents()
	require.Len(t, uncommitted, 1)
	assert.Equal(t, "session.started", uncommitted[0].GetEventType())
}

func TestSession_CreationRequiresUserID(t *testing.T) {
	_, err := aggregates.NewSession("")
	assert.Error(t, err)
}

func TestSession_WithCallerSuppliedID(t *testing.T) {
	session, err := aggregates.NewSessionWithID("client-chosen-id", "user-123")
	require.NoError(t, err)
	assert.Equal(t, "client-chosen-id", session.ID().String())

	// An empty ID falls back to a generated one.
	session, err = aggregates.NewSessionWithID("", "user-123")
	require.NoError(t, err)
	assert.NotEmpty(t, session.ID().String())
}

func TestSession_SetAndGet(t *testing.T) {
	session, err := aggregates.NewSession("user-123")
	require.NoError(t, err)
	domain := mustDomain(t, "safeguarding")
	field := mustFieldRef(t, "A")

	// Act
	err = session.Set(domain, field, valueobjects.NewAnswerValue("Yes"))

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "Yes", session.Get(domain, field).String())
	assert.True(t, session.Committed(domain, field).IsZero())
	assert.True(t, session.HasChanged(domain, field))
	assert.Equal(t, 1, session.AnsweredCount())
}

func TestSession_SetRequiresDomainAndField(t *testing.T) {
	session, err := aggregates.NewSession("user-123")
	require.NoError(t, err)

	err = session.Set(valueobjects.DomainCode{}, mustFieldRef(t, "A"), valueobjects.NewAnswerValue("Yes"))
	assert.Error(t, err)

	err = session.Set(mustDomain(t, "safeguarding"), valueobjects.FieldRef{}, valueobjects.NewAnswerValue("Yes"))
	assert.Error(t, err)
}

func TestSession_CommitClosesChangeCycle(t *testing.T) {
	session, err := aggregates.NewSession("user-123")
	require.NoError(t, err)
	domain := mustDomain(t, "safeguarding")
	field := mustFieldRef(t, "A")

	require.NoError(t, session.Set(domain, field, valueobjects.NewAnswerValue("Yes")))
	session.Commit(domain, field)

	assert.False(t, session.HasChanged(domain, field))
	assert.Equal(t, "Yes", session.Committed(domain, field).String())

	// Re-setting the same value keeps the record unchanged.
	require.NoError(t, session.Set(domain, field, valueobjects.NewAnswerValue("Yes")))
	assert.False(t, session.HasChanged(domain, field))

	// A different value re-opens the cycle.
	require.NoError(t, session.Set(domain, field, valueobjects.NewAnswerValue("No")))
	assert.True(t, session.HasChanged(domain, field))
}

func TestSession_ClearWipesBothValues(t *testing.T) {
	session, err := aggregates.NewSession("user-123")
	require.NoError(t, err)
	domain := mustDomain(t, "safeguarding")
	field := mustFieldRef(t, "A")

	require.NoError(t, session.Set(domain, field, valueobjects.NewAnswerValue("Yes")))
	session.Commit(domain, field)

	session.Clear(domain, field)

	assert.True(t, session.Get(domain, field).IsZero())
	assert.True(t, session.Committed(domain, field).IsZero())
	assert.False(t, session.HasChanged(domain, field))
	assert.Zero(t, session.AnsweredCount())
}

func TestSession_ResetDomainLeavesOtherDomainsAlone(t *testing.T) {
	session, err := aggregates.NewSession("user-123")
	require.NoError(t, err)
	safeguarding := mustDomain(t, "safeguarding")
	fire := mustDomain(t, "fire")
	field := mustFieldRef(t, "A")

	require.NoError(t, session.Set(safeguarding, field, valueobjects.NewAnswerValue("Yes")))
	require.NoError(t, session.Set(fire, field, valueobjects.NewAnswerValue("No")))

	session.ResetDomain(safeguarding)

	assert.True(t, session.Get(safeguarding, field).IsZero())
	assert.Equal(t, "No", session.Get(fire, field).String())
}

func TestSession_ResetAll(t *testing.T) {
	session, err := aggregates.NewSession("user-123")
	require.NoError(t, err)
	safeguarding := mustDomain(t, "safeguarding")
	fire := mustDomain(t, "fire")

	require.NoError(t, session.Set(safeguarding, mustFieldRef(t, "A"), valueobjects.NewAnswerValue("Yes")))
	require.NoError(t, session.Set(fire, mustFieldRef(t, "B"), valueobjects.NewAnswerValue("No")))

	session.ResetAll()

	assert.Zero(t, session.AnsweredCount())
}

func TestSession_StoredAnswersRoundTrip(t *testing.T) {
	session, err := aggregates.NewSession("user-123")
	require.NoError(t, err)
	domain := mustDomain(t, "safeguarding")

	require.NoError(t, session.Set(domain, mustFieldRef(t, "B"), valueobjects.NewMultiAnswerValue([]string{"Bruising", "Burns"})))
	require.NoError(t, session.Set(domain, mustFieldRef(t, "A"), valueobjects.NewAnswerValue("Yes")))
	session.Commit(domain, mustFieldRef(t, "A"))

	stored := session.StoredAnswers()
	require.Len(t, stored, 2)
	// Deterministic order: by domain, then field ref.
	assert.Equal(t, "A", stored[0].FieldRef)
	assert.Equal(t, "B", stored[1].FieldRef)
	assert.Equal(t, []string{"Yes"}, stored[0].Current)
	assert.Equal(t, []string{"Yes"}, stored[0].Committed)

	restored, err := aggregates.ReconstructSession(
		session.ID().String(), session.UserID(), stored,
		session.CreatedAt(), session.UpdatedAt(),
	)
	require.NoError(t, err)
	assert.Empty(t, restored.GetUncommittedEvents())
	assert.Equal(t, "Yes", restored.Get(domain, mustFieldRef(t, "A")).String())
	assert.Equal(t, []string{"Bruising", "Burns"}, restored.Get(domain, mustFieldRef(t, "B")).Values())
	assert.False(t, restored.HasChanged(domain, mustFieldRef(t, "A")))
	assert.True(t, restored.HasChanged(domain, mustFieldRef(t, "B")))
}

func TestSession_ReconstructRequiresIdentity(t *testing.T) {
	_, err := aggregates.ReconstructSession("", "user-123", nil, time.Now(), time.Now())
	assert.Error(t, err)

	_, err = aggregates.ReconstructSession("session-1", "", nil, time.Now(), time.Now())
	assert.Error(t, err)
}

func TestSession_EventTrail(t *testing.T) {
	session, err := aggregates.NewSession("user-123")
	require.NoError(t, err)
	domain := mustDomain(t, "safeguarding")
	field := mustFieldRef(t, "A")

	require.NoError(t, session.Set(domain, field, valueobjects.NewAnswerValue("Yes")))
	session.MarkCascaded(domain, field, []valueobjects.FieldRef{mustFieldRef(t, "B")})

	uncommitted := session.GetUncommittedEvents()
	require.Len(t, uncommitted, 3)
	assert.Equal(t, "session.started", uncommitted[0].GetEventType())
	assert.Equal(t, "session.answer_recorded", uncommitted[1].GetEventType())

	cascaded, ok := uncommitted[2].(events.AnswersCascaded)
	require.True(t, ok)
	assert.Equal(t, "A", cascaded.Trigger)
	assert.Equal(t, []string{"B"}, cascaded.Cleared)

	session.MarkEventsAsCommitted()
	assert.Empty(t, session.GetUncommittedEvents())
}
