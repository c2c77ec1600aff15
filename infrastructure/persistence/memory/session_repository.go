package memory

import (
	"context"
	"sync"
	"time"

	"referral-backend/application/ports"
	"referral-backend/domain/core/aggregates"
	appErrors "referral-backend/pkg/errors"
)

// SessionRepository is an in-memory SessionRepository used for local runs
// and tests. Sessions are stored by snapshot, so callers always get an
// independent aggregate back.
type SessionRepository struct {
	mu       sync.RWMutex
	sessions map[aggregates.SessionID]sessionRecord
}

type sessionRecord struct {
	userID    string
	answers   []aggregates.StoredAnswer
	createdAt time.Time
	updatedAt time.Time
}

// NewSessionRepository creates an in-memory session repository
func NewSessionRepository() ports.SessionRepository {
	return &SessionRepository{
		sessions: make(map[aggregates.SessionID]sessionRecord),
	}
}

// Save persists a session
func (r *SessionRepository) Save(ctx context.Context, session *aggregates.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[session.ID()] = sessionRecord{
		userID:    session.UserID(),
		answers:   session.StoredAnswers(),
		createdAt: session.CreatedAt(),
		updatedAt: session.UpdatedAt(),
	}
	return nil
}

// GetByID retrieves a session by its ID
func (r *SessionRepository) GetByID(ctx context.Context, id aggregates.SessionID) (*aggregates.Session, error) {
	r.mu.RLock()
	rec, ok := r.sessions[id]
	r.mu.RUnlock()

	if !ok {
		return nil, appErrors.NewNotFoundError("session " + id.String())
	}
	return aggregates.ReconstructSession(id.String(), rec.userID, rec.answers, rec.createdAt, rec.updatedAt)
}

// GetByUserID retrieves all sessions for a user
func (r *SessionRepository) GetByUserID(ctx context.Context, userID string) ([]*aggregates.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*aggregates.Session
	for id, rec := range r.sessions {
		if rec.userID != userID {
			continue
		}
		session, err := aggregates.ReconstructSession(id.String(), rec.userID, rec.answers, rec.createdAt, rec.updatedAt)
		if err != nil {
			return nil, err
		}
		out = append(out, session)
	}
	return out, nil
}

// Delete removes a session
func (r *SessionRepository) Delete(ctx context.Context, id aggregates.SessionID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[id]; !ok {
		return appErrors.NewNotFoundError("session " + id.String())
	}
	delete(r.sessions, id)
	return nil
}
