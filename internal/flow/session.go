package flow

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultSessionTTL bounds how long an untouched prompt stays live.
const DefaultSessionTTL = 15 * time.Minute

// Session is one actor's live flow instance.
type Session struct {
	ID        string    `json:"id"`
	ActorID   string    `json:"actor_id"`
	State     State     `json:"state"`
	Category  Category  `json:"category,omitempty"`
	StartedAt time.Time `json:"started_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store tracks the live flow instance of each actor. One actor has at most
// one live instance; starting a new one replaces the previous.
type Store struct {
	ttl time.Duration
	now func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session // actorID → session
}

// NewStore creates a session store. ttl <= 0 uses DefaultSessionTTL.
func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Store{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// TTL returns the session time-to-live.
func (s *Store) TTL() time.Duration { return s.ttl }

// Begin starts a new flow instance for the actor at AwaitingFaqConfirmation.
func (s *Store) Begin(actorID string) Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.beginLocked(actorID)
}

func (s *Store) beginLocked(actorID string) Session {
	now := s.now()
	sess := &Session{
		ID:        uuid.NewString(),
		ActorID:   actorID,
		State:     AwaitingFaqConfirmation,
		StartedAt: now,
		UpdatedAt: now,
	}
	s.sessions[actorID] = sess
	return *sess
}

// Get returns the actor's live session. Expired sessions are reported absent.
func (s *Store) Get(actorID string) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.liveLocked(actorID)
	if !ok {
		return Session{}, false
	}
	return *sess, true
}

// Step applies a to the actor's live flow instance and commits the result
// before returning, so concurrent duplicate presses of the same control
// see the already-advanced state. flowID is the id carried by the pressed
// control; a mismatch with the live instance means a stale prompt.
// Terminal transitions end the session.
func (s *Store) Step(actorID, flowID string, a Action) (Transition, Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a.Kind == ActionOpenTicket {
		current := Idle
		if sess, ok := s.liveLocked(actorID); ok {
			current = sess.State
		}
		t, _ := Next(current, a)
		return t, s.beginLocked(actorID), nil
	}

	current := Idle
	sess, ok := s.liveLocked(actorID)
	if ok {
		if flowID != "" && flowID != sess.ID {
			return Transition{}, Session{}, fmt.Errorf("%w: stale prompt %s (live %s)", ErrUnrecognizedAction, flowID, sess.ID)
		}
		current = sess.State
	}

	t, err := Next(current, a)
	if err != nil {
		return Transition{}, Session{}, err
	}

	sess.State = t.Next
	sess.UpdatedAt = s.now()
	if a.Kind == ActionCategory {
		sess.Category = a.Category
	}
	snapshot := *sess
	if t.Next.Terminal() {
		delete(s.sessions, actorID)
	}
	return t, snapshot, nil
}

// End discards the actor's session, if any.
func (s *Store) End(actorID string) {
	s.mu.Lock()
	delete(s.sessions, actorID)
	s.mu.Unlock()
}

// Sweep evicts expired sessions and returns how many were removed.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := s.now().Add(-s.ttl)
	n := 0
	for id, sess := range s.sessions {
		if sess.UpdatedAt.Before(cutoff) {
			delete(s.sessions, id)
			n++
		}
	}
	return n
}

// Len returns the number of live (unexpired) sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := s.now().Add(-s.ttl)
	n := 0
	for _, sess := range s.sessions {
		if !sess.UpdatedAt.Before(cutoff) {
			n++
		}
	}
	return n
}

func (s *Store) liveLocked(actorID string) (*Session, bool) {
	sess, ok := s.sessions[actorID]
	if !ok {
		return nil, false
	}
	if sess.UpdatedAt.Before(s.now().Add(-s.ttl)) {
		delete(s.sessions, actorID)
		return nil, false
	}
	return sess, true
}
