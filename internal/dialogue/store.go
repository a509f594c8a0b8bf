package dialogue

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/physitutor/backend/internal/models"
)

// Session holds the mutable per-session tutoring state. The pointer is
// an index into the question's step sequence; it only moves forward.
// All mutation happens under the session's own lock, one lock per
// session, never a global one.
type Session struct {
	mu sync.Mutex

	ID         string
	QuestionID string
	StudentID  string
	Status     models.SessionStatus
	CreatedAt  time.Time

	stepIndex    int
	stepIDs      []int
	totalSteps   int
	correctCount int
	retryCount   int
	totalRetries int
	// attempts maps step id to the attempt number of the next
	// submission to that step. Starts at 1 when the step is reached
	// and increments on each incorrect submission.
	attempts map[int]int
}

// currentStepID returns the id of the step at the pointer, or 0 when
// the pointer has passed the final step. Callers hold s.mu.
func (s *Session) currentStepID() int {
	if s.stepIndex >= len(s.stepIDs) {
		return 0
	}
	return s.stepIDs[s.stepIndex]
}

// Snapshot returns the session's externally visible state.
func (s *Session) Snapshot() models.SessionResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.SessionResponse{
		SessionID:     s.ID,
		QuestionID:    s.QuestionID,
		CurrentStepID: s.currentStepID(),
		Status:        s.Status,
		TotalSteps:    s.totalSteps,
		CreatedAt:     s.CreatedAt,
	}
}

// AttemptCount returns the tracked attempt counter for a step id.
func (s *Session) AttemptCount(stepID int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts[stepID]
}

// Store is the keyed registry of active sessions. It is constructed
// once per process and injected into handlers so tests can instantiate
// isolated stores.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewStore() *Store {
	return &Store{sessions: make(map[string]*Session)}
}

// Create registers a new session at the first step of the question.
// IDs come from a UUID so collisions are structurally prevented rather
// than checked after the fact.
func (st *Store) Create(q *models.Question, studentID string) *Session {
	stepIDs := make([]int, len(q.Steps))
	for i := range q.Steps {
		stepIDs[i] = q.Steps[i].ID
	}

	sess := &Session{
		ID:         "sess_" + uuid.NewString(),
		QuestionID: q.ID,
		StudentID:  studentID,
		Status:     models.SessionActive,
		CreatedAt:  time.Now(),
		stepIndex:  0,
		stepIDs:    stepIDs,
		totalSteps: len(q.Steps),
		attempts:   make(map[int]int),
	}

	st.mu.Lock()
	st.sessions[sess.ID] = sess
	st.mu.Unlock()
	return sess
}

// Get returns the session for an issued id, ended sessions included.
func (st *Store) Get(id string) (*Session, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	sess, ok := st.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// Len returns the number of sessions ever issued and still held.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}
