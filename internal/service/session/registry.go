package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/padalah/interviewflow/internal/metrics"
	"github.com/padalah/interviewflow/internal/model/interview"
)

var (
	ErrSessionNotFound      = errors.New("session not found")
	ErrSessionCompleted     = errors.New("session already completed")
	ErrInvalidInterviewType = errors.New("invalid interview type")
	ErrInvalidPlanTier      = errors.New("invalid plan tier")
)

// sessionIDLength is the number of hex characters kept from the hashed seed.
const sessionIDLength = 32

// Registry owns every in-memory interview session. All mutation goes through
// its methods; callers only ever see deep copies. It is the explicit state
// container injected from main, not an ambient global.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*interview.Session
}

// NewRegistry bootstraps an empty in-memory registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*interview.Session),
	}
}

// CreateParams carries the validated-at-the-edge inputs for a new session.
// Document fields are expected to be sanitized by the caller.
type CreateParams struct {
	InterviewType  interview.InterviewType
	PlanTier       interview.PlanTier
	ResumeText     string
	JobDescription string
	CompanyCulture string
}

// Create provisions a session in status "setup" with an unpredictable
// identifier. Concurrent creations never collide: the identifier is re-rolled
// under the lock in the (practically unreachable) case it already exists.
func (r *Registry) Create(_ context.Context, p CreateParams) (interview.Session, error) {
	if !p.InterviewType.Valid() {
		return interview.Session{}, ErrInvalidInterviewType
	}
	if !p.PlanTier.Valid() {
		return interview.Session{}, ErrInvalidPlanTier
	}

	s := &interview.Session{
		InterviewType:  p.InterviewType,
		PlanTier:       p.PlanTier,
		Status:         interview.StatusSetup,
		Messages:       make([]interview.Message, 0, 16),
		Feedback:       make([]interview.Feedback, 0, 8),
		ResumeText:     p.ResumeText,
		JobDescription: p.JobDescription,
		CompanyCulture: p.CompanyCulture,
		CreatedAt:      time.Now().UTC(),
	}

	r.mu.Lock()
	for {
		s.ID = newSessionID()
		if _, exists := r.sessions[s.ID]; !exists {
			break
		}
	}
	r.sessions[s.ID] = s
	r.mu.Unlock()

	metrics.SessionsCreated.Inc()
	return cloneSession(s), nil
}

// Get retrieves a deep copy of a session by identifier.
func (r *Registry) Get(_ context.Context, sessionID string) (interview.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		return interview.Session{}, ErrSessionNotFound
	}
	return cloneSession(s), nil
}

// Activate moves a session from setup to active on channel handshake.
// Activating an already-active session is a no-op; completed sessions cannot
// be re-attached.
func (r *Registry) Activate(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		return ErrSessionNotFound
	}
	if s.Status == interview.StatusCompleted {
		return ErrSessionCompleted
	}
	s.Status = interview.StatusActive
	return nil
}

// End marks a session completed and stamps EndedAt. It is idempotent: only
// the first call records the end time.
func (r *Registry) End(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		return ErrSessionNotFound
	}
	if s.Status == interview.StatusCompleted {
		return nil
	}
	s.Status = interview.StatusCompleted
	now := time.Now().UTC()
	s.EndedAt = &now
	return nil
}

// Upgrade flips the session's plan tier to premium.
func (r *Registry) Upgrade(_ context.Context, sessionID string) (interview.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		return interview.Session{}, ErrSessionNotFound
	}
	s.PlanTier = interview.TierPremium
	return cloneSession(s), nil
}

// AppendMessage records a transcript turn and returns the stored message.
func (r *Registry) AppendMessage(_ context.Context, sessionID string, speaker interview.Speaker, content string) (interview.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		return interview.Message{}, ErrSessionNotFound
	}

	msg := interview.Message{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Speaker:   speaker,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	s.Messages = append(s.Messages, msg)
	return msg, nil
}

// AppendFeedback records a generated feedback entry.
func (r *Registry) AppendFeedback(_ context.Context, sessionID string, fb interview.Feedback) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		return ErrSessionNotFound
	}
	if fb.CreatedAt.IsZero() {
		fb.CreatedAt = time.Now().UTC()
	}
	s.Feedback = append(s.Feedback, fb)
	return nil
}

// Transcript returns a copy of the stored messages for a session.
func (r *Registry) Transcript(_ context.Context, sessionID string) ([]interview.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	out := make([]interview.Message, len(s.Messages))
	copy(out, s.Messages)
	return out, nil
}

// Count returns the number of sessions held in memory.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// ActiveCount returns the number of sessions currently in status active.
func (r *Registry) ActiveCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, s := range r.sessions {
		if s.Status == interview.StatusActive {
			n++
		}
	}
	return n
}

// newSessionID derives an identifier from a time component plus
// cryptographic-quality randomness, hashed so it cannot be enumerated.
func newSessionID() string {
	seed := fmt.Sprintf("%d:%s", time.Now().UnixNano(), uuid.NewString())
	sum := sha256.Sum256([]byte(seed))
	return hex.EncodeToString(sum[:])[:sessionIDLength]
}

func cloneSession(s *interview.Session) interview.Session {
	out := *s
	out.Messages = make([]interview.Message, len(s.Messages))
	copy(out.Messages, s.Messages)
	out.Feedback = make([]interview.Feedback, len(s.Feedback))
	copy(out.Feedback, s.Feedback)
	if s.EndedAt != nil {
		ended := *s.EndedAt
		out.EndedAt = &ended
	}
	return out
}
