package interviewer

import (
	"context"
	"fmt"

	"github.com/padalah/interviewflow/internal/model/interview"
)

// Engine produces interviewer dialogue and feedback. Transport code only
// talks to this interface; a model-backed implementation can replace the
// mock without touching the HTTP or channel layers.
type Engine interface {
	// Greeting returns the opening line for a fresh session.
	Greeting(interviewType interview.InterviewType) string
	// Respond produces the interviewer's next turn given the conversation
	// so far and the candidate's latest answer.
	Respond(ctx context.Context, interviewType interview.InterviewType, tier interview.PlanTier, history []interview.Message, userText string) (string, error)
	// Feedback assesses one candidate answer. Premium sessions receive a
	// breakdown and suggestions in addition to the score.
	Feedback(ctx context.Context, interviewType interview.InterviewType, tier interview.PlanTier, answer string) (interview.Feedback, error)
}

// New selects an engine implementation by name. "mock" is the only
// implementation today; the switch is where a real model integration would
// be registered.
func New(name string) (Engine, error) {
	switch name {
	case "", "mock":
		return NewMockEngine(), nil
	default:
		return nil, fmt.Errorf("unknown interviewer engine %q", name)
	}
}
