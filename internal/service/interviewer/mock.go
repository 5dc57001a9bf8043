package interviewer

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/padalah/interviewflow/internal/analysis/scoring"
	"github.com/padalah/interviewflow/internal/model/interview"
)

var greetings = map[interview.InterviewType]string{
	interview.TypeTechnical:    "Welcome to your technical interview. Let's start with a warm-up: tell me about a piece of code you are proud of, and we'll dig into data structures from there.",
	interview.TypeBehavioral:   "Welcome to your behavioral interview. I'd like to hear about real situations you've handled, so feel free to answer with concrete stories.",
	interview.TypeSystemDesign: "Welcome to your system design interview. We'll sketch a system together; think out loud about requirements before you reach for components.",
}

var questionPools = map[interview.InterviewType][]string{
	interview.TypeTechnical: {
		"How would you detect a cycle in a linked list, and what's the complexity of your approach?",
		"Given a stream of integers, how would you keep track of the running median?",
		"Walk me through how a hash map handles collisions.",
		"When would you pick a sorted array over a balanced tree, and why?",
		"How would you find the first non-repeating character in a very large string?",
		"What happens under the hood when a dynamic array runs out of capacity?",
	},
	interview.TypeBehavioral: {
		"Tell me about a time you disagreed with a teammate. How was it resolved?",
		"Describe a project where the requirements changed late. What did you do?",
		"When did you last miss a deadline, and what did you learn from it?",
		"Tell me about a piece of critical feedback you received and how you acted on it.",
		"Describe a situation where you had to make a decision without your manager.",
		"Tell me about a time you helped a struggling colleague.",
	},
	interview.TypeSystemDesign: {
		"Design a URL shortener. Where does it break first at a hundred million requests a day?",
		"How would you design the backend for a ride-hailing app's live map?",
		"Sketch a rate limiter service shared by dozens of internal teams.",
		"Design a news feed. How do you keep tail latency down for users with thousands of follows?",
		"How would you store and serve user sessions for a globally deployed web app?",
		"Design a metrics pipeline that survives a region outage.",
	},
}

var followUps = []string{
	"Interesting. %s",
	"Good, let's build on that. %s",
	"That makes sense. Next question: %s",
	"Noted. Let me push a bit further: %s",
	"Alright. Shifting gears slightly: %s",
}

// premiumProbes are only asked on the premium tier, after the canned
// follow-up, to make the upgrade visibly change the dialogue.
var premiumProbes = []string{
	" Also, what trade-offs did you consider before settling on that?",
	" And how would you validate that under production load?",
	" If you had to cut scope, what would you drop first?",
}

var feedbackByBand = []struct {
	floor int
	lines []string
}{
	{80, []string{
		"Strong answer: clear structure and the right vocabulary for the problem.",
		"That was a well-organized answer; you anticipated the follow-up before I asked it.",
	}},
	{60, []string{
		"Solid answer. Tighten the opening and lead with your conclusion.",
		"Good substance, though the structure wandered in the middle.",
	}},
	{40, []string{
		"You touched the right areas but stayed too abstract; ground it in a concrete example.",
		"Partial credit: the core idea was there, the reasoning around it was thin.",
	}},
	{0, []string{
		"That answer needs work: start with the situation, then walk through your reasoning step by step.",
		"Too brief to assess well. Take the time to structure a full answer.",
	}},
}

var suggestionPool = []string{
	"Lead with a one-sentence summary before diving into detail.",
	"Quantify your impact: numbers make answers memorable.",
	"Name the trade-off you rejected, not just the one you chose.",
	"Pause instead of using filler words.",
	"Close each answer by checking whether it addressed the question.",
	"Practice the STAR structure until it is automatic.",
}

// MockEngine stands in for a real dialogue model: canned pools, uniform
// random selection, and an artificial delay to simulate inference latency.
type MockEngine struct {
	mu  sync.Mutex
	rng *rand.Rand

	minLatency time.Duration
	maxLatency time.Duration
}

// NewMockEngine creates the mock with its production latency simulation.
func NewMockEngine() *MockEngine {
	return newMockEngine(400*time.Millisecond, 900*time.Millisecond)
}

func newMockEngine(minLatency, maxLatency time.Duration) *MockEngine {
	return &MockEngine{
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
		minLatency: minLatency,
		maxLatency: maxLatency,
	}
}

// Greeting returns the canned opener for the interview type.
func (e *MockEngine) Greeting(interviewType interview.InterviewType) string {
	if g, ok := greetings[interviewType]; ok {
		return g
	}
	return "Welcome to your interview. Let's begin."
}

// Respond picks the next question from the type's pool, wrapped in a
// follow-up phrasing once the conversation is underway.
func (e *MockEngine) Respond(ctx context.Context, interviewType interview.InterviewType, tier interview.PlanTier, history []interview.Message, userText string) (string, error) {
	if err := e.simulateLatency(ctx); err != nil {
		return "", err
	}

	pool := questionPools[interviewType]
	if len(pool) == 0 {
		pool = questionPools[interview.TypeBehavioral]
	}

	e.mu.Lock()
	question := pool[e.rng.Intn(len(pool))]
	wrap := followUps[e.rng.Intn(len(followUps))]
	probe := premiumProbes[e.rng.Intn(len(premiumProbes))]
	e.mu.Unlock()

	response := question
	if len(history) > 0 {
		response = fmt.Sprintf(wrap, question)
	}
	if tier == interview.TierPremium {
		response += probe
	}
	return response, nil
}

// Feedback scores the answer with the keyword heuristic plus jitter. The
// free tier gets score and content only; premium adds the breakdown and
// suggestions.
func (e *MockEngine) Feedback(ctx context.Context, interviewType interview.InterviewType, tier interview.PlanTier, answer string) (interview.Feedback, error) {
	if err := e.simulateLatency(ctx); err != nil {
		return interview.Feedback{}, err
	}

	assessment := scoring.Assess(interviewType, answer)

	e.mu.Lock()
	jitter := e.rng.Intn(11) - 5
	suggestions := e.pickSuggestions(2 + e.rng.Intn(2))
	e.mu.Unlock()

	score := interview.ClampScore(assessment.Score + jitter)
	fb := interview.Feedback{
		Score:     score,
		Content:   contentForScore(score),
		CreatedAt: time.Now().UTC(),
	}

	if tier == interview.TierPremium {
		fb.Breakdown = &interview.Breakdown{
			Clarity:    assessment.Clarity,
			Structure:  assessment.Structure,
			Relevance:  assessment.Relevance,
			Confidence: assessment.Confidence,
		}
		fb.Suggestions = suggestions
	}
	return fb, nil
}

// pickSuggestions draws n distinct suggestions. Caller must hold e.mu.
func (e *MockEngine) pickSuggestions(n int) []string {
	perm := e.rng.Perm(len(suggestionPool))
	if n > len(perm) {
		n = len(perm)
	}
	out := make([]string, 0, n)
	for _, idx := range perm[:n] {
		out = append(out, suggestionPool[idx])
	}
	return out
}

func contentForScore(score int) string {
	for _, band := range feedbackByBand {
		if score >= band.floor {
			return band.lines[score%len(band.lines)]
		}
	}
	return feedbackByBand[len(feedbackByBand)-1].lines[0]
}

// simulateLatency sleeps for a random duration in the configured range,
// bailing out early if the context is canceled.
func (e *MockEngine) simulateLatency(ctx context.Context) error {
	if e.maxLatency <= 0 {
		return ctx.Err()
	}

	e.mu.Lock()
	spread := e.maxLatency - e.minLatency
	delay := e.minLatency
	if spread > 0 {
		delay += time.Duration(e.rng.Int63n(int64(spread)))
	}
	e.mu.Unlock()

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
