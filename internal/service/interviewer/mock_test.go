package interviewer

import (
	"context"
	"testing"
	"time"

	"github.com/padalah/interviewflow/internal/model/interview"
)

func fastEngine() *MockEngine {
	return newMockEngine(0, 0)
}

func TestNewSelectsMock(t *testing.T) {
	e, err := New("mock")
	if err != nil {
		t.Fatalf("New err: %v", err)
	}
	if _, ok := e.(*MockEngine); !ok {
		t.Fatalf("expected *MockEngine, got %T", e)
	}

	if _, err := New(""); err != nil {
		t.Fatalf("empty name should default to mock, got %v", err)
	}

	if _, err := New("gpt-5"); err == nil {
		t.Fatal("expected error for unknown engine name")
	}
}

func TestGreetingPerType(t *testing.T) {
	e := fastEngine()
	for _, it := range []interview.InterviewType{interview.TypeTechnical, interview.TypeBehavioral, interview.TypeSystemDesign} {
		if e.Greeting(it) == "" {
			t.Fatalf("empty greeting for %s", it)
		}
	}
	if e.Greeting("unknown") == "" {
		t.Fatal("expected fallback greeting for unknown type")
	}
}

func TestRespondReturnsQuestionFromPool(t *testing.T) {
	e := fastEngine()
	ctx := context.Background()

	text, err := e.Respond(ctx, interview.TypeTechnical, interview.TierFree, nil, "hello")
	if err != nil {
		t.Fatalf("Respond err: %v", err)
	}
	if text == "" {
		t.Fatal("expected non-empty response")
	}

	history := []interview.Message{{Speaker: interview.SpeakerCandidate, Content: "prior answer"}}
	followUp, err := e.Respond(ctx, interview.TypeTechnical, interview.TierFree, history, "another answer")
	if err != nil {
		t.Fatalf("Respond err: %v", err)
	}
	if followUp == "" {
		t.Fatal("expected non-empty follow-up")
	}
}

func TestRespondHonorsCancellation(t *testing.T) {
	e := newMockEngine(5*time.Second, 10*time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := e.Respond(ctx, interview.TypeTechnical, interview.TierFree, nil, "hello"); err == nil {
		t.Fatal("expected context error from canceled Respond")
	}
}

func TestFeedbackFreeTierOmitsDetail(t *testing.T) {
	e := fastEngine()

	fb, err := e.Feedback(context.Background(), interview.TypeTechnical, interview.TierFree, "I would use a hash map and test the edge case")
	if err != nil {
		t.Fatalf("Feedback err: %v", err)
	}
	if fb.Score < interview.ScoreMin || fb.Score > interview.ScoreMax {
		t.Fatalf("score out of bounds: %d", fb.Score)
	}
	if fb.Content == "" {
		t.Fatal("expected non-empty feedback content")
	}
	if fb.Breakdown != nil {
		t.Fatal("free tier must not include a breakdown")
	}
	if len(fb.Suggestions) != 0 {
		t.Fatal("free tier must not include suggestions")
	}
}

func TestFeedbackPremiumTierIncludesDetail(t *testing.T) {
	e := fastEngine()

	fb, err := e.Feedback(context.Background(), interview.TypeBehavioral, interview.TierPremium, "The situation demanded action and the result was a win for the team")
	if err != nil {
		t.Fatalf("Feedback err: %v", err)
	}
	if fb.Breakdown == nil {
		t.Fatal("premium tier must include a breakdown")
	}
	for name, v := range map[string]int{
		"clarity": fb.Breakdown.Clarity, "structure": fb.Breakdown.Structure,
		"relevance": fb.Breakdown.Relevance, "confidence": fb.Breakdown.Confidence,
	} {
		if v < interview.ScoreMin || v > interview.ScoreMax {
			t.Fatalf("%s out of bounds: %d", name, v)
		}
	}
	if len(fb.Suggestions) < 2 || len(fb.Suggestions) > 3 {
		t.Fatalf("unexpected suggestion count: %d", len(fb.Suggestions))
	}
}

func TestFeedbackScoreStaysBoundedUnderJitter(t *testing.T) {
	e := fastEngine()
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		fb, err := e.Feedback(ctx, interview.TypeTechnical, interview.TierFree, "")
		if err != nil {
			t.Fatalf("Feedback err: %v", err)
		}
		if fb.Score < interview.ScoreMin || fb.Score > interview.ScoreMax {
			t.Fatalf("score out of bounds on iteration %d: %d", i, fb.Score)
		}
	}
}
