package scoring

import (
	"strings"

	"github.com/padalah/interviewflow/internal/model/interview"
)

// Assessment is the heuristic read of one candidate answer. All values are
// clamped to the feedback score bounds.
type Assessment struct {
	Score      int
	Clarity    int
	Structure  int
	Relevance  int
	Confidence int
}

// keywordBuckets rewards answers that touch the vocabulary an interviewer
// expects for the interview type. Matching is substring-based against the
// lowercased answer, the same way a screener skims for signal words.
var keywordBuckets = map[interview.InterviewType][]string{
	interview.TypeTechnical: {
		"complexity", "big-o", "o(n", "hash", "tree", "queue", "stack",
		"recursion", "iterate", "pointer", "index", "trade-off", "tradeoff",
		"edge case", "test", "memory", "binary search", "sort", "algorithm",
		"invariant", "worst case",
	},
	interview.TypeBehavioral: {
		"situation", "task", "action", "result", "team", "conflict",
		"deadline", "stakeholder", "feedback", "learned", "ownership",
		"mentored", "prioritize", "communicat", "collaborat", "impact",
		"mistake", "improve",
	},
	interview.TypeSystemDesign: {
		"scale", "shard", "partition", "cache", "load balancer", "queue",
		"replica", "consistency", "availability", "latency", "throughput",
		"bottleneck", "capacity", "failover", "cdn", "database", "index",
		"rate limit", "back-of-the-envelope",
	},
}

// fillerWords drag the confidence read down when they dominate an answer.
var fillerWords = []string{"um", "uh", "like,", "you know", "sort of", "kind of", "i guess", "maybe"}

var structureMarkers = []string{"first", "second", "then", "next", "finally", "because", "therefore", "so that", "for example"}

// Assess derives a heuristic score for a candidate answer. It is a keyword
// and shape read, not a rubric: length shaping plus vocabulary hits plus
// structure markers, clamped into the feedback bounds.
func Assess(interviewType interview.InterviewType, answer string) Assessment {
	normalized := strings.ToLower(strings.TrimSpace(answer))
	if normalized == "" {
		return clampAll(Assessment{Score: interview.ScoreMin})
	}

	words := len(strings.Fields(normalized))
	base := lengthScore(words)

	relevance := 40
	hits := 0
	for _, word := range keywordBuckets[interviewType] {
		if strings.Contains(normalized, word) {
			hits++
		}
	}
	relevance += hits * 8

	structure := 40
	for _, marker := range structureMarkers {
		if strings.Contains(normalized, marker) {
			structure += 6
		}
	}

	confidence := 60
	for _, filler := range fillerWords {
		confidence -= strings.Count(normalized, filler) * 5
	}
	if strings.HasSuffix(strings.TrimSpace(answer), "?") {
		// An answer that ends in a question reads as hedging.
		confidence -= 10
	}

	clarity := base
	if words > 0 && hits > 0 {
		clarity += 10
	}

	score := (base + relevance + structure + confidence + clarity) / 5

	return clampAll(Assessment{
		Score:      score,
		Clarity:    clarity,
		Structure:  structure,
		Relevance:  relevance,
		Confidence: confidence,
	})
}

// lengthScore rewards substantive answers and flattens out past the point
// where more words stop adding information.
func lengthScore(words int) int {
	switch {
	case words < 5:
		return 20
	case words < 20:
		return 45
	case words < 60:
		return 65
	case words < 150:
		return 75
	default:
		return 70
	}
}

func clampAll(a Assessment) Assessment {
	a.Score = interview.ClampScore(a.Score)
	a.Clarity = interview.ClampScore(a.Clarity)
	a.Structure = interview.ClampScore(a.Structure)
	a.Relevance = interview.ClampScore(a.Relevance)
	a.Confidence = interview.ClampScore(a.Confidence)
	return a
}
