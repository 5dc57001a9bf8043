package interview

import "time"

// Score bounds for feedback and breakdown values.
const (
	ScoreMin = 0
	ScoreMax = 100
)

// Breakdown holds premium-only per-dimension sub-scores.
type Breakdown struct {
	Clarity    int `json:"clarity"`
	Structure  int `json:"structure"`
	Relevance  int `json:"relevance"`
	Confidence int `json:"confidence"`
}

// Feedback is one generated assessment of a candidate answer. Breakdown and
// Suggestions are only populated for premium sessions.
type Feedback struct {
	Score       int        `json:"score"`
	Content     string     `json:"content"`
	Breakdown   *Breakdown `json:"breakdown,omitempty"`
	Suggestions []string   `json:"suggestions,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// ClampScore forces v into the [ScoreMin, ScoreMax] range.
func ClampScore(v int) int {
	if v < ScoreMin {
		return ScoreMin
	}
	if v > ScoreMax {
		return ScoreMax
	}
	return v
}
