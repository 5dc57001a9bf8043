package interview

import "time"

// InterviewType selects the question pool an interviewer draws from.
type InterviewType string

const (
	TypeTechnical    InterviewType = "technical"
	TypeBehavioral   InterviewType = "behavioral"
	TypeSystemDesign InterviewType = "system-design"
)

// Valid reports whether t is one of the supported interview types.
func (t InterviewType) Valid() bool {
	switch t {
	case TypeTechnical, TypeBehavioral, TypeSystemDesign:
		return true
	}
	return false
}

// PlanTier gates feedback verbosity and quota numbers.
type PlanTier string

const (
	TierFree    PlanTier = "free"
	TierPremium PlanTier = "premium"
)

// Valid reports whether p is a known plan tier.
func (p PlanTier) Valid() bool {
	return p == TierFree || p == TierPremium
}

// Status tracks the session lifecycle. Transitions only move forward:
// setup -> active -> completed.
type Status string

const (
	StatusSetup     Status = "setup"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

// Session captures one interview attempt's server-side state. It lives only
// in process memory and is owned by the session registry.
type Session struct {
	ID             string        `json:"id"`
	InterviewType  InterviewType `json:"interviewType"`
	PlanTier       PlanTier      `json:"planTier"`
	Status         Status        `json:"status"`
	Messages       []Message     `json:"messages"`
	Feedback       []Feedback    `json:"feedback"`
	ResumeText     string        `json:"resumeText,omitempty"`
	JobDescription string        `json:"jobDescription,omitempty"`
	CompanyCulture string        `json:"companyCulture,omitempty"`
	CreatedAt      time.Time     `json:"createdAt"`
	EndedAt        *time.Time    `json:"endedAt,omitempty"`
}
