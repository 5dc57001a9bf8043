package interview

import "time"

// Speaker identifies which side of the interview produced a message.
type Speaker string

const (
	SpeakerCandidate   Speaker = "candidate"
	SpeakerInterviewer Speaker = "interviewer"
)

// Message is one turn of the interview transcript.
type Message struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	Speaker   Speaker   `json:"speaker"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}
