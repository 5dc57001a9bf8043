package interview

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	interviewModel "github.com/padalah/interviewflow/internal/model/interview"
	"github.com/padalah/interviewflow/internal/service/document"
	"github.com/padalah/interviewflow/internal/service/interviewer"
	"github.com/padalah/interviewflow/internal/service/session"
	"github.com/padalah/interviewflow/pkg/utils"
)

// Mocked quota numbers surfaced by check_usage. There is no real metering
// behind them.
const (
	freeInterviewLimit      = 3
	freeAudioMinuteLimit    = 30
	premiumInterviewLimit   = 50
	premiumAudioMinuteLimit = 600
)

// Handler serves the session-lifecycle HTTP endpoints.
type Handler struct {
	registry  *session.Registry
	engine    interviewer.Engine
	extractor *document.Extractor
	wsHost    string
}

// New creates the interview handler. wsHost is the advertised channel base
// embedded into websocketUrl.
func New(registry *session.Registry, engine interviewer.Engine, extractor *document.Extractor, wsHost string) *Handler {
	return &Handler{
		registry:  registry,
		engine:    engine,
		extractor: extractor,
		wsHost:    wsHost,
	}
}

// RegisterRoutes mounts the interview endpoints on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/start_interview", h.handleStartInterview)
	r.Get("/check_usage/{sessionID}", h.handleCheckUsage)
	r.Post("/mock_upgrade/{sessionID}", h.handleMockUpgrade)
	r.Get("/session/{sessionID}/summary", h.handleSummary)
}

func (h *Handler) handleStartInterview(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		InterviewType  string `json:"interviewType"`
		PlanTier       string `json:"planTier"`
		ResumeData     string `json:"resumeData"`
		JobDescription string `json:"jobDescription"`
		CompanyCulture string `json:"companyCulture"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s, err := h.registry.Create(r.Context(), session.CreateParams{
		InterviewType:  interviewModel.InterviewType(payload.InterviewType),
		PlanTier:       interviewModel.PlanTier(payload.PlanTier),
		ResumeText:     h.extractor.Sanitize(payload.ResumeData),
		JobDescription: h.extractor.Sanitize(payload.JobDescription),
		CompanyCulture: h.extractor.Sanitize(payload.CompanyCulture),
	})
	if err != nil {
		if errors.Is(err, session.ErrInvalidInterviewType) || errors.Is(err, session.ErrInvalidPlanTier) {
			utils.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	utils.RespondJSON(w, http.StatusCreated, map[string]string{
		"sessionId":       s.ID,
		"initialGreeting": h.engine.Greeting(s.InterviewType),
		"websocketUrl":    h.wsHost + "/ws/" + s.ID,
	})
}

func (h *Handler) handleCheckUsage(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	s, err := h.registry.Get(r.Context(), sessionID)
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, "session not found")
		return
	}

	interviewLimit, audioLimit := freeInterviewLimit, freeAudioMinuteLimit
	if s.PlanTier == interviewModel.TierPremium {
		interviewLimit, audioLimit = premiumInterviewLimit, premiumAudioMinuteLimit
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"sessionId":         s.ID,
		"planTier":          s.PlanTier,
		"interviewsUsed":    1,
		"interviewsLimit":   interviewLimit,
		"audioMinutesUsed":  usedAudioMinutes(s),
		"audioMinutesLimit": audioLimit,
	})
}

func (h *Handler) handleMockUpgrade(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	s, err := h.registry.Upgrade(r.Context(), sessionID)
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, "session not found")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"sessionId": s.ID,
		"planTier":  s.PlanTier,
	})
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	s, err := h.registry.Get(r.Context(), sessionID)
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, "session not found")
		return
	}

	answerCount := 0
	for _, m := range s.Messages {
		if m.Speaker == interviewModel.SpeakerCandidate {
			answerCount++
		}
	}

	averageScore := 0.0
	if len(s.Feedback) > 0 {
		total := 0
		for _, fb := range s.Feedback {
			total += fb.Score
		}
		averageScore = float64(total) / float64(len(s.Feedback))
	}

	summary := map[string]any{
		"sessionId":       s.ID,
		"interviewType":   s.InterviewType,
		"planTier":        s.PlanTier,
		"status":          s.Status,
		"createdAt":       s.CreatedAt,
		"durationSeconds": int(sessionDuration(s).Seconds()),
		"messageCount":    len(s.Messages),
		"answerCount":     answerCount,
		"feedbackCount":   len(s.Feedback),
		"averageScore":    averageScore,
	}
	if s.EndedAt != nil {
		summary["endedAt"] = s.EndedAt
	}

	utils.RespondJSON(w, http.StatusOK, summary)
}

func sessionDuration(s interviewModel.Session) time.Duration {
	end := time.Now().UTC()
	if s.EndedAt != nil {
		end = *s.EndedAt
	}
	return end.Sub(s.CreatedAt)
}

// usedAudioMinutes fakes meter data from the session's age, capped so the
// mocked payload stays plausible.
func usedAudioMinutes(s interviewModel.Session) int {
	minutes := int(sessionDuration(s).Minutes())
	if minutes > freeAudioMinuteLimit {
		return freeAudioMinuteLimit
	}
	return minutes
}
