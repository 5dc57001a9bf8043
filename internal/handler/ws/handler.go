package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/padalah/interviewflow/internal/metrics"
	interviewModel "github.com/padalah/interviewflow/internal/model/interview"
	"github.com/padalah/interviewflow/internal/service/conn"
	"github.com/padalah/interviewflow/internal/service/interviewer"
	"github.com/padalah/interviewflow/internal/service/ratelimit"
	"github.com/padalah/interviewflow/internal/service/session"
)

// Application close codes sent when a channel attach is rejected. Codes in
// the 4000 range are reserved for application use by RFC 6455.
const (
	// CloseSessionNotFound rejects an attach for an unknown session.
	CloseSessionNotFound = 4004
	// CloseAlreadyConnected rejects a second concurrent attach to a session.
	CloseAlreadyConnected = 4005
	// CloseSessionCompleted rejects re-attaching to a completed session.
	CloseSessionCompleted = 4009
)

const (
	readDeadline = 60 * time.Second
	pingInterval = 54 * time.Second
	writeTimeout = 10 * time.Second

	// partialEvery controls the simulated partial-transcript cadence for
	// binary audio chunks.
	partialEvery = 8
)

// partialPhrases are the canned snippets emitted as simulated partial
// transcripts while audio is streaming in.
var partialPhrases = []string{
	"So the way I would approach this...",
	"Let me think about that for a second...",
	"The first thing that comes to mind is...",
	"I've actually dealt with something similar before...",
	"To break the problem down...",
}

// Handler owns the session-scoped streaming channel.
type Handler struct {
	registry *session.Registry
	manager  *conn.Manager
	limiter  *ratelimit.Limiter
	engine   interviewer.Engine
	upgrader websocket.Upgrader
}

// New creates the channel handler. Origin policy mirrors the HTTP CORS
// allow list.
func New(registry *session.Registry, manager *conn.Manager, limiter *ratelimit.Limiter, engine interviewer.Engine, allowedOrigins []string) *Handler {
	return &Handler{
		registry: registry,
		manager:  manager,
		limiter:  limiter,
		engine:   engine,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

// RegisterRoutes mounts the channel endpoint on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/{sessionID}", h.handleChannel)
}

type inboundEnvelope struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

type envelope struct {
	Type      string `json:"type"`
	Data      any    `json:"data"`
	Timestamp int64  `json:"timestamp"`
}

func newEnvelope(envType string, data any) envelope {
	return envelope{Type: envType, Data: data, Timestamp: time.Now().UnixMilli()}
}

// channelState is the per-connection bookkeeping owned by the reader
// goroutine.
type channelState struct {
	sessionID  string
	audioBytes int
	chunkCount int
}

func (h *Handler) handleChannel(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	// The upgrade is completed before the session lookup so rejection can
	// travel as a distinguished close code instead of an opaque HTTP error
	// or a silent hang.
	c, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ws] upgrade failed: %v", err)
		return
	}

	s, err := h.registry.Get(r.Context(), sessionID)
	if err != nil {
		closeWith(c, CloseSessionNotFound, "session not found")
		return
	}
	if s.Status == interviewModel.StatusCompleted {
		closeWith(c, CloseSessionCompleted, "session already completed")
		return
	}

	binding, err := h.manager.Accept(sessionID, c, r.RemoteAddr)
	if err != nil {
		closeWith(c, CloseAlreadyConnected, "session already has a live connection")
		return
	}

	if err := h.registry.Activate(r.Context(), sessionID); err != nil {
		closeWith(c, CloseSessionCompleted, "session already completed")
		h.manager.Disconnect(sessionID)
		return
	}

	log.Printf("[ws] channel attached session=%s remote=%s", sessionID, r.RemoteAddr)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	defer func() {
		h.manager.Disconnect(sessionID)
		if err := h.registry.End(context.Background(), sessionID); err != nil && !errors.Is(err, session.ErrSessionNotFound) {
			log.Printf("[ws] end on detach failed session=%s: %v", sessionID, err)
		}
		log.Printf("[ws] channel detached session=%s", sessionID)
	}()

	c.SetReadDeadline(time.Now().Add(readDeadline))
	c.SetPongHandler(func(string) error {
		c.SetReadDeadline(time.Now().Add(readDeadline))
		return nil
	})

	go h.pingLoop(ctx, binding)

	// The control envelope must reach the client before any transcript.
	h.manager.Send(sessionID, newEnvelope("control", map[string]any{
		"event":         "connected",
		"sessionId":     sessionID,
		"interviewType": s.InterviewType,
		"planTier":      s.PlanTier,
		"greeting":      h.engine.Greeting(s.InterviewType),
	}))

	state := &channelState{sessionID: sessionID}
	h.readLoop(ctx, c, state)
}

func (h *Handler) readLoop(ctx context.Context, c *websocket.Conn, state *channelState) {
	for {
		messageType, payload, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[ws] read error session=%s: %v", state.sessionID, err)
			}
			return
		}

		c.SetReadDeadline(time.Now().Add(readDeadline))
		metrics.MessagesReceived.Inc()

		switch messageType {
		case websocket.BinaryMessage:
			h.handleAudioChunk(state, payload)
		case websocket.TextMessage:
			if done := h.handleFrame(ctx, state, payload); done {
				return
			}
		}
	}
}

// handleFrame processes one JSON frame. It reports true when the channel
// should close (explicit interview end).
func (h *Handler) handleFrame(ctx context.Context, state *channelState, payload []byte) bool {
	var msg inboundEnvelope
	if err := json.Unmarshal(payload, &msg); err != nil {
		h.sendError(state.sessionID, "malformed frame: expected a JSON envelope")
		return false
	}

	switch msg.Type {
	case "transcript":
		h.handleAnswer(ctx, state, msg.Data)
		return false
	case "control":
		return h.handleControl(ctx, state, msg.Data)
	default:
		h.sendError(state.sessionID, "unsupported message type: "+msg.Type)
		return false
	}
}

func (h *Handler) handleAnswer(ctx context.Context, state *channelState, raw json.RawMessage) {
	if !h.limiter.Allow(state.sessionID, ratelimit.CategoryRequest) {
		h.sendError(state.sessionID, "rate limit exceeded, slow down")
		return
	}

	var data struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &data); err != nil || data.Text == "" {
		h.sendError(state.sessionID, "transcript frame requires data.text")
		return
	}

	history, err := h.registry.Transcript(ctx, state.sessionID)
	if err != nil {
		h.sendError(state.sessionID, "session no longer available")
		return
	}

	s, err := h.registry.Get(ctx, state.sessionID)
	if err != nil {
		h.sendError(state.sessionID, "session no longer available")
		return
	}

	if _, err := h.registry.AppendMessage(ctx, state.sessionID, interviewModel.SpeakerCandidate, data.Text); err != nil {
		h.sendError(state.sessionID, "failed to record answer")
		return
	}
	h.manager.Send(state.sessionID, newEnvelope("transcript", map[string]any{
		"speaker": interviewModel.SpeakerCandidate,
		"text":    data.Text,
	}))

	reply, err := h.engine.Respond(ctx, s.InterviewType, s.PlanTier, history, data.Text)
	if err != nil {
		if ctx.Err() == nil {
			log.Printf("[ws] engine respond failed session=%s: %v", state.sessionID, err)
			h.sendError(state.sessionID, "interviewer unavailable, try again")
		}
		return
	}

	if _, err := h.registry.AppendMessage(ctx, state.sessionID, interviewModel.SpeakerInterviewer, reply); err != nil {
		log.Printf("[ws] record interviewer turn failed session=%s: %v", state.sessionID, err)
	}
	h.manager.Send(state.sessionID, newEnvelope("transcript", map[string]any{
		"speaker": interviewModel.SpeakerInterviewer,
		"text":    reply,
	}))

	fb, err := h.engine.Feedback(ctx, s.InterviewType, s.PlanTier, data.Text)
	if err != nil {
		if ctx.Err() == nil {
			log.Printf("[ws] engine feedback failed session=%s: %v", state.sessionID, err)
		}
		return
	}
	if err := h.registry.AppendFeedback(ctx, state.sessionID, fb); err != nil {
		log.Printf("[ws] record feedback failed session=%s: %v", state.sessionID, err)
	}
	h.manager.Send(state.sessionID, newEnvelope("feedback", fb))
}

func (h *Handler) handleControl(ctx context.Context, state *channelState, raw json.RawMessage) bool {
	var data struct {
		Action string `json:"action"`
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		h.sendError(state.sessionID, "control frame requires data.action")
		return false
	}

	switch data.Action {
	case "end_interview":
		if err := h.registry.End(ctx, state.sessionID); err != nil {
			log.Printf("[ws] end failed session=%s: %v", state.sessionID, err)
		}
		h.manager.Send(state.sessionID, newEnvelope("control", map[string]any{
			"event":     "interview_ended",
			"sessionId": state.sessionID,
		}))
		if b, ok := h.manager.Get(state.sessionID); ok {
			b.CloseWithCode(websocket.CloseNormalClosure, "interview ended")
		}
		return true
	default:
		h.sendError(state.sessionID, "unsupported control action: "+data.Action)
		return false
	}
}

// handleAudioChunk does byte bookkeeping for a binary frame and emits a
// simulated partial transcript at a fixed cadence. There is no real
// transcription behind it.
func (h *Handler) handleAudioChunk(state *channelState, payload []byte) {
	if !h.limiter.Allow(state.sessionID, ratelimit.CategoryAudioChunk) {
		h.sendError(state.sessionID, "audio rate limit exceeded")
		return
	}

	state.chunkCount++
	state.audioBytes += len(payload)

	if state.chunkCount%partialEvery == 0 {
		phrase := partialPhrases[(state.chunkCount/partialEvery-1)%len(partialPhrases)]
		h.manager.Send(state.sessionID, newEnvelope("transcript", map[string]any{
			"speaker": interviewModel.SpeakerCandidate,
			"text":    phrase,
			"partial": true,
		}))
	}
}

func (h *Handler) sendError(sessionID, message string) {
	h.manager.Send(sessionID, newEnvelope("error", map[string]string{"message": message}))
}

func (h *Handler) pingLoop(ctx context.Context, binding *conn.Binding) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := binding.Ping(); err != nil {
				return
			}
		}
	}
}

func closeWith(c *websocket.Conn, code int, reason string) {
	deadline := time.Now().Add(writeTimeout)
	if err := c.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline); err != nil {
		log.Printf("[ws] close frame failed: %v", err)
	}
	_ = c.Close()
}

// originChecker allows any origin when the list contains "*", otherwise it
// requires an exact match. Requests without an Origin header (non-browser
// clients) are always allowed.
func originChecker(allowed []string) func(*http.Request) bool {
	allowAll := false
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			allowAll = true
		}
		set[o] = struct{}{}
	}

	return func(r *http.Request) bool {
		if allowAll {
			return true
		}
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}
