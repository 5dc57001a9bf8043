package conn

import (
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/padalah/interviewflow/internal/metrics"
)

// ErrAlreadyConnected is returned by Accept when a session already has a live
// channel. At most one connection may be bound to a session.
var ErrAlreadyConnected = errors.New("session already has a live connection")

const writeTimeout = 10 * time.Second

// Binding is one live channel bound to a session, plus its bookkeeping
// metadata.
type Binding struct {
	SessionID   string
	RemoteAddr  string
	ConnectedAt time.Time

	conn         *websocket.Conn
	lastActivity atomic.Int64
	writeMu      sync.Mutex
}

// LastActivity returns the time of the last successful outbound write.
func (b *Binding) LastActivity() time.Time {
	return time.Unix(b.lastActivity.Load(), 0)
}

// Ping sends a protocol-level ping control frame.
func (b *Binding) Ping() error {
	return b.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
}

// CloseWithCode writes a close frame carrying code and reason, then closes
// the underlying connection.
func (b *Binding) CloseWithCode(code int, reason string) {
	deadline := time.Now().Add(writeTimeout)
	if err := b.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline); err != nil {
		log.Printf("[conn] close frame failed for session %s: %v", b.SessionID, err)
	}
	_ = b.conn.Close()
}

func (b *Binding) write(payload any) error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	if raw, ok := payload.([]byte); ok {
		return b.conn.WriteMessage(websocket.BinaryMessage, raw)
	}
	return b.conn.WriteJSON(payload)
}

// Manager tracks which session has which live channel. Bindings are created
// on successful handshake and removed on disconnect or send failure.
type Manager struct {
	mu       sync.RWMutex
	bindings map[string]*Binding
}

// NewManager creates an empty connection manager.
func NewManager() *Manager {
	return &Manager{
		bindings: make(map[string]*Binding),
	}
}

// Accept binds conn to sessionID. The caller is expected to have verified the
// session exists; Accept only enforces the one-live-channel invariant.
func (m *Manager) Accept(sessionID string, c *websocket.Conn, remoteAddr string) (*Binding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.bindings[sessionID]; exists {
		return nil, ErrAlreadyConnected
	}

	b := &Binding{
		SessionID:   sessionID,
		RemoteAddr:  remoteAddr,
		ConnectedAt: time.Now().UTC(),
		conn:        c,
	}
	b.lastActivity.Store(time.Now().Unix())
	m.bindings[sessionID] = b

	metrics.ActiveConnections.Inc()
	metrics.TotalConnections.Inc()
	return b, nil
}

// Send delivers a payload to the channel bound to sessionID: []byte goes out
// as a binary frame, anything else as JSON. A missing binding is a silent
// drop; a write failure tears the stale binding down instead of propagating.
func (m *Manager) Send(sessionID string, payload any) {
	m.mu.RLock()
	b, ok := m.bindings[sessionID]
	m.mu.RUnlock()
	if !ok {
		return
	}

	if err := b.write(payload); err != nil {
		log.Printf("[conn] send failed for session %s, dropping connection: %v", sessionID, err)
		if removed := m.remove(sessionID); removed != nil {
			_ = removed.conn.Close()
		}
		return
	}

	b.lastActivity.Store(time.Now().Unix())
	metrics.MessagesSent.Inc()
}

// Get returns the live binding for sessionID, if any.
func (m *Manager) Get(sessionID string) (*Binding, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.bindings[sessionID]
	return b, ok
}

// Disconnect removes the binding for sessionID and closes its connection.
// Calling it for an unknown or already-removed session is a no-op.
func (m *Manager) Disconnect(sessionID string) {
	if b := m.remove(sessionID); b != nil {
		_ = b.conn.Close()
	}
}

// CloseAll sends a going-away close frame to every bound channel and clears
// the map. Used on shutdown.
func (m *Manager) CloseAll(reason string) {
	m.mu.Lock()
	bindings := m.bindings
	m.bindings = make(map[string]*Binding)
	m.mu.Unlock()

	for sessionID, b := range bindings {
		log.Printf("[conn] closing connection for session %s: %s", sessionID, reason)
		b.CloseWithCode(websocket.CloseGoingAway, reason)
		metrics.ActiveConnections.Dec()
	}
}

// Count returns the number of live bindings.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.bindings)
}

func (m *Manager) remove(sessionID string) *Binding {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.bindings[sessionID]
	if !ok {
		return nil
	}
	delete(m.bindings, sessionID)
	metrics.ActiveConnections.Dec()
	return b
}
