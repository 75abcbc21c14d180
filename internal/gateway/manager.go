// Package gateway exposes running sessions over HTTP: a WebSocket feed of
// session events and a submission endpoint that routes picks to the engine.
package gateway

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/draftworks/draftd/internal/events"
	"github.com/draftworks/draftd/internal/models"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeTimeout   = 10 * time.Second
	maxMessageSize = 1024
)

// Manager tracks WebSocket subscribers per session and fans session events
// out to them. It implements events.Publisher and the engine's Announcer.
type Manager struct {
	upgrader websocket.Upgrader

	mu   sync.RWMutex
	subs map[uuid.UUID]map[*subscriber]struct{}
}

type subscriber struct {
	conn *websocket.Conn
	send chan []byte
}

// NewManager creates a connection manager.
func NewManager(checkOrigin func(r *http.Request) bool) *Manager {
	if checkOrigin == nil {
		checkOrigin = func(r *http.Request) bool { return true }
	}
	return &Manager{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		subs: make(map[uuid.UUID]map[*subscriber]struct{}),
	}
}

var _ events.Publisher = (*Manager)(nil)

// HandleSession upgrades a spectator connection for one session.
// GET /ws?session_id=<uuid>
func (m *Manager) HandleSession(w http.ResponseWriter, r *http.Request) {
	sessionID, err := uuid.Parse(r.URL.Query().Get("session_id"))
	if err != nil {
		http.Error(w, "invalid session_id", http.StatusBadRequest)
		return
	}

	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to upgrade WebSocket connection")
		return
	}
	conn.SetReadLimit(maxMessageSize)

	sub := &subscriber{conn: conn, send: make(chan []byte, 64)}
	m.register(sessionID, sub)
	log.Info().Str("session_id", sessionID.String()).Msg("spectator connected")

	go m.writePump(sessionID, sub)
	go m.readPump(sessionID, sub)
}

// Publish broadcasts the event to every subscriber of its session.
func (m *Manager) Publish(ctx context.Context, ev events.Event) error {
	return m.broadcast(ev.SessionID, frame{
		Type:       string(ev.Type),
		SessionID:  ev.SessionID,
		OccurredAt: ev.OccurredAt,
		Payload:    ev.Payload,
	})
}

// Announce broadcasts a human-readable message to the session's subscribers.
func (m *Manager) Announce(ctx context.Context, sess *models.Session, text string) error {
	return m.broadcast(sess.ID, frame{
		Type:       "Announcement",
		SessionID:  sess.ID,
		OccurredAt: time.Now().UTC(),
		Text:       text,
	})
}

type frame struct {
	Type       string    `json:"type"`
	SessionID  uuid.UUID `json:"session_id"`
	OccurredAt time.Time `json:"occurred_at"`
	Text       string    `json:"text,omitempty"`
	Payload    any       `json:"payload,omitempty"`
}

func (m *Manager) broadcast(sessionID uuid.UUID, f frame) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for sub := range m.subs[sessionID] {
		select {
		case sub.send <- mustJSON(f):
		default:
			// Slow consumer: drop the frame rather than block sequencing.
			log.Warn().Str("session_id", sessionID.String()).Msg("dropping frame for slow subscriber")
		}
	}
	return nil
}

func (m *Manager) register(sessionID uuid.UUID, sub *subscriber) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.subs[sessionID] == nil {
		m.subs[sessionID] = make(map[*subscriber]struct{})
	}
	m.subs[sessionID][sub] = struct{}{}
}

func (m *Manager) unregister(sessionID uuid.UUID, sub *subscriber) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if set, ok := m.subs[sessionID]; ok {
		if _, present := set[sub]; present {
			delete(set, sub)
			close(sub.send)
			if len(set) == 0 {
				delete(m.subs, sessionID)
			}
		}
	}
}

func (m *Manager) writePump(sessionID uuid.UUID, sub *subscriber) {
	defer sub.conn.Close()
	for data := range sub.send {
		sub.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := sub.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Debug().Err(err).Str("session_id", sessionID.String()).Msg("subscriber write failed")
			m.unregister(sessionID, sub)
			return
		}
	}
}

// readPump discards inbound frames; its job is to notice the close.
func (m *Manager) readPump(sessionID uuid.UUID, sub *subscriber) {
	for {
		if _, _, err := sub.conn.ReadMessage(); err != nil {
			m.unregister(sessionID, sub)
			log.Info().Str("session_id", sessionID.String()).Msg("spectator disconnected")
			return
		}
	}
}
