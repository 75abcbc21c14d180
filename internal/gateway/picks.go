package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/draftworks/draftd/internal/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// PickRouter implements the engine's PickSource over HTTP: the sequencer
// blocks in RequestPick while a waiter is registered, and a POST to the
// submission endpoint delivers the reply. Submissions with no waiter (wrong
// user, or a turn that already timed out) are rejected.
type PickRouter struct {
	mu      sync.Mutex
	waiters map[waiterKey]chan string
}

type waiterKey struct {
	sessionID uuid.UUID
	userID    string
}

// NewPickRouter creates an empty router.
func NewPickRouter() *PickRouter {
	return &PickRouter{waiters: make(map[waiterKey]chan string)}
}

// Open is a no-op: the gateway itself is the venue, and it is always
// reachable in-process.
func (r *PickRouter) Open(ctx context.Context, sess *models.Session) error {
	return nil
}

// RequestPick blocks until the participant submits a pick or ctx is
// cancelled (the sequencer cancels on timeout or shutdown).
func (r *PickRouter) RequestPick(ctx context.Context, sess *models.Session, p *models.Participant, legal []models.CatalogEntry) (string, error) {
	key := waiterKey{sessionID: sess.ID, userID: p.UserID}
	ch := make(chan string, 1)

	r.mu.Lock()
	r.waiters[key] = ch
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		if r.waiters[key] == ch {
			delete(r.waiters, key)
		}
		r.mu.Unlock()
	}()

	select {
	case text := <-ch:
		return text, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Submit delivers a pick to the waiting turn, if any. Returns false when no
// turn is waiting for this session and user.
func (r *PickRouter) Submit(sessionID uuid.UUID, userID, text string) bool {
	r.mu.Lock()
	ch, ok := r.waiters[waiterKey{sessionID: sessionID, userID: userID}]
	if ok {
		delete(r.waiters, waiterKey{sessionID: sessionID, userID: userID})
	}
	r.mu.Unlock()
	if !ok {
		return false
	}
	ch <- text
	return true
}

type submitRequest struct {
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
	Text      string `json:"text"`
}

// HandleSubmit accepts a pick submission.
// POST /picks {"session_id": "...", "user_id": "...", "text": "..."}
func (r *PickRouter) HandleSubmit(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var body submitRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	sessionID, err := uuid.Parse(body.SessionID)
	if err != nil || body.UserID == "" {
		http.Error(w, "session_id and user_id are required", http.StatusBadRequest)
		return
	}

	if !r.Submit(sessionID, body.UserID, body.Text) {
		// Not this user's turn, or their turn already timed out.
		http.Error(w, "no pick awaited for this participant", http.StatusConflict)
		return
	}
	log.Debug().
		Str("session_id", body.SessionID).
		Str("user_id", body.UserID).
		Msg("pick submission routed")
	w.WriteHeader(http.StatusAccepted)
}
