// Package memory provides in-memory repositories for single-node runs and
// tests. It implements the same contracts as the postgres store; reads hand
// out clones so callers own what they hold.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/draftworks/draftd/internal/catalog"
	"github.com/draftworks/draftd/internal/models"
	"github.com/draftworks/draftd/internal/session"
	"github.com/google/uuid"
)

// Store holds sessions and catalog entries behind one lock. It satisfies
// both session.Repository and catalog.Repository.
type Store struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*models.Session
	entries  map[string]models.CatalogEntry // keyed by lowercase name
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		sessions: make(map[uuid.UUID]*models.Session),
		entries:  make(map[string]models.CatalogEntry),
	}
}

var (
	_ session.Repository = (*Store)(nil)
	_ catalog.Repository = (*Store)(nil)
)

// CreateEntry stores a catalog entry.
func (s *Store) CreateEntry(ctx context.Context, entry models.CatalogEntry) (*models.CatalogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[strings.ToLower(entry.Name)] = entry
	out := entry
	return &out, nil
}

// GetEntryByName looks an entry up case-insensitively.
func (s *Store) GetEntryByName(ctx context.Context, name string) (*models.CatalogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[strings.ToLower(name)]
	if !ok {
		return nil, catalog.ErrEntryNotFound
	}
	out := entry
	return &out, nil
}

// ListEntries returns all catalog entries sorted by name.
func (s *Store) ListEntries(ctx context.Context) ([]models.CatalogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.CatalogEntry, 0, len(s.entries))
	for _, entry := range s.entries {
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// CreateSession stores a session and returns a clone.
func (s *Store) CreateSession(ctx context.Context, sess *models.Session) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess.Clone()
	return sess.Clone(), nil
}

// GetSession returns a clone of the stored session.
func (s *Store) GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, session.ErrSessionNotFound
	}
	return sess.Clone(), nil
}

// UpdateSessionStatus sets a session's status and, for terminal failure
// states, the recorded reason.
func (s *Store) UpdateSessionStatus(ctx context.Context, id uuid.UUID, status models.SessionStatus, reason string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return session.ErrSessionNotFound
	}
	sess.Status = status
	switch status {
	case models.SessionStatusRunning:
		t := at
		sess.StartedAt = &t
	case models.SessionStatusCompleted, models.SessionStatusCancelled, models.SessionStatusFailed:
		t := at
		sess.CompletedAt = &t
		sess.FailureReason = reason
	}
	return nil
}

// FetchDueSessions returns pending sessions scheduled at or before now,
// oldest first, up to limit.
func (s *Store) FetchDueSessions(ctx context.Context, now time.Time, limit int) ([]*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var due []*models.Session
	for _, sess := range s.sessions {
		if sess.Status == models.SessionStatusPending && !sess.ScheduledAt.After(now) {
			due = append(due, sess.Clone())
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].ScheduledAt.Before(due[j].ScheduledAt) })
	if len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

// AppendSelection records an accepted pick in the session history and the
// owning participant's pick list.
func (s *Store) AppendSelection(ctx context.Context, ev models.SelectionEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[ev.SessionID]
	if !ok {
		return session.ErrSessionNotFound
	}
	sess.Selections = append(sess.Selections, ev)
	for _, p := range sess.Participants {
		if p.ID == ev.ParticipantID {
			p.Picks = append(p.Picks, ev)
			break
		}
	}
	if ev.Round > sess.CurrentRound {
		sess.CurrentRound = ev.Round
	}
	return nil
}

// UpdateParticipant writes through a participant's ledger state.
func (s *Store) UpdateParticipant(ctx context.Context, sessionID uuid.UUID, p *models.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return session.ErrSessionNotFound
	}
	for _, stored := range sess.Participants {
		if stored.ID == p.ID {
			stored.RemainingBudget = p.RemainingBudget
			stored.Disqualified = p.Disqualified
			stored.DisqualifyReason = p.DisqualifyReason
			return nil
		}
	}
	return session.ErrSessionNotFound
}
