package models

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus defines the lifecycle status of a draft session.
type SessionStatus string

const (
	SessionStatusPending   SessionStatus = "PENDING"
	SessionStatusRunning   SessionStatus = "RUNNING"
	SessionStatusCompleted SessionStatus = "COMPLETED"
	SessionStatusCancelled SessionStatus = "CANCELLED"
	SessionStatusFailed    SessionStatus = "FAILED"
)

// Session represents one scheduled draft instance. A session exclusively owns
// its participants and selection history; catalog entries are referenced, not
// owned.
type Session struct {
	ID            uuid.UUID        `json:"id"`
	Name          string           `json:"name"`
	GuildID       string           `json:"guild_id"`
	ChannelID     string           `json:"channel_id"`
	ScheduledAt   time.Time        `json:"scheduled_at"`
	Rounds        int              `json:"rounds"`
	Budget        int              `json:"budget"`
	LegalItems    []CatalogEntry   `json:"legal_items"`
	Status        SessionStatus    `json:"status"`
	CurrentRound  int              `json:"current_round"`
	FailureReason string           `json:"failure_reason,omitempty"`
	Participants  []*Participant   `json:"participants"`
	Selections    []SelectionEvent `json:"selections"`
	CreatedAt     time.Time        `json:"created_at"`
	StartedAt     *time.Time       `json:"started_at,omitempty"`
	CompletedAt   *time.Time       `json:"completed_at,omitempty"`
}

// LiveParticipants returns the participants still eligible to pick, in
// enrollment order.
func (s *Session) LiveParticipants() []*Participant {
	live := make([]*Participant, 0, len(s.Participants))
	for _, p := range s.Participants {
		if !p.Disqualified {
			live = append(live, p)
		}
	}
	return live
}

// ParticipantByUserID returns the participant enrolled under the given
// external user reference.
func (s *Session) ParticipantByUserID(userID string) (*Participant, bool) {
	for _, p := range s.Participants {
		if p.UserID == userID {
			return p, true
		}
	}
	return nil, false
}

// Clone returns a deep copy of the session. Repositories hand out clones so
// that a running sequencer owns its session state exclusively.
func (s *Session) Clone() *Session {
	out := *s
	out.LegalItems = append([]CatalogEntry(nil), s.LegalItems...)
	out.Selections = append([]SelectionEvent(nil), s.Selections...)
	out.Participants = make([]*Participant, len(s.Participants))
	for i, p := range s.Participants {
		cp := *p
		cp.Picks = append([]SelectionEvent(nil), p.Picks...)
		out.Participants[i] = &cp
	}
	if s.StartedAt != nil {
		t := *s.StartedAt
		out.StartedAt = &t
	}
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		out.CompletedAt = &t
	}
	return &out
}
