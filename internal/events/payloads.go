package events

import (
	"time"

	"github.com/google/uuid"
)

// Type identifies a session event.
type Type string

const (
	TypeSessionStarted          Type = "SessionStarted"
	TypePickStarted             Type = "PickStarted"
	TypePickAccepted            Type = "PickAccepted"
	TypeParticipantDisqualified Type = "ParticipantDisqualified"
	TypeSessionCompleted        Type = "SessionCompleted"
	TypeSessionCancelled        Type = "SessionCancelled"
	TypeSessionFailed           Type = "SessionFailed"
)

// Event is the envelope published for every engine transition.
type Event struct {
	ID         uuid.UUID `json:"event_id"`
	SessionID  uuid.UUID `json:"session_id"`
	Type       Type      `json:"event_type"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload"`
}

// SessionStartedPayload is the payload for a SessionStarted event.
type SessionStartedPayload struct {
	Name         string    `json:"name"`
	Rounds       int       `json:"rounds"`
	Budget       int       `json:"budget"`
	Participants int       `json:"participants"`
	StartedAt    time.Time `json:"started_at"`
}

// PickStartedPayload is the payload for a PickStarted event.
type PickStartedPayload struct {
	Round           int       `json:"round"`
	UserID          string    `json:"user_id"`
	RemainingBudget int       `json:"remaining_budget"`
	StartedAt       time.Time `json:"started_at"`
	TimeoutAt       time.Time `json:"timeout_at"`
}

// PickAcceptedPayload is the payload for a PickAccepted event.
type PickAcceptedPayload struct {
	Round           int       `json:"round"`
	UserID          string    `json:"user_id"`
	Item            string    `json:"item"`
	Cost            int       `json:"cost"`
	RemainingBudget int       `json:"remaining_budget"`
	PickedAt        time.Time `json:"picked_at"`
}

// ParticipantDisqualifiedPayload is the payload for a ParticipantDisqualified event.
type ParticipantDisqualifiedPayload struct {
	Round  int    `json:"round"`
	UserID string `json:"user_id"`
	Reason string `json:"reason"`
}

// SessionCompletedPayload is the payload for a SessionCompleted event.
type SessionCompletedPayload struct {
	CompletedAt time.Time `json:"completed_at"`
	TotalPicks  int       `json:"total_picks"`
	Duration    string    `json:"duration"`
}

// SessionCancelledPayload is the payload for a SessionCancelled event.
type SessionCancelledPayload struct {
	CancelledAt time.Time `json:"cancelled_at"`
	Reason      string    `json:"reason"`
}

// SessionFailedPayload is the payload for a SessionFailed event.
type SessionFailedPayload struct {
	FailedAt time.Time `json:"failed_at"`
	Reason   string    `json:"reason"`
}
