package models

import (
	"time"

	"github.com/google/uuid"
)

// SelectionEvent records one accepted pick. Events are append-only and form
// the session's history, totally ordered by (round, turn) within a session.
type SelectionEvent struct {
	ID            uuid.UUID    `json:"id"`
	SessionID     uuid.UUID    `json:"session_id"`
	Round         int          `json:"round"`
	ParticipantID uuid.UUID    `json:"participant_id"`
	UserID        string       `json:"user_id"`
	Item          CatalogEntry `json:"item"`
	PickedAt      time.Time    `json:"picked_at"`
}
