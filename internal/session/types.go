package session

import (
	"time"

	"github.com/draftworks/draftd/internal/models"
	"github.com/google/uuid"
)

// ParticipantSeed enrolls one external user at session creation.
type ParticipantSeed struct {
	UserID      string
	DisplayName string
}

// CreateSessionRequest carries everything needed to schedule a new session.
type CreateSessionRequest struct {
	ID           uuid.UUID
	Name         string
	GuildID      string
	ChannelID    string
	ScheduledAt  time.Time
	Rounds       int
	Budget       int
	LegalItems   []models.CatalogEntry
	Participants []ParticipantSeed
}
