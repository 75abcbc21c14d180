package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/draftworks/draftd/internal/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ErrSessionNotFound is returned when no session matches an ID.
var ErrSessionNotFound = errors.New("session not found")

// Repository defines what the session app layer needs from storage.
// Reads return clones: a sequencer owns the session state it is handed.
type Repository interface {
	CreateSession(ctx context.Context, sess *models.Session) (*models.Session, error)
	GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error)
	UpdateSessionStatus(ctx context.Context, id uuid.UUID, status models.SessionStatus, reason string, at time.Time) error
	FetchDueSessions(ctx context.Context, now time.Time, limit int) ([]*models.Session, error)
	AppendSelection(ctx context.Context, ev models.SelectionEvent) error
	UpdateParticipant(ctx context.Context, sessionID uuid.UUID, p *models.Participant) error
}

// App handles session business logic.
type App struct {
	repo Repository
}

// NewApp creates a new session App.
func NewApp(repo Repository) *App {
	return &App{repo: repo}
}

// CreateSession validates and stores a new pending session.
func (a *App) CreateSession(ctx context.Context, req CreateSessionRequest) (*models.Session, error) {
	if err := validateCreateSessionRequest(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now().UTC()
	sess := &models.Session{
		ID:           req.ID,
		Name:         req.Name,
		GuildID:      req.GuildID,
		ChannelID:    req.ChannelID,
		ScheduledAt:  req.ScheduledAt,
		Rounds:       req.Rounds,
		Budget:       req.Budget,
		LegalItems:   append([]models.CatalogEntry(nil), req.LegalItems...),
		Status:       models.SessionStatusPending,
		CurrentRound: 0,
		CreatedAt:    now,
	}
	for _, seed := range req.Participants {
		sess.Participants = append(sess.Participants, &models.Participant{
			ID:              uuid.New(),
			UserID:          seed.UserID,
			DisplayName:     seed.DisplayName,
			RemainingBudget: req.Budget,
		})
	}

	created, err := a.repo.CreateSession(ctx, sess)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	log.Info().
		Str("session_id", created.ID.String()).
		Str("name", created.Name).
		Time("scheduled_at", created.ScheduledAt).
		Int("rounds", created.Rounds).
		Int("participants", len(created.Participants)).
		Msg("created session")
	return created, nil
}

// GetSession retrieves a session by ID.
func (a *App) GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	sess, err := a.repo.GetSession(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return sess, nil
}

// FetchDueSessions returns pending sessions whose scheduled start is at or
// before now, oldest first.
func (a *App) FetchDueSessions(ctx context.Context, now time.Time, limit int) ([]*models.Session, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than 0")
	}
	due, err := a.repo.FetchDueSessions(ctx, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch due sessions: %w", err)
	}
	return due, nil
}

// TransitionStatus moves a session to a new status after checking the
// transition is legal, recording a reason for terminal failure states.
func (a *App) TransitionStatus(ctx context.Context, id uuid.UUID, status models.SessionStatus, reason string) error {
	current, err := a.repo.GetSession(ctx, id)
	if err != nil {
		return fmt.Errorf("session not found: %w", err)
	}
	if err := validateStatusTransition(current.Status, status); err != nil {
		return fmt.Errorf("invalid status transition: %w", err)
	}
	if err := a.repo.UpdateSessionStatus(ctx, id, status, reason, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to update session status: %w", err)
	}
	log.Info().
		Str("session_id", id.String()).
		Str("from", string(current.Status)).
		Str("to", string(status)).
		Msg("session status updated")
	return nil
}

// AppendSelection durably records an accepted pick.
func (a *App) AppendSelection(ctx context.Context, ev models.SelectionEvent) error {
	if err := a.repo.AppendSelection(ctx, ev); err != nil {
		return fmt.Errorf("failed to append selection: %w", err)
	}
	return nil
}

// UpdateParticipant durably records a participant's ledger state.
func (a *App) UpdateParticipant(ctx context.Context, sessionID uuid.UUID, p *models.Participant) error {
	if err := a.repo.UpdateParticipant(ctx, sessionID, p); err != nil {
		return fmt.Errorf("failed to update participant: %w", err)
	}
	return nil
}

func validateCreateSessionRequest(req CreateSessionRequest) error {
	if req.ID == uuid.Nil {
		return fmt.Errorf("id is required")
	}
	if req.Name == "" {
		return fmt.Errorf("name is required")
	}
	if req.Rounds <= 0 {
		return fmt.Errorf("rounds must be greater than 0")
	}
	if req.Budget < 0 {
		return fmt.Errorf("budget cannot be negative")
	}
	if len(req.Participants) == 0 {
		return fmt.Errorf("at least one participant is required")
	}
	if len(req.LegalItems) == 0 {
		return fmt.Errorf("at least one legal item is required")
	}
	seen := make(map[string]struct{}, len(req.Participants))
	for _, p := range req.Participants {
		if p.UserID == "" {
			return fmt.Errorf("participant user_id is required")
		}
		if _, dup := seen[p.UserID]; dup {
			return fmt.Errorf("duplicate participant %s", p.UserID)
		}
		seen[p.UserID] = struct{}{}
	}
	return nil
}

// validateStatusTransition validates if a status transition is allowed.
func validateStatusTransition(current, next models.SessionStatus) error {
	// Allow same status (no-op)
	if current == next {
		return nil
	}

	allowed := map[models.SessionStatus][]models.SessionStatus{
		models.SessionStatusPending:   {models.SessionStatusRunning, models.SessionStatusCancelled, models.SessionStatusFailed},
		models.SessionStatusRunning:   {models.SessionStatusCompleted, models.SessionStatusCancelled, models.SessionStatusFailed},
		models.SessionStatusCompleted: {},
		models.SessionStatusCancelled: {},
		models.SessionStatusFailed:    {},
	}

	nexts, ok := allowed[current]
	if !ok {
		return fmt.Errorf("unknown current status: %s", current)
	}
	for _, n := range nexts {
		if next == n {
			return nil
		}
	}
	return fmt.Errorf("transition from %s to %s is not allowed", current, next)
}
