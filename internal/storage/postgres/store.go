// Package postgres implements the session and catalog repositories on top of
// PostgreSQL via pgx.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/draftworks/draftd/internal/catalog"
	"github.com/draftworks/draftd/internal/models"
	"github.com/draftworks/draftd/internal/session"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is a pgx-backed implementation of session.Repository and
// catalog.Repository.
type Store struct {
	pool *pgxpool.Pool
}

var (
	_ session.Repository = (*Store)(nil)
	_ catalog.Repository = (*Store)(nil)
)

// Connect opens a connection pool and verifies it.
func Connect(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS catalog_entries (
	id   UUID PRIMARY KEY,
	name TEXT NOT NULL,
	cost INTEGER NOT NULL CHECK (cost >= 0)
);
CREATE UNIQUE INDEX IF NOT EXISTS catalog_entries_name_key ON catalog_entries (lower(name));

CREATE TABLE IF NOT EXISTS sessions (
	id             UUID PRIMARY KEY,
	name           TEXT NOT NULL,
	guild_id       TEXT NOT NULL DEFAULT '',
	channel_id     TEXT NOT NULL DEFAULT '',
	scheduled_at   TIMESTAMPTZ NOT NULL,
	rounds         INTEGER NOT NULL CHECK (rounds > 0),
	budget         INTEGER NOT NULL CHECK (budget >= 0),
	legal_items    JSONB NOT NULL,
	status         TEXT NOT NULL,
	current_round  INTEGER NOT NULL DEFAULT 0,
	failure_reason TEXT NOT NULL DEFAULT '',
	created_at     TIMESTAMPTZ NOT NULL,
	started_at     TIMESTAMPTZ,
	completed_at   TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS sessions_due_idx ON sessions (scheduled_at) WHERE status = 'PENDING';

CREATE TABLE IF NOT EXISTS participants (
	id                UUID PRIMARY KEY,
	session_id        UUID NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	user_id           TEXT NOT NULL,
	display_name      TEXT NOT NULL DEFAULT '',
	remaining_budget  INTEGER NOT NULL CHECK (remaining_budget >= 0),
	disqualified      BOOLEAN NOT NULL DEFAULT FALSE,
	disqualify_reason TEXT NOT NULL DEFAULT '',
	position          INTEGER NOT NULL,
	UNIQUE (session_id, user_id)
);

CREATE TABLE IF NOT EXISTS selections (
	seq            BIGINT GENERATED ALWAYS AS IDENTITY,
	id             UUID PRIMARY KEY,
	session_id     UUID NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	round          INTEGER NOT NULL,
	participant_id UUID NOT NULL REFERENCES participants(id),
	user_id        TEXT NOT NULL,
	item_id        UUID NOT NULL,
	item_name      TEXT NOT NULL,
	item_cost      INTEGER NOT NULL,
	picked_at      TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS selections_session_idx ON selections (session_id, seq);
`

// Migrate creates the schema if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// CreateEntry stores a catalog entry.
func (s *Store) CreateEntry(ctx context.Context, entry models.CatalogEntry) (*models.CatalogEntry, error) {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO catalog_entries (id, name, cost) VALUES ($1, $2, $3)`,
		entry.ID, entry.Name, entry.Cost)
	if err != nil {
		return nil, fmt.Errorf("failed to insert catalog entry: %w", err)
	}
	out := entry
	return &out, nil
}

// GetEntryByName looks an entry up case-insensitively.
func (s *Store) GetEntryByName(ctx context.Context, name string) (*models.CatalogEntry, error) {
	var entry models.CatalogEntry
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, cost FROM catalog_entries WHERE lower(name) = lower($1)`,
		name).Scan(&entry.ID, &entry.Name, &entry.Cost)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, catalog.ErrEntryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get catalog entry: %w", err)
	}
	return &entry, nil
}

// ListEntries returns all catalog entries sorted by name.
func (s *Store) ListEntries(ctx context.Context) ([]models.CatalogEntry, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, cost FROM catalog_entries ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list catalog entries: %w", err)
	}
	defer rows.Close()

	var entries []models.CatalogEntry
	for rows.Next() {
		var entry models.CatalogEntry
		if err := rows.Scan(&entry.ID, &entry.Name, &entry.Cost); err != nil {
			return nil, fmt.Errorf("failed to scan catalog entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// CreateSession stores a session and its participants in one transaction.
func (s *Store) CreateSession(ctx context.Context, sess *models.Session) (*models.Session, error) {
	legalItems, err := json.Marshal(sess.LegalItems)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal legal items: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO sessions (id, name, guild_id, channel_id, scheduled_at, rounds, budget, legal_items, status, current_round, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		sess.ID, sess.Name, sess.GuildID, sess.ChannelID, sess.ScheduledAt,
		sess.Rounds, sess.Budget, legalItems, sess.Status, sess.CurrentRound, sess.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert session: %w", err)
	}

	for i, p := range sess.Participants {
		_, err = tx.Exec(ctx,
			`INSERT INTO participants (id, session_id, user_id, display_name, remaining_budget, disqualified, disqualify_reason, position)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			p.ID, sess.ID, p.UserID, p.DisplayName, p.RemainingBudget, p.Disqualified, string(p.DisqualifyReason), i)
		if err != nil {
			return nil, fmt.Errorf("failed to insert participant: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit session: %w", err)
	}
	return sess.Clone(), nil
}

// GetSession assembles a session with its participants and history.
func (s *Store) GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	sess := &models.Session{ID: id}
	var legalItems []byte
	var reason string
	err := s.pool.QueryRow(ctx,
		`SELECT name, guild_id, channel_id, scheduled_at, rounds, budget, legal_items, status, current_round, failure_reason, created_at, started_at, completed_at
		 FROM sessions WHERE id = $1`, id).
		Scan(&sess.Name, &sess.GuildID, &sess.ChannelID, &sess.ScheduledAt, &sess.Rounds,
			&sess.Budget, &legalItems, &sess.Status, &sess.CurrentRound, &reason,
			&sess.CreatedAt, &sess.StartedAt, &sess.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, session.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	sess.FailureReason = reason
	if err := json.Unmarshal(legalItems, &sess.LegalItems); err != nil {
		return nil, fmt.Errorf("failed to unmarshal legal items: %w", err)
	}

	if err := s.loadParticipants(ctx, sess); err != nil {
		return nil, err
	}
	if err := s.loadSelections(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *Store) loadParticipants(ctx context.Context, sess *models.Session) error {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, display_name, remaining_budget, disqualified, disqualify_reason
		 FROM participants WHERE session_id = $1 ORDER BY position`, sess.ID)
	if err != nil {
		return fmt.Errorf("failed to load participants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p models.Participant
		var reason string
		if err := rows.Scan(&p.ID, &p.UserID, &p.DisplayName, &p.RemainingBudget, &p.Disqualified, &reason); err != nil {
			return fmt.Errorf("failed to scan participant: %w", err)
		}
		p.DisqualifyReason = models.DisqualifyReason(reason)
		sess.Participants = append(sess.Participants, &p)
	}
	return rows.Err()
}

func (s *Store) loadSelections(ctx context.Context, sess *models.Session) error {
	rows, err := s.pool.Query(ctx,
		`SELECT id, round, participant_id, user_id, item_id, item_name, item_cost, picked_at
		 FROM selections WHERE session_id = $1 ORDER BY seq`, sess.ID)
	if err != nil {
		return fmt.Errorf("failed to load selections: %w", err)
	}
	defer rows.Close()

	byParticipant := make(map[uuid.UUID]*models.Participant, len(sess.Participants))
	for _, p := range sess.Participants {
		byParticipant[p.ID] = p
	}
	for rows.Next() {
		ev := models.SelectionEvent{SessionID: sess.ID}
		if err := rows.Scan(&ev.ID, &ev.Round, &ev.ParticipantID, &ev.UserID,
			&ev.Item.ID, &ev.Item.Name, &ev.Item.Cost, &ev.PickedAt); err != nil {
			return fmt.Errorf("failed to scan selection: %w", err)
		}
		sess.Selections = append(sess.Selections, ev)
		if p, ok := byParticipant[ev.ParticipantID]; ok {
			p.Picks = append(p.Picks, ev)
		}
	}
	return rows.Err()
}

// UpdateSessionStatus sets a session's status and terminal metadata.
func (s *Store) UpdateSessionStatus(ctx context.Context, id uuid.UUID, status models.SessionStatus, reason string, at time.Time) error {
	var query string
	args := []any{id, status, reason}
	switch status {
	case models.SessionStatusRunning:
		query = `UPDATE sessions SET status = $2, failure_reason = $3, started_at = $4 WHERE id = $1`
		args = append(args, at)
	case models.SessionStatusCompleted, models.SessionStatusCancelled, models.SessionStatusFailed:
		query = `UPDATE sessions SET status = $2, failure_reason = $3, completed_at = $4 WHERE id = $1`
		args = append(args, at)
	default:
		query = `UPDATE sessions SET status = $2, failure_reason = $3 WHERE id = $1`
	}
	ct, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update session status: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return session.ErrSessionNotFound
	}
	return nil
}

// FetchDueSessions returns pending sessions scheduled at or before now.
func (s *Store) FetchDueSessions(ctx context.Context, now time.Time, limit int) ([]*models.Session, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id FROM sessions WHERE status = 'PENDING' AND scheduled_at <= $1 ORDER BY scheduled_at LIMIT $2`,
		now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch due sessions: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan session id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	due := make([]*models.Session, 0, len(ids))
	for _, id := range ids {
		sess, err := s.GetSession(ctx, id)
		if err != nil {
			return nil, err
		}
		due = append(due, sess)
	}
	return due, nil
}

// AppendSelection durably records an accepted pick.
func (s *Store) AppendSelection(ctx context.Context, ev models.SelectionEvent) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO selections (id, session_id, round, participant_id, user_id, item_id, item_name, item_cost, picked_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		ev.ID, ev.SessionID, ev.Round, ev.ParticipantID, ev.UserID,
		ev.Item.ID, ev.Item.Name, ev.Item.Cost, ev.PickedAt)
	if err != nil {
		return fmt.Errorf("failed to insert selection: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`UPDATE sessions SET current_round = GREATEST(current_round, $2) WHERE id = $1`,
		ev.SessionID, ev.Round)
	if err != nil {
		return fmt.Errorf("failed to update current round: %w", err)
	}
	return nil
}

// UpdateParticipant writes through a participant's ledger state.
func (s *Store) UpdateParticipant(ctx context.Context, sessionID uuid.UUID, p *models.Participant) error {
	ct, err := s.pool.Exec(ctx,
		`UPDATE participants SET remaining_budget = $3, disqualified = $4, disqualify_reason = $5
		 WHERE session_id = $1 AND id = $2`,
		sessionID, p.ID, p.RemainingBudget, p.Disqualified, string(p.DisqualifyReason))
	if err != nil {
		return fmt.Errorf("failed to update participant: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return session.ErrSessionNotFound
	}
	return nil
}
