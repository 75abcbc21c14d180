package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/draftworks/draftd/internal/catalog"
	"github.com/draftworks/draftd/internal/events"
	"github.com/draftworks/draftd/internal/models"
	"github.com/draftworks/draftd/internal/session"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// DefaultPickTimeout bounds how long a participant has to answer a turn
// prompt before being disqualified.
const DefaultPickTimeout = 300 * time.Second

// Sequencer drives one session from its first turn to a terminal status.
// Exactly one sequencer owns a running session; only it mutates the ledger.
type Sequencer struct {
	sessions    *session.App
	catalog     *catalog.App
	source      PickSource
	announcer   Announcer
	publisher   events.Publisher
	clock       Clock
	pickTimeout time.Duration
}

// NewSequencer creates a sequencer with the given collaborators.
func NewSequencer(sessions *session.App, cat *catalog.App, source PickSource, announcer Announcer, publisher events.Publisher, clock Clock, pickTimeout time.Duration) *Sequencer {
	if pickTimeout <= 0 {
		pickTimeout = DefaultPickTimeout
	}
	return &Sequencer{
		sessions:    sessions,
		catalog:     cat,
		source:      source,
		announcer:   announcer,
		publisher:   publisher,
		clock:       clock,
		pickTimeout: pickTimeout,
	}
}

type pickOutcome int

const (
	pickReceived pickOutcome = iota
	pickTimedOut
	pickFaulted
	pickInterrupted
)

// Run sequences the session to completion. The session must already be
// RUNNING. Terminal outcomes (completed, cancelled, failed) return nil; a
// non-nil error means the process is shutting down mid-session.
func (s *Sequencer) Run(ctx context.Context, sess *models.Session, abort *AbortSignal) error {
	if err := s.source.Open(ctx, sess); err != nil {
		log.Error().Err(err).Str("session_id", sess.ID.String()).Msg("venue unreachable at session start")
		s.failSession(ctx, sess, fmt.Sprintf("venue unreachable: %v", err))
		return nil
	}

	startedAt := s.clock.Now()
	sess.StartedAt = &startedAt
	s.emit(ctx, sess, events.TypeSessionStarted, events.SessionStartedPayload{
		Name:         sess.Name,
		Rounds:       sess.Rounds,
		Budget:       sess.Budget,
		Participants: len(sess.Participants),
		StartedAt:    startedAt,
	})
	log.Info().
		Str("session_id", sess.ID.String()).
		Str("name", sess.Name).
		Int("rounds", sess.Rounds).
		Int("participants", len(sess.Participants)).
		Msg("session started")

	for round := 1; round <= sess.Rounds; round++ {
		sess.CurrentRound = round
		s.announce(ctx, sess, fmt.Sprintf("Round %d of %d", round, sess.Rounds))

		// Turn order is the enrollment order minus disqualifications made
		// in earlier rounds; participants disqualified during this pass are
		// skipped by the Disqualified check.
		for _, p := range sess.LiveParticipants() {
			if p.Disqualified {
				continue
			}
			if reason, aborted := abort.Check(); aborted {
				s.cancelSession(ctx, sess, reason)
				return nil
			}
			if err := ctx.Err(); err != nil {
				log.Warn().Str("session_id", sess.ID.String()).Msg("shutdown mid-session")
				return err
			}
			s.takeTurn(ctx, sess, p, round)
		}

		if len(sess.LiveParticipants()) == 0 {
			log.Info().
				Str("session_id", sess.ID.String()).
				Int("round", round).
				Msg("no live participants remain; ending session early")
			break
		}
	}

	s.completeSession(ctx, sess, startedAt)
	return nil
}

// takeTurn runs one participant's turn: prompt, bounded wait, validate,
// apply or disqualify. Faults here never propagate; at worst the current
// participant is disqualified and the session continues.
func (s *Sequencer) takeTurn(ctx context.Context, sess *models.Session, p *models.Participant, round int) {
	turnStart := s.clock.Now()
	s.announce(ctx, sess, fmt.Sprintf("%s, it's your turn to pick. You have %d budget left.", p.DisplayName, p.RemainingBudget))
	s.emit(ctx, sess, events.TypePickStarted, events.PickStartedPayload{
		Round:           round,
		UserID:          p.UserID,
		RemainingBudget: p.RemainingBudget,
		StartedAt:       turnStart,
		TimeoutAt:       turnStart.Add(s.pickTimeout),
	})

	text, outcome := s.awaitPick(ctx, sess, p)
	switch outcome {
	case pickInterrupted:
		// Shutdown; Run's boundary check reports it.
		return
	case pickTimedOut:
		s.announce(ctx, sess, fmt.Sprintf("%s, you took too long to respond. You have been removed from the draft.", p.DisplayName))
		s.disqualify(ctx, sess, p, round, models.DisqualifyTimeout)
		return
	case pickFaulted:
		s.announce(ctx, sess, fmt.Sprintf("%s, your turn could not be completed. You have been removed from the draft.", p.DisplayName))
		s.disqualify(ctx, sess, p, round, models.DisqualifyCollaboratorFault)
		return
	}

	verdict := Validate(text, sess.LegalItems, func(name string) bool {
		return s.catalog.Contains(ctx, name)
	}, p.RemainingBudget)
	if !verdict.Accepted() {
		s.announce(ctx, sess, fmt.Sprintf("%s, you do not have enough budget for this item or the item is not legal. You have been removed from the draft.", p.DisplayName))
		s.disqualify(ctx, sess, p, round, disqualifyReasonFor(verdict.Reason))
		return
	}

	s.applyPick(ctx, sess, p, round, *verdict.Entry)
}

// awaitPick requests a pick with a bounded wait on the engine clock. A reply
// arriving after the timer fires lands in the buffered channel and is
// discarded; the request context is cancelled either way.
func (s *Sequencer) awaitPick(ctx context.Context, sess *models.Session, p *models.Participant) (string, pickOutcome) {
	type reply struct {
		text string
		err  error
	}
	reqCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	replyCh := make(chan reply, 1)
	go func() {
		text, err := s.source.RequestPick(reqCtx, sess, p, sess.LegalItems)
		replyCh <- reply{text: text, err: err}
	}()

	timer := s.clock.NewTimer(s.pickTimeout)
	defer stopAndDrainTimer(timer)

	select {
	case r := <-replyCh:
		if r.err != nil {
			log.Warn().
				Err(r.err).
				Str("session_id", sess.ID.String()).
				Str("user_id", p.UserID).
				Msg("pick source fault")
			return "", pickFaulted
		}
		return r.text, pickReceived
	case <-timer.Chan():
		return "", pickTimedOut
	case <-ctx.Done():
		return "", pickInterrupted
	}
}

// applyPick mutates the ledger after validation accepted: this is the only
// place budget is deducted or history appended.
func (s *Sequencer) applyPick(ctx context.Context, sess *models.Session, p *models.Participant, round int, item models.CatalogEntry) {
	p.RemainingBudget -= item.Cost
	ev := models.SelectionEvent{
		ID:            uuid.New(),
		SessionID:     sess.ID,
		Round:         round,
		ParticipantID: p.ID,
		UserID:        p.UserID,
		Item:          item,
		PickedAt:      s.clock.Now(),
	}
	p.Picks = append(p.Picks, ev)
	sess.Selections = append(sess.Selections, ev)

	if err := s.sessions.AppendSelection(ctx, ev); err != nil {
		log.Error().Err(err).Str("session_id", sess.ID.String()).Msg("failed to persist selection")
	}
	if err := s.sessions.UpdateParticipant(ctx, sess.ID, p); err != nil {
		log.Error().Err(err).Str("session_id", sess.ID.String()).Msg("failed to persist participant ledger")
	}

	s.emit(ctx, sess, events.TypePickAccepted, events.PickAcceptedPayload{
		Round:           round,
		UserID:          p.UserID,
		Item:            item.Name,
		Cost:            item.Cost,
		RemainingBudget: p.RemainingBudget,
		PickedAt:        ev.PickedAt,
	})
	s.announce(ctx, sess, fmt.Sprintf("%s drafted %s for %d. %d budget remaining.", p.DisplayName, item.Name, item.Cost, p.RemainingBudget))
	log.Info().
		Str("session_id", sess.ID.String()).
		Str("user_id", p.UserID).
		Int("round", round).
		Str("item", item.Name).
		Int("cost", item.Cost).
		Int("remaining_budget", p.RemainingBudget).
		Msg("pick accepted")
}

func (s *Sequencer) disqualify(ctx context.Context, sess *models.Session, p *models.Participant, round int, reason models.DisqualifyReason) {
	p.Disqualified = true
	p.DisqualifyReason = reason
	if err := s.sessions.UpdateParticipant(ctx, sess.ID, p); err != nil {
		log.Error().Err(err).Str("session_id", sess.ID.String()).Msg("failed to persist disqualification")
	}
	s.emit(ctx, sess, events.TypeParticipantDisqualified, events.ParticipantDisqualifiedPayload{
		Round:  round,
		UserID: p.UserID,
		Reason: string(reason),
	})
	log.Info().
		Str("session_id", sess.ID.String()).
		Str("user_id", p.UserID).
		Int("round", round).
		Str("reason", string(reason)).
		Msg("participant disqualified")
}

func (s *Sequencer) completeSession(ctx context.Context, sess *models.Session, startedAt time.Time) {
	completedAt := s.clock.Now()
	sess.CompletedAt = &completedAt
	if err := s.sessions.TransitionStatus(ctx, sess.ID, models.SessionStatusCompleted, ""); err != nil {
		log.Error().Err(err).Str("session_id", sess.ID.String()).Msg("failed to mark session completed")
	}
	s.emit(ctx, sess, events.TypeSessionCompleted, events.SessionCompletedPayload{
		CompletedAt: completedAt,
		TotalPicks:  len(sess.Selections),
		Duration:    completedAt.Sub(startedAt).String(),
	})
	s.announce(ctx, sess, "The draft has ended. Thank you all for participating!")
	log.Info().
		Str("session_id", sess.ID.String()).
		Int("total_picks", len(sess.Selections)).
		Msg("session completed")
}

func (s *Sequencer) cancelSession(ctx context.Context, sess *models.Session, reason string) {
	if err := s.sessions.TransitionStatus(ctx, sess.ID, models.SessionStatusCancelled, reason); err != nil {
		log.Error().Err(err).Str("session_id", sess.ID.String()).Msg("failed to mark session cancelled")
	}
	s.emit(ctx, sess, events.TypeSessionCancelled, events.SessionCancelledPayload{
		CancelledAt: s.clock.Now(),
		Reason:      reason,
	})
	s.announce(ctx, sess, "The draft has been cancelled.")
	log.Info().
		Str("session_id", sess.ID.String()).
		Str("reason", reason).
		Msg("session cancelled")
}

func (s *Sequencer) failSession(ctx context.Context, sess *models.Session, reason string) {
	if err := s.sessions.TransitionStatus(ctx, sess.ID, models.SessionStatusFailed, reason); err != nil {
		log.Error().Err(err).Str("session_id", sess.ID.String()).Msg("failed to mark session failed")
	}
	s.emit(ctx, sess, events.TypeSessionFailed, events.SessionFailedPayload{
		FailedAt: s.clock.Now(),
		Reason:   reason,
	})
}

// announce is fire-and-forget: announcement failures are logged, never fatal.
func (s *Sequencer) announce(ctx context.Context, sess *models.Session, text string) {
	if s.announcer == nil {
		return
	}
	if err := s.announcer.Announce(ctx, sess, text); err != nil {
		log.Warn().Err(err).Str("session_id", sess.ID.String()).Msg("announce failed")
	}
}

func (s *Sequencer) emit(ctx context.Context, sess *models.Session, typ events.Type, payload any) {
	if s.publisher == nil {
		return
	}
	ev := events.Event{
		ID:         uuid.New(),
		SessionID:  sess.ID,
		Type:       typ,
		OccurredAt: s.clock.Now(),
		Payload:    payload,
	}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		log.Warn().Err(err).Str("session_id", sess.ID.String()).Str("event_type", string(typ)).Msg("event publish failed")
	}
}

func disqualifyReasonFor(r RejectReason) models.DisqualifyReason {
	switch r {
	case ReasonItemNotLegal:
		return models.DisqualifyItemNotLegal
	case ReasonInsufficientBudget:
		return models.DisqualifyInsufficientBudget
	default:
		return models.DisqualifyItemUnknown
	}
}
