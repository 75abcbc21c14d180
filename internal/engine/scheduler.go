package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/draftworks/draftd/internal/models"
	"github.com/draftworks/draftd/internal/session"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultPollInterval matches the original bot's 60s scheduling loop.
	DefaultPollInterval = 60 * time.Second
	// DefaultBatchSize caps how many due sessions one poll dispatches.
	DefaultBatchSize = 32
)

// Scheduler starts each pending session at most once, at or after its
// scheduled time. One sequencing goroutine runs per started session;
// the in-flight guard is the only state shared between them.
type Scheduler struct {
	sessions  *session.App
	seq       *Sequencer
	clock     Clock
	interval  time.Duration
	batchSize int
	wakeCh    chan struct{}

	// inFlight is the at-most-once dispatch guard; it also carries each
	// running session's abort signal.
	inFlightMu sync.Mutex
	inFlight   map[uuid.UUID]*AbortSignal

	wg sync.WaitGroup
}

// NewScheduler creates a scheduler polling at the given interval.
func NewScheduler(sessions *session.App, seq *Sequencer, clock Clock, interval time.Duration, batchSize int) *Scheduler {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Scheduler{
		sessions:  sessions,
		seq:       seq,
		clock:     clock,
		interval:  interval,
		batchSize: batchSize,
		wakeCh:    make(chan struct{}, 1),
		inFlight:  make(map[uuid.UUID]*AbortSignal),
	}
}

// Run polls for due sessions until ctx is cancelled, then waits for running
// sequencers to observe the cancellation.
func (s *Scheduler) Run(ctx context.Context) error {
	log.Info().
		Dur("interval", s.interval).
		Int("batch_size", s.batchSize).
		Msg("scheduler started")

	timer := s.clock.NewTimer(s.interval)
	defer stopAndDrainTimer(timer)

	for {
		select {
		case <-s.wakeCh:
		default:
		}

		s.Poll(ctx, s.clock.Now())

		timer.Reset(s.interval)
		select {
		case <-timer.Chan():
		case <-s.wakeCh:
			log.Debug().Msg("scheduler woken early")
		case <-ctx.Done():
			log.Info().Msg("scheduler shutting down")
			s.wg.Wait()
			return nil
		}
	}
}

// Poll dispatches every pending session due at now, each exactly once.
// Repeated polls with the same now are harmless: the in-flight guard is
// claimed before the status transition, so a session can never double-start.
func (s *Scheduler) Poll(ctx context.Context, now time.Time) int {
	due, err := s.sessions.FetchDueSessions(ctx, now, s.batchSize)
	if err != nil {
		log.Error().Err(err).Msg("failed to fetch due sessions")
		return 0
	}

	started := 0
	for _, sess := range due {
		s.inFlightMu.Lock()
		if _, running := s.inFlight[sess.ID]; running {
			s.inFlightMu.Unlock()
			continue
		}
		abort := NewAbortSignal()
		s.inFlight[sess.ID] = abort
		s.inFlightMu.Unlock()

		if err := s.sessions.TransitionStatus(ctx, sess.ID, models.SessionStatusRunning, ""); err != nil {
			log.Error().Err(err).Str("session_id", sess.ID.String()).Msg("failed to start session")
			s.release(sess.ID)
			continue
		}
		sess.Status = models.SessionStatusRunning
		started++

		s.wg.Add(1)
		go s.runSession(ctx, sess, abort)
	}
	return started
}

// Cancel requests an administrative abort of a running session. It takes
// effect at the session's next turn boundary.
func (s *Scheduler) Cancel(sessionID uuid.UUID, reason string) bool {
	s.inFlightMu.Lock()
	defer s.inFlightMu.Unlock()
	abort, ok := s.inFlight[sessionID]
	if !ok {
		return false
	}
	abort.Request(reason)
	return true
}

// Wake nudges the scheduler to poll immediately, e.g. after a new session is
// scheduled inside the current interval.
func (s *Scheduler) Wake() {
	select {
	case s.wakeCh <- struct{}{}:
	default:
	}
}

func (s *Scheduler) runSession(ctx context.Context, sess *models.Session, abort *AbortSignal) {
	defer s.wg.Done()
	defer s.release(sess.ID)
	defer func() {
		// A fault in one session must never take down the scheduler or
		// other sessions.
		if r := recover(); r != nil {
			log.Error().
				Str("session_id", sess.ID.String()).
				Interface("panic", r).
				Msg("sequencer panicked")
			if err := s.sessions.TransitionStatus(ctx, sess.ID, models.SessionStatusFailed, fmt.Sprintf("internal fault: %v", r)); err != nil {
				log.Error().Err(err).Str("session_id", sess.ID.String()).Msg("failed to mark panicked session failed")
			}
		}
	}()

	if err := s.seq.Run(ctx, sess, abort); err != nil {
		log.Warn().Err(err).Str("session_id", sess.ID.String()).Msg("sequencer interrupted")
	}
}

func (s *Scheduler) release(sessionID uuid.UUID) {
	s.inFlightMu.Lock()
	delete(s.inFlight, sessionID)
	s.inFlightMu.Unlock()
}

// stopAndDrainTimer safely stops a timer and drains its channel, following
// the pattern in the time.Timer.Stop documentation.
func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}
