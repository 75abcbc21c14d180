package engine

import (
	"context"
	"testing"
	"time"

	"github.com/draftworks/draftd/internal/models"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulerPollDispatchesExactlyOnce(t *testing.T) {
	f := newFixture(t, 1, 30, []string{"p1", "p2"}, map[string][]string{
		"p1": {"A"},
		"p2": {"B"},
	})
	// The fixture marks the session RUNNING for direct sequencer tests;
	// here the scheduler owns that transition, so rewind it.
	resetToPending(t, f)

	clock := clockwork.NewRealClock()
	seq := f.sequencer(clock, time.Minute)
	sched := NewScheduler(f.sessions, seq, clock, time.Minute, DefaultBatchSize)

	ctx := context.Background()
	now := f.sess.ScheduledAt.Add(time.Second)

	assert.Equal(t, 1, sched.Poll(ctx, now))
	assert.Equal(t, 0, sched.Poll(ctx, now), "second poll with same now must not double-start")

	require.Eventually(t, func() bool {
		return f.stored(t).Status == models.SessionStatusCompleted
	}, 5*time.Second, 10*time.Millisecond)

	// One run, two picks; a double dispatch would have produced four.
	assert.Len(t, f.stored(t).Selections, 2)
	assert.Equal(t, 0, sched.Poll(ctx, now), "terminal session never redispatched")
}

func TestSchedulerIgnoresNotYetDueSessions(t *testing.T) {
	f := newFixture(t, 1, 30, []string{"p1"}, map[string][]string{"p1": {"A"}})
	resetToPending(t, f)

	clock := clockwork.NewRealClock()
	sched := NewScheduler(f.sessions, f.sequencer(clock, time.Minute), clock, time.Minute, DefaultBatchSize)

	before := f.sess.ScheduledAt.Add(-time.Hour)
	assert.Equal(t, 0, sched.Poll(context.Background(), before))
	assert.Equal(t, models.SessionStatusPending, f.stored(t).Status)
}

func TestSchedulerCancelRunningSession(t *testing.T) {
	// p1 answers round 1; p2 never answers, holding the session open long
	// enough to cancel it. The abort is observed at p1's round-2 boundary
	// after p2's timeout fires.
	f := newFixture(t, 3, 30, []string{"p1", "p2"}, map[string][]string{
		"p1": {"A", "A", "A"},
	})
	f.source.started = make(chan string, 16)
	resetToPending(t, f)

	clock := clockwork.NewFakeClock()
	seq := f.sequencer(clock, 300*time.Second)
	sched := NewScheduler(f.sessions, seq, clock, time.Minute, DefaultBatchSize)

	require.Equal(t, 1, sched.Poll(context.Background(), f.sess.ScheduledAt))

	for user := range f.source.started {
		if user == "p2" {
			break
		}
	}
	require.True(t, sched.Cancel(f.sess.ID, "admin requested"))

	clock.BlockUntil(1)
	clock.Advance(301 * time.Second)
	go func() {
		for range f.source.started {
		}
	}()

	require.Eventually(t, func() bool {
		return f.stored(t).Status == models.SessionStatusCancelled
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, "admin requested", f.stored(t).FailureReason)
}

func TestSchedulerCancelUnknownSession(t *testing.T) {
	f := newFixture(t, 1, 30, []string{"p1"}, map[string][]string{"p1": {"A"}})
	clock := clockwork.NewRealClock()
	sched := NewScheduler(f.sessions, f.sequencer(clock, time.Minute), clock, time.Minute, DefaultBatchSize)

	assert.False(t, sched.Cancel(uuid.New(), "nothing to cancel"))
}

func resetToPending(t *testing.T, f *fixture) {
	t.Helper()
	// Recreate the session in PENDING: transitions out of RUNNING are
	// terminal-only, so build a fresh one instead.
	ctx := context.Background()
	fresh := f.sess.Clone()
	fresh.Status = models.SessionStatusPending
	stored, err := f.store.CreateSession(ctx, fresh)
	require.NoError(t, err)
	f.sess = stored
}
