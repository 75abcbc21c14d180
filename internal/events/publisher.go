package events

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Publisher receives every event the engine emits. Publish failures are the
// caller's to log; they must never block or abort sequencing.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// LogPublisher writes events to the structured log. It doubles as the
// observability sink when no message bus is configured.
type LogPublisher struct{}

func NewLogPublisher() *LogPublisher {
	return &LogPublisher{}
}

func (p *LogPublisher) Publish(ctx context.Context, ev Event) error {
	log.Info().
		Str("event_id", ev.ID.String()).
		Str("session_id", ev.SessionID.String()).
		Str("event_type", string(ev.Type)).
		Func(func(e *zerolog.Event) {
			if ev.Payload != nil {
				e.Interface("payload", ev.Payload)
			}
		}).
		Msg("session event")
	return nil
}

// Fanout publishes to several publishers, returning the first error after
// attempting all of them.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, ev Event) error {
	var firstErr error
	for _, p := range f {
		if err := p.Publish(ctx, ev); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
