package engine

import (
	"context"
	"time"

	"github.com/draftworks/draftd/internal/models"
	"github.com/jonboulle/clockwork"
)

// Clock is the interface the engine uses for time operations.
// In production, use clockwork.NewRealClock(). In tests, a FakeClock.
type Clock interface {
	Now() time.Time
	NewTimer(d time.Duration) clockwork.Timer
}

// PickSource is the transport-facing collaborator that prompts the active
// participant and blocks until a reply arrives or ctx is cancelled. The
// sequencer enforces the per-turn deadline; replies arriving after it fires
// are discarded.
type PickSource interface {
	// Open resolves the session's venue before the first round. A failure
	// here fails the session permanently.
	Open(ctx context.Context, sess *models.Session) error

	// RequestPick asks the participant for a pick and returns the raw text
	// of their reply. Any text that does not match a legal item is treated
	// as an invalid pick, not a transport error.
	RequestPick(ctx context.Context, sess *models.Session, p *models.Participant, legal []models.CatalogEntry) (string, error)
}

// Announcer delivers human-readable session messages. Fire-and-forget:
// failures are logged and never block sequencing.
type Announcer interface {
	Announce(ctx context.Context, sess *models.Session, text string) error
}
