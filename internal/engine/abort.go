package engine

import "sync"

// AbortSignal carries an administrative cancellation request to a running
// sequencer. The sequencer observes it at turn boundaries only, never
// mid-validation.
type AbortSignal struct {
	mu        sync.Mutex
	requested bool
	reason    string
}

func NewAbortSignal() *AbortSignal {
	return &AbortSignal{}
}

// Request asks the session to finish at the next turn boundary. The first
// reason wins.
func (a *AbortSignal) Request(reason string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.requested {
		return
	}
	a.requested = true
	a.reason = reason
}

// Check reports whether an abort has been requested and with what reason.
func (a *AbortSignal) Check() (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.reason, a.requested
}
