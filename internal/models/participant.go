package models

import (
	"github.com/google/uuid"
)

// DisqualifyReason records why a participant was removed from a session.
type DisqualifyReason string

const (
	DisqualifyTimeout            DisqualifyReason = "TIMEOUT"
	DisqualifyItemUnknown        DisqualifyReason = "ITEM_UNKNOWN"
	DisqualifyItemNotLegal       DisqualifyReason = "ITEM_NOT_LEGAL"
	DisqualifyInsufficientBudget DisqualifyReason = "INSUFFICIENT_BUDGET"
	DisqualifyCollaboratorFault  DisqualifyReason = "COLLABORATOR_FAULT"
)

// Participant is one enrolled drafter in a session. RemainingBudget only ever
// decreases, and never changes after Disqualified is set.
type Participant struct {
	ID               uuid.UUID        `json:"id"`
	UserID           string           `json:"user_id"`
	DisplayName      string           `json:"display_name"`
	RemainingBudget  int              `json:"remaining_budget"`
	Disqualified     bool             `json:"disqualified"`
	DisqualifyReason DisqualifyReason `json:"disqualify_reason,omitempty"`
	Picks            []SelectionEvent `json:"picks"`
}
