package engine

import (
	"strings"

	"github.com/draftworks/draftd/internal/models"
)

// RejectReason classifies why a candidate pick was refused.
type RejectReason string

const (
	ReasonItemUnknown        RejectReason = "ITEM_UNKNOWN"
	ReasonItemNotLegal       RejectReason = "ITEM_NOT_LEGAL"
	ReasonInsufficientBudget RejectReason = "INSUFFICIENT_BUDGET"
)

// Verdict is the outcome of validating a candidate pick. Entry is set only
// when the pick was accepted.
type Verdict struct {
	Entry  *models.CatalogEntry
	Reason RejectReason
}

// Accepted reports whether the pick passed validation.
func (v Verdict) Accepted() bool {
	return v.Entry != nil
}

// Validate checks a candidate pick against the session's legal set and the
// participant's remaining budget. Name comparison is case-insensitive.
// inCatalog distinguishes an item missing from the catalog entirely from one
// that exists but is not legal for this session. Pure: no state is mutated.
func Validate(name string, legal []models.CatalogEntry, inCatalog func(name string) bool, remainingBudget int) Verdict {
	name = strings.TrimSpace(name)
	var match *models.CatalogEntry
	for i := range legal {
		if strings.EqualFold(legal[i].Name, name) {
			match = &legal[i]
			break
		}
	}
	if match == nil {
		if inCatalog != nil && inCatalog(name) {
			return Verdict{Reason: ReasonItemNotLegal}
		}
		return Verdict{Reason: ReasonItemUnknown}
	}
	if match.Cost > remainingBudget {
		return Verdict{Reason: ReasonInsufficientBudget}
	}
	entry := *match
	return Verdict{Entry: &entry}
}
