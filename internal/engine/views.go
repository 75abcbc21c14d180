package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/draftworks/draftd/internal/models"
)

// Read-only projections over session history and ledger state, used by
// reporting collaborators. None of these mutate the session.

// ParticipantSummary is a participant's current ledger view.
type ParticipantSummary struct {
	UserID          string                  `json:"user_id"`
	DisplayName     string                  `json:"display_name"`
	RemainingBudget int                     `json:"remaining_budget"`
	Disqualified    bool                    `json:"disqualified"`
	Picks           []models.SelectionEvent `json:"picks"`
}

// RoundEvents groups one round's selections in chronological order.
type RoundEvents struct {
	Round  int                     `json:"round"`
	Events []models.SelectionEvent `json:"events"`
}

// RemainingItems returns the session's legal items minus every item already
// drafted, preserving legal-set order.
func RemainingItems(sess *models.Session) []models.CatalogEntry {
	drafted := make(map[string]struct{}, len(sess.Selections))
	for _, ev := range sess.Selections {
		drafted[strings.ToLower(ev.Item.Name)] = struct{}{}
	}
	var remaining []models.CatalogEntry
	for _, item := range sess.LegalItems {
		if _, taken := drafted[strings.ToLower(item.Name)]; !taken {
			remaining = append(remaining, item)
		}
	}
	return remaining
}

// Summarize returns the budget and ordered picks for one participant.
func Summarize(sess *models.Session, userID string) (ParticipantSummary, error) {
	p, ok := sess.ParticipantByUserID(userID)
	if !ok {
		return ParticipantSummary{}, fmt.Errorf("participant %s not enrolled in session %s", userID, sess.ID)
	}
	return ParticipantSummary{
		UserID:          p.UserID,
		DisplayName:     p.DisplayName,
		RemainingBudget: p.RemainingBudget,
		Disqualified:    p.Disqualified,
		Picks:           append([]models.SelectionEvent(nil), p.Picks...),
	}, nil
}

// RoundHistory groups the session's selections by round, ascending, keeping
// chronological order within each round.
func RoundHistory(sess *models.Session) []RoundEvents {
	byRound := make(map[int][]models.SelectionEvent)
	for _, ev := range sess.Selections {
		byRound[ev.Round] = append(byRound[ev.Round], ev)
	}
	rounds := make([]int, 0, len(byRound))
	for r := range byRound {
		rounds = append(rounds, r)
	}
	sort.Ints(rounds)
	out := make([]RoundEvents, 0, len(rounds))
	for _, r := range rounds {
		out = append(out, RoundEvents{Round: r, Events: byRound[r]})
	}
	return out
}
