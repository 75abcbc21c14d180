package engine

import (
	"testing"
	"time"

	"github.com/draftworks/draftd/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func viewSession() *models.Session {
	a := models.CatalogEntry{ID: uuid.New(), Name: "A", Cost: 10}
	b := models.CatalogEntry{ID: uuid.New(), Name: "B", Cost: 20}
	c := models.CatalogEntry{ID: uuid.New(), Name: "C", Cost: 50}

	p1 := &models.Participant{ID: uuid.New(), UserID: "p1", RemainingBudget: 20}
	p2 := &models.Participant{ID: uuid.New(), UserID: "p2", RemainingBudget: 10, Disqualified: true}

	sess := &models.Session{
		ID:           uuid.New(),
		Budget:       30,
		Rounds:       2,
		LegalItems:   []models.CatalogEntry{a, b, c},
		Participants: []*models.Participant{p1, p2},
	}
	now := time.Now()
	ev1 := models.SelectionEvent{ID: uuid.New(), SessionID: sess.ID, Round: 1, ParticipantID: p1.ID, UserID: "p1", Item: a, PickedAt: now}
	ev2 := models.SelectionEvent{ID: uuid.New(), SessionID: sess.ID, Round: 1, ParticipantID: p2.ID, UserID: "p2", Item: b, PickedAt: now.Add(time.Second)}
	ev3 := models.SelectionEvent{ID: uuid.New(), SessionID: sess.ID, Round: 2, ParticipantID: p1.ID, UserID: "p1", Item: b, PickedAt: now.Add(2 * time.Second)}
	p1.Picks = []models.SelectionEvent{ev1, ev3}
	p2.Picks = []models.SelectionEvent{ev2}
	sess.Selections = []models.SelectionEvent{ev1, ev2, ev3}
	return sess
}

func TestRemainingItems(t *testing.T) {
	sess := viewSession()
	remaining := RemainingItems(sess)
	require.Len(t, remaining, 1)
	assert.Equal(t, "C", remaining[0].Name)

	// Remaining and drafted sets never intersect.
	drafted := make(map[string]struct{})
	for _, ev := range sess.Selections {
		drafted[ev.Item.Name] = struct{}{}
	}
	for _, item := range remaining {
		_, taken := drafted[item.Name]
		assert.False(t, taken, "item %s both drafted and remaining", item.Name)
	}
}

func TestRemainingItemsEmptyHistory(t *testing.T) {
	sess := viewSession()
	sess.Selections = nil
	assert.Len(t, RemainingItems(sess), 3)
}

func TestSummarize(t *testing.T) {
	sess := viewSession()

	sum, err := Summarize(sess, "p1")
	require.NoError(t, err)
	assert.Equal(t, 20, sum.RemainingBudget)
	assert.False(t, sum.Disqualified)
	require.Len(t, sum.Picks, 2)
	assert.Equal(t, "A", sum.Picks[0].Item.Name)
	assert.Equal(t, "B", sum.Picks[1].Item.Name)

	sum2, err := Summarize(sess, "p2")
	require.NoError(t, err)
	assert.True(t, sum2.Disqualified)

	_, err = Summarize(sess, "nobody")
	assert.Error(t, err)
}

func TestSummarizeIsACopy(t *testing.T) {
	sess := viewSession()
	sum, err := Summarize(sess, "p1")
	require.NoError(t, err)
	sum.Picks[0].Item.Name = "mutated"
	assert.Equal(t, "A", sess.Participants[0].Picks[0].Item.Name)
}

func TestRoundHistory(t *testing.T) {
	sess := viewSession()
	history := RoundHistory(sess)
	require.Len(t, history, 2)

	assert.Equal(t, 1, history[0].Round)
	require.Len(t, history[0].Events, 2)
	assert.Equal(t, "p1", history[0].Events[0].UserID)
	assert.Equal(t, "p2", history[0].Events[1].UserID)

	assert.Equal(t, 2, history[1].Round)
	require.Len(t, history[1].Events, 1)
	assert.Equal(t, "p1", history[1].Events[0].UserID)
}

func TestRoundHistoryEmpty(t *testing.T) {
	sess := viewSession()
	sess.Selections = nil
	assert.Empty(t, RoundHistory(sess))
}
