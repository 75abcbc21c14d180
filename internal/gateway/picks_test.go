package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/draftworks/draftd/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func routerSession() (*models.Session, *models.Participant) {
	p := &models.Participant{ID: uuid.New(), UserID: "u1", RemainingBudget: 30}
	sess := &models.Session{
		ID:           uuid.New(),
		Status:       models.SessionStatusRunning,
		Participants: []*models.Participant{p},
	}
	return sess, p
}

func TestSubmitDeliversToWaiter(t *testing.T) {
	router := NewPickRouter()
	sess, p := routerSession()

	got := make(chan string, 1)
	ready := make(chan struct{})
	go func() {
		close(ready)
		text, err := router.RequestPick(context.Background(), sess, p, nil)
		require.NoError(t, err)
		got <- text
	}()
	<-ready

	// The waiter registers asynchronously; retry until the submission lands.
	require.Eventually(t, func() bool {
		return router.Submit(sess.ID, "u1", "Pikachu")
	}, time.Second, 5*time.Millisecond)

	select {
	case text := <-got:
		assert.Equal(t, "Pikachu", text)
	case <-time.After(time.Second):
		t.Fatal("pick never delivered")
	}
}

func TestSubmitWithoutWaiter(t *testing.T) {
	router := NewPickRouter()
	assert.False(t, router.Submit(uuid.New(), "u1", "Pikachu"))
}

func TestRequestPickCancelled(t *testing.T) {
	router := NewPickRouter()
	sess, p := routerSession()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := router.RequestPick(ctx, sess, p, nil)
	assert.ErrorIs(t, err, context.Canceled)

	// The waiter must be deregistered after cancellation.
	assert.False(t, router.Submit(sess.ID, p.UserID, "late"))
}

func TestHandleSubmit(t *testing.T) {
	router := NewPickRouter()
	sess, p := routerSession()

	go func() {
		_, _ = router.RequestPick(context.Background(), sess, p, nil)
	}()
	require.Eventually(t, func() bool {
		router.mu.Lock()
		defer router.mu.Unlock()
		return len(router.waiters) == 1
	}, time.Second, 5*time.Millisecond)

	body := `{"session_id": "` + sess.ID.String() + `", "user_id": "u1", "text": "Pikachu"}`
	req := httptest.NewRequest(http.MethodPost, "/picks", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.HandleSubmit(rec, req)
	assert.Equal(t, http.StatusAccepted, rec.Code)

	// Second submission has nobody waiting.
	req = httptest.NewRequest(http.MethodPost, "/picks", strings.NewReader(body))
	rec = httptest.NewRecorder()
	router.HandleSubmit(rec, req)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandleSubmitRejectsBadRequests(t *testing.T) {
	router := NewPickRouter()

	req := httptest.NewRequest(http.MethodGet, "/picks", nil)
	rec := httptest.NewRecorder()
	router.HandleSubmit(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/picks", strings.NewReader("not json"))
	rec = httptest.NewRecorder()
	router.HandleSubmit(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/picks", strings.NewReader(`{"session_id": "nope", "user_id": "u1"}`))
	rec = httptest.NewRecorder()
	router.HandleSubmit(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
