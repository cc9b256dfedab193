package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"social-auto-reply-go/internal/metrics"
	"social-auto-reply-go/internal/model"
	"social-auto-reply-go/internal/pipeline"
	"social-auto-reply-go/internal/platform"
	"social-auto-reply-go/internal/store"
)

var testMetrics = metrics.NewMetrics()

type stubPlatform struct {
	commentCalls int
}

func (s *stubPlatform) GetPost(ctx context.Context, postID string) (*platform.PostDetails, error) {
	return nil, fmt.Errorf("no details")
}

func (s *stubPlatform) PostComment(ctx context.Context, commentID, message string) error {
	s.commentCalls++
	return nil
}

type stubAI struct{}

func (stubAI) GenerateReply(ctx context.Context, prompt string) (string, error) {
	return "generated reply", nil
}

func newTestRouter(t *testing.T) (*gin.Engine, *store.Store, *stubPlatform) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.Event{}, &model.EmailLog{}))

	st := store.New(db)
	graph := &stubPlatform{}
	webhook := pipeline.NewWebhookPipeline(st, stubAI{}, graph, "PAGE", testMetrics)

	h := New(db, st, webhook, nil, "secret-token")

	router := gin.New()
	h.SetupRoutes(router)

	return router, st, graph
}

func TestVerifyWebhookCorrectToken(t *testing.T) {
	router, _, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet,
		"/webhook?hub.mode=subscribe&hub.verify_token=secret-token&hub.challenge=12345", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "12345", w.Body.String())
}

func TestVerifyWebhookWrongToken(t *testing.T) {
	router, _, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet,
		"/webhook?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=12345", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.NotContains(t, w.Body.String(), "12345")
}

func TestVerifyWebhookWrongMode(t *testing.T) {
	router, _, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet,
		"/webhook?hub.mode=unsubscribe&hub.verify_token=secret-token&hub.challenge=12345", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestReceiveWebhookProcessesAndAcks(t *testing.T) {
	router, st, graph := newTestRouter(t)

	body := `{
		"object": "page",
		"entry": [{"id": "PAGE", "changes": [{"field": "feed", "value": {
			"post_id": "111_222",
			"comment_id": "111_333",
			"parent_id": "111_222",
			"item": "comment",
			"message": "hello",
			"from": {"id": "999"}
		}}]}]
	}`

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "EVENT_RECEIVED", w.Body.String())
	assert.Equal(t, 1, graph.commentCalls)

	events, err := st.ListEvents()
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.True(t, events[0].Replied)
}

func TestReceiveWebhookMalformedStillAcks(t *testing.T) {
	router, st, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader("not json"))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "EVENT_RECEIVED", w.Body.String())

	events, err := st.ListEvents()
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestGetEvents(t *testing.T) {
	router, st, _ := newTestRouter(t)

	require.NoError(t, st.SaveEvent(&model.Event{CommentID: "c1", Message: "first"}))
	require.NoError(t, st.SaveEvent(&model.Event{CommentID: "c2", Message: "second"}))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Events []model.Event `json:"events"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Len(t, response.Events, 2)
	assert.Equal(t, "c2", response.Events[0].CommentID)
}

func TestGetEmailLogs(t *testing.T) {
	router, st, _ := newTestRouter(t)

	require.NoError(t, st.CreateEmailLog(&model.EmailLog{MessageID: "m1", Sender: "a@example.com"}))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/emails", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Emails []model.EmailLog `json:"emails"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Len(t, response.Emails, 1)
	assert.Equal(t, "m1", response.Emails[0].MessageID)
}

func TestRunMailboxOnceWithoutMailbox(t *testing.T) {
	router, _, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/mailbox/run-once", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "not configured")
}
