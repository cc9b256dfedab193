package store

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"social-auto-reply-go/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.Event{}, &model.EmailLog{}))

	return New(db)
}

func strPtr(s string) *string { return &s }

func TestHasRepliedOnlyCountsSuccess(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.SaveEvent(&model.Event{CommentID: "c1", Replied: false}))

	handled, err := s.HasReplied("c1")
	require.NoError(t, err)
	assert.False(t, handled, "unreplied record must not block a retry")

	require.NoError(t, s.SaveEvent(&model.Event{CommentID: "c1", Replied: true}))

	handled, err = s.HasReplied("c1")
	require.NoError(t, err)
	assert.True(t, handled)
}

func TestHasRepliedEmptyID(t *testing.T) {
	s := newTestStore(t)

	handled, err := s.HasReplied("")
	require.NoError(t, err)
	assert.False(t, handled)
}

func TestSaveEventUpsertsByCommentID(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.SaveEvent(&model.Event{CommentID: "c1", Message: "first"}))
	require.NoError(t, s.SaveEvent(&model.Event{CommentID: "c1", Message: "second", Replied: true}))

	events, err := s.ListEvents()
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "second", events[0].Message)
	assert.True(t, events[0].Replied)
}

func TestSaveEventLeavesRepliedRowUntouched(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.SaveEvent(&model.Event{CommentID: "c1", AIReply: strPtr("done"), Replied: true}))
	require.NoError(t, s.SaveEvent(&model.Event{CommentID: "c1", Replied: false}))

	events, err := s.ListEvents()
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.True(t, events[0].Replied, "a successful record must not be downgraded")
	require.NotNil(t, events[0].AIReply)
	assert.Equal(t, "done", *events[0].AIReply)
}

func TestSaveEventWithoutCommentID(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.SaveEvent(&model.Event{PostID: "p1", Item: "post"}))
	require.NoError(t, s.SaveEvent(&model.Event{PostID: "p2", Item: "post"}))

	events, err := s.ListEvents()
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestListEventsNewestFirst(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.SaveEvent(&model.Event{CommentID: "c1"}))
	require.NoError(t, s.SaveEvent(&model.Event{CommentID: "c2"}))

	events, err := s.ListEvents()
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "c2", events[0].CommentID)
	assert.Equal(t, "c1", events[1].CommentID)
}

func TestCreateEmailLogDuplicateIsNoOp(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.CreateEmailLog(&model.EmailLog{MessageID: "m1", Sender: "a@example.com"}))

	// a second insert for the same message id must not surface an error
	require.NoError(t, s.CreateEmailLog(&model.EmailLog{MessageID: "m1", Sender: "b@example.com"}))

	logs, err := s.ListEmailLogs()
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "a@example.com", logs[0].Sender)

	handled, err := s.HasEmailLog("m1")
	require.NoError(t, err)
	assert.True(t, handled)

	handled, err = s.HasEmailLog("m2")
	require.NoError(t, err)
	assert.False(t, handled)
}

func TestListEmailLogsNewestFirst(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.CreateEmailLog(&model.EmailLog{MessageID: "m1"}))
	require.NoError(t, s.CreateEmailLog(&model.EmailLog{MessageID: "m2"}))

	logs, err := s.ListEmailLogs()
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "m2", logs[0].MessageID)
}
