package scheduler

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"social-auto-reply-go/internal/config"
	"social-auto-reply-go/internal/mail"
	"social-auto-reply-go/internal/metrics"
	"social-auto-reply-go/internal/model"
	"social-auto-reply-go/internal/pipeline"
	"social-auto-reply-go/internal/store"
)

var testMetrics = metrics.NewMetrics()

// emptyFetcher implements mail.Fetcher over an always-empty mailbox
type emptyFetcher struct{}

func (emptyFetcher) FetchLatest(ctx context.Context) (*mail.Inbound, error) { return nil, nil }
func (emptyFetcher) Close() error                                           { return nil }

// nullSender implements mail.Sender but is never reached
type nullSender struct{}

func (nullSender) SendReply(ctx context.Context, to, subject, body string) error { return nil }
func (nullSender) Close() error                                                  { return nil }

func newTestScheduler(t *testing.T) *Scheduler {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.Event{}, &model.EmailLog{}))

	mailbox := pipeline.NewMailboxPipeline(store.New(db), nil, emptyFetcher{}, nullSender{}, testMetrics)
	return New(&config.SchedulerConfig{IntervalSeconds: 60}, mailbox)
}

func TestSchedulerRestart(t *testing.T) {
	sched := newTestScheduler(t)

	require.NoError(t, sched.Start())
	assert.True(t, sched.IsRunning())

	// double start is rejected
	assert.Error(t, sched.Start())

	require.NoError(t, sched.Stop())
	assert.False(t, sched.IsRunning())

	require.NoError(t, sched.Start())
	assert.True(t, sched.IsRunning())

	// context is active again after a restart
	assert.NoError(t, sched.ctx.Err())

	require.NoError(t, sched.Stop())
}

func TestSchedulerNextRun(t *testing.T) {
	sched := newTestScheduler(t)

	assert.True(t, sched.NextRun().IsZero())

	require.NoError(t, sched.Start())
	assert.False(t, sched.NextRun().IsZero())

	require.NoError(t, sched.Stop())
	assert.True(t, sched.NextRun().IsZero())
}

func TestSchedulerRunOnce(t *testing.T) {
	sched := newTestScheduler(t)

	status, err := sched.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Contains(t, status, "empty")
}
