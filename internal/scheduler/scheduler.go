package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"social-auto-reply-go/internal/config"
	"social-auto-reply-go/internal/pipeline"
)

// Scheduler runs the mailbox reply pipeline on a fixed interval. Exactly
// one iteration runs at a time; a tick that arrives while the previous
// iteration is still in flight is dropped.
type Scheduler struct {
	cron      *cron.Cron
	entryID   cron.EntryID
	config    *config.SchedulerConfig
	mailbox   *pipeline.MailboxPipeline
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	runMu     sync.Mutex
	isRunning bool
	mu        sync.RWMutex
}

// New creates a new scheduler
func New(cfg *config.SchedulerConfig, mailbox *pipeline.MailboxPipeline) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		cron:    cron.New(cron.WithSeconds()),
		config:  cfg,
		mailbox: mailbox,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}

	if s.ctx.Err() != nil {
		s.ctx, s.cancel = context.WithCancel(context.Background())
	}

	schedule := fmt.Sprintf("@every %ds", s.config.IntervalSeconds)

	entryID, err := s.cron.AddFunc(schedule, s.pollMailbox)
	if err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}

	s.entryID = entryID
	s.cron.Start()
	s.isRunning = true

	logrus.Infof("Scheduler started with interval: %d seconds", s.config.IntervalSeconds)
	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return nil
	}

	// Cancel context to stop any running operations
	s.cancel()

	// Stop the cron scheduler
	ctx := s.cron.Stop()

	// Wait for all jobs to complete
	select {
	case <-ctx.Done():
		logrus.Info("Scheduler stopped gracefully")
	case <-time.After(30 * time.Second):
		logrus.Warn("Scheduler stop timeout, forcing shutdown")
	}

	s.cron.Remove(s.entryID)
	s.isRunning = false
	return nil
}

// IsRunning returns whether the scheduler is running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// pollMailbox runs one poll iteration. The run mutex keeps iterations
// from overlapping when a run outlasts the interval.
func (s *Scheduler) pollMailbox() {
	if !s.runMu.TryLock() {
		logrus.Debug("Previous poll iteration still running, skipping tick")
		return
	}
	defer s.runMu.Unlock()

	s.wg.Add(1)
	defer s.wg.Done()

	if s.ctx.Err() != nil {
		return
	}

	startTime := time.Now()

	status, err := s.mailbox.RunOnce(s.ctx)
	if err != nil {
		logrus.Errorf("Mailbox poll failed: %v", err)
		return
	}

	logrus.Infof("Mailbox poll completed in %v: %s", time.Since(startTime), status)
}

// RunOnce runs one poll iteration synchronously (for manual triggering)
func (s *Scheduler) RunOnce(ctx context.Context) (string, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	return s.mailbox.RunOnce(ctx)
}

// NextRun returns the time of the next scheduled run
func (s *Scheduler) NextRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return time.Time{}
	}
	return s.cron.Entry(s.entryID).Next
}

// LastRun returns the time of the last run
func (s *Scheduler) LastRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return time.Time{}
	}
	return s.cron.Entry(s.entryID).Prev
}

// Wait waits for in-flight iterations to finish
func (s *Scheduler) Wait() {
	s.wg.Wait()
}
