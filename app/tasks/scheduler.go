package tasks

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

const DefaultInterval = 15 * time.Minute

var (
	ErrRunInProgress    = errors.New("a run is already in progress")
	ErrSchedulerStopped = errors.New("scheduler is stopped")
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

// RunStatus describes the most recent completed run.
type RunStatus struct {
	Running           bool          `json:"running"`
	StartedAt         *time.Time    `json:"started_at,omitempty"`
	FinishedAt        *time.Time    `json:"finished_at,omitempty"`
	NotificationsSent int           `json:"notifications_sent"`
	Errors            []SourceError `json:"errors"`
	Failure           string        `json:"failure,omitempty"`
}

// Scheduler starts a run every interval and on demand. Runs never overlap.
type Scheduler struct {
	runner   Runner
	interval time.Duration
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	running  atomic.Bool

	// stopMu orders wg.Add against the Wait in Stop.
	stopMu  sync.Mutex
	stopped bool

	mu   sync.Mutex
	last RunStatus
}

func NewScheduler(runner Runner, interval time.Duration) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	if interval <= 0 {
		interval = DefaultInterval
	}

	return &Scheduler{
		runner:   runner,
		interval: interval,
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (s *Scheduler) Start() {
	s.stopMu.Lock()
	defer s.stopMu.Unlock()
	if s.stopped {
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		if err := s.run(); err != nil {
			slog.Warn("Startup run skipped", "error", err)
		}

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				if err := s.run(); err != nil {
					slog.Warn("Scheduled run skipped", "error", err)
				}
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	s.stopMu.Lock()
	s.stopped = true
	s.stopMu.Unlock()

	s.cancel()
	s.wg.Wait()
}

// Trigger starts a run in the background. It returns ErrRunInProgress when
// a run is already executing and ErrSchedulerStopped after Stop.
func (s *Scheduler) Trigger() error {
	s.stopMu.Lock()
	defer s.stopMu.Unlock()

	if s.stopped || s.ctx.Err() != nil {
		return ErrSchedulerStopped
	}
	if !s.running.CompareAndSwap(false, true) {
		return ErrRunInProgress
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.execute()
	}()
	return nil
}

func (s *Scheduler) Status() RunStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	status := s.last
	status.Running = s.running.Load()
	return status
}

func (s *Scheduler) run() error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrRunInProgress
	}
	s.execute()
	return nil
}

// execute performs one run; the caller holds the running flag.
func (s *Scheduler) execute() {
	defer s.running.Store(false)

	started := time.Now()
	summary, err := s.runner.Run(s.ctx)
	finished := time.Now()

	status := RunStatus{StartedAt: &started, FinishedAt: &finished}
	if err != nil {
		slog.Error("Run aborted", "error", err)
		status.Failure = err.Error()
	} else {
		status.NotificationsSent = summary.NotificationsSent()
		status.Errors = summary.Errors()
	}

	s.mu.Lock()
	s.last = status
	s.mu.Unlock()
}
