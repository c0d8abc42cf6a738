// Package upload simulates committing a finished recording to the task
// record as a time-extended operation with discrete progress notifications.
package upload

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/PreetShah25/arbitra-AI/internal/capture"
	"github.com/PreetShah25/arbitra-AI/internal/logging"
	"github.com/PreetShah25/arbitra-AI/internal/schedule"
	"github.com/PreetShah25/arbitra-AI/internal/task"
)

// Defaults match the reference behavior: +20 points every half second.
const (
	DefaultInterval  = 500 * time.Millisecond
	DefaultIncrement = 20
)

// Patcher applies task mutations. *task.Store satisfies it.
type Patcher interface {
	Apply(ctx context.Context, id string, muts ...task.Mutation) error
}

// Progress is one notification from an upload attempt.
type Progress struct {
	AttemptID uint64
	TaskID    string
	Percent   int
	Done      bool
	Err       error
}

// Attempt is one in-flight upload. mu serializes its notifications.
type Attempt struct {
	mu      sync.Mutex
	job     *schedule.Job
	taskID  string
	percent int
}

// ID uniquely identifies the attempt.
func (a *Attempt) ID() uint64 {
	return a.job.ID()
}

// Simulator runs upload attempts, one per task at a time.
type Simulator struct {
	patcher   Patcher
	scheduler schedule.Scheduler
	interval  time.Duration
	increment int
	logger    *slog.Logger

	mu       sync.Mutex
	attempts map[string]*Attempt
}

// Config tunes the simulated upload.
type Config struct {
	Interval  time.Duration
	Increment int
	Logger    *slog.Logger
}

// NewSimulator creates a simulator that patches through p and schedules ticks on sched.
func NewSimulator(p Patcher, sched schedule.Scheduler, cfg Config) *Simulator {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Increment <= 0 || cfg.Increment > 100 {
		cfg.Increment = DefaultIncrement
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Discard()
	}
	return &Simulator{
		patcher:   p,
		scheduler: sched,
		interval:  cfg.Interval,
		increment: cfg.Increment,
		logger:    cfg.Logger,
		attempts:  make(map[string]*Attempt),
	}
}

// Start begins committing rec to taskID, replacing any attempt already
// running for that task. notify receives progress in order, starting at 0
// and ending with a Done notification.
func (s *Simulator) Start(ctx context.Context, taskID string, rec capture.Recording, notify func(Progress)) *Attempt {
	if notify == nil {
		notify = func(Progress) {}
	}
	s.Cancel(taskID)

	a := &Attempt{taskID: taskID}
	a.mu.Lock()
	defer a.mu.Unlock()

	s.mu.Lock()
	a.job = s.scheduler.Every(s.interval, func() bool {
		return s.tick(ctx, a, rec, notify)
	})
	s.attempts[taskID] = a
	s.mu.Unlock()

	s.logger.Info("upload_started", "task_id", taskID, "attempt", a.ID(), "ref", rec.Ref())
	notify(Progress{AttemptID: a.ID(), TaskID: taskID, Percent: 0})
	return a
}

func (s *Simulator) tick(ctx context.Context, a *Attempt, rec capture.Recording, notify func(Progress)) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	s.mu.Lock()
	if s.attempts[a.taskID] != a || a.job.Cancelled() {
		s.mu.Unlock()
		return false
	}
	a.percent += s.increment
	if a.percent > 100 {
		a.percent = 100
	}
	percent := a.percent
	finished := percent >= 100
	if finished {
		delete(s.attempts, a.taskID)
	}
	s.mu.Unlock()

	if !finished {
		s.logger.Debug("upload_progress", "task_id", a.taskID, "attempt", a.ID(), "percent", percent)
		notify(Progress{AttemptID: a.ID(), TaskID: a.taskID, Percent: percent})
		return true
	}

	err := s.patcher.Apply(ctx, a.taskID, task.AttachVideo{Ref: rec.Ref(), Status: task.StatusAnalyzing})
	if err != nil {
		if errors.Is(err, task.ErrNotFound) {
			s.logger.Warn("upload_task_missing", "task_id", a.taskID)
		} else {
			s.logger.Error("upload_patch_failed", "task_id", a.taskID, "error", err)
		}
	} else {
		s.logger.Info("upload_completed", "task_id", a.taskID, "attempt", a.ID())
	}
	notify(Progress{AttemptID: a.ID(), TaskID: a.taskID, Percent: 100, Done: true, Err: err})
	return false
}

// Cancel stops taskID's in-flight attempt. It reports whether one was running.
func (s *Simulator) Cancel(taskID string) bool {
	s.mu.Lock()
	a, ok := s.attempts[taskID]
	if ok {
		delete(s.attempts, taskID)
		a.job.Cancel()
	}
	s.mu.Unlock()

	if ok {
		s.logger.Info("upload_cancelled", "task_id", taskID, "attempt", a.ID())
	}
	return ok
}

// CancelAll stops every in-flight attempt.
func (s *Simulator) CancelAll() {
	s.mu.Lock()
	ids := make([]string, 0, len(s.attempts))
	for id := range s.attempts {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	for _, id := range ids {
		s.Cancel(id)
	}
}

// InFlight reports whether taskID has an attempt running.
func (s *Simulator) InFlight(taskID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.attempts[taskID]
	return ok
}
