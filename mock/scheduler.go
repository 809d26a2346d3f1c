package mock

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// TaskFunc performs one emission cycle. A returned error is logged and
// the schedule continues; downstream connectivity may recover.
type TaskFunc func(ctx context.Context) error

// Task is a running periodic emission. Cancelling one task never
// affects the others.
type Task struct {
	name   string
	cancel context.CancelFunc
	done   chan struct{}
}

// Name returns the identifier the task was scheduled under.
func (t *Task) Name() string {
	return t.name
}

// Cancel stops the task and waits for its loop to exit. No emission
// starts after Cancel returns.
func (t *Task) Cancel() {
	t.cancel()
	<-t.done
}

// Scheduler runs one independent periodic task per scheduled emission.
type Scheduler struct {
	logger *slog.Logger

	mu    sync.Mutex
	tasks []*Task
}

// SchedulerOption configures the Scheduler.
type SchedulerOption func(*Scheduler)

// WithSchedulerLogger sets the logger.
func WithSchedulerLogger(logger *slog.Logger) SchedulerOption {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

// NewScheduler creates an idle scheduler.
func NewScheduler(opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Schedule starts a periodic task that runs fn, sleeps for interval and
// repeats until the task is cancelled or ctx is done. A zero or
// negative interval is a configuration error.
func (s *Scheduler) Schedule(ctx context.Context, name string, interval time.Duration, fn TaskFunc) (*Task, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("emission interval for %q must be positive, got %s", name, interval)
	}

	taskCtx, cancel := context.WithCancel(ctx)
	task := &Task{
		name:   name,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	s.mu.Lock()
	s.tasks = append(s.tasks, task)
	s.mu.Unlock()

	go s.run(taskCtx, task, interval, fn)
	return task, nil
}

// Stop cancels every scheduled task and waits for all loops to exit.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	tasks := s.tasks
	s.tasks = nil
	s.mu.Unlock()

	for _, task := range tasks {
		task.Cancel()
	}
}

func (s *Scheduler) run(ctx context.Context, task *Task, interval time.Duration, fn TaskFunc) {
	defer close(task.done)

	timer := time.NewTimer(0)
	defer timer.Stop()
	// Drain the immediate fire so the first cycle emits right away.
	<-timer.C

	for {
		if ctx.Err() != nil {
			return
		}
		if err := fn(ctx); err != nil {
			s.logger.Error("emission failed", "task", task.name, "error", err)
		}

		timer.Reset(interval)
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
	}
}
