package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/SscSPs/fulfillment_coordinator/internal/core/domain"
	portssvc "github.com/SscSPs/fulfillment_coordinator/internal/core/ports/services"
	"github.com/SscSPs/fulfillment_coordinator/internal/middleware"
)

// MemoryScheduler keeps tasks in process. Due tasks run only when RunDue is called,
// which lets tests drive deferred actions against a fixed clock.
type MemoryScheduler struct {
	mu    sync.Mutex
	tasks []domain.ScheduledTask
}

// NewMemoryScheduler creates an empty scheduler.
func NewMemoryScheduler() *MemoryScheduler {
	return &MemoryScheduler{}
}

var _ portssvc.Scheduler = (*MemoryScheduler)(nil)

func (s *MemoryScheduler) Schedule(_ context.Context, task domain.ScheduledTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append(s.tasks, task)
	return nil
}

// Pending returns a copy of the queued tasks ordered by due time.
func (s *MemoryScheduler) Pending() []domain.ScheduledTask {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.ScheduledTask, len(s.tasks))
	copy(out, s.tasks)
	sort.SliceStable(out, func(i, j int) bool { return out[i].RunAt.Before(out[j].RunAt) })
	return out
}

// RunDue hands every task due at now to handler, including tasks scheduled while
// handling that are already due. Failed tasks stay queued.
func (s *MemoryScheduler) RunDue(ctx context.Context, now time.Time, handler portssvc.TaskHandler) (int, error) {
	ran := 0
	for {
		task, ok := s.popDue(now)
		if !ok {
			return ran, nil
		}
		if err := handler.HandleTask(ctx, task); err != nil {
			s.mu.Lock()
			s.tasks = append(s.tasks, task)
			s.mu.Unlock()
			return ran, fmt.Errorf("task %s: %w", task.TaskID, err)
		}
		ran++
	}
}

// Run drains due tasks every interval until ctx is cancelled. A failed task
// stays queued and is retried on the next tick.
func (s *MemoryScheduler) Run(ctx context.Context, interval time.Duration, now func() time.Time, handler portssvc.TaskHandler) {
	logger := middleware.GetLoggerFromCtx(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Info("Scheduler poller started", slog.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			logger.Info("Scheduler poller stopped")
			return
		case <-ticker.C:
			if _, err := s.RunDue(ctx, now(), handler); err != nil {
				logger.Error("Scheduled task failed", slog.String("error", err.Error()))
			}
		}
	}
}

func (s *MemoryScheduler) popDue(now time.Time) (domain.ScheduledTask, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	best := -1
	for i, t := range s.tasks {
		if t.RunAt.After(now) {
			continue
		}
		if best < 0 || t.RunAt.Before(s.tasks[best].RunAt) {
			best = i
		}
	}
	if best < 0 {
		return domain.ScheduledTask{}, false
	}
	task := s.tasks[best]
	s.tasks = append(s.tasks[:best], s.tasks[best+1:]...)
	return task, true
}
