package main

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// taskTimeout bounds how long a fired task may run.
const taskTimeout = 30 * time.Second

// scheduler runs named deferred tasks. Scheduling a name that is already
// pending replaces the previous task, so repeated close presses collapse into
// one deletion.
type scheduler struct {
	// l is the logger.
	l *slog.Logger

	mu     sync.Mutex
	timers map[string]*time.Timer
}

func newScheduler(l *slog.Logger) *scheduler {
	return &scheduler{
		l:      l,
		timers: make(map[string]*time.Timer),
	}
}

// Schedule runs task after delay.
func (s *scheduler) Schedule(name string, delay time.Duration, task func(ctx context.Context)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.timers[name]; ok {
		t.Stop()
	}

	runID := uuid.NewString()
	s.l.Debug("Scheduling task",
		slog.String("task", name),
		slog.String("run_id", runID),
		slog.Duration("delay", delay),
	)

	s.timers[name] = time.AfterFunc(delay, func() {
		s.mu.Lock()
		delete(s.timers, name)
		s.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), taskTimeout)
		defer cancel()

		s.l.Debug("Running task", slog.String("task", name), slog.String("run_id", runID))
		task(ctx)
	})
}

// Stop cancels all pending tasks.
func (s *scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for name, t := range s.timers {
		t.Stop()
		delete(s.timers, name)
	}
}
