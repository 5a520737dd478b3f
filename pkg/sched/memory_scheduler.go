package sched

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/weftworks/weft/pkg/domain"
)

type MemoryScheduler struct {
	mu    sync.Mutex
	tasks map[domain.TaskHandle]Task
}

func NewMemoryScheduler() *MemoryScheduler {
	return &MemoryScheduler{tasks: make(map[domain.TaskHandle]Task)}
}

func (s *MemoryScheduler) Schedule(ctx context.Context, ref string, at time.Time, fee domain.Amount) (domain.TaskHandle, error) {
	handle := domain.TaskHandle(uuid.New().String())

	s.mu.Lock()
	s.tasks[handle] = Task{Handle: handle, Ref: ref, At: at, Fee: fee}
	s.mu.Unlock()
	return handle, nil
}

func (s *MemoryScheduler) Cancel(ctx context.Context, handle domain.TaskHandle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[handle]; !ok {
		return ErrTaskNotFound
	}
	delete(s.tasks, handle)
	return nil
}

// Tasks returns a snapshot of pending tasks.
func (s *MemoryScheduler) Tasks() []Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, t)
	}
	return out
}
