package sched

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/weftworks/weft/pkg/domain"
)

func TestMemoryScheduler(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryScheduler()

	handle, err := s.Schedule(ctx, "alice/1", time.Now().Add(time.Hour), domain.Micro)
	if err != nil {
		t.Fatalf("schedule failed: %v", err)
	}
	if handle == "" {
		t.Fatal("expected non-empty handle")
	}

	tasks := s.Tasks()
	if len(tasks) != 1 || tasks[0].Ref != "alice/1" {
		t.Fatalf("unexpected task list: %+v", tasks)
	}

	if err := s.Cancel(ctx, handle); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if err := s.Cancel(ctx, handle); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("expected ErrTaskNotFound on double cancel, got %v", err)
	}
	if len(s.Tasks()) != 0 {
		t.Error("task still pending after cancel")
	}
}
