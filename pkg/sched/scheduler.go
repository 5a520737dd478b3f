package sched

import (
	"context"
	"errors"
	"time"

	"github.com/weftworks/weft/pkg/domain"
)

var ErrTaskNotFound = errors.New("scheduled task not found")

// Task is one pending invocation registered with the external scheduler.
type Task struct {
	Handle domain.TaskHandle `json:"handle"`
	Ref    string            `json:"ref"`
	At     time.Time         `json:"at"`
	Fee    domain.Amount     `json:"fee"`
}

// Scheduler is the external task scheduler collaborator. The ledger stores
// returned handles and re-schedules with an advanced timestamp after each
// run; it never retries on its own.

type Scheduler interface {
	Schedule(ctx context.Context, ref string, at time.Time, fee domain.Amount) (domain.TaskHandle, error)
	Cancel(ctx context.Context, handle domain.TaskHandle) error
}
