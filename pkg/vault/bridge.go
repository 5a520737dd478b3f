package vault

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/weftworks/weft/pkg/domain"
	"github.com/weftworks/weft/pkg/funds"
	"github.com/weftworks/weft/pkg/sched"
	"github.com/weftworks/weft/pkg/telemetry"
)

var ErrSchedulingFeeFunds = errors.New("insufficient balance for scheduling fee")

// Bridge is the thin adapter between containers and the external task
// scheduler. Its only logic is the fee-balance check; everything else is
// pass-through.

type Bridge struct {
	Scheduler sched.Scheduler
	Bank      funds.Bank
	Fee       domain.Amount
	Events    telemetry.Publisher
}

func taskRef(owner domain.AccountID, id domain.TemplateID) string {
	return fmt.Sprintf("%s/%d", owner, id)
}

func (b *Bridge) publish(ctx context.Context, ev telemetry.Event) {
	if b.Events != nil {
		_ = b.Events.Publish(ctx, ev)
	}
}

// enable books the first invocation. The fee is withdrawn up front; an
// account that cannot cover it gets a balance-warning event and an error,
// never a retry.
func (b *Bridge) enable(ctx context.Context, owner domain.AccountID, id domain.TemplateID, freq time.Duration) (domain.TaskHandle, error) {
	bal, err := b.Bank.Balance(ctx, owner)
	if err != nil {
		return "", err
	}
	if bal < b.Fee {
		b.publish(ctx, telemetry.Event{
			Type:       telemetry.EventSchedulingBalanceLow,
			Account:    owner,
			TemplateID: id,
			Amount:     b.Fee,
		})
		return "", fmt.Errorf("%w: have %s, need %s", ErrSchedulingFeeFunds, bal, b.Fee)
	}
	if err := b.Bank.Withdraw(ctx, owner, b.Fee); err != nil {
		return "", err
	}
	return b.Scheduler.Schedule(ctx, taskRef(owner, id), time.Now().Add(freq), b.Fee)
}

// advance re-books the next invocation after a successful run. Fee-balance
// insufficiency here is surfaced as an event and an empty handle; the run
// itself has already succeeded and is not rolled back.
func (b *Bridge) advance(ctx context.Context, owner domain.AccountID, id domain.TemplateID, freq time.Duration, old domain.TaskHandle) (domain.TaskHandle, error) {
	if old != "" {
		if err := b.Scheduler.Cancel(ctx, old); err != nil && !errors.Is(err, sched.ErrTaskNotFound) {
			return "", err
		}
	}

	bal, err := b.Bank.Balance(ctx, owner)
	if err != nil {
		return "", err
	}
	if bal < b.Fee {
		b.publish(ctx, telemetry.Event{
			Type:       telemetry.EventSchedulingBalanceLow,
			Account:    owner,
			TemplateID: id,
			Amount:     b.Fee,
		})
		return "", nil
	}
	if err := b.Bank.Withdraw(ctx, owner, b.Fee); err != nil {
		return "", err
	}
	return b.Scheduler.Schedule(ctx, taskRef(owner, id), time.Now().Add(freq), b.Fee)
}

func (b *Bridge) cancel(ctx context.Context, handle domain.TaskHandle) error {
	if handle == "" {
		return nil
	}
	if err := b.Scheduler.Cancel(ctx, handle); err != nil && !errors.Is(err, sched.ErrTaskNotFound) {
		return err
	}
	return nil
}
