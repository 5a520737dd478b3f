package ledger

import (
	"context"
	"time"

	"github.com/weftworks/weft/pkg/domain"
	"github.com/weftworks/weft/pkg/telemetry"
)

// RunInstance invokes the instance's strategy. ran=false means the
// frequency window had not elapsed and the call was skipped silently.
func (l *Ledger) RunInstance(ctx context.Context, account domain.AccountID, templateID domain.TemplateID) (ran bool, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	c := l.containerLocked(account)
	ran, err = c.Run(ctx, templateID, time.Now())
	if err != nil {
		l.Metrics.IncCounter("weft_runs_total", 1, telemetry.Label{Key: "outcome", Value: "failed"})
		return false, err
	}
	if ran {
		l.Metrics.IncCounter("weft_runs_total", 1, telemetry.Label{Key: "outcome", Value: "ok"})
	}
	return ran, nil
}

// BurnInstance destroys the instance permanently. Irreversible.
func (l *Ledger) BurnInstance(ctx context.Context, account domain.AccountID, templateID domain.TemplateID) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	c := l.containerLocked(account)
	if err := c.Burn(ctx, templateID); err != nil {
		return err
	}

	l.Logger.Info(ctx, "Instance burned", map[string]any{
		"template": templateID,
		"owner":    account,
	})
	l.Metrics.IncCounter("weft_burns_total", 1)
	return nil
}

func (l *Ledger) EnableScheduling(ctx context.Context, account domain.AccountID, templateID domain.TemplateID, freq time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	c := l.containerLocked(account)
	if err := c.EnableScheduling(ctx, templateID, freq); err != nil {
		return err
	}
	l.publish(ctx, telemetry.Event{
		Type:       telemetry.EventSchedulingEnabled,
		Account:    account,
		TemplateID: templateID,
		Detail:     map[string]any{"frequency": freq.String()},
	})
	return nil
}

func (l *Ledger) DisableScheduling(ctx context.Context, account domain.AccountID, templateID domain.TemplateID) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	c := l.containerLocked(account)
	if err := c.DisableScheduling(ctx, templateID); err != nil {
		return err
	}
	l.publish(ctx, telemetry.Event{
		Type:       telemetry.EventSchedulingDisabled,
		Account:    account,
		TemplateID: templateID,
	})
	return nil
}

// Instances returns display copies of everything the account holds.
func (l *Ledger) Instances(account domain.AccountID) []domain.Instance {
	l.mu.Lock()
	c := l.containerLocked(account)
	l.mu.Unlock()
	return c.Snapshot()
}

func (l *Ledger) Balance(ctx context.Context, account domain.AccountID) (domain.Amount, error) {
	return l.Bank.Balance(ctx, account)
}
