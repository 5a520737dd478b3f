package ledger

import (
	"context"
	"fmt"

	"github.com/weftworks/weft/pkg/domain"
	"github.com/weftworks/weft/pkg/telemetry"
)

// PurchaseCloneTicket escrows exact payment toward the creator and issues
// a single-use, buyer-bound ticket. Step one of the two-step clone
// protocol; the factory deposit is step two.
func (l *Ledger) PurchaseCloneTicket(ctx context.Context, templateID domain.TemplateID, buyer domain.AccountID, payment domain.Amount) (domain.TicketID, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	t, err := l.Issuer.PurchaseTicket(ctx, templateID, buyer, payment)
	if err != nil {
		l.Metrics.IncCounter("weft_ticket_purchases_total", 1, telemetry.Label{Key: "outcome", Value: "rejected"})
		return "", err
	}

	l.Logger.Info(ctx, "Clone ticket purchased", map[string]any{
		"template": templateID,
		"buyer":    buyer,
		"escrowed": t.Escrowed.String(),
	})
	l.Metrics.IncCounter("weft_ticket_purchases_total", 1, telemetry.Label{Key: "outcome", Value: "ok"})
	return t.ID, nil
}

// Clone runs the template factory: ticket redemption, live code
// verification, instance construction, and deposit into the caller's
// container, all in one atomic step. The creator may clone without a
// ticket; everyone else must present one.
func (l *Ledger) Clone(ctx context.Context, templateID domain.TemplateID, caller domain.AccountID, overrides map[string]any, ticketID domain.TicketID) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	tpl, err := l.Registry.Get(ctx, templateID)
	if err != nil {
		return err
	}

	var strat domain.Strategy
	if builder, ok := l.strategies[templateID]; ok {
		cfg := make(map[string]any, len(tpl.ConfigDefaults)+len(overrides))
		for k, v := range tpl.ConfigDefaults {
			cfg[k] = v
		}
		for k, v := range overrides {
			cfg[k] = v
		}
		strat, err = builder(cfg)
		if err != nil {
			return fmt.Errorf("strategy construction failed: %w", err)
		}
	}

	dst := l.containerLocked(caller)
	if err := l.Factory.Clone(ctx, templateID, caller, overrides, strat, dst, ticketID); err != nil {
		l.Metrics.IncCounter("weft_clones_total", 1, telemetry.Label{Key: "outcome", Value: "rejected"})
		return err
	}

	l.Logger.Info(ctx, "Clone deposited", map[string]any{
		"template": templateID,
		"owner":    caller,
	})
	l.Metrics.IncCounter("weft_clones_total", 1, telemetry.Label{Key: "outcome", Value: "ok"})
	l.publish(ctx, telemetry.Event{
		Type:       telemetry.EventCloneRecorded,
		Account:    caller,
		TemplateID: templateID,
	})
	return nil
}
