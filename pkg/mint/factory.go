package mint

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/weftworks/weft/pkg/codehash"
	"github.com/weftworks/weft/pkg/domain"
	"github.com/weftworks/weft/pkg/registry"
	"github.com/weftworks/weft/pkg/vault"
)

var ErrTicketRequired = errors.New("clone ticket required")

// Factory instantiates clones. It never returns a bare instance: the new
// instance is deposited straight into the caller's container within the
// same call, so there is no window where it could be dropped, duplicated,
// or land in the wrong container.

type Factory struct {
	Registry registry.Registry
	Verifier *codehash.Verifier
	Issuer   *Issuer
}

// Clone consumes the ticket, re-verifies the deployed code against the
// registered hash, builds the instance from defaults plus overrides, and
// deposits it into dst. Once a matching ticket is consumed it stays
// consumed even if a later step fails — there is no replay.
func (f *Factory) Clone(ctx context.Context, templateID domain.TemplateID, caller domain.AccountID, overrides map[string]any, strat domain.Strategy, dst *vault.Container, ticketID domain.TicketID) error {
	tpl, err := f.Registry.Get(ctx, templateID)
	if err != nil {
		return err
	}

	if ticketID == "" {
		if caller != tpl.Creator {
			return fmt.Errorf("%w: template %d", ErrTicketRequired, templateID)
		}
	} else {
		if err := f.Issuer.redeem(ctx, ticketID, templateID, caller); err != nil {
			return err
		}
	}

	// Live tamper check against the code deployed right now.
	if _, err := f.Verifier.Verify(ctx, tpl); err != nil {
		return err
	}

	cfg := make(map[string]any, len(tpl.ConfigDefaults)+len(overrides))
	for k, v := range tpl.ConfigDefaults {
		cfg[k] = v
	}
	for k, v := range overrides {
		cfg[k] = v
	}

	inst := &domain.Instance{
		TemplateID: templateID,
		Config:     cfg,
		Strategy:   strat,
		ClonedAt:   time.Now(),
	}

	if err := dst.Deposit(inst); err != nil {
		return err
	}

	if _, err := f.Registry.RecordClone(ctx, templateID); err != nil {
		// Deposit succeeded but the counter could not be bumped; undo the
		// deposit so the whole call stays all-or-nothing.
		if _, werr := dst.Withdraw(ctx, templateID); werr != nil {
			return errors.Join(err, werr)
		}
		return err
	}
	return nil
}
