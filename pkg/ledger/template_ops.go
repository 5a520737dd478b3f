package ledger

import (
	"context"
	"fmt"

	"github.com/weftworks/weft/pkg/domain"
	"github.com/weftworks/weft/pkg/registry"
	"github.com/weftworks/weft/pkg/telemetry"
)

// RegisterTemplateRequest carries everything a creator supplies at
// registration. The code itself must already be deployed under
// creator/name; registration records its hash, it never uploads code.
type RegisterTemplateRequest struct {
	Creator        domain.AccountID
	Name           string
	Price          domain.Amount
	ConfigDefaults map[string]any
	ParentID       *domain.TemplateID
	Strategy       StrategyBuilder
}

// RegisterTemplate hashes the currently deployed code and records the
// template. A missing or unhashable deployment fails the registration.
func (l *Ledger) RegisterTemplate(ctx context.Context, req RegisterTemplateRequest) (*domain.Template, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if req.Name == "" {
		return nil, fmt.Errorf("template name must not be empty")
	}
	if !registry.ValidPrice(req.Price) {
		return nil, registry.ErrPriceOutOfBounds
	}

	hash, err := l.Verifier.Current(ctx, req.Creator, req.Name)
	if err != nil {
		return nil, err
	}

	tpl, err := l.Registry.Register(ctx, &domain.Template{
		Creator:        req.Creator,
		Name:           req.Name,
		CodeHash:       hash,
		Price:          req.Price,
		Listed:         true,
		ConfigDefaults: req.ConfigDefaults,
		ParentID:       req.ParentID,
	})
	if err != nil {
		return nil, err
	}

	if req.Strategy != nil {
		l.strategies[tpl.ID] = req.Strategy
	}

	l.Logger.Info(ctx, "Template registered", map[string]any{
		"template": tpl.ID,
		"creator":  tpl.Creator,
		"price":    tpl.Price.String(),
	})
	l.Metrics.IncCounter("weft_templates_registered_total", 1)
	l.publish(ctx, telemetry.Event{
		Type:       telemetry.EventTemplateRegistered,
		Account:    tpl.Creator,
		TemplateID: tpl.ID,
		Amount:     tpl.Price,
	})
	return tpl, nil
}

func (l *Ledger) SetTemplateListed(ctx context.Context, id domain.TemplateID, caller domain.AccountID, listed bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.Registry.SetListed(ctx, id, caller, listed); err != nil {
		return err
	}
	l.publish(ctx, telemetry.Event{
		Type:       telemetry.EventTemplateListed,
		Account:    caller,
		TemplateID: id,
		Detail:     map[string]any{"listed": listed},
	})
	return nil
}

func (l *Ledger) SetTemplatePrice(ctx context.Context, id domain.TemplateID, caller domain.AccountID, price domain.Amount) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.Registry.SetPrice(ctx, id, caller, price); err != nil {
		return err
	}
	l.publish(ctx, telemetry.Event{
		Type:       telemetry.EventTemplateUpdated,
		Account:    caller,
		TemplateID: id,
		Amount:     price,
		Detail:     map[string]any{"field": "price"},
	})
	return nil
}

func (l *Ledger) UpdateTemplateDefaults(ctx context.Context, id domain.TemplateID, caller domain.AccountID, defaults map[string]any) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.Registry.UpdateConfigDefaults(ctx, id, caller, defaults); err != nil {
		return err
	}
	l.publish(ctx, telemetry.Event{
		Type:       telemetry.EventTemplateUpdated,
		Account:    caller,
		TemplateID: id,
		Detail:     map[string]any{"field": "config_defaults"},
	})
	return nil
}

func (l *Ledger) GetTemplate(ctx context.Context, id domain.TemplateID) (*domain.Template, error) {
	return l.Registry.Get(ctx, id)
}

func (l *Ledger) ListTemplates(ctx context.Context) ([]*domain.Template, error) {
	return l.Registry.List(ctx)
}
