package ledger

import (
	"context"
	"sync"

	"github.com/weftworks/weft/pkg/codehash"
	"github.com/weftworks/weft/pkg/domain"
	"github.com/weftworks/weft/pkg/funds"
	"github.com/weftworks/weft/pkg/market"
	"github.com/weftworks/weft/pkg/mint"
	"github.com/weftworks/weft/pkg/registry"
	"github.com/weftworks/weft/pkg/telemetry"
	"github.com/weftworks/weft/pkg/vault"
)

// StrategyBuilder turns a frozen config snapshot into the opaque logic a
// new instance will execute. Builders are registered per template.
type StrategyBuilder func(config map[string]any) (domain.Strategy, error)

// Ledger is the front door: every operation below runs as one atomic step
// under a single mutex, standing in for the serially-ordered transaction
// log. Operations validate all preconditions before their first mutation,
// so a failed operation leaves no partial state behind.

type Ledger struct {
	Registry registry.Registry
	Verifier *codehash.Verifier
	Bank     funds.Bank
	Market   *market.Marketplace
	Bridge   *vault.Bridge
	Issuer   *mint.Issuer
	Factory  *mint.Factory
	Events   telemetry.Publisher
	Metrics  telemetry.Metrics
	Logger   telemetry.Logger

	mu         sync.Mutex
	containers map[domain.AccountID]*vault.Container
	strategies map[domain.TemplateID]StrategyBuilder
}

type Option func(*Ledger)

func New(reg registry.Registry, verifier *codehash.Verifier, bank funds.Bank, mkt *market.Marketplace, bridge *vault.Bridge, opts ...Option) *Ledger {
	issuer := mint.NewIssuer(reg, bank)
	l := &Ledger{
		Registry: reg,
		Verifier: verifier,
		Bank:     bank,
		Market:   mkt,
		Bridge:   bridge,
		Issuer:   issuer,
		Factory: &mint.Factory{
			Registry: reg,
			Verifier: verifier,
			Issuer:   issuer,
		},
		Events:     telemetry.NewMemoryPublisher(),
		Metrics:    telemetry.NewNoopMetrics(),
		Logger:     telemetry.NewNoopLogger(),
		containers: make(map[domain.AccountID]*vault.Container),
		strategies: make(map[domain.TemplateID]StrategyBuilder),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func WithEvents(p telemetry.Publisher) Option {
	return func(l *Ledger) { l.Events = p }
}

func WithMetrics(m telemetry.Metrics) Option {
	return func(l *Ledger) { l.Metrics = m }
}

func WithLogger(lg telemetry.Logger) Option {
	return func(l *Ledger) { l.Logger = lg }
}

// Container returns the account's instance container, creating it on first
// use. One container per account.
func (l *Ledger) Container(account domain.AccountID) *vault.Container {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.containerLocked(account)
}

func (l *Ledger) containerLocked(account domain.AccountID) *vault.Container {
	c, ok := l.containers[account]
	if !ok {
		c = vault.NewContainer(account, l.Bridge)
		l.containers[account] = c
	}
	return c
}

func (l *Ledger) publish(ctx context.Context, ev telemetry.Event) {
	if err := l.Events.Publish(ctx, ev); err != nil {
		l.Logger.Error(ctx, "Failed to publish event", map[string]any{
			"type":  ev.Type,
			"error": err,
		})
	}
}
