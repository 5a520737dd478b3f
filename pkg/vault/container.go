package vault

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/weftworks/weft/pkg/domain"
)

var ErrAlreadyOwned = errors.New("instance of this template already owned")
var ErrInstanceNotFound = errors.New("instance not found")
var ErrNilInstance = errors.New("instance must not be nil")

// Container holds one account's owned instances, keyed by template id.
// At most one instance per template per account; deposits of a second
// instance of the same template are rejected, which is what makes
// duplicate ownership impossible across the whole ledger.

type Container struct {
	owner  domain.AccountID
	bridge *Bridge

	mu        sync.Mutex
	instances map[domain.TemplateID]*domain.Instance
}

func NewContainer(owner domain.AccountID, bridge *Bridge) *Container {
	return &Container{
		owner:     owner,
		bridge:    bridge,
		instances: make(map[domain.TemplateID]*domain.Instance),
	}
}

func (c *Container) Owner() domain.AccountID {
	return c.owner
}

// Deposit takes ownership of an instance. The caller must not retain any
// reference to it afterwards.
func (c *Container) Deposit(inst *domain.Instance) error {
	if inst == nil {
		return ErrNilInstance
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.instances[inst.TemplateID]; ok {
		return fmt.Errorf("%w: template %d in container %s", ErrAlreadyOwned, inst.TemplateID, c.owner)
	}
	c.instances[inst.TemplateID] = inst
	return nil
}

// Withdraw removes and returns the instance. Any active schedule is
// cancelled first so no orphaned task keeps pointing at this container.
func (c *Container) Withdraw(ctx context.Context, id domain.TemplateID) (*domain.Instance, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	inst, ok := c.instances[id]
	if !ok {
		return nil, fmt.Errorf("%w: template %d in container %s", ErrInstanceNotFound, id, c.owner)
	}

	if inst.Scheduling.Handle != "" {
		if err := c.bridge.cancel(ctx, inst.Scheduling.Handle); err != nil {
			return nil, err
		}
	}
	inst.Scheduling.Enabled = false
	inst.Scheduling.Handle = ""
	inst.Scheduling.Frequency = 0

	delete(c.instances, id)
	return inst, nil
}

// Run invokes the instance's strategy. With scheduling enabled, a call
// before the frequency window has elapsed is skipped silently (returns
// false). A strategy failure aborts the call with no state change.
func (c *Container) Run(ctx context.Context, id domain.TemplateID, now time.Time) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	inst, ok := c.instances[id]
	if !ok {
		return false, fmt.Errorf("%w: template %d in container %s", ErrInstanceNotFound, id, c.owner)
	}

	st := &inst.Scheduling
	if st.Enabled && !st.LastRun.IsZero() && now.Sub(st.LastRun) < st.Frequency {
		return false, nil
	}

	if inst.Strategy != nil {
		if err := inst.Strategy.Execute(ctx); err != nil {
			return false, fmt.Errorf("strategy execution failed: %w", err)
		}
	}

	st.LastRun = now
	if st.Enabled {
		handle, err := c.bridge.advance(ctx, c.owner, id, st.Frequency, st.Handle)
		if err != nil {
			return false, err
		}
		st.Handle = handle
	}
	return true, nil
}

// Burn withdraws the instance and destroys it permanently.
func (c *Container) Burn(ctx context.Context, id domain.TemplateID) error {
	inst, err := c.Withdraw(ctx, id)
	if err != nil {
		return err
	}
	// Last reference dropped here; the instance ceases to exist.
	_ = inst
	return nil
}

func (c *Container) EnableScheduling(ctx context.Context, id domain.TemplateID, freq time.Duration) error {
	if freq <= 0 {
		return errors.New("frequency must be positive")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	inst, ok := c.instances[id]
	if !ok {
		return fmt.Errorf("%w: template %d in container %s", ErrInstanceNotFound, id, c.owner)
	}

	if inst.Scheduling.Handle != "" {
		if err := c.bridge.cancel(ctx, inst.Scheduling.Handle); err != nil {
			return err
		}
		inst.Scheduling.Handle = ""
	}

	handle, err := c.bridge.enable(ctx, c.owner, id, freq)
	if err != nil {
		return err
	}

	inst.Scheduling.Enabled = true
	inst.Scheduling.Frequency = freq
	inst.Scheduling.Handle = handle
	return nil
}

func (c *Container) DisableScheduling(ctx context.Context, id domain.TemplateID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	inst, ok := c.instances[id]
	if !ok {
		return fmt.Errorf("%w: template %d in container %s", ErrInstanceNotFound, id, c.owner)
	}

	if err := c.bridge.cancel(ctx, inst.Scheduling.Handle); err != nil {
		return err
	}
	inst.Scheduling.Enabled = false
	inst.Scheduling.Handle = ""
	inst.Scheduling.Frequency = 0
	return nil
}

func (c *Container) Holds(id domain.TemplateID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.instances[id]
	return ok
}

// Snapshot returns copies of the held instances for display. Strategies are
// not copied; the copies cannot be deposited anywhere.
func (c *Container) Snapshot() []domain.Instance {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]domain.Instance, 0, len(c.instances))
	for _, inst := range c.instances {
		cp := *inst
		cp.Strategy = nil
		cfg := make(map[string]any, len(inst.Config))
		for k, v := range inst.Config {
			cfg[k] = v
		}
		cp.Config = cfg
		out = append(out, cp)
	}
	return out
}
