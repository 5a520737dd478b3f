package contentstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/weftworks/weft/pkg/domain"
)

// Deployments maps creator+name to the hash of the code currently deployed
// there. It is the live Source the verifier reads: redeploying under the
// same name changes what every later verification sees.

type Deployments struct {
	mu      sync.RWMutex
	store   Store
	current map[string]domain.CodeHash
}

func NewDeployments(store Store) *Deployments {
	return &Deployments{
		store:   store,
		current: make(map[string]domain.CodeHash),
	}
}

func deployKey(creator domain.AccountID, name string) string {
	return fmt.Sprintf("%s/%s", creator, name)
}

// Deploy stores the code blob and points creator/name at it.
func (d *Deployments) Deploy(ctx context.Context, creator domain.AccountID, name string, code []byte) (domain.CodeHash, error) {
	h, err := d.store.Store(ctx, code)
	if err != nil {
		return "", fmt.Errorf("failed to store code: %w", err)
	}

	d.mu.Lock()
	d.current[deployKey(creator, name)] = h
	d.mu.Unlock()
	return h, nil
}

// Remove undeploys creator/name. The blob itself stays in the store.
func (d *Deployments) Remove(creator domain.AccountID, name string) {
	d.mu.Lock()
	delete(d.current, deployKey(creator, name))
	d.mu.Unlock()
}

// CurrentHash reports the hash deployed at creator/name, if any.
func (d *Deployments) CurrentHash(creator domain.AccountID, name string) (domain.CodeHash, bool) {
	d.mu.RLock()
	h, ok := d.current[deployKey(creator, name)]
	d.mu.RUnlock()
	return h, ok
}

// DeployedCode implements codehash.Source.
func (d *Deployments) DeployedCode(ctx context.Context, creator domain.AccountID, name string) ([]byte, error) {
	h, ok := d.CurrentHash(creator, name)
	if !ok {
		return nil, ErrNotFound
	}
	return d.store.Fetch(ctx, h)
}
