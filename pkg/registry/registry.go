package registry

import (
	"context"
	"errors"

	"github.com/weftworks/weft/pkg/domain"
)

var ErrTemplateNotFound = errors.New("template not found")
var ErrParentNotFound = errors.New("parent template not found")
var ErrNotCreator = errors.New("caller is not the template creator")
var ErrPriceOutOfBounds = errors.New("price out of bounds")
var ErrHasClones = errors.New("template with existing clones cannot be re-listed")

// Registry stores per-template metadata: creator, price, listing status,
// clone/fork counters, config defaults, code hash.
//
// RecordClone is reserved for the clone-issuance path; nothing else may
// bump the counter. Getters are side-effect-free.

type Registry interface {
	// Register assigns a fresh id, stamps CreatedAt, and, when ParentID is
	// set, increments the parent's fork counter. The template's CodeHash
	// must already be verified by the caller.
	Register(ctx context.Context, tpl *domain.Template) (*domain.Template, error)

	Get(ctx context.Context, id domain.TemplateID) (*domain.Template, error)
	List(ctx context.Context) ([]*domain.Template, error)

	// SetListed toggles discoverability. Re-listing (listed=true) is
	// rejected once any clone exists: the original may have diverged from
	// what those clones were built against.
	SetListed(ctx context.Context, id domain.TemplateID, caller domain.AccountID, listed bool) error

	// SetPrice and UpdateConfigDefaults affect future clones only.
	SetPrice(ctx context.Context, id domain.TemplateID, caller domain.AccountID, price domain.Amount) error
	UpdateConfigDefaults(ctx context.Context, id domain.TemplateID, caller domain.AccountID, defaults map[string]any) error

	// RecordClone increments the clone counter and returns the new count.
	RecordClone(ctx context.Context, id domain.TemplateID) (uint64, error)
}

// ValidPrice reports whether a per-clone price is inside [0, MaxPrice].
func ValidPrice(price domain.Amount) bool {
	return price >= 0 && price <= domain.MaxPrice
}

func copyDefaults(defaults map[string]any) map[string]any {
	cp := make(map[string]any, len(defaults))
	for k, v := range defaults {
		cp[k] = v
	}
	return cp
}

func cloneTemplate(t *domain.Template) *domain.Template {
	cp := *t
	cp.ConfigDefaults = copyDefaults(t.ConfigDefaults)
	if t.ParentID != nil {
		pid := *t.ParentID
		cp.ParentID = &pid
	}
	return &cp
}
