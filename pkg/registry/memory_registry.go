package registry

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/weftworks/weft/pkg/domain"
)

type MemoryRegistry struct {
	mu        sync.RWMutex
	nextID    domain.TemplateID
	templates map[domain.TemplateID]*domain.Template
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		nextID:    1,
		templates: make(map[domain.TemplateID]*domain.Template),
	}
}

func (r *MemoryRegistry) Register(ctx context.Context, tpl *domain.Template) (*domain.Template, error) {
	if !ValidPrice(tpl.Price) {
		return nil, ErrPriceOutOfBounds
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if tpl.ParentID != nil {
		parent, ok := r.templates[*tpl.ParentID]
		if !ok {
			return nil, ErrParentNotFound
		}
		parent.ForkCount++
	}

	stored := cloneTemplate(tpl)
	stored.ID = r.nextID
	stored.CloneCount = 0
	stored.ForkCount = 0
	stored.CreatedAt = time.Now()
	r.nextID++
	r.templates[stored.ID] = stored

	return cloneTemplate(stored), nil
}

func (r *MemoryRegistry) Get(ctx context.Context, id domain.TemplateID) (*domain.Template, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tpl, ok := r.templates[id]
	if !ok {
		return nil, ErrTemplateNotFound
	}
	return cloneTemplate(tpl), nil
}

func (r *MemoryRegistry) List(ctx context.Context) ([]*domain.Template, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]*domain.Template, 0, len(r.templates))
	for _, tpl := range r.templates {
		list = append(list, cloneTemplate(tpl))
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

func (r *MemoryRegistry) SetListed(ctx context.Context, id domain.TemplateID, caller domain.AccountID, listed bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tpl, ok := r.templates[id]
	if !ok {
		return ErrTemplateNotFound
	}
	if tpl.Creator != caller {
		return ErrNotCreator
	}
	if listed && tpl.CloneCount > 0 {
		return ErrHasClones
	}
	tpl.Listed = listed
	return nil
}

func (r *MemoryRegistry) SetPrice(ctx context.Context, id domain.TemplateID, caller domain.AccountID, price domain.Amount) error {
	if !ValidPrice(price) {
		return ErrPriceOutOfBounds
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	tpl, ok := r.templates[id]
	if !ok {
		return ErrTemplateNotFound
	}
	if tpl.Creator != caller {
		return ErrNotCreator
	}
	tpl.Price = price
	return nil
}

func (r *MemoryRegistry) UpdateConfigDefaults(ctx context.Context, id domain.TemplateID, caller domain.AccountID, defaults map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tpl, ok := r.templates[id]
	if !ok {
		return ErrTemplateNotFound
	}
	if tpl.Creator != caller {
		return ErrNotCreator
	}
	tpl.ConfigDefaults = copyDefaults(defaults)
	return nil
}

func (r *MemoryRegistry) RecordClone(ctx context.Context, id domain.TemplateID) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tpl, ok := r.templates[id]
	if !ok {
		return 0, ErrTemplateNotFound
	}
	tpl.CloneCount++
	return tpl.CloneCount, nil
}
