package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/weftworks/weft/pkg/domain"
)

func newTemplate(creator domain.AccountID, name string, price domain.Amount) *domain.Template {
	return &domain.Template{
		Creator:  creator,
		Name:     name,
		CodeHash: "abc123",
		Price:    price,
		Listed:   true,
		ConfigDefaults: map[string]any{
			"interval": "1h",
		},
	}
}

func TestMemoryRegister(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRegistry()

	first, err := r.Register(ctx, newTemplate("alice", "momentum", domain.Micro))
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if first.ID != 1 {
		t.Errorf("expected id 1, got %d", first.ID)
	}
	if first.CreatedAt.IsZero() {
		t.Error("CreatedAt not stamped")
	}

	second, err := r.Register(ctx, newTemplate("bob", "grid", 0))
	if err != nil {
		t.Fatalf("second register failed: %v", err)
	}
	if second.ID != 2 {
		t.Errorf("expected id 2, got %d", second.ID)
	}

	list, err := r.List(ctx)
	if err != nil || len(list) != 2 {
		t.Fatalf("expected 2 templates, got %d (err %v)", len(list), err)
	}
	if list[0].ID != 1 || list[1].ID != 2 {
		t.Error("list not ordered by id")
	}
}

func TestMemoryRegisterPriceBounds(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRegistry()

	if _, err := r.Register(ctx, newTemplate("alice", "neg", -1)); !errors.Is(err, ErrPriceOutOfBounds) {
		t.Errorf("expected ErrPriceOutOfBounds for negative price, got %v", err)
	}
	if _, err := r.Register(ctx, newTemplate("alice", "huge", domain.MaxPrice+1)); !errors.Is(err, ErrPriceOutOfBounds) {
		t.Errorf("expected ErrPriceOutOfBounds above max, got %v", err)
	}
	if _, err := r.Register(ctx, newTemplate("alice", "max", domain.MaxPrice)); err != nil {
		t.Errorf("max price should be accepted: %v", err)
	}
	if _, err := r.Register(ctx, newTemplate("alice", "free", 0)); err != nil {
		t.Errorf("zero price should be accepted: %v", err)
	}
}

func TestMemoryForkTracking(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRegistry()

	parent, err := r.Register(ctx, newTemplate("alice", "momentum", domain.Micro))
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	fork := newTemplate("bob", "momentum-tweak", 2*domain.Micro)
	fork.ParentID = &parent.ID
	if _, err := r.Register(ctx, fork); err != nil {
		t.Fatalf("fork register failed: %v", err)
	}

	got, _ := r.Get(ctx, parent.ID)
	if got.ForkCount != 1 {
		t.Errorf("expected parent ForkCount 1, got %d", got.ForkCount)
	}

	missing := domain.TemplateID(999)
	orphan := newTemplate("bob", "orphan", 0)
	orphan.ParentID = &missing
	if _, err := r.Register(ctx, orphan); !errors.Is(err, ErrParentNotFound) {
		t.Errorf("expected ErrParentNotFound, got %v", err)
	}
}

func TestMemoryRelistGuard(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRegistry()

	tpl, _ := r.Register(ctx, newTemplate("alice", "momentum", domain.Micro))

	// Delist and relist freely while no clones exist
	if err := r.SetListed(ctx, tpl.ID, "alice", false); err != nil {
		t.Fatalf("delist failed: %v", err)
	}
	if err := r.SetListed(ctx, tpl.ID, "alice", true); err != nil {
		t.Fatalf("relist failed: %v", err)
	}

	if _, err := r.RecordClone(ctx, tpl.ID); err != nil {
		t.Fatalf("record clone failed: %v", err)
	}
	if err := r.SetListed(ctx, tpl.ID, "alice", false); err != nil {
		t.Fatalf("delist after clone failed: %v", err)
	}
	if err := r.SetListed(ctx, tpl.ID, "alice", true); !errors.Is(err, ErrHasClones) {
		t.Errorf("expected ErrHasClones on relist after clone, got %v", err)
	}
}

func TestMemoryCreatorOnlyMutations(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRegistry()

	tpl, _ := r.Register(ctx, newTemplate("alice", "momentum", domain.Micro))

	if err := r.SetListed(ctx, tpl.ID, "mallory", false); !errors.Is(err, ErrNotCreator) {
		t.Errorf("SetListed: expected ErrNotCreator, got %v", err)
	}
	if err := r.SetPrice(ctx, tpl.ID, "mallory", 2*domain.Micro); !errors.Is(err, ErrNotCreator) {
		t.Errorf("SetPrice: expected ErrNotCreator, got %v", err)
	}
	if err := r.UpdateConfigDefaults(ctx, tpl.ID, "mallory", nil); !errors.Is(err, ErrNotCreator) {
		t.Errorf("UpdateConfigDefaults: expected ErrNotCreator, got %v", err)
	}

	if err := r.SetPrice(ctx, tpl.ID, "alice", 3*domain.Micro); err != nil {
		t.Fatalf("creator SetPrice failed: %v", err)
	}
	got, _ := r.Get(ctx, tpl.ID)
	if got.Price != 3*domain.Micro {
		t.Errorf("price not updated: %s", got.Price)
	}
}

func TestMemoryRecordClone(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRegistry()

	tpl, _ := r.Register(ctx, newTemplate("alice", "momentum", domain.Micro))

	for want := uint64(1); want <= 3; want++ {
		count, err := r.RecordClone(ctx, tpl.ID)
		if err != nil {
			t.Fatalf("record clone failed: %v", err)
		}
		if count != want {
			t.Errorf("expected count %d, got %d", want, count)
		}
	}

	if _, err := r.RecordClone(ctx, 999); !errors.Is(err, ErrTemplateNotFound) {
		t.Errorf("expected ErrTemplateNotFound, got %v", err)
	}
}

func TestMemoryGetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRegistry()

	tpl, _ := r.Register(ctx, newTemplate("alice", "momentum", domain.Micro))

	got, _ := r.Get(ctx, tpl.ID)
	got.ConfigDefaults["interval"] = "tampered"
	got.Price = 999

	fresh, _ := r.Get(ctx, tpl.ID)
	if fresh.ConfigDefaults["interval"] != "1h" {
		t.Error("mutating a returned template leaked into the registry")
	}
	if fresh.Price != domain.Micro {
		t.Error("price mutation leaked into the registry")
	}
}
