package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"github.com/weftworks/weft/pkg/domain"
)

func newRedisRegistry(t *testing.T) *RedisRegistry {
	t.Helper()
	mr := miniredis.RunT(t)
	r, err := NewRedisRegistry(mr.Addr(), 0, "")
	if err != nil {
		t.Fatalf("failed to create redis registry: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func TestRedisRegisterAndGet(t *testing.T) {
	ctx := context.Background()
	r := newRedisRegistry(t)

	tpl, err := r.Register(ctx, newTemplate("alice", "momentum", domain.Micro))
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if tpl.ID != 1 {
		t.Errorf("expected id 1, got %d", tpl.ID)
	}

	got, err := r.Get(ctx, tpl.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Creator != "alice" || got.Name != "momentum" || got.Price != domain.Micro {
		t.Errorf("template mangled across redis roundtrip: %+v", got)
	}
	if got.ConfigDefaults["interval"] != "1h" {
		t.Errorf("config defaults lost: %+v", got.ConfigDefaults)
	}

	if _, err := r.Get(ctx, 999); !errors.Is(err, ErrTemplateNotFound) {
		t.Errorf("expected ErrTemplateNotFound, got %v", err)
	}
}

func TestRedisList(t *testing.T) {
	ctx := context.Background()
	r := newRedisRegistry(t)

	if _, err := r.Register(ctx, newTemplate("alice", "momentum", domain.Micro)); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if _, err := r.Register(ctx, newTemplate("bob", "grid", 0)); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	list, err := r.List(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 templates, got %d", len(list))
	}
}

func TestRedisForkTracking(t *testing.T) {
	ctx := context.Background()
	r := newRedisRegistry(t)

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
}

func TestRedisOrphanForkLeavesNoTrace(t *testing.T) {
	ctx := context.Background()
	r := newRedisRegistry(t)

	missing := domain.TemplateID(999)
	orphan := newTemplate("bob", "orphan", 0)
	orphan.ParentID = &missing

	if _, err := r.Register(ctx, orphan); !errors.Is(err, ErrParentNotFound) {
		t.Fatalf("expected ErrParentNotFound, got %v", err)
	}

	// The failed registration must not leave a stored template behind
	list, err := r.List(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("orphan fork persisted: %+v", list)
	}
}

func TestRedisRelistGuard(t *testing.T) {
	ctx := context.Background()
	r := newRedisRegistry(t)

	tpl, err := r.Register(ctx, newTemplate("alice", "momentum", domain.Micro))
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if _, err := r.RecordClone(ctx, tpl.ID); err != nil {
		t.Fatalf("record clone failed: %v", err)
	}
	if err := r.SetListed(ctx, tpl.ID, "alice", false); err != nil {
		t.Fatalf("delist failed: %v", err)
	}
	if err := r.SetListed(ctx, tpl.ID, "alice", true); !errors.Is(err, ErrHasClones) {
		t.Errorf("expected ErrHasClones, got %v", err)
	}
}

func TestRedisRecordClone(t *testing.T) {
	ctx := context.Background()
	r := newRedisRegistry(t)

	tpl, err := r.Register(ctx, newTemplate("alice", "momentum", domain.Micro))
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	for want := uint64(1); want <= 3; want++ {
		count, err := r.RecordClone(ctx, tpl.ID)
		if err != nil {
			t.Fatalf("record clone failed: %v", err)
		}
		if count != want {
			t.Errorf("expected count %d, got %d", want, count)
		}
	}
}

func TestRedisCreatorOnly(t *testing.T) {
	ctx := context.Background()
	r := newRedisRegistry(t)

	tpl, err := r.Register(ctx, newTemplate("alice", "momentum", domain.Micro))
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if err := r.SetPrice(ctx, tpl.ID, "mallory", 5*domain.Micro); !errors.Is(err, ErrNotCreator) {
		t.Errorf("expected ErrNotCreator, got %v", err)
	}
	if err := r.SetPrice(ctx, tpl.ID, "alice", 5*domain.Micro); err != nil {
		t.Fatalf("creator SetPrice failed: %v", err)
	}
	got, _ := r.Get(ctx, tpl.ID)
	if got.Price != 5*domain.Micro {
		t.Errorf("price not persisted: %s", got.Price)
	}
}
