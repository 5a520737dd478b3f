package funds

import (
	"context"
	"errors"
	"testing"

	"github.com/weftworks/weft/pkg/domain"
)

func TestMemoryBank(t *testing.T) {
	ctx := context.Background()
	bank := NewMemoryBank()

	if err := bank.Deposit(ctx, "alice", 5*domain.Micro); err != nil {
		t.Fatalf("deposit failed: %v", err)
	}

	bal, err := bank.Balance(ctx, "alice")
	if err != nil || bal != 5*domain.Micro {
		t.Fatalf("expected 5.0, got %s (err %v)", bal, err)
	}

	if err := bank.Withdraw(ctx, "alice", 2*domain.Micro); err != nil {
		t.Fatalf("withdraw failed: %v", err)
	}
	bal, _ = bank.Balance(ctx, "alice")
	if bal != 3*domain.Micro {
		t.Errorf("expected 3.0 after withdrawal, got %s", bal)
	}

	// Overdraw must fail without touching the balance
	if err := bank.Withdraw(ctx, "alice", 10*domain.Micro); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	bal, _ = bank.Balance(ctx, "alice")
	if bal != 3*domain.Micro {
		t.Errorf("balance changed on failed withdrawal: %s", bal)
	}

	if err := bank.Deposit(ctx, "alice", -1); !errors.Is(err, ErrNegativeAmount) {
		t.Errorf("expected ErrNegativeAmount on negative deposit, got %v", err)
	}
	if err := bank.Withdraw(ctx, "alice", -1); !errors.Is(err, ErrNegativeAmount) {
		t.Errorf("expected ErrNegativeAmount on negative withdrawal, got %v", err)
	}

	// Unknown accounts have zero balance
	bal, _ = bank.Balance(ctx, "nobody")
	if bal != 0 {
		t.Errorf("expected zero balance for unknown account, got %s", bal)
	}
}
