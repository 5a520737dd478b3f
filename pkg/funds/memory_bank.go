package funds

import (
	"context"
	"fmt"
	"sync"

	"github.com/weftworks/weft/pkg/domain"
)

type MemoryBank struct {
	mu       sync.Mutex
	balances map[domain.AccountID]domain.Amount
}

func NewMemoryBank() *MemoryBank {
	return &MemoryBank{balances: make(map[domain.AccountID]domain.Amount)}
}

func (b *MemoryBank) Balance(ctx context.Context, account domain.AccountID) (domain.Amount, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.balances[account], nil
}

func (b *MemoryBank) Deposit(ctx context.Context, account domain.AccountID, amount domain.Amount) error {
	if amount < 0 {
		return ErrNegativeAmount
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.balances[account] += amount
	return nil
}

func (b *MemoryBank) Withdraw(ctx context.Context, account domain.AccountID, amount domain.Amount) error {
	if amount < 0 {
		return ErrNegativeAmount
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.balances[account] < amount {
		return fmt.Errorf("%w: account %s has %s, needs %s", ErrInsufficientFunds, account, b.balances[account], amount)
	}
	b.balances[account] -= amount
	return nil
}
