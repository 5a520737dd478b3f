package funds

import (
	"context"
	"errors"

	"github.com/weftworks/weft/pkg/domain"
)

var ErrInsufficientFunds = errors.New("insufficient funds")
var ErrNegativeAmount = errors.New("amount must not be negative")

// Bank is the fungible-payment primitive the wallet collaborator provides.
// The ledger never holds standing balances: every operation withdraws
// exactly the amount it needs, no more.

type Bank interface {
	Balance(ctx context.Context, account domain.AccountID) (domain.Amount, error)
	Deposit(ctx context.Context, account domain.AccountID, amount domain.Amount) error
	Withdraw(ctx context.Context, account domain.AccountID, amount domain.Amount) error
}
