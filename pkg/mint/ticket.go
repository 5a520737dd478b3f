package mint

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/weftworks/weft/pkg/domain"
	"github.com/weftworks/weft/pkg/funds"
	"github.com/weftworks/weft/pkg/registry"
)

var ErrExactPayment = errors.New("payment must equal the clone price exactly")
var ErrTicketNotFound = errors.New("clone ticket not found")
var ErrTicketConsumed = errors.New("clone ticket already consumed")
var ErrTicketMismatch = errors.New("clone ticket does not match template or buyer")

// Ticket is a single-use, account-bound right to instantiate one clone.
type Ticket struct {
	ID         domain.TicketID   `json:"id"`
	TemplateID domain.TemplateID `json:"template_id"`
	Buyer      domain.AccountID  `json:"buyer"`
	Escrowed   domain.Amount     `json:"escrowed"`

	consumed bool
}

// Issuer sells clone tickets. Tickets live in an arena keyed by id with a
// consumed flag that is checked and flipped atomically on redemption —
// once set, every other access path rejects the ticket.

type Issuer struct {
	registry registry.Registry
	bank     funds.Bank

	mu      sync.Mutex
	tickets map[domain.TicketID]*Ticket
}

func NewIssuer(reg registry.Registry, bank funds.Bank) *Issuer {
	return &Issuer{
		registry: reg,
		bank:     bank,
		tickets:  make(map[domain.TicketID]*Ticket),
	}
}

// PurchaseTicket validates the payment and forwards it to the creator.
// A priced template demands the exact price — over- and under-payment both
// fail before any funds move. Free templates and creator self-clones charge
// nothing; whatever payment was attached stays with the buyer.
func (i *Issuer) PurchaseTicket(ctx context.Context, templateID domain.TemplateID, buyer domain.AccountID, payment domain.Amount) (*Ticket, error) {
	tpl, err := i.registry.Get(ctx, templateID)
	if err != nil {
		return nil, err
	}

	var charged domain.Amount
	if tpl.Price > 0 && buyer != tpl.Creator {
		if payment != tpl.Price {
			return nil, fmt.Errorf("%w: price %s, payment %s", ErrExactPayment, tpl.Price, payment)
		}

		// Fail-fast: check before debiting anything.
		bal, err := i.bank.Balance(ctx, buyer)
		if err != nil {
			return nil, err
		}
		if bal < tpl.Price {
			return nil, fmt.Errorf("%w: account %s has %s, needs %s", funds.ErrInsufficientFunds, buyer, bal, tpl.Price)
		}

		if err := i.bank.Withdraw(ctx, buyer, tpl.Price); err != nil {
			return nil, err
		}
		if err := i.bank.Deposit(ctx, tpl.Creator, tpl.Price); err != nil {
			return nil, err
		}
		charged = tpl.Price
	}

	t := &Ticket{
		ID:         domain.TicketID(uuid.New().String()),
		TemplateID: templateID,
		Buyer:      buyer,
		Escrowed:   charged,
	}

	i.mu.Lock()
	i.tickets[t.ID] = t
	i.mu.Unlock()
	return t, nil
}

// redeem consumes a ticket for the given template and caller. A matching
// ticket is consumed exactly once; a mismatched ticket is rejected and left
// intact, so presenting someone else's ticket cannot burn it.
func (i *Issuer) redeem(ctx context.Context, id domain.TicketID, templateID domain.TemplateID, caller domain.AccountID) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	t, ok := i.tickets[id]
	if !ok {
		return ErrTicketNotFound
	}
	if t.consumed {
		return ErrTicketConsumed
	}
	if t.TemplateID != templateID || t.Buyer != caller {
		return fmt.Errorf("%w: ticket %s", ErrTicketMismatch, id)
	}
	t.consumed = true
	return nil
}

// Outstanding reports whether a ticket exists and is still unconsumed.
func (i *Issuer) Outstanding(id domain.TicketID) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	t, ok := i.tickets[id]
	return ok && !t.consumed
}
