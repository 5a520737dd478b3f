package mint

import (
	"context"
	"errors"
	"testing"

	"github.com/weftworks/weft/pkg/domain"
	"github.com/weftworks/weft/pkg/funds"
	"github.com/weftworks/weft/pkg/registry"
)

func setupIssuer(t *testing.T, price domain.Amount) (*Issuer, *registry.MemoryRegistry, funds.Bank, domain.TemplateID) {
	t.Helper()
	ctx := context.Background()

	reg := registry.NewMemoryRegistry()
	bank := funds.NewMemoryBank()
	tpl, err := reg.Register(ctx, &domain.Template{
		Creator:  "alice",
		Name:     "momentum",
		CodeHash: "abc123",
		Price:    price,
		Listed:   true,
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	return NewIssuer(reg, bank), reg, bank, tpl.ID
}

func TestPurchaseTicketMovesFunds(t *testing.T) {
	ctx := context.Background()
	issuer, _, bank, id := setupIssuer(t, domain.Micro)
	_ = bank.Deposit(ctx, "bob", 5*domain.Micro)

	ticket, err := issuer.PurchaseTicket(ctx, id, "bob", domain.Micro)
	if err != nil {
		t.Fatalf("purchase failed: %v", err)
	}
	if ticket.Buyer != "bob" || ticket.TemplateID != id {
		t.Errorf("ticket bound wrong: %+v", ticket)
	}
	if ticket.Escrowed != domain.Micro {
		t.Errorf("expected escrowed 1.0, got %s", ticket.Escrowed)
	}
	if !issuer.Outstanding(ticket.ID) {
		t.Error("fresh ticket not outstanding")
	}

	bobBal, _ := bank.Balance(ctx, "bob")
	aliceBal, _ := bank.Balance(ctx, "alice")
	if bobBal != 4*domain.Micro {
		t.Errorf("buyer balance: got %s, want 4.0", bobBal)
	}
	if aliceBal != domain.Micro {
		t.Errorf("creator balance: got %s, want 1.0", aliceBal)
	}
}

func TestPurchaseTicketExactPayment(t *testing.T) {
	ctx := context.Background()
	issuer, _, bank, id := setupIssuer(t, domain.Micro)
	_ = bank.Deposit(ctx, "bob", 5*domain.Micro)

	// Under- and over-payment both fail, and no funds move
	for _, payment := range []domain.Amount{0, domain.Micro - 1, domain.Micro + 1, 2 * domain.Micro} {
		if _, err := issuer.PurchaseTicket(ctx, id, "bob", payment); !errors.Is(err, ErrExactPayment) {
			t.Errorf("payment %s: expected ErrExactPayment, got %v", payment, err)
		}
	}
	bobBal, _ := bank.Balance(ctx, "bob")
	if bobBal != 5*domain.Micro {
		t.Errorf("funds moved on rejected payments: %s", bobBal)
	}
}

func TestPurchaseTicketInsufficientFunds(t *testing.T) {
	ctx := context.Background()
	issuer, _, bank, id := setupIssuer(t, 10*domain.Micro)
	_ = bank.Deposit(ctx, "bob", domain.Micro)

	_, err := issuer.PurchaseTicket(ctx, id, "bob", 10*domain.Micro)
	if !errors.Is(err, funds.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	bobBal, _ := bank.Balance(ctx, "bob")
	if bobBal != domain.Micro {
		t.Errorf("balance touched on failed purchase: %s", bobBal)
	}
}

func TestPurchaseTicketFreeTemplate(t *testing.T) {
	ctx := context.Background()
	issuer, _, bank, id := setupIssuer(t, 0)

	// Zero-price templates charge nothing regardless of attached payment
	ticket, err := issuer.PurchaseTicket(ctx, id, "bob", 0)
	if err != nil {
		t.Fatalf("free purchase failed: %v", err)
	}
	if ticket.Escrowed != 0 {
		t.Errorf("free ticket escrowed %s", ticket.Escrowed)
	}
	aliceBal, _ := bank.Balance(ctx, "alice")
	if aliceBal != 0 {
		t.Errorf("creator credited for a free template: %s", aliceBal)
	}
}

func TestPurchaseTicketCreatorSelf(t *testing.T) {
	ctx := context.Background()
	issuer, _, bank, id := setupIssuer(t, domain.Micro)
	_ = bank.Deposit(ctx, "alice", 5*domain.Micro)

	// The creator never pays for their own template
	ticket, err := issuer.PurchaseTicket(ctx, id, "alice", domain.Micro)
	if err != nil {
		t.Fatalf("creator purchase failed: %v", err)
	}
	if ticket.Escrowed != 0 {
		t.Errorf("creator charged: %s", ticket.Escrowed)
	}
	bal, _ := bank.Balance(ctx, "alice")
	if bal != 5*domain.Micro {
		t.Errorf("creator balance touched: %s", bal)
	}
}

func TestPurchaseTicketUnknownTemplate(t *testing.T) {
	ctx := context.Background()
	issuer, _, _, _ := setupIssuer(t, domain.Micro)

	if _, err := issuer.PurchaseTicket(ctx, 999, "bob", 0); !errors.Is(err, registry.ErrTemplateNotFound) {
		t.Fatalf("expected ErrTemplateNotFound, got %v", err)
	}
}

func TestRedeemSingleUse(t *testing.T) {
	ctx := context.Background()
	issuer, _, _, id := setupIssuer(t, 0)

	ticket, err := issuer.PurchaseTicket(ctx, id, "bob", 0)
	if err != nil {
		t.Fatalf("purchase failed: %v", err)
	}

	if err := issuer.redeem(ctx, ticket.ID, id, "bob"); err != nil {
		t.Fatalf("first redeem failed: %v", err)
	}
	if issuer.Outstanding(ticket.ID) {
		t.Error("consumed ticket still outstanding")
	}
	if err := issuer.redeem(ctx, ticket.ID, id, "bob"); !errors.Is(err, ErrTicketConsumed) {
		t.Fatalf("expected ErrTicketConsumed on second redeem, got %v", err)
	}
}

func TestRedeemMismatchLeavesTicketIntact(t *testing.T) {
	ctx := context.Background()
	issuer, _, _, id := setupIssuer(t, 0)

	ticket, err := issuer.PurchaseTicket(ctx, id, "bob", 0)
	if err != nil {
		t.Fatalf("purchase failed: %v", err)
	}

	// Wrong caller: rejected, ticket survives
	if err := issuer.redeem(ctx, ticket.ID, id, "mallory"); !errors.Is(err, ErrTicketMismatch) {
		t.Fatalf("expected ErrTicketMismatch for wrong caller, got %v", err)
	}
	// Wrong template: rejected, ticket survives
	if err := issuer.redeem(ctx, ticket.ID, id+1, "bob"); !errors.Is(err, ErrTicketMismatch) {
		t.Fatalf("expected ErrTicketMismatch for wrong template, got %v", err)
	}
	if !issuer.Outstanding(ticket.ID) {
		t.Fatal("mismatched redemption consumed the ticket")
	}

	// The rightful holder can still use it
	if err := issuer.redeem(ctx, ticket.ID, id, "bob"); err != nil {
		t.Fatalf("rightful redeem failed: %v", err)
	}
}

func TestRedeemUnknownTicket(t *testing.T) {
	ctx := context.Background()
	issuer, _, _, id := setupIssuer(t, 0)

	if err := issuer.redeem(ctx, "no-such-ticket", id, "bob"); !errors.Is(err, ErrTicketNotFound) {
		t.Fatalf("expected ErrTicketNotFound, got %v", err)
	}
}
