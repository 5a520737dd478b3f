package market

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/weftworks/weft/pkg/domain"
	"github.com/weftworks/weft/pkg/funds"
	"github.com/weftworks/weft/pkg/vault"
)

var ErrListingNotFound = errors.New("listing not found")
var ErrNotSeller = errors.New("caller is not the listing seller")
var ErrNotPlatformOwner = errors.New("caller is not the platform owner")
var ErrExactPayment = errors.New("payment must equal the listing price exactly")
var ErrPriceOutOfBounds = errors.New("price out of bounds")
var ErrFeeOutOfBounds = errors.New("platform fee must be between 0 and 10000 basis points")

// FeeDenominator is the basis-point scale for the platform fee rate.
const FeeDenominator int64 = 10_000

type Listing struct {
	ID         domain.ListingID  `json:"id"`
	TemplateID domain.TemplateID `json:"template_id"`
	Seller     domain.AccountID  `json:"seller"`
	Price      domain.Amount     `json:"price"`
	CreatedAt  time.Time         `json:"created_at"`

	// instance is the escrowed resource; it is reachable from this listing
	// and nowhere else until cancel or purchase moves it out.
	instance *domain.Instance
}

// Marketplace escrows instances for resale. The platform fee rate and fee
// collector are process-wide configuration readable by every purchase and
// mutable only by the platform owner account.

type Marketplace struct {
	owner domain.AccountID
	bank  funds.Bank

	mu        sync.Mutex
	feeBps    int64
	collector domain.AccountID
	nextID    domain.ListingID
	listings  map[domain.ListingID]*Listing
}

func New(owner, collector domain.AccountID, feeBps int64, bank funds.Bank) (*Marketplace, error) {
	if feeBps < 0 || feeBps > FeeDenominator {
		return nil, ErrFeeOutOfBounds
	}
	return &Marketplace{
		owner:     owner,
		bank:      bank,
		feeBps:    feeBps,
		collector: collector,
		nextID:    1,
		listings:  make(map[domain.ListingID]*Listing),
	}, nil
}

// SplitFee computes the platform cut and the seller share. The two always
// sum to price exactly; integer flooring keeps any rounding inside one
// micro-unit in the seller's favor.
func SplitFee(price domain.Amount, feeBps int64) (platformFee, sellerShare domain.Amount) {
	platformFee = domain.Amount(int64(price) * feeBps / FeeDenominator)
	sellerShare = price - platformFee
	return platformFee, sellerShare
}

func (m *Marketplace) SetPlatformFee(caller domain.AccountID, feeBps int64) error {
	if caller != m.owner {
		return ErrNotPlatformOwner
	}
	if feeBps < 0 || feeBps > FeeDenominator {
		return ErrFeeOutOfBounds
	}
	m.mu.Lock()
	m.feeBps = feeBps
	m.mu.Unlock()
	return nil
}

func (m *Marketplace) SetFeeCollector(caller, collector domain.AccountID) error {
	if caller != m.owner {
		return ErrNotPlatformOwner
	}
	m.mu.Lock()
	m.collector = collector
	m.mu.Unlock()
	return nil
}

func (m *Marketplace) PlatformFee() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.feeBps
}

// CreateListing withdraws the instance from the seller's container (which
// cancels any active schedule) and escrows it in a new listing.
func (m *Marketplace) CreateListing(ctx context.Context, seller *vault.Container, templateID domain.TemplateID, price domain.Amount) (domain.ListingID, error) {
	if price < 0 || price > domain.MaxPrice {
		return 0, ErrPriceOutOfBounds
	}

	inst, err := seller.Withdraw(ctx, templateID)
	if err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	l := &Listing{
		ID:         m.nextID,
		TemplateID: templateID,
		Seller:     seller.Owner(),
		Price:      price,
		CreatedAt:  time.Now(),
		instance:   inst,
	}
	m.nextID++
	m.listings[l.ID] = l
	return l.ID, nil
}

// CancelListing destroys the listing and moves the instance back into the
// seller's container. If the deposit would conflict (the seller re-cloned
// the template meanwhile) the listing stays intact.
func (m *Marketplace) CancelListing(ctx context.Context, id domain.ListingID, caller domain.AccountID, dst *vault.Container) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.listings[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrListingNotFound, id)
	}
	if l.Seller != caller {
		return ErrNotSeller
	}

	if err := dst.Deposit(l.instance); err != nil {
		return err
	}
	l.instance = nil
	delete(m.listings, id)
	return nil
}

func (m *Marketplace) UpdatePrice(id domain.ListingID, caller domain.AccountID, price domain.Amount) error {
	if price < 0 || price > domain.MaxPrice {
		return ErrPriceOutOfBounds
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.listings[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrListingNotFound, id)
	}
	if l.Seller != caller {
		return ErrNotSeller
	}
	l.Price = price
	return nil
}

// Purchase settles a listing: seller share and platform fee are paid out,
// the instance moves into the buyer's container, and the listing is
// destroyed. Every precondition is checked before the first transfer, so
// any failure leaves all three legs untouched.
func (m *Marketplace) Purchase(ctx context.Context, id domain.ListingID, buyer domain.AccountID, payment domain.Amount, dst *vault.Container) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.listings[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrListingNotFound, id)
	}
	if payment != l.Price {
		return fmt.Errorf("%w: price %s, payment %s", ErrExactPayment, l.Price, payment)
	}
	if dst.Holds(l.TemplateID) {
		return fmt.Errorf("%w: template %d in container %s", vault.ErrAlreadyOwned, l.TemplateID, dst.Owner())
	}

	bal, err := m.bank.Balance(ctx, buyer)
	if err != nil {
		return err
	}
	if bal < l.Price {
		return fmt.Errorf("%w: account %s has %s, needs %s", funds.ErrInsufficientFunds, buyer, bal, l.Price)
	}

	platformFee, sellerShare := SplitFee(l.Price, m.feeBps)

	if err := m.bank.Withdraw(ctx, buyer, l.Price); err != nil {
		return err
	}
	// The in-memory bank cannot fail past this point, but Bank is the seam
	// for an external wallet: any failed leg claws back the completed ones
	// and refunds the buyer, leaving the listing intact.
	if err := m.bank.Deposit(ctx, l.Seller, sellerShare); err != nil {
		return m.refund(ctx, buyer, l.Price, err)
	}
	if err := m.bank.Deposit(ctx, m.collector, platformFee); err != nil {
		err = errors.Join(err, m.bank.Withdraw(ctx, l.Seller, sellerShare))
		return m.refund(ctx, buyer, l.Price, err)
	}
	if err := dst.Deposit(l.instance); err != nil {
		// Holds() said no; a failure here means the container changed under
		// us mid-transaction, which the serial model rules out.
		err = errors.Join(err,
			m.bank.Withdraw(ctx, l.Seller, sellerShare),
			m.bank.Withdraw(ctx, m.collector, platformFee))
		return m.refund(ctx, buyer, l.Price, err)
	}

	l.instance = nil
	delete(m.listings, id)
	return nil
}

// refund returns the buyer's payment after a failed settlement leg.
func (m *Marketplace) refund(ctx context.Context, buyer domain.AccountID, price domain.Amount, cause error) error {
	if err := m.bank.Deposit(ctx, buyer, price); err != nil {
		return errors.Join(cause, err)
	}
	return cause
}

// Get returns a copy of the listing metadata.
func (m *Marketplace) Get(id domain.ListingID) (Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.listings[id]
	if !ok {
		return Listing{}, fmt.Errorf("%w: %d", ErrListingNotFound, id)
	}
	cp := *l
	cp.instance = nil
	return cp, nil
}

// List returns all active listings ordered by id.
func (m *Marketplace) List() []Listing {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Listing, 0, len(m.listings))
	for _, l := range m.listings {
		cp := *l
		cp.instance = nil
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ListBySeller returns the seller's active listings ordered by id.
func (m *Marketplace) ListBySeller(seller domain.AccountID) []Listing {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Listing
	for _, l := range m.listings {
		if l.Seller == seller {
			cp := *l
			cp.instance = nil
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
