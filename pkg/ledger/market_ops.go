package ledger

import (
	"context"

	"github.com/weftworks/weft/pkg/domain"
	"github.com/weftworks/weft/pkg/market"
	"github.com/weftworks/weft/pkg/telemetry"
)

// CreateListing moves the instance out of the seller's container and into
// marketplace escrow.
func (l *Ledger) CreateListing(ctx context.Context, seller domain.AccountID, templateID domain.TemplateID, price domain.Amount) (domain.ListingID, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	c := l.containerLocked(seller)
	id, err := l.Market.CreateListing(ctx, c, templateID, price)
	if err != nil {
		return 0, err
	}

	l.Logger.Info(ctx, "Listing created", map[string]any{
		"listing":  id,
		"template": templateID,
		"seller":   seller,
		"price":    price.String(),
	})
	l.Metrics.IncCounter("weft_listings_created_total", 1)
	l.publish(ctx, telemetry.Event{
		Type:       telemetry.EventListingCreated,
		Account:    seller,
		TemplateID: templateID,
		ListingID:  id,
		Amount:     price,
	})
	return id, nil
}

// CancelListing returns the escrowed instance to the seller's container
// and destroys the listing.
func (l *Ledger) CancelListing(ctx context.Context, listingID domain.ListingID, caller domain.AccountID) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	c := l.containerLocked(caller)
	if err := l.Market.CancelListing(ctx, listingID, caller, c); err != nil {
		return err
	}
	l.publish(ctx, telemetry.Event{
		Type:      telemetry.EventListingCancelled,
		Account:   caller,
		ListingID: listingID,
	})
	return nil
}

func (l *Ledger) UpdateListingPrice(ctx context.Context, listingID domain.ListingID, caller domain.AccountID, price domain.Amount) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.Market.UpdatePrice(listingID, caller, price); err != nil {
		return err
	}
	l.publish(ctx, telemetry.Event{
		Type:      telemetry.EventListingPriceUpdated,
		Account:   caller,
		ListingID: listingID,
		Amount:    price,
	})
	return nil
}

// PurchaseListing settles the resale: exact payment in, fee split out,
// instance into the buyer's container, listing gone. All or nothing.
func (l *Ledger) PurchaseListing(ctx context.Context, listingID domain.ListingID, buyer domain.AccountID, payment domain.Amount) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	listing, err := l.Market.Get(listingID)
	if err != nil {
		return err
	}

	dst := l.containerLocked(buyer)
	if err := l.Market.Purchase(ctx, listingID, buyer, payment, dst); err != nil {
		l.Metrics.IncCounter("weft_listing_purchases_total", 1, telemetry.Label{Key: "outcome", Value: "rejected"})
		return err
	}

	l.Logger.Info(ctx, "Listing purchased", map[string]any{
		"listing":  listingID,
		"template": listing.TemplateID,
		"seller":   listing.Seller,
		"buyer":    buyer,
		"price":    listing.Price.String(),
	})
	l.Metrics.IncCounter("weft_listing_purchases_total", 1, telemetry.Label{Key: "outcome", Value: "ok"})
	l.publish(ctx, telemetry.Event{
		Type:       telemetry.EventListingPurchased,
		Account:    buyer,
		TemplateID: listing.TemplateID,
		ListingID:  listingID,
		Amount:     listing.Price,
	})
	return nil
}

func (l *Ledger) Listings() []market.Listing {
	return l.Market.List()
}

func (l *Ledger) ListingsBySeller(seller domain.AccountID) []market.Listing {
	return l.Market.ListBySeller(seller)
}

// SetPlatformFee updates the marketplace fee rate (basis points).
// Platform-owner only.
func (l *Ledger) SetPlatformFee(caller domain.AccountID, feeBps int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.Market.SetPlatformFee(caller, feeBps)
}

// SetFeeCollector points the platform's cut at a different account.
// Platform-owner only.
func (l *Ledger) SetFeeCollector(caller, collector domain.AccountID) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.Market.SetFeeCollector(caller, collector)
}
