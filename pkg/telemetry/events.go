package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/weftworks/weft/pkg/domain"
)

// Event types consumed by the off-chain indexer.

type EventType string

const (
	EventTemplateRegistered   EventType = "template.registered"
	EventTemplateUpdated      EventType = "template.updated"
	EventTemplateListed       EventType = "template.listed"
	EventCloneRecorded        EventType = "clone.recorded"
	EventListingCreated       EventType = "listing.created"
	EventListingCancelled     EventType = "listing.cancelled"
	EventListingPriceUpdated  EventType = "listing.price_updated"
	EventListingPurchased     EventType = "listing.purchased"
	EventSchedulingEnabled    EventType = "scheduling.enabled"
	EventSchedulingDisabled   EventType = "scheduling.disabled"
	EventSchedulingBalanceLow EventType = "scheduling.balance_warning"
)

type Event struct {
	Type       EventType         `json:"type"`
	Account    domain.AccountID  `json:"account,omitempty"`
	TemplateID domain.TemplateID `json:"template_id,omitempty"`
	ListingID  domain.ListingID  `json:"listing_id,omitempty"`
	Amount     domain.Amount     `json:"amount,omitempty"`
	Detail     map[string]any    `json:"detail,omitempty"`
	Time       time.Time         `json:"time"`
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// MemoryPublisher fans events out to in-process subscribers and keeps a
// bounded replay buffer for late joiners.

type MemoryPublisher struct {
	mu     sync.Mutex
	subs   map[int]chan Event
	nextID int
	buffer []Event
	limit  int
}

func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{
		subs:  make(map[int]chan Event),
		limit: 256,
	}
}

func (p *MemoryPublisher) Publish(ctx context.Context, ev Event) error {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.buffer = append(p.buffer, ev)
	if len(p.buffer) > p.limit {
		p.buffer = p.buffer[len(p.buffer)-p.limit:]
	}

	for _, ch := range p.subs {
		select {
		case ch <- ev:
		default:
			// Slow subscriber; drop rather than block the ledger.
		}
	}
	return nil
}

// Subscribe returns a channel of future events and a cancel func.
func (p *MemoryPublisher) Subscribe() (<-chan Event, func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.nextID
	p.nextID++
	ch := make(chan Event, 64)
	p.subs[id] = ch

	cancel := func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if sub, ok := p.subs[id]; ok {
			delete(p.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Recent returns a copy of the replay buffer.
func (p *MemoryPublisher) Recent() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Event, len(p.buffer))
	copy(out, p.buffer)
	return out
}
