package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisPublisherRoundtrip(t *testing.T) {
	mr := miniredis.RunT(t)

	p, err := NewRedisPublisher(mr.Addr(), 0, "")
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := p.Subscribe(ctx)
	require.NoError(t, err)

	ev := Event{
		Type:       EventListingPurchased,
		Account:    "bob",
		TemplateID: 7,
		ListingID:  3,
		Amount:     2_000_000,
	}
	require.NoError(t, p.Publish(ctx, ev))

	select {
	case got := <-ch:
		assert.Equal(t, EventListingPurchased, got.Type)
		assert.Equal(t, "bob", string(got.Account))
		assert.EqualValues(t, 7, got.TemplateID)
		assert.EqualValues(t, 3, got.ListingID)
		assert.EqualValues(t, 2_000_000, got.Amount)
		assert.False(t, got.Time.IsZero())
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber never received the event")
	}

	// Cancelling the context closes the subscription channel
	cancel()
	select {
	case _, open := <-ch:
		assert.False(t, open, "channel should close on context cancel")
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed after cancel")
	}
}
