package order

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testGateway(store *memStore) *Gateway {
	return NewGateway(NewEngine(store), []int64{111}, []string{"secret-key"})
}

func TestGatewayAuthorize(t *testing.T) {
	g := testGateway(newMemStore())

	assert.NoError(t, g.Authorize(Actor{ChannelID: 111}))
	assert.NoError(t, g.Authorize(Actor{Credential: "secret-key"}))
	assert.ErrorIs(t, g.Authorize(Actor{ChannelID: 222}), ErrUnauthorized)
	assert.ErrorIs(t, g.Authorize(Actor{Credential: "wrong"}), ErrUnauthorized)
	assert.ErrorIs(t, g.Authorize(Actor{}), ErrUnauthorized)
}

func TestGatewayConfirmBothIngresses(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.addSubscriber("google-id-123", false, time.Time{})
	pendingOrder(store, "ord-a", "google-id-123", 7)

	g := testGateway(store)

	// chat ingress wins
	act, err := g.Confirm(ctx, "ord-a", Actor{ChannelID: 111, Label: "admin"})
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, act.Order.Status)

	// the racing HTTP ingress sees the gate, not a second credit
	_, err = g.Confirm(ctx, "ord-a", Actor{Credential: "secret-key", Label: "app"})
	assert.ErrorIs(t, err, ErrOrderAlreadyProcessed)
	assert.Len(t, store.notes, 1)
}

func TestGatewayDeniesNonAdmin(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.addSubscriber("google-id-123", false, time.Time{})
	pendingOrder(store, "ord-b", "google-id-123", 7)

	g := testGateway(store)

	_, err := g.Confirm(ctx, "ord-b", Actor{ChannelID: 999})
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = g.Reject(ctx, "ord-b", Actor{Credential: "nope"})
	assert.ErrorIs(t, err, ErrUnauthorized)

	// nothing moved
	o := store.orders["ord-b"]
	assert.Equal(t, StatusPendingReview, o.Status)
}

func TestGatewayGrant(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.addSubscriber("google-id-123", false, time.Time{})

	g := testGateway(store)

	expiry, err := g.Grant(ctx, "google-id-123", 7, Actor{Credential: "secret-key"})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().AddDate(0, 0, 7), expiry, time.Second)

	_, err = g.Grant(ctx, "google-id-123", 7, Actor{})
	assert.ErrorIs(t, err, ErrUnauthorized)
}
