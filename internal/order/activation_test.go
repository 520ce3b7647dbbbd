package order

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pendingOrder(store *memStore, id, key string, days int) *Order {
	o := &Order{
		ID:             id,
		BuyerChannelID: 42,
		PackageID:      "2",
		PackageName:    "Paket 30 Hari",
		PackagePrice:   15000,
		PackageDays:    days,
		SubscriberKey:  key,
		Status:         StatusPendingReview,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
	store.orders[o.ID] = o
	return o
}

func TestActivateCreditsSubscriberOnce(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.addSubscriber("google-id-123", false, time.Time{})
	pendingOrder(store, "ord-1", "google-id-123", 30)

	engine := NewEngine(store)

	act, err := engine.Activate(ctx, "ord-1")
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, act.Order.Status)
	assert.WithinDuration(t, time.Now().AddDate(0, 0, 30), act.NewExpiry, time.Second)

	// second confirmation hits the idempotence gate
	_, err = engine.Activate(ctx, "ord-1")
	assert.ErrorIs(t, err, ErrOrderAlreadyProcessed)

	// exactly one in-app notification was appended
	assert.Len(t, store.notes, 1)
	assert.Equal(t, NotificationKindPremiumActivated, store.notes[0].Kind)
	assert.Equal(t, "ord-1", store.notes[0].OrderID)
}

func TestActivateRaceCreditsExactlyOnce(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.addSubscriber("google-id-123", false, time.Time{})
	pendingOrder(store, "ord-race", "google-id-123", 7)

	engine := NewEngine(store)

	const racers = 8
	var wg sync.WaitGroup
	errs := make(chan error, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := engine.Activate(ctx, "ord-race")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var wins, conflicts int
	for err := range errs {
		switch {
		case err == nil:
			wins++
		default:
			require.ErrorIs(t, err, ErrOrderAlreadyProcessed)
			conflicts++
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, racers-1, conflicts)
	assert.Len(t, store.notes, 1)
}

func TestActivateStacksOntoUnexpiredPremium(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	future := time.Now().AddDate(0, 0, 10)
	store.addSubscriber("google-id-123", true, future)
	pendingOrder(store, "ord-stack", "google-id-123", 30)

	act, err := NewEngine(store).Activate(ctx, "ord-stack")
	require.NoError(t, err)
	assert.WithinDuration(t, future.AddDate(0, 0, 30), act.NewExpiry, time.Second)
}

func TestActivateExpiredPremiumStartsFromNow(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.addSubscriber("google-id-123", true, time.Now().AddDate(0, 0, -5))
	pendingOrder(store, "ord-exp", "google-id-123", 7)

	act, err := NewEngine(store).Activate(ctx, "ord-exp")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().AddDate(0, 0, 7), act.NewExpiry, time.Second)
}

func TestActivateFailsClosed(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown order", func(t *testing.T) {
		_, err := NewEngine(newMemStore()).Activate(ctx, "missing")
		assert.ErrorIs(t, err, ErrOrderNotFound)
	})

	t.Run("empty subscriber key", func(t *testing.T) {
		store := newMemStore()
		pendingOrder(store, "ord-nokey", "", 7)
		_, err := NewEngine(store).Activate(ctx, "ord-nokey")
		assert.ErrorIs(t, err, ErrSubscriberUnresolved)
	})

	t.Run("unknown subscriber", func(t *testing.T) {
		store := newMemStore()
		pendingOrder(store, "ord-nosub", "google-id-999", 7)
		_, err := NewEngine(store).Activate(ctx, "ord-nosub")
		assert.ErrorIs(t, err, ErrSubscriberNotFound)

		o := store.orders["ord-nosub"]
		assert.Equal(t, StatusPendingReview, o.Status)
	})

	t.Run("entitlement write failure keeps order pending", func(t *testing.T) {
		store := newMemStore()
		store.addSubscriber("google-id-123", false, time.Time{})
		store.failEntitlement = true
		pendingOrder(store, "ord-fail", "google-id-123", 7)

		_, err := NewEngine(store).Activate(ctx, "ord-fail")
		require.ErrorIs(t, err, errDBDown)

		o := store.orders["ord-fail"]
		assert.Equal(t, StatusPendingReview, o.Status)
		sub := store.subscribers["google-id-123"]
		assert.False(t, sub.IsPremium)

		// manual retry succeeds once the write path recovers
		store.failEntitlement = false
		act, err := NewEngine(store).Activate(ctx, "ord-fail")
		require.NoError(t, err)
		assert.Equal(t, StatusConfirmed, act.Order.Status)
	})
}

func TestRejectLeavesSubscriberAlone(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.addSubscriber("google-id-123", false, time.Time{})
	pendingOrder(store, "ord-rej", "google-id-123", 7)

	engine := NewEngine(store)

	rejected, err := engine.Reject(ctx, "ord-rej")
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, rejected.Status)
	assert.False(t, store.subscribers["google-id-123"].IsPremium)

	_, err = engine.Reject(ctx, "ord-rej")
	assert.ErrorIs(t, err, ErrOrderAlreadyProcessed)

	_, err = engine.Activate(ctx, "ord-rej")
	assert.ErrorIs(t, err, ErrOrderAlreadyProcessed)
}

func TestGrantStacksLikeActivation(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	future := time.Now().AddDate(0, 0, 3)
	store.addSubscriber("google-id-123", true, future)

	engine := NewEngine(store)

	expiry, err := engine.Grant(ctx, "google-id-123", 7)
	require.NoError(t, err)
	assert.WithinDuration(t, future.AddDate(0, 0, 7), expiry, time.Second)

	_, err = engine.Grant(ctx, "google-id-123", 0)
	assert.Error(t, err)

	_, err = engine.Grant(ctx, "missing", 7)
	assert.ErrorIs(t, err, ErrSubscriberNotFound)
}
