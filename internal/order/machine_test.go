package order

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/mangadesu/premiumbot/core/config"
	"github.com/mangadesu/premiumbot/internal/catalog"
)

func testMachine(store *memStore, policy Policy) *Machine {
	if policy.MinSubscriberIDLen == 0 {
		policy.MinSubscriberIDLen = 10
	}
	return NewMachine(store, catalog.New(coreconfig.DefaultPackages()), policy)
}

var testBuyer = Buyer{ChannelID: 777, Username: "pembeli", DisplayName: "Pembeli"}

func TestFullPurchaseFlow(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.addSubscriber("abc1234567", false, time.Time{})
	m := testMachine(store, Policy{})

	out, err := m.Select(ctx, testBuyer, "2")
	require.NoError(t, err)
	require.NotNil(t, out.Order)
	assert.Equal(t, ReplyAskSubscriberID, out.Reply)
	assert.Equal(t, StatusAwaitingSubscriberID, out.Order.Status)
	assert.Equal(t, int64(15000), out.Order.PackagePrice)
	assert.Equal(t, 30, out.Order.PackageDays)

	out, err = m.Advance(ctx, Event{Buyer: testBuyer, Text: "abc1234567"})
	require.NoError(t, err)
	assert.Equal(t, ReplyPaymentInstructions, out.Reply)
	assert.Equal(t, StatusAwaitingProof, out.Order.Status)
	assert.Equal(t, "abc1234567", out.Order.SubscriberKey)

	out, err = m.Advance(ctx, Event{Buyer: testBuyer, ProofRef: "photo-file-id"})
	require.NoError(t, err)
	assert.Equal(t, ReplyAskAmount, out.Reply)
	assert.Equal(t, StatusAwaitingAmount, out.Order.Status)
	assert.Equal(t, "photo-file-id", out.Order.PaymentProofRef)

	out, err = m.Advance(ctx, Event{Buyer: testBuyer, Text: "15000"})
	require.NoError(t, err)
	assert.Equal(t, ReplyPendingReview, out.Reply)
	assert.Equal(t, StatusPendingReview, out.Order.Status)
	assert.True(t, out.NotifyAdminReview)
	assert.True(t, out.Order.AmountAccepted)
	require.True(t, out.Order.ClaimedAmount.Valid)
	assert.Equal(t, int64(15000), out.Order.ClaimedAmount.Int64)

	act, err := NewEngine(store).Activate(ctx, out.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, act.Order.Status)
	assert.WithinDuration(t, time.Now().AddDate(0, 0, 30), act.NewExpiry, time.Second)

	sub := store.subscribers["abc1234567"]
	assert.True(t, sub.IsPremium)
	assert.WithinDuration(t, time.Now().AddDate(0, 0, 30), sub.PremiumUntil.Time, time.Second)
}

func TestSecondPurchaseRefusedWhileInProgress(t *testing.T) {
	ctx := context.Background()
	m := testMachine(newMemStore(), Policy{})

	out, err := m.Select(ctx, testBuyer, "1")
	require.NoError(t, err)
	require.NotNil(t, out.Order)

	out, err = m.Select(ctx, testBuyer, "2")
	require.NoError(t, err)
	assert.Nil(t, out.Order)
	assert.Equal(t, ReplyOrderInProgress, out.Reply)
}

func TestConcurrentSelectCreatesExactlyOne(t *testing.T) {
	ctx := context.Background()
	m := testMachine(newMemStore(), Policy{})

	const attempts = 16
	var wg sync.WaitGroup
	created := make(chan string, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := m.Select(ctx, testBuyer, "1")
			if err == nil && out.Order != nil {
				created <- out.Order.ID
			}
		}()
	}
	wg.Wait()
	close(created)

	var ids []string
	for id := range created {
		ids = append(ids, id)
	}
	assert.Len(t, ids, 1)
}

func TestShortSubscriberIDReprompts(t *testing.T) {
	ctx := context.Background()
	m := testMachine(newMemStore(), Policy{MinSubscriberIDLen: 10})

	_, err := m.Select(ctx, testBuyer, "1")
	require.NoError(t, err)

	out, err := m.Advance(ctx, Event{Buyer: testBuyer, Text: "short"})
	require.NoError(t, err)
	assert.Equal(t, ReplyInvalidSubscriberID, out.Reply)
	assert.Equal(t, StatusAwaitingSubscriberID, out.Order.Status)
}

func TestProofStepKeywordsAndReprompt(t *testing.T) {
	ctx := context.Background()
	m := testMachine(newMemStore(), Policy{})

	_, err := m.Select(ctx, testBuyer, "1")
	require.NoError(t, err)
	_, err = m.Advance(ctx, Event{Buyer: testBuyer, Text: "abc1234567"})
	require.NoError(t, err)

	out, err := m.Advance(ctx, Event{Buyer: testBuyer, Text: "halo?"})
	require.NoError(t, err)
	assert.Equal(t, ReplyRepromptProof, out.Reply)
	assert.Equal(t, StatusAwaitingProof, out.Order.Status)

	// affirmative text advances even without a photo
	out, err = m.Advance(ctx, Event{Buyer: testBuyer, Text: "sudah transfer"})
	require.NoError(t, err)
	assert.Equal(t, ReplyAskAmount, out.Reply)
	assert.Equal(t, StatusAwaitingAmount, out.Order.Status)
	assert.Empty(t, out.Order.PaymentProofRef)
}

func TestCancelWhileAwaitingProof(t *testing.T) {
	ctx := context.Background()
	m := testMachine(newMemStore(), Policy{})

	_, err := m.Select(ctx, testBuyer, "1")
	require.NoError(t, err)
	_, err = m.Advance(ctx, Event{Buyer: testBuyer, Text: "abc1234567"})
	require.NoError(t, err)

	out, err := m.Advance(ctx, Event{Buyer: testBuyer, Text: "batal"})
	require.NoError(t, err)
	assert.Equal(t, ReplyCancelled, out.Reply)
	assert.Equal(t, StatusRejected, out.Order.Status)

	// the slot frees up for a new purchase
	out, err = m.Select(ctx, testBuyer, "2")
	require.NoError(t, err)
	require.NotNil(t, out.Order)
}

func TestAmountTooLowAutoRejects(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.addSubscriber("abc1234567", false, time.Time{})
	m := testMachine(store, Policy{})

	_, err := m.Select(ctx, testBuyer, "2")
	require.NoError(t, err)
	_, err = m.Advance(ctx, Event{Buyer: testBuyer, Text: "abc1234567"})
	require.NoError(t, err)
	_, err = m.Advance(ctx, Event{Buyer: testBuyer, ProofRef: "ref"})
	require.NoError(t, err)

	out, err := m.Advance(ctx, Event{Buyer: testBuyer, Text: "1000"})
	require.NoError(t, err)
	assert.Equal(t, ReplyAmountRejected, out.Reply)
	assert.Equal(t, StatusRejected, out.Order.Status)
	assert.True(t, out.NotifyAdminRejected)
	assert.False(t, out.Order.AmountAccepted)

	// the entitlement is never touched by an auto-rejection
	sub := store.subscribers["abc1234567"]
	assert.False(t, sub.IsPremium)
}

func TestAmountToleranceAccepted(t *testing.T) {
	ctx := context.Background()
	m := testMachine(newMemStore(), Policy{AmountTolerance: 500})

	_, err := m.Select(ctx, testBuyer, "1")
	require.NoError(t, err)
	_, err = m.Advance(ctx, Event{Buyer: testBuyer, Text: "abc1234567"})
	require.NoError(t, err)
	_, err = m.Advance(ctx, Event{Buyer: testBuyer, ProofRef: "ref"})
	require.NoError(t, err)

	// price 5000, tolerance 500: 4500 still passes
	out, err := m.Advance(ctx, Event{Buyer: testBuyer, Text: "4500"})
	require.NoError(t, err)
	assert.Equal(t, ReplyPendingReview, out.Reply)
	assert.True(t, out.Order.AmountAccepted)
}

func TestInvalidAmountReprompts(t *testing.T) {
	ctx := context.Background()
	m := testMachine(newMemStore(), Policy{})

	_, err := m.Select(ctx, testBuyer, "1")
	require.NoError(t, err)
	_, err = m.Advance(ctx, Event{Buyer: testBuyer, Text: "abc1234567"})
	require.NoError(t, err)
	_, err = m.Advance(ctx, Event{Buyer: testBuyer, ProofRef: "ref"})
	require.NoError(t, err)

	for _, text := range []string{"banyak", "", "nol rupiah"} {
		out, err := m.Advance(ctx, Event{Buyer: testBuyer, Text: text})
		require.NoError(t, err)
		assert.Equal(t, ReplyInvalidAmount, out.Reply, "input %q", text)
		assert.Equal(t, StatusAwaitingAmount, out.Order.Status)
	}

	// formatted input parses after stripping separators
	out, err := m.Advance(ctx, Event{Buyer: testBuyer, Text: "Rp 5.000"})
	require.NoError(t, err)
	assert.Equal(t, ReplyPendingReview, out.Reply)
}

func TestPendingReviewIgnoresBuyerMessages(t *testing.T) {
	ctx := context.Background()
	m := testMachine(newMemStore(), Policy{})

	_, err := m.Select(ctx, testBuyer, "1")
	require.NoError(t, err)
	_, err = m.Advance(ctx, Event{Buyer: testBuyer, Text: "abc1234567"})
	require.NoError(t, err)
	_, err = m.Advance(ctx, Event{Buyer: testBuyer, ProofRef: "ref"})
	require.NoError(t, err)
	_, err = m.Advance(ctx, Event{Buyer: testBuyer, Text: "5000"})
	require.NoError(t, err)

	out, err := m.Advance(ctx, Event{Buyer: testBuyer, Text: "sudah belum?"})
	require.NoError(t, err)
	assert.Equal(t, ReplyAwaitingAdmin, out.Reply)
	assert.Equal(t, StatusPendingReview, out.Order.Status)
}

func TestStaleSessionRejectedLazily(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	m := testMachine(store, Policy{SessionTimeout: 30 * time.Minute})

	out, err := m.Select(ctx, testBuyer, "1")
	require.NoError(t, err)
	_, err = m.Advance(ctx, Event{Buyer: testBuyer, Text: "abc1234567"})
	require.NoError(t, err)

	// backdate the last activity past the timeout
	store.mu.Lock()
	store.orders[out.Order.ID].UpdatedAt = time.Now().Add(-time.Hour)
	store.mu.Unlock()

	res, err := m.Advance(ctx, Event{Buyer: testBuyer, ProofRef: "ref"})
	require.NoError(t, err)
	assert.Equal(t, ReplySessionExpired, res.Reply)
	require.NotNil(t, res.Expired)
	assert.Equal(t, StatusRejected, res.Expired.Status)

	// next message starts from idle
	res, err = m.Advance(ctx, Event{Buyer: testBuyer, Text: "halo"})
	require.NoError(t, err)
	assert.Equal(t, ReplyMenu, res.Reply)
}

func TestStaleSessionClearedOnSelect(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	m := testMachine(store, Policy{SessionTimeout: 30 * time.Minute})

	out, err := m.Select(ctx, testBuyer, "1")
	require.NoError(t, err)
	_, err = m.Advance(ctx, Event{Buyer: testBuyer, Text: "abc1234567"})
	require.NoError(t, err)

	stale := out.Order.ID
	store.mu.Lock()
	store.orders[stale].UpdatedAt = time.Now().Add(-2 * time.Hour)
	store.mu.Unlock()

	// a package tap after the timeout starts a fresh order in one step
	res, err := m.Select(ctx, testBuyer, "2")
	require.NoError(t, err)
	assert.Equal(t, ReplyAskSubscriberID, res.Reply)
	require.NotNil(t, res.Order)
	assert.NotEqual(t, stale, res.Order.ID)
	require.NotNil(t, res.Expired)
	assert.Equal(t, StatusRejected, res.Expired.Status)

	store.mu.Lock()
	assert.Equal(t, StatusRejected, store.orders[stale].Status)
	store.mu.Unlock()
}

func TestFreshSessionStillBlocksSelect(t *testing.T) {
	ctx := context.Background()
	m := testMachine(newMemStore(), Policy{SessionTimeout: 30 * time.Minute})

	_, err := m.Select(ctx, testBuyer, "1")
	require.NoError(t, err)

	res, err := m.Select(ctx, testBuyer, "2")
	require.NoError(t, err)
	assert.Equal(t, ReplyOrderInProgress, res.Reply)
	assert.Nil(t, res.Expired)
}

func TestStatusPollDoesNotMutate(t *testing.T) {
	ctx := context.Background()
	m := testMachine(newMemStore(), Policy{})

	latest, err := m.Latest(ctx, testBuyer.ChannelID)
	require.NoError(t, err)
	assert.Nil(t, latest)

	out, err := m.Select(ctx, testBuyer, "1")
	require.NoError(t, err)

	latest, err = m.Latest(ctx, testBuyer.ChannelID)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, out.Order.ID, latest.ID)
	assert.Equal(t, StatusAwaitingSubscriberID, latest.Status)
}

func TestUnknownPackage(t *testing.T) {
	ctx := context.Background()
	m := testMachine(newMemStore(), Policy{})

	_, err := m.Select(ctx, testBuyer, "99")
	assert.ErrorIs(t, err, catalog.ErrUnknownPackage)
}
