package order

import (
	"context"
	"time"
)

// Patch carries optional field updates applied together with a status
// transition. Nil fields are left untouched.
type Patch struct {
	SubscriberKey   *string
	ClaimedAmount   *int64
	AmountAccepted  *bool
	PaymentProofRef *string
}

// Store is the order persistence consumed by the state machine and the
// session resolver.
type Store interface {
	// Create inserts a new order. Returns ErrOrderInProgress when the
	// buyer already holds a non-terminal order (enforced by the partial
	// unique index, so concurrent creations cannot both succeed).
	Create(ctx context.Context, o *Order) error

	// LatestInProgressByBuyer returns the buyer's single in-progress
	// order, or nil when there is none.
	LatestInProgressByBuyer(ctx context.Context, buyerChannelID int64) (*Order, error)

	// LatestByBuyer returns the buyer's most recent order of any status,
	// or nil when the buyer never ordered.
	LatestByBuyer(ctx context.Context, buyerChannelID int64) (*Order, error)

	// ByID returns the order or ErrOrderNotFound.
	ByID(ctx context.Context, id string) (*Order, error)

	// ListPending returns pending_review orders, newest first.
	ListPending(ctx context.Context, limit int) ([]Order, error)

	// Transition applies a conditional status update gated on the
	// expected prior status, together with the patch. Returns
	// ErrOrderAlreadyProcessed when the gate does not match, so a
	// concurrent transition on the same order wins exactly once.
	Transition(ctx context.Context, id string, from, to Status, patch Patch) (*Order, error)
}

// EngineTx is the transactional view used by a single activation.
type EngineTx interface {
	// OrderForUpdate loads and row-locks the order.
	OrderForUpdate(ctx context.Context, id string) (*Order, error)

	// SubscriberByKey returns the subscriber or ErrSubscriberNotFound.
	SubscriberByKey(ctx context.Context, key string) (*Subscriber, error)

	// SaveEntitlement marks the subscriber premium until the given
	// expiry and appends the in-app notification record.
	SaveEntitlement(ctx context.Context, key string, premiumUntil time.Time, note Notification) error

	// FinishOrder performs the terminal conditional status update.
	FinishOrder(ctx context.Context, id string, from, to Status) (*Order, error)
}

// EngineStore runs activation work inside one database transaction. The
// subscriber write and the order confirmation commit or roll back
// together, so a failed entitlement write leaves the order pending.
type EngineStore interface {
	InTx(ctx context.Context, fn func(EngineTx) error) error
}
