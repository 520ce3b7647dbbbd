package order

import (
	"context"
	"fmt"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/mangadesu/premiumbot/core/logger"
)

// Activation is the successful result of confirming an order.
type Activation struct {
	Order     *Order
	NewExpiry time.Time
}

// Engine performs the idempotent confirm/reject of a reviewed order. All
// writes of one activation run in a single transaction: the subscriber
// entitlement and the order confirmation land together or not at all.
type Engine struct {
	store EngineStore
	now   func() time.Time
}

// NewEngine builds an Engine.
func NewEngine(store EngineStore) *Engine {
	return &Engine{store: store, now: time.Now}
}

// Activate confirms the order and credits the subscriber. Only a
// pending_review order activates; a second call on the same order fails
// with ErrOrderAlreadyProcessed instead of crediting twice.
func (e *Engine) Activate(ctx context.Context, orderID string) (*Activation, error) {
	var result Activation

	err := e.store.InTx(ctx, func(tx EngineTx) error {
		o, err := tx.OrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if o.Status != StatusPendingReview {
			return ErrOrderAlreadyProcessed
		}
		if o.SubscriberKey == "" {
			return ErrSubscriberUnresolved
		}

		sub, err := tx.SubscriberByKey(ctx, o.SubscriberKey)
		if err != nil {
			return err
		}

		now := e.now()
		expiry := sub.ExpiryAfter(now, o.PackageDays)

		note := Notification{
			ID:            uuid.NewString(),
			OrderID:       o.ID,
			SubscriberKey: o.SubscriberKey,
			Kind:          NotificationKindPremiumActivated,
			Body: fmt.Sprintf(
				"Admin telah mengaktifkan status Premium kamu selama %d hari. Nikmati fitur unduhan tanpa batas!",
				o.PackageDays,
			),
			CreatedAt: now,
		}
		if err := tx.SaveEntitlement(ctx, o.SubscriberKey, expiry, note); err != nil {
			return err
		}

		confirmed, err := tx.FinishOrder(ctx, o.ID, StatusPendingReview, StatusConfirmed)
		if err != nil {
			return err
		}

		result = Activation{Order: confirmed, NewExpiry: expiry}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.ACT.InfoContext(ctx, "order.activated",
		slog.String("order_id", result.Order.ID),
		slog.String("subscriber", result.Order.SubscriberKey),
		slog.Int("days", result.Order.PackageDays),
		slog.Time("premium_until", result.NewExpiry),
	)
	return &result, nil
}

// Reject marks a pending_review order rejected. The subscriber is never
// touched. The same idempotence gate applies.
func (e *Engine) Reject(ctx context.Context, orderID string) (*Order, error) {
	var rejected *Order

	err := e.store.InTx(ctx, func(tx EngineTx) error {
		o, err := tx.OrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if o.Status != StatusPendingReview {
			return ErrOrderAlreadyProcessed
		}
		rejected, err = tx.FinishOrder(ctx, o.ID, StatusPendingReview, StatusRejected)
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.ACT.InfoContext(ctx, "order.rejected",
		slog.String("order_id", rejected.ID),
	)
	return rejected, nil
}

// Grant applies validity days to a subscriber directly, without an order.
// Used by the manual admin endpoint; stacking follows the same rule as
// activation.
func (e *Engine) Grant(ctx context.Context, subscriberKey string, days int) (time.Time, error) {
	if days <= 0 {
		return time.Time{}, fmt.Errorf("grant: days must be positive, got %d", days)
	}

	var expiry time.Time
	err := e.store.InTx(ctx, func(tx EngineTx) error {
		sub, err := tx.SubscriberByKey(ctx, subscriberKey)
		if err != nil {
			return err
		}
		now := e.now()
		expiry = sub.ExpiryAfter(now, days)
		note := Notification{
			ID:            uuid.NewString(),
			SubscriberKey: subscriberKey,
			Kind:          NotificationKindPremiumActivated,
			Body: fmt.Sprintf(
				"Admin telah mengaktifkan status Premium kamu selama %d hari. Nikmati fitur unduhan tanpa batas!",
				days,
			),
			CreatedAt: now,
		}
		return tx.SaveEntitlement(ctx, subscriberKey, expiry, note)
	})
	if err != nil {
		return time.Time{}, err
	}

	logger.ACT.InfoContext(ctx, "premium.granted",
		slog.String("subscriber", subscriberKey),
		slog.Int("days", days),
		slog.Time("premium_until", expiry),
	)
	return expiry, nil
}
