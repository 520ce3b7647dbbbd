package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/mangadesu/premiumbot/internal/order"
)

// engineTx is the transactional view handed to a single activation run.
type engineTx struct {
	tx *sqlx.Tx
}

// OrderForUpdate loads and row-locks the order for the duration of the
// transaction, serialising racing admin decisions on the same order.
func (t *engineTx) OrderForUpdate(ctx context.Context, id string) (*order.Order, error) {
	var o order.Order
	err := t.tx.GetContext(ctx, &o, `
		SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, order.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock order: %w", err)
	}
	return &o, nil
}

// SubscriberByKey returns the subscriber or order.ErrSubscriberNotFound.
func (t *engineTx) SubscriberByKey(ctx context.Context, key string) (*order.Subscriber, error) {
	var sub order.Subscriber
	err := t.tx.GetContext(ctx, &sub, `
		SELECT subscriber_key, is_premium, premium_until, created_at, updated_at
		FROM subscribers WHERE subscriber_key = $1`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, order.ErrSubscriberNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find subscriber: %w", err)
	}
	return &sub, nil
}

// SaveEntitlement sets the premium flag and expiry and appends the
// in-app notification. The subscriber must already exist; the entitlement
// is a projection of an account owned elsewhere.
func (t *engineTx) SaveEntitlement(ctx context.Context, key string, premiumUntil time.Time, note order.Notification) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE subscribers
		SET is_premium = TRUE, premium_until = $2, updated_at = now()
		WHERE subscriber_key = $1`,
		key, premiumUntil,
	)
	if err != nil {
		return fmt.Errorf("save entitlement: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save entitlement: %w", err)
	}
	if n == 0 {
		return order.ErrSubscriberNotFound
	}

	_, err = t.tx.ExecContext(ctx, `
		INSERT INTO subscriber_notifications (id, order_id, subscriber_key, kind, body, created_at)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6)`,
		note.ID, note.OrderID, note.SubscriberKey, note.Kind, note.Body, note.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append notification: %w", err)
	}
	return nil
}

// FinishOrder performs the terminal conditional status update inside the
// transaction.
func (t *engineTx) FinishOrder(ctx context.Context, id string, from, to order.Status) (*order.Order, error) {
	return transition(ctx, t.tx, id, from, to, order.Patch{})
}
