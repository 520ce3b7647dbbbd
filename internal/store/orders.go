package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/mangadesu/premiumbot/internal/order"
)

const orderColumns = `id, buyer_channel_id, buyer_username, buyer_display_name,
	package_id, package_name, package_price, package_days,
	subscriber_key, claimed_amount, amount_accepted, payment_proof_ref,
	status, created_at, updated_at`

const pqUniqueViolation = "23505"

// Create inserts a new order. The partial unique index on active orders
// turns a concurrent duplicate into ErrOrderInProgress.
func (s *Store) Create(ctx context.Context, o *order.Order) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO orders (
			id, buyer_channel_id, buyer_username, buyer_display_name,
			package_id, package_name, package_price, package_days,
			status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		o.ID, o.BuyerChannelID, o.BuyerUsername, o.BuyerDisplayName,
		o.PackageID, o.PackageName, o.PackagePrice, o.PackageDays,
		o.Status, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return order.ErrOrderInProgress
		}
		return fmt.Errorf("create order: %w", err)
	}
	return nil
}

// LatestInProgressByBuyer returns the buyer's active order or nil.
func (s *Store) LatestInProgressByBuyer(ctx context.Context, buyerChannelID int64) (*order.Order, error) {
	var o order.Order
	err := s.db.GetContext(ctx, &o, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE buyer_channel_id = $1
		  AND status IN ('awaiting_subscriber_id', 'awaiting_proof', 'awaiting_amount', 'pending_review')
		ORDER BY created_at DESC
		LIMIT 1`,
		buyerChannelID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find in-progress order: %w", err)
	}
	return &o, nil
}

// LatestByBuyer returns the buyer's most recent order of any status, or
// nil when the buyer never ordered.
func (s *Store) LatestByBuyer(ctx context.Context, buyerChannelID int64) (*order.Order, error) {
	var o order.Order
	err := s.db.GetContext(ctx, &o, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE buyer_channel_id = $1
		ORDER BY created_at DESC
		LIMIT 1`,
		buyerChannelID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find latest order: %w", err)
	}
	return &o, nil
}

// ByID returns the order or order.ErrOrderNotFound.
func (s *Store) ByID(ctx context.Context, id string) (*order.Order, error) {
	var o order.Order
	err := s.db.GetContext(ctx, &o, `
		SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, order.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find order: %w", err)
	}
	return &o, nil
}

// ListPending returns pending_review orders, newest first.
func (s *Store) ListPending(ctx context.Context, limit int) ([]order.Order, error) {
	if limit <= 0 {
		limit = 50
	}
	var out []order.Order
	err := s.db.SelectContext(ctx, &out, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE status = 'pending_review'
		ORDER BY created_at DESC
		LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list pending orders: %w", err)
	}
	return out, nil
}

// Transition is the compare-and-swap status update. The WHERE clause
// carries the expected prior status so a lost race updates zero rows
// instead of clobbering a concurrent decision.
func (s *Store) Transition(ctx context.Context, id string, from, to order.Status, patch order.Patch) (*order.Order, error) {
	return transition(ctx, s.db, id, from, to, patch)
}

type querier interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

func transition(ctx context.Context, q querier, id string, from, to order.Status, patch order.Patch) (*order.Order, error) {
	var o order.Order
	err := q.GetContext(ctx, &o, `
		UPDATE orders SET
			status            = $3,
			subscriber_key    = COALESCE($4, subscriber_key),
			claimed_amount    = COALESCE($5, claimed_amount),
			amount_accepted   = COALESCE($6, amount_accepted),
			payment_proof_ref = COALESCE($7, payment_proof_ref),
			updated_at        = now()
		WHERE id = $1 AND status = $2
		RETURNING `+orderColumns,
		id, from, to,
		patch.SubscriberKey, patch.ClaimedAmount, patch.AmountAccepted, patch.PaymentProofRef,
	)
	if errors.Is(err, sql.ErrNoRows) {
		// distinguish a lost race from a missing order
		var exists bool
		if checkErr := q.GetContext(ctx, &exists,
			`SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, id); checkErr != nil {
			return nil, fmt.Errorf("transition order: %w", checkErr)
		}
		if !exists {
			return nil, order.ErrOrderNotFound
		}
		return nil, order.ErrOrderAlreadyProcessed
	}
	if err != nil {
		return nil, fmt.Errorf("transition order: %w", err)
	}
	return &o, nil
}
