package order

import (
	"context"
	"time"
)

// Resolver finds the in-progress order a buyer's next message belongs to.
// It also applies the lazy abandonment check: a payment-stage order left
// idle beyond the timeout is rejected on the buyer's next interaction
// instead of resuming a stale session.
type Resolver struct {
	store   Store
	timeout time.Duration
	now     func() time.Time
}

// NewResolver builds a Resolver. A non-positive timeout disables the
// abandonment check.
func NewResolver(store Store, timeout time.Duration) *Resolver {
	return &Resolver{store: store, timeout: timeout, now: time.Now}
}

// Resolve returns the buyer's in-progress order, or nil when the buyer is
// idle. An expired payment-stage session is rejected and reported as nil
// together with the stale order so callers can tell the buyer to restart.
func (r *Resolver) Resolve(ctx context.Context, buyerChannelID int64) (current, expired *Order, err error) {
	o, err := r.store.LatestInProgressByBuyer(ctx, buyerChannelID)
	if err != nil || o == nil {
		return nil, nil, err
	}

	if r.stale(o) {
		rejected, terr := r.store.Transition(ctx, o.ID, o.Status, StatusRejected, Patch{})
		if terr != nil {
			// Lost the race to another transition; fall through to a
			// fresh lookup on the buyer's next message.
			return nil, nil, nil
		}
		return nil, rejected, nil
	}
	return o, nil, nil
}

// stale reports whether the order sat in a payment step beyond the
// timeout. Orders waiting on the admin never expire here.
func (r *Resolver) stale(o *Order) bool {
	if r.timeout <= 0 {
		return false
	}
	switch o.Status {
	case StatusAwaitingProof, StatusAwaitingAmount:
		return r.now().Sub(o.UpdatedAt) > r.timeout
	}
	return false
}
