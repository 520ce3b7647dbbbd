// Package order holds the purchase lifecycle: the conversational state
// machine, the activation engine and the admin decision gateway.
package order

import (
	"database/sql"
	"time"
)

// Status is the conversational position of an order. It doubles as the
// session state: the process keeps nothing in memory between updates.
type Status string

const (
	StatusAwaitingSubscriberID Status = "awaiting_subscriber_id"
	StatusAwaitingProof        Status = "awaiting_proof"
	StatusAwaitingAmount       Status = "awaiting_amount"
	StatusPendingReview        Status = "pending_review"
	StatusConfirmed            Status = "confirmed"
	StatusRejected             Status = "rejected"
)

// InProgressStatuses lists every non-terminal status. The order of the
// slice matches the partial unique index in the schema.
func InProgressStatuses() []Status {
	return []Status{
		StatusAwaitingSubscriberID,
		StatusAwaitingProof,
		StatusAwaitingAmount,
		StatusPendingReview,
	}
}

// InProgress reports whether the status still occupies the buyer's single
// active-order slot.
func (s Status) InProgress() bool {
	switch s {
	case StatusAwaitingSubscriberID, StatusAwaitingProof, StatusAwaitingAmount, StatusPendingReview:
		return true
	}
	return false
}

// Terminal reports whether the status permits no further transition.
func (s Status) Terminal() bool {
	return s == StatusConfirmed || s == StatusRejected
}

// Buyer identifies the purchaser within the chat channel.
type Buyer struct {
	ChannelID   int64
	Username    string
	DisplayName string
}

// Order is one purchase attempt. Package fields are a snapshot taken at
// creation so later catalog edits cannot change what was sold.
type Order struct {
	ID               string        `db:"id"`
	BuyerChannelID   int64         `db:"buyer_channel_id"`
	BuyerUsername    string        `db:"buyer_username"`
	BuyerDisplayName string        `db:"buyer_display_name"`
	PackageID        string        `db:"package_id"`
	PackageName      string        `db:"package_name"`
	PackagePrice     int64         `db:"package_price"`
	PackageDays      int           `db:"package_days"`
	SubscriberKey    string        `db:"subscriber_key"`
	ClaimedAmount    sql.NullInt64 `db:"claimed_amount"`
	AmountAccepted   bool          `db:"amount_accepted"`
	PaymentProofRef  string        `db:"payment_proof_ref"`
	Status           Status        `db:"status"`
	CreatedAt        time.Time     `db:"created_at"`
	UpdatedAt        time.Time     `db:"updated_at"`
}

// BuyerLabel returns the handle used in admin-facing notices.
func (o *Order) BuyerLabel() string {
	if o.BuyerUsername != "" {
		return "@" + o.BuyerUsername
	}
	if o.BuyerDisplayName != "" {
		return o.BuyerDisplayName
	}
	return "-"
}

// Subscriber mirrors the entitlement fields of the external account record.
type Subscriber struct {
	Key          string       `db:"subscriber_key"`
	IsPremium    bool         `db:"is_premium"`
	PremiumUntil sql.NullTime `db:"premium_until"`
	CreatedAt    time.Time    `db:"created_at"`
	UpdatedAt    time.Time    `db:"updated_at"`
}

// ExpiryAfter computes the entitlement expiry after adding days of
// validity. Remaining unexpired premium time is stacked onto, never
// truncated: buying early extends from the current expiry.
func (s *Subscriber) ExpiryAfter(now time.Time, days int) time.Time {
	start := now
	if s.IsPremium && s.PremiumUntil.Valid && s.PremiumUntil.Time.After(now) {
		start = s.PremiumUntil.Time
	}
	return start.AddDate(0, 0, days)
}

// Notification is an in-app notice appended to the subscriber on
// activation.
type Notification struct {
	ID            string    `db:"id"`
	OrderID       string    `db:"order_id"`
	SubscriberKey string    `db:"subscriber_key"`
	Kind          string    `db:"kind"`
	Body          string    `db:"body"`
	CreatedAt     time.Time `db:"created_at"`
}

const NotificationKindPremiumActivated = "premium_activated"
