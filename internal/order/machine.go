package order

import (
	"context"
	"errors"
	"strings"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/mangadesu/premiumbot/core/logger"
	"github.com/mangadesu/premiumbot/internal/catalog"
)

// Policy groups the configurable knobs of the purchase flow. Both the
// tolerance and the minimum id length have varied between deployments, so
// they are injected rather than fixed.
type Policy struct {
	// MinSubscriberIDLen is the shortest account id accepted.
	MinSubscriberIDLen int
	// AmountTolerance is the allowed shortfall, in minor currency units,
	// between the claimed amount and the package price.
	AmountTolerance int64
	// SessionTimeout is how long a payment step may sit idle before the
	// order counts as abandoned.
	SessionTimeout time.Duration
}

// Event is one inbound buyer message, already stripped of transport
// detail. ProofRef carries the attachment handle when a photo was sent.
type Event struct {
	Buyer    Buyer
	Text     string
	ProofRef string
}

// ReplyKind tells the transport layer which message to render back to the
// buyer. Rendering stays in the binding so the machine has no channel or
// locale knowledge.
type ReplyKind int

const (
	ReplyNone ReplyKind = iota
	// ReplyMenu: buyer is idle, show the package menu hint.
	ReplyMenu
	// ReplySessionExpired: the previous session timed out, start over.
	ReplySessionExpired
	// ReplyOrderInProgress: a second purchase attempt was refused.
	ReplyOrderInProgress
	// ReplyAskSubscriberID: order created, ask for the account id.
	ReplyAskSubscriberID
	// ReplyInvalidSubscriberID: id shorter than the policy minimum.
	ReplyInvalidSubscriberID
	// ReplyPaymentInstructions: id stored, send the QRIS instructions.
	ReplyPaymentInstructions
	// ReplyRepromptProof: no photo and no affirmative keyword yet.
	ReplyRepromptProof
	// ReplyCancelled: buyer cancelled while awaiting proof.
	ReplyCancelled
	// ReplyAskAmount: proof received, ask for the transferred amount.
	ReplyAskAmount
	// ReplyInvalidAmount: amount text did not parse to a positive number.
	ReplyInvalidAmount
	// ReplyAmountRejected: claimed amount below price minus tolerance.
	ReplyAmountRejected
	// ReplyPendingReview: amount accepted, order queued for the admin.
	ReplyPendingReview
	// ReplyAwaitingAdmin: buyer poked a pending_review order.
	ReplyAwaitingAdmin
)

// Outcome is the result of feeding one event through the machine.
type Outcome struct {
	Order   *Order
	Expired *Order
	Reply   ReplyKind
	// NotifyAdminReview asks the binding to alert the admin with the
	// full order and proof for confirmation.
	NotifyAdminReview bool
	// NotifyAdminRejected asks the binding to tell the admin about an
	// automatic amount rejection.
	NotifyAdminRejected bool
}

// Machine drives an order through its conversational steps. It owns no
// session state: every decision is derived from the persisted order.
type Machine struct {
	store    Store
	resolver *Resolver
	catalog  *catalog.Catalog
	policy   Policy
	now      func() time.Time
}

// NewMachine builds the state machine.
func NewMachine(store Store, cat *catalog.Catalog, policy Policy) *Machine {
	return &Machine{
		store:    store,
		resolver: NewResolver(store, policy.SessionTimeout),
		catalog:  cat,
		policy:   policy,
		now:      time.Now,
	}
}

// Select handles a package selection. Creation is guarded by the
// database's one-active-order constraint, so two racing selections for
// the same buyer yield exactly one order.
func (m *Machine) Select(ctx context.Context, buyer Buyer, packageID string) (*Outcome, error) {
	pkg, err := m.catalog.Get(packageID)
	if err != nil {
		return nil, err
	}

	// Clear an abandoned session first so a stale order does not hold the
	// one-active slot against this selection.
	_, expired, err := m.resolver.Resolve(ctx, buyer.ChannelID)
	if err != nil {
		return nil, err
	}
	if expired != nil {
		logger.ORD.InfoContext(ctx, "order.expired",
			slog.String("order_id", expired.ID),
			slog.Int64("buyer", expired.BuyerChannelID),
		)
	}

	now := m.now()
	o := &Order{
		ID:               uuid.NewString(),
		BuyerChannelID:   buyer.ChannelID,
		BuyerUsername:    buyer.Username,
		BuyerDisplayName: buyer.DisplayName,
		PackageID:        pkg.ID,
		PackageName:      pkg.Name,
		PackagePrice:     pkg.PriceAmount,
		PackageDays:      pkg.ValidityDays,
		Status:           StatusAwaitingSubscriberID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := m.store.Create(ctx, o); err != nil {
		if errors.Is(err, ErrOrderInProgress) {
			return &Outcome{Expired: expired, Reply: ReplyOrderInProgress}, nil
		}
		return nil, err
	}

	logger.ORD.InfoContext(ctx, "order.created",
		slog.String("order_id", o.ID),
		slog.Int64("buyer", o.BuyerChannelID),
		slog.String("package", o.PackageID),
	)
	return &Outcome{Order: o, Expired: expired, Reply: ReplyAskSubscriberID}, nil
}

// Advance feeds one buyer message into the current session.
func (m *Machine) Advance(ctx context.Context, ev Event) (*Outcome, error) {
	o, expired, err := m.resolver.Resolve(ctx, ev.Buyer.ChannelID)
	if err != nil {
		return nil, err
	}
	if expired != nil {
		logger.ORD.InfoContext(ctx, "order.expired",
			slog.String("order_id", expired.ID),
			slog.Int64("buyer", expired.BuyerChannelID),
		)
		return &Outcome{Expired: expired, Reply: ReplySessionExpired}, nil
	}
	if o == nil {
		return &Outcome{Reply: ReplyMenu}, nil
	}

	switch o.Status {
	case StatusAwaitingSubscriberID:
		return m.stepSubscriberID(ctx, o, ev)
	case StatusAwaitingProof:
		return m.stepProof(ctx, o, ev)
	case StatusAwaitingAmount:
		return m.stepAmount(ctx, o, ev)
	case StatusPendingReview:
		return &Outcome{Order: o, Reply: ReplyAwaitingAdmin}, nil
	}
	return &Outcome{Order: o, Reply: ReplyNone}, nil
}

// Latest returns the buyer's most recent order regardless of status. Used
// by the status poll; never mutates.
func (m *Machine) Latest(ctx context.Context, buyerChannelID int64) (*Order, error) {
	return m.store.LatestByBuyer(ctx, buyerChannelID)
}

func (m *Machine) stepSubscriberID(ctx context.Context, o *Order, ev Event) (*Outcome, error) {
	key := strings.TrimSpace(ev.Text)
	if len(key) < m.policy.MinSubscriberIDLen {
		return &Outcome{Order: o, Reply: ReplyInvalidSubscriberID}, nil
	}

	updated, err := m.store.Transition(ctx, o.ID, StatusAwaitingSubscriberID, StatusAwaitingProof, Patch{
		SubscriberKey: &key,
	})
	if err != nil {
		return nil, err
	}
	return &Outcome{Order: updated, Reply: ReplyPaymentInstructions}, nil
}

func (m *Machine) stepProof(ctx context.Context, o *Order, ev Event) (*Outcome, error) {
	text := strings.ToLower(strings.TrimSpace(ev.Text))

	if ev.ProofRef == "" && isCancelText(text) {
		updated, err := m.store.Transition(ctx, o.ID, StatusAwaitingProof, StatusRejected, Patch{})
		if err != nil {
			return nil, err
		}
		logger.ORD.InfoContext(ctx, "order.cancelled",
			slog.String("order_id", o.ID),
			slog.Int64("buyer", o.BuyerChannelID),
		)
		return &Outcome{Order: updated, Reply: ReplyCancelled}, nil
	}

	if ev.ProofRef == "" && !isPaidText(text) {
		return &Outcome{Order: o, Reply: ReplyRepromptProof}, nil
	}

	patch := Patch{}
	if ev.ProofRef != "" {
		patch.PaymentProofRef = &ev.ProofRef
	}
	updated, err := m.store.Transition(ctx, o.ID, StatusAwaitingProof, StatusAwaitingAmount, patch)
	if err != nil {
		return nil, err
	}
	return &Outcome{Order: updated, Reply: ReplyAskAmount}, nil
}

func (m *Machine) stepAmount(ctx context.Context, o *Order, ev Event) (*Outcome, error) {
	amount, ok := parseAmount(ev.Text)
	if !ok {
		return &Outcome{Order: o, Reply: ReplyInvalidAmount}, nil
	}

	accepted := amount >= o.PackagePrice-m.policy.AmountTolerance
	patch := Patch{ClaimedAmount: &amount, AmountAccepted: &accepted}

	if !accepted {
		updated, err := m.store.Transition(ctx, o.ID, StatusAwaitingAmount, StatusRejected, patch)
		if err != nil {
			return nil, err
		}
		logger.ORD.InfoContext(ctx, "order.amount_rejected",
			slog.String("order_id", o.ID),
			slog.Int64("claimed", amount),
			slog.Int64("price", o.PackagePrice),
		)
		return &Outcome{Order: updated, Reply: ReplyAmountRejected, NotifyAdminRejected: true}, nil
	}

	updated, err := m.store.Transition(ctx, o.ID, StatusAwaitingAmount, StatusPendingReview, patch)
	if err != nil {
		return nil, err
	}
	logger.ORD.InfoContext(ctx, "order.pending_review",
		slog.String("order_id", o.ID),
		slog.Int64("claimed", amount),
	)
	return &Outcome{Order: updated, Reply: ReplyPendingReview, NotifyAdminReview: true}, nil
}

// parseAmount strips every non-digit rune ("Rp 15.000" -> 15000) and
// parses the remainder. Returns false for empty or non-positive input.
func parseAmount(text string) (int64, bool) {
	var digits strings.Builder
	for _, r := range text {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	if digits.Len() == 0 || digits.Len() > 15 {
		return 0, false
	}
	var n int64
	for _, r := range digits.String() {
		n = n*10 + int64(r-'0')
	}
	if n <= 0 {
		return 0, false
	}
	return n, true
}

func isPaidText(text string) bool {
	for _, kw := range []string{"sudah", "bayar", "transfer"} {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func isCancelText(text string) bool {
	return text == "batal" || text == "/batal" || text == "cancel"
}
