package order

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

var errDBDown = errors.New("database down")

// memStore is an in-memory Store + EngineStore with the same guard
// semantics as the SQL implementation: a partial-unique check on create
// and a compare-and-swap gate on every transition.
type memStore struct {
	mu          sync.Mutex
	orders      map[string]*Order
	subscribers map[string]*Subscriber
	notes       []Notification

	failEntitlement bool
}

func newMemStore() *memStore {
	return &memStore{
		orders:      make(map[string]*Order),
		subscribers: make(map[string]*Subscriber),
	}
}

func (s *memStore) addSubscriber(key string, premium bool, until time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub := &Subscriber{Key: key, IsPremium: premium}
	if !until.IsZero() {
		sub.PremiumUntil.Valid = true
		sub.PremiumUntil.Time = until
	}
	s.subscribers[key] = sub
}

func (s *memStore) Create(_ context.Context, o *Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.orders {
		if existing.BuyerChannelID == o.BuyerChannelID && existing.Status.InProgress() {
			return ErrOrderInProgress
		}
	}
	cp := *o
	s.orders[o.ID] = &cp
	return nil
}

func (s *memStore) LatestInProgressByBuyer(_ context.Context, buyer int64) (*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *Order
	for _, o := range s.orders {
		if o.BuyerChannelID != buyer || !o.Status.InProgress() {
			continue
		}
		if latest == nil || o.CreatedAt.After(latest.CreatedAt) {
			latest = o
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (s *memStore) LatestByBuyer(_ context.Context, buyer int64) (*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *Order
	for _, o := range s.orders {
		if o.BuyerChannelID != buyer {
			continue
		}
		if latest == nil || o.CreatedAt.After(latest.CreatedAt) {
			latest = o
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (s *memStore) ByID(_ context.Context, id string) (*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (s *memStore) ListPending(_ context.Context, limit int) ([]Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Order
	for _, o := range s.orders {
		if o.Status == StatusPendingReview {
			out = append(out, *o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memStore) Transition(_ context.Context, id string, from, to Status, patch Patch) (*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transitionLocked(id, from, to, patch)
}

func (s *memStore) transitionLocked(id string, from, to Status, patch Patch) (*Order, error) {
	o, ok := s.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	if o.Status != from {
		return nil, ErrOrderAlreadyProcessed
	}
	o.Status = to
	if patch.SubscriberKey != nil {
		o.SubscriberKey = *patch.SubscriberKey
	}
	if patch.ClaimedAmount != nil {
		o.ClaimedAmount.Valid = true
		o.ClaimedAmount.Int64 = *patch.ClaimedAmount
	}
	if patch.AmountAccepted != nil {
		o.AmountAccepted = *patch.AmountAccepted
	}
	if patch.PaymentProofRef != nil {
		o.PaymentProofRef = *patch.PaymentProofRef
	}
	o.UpdatedAt = time.Now()
	cp := *o
	return &cp, nil
}

// InTx emulates transactional behaviour: state is snapshotted before the
// function runs and restored when it returns an error.
func (s *memStore) InTx(_ context.Context, fn func(EngineTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapOrders := make(map[string]*Order, len(s.orders))
	for k, v := range s.orders {
		cp := *v
		snapOrders[k] = &cp
	}
	snapSubs := make(map[string]*Subscriber, len(s.subscribers))
	for k, v := range s.subscribers {
		cp := *v
		snapSubs[k] = &cp
	}
	snapNotes := append([]Notification(nil), s.notes...)

	if err := fn(&memTx{store: s}); err != nil {
		s.orders = snapOrders
		s.subscribers = snapSubs
		s.notes = snapNotes
		return err
	}
	return nil
}

type memTx struct {
	store *memStore
}

func (t *memTx) OrderForUpdate(_ context.Context, id string) (*Order, error) {
	o, ok := t.store.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (t *memTx) SubscriberByKey(_ context.Context, key string) (*Subscriber, error) {
	sub, ok := t.store.subscribers[key]
	if !ok {
		return nil, ErrSubscriberNotFound
	}
	cp := *sub
	return &cp, nil
}

func (t *memTx) SaveEntitlement(_ context.Context, key string, premiumUntil time.Time, note Notification) error {
	if t.store.failEntitlement {
		return errDBDown
	}
	sub, ok := t.store.subscribers[key]
	if !ok {
		return ErrSubscriberNotFound
	}
	sub.IsPremium = true
	sub.PremiumUntil.Valid = true
	sub.PremiumUntil.Time = premiumUntil
	sub.UpdatedAt = time.Now()
	t.store.notes = append(t.store.notes, note)
	return nil
}

func (t *memTx) FinishOrder(_ context.Context, id string, from, to Status) (*Order, error) {
	return t.store.transitionLocked(id, from, to, Patch{})
}
