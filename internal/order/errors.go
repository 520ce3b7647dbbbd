package order

import "errors"

var (
	// ErrOrderInProgress means the buyer already has a non-terminal order.
	ErrOrderInProgress = errors.New("order already in progress")
	// ErrOrderNotFound means no order exists for the given id.
	ErrOrderNotFound = errors.New("order not found")
	// ErrOrderAlreadyProcessed is the idempotence gate: the order left
	// pending_review before this decision arrived.
	ErrOrderAlreadyProcessed = errors.New("order already processed")
	// ErrSubscriberUnresolved means the order has no subscriber key.
	ErrSubscriberUnresolved = errors.New("subscriber key missing on order")
	// ErrSubscriberNotFound means the subscriber key matches no account.
	ErrSubscriberNotFound = errors.New("subscriber not found")
	// ErrUnauthorized means the actor is not on the admin allow-list.
	ErrUnauthorized = errors.New("actor is not an admin")
)
