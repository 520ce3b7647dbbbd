package order

import (
	"context"
	"time"

	"log/slog"

	"github.com/mangadesu/premiumbot/core/logger"
)

// Actor identifies who is making an admin decision. Chat ingress fills
// ChannelID from the verified sender; the HTTP ingress fills Credential
// from an out-of-band header instead.
type Actor struct {
	ChannelID  int64
	Credential string
	Label      string
}

// Gateway is the single decision path both admin surfaces go through.
// Whichever ingress wins a race, the engine's status gate ensures exactly
// one of them takes effect.
type Gateway struct {
	engine      *Engine
	adminIDs    map[int64]struct{}
	credentials map[string]struct{}
}

// NewGateway builds a Gateway with the configured allow-lists.
func NewGateway(engine *Engine, adminIDs []int64, credentials []string) *Gateway {
	g := &Gateway{
		engine:      engine,
		adminIDs:    make(map[int64]struct{}, len(adminIDs)),
		credentials: make(map[string]struct{}, len(credentials)),
	}
	for _, id := range adminIDs {
		if id != 0 {
			g.adminIDs[id] = struct{}{}
		}
	}
	for _, cred := range credentials {
		if cred != "" {
			g.credentials[cred] = struct{}{}
		}
	}
	return g
}

// Authorize checks the actor against the allow-lists.
func (g *Gateway) Authorize(actor Actor) error {
	if actor.ChannelID != 0 {
		if _, ok := g.adminIDs[actor.ChannelID]; ok {
			return nil
		}
	}
	if actor.Credential != "" {
		if _, ok := g.credentials[actor.Credential]; ok {
			return nil
		}
	}
	return ErrUnauthorized
}

// Confirm activates the order on behalf of the actor.
func (g *Gateway) Confirm(ctx context.Context, orderID string, actor Actor) (*Activation, error) {
	if err := g.Authorize(actor); err != nil {
		logger.ACT.WarnContext(ctx, "decision.denied",
			slog.String("order_id", orderID),
			slog.Int64("actor", actor.ChannelID),
		)
		return nil, err
	}
	logger.ACT.InfoContext(ctx, "decision.confirm",
		slog.String("order_id", orderID),
		slog.String("actor", actor.Label),
	)
	return g.engine.Activate(ctx, orderID)
}

// Reject rejects the order on behalf of the actor.
func (g *Gateway) Reject(ctx context.Context, orderID string, actor Actor) (*Order, error) {
	if err := g.Authorize(actor); err != nil {
		logger.ACT.WarnContext(ctx, "decision.denied",
			slog.String("order_id", orderID),
			slog.Int64("actor", actor.ChannelID),
		)
		return nil, err
	}
	logger.ACT.InfoContext(ctx, "decision.reject",
		slog.String("order_id", orderID),
		slog.String("actor", actor.Label),
	)
	return g.engine.Reject(ctx, orderID)
}

// Grant applies premium days directly to a subscriber on behalf of the
// actor, without an order.
func (g *Gateway) Grant(ctx context.Context, subscriberKey string, days int, actor Actor) (time.Time, error) {
	if err := g.Authorize(actor); err != nil {
		logger.ACT.WarnContext(ctx, "decision.denied",
			slog.String("subscriber", subscriberKey),
			slog.Int64("actor", actor.ChannelID),
		)
		return time.Time{}, err
	}
	return g.engine.Grant(ctx, subscriberKey, days)
}
