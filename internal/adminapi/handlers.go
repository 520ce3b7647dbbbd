package adminapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mangadesu/premiumbot/internal/bot"
	"github.com/mangadesu/premiumbot/internal/order"
)

type errorResponse struct {
	Error string `json:"error"`
}

type orderView struct {
	OrderID        string `json:"order_id"`
	Buyer          string `json:"buyer"`
	BuyerChannelID int64  `json:"buyer_channel_id"`
	SubscriberKey  string `json:"subscriber_key"`
	PackageID      string `json:"package_id"`
	PackageName    string `json:"package_name"`
	PackagePrice   int64  `json:"package_price"`
	PackageDays    int    `json:"package_days"`
	ClaimedAmount  int64  `json:"claimed_amount"`
	AmountAccepted bool   `json:"amount_accepted"`
	Status         string `json:"status"`
	CreatedAt      int64  `json:"created_at"`
}

func viewOf(o *order.Order) orderView {
	return orderView{
		OrderID:        o.ID,
		Buyer:          o.BuyerLabel(),
		BuyerChannelID: o.BuyerChannelID,
		SubscriberKey:  o.SubscriberKey,
		PackageID:      o.PackageID,
		PackageName:    o.PackageName,
		PackagePrice:   o.PackagePrice,
		PackageDays:    o.PackageDays,
		ClaimedAmount:  o.ClaimedAmount.Int64,
		AmountAccepted: o.AmountAccepted,
		Status:         string(o.Status),
		CreatedAt:      o.CreatedAt.UnixMilli(),
	}
}

// listOrders returns orders awaiting a decision, newest first.
func (s *Server) listOrders(c echo.Context) error {
	pending, err := s.orders.ListPending(c.Request().Context(), 100)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to list orders"})
	}
	views := make([]orderView, 0, len(pending))
	for i := range pending {
		views = append(views, viewOf(&pending[i]))
	}
	return c.JSON(http.StatusOK, map[string]any{"orders": views})
}

// confirmOrder activates the order and tells the buyer over Telegram.
func (s *Server) confirmOrder(c echo.Context) error {
	ctx := c.Request().Context()
	act, err := s.gateway.Confirm(ctx, c.Param("id"), actorOf(c))
	if err != nil {
		return decisionError(c, err)
	}

	if s.notifier != nil {
		s.notifier.SendUser(ctx, act.Order.BuyerChannelID, bot.PremiumActiveText(act.Order, act.NewExpiry))
	}

	return c.JSON(http.StatusOK, map[string]any{
		"order":  viewOf(act.Order),
		"expiry": act.NewExpiry.Format(time.RFC3339),
	})
}

// rejectOrder rejects the order and tells the buyer over Telegram.
func (s *Server) rejectOrder(c echo.Context) error {
	ctx := c.Request().Context()
	rejected, err := s.gateway.Reject(ctx, c.Param("id"), actorOf(c))
	if err != nil {
		return decisionError(c, err)
	}

	if s.notifier != nil {
		s.notifier.SendUser(ctx, rejected.BuyerChannelID, bot.PaymentRejectedText())
	}

	return c.JSON(http.StatusOK, map[string]any{"order": viewOf(rejected)})
}

type grantRequest struct {
	Days int `json:"days"`
}

// grantPremium applies premium days to a subscriber without an order.
func (s *Server) grantPremium(c echo.Context) error {
	var req grantRequest
	if err := c.Bind(&req); err != nil || req.Days <= 0 {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "days must be a positive integer"})
	}

	expiry, err := s.gateway.Grant(c.Request().Context(), c.Param("key"), req.Days, actorOf(c))
	if err != nil {
		return decisionError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"subscriber_key": c.Param("key"),
		"premium_until":  expiry.Format(time.RFC3339),
	})
}

func decisionError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, order.ErrUnauthorized):
		return c.JSON(http.StatusForbidden, errorResponse{Error: "admin key mismatch"})
	case errors.Is(err, order.ErrOrderNotFound):
		return c.JSON(http.StatusNotFound, errorResponse{Error: "order not found"})
	case errors.Is(err, order.ErrOrderAlreadyProcessed):
		return c.JSON(http.StatusConflict, errorResponse{Error: "order already processed"})
	case errors.Is(err, order.ErrSubscriberNotFound):
		return c.JSON(http.StatusNotFound, errorResponse{Error: "subscriber not found"})
	case errors.Is(err, order.ErrSubscriberUnresolved):
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "order has no subscriber key"})
	}
	return c.JSON(http.StatusInternalServerError, errorResponse{Error: "activation failed"})
}
