// Package adminapi is the HTTP ingress of the admin decision gateway,
// used by the companion admin application.
package adminapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"log/slog"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	coreconfig "github.com/mangadesu/premiumbot/core/config"
	"github.com/mangadesu/premiumbot/core/logger"
	"github.com/mangadesu/premiumbot/internal/notify"
	"github.com/mangadesu/premiumbot/internal/order"
)

// adminKeyHeader carries the shared credential; the HTTP surface has no
// chat identity to verify, so the key is supplied out-of-band.
const adminKeyHeader = "X-Admin-Key"

// Server hosts the admin endpoints.
type Server struct {
	cfg      *coreconfig.Config
	gateway  *order.Gateway
	orders   order.Store
	notifier *notify.Notifier
	echo     *echo.Echo
}

// New builds the server and its routes.
func New(cfg *coreconfig.Config, gateway *order.Gateway, orders order.Store) *Server {
	s := &Server{cfg: cfg, gateway: gateway, orders: orders}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	e.Use(requestLogger)

	api := e.Group("/api/admin", s.requireAdminKey)
	api.GET("/orders", s.listOrders)
	api.POST("/orders/:id/confirm", s.confirmOrder)
	api.DELETE("/orders/:id", s.rejectOrder)
	api.POST("/subscribers/:key/premium", s.grantPremium)

	s.echo = e
	return s
}

// SetNotifier attaches the Telegram notifier so app-side decisions still
// message the buyer.
func (s *Server) SetNotifier(n *notify.Notifier) {
	s.notifier = n
}

// Run serves until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.AdminAPI.Listen, s.cfg.AdminAPI.Port)

	errCh := make(chan error, 1)
	go func() {
		logger.API.Info("admin api listening", slog.String("addr", addr))
		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.echo.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("admin api shutdown: %w", err)
		}
		return <-errCh
	case err := <-errCh:
		return err
	}
}

// requireAdminKey authenticates every request against the credential
// allow-list before any handler runs.
func (s *Server) requireAdminKey(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		actor := order.Actor{
			Credential: c.Request().Header.Get(adminKeyHeader),
			Label:      "admin-app",
		}
		if err := s.gateway.Authorize(actor); err != nil {
			return c.JSON(http.StatusForbidden, errorResponse{Error: "admin key mismatch"})
		}
		c.Set("actor", actor)
		return next(c)
	}
}

func actorOf(c echo.Context) order.Actor {
	if a, ok := c.Get("actor").(order.Actor); ok {
		return a
	}
	return order.Actor{}
}

func requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		status := c.Response().Status
		if err != nil {
			var he *echo.HTTPError
			if errors.As(err, &he) {
				status = he.Code
			}
		}
		logger.API.Info("request",
			slog.String("method", c.Request().Method),
			slog.String("path", c.Request().URL.Path),
			slog.Int("status", status),
			slog.Duration("duration", logger.RoundMS(time.Since(start))),
		)
		return err
	}
}
