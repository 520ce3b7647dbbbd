package router

import (
	"time"

	tele "gopkg.in/telebot.v4"

	tg "github.com/mangadesu/premiumbot/core/telegram"
	"github.com/mangadesu/premiumbot/core/telegram/middleware"
)

// Session routes updates belonging to a conversation that is already in
// progress for the sender. State is resolved by the implementation, not
// held by the router.
type Session interface {
	InProgress(c tele.Context) bool
	Handle(c tele.Context) error
}

// TextOptions controls fallback behaviour for text and photo updates.
// AdminIDs must match the set given to CommandRoutes: bare-word command
// lookup dispatches the same handlers, so it enforces the same gate.
type TextOptions struct {
	UnknownText   tele.HandlerFunc
	UnknownPhoto  tele.HandlerFunc
	AdminIDs      []int64
	OnAdminReject tele.HandlerFunc
}

// TextRoutes builds handlers for text and photo routing. Session dispatch
// takes priority over command lookup so mid-flow input is never mistaken
// for a command trigger, except for registered commands which always win.
func TextRoutes(session Session, reg *tg.Registry, opts TextOptions) []tg.Route {
	adminOpts := middleware.AdminOptions{
		AdminIDs: middleware.AdminSet(opts.AdminIDs),
		OnReject: opts.OnAdminReject,
	}

	handler := func(c tele.Context) error {
		start := time.Now()
		text := c.Text()

		if reg != nil {
			if key, cmd, ok := reg.LookupCommand(text); ok && cmd.Handler != nil {
				name := normalizeHandlerName(key)
				if cmd.AdminOnly && !adminOpts.Allowed(c) {
					return handleWithSummary(c, name, start, "deny", "denied", func() error {
						if adminOpts.OnReject != nil {
							return adminOpts.OnReject(c)
						}
						return nil
					})
				}
				return handleWithSummary(c, name, start, "", "", func() error {
					return cmd.Handler(c)
				})
			}
		}

		if session != nil && session.InProgress(c) {
			return handleWithSummary(c, "session", start, "", "", func() error {
				return session.Handle(c)
			})
		}

		if reg != nil {
			if fb := reg.TextFallback(); fb != nil {
				return handleWithSummary(c, "fallback", start, "", "", func() error {
					return fb(c)
				})
			}
		}

		if opts.UnknownText != nil {
			return handleWithSummary(c, "unknown_text", start, "", "", func() error {
				return opts.UnknownText(c)
			})
		}

		logHandlerSummary(c, "unknown_text", start, "skip", "ok", nil)
		return nil
	}

	photoHandler := func(c tele.Context) error {
		start := time.Now()
		if session != nil && session.InProgress(c) {
			return handleWithSummary(c, "session_photo", start, "", "", func() error {
				return session.Handle(c)
			})
		}
		if opts.UnknownPhoto != nil {
			return handleWithSummary(c, "unexpected_photo", start, "", "", func() error {
				return opts.UnknownPhoto(c)
			})
		}
		logHandlerSummary(c, "unexpected_photo", start, "skip", "ok", nil)
		return nil
	}

	return []tg.Route{
		{
			Endpoint: tele.OnText,
			Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(handler)),
		},
		{
			Endpoint: tele.OnPhoto,
			Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(photoHandler)),
		},
	}
}
