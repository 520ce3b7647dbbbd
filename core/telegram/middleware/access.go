package middleware

import tele "gopkg.in/telebot.v4"

// AdminOptions defines how admin-only checks should behave.
type AdminOptions struct {
	AdminIDs map[int64]struct{}
	OnReject tele.HandlerFunc
}

// Allowed reports whether the sender of the update is on the admin list.
func (o AdminOptions) Allowed(c tele.Context) bool {
	sender := c.Sender()
	if sender == nil {
		return false
	}
	_, ok := o.AdminIDs[sender.ID]
	return ok
}

// AdminOnlyMiddleware ensures that only listed admin users can invoke downstream handlers.
func AdminOnlyMiddleware(opts AdminOptions) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			if len(opts.AdminIDs) > 0 && !opts.Allowed(c) {
				if opts.OnReject != nil {
					return opts.OnReject(c)
				}
				return nil
			}
			return next(c)
		}
	}
}

// AdminSet builds the lookup set used by AdminOptions from a config slice.
func AdminSet(ids []int64) map[int64]struct{} {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if id != 0 {
			set[id] = struct{}{}
		}
	}
	return set
}
