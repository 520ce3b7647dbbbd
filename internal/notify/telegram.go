// Package notify delivers outbound order notices to buyers and admins.
// Every send is fire-and-forget: failures are logged, never propagated
// to the state transition that produced them.
package notify

import (
	"context"

	"log/slog"

	tele "gopkg.in/telebot.v4"

	"github.com/mangadesu/premiumbot/core/logger"
	"github.com/mangadesu/premiumbot/core/telegram/sender"
)

// Notifier sends Telegram messages through the async dispatcher.
type Notifier struct {
	bot      *tele.Bot
	disp     *sender.Dispatcher
	adminIDs []int64
}

// New builds a Notifier. The dispatcher may be nil, in which case sends
// run inline.
func New(bot *tele.Bot, disp *sender.Dispatcher, adminIDs []int64) *Notifier {
	return &Notifier{bot: bot, disp: disp, adminIDs: adminIDs}
}

// SendUser sends a Markdown message to one chat.
func (n *Notifier) SendUser(ctx context.Context, chatID int64, text string) {
	n.dispatch(ctx, "notify.user", chatID, func() error {
		_, err := n.bot.Send(tele.ChatID(chatID), text, &tele.SendOptions{ParseMode: tele.ModeMarkdown})
		return err
	})
}

// SendUserMarkup sends a Markdown message with an inline keyboard.
func (n *Notifier) SendUserMarkup(ctx context.Context, chatID int64, text string, markup *tele.ReplyMarkup) {
	n.dispatch(ctx, "notify.user", chatID, func() error {
		_, err := n.bot.Send(tele.ChatID(chatID), text,
			&tele.SendOptions{ParseMode: tele.ModeMarkdown, ReplyMarkup: markup})
		return err
	})
}

// SendAdmins broadcasts a Markdown message to every configured admin.
func (n *Notifier) SendAdmins(ctx context.Context, text string, markup *tele.ReplyMarkup) {
	if len(n.adminIDs) == 0 {
		logger.NOTIF.WarnContext(ctx, "notify.admins.skipped",
			slog.String("reason", "no_admin_ids"),
		)
		return
	}
	for _, id := range n.adminIDs {
		n.SendUserMarkup(ctx, id, text, markup)
	}
}

// SendAdminsPhoto broadcasts a photo (by file id or URL) to every admin.
func (n *Notifier) SendAdminsPhoto(ctx context.Context, fileID, caption string) {
	for _, id := range n.adminIDs {
		chatID := id
		n.dispatch(ctx, "notify.admin_photo", chatID, func() error {
			photo := &tele.Photo{File: tele.File{FileID: fileID}, Caption: caption}
			_, err := n.bot.Send(tele.ChatID(chatID), photo,
				&tele.SendOptions{ParseMode: tele.ModeMarkdown})
			return err
		})
	}
}

func (n *Notifier) dispatch(ctx context.Context, action string, chatID int64, run func() error) {
	if n.bot == nil {
		return
	}
	if n.disp == nil {
		n.runLogged(ctx, action, chatID, run)
		return
	}
	if err := n.disp.Enqueue(ctx, action, "sendMessage", run); err != nil {
		logger.NOTIF.WarnContext(ctx, "notify.queue_fallback",
			slog.String("action", action),
			slog.Int64("chat", chatID),
			slog.String("err", err.Error()),
		)
		n.runLogged(ctx, action, chatID, run)
	}
}

func (n *Notifier) runLogged(ctx context.Context, action string, chatID int64, run func() error) {
	if err := run(); err != nil {
		logger.NOTIF.ErrorContext(ctx, "notify.send_failed",
			slog.String("action", action),
			slog.Int64("chat", chatID),
			slog.String("err", err.Error()),
		)
	}
}
