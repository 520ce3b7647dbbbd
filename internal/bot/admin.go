package bot

import (
	"errors"
	"strings"

	"log/slog"

	tele "gopkg.in/telebot.v4"

	"github.com/mangadesu/premiumbot/core/logger"
	"github.com/mangadesu/premiumbot/core/telegram/callbacks"
	tghelpers "github.com/mangadesu/premiumbot/core/telegram/helpers"
	"github.com/mangadesu/premiumbot/internal/order"
)

// handleAdminConfirm activates the order behind the inline button. The
// gateway verifies the sender, so a forwarded button in a non-admin chat
// does nothing.
func (b *Bot) handleAdminConfirm(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	orderID := callbacks.CallbackPayload(c)

	act, err := b.gateway.Confirm(ctx, orderID, actorFrom(c))
	if err != nil {
		return c.Respond(&tele.CallbackResponse{Text: decisionErrorText(err)})
	}

	if editErr := tghelpers.EditMD(c, adminConfirmedText(act.Order, act.NewExpiry)); editErr != nil {
		logger.BOT.WarnContext(ctx, "confirm.edit_failed",
			slog.String("order_id", orderID),
			slog.String("err", editErr.Error()),
		)
	}
	if b.notifier != nil {
		b.notifier.SendUser(ctx, act.Order.BuyerChannelID, PremiumActiveText(act.Order, act.NewExpiry))
	}
	return c.Respond(&tele.CallbackResponse{Text: "✅ Premium berhasil diaktifkan!"})
}

// handleAdminReject rejects the order behind the inline button.
func (b *Bot) handleAdminReject(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	orderID := callbacks.CallbackPayload(c)

	rejected, err := b.gateway.Reject(ctx, orderID, actorFrom(c))
	if err != nil {
		return c.Respond(&tele.CallbackResponse{Text: decisionErrorText(err)})
	}

	if editErr := tghelpers.EditMD(c, adminRejectedText(rejected)); editErr != nil {
		logger.BOT.WarnContext(ctx, "reject.edit_failed",
			slog.String("order_id", orderID),
			slog.String("err", editErr.Error()),
		)
	}
	if b.notifier != nil {
		b.notifier.SendUser(ctx, rejected.BuyerChannelID, PaymentRejectedText())
	}
	return c.Respond(&tele.CallbackResponse{Text: "Order ditolak."})
}

// handlePending lists orders waiting for a decision. Admin only.
func (b *Bot) handlePending(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	pending, err := b.orders.ListPending(ctx, 20)
	if err != nil {
		logger.BOT.ErrorContext(ctx, "pending.list_failed", slog.String("err", err.Error()))
		return tghelpers.SendText(c, "Gagal memuat daftar pesanan.")
	}

	var sb strings.Builder
	sb.WriteString(pendingListHeader(len(pending)))
	for i := range pending {
		sb.WriteString("\n\n")
		sb.WriteString(pendingListEntry(i+1, &pending[i]))
	}
	return tghelpers.SendMD(c, sb.String())
}

func actorFrom(c tele.Context) order.Actor {
	s := c.Sender()
	if s == nil {
		return order.Actor{}
	}
	label := s.Username
	if label == "" {
		label = s.FirstName
	}
	return order.Actor{ChannelID: s.ID, Label: label}
}

func decisionErrorText(err error) string {
	switch {
	case errors.Is(err, order.ErrUnauthorized):
		return "⛔ Hanya admin yang bisa konfirmasi."
	case errors.Is(err, order.ErrOrderNotFound), errors.Is(err, order.ErrOrderAlreadyProcessed):
		return "Order tidak ditemukan atau sudah diproses."
	case errors.Is(err, order.ErrSubscriberNotFound):
		return "❌ Akun dengan Google ID itu tidak ditemukan."
	case errors.Is(err, order.ErrSubscriberUnresolved):
		return "❌ Google ID kosong pada order ini."
	}
	return "❌ Gagal memproses order."
}
