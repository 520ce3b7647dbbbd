package bot

import (
	"context"

	"log/slog"

	tele "gopkg.in/telebot.v4"

	"github.com/mangadesu/premiumbot/core/logger"
	tghelpers "github.com/mangadesu/premiumbot/core/telegram/helpers"
	"github.com/mangadesu/premiumbot/core/telegram/keyboard"
	"github.com/mangadesu/premiumbot/internal/order"
)

// InProgress reports whether the sender has an active purchase session.
// Implements the message router's Session interface.
func (b *Bot) InProgress(c tele.Context) bool {
	s := c.Sender()
	if s == nil {
		return false
	}
	ctx := tghelpers.BuildContext(c)
	o, err := b.orders.LatestInProgressByBuyer(ctx, s.ID)
	if err != nil {
		logger.BOT.ErrorContext(ctx, "session.lookup_failed", slog.String("err", err.Error()))
		return false
	}
	return o != nil
}

// Handle feeds the buyer's message into the state machine and renders the
// resulting reply.
func (b *Bot) Handle(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)

	ev := order.Event{Buyer: buyerFrom(c), Text: c.Text()}
	if msg := c.Message(); msg != nil && msg.Photo != nil {
		ev.ProofRef = msg.Photo.FileID
	}

	out, err := b.machine.Advance(ctx, ev)
	if err != nil {
		logger.BOT.ErrorContext(ctx, "flow.advance_failed", slog.String("err", err.Error()))
		return tghelpers.SendText(c, fallbackText())
	}
	return b.render(ctx, c, out)
}

func (b *Bot) render(ctx context.Context, c tele.Context, out *order.Outcome) error {
	switch out.Reply {
	case order.ReplyMenu:
		return b.handleIdleText(c)

	case order.ReplySessionExpired:
		return tghelpers.SendMD(c, sessionExpiredText(b.timeout))

	case order.ReplyInvalidSubscriberID:
		return tghelpers.SendMD(c, invalidSubscriberIDText())

	case order.ReplyPaymentInstructions:
		if err := tghelpers.SendMD(c, subscriberSavedText(out.Order)); err != nil {
			return err
		}
		return b.sendQRIS(c, out.Order)

	case order.ReplyRepromptProof:
		return tghelpers.SendMD(c, repromptProofText())

	case order.ReplyCancelled:
		return tghelpers.SendMD(c, cancelledText())

	case order.ReplyAskAmount:
		return tghelpers.SendMD(c, askAmountText(out.Order))

	case order.ReplyInvalidAmount:
		return tghelpers.SendMD(c, invalidAmountText(out.Order))

	case order.ReplyAmountRejected:
		if out.NotifyAdminRejected && b.notifier != nil {
			b.notifier.SendAdmins(ctx, amountRejectedAdminText(out.Order), nil)
		}
		return tghelpers.SendMD(c, amountRejectedText(out.Order))

	case order.ReplyPendingReview:
		if out.NotifyAdminReview {
			b.notifyAdminReview(ctx, out.Order)
		}
		return tghelpers.SendMD(c, pendingReviewText())

	case order.ReplyAwaitingAdmin:
		return tghelpers.SendMD(c, awaitingAdminText())
	}
	return nil
}

// sendQRIS sends the payment QR with the amount caption. A cached
// Telegram file id is preferred; the public URL is the fallback.
func (b *Bot) sendQRIS(c tele.Context, o *order.Order) error {
	ref := b.cfg.Payment.QRISFileID
	if ref == "" {
		ref = b.cfg.Payment.QRISURL
	}
	if ref == "" {
		return nil
	}
	photo := &tele.Photo{File: tele.File{FileID: ref}, Caption: qrisCaption(o)}
	if b.cfg.Payment.QRISFileID == "" {
		photo.File = tele.FromURL(ref)
		photo.Caption = qrisCaption(o)
	}
	return tghelpers.SendPhotoMD(c, photo)
}

// notifyAdminReview forwards the proof photo and the order summary with
// the confirm/reject buttons to every admin.
func (b *Bot) notifyAdminReview(ctx context.Context, o *order.Order) {
	if b.notifier == nil {
		logger.BOT.WarnContext(ctx, "review.no_notifier", slog.String("order_id", o.ID))
		return
	}
	if o.PaymentProofRef != "" {
		b.notifier.SendAdminsPhoto(ctx, o.PaymentProofRef, adminProofCaption(o.ID))
	}
	markup := keyboard.InlineButtonsRows([]keyboard.InlineBtn{
		{Text: "✅ Konfirmasi & Aktifkan", Unique: "order_confirm", Data: o.ID},
		{Text: "❌ Tolak", Unique: "order_reject", Data: o.ID},
	})
	b.notifier.SendAdmins(ctx, adminReviewText(o), markup)
}
