// Package bot binds the order state machine to Telegram: commands,
// package-selection callbacks and the admin decision buttons.
package bot

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"log/slog"

	tele "gopkg.in/telebot.v4"

	coreconfig "github.com/mangadesu/premiumbot/core/config"
	"github.com/mangadesu/premiumbot/core/logger"
	tg "github.com/mangadesu/premiumbot/core/telegram"
	"github.com/mangadesu/premiumbot/core/telegram/callbacks"
	"github.com/mangadesu/premiumbot/core/telegram/commands"
	tghelpers "github.com/mangadesu/premiumbot/core/telegram/helpers"
	"github.com/mangadesu/premiumbot/core/telegram/keyboard"
	"github.com/mangadesu/premiumbot/internal/catalog"
	"github.com/mangadesu/premiumbot/internal/notify"
	"github.com/mangadesu/premiumbot/internal/order"
)

// Bot holds the pieces a handler needs. The notifier arrives late, once
// the Telegram connection exists.
type Bot struct {
	cfg      *coreconfig.Config
	machine  *order.Machine
	gateway  *order.Gateway
	orders   order.Store
	catalog  *catalog.Catalog
	notifier *notify.Notifier
	timeout  time.Duration
}

// New wires the bot layer.
func New(cfg *coreconfig.Config, machine *order.Machine, gateway *order.Gateway, orders order.Store, cat *catalog.Catalog) *Bot {
	return &Bot{
		cfg:     cfg,
		machine: machine,
		gateway: gateway,
		orders:  orders,
		catalog: cat,
		timeout: time.Duration(cfg.Orders.SessionTimeoutMinutes) * time.Minute,
	}
}

// SetNotifier attaches the outbound notifier once the bot is connected.
func (b *Bot) SetNotifier(n *notify.Notifier) {
	b.notifier = n
}

// Register fills the registry with every command and callback.
func (b *Bot) Register(reg *tg.Registry) {
	reg.RegisterCommand("/start", commands.Command{
		Handler:     b.handleMenu,
		Description: "Mulai dan lihat paket Premium",
	})
	reg.RegisterCommand("/beli", commands.Command{
		Handler:     b.handleMenu,
		Description: "Beli paket Premium",
	})
	reg.RegisterCommand("/status", commands.Command{
		Handler:     b.handleStatus,
		Description: "Cek status pesanan terakhir",
	})
	reg.RegisterCommand("/pesanan", commands.Command{
		Handler:     b.handlePending,
		Description: "Daftar pesanan menunggu konfirmasi",
		AdminOnly:   true,
		Hidden:      true,
	})

	_ = reg.RegisterCallback("paket", b.handleSelect)
	_ = reg.RegisterCallback("order_confirm", b.handleAdminConfirm)
	_ = reg.RegisterCallback("order_reject", b.handleAdminReject)

	reg.SetTextFallback(b.handleIdleText)
	reg.SetCallbackNotFound(func(c tele.Context) error {
		return c.Respond(&tele.CallbackResponse{Text: "Aksi tidak dikenal"})
	})
}

func (b *Bot) handleMenu(c tele.Context) error {
	name := ""
	if s := c.Sender(); s != nil {
		name = s.FirstName
	}
	return tghelpers.SendMD(c, menuText(name), b.menuMarkup())
}

func (b *Bot) menuMarkup() *tele.ReplyMarkup {
	pkgs := b.catalog.All()
	rows := make([][]keyboard.InlineBtn, 0, len(pkgs))
	for _, p := range pkgs {
		rows = append(rows, []keyboard.InlineBtn{{
			Text:   fmt.Sprintf("📦 %s — %s", p.Name, p.PriceLabel),
			Unique: "paket",
			Data:   p.ID,
		}})
	}
	return keyboard.InlineButtonsRows(rows...)
}

func (b *Bot) handleStatus(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	o, err := b.machine.Latest(ctx, c.Sender().ID)
	if err != nil {
		logger.BOT.ErrorContext(ctx, "status.lookup_failed", slog.String("err", err.Error()))
		return tghelpers.SendText(c, fallbackText())
	}
	if o == nil {
		return tghelpers.SendMD(c, noOrderText())
	}
	return tghelpers.SendMD(c, statusText(o))
}

// handleIdleText serves buyers with no session: greeting words open the
// menu, anything else gets the usage hint.
func (b *Bot) handleIdleText(c tele.Context) error {
	text := strings.ToLower(strings.TrimSpace(c.Text()))
	for _, trigger := range []string{"halo", "hai", "premium", "beli", "mulai"} {
		if text == trigger || strings.HasPrefix(text, trigger+" ") {
			return b.handleMenu(c)
		}
	}
	return tghelpers.SendText(c, fallbackText())
}

// handleSelect creates the order for a chosen package and asks for the
// subscriber's account id by editing the menu message in place.
func (b *Bot) handleSelect(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	packageID := callbacks.CallbackPayload(c)

	_ = c.Respond()

	out, err := b.machine.Select(ctx, buyerFrom(c), packageID)
	if err != nil {
		if errors.Is(err, catalog.ErrUnknownPackage) {
			return tghelpers.SendText(c, fallbackText())
		}
		logger.BOT.ErrorContext(ctx, "select.failed",
			slog.String("package", packageID),
			slog.String("err", err.Error()),
		)
		return tghelpers.SendText(c, fallbackText())
	}

	if out.Reply == order.ReplyOrderInProgress {
		return tghelpers.SendMD(c, orderInProgressText())
	}

	pkg, _ := b.catalog.Get(packageID)
	return tghelpers.EditOrSendMD(c, askSubscriberIDText(pkg))
}

func buyerFrom(c tele.Context) order.Buyer {
	s := c.Sender()
	if s == nil {
		return order.Buyer{}
	}
	return order.Buyer{
		ChannelID:   s.ID,
		Username:    s.Username,
		DisplayName: s.FirstName,
	}
}
