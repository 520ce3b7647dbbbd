package bot

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mangadesu/premiumbot/internal/catalog"
	"github.com/mangadesu/premiumbot/internal/order"
)

// User-facing copy. Indonesian, Markdown, matching the tone the service
// has always used in chat.

func menuText(firstName string) string {
	if firstName == "" {
		firstName = "kamu"
	}
	return fmt.Sprintf(
		"👋 Halo *%s*! Selamat datang di *Doujin Desu Premium*\n\nPilih paket berlangganan:",
		firstName,
	)
}

func askSubscriberIDText(pkg catalog.Package) string {
	return fmt.Sprintf(
		"📦 *%s* — *%s*\n\n"+
			"Untuk melanjutkan, kirimkan *Google ID* akun kamu.\n\n"+
			"📌 Cara cek: *Buka app → Profil → salin ID di bawah email*",
		pkg.Name, pkg.PriceLabel,
	)
}

func invalidSubscriberIDText() string {
	return "⚠️ Google ID tidak valid. Salin tepat dari aplikasi.\n\n" +
		"Cara cek: *Buka app → Profil → salin ID di bawah email*"
}

func subscriberSavedText(o *order.Order) string {
	return fmt.Sprintf(
		"✅ Google ID tersimpan!\n\n"+
			"📦 *%s* — *Rp %s*\n\n"+
			"Silakan bayar via *QRIS* di bawah ini, lalu kirim *foto bukti transfer* ke sini.",
		o.PackageName, formatRupiah(o.PackagePrice),
	)
}

func qrisCaption(o *order.Order) string {
	return fmt.Sprintf(
		"📲 *Scan QR ini untuk membayar via QRIS*\n"+
			"Nominal: *Rp %s*\n"+
			"_Mendukung semua e-wallet & mobile banking_",
		formatRupiah(o.PackagePrice),
	)
}

func repromptProofText() string {
	return "⏳ Kirim *foto/screenshot bukti transfer* setelah selesai membayar.\n\n" +
		"Ketik *batal* untuk membatalkan pesanan."
}

func cancelledText() string {
	return "❌ Pesanan dibatalkan. Ketik /beli untuk mulai lagi."
}

func askAmountText(o *order.Order) string {
	return fmt.Sprintf(
		"📋 *Verifikasi Nominal*\n\n"+
			"Harga paket: *Rp %s*\n\n"+
			"Ketik nominal yang kamu transfer (angka saja).\n"+
			"Contoh: `%d`",
		formatRupiah(o.PackagePrice), o.PackagePrice,
	)
}

func invalidAmountText(o *order.Order) string {
	return fmt.Sprintf("⚠️ Format tidak valid. Ketik angka saja, contoh: `%d`", o.PackagePrice)
}

// amountRejectedText always names both the claimed and required amounts.
func amountRejectedText(o *order.Order) string {
	return fmt.Sprintf(
		"❌ *Pembayaran Tidak Valid*\n\n"+
			"Nominal yang kamu masukkan: *Rp %s*\n"+
			"Harga paket: *Rp %s*\n\n"+
			"Nominal kurang dari harga paket. Pesanan dibatalkan otomatis.\n\n"+
			"Ketik /beli untuk mencoba lagi.",
		formatRupiah(o.ClaimedAmount.Int64), formatRupiah(o.PackagePrice),
	)
}

func amountRejectedAdminText(o *order.Order) string {
	return fmt.Sprintf(
		"⚠️ *Pembayaran Ditolak Otomatis*\n\n"+
			"👤 %s\n"+
			"📦 %s\n"+
			"💰 Nominal klaim: Rp %s (kurang dari Rp %s)",
		o.BuyerLabel(), o.PackageName,
		formatRupiah(o.ClaimedAmount.Int64), formatRupiah(o.PackagePrice),
	)
}

func pendingReviewText() string {
	return "✅ *Nominal Sesuai!*\n\n" +
		"Pesananmu sedang diverifikasi admin.\n" +
		"Premium aktif dalam *1–5 menit* ⚡\n\n" +
		"Terima kasih sudah berlangganan *Doujin Desu Premium* 🎉"
}

func awaitingAdminText() string {
	return "⏳ Pesananmu masih menunggu konfirmasi admin. Ketik /status untuk cek status."
}

func orderInProgressText() string {
	return "⚠️ Kamu masih punya pesanan yang belum selesai.\n\n" +
		"Lanjutkan pesanan sebelumnya atau tunggu konfirmasi admin."
}

func sessionExpiredText(timeout time.Duration) string {
	return fmt.Sprintf(
		"⏰ Sesi pembelian kamu sudah habis (%d menit).\n"+
			"Ketik /beli untuk mulai lagi.",
		int(timeout.Minutes()),
	)
}

func fallbackText() string {
	return "Ketik /beli untuk membeli Premium atau /status untuk cek status pesanan."
}

func noOrderText() string {
	return "Belum ada pesanan. Ketik /beli untuk mulai."
}

var statusLabels = map[order.Status]string{
	order.StatusAwaitingSubscriberID: "🔄 Menunggu Google ID",
	order.StatusAwaitingProof:        "🔄 Menunggu bukti bayar",
	order.StatusAwaitingAmount:       "🔄 Menunggu input nominal",
	order.StatusPendingReview:        "⏳ Menunggu konfirmasi admin",
	order.StatusConfirmed:            "✅ Dikonfirmasi — Premium aktif",
	order.StatusRejected:             "❌ Ditolak",
}

func statusText(o *order.Order) string {
	label, ok := statusLabels[o.Status]
	if !ok {
		label = string(o.Status)
	}
	return fmt.Sprintf(
		"📋 *Status Pesanan Terakhir*\n\n"+
			"📦 %s\n"+
			"💰 Rp %s\n"+
			"📊 Status: %s\n"+
			"🕐 %s",
		o.PackageName, formatRupiah(o.PackagePrice), label, formatDateTimeID(o.CreatedAt),
	)
}

func adminReviewText(o *order.Order) string {
	check := "✅"
	if !o.AmountAccepted {
		check = "❌"
	}
	return fmt.Sprintf(
		"🔔 *Pesanan Baru — Verifikasi Diperlukan*\n\n"+
			"👤 User: %s (ID: %d)\n"+
			"🆔 Google ID: `%s`\n"+
			"📦 Paket: %s\n"+
			"💰 Harga: Rp %s\n"+
			"💵 Klaim bayar: *Rp %s* %s\n"+
			"🕐 %s\n\n"+
			"*Cek bukti bayar di atas, lalu konfirmasi:*",
		o.BuyerLabel(), o.BuyerChannelID,
		o.SubscriberKey, o.PackageName,
		formatRupiah(o.PackagePrice), formatRupiah(o.ClaimedAmount.Int64), check,
		formatDateTimeID(time.Now()),
	)
}

func adminProofCaption(orderID string) string {
	return fmt.Sprintf("📎 Bukti bayar dari order `%s`", orderID)
}

func adminConfirmedText(o *order.Order, expiry time.Time) string {
	return fmt.Sprintf(
		"✅ *Dikonfirmasi oleh admin*\n\n"+
			"Order ID: `%s`\n"+
			"Google ID: `%s`\n"+
			"Paket: %s\n"+
			"Premium aktif sampai: *%s*",
		o.ID, o.SubscriberKey, o.PackageName, formatDateID(expiry),
	)
}

func adminRejectedText(o *order.Order) string {
	return fmt.Sprintf(
		"❌ *Order Ditolak*\n\nOrder ID: `%s`\nGoogle ID: `%s`",
		o.ID, o.SubscriberKey,
	)
}

// PremiumActiveText is the buyer notice on a confirmed order. Exported
// because both decision ingresses (inline button and admin API) send it.
func PremiumActiveText(o *order.Order, expiry time.Time) string {
	return fmt.Sprintf(
		"🎉 *Premium Aktif!*\n\n"+
			"Paket *%s* sudah diaktifkan!\n"+
			"Berlaku sampai: *%s*\n\n"+
			"Selamat menikmati akses tanpa batas! 📚✨",
		o.PackageName, formatDateID(expiry),
	)
}

// PaymentRejectedText is the buyer notice on a rejected order.
func PaymentRejectedText() string {
	return "❌ *Pembayaran Ditolak*\n\n" +
		"Maaf, pembayaran kamu tidak dapat diverifikasi.\n" +
		"Silakan hubungi admin atau ketik /beli untuk mencoba lagi."
}

func pendingListHeader(count int) string {
	if count == 0 {
		return "✅ Tidak ada pesanan yang menunggu konfirmasi."
	}
	return fmt.Sprintf("📋 *%d pesanan menunggu konfirmasi:*", count)
}

func pendingListEntry(i int, o *order.Order) string {
	return fmt.Sprintf(
		"%d. %s — %s — Rp %s\n    `%s`",
		i, o.BuyerLabel(), o.PackageName, formatRupiah(o.ClaimedAmount.Int64), o.ID,
	)
}

// formatRupiah renders 15000 as "15.000".
func formatRupiah(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}

var monthsID = [...]string{
	"Januari", "Februari", "Maret", "April", "Mei", "Juni",
	"Juli", "Agustus", "September", "Oktober", "November", "Desember",
}

// formatDateID renders "29 Agustus 2026".
func formatDateID(t time.Time) string {
	return fmt.Sprintf("%d %s %d", t.Day(), monthsID[t.Month()-1], t.Year())
}

// formatDateTimeID renders "29 Agustus 2026 14.05".
func formatDateTimeID(t time.Time) string {
	return fmt.Sprintf("%s %02d.%02d", formatDateID(t), t.Hour(), t.Minute())
}
