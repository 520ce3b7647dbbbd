package bot

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mangadesu/premiumbot/internal/order"
)

func TestFormatRupiah(t *testing.T) {
	cases := map[int64]string{
		0:       "0",
		500:     "500",
		5000:    "5.000",
		15000:   "15.000",
		1500000: "1.500.000",
	}
	for n, want := range cases {
		assert.Equal(t, want, formatRupiah(n), "n=%d", n)
	}
}

func TestFormatDateID(t *testing.T) {
	d := time.Date(2026, time.August, 29, 14, 5, 0, 0, time.UTC)
	assert.Equal(t, "29 Agustus 2026", formatDateID(d))
	assert.Equal(t, "29 Agustus 2026 14.05", formatDateTimeID(d))
}

func TestAmountRejectedTextNamesBothAmounts(t *testing.T) {
	o := &order.Order{
		PackageName:   "Paket 30 Hari",
		PackagePrice:  15000,
		ClaimedAmount: sql.NullInt64{Int64: 1000, Valid: true},
	}
	text := amountRejectedText(o)
	assert.Contains(t, text, "Rp 1.000")
	assert.Contains(t, text, "Rp 15.000")
}

func TestStatusTextLabels(t *testing.T) {
	o := &order.Order{
		PackageName:  "Paket 7 Hari",
		PackagePrice: 5000,
		Status:       order.StatusPendingReview,
		CreatedAt:    time.Now(),
	}
	assert.Contains(t, statusText(o), "Menunggu konfirmasi admin")

	o.Status = order.StatusConfirmed
	assert.Contains(t, statusText(o), "Premium aktif")
}

func TestBuyerLabelFallbacks(t *testing.T) {
	o := &order.Order{BuyerUsername: "pembeli"}
	assert.Equal(t, "@pembeli", o.BuyerLabel())

	o = &order.Order{BuyerDisplayName: "Pembeli"}
	assert.Equal(t, "Pembeli", o.BuyerLabel())

	o = &order.Order{}
	assert.Equal(t, "-", o.BuyerLabel())
}
