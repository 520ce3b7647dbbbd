package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/mangadesu/premiumbot/core/config"
)

func TestCatalogLookup(t *testing.T) {
	c := New(coreconfig.DefaultPackages())

	p, err := c.Get("1")
	require.NoError(t, err)
	assert.Equal(t, "Paket 7 Hari", p.Name)
	assert.Equal(t, int64(5000), p.PriceAmount)
	assert.Equal(t, 7, p.ValidityDays)

	p, err = c.Get("2")
	require.NoError(t, err)
	assert.Equal(t, int64(15000), p.PriceAmount)
	assert.Equal(t, 30, p.ValidityDays)

	_, err = c.Get("99")
	assert.ErrorIs(t, err, ErrUnknownPackage)
}

func TestCatalogAllPreservesOrder(t *testing.T) {
	c := New([]coreconfig.PackageConfig{
		{ID: "b", Name: "B", PriceLabel: "Rp 2", PriceAmount: 2, ValidityDays: 2},
		{ID: "a", Name: "A", PriceLabel: "Rp 1", PriceAmount: 1, ValidityDays: 1},
	})
	all := c.All()
	require.Len(t, all, 2)
	assert.Equal(t, "b", all[0].ID)
	assert.Equal(t, "a", all[1].ID)
}

func TestCatalogSkipsDuplicateIDs(t *testing.T) {
	c := New([]coreconfig.PackageConfig{
		{ID: "1", Name: "First", PriceLabel: "Rp 1", PriceAmount: 1, ValidityDays: 1},
		{ID: "1", Name: "Second", PriceLabel: "Rp 2", PriceAmount: 2, ValidityDays: 2},
	})
	p, err := c.Get("1")
	require.NoError(t, err)
	assert.Equal(t, "First", p.Name)
	assert.Len(t, c.All(), 1)
}
