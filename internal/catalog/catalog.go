// Package catalog exposes the purchasable premium plans as an immutable
// lookup built from configuration.
package catalog

import (
	"errors"
	"sort"

	coreconfig "github.com/mangadesu/premiumbot/core/config"
)

// ErrUnknownPackage is returned when a package ID is not on sale.
var ErrUnknownPackage = errors.New("unknown package")

// Package is one sellable premium plan. PriceAmount is in minor currency
// units (rupiah); PriceLabel is the human form shown in chat.
type Package struct {
	ID           string
	Name         string
	PriceLabel   string
	PriceAmount  int64
	ValidityDays int
}

// Catalog is a read-only set of packages keyed by ID.
type Catalog struct {
	byID  map[string]Package
	order []string
}

// New builds a Catalog from configuration entries.
func New(entries []coreconfig.PackageConfig) *Catalog {
	c := &Catalog{byID: make(map[string]Package, len(entries))}
	for _, e := range entries {
		if _, dup := c.byID[e.ID]; dup {
			continue
		}
		c.byID[e.ID] = Package{
			ID:           e.ID,
			Name:         e.Name,
			PriceLabel:   e.PriceLabel,
			PriceAmount:  e.PriceAmount,
			ValidityDays: e.ValidityDays,
		}
		c.order = append(c.order, e.ID)
	}
	return c
}

// Get returns the package with the given ID.
func (c *Catalog) Get(id string) (Package, error) {
	p, ok := c.byID[id]
	if !ok {
		return Package{}, ErrUnknownPackage
	}
	return p, nil
}

// All returns every package in configuration order.
func (c *Catalog) All() []Package {
	out := make([]Package, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}

// IDs returns the package IDs sorted lexicographically.
func (c *Catalog) IDs() []string {
	ids := make([]string, len(c.order))
	copy(ids, c.order)
	sort.Strings(ids)
	return ids
}
