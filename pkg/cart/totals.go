package cart

import (
	"github.com/shopspring/decimal"
)

// Config holds the shipping and tax rules applied during aggregation. The
// values are injected so the aggregation algorithm itself stays free of
// store-specific constants.
type Config struct {
	// FreeShippingThreshold: shipping is free when the subtotal is
	// strictly greater than this.
	FreeShippingThreshold decimal.Decimal

	// FlatShippingFee applies whenever the subtotal does not clear the
	// threshold (and the cart has anything to ship).
	FlatShippingFee decimal.Decimal

	// TaxRate is the fraction of the subtotal charged as tax when the
	// caller requests it (e.g. 0.08).
	TaxRate decimal.Decimal
}

// DefaultConfig returns the standard storefront shipping and tax rules.
func DefaultConfig() Config {
	return Config{
		FreeShippingThreshold: decimal.NewFromInt(50),
		FlatShippingFee:       decimal.RequireFromString("5.99"),
		TaxRate:               decimal.RequireFromString("0.08"),
	}
}

// Totals is the derived monetary summary of a cart.
type Totals struct {
	Subtotal  decimal.Decimal
	ItemCount int
	Shipping  decimal.Decimal
	Tax       decimal.Decimal
	Total     decimal.Decimal
}

// PriceLookup maps a variant id to its unit price. The second return is
// false when the variant no longer exists in the catalog.
type PriceLookup func(variantID string) (decimal.Decimal, bool)

// Aggregate derives totals from the current lines.
//
// Tax is a separately requested component: a bare cart view aggregates with
// includeTax false, checkout with true. Lines whose price lookup misses are
// excluded from every sum but stay in the cart; whether to prompt their
// removal is a UI decision. An empty cart (or one whose every line missed)
// aggregates to all-zero totals, including shipping.
func (c *Cart) Aggregate(cfg Config, lookup PriceLookup, includeTax bool) Totals {
	lines := c.Lines()

	subtotal := decimal.Zero
	itemCount := 0

	for _, line := range lines {
		price, ok := lookup(line.VariantID)
		if !ok {
			continue
		}
		subtotal = subtotal.Add(price.Mul(decimal.NewFromInt(int64(line.Quantity))))
		itemCount += line.Quantity
	}

	totals := Totals{
		Subtotal:  subtotal,
		ItemCount: itemCount,
		Shipping:  decimal.Zero,
		Tax:       decimal.Zero,
	}

	if itemCount > 0 && !subtotal.GreaterThan(cfg.FreeShippingThreshold) {
		totals.Shipping = cfg.FlatShippingFee
	}

	if includeTax {
		totals.Tax = subtotal.Mul(cfg.TaxRate)
	}

	totals.Total = subtotal.Add(totals.Shipping).Add(totals.Tax)
	return totals
}
