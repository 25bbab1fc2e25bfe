// Package catalog models products and their purchasable variants and
// implements variant resolution: mapping a set of selected attribute values
// to exactly one variant.
//
// Everything here is pure; "no match" and "no value available" are ordinary
// return values (nil, empty) rather than errors, because they are normal UI
// states during product configuration.
package catalog

import (
	"github.com/shopspring/decimal"
)

// Attribute is one (name, value) pair on a variant, e.g. ("Color", "Red").
type Attribute struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Variant is one concrete purchasable configuration of a product, carrying
// its own price. Its attribute set is unique within the parent product.
type Variant struct {
	ID            string          `json:"id"`
	Price         decimal.Decimal `json:"price"`
	OriginalPrice decimal.Decimal `json:"original_price"`
	Attributes    []Attribute     `json:"attributes"`
	Stock         int             `json:"stock"`
	Taken         int             `json:"taken"`
}

// Product groups one or more purchasable variants.
type Product struct {
	ID       string    `json:"id"`
	Variants []Variant `json:"variants"`
}

// attributeMap converts a variant's attribute list to a map for O(1)
// lookup and set comparison. The ordered list form is kept only for
// display-order concerns (see AttributeDomain).
func (v *Variant) attributeMap() map[string]string {
	m := make(map[string]string, len(v.Attributes))
	for _, a := range v.Attributes {
		m[a.Name] = a.Value
	}
	return m
}

// AttributeGroup is the ordered value domain of one attribute name.
type AttributeGroup struct {
	Name   string
	Values []string
}

// AttributeDomain derives the attribute domain of a variant list: for each
// attribute name appearing on any variant, the distinct values in
// first-appearance order. Names are likewise ordered by first appearance.
// Built once per product; it does not depend on the current selection.
func AttributeDomain(variants []Variant) []AttributeGroup {
	var groups []AttributeGroup
	index := map[string]int{}

	for _, v := range variants {
		for _, a := range v.Attributes {
			i, ok := index[a.Name]
			if !ok {
				i = len(groups)
				index[a.Name] = i
				groups = append(groups, AttributeGroup{Name: a.Name})
			}

			seen := false
			for _, val := range groups[i].Values {
				if val == a.Value {
					seen = true
					break
				}
			}
			if !seen {
				groups[i].Values = append(groups[i].Values, a.Value)
			}
		}
	}

	return groups
}

// DiscountPercent returns the discount of a variant as a whole percentage,
// and whether a discount applies at all. A discount applies only when the
// original price is strictly greater than the current price.
//
// Rounding rule: half away from zero to the nearest integer percent
// (decimal.Round semantics), so 12.5% displays as 13.
func DiscountPercent(v Variant) (int64, bool) {
	if !v.OriginalPrice.GreaterThan(v.Price) {
		return 0, false
	}
	if v.OriginalPrice.IsZero() {
		return 0, false
	}

	pct := v.OriginalPrice.Sub(v.Price).
		Div(v.OriginalPrice).
		Mul(decimal.NewFromInt(100)).
		Round(0)

	return pct.IntPart(), true
}
