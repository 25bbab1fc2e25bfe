package catalog

// Selection is the in-progress user choice of attribute values while
// configuring a product: a mapping from attribute name to one chosen value.
// It may be partial, and it may name a combination matching zero variants.
type Selection map[string]string

// SelectAttribute returns a new selection with name set to value. Every
// other entry is preserved: selection is sticky, so choosing an attribute
// never clears previously chosen ones even if the resulting combination is
// unresolvable. The UI surfaces "combination not available" instead of
// auto-correcting the user's earlier choices.
func SelectAttribute(sel Selection, name, value string) Selection {
	next := make(Selection, len(sel)+1)
	for k, v := range sel {
		next[k] = v
	}
	next[name] = value
	return next
}

// AvailableValues reports which values of the named attribute are still
// reachable under the current selection. A value v is available iff some
// variant matches the selection on every other selected attribute and
// carries v for the queried one; the queried attribute itself is excluded
// from the match so the user can always switch within it.
//
// Availability depends on the full current selection, so this is recomputed
// on every selection change rather than cached.
func AvailableValues(attributeName string, sel Selection, variants []Variant) map[string]bool {
	available := make(map[string]bool)

	for i := range variants {
		attrs := variants[i].attributeMap()

		candidate, ok := attrs[attributeName]
		if !ok {
			continue
		}

		matches := true
		for name, value := range sel {
			if name == attributeName {
				continue
			}
			if attrs[name] != value {
				matches = false
				break
			}
		}

		if matches {
			available[candidate] = true
		}
	}

	return available
}

// ResolveVariant returns the unique variant whose attribute set equals the
// selection exactly: same names, same values. It returns nil when no
// variant matches, and also when more than one matches. Multiple exact
// matches violate per-product attribute-set uniqueness, so no variant is
// trusted in that case.
func ResolveVariant(sel Selection, variants []Variant) *Variant {
	var found *Variant

	for i := range variants {
		attrs := variants[i].attributeMap()
		if len(attrs) != len(sel) {
			continue
		}

		equal := true
		for name, value := range sel {
			if attrs[name] != value {
				equal = false
				break
			}
		}

		if equal {
			if found != nil {
				return nil
			}
			found = &variants[i]
		}
	}

	return found
}

// SelectionPolicy chooses the initial selection for a freshly loaded
// product. It is a named policy so callers can swap it (e.g. cheapest
// variant) without touching resolver internals.
type SelectionPolicy func(variants []Variant) Selection

// FirstVariantSelection is the default policy: the attribute set of the
// first variant in the product's variant list, in list order. This is a
// deliberate choice, not an artifact of iteration order.
func FirstVariantSelection(variants []Variant) Selection {
	if len(variants) == 0 {
		return Selection{}
	}

	sel := make(Selection, len(variants[0].Attributes))
	for _, a := range variants[0].Attributes {
		sel[a.Name] = a.Value
	}
	return sel
}

// DefaultSelection is the policy used when a product is first loaded.
var DefaultSelection SelectionPolicy = FirstVariantSelection
