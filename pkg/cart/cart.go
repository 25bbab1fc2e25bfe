// Package cart owns the authoritative set of cart lines and derives
// monetary totals from them.
//
// A cart holds at most one line per variant id, in first-insertion order;
// that order is stable across quantity updates and is what the UI iterates
// for display. Quantities are clamped to zero and a zero quantity removes
// the line entirely rather than keeping a zero-quantity record.
package cart

import (
	"sync"
)

// Line is one cart entry: a variant and how many of it.
type Line struct {
	VariantID string `json:"variant_id"`
	Quantity  int    `json:"quantity"`
}

// Cart is the mutable cart state. Every operation takes the internal lock,
// so rapid-fire quantity updates are always applied to the latest quantity
// and never to a stale snapshot, even when interleaved with asynchronous
// confirmations from the remote store.
type Cart struct {
	mu    sync.Mutex
	lines []*Line
	index map[string]*Line
}

// New creates an empty cart.
func New() *Cart {
	return &Cart{
		index: make(map[string]*Line),
	}
}

// IncrementQuantity adjusts a variant's quantity by delta (which may be
// negative) and returns the resulting quantity. The result is clamped to a
// minimum of 0; reaching 0 removes the line. A positive delta for an
// unknown variant creates its line at the end of the cart.
func (c *Cart) IncrementQuantity(variantID string, delta int) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	current := 0
	if line, ok := c.index[variantID]; ok {
		current = line.Quantity
	}
	return c.setLocked(variantID, current+delta)
}

// SetQuantity replaces a variant's quantity and returns the resulting
// quantity, clamped to a minimum of 0. Setting 0 removes the line.
func (c *Cart) SetQuantity(variantID string, quantity int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.setLocked(variantID, quantity)
}

// QuantityUpdate is the combined update form kept for callers of the older
// single-operation API. Exactly one of Delta or Absolute is honored per
// call: when both are set, Absolute wins and Delta is ignored.
type QuantityUpdate struct {
	Delta    *int
	Absolute *int
}

// UpdateQuantity applies a QuantityUpdate. Prefer IncrementQuantity and
// SetQuantity in new code; this wrapper exists for the dual-mode call shape
// and makes the Absolute-over-Delta precedence explicit.
func (c *Cart) UpdateQuantity(variantID string, update QuantityUpdate) int {
	if update.Absolute != nil {
		return c.SetQuantity(variantID, *update.Absolute)
	}
	if update.Delta != nil {
		return c.IncrementQuantity(variantID, *update.Delta)
	}
	return c.Quantity(variantID)
}

// Remove deletes a variant's line. Equivalent to SetQuantity(id, 0).
func (c *Cart) Remove(variantID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setLocked(variantID, 0)
}

// Clear empties all lines atomically; no partial-clear state is observable.
func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lines = nil
	c.index = make(map[string]*Line)
}

// Quantity returns the current quantity for a variant, 0 if absent.
func (c *Cart) Quantity(variantID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if line, ok := c.index[variantID]; ok {
		return line.Quantity
	}
	return 0
}

// Lines returns a snapshot of the cart lines in first-insertion order.
func (c *Cart) Lines() []Line {
	c.mu.Lock()
	defer c.mu.Unlock()

	lines := make([]Line, 0, len(c.lines))
	for _, line := range c.lines {
		lines = append(lines, *line)
	}
	return lines
}

// Len returns the number of lines (not the total item count).
func (c *Cart) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.lines)
}

// setLocked applies a clamped absolute quantity. Caller holds c.mu.
func (c *Cart) setLocked(variantID string, quantity int) int {
	if quantity < 0 {
		quantity = 0
	}

	line, exists := c.index[variantID]

	if quantity == 0 {
		if exists {
			c.removeLocked(variantID)
		}
		return 0
	}

	if exists {
		line.Quantity = quantity
		return quantity
	}

	line = &Line{VariantID: variantID, Quantity: quantity}
	c.lines = append(c.lines, line)
	c.index[variantID] = line
	return quantity
}

// removeLocked deletes a line preserving the order of the rest.
// Caller holds c.mu.
func (c *Cart) removeLocked(variantID string) {
	delete(c.index, variantID)
	for i, line := range c.lines {
		if line.VariantID == variantID {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
			return
		}
	}
}
