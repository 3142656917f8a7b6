package cart

import (
	"encoding/json"
	"strings"

	"github.com/angelmondragon/storefront/pkg/types"
	"github.com/shopspring/decimal"
)

type (
	Line    = types.CartLine
	Variant = types.Variant
)

// Cart is an immutable snapshot of cart lines. Operations return a new Cart
// and never modify their input.
type Cart struct {
	lines []Line
}

// New builds a cart from lines, dropping lines without a product id or with a
// non-positive quantity and merging duplicates.
func New(lines []Line) Cart {
	out := Cart{}
	for _, line := range lines {
		if line.ID.Empty() || line.Quantity <= 0 {
			continue
		}
		out = Add(out, line.Product, line.Quantity, line.SelectedVariant)
	}
	return out
}

// Lines returns a copy of the lines in insertion order. Never nil.
func (c Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

// MarshalJSON encodes the cart as its array of lines.
func (c Cart) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Lines())
}

func (c Cart) Len() int {
	return len(c.lines)
}

func (c Cart) Empty() bool {
	return len(c.lines) == 0
}

// Find returns the line for productID and variant.
func (c Cart) Find(productID string, variant *Variant) (Line, bool) {
	if idx := c.index(productID, variant); idx >= 0 {
		return c.lines[idx], true
	}
	return Line{}, false
}

// TotalQuantity is the sum of all line quantities.
func (c Cart) TotalQuantity() int {
	total := 0
	for _, line := range c.lines {
		total += line.Quantity
	}
	return total
}

func (c Cart) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, line := range c.lines {
		total = total.Add(line.LineTotal())
	}
	return total
}

func (c Cart) index(productID string, variant *Variant) int {
	productID = strings.TrimSpace(productID)
	key := variant.Key()
	for i, line := range c.lines {
		if string(line.ID) == productID && line.SelectedVariant.Key() == key {
			return i
		}
	}
	return -1
}

// LineKey identifies a line by product and variant.
func LineKey(productID string, variant *Variant) string {
	return strings.TrimSpace(productID) + "#" + variant.Key()
}

// Add increments the matching line by qty or appends a new line. A qty below
// one is treated as one.
func Add(c Cart, product types.Product, qty int, variant *Variant) Cart {
	if qty <= 0 {
		qty = 1
	}
	lines := c.Lines()
	if idx := c.index(string(product.ID), variant); idx >= 0 {
		lines[idx].Quantity += qty
		return Cart{lines: lines}
	}
	return Cart{lines: append(lines, Line{
		Product:         product,
		Quantity:        qty,
		SelectedVariant: cloneVariant(variant),
	})}
}

// UpdateQuantity sets the quantity of the matching line. A qty of zero or
// below removes the line. Unknown lines leave the cart unchanged.
func UpdateQuantity(c Cart, productID string, variant *Variant, qty int) Cart {
	idx := c.index(productID, variant)
	if idx < 0 {
		return c
	}
	if qty <= 0 {
		return Remove(c, productID, variant)
	}
	lines := c.Lines()
	lines[idx].Quantity = qty
	return Cart{lines: lines}
}

// Remove drops the matching line.
func Remove(c Cart, productID string, variant *Variant) Cart {
	idx := c.index(productID, variant)
	if idx < 0 {
		return c
	}
	lines := make([]Line, 0, len(c.lines)-1)
	lines = append(lines, c.lines[:idx]...)
	lines = append(lines, c.lines[idx+1:]...)
	return Cart{lines: lines}
}

func Clear() Cart {
	return Cart{}
}

func cloneVariant(v *Variant) *Variant {
	if v == nil || v.Key() == "" {
		return nil
	}
	clone := *v
	return &clone
}
