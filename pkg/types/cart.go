package types

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// Variant is the size/color selection attached to a cart line.
type Variant struct {
	Size  string `json:"size,omitempty"`
	Color string `json:"color,omitempty"`
}

// Key normalizes the variant for line identity. The zero variant and a nil
// variant share the empty key.
func (v *Variant) Key() string {
	if v == nil {
		return ""
	}
	size := strings.ToLower(strings.TrimSpace(v.Size))
	color := strings.ToLower(strings.TrimSpace(v.Color))
	if size == "" && color == "" {
		return ""
	}
	return size + "|" + color
}

// CartLine is a product copied into the cart at add time plus its quantity.
type CartLine struct {
	Product
	Quantity        int      `json:"quantity"`
	SelectedVariant *Variant `json:"selectedVariant,omitempty"`
}

// LineTotal is price times quantity.
func (l CartLine) LineTotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// UnmarshalJSON decodes the product fields and the line fields separately
// because Product has its own decoder. A `productId` field is accepted when
// the server sends lines referencing products instead of embedding them.
func (l *CartLine) UnmarshalJSON(data []byte) error {
	var product Product
	if err := json.Unmarshal(data, &product); err != nil {
		return err
	}
	var line struct {
		Quantity        int      `json:"quantity"`
		SelectedVariant *Variant `json:"selectedVariant"`
		ProductID       ID       `json:"productId"`
	}
	if err := json.Unmarshal(data, &line); err != nil {
		return err
	}
	if product.ID.Empty() {
		product.ID = line.ProductID
	}
	*l = CartLine{Product: product, Quantity: line.Quantity, SelectedVariant: line.SelectedVariant}
	return nil
}
