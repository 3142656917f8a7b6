package types

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

func init() {
	// The storefront API exchanges prices as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// Product is a catalog entry. The client never mutates it except through the
// admin endpoints.
type Product struct {
	ID          ID              `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Category    string          `json:"category,omitempty"`
	Price       decimal.Decimal `json:"price"`
	MRP         decimal.Decimal `json:"mrp,omitempty"`
	Images      []string        `json:"images,omitempty"`
	Stock       int             `json:"stock"`
	Sizes       []string        `json:"sizes,omitempty"`
	Colors      []string        `json:"colors,omitempty"`
}

// UnmarshalJSON accepts both `id` and `_id`.
func (p *Product) UnmarshalJSON(data []byte) error {
	type alias Product
	var raw struct {
		alias
		MongoID ID `json:"_id"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = Product(raw.alias)
	if p.ID.Empty() {
		p.ID = raw.MongoID
	}
	return nil
}

// InStock reports whether at least one unit is available.
func (p Product) InStock() bool {
	return p.Stock > 0
}
