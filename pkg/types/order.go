package types

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Order is a placed order as reported by the storefront API.
type Order struct {
	ID              ID              `json:"id"`
	Status          string          `json:"status"`
	Items           []CartLine      `json:"items"`
	Total           decimal.Decimal `json:"total"`
	Discount        decimal.Decimal `json:"discount,omitempty"`
	CouponCode      string          `json:"couponCode,omitempty"`
	ShippingAddress *Address        `json:"shippingAddress,omitempty"`
	PaymentMethod   string          `json:"paymentMethod,omitempty"`
	CreatedAt       *time.Time      `json:"createdAt,omitempty"`
}

// UnmarshalJSON accepts both `id` and `_id`.
func (o *Order) UnmarshalJSON(data []byte) error {
	type alias Order
	var raw struct {
		alias
		MongoID ID `json:"_id"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*o = Order(raw.alias)
	if o.ID.Empty() {
		o.ID = raw.MongoID
	}
	return nil
}

// PincodeStatus reports whether deliveries are accepted for a postal code.
type PincodeStatus struct {
	Pincode      string `json:"pincode"`
	Serviceable  bool   `json:"serviceable"`
	DeliveryDays int    `json:"deliveryDays,omitempty"`
}

// CouponResult is the server's verdict on a coupon for a given subtotal.
type CouponResult struct {
	Code     string          `json:"code"`
	Valid    bool            `json:"valid"`
	Discount decimal.Decimal `json:"discount"`
	Message  string          `json:"message,omitempty"`
}
