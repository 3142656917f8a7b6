package types

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestIDUnmarshal(t *testing.T) {
	type payload struct {
		ID ID `json:"id"`
	}

	cases := map[string]ID{
		`{"id": "abc"}`: "abc",
		`{"id": 42}`:    "42",
		`{"id": " x "}`: "x",
		`{"id": null}`:  "",
		`{}`:            "",
	}
	for input, want := range cases {
		var got payload
		if err := json.Unmarshal([]byte(input), &got); err != nil {
			t.Fatalf("unmarshal %s: %v", input, err)
		}
		if got.ID != want {
			t.Fatalf("unmarshal %s: expected %q, got %q", input, want, got.ID)
		}
	}

	var bad payload
	if err := json.Unmarshal([]byte(`{"id": {"nested": true}}`), &bad); err == nil {
		t.Fatalf("expected object id to be rejected")
	}
}

func TestUserAcceptsMongoStyleID(t *testing.T) {
	var user User
	if err := json.Unmarshal([]byte(`{"_id":"u1","name":"Asha","email":"asha@example.com"}`), &user); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if user.ID != "u1" || !user.HasProfileShape() {
		t.Fatalf("unexpected user %+v", user)
	}

	empty := User{Name: "no email"}
	if empty.HasProfileShape() {
		t.Fatalf("user without email must not look like a profile")
	}
	var nilUser *User
	if nilUser.HasProfileShape() || nilUser.IsAdmin() {
		t.Fatalf("nil user has no profile")
	}
}

func TestProductPricesAreNumbers(t *testing.T) {
	var product Product
	if err := json.Unmarshal([]byte(`{"id":7,"name":"Kurta","price":499.5,"stock":3}`), &product); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if product.ID != "7" || !product.Price.Equal(decimal.RequireFromString("499.5")) {
		t.Fatalf("unexpected product %+v", product)
	}

	out, err := json.Marshal(product)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(out), `"price":499.5`) {
		t.Fatalf("expected numeric price, got %s", out)
	}
}

func TestCartLineDecodesProductAndLineFields(t *testing.T) {
	raw := `{"_id":"p1","name":"Tee","price":250,"quantity":2,"selectedVariant":{"size":"M","color":"Red"}}`
	var line CartLine
	if err := json.Unmarshal([]byte(raw), &line); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if line.ID != "p1" || line.Quantity != 2 || line.SelectedVariant.Key() != "m|red" {
		t.Fatalf("unexpected line %+v", line)
	}
	if !line.LineTotal().Equal(decimal.NewFromInt(500)) {
		t.Fatalf("unexpected line total %s", line.LineTotal())
	}

	var ref CartLine
	if err := json.Unmarshal([]byte(`{"productId":9,"quantity":1}`), &ref); err != nil {
		t.Fatalf("unmarshal ref: %v", err)
	}
	if ref.ID != "9" {
		t.Fatalf("expected productId fallback, got %q", ref.ID)
	}
}

func TestVariantKey(t *testing.T) {
	var none *Variant
	if none.Key() != "" || (&Variant{}).Key() != "" {
		t.Fatalf("empty variants must share the empty key")
	}
	if (&Variant{Size: " L ", Color: "Blue"}).Key() != (&Variant{Size: "l", Color: "blue"}).Key() {
		t.Fatalf("variant keys must be normalized")
	}
}

func TestAddressValidate(t *testing.T) {
	addr := Address{Line1: "12 MG Road", City: "Pune", State: "MH", Pincode: "411001"}
	if err := addr.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	addr.Pincode = "011001"
	if err := addr.Validate(); err == nil {
		t.Fatalf("expected invalid pincode")
	}
}
