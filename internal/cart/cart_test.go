package cart

import (
	"testing"

	"github.com/angelmondragon/storefront/pkg/types"
	"github.com/shopspring/decimal"
)

func product(id string, price int64) types.Product {
	return types.Product{ID: types.ID(id), Name: "product " + id, Price: decimal.NewFromInt(price)}
}

func TestAddSameProductTwiceIncrementsQuantity(t *testing.T) {
	c := Add(Clear(), product("p1", 100), 0, nil)
	c = Add(c, product("p1", 100), 0, nil)

	if c.Len() != 1 {
		t.Fatalf("expected one line, got %d", c.Len())
	}
	line, ok := c.Find("p1", nil)
	if !ok || line.Quantity != 2 {
		t.Fatalf("expected quantity 2, got %+v", line)
	}
}

func TestAddWithExplicitQuantity(t *testing.T) {
	c := Add(Clear(), product("p1", 100), 3, nil)
	c = Add(c, product("p1", 100), 2, nil)
	if line, _ := c.Find("p1", nil); line.Quantity != 5 {
		t.Fatalf("expected 5, got %d", line.Quantity)
	}
	if !c.Subtotal().Equal(decimal.NewFromInt(500)) {
		t.Fatalf("unexpected subtotal %s", c.Subtotal())
	}
}

func TestVariantsAreDistinctLines(t *testing.T) {
	small := &Variant{Size: "S", Color: "red"}
	large := &Variant{Size: "L", Color: "red"}

	c := Add(Clear(), product("p1", 100), 1, small)
	c = Add(c, product("p1", 100), 1, large)
	c = Add(c, product("p1", 100), 1, &Variant{Size: "s", Color: "RED"})

	if c.Len() != 2 {
		t.Fatalf("expected two variant lines, got %d", c.Len())
	}
	if line, _ := c.Find("p1", small); line.Quantity != 2 {
		t.Fatalf("expected small quantity 2, got %d", line.Quantity)
	}
	if c.TotalQuantity() != 3 {
		t.Fatalf("expected total 3, got %d", c.TotalQuantity())
	}
}

func TestUpdateQuantityZeroOrBelowRemovesLine(t *testing.T) {
	for _, qty := range []int{0, -1, -10} {
		c := Add(Clear(), product("p1", 100), 2, nil)
		c = Add(c, product("p2", 50), 1, nil)

		next := UpdateQuantity(c, "p1", nil, qty)
		if next.Len() != c.Len()-1 {
			t.Fatalf("qty %d: expected length %d, got %d", qty, c.Len()-1, next.Len())
		}
		if _, ok := next.Find("p1", nil); ok {
			t.Fatalf("qty %d: expected p1 removed", qty)
		}
		for _, line := range next.Lines() {
			if line.Quantity <= 0 {
				t.Fatalf("qty %d: found non-positive line %+v", qty, line)
			}
		}
	}
}

func TestUpdateQuantitySetsValue(t *testing.T) {
	c := Add(Clear(), product("p1", 100), 1, nil)
	c = UpdateQuantity(c, "p1", nil, 7)
	if line, _ := c.Find("p1", nil); line.Quantity != 7 {
		t.Fatalf("expected 7, got %d", line.Quantity)
	}
	if same := UpdateQuantity(c, "missing", nil, 3); same.Len() != 1 {
		t.Fatalf("unknown line must leave cart unchanged")
	}
}

func TestOperationsDoNotMutateInput(t *testing.T) {
	original := Add(Clear(), product("p1", 100), 1, nil)
	_ = Add(original, product("p1", 100), 1, nil)
	_ = UpdateQuantity(original, "p1", nil, 9)
	_ = Remove(original, "p1", nil)

	if line, _ := original.Find("p1", nil); original.Len() != 1 || line.Quantity != 1 {
		t.Fatalf("original snapshot changed: %+v", original.Lines())
	}
}

func TestNewDropsInvalidLinesAndMerges(t *testing.T) {
	c := New([]Line{
		{Product: product("p1", 10), Quantity: 1},
		{Product: product("p1", 10), Quantity: 2},
		{Product: product("p2", 10), Quantity: 0},
		{Product: types.Product{Name: "no id"}, Quantity: 1},
	})
	if c.Len() != 1 {
		t.Fatalf("expected one line, got %d", c.Len())
	}
	if line, _ := c.Find("p1", nil); line.Quantity != 3 {
		t.Fatalf("expected merged quantity 3, got %d", line.Quantity)
	}
}
