package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/storefront/api/validators"
	"github.com/angelmondragon/storefront/internal/cart"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/types"
)

type cartEditor interface {
	Current(ctx context.Context) (cart.Cart, error)
	Add(ctx context.Context, product types.Product, qty int, variant *cart.Variant) (cart.Mutation, error)
	UpdateQuantity(ctx context.Context, productID string, variant *cart.Variant, qty int) (cart.Mutation, error)
	Remove(ctx context.Context, productID string, variant *cart.Variant) (cart.Mutation, error)
	Clear(ctx context.Context) (cart.Mutation, error)
}

type productLookup interface {
	Product(ctx context.Context, id string) (*types.Product, error)
}

type cartLineView struct {
	Key string `json:"key"`
	types.CartLine
}

type cartResponse struct {
	Lines    []cartLineView `json:"lines"`
	Count    int            `json:"count"`
	Subtotal string         `json:"subtotal"`
	Sync     cart.Outcome   `json:"sync,omitempty"`
}

func newCartResponse(c cart.Cart, sync cart.Outcome) cartResponse {
	lines := c.Lines()
	views := make([]cartLineView, 0, len(lines))
	for _, line := range lines {
		views = append(views, cartLineView{Key: cart.LineKey(line.ID.String(), line.SelectedVariant), CartLine: line})
	}
	return cartResponse{
		Lines:    views,
		Count:    c.TotalQuantity(),
		Subtotal: c.Subtotal().StringFixed(2),
		Sync:     sync,
	}
}

type addItemRequest struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"omitempty,min=1,max=99"`
	Size      string `json:"size"`
	Color     string `json:"color"`
}

type updateItemRequest struct {
	Quantity int    `json:"quantity" validate:"min=0,max=99"`
	Size     string `json:"size"`
	Color    string `json:"color"`
}

func variantOf(size, color string) *cart.Variant {
	size, color = strings.TrimSpace(size), strings.TrimSpace(color)
	if size == "" && color == "" {
		return nil
	}
	return &cart.Variant{Size: size, Color: color}
}

func CartGet(carts cartEditor, notes Notifier, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		current, err := carts.Current(r.Context())
		if err != nil {
			fail(r.Context(), logg, notes, w, err)
			return
		}
		succeed(w, notes, http.StatusOK, newCartResponse(current, ""), "")
	}
}

// CartAddItem adds a catalog product to the local cart. Stock is checked
// against the cached catalog; the server has the final say at checkout.
func CartAddItem(carts cartEditor, products productLookup, notes Notifier, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload addItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			fail(r.Context(), logg, notes, w, err)
			return
		}
		product, err := products.Product(r.Context(), payload.ProductID)
		if err != nil {
			fail(r.Context(), logg, notes, w, err)
			return
		}
		if !product.InStock() {
			fail(r.Context(), logg, notes, w, pkgerrors.New(pkgerrors.CodeConflict, "This product is out of stock"))
			return
		}

		mut, err := carts.Add(r.Context(), *product, payload.Quantity, variantOf(payload.Size, payload.Color))
		if err != nil {
			fail(r.Context(), logg, notes, w, err)
			return
		}
		succeed(w, notes, http.StatusOK, newCartResponse(mut.Cart, mut.Sync.Outcome), "Added to cart")
	}
}

func CartUpdateItem(carts cartEditor, notes Notifier, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload updateItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			fail(r.Context(), logg, notes, w, err)
			return
		}
		mut, err := carts.UpdateQuantity(r.Context(), chi.URLParam(r, "productId"), variantOf(payload.Size, payload.Color), payload.Quantity)
		if err != nil {
			fail(r.Context(), logg, notes, w, err)
			return
		}
		succeed(w, notes, http.StatusOK, newCartResponse(mut.Cart, mut.Sync.Outcome), "")
	}
}

// CartRemoveItem takes the variant from the size and color query parameters.
func CartRemoveItem(carts cartEditor, notes Notifier, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		mut, err := carts.Remove(r.Context(), chi.URLParam(r, "productId"), variantOf(q.Get("size"), q.Get("color")))
		if err != nil {
			fail(r.Context(), logg, notes, w, err)
			return
		}
		succeed(w, notes, http.StatusOK, newCartResponse(mut.Cart, mut.Sync.Outcome), "Removed from cart")
	}
}

func CartClear(carts cartEditor, notes Notifier, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mut, err := carts.Clear(r.Context())
		if err != nil {
			fail(r.Context(), logg, notes, w, err)
			return
		}
		succeed(w, notes, http.StatusOK, newCartResponse(mut.Cart, mut.Sync.Outcome), "")
	}
}
