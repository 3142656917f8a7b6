package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/storefront/pkg/logger"
)

type wishlistEditor interface {
	IDs() []string
	Toggle(ctx context.Context, productID string) (bool, error)
}

func WishlistGet(wishlist wishlistEditor, notes Notifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		succeed(w, notes, http.StatusOK, map[string]any{"productIds": wishlist.IDs()}, "")
	}
}

func WishlistToggle(wishlist wishlistEditor, notes Notifier, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID := chi.URLParam(r, "productId")
		saved, err := wishlist.Toggle(r.Context(), productID)
		if err != nil {
			fail(r.Context(), logg, notes, w, err)
			return
		}
		msg := "Removed from wishlist"
		if saved {
			msg = "Added to wishlist"
		}
		succeed(w, notes, http.StatusOK, map[string]any{
			"productId":  productID,
			"saved":      saved,
			"productIds": wishlist.IDs(),
		}, msg)
	}
}
