package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/storefront/api/validators"
	"github.com/angelmondragon/storefront/internal/orders"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/types"
)

type orderService interface {
	List(ctx context.Context) ([]types.Order, error)
	Track(ctx context.Context, id string) (*types.Order, error)
	CheckPincode(ctx context.Context, code string) (*types.PincodeStatus, error)
	Checkout(ctx context.Context, in orders.CheckoutInput) (*orders.CheckoutResult, error)
}

func OrdersList(svc orderService, notes Notifier, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.List(r.Context())
		if err != nil {
			fail(r.Context(), logg, notes, w, err)
			return
		}
		succeed(w, notes, http.StatusOK, map[string]any{"orders": list}, "")
	}
}

func OrderGet(svc orderService, notes Notifier, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		order, err := svc.Track(r.Context(), chi.URLParam(r, "orderId"))
		if err != nil {
			fail(r.Context(), logg, notes, w, err)
			return
		}
		succeed(w, notes, http.StatusOK, order, "")
	}
}

func PincodeCheck(svc orderService, notes Notifier, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, err := svc.CheckPincode(r.Context(), chi.URLParam(r, "pincode"))
		if err != nil {
			fail(r.Context(), logg, notes, w, err)
			return
		}
		succeed(w, notes, http.StatusOK, status, "")
	}
}

// Checkout hands the local cart to the server; the cart is emptied only once
// the order is accepted.
func Checkout(svc orderService, notes Notifier, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in orders.CheckoutInput
		if err := validators.DecodeJSONBody(r, &in); err != nil {
			fail(r.Context(), logg, notes, w, err)
			return
		}
		res, err := svc.Checkout(r.Context(), in)
		if err != nil {
			fail(r.Context(), logg, notes, w, err)
			return
		}
		succeed(w, notes, http.StatusCreated, res, "Order placed")
	}
}
