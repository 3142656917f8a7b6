package controllers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/storefront/api/validators"
	"github.com/angelmondragon/storefront/internal/admin"
	"github.com/angelmondragon/storefront/pkg/apiclient"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/types"
)

// confirmHeader carries the operator's answer to a confirmation prompt. The UI
// first sends the request without it, shows the returned prompt, and resends.
const confirmHeader = "X-Confirm"

type adminService interface {
	CreateProduct(ctx context.Context, product types.Product) (*types.Product, error)
	UpdateProduct(ctx context.Context, id string, product types.Product) (*types.Product, error)
	DeleteProduct(ctx context.Context, id string) error
	BulkUpdateOrderStatus(ctx context.Context, req apiclient.BulkOrderStatus, confirm admin.Confirmer) error
	BulkTogglePincodes(ctx context.Context, req apiclient.BulkPincodeToggle, confirm admin.Confirmer) error
}

func headerConfirmer(r *http.Request) admin.Confirmer {
	raw := strings.TrimSpace(r.Header.Get(confirmHeader))
	if raw == "" {
		return nil
	}
	ok, err := strconv.ParseBool(raw)
	return admin.ConfirmFunc(func(context.Context, string) (bool, error) {
		return ok, err
	})
}

func AdminCreateProduct(svc adminService, notes Notifier, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var product types.Product
		if err := validators.DecodeJSONBody(r, &product); err != nil {
			fail(r.Context(), logg, notes, w, err)
			return
		}
		created, err := svc.CreateProduct(r.Context(), product)
		if err != nil {
			fail(r.Context(), logg, notes, w, err)
			return
		}
		succeed(w, notes, http.StatusCreated, created, "Product created")
	}
}

func AdminUpdateProduct(svc adminService, notes Notifier, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var product types.Product
		if err := validators.DecodeJSONBody(r, &product); err != nil {
			fail(r.Context(), logg, notes, w, err)
			return
		}
		updated, err := svc.UpdateProduct(r.Context(), chi.URLParam(r, "productId"), product)
		if err != nil {
			fail(r.Context(), logg, notes, w, err)
			return
		}
		succeed(w, notes, http.StatusOK, updated, "Product updated")
	}
}

func AdminDeleteProduct(svc adminService, notes Notifier, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.DeleteProduct(r.Context(), chi.URLParam(r, "productId")); err != nil {
			fail(r.Context(), logg, notes, w, err)
			return
		}
		succeed(w, notes, http.StatusOK, map[string]bool{"deleted": true}, "Product deleted")
	}
}

func AdminBulkOrderStatus(svc adminService, notes Notifier, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req apiclient.BulkOrderStatus
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			fail(r.Context(), logg, notes, w, err)
			return
		}
		err := svc.BulkUpdateOrderStatus(r.Context(), req, headerConfirmer(r))
		if err != nil {
			fail(r.Context(), logg, notes, w, err)
			return
		}
		succeed(w, notes, http.StatusOK, map[string]int{"updated": len(req.OrderIDs)}, "Orders updated")
	}
}

func AdminBulkPincodes(svc adminService, notes Notifier, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req apiclient.BulkPincodeToggle
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			fail(r.Context(), logg, notes, w, err)
			return
		}
		err := svc.BulkTogglePincodes(r.Context(), req, headerConfirmer(r))
		if err != nil {
			fail(r.Context(), logg, notes, w, err)
			return
		}
		succeed(w, notes, http.StatusOK, map[string]int{"updated": len(req.Pincodes)}, "Pincodes updated")
	}
}
