package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/storefront/api/validators"
	"github.com/angelmondragon/storefront/internal/catalog"
	"github.com/angelmondragon/storefront/internal/notifications"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/types"
)

type catalogReader interface {
	Search(ctx context.Context, query, category string) catalog.Result
	Product(ctx context.Context, id string) (*types.Product, error)
}

const maxProductsPage = 200

type productsResponse struct {
	Products  []types.Product `json:"products"`
	Source    catalog.Source  `json:"source"`
	FetchedAt *time.Time      `json:"fetchedAt,omitempty"`
}

// ProductsList serves the catalog through the cache. A failed fetch still
// answers 200 with an empty list so the storefront renders.
func ProductsList(products catalogReader, notes Notifier, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := validators.SanitizeString(r.URL.Query().Get("q"), 100)
		category := validators.SanitizeString(r.URL.Query().Get("category"), 64)
		limit, err := validators.ParseQueryInt(r, "limit", 0, 0, maxProductsPage)
		if err != nil {
			fail(r.Context(), logg, notes, w, err)
			return
		}

		res := products.Search(r.Context(), query, category)
		if limit > 0 && len(res.Products) > limit {
			res.Products = res.Products[:limit]
		}
		payload := productsResponse{Products: res.Products, Source: res.Source}
		if !res.FetchedAt.IsZero() {
			fetched := res.FetchedAt
			payload.FetchedAt = &fetched
		}
		if res.Err != nil {
			if logg != nil {
				logg.WarnErr(r.Context(), "catalog unavailable", res.Err)
			}
			if notes != nil {
				notes.Show(notifications.KindError, "Could not load products. Please try again.")
			}
		}
		succeed(w, notes, http.StatusOK, payload, "")
	}
}

func ProductGet(products catalogReader, notes Notifier, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		product, err := products.Product(r.Context(), chi.URLParam(r, "productId"))
		if err != nil {
			fail(r.Context(), logg, notes, w, err)
			return
		}
		succeed(w, notes, http.StatusOK, product, "")
	}
}
