package catalog

import (
	"context"
	"strings"

	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/types"
)

// Product looks up one product in the cached catalog.
func (c *Cache) Product(ctx context.Context, id string) (*types.Product, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	res := c.Fetch(ctx)
	for i := range res.Products {
		if string(res.Products[i].ID) == id {
			product := res.Products[i]
			return &product, nil
		}
	}
	if res.Err != nil {
		return nil, res.Err
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
}

// Search filters the catalog by a case-insensitive query over name,
// description and category, optionally restricted to one category.
func (c *Cache) Search(ctx context.Context, query, category string) Result {
	res := c.Fetch(ctx)
	res.Products = Filter(res.Products, query, category)
	return res
}

// Filter is the pure part of Search.
func Filter(products []types.Product, query, category string) []types.Product {
	query = strings.ToLower(strings.TrimSpace(query))
	category = strings.ToLower(strings.TrimSpace(category))

	out := make([]types.Product, 0, len(products))
	for _, p := range products {
		if category != "" && strings.ToLower(p.Category) != category {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(p.Name), query) &&
			!strings.Contains(strings.ToLower(p.Description), query) &&
			!strings.Contains(strings.ToLower(p.Category), query) {
			continue
		}
		out = append(out, p)
	}
	return out
}
