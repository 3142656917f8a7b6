package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"github.com/angelmondragon/storefront/pkg/types"
)

// BulkOrderStatus moves many orders to one status.
type BulkOrderStatus struct {
	OrderIDs []string `json:"orderIds" validate:"required,min=1,dive,required"`
	Status   string   `json:"status" validate:"required,oneof=pending processing shipped delivered cancelled"`
}

// BulkPincodeToggle enables or disables delivery for many pincodes.
type BulkPincodeToggle struct {
	Pincodes []string `json:"pincodes" validate:"required,min=1,dive,pincode"`
	Active   bool     `json:"active"`
}

func (c *Client) CreateProduct(ctx context.Context, product types.Product) (*types.Product, error) {
	resp, err := c.DoProtected(ctx, Request{Method: http.MethodPost, Path: "/api/products", Endpoint: "product_create", Body: product})
	if err != nil {
		return nil, err
	}
	return decodeProduct(resp)
}

func (c *Client) UpdateProduct(ctx context.Context, id string, product types.Product) (*types.Product, error) {
	resp, err := c.DoProtected(ctx, Request{
		Method:   http.MethodPut,
		Path:     "/api/products/" + url.PathEscape(id),
		Endpoint: "product_update",
		Body:     product,
	})
	if err != nil {
		return nil, err
	}
	return decodeProduct(resp)
}

func (c *Client) DeleteProduct(ctx context.Context, id string) error {
	_, err := c.DoProtected(ctx, Request{
		Method:   http.MethodDelete,
		Path:     "/api/products/" + url.PathEscape(id),
		Endpoint: "product_delete",
	})
	return err
}

func (c *Client) BulkUpdateOrderStatus(ctx context.Context, req BulkOrderStatus) error {
	_, err := c.DoProtected(ctx, Request{
		Method:   http.MethodPut,
		Path:     "/api/admin/orders/bulk-status",
		Endpoint: "admin_orders_bulk_status",
		Body:     req,
	})
	return err
}

func (c *Client) BulkTogglePincodes(ctx context.Context, req BulkPincodeToggle) error {
	_, err := c.DoProtected(ctx, Request{
		Method:   http.MethodPut,
		Path:     "/api/admin/pincodes/bulk-toggle",
		Endpoint: "admin_pincodes_bulk_toggle",
		Body:     req,
	})
	return err
}

func decodeProduct(resp *Response) (*types.Product, error) {
	var wrapped struct {
		Product *types.Product `json:"product"`
	}
	if err := resp.Decode(&wrapped); err == nil && wrapped.Product != nil {
		return wrapped.Product, nil
	}
	var product types.Product
	if err := resp.Decode(&product); err != nil {
		return nil, err
	}
	return &product, nil
}
