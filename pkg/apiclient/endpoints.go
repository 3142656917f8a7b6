package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/types"
	"github.com/shopspring/decimal"
)

// Credentials is the login payload.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Registration is the sign-up payload.
type Registration struct {
	Name     string `json:"name" validate:"required,min=2"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone,omitempty" validate:"omitempty,min=10,max=15"`
	Password string `json:"password" validate:"required,min=6"`
}

// AuthResult is the login/register response.
type AuthResult struct {
	Token string      `json:"token"`
	User  *types.User `json:"user"`
}

// OrderRequest is the checkout handoff payload.
type OrderRequest struct {
	Items           []types.CartLine `json:"items"`
	ShippingAddress types.Address    `json:"shippingAddress"`
	PaymentMethod   string           `json:"paymentMethod"`
	CouponCode      string           `json:"couponCode,omitempty"`
}

// Products fetches the full catalog. Both a bare array and {products:[...]}
// are accepted.
func (c *Client) Products(ctx context.Context) ([]types.Product, error) {
	resp, err := c.Do(ctx, Request{Method: http.MethodGet, Path: "/api/products", Endpoint: "products"})
	if err != nil {
		return nil, err
	}
	var products []types.Product
	if err := decodeList(resp, "products", &products); err != nil {
		return nil, err
	}
	return products, nil
}

// Profile validates the current token and returns the user it belongs to.
func (c *Client) Profile(ctx context.Context) (*types.User, error) {
	resp, err := c.Do(ctx, Request{Method: http.MethodGet, Path: "/api/profile", Endpoint: "profile"})
	if err != nil {
		return nil, err
	}
	var wrapped struct {
		User *types.User `json:"user"`
	}
	if err := resp.Decode(&wrapped); err == nil && wrapped.User != nil {
		return wrapped.User, nil
	}
	var user types.User
	if err := resp.Decode(&user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Cart fetches the server-side cart. Both a bare array and {cart:[...]} are accepted.
func (c *Client) Cart(ctx context.Context) ([]types.CartLine, error) {
	resp, err := c.Do(ctx, Request{Method: http.MethodGet, Path: "/api/cart", Endpoint: "cart"})
	if err != nil {
		return nil, err
	}
	var lines []types.CartLine
	if err := decodeList(resp, "cart", &lines); err != nil {
		return nil, err
	}
	return lines, nil
}

// SaveCart replaces the server-side cart with lines.
func (c *Client) SaveCart(ctx context.Context, lines []types.CartLine) error {
	if lines == nil {
		lines = []types.CartLine{}
	}
	_, err := c.DoProtected(ctx, Request{
		Method:   http.MethodPost,
		Path:     "/api/cart",
		Endpoint: "cart_save",
		Body:     map[string]any{"cart": lines},
	})
	return err
}

// Wishlist returns the raw wishlist body; its shape varies between deployments.
func (c *Client) Wishlist(ctx context.Context) (json.RawMessage, error) {
	resp, err := c.Do(ctx, Request{Method: http.MethodGet, Path: "/api/wishlist", Endpoint: "wishlist"})
	if err != nil {
		return nil, err
	}
	return json.RawMessage(resp.Body), nil
}

func (c *Client) AddWishlist(ctx context.Context, productID string) error {
	_, err := c.DoProtected(ctx, Request{
		Method:   http.MethodPost,
		Path:     "/api/wishlist",
		Endpoint: "wishlist_add",
		Body:     map[string]string{"productId": productID},
	})
	return err
}

func (c *Client) RemoveWishlist(ctx context.Context, productID string) error {
	_, err := c.DoProtected(ctx, Request{
		Method:   http.MethodDelete,
		Path:     "/api/wishlist/" + url.PathEscape(productID),
		Endpoint: "wishlist_remove",
	})
	return err
}

func (c *Client) Login(ctx context.Context, creds Credentials) (*AuthResult, error) {
	return c.authenticate(ctx, "/api/login", "login", creds)
}

func (c *Client) Register(ctx context.Context, reg Registration) (*AuthResult, error) {
	return c.authenticate(ctx, "/api/register", "register", reg)
}

func (c *Client) authenticate(ctx context.Context, path, endpoint string, body any) (*AuthResult, error) {
	resp, err := c.Do(ctx, Request{Method: http.MethodPost, Path: path, Endpoint: endpoint, Body: body})
	if err != nil {
		return nil, err
	}
	var result AuthResult
	if err := resp.Decode(&result); err != nil {
		return nil, err
	}
	if strings.TrimSpace(result.Token) == "" || result.User == nil {
		return nil, pkgerrors.New(pkgerrors.CodeMalformedResponse, endpoint+" response missing token or user")
	}
	return &result, nil
}

func (c *Client) Orders(ctx context.Context) ([]types.Order, error) {
	resp, err := c.Do(ctx, Request{Method: http.MethodGet, Path: "/api/orders", Endpoint: "orders"})
	if err != nil {
		return nil, err
	}
	var orders []types.Order
	if err := decodeList(resp, "orders", &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (c *Client) Order(ctx context.Context, id string) (*types.Order, error) {
	resp, err := c.Do(ctx, Request{Method: http.MethodGet, Path: "/api/orders/" + url.PathEscape(id), Endpoint: "order"})
	if err != nil {
		return nil, err
	}
	return decodeOrder(resp)
}

func (c *Client) PlaceOrder(ctx context.Context, req OrderRequest) (*types.Order, error) {
	resp, err := c.DoProtected(ctx, Request{Method: http.MethodPost, Path: "/api/orders", Endpoint: "order_place", Body: req})
	if err != nil {
		return nil, err
	}
	return decodeOrder(resp)
}

func (c *Client) CheckPincode(ctx context.Context, code string) (*types.PincodeStatus, error) {
	resp, err := c.Do(ctx, Request{Method: http.MethodGet, Path: "/api/pincodes/" + url.PathEscape(code), Endpoint: "pincode"})
	if err != nil {
		return nil, err
	}
	var status types.PincodeStatus
	if err := resp.Decode(&status); err != nil {
		return nil, err
	}
	if status.Pincode == "" {
		status.Pincode = code
	}
	return &status, nil
}

func (c *Client) ValidateCoupon(ctx context.Context, code string, subtotal decimal.Decimal) (*types.CouponResult, error) {
	resp, err := c.DoProtected(ctx, Request{
		Method:   http.MethodPost,
		Path:     "/api/coupons/validate",
		Endpoint: "coupon_validate",
		Body:     map[string]any{"code": code, "subtotal": subtotal},
	})
	if err != nil {
		return nil, err
	}
	var result types.CouponResult
	if err := resp.Decode(&result); err != nil {
		return nil, err
	}
	return &result, nil
}

// decodeList accepts either a bare JSON array or an object holding the array
// under key.
func decodeList(resp *Response, key string, out any) error {
	body := bytes.TrimSpace(resp.Body)
	if len(body) > 0 && body[0] == '[' {
		return resp.Decode(out)
	}
	var wrapped map[string]json.RawMessage
	if err := resp.Decode(&wrapped); err != nil {
		return err
	}
	inner, ok := wrapped[key]
	if !ok {
		return pkgerrors.New(pkgerrors.CodeMalformedResponse, "response missing "+key)
	}
	if err := json.Unmarshal(inner, out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeMalformedResponse, err, "decode "+key)
	}
	return nil
}

func decodeOrder(resp *Response) (*types.Order, error) {
	var wrapped struct {
		Order *types.Order `json:"order"`
	}
	if err := resp.Decode(&wrapped); err == nil && wrapped.Order != nil {
		return wrapped.Order, nil
	}
	var order types.Order
	if err := resp.Decode(&order); err != nil {
		return nil, err
	}
	return &order, nil
}
