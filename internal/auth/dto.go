package auth

import (
	"github.com/angelmondragon/storefront/internal/cart"
	"github.com/angelmondragon/storefront/pkg/apiclient"
	"github.com/angelmondragon/storefront/pkg/types"
)

// LoginRequest captures the credentials sent to the login endpoint.
type LoginRequest = apiclient.Credentials

// RegisterRequest captures the sign-up form.
type RegisterRequest = apiclient.Registration

// Result is the session state after a successful login or registration. The
// server cart and wishlist are loaded best effort; their errors are reported
// but do not fail the login.
type Result struct {
	User        *types.User `json:"user"`
	Cart        cart.Cart   `json:"cart"`
	CartErr     error       `json:"-"`
	WishlistErr error       `json:"-"`
}
