package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/storefront/internal/cart"
	"github.com/angelmondragon/storefront/internal/session"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/types"
)

type sessionReader interface {
	Snapshot(ctx context.Context) (session.Session, error)
}

type cartReader interface {
	Current(ctx context.Context) (cart.Cart, error)
}

type wishlistReader interface {
	IDs() []string
}

type sessionResponse struct {
	State         string      `json:"state"`
	Authenticated bool        `json:"authenticated"`
	User          *types.User `json:"user"`
	CartCount     int         `json:"cartCount"`
	Wishlist      []string    `json:"wishlist"`
}

// SessionGet describes what the UI should render right now: the bootstrap
// state, the trusted user and the badge counts.
func SessionGet(sessions sessionReader, carts cartReader, wishlist wishlistReader, boot stateReader, notes Notifier, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := sessions.Snapshot(r.Context())
		if err != nil {
			fail(r.Context(), logg, notes, w, err)
			return
		}
		current, err := carts.Current(r.Context())
		if err != nil {
			fail(r.Context(), logg, notes, w, err)
			return
		}
		succeed(w, notes, http.StatusOK, sessionResponse{
			State:         boot.State().String(),
			Authenticated: snap.Authenticated(),
			User:          snap.User,
			CartCount:     current.TotalQuantity(),
			Wishlist:      wishlist.IDs(),
		}, "")
	}
}
