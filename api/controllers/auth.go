package controllers

import (
	"net/http"

	"github.com/angelmondragon/storefront/api/validators"
	"github.com/angelmondragon/storefront/internal/auth"
	"github.com/angelmondragon/storefront/pkg/logger"
)

type authResponse struct {
	User  any          `json:"user"`
	Cart  cartResponse `json:"cart"`
	Notes []string     `json:"warnings,omitempty"`
}

func newAuthResponse(res *auth.Result) authResponse {
	out := authResponse{User: res.User, Cart: newCartResponse(res.Cart, "")}
	if res.CartErr != nil {
		out.Notes = append(out.Notes, "Your saved cart could not be loaded.")
	}
	if res.WishlistErr != nil {
		out.Notes = append(out.Notes, "Your wishlist could not be loaded.")
	}
	return out
}

func AuthLogin(svc auth.Service, notes Notifier, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req auth.LoginRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			fail(r.Context(), logg, notes, w, err)
			return
		}
		res, err := svc.Login(r.Context(), req)
		if err != nil {
			fail(r.Context(), logg, notes, w, err)
			return
		}
		succeed(w, notes, http.StatusOK, newAuthResponse(res), "Welcome back!")
	}
}

func AuthRegister(svc auth.Service, notes Notifier, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req auth.RegisterRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			fail(r.Context(), logg, notes, w, err)
			return
		}
		res, err := svc.Register(r.Context(), req)
		if err != nil {
			fail(r.Context(), logg, notes, w, err)
			return
		}
		succeed(w, notes, http.StatusCreated, newAuthResponse(res), "Account created")
	}
}

// AuthLogout always clears local state; a partial failure is still reported.
func AuthLogout(svc auth.Service, notes Notifier, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Logout(r.Context()); err != nil {
			fail(r.Context(), logg, notes, w, err)
			return
		}
		succeed(w, notes, http.StatusOK, map[string]bool{"signedOut": true}, "Signed out")
	}
}
