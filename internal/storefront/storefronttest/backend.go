// Package storefronttest runs an in-process storefront API for tests.
package storefronttest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront/pkg/types"
)

const (
	Token     = "test-token"
	CSRFToken = "csrf-1"
	Password  = "secret123"
)

// Backend is a minimal storefront API holding one account.
type Backend struct {
	*httptest.Server

	mu        sync.Mutex
	user      types.User
	products  []types.Product
	cart      json.RawMessage
	wishlist  []string
	orders    []types.Order
	cartSaves int
	cartHold  chan struct{}
	calls     map[string]int
}

// NewBackend starts a backend seeded with products. Close it when done.
func NewBackend(products ...types.Product) *Backend {
	b := &Backend{
		user:     types.User{ID: "u1", Name: "Asha", Email: "asha@example.com", Role: "customer"},
		products: products,
		cart:     json.RawMessage(`[]`),
		calls:    map[string]int{},
	}
	b.Server = httptest.NewServer(b.routes())
	return b
}

// Product builds a catalog entry.
func Product(id, name, price string, stock int) types.Product {
	return types.Product{ID: types.ID(id), Name: name, Category: "tees", Price: decimal.RequireFromString(price), Stock: stock}
}

func (b *Backend) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			b.mu.Lock()
			b.calls[req.Method+" "+req.URL.Path]++
			b.mu.Unlock()
			next.ServeHTTP(w, req)
		})
	})

	r.Get("/api/csrf-token", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"csrfToken": CSRFToken})
	})
	r.Get("/api/products", func(w http.ResponseWriter, _ *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{"products": b.products})
	})
	r.Post("/api/login", func(w http.ResponseWriter, req *http.Request) {
		var creds struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		_ = json.NewDecoder(req.Body).Decode(&creds)
		b.mu.Lock()
		defer b.mu.Unlock()
		if !strings.EqualFold(creds.Email, b.user.Email) || creds.Password != Password {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid credentials"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"token": Token, "user": b.user})
	})

	r.Group(func(r chi.Router) {
		r.Use(b.requireToken)
		r.Get("/api/profile", func(w http.ResponseWriter, _ *http.Request) {
			b.mu.Lock()
			defer b.mu.Unlock()
			writeJSON(w, http.StatusOK, map[string]any{"user": b.user})
		})
		r.Get("/api/cart", func(w http.ResponseWriter, _ *http.Request) {
			b.mu.Lock()
			hold := b.cartHold
			b.mu.Unlock()
			if hold != nil {
				<-hold
			}
			b.mu.Lock()
			defer b.mu.Unlock()
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write(b.cart)
		})
		r.Post("/api/cart", func(w http.ResponseWriter, req *http.Request) {
			if req.Header.Get("X-CSRF-Token") != CSRFToken {
				writeJSON(w, http.StatusForbidden, map[string]string{"message": "bad csrf token"})
				return
			}
			var body struct {
				Cart json.RawMessage `json:"cart"`
			}
			_ = json.NewDecoder(req.Body).Decode(&body)
			b.mu.Lock()
			b.cart = body.Cart
			b.cartSaves++
			b.mu.Unlock()
			writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
		})
		r.Get("/api/wishlist", func(w http.ResponseWriter, _ *http.Request) {
			b.mu.Lock()
			defer b.mu.Unlock()
			writeJSON(w, http.StatusOK, map[string]any{"wishlist": b.wishlist})
		})
		r.Post("/api/wishlist", func(w http.ResponseWriter, req *http.Request) {
			var body struct {
				ProductID string `json:"productId"`
			}
			_ = json.NewDecoder(req.Body).Decode(&body)
			b.mu.Lock()
			b.wishlist = append(b.wishlist, body.ProductID)
			b.mu.Unlock()
			writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
		})
		r.Delete("/api/wishlist/{id}", func(w http.ResponseWriter, req *http.Request) {
			id := chi.URLParam(req, "id")
			b.mu.Lock()
			kept := b.wishlist[:0]
			for _, existing := range b.wishlist {
				if existing != id {
					kept = append(kept, existing)
				}
			}
			b.wishlist = kept
			b.mu.Unlock()
			writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
		})
		r.Get("/api/orders", func(w http.ResponseWriter, _ *http.Request) {
			b.mu.Lock()
			defer b.mu.Unlock()
			writeJSON(w, http.StatusOK, map[string]any{"orders": b.orders})
		})
	})
	return r
}

func (b *Backend) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.Header.Get("Authorization") != "Bearer "+Token {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Not authorized"})
			return
		}
		next.ServeHTTP(w, req)
	})
}

// SetCart seeds the server-side cart.
func (b *Backend) SetCart(lines []types.CartLine) {
	raw, _ := json.Marshal(lines)
	b.mu.Lock()
	b.cart = raw
	b.mu.Unlock()
}

// HoldCart makes cart reads block until the returned release func is called.
func (b *Backend) HoldCart() (release func()) {
	hold := make(chan struct{})
	b.mu.Lock()
	b.cartHold = hold
	b.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			b.cartHold = nil
			b.mu.Unlock()
			close(hold)
		})
	}
}

// Cart returns the lines last saved by a client.
func (b *Backend) Cart() []types.CartLine {
	b.mu.Lock()
	raw := b.cart
	b.mu.Unlock()
	var lines []types.CartLine
	_ = json.Unmarshal(raw, &lines)
	return lines
}

// CartSaves counts accepted cart pushes.
func (b *Backend) CartSaves() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cartSaves
}

// SetWishlist seeds the wishlist ids.
func (b *Backend) SetWishlist(ids ...string) {
	b.mu.Lock()
	b.wishlist = append([]string(nil), ids...)
	b.mu.Unlock()
}

// Calls reports how often "METHOD /path" was requested.
func (b *Backend) Calls(route string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[route]
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
