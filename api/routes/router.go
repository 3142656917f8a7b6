package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/storefront/api/controllers"
	"github.com/angelmondragon/storefront/api/middleware"
	"github.com/angelmondragon/storefront/internal/storefront"
)

// NewRouter exposes one storefront session to a local UI.
func NewRouter(app *storefront.App) http.Handler {
	cfg, logg := app.Config, app.Logger
	notes := app.Notifications

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, app.Store, app.Bootstrap))
	})
	r.Handle("/metrics", promhttp.HandlerFor(app.Registry, promhttp.HandlerOpts{Registry: app.Registry}))

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Session(app.Sessions, logg))

		r.Get("/session", controllers.SessionGet(app.Sessions, app.Carts, app.Wishlist, app.Bootstrap, notes, logg))

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ProductsList(app.Catalog, notes, logg))
			r.Get("/{productId}", controllers.ProductGet(app.Catalog, notes, logg))
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartGet(app.Carts, notes, logg))

			// mutations wait for bootstrap so the server cart cannot replace them
			r.Group(func(r chi.Router) {
				r.Use(middleware.AwaitReady(app.Bootstrap, cfg.API.RequestTimeout, logg))
				r.Delete("/", controllers.CartClear(app.Carts, notes, logg))
				r.Post("/items", controllers.CartAddItem(app.Carts, app.Catalog, notes, logg))
				r.Patch("/items/{productId}", controllers.CartUpdateItem(app.Carts, notes, logg))
				r.Delete("/items/{productId}", controllers.CartRemoveItem(app.Carts, notes, logg))
			})
		})

		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", controllers.AuthLogin(app.Auth, notes, logg))
			r.Post("/register", controllers.AuthRegister(app.Auth, notes, logg))
			r.Post("/logout", controllers.AuthLogout(app.Auth, notes, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.NotificationCurrent(notes))
			r.Delete("/", controllers.NotificationDismiss(notes))
		})

		r.Get("/pincodes/{pincode}", controllers.PincodeCheck(app.Orders, notes, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(logg))

			r.Route("/wishlist", func(r chi.Router) {
				r.Get("/", controllers.WishlistGet(app.Wishlist, notes))
				r.Post("/{productId}/toggle", controllers.WishlistToggle(app.Wishlist, notes, logg))
			})

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.OrdersList(app.Orders, notes, logg))
				r.Post("/", controllers.Checkout(app.Orders, notes, logg))
				r.Get("/{orderId}", controllers.OrderGet(app.Orders, notes, logg))
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireAuth(logg))
			r.Use(middleware.RequireRole("admin", logg))
			r.Post("/products", controllers.AdminCreateProduct(app.Admin, notes, logg))
			r.Put("/products/{productId}", controllers.AdminUpdateProduct(app.Admin, notes, logg))
			r.Delete("/products/{productId}", controllers.AdminDeleteProduct(app.Admin, notes, logg))
			r.Put("/orders/bulk-status", controllers.AdminBulkOrderStatus(app.Admin, notes, logg))
			r.Put("/pincodes/bulk-toggle", controllers.AdminBulkPincodes(app.Admin, notes, logg))
		})
	})

	return r
}
