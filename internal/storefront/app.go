package storefront

import (
	"context"
	"errors"
	"fmt"

	"github.com/angelmondragon/storefront/internal/admin"
	"github.com/angelmondragon/storefront/internal/auth"
	"github.com/angelmondragon/storefront/internal/bootstrap"
	"github.com/angelmondragon/storefront/internal/cart"
	"github.com/angelmondragon/storefront/internal/catalog"
	"github.com/angelmondragon/storefront/internal/cron"
	"github.com/angelmondragon/storefront/internal/localstore"
	"github.com/angelmondragon/storefront/internal/notifications"
	"github.com/angelmondragon/storefront/internal/orders"
	"github.com/angelmondragon/storefront/internal/session"
	"github.com/angelmondragon/storefront/internal/wishlist"
	"github.com/angelmondragon/storefront/pkg/apiclient"
	"github.com/angelmondragon/storefront/pkg/config"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// App is one storefront session: the persisted state, the API client, and
// every service built on them. Construct it once per process.
type App struct {
	Config        *config.Config
	Logger        *logger.Logger
	Registry      *prometheus.Registry
	Store         localstore.Store
	Sessions      *session.Store
	API           *apiclient.Client
	Catalog       *catalog.Cache
	Carts         *cart.Manager
	Wishlist      *wishlist.Service
	Bootstrap     *bootstrap.Machine
	Auth          auth.Service
	Orders        *orders.Service
	Admin         *admin.Service
	Notifications *notifications.Notifier

	jobMetrics *metrics.JobMetrics
	closeStore localstore.Closer
}

// Options override pieces of the wiring, mostly for tests.
type Options struct {
	Store      localstore.Store
	HTTPClient apiclient.Option
}

// New opens the configured state store and wires the services.
func New(ctx context.Context, cfg *config.Config, logg *logger.Logger, opts Options) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if logg == nil {
		logg = logger.Nop()
	}

	store, closer := opts.Store, localstore.Closer(func() error { return nil })
	if store == nil {
		var err error
		store, closer, err = localstore.Open(ctx, cfg, logg)
		if err != nil {
			return nil, fmt.Errorf("open state store: %w", err)
		}
	}

	app, err := wire(cfg, logg, store, opts)
	if err != nil {
		_ = closer()
		return nil, err
	}
	app.closeStore = closer
	return app, nil
}

func wire(cfg *config.Config, logg *logger.Logger, store localstore.Store, opts Options) (*App, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	clientMetrics := metrics.NewClientMetrics(registry)
	sessions := session.NewStore(store, logg)

	api, err := apiclient.NewClient(cfg.API.BaseURL,
		opts.HTTPClient,
		apiclient.WithTimeout(cfg.API.RequestTimeout),
		apiclient.WithTokenSource(sessions),
		apiclient.WithMetrics(clientMetrics),
		apiclient.WithLogger(logg),
		apiclient.WithUserAgent(cfg.API.UserAgent),
		apiclient.WithCSRFPath(cfg.API.CSRFPath),
	)
	if err != nil {
		return nil, err
	}

	products, err := catalog.NewCache(catalog.CacheParams{
		Store:   store,
		Fetcher: api,
		TTL:     cfg.Catalog.TTL,
		Logger:  logg,
		Metrics: clientMetrics,
	})
	if err != nil {
		return nil, err
	}

	gate := bootstrap.NewGate()
	syncer := cart.NewSynchronizer(cart.SynchronizerParams{
		Saver:   api,
		Gate:    gate,
		Users:   sessions,
		Logger:  logg,
		Metrics: clientMetrics,
	})
	carts, err := cart.NewManager(cart.ManagerParams{Store: store, Syncer: syncer, Logger: logg})
	if err != nil {
		return nil, err
	}

	wl, err := wishlist.NewService(wishlist.ServiceParams{API: api, Logger: logg})
	if err != nil {
		return nil, err
	}

	machine, err := bootstrap.NewMachine(bootstrap.MachineParams{
		Gate:     gate,
		API:      api,
		Sessions: sessions,
		Carts:    carts,
		Wishlist: wl,
		Logger:   logg,
	})
	if err != nil {
		return nil, err
	}

	authSvc, err := auth.NewService(auth.ServiceParams{
		API:      api,
		Sessions: sessions,
		Carts:    carts,
		Wishlist: wl,
		CSRF:     api,
		Logger:   logg,
	})
	if err != nil {
		return nil, err
	}

	orderSvc, err := orders.NewService(orders.ServiceParams{API: api, Users: sessions, Carts: carts, Logger: logg})
	if err != nil {
		return nil, err
	}

	adminSvc, err := admin.NewService(admin.ServiceParams{API: api, Catalog: products, Logger: logg})
	if err != nil {
		return nil, err
	}

	return &App{
		Config:        cfg,
		Logger:        logg,
		Registry:      registry,
		Store:         store,
		Sessions:      sessions,
		API:           api,
		Catalog:       products,
		Carts:         carts,
		Wishlist:      wl,
		Bootstrap:     machine,
		Auth:          authSvc,
		Orders:        orderSvc,
		Admin:         adminSvc,
		Notifications: notifications.NewNotifier(cfg.Notify.DismissAfter),
		jobMetrics:    metrics.NewJobMetrics(registry),
	}, nil
}

// Start runs startup reconciliation. In the trusted path it returns before
// the background fetches finish; use Settle to wait for them.
func (a *App) Start(ctx context.Context) (bootstrap.State, error) {
	return a.Bootstrap.Run(ctx)
}

// Settle waits for reconciliation to reach Ready.
func (a *App) Settle(ctx context.Context) (bootstrap.Outcome, error) {
	return a.Bootstrap.Wait(ctx)
}

// Jobs builds the background job service run by the HTTP shell: a catalog
// warmer and a session expiry check. The returned close func releases the
// job lock's connection.
func (a *App) Jobs(ctx context.Context) (*cron.Service, func() error, error) {
	lock, closeLock, err := cron.NewLock(ctx, a.Config, a.Logger)
	if err != nil {
		return nil, closeLock, err
	}
	warm, err := cron.NewCatalogWarmJob(a.Catalog)
	if err != nil {
		return nil, closeLock, err
	}
	expiry, err := cron.NewSessionExpiryJob(cron.SessionExpiryJobParams{
		Tokens:   a.Sessions,
		Auth:     a.Auth,
		Notifier: a.Notifications,
	})
	if err != nil {
		return nil, closeLock, err
	}
	svc, err := cron.NewService(cron.ServiceParams{
		Logger:   a.Logger,
		Lock:     lock,
		Metrics:  a.jobMetrics,
		Interval: a.Config.Jobs.Interval,
		Jobs:     []cron.Job{warm, expiry},
	})
	if err != nil {
		return nil, closeLock, err
	}
	return svc, closeLock, nil
}

// Close releases the notifier timer and the state store.
func (a *App) Close() error {
	if a.Notifications != nil {
		a.Notifications.Close()
	}
	if a.closeStore != nil {
		return a.closeStore()
	}
	return nil
}
