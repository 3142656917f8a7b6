package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/angelmondragon/storefront/api/routes"
	"github.com/angelmondragon/storefront/internal/storefront"
	"github.com/angelmondragon/storefront/pkg/config"
	"github.com/angelmondragon/storefront/pkg/env"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/joho/godotenv"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "storefront-api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "storefront-api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := storefront.New(ctx, cfg, logg, storefront.Options{})
	if err != nil {
		logg.Error(ctx, "failed to wire storefront", err)
		os.Exit(1)
	}
	defer func() {
		if err := app.Close(); err != nil {
			logg.Error(context.Background(), "error closing state store", err)
		}
	}()

	// Local state is served as soon as it is adopted; reconciliation keeps
	// running in the background on ctx.
	state, err := app.Start(ctx)
	if err != nil {
		logg.WarnErr(ctx, "bootstrap finished with errors", err)
	}

	if cfg.Jobs.Enabled {
		jobs, closeJobs, err := app.Jobs(ctx)
		if err != nil {
			logg.Error(ctx, "failed to build background jobs", err)
			os.Exit(1)
		}
		defer func() { _ = closeJobs() }()
		go func() {
			// jobs touch the session, so they wait for reconciliation
			if _, err := app.Settle(ctx); err != nil {
				return
			}
			_ = jobs.Run(ctx)
		}()
	}

	addr := "127.0.0.1:" + env.Get("PORT", cfg.App.Port)
	ctx = logg.WithFields(ctx, map[string]any{
		"env":       cfg.App.Env,
		"addr":      addr,
		"state":     cfg.State.Driver,
		"bootstrap": state.String(),
	})
	logg.Info(ctx, "starting storefront shell")

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(app),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "storefront shell stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "graceful shutdown failed", err)
		}
		logg.Info(shutdownCtx, "storefront shell stopped")
	}
}
