package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	zlog "github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/client-dashboard/internal/config"
	dashboardhandler "github.com/jwalitptl/client-dashboard/internal/handler/dashboard"
	"github.com/jwalitptl/client-dashboard/internal/handler/health"
	promhandler "github.com/jwalitptl/client-dashboard/internal/handler/prometheus"
	"github.com/jwalitptl/client-dashboard/internal/router"
	"github.com/jwalitptl/client-dashboard/internal/session"
	"github.com/jwalitptl/client-dashboard/internal/worker"
)

var port int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard over HTTP",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&port, "port", "p", 0, "Listen port (overrides server.port)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if port != 0 {
		cfg.Server.Port = port
	}

	a, err := newApp(cfg, os.Stdout)
	if err != nil {
		return err
	}
	// Request logging middleware writes through the global logger.
	zlog.Logger = a.log.Zerolog()

	store := session.NewStore(session.Config{
		TTL:             cfg.Session.TTL,
		CleanupInterval: cfg.Session.CleanupInterval,
	}, a.newController, a.log.WithComponent("session"), a.metrics)
	defer store.Close()

	tmpl, err := dashboardhandler.Templates()
	if err != nil {
		return fmt.Errorf("failed to parse templates: %w", err)
	}

	gin.SetMode(gin.ReleaseMode)
	r := router.NewRouter(
		dashboardhandler.NewHandler(store, dashboardhandler.Config{
			RenderWait:   cfg.Server.RenderWait,
			CookieMaxAge: cfg.Session.TTL,
		}),
		health.NewHandler(a.api, 2*time.Second),
		promhandler.New(a.registry, metricsNamespace),
		router.RouterConfig{
			RateLimit: rate.Limit(cfg.Server.RateLimit.RequestsPerSecond),
			RateBurst: cfg.Server.RateLimit.Burst,
			Templates: tmpl,
		},
	)
	r.Setup()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           r.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("server listening", "addr", srv.Addr, "api", cfg.API.BaseURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	probe := worker.NewBackendProbe(a.api, 15*time.Second, 2*time.Second, a.metrics.BackendUp, a.log.WithComponent("probe"))
	go probe.Start(ctx)

	select {
	case err := <-errCh:
		return fmt.Errorf("failed to start server: %w", err)
	case <-ctx.Done():
	}
	a.log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	a.log.Info("server exited properly")
	return nil
}
