// Command plannerd is the HTTP daemon form of the planner: an ambient gin
// shell (authentication, /metrics, JSON encoding) around driver.RunTurn.
// None of this package is part of the core; it exists purely to expose the
// core over a network boundary (spec §1 Non-goals: authN/authZ, transport).
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/beefkknd/deterministic-planner/internal/apiserver"
	"github.com/beefkknd/deterministic-planner/internal/config"
	"github.com/beefkknd/deterministic-planner/internal/telemetry"
	"github.com/beefkknd/deterministic-planner/internal/wiring"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "plannerd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	promReg := prometheus.NewRegistry()
	metrics := telemetry.NewPrometheusMetrics(promReg)

	app, err := wiring.BuildWithMetrics(ctx, cfg, metrics)
	if err != nil {
		return fmt.Errorf("build app: %w", err)
	}

	srv := apiserver.New(app.Driver, app.Sessions, app.Memory, cfg.JWTSecret, app.Logger,
		promhttp.HandlerFor(promReg, promhttp.HandlerOpts{}))

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		app.Logger.Info(ctx, "plannerd: listening", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
