// Command dispatchd accepts messages over HTTP and delivers them through a
// prioritized list of providers.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jonwraymond/dispatchops/config"
	"github.com/jonwraymond/dispatchops/delivery"
	"github.com/jonwraymond/dispatchops/health"
	"github.com/jonwraymond/dispatchops/observe"
	"github.com/jonwraymond/dispatchops/queue"
	"github.com/jonwraymond/dispatchops/server"
)

func main() {
	var cfgPath, envFile string
	flag.StringVar(&cfgPath, "config", "", "path to YAML or JSON config (defaults when empty)")
	flag.StringVar(&envFile, "env-file", config.DefaultEnvFile, "dotenv file loaded before expansion")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfgPath, envFile); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfgPath, envFile string) error {
	cfg, err := config.Load(cfgPath, config.WithEnvFile(envFile))
	if err != nil {
		return err
	}

	obs, err := observe.NewObserver(ctx, cfg.ObserveConfig())
	if err != nil {
		return err
	}
	defer func() {
		sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer scancel()
		_ = obs.Shutdown(sctx)
	}()
	logger := obs.Logger()

	mw, err := observe.MiddlewareFromObserver(obs)
	if err != nil {
		return err
	}

	reg, err := cfg.Registry()
	if err != nil {
		return err
	}
	orch, err := delivery.New(reg, cfg.DeliveryConfig(),
		delivery.WithMiddleware(mw),
		delivery.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	agg := health.NewAggregator()
	agg.Register("providers", delivery.BreakerChecker(orch))
	agg.Register("status_store", delivery.StoreChecker(orch))

	drainer, err := queue.NewDrainer(queue.New(), orch, queue.DrainerConfig{
		Schedule:      cfg.Queue.Schedule,
		MaxConcurrent: cfg.Queue.MaxConcurrent,
	}, queue.WithLogger(logger))
	if err != nil {
		return err
	}

	opts := []server.Option{server.WithHealth(agg), server.WithLogger(logger)}
	if cfg.Observe.Metrics.Enabled && cfg.Observe.Metrics.Exporter == "prometheus" {
		opts = append(opts, server.WithMetricsHandler(promhttp.Handler()))
	}
	srv := server.New(orch, drainer, opts...)

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	if err := drainer.Start(); err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "server started", observe.F("addr", cfg.Server.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			_ = drainer.Stop(context.Background())
			return fmt.Errorf("serve: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info(context.Background(), "shutting down")
	sctx, scancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
	defer scancel()

	shutdownErr := httpServer.Shutdown(sctx)
	if err := drainer.Stop(sctx); err != nil {
		shutdownErr = errors.Join(shutdownErr, err)
	}
	// Deliver whatever was accepted before the listener closed.
	if n := drainer.Drain(sctx); n > 0 {
		logger.Info(context.Background(), "final drain", observe.F("count", n))
	}
	return shutdownErr
}
