package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"middleoffice/internal/platform/config"
	"middleoffice/internal/platform/httpserver"
	"middleoffice/internal/platform/logger"
)

func main() {
	startCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	cfg, err := config.Load(startCtx)
	log := logger.New(cfg.LogLevel)
	if err != nil {
		cancel()
		log.Error("failed to load remote configuration", "error", err)
		os.Exit(1)
	}

	b, err := openBackends(startCtx, cfg, log)
	cancel()
	if err != nil {
		log.Error("failed to initialise backends", "error", err)
		os.Exit(1)
	}
	if cfg.Auth.JWKSURL == "" {
		log.Warn("JWKS_URL not set, /api/anys will answer 503")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	srv := httpserver.New(cfg.Addr, newRouter(cfg, b, reg, log), cfg.RequestTimeout)

	log.Info("starting middleoffice", "addr", cfg.Addr)

	serveErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	var result *multierror.Error
	select {
	case sig := <-quit:
		log.Info("shutting down", "signal", sig.String())
	case err := <-serveErr:
		result = multierror.Append(result, err)
	}

	ctx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := srv.Shutdown(ctx); err != nil {
		result = multierror.Append(result, err)
	}
	if err := b.Close(ctx); err != nil {
		result = multierror.Append(result, err)
	}
	if err := result.ErrorOrNil(); err != nil {
		log.Error("shutdown finished with errors", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}
