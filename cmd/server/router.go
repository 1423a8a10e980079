package main

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	dochandler "middleoffice/internal/document/handler"
	docmetrics "middleoffice/internal/document/metrics"
	docservice "middleoffice/internal/document/service"
	jwttoken "middleoffice/internal/jwt_token"
	"middleoffice/internal/platform/config"
	"middleoffice/internal/platform/metrics"
	"middleoffice/internal/platform/middleware"
	userhandler "middleoffice/internal/user/handler"
	userservice "middleoffice/internal/user/service"
	"middleoffice/pkg/platform/middleware/auth"
	"middleoffice/pkg/platform/middleware/metadata"
	"middleoffice/pkg/platform/middleware/requesttime"
)

// newRouter wires handlers, services and middleware over b.
func newRouter(cfg config.Server, b *backends, reg *prometheus.Registry, logger *slog.Logger) http.Handler {
	httpMetrics := metrics.New(reg)

	docOpts := []docservice.Option{
		docservice.WithLogger(logger),
		docservice.WithMetrics(docmetrics.New(reg)),
		docservice.WithLocker(b.locker),
	}
	if b.publisher != nil {
		docOpts = append(docOpts, docservice.WithPublisher(b.publisher))
	}
	documents := docservice.New(b.documents, docOpts...)

	users := userservice.New(b.users,
		userservice.WithLogger(logger),
		userservice.WithMetrics(httpMetrics),
	)

	guard := jwttoken.NewGuard(jwttoken.Config{
		JWKSURL:   cfg.Auth.JWKSURL,
		Algorithm: cfg.Auth.Algorithm,
		Timeout:   cfg.Auth.Timeout,
	}, logger)
	requireAuth := auth.RequireAuth(jwttoken.NewGuardAdapter(guard), httpMetrics, logger)

	r := chi.NewRouter()
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Metrics(httpMetrics))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", middleware.HeaderRequestID},
		ExposedHeaders: []string{middleware.HeaderRequestID},
		MaxAge:         300,
	}))

	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	r.Get("/health", b.health.Handler())

	r.Group(func(api chi.Router) {
		api.Use(middleware.Timeout(cfg.RequestTimeout))
		dochandler.New(documents, logger, requireAuth).Register(api)
		userhandler.New(users, logger).Register(api)
	})
	return r
}
