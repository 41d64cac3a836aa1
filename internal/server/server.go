package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"parking-facility/config"
	"parking-facility/internal/facility"
	"parking-facility/internal/logging"
)

type Server struct {
	httpServer *http.Server
	handler    *Handler
}

func NewServer(cfg config.ServerConfig, registry *facility.InstrumentedRegistry) *Server {
	handler := NewHandler(registry)

	limiter := NewIPRateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst)
	cacheTTL := time.Duration(cfg.CacheTTLSeconds) * time.Second
	statusCache := cache.New(cacheTTL, 10*cacheTTL)

	r := chi.NewRouter()

	r.Use(RecoveryMiddleware)
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)
	r.Use(TracingMiddleware)
	r.Use(CORSMiddleware)
	r.Use(limiter.Middleware)

	r.Get("/health", handler.HealthCheck)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Route("/api/facility", func(r chi.Router) {
		r.Post("/enter", handler.Enter)
		r.Post("/leave", handler.Leave)
		r.Post("/subscribe", handler.Subscribe)
		r.Post("/reserve", handler.Reserve)
		r.Get("/history/{vehicle}", handler.History)

		r.Group(func(r chi.Router) {
			r.Use(CacheMiddleware(statusCache, cacheTTL))
			r.Get("/status", handler.Status)
			r.Get("/status/{floor}", handler.FloorStatus)
		})
	})

	httpServer := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		handler:    handler,
	}
}

func (s *Server) Start() error {
	logger := logging.Logger()
	logger.Info().Str("addr", s.httpServer.Addr).Msg("starting HTTP server")
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	logger := logging.Logger()
	logger.Info().Msg("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}
