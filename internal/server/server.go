// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Patchbay Contributors

package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/patchbay-dev/patchbay/internal/router"
	pberr "github.com/patchbay-dev/patchbay/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config holds HTTP server configuration.
type Config struct {
	ListenAddr   string
	CORSOrigins  []string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server exposes the dispatch layer over HTTP: operation dispatch,
// aggregate health, the routing-table report, and prometheus metrics.
type Server struct {
	router     chi.Router
	api        huma.API
	cfg        Config
	dispatcher *router.Dispatcher
}

// New creates a Server wired to the given dispatcher.
func New(cfg Config, d *router.Dispatcher) (*Server, error) {
	if cfg.ListenAddr == "" {
		return nil, pberr.New(pberr.CodeServerStartFailure, "listen address is required")
	}
	if d == nil {
		return nil, pberr.New(pberr.CodeServerStartFailure, "dispatcher is required")
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 120 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(corsMiddleware(cfg.CORSOrigins))

	humaConfig := huma.DefaultConfig("Patchbay Dispatch", "0.1.0")
	humaConfig.Info.Description = "Health-aware routing of named operations across compute backends"
	api := humachi.New(r, humaConfig)

	srv := &Server{
		router:     r,
		api:        api,
		cfg:        cfg,
		dispatcher: d,
	}
	srv.registerRoutes()

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return srv, nil
}

// Handler returns the underlying http.Handler for testing.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start runs the HTTP server and blocks until the context is cancelled,
// then performs graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return pberr.Wrapf(err, pberr.CodeServerStartFailure, "listening on %s", s.cfg.ListenAddr)
	}

	srv := &http.Server{
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return pberr.Wrap(err, pberr.CodeServerShutdownFailure, "shutting down")
	}

	return <-errCh
}

func corsMiddleware(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173"}
	}

	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	})
}
