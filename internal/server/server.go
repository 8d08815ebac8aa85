// Package server exposes the sealer over HTTP.
package server

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"aegis/internal/config"
	"aegis/internal/logging"
	"aegis/internal/metrics"
)

const readHeaderTimeout = 10 * time.Second

// Server holds what request handlers share. Everything is read-only after
// New, so handlers run concurrently without coordination.
type Server struct {
	cfg      config.Config
	key      *ecdsa.PrivateKey
	log      zerolog.Logger
	registry *prometheus.Registry
	metrics  *metrics.Metrics
}

// New builds a server. key may be nil, in which case /seal answers with an
// internal error until the operator configures one.
func New(cfg config.Config, key *ecdsa.PrivateKey, logger zerolog.Logger, registry *prometheus.Registry) *Server {
	return &Server{
		cfg:      cfg,
		key:      key,
		log:      logger,
		registry: registry,
		metrics:  metrics.New(registry),
	}
}

// Handler returns the complete HTTP handler including middleware.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/seal", s.handleSeal).Methods(http.MethodPost)
	r.HandleFunc("/verify", s.handleVerify).Methods(http.MethodPost)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/", s.handleRoot).Methods(http.MethodGet, http.MethodHead)
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	r.Use(s.limitBody)

	c := cors.New(cors.Options{
		AllowedOrigins: s.cfg.Server.CORS.AllowedOrigins,
		AllowedMethods: s.cfg.Server.CORS.AllowedMethods,
		AllowedHeaders: s.cfg.Server.CORS.AllowedHeaders,
	})

	// request IDs and access logs wrap the router so 404 and 405 answers
	// are tagged and timed as well
	return s.requestID(s.accessLog(r, lowerPreflightHeaders(c.Handler(r))))
}

// Run listens on the configured address and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr(), err)
	}

	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled, then shuts down gracefully
// within the configured shutdown timeout.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		ErrorLog:          log.New(logging.NewStdLogWriter(s.log.Warn), "", 0),
	}

	if s.cfg.Server.CORS.AllowsAnyOrigin() {
		s.log.Warn().Msg("CORS is configured to allow all origins")
	}
	if s.key == nil {
		s.log.Warn().Msg("no private key configured; /seal will fail until one is set")
	}

	s.log.Info().Str("addr", ln.Addr().String()).Msg("aegis sealer listening")

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		s.log.Info().Dur("timeout", s.cfg.Server.ShutdownTimeout).Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}
