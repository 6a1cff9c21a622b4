// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Zyric Contributors

// Package observability serves Prometheus metrics and health checks.
package observability

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/oops"
)

// DefaultReadinessTimeout bounds a single readiness check.
const DefaultReadinessTimeout = 2 * time.Second

// ReadinessChecker returns nil when the service can take traffic. It is
// usually a database ping.
type ReadinessChecker func(ctx context.Context) error

// Registrar adds collectors to a registry, e.g. auth.RegisterMetrics.
type Registrar func(prometheus.Registerer)

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRegistrars registers application metrics on the server's registry.
func WithRegistrars(rs ...Registrar) Option {
	return func(s *Server) {
		for _, r := range rs {
			r(s.registry)
		}
	}
}

// WithCollectors registers extra collectors, such as a pool stats collector.
func WithCollectors(cs ...prometheus.Collector) Option {
	return func(s *Server) {
		s.registry.MustRegister(cs...)
	}
}

// WithReadinessTimeout overrides DefaultReadinessTimeout.
func WithReadinessTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.readinessTimeout = d
		}
	}
}

// Server provides /metrics, /healthz/liveness and /healthz/readiness.
type Server struct {
	addr             string
	listener         net.Listener
	httpServer       *http.Server
	registry         *prometheus.Registry
	isReady          ReadinessChecker
	readinessTimeout time.Duration
	logger           *slog.Logger
	running          atomic.Bool
}

// NewServer creates an observability server. addr is "host:port"; use
// "127.0.0.1:0" for an ephemeral port. A nil checker is always ready.
func NewServer(addr string, readiness ReadinessChecker, opts ...Option) *Server {
	// Own registry so tests and embedders never share the global one.
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	s := &Server{
		addr:             addr,
		registry:         registry,
		isReady:          readiness,
		readinessTimeout: DefaultReadinessTimeout,
		logger:           slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Registry returns the registry served on /metrics.
func (s *Server) Registry() *prometheus.Registry {
	return s.registry
}

// Handler returns the HTTP handler without starting a listener.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))
	mux.HandleFunc("/healthz/liveness", s.handleLiveness)
	mux.HandleFunc("/healthz/readiness", s.handleReadiness)
	return mux
}

// Start begins serving. The returned channel receives a serve error if the
// server fails after Start returns and is closed when it stops.
func (s *Server) Start() (<-chan error, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, oops.Code("OBSERVABILITY_ALREADY_RUNNING").Errorf("observability server already running")
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.running.Store(false)
		return nil, oops.Code("OBSERVABILITY_LISTEN_FAILED").With("addr", s.addr).Wrap(err)
	}
	s.listener = listener

	httpSrv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.httpServer = httpSrv

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if serveErr := httpSrv.Serve(listener); serveErr != nil && serveErr != http.ErrServerClosed {
			s.logger.Error("observability server error", "error", serveErr)
			errCh <- serveErr
		}
	}()

	s.logger.Info("observability server started", "addr", listener.Addr().String())
	return errCh, nil
}

// Stop gracefully shuts the server down. It is safe to call more than once.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.running.Store(true)
			return oops.With("operation", "shutdown observability server").Wrap(err)
		}
	}

	s.logger.Info("observability server stopped")
	return nil
}

// Addr returns the listening address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

func (s *Server) handleLiveness(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	//nolint:errcheck // client may disconnect
	w.Write([]byte("ok\n"))
}

func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	if s.isReady != nil {
		ctx, cancel := context.WithTimeout(r.Context(), s.readinessTimeout)
		defer cancel()
		if err := s.isReady(ctx); err != nil {
			s.logger.WarnContext(ctx, "readiness check failed", "error", err)
			w.WriteHeader(http.StatusServiceUnavailable)
			//nolint:errcheck // client may disconnect
			w.Write([]byte("not ready\n"))
			return
		}
	}

	w.WriteHeader(http.StatusOK)
	//nolint:errcheck // client may disconnect
	w.Write([]byte("ok\n"))
}
