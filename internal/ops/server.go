// Package ops serves the metrics and health endpoints of the ingest process.
package ops

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.beyond.io/tdi-ingest/internal/core"
	"golang.beyond.io/tdi-ingest/pkg/logx"
)

// Pipeline is the view of a running pipeline exposed on /healthz.
type Pipeline interface {
	Name() string
	State() core.CycleState
}

// Server is the HTTP server of the ops endpoints.
type Server struct {
	addr       net.Addr
	httpServer *http.Server

	mu sync.RWMutex
}

type health struct {
	Status    string            `json:"status"`
	Pipelines map[string]string `json:"pipelines"`
}

// NewRouter returns the ops routes: /metrics from reg, /healthz listing the state of every pipeline
// and the pprof handlers under /debug.
func NewRouter(reg prometheus.Gatherer, pipelines ...Pipeline) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		h := health{Status: "ok", Pipelines: make(map[string]string, len(pipelines))}
		for _, p := range pipelines {
			h.Pipelines[p.Name()] = p.State().String()
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(h); err != nil {
			logx.As().Warn().Err(err).Msg("Failed to write health response")
		}
	})
	r.Mount("/debug", middleware.Profiler())

	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		logx.As().Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("Ops request served")
	})
}

// New returns a server for the given listen address.
func New(address string, reg prometheus.Gatherer, pipelines ...Pipeline) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              address,
			Handler:           NewRouter(reg, pipelines...),
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// ListenAndServe blocks serving requests until the server is shut down.
// It returns http.ErrServerClosed after Shutdown.
func (s *Server) ListenAndServe() error {
	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.addr = listener.Addr()
	s.mu.Unlock()

	logx.As().Info().Str("address", listener.Addr().String()).Msg("Ops endpoint listening")
	return s.httpServer.Serve(listener)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Addr returns the address the server listens on, or "" before ListenAndServe.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.addr == nil {
		return ""
	}
	return s.addr.String()
}
