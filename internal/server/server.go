// Package server exposes the model provider over HTTP.
package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/royteeuwen/slice"
	"github.com/royteeuwen/slice/internal/logging"
	"github.com/royteeuwen/slice/monitoring"
	"github.com/royteeuwen/slice/resource"
)

// Server renders models for HTTP requests. Every request gets its own
// execution context stack, context scope and model provider.
type Server struct {
	container slice.Container
	mapper    slice.ClassToKeyMapper
	resolver  resource.Resolver
	monitor   *monitoring.Monitor
	registry  *prometheus.Registry
	logger    *slog.Logger
	duration  *prometheus.HistogramVec
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger for request errors and model creation.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithMonitor records model usage into m. Without it the server keeps a
// monitor of its own.
func WithMonitor(m *monitoring.Monitor) Option {
	return func(s *Server) {
		s.monitor = m
	}
}

// WithRegistry exposes metrics from reg instead of a private registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) {
		s.registry = reg
	}
}

// New returns a server rendering models registered in c from the tree r.
func New(c slice.Container, mapper slice.ClassToKeyMapper, r resource.Resolver, opts ...Option) (*Server, error) {
	s := &Server{
		container: c,
		mapper:    mapper,
		resolver:  r,
		logger:    logging.NewNop(),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "slice_render_duration_seconds",
				Help:    "Time taken to render a model over HTTP.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"model", "code"},
		),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.monitor == nil {
		s.monitor = monitoring.NewMonitor(monitoring.WithLogger(s.logger))
	}
	if s.registry == nil {
		s.registry = prometheus.NewRegistry()
	}

	if err := s.registry.Register(monitoring.NewCollector(s.monitor)); err != nil {
		return nil, err
	}
	if err := s.registry.Register(s.duration); err != nil {
		return nil, err
	}
	return s, nil
}

// Monitor returns the monitor the server records into.
func (s *Server) Monitor() *monitoring.Monitor {
	return s.monitor
}

// Handler returns the HTTP routes:
//
//	GET /models/{name}/*   render model {name} at the path following it
//	GET /stats             model usage, live and rolled over
//	GET /metrics           Prometheus metrics
//	GET /health            liveness
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/models/{name}/*", s.render)
	r.Get("/stats", s.stats)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	return r
}

// Provider returns a model provider for one request.
func (s *Server) Provider(r *http.Request) *slice.ModelProvider {
	stack := slice.NewExecutionContextStack()
	scope := slice.NewContextScope(slice.NewContextProvider())
	return slice.NewModelProvider(s.container, scope, s.mapper, stack,
		slice.WithContext(r.Context()),
		slice.WithResolver(s.resolver),
		slice.WithLogger(s.logger),
		slice.WithObserver(s.monitor.Tracker()),
	)
}

func (s *Server) render(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	name := chi.URLParam(r, "name")
	path := "/" + strings.TrimPrefix(chi.URLParam(r, "*"), "/")

	code := http.StatusOK
	defer func() {
		s.duration.WithLabelValues(name, strconv.Itoa(code)).Observe(time.Since(start).Seconds())
	}()

	model, err := s.Provider(r).GetByName(name, path)
	if err != nil {
		code = statusOf(err)
		if code == http.StatusInternalServerError {
			s.logger.Error("rendering model", "model", name, "path", path, "error", err)
		}
		s.writeJSON(w, code, map[string]string{"error": err.Error()})
		return
	}
	s.writeJSON(w, code, model)
}

type statsResponse struct {
	Live   []monitoring.Report `json:"live"`
	Totals []monitoring.Report `json:"totals"`
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, statsResponse{
		Live:   s.monitor.Live(),
		Totals: s.monitor.Totals(),
	})
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, slice.ErrUnknownType), errors.Is(err, resource.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encoding response", "error", err)
	}
}
