// Package server exposes a page and detail provider as an HTTP items API.
//
// Routes:
//   - GET /items?offset=N&count=M
//   - GET /items/{id}/detail
//   - GET /health
//   - GET /metrics
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/Sternrassler/item-feed/pkg/fetch"
	"github.com/Sternrassler/item-feed/pkg/item"
	"github.com/Sternrassler/item-feed/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "itemfeed_http_requests_total",
		Help: "Total HTTP requests served by route and status",
	}, []string{"route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "itemfeed_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds by route",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
)

// Config holds the server configuration.
type Config struct {
	// Addr to listen on, e.g. ":8080"
	Addr string

	// MaxPageSize caps the count query parameter
	MaxPageSize int

	// DefaultPageSize is used when count is omitted
	DefaultPageSize int

	// RequestTimeout bounds each provider call
	RequestTimeout time.Duration

	// ShutdownTimeout bounds graceful shutdown
	ShutdownTimeout time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Addr:            ":8080",
		MaxPageSize:     100,
		DefaultPageSize: 20,
		RequestTimeout:  30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Server serves the items API.
type Server struct {
	pages   fetch.PageProvider
	details fetch.DetailProvider
	config  Config
	logger  zerolog.Logger
	mux     *http.ServeMux
}

// New creates a server for the given providers.
func New(pages fetch.PageProvider, details fetch.DetailProvider, cfg Config) (*Server, error) {
	if pages == nil {
		return nil, fmt.Errorf("page provider is required")
	}
	if details == nil {
		return nil, fmt.Errorf("detail provider is required")
	}
	if cfg.MaxPageSize <= 0 {
		return nil, fmt.Errorf("max page size must be > 0 (got %d)", cfg.MaxPageSize)
	}
	if cfg.DefaultPageSize <= 0 || cfg.DefaultPageSize > cfg.MaxPageSize {
		cfg.DefaultPageSize = cfg.MaxPageSize
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}

	s := &Server{
		pages:   pages,
		details: details,
		config:  cfg,
		logger:  logging.NewLogger("items-server"),
		mux:     http.NewServeMux(),
	}

	s.mux.HandleFunc("GET /health", s.instrument("health", healthHandler))
	s.mux.HandleFunc("GET /items", s.instrument("items", s.itemsHandler))
	s.mux.HandleFunc("GET /items/{id}/detail", s.instrument("detail", s.detailHandler))
	s.mux.Handle("GET /metrics", promhttp.Handler())

	return s, nil
}

// Handler returns the HTTP handler for all routes.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.config.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", ln.Addr().String()).Msg("Items API listening")
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	s.logger.Info().Msg("Shutting down items API")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

func (s *Server) itemsHandler(w http.ResponseWriter, r *http.Request) {
	offset, err := queryInt(r, "offset", 0)
	if err != nil || offset < 0 {
		writeError(w, http.StatusBadRequest, "offset must be a non-negative integer")
		return
	}
	count, err := queryInt(r, "count", s.config.DefaultPageSize)
	if err != nil || count <= 0 {
		writeError(w, http.StatusBadRequest, "count must be a positive integer")
		return
	}
	if count > s.config.MaxPageSize {
		count = s.config.MaxPageSize
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.config.RequestTimeout)
	defer cancel()

	items, err := s.pages.Page(ctx, offset, count)
	if err != nil {
		s.logger.Error().Err(err).Int("offset", offset).Int("count", count).Msg("Page lookup failed")
		writeError(w, http.StatusBadGateway, "page lookup failed")
		return
	}
	if items == nil {
		items = []item.Item{}
	}

	writeJSON(w, http.StatusOK, item.Page{Offset: offset, Count: count, Items: items})
}

func (s *Server) detailHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "item id is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.config.RequestTimeout)
	defer cancel()

	text, err := s.details.Detail(ctx, id)
	if err != nil {
		if errors.Is(err, fetch.ErrDetailNotFound) {
			writeError(w, http.StatusNotFound, "detail not found")
			return
		}
		s.logger.Error().Err(err).Str("item_id", id).Msg("Detail lookup failed")
		writeError(w, http.StatusBadGateway, "detail lookup failed")
		return
	}

	writeJSON(w, http.StatusOK, item.Detail{ItemID: id, Text: text})
}

// statusRecorder captures the response status for metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) instrument(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)

		httpRequestsTotal.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())

		s.logger.Debug().
			Str("route", route).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("Request served")
	}
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("Failed to write response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
