// Package api serves resolved constellations over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/litescript/ls-constellations/internal/astro"
	"github.com/litescript/ls-constellations/internal/logging"
	"github.com/litescript/ls-constellations/internal/metrics"
	"github.com/litescript/ls-constellations/internal/resolver"
	"github.com/litescript/ls-constellations/internal/store"
)

// ReadyTimeout bounds the store ping behind /readyz.
const ReadyTimeout = 500 * time.Millisecond

// Server exposes the constellation API.
type Server struct {
	store   store.Store
	log     *logging.Logger
	metrics *metrics.Metrics
	limiter *RateLimiter
	// trustProxy takes the client from X-Forwarded-For.
	trustProxy bool
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the access and error logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Server) {
		s.log = l
	}
}

// WithMetrics records request metrics and serves /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithRateLimiter applies per-client rate limiting to the API routes.
func WithRateLimiter(rl *RateLimiter) Option {
	return func(s *Server) {
		s.limiter = rl
	}
}

// WithTrustProxy keys clients by the first X-Forwarded-For hop. Enable it
// only when a reverse proxy in front of the server sets that header.
func WithTrustProxy(trust bool) Option {
	return func(s *Server) {
		s.trustProxy = trust
	}
}

// NewServer creates a Server reading from st.
func NewServer(st store.Store, opts ...Option) *Server {
	s := &Server{store: st, log: logging.Discard()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("GET /api/constellations", s.handleList)
	api.HandleFunc("GET /api/constellations/{$}", s.handleInfo)

	var apiHandler http.Handler = api
	if s.limiter != nil {
		apiHandler = s.limiter.middleware(s.log, s.clientKey, apiHandler)
	}

	mux := http.NewServeMux()
	mux.Handle("/api/", apiHandler)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}

	var h http.Handler = mux
	h = metricsMiddleware(s.metrics, h)
	h = accessLogMiddleware(s.log, s.clientKey, h)
	h = recoveryMiddleware(s.log, h)
	return h
}

func (s *Server) clientKey(r *http.Request) string {
	return clientKey(r, s.trustProxy)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("api: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.log.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("api: shutdown: %w", err)
	}
	return nil
}

// Summary is a constellation without its descriptive text.
type Summary struct {
	ID               string                `json:"id"`
	Name             string                `json:"name"`
	AstronomicalData []resolver.StarRecord `json:"astronomical_data"`
	Connections      []string              `json:"connections"`
	// Center is the mean render-frame position of the located stars, or
	// null when none is located.
	Center []float64 `json:"center"`
	// Direction is the mean unit vector towards the located stars.
	Direction []float64 `json:"direction"`
	// SpanDeg is the widest angle between two stars with a known position.
	SpanDeg float64 `json:"span_deg"`
}

type listResponse struct {
	Constellations []Summary `json:"constellations"`
}

type infoResponse struct {
	GeneralInfo string `json:"general_info"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	all, err := s.store.List(r.Context())
	if err != nil {
		s.log.Error("list constellations: %v", err)
		writeError(s.log, w, http.StatusInternalServerError, "Could not load constellations")
		return
	}

	out := listResponse{Constellations: make([]Summary, 0, len(all))}
	for _, c := range all {
		out.Constellations = append(out.Constellations, summarize(c))
	}
	writeJSON(s.log, w, http.StatusOK, out)
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		writeError(s.log, w, http.StatusBadRequest, "Query parameter 'name' is required")
		return
	}

	c, err := s.store.GetByName(r.Context(), name)
	if errors.Is(err, store.ErrNotFound) {
		writeError(s.log, w, http.StatusNotFound, fmt.Sprintf("Constellation %s not found", name))
		return
	}
	if err != nil {
		s.log.Error("get constellation %q: %v", name, err)
		writeError(s.log, w, http.StatusInternalServerError, "Could not load constellation")
		return
	}
	writeJSON(s.log, w, http.StatusOK, infoResponse{GeneralInfo: c.GeneralInfo})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(s.log, w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), ReadyTimeout)
	defer cancel()
	if err := s.store.Ping(ctx); err != nil {
		s.log.Warn("readiness: %v", err)
		writeError(s.log, w, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	writeJSON(s.log, w, http.StatusOK, map[string]string{"status": "ready"})
}

func summarize(c store.Constellation) Summary {
	var (
		points []astro.Vec3
		sky    []astro.SkyPoint
	)
	for _, rec := range c.AstronomicalData {
		if v, ok := astro.Vec3FromSlice(rec.Cartesian); ok {
			points = append(points, v)
		}
		if rec.RA != nil && rec.Dec != nil {
			sky = append(sky, astro.SkyPoint{RA: *rec.RA, Dec: *rec.Dec})
		}
	}

	sum := Summary{
		ID:               c.ID.String(),
		Name:             c.Name,
		AstronomicalData: c.AstronomicalData,
		Connections:      c.Connections,
		SpanDeg:          astro.AngularSpan(sky),
	}
	if len(points) > 0 {
		sum.Center = astro.Centroid(points).Slice()
		sum.Direction = astro.ProjectedCentroid(points).Slice()
	}
	return sum
}

// writeJSON encodes v after the header is sent, so a failed encode can
// only be logged.
func writeJSON(log *logging.Logger, w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("encode %T response: %v", v, err)
	}
}

func writeError(log *logging.Logger, w http.ResponseWriter, code int, detail string) {
	writeJSON(log, w, code, errorResponse{Detail: detail})
}
