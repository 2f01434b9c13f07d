// Package server exposes the recommendation service over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/spigell/assessment-recommender/internal/assessment"
	"github.com/spigell/assessment-recommender/internal/catalog"
	"github.com/spigell/assessment-recommender/internal/filtering"
	"github.com/spigell/assessment-recommender/internal/recommend"
	"github.com/spigell/assessment-recommender/internal/service"
)

const (
	serviceName = "assessment-recommender"
	healthPath  = "/api/v1/health"
	metricsPath = "/metrics"

	headerCatalogVersion = "X-Catalog-Version"
)

// Recommender is the service behind the HTTP API.
type Recommender interface {
	Recommend(ctx context.Context, q service.Query) (*service.Response, error)
	Catalog() *catalog.Snapshot
}

type Config struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read-timeout"`
	WriteTimeout time.Duration `mapstructure:"write-timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle-timeout"`
	// RateLimit is the allowed API requests per second. Zero disables limiting.
	RateLimit float64 `mapstructure:"rate-limit"`
	Burst     int     `mapstructure:"burst"`
	// CORSOrigins lists allowed origins; "*" allows all.
	CORSOrigins []string `mapstructure:"cors-origins"`
	// MaxTopK bounds the top_k parameter. Zero means unbounded.
	MaxTopK int `mapstructure:"max-top-k"`
	// Version is reported by the health endpoint.
	Version string `mapstructure:"-"`
}

func DefaultConfig() Config {
	return Config{
		Addr:         ":8080",
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
		RateLimit:    20,
		Burst:        40,
		CORSOrigins:  []string{"*"},
		MaxTopK:      50,
	}
}

type Server struct {
	httpServer *http.Server
	rec        Recommender
	logger     *zap.Logger
	mux        *http.ServeMux
	metrics    *Metrics
	cfg        Config
}

func New(cfg Config, rec Recommender, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	mux := http.NewServeMux()
	s := &Server{
		rec:     rec,
		logger:  logger,
		mux:     mux,
		metrics: NewMetrics(),
		cfg:     cfg,
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	s.registerRoutes()

	s.httpServer = &http.Server{
		Addr: cfg.Addr,
		Handler: chain(mux,
			withRecover(logger),
			withRequestID(),
			withAccessLog(logger),
			withCORS(cfg.CORSOrigins),
			withRateLimit(limiter),
			withMetrics(s.metrics),
		),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /api/recommend", s.handleRecommend)
	s.mux.HandleFunc("GET /api/v1/recommend", s.handleRecommend)
	s.mux.HandleFunc("GET "+healthPath, s.handleHealth)
	s.mux.HandleFunc("GET /api/v1/catalog", s.handleCatalog)
	s.mux.Handle("GET "+metricsPath, s.metrics.Handler())
	s.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		NotFound(w, r, fmt.Sprintf("no route for %s %s", r.Method, r.URL.Path))
	})
}

// Handler returns the full middleware chain.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	q, err := s.parseQuery(r)
	if err != nil {
		BadRequest(w, r, err.Error())
		return
	}

	resp, err := s.rec.Recommend(r.Context(), q)
	switch {
	case err == nil:
	case errors.Is(err, recommend.ErrInvalidInput):
		BadRequest(w, r, err.Error())
		return
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		Unavailable(w, r, "request was cancelled before completion")
		return
	default:
		s.logger.Error("recommendation failed", zap.Error(err), zap.String("request_id", q.ID))
		InternalError(w, r, "recommendation failed")
		return
	}

	s.metrics.setCatalog(resp.Catalog.Source, resp.Catalog.Records)
	w.Header().Set(headerCatalogVersion, strconv.FormatUint(resp.Catalog.Version, 10))
	writeJSON(w, http.StatusOK, resp)
}

// parseQuery maps query parameters onto a service query. Parameters are
// query, url, top_k, test_type (comma separated), remote, adaptive,
// min_score and explain.
func (s *Server) parseQuery(r *http.Request) (service.Query, error) {
	params := r.URL.Query()
	q := service.Query{
		ID:   RequestID(r.Context()),
		Text: params.Get("query"),
		URL:  strings.TrimSpace(params.Get("url")),
	}

	if raw := strings.TrimSpace(params.Get("top_k")); raw != "" {
		k, err := strconv.Atoi(raw)
		if err != nil {
			return q, fmt.Errorf("top_k must be an integer, got %q", raw)
		}
		// Zero is reserved for "not given" inside the engine.
		if k < 1 {
			return q, fmt.Errorf("%w: top_k must be a positive integer, got %d", recommend.ErrInvalidInput, k)
		}
		if s.cfg.MaxTopK > 0 && k > s.cfg.MaxTopK {
			return q, fmt.Errorf("top_k must not exceed %d, got %d", s.cfg.MaxTopK, k)
		}
		q.TopK = k
	}

	if raw := strings.TrimSpace(params.Get("test_type")); raw != "" {
		var names []string
		for _, name := range strings.Split(raw, ",") {
			if name = strings.TrimSpace(name); name != "" {
				names = append(names, name)
			}
		}
		q.Filters = append(q.Filters, filtering.NewTestType(names...))
	}

	for _, p := range []struct {
		param string
		build func(assessment.YesNo) filtering.Filter
	}{
		{param: "remote", build: filtering.NewRemote},
		{param: "adaptive", build: filtering.NewAdaptive},
	} {
		raw := strings.TrimSpace(params.Get(p.param))
		if raw == "" {
			continue
		}
		want, ok := assessment.ParseYesNo(raw)
		if !ok {
			return q, fmt.Errorf("%s must be yes or no, got %q", p.param, raw)
		}
		q.Filters = append(q.Filters, p.build(want))
	}

	if raw := strings.TrimSpace(params.Get("min_score")); raw != "" {
		minScore, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return q, fmt.Errorf("min_score must be a number, got %q", raw)
		}
		q.Filters = append(q.Filters, filtering.NewMinScore(minScore))
	}

	if raw := strings.TrimSpace(params.Get("explain")); raw != "" {
		explain, err := strconv.ParseBool(raw)
		if err != nil {
			return q, fmt.Errorf("explain must be a boolean, got %q", raw)
		}
		q.Explain = explain
	}

	return q, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	snap := s.rec.Catalog()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": serviceName,
		"version": s.cfg.Version,
		"catalog": catalogSummary(snap),
	})
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	snap := s.rec.Catalog()

	if name := strings.TrimSpace(r.URL.Query().Get("name")); name != "" {
		rec, ok := snap.FindByName(name)
		if !ok {
			NotFound(w, r, fmt.Sprintf("assessment %q not found", name))
			return
		}
		writeJSON(w, http.StatusOK, rec)
		return
	}

	summary := catalogSummary(snap)
	summary["test_types"] = snap.CountByTestType()
	writeJSON(w, http.StatusOK, summary)
}

func catalogSummary(snap *catalog.Snapshot) map[string]any {
	summary := map[string]any{
		"source":  snap.Source(),
		"version": snap.Version(),
		"records": snap.Len(),
	}
	if !snap.LoadedAt().IsZero() {
		summary["loaded_at"] = snap.LoadedAt().UTC().Format(time.RFC3339)
	}
	return summary
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
