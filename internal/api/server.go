// Package api exposes the prediction engine over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/race-odds/internal/health"
	"github.com/yourusername/race-odds/internal/history"
	"github.com/yourusername/race-odds/internal/metrics"
	"github.com/yourusername/race-odds/internal/models"
)

// Predictor is the engine as seen by the HTTP layer.
type Predictor interface {
	Predict(ctx context.Context, req models.PredictRequest) (*models.RankedDistribution, error)
	Models() []models.ModelConfig
}

// HistoryMatcher resolves a horse name to its past starts.
type HistoryMatcher interface {
	Match(ctx context.Context, name string) (history.MatchResult, error)
}

// Options configures the HTTP server.
type Options struct {
	CORSOrigins    []string
	RequestTimeout time.Duration
	MaxBodyBytes   int64
	MetricsPath    string // empty disables the metrics endpoint
}

// Server routes API requests to the engine.
type Server struct {
	opts      Options
	predictor Predictor
	history   HistoryMatcher
	checker   *health.Checker
	logger    *logrus.Entry
	router    chi.Router
}

// NewServer builds the router. matcher may be nil when no history store is
// configured, in which case the history route is not mounted.
func NewServer(opts Options, predictor Predictor, matcher HistoryMatcher, checker *health.Checker, log *logrus.Logger) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 1 << 20
	}
	if len(opts.CORSOrigins) == 0 {
		opts.CORSOrigins = []string{"*"}
	}

	s := &Server{
		opts:      opts,
		predictor: predictor,
		history:   matcher,
		checker:   checker,
		logger:    log.WithField("component", "api"),
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, s.requestLogger, middleware.Recoverer)
	r.Use(middleware.Timeout(s.opts.RequestTimeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.opts.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))

	if s.checker != nil {
		r.Get("/healthz", s.checker.HandleHealth)
		r.Get("/readyz", s.checker.HandleReady)
	}
	if s.opts.MetricsPath != "" {
		r.Handle(s.opts.MetricsPath, metrics.Handler())
	}

	r.Route("/v1", func(r chi.Router) {
		r.Post("/predict", s.handlePredict)
		r.Get("/models", s.handleModels)
		if s.history != nil {
			r.Get("/history/{name}", s.handleHistory)
		}
	})

	return r
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("API server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("API server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		s.logger.WithFields(logrus.Fields{
			"request_id":  middleware.GetReqID(r.Context()),
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      ww.Status(),
			"bytes":       ww.BytesWritten(),
			"duration_ms": float64(time.Since(start).Microseconds()) / 1000,
		}).Debug("Request handled")
	})
}
