// Package server exposes the recommend service over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"github.com/justchokingaround/moodcast/internal/recommend"
	"github.com/justchokingaround/moodcast/internal/resolver"
)

// Recommender is the service the handlers call
type Recommender interface {
	Songs(ctx context.Context, mood string, count int) []recommend.Song
	Podcasts(ctx context.Context, mood string) []resolver.PodcastResult
	Poster(ctx context.Context, title, artist string) string
	ResolveVideo(ctx context.Context, q resolver.VideoQuery) resolver.VideoResolution
	Stats() recommend.Stats
}

// Options configures the HTTP server
type Options struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
	// RequestsPerMinute enables per-client rate limiting when positive
	RequestsPerMinute int
	Burst             int
}

// Server serves the API
type Server struct {
	opts    Options
	handler http.Handler
	logger  *slog.Logger
}

// New builds a Server and its routes
func New(svc Recommender, opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	var limiter *IPRateLimiter
	if opts.RequestsPerMinute > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = opts.RequestsPerMinute
		}
		limiter = NewIPRateLimiter(rate.Every(time.Minute/time.Duration(opts.RequestsPerMinute)), burst)
	}

	return &Server{
		opts:    opts,
		handler: NewRouter(svc, opts.AllowedOrigins, limiter, logger),
		logger:  logger,
	}
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run listens until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.opts.Addr,
		Handler:      s.handler,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.opts.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	timeout := s.opts.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}

// NewRouter builds the mux router with middleware and API routes
func NewRouter(svc Recommender, allowedOrigins []string, limiter *IPRateLimiter, logger *slog.Logger) *mux.Router {
	r := mux.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(accessLogMiddleware(logger))
	r.Use(corsMiddleware(allowedOrigins))

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	h := &handlers{svc: svc}
	api := r.PathPrefix("/api").Subrouter()
	if limiter != nil {
		api.Use(limiter.Middleware)
	}
	api.HandleFunc("/songs", h.songs).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/podcasts", h.podcasts).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/poster", h.poster).Methods(http.MethodGet)
	api.HandleFunc("/resolve", h.resolve).Methods(http.MethodGet)
	api.HandleFunc("/stats", h.stats).Methods(http.MethodGet)

	return r
}
