package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/fakhrymubarak/weather-gateway/internal/handler"
	"github.com/fakhrymubarak/weather-gateway/internal/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Options controls the optional parts of the router.
type Options struct {
	// RateLimiter guards the weather pages when non-nil.
	RateLimiter *middleware.RateLimiter
	// MetricsPath exposes Prometheus metrics when non-empty.
	MetricsPath string
	// RequestTimeout bounds each request's context when positive.
	RequestTimeout time.Duration
	// TrustProxy takes the client address from X-Forwarded-For/X-Real-IP.
	// Only enable it behind a proxy that sets those headers.
	TrustProxy bool
}

// HTTPConfig holds the listener settings.
type HTTPConfig struct {
	Addr              string
	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
}

type Server struct {
	weather *handler.WeatherHandler
	opts    Options
	log     *zap.SugaredLogger
}

func New(weather *handler.WeatherHandler, log *zap.SugaredLogger, opts Options) *Server {
	return &Server{weather: weather, opts: opts, log: log}
}

// Router maps every route to its handler. Only GET is served.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	if s.opts.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(chimw.RequestID)
	r.Use(middleware.RequestLogger(s.log))
	r.Use(middleware.Recoverer(s.log, s.weather.HandleServerError))
	if s.opts.RequestTimeout > 0 {
		r.Use(middleware.Deadline(s.opts.RequestTimeout))
	}

	r.NotFound(s.weather.HandleNotFound)
	r.MethodNotAllowed(s.weather.HandleMethodNotAllowed)

	r.Get("/healthz", s.weather.HandleHealth)
	if s.opts.MetricsPath != "" {
		r.Method(http.MethodGet, s.opts.MetricsPath, promhttp.Handler())
	}

	r.Group(func(r chi.Router) {
		if s.opts.RateLimiter != nil {
			r.Use(s.opts.RateLimiter.Middleware)
		}
		r.Get("/", s.weather.HandleHome)
		r.Get("/results", s.weather.HandleResults)
		r.Get("/comparison_results", s.weather.HandleComparisonResults)
	})
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, cfg HTTPConfig) error {
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}

	shutdownTimeout := cfg.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}

	serverErr := make(chan error, 1)
	go func() {
		s.log.Infow("Weather gateway listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	s.log.Infow("Shutting down weather gateway", "timeout", shutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
