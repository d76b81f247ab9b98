package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fakhrymubarak/weather-gateway/internal/config"
	"github.com/fakhrymubarak/weather-gateway/internal/handler"
	"github.com/fakhrymubarak/weather-gateway/internal/middleware"
	"github.com/fakhrymubarak/weather-gateway/internal/redis"
	"github.com/fakhrymubarak/weather-gateway/internal/repository"
	"github.com/fakhrymubarak/weather-gateway/internal/server"
	"github.com/fakhrymubarak/weather-gateway/internal/service"
)

// upstreamCache returns the redis client when caching is enabled and reachable, nil otherwise.
func upstreamCache(ctx context.Context) repository.Cache {
	log := config.GetLogger()
	if !config.GetCacheEnabled() {
		return nil
	}
	if err := redis.Ping(ctx, 2*time.Second); err != nil {
		log.Warnw("Redis unreachable, upstream cache disabled", "addr", config.GetRedisAddr(), "error", err)
		return nil
	}
	log.Infow("Upstream cache enabled", "addr", config.GetRedisAddr(), "ttl", config.GetCacheExpiration())
	return redis.GetClient()
}

func buildServer(ctx context.Context) (*server.Server, server.HTTPConfig, error) {
	log := config.GetLogger()

	apiKey := config.GetOpenWeatherMapAPIKey()
	if apiKey == "" {
		return nil, server.HTTPConfig{}, fmt.Errorf("%w: set OPENWEATHERMAP_API_KEY (or API_KEY) in the environment or .env", repository.ErrAPIKeyMissing)
	}

	repo := repository.NewWeatherRepository(repository.Options{
		APIURL:   config.GetOpenWeatherApiUrl(),
		APIKey:   apiKey,
		Timeout:  config.GetUpstreamTimeout(),
		Cache:    upstreamCache(ctx),
		CacheTTL: config.GetCacheExpiration(),
	})
	weatherHandler := handler.NewWeatherHandler(service.NewWeatherService(repo, config.GetDisplayLocation()))

	opts := server.Options{
		RequestTimeout: config.GetServerTimeout("request_timeout", 20*time.Second),
		TrustProxy:     config.GetTrustProxy(),
	}
	if config.GetRateLimiterEnabled() {
		globalRate, globalBurst := config.GetGlobalRateLimiterConfig()
		paramRate, paramBurst := config.GetParamRateLimiterConfig()
		opts.RateLimiter = middleware.NewRateLimiter(middleware.RateLimiterConfig{
			GlobalPerMinute: globalRate,
			GlobalBurst:     globalBurst,
			ParamPerMinute:  paramRate,
			ParamBurst:      paramBurst,
			CleanupTimeout:  config.GetRateLimiterCleanupTimeout(),
		}, weatherHandler.HandleTooManyRequests)
		opts.RateLimiter.StartCleanup(ctx)
	}
	if config.GetMetricsEnabled() {
		opts.MetricsPath = config.GetMetricsPath()
	}

	httpCfg := server.HTTPConfig{
		Addr:              ":" + config.GetServerPort(),
		ReadHeaderTimeout: config.GetServerTimeout("read_header_timeout", 15*time.Second),
		ReadTimeout:       config.GetServerTimeout("read_timeout", 15*time.Second),
		WriteTimeout:      config.GetServerTimeout("write_timeout", 30*time.Second),
		IdleTimeout:       config.GetServerTimeout("idle_timeout", 60*time.Second),
		ShutdownTimeout:   config.GetServerTimeout("shutdown_timeout", 10*time.Second),
	}
	return server.New(weatherHandler, log, opts), httpCfg, nil
}

func main() {
	log := config.GetLogger()
	defer func() { _ = log.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	srv, httpCfg, err := buildServer(ctx)
	if err != nil {
		log.Errorw("Weather gateway cannot start", "error", err)
		os.Exit(1)
	}
	defer func() { _ = redis.Close() }()

	if err := srv.Run(ctx, httpCfg); err != nil {
		log.Errorw("Weather gateway stopped", "error", err)
		os.Exit(1)
	}
}
