package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fakhrymubarak/weather-gateway/internal/config"
	"github.com/fakhrymubarak/weather-gateway/internal/metrics"
	"github.com/fakhrymubarak/weather-gateway/internal/model"
	redisv9 "github.com/redis/go-redis/v9"
)

// Custom error types
var (
	ErrLocationNotFound  = errors.New("location not found")
	ErrAPIKeyMissing     = errors.New("API key missing")
	ErrExternalAPI       = errors.New("external API error")
	ErrMalformedResponse = errors.New("malformed upstream response")
)

// maxBodyBytes caps how much of an upstream body is read.
const maxBodyBytes = 1 << 20

// Cache is the part of the redis client the repository needs.
type Cache interface {
	Get(ctx context.Context, key string) *redisv9.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redisv9.StatusCmd
}

// WeatherRepository defines the interface for weather data access
type WeatherRepository interface {
	GetCurrentWeather(ctx context.Context, query model.WeatherQuery) (*model.OpenWeatherMapResponse, error)
}

// Options configures a repository. A nil Cache disables caching.
type Options struct {
	APIURL     string
	APIKey     string
	Timeout    time.Duration
	HTTPClient *http.Client
	Cache      Cache
	CacheTTL   time.Duration
}

// weatherRepository implements WeatherRepository
type weatherRepository struct {
	apiURL     string
	apiKey     string
	timeout    time.Duration
	httpClient *http.Client
	cache      Cache
	cacheTTL   time.Duration
}

// NewWeatherRepository creates a new weather repository instance
func NewWeatherRepository(opts Options) WeatherRepository {
	client := opts.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &weatherRepository{
		apiURL:     opts.APIURL,
		apiKey:     opts.APIKey,
		timeout:    opts.Timeout,
		httpClient: client,
		cache:      opts.Cache,
		cacheTTL:   ttl,
	}
}

// GetCurrentWeather returns the upstream conditions for query, checking the cache first when one is configured.
func (r *weatherRepository) GetCurrentWeather(ctx context.Context, query model.WeatherQuery) (*model.OpenWeatherMapResponse, error) {
	if r.cache != nil {
		if cached, err := r.getFromCache(ctx, query); err == nil {
			return cached, nil
		}
	}

	body, err := r.fetchFromExternalAPI(ctx, query)
	if err != nil {
		return nil, err
	}

	data, err := decodeWeather(body)
	if err != nil {
		metrics.UpstreamCallsTotal.WithLabelValues("malformed").Inc()
		return nil, err
	}
	metrics.UpstreamCallsTotal.WithLabelValues("ok").Inc()

	if r.cache != nil {
		r.cacheWeather(ctx, query, body)
	}
	return data, nil
}

func cacheKey(query model.WeatherQuery) string {
	return "weather:" + query.Units + ":" + strings.ToLower(strings.TrimSpace(query.City))
}

// getFromCache retrieves a raw upstream body from Redis and decodes it.
func (r *weatherRepository) getFromCache(ctx context.Context, query model.WeatherQuery) (*model.OpenWeatherMapResponse, error) {
	val, err := r.cache.Get(ctx, cacheKey(query)).Bytes()
	if err != nil {
		metrics.CacheLookupsTotal.WithLabelValues("miss").Inc()
		return nil, err
	}

	data, err := decodeWeather(val)
	if err != nil {
		metrics.CacheLookupsTotal.WithLabelValues("corrupt").Inc()
		return nil, err
	}
	metrics.CacheLookupsTotal.WithLabelValues("hit").Inc()
	return data, nil
}

// fetchFromExternalAPI calls OpenWeatherMap and returns the raw body of a 200 response.
func (r *weatherRepository) fetchFromExternalAPI(ctx context.Context, query model.WeatherQuery) ([]byte, error) {
	if r.apiKey == "" {
		return nil, ErrAPIKeyMissing
	}

	endpoint, err := url.Parse(r.apiURL)
	if err != nil {
		return nil, fmt.Errorf("%w: bad api url: %v", ErrExternalAPI, err)
	}
	params := endpoint.Query()
	params.Set("appid", r.apiKey)
	params.Set("q", query.City)
	if query.Units != "" {
		params.Set("units", query.Units)
	}
	endpoint.RawQuery = params.Encode()

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExternalAPI, err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := r.httpClient.Do(req)
	metrics.UpstreamLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.UpstreamCallsTotal.WithLabelValues("transport_error").Inc()
		return nil, fmt.Errorf("%w: %v", ErrExternalAPI, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		if resp.StatusCode == http.StatusNotFound {
			metrics.UpstreamCallsTotal.WithLabelValues("not_found").Inc()
			return nil, ErrLocationNotFound
		}
		metrics.UpstreamCallsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%w: status %d", ErrExternalAPI, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		metrics.UpstreamCallsTotal.WithLabelValues("transport_error").Inc()
		return nil, fmt.Errorf("%w: read body: %v", ErrExternalAPI, err)
	}
	return body, nil
}

// requiredFields mirrors the keys the pages read, as pointers, so an absent
// key can be told apart from a zero value.
type requiredFields struct {
	Name *string `json:"name"`
	Sys  *struct {
		Sunrise *int64 `json:"sunrise"`
		Sunset  *int64 `json:"sunset"`
	} `json:"sys"`
	Main *struct {
		Temp     *float64 `json:"temp"`
		Humidity *int     `json:"humidity"`
	} `json:"main"`
	Wind *struct {
		Speed *float64 `json:"speed"`
	} `json:"wind"`
	Weather []struct {
		Icon        *string `json:"icon"`
		Description *string `json:"description"`
	} `json:"weather"`
}

// missing returns the path of the first required key that is absent, or "".
func (f *requiredFields) missing() string {
	switch {
	case f.Name == nil:
		return "name"
	case f.Sys == nil:
		return "sys"
	case f.Sys.Sunrise == nil:
		return "sys.sunrise"
	case f.Sys.Sunset == nil:
		return "sys.sunset"
	case f.Main == nil:
		return "main"
	case f.Main.Temp == nil:
		return "main.temp"
	case f.Main.Humidity == nil:
		return "main.humidity"
	case f.Wind == nil:
		return "wind"
	case f.Wind.Speed == nil:
		return "wind.speed"
	case len(f.Weather) == 0:
		return "weather"
	case f.Weather[0].Icon == nil || *f.Weather[0].Icon == "":
		return "weather[0].icon"
	case f.Weather[0].Description == nil:
		return "weather[0].description"
	}
	return ""
}

// decodeWeather parses body and checks that every field the pages read is present.
func decodeWeather(body []byte) (*model.OpenWeatherMapResponse, error) {
	var fields requiredFields
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if key := fields.missing(); key != "" {
		return nil, fmt.Errorf("%w: missing %s", ErrMalformedResponse, key)
	}

	var data model.OpenWeatherMapResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return &data, nil
}

// cacheWeather stores the raw upstream body in Redis cache
func (r *weatherRepository) cacheWeather(ctx context.Context, query model.WeatherQuery, body []byte) {
	if err := r.cache.Set(ctx, cacheKey(query), body, r.cacheTTL).Err(); err != nil {
		config.GetLogger().Warnw("Failed to cache upstream response", "city", query.City, "error", err)
	}
}
