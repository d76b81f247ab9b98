package middleware

import (
	"context"
	"net"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fakhrymubarak/weather-gateway/internal/metrics"
	"golang.org/x/time/rate"
)

// cityParams are the query parameters that identify which cities a request looks up.
var cityParams = []string{"city", "city1", "city2"}

// the visitor holds the rate limiter and last seen time for a specific key.
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiterConfig holds per-minute rates and bursts for both limits.
type RateLimiterConfig struct {
	GlobalPerMinute float64
	GlobalBurst     int
	ParamPerMinute  float64
	ParamBurst      int
	// CleanupTimeout is how long a visitor may stay idle before it is forgotten.
	CleanupTimeout time.Duration
}

// RateLimiter enforces a per-IP limit and a per-IP, per-city limit.
type RateLimiter struct {
	cfg    RateLimiterConfig
	reject http.HandlerFunc

	// globalVisitors maps IP addresses to their visitor for global rate limiting.
	globalVisitors map[string]*visitor
	// paramVisitors maps IP addresses and city lookups to their visitor.
	paramVisitors map[string]map[string]*visitor // key: ip -> cities -> visitor
	muGlobal      sync.Mutex
	muParam       sync.Mutex
}

// NewRateLimiter returns a limiter that answers rejected requests with reject.
func NewRateLimiter(cfg RateLimiterConfig, reject http.HandlerFunc) *RateLimiter {
	if cfg.CleanupTimeout <= 0 {
		cfg.CleanupTimeout = 3 * time.Minute
	}
	return &RateLimiter{
		cfg:            cfg,
		reject:         reject,
		globalVisitors: make(map[string]*visitor),
		paramVisitors:  make(map[string]map[string]*visitor),
	}
}

func newLimiter(perMinute float64, burst int) *rate.Limiter {
	return rate.NewLimiter(rate.Limit(perMinute/60.0), burst)
}

// getGlobalLimiter returns the rate limiter for the given IP address, creating one if it does not exist.
func (rl *RateLimiter) getGlobalLimiter(ip string) *rate.Limiter {
	rl.muGlobal.Lock()
	defer rl.muGlobal.Unlock()
	v, exists := rl.globalVisitors[ip]
	if !exists {
		limiter := newLimiter(rl.cfg.GlobalPerMinute, rl.cfg.GlobalBurst)
		rl.globalVisitors[ip] = &visitor{limiter, time.Now()}
		return limiter
	}
	v.lastSeen = time.Now()
	return v.limiter
}

// getParamLimiter returns the rate limiter for the given IP address and city key, creating one if it does not exist.
func (rl *RateLimiter) getParamLimiter(ip, param string) *rate.Limiter {
	rl.muParam.Lock()
	defer rl.muParam.Unlock()
	if _, ok := rl.paramVisitors[ip]; !ok {
		rl.paramVisitors[ip] = make(map[string]*visitor)
	}
	v, exists := rl.paramVisitors[ip][param]
	if !exists {
		limiter := newLimiter(rl.cfg.ParamPerMinute, rl.cfg.ParamBurst)
		rl.paramVisitors[ip][param] = &visitor{limiter, time.Now()}
		return limiter
	}
	v.lastSeen = time.Now()
	return v.limiter
}

// cleanup removes visitors that have not been seen for longer than CleanupTimeout.
func (rl *RateLimiter) cleanup(now time.Time) {
	rl.muGlobal.Lock()
	for ip, v := range rl.globalVisitors {
		if now.Sub(v.lastSeen) > rl.cfg.CleanupTimeout {
			delete(rl.globalVisitors, ip)
		}
	}
	rl.muGlobal.Unlock()

	rl.muParam.Lock()
	for ip, paramMap := range rl.paramVisitors {
		for param, v := range paramMap {
			if now.Sub(v.lastSeen) > rl.cfg.CleanupTimeout {
				delete(paramMap, param)
			}
		}
		if len(paramMap) == 0 {
			delete(rl.paramVisitors, ip)
		}
	}
	rl.muParam.Unlock()
}

// StartCleanup sweeps stale visitors every minute until ctx is done.
func (rl *RateLimiter) StartCleanup(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				rl.cleanup(now)
			}
		}
	}()
}

// Reset clears all visitor state.
func (rl *RateLimiter) Reset() {
	rl.muGlobal.Lock()
	clear(rl.globalVisitors)
	rl.muGlobal.Unlock()
	rl.muParam.Lock()
	clear(rl.paramVisitors)
	rl.muParam.Unlock()
}

// getIP extracts the client's IP address from RemoteAddr. Forwarding headers
// are only honoured when chi's RealIP runs in front and rewrites RemoteAddr.
func getIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr // fallback
	}
	return ip
}

// getParam builds the per-param key from the city query parameters,
// case-insensitively and independent of their order.
func getParam(r *http.Request) string {
	q := r.URL.Query()
	parts := make([]string, 0, len(cityParams))
	for _, name := range cityParams {
		if v := strings.TrimSpace(q.Get(name)); v != "" {
			parts = append(parts, strings.ToLower(v))
		}
	}
	slices.Sort(parts)
	return strings.Join(parts, "|")
}

// Middleware enforces global and per-city rate limiting. Requests without a
// city only count against the global limit.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := getIP(r)
		if !rl.getGlobalLimiter(ip).Allow() {
			metrics.RateLimitedTotal.WithLabelValues("global").Inc()
			rl.reject(w, r)
			return
		}
		if param := getParam(r); param != "" && !rl.getParamLimiter(ip, param).Allow() {
			metrics.RateLimitedTotal.WithLabelValues("param").Inc()
			rl.reject(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}
