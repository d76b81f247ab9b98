package config

import (
	"flag"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var once sync.Once
var logger *zap.SugaredLogger
var loggerOnce sync.Once

// isTestRun returns true if the current process is a Go test binary.
func isTestRun() bool {
	return flag.Lookup("test.v") != nil || filepath.Ext(os.Args[0]) == ".test"
}

func initConfig() {
	once.Do(func() {
		viper.AutomaticEnv()
		viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		setDefaults()

		root, err := getProjectRoot()
		if err != nil {
			GetLogger().Errorw("Error finding project root", "error", err)
			return
		}
		viper.SetConfigType("yaml")

		viper.SetConfigName("config")
		viper.AddConfigPath(root)
		if err = viper.ReadInConfig(); err != nil {
			GetLogger().Errorw("Error reading config file", "error", err)
		}

		if !isTestRun() {
			return
		}
		viper.SetConfigName("config_test")
		if err = viper.MergeInConfig(); err != nil {
			GetLogger().Errorw("Error merging test config file", "error", err)
		}
	})
}

func setDefaults() {
	viper.SetDefault("openweathermap.api_url", "https://api.openweathermap.org/data/2.5/weather")
	viper.SetDefault("openweathermap.timeout", "10s")
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.timezone", "Local")
	viper.SetDefault("server.trust_proxy", false)
	viper.SetDefault("cache.expiration", "10m")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("rate_limiter.enabled", true)
	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.path", "/metrics")
}

func getProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", os.ErrNotExist
}

func getDuration(key string, fallback time.Duration) time.Duration {
	initConfig()
	raw := viper.GetString(key)
	if raw == "" {
		return fallback
	}
	dur, err := time.ParseDuration(raw)
	if err != nil || dur <= 0 {
		return fallback
	}
	return dur
}

func GetOpenWeatherApiUrl() string {
	initConfig()
	return viper.GetString("openweathermap.api_url")
}

// GetOpenWeatherMapAPIKey reads the upstream secret from the environment,
// loading a .env file first if one exists. API_KEY is accepted as a fallback name.
func GetOpenWeatherMapAPIKey() string {
	_ = godotenv.Load()
	if key := os.Getenv("OPENWEATHERMAP_API_KEY"); key != "" {
		return key
	}
	return os.Getenv("API_KEY")
}

// GetUpstreamTimeout bounds a single upstream call. Defaults to 10s.
func GetUpstreamTimeout() time.Duration {
	return getDuration("openweathermap.timeout", 10*time.Second)
}

func GetRedisAddr() string {
	initConfig()
	return viper.GetString("redis.addr")
}

func GetCacheEnabled() bool {
	initConfig()
	return viper.GetBool("cache.enabled")
}

// GetCacheExpiration returns the upstream response TTL. Defaults to 10m.
func GetCacheExpiration() time.Duration {
	return getDuration("cache.expiration", 10*time.Minute)
}

func GetServerPort() string {
	initConfig()
	serverPort := viper.GetString("server.port")
	return serverPort
}

// GetServerTimeout returns server.<key> as a duration, or fallback when unset or invalid.
func GetServerTimeout(key string, fallback time.Duration) time.Duration {
	return getDuration("server."+key, fallback)
}

// GetDisplayLocation returns the time zone sunrise and sunset are rendered in.
// "Local" or an unknown zone name resolves to the process local zone.
func GetDisplayLocation() *time.Location {
	initConfig()
	name := viper.GetString("server.timezone")
	if name == "" || name == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		GetLogger().Warnw("Unknown display timezone, using local", "timezone", name, "error", err)
		return time.Local
	}
	return loc
}

// GetTrustProxy reports whether client addresses may be taken from forwarding headers.
func GetTrustProxy() bool {
	initConfig()
	return viper.GetBool("server.trust_proxy")
}

func GetMetricsEnabled() bool {
	initConfig()
	return viper.GetBool("metrics.enabled")
}

func GetMetricsPath() string {
	initConfig()
	return viper.GetString("metrics.path")
}

func GetRateLimiterEnabled() bool {
	initConfig()
	return viper.GetBool("rate_limiter.enabled")
}

// ReloadConfigForTest resets the config singleton and reloads Viper config. Use only in tests.
func ReloadConfigForTest() {
	once = sync.Once{}
	initConfig()
}

func GetLogger() *zap.SugaredLogger {
	loggerOnce.Do(func() {
		l, err := zap.NewDevelopment()
		if err != nil {
			panic(err)
		}
		logger = l.Sugar()
	})
	return logger
}

// GetRateLimiterCleanupTimeout returns the rate limiter cleanup timeout as a time.Duration.
// Defaults to 3m if not set or invalid.
func GetRateLimiterCleanupTimeout() time.Duration {
	return getDuration("rate_limiter.cleanup_timeout", 3*time.Minute)
}

// GetGlobalRateLimiterConfig returns the per-minute rate and burst for the global rate limiter from config.
func GetGlobalRateLimiterConfig() (rate float64, burst int) {
	initConfig()
	rate = viper.GetFloat64("rate_limiter.global.rate")
	if rate == 0 {
		rate = 10
	}
	burst = viper.GetInt("rate_limiter.global.burst")
	if burst == 0 {
		burst = 10
	}
	return
}

// GetParamRateLimiterConfig returns the per-minute rate and burst for the param rate limiter from config.
func GetParamRateLimiterConfig() (rate float64, burst int) {
	initConfig()
	rate = viper.GetFloat64("rate_limiter.param.rate")
	if rate == 0 {
		rate = 2
	}
	burst = viper.GetInt("rate_limiter.param.burst")
	if burst == 0 {
		burst = 2
	}
	return
}
