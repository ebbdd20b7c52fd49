package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the full console configuration, loaded from environment
// variables (optionally seeded from a .env file).
type Config struct {
	Service   ServiceConfig
	Logging   LoggingConfig
	Tracing   TracingConfig
	Profiling ProfilingConfig
	Upstream  UpstreamConfig
	Session   SessionConfig
	Notify    NotifyConfig
}

// ServiceConfig identifies the service and its listen port.
type ServiceConfig struct {
	Name    string
	Version string
	Env     string
	Port    string

	// ShutdownTimeout and ReadinessDrainDelay are parsed from seconds.
	ShutdownTimeout     int
	ReadinessDrainDelay int
}

// LoggingConfig controls the zerolog global level.
type LoggingConfig struct {
	Level string
}

// TracingConfig controls OpenTelemetry export.
type TracingConfig struct {
	Enabled    bool
	Endpoint   string
	SampleRate float64
}

// ProfilingConfig controls Pyroscope continuous profiling.
type ProfilingConfig struct {
	Enabled  bool
	Endpoint string
}

// UpstreamConfig points at the care-management REST API the console fronts.
type UpstreamConfig struct {
	BaseURL string

	// RequestTimeout is parsed from seconds.
	RequestTimeout int
}

// SessionConfig selects the durable session store backend and cookie policy.
type SessionConfig struct {
	// Backend is one of "memory", "redis", "postgres".
	Backend string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	PostgresDSN   string

	// TTL is parsed from seconds.
	TTL int

	CookieDomain string
	CookieSecure bool
}

// NotifyConfig controls the unread upload-notification poller.
type NotifyConfig struct {
	Enabled bool

	// Interval is parsed from seconds.
	Interval int
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; real environment variables win.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Service: ServiceConfig{
			Name:                getEnv("SERVICE_NAME", "onsae-console"),
			Version:             getEnv("SERVICE_VERSION", "dev"),
			Env:                 getEnv("SERVICE_ENV", "local"),
			Port:                getEnv("PORT", "8080"),
			ShutdownTimeout:     getEnvInt("SHUTDOWN_TIMEOUT_SECONDS", 15),
			ReadinessDrainDelay: getEnvInt("READINESS_DRAIN_DELAY_SECONDS", 0),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Tracing: TracingConfig{
			Enabled:    getEnvBool("TRACING_ENABLED", false),
			Endpoint:   getEnv("TRACING_ENDPOINT", "localhost:4318"),
			SampleRate: getEnvFloat("TRACING_SAMPLE_RATE", 1.0),
		},
		Profiling: ProfilingConfig{
			Enabled:  getEnvBool("PROFILING_ENABLED", false),
			Endpoint: getEnv("PROFILING_ENDPOINT", "http://localhost:4040"),
		},
		Upstream: UpstreamConfig{
			BaseURL:        getEnv("UPSTREAM_BASE_URL", "http://localhost:9000"),
			RequestTimeout: getEnvInt("UPSTREAM_TIMEOUT_SECONDS", 10),
		},
		Session: SessionConfig{
			Backend:       getEnv("SESSION_BACKEND", "memory"),
			RedisAddr:     getEnv("SESSION_REDIS_ADDR", "localhost:6379"),
			RedisPassword: getEnv("SESSION_REDIS_PASSWORD", ""),
			RedisDB:       getEnvInt("SESSION_REDIS_DB", 0),
			PostgresDSN:   getEnv("SESSION_POSTGRES_DSN", ""),
			TTL:           getEnvInt("SESSION_TTL_SECONDS", 14*24*60*60),
			CookieDomain:  getEnv("SESSION_COOKIE_DOMAIN", ""),
			CookieSecure:  getEnvBool("SESSION_COOKIE_SECURE", false),
		},
		Notify: NotifyConfig{
			Enabled:  getEnvBool("NOTIFY_POLL_ENABLED", true),
			Interval: getEnvInt("NOTIFY_POLL_INTERVAL_SECONDS", 30),
		},
	}
}

// Validate rejects configurations the service cannot start with.
func (c *Config) Validate() error {
	if c.Service.Port == "" {
		return fmt.Errorf("PORT must not be empty")
	}
	if c.Upstream.BaseURL == "" {
		return fmt.Errorf("UPSTREAM_BASE_URL must not be empty")
	}
	switch c.Session.Backend {
	case "memory", "redis":
	case "postgres":
		if c.Session.PostgresDSN == "" {
			return fmt.Errorf("SESSION_POSTGRES_DSN required for postgres session backend")
		}
	default:
		return fmt.Errorf("unknown SESSION_BACKEND %q", c.Session.Backend)
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("SESSION_TTL_SECONDS must be positive")
	}
	if c.Notify.Enabled && c.Notify.Interval <= 0 {
		return fmt.Errorf("NOTIFY_POLL_INTERVAL_SECONDS must be positive")
	}
	return nil
}

// GetShutdownTimeoutDuration returns the HTTP shutdown timeout.
func (c *Config) GetShutdownTimeoutDuration() time.Duration {
	return time.Duration(c.Service.ShutdownTimeout) * time.Second
}

// GetReadinessDrainDelayDuration returns the delay between failing readiness
// and starting HTTP shutdown.
func (c *Config) GetReadinessDrainDelayDuration() time.Duration {
	return time.Duration(c.Service.ReadinessDrainDelay) * time.Second
}

// GetUpstreamTimeoutDuration returns the per-request upstream timeout.
func (c *Config) GetUpstreamTimeoutDuration() time.Duration {
	return time.Duration(c.Upstream.RequestTimeout) * time.Second
}

// GetSessionTTLDuration returns the durable session record lifetime.
func (c *Config) GetSessionTTLDuration() time.Duration {
	return time.Duration(c.Session.TTL) * time.Second
}

// GetNotifyIntervalDuration returns the notification poll interval.
func (c *Config) GetNotifyIntervalDuration() time.Duration {
	return time.Duration(c.Notify.Interval) * time.Second
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getEnvFloat(key string, fallback float64) float64 {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}
