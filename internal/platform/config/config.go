package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the full process configuration, read once at startup.
type Config struct {
	Server    Server
	Log       Log
	Registry  Registry
	Redis     RedisConfig
	Postgres  Postgres
	Alerts    Alerts
	Narrative Narrative
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr             string
	ShutdownTimeout  time.Duration
	BatchConcurrency int
}

type Log struct {
	Level  string
	Format string
}

// Registry locates the SME registry. DSN takes precedence over Path.
type Registry struct {
	Path  string
	DSN   string
	Watch bool
}

// RedisConfig configures the bundle store. An empty URL keeps bundles in
// memory.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	BundleTTL    time.Duration
}

// Postgres configures the durable bundle store. Used when Redis is not.
type Postgres struct {
	DSN string
}

// Alerts configures the notifier. Without brokers alerts go to the log.
type Alerts struct {
	KafkaBrokers []string
	Topic        string
}

type Narrative struct {
	APIKey  string
	Model   string
	BaseURL string
}

// FromEnv builds a Config from OACT_* environment variables so main stays lean.
func FromEnv() (Config, error) {
	var errs []string
	p := parser{errs: &errs}

	cfg := Config{
		Server: Server{
			Addr:             stringOr("OACT_ADDR", ":8080"),
			ShutdownTimeout:  p.duration("OACT_SHUTDOWN_TIMEOUT", 10*time.Second),
			BatchConcurrency: p.integer("OACT_BATCH_CONCURRENCY", 8),
		},
		Log: Log{
			Level:  stringOr("OACT_LOG_LEVEL", "info"),
			Format: stringOr("OACT_LOG_FORMAT", "text"),
		},
		Registry: Registry{
			Path:  os.Getenv("OACT_REGISTRY_PATH"),
			DSN:   os.Getenv("OACT_REGISTRY_DSN"),
			Watch: p.boolean("OACT_REGISTRY_WATCH", false),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("OACT_REDIS_URL"),
			PoolSize:     p.integer("OACT_REDIS_POOL_SIZE", 10),
			MinIdleConns: p.integer("OACT_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  p.duration("OACT_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  p.duration("OACT_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: p.duration("OACT_REDIS_WRITE_TIMEOUT", 3*time.Second),
			BundleTTL:    p.duration("OACT_BUNDLE_TTL", 0),
		},
		Postgres: Postgres{
			DSN: os.Getenv("OACT_DATABASE_URL"),
		},
		Alerts: Alerts{
			KafkaBrokers: list("OACT_KAFKA_BROKERS"),
			Topic:        stringOr("OACT_ALERT_TOPIC", "oact.alerts"),
		},
		Narrative: Narrative{
			APIKey:  os.Getenv("OACT_OPENAI_API_KEY"),
			Model:   os.Getenv("OACT_OPENAI_MODEL"),
			BaseURL: os.Getenv("OACT_OPENAI_BASE_URL"),
		},
	}

	if cfg.Registry.Path == "" && cfg.Registry.DSN == "" {
		errs = append(errs, "one of OACT_REGISTRY_PATH or OACT_REGISTRY_DSN is required")
	}
	if cfg.Registry.Watch && cfg.Registry.Path == "" {
		errs = append(errs, "OACT_REGISTRY_WATCH requires OACT_REGISTRY_PATH")
	}
	if len(errs) > 0 {
		return Config{}, fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return cfg, nil
}

func stringOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func list(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parser collects every malformed variable instead of stopping at the first.
type parser struct {
	errs *[]string
}

func (p parser) fail(key, value, kind string) {
	*p.errs = append(*p.errs, fmt.Sprintf("%s=%q is not a valid %s", key, value, kind))
}

func (p parser) integer(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(key, v, "integer")
		return def
	}
	return n
}

func (p parser) duration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.fail(key, v, "duration")
		return def
	}
	return d
}

func (p parser) boolean(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(key, v, "boolean")
		return def
	}
	return b
}
