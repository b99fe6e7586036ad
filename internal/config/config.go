package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

const ConfigPathEnvVar = "CONFIG_PATH"

var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/internmatch/config.yaml",
}

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	App       AppConfig       `koanf:"app"`
	Database  DatabaseConfig  `koanf:"database"`
	Redis     RedisConfig     `koanf:"redis"`
	Embedding EmbeddingConfig `koanf:"embedding"`
	Matching  MatchingConfig  `koanf:"matching"`
	Queue     QueueConfig     `koanf:"queue"`
	Log       LogConfig       `koanf:"log"`
	Janitor   JanitorConfig   `koanf:"janitor"`
}

type AppConfig struct {
	AppName     string `koanf:"name"`
	Environment string `koanf:"env"`
	HTTPPort    string `koanf:"http_port"`
	Timezone    string `koanf:"timezone"`
}

type DatabaseConfig struct {
	DBHost     string `koanf:"host"`
	DBPort     string `koanf:"port"`
	DBName     string `koanf:"name"`
	DBUser     string `koanf:"user"`
	DBPassword string `koanf:"password"`
	DBSSLMode  string `koanf:"ssl_mode"`

	ConnectTimeout        time.Duration `koanf:"connect_timeout"`
	PoolMaxConns          int32         `koanf:"pool_max_conns"`
	PoolMinConns          int32         `koanf:"pool_min_conns"`
	PoolMaxConnLifetime   time.Duration `koanf:"pool_max_conn_lifetime"`
	PoolMaxConnIdleTime   time.Duration `koanf:"pool_max_conn_idle_time"`
	PoolHealthCheckPeriod time.Duration `koanf:"pool_health_check_period"`

	RunMigrations bool `koanf:"run_migrations"`
}

type RedisConfig struct {
	Host     string `koanf:"host"`
	Port     string `koanf:"port"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

type EmbeddingConfig struct {
	Provider       string        `koanf:"provider"`
	Model          string        `koanf:"model"`
	Dimensions     int           `koanf:"dimensions"`
	CacheBackend   string        `koanf:"cache_backend"`
	CacheTTL       time.Duration `koanf:"cache_ttl"`
	APIKey         string        `koanf:"api_key"`
	RequestTimeout time.Duration `koanf:"request_timeout"`
	BatchSize      int           `koanf:"batch_size"`

	BreakerFailures uint32        `koanf:"breaker_failures"`
	BreakerCooldown time.Duration `koanf:"breaker_cooldown"`
}

type MatchingConfig struct {
	LockTTL        time.Duration `koanf:"lock_ttl"`
	PostingWorkers int           `koanf:"posting_workers"`
}

type QueueConfig struct {
	DailyTapLimit int     `koanf:"daily_tap_limit"`
	AdProbability float64 `koanf:"ad_probability"`
	Seed          int64   `koanf:"seed"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type JanitorConfig struct {
	Enabled bool   `koanf:"enabled"`
	Spec    string `koanf:"spec"`
}

func defaultConfig() Config {
	return Config{
		App: AppConfig{
			AppName:     "internmatch",
			Environment: "development",
			HTTPPort:    "8080",
			Timezone:    "Asia/Manila",
		},
		Database: DatabaseConfig{
			DBHost:         "localhost",
			DBPort:         "5432",
			DBName:         "internmatch",
			DBUser:         "postgres",
			DBSSLMode:      "disable",
			ConnectTimeout: 5 * time.Second,
			PoolMaxConns:   10,
			RunMigrations:  true,
		},
		Redis: RedisConfig{
			Host: "localhost",
			Port: "6379",
		},
		Embedding: EmbeddingConfig{
			Provider:        "hashing",
			Model:           "text-embedding-004",
			Dimensions:      384,
			CacheBackend:    "redis",
			CacheTTL:        time.Hour,
			RequestTimeout:  10 * time.Second,
			BatchSize:       100,
			BreakerFailures: 5,
			BreakerCooldown: 30 * time.Second,
		},
		Matching: MatchingConfig{
			LockTTL:        5 * time.Minute,
			PostingWorkers: 8,
		},
		Queue: QueueConfig{
			DailyTapLimit: 10,
			AdProbability: 0.25,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Janitor: JanitorConfig{
			Enabled: true,
			Spec:    "@every 1h",
		},
	}
}

// Load layers defaults, an optional YAML file and environment variables, in
// that order of precedence.
func Load() (Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("load env: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func findConfigFile() string {
	if p := strings.TrimSpace(os.Getenv(ConfigPathEnvVar)); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// envKeys lists the environment variables mapped onto config paths. Anything
// else in the environment is ignored.
var envKeys = map[string]string{
	"APP_NAME":                  "app.name",
	"APP_ENV":                   "app.env",
	"HTTP_PORT":                 "app.http_port",
	"APP_TIMEZONE":              "app.timezone",
	"DB_HOST":                   "database.host",
	"DB_PORT":                   "database.port",
	"DB_NAME":                   "database.name",
	"DB_USER":                   "database.user",
	"DB_PASSWORD":               "database.password",
	"DB_SSL_MODE":               "database.ssl_mode",
	"DB_CONNECT_TIMEOUT":        "database.connect_timeout",
	"DB_POOL_MAX_CONNS":         "database.pool_max_conns",
	"DB_POOL_MIN_CONNS":         "database.pool_min_conns",
	"DB_RUN_MIGRATIONS":         "database.run_migrations",
	"REDIS_HOST":                "redis.host",
	"REDIS_PORT":                "redis.port",
	"REDIS_PASSWORD":            "redis.password",
	"REDIS_DB":                  "redis.db",
	"EMBEDDING_PROVIDER":        "embedding.provider",
	"EMBEDDING_MODEL":           "embedding.model",
	"EMBEDDING_CACHE_BACKEND":   "embedding.cache_backend",
	"EMBEDDING_CACHE_TTL":       "embedding.cache_ttl",
	"EMBEDDING_REQUEST_TIMEOUT": "embedding.request_timeout",
	"GEMINI_API_KEY":            "embedding.api_key",
	"MATCHING_LOCK_TTL":         "matching.lock_ttl",
	"MATCHING_POSTING_WORKERS":  "matching.posting_workers",
	"QUEUE_DAILY_TAP_LIMIT":     "queue.daily_tap_limit",
	"QUEUE_AD_PROBABILITY":      "queue.ad_probability",
	"QUEUE_SEED":                "queue.seed",
	"LOG_LEVEL":                 "log.level",
	"LOG_FORMAT":                "log.format",
	"JANITOR_ENABLED":           "janitor.enabled",
	"JANITOR_SPEC":              "janitor.spec",
}

func envKey(key string) string {
	return envKeys[strings.ToUpper(strings.TrimSpace(key))]
}

func (c Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.App.HTTPPort) == "" {
		problems = append(problems, "app.http_port is required")
	}
	if _, err := time.LoadLocation(c.App.Timezone); err != nil {
		problems = append(problems, fmt.Sprintf("app.timezone %q: %v", c.App.Timezone, err))
	}

	switch c.Embedding.Provider {
	case "hashing":
	case "gemini":
		if strings.TrimSpace(c.Embedding.APIKey) == "" {
			problems = append(problems, "embedding.api_key is required for the gemini provider")
		}
	default:
		problems = append(problems, fmt.Sprintf("embedding.provider %q is not supported", c.Embedding.Provider))
	}
	switch c.Embedding.CacheBackend {
	case "redis", "postgres":
	default:
		problems = append(problems, fmt.Sprintf("embedding.cache_backend %q is not supported", c.Embedding.CacheBackend))
	}
	if c.Embedding.Dimensions != 384 {
		problems = append(problems, fmt.Sprintf("embedding.dimensions must be 384, got %d", c.Embedding.Dimensions))
	}
	if c.Embedding.CacheTTL <= 0 {
		problems = append(problems, "embedding.cache_ttl must be positive")
	}

	if c.Matching.LockTTL <= 0 {
		problems = append(problems, "matching.lock_ttl must be positive")
	}
	if c.Queue.DailyTapLimit <= 0 {
		problems = append(problems, "queue.daily_tap_limit must be positive")
	}
	if c.Queue.AdProbability < 0 || c.Queue.AdProbability > 1 {
		problems = append(problems, "queue.ad_probability must be within [0,1]")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}
