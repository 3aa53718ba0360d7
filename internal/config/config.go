// Package config provides centralized configuration loaded from environment
// variables. Shared by both cmd/api and cmd/spm.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// League registry: ESPN paths and Ticketmaster genre per supported league
// --------------------------------------------------------------------------

type LeagueConfig struct {
	ID          string
	Name        string
	ESPNSport   string
	ESPNLeague  string
	TMGenreID   string
	SeasonStart time.Month // first month of a season that spans two calendar years
}

var LeagueRegistry = map[string]LeagueConfig{
	"nhl":  {ID: "nhl", Name: "National Hockey League", ESPNSport: "hockey", ESPNLeague: "nhl", TMGenreID: "KnvZfZ7vAdA", SeasonStart: time.September},
	"nba":  {ID: "nba", Name: "National Basketball Association", ESPNSport: "basketball", ESPNLeague: "nba", TMGenreID: "KnvZfZ7vAde", SeasonStart: time.October},
	"nfl":  {ID: "nfl", Name: "National Football League", ESPNSport: "football", ESPNLeague: "nfl", TMGenreID: "KnvZfZ7vAdE", SeasonStart: time.August},
	"mlb":  {ID: "mlb", Name: "Major League Baseball", ESPNSport: "baseball", ESPNLeague: "mlb", TMGenreID: "KnvZfZ7vAdv"},
	"mls":  {ID: "mls", Name: "Major League Soccer", ESPNSport: "soccer", ESPNLeague: "usa.1", TMGenreID: "KnvZfZ7vAAv"},
	"wnba": {ID: "wnba", Name: "Women's National Basketball Association", ESPNSport: "basketball", ESPNLeague: "wnba"},
	"epl":  {ID: "epl", Name: "English Premier League", ESPNSport: "soccer", ESPNLeague: "eng.1", SeasonStart: time.August},
}

// LookupLeague resolves a league id case-insensitively.
func LookupLeague(id string) (LeagueConfig, bool) {
	lc, ok := LeagueRegistry[strings.ToLower(strings.TrimSpace(id))]
	return lc, ok
}

// --------------------------------------------------------------------------
// Sync store drivers
// --------------------------------------------------------------------------

const (
	DriverJSON     = "json"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
	DriverS3       = "s3"
)

var validDrivers = []string{DriverJSON, DriverSQLite, DriverPostgres, DriverRedis, DriverS3}

// --------------------------------------------------------------------------
// Config struct, populated from environment variables
// --------------------------------------------------------------------------

type Config struct {
	// Sync store
	SyncStoreDriver string
	SyncStorePath   string // json driver
	SyncSQLitePath  string // sqlite driver

	// Postgres driver
	DatabaseURL    string
	DBPoolMinConns int
	DBPoolMaxConns int
	DBPoolMaxLife  time.Duration

	// Redis driver
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string

	// S3 driver
	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3Prefix    string

	// API server
	APIHost     string
	APIPort     int
	Environment string // development, staging, production
	Debug       bool

	// CORS
	CORSAllowOrigins []string

	// Rate limiting
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Schedule sources
	TicketmasterAPIKey string
	ScheduleTimeout    time.Duration

	// Cache
	CacheEnabled bool
	CacheTTL     time.Duration

	// Client (cmd/spm)
	DataDir          string
	SyncServerURL    string
	SyncKey          string
	SyncMetaTimeout  time.Duration
	SyncTransferTime time.Duration
	AutoPushDelay    time.Duration
	AutoPullInterval time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	cfg := &Config{
		SyncStoreDriver: strings.ToLower(envOr("SPM_SYNC_STORE_DRIVER", DriverJSON)),
		SyncStorePath:   envOr("SPM_SYNC_STORE_PATH", filepath.Join("dev", "sync-store.json")),
		SyncSQLitePath:  envOr("SPM_SYNC_SQLITE_PATH", filepath.Join("dev", "sync-store.sqlite")),

		DatabaseURL:    envOr("SPM_DATABASE_URL", envOr("DATABASE_URL", "")),
		DBPoolMinConns: envInt("DB_POOL_MIN_CONNS", 1),
		DBPoolMaxConns: envInt("DB_POOL_MAX_CONNS", 5),
		DBPoolMaxLife:  time.Duration(envInt("DB_POOL_MAX_LIFE_MINUTES", 30)) * time.Minute,

		RedisAddr:     envOr("REDIS_ADDR", envOr("REDIS_HOST", "localhost")+":"+envOr("REDIS_PORT", "6379")),
		RedisPassword: envOr("REDIS_PASSWORD", ""),
		RedisDB:       envInt("REDIS_DB", 0),
		RedisPrefix:   envOr("SPM_REDIS_PREFIX", "spm:backup:"),

		S3Bucket:    envOr("SPM_S3_BUCKET", ""),
		S3Region:    envOr("SPM_S3_REGION", "us-east-1"),
		S3Endpoint:  envOr("SPM_S3_ENDPOINT", ""),
		S3AccessKey: envOr("SPM_S3_ACCESS_KEY", ""),
		S3SecretKey: envOr("SPM_S3_SECRET_KEY", ""),
		S3Prefix:    envOr("SPM_S3_PREFIX", "spm-backups/"),

		APIHost:     envOr("API_HOST", "0.0.0.0"),
		APIPort:     envInt("API_PORT", envInt("PORT", 8787)),
		Environment: envOr("ENVIRONMENT", "development"),
		Debug:       envBool("DEBUG", false),

		CORSAllowOrigins: envList("CORS_ALLOW_ORIGINS", []string{"*"}),

		RateLimitEnabled:  envBool("RATE_LIMIT_ENABLED", true),
		RateLimitRequests: envInt("RATE_LIMIT_REQUESTS", 120),
		RateLimitWindow:   time.Duration(envInt("RATE_LIMIT_WINDOW", 60)) * time.Second,

		TicketmasterAPIKey: envOr("TICKETMASTER_API_KEY", envOr("EXPO_PUBLIC_TICKETMASTER_API_KEY", "")),
		ScheduleTimeout:    time.Duration(envInt("SCHEDULE_TIMEOUT_SECONDS", 30)) * time.Second,

		CacheEnabled: envBool("CACHE_ENABLED", true),
		CacheTTL:     time.Duration(envInt("CACHE_TTL_MINUTES", 60)) * time.Minute,

		DataDir:          envOr("SPM_DATA_DIR", defaultDataDir()),
		SyncServerURL:    strings.TrimRight(envOr("SPM_SYNC_URL", "http://localhost:8787"), "/"),
		SyncKey:          envOr("SPM_SYNC_KEY", ""),
		SyncMetaTimeout:  time.Duration(envInt("SPM_SYNC_META_TIMEOUT_SECONDS", 15)) * time.Second,
		SyncTransferTime: time.Duration(envInt("SPM_SYNC_TRANSFER_TIMEOUT_SECONDS", 20)) * time.Second,
		AutoPushDelay:    time.Duration(envInt("SPM_AUTO_PUSH_DELAY_MS", 2000)) * time.Millisecond,
		AutoPullInterval: time.Duration(envInt("SPM_AUTO_PULL_INTERVAL_SECONDS", 300)) * time.Second,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings that must be resolved once at startup.
func (c *Config) Validate() error {
	valid := false
	for _, d := range validDrivers {
		if c.SyncStoreDriver == d {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("SPM_SYNC_STORE_DRIVER %q is not one of %s", c.SyncStoreDriver, strings.Join(validDrivers, ", "))
	}

	switch c.SyncStoreDriver {
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("SPM_DATABASE_URL or DATABASE_URL must be set for the postgres driver")
		}
	case DriverS3:
		if c.S3Bucket == "" {
			return fmt.Errorf("SPM_S3_BUCKET must be set for the s3 driver")
		}
	}
	return nil
}

// IsProduction returns true if running in production environment.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "season-pass-manager")
	}
	return filepath.Join(".", ".spm")
}

// --------------------------------------------------------------------------
// Env helpers
// --------------------------------------------------------------------------

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}
